package menu

import (
	"context"
	"errors"
)

// ErrNotFound は指定したIDのメニューが存在しないことを示す。
var ErrNotFound = errors.New("menu not found")

// Repository はメニューレコードの保存先。
// 実装は並行呼び出しに対して安全でなければならない。
type Repository interface {
	// Get はIDに一致するメニューを返す。存在しない場合は ErrNotFound を返す。
	Get(ctx context.Context, id string) (Menu, error)
	// ListByOwner は所有者IDに一致するメニューを挿入順に返す。
	ListByOwner(ctx context.Context, ownerID string) ([]Menu, error)
	// UpdateName はメニュー名を更新し、更新後のレコードを返す。
	UpdateName(ctx context.Context, id, name string) (Menu, error)
	// ClaimOwner は所有者が UnclaimedOwner の場合に限り ownerID を設定する。
	// 戻り値の bool は今回の呼び出しで割り当てが行われたかどうか。
	// 割り当てられなかった場合も現在のレコードを返す。
	ClaimOwner(ctx context.Context, id, ownerID string) (Menu, bool, error)
}
