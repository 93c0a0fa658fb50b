package menu

// Status はメニューの公開状態。
type Status string

const (
	// StatusDraft は下書き状態。
	StatusDraft Status = "draft"
	// StatusPublished は公開状態。
	StatusPublished Status = "published"
)

// UnclaimedOwner は所有者未確定のレコードに設定される番兵値。
// 開発用のシードデータにのみ使う。
const UnclaimedOwner = "placeholder-owner"

// Menu はメニューレコード。
type Menu struct {
	// ID はメニューの一意識別子。作成後に変わらない。
	ID string `json:"id"`
	// OwnerID は所有者の利用者ID。
	OwnerID string `json:"owner_id"`
	// Name はメニュー名。
	Name string `json:"name"`
	// Status は公開状態。
	Status Status `json:"status"`
}

// Patch はメニューの部分更新。nilのフィールドは変更しない。
type Patch struct {
	// Name は新しいメニュー名。空文字列も有効な値として扱う。
	Name *string `json:"name"`
}

// SeedMenus はプロセス起動時に投入する開発用のメニューを返す。
func SeedMenus() []Menu {
	return []Menu{
		{
			ID:      "menu-1",
			OwnerID: UnclaimedOwner,
			Name:    "Test Menu",
			Status:  StatusDraft,
		},
	}
}
