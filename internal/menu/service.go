package menu

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/menum/pkg/apperr"
	"github.com/nao1215/menum/pkg/logging"
)

const (
	msgNotFound        = "Menu not found"
	msgForbiddenAccess = "You do not have permission to access this menu"
	msgForbiddenUpload = "You do not have permission to upload images to this menu"
)

// Service はメニューの取得・更新・一覧と所有者ポリシーを提供する。
type Service struct {
	// repo はメニューの保存先。
	repo Repository
	// logger は構造化ロガー。
	logger *slog.Logger
}

// NewService は新しい Service を生成する。
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{repo: repo, logger: logger}
}

// Get はメニューを取得する。所有者でない場合は Forbidden を返す。
func (s *Service) Get(ctx context.Context, id, callerID string) (Menu, error) {
	return s.authorize(ctx, id, callerID, msgForbiddenAccess)
}

// Update はpatchに含まれるフィールドだけを更新し、更新後のメニューを返す。
func (s *Service) Update(ctx context.Context, id string, patch Patch, callerID string) (Menu, error) {
	m, err := s.authorize(ctx, id, callerID, msgForbiddenAccess)
	if err != nil {
		return Menu{}, err
	}

	if patch.Name != nil {
		m, err = s.repo.UpdateName(ctx, id, *patch.Name)
		if err != nil {
			return Menu{}, repoError(err)
		}
	}

	s.logger.InfoContext(ctx, "menu updated",
		slog.String("menu_id", id),
		slog.String("user_id", logging.Truncate(callerID)),
	)
	return m, nil
}

// List は呼び出し元が所有するメニューを挿入順に返す。
func (s *Service) List(ctx context.Context, callerID string) ([]Menu, error) {
	menus, err := s.repo.ListByOwner(ctx, callerID)
	if err != nil {
		return nil, repoError(err)
	}
	return menus, nil
}

// AuthorizeUpload は画像アップロード先のメニューに対する所有者ポリシーを適用する。
func (s *Service) AuthorizeUpload(ctx context.Context, id, callerID string) error {
	_, err := s.authorize(ctx, id, callerID, msgForbiddenUpload)
	return err
}

// authorize はメニューを取得してから所有者ポリシーを適用する。
// 存在確認が先に行われるため、存在しないIDでは割り当ても警告ログも発生しない。
//
// 所有者が UnclaimedOwner のレコードは呼び出し元に割り当てる。
// これは開発用シードデータのための挙動であり、本番では作成時に所有者を決めること。
func (s *Service) authorize(ctx context.Context, id, callerID, forbiddenMessage string) (Menu, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return Menu{}, repoError(err)
	}

	if m.OwnerID == UnclaimedOwner {
		current, claimed, err := s.repo.ClaimOwner(ctx, id, callerID)
		if err != nil {
			return Menu{}, repoError(err)
		}
		if claimed {
			s.logger.InfoContext(ctx, "DEVELOPMENT: 未所有のメニューを割り当て",
				slog.String("menu_id", id),
				slog.String("user_id", logging.Truncate(callerID)),
			)
			return current, nil
		}
		// 他のリクエストが先に割り当てた
		m = current
	}

	if m.OwnerID != callerID {
		s.logger.WarnContext(ctx, "所有者違反",
			slog.String("menu_id", id),
			slog.String("user_id", logging.Truncate(callerID)),
			slog.String("owner_id", logging.Truncate(m.OwnerID)),
		)
		return Menu{}, apperr.New(apperr.KindForbidden, forbiddenMessage)
	}
	return m, nil
}

// repoError は保存先のエラーを種別付きエラーに変換する。
func repoError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.Wrap(apperr.KindNotFound, msgNotFound, err)
	}
	return apperr.Wrap(apperr.KindInternal, "Internal server error", err)
}
