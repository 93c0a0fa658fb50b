package imageupload

import (
	"context"
	"log/slog"

	"github.com/nao1215/menum/internal/storage"
	"github.com/nao1215/menum/pkg/apperr"
	"github.com/nao1215/menum/pkg/logging"
)

const (
	msgStorageNotConfigured = "Storage service is not configured. Please contact support."
	msgUploadFailed         = "Failed to upload images. Please try again."
)

// Authorizer はアップロード先メニューの存在と所有者を確認する。
type Authorizer interface {
	AuthorizeUpload(ctx context.Context, menuID, callerID string) error
}

// Uploader は画像アップロード要求を検証してストレージへ転送する。
type Uploader struct {
	// menus はメニューの所有者確認。
	menus Authorizer
	// storage は転送先。
	storage storage.Forwarder
	// logger は構造化ロガー。
	logger *slog.Logger
}

// NewUploader は新しい Uploader を生成する。
func NewUploader(menus Authorizer, forwarder storage.Forwarder, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Uploader{menus: menus, storage: forwarder, logger: logger}
}

// Upload は所有者確認と検証をすべて通過した場合に限り、ファイルを提出順に転送する。
// 転送中に失敗した場合は以降のファイルを転送せずにエラーを返す。
func (u *Uploader) Upload(ctx context.Context, menuID, callerID string, files []Candidate) ([]storage.Object, error) {
	u.logger.InfoContext(ctx, "Upload request",
		slog.String("menu_id", menuID),
		slog.String("user_id", logging.Truncate(callerID)),
		slog.Int("file_count", len(files)),
	)

	if err := u.menus.AuthorizeUpload(ctx, menuID, callerID); err != nil {
		return nil, err
	}

	validated, err := Validate(files)
	if err != nil {
		return nil, err
	}

	objects := make([]storage.Object, 0, len(validated))
	for _, v := range validated {
		obj, err := u.storage.Upload(ctx, menuID, v.Data, v.Extension)
		if err != nil {
			return nil, u.uploadError(ctx, menuID, v.Label, err)
		}
		objects = append(objects, obj)
	}

	u.logger.InfoContext(ctx, "Upload successful",
		slog.String("menu_id", menuID),
		slog.Int("uploaded", len(objects)),
	)
	return objects, nil
}

// uploadError は転送失敗を設定エラーとそれ以外に分けて公開メッセージを付け替える。
func (u *Uploader) uploadError(ctx context.Context, menuID, label string, err error) error {
	if apperr.Is(err, apperr.KindConfig) {
		u.logger.ErrorContext(ctx, "ストレージ設定エラー",
			slog.String("menu_id", menuID),
			slog.String("error", err.Error()),
		)
		return apperr.Wrap(apperr.KindConfig, msgStorageNotConfigured, err)
	}
	u.logger.ErrorContext(ctx, "ストレージへのアップロードに失敗",
		slog.String("menu_id", menuID),
		slog.String("file", label),
		slog.String("error", err.Error()),
	)
	return apperr.Wrap(apperr.KindInternal, msgUploadFailed, err)
}
