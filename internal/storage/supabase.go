package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nao1215/menum/pkg/httpclient"
	"github.com/nao1215/menum/pkg/logging"
)

// RESTForwarder はSupabase Storage REST APIにPOSTでオブジェクトを保存する。
type RESTForwarder struct {
	// settings は接続設定。
	settings Settings
	// client はSupabaseへのHTTPクライアント。
	client *httpclient.Client
	// logger は構造化ロガー。
	logger *slog.Logger
}

var _ Forwarder = (*RESTForwarder)(nil)

// NewRESTForwarder は新しい RESTForwarder を生成する。
// 設定が不足していても生成は成功し、Upload の呼び出し時に設定エラーを返す。
func NewRESTForwarder(settings Settings, logger *slog.Logger) *RESTForwarder {
	if logger == nil {
		logger = logging.Discard()
	}
	settings.BaseURL = strings.TrimRight(settings.BaseURL, "/")
	return &RESTForwarder{
		settings: settings,
		client:   httpclient.New(settings.BaseURL),
		logger:   logger,
	}
}

// Upload はdataをバケットに保存する。
func (f *RESTForwarder) Upload(ctx context.Context, menuID string, data []byte, ext string) (Object, error) {
	if missing := f.settings.Missing(); len(missing) > 0 {
		return Object{}, configError(missing)
	}

	path := ObjectPath(menuID, ext)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+f.settings.ServiceRoleKey)
	header.Set("Content-Type", ContentTypeFor(ext))

	f.logger.InfoContext(ctx, "ストレージへアップロード", slog.String("path", path))
	endpoint := fmt.Sprintf("/storage/v1/object/%s/%s", f.settings.Bucket, path)
	if err := f.client.PostBytes(ctx, endpoint, data, header); err != nil {
		return Object{}, uploadError(path, err)
	}
	f.logger.InfoContext(ctx, "アップロード完了", slog.String("path", path))

	return Object{
		Path: path,
		URL:  PublicURL(f.settings.BaseURL, f.settings.Bucket, path),
	}, nil
}
