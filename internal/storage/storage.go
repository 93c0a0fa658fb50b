// Package storage は検証済みの画像をオブジェクトストレージへ転送する。
//
// 保存パスは menus/{menu_id}/{uuid}.{ext} の形式で生成し、利用者が指定した
// ファイル名には依存しない。転送方式はSupabase Storage REST APIと
// S3互換エンドポイントの2種類を提供する。
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nao1215/menum/pkg/apperr"
)

// ErrNotConfigured はストレージの設定が不足していることを示す。
var ErrNotConfigured = errors.New("storage is not configured")

// defaultContentType は拡張子から種類を判定できない場合のContent-Type。
const defaultContentType = "application/octet-stream"

// contentTypes は拡張子からContent-Typeへの対応表。
var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// Object は保存したオブジェクトの位置。
type Object struct {
	// Path はバケット内のオブジェクトパス。
	Path string `json:"path"`
	// URL は公開URL。
	URL string `json:"url"`
}

// Forwarder はファイルの内容をオブジェクトストレージに保存する。
type Forwarder interface {
	// Upload はdataを menus/{menuID}/{uuid}.{ext} に保存し、その位置を返す。
	// 設定不足の場合は apperr.KindConfig、転送失敗の場合は apperr.KindInternal のエラーを返す。
	Upload(ctx context.Context, menuID string, data []byte, ext string) (Object, error)
}

// Settings はSupabase Storageへの接続設定。
type Settings struct {
	// BaseURL はSupabaseプロジェクトのベースURL。
	BaseURL string
	// ServiceRoleKey は書き込みに使うサービスロールキー。
	ServiceRoleKey string
	// Bucket は保存先のバケット名。
	Bucket string
}

// Missing は未設定の環境変数名を返す。
func (s Settings) Missing() []string {
	var missing []string
	if s.BaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if s.ServiceRoleKey == "" {
		missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
	}
	if s.Bucket == "" {
		missing = append(missing, "SUPABASE_STORAGE_BUCKET")
	}
	return missing
}

// configError は不足している環境変数をすべて列挙した設定エラーを返す。
func configError(missing []string) error {
	return apperr.Wrap(apperr.KindConfig,
		fmt.Sprintf("Missing required environment variables: %s. Please configure these before using storage features.",
			strings.Join(missing, ", ")),
		ErrNotConfigured,
	)
}

// uploadError は転送失敗を表すエラーを返す。
func uploadError(path string, err error) error {
	return apperr.Wrap(apperr.KindInternal, "Failed to upload image", fmt.Errorf("%s: %w", path, err))
}

// ObjectPath は新しいランダムIDを使ってオブジェクトパスを生成する。
func ObjectPath(menuID, ext string) string {
	return fmt.Sprintf("menus/%s/%s.%s", menuID, uuid.NewString(), ext)
}

// ContentTypeFor は拡張子に対応するContent-Typeを返す。
// 大文字小文字は区別せず、未知の拡張子には application/octet-stream を返す。
func ContentTypeFor(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return defaultContentType
}

// PublicURL は公開バケット上のオブジェクトURLを返す。
func PublicURL(baseURL, bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", strings.TrimRight(baseURL, "/"), bucket, path)
}
