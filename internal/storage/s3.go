package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nao1215/menum/pkg/logging"
)

// s3EndpointPath はSupabaseのS3互換エンドポイントのパス。
const s3EndpointPath = "/storage/v1/s3"

// objectPutter はS3クライアントのうちアップロードに使う部分。
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Settings はS3互換エンドポイントへの接続設定。
type S3Settings struct {
	// BaseURL はSupabaseプロジェクトのベースURL。
	BaseURL string
	// Bucket は保存先のバケット名。
	Bucket string
	// AccessKeyID はS3アクセスキーID。
	AccessKeyID string
	// SecretAccessKey はS3シークレットアクセスキー。
	SecretAccessKey string
	// Region はリージョン。
	Region string
}

// Missing は未設定の環境変数名を返す。
func (s S3Settings) Missing() []string {
	var missing []string
	if s.BaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if s.AccessKeyID == "" {
		missing = append(missing, "SUPABASE_S3_ACCESS_KEY_ID")
	}
	if s.SecretAccessKey == "" {
		missing = append(missing, "SUPABASE_S3_SECRET_ACCESS_KEY")
	}
	if s.Bucket == "" {
		missing = append(missing, "SUPABASE_STORAGE_BUCKET")
	}
	return missing
}

// Endpoint はS3互換エンドポイントのURLを返す。
func (s S3Settings) Endpoint() string {
	return strings.TrimRight(s.BaseURL, "/") + s3EndpointPath
}

// S3Forwarder はS3互換エンドポイントにPutObjectでオブジェクトを保存する。
type S3Forwarder struct {
	// settings は接続設定。
	settings S3Settings
	// client はS3クライアント。設定不足の場合はnil。
	client objectPutter
	// logger は構造化ロガー。
	logger *slog.Logger
}

var _ Forwarder = (*S3Forwarder)(nil)

// NewS3Forwarder はS3クライアントを構築して S3Forwarder を生成する。
// 設定が不足している場合はクライアントを構築せず、Upload の呼び出し時に設定エラーを返す。
func NewS3Forwarder(ctx context.Context, settings S3Settings, logger *slog.Logger) (*S3Forwarder, error) {
	if len(settings.Missing()) > 0 {
		return newS3Forwarder(settings, nil, logger), nil
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(settings.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			settings.AccessKeyID,
			settings.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(settings.Endpoint())
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return newS3Forwarder(settings, client, logger), nil
}

func newS3Forwarder(settings S3Settings, client objectPutter, logger *slog.Logger) *S3Forwarder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &S3Forwarder{settings: settings, client: client, logger: logger}
}

// Upload はdataをバケットに保存する。
func (f *S3Forwarder) Upload(ctx context.Context, menuID string, data []byte, ext string) (Object, error) {
	if missing := f.settings.Missing(); len(missing) > 0 || f.client == nil {
		return Object{}, configError(missing)
	}

	path := ObjectPath(menuID, ext)
	f.logger.InfoContext(ctx, "ストレージへアップロード", slog.String("path", path))
	_, err := f.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(f.settings.Bucket),
		Key:           aws.String(path),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(ContentTypeFor(ext)),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return Object{}, uploadError(path, err)
	}
	f.logger.InfoContext(ctx, "アップロード完了", slog.String("path", path))

	return Object{
		Path: path,
		URL:  PublicURL(f.settings.BaseURL, f.settings.Bucket, path),
	}, nil
}
