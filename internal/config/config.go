// Package config は環境変数（および任意の.envファイル）からアプリケーション設定を読み込む。
//
// ENV・LOG_LEVEL・FRONTEND_ORIGIN は必須で、欠けている場合は起動時に失敗する。
// Supabase関連の値は任意で、認証やストレージ機能が実際に使われた時点で検証される。
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// localFrontendOrigins はENV=localのときに追加で許可するオリジン。
var localFrontendOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

// requiredKeys は起動に必須の環境変数。
var requiredKeys = []string{"ENV", "LOG_LEVEL", "FRONTEND_ORIGIN"}

// Config はアプリケーション設定。
type Config struct {
	// Env は実行環境（local, staging, production等）。
	Env string `mapstructure:"ENV"`
	// LogLevel はログレベル。
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// FrontendOrigin はCORSで許可するフロントエンドのオリジン。
	FrontendOrigin string `mapstructure:"FRONTEND_ORIGIN"`
	// Port はHTTPサーバーのリッスンポート。
	Port string `mapstructure:"PORT"`

	// SupabaseURL はSupabaseプロジェクトのベースURL。
	SupabaseURL string `mapstructure:"SUPABASE_URL"`
	// SupabaseAnonKey は匿名キー。JWTシークレット未設定時のHS256検証に使う。
	SupabaseAnonKey string `mapstructure:"SUPABASE_ANON_KEY"`
	// SupabaseJWTSecret はHS256トークン検証用のシークレット。
	SupabaseJWTSecret string `mapstructure:"SUPABASE_JWT_SECRET"`
	// SupabaseServiceRoleKey はストレージ書き込み用のサービスロールキー。
	SupabaseServiceRoleKey string `mapstructure:"SUPABASE_SERVICE_ROLE_KEY"`
	// SupabaseStorageBucket は画像を保存するバケット名。
	SupabaseStorageBucket string `mapstructure:"SUPABASE_STORAGE_BUCKET"`

	// MenuStore はメニューストアの実装（memory または sqlite）。
	MenuStore string `mapstructure:"MENU_STORE"`
	// SQLitePath はMENU_STORE=sqliteのときのデータベースファイルパス。
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	// StorageBackend はストレージ転送の方式（rest または s3）。
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	// S3AccessKeyID はS3互換エンドポイントのアクセスキーID。
	S3AccessKeyID string `mapstructure:"SUPABASE_S3_ACCESS_KEY_ID"`
	// S3SecretAccessKey はS3互換エンドポイントのシークレットアクセスキー。
	S3SecretAccessKey string `mapstructure:"SUPABASE_S3_SECRET_ACCESS_KEY"`
	// S3Region はS3互換エンドポイントのリージョン。
	S3Region string `mapstructure:"SUPABASE_S3_REGION"`
}

// Load は環境変数から設定を読み込む。
// envFileが存在する場合は先に読み込むが、既に設定済みの環境変数は上書きしない。
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf(".envファイルの読み込みに失敗: %w", err)
			}
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("MENU_STORE", "memory")
	v.SetDefault("SQLITE_PATH", "menus.db")
	v.SetDefault("STORAGE_BACKEND", "rest")
	v.SetDefault("SUPABASE_S3_REGION", "us-east-1")

	keys := []string{
		"ENV", "LOG_LEVEL", "FRONTEND_ORIGIN", "PORT",
		"SUPABASE_URL", "SUPABASE_ANON_KEY", "SUPABASE_JWT_SECRET",
		"SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_STORAGE_BUCKET",
		"MENU_STORE", "SQLITE_PATH",
		"STORAGE_BACKEND", "SUPABASE_S3_ACCESS_KEY_ID", "SUPABASE_S3_SECRET_ACCESS_KEY", "SUPABASE_S3_REGION",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定のデコードに失敗: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate は必須項目と列挙値を検証する。
func (c *Config) validate() error {
	values := map[string]string{
		"ENV":             c.Env,
		"LOG_LEVEL":       c.LogLevel,
		"FRONTEND_ORIGIN": c.FrontendOrigin,
	}
	var missing []string
	for _, k := range requiredKeys {
		if strings.TrimSpace(values[k]) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}

	switch c.MenuStore {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("MENU_STORE の値が不正です: %q（memory または sqlite）", c.MenuStore)
	}
	switch c.StorageBackend {
	case "rest", "s3":
	default:
		return fmt.Errorf("STORAGE_BACKEND の値が不正です: %q（rest または s3）", c.StorageBackend)
	}
	return nil
}

// IsLocal はローカル開発環境かどうかを返す。
func (c *Config) IsLocal() bool {
	return c.Env == "local"
}

// AllowedOrigins はCORSで許可するオリジンの一覧を返す。
func (c *Config) AllowedOrigins() []string {
	origins := []string{c.FrontendOrigin}
	if c.IsLocal() {
		origins = append(origins, localFrontendOrigins...)
	}
	return origins
}

// SupabaseBaseURL は末尾のスラッシュを除いたSupabaseのベースURLを返す。
func (c *Config) SupabaseBaseURL() string {
	return strings.TrimRight(c.SupabaseURL, "/")
}

// Issuer はトークンのiss クレームとして期待する値を返す。
// SUPABASE_URL が未設定の場合は空文字列を返す。
func (c *Config) Issuer() string {
	if c.SupabaseBaseURL() == "" {
		return ""
	}
	return c.SupabaseBaseURL() + "/auth/v1"
}

// HS256Secret はHS256検証用のシークレットを返す。
// SUPABASE_JWT_SECRET が未設定の場合は SUPABASE_ANON_KEY にフォールバックする。
func (c *Config) HS256Secret() string {
	if c.SupabaseJWTSecret != "" {
		return c.SupabaseJWTSecret
	}
	return c.SupabaseAnonKey
}

// String は秘密情報をマスクした設定内容を返す。
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  ENV: %s\n", c.Env)
	fmt.Fprintf(&sb, "  LOG_LEVEL: %s\n", c.LogLevel)
	fmt.Fprintf(&sb, "  FRONTEND_ORIGIN: %s\n", c.FrontendOrigin)
	fmt.Fprintf(&sb, "  PORT: %s\n", c.Port)
	fmt.Fprintf(&sb, "  SUPABASE_URL: %s\n", c.SupabaseURL)
	fmt.Fprintf(&sb, "  SUPABASE_ANON_KEY: %s\n", mask(c.SupabaseAnonKey))
	fmt.Fprintf(&sb, "  SUPABASE_JWT_SECRET: %s\n", mask(c.SupabaseJWTSecret))
	fmt.Fprintf(&sb, "  SUPABASE_SERVICE_ROLE_KEY: %s\n", mask(c.SupabaseServiceRoleKey))
	fmt.Fprintf(&sb, "  SUPABASE_STORAGE_BUCKET: %s\n", c.SupabaseStorageBucket)
	fmt.Fprintf(&sb, "  MENU_STORE: %s\n", c.MenuStore)
	fmt.Fprintf(&sb, "  SQLITE_PATH: %s\n", c.SQLitePath)
	fmt.Fprintf(&sb, "  STORAGE_BACKEND: %s\n", c.StorageBackend)
	fmt.Fprintf(&sb, "  SUPABASE_S3_ACCESS_KEY_ID: %s\n", mask(c.S3AccessKeyID))
	fmt.Fprintf(&sb, "  SUPABASE_S3_SECRET_ACCESS_KEY: %s\n", mask(c.S3SecretAccessKey))
	fmt.Fprintf(&sb, "  SUPABASE_S3_REGION: %s\n", c.S3Region)
	return sb.String()
}

// mask は値の有無だけを示す文字列を返す。
func mask(v string) string {
	if v == "" {
		return "(empty)"
	}
	return "********"
}
