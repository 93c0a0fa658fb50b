package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv は必須の環境変数を設定する。
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "INFO")
	t.Setenv("FRONTEND_ORIGIN", "https://menu.example.com")
}

func TestLoad(t *testing.T) {
	t.Run("必須の環境変数から設定を読み込めること", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("SUPABASE_URL", "https://abc.supabase.co/")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "production", cfg.Env)
		assert.Equal(t, "INFO", cfg.LogLevel)
		assert.Equal(t, "https://menu.example.com", cfg.FrontendOrigin)
		assert.Equal(t, "8000", cfg.Port)
		assert.Equal(t, "memory", cfg.MenuStore)
		assert.Equal(t, "rest", cfg.StorageBackend)
		assert.Equal(t, "us-east-1", cfg.S3Region)
		assert.Equal(t, "https://abc.supabase.co/auth/v1", cfg.Issuer())
	})

	t.Run("必須の環境変数が欠けている場合はすべて列挙してエラーになること", func(t *testing.T) {
		t.Setenv("ENV", "")
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("FRONTEND_ORIGIN", "https://menu.example.com")

		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ENV")
		assert.Contains(t, err.Error(), "LOG_LEVEL")
		assert.NotContains(t, err.Error(), "FRONTEND_ORIGIN")
	})

	t.Run(".envファイルの値を読み込み、既存の環境変数は上書きしないこと", func(t *testing.T) {
		t.Setenv("ENV", "staging")
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("FRONTEND_ORIGIN", "")
		t.Setenv("SUPABASE_STORAGE_BUCKET", "")

		envFile := filepath.Join(t.TempDir(), ".env")
		content := strings.Join([]string{
			"ENV=local",
			"LOG_LEVEL=DEBUG",
			"FRONTEND_ORIGIN=http://localhost:3000",
			"SUPABASE_STORAGE_BUCKET=menu-images",
		}, "\n")
		require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

		// godotenvは空文字列で設定済みの変数も「設定済み」とみなすため、事前に削除する
		for _, k := range []string{"LOG_LEVEL", "FRONTEND_ORIGIN", "SUPABASE_STORAGE_BUCKET"} {
			require.NoError(t, os.Unsetenv(k))
		}

		cfg, err := Load(envFile)
		require.NoError(t, err)
		assert.Equal(t, "staging", cfg.Env)
		assert.Equal(t, "DEBUG", cfg.LogLevel)
		assert.Equal(t, "http://localhost:3000", cfg.FrontendOrigin)
		assert.Equal(t, "menu-images", cfg.SupabaseStorageBucket)
	})

	t.Run("存在しない.envファイルは無視されること", func(t *testing.T) {
		setRequiredEnv(t)

		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		assert.NoError(t, err)
	})

	t.Run("MENU_STOREが不正な値の場合はエラーになること", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("MENU_STORE", "postgres")

		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MENU_STORE")
	})

	t.Run("STORAGE_BACKENDが不正な値の場合はエラーになること", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("STORAGE_BACKEND", "gcs")

		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STORAGE_BACKEND")
	})
}

func TestConfigHelpers(t *testing.T) {
	t.Parallel()

	t.Run("ENV=localではlocalhostのオリジンが追加されること", func(t *testing.T) {
		t.Parallel()

		cfg := &Config{Env: "local", FrontendOrigin: "https://menu.example.com"}
		assert.Equal(t, []string{
			"https://menu.example.com",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}, cfg.AllowedOrigins())
	})

	t.Run("ENV=local以外では設定したオリジンのみ許可されること", func(t *testing.T) {
		t.Parallel()

		cfg := &Config{Env: "production", FrontendOrigin: "https://menu.example.com"}
		assert.Equal(t, []string{"https://menu.example.com"}, cfg.AllowedOrigins())
	})

	t.Run("JWTシークレット未設定時は匿名キーにフォールバックすること", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "jwt-secret", (&Config{SupabaseJWTSecret: "jwt-secret", SupabaseAnonKey: "anon"}).HS256Secret())
		assert.Equal(t, "anon", (&Config{SupabaseAnonKey: "anon"}).HS256Secret())
		assert.Empty(t, (&Config{}).HS256Secret())
	})

	t.Run("SUPABASE_URL未設定時はIssuerが空になること", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, (&Config{}).Issuer())
	})

	t.Run("Stringは秘密情報をマスクすること", func(t *testing.T) {
		t.Parallel()

		cfg := &Config{
			SupabaseJWTSecret:      "super-secret",
			SupabaseServiceRoleKey: "service-role",
		}
		out := cfg.String()
		assert.NotContains(t, out, "super-secret")
		assert.NotContains(t, out, "service-role")
		assert.Contains(t, out, "SUPABASE_JWT_SECRET: ********")
		assert.Contains(t, out, "SUPABASE_ANON_KEY: (empty)")
	})
}
