// QRメニューAPIのエントリポイント。
// 設定の読み込み、ロガー・トークン検証器・メニューストア・ストレージ転送の構築を行い、
// HTTPサーバーを起動する。SIGINT/SIGTERMで処理中のリクエストを待って停止する。
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/menum/internal/api"
	"github.com/nao1215/menum/internal/auth"
	"github.com/nao1215/menum/internal/config"
	"github.com/nao1215/menum/internal/imageupload"
	"github.com/nao1215/menum/internal/menu"
	"github.com/nao1215/menum/internal/storage"
	"github.com/nao1215/menum/pkg/httpclient"
	"github.com/nao1215/menum/pkg/logging"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "APIサーバーの実行に失敗: %v\n", err)
		os.Exit(1)
	}
}

// run はフラグと設定を読み込んでサーバーを起動する。
func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("api", pflag.ContinueOnError)
	addr := flags.String("addr", "", "リッスンアドレス（省略時は :$PORT）")
	envFile := flags.String("env-file", ".env", "読み込む.envファイルのパス")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	logger := logging.New(stdout, cfg.LogLevel)
	logger.Info("application started", slog.String("env", cfg.Env))
	logger.Debug("設定を読み込みました", slog.String("config", cfg.String()))

	repo, closeRepo, err := newRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.Error("メニューストアのクローズに失敗", slog.String("error", err.Error()))
		}
	}()

	forwarder, err := newForwarder(ctx, cfg, logger)
	if err != nil {
		return err
	}

	keys := auth.NewKeySetCache(httpclient.New(cfg.SupabaseBaseURL()), auth.JWKSPath)
	verifier := auth.NewVerifier(auth.VerifierConfig{
		Issuer:      cfg.Issuer(),
		HS256Secret: cfg.HS256Secret(),
	}, keys, logger)

	menus := menu.NewService(repo, logger)
	listen := *addr
	if listen == "" {
		listen = ":" + cfg.Port
	}

	server := api.NewServer(api.Options{
		Addr:           listen,
		AllowedOrigins: cfg.AllowedOrigins(),
		Verifier:       verifier,
		Menus:          menus,
		Uploader:       imageupload.NewUploader(menus, forwarder, logger),
		Logger:         logger,
	})
	return server.Run(ctx)
}

// newRepository はMENU_STOREに応じたメニューストアを構築し、シードデータを投入する。
func newRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (menu.Repository, func() error, error) {
	switch cfg.MenuStore {
	case "sqlite":
		repo, err := menu.OpenSQLite(ctx, menu.SQLiteDSN(cfg.SQLitePath), logger)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.Seed(ctx, menu.SeedMenus()...); err != nil {
			_ = repo.Close()
			return nil, nil, err
		}
		logger.Info("SQLiteメニューストアを使用", slog.String("path", cfg.SQLitePath))
		return repo, repo.Close, nil
	default:
		logger.Info("メモリ上のメニューストアを使用")
		return menu.NewMemoryRepository(menu.SeedMenus()...), func() error { return nil }, nil
	}
}

// newForwarder はSTORAGE_BACKENDに応じたストレージ転送を構築する。
// 設定が不足している場合も構築は成功し、アップロード時に設定エラーとなる。
func newForwarder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Forwarder, error) {
	switch cfg.StorageBackend {
	case "s3":
		return storage.NewS3Forwarder(ctx, storage.S3Settings{
			BaseURL:         cfg.SupabaseBaseURL(),
			Bucket:          cfg.SupabaseStorageBucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
		}, logger)
	default:
		return storage.NewRESTForwarder(storage.Settings{
			BaseURL:        cfg.SupabaseBaseURL(),
			ServiceRoleKey: cfg.SupabaseServiceRoleKey,
			Bucket:         cfg.SupabaseStorageBucket,
		}, logger), nil
	}
}
