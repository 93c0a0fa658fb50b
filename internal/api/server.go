package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/menum/internal/imageupload"
	"github.com/nao1215/menum/internal/menu"
	"github.com/nao1215/menum/pkg/logging"
	"github.com/nao1215/menum/pkg/middleware"
)

// shutdownTimeout は停止時に処理中のリクエストを待つ時間。
const shutdownTimeout = 10 * time.Second

// Options はサーバーの依存関係。
type Options struct {
	// Addr はリッスンアドレス（例: ":8000"）。
	Addr string
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// Verifier はBearerトークンの検証器。
	Verifier middleware.TokenVerifier
	// Menus はメニューの取得・更新・一覧。
	Menus *menu.Service
	// Uploader は画像アップロードの検証と転送。
	Uploader *imageupload.Uploader
	// Logger は構造化ロガー。
	Logger *slog.Logger
}

// Server はQRメニューAPIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// server はリッスン中のHTTPサーバー。
	server *http.Server
	// menus はメニューの取得・更新・一覧。
	menus *menu.Service
	// uploader は画像アップロードの検証と転送。
	uploader *imageupload.Uploader
	// logger は構造化ロガー。
	logger *slog.Logger
}

// NewServer は新しいサーバーを生成し、ルーティングを設定する。
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(opts.AllowedOrigins))

	s := &Server{
		router:   router,
		menus:    opts.Menus,
		uploader: opts.Uploader,
		logger:   logger,
	}
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	s.setupRoutes(opts.Verifier)
	return s
}

// Handler はルーティング済みのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxが終了するまで処理を続ける。
// ctx終了後は処理中のリクエストを待ってから停止する。
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTPサーバーを起動", slog.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	s.logger.Info("HTTPサーバーを停止")
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(verifier middleware.TokenVerifier) {
	api := s.router.Group("/api")
	{
		// ヘルスチェック
		api.GET("/health", s.handleHealth())

		menus := api.Group("/menus")
		menus.Use(middleware.JWTAuth(verifier, s.logger))
		{
			// 所有するメニューの一覧
			menus.GET("/", s.handleListMenus())
			// メニュー取得
			menus.GET("/:id", s.handleGetMenu())
			// メニュー更新
			menus.PUT("/:id", s.handleUpdateMenu())
			// 画像アップロード
			menus.POST("/:id/images", s.handleUploadImages())
		}
	}

	s.router.NoRoute(middleware.RespondNotFound)
}
