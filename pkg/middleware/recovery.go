package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/menum/pkg/apperr"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時にスタックトレースをログに出力し、500エラーを返す。
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(c.Request.Context(), "パニックから回復",
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("request_id", GetRequestID(c)),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				RespondError(c, apperr.Wrap(apperr.KindInternal, "Internal server error", fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}
