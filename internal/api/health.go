package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	// Status は常に "ok"。
	Status string `json:"status"`
}

// handleHealth はヘルスチェックを処理するハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	}
}
