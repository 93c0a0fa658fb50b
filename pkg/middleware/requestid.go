package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID はリクエストIDを伝播するHTTPヘッダー。
	HeaderRequestID = "X-Request-ID"
	// contextKeyRequestID はリクエストIDを保持するGinコンテキストのキー。
	contextKeyRequestID = "request_id"
	// maxRequestIDLength はクライアントから受け取るリクエストIDの最大長。
	maxRequestIDLength = 128
)

// RequestID はリクエストごとにIDを割り当てるGinミドルウェアを返す。
// クライアントが X-Request-ID を送った場合はそれを引き継ぐ。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(contextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID はGinコンテキストからリクエストIDを取得する。
func GetRequestID(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}
