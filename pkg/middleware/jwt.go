package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nao1215/menum/pkg/apperr"
)

// contextKeyUserID は認証済みユーザーIDを保持するGinコンテキストのキー。
const contextKeyUserID = "user_id"

const (
	msgNotAuthenticated = "Not authenticated"
	msgMissingSubject   = "Invalid token: missing user identifier"
)

// TokenVerifier はBearerトークンを検証してクレームを返す。
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (jwt.MapClaims, error)
}

// JWTAuth はBearerトークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに "user_id"（subクレーム）を設定する。
// 保護されたハンドラは業務データに触れる前に必ずこのミドルウェアを通る。
func JWTAuth(verifier TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			RespondError(c, apperr.New(apperr.KindUnauthorized, msgNotAuthenticated))
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			logger.WarnContext(c.Request.Context(), "トークン検証に失敗",
				slog.String("path", c.Request.URL.Path),
				slog.String("reason", apperr.MessageOf(err, "")),
			)
			RespondError(c, err)
			return
		}

		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			logger.WarnContext(c.Request.Context(), "トークンにsubクレームがありません",
				slog.String("path", c.Request.URL.Path),
			)
			RespondError(c, apperr.New(apperr.KindUnauthorized, msgMissingSubject))
			return
		}

		c.Set(contextKeyUserID, sub)
		c.Next()
	}
}

// bearerToken はAuthorizationヘッダーからトークン部分を取り出す。
// スキーム名の大文字小文字は区別しない。
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get(contextKeyUserID)
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}
