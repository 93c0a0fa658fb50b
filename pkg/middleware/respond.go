package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/menum/pkg/apperr"
)

// fallbackMessages は公開メッセージを持たないエラーに使う既定メッセージ。
var fallbackMessages = map[apperr.Kind]string{
	apperr.KindBadRequest:   "Bad request",
	apperr.KindUnauthorized: "Not authenticated",
	apperr.KindForbidden:    "Forbidden",
	apperr.KindNotFound:     "Not found",
	apperr.KindConfig:       "Service is not configured. Please contact support.",
	apperr.KindInternal:     "Internal server error",
}

// ErrorBody はエラーレスポンスの error フィールド。
type ErrorBody struct {
	// Code はエラー種別を表す文字列。
	Code string `json:"code"`
	// Message は公開メッセージ。
	Message string `json:"message"`
}

// ErrorResponse はすべてのエラーレスポンスの形式。
// detail はアップロードクライアント、error はAPIクライアントが参照する。
type ErrorResponse struct {
	// Detail は公開メッセージ。
	Detail string `json:"detail"`
	// Error は種別付きのエラー情報。
	Error ErrorBody `json:"error"`
}

// RespondError はエラーを種別に応じたHTTPレスポンスとして書き出し、後続の処理を中断する。
// 内部原因はレスポンスに含めない。
func RespondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	message := apperr.MessageOf(err, fallbackMessages[kind])
	if kind == apperr.KindUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), ErrorResponse{
		Detail: message,
		Error: ErrorBody{
			Code:    kind.String(),
			Message: message,
		},
	})
}

// RespondNotFound は未定義ルートに対する404を返すハンドラ。
func RespondNotFound(c *gin.Context) {
	RespondError(c, apperr.New(apperr.KindNotFound, http.StatusText(http.StatusNotFound)))
}
