// Package apperr はAPI全体で共有するエラー種別を定義する。
//
// ハンドラやサービスは例外的な制御フローを使わず、種別付きのエラーを
// 呼び出し元に返す。HTTPステータスへの変換は HTTPStatus に集約する。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はエラーの種別を表す。
type Kind int

const (
	// KindInternal はアップロード失敗や通信失敗など、想定外の内部エラー。
	KindInternal Kind = iota
	// KindBadRequest はリクエスト内容の検証エラー。
	KindBadRequest
	// KindUnauthorized はトークンの欠落・不正・期限切れ。
	KindUnauthorized
	// KindForbidden は所有者不一致。
	KindForbidden
	// KindNotFound は存在しないリソースへのアクセス。
	KindNotFound
	// KindConfig は必要な環境設定が不足している状態。
	KindConfig
)

// String はレスポンスの error.code に使う文字列を返す。
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConfig:
		return "config_error"
	default:
		return "internal_error"
	}
}

// Error は種別・公開メッセージ・内部原因を保持するエラー。
// Message はクライアントにそのまま返すため、内部情報を含めてはならない。
type Error struct {
	// Kind はエラーの種別。
	Kind Kind
	// Message はクライアントに返す公開メッセージ。
	Message string
	// Err は内部原因。ログにのみ出力する。
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap は内部原因を返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// New は原因を持たないエラーを生成する。
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap は内部原因を保持したエラーを生成する。
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf はerrの種別を返す。種別を持たないエラーは KindInternal として扱う。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is はerrが指定した種別かどうかを判定する。
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf はerrの公開メッセージを返す。
// 種別を持たないエラーの場合はfallbackを返し、内部情報の漏洩を防ぐ。
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// HTTPStatus は種別に対応するHTTPステータスコードを返す。
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
