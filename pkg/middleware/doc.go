// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// Bearerトークンの検証、リクエストID付与、アクセスログ、パニックリカバリ、
// CORS設定、およびエラーレスポンスの書き出しを含む。
package middleware
