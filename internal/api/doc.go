// Package api はQRメニューAPIのHTTPサーバーを提供する。
//
// ヘルスチェック以外のエンドポイントはすべてBearerトークンによる認証を必要とする。
// エラーはすべて middleware.RespondError を通して {"detail", "error"} 形式で返す。
package api
