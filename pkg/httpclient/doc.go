// Package httpclient は外部サービスとのHTTP通信を行うクライアントを提供する。
//
// 認証基盤からの公開鍵セット（JWKS）の取得や、オブジェクトストレージへの
// 画像バイト列の送信など、外部サービスとの通信パターンを統一する。
package httpclient
