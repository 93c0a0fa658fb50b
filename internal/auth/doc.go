// Package auth はSupabaseが発行したアクセストークンの検証を提供する。
//
// トークンヘッダーの署名アルゴリズムに応じて鍵を選択する。
//   - HS256: 設定済みの共有シークレット
//   - RS256 / ES256: 認証基盤が公開する鍵セット（JWKS）から kid で選択した公開鍵
//
// それ以外のアルゴリズムは鍵の取得に進まずに拒否する。
// 署名に加えて有効期限・audience（"authenticated"）・issuer（{SUPABASE_URL}/auth/v1）を検証する。
package auth
