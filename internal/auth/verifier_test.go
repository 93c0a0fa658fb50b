package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nao1215/menum/pkg/apperr"
	"github.com/nao1215/menum/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret-key-for-unit-tests"
	testIssuer = "https://project.supabase.co/auth/v1"
)

// countingKeys は呼び出し回数を記録する KeySource。
type countingKeys struct {
	calls atomic.Int32
	key   any
	err   error
}

func (c *countingKeys) Key(_ context.Context, _ string) (any, error) {
	c.calls.Add(1)
	return c.key, c.err
}

// validClaims は検証に通るクレームを返す。
func validClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": sub,
		"aud": Audience,
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
}

func signHS(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func signWithKey(t *testing.T, method jwt.SigningMethod, kid string, claims jwt.MapClaims, key any) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	token.Header["kid"] = kid
	s, err := token.SignedString(key)
	require.NoError(t, err)
	return s
}

// requireUnauthorized はエラーが指定メッセージの401相当であることを検証する。
func requireUnauthorized(t *testing.T, err error, message string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	assert.Equal(t, message, apperr.MessageOf(err, ""))
}

func TestVerifier_HS256(t *testing.T) {
	t.Parallel()

	v := NewVerifier(VerifierConfig{Issuer: testIssuer, HS256Secret: testSecret}, nil, nil)

	t.Run("正しいトークンのクレームを返すこと", func(t *testing.T) {
		t.Parallel()

		claims, err := v.Verify(context.Background(), signHS(t, jwt.SigningMethodHS256, validClaims("user-123"), testSecret))
		require.NoError(t, err)

		sub, err := claims.GetSubject()
		require.NoError(t, err)
		assert.Equal(t, "user-123", sub)
	})

	t.Run("異なるシークレットで署名されたトークンは拒否されること", func(t *testing.T) {
		t.Parallel()

		_, err := v.Verify(context.Background(), signHS(t, jwt.SigningMethodHS256, validClaims("user-123"), "wrong-secret"))
		requireUnauthorized(t, err, msgInvalidToken)
	})

	t.Run("有効期限切れのトークンは専用メッセージで拒否されること", func(t *testing.T) {
		t.Parallel()

		claims := validClaims("user-123")
		claims["exp"] = time.Now().Add(-time.Minute).Unix()
		_, err := v.Verify(context.Background(), signHS(t, jwt.SigningMethodHS256, claims, testSecret))
		requireUnauthorized(t, err, msgTokenExpired)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("audienceが異なるトークンは拒否されること", func(t *testing.T) {
		t.Parallel()

		claims := validClaims("user-123")
		claims["aud"] = "anon"
		_, err := v.Verify(context.Background(), signHS(t, jwt.SigningMethodHS256, claims, testSecret))
		requireUnauthorized(t, err, msgInvalidToken)
	})

	t.Run("issuerが異なるトークンは拒否されること", func(t *testing.T) {
		t.Parallel()

		claims := validClaims("user-123")
		claims["iss"] = "https://other.supabase.co/auth/v1"
		_, err := v.Verify(context.Background(), signHS(t, jwt.SigningMethodHS256, claims, testSecret))
		requireUnauthorized(t, err, msgInvalidToken)
	})

	t.Run("JWT形式でない文字列は拒否されること", func(t *testing.T) {
		t.Parallel()

		_, err := v.Verify(context.Background(), "not-a-jwt")
		requireUnauthorized(t, err, msgInvalidToken)

		_, err = v.Verify(context.Background(), "!!!.e30.c2ln")
		requireUnauthorized(t, err, msgInvalidToken)
	})
}

func TestVerifier_UnsupportedAlgorithm(t *testing.T) {
	t.Parallel()

	keys := &countingKeys{}
	v := NewVerifier(VerifierConfig{Issuer: testIssuer, HS256Secret: testSecret}, keys, nil)

	tests := []struct {
		name  string
		token string
	}{
		{name: "HS384", token: signHS(t, jwt.SigningMethodHS384, validClaims("user-123"), testSecret)},
		{name: "HS512", token: signHS(t, jwt.SigningMethodHS512, validClaims("user-123"), testSecret)},
		{name: "PS256", token: rawToken(t, map[string]any{"alg": "PS256", "typ": "JWT"}, validClaims("user-123"))},
		{name: "ライブラリに登録されていないalg", token: rawToken(t, map[string]any{"alg": "XYZ", "typ": "JWT"}, validClaims("user-123"))},
		{name: "none", token: rawToken(t, map[string]any{"alg": "none", "typ": "JWT"}, validClaims("user-123"))},
		{name: "algが無いヘッダー", token: rawToken(t, map[string]any{"typ": "JWT"}, validClaims("user-123"))},
	}

	for _, tt := range tests {
		t.Run(tt.name+"は未対応として拒否されること", func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			requireUnauthorized(t, err, msgUnsupportedAlg)
			assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
		})
	}
	assert.Equal(t, int32(0), keys.calls.Load(), "未対応アルゴリズムでは鍵を取得しない")
}

// rawToken は任意のヘッダーを持つ署名なしのトークン文字列を組み立てる。
func rawToken(t *testing.T, header map[string]any, claims jwt.MapClaims) string {
	t.Helper()
	h, err := json.Marshal(header)
	require.NoError(t, err)
	c, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding.EncodeToString
	return enc(h) + "." + enc(c) + "." + enc([]byte("signature"))
}

func TestVerifier_MissingConfig(t *testing.T) {
	t.Parallel()

	t.Run("HS256でシークレットが無い場合は設定エラーになること", func(t *testing.T) {
		t.Parallel()

		v := NewVerifier(VerifierConfig{Issuer: testIssuer}, nil, nil)
		_, err := v.Verify(context.Background(), signHS(t, jwt.SigningMethodHS256, validClaims("u"), testSecret))
		requireUnauthorized(t, err, msgConfigError)
		assert.ErrorIs(t, err, ErrMissingConfig)
	})

	t.Run("SUPABASE_URLが無い場合は設定エラーになること", func(t *testing.T) {
		t.Parallel()

		key := newRSAKey(t)
		v := NewVerifier(VerifierConfig{HS256Secret: testSecret}, &countingKeys{}, nil)
		_, err := v.Verify(context.Background(), signWithKey(t, jwt.SigningMethodRS256, "k", validClaims("u"), key))
		requireUnauthorized(t, err, msgConfigError)
	})

	t.Run("鍵の取得元が無い場合は設定エラーになること", func(t *testing.T) {
		t.Parallel()

		key := newRSAKey(t)
		v := NewVerifier(VerifierConfig{Issuer: testIssuer}, nil, nil)
		_, err := v.Verify(context.Background(), signWithKey(t, jwt.SigningMethodRS256, "k", validClaims("u"), key))
		requireUnauthorized(t, err, msgConfigError)
	})
}

func TestVerifier_Asymmetric(t *testing.T) {
	t.Parallel()

	rsaKey := newRSAKey(t)
	ecKey := newECKey(t)

	var fetches atomic.Int32
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		if r.URL.Path != JWKSPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(testKeySet{Keys: []any{
			rsaJWK(t, "rsa-kid", &rsaKey.PublicKey),
			ecJWK(t, "ec-kid", &ecKey.PublicKey),
		}})
	}))
	t.Cleanup(jwksServer.Close)

	cache := NewKeySetCache(httpclient.New(jwksServer.URL), JWKSPath)
	v := NewVerifier(VerifierConfig{Issuer: testIssuer}, cache, nil)

	t.Run("RS256トークンを公開鍵セットで検証できること", func(t *testing.T) {
		claims, err := v.Verify(context.Background(), signWithKey(t, jwt.SigningMethodRS256, "rsa-kid", validClaims("rsa-user"), rsaKey))
		require.NoError(t, err)
		assert.Equal(t, "rsa-user", claims["sub"])
	})

	t.Run("ES256トークンを公開鍵セットで検証できること", func(t *testing.T) {
		claims, err := v.Verify(context.Background(), signWithKey(t, jwt.SigningMethodES256, "ec-kid", validClaims("ec-user"), ecKey))
		require.NoError(t, err)
		assert.Equal(t, "ec-user", claims["sub"])
	})

	t.Run("鍵セットは一度だけ取得されること", func(t *testing.T) {
		assert.Equal(t, int32(1), fetches.Load())
	})

	t.Run("別の鍵で署名されたトークンは拒否されること", func(t *testing.T) {
		other := newRSAKey(t)
		_, err := v.Verify(context.Background(), signWithKey(t, jwt.SigningMethodRS256, "rsa-kid", validClaims("u"), other))
		requireUnauthorized(t, err, msgInvalidToken)
	})

	t.Run("未知のkidは不正なトークンとして拒否されること", func(t *testing.T) {
		_, err := v.Verify(context.Background(), signWithKey(t, jwt.SigningMethodRS256, "unknown", validClaims("u"), rsaKey))
		requireUnauthorized(t, err, msgInvalidToken)
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}

func TestVerifier_KeySetUnavailable(t *testing.T) {
	t.Parallel()

	key := newRSAKey(t)
	keys := &countingKeys{err: errors.Join(ErrKeySetUnavailable, errors.New("dial tcp: connection refused"))}
	v := NewVerifier(VerifierConfig{Issuer: testIssuer}, keys, nil)

	_, err := v.Verify(context.Background(), signWithKey(t, jwt.SigningMethodRS256, "k", validClaims("u"), key))
	requireUnauthorized(t, err, msgServiceUnavailable)
	assert.Equal(t, int32(1), keys.calls.Load())
}

// 鍵の型がアルゴリズムと一致しない場合も不正なトークンとして扱う。
func TestVerifier_KeyTypeMismatch(t *testing.T) {
	t.Parallel()

	ecKey := newECKey(t)
	rsaKey := newRSAKey(t)
	keys := &countingKeys{key: &ecKey.PublicKey}
	v := NewVerifier(VerifierConfig{Issuer: testIssuer}, keys, nil)

	_, err := v.Verify(context.Background(), signWithKey(t, jwt.SigningMethodRS256, "k", validClaims("u"), rsaKey))
	requireUnauthorized(t, err, msgInvalidToken)
}
