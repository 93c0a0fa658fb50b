package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nao1215/menum/pkg/apperr"
	"github.com/nao1215/menum/pkg/logging"
)

// Audience はトークンのaudクレームとして要求する値。
const Audience = "authenticated"

// 401レスポンスで返す公開メッセージ。内部の詳細は含めない。
const (
	msgTokenExpired       = "Token has expired"
	msgInvalidToken       = "Invalid token"
	msgUnsupportedAlg     = "Unsupported JWT algorithm"
	msgConfigError        = "Authentication configuration error"
	msgServiceUnavailable = "Authentication service unavailable"
)

var (
	// ErrUnsupportedAlgorithm はHS256・RS256・ES256以外のアルゴリズムを表す。
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	// ErrMissingConfig は検証に必要な設定（URLやシークレット）が欠けていることを表す。
	ErrMissingConfig = errors.New("authentication is not configured")
)

// KeySource はkidから公開鍵を解決する。KeySetCache が実装する。
type KeySource interface {
	Key(ctx context.Context, kid string) (any, error)
}

// VerifierConfig はトークン検証の設定。
type VerifierConfig struct {
	// Issuer は期待するissクレーム（{SUPABASE_URL}/auth/v1）。空の場合は設定不足として扱う。
	Issuer string
	// HS256Secret はHS256検証用の共有シークレット。
	HS256Secret string
}

// Verifier はアクセストークンを検証し、クレームを返す。
type Verifier struct {
	// issuer は期待するissクレーム。
	issuer string
	// secret はHS256検証用の共有シークレット。
	secret []byte
	// keys は非対称アルゴリズム用の公開鍵の取得元。
	keys KeySource
	// logger は検証失敗を記録するロガー。
	logger *slog.Logger
}

// NewVerifier は新しいトークン検証器を生成する。
// keysがnilの場合、RS256/ES256のトークンは設定不足として拒否する。
func NewVerifier(cfg VerifierConfig, keys KeySource, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Verifier{
		issuer: cfg.Issuer,
		secret: []byte(cfg.HS256Secret),
		keys:   keys,
		logger: logger,
	}
}

// Verify はトークンを検証し、デコードしたクレームを返す。
// 失敗時は常に apperr.KindUnauthorized のエラーを返す。原因は errors.Is で判別できる。
func (v *Verifier) Verify(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	alg, err := headerAlgorithm(tokenString)
	if err != nil {
		v.logger.WarnContext(ctx, "JWT検証に失敗: トークン形式が不正", "error", err)
		return nil, apperr.Wrap(apperr.KindUnauthorized, msgInvalidToken, err)
	}

	keyFunc, err := v.keyFuncFor(ctx, alg)
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, keyFunc,
		jwt.WithValidMethods([]string{alg}),
		jwt.WithAudience(Audience),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		return nil, v.classify(ctx, err)
	}
	return claims, nil
}

// headerAlgorithm は署名を検証せずにヘッダーのalgを読み出す。
// algが無い場合は空文字列を返し、未対応のアルゴリズムとして扱われる。
func headerAlgorithm(tokenString string) (string, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return "", errors.New("token contains an invalid number of segments")
	}
	raw, err := jwt.NewParser().DecodeSegment(parts[0])
	if err != nil {
		return "", fmt.Errorf("could not decode header: %w", err)
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return "", fmt.Errorf("could not parse header: %w", err)
	}
	return header.Alg, nil
}

// keyFuncFor はアルゴリズムに応じた鍵解決関数を返す。
// 未対応のアルゴリズムは鍵の取得に進まず拒否する。
func (v *Verifier) keyFuncFor(ctx context.Context, alg string) (jwt.Keyfunc, error) {
	switch alg {
	case jwt.SigningMethodHS256.Alg():
		if v.issuer == "" || len(v.secret) == 0 {
			v.logger.ErrorContext(ctx, "JWT検証の設定エラー: SUPABASE_URL と SUPABASE_JWT_SECRET（または SUPABASE_ANON_KEY）が必要です")
			return nil, apperr.Wrap(apperr.KindUnauthorized, msgConfigError, ErrMissingConfig)
		}
		return func(_ *jwt.Token) (any, error) {
			return v.secret, nil
		}, nil
	case jwt.SigningMethodRS256.Alg(), jwt.SigningMethodES256.Alg():
		if v.issuer == "" || v.keys == nil {
			v.logger.ErrorContext(ctx, "JWT検証の設定エラー: SUPABASE_URL が必要です")
			return nil, apperr.Wrap(apperr.KindUnauthorized, msgConfigError, ErrMissingConfig)
		}
		return func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			return v.keys.Key(ctx, kid)
		}, nil
	default:
		v.logger.WarnContext(ctx, "未対応のJWTアルゴリズム", "alg", alg)
		return nil, apperr.Wrap(apperr.KindUnauthorized, msgUnsupportedAlg, ErrUnsupportedAlgorithm)
	}
}

// classify は検証エラーを公開メッセージ付きのエラーに変換する。
func (v *Verifier) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrKeySetUnavailable):
		v.logger.ErrorContext(ctx, "JWKSの取得に失敗", "error", err)
		return apperr.Wrap(apperr.KindUnauthorized, msgServiceUnavailable, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		v.logger.WarnContext(ctx, "JWT検証に失敗: 有効期限切れ")
		return apperr.Wrap(apperr.KindUnauthorized, msgTokenExpired, err)
	default:
		v.logger.WarnContext(ctx, "JWT検証に失敗: 不正なトークン", "error", err)
		return apperr.Wrap(apperr.KindUnauthorized, msgInvalidToken, err)
	}
}
