package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
)

// JWKSPath は認証基盤が公開鍵セットを公開しているパス。
const JWKSPath = "/auth/v1/.well-known/jwks.json"

// minRefreshInterval は未知のkidによる鍵セット再取得の最小間隔。
// 任意のkidを付けたトークンで取得要求を連発されないようにする。
const minRefreshInterval = time.Minute

var (
	// ErrKeySetUnavailable は鍵セットの取得に失敗したことを表す。
	ErrKeySetUnavailable = errors.New("key set unavailable")
	// ErrKeyNotFound は鍵セットにkidに一致する鍵が存在しないことを表す。
	ErrKeyNotFound = errors.New("signing key not found")
)

// JSONFetcher はJSONを取得するクライアント。httpclient.Client が実装する。
type JSONFetcher interface {
	GetJSON(ctx context.Context, path string, result any) error
}

// rawKeySet はJWKSドキュメント全体。解釈できない鍵があっても他の鍵を使えるよう、
// 各エントリは個別にデコードする。
type rawKeySet struct {
	Keys []json.RawMessage `json:"keys"`
}

// KeySetCache は遠隔の公開鍵セットを保持するキャッシュ。
// 最初の非対称トークンの検証時に取得し、以後はプロセス内で再利用する。
// 鍵のローテーションには Invalidate を呼ぶか、未知のkidによる再取得で追従する。
type KeySetCache struct {
	// fetcher は鍵セットの取得に使うクライアント。
	fetcher JSONFetcher
	// path は鍵セットのパス。
	path string
	// now は現在時刻を返す関数。テストで差し替える。
	now func() time.Time

	mu        sync.Mutex
	keys      map[string]any
	loaded    bool
	lastFetch time.Time
}

// NewKeySetCache は新しい鍵セットキャッシュを生成する。鍵はまだ取得しない。
func NewKeySetCache(fetcher JSONFetcher, path string) *KeySetCache {
	return &KeySetCache{
		fetcher: fetcher,
		path:    path,
		now:     time.Now,
	}
}

// Key はkidに対応する公開鍵（*rsa.PublicKey または *ecdsa.PublicKey）を返す。
func (c *KeySetCache) Key(ctx context.Context, kid string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		if err := c.refreshLocked(ctx); err != nil {
			return nil, err
		}
	}

	if key, ok := c.lookupLocked(kid); ok {
		return key, nil
	}

	// 鍵がローテーションされた可能性があるため、間隔を空けて一度だけ再取得する
	if c.now().Sub(c.lastFetch) >= minRefreshInterval {
		if err := c.refreshLocked(ctx); err != nil {
			return nil, err
		}
		if key, ok := c.lookupLocked(kid); ok {
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: kid=%q", ErrKeyNotFound, kid)
}

// Invalidate はキャッシュを破棄し、次回の Key で鍵セットを再取得させる。
func (c *KeySetCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = nil
	c.loaded = false
}

// lookupLocked はkidで鍵を探す。kidが空で鍵が1つだけの場合はその鍵を返す。
func (c *KeySetCache) lookupLocked(kid string) (any, bool) {
	if kid == "" && len(c.keys) == 1 {
		for _, k := range c.keys {
			return k, true
		}
	}
	key, ok := c.keys[kid]
	return key, ok
}

// refreshLocked は鍵セットを取得してキャッシュを置き換える。c.mu を保持して呼ぶこと。
func (c *KeySetCache) refreshLocked(ctx context.Context) error {
	c.lastFetch = c.now()

	var set rawKeySet
	if err := c.fetcher.GetJSON(ctx, c.path, &set); err != nil {
		return fmt.Errorf("%w: %w", ErrKeySetUnavailable, err)
	}

	keys := make(map[string]any, len(set.Keys))
	for _, raw := range set.Keys {
		kid, pub, err := parseJWK(raw)
		if err != nil {
			// 未対応または不正な鍵は読み飛ばす
			continue
		}
		keys[kid] = pub
	}

	c.keys = keys
	c.loaded = true
	return nil
}

// parseJWK はJWKエントリを検証用の公開鍵に変換し、kidとともに返す。
// 署名用のRSA鍵とP-256のEC鍵のみを受け付ける。
func parseJWK(raw json.RawMessage) (string, any, error) {
	var k jose.JSONWebKey
	if err := json.Unmarshal(raw, &k); err != nil {
		return "", nil, fmt.Errorf("JWKのデコードに失敗: %w", err)
	}
	if k.Use != "" && k.Use != "sig" {
		return "", nil, fmt.Errorf("署名用ではない鍵です: use=%s", k.Use)
	}
	if !k.Valid() || !k.IsPublic() {
		return "", nil, errors.New("公開鍵として不正なJWKです")
	}

	switch pub := k.Key.(type) {
	case *rsa.PublicKey:
		return k.KeyID, pub, nil
	case *ecdsa.PublicKey:
		if pub.Curve != elliptic.P256() {
			return "", nil, fmt.Errorf("未対応の曲線です: %s", pub.Curve.Params().Name)
		}
		return k.KeyID, pub, nil
	default:
		return "", nil, fmt.Errorf("未対応の鍵種別です: %T", k.Key)
	}
}
