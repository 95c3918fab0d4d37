package evidence

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Diomandeee/admissibility-kernel/errtax"
)

// verifyCacheKey is the cache key for a verified (or rejected) token:
// the token itself plus the fields it was checked against, so a
// replayed token with altered fields is never served a stale verdict.
type verifyCacheKey struct {
	token  string
	fields TokenFields
}

// TokenVerifier wraps VerifyToken with an LRU cache of verdicts, so
// that repeated verification of the same (token, fields) pair — the
// common case when a slice is re-admitted across pipeline stages —
// does not recompute HMAC-SHA256 every time.
type TokenVerifier struct {
	secret []byte

	mu    sync.RWMutex
	cache *lru.Cache[verifyCacheKey, bool]
}

// NewTokenVerifier returns a verifier backed by an LRU cache holding up
// to capacity verdicts. capacity <= 0 disables caching.
func NewTokenVerifier(secret []byte, capacity int) (*TokenVerifier, error) {
	if capacity <= 0 {
		return &TokenVerifier{secret: secret}, nil
	}
	c, err := lru.New[verifyCacheKey, bool](capacity)
	if err != nil {
		return nil, errtax.New(errtax.CodeInternalVerificationFailure, "failed to construct verifier cache").WithCause(err)
	}
	return &TokenVerifier{secret: secret, cache: c}, nil
}

// Verify reports whether token attests to fields. Cache hits and
// misses are both served behind the read lock; a miss promotes to the
// write lock only to populate the cache entry.
func (v *TokenVerifier) Verify(token string, fields TokenFields) (bool, error) {
	key := verifyCacheKey{token: token, fields: fields}

	if v.cache != nil {
		v.mu.RLock()
		if ok, hit := v.cache.Peek(key); hit {
			v.mu.RUnlock()
			return ok, nil
		}
		v.mu.RUnlock()
	}

	ok, err := VerifyToken(v.secret, token, fields)
	if err != nil {
		return false, err
	}

	if v.cache != nil {
		v.mu.Lock()
		v.cache.Add(key, ok)
		v.mu.Unlock()
	}

	return ok, nil
}

// Len returns the number of cached verdicts, or 0 if caching is
// disabled.
func (v *TokenVerifier) Len() int {
	if v.cache == nil {
		return 0
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cache.Len()
}

// Purge discards every cached verdict, used when a quarantine event
// invalidates tokens that may already be cached as valid.
func (v *TokenVerifier) Purge() {
	if v.cache == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cache.Purge()
}
