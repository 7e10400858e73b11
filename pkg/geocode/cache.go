package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// CachedClient memoizes another Client's results, non-matches included,
// for a fixed TTL. Errors are not cached. Safe for concurrent use.
type CachedClient struct {
	inner Client
	store *gocache.Cache
}

// NewCachedClient wraps inner with a TTL cache. A non-positive ttl keeps
// entries for the life of the process.
func NewCachedClient(inner Client, ttl time.Duration) *CachedClient {
	cleanup := ttl * 2
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}
	return &CachedClient{inner: inner, store: gocache.New(ttl, cleanup)}
}

// Geocode returns the cached result for addr or asks the inner client.
func (c *CachedClient) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	key := cacheKey(addr)
	if v, ok := c.store.Get(key); ok {
		r := v.(Result)
		zap.L().Debug("geocode cache hit", zap.String("key", key[:12]), zap.Bool("matched", r.Matched))
		return &r, nil
	}

	r, err := c.inner.Geocode(ctx, addr)
	if err != nil {
		return nil, err
	}
	c.store.SetDefault(key, *r)
	return r, nil
}

// Len returns the number of stored entries, including expired ones the
// janitor has not evicted yet.
func (c *CachedClient) Len() int {
	return c.store.ItemCount()
}

// cacheKey returns SHA-256 hex of the normalized address.
func cacheKey(addr AddressInput) string {
	normalized := fmt.Sprintf("%s|%s|%s|%s",
		strings.ToLower(strings.TrimSpace(addr.Street)),
		strings.ToLower(strings.TrimSpace(addr.City)),
		strings.ToLower(strings.TrimSpace(addr.State)),
		strings.TrimSpace(addr.ZipCode),
	)
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}
