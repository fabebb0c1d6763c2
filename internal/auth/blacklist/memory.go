package blacklist

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryBlacklist keeps revoked token hashes in process memory with per-entry
// expiry. Suitable for single-instance deployments and as a fallback when
// Redis is not configured.
type MemoryBlacklist struct {
	cache *ttlcache.Cache[string, string]
}

func NewMemoryBlacklist() *MemoryBlacklist {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, string](),
	)

	// Start the cleanup process
	go cache.Start()

	return &MemoryBlacklist{cache: cache}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, tokenHash, kind string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired, nothing to blacklist.
		return nil
	}
	b.cache.Set(tokenHash, kind, ttl)
	return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, tokenHash string) (bool, error) {
	return b.cache.Get(tokenHash) != nil, nil
}

// Close stops the cleanup goroutine.
func (b *MemoryBlacklist) Close() error {
	b.cache.Stop()
	return nil
}
