package cache

import (
	"context"
	"slices"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/turtacn/TreatyBoard/internal/domain/policy"
)

// MemoryStore is an in-process Store backed by go-cache.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a memory store.  A ttl of zero passed to Set means
// defaultTTL; cleanupInterval controls how often expired entries are purged.
func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) *MemoryStore {
	if defaultTTL <= 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &MemoryStore{cache: gocache.New(defaultTTL, cleanupInterval)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]policy.Record, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return slices.Clone(v.([]policy.Record)), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, records []policy.Record, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	s.cache.Set(key, slices.Clone(records), ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Flush removes every entry.
func (s *MemoryStore) Flush() {
	s.cache.Flush()
}

func (s *MemoryStore) Name() string { return "memory" }
