package redis

import (
	"context"
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/TreatyBoard/internal/domain/policy"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/cache"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// Store is a cache.Store that keeps policy snapshots as JSON documents.
type Store struct {
	client     *Client
	logger     logging.Logger
	prefix     string
	defaultTTL time.Duration
	jitter     float64
}

var _ cache.Store = (*Store)(nil)

type StoreOption func(*Store)

func WithPrefix(prefix string) StoreOption {
	return func(s *Store) { s.prefix = prefix }
}

func WithDefaultTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.defaultTTL = ttl }
}

// WithJitter spreads expiries by +/- fraction of the TTL so replicas that
// loaded together do not all miss together.  Zero disables it.
func WithJitter(fraction float64) StoreOption {
	return func(s *Store) {
		if fraction >= 0 && fraction < 1 {
			s.jitter = fraction
		}
	}
}

func NewStore(client *Client, log logging.Logger, opts ...StoreOption) *Store {
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &Store{
		client:     client,
		logger:     log.Named("redis-store"),
		prefix:     "treatyboard:",
		defaultTTL: 5 * time.Minute,
		jitter:     0.1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Name() string { return "redis" }

func (s *Store) fullKey(key string) string {
	return s.prefix + key
}

func (s *Store) jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || s.jitter == 0 {
		return ttl
	}
	delta := float64(ttl) * s.jitter * (rand.Float64()*2 - 1)
	return ttl + time.Duration(delta)
}

func (s *Store) Get(ctx context.Context, key string) ([]policy.Record, error) {
	data, err := s.client.Get(ctx, s.fullKey(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, cache.ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheUnavailable, "redis get")
	}

	var records []policy.Record
	if err := json.Unmarshal(data, &records); err != nil {
		// A snapshot written by an incompatible build is treated as absent.
		s.logger.Warn("discarding undecodable snapshot", logging.String("key", key), logging.Err(err))
		return nil, cache.ErrCacheMiss
	}
	return records, nil
}

func (s *Store) Set(ctx context.Context, key string, records []policy.Record, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	data, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode policy snapshot")
	}
	if err := s.client.Set(ctx, s.fullKey(key), data, s.jitterTTL(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheUnavailable, "redis set")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.fullKey(key)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheUnavailable, "redis del")
	}
	return nil
}
