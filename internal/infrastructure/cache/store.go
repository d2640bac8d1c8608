// Package cache holds the read-through policy snapshot used by the reporting
// service and the stores it can sit on.
package cache

import (
	"context"
	"time"

	"github.com/turtacn/TreatyBoard/internal/domain/policy"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// DefaultKey is the key the policy book snapshot is stored under.
const DefaultKey = "policies:all"

// ErrCacheMiss is returned by Store.Get when the key holds nothing.
var ErrCacheMiss = errors.New(errors.ErrCodeCacheMiss, "cache miss")

// Store keeps policy snapshots by key.  Implementations must return copies so
// callers cannot mutate cached data.
type Store interface {
	Get(ctx context.Context, key string) ([]policy.Record, error)
	Set(ctx context.Context, key string, records []policy.Record, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Name() string
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	return errors.IsCode(err, errors.ErrCodeCacheMiss)
}
