package cache

import (
	"context"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/TreatyBoard/internal/domain/policy"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// Invalidation reasons used in logs and metrics.
const (
	ReasonManual = "manual"
	ReasonEvent  = "event"
	ReasonFile   = "file"
	ReasonReload = "reload"
)

// ReadThrough implements policy.Source over a Repository and a Store.
// Concurrent misses are collapsed into one repository load.  A load that was
// started before an invalidation never leaves its result in the store: the
// generation is checked before the write and again after it, and a write
// that raced an invalidation is deleted.
type ReadThrough struct {
	repo       policy.Repository
	store      Store
	key        string
	ttl        time.Duration
	sourceName string
	logger     logging.Logger
	metrics    *prometheus.ReportingMetrics

	group      singleflight.Group
	generation atomic.Uint64
}

var _ policy.Source = (*ReadThrough)(nil)

type Option func(*ReadThrough)

func WithKey(key string) Option {
	return func(r *ReadThrough) {
		if key != "" {
			r.key = key
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(r *ReadThrough) { r.ttl = ttl }
}

// WithSourceName labels source load metrics, e.g. "postgres" or "file".
func WithSourceName(name string) Option {
	return func(r *ReadThrough) {
		if name != "" {
			r.sourceName = name
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(r *ReadThrough) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithMetrics(m *prometheus.ReportingMetrics) Option {
	return func(r *ReadThrough) { r.metrics = m }
}

// NewReadThrough builds a read-through source.  A nil store means every call
// goes to the repository.
func NewReadThrough(repo policy.Repository, store Store, opts ...Option) *ReadThrough {
	r := &ReadThrough{
		repo:       repo,
		store:      store,
		key:        DefaultKey,
		sourceName: "repository",
		logger:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("cache")
	return r
}

// All returns the cached snapshot, loading it from the repository on a miss.
// Store failures degrade to a direct repository read.
func (r *ReadThrough) All(ctx context.Context) ([]policy.Record, error) {
	if r.store == nil {
		return r.load(ctx)
	}

	records, err := r.store.Get(ctx, r.key)
	switch {
	case err == nil:
		prometheus.RecordCacheAccess(r.metrics, r.store.Name(), true)
		return records, nil
	case IsMiss(err):
		prometheus.RecordCacheAccess(r.metrics, r.store.Name(), false)
	default:
		prometheus.RecordError(r.metrics, "cache", r.store.Name(), "warning")
		r.logger.Warn("cache read failed, reading through",
			logging.String("store", r.store.Name()), logging.String("key", r.key), logging.Err(err))
	}
	return r.load(ctx)
}

// Reload drops the snapshot and loads a fresh one.
func (r *ReadThrough) Reload(ctx context.Context) ([]policy.Record, error) {
	if err := r.Invalidate(ctx, ReasonReload); err != nil {
		r.logger.Warn("cache delete failed during reload", logging.Err(err))
	}
	return r.load(ctx)
}

// Invalidate drops the snapshot.  In-flight loads started before the call
// still return to their callers but are not stored.
func (r *ReadThrough) Invalidate(ctx context.Context, reason string) error {
	gen := r.generation.Add(1)
	prometheus.RecordCacheInvalidation(r.metrics, reason)
	r.logger.Info("policy cache invalidated", logging.String("reason", reason), logging.Int64("generation", int64(gen)))
	if r.store == nil {
		return nil
	}
	if err := r.store.Delete(ctx, r.key); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheUnavailable, "delete cached policies")
	}
	return nil
}

func (r *ReadThrough) load(ctx context.Context) ([]policy.Record, error) {
	gen := r.generation.Load()
	v, err, shared := r.group.Do(r.key+"#"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		// Joined callers must not inherit the first caller's cancellation.
		ctx := context.WithoutCancel(ctx)
		start := time.Now()
		records, err := r.repo.FindAll(ctx)
		prometheus.RecordSourceLoad(r.metrics, r.sourceName, len(records), time.Since(start), err)
		if err != nil {
			r.logger.Error("policy source load failed", logging.String("source", r.sourceName), logging.Err(err))
			return nil, sourceError(err)
		}
		r.logger.Debug("policy source loaded",
			logging.String("source", r.sourceName), logging.Int("records", len(records)), logging.Duration("took", time.Since(start)))

		r.storeSnapshot(ctx, gen, records)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	records := v.([]policy.Record)
	if shared {
		records = slices.Clone(records)
	}
	return records, nil
}

// storeSnapshot writes records loaded at generation gen.  An Invalidate that
// lands while Set is in flight bumps the generation, so the entry is removed
// again once Set returns.
func (r *ReadThrough) storeSnapshot(ctx context.Context, gen uint64, records []policy.Record) {
	if r.store == nil || r.generation.Load() != gen {
		return
	}
	if err := r.store.Set(ctx, r.key, records, r.ttl); err != nil {
		prometheus.RecordError(r.metrics, "cache", r.store.Name(), "warning")
		r.logger.Warn("cache write failed", logging.String("store", r.store.Name()), logging.Err(err))
		return
	}
	if r.generation.Load() == gen {
		return
	}
	if err := r.store.Delete(ctx, r.key); err != nil {
		prometheus.RecordError(r.metrics, "cache", r.store.Name(), "warning")
		r.logger.Warn("stale cache entry not removed", logging.String("store", r.store.Name()), logging.Err(err))
	}
}

// sourceError keeps AppErrors raised by the repository and tags everything
// else as an unavailable source.
func sourceError(err error) error {
	if errors.GetCode(err) != errors.CodeUnknown {
		return err
	}
	return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "load policy records")
}
