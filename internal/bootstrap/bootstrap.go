// Package bootstrap assembles the reporting service from configuration.  The
// API server and the CLI share it so both see the same source, cache and
// visibility table.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/turtacn/TreatyBoard/internal/application/reporting"
	"github.com/turtacn/TreatyBoard/internal/config"
	"github.com/turtacn/TreatyBoard/internal/domain/access"
	"github.com/turtacn/TreatyBoard/internal/domain/policy"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/cache"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/database/postgres"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/database/redis"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/storage/localfile"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/storage/minio"
)

var _ kafka.Invalidator = (*cache.ReadThrough)(nil)

// Check is a named dependency probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Options tune what New starts.
type Options struct {
	// Collector receives the reporting metrics.  Nil disables them.
	Collector prometheus.MetricsCollector

	// Listen enables the Kafka invalidation listener and, for file sources
	// with source.watch set, the file watcher.  Both run once Start is called.
	Listen bool
}

// Infrastructure owns every client behind the reporting service.
type Infrastructure struct {
	Service *reporting.Service
	Source  *cache.ReadThrough
	Metrics *prometheus.ReportingMetrics

	sourceName string
	logger     logging.Logger

	pg        *postgres.Connection
	redis     *redis.Client
	minio     *minio.MinIOClient
	publisher *kafka.Publisher
	listener  *kafka.InvalidationListener
	watcher   *localfile.Watcher
	cancel    context.CancelFunc
}

// New connects the configured source, cache store, event bus and archive
// and builds the reporting service over them.  On error every client opened
// so far is closed.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts Options) (*Infrastructure, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	infra := &Infrastructure{logger: logger.Named("bootstrap")}
	if opts.Collector != nil {
		infra.Metrics = prometheus.NewReportingMetrics(opts.Collector)
	}

	repo, err := infra.openRepository(ctx, cfg, logger)
	if err != nil {
		infra.Close()
		return nil, err
	}
	store, err := infra.openStore(cfg, logger)
	if err != nil {
		infra.Close()
		return nil, err
	}

	infra.Source = cache.NewReadThrough(repo, store,
		cache.WithKey(cfg.Cache.Key),
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithSourceName(infra.sourceName),
		cache.WithLogger(logger),
		cache.WithMetrics(infra.Metrics),
	)

	svcOpts := []reporting.Option{
		reporting.WithAccessPolicy(VisibilityPolicy(cfg)),
		reporting.WithLogger(logger),
		reporting.WithMetrics(infra.Metrics),
		reporting.WithCurrency(cfg.Reporting.Currency),
		reporting.WithSourceName(infra.sourceName),
	}

	if cfg.Kafka.Enabled {
		pub, err := kafka.NewPublisher(cfg.Kafka.Producer(), logger, kafka.WithPublisherMetrics(infra.Metrics))
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		infra.publisher = pub
		svcOpts = append(svcOpts, reporting.WithPublisher(pub))

		if opts.Listen {
			l, err := kafka.NewInvalidationListener(cfg.Kafka.Consumer(), infra.Source, logger,
				kafka.WithListenerMetrics(infra.Metrics))
			if err != nil {
				infra.Close()
				return nil, fmt.Errorf("kafka listener: %w", err)
			}
			infra.listener = l
		}
	}

	if cfg.MinIO.Enabled {
		mc, err := minio.NewMinIOClient(&cfg.MinIO.MinIOConfig, logger)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("minio: %w", err)
		}
		infra.minio = mc
		svcOpts = append(svcOpts, reporting.WithArchiver(
			minio.NewReportArchive(mc, logger, minio.WithArchiveMetrics(infra.Metrics))))
	}

	if opts.Listen && cfg.Source.Kind == config.SourceFile && cfg.Source.Watch {
		src := infra.Source
		infra.watcher = localfile.NewWatcher(cfg.Source.File, func(ctx context.Context) {
			if err := src.Invalidate(ctx, cache.ReasonFile); err != nil {
				infra.logger.Warn("policy cache invalidation failed", logging.Err(err))
			}
		}, logger)
		if cfg.Source.Debounce > 0 {
			infra.watcher.WithDebounce(cfg.Source.Debounce)
		}
	}

	infra.Service = reporting.NewService(infra.Source, svcOpts...)
	infra.logger.Info("reporting infrastructure initialized",
		logging.String("source", infra.sourceName),
		logging.String("cache", cfg.Cache.Backend),
		logging.Bool("kafka", cfg.Kafka.Enabled),
		logging.Bool("archive", cfg.MinIO.Enabled))
	return infra, nil
}

func (i *Infrastructure) openRepository(ctx context.Context, cfg *config.Config, logger logging.Logger) (policy.Repository, error) {
	switch cfg.Source.Kind {
	case config.SourceFile:
		i.sourceName = config.SourceFile
		return localfile.NewRepository(cfg.Source.File, logger), nil
	default:
		conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		i.pg = conn
		i.sourceName = config.SourcePostgres
		return repositories.NewPolicyRepository(conn.Pool(), cfg.Database.Table, logger), nil
	}
}

func (i *Infrastructure) openStore(cfg *config.Config, logger logging.Logger) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		client, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		i.redis = client
		return redis.NewStore(client, logger, redis.WithDefaultTTL(cfg.Cache.TTL)), nil
	default:
		return cache.NewMemoryStore(cfg.Cache.TTL, cfg.Cache.CleanupInterval), nil
	}
}

// VisibilityPolicy builds the role to class table from configuration.
func VisibilityPolicy(cfg *config.Config) *access.Policy {
	return access.PolicyFromStrings(cfg.Visibility.RoleClasses)
}

// ApplyRuntime applies the settings of a reloaded config that can change
// without a restart.
func (i *Infrastructure) ApplyRuntime(cfg *config.Config) {
	i.Service.SetAccessPolicy(VisibilityPolicy(cfg))
}

// SourceName is "postgres" or "file".
func (i *Infrastructure) SourceName() string { return i.sourceName }

// Start launches the background listeners.  They stop on Close or when ctx
// is cancelled.
func (i *Infrastructure) Start(ctx context.Context) error {
	ctx, i.cancel = context.WithCancel(ctx)
	if i.listener != nil {
		if err := i.listener.Start(ctx); err != nil {
			return fmt.Errorf("kafka listener: %w", err)
		}
	}
	if i.watcher != nil {
		go func() {
			if err := i.watcher.Run(ctx); err != nil {
				i.logger.Error("policy file watcher stopped", logging.Err(err))
			}
		}()
	}
	return nil
}

// Checks lists readiness probes for the connected dependencies.
func (i *Infrastructure) Checks() []Check {
	var checks []Check
	if i.pg != nil {
		checks = append(checks, Check{Name: "postgres", Probe: i.pg.HealthCheck})
	}
	if i.redis != nil {
		checks = append(checks, Check{Name: "redis", Probe: i.redis.Ping})
	}
	if i.minio != nil {
		mc := i.minio
		checks = append(checks, Check{Name: "minio", Probe: func(ctx context.Context) error {
			_, err := mc.HealthCheck(ctx)
			return err
		}})
	}
	return checks
}

// Close stops the listeners and releases every client.  It is safe on a
// partially built Infrastructure.
func (i *Infrastructure) Close() {
	if i.cancel != nil {
		i.cancel()
	}
	if i.listener != nil {
		if err := i.listener.Close(); err != nil {
			i.logger.Warn("kafka listener close failed", logging.Err(err))
		}
	}
	if i.publisher != nil {
		if err := i.publisher.Close(); err != nil {
			i.logger.Warn("kafka publisher close failed", logging.Err(err))
		}
	}
	if i.minio != nil {
		if err := i.minio.Close(); err != nil {
			i.logger.Warn("minio close failed", logging.Err(err))
		}
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			i.logger.Warn("redis close failed", logging.Err(err))
		}
	}
	if i.pg != nil {
		i.pg.Close()
	}
}
