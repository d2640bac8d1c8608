// Package config defines the TreatyBoard configuration tree.  Infrastructure
// sections reuse the collaborators' own config structs so there is a single
// set of mapstructure keys per component.
package config

import (
	"time"

	"github.com/turtacn/TreatyBoard/internal/infrastructure/database/postgres"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/database/redis"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/storage/minio"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// Source kinds
const (
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// CORSOrigins enables CORS for browser dashboards on other origins.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// SourceConfig selects where the policy book is read from.
type SourceConfig struct {
	Kind     string        `mapstructure:"kind"` // "postgres" | "file"
	File     string        `mapstructure:"file"`
	Watch    bool          `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// CacheConfig configures the read-through cache in front of the source.
type CacheConfig struct {
	Backend         string        `mapstructure:"backend"` // "memory" | "redis"
	Key             string        `mapstructure:"key"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// KafkaConfig configures source change events.  One section drives both
// the publisher and the invalidation listener.
type KafkaConfig struct {
	Enabled         bool                 `mapstructure:"enabled"`
	Brokers         []string             `mapstructure:"brokers"`
	Topic           string               `mapstructure:"topic"`
	GroupID         string               `mapstructure:"group_id"`
	AutoOffsetReset string               `mapstructure:"auto_offset_reset"`
	Source          string               `mapstructure:"source"`
	Security        kafka.SecurityConfig `mapstructure:"security"`
}

// Producer derives the publisher settings.
func (k KafkaConfig) Producer() kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:  k.Brokers,
		Topic:    k.Topic,
		Source:   k.Source,
		Security: k.Security,
	}
}

// Consumer derives the listener settings.
func (k KafkaConfig) Consumer() kafka.ConsumerConfig {
	return kafka.ConsumerConfig{
		Brokers:         k.Brokers,
		GroupID:         k.GroupID,
		Topic:           k.Topic,
		AutoOffsetReset: k.AutoOffsetReset,
		Security:        k.Security,
	}
}

// ArchiveConfig enables renewal snapshot archiving.
type ArchiveConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	minio.MinIOConfig `mapstructure:",squash"`
}

// VisibilityConfig overrides the built-in role to class table.  Keys are
// role names, values class tokens.
type VisibilityConfig struct {
	RoleClasses map[string][]string `mapstructure:"role_classes"`
}

// ReportingConfig holds presentation settings.
type ReportingConfig struct {
	Currency string `mapstructure:"currency"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled                    bool   `mapstructure:"enabled"`
	Path                       string `mapstructure:"path"`
	prometheus.CollectorConfig `mapstructure:",squash"`
}

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig            `mapstructure:"server"`
	Source     SourceConfig            `mapstructure:"source"`
	Database   postgres.PostgresConfig `mapstructure:"database"`
	Redis      redis.RedisConfig       `mapstructure:"redis"`
	Cache      CacheConfig             `mapstructure:"cache"`
	Kafka      KafkaConfig             `mapstructure:"kafka"`
	MinIO      ArchiveConfig           `mapstructure:"minio"`
	Visibility VisibilityConfig        `mapstructure:"visibility"`
	Reporting  ReportingConfig         `mapstructure:"reporting"`
	Log        logging.LogConfig       `mapstructure:"log"`
	Metrics    MetricsConfig           `mapstructure:"metrics"`
}

func invalid(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeValidation, "config: "+format, args...)
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return invalid("server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Source
	switch c.Source.Kind {
	case SourcePostgres:
		if c.Database.Host == "" {
			return invalid("database.host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return invalid("database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.Database == "" {
			return invalid("database.database is required")
		}
		if c.Database.MaxConns < 1 {
			return invalid("database.max_conns must be >= 1, got %d", c.Database.MaxConns)
		}
	case SourceFile:
		if c.Source.File == "" {
			return invalid("source.file is required when source.kind is file")
		}
	default:
		return invalid("source.kind %q is invalid; expected postgres|file", c.Source.Kind)
	}

	// Cache
	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Redis.Addr == "" && len(c.Redis.SentinelAddrs) == 0 && len(c.Redis.ClusterAddrs) == 0 {
			return invalid("redis.addr is required when cache.backend is redis")
		}
		if c.Redis.DB < 0 {
			return invalid("redis.db must be >= 0, got %d", c.Redis.DB)
		}
	default:
		return invalid("cache.backend %q is invalid; expected memory|redis", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return invalid("cache.ttl must not be negative")
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return invalid("kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return invalid("kafka.group_id is required")
		}
	}

	// MinIO
	if c.MinIO.Enabled && c.MinIO.Endpoint == "" {
		return invalid("minio.endpoint is required when minio.enabled is true")
	}

	// Reporting
	if len(c.Reporting.Currency) != 3 {
		return invalid("reporting.currency %q must be an ISO 4217 code", c.Reporting.Currency)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return invalid("metrics.namespace is required when metrics are enabled")
	}

	return nil
}
