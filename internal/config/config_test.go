package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TreatyBoard/internal/config"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

func validConfig() *config.Config {
	return config.NewDefaultConfig()
}

func TestConfig_Validate_Defaults(t *testing.T) {
	t.Parallel()
	require.NoError(t, validConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantKey string
	}{
		{"port out of range", func(c *config.Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad mode", func(c *config.Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"bad source kind", func(c *config.Config) { c.Source.Kind = "s3" }, "source.kind"},
		{"file source without path", func(c *config.Config) { c.Source.Kind = config.SourceFile }, "source.file"},
		{"missing db host", func(c *config.Config) { c.Database.Host = "" }, "database.host"},
		{"bad db port", func(c *config.Config) { c.Database.Port = 0 }, "database.port"},
		{"missing db name", func(c *config.Config) { c.Database.Database = "" }, "database.database"},
		{"zero max conns", func(c *config.Config) { c.Database.MaxConns = 0 }, "database.max_conns"},
		{"bad cache backend", func(c *config.Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"redis without addr", func(c *config.Config) {
			c.Cache.Backend = config.CacheRedis
			c.Redis.Addr = ""
		}, "redis.addr"},
		{"negative ttl", func(c *config.Config) { c.Cache.TTL = -1 }, "cache.ttl"},
		{"kafka without brokers", func(c *config.Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}, "kafka.brokers"},
		{"kafka without group", func(c *config.Config) {
			c.Kafka.Enabled = true
			c.Kafka.GroupID = ""
		}, "kafka.group_id"},
		{"minio without endpoint", func(c *config.Config) { c.MinIO.Enabled = true }, "minio.endpoint"},
		{"bad currency", func(c *config.Config) { c.Reporting.Currency = "dollars" }, "reporting.currency"},
		{"bad log level", func(c *config.Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"metrics without namespace", func(c *config.Config) {
			c.Metrics.Enabled = true
			c.Metrics.Namespace = ""
		}, "metrics.namespace"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantKey)
			assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
		})
	}
}

func TestConfig_Validate_FileSourceSkipsDatabase(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Source.Kind = config.SourceFile
	cfg.Source.File = "/data/policies.json"
	cfg.Database.Host = ""
	assert.NoError(t, cfg.Validate())
}

func TestKafkaConfig_Derived(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Kafka.Source = "treatyboard-api"

	p := cfg.Kafka.Producer()
	assert.Equal(t, cfg.Kafka.Brokers, p.Brokers)
	assert.Equal(t, "policy.source.changed", p.Topic)
	assert.Equal(t, "treatyboard-api", p.Source)

	c := cfg.Kafka.Consumer()
	assert.Equal(t, config.DefaultKafkaGroupID, c.GroupID)
	assert.Equal(t, "latest", c.AutoOffsetReset)
}
