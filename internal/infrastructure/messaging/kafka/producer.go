package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

var (
	ErrPublisherClosed = errors.New(errors.ErrCodeEventPublishFailed, "publisher closed")
)

// ProducerConfig holds configuration for the Publisher.
type ProducerConfig struct {
	Brokers          []string       `mapstructure:"brokers"`
	Topic            string         `mapstructure:"topic"`
	Acks             string         `mapstructure:"acks"`
	MaxRetries       int            `mapstructure:"max_retries"`
	BatchTimeout     time.Duration  `mapstructure:"batch_timeout"`
	MaxMessageBytes  int            `mapstructure:"max_message_bytes"`
	CompressionCodec string         `mapstructure:"compression"`
	WriteTimeout     time.Duration  `mapstructure:"write_timeout"`
	Source           string         `mapstructure:"source"`
	Security         SecurityConfig `mapstructure:"security"`
}

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.WriterStats
}

// Publisher announces policy source changes so every replica drops its
// cached snapshot.
type Publisher struct {
	writer  WriterInterface
	config  ProducerConfig
	logger  logging.Logger
	metrics *prometheus.ReportingMetrics
	closed  atomic.Bool
}

// PublisherOption customizes a Publisher.
type PublisherOption func(*Publisher)

func WithPublisherMetrics(m *prometheus.ReportingMetrics) PublisherOption {
	return func(p *Publisher) { p.metrics = m }
}

// WithWriter replaces the kafka writer.
func WithWriter(w WriterInterface) PublisherOption {
	return func(p *Publisher) { p.writer = w }
}

func applyProducerDefaults(cfg *ProducerConfig) {
	if cfg.Topic == "" {
		cfg.Topic = TopicSourceChanged
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.MaxMessageBytes == 0 {
		cfg.MaxMessageBytes = 1024 * 1024
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.Source == "" {
		cfg.Source = "treatyboard"
	}
}

// NewPublisher creates a Publisher writing to cfg.Topic.
func NewPublisher(cfg ProducerConfig, logger logging.Logger, opts ...PublisherOption) (*Publisher, error) {
	if err := ValidateProducerConfig(cfg); err != nil {
		return nil, err
	}
	applyProducerDefaults(&cfg)
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	p := &Publisher{
		config: cfg,
		logger: logger.Named("kafka-publisher"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.writer != nil {
		return p, nil
	}

	transport := &kafka.Transport{DialTimeout: 10 * time.Second}
	tlsCfg, err := cfg.Security.tlsConfig()
	if err != nil {
		return nil, err
	}
	transport.TLS = tlsCfg
	mech, err := cfg.Security.mechanism()
	if err != nil {
		return nil, err
	}
	transport.SASL = mech

	var requiredAcks kafka.RequiredAcks
	switch cfg.Acks {
	case "none":
		requiredAcks = kafka.RequireNone
	case "one":
		requiredAcks = kafka.RequireOne
	default:
		requiredAcks = kafka.RequireAll
	}

	var compression kafka.Compression
	switch cfg.CompressionCodec {
	case "gzip":
		compression = kafka.Gzip
	case "snappy":
		compression = kafka.Snappy
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	}

	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxRetries + 1,
		BatchTimeout: cfg.BatchTimeout,
		BatchBytes:   int64(cfg.MaxMessageBytes),
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: requiredAcks,
		Compression:  compression,
		Transport:    transport,
	}
	return p, nil
}

// Topic is the topic events are written to.
func (p *Publisher) Topic() string { return p.config.Topic }

// PublishSourceChanged announces that the named source was rewritten.
// Messages are keyed by source so changes to one book stay ordered.
func (p *Publisher) PublishSourceChanged(ctx context.Context, payload SourceChangedPayload) (string, error) {
	if p.closed.Load() {
		return "", ErrPublisherClosed
	}
	if payload.ChangedAt.IsZero() {
		payload.ChangedAt = time.Now().UTC()
	}

	env, err := NewEnvelope(EventSourceChanged, p.config.Source, payload)
	if err != nil {
		return "", err
	}
	value, err := env.Encode()
	if err != nil {
		return "", err
	}
	if len(value) > p.config.MaxMessageBytes {
		return "", errors.New(errors.ErrCodeValidation, "message too large")
	}

	msg := kafka.Message{
		Key:   []byte(payload.Source),
		Value: value,
		Time:  env.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, msg)
	prometheus.RecordEventPublished(p.metrics, p.config.Topic, err)
	if err != nil {
		p.logger.Error("failed to publish source change",
			logging.String("topic", p.config.Topic),
			logging.String("source", payload.Source),
			logging.Err(err))
		return "", errors.Wrap(err, errors.ErrCodeEventPublishFailed, "publish failed")
	}

	p.logger.Debug("source change published",
		logging.String("topic", p.config.Topic),
		logging.String("event_id", env.EventID),
		logging.Duration("latency", time.Since(start)))
	return env.EventID, nil
}

// Close closes the publisher.  Closing twice is a no-op.
func (p *Publisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	stats := p.writer.Stats()
	err := p.writer.Close()
	p.logger.Info("kafka publisher closed", logging.Int64("messages", stats.Messages))
	return err
}

func ValidateProducerConfig(cfg ProducerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "Brokers required")
	}
	if cfg.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "MaxRetries must be >= 0")
	}
	switch cfg.Acks {
	case "", "none", "one", "all":
	default:
		return errors.New(errors.ErrCodeValidation, "invalid Acks").WithDetail(cfg.Acks)
	}
	return cfg.Security.validate()
}
