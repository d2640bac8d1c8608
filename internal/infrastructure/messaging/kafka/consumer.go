package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeInternal, "listener already running")
)

// InvalidationReason is passed to the Invalidator for event driven drops.
const InvalidationReason = "event"

// Invalidator drops cached policy snapshots.
type Invalidator interface {
	Invalidate(ctx context.Context, reason string) error
}

// RetryConfig defines retry behavior for a failed invalidation.
type RetryConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

// ConsumerConfig holds configuration for the InvalidationListener.  Every
// replica should use its own GroupID so each one sees every event.
type ConsumerConfig struct {
	Brokers           []string       `mapstructure:"brokers"`
	GroupID           string         `mapstructure:"group_id"`
	Topic             string         `mapstructure:"topic"`
	AutoOffsetReset   string         `mapstructure:"auto_offset_reset"`
	SessionTimeout    time.Duration  `mapstructure:"session_timeout"`
	HeartbeatInterval time.Duration  `mapstructure:"heartbeat_interval"`
	MaxWait           time.Duration  `mapstructure:"max_wait"`
	FetchMaxBytes     int            `mapstructure:"fetch_max_bytes"`
	Retry             RetryConfig    `mapstructure:"retry"`
	Security          SecurityConfig `mapstructure:"security"`
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.ReaderStats
}

// ListenerStats is a snapshot of listener counters.
type ListenerStats struct {
	Consumed    int64
	Invalidated int64
	Skipped     int64
	Failed      int64
}

// InvalidationListener consumes source change events and drops the cached
// policy snapshot for each one.  Messages are committed after handling, even
// when the invalidation ultimately fails, so a poison message cannot stall
// the group.
type InvalidationListener struct {
	reader      ReaderInterface
	invalidator Invalidator
	config      ConsumerConfig
	logger      logging.Logger
	metrics     *prometheus.ReportingMetrics

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	consumed    atomic.Int64
	invalidated atomic.Int64
	skipped     atomic.Int64
	failed      atomic.Int64
}

// ListenerOption customizes an InvalidationListener.
type ListenerOption func(*InvalidationListener)

func WithListenerMetrics(m *prometheus.ReportingMetrics) ListenerOption {
	return func(l *InvalidationListener) { l.metrics = m }
}

// WithReader replaces the kafka reader.
func WithReader(r ReaderInterface) ListenerOption {
	return func(l *InvalidationListener) { l.reader = r }
}

func applyConsumerDefaults(cfg *ConsumerConfig) {
	if cfg.Topic == "" {
		cfg.Topic = TopicSourceChanged
	}
	if cfg.AutoOffsetReset == "" {
		cfg.AutoOffsetReset = "latest"
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 3 * time.Second
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = time.Second
	}
	if cfg.FetchMaxBytes == 0 {
		cfg.FetchMaxBytes = 1024 * 1024
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 3
	}
	if cfg.Retry.RetryBackoff == 0 {
		cfg.Retry.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.Retry.MaxRetryBackoff == 0 {
		cfg.Retry.MaxRetryBackoff = 10 * time.Second
	}
}

// NewInvalidationListener creates a listener for cfg.Topic.
func NewInvalidationListener(cfg ConsumerConfig, inv Invalidator, logger logging.Logger, opts ...ListenerOption) (*InvalidationListener, error) {
	if inv == nil {
		return nil, errors.New(errors.ErrCodeValidation, "invalidator required")
	}
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	applyConsumerDefaults(&cfg)
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	l := &InvalidationListener{
		invalidator: inv,
		config:      cfg,
		logger:      logger.Named("kafka-listener"),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.reader != nil {
		return l, nil
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	tlsCfg, err := cfg.Security.tlsConfig()
	if err != nil {
		return nil, err
	}
	dialer.TLS = tlsCfg
	mech, err := cfg.Security.mechanism()
	if err != nil {
		return nil, err
	}
	dialer.SASLMechanism = mech

	readerCfg := kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		Topic:             cfg.Topic,
		MaxBytes:          cfg.FetchMaxBytes,
		MaxWait:           cfg.MaxWait,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		StartOffset:       kafka.LastOffset,
		Dialer:            dialer,
	}
	if cfg.AutoOffsetReset == "earliest" {
		readerCfg.StartOffset = kafka.FirstOffset
	}
	l.reader = kafka.NewReader(readerCfg)
	return l, nil
}

// Start runs the consume loop in the background until ctx is cancelled or
// Close is called.
func (l *InvalidationListener) Start(ctx context.Context) error {
	if l.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.wg.Add(1)
	go l.consumeLoop(ctx)

	l.logger.Info("invalidation listener started",
		logging.String("topic", l.config.Topic),
		logging.String("group", l.config.GroupID))
	return nil
}

func (l *InvalidationListener) consumeLoop(ctx context.Context) {
	defer l.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		m, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Error("fetch failed", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		l.consumed.Add(1)
		l.handle(ctx, m)

		if err := l.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			l.logger.Error("commit failed",
				logging.Int64("offset", m.Offset),
				logging.Err(err))
		}
	}
}

func (l *InvalidationListener) handle(ctx context.Context, m kafka.Message) {
	env, err := DecodeEnvelope(m.Value)
	if err != nil {
		l.skipped.Add(1)
		l.logger.Warn("skipping undecodable event",
			logging.Int64("offset", m.Offset),
			logging.Err(err))
		return
	}
	if env.EventType != EventSourceChanged {
		l.skipped.Add(1)
		l.logger.Debug("ignoring event", logging.String("event_type", env.EventType))
		return
	}

	var payload SourceChangedPayload
	if err := env.DecodePayload(&payload); err != nil {
		// The envelope alone is enough to know the book changed.
		l.logger.Warn("source change payload unreadable", logging.Err(err))
	}

	if err := l.invalidate(ctx); err != nil {
		l.failed.Add(1)
		prometheus.RecordError(l.metrics, "kafka_listener", string(errors.GetCode(err)), "error")
		l.logger.Error("cache invalidation failed after retries",
			logging.String("event_id", env.EventID),
			logging.Err(err))
		return
	}
	l.invalidated.Add(1)
	l.logger.Info("cache invalidated by source change",
		logging.String("event_id", env.EventID),
		logging.String("source", payload.Source),
		logging.String("reason", payload.Reason))
}

func (l *InvalidationListener) invalidate(ctx context.Context) error {
	err := l.invalidator.Invalidate(ctx, InvalidationReason)
	if err == nil {
		return nil
	}

	backoff := l.config.Retry.RetryBackoff
	for i := 0; i < l.config.Retry.MaxRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if err = l.invalidator.Invalidate(ctx, InvalidationReason); err == nil {
			return nil
		}
		backoff *= 2
		if backoff > l.config.Retry.MaxRetryBackoff {
			backoff = l.config.Retry.MaxRetryBackoff
		}
	}
	return err
}

// Stats returns a snapshot of the listener counters.
func (l *InvalidationListener) Stats() ListenerStats {
	return ListenerStats{
		Consumed:    l.consumed.Load(),
		Invalidated: l.invalidated.Load(),
		Skipped:     l.skipped.Load(),
		Failed:      l.failed.Load(),
	}
}

// Close stops the loop and closes the reader.
func (l *InvalidationListener) Close() error {
	if !l.running.CompareAndSwap(true, false) {
		return l.reader.Close()
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()

	err := l.reader.Close()
	l.logger.Info("invalidation listener closed", logging.Int64("consumed", l.consumed.Load()))
	return err
}

// ValidateConsumerConfig validates configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "Brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "GroupID required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.New(errors.ErrCodeValidation, "Invalid AutoOffsetReset")
	}
	if cfg.Retry.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "MaxRetries must be >= 0")
	}
	return cfg.Security.validate()
}
