package kafka

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// mockKafkaReader serves queued messages, then blocks until cancelled.
type mockKafkaReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	closed    int
}

func (m *mockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if len(m.queue) > 0 {
		msg := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockKafkaReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, msgs...)
	return nil
}

func (m *mockKafkaReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *mockKafkaReader) Stats() kafka.ReaderStats { return kafka.ReaderStats{} }

func (m *mockKafkaReader) committedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.committed)
}

type fakeInvalidator struct {
	mu      sync.Mutex
	calls   []string
	failFor int
}

func (f *fakeInvalidator) Invalidate(_ context.Context, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, reason)
	if len(f.calls) <= f.failFor {
		return stderrors.New("store unavailable")
	}
	return nil
}

func (f *fakeInvalidator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "treatyboard-test",
		Retry:   RetryConfig{MaxRetries: 2, RetryBackoff: time.Millisecond, MaxRetryBackoff: 2 * time.Millisecond},
	}
}

func sourceChangedMessage(t *testing.T, offset int64) kafka.Message {
	t.Helper()
	env, err := NewEnvelope(EventSourceChanged, "test", SourceChangedPayload{Source: "postgres", Reason: "import"})
	require.NoError(t, err)
	b, err := env.Encode()
	require.NoError(t, err)
	return kafka.Message{Topic: TopicSourceChanged, Offset: offset, Value: b}
}

func startListener(t *testing.T, r *mockKafkaReader, inv Invalidator) *InvalidationListener {
	t.Helper()
	l, err := NewInvalidationListener(newTestConsumerConfig(), inv, nil, WithReader(r))
	require.NoError(t, err)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestValidateConsumerConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConsumerConfig)
		ok     bool
	}{
		{"valid", func(*ConsumerConfig) {}, true},
		{"no brokers", func(c *ConsumerConfig) { c.Brokers = nil }, false},
		{"no group", func(c *ConsumerConfig) { c.GroupID = "" }, false},
		{"bad offset reset", func(c *ConsumerConfig) { c.AutoOffsetReset = "middle" }, false},
		{"negative retries", func(c *ConsumerConfig) { c.Retry.MaxRetries = -1 }, false},
		{"sasl without credentials", func(c *ConsumerConfig) {
			c.Security = SecurityConfig{SASLEnabled: true, SASLMechanism: MechanismPlain}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConsumerConfig()
			tt.mutate(&cfg)
			err := ValidateConsumerConfig(cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
			}
		})
	}
}

func TestNewInvalidationListener_RequiresInvalidator(t *testing.T) {
	_, err := NewInvalidationListener(newTestConsumerConfig(), nil, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestNewInvalidationListener_BuildsRealReader(t *testing.T) {
	l, err := NewInvalidationListener(newTestConsumerConfig(), &fakeInvalidator{}, nil)
	require.NoError(t, err)
	_, ok := l.reader.(*kafka.Reader)
	assert.True(t, ok)
	assert.Equal(t, TopicSourceChanged, l.config.Topic)
	assert.NoError(t, l.Close())
}

func TestListener_InvalidatesOnSourceChange(t *testing.T) {
	r := &mockKafkaReader{queue: []kafka.Message{sourceChangedMessage(t, 1), sourceChangedMessage(t, 2)}}
	inv := &fakeInvalidator{}
	l := startListener(t, r, inv)

	require.Eventually(t, func() bool { return r.committedCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, inv.count())
	assert.Equal(t, []string{InvalidationReason, InvalidationReason}, inv.calls)
	assert.Equal(t, int64(2), l.Stats().Invalidated)
}

func TestListener_SkipsForeignAndBrokenMessages(t *testing.T) {
	other, err := NewEnvelope("policy.viewed", "test", map[string]string{"srl": "1"})
	require.NoError(t, err)
	otherBytes, err := other.Encode()
	require.NoError(t, err)

	r := &mockKafkaReader{queue: []kafka.Message{
		{Offset: 1, Value: []byte("garbage")},
		{Offset: 2, Value: otherBytes},
	}}
	inv := &fakeInvalidator{}
	l := startListener(t, r, inv)

	require.Eventually(t, func() bool { return r.committedCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, inv.count())
	assert.Equal(t, int64(2), l.Stats().Skipped)
}

func TestListener_RetriesThenSucceeds(t *testing.T) {
	r := &mockKafkaReader{queue: []kafka.Message{sourceChangedMessage(t, 1)}}
	inv := &fakeInvalidator{failFor: 2}
	l := startListener(t, r, inv)

	require.Eventually(t, func() bool { return r.committedCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, inv.count())
	assert.Equal(t, int64(1), l.Stats().Invalidated)
}

func TestListener_CommitsAfterExhaustedRetries(t *testing.T) {
	r := &mockKafkaReader{queue: []kafka.Message{sourceChangedMessage(t, 1)}}
	inv := &fakeInvalidator{failFor: 100}
	l := startListener(t, r, inv)

	require.Eventually(t, func() bool { return r.committedCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, inv.count())
	assert.Equal(t, int64(1), l.Stats().Failed)
}

func TestListener_StartTwiceAndClose(t *testing.T) {
	r := &mockKafkaReader{}
	l := startListener(t, r, &fakeInvalidator{})

	assert.ErrorIs(t, l.Start(context.Background()), ErrAlreadyRunning)
	require.NoError(t, l.Close())
	assert.Equal(t, 1, r.closed)
}
