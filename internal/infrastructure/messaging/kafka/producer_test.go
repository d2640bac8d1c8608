package kafka

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// mockKafkaWriter
type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
	written   []kafka.Message
	closed    int
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		if err := m.writeFunc(ctx, msgs...); err != nil {
			return err
		}
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.closed++
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func (m *mockKafkaWriter) Stats() kafka.WriterStats {
	return kafka.WriterStats{Messages: int64(len(m.written))}
}

func newTestProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers: []string{"localhost:9092"},
	}
}

func newTestPublisher(t *testing.T, w WriterInterface) *Publisher {
	t.Helper()
	p, err := NewPublisher(newTestProducerConfig(), nil, WithWriter(w))
	require.NoError(t, err)
	return p
}

func TestValidateProducerConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProducerConfig)
		ok     bool
	}{
		{"valid", func(*ProducerConfig) {}, true},
		{"no brokers", func(c *ProducerConfig) { c.Brokers = nil }, false},
		{"negative retries", func(c *ProducerConfig) { c.MaxRetries = -1 }, false},
		{"bad acks", func(c *ProducerConfig) { c.Acks = "some" }, false},
		{"sasl without mechanism", func(c *ProducerConfig) {
			c.Security = SecurityConfig{SASLEnabled: true, SASLUsername: "u", SASLPassword: "p"}
		}, false},
		{"sasl unknown mechanism", func(c *ProducerConfig) {
			c.Security = SecurityConfig{SASLEnabled: true, SASLMechanism: "GSSAPI", SASLUsername: "u", SASLPassword: "p"}
		}, false},
		{"sasl plain", func(c *ProducerConfig) {
			c.Security = SecurityConfig{SASLEnabled: true, SASLMechanism: MechanismPlain, SASLUsername: "u", SASLPassword: "p"}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestProducerConfig()
			tt.mutate(&cfg)
			err := ValidateProducerConfig(cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
			}
		})
	}
}

func TestNewPublisher_Defaults(t *testing.T) {
	p := newTestPublisher(t, &mockKafkaWriter{})
	assert.Equal(t, TopicSourceChanged, p.Topic())
	assert.Equal(t, "treatyboard", p.config.Source)
	assert.Equal(t, 1024*1024, p.config.MaxMessageBytes)
}

func TestNewPublisher_BuildsRealWriter(t *testing.T) {
	cfg := newTestProducerConfig()
	cfg.Security = SecurityConfig{SASLEnabled: true, SASLMechanism: MechanismScramSHA512, SASLUsername: "u", SASLPassword: "p"}
	p, err := NewPublisher(cfg, nil)
	require.NoError(t, err)
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, TopicSourceChanged, w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.NoError(t, p.Close())
}

func TestPublishSourceChanged_Success(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestPublisher(t, w)

	id, err := p.PublishSourceChanged(context.Background(), SourceChangedPayload{Source: "postgres", Reason: "reload", Records: 12})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.Len(t, w.written, 1)

	msg := w.written[0]
	assert.Equal(t, []byte("postgres"), msg.Key)

	env, err := DecodeEnvelope(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, id, env.EventID)
	assert.Equal(t, EventSourceChanged, env.EventType)
	assert.Equal(t, SchemaVersion, env.SchemaVersion)

	var payload SourceChangedPayload
	require.NoError(t, env.DecodePayload(&payload))
	assert.Equal(t, "reload", payload.Reason)
	assert.Equal(t, 12, payload.Records)
	assert.False(t, payload.ChangedAt.IsZero())
}

func TestPublishSourceChanged_WriteFailure(t *testing.T) {
	w := &mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		return stderrors.New("broker down")
	}}
	p := newTestPublisher(t, w)

	_, err := p.PublishSourceChanged(context.Background(), SourceChangedPayload{Source: "file"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEventPublishFailed))
}

func TestPublishSourceChanged_TooLarge(t *testing.T) {
	cfg := newTestProducerConfig()
	cfg.MaxMessageBytes = 16
	p, err := NewPublisher(cfg, nil, WithWriter(&mockKafkaWriter{}))
	require.NoError(t, err)

	_, err = p.PublishSourceChanged(context.Background(), SourceChangedPayload{Source: "file"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestPublisher_Close(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestPublisher(t, w)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)

	_, err := p.PublishSourceChanged(context.Background(), SourceChangedPayload{Source: "file"})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}
