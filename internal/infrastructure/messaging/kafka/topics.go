package kafka

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// Topic constants
const (
	TopicSourceChanged   = "policy.source.changed"
	TopicDeadLetterCache = "dead_letter.cache"
)

// Event types carried in the envelope.
const (
	EventSourceChanged = "policy.source.changed"
)

// SchemaVersion is the current envelope schema.
const SchemaVersion = "1.0"

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// SourceChangedPayload announces that the policy book behind a source was
// rewritten and every cached snapshot of it is stale.
type SourceChangedPayload struct {
	Source    string    `json:"source"`
	Reason    string    `json:"reason"`
	Records   int       `json:"records,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// NewEnvelope wraps payload in an envelope with a fresh event ID.
func NewEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Payload:       raw,
	}, nil
}

// Encode serializes the envelope.
func (e *EventEnvelope) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event envelope")
	}
	return b, nil
}

// DecodeEnvelope parses an envelope and checks the required fields.
func DecodeEnvelope(b []byte) (*EventEnvelope, error) {
	var env EventEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal event envelope")
	}
	if env.EventType == "" {
		return nil, errors.New(errors.ErrCodeValidation, "event_type required")
	}
	return &env, nil
}

// DecodePayload unmarshals the envelope payload into v.
func (e *EventEnvelope) DecodePayload(v interface{}) error {
	if len(e.Payload) == 0 {
		return errors.New(errors.ErrCodeValidation, "payload required")
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal event payload")
	}
	return nil
}
