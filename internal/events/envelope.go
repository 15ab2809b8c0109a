package events

import (
	"encoding/json"
	"time"
)

// Metadata carries correlation identifiers across event hops. The dispatcher
// propagates it but never interprets it.
type Metadata struct {
	CorrelationID string `json:"correlation_id,omitempty"`
	CausationID   string `json:"causation_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	Version       int    `json:"version"`
}

// Envelope is the standardized format every handler receives.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	TenantID      string          `json:"tenant_id"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      Metadata        `json:"metadata"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewEnvelope builds an envelope missing only EventID/OccurredAt, which the
// outbox writer fills in at append time.
func NewEnvelope(eventType, aggregateType, aggregateID, tenantID string, payload json.RawMessage, md Metadata) Envelope {
	if md.Version == 0 {
		md.Version = 1
	}
	return Envelope{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		TenantID:      tenantID,
		Payload:       payload,
		Metadata:      md,
	}
}
