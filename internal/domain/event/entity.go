package event

import (
	"time"
)

// Status represents the processing state of an outbox event
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

// OutboxEvent stores domain events waiting to be dispatched to handlers.
// A row is written in the same transaction as the business mutation that
// produced it. Once written it is immutable except for Status, RetryCount,
// LastError and ProcessedAt, and only the dispatcher touches those.
type OutboxEvent struct {
	ID            int64
	EventID       string
	EventType     string
	AggregateType string
	AggregateID   string
	TenantID      string
	Payload       []byte
	Metadata      []byte
	Status        Status
	RetryCount    int
	LastError     string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

// ProcessedEvent records an event id whose handlers have all completed.
// Existence of a row is the sole truth for "this event already took effect",
// independent of the outbox row's own status.
type ProcessedEvent struct {
	EventID     string
	EventType   string
	ProcessedAt time.Time
}
