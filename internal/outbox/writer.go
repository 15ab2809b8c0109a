package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"salespipe/internal/domain/event"
	"salespipe/internal/events"
	"salespipe/internal/repository"

	"github.com/google/uuid"
)

// Writer appends domain events to the outbox. It performs no dispatch and no
// network I/O, so Append can run inside the same transaction as the business
// mutation that produced the event.
type Writer struct {
	repo  repository.OutboxRepository
	clock func() time.Time
}

func NewWriter(repo repository.OutboxRepository) *Writer {
	return &Writer{repo: repo, clock: time.Now}
}

// Append fills in a fresh event id and timestamp, inserts the row through db
// (which may be an ambient transaction) and returns the event id. Store
// errors propagate untouched so the surrounding transaction rolls back.
func (w *Writer) Append(ctx context.Context, db repository.DB, env events.Envelope) (string, error) {
	if env.EventType == "" {
		return "", fmt.Errorf("append outbox event: missing event type")
	}
	if env.TenantID == "" {
		return "", fmt.Errorf("append outbox event: missing tenant id")
	}

	eventID := uuid.NewString()
	occurredAt := env.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = w.clock()
	}

	payload := env.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	if env.Metadata.Version == 0 {
		env.Metadata.Version = 1
	}
	metadata, err := json.Marshal(env.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal event metadata: %w", err)
	}

	e := &event.OutboxEvent{
		EventID:       eventID,
		EventType:     env.EventType,
		AggregateType: env.AggregateType,
		AggregateID:   env.AggregateID,
		TenantID:      env.TenantID,
		Payload:       payload,
		Metadata:      metadata,
		CreatedAt:     occurredAt,
	}
	if err := w.repo.Create(ctx, db, e); err != nil {
		return "", err
	}
	return eventID, nil
}
