package repository

import (
	"context"
	"time"

	"salespipe/internal/domain/crm"
	"salespipe/internal/domain/event"
	"salespipe/internal/domain/idempotency"
)

type OutboxRepository interface {
	// Create inserts an outbox row through db, which may be an ambient
	// transaction shared with the business mutation.
	Create(ctx context.Context, db DB, e *event.OutboxEvent) error

	// ClaimPending atomically claims up to limit pending entries in creation
	// order and returns them. Claimed rows move to processing so concurrent
	// dispatcher instances never double-deliver.
	ClaimPending(ctx context.Context, limit int) ([]event.OutboxEvent, error)

	// MarkProcessed sets the outbox row processed and records the event id in
	// processed_events, both in one transaction.
	MarkProcessed(ctx context.Context, id int64, eventID, eventType string) error

	MarkFailed(ctx context.Context, id int64, errMsg string) error
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// ReleaseStale requeues processing rows older than olderThan; claimed
	// rows stranded by a crashed dispatcher become pending again.
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)

	// RequeueFailed resets failed rows below maxRetries back to pending once
	// they have sat out the backoff window.
	RequeueFailed(ctx context.Context, maxRetries int, backoff time.Duration) (int64, error)

	// DeleteProcessedBefore removes processed rows and their processed_events
	// records older than cutoff. Retention only; the dispatcher never deletes.
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type IdempotencyRepository interface {
	// Get returns the record for (key, tenant) or pkg/errors.ErrNotFound.
	Get(ctx context.Context, key, tenantID string) (idempotency.Record, error)

	// Reserve attempts to take ownership of the key for a new request. It
	// wins only when no live record exists (absent, failed, or expired);
	// exactly one of any set of concurrent callers wins.
	Reserve(ctx context.Context, rec idempotency.Record) (bool, error)

	// Complete stores the captured response and final status.
	Complete(ctx context.Context, key, tenantID string, status idempotency.Status, responseStatus int, responseBody []byte) error

	DeleteExpired(ctx context.Context) (int64, error)
}

type ContactRepository interface {
	Create(ctx context.Context, db DB, c *crm.Contact) error
	GetByID(ctx context.Context, id, tenantID string) (crm.Contact, error)
	CountByTenant(ctx context.Context, tenantID string) (int64, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, a *crm.Activity) error
	ListByContact(ctx context.Context, contactID, tenantID string, limit int) ([]crm.Activity, error)
}

type EngagementRepository interface {
	// ApplyDelta adjusts a contact's engagement score and returns the new
	// value, creating the row at zero first if needed.
	ApplyDelta(ctx context.Context, contactID, tenantID string, delta int) (int, error)
	GetScore(ctx context.Context, contactID, tenantID string) (int, error)
}
