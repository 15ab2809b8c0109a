package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"salespipe/internal/domain/event"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type outboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) OutboxRepository {
	return &outboxRepository{pool: pool}
}

const outboxColumns = `id, event_id, event_type, aggregate_type, aggregate_id, tenant_id, payload, metadata, status, retry_count, last_error, created_at, processed_at`

func (r *outboxRepository) Create(ctx context.Context, db DB, e *event.OutboxEvent) error {
	if db == nil {
		db = r.pool
	}
	row := db.QueryRow(ctx, `
        INSERT INTO outbox (event_id, event_type, aggregate_type, aggregate_id, tenant_id, payload, metadata, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id
    `,
		e.EventID,
		e.EventType,
		e.AggregateType,
		e.AggregateID,
		e.TenantID,
		e.Payload,
		e.Metadata,
		event.StatusPending,
		e.CreatedAt,
	)
	if err := row.Scan(&e.ID); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	e.Status = event.StatusPending
	return nil
}

// ClaimPending uses FOR UPDATE SKIP LOCKED so concurrent dispatcher
// instances partition the batch instead of double-claiming rows.
func (r *outboxRepository) ClaimPending(ctx context.Context, limit int) ([]event.OutboxEvent, error) {
	rows, err := r.pool.Query(ctx, `
        UPDATE outbox SET status = $1, updated_at = now()
        WHERE id IN (
            SELECT id FROM outbox
            WHERE status = $2
            ORDER BY created_at ASC, id ASC
            LIMIT $3
            FOR UPDATE SKIP LOCKED
        )
        RETURNING `+outboxColumns+`
    `, event.StatusProcessing, event.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending outbox events: %w", err)
	}
	defer rows.Close()

	claimed, err := scanOutboxEvents(rows)
	if err != nil {
		return nil, err
	}
	// UPDATE ... RETURNING does not guarantee order; restore claim order.
	sortByCreation(claimed)
	return claimed, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id int64, eventID, eventType string) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            UPDATE outbox SET status = $1, processed_at = now(), updated_at = now()
            WHERE id = $2
        `, event.StatusProcessed, id); err != nil {
			return fmt.Errorf("mark outbox event processed: %w", err)
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO processed_events (event_id, event_type, processed_at)
            VALUES ($1, $2, now())
            ON CONFLICT (event_id) DO NOTHING
        `, eventID, eventType); err != nil {
			return fmt.Errorf("record processed event: %w", err)
		}
		return nil
	})
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE outbox
        SET status = $1, retry_count = retry_count + 1, last_error = $2, updated_at = now()
        WHERE id = $3
    `, event.StatusFailed, errMsg, id)
	if err != nil {
		return fmt.Errorf("mark outbox event failed: %w", err)
	}
	return nil
}

func (r *outboxRepository) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_id = $1)
    `, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check processed event: %w", err)
	}
	return exists, nil
}

func (r *outboxRepository) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
        UPDATE outbox SET status = $1, updated_at = now()
        WHERE status = $2 AND updated_at < now() - $3::interval
    `, event.StatusPending, event.StatusProcessing, olderThan.String())
	if err != nil {
		return 0, fmt.Errorf("release stale claims: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *outboxRepository) RequeueFailed(ctx context.Context, maxRetries int, backoff time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
        UPDATE outbox SET status = $1, updated_at = now()
        WHERE status = $2 AND retry_count < $3 AND updated_at < now() - $4::interval
    `, event.StatusPending, event.StatusFailed, maxRetries, backoff.String())
	if err != nil {
		return 0, fmt.Errorf("requeue failed events: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            DELETE FROM outbox WHERE status = $1 AND processed_at < $2
        `, event.StatusProcessed, cutoff)
		if err != nil {
			return fmt.Errorf("delete old outbox events: %w", err)
		}
		removed = tag.RowsAffected()
		if _, err := tx.Exec(ctx, `
            DELETE FROM processed_events WHERE processed_at < $1
        `, cutoff); err != nil {
			return fmt.Errorf("delete old processed records: %w", err)
		}
		return nil
	})
	return removed, err
}

func scanOutboxEvents(rows pgx.Rows) ([]event.OutboxEvent, error) {
	var out []event.OutboxEvent
	for rows.Next() {
		var e event.OutboxEvent
		if err := rows.Scan(
			&e.ID,
			&e.EventID,
			&e.EventType,
			&e.AggregateType,
			&e.AggregateID,
			&e.TenantID,
			&e.Payload,
			&e.Metadata,
			&e.Status,
			&e.RetryCount,
			&e.LastError,
			&e.CreatedAt,
			&e.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func sortByCreation(events []event.OutboxEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
}
