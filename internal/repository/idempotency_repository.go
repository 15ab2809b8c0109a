package repository

import (
	"context"
	"errors"
	"fmt"

	"salespipe/internal/domain/idempotency"
	salespipe_errors "salespipe/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type idempotencyRepository struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepository(pool *pgxpool.Pool) IdempotencyRepository {
	return &idempotencyRepository{pool: pool}
}

func (r *idempotencyRepository) Get(ctx context.Context, key, tenantID string) (idempotency.Record, error) {
	var rec idempotency.Record
	var responseStatus *int
	err := r.pool.QueryRow(ctx, `
        SELECT key, tenant_id, request_path, request_method, status, response_status, response_body, created_at, expires_at
        FROM idempotency_keys
        WHERE key = $1 AND tenant_id = $2
    `, key, tenantID).Scan(
		&rec.Key,
		&rec.TenantID,
		&rec.RequestPath,
		&rec.RequestMethod,
		&rec.Status,
		&responseStatus,
		&rec.ResponseBody,
		&rec.CreatedAt,
		&rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, salespipe_errors.ErrNotFound
		}
		return idempotency.Record{}, fmt.Errorf("get idempotency key: %w", err)
	}
	if responseStatus != nil {
		rec.ResponseStatus = *responseStatus
	}
	return rec, nil
}

// Reserve wins only against absent, failed or expired rows. The conditional
// upsert makes the store the arbiter: of N concurrent callers exactly one
// gets a row back.
func (r *idempotencyRepository) Reserve(ctx context.Context, rec idempotency.Record) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
        INSERT INTO idempotency_keys (key, tenant_id, request_path, request_method, status, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, now(), $6)
        ON CONFLICT (key, tenant_id) DO UPDATE
        SET status = EXCLUDED.status,
            request_path = EXCLUDED.request_path,
            request_method = EXCLUDED.request_method,
            response_status = NULL,
            response_body = NULL,
            created_at = now(),
            expires_at = EXCLUDED.expires_at
        WHERE idempotency_keys.status = $7 OR idempotency_keys.expires_at <= now()
    `, rec.Key, rec.TenantID, rec.RequestPath, rec.RequestMethod,
		idempotency.StatusProcessing, rec.ExpiresAt, idempotency.StatusFailed)
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, key, tenantID string, status idempotency.Status, responseStatus int, responseBody []byte) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE idempotency_keys
        SET status = $1, response_status = $2, response_body = $3
        WHERE key = $4 AND tenant_id = $5
    `, status, responseStatus, responseBody, key, tenantID)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

func (r *idempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
        DELETE FROM idempotency_keys WHERE expires_at <= now()
    `)
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
