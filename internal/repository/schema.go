package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitSchema creates the core tables and indexes. Idempotent; safe to run on
// every boot.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS outbox (
			id             BIGSERIAL PRIMARY KEY,
			event_id       VARCHAR(36) NOT NULL UNIQUE,
			event_type     VARCHAR(100) NOT NULL,
			aggregate_type VARCHAR(50) NOT NULL,
			aggregate_id   VARCHAR(36) NOT NULL,
			tenant_id      VARCHAR(36) NOT NULL,
			payload        JSONB NOT NULL,
			metadata       JSONB NOT NULL DEFAULT '{}',
			status         VARCHAR(20) NOT NULL DEFAULT 'pending',
			retry_count    INTEGER NOT NULL DEFAULT 0,
			last_error     TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			processed_at   TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS outbox_pending_idx ON outbox (status, created_at)`,
		`CREATE INDEX IF NOT EXISTS outbox_aggregate_idx ON outbox (aggregate_type, aggregate_id)`,
		`CREATE INDEX IF NOT EXISTS outbox_tenant_idx ON outbox (tenant_id)`,

		`CREATE TABLE IF NOT EXISTS processed_events (
			event_id     VARCHAR(36) PRIMARY KEY,
			event_type   VARCHAR(100) NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS idempotency_keys (
			key             VARCHAR(64) NOT NULL,
			tenant_id       VARCHAR(36) NOT NULL,
			request_path    VARCHAR(255) NOT NULL,
			request_method  VARCHAR(10) NOT NULL,
			status          VARCHAR(20) NOT NULL DEFAULT 'processing',
			response_status INTEGER,
			response_body   JSONB,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at      TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (key, tenant_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idempotency_keys_expires_idx ON idempotency_keys (expires_at)`,

		`CREATE TABLE IF NOT EXISTS contacts (
			id         VARCHAR(36) PRIMARY KEY,
			tenant_id  VARCHAR(36) NOT NULL,
			email      VARCHAR(255) NOT NULL,
			first_name VARCHAR(100) NOT NULL DEFAULT '',
			last_name  VARCHAR(100) NOT NULL DEFAULT '',
			account_id VARCHAR(36),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (tenant_id, email)
		)`,

		`CREATE TABLE IF NOT EXISTS activities (
			id          VARCHAR(36) PRIMARY KEY,
			tenant_id   VARCHAR(36) NOT NULL,
			type        VARCHAR(50) NOT NULL,
			title       VARCHAR(255) NOT NULL,
			contact_id  VARCHAR(36),
			account_id  VARCHAR(36),
			source_type VARCHAR(50) NOT NULL DEFAULT '',
			source_id   VARCHAR(36) NOT NULL DEFAULT '',
			metadata    JSONB NOT NULL DEFAULT '{}',
			occurred_at TIMESTAMPTZ NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS activities_contact_idx ON activities (contact_id, occurred_at)`,

		`CREATE TABLE IF NOT EXISTS engagement_scores (
			contact_id VARCHAR(36) NOT NULL,
			tenant_id  VARCHAR(36) NOT NULL,
			score      INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (contact_id, tenant_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
