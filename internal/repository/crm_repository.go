package repository

import (
	"context"
	"errors"
	"fmt"

	"salespipe/internal/domain/crm"
	salespipe_errors "salespipe/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contactRepository struct {
	pool *pgxpool.Pool
}

func NewContactRepository(pool *pgxpool.Pool) ContactRepository {
	return &contactRepository{pool: pool}
}

func (r *contactRepository) Create(ctx context.Context, db DB, c *crm.Contact) error {
	if db == nil {
		db = r.pool
	}
	_, err := db.Exec(ctx, `
        INSERT INTO contacts (id, tenant_id, email, first_name, last_name, account_id, created_at)
        VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7)
    `, c.ID, c.TenantID, c.Email, c.FirstName, c.LastName, c.AccountID, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return salespipe_errors.ErrAlreadyExists
		}
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

func (r *contactRepository) GetByID(ctx context.Context, id, tenantID string) (crm.Contact, error) {
	var c crm.Contact
	var accountID *string
	err := r.pool.QueryRow(ctx, `
        SELECT id, tenant_id, email, first_name, last_name, account_id, created_at
        FROM contacts WHERE id = $1 AND tenant_id = $2
    `, id, tenantID).Scan(&c.ID, &c.TenantID, &c.Email, &c.FirstName, &c.LastName, &accountID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crm.Contact{}, salespipe_errors.ErrNotFound
		}
		return crm.Contact{}, fmt.Errorf("get contact: %w", err)
	}
	if accountID != nil {
		c.AccountID = *accountID
	}
	return c, nil
}

func (r *contactRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
        SELECT count(*) FROM contacts WHERE tenant_id = $1
    `, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return count, nil
}

type activityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, a *crm.Activity) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO activities (id, tenant_id, type, title, contact_id, account_id, source_type, source_id, metadata, occurred_at, created_at)
        VALUES ($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''),$7,$8,$9,$10,now())
    `, a.ID, a.TenantID, a.Type, a.Title, a.ContactID, a.AccountID, a.SourceType, a.SourceID, a.Metadata, a.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *activityRepository) ListByContact(ctx context.Context, contactID, tenantID string, limit int) ([]crm.Activity, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, tenant_id, type, title, coalesce(contact_id, ''), coalesce(account_id, ''), source_type, source_id, metadata, occurred_at, created_at
        FROM activities
        WHERE contact_id = $1 AND tenant_id = $2
        ORDER BY occurred_at DESC
        LIMIT $3
    `, contactID, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []crm.Activity
	for rows.Next() {
		var a crm.Activity
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Type, &a.Title, &a.ContactID, &a.AccountID, &a.SourceType, &a.SourceID, &a.Metadata, &a.OccurredAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type engagementRepository struct {
	pool *pgxpool.Pool
}

func NewEngagementRepository(pool *pgxpool.Pool) EngagementRepository {
	return &engagementRepository{pool: pool}
}

func (r *engagementRepository) ApplyDelta(ctx context.Context, contactID, tenantID string, delta int) (int, error) {
	var score int
	err := r.pool.QueryRow(ctx, `
        INSERT INTO engagement_scores (contact_id, tenant_id, score, updated_at)
        VALUES ($1, $2, greatest($3, 0), now())
        ON CONFLICT (contact_id, tenant_id) DO UPDATE
        SET score = greatest(engagement_scores.score + $3, 0), updated_at = now()
        RETURNING score
    `, contactID, tenantID, delta).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("apply engagement delta: %w", err)
	}
	return score, nil
}

func (r *engagementRepository) GetScore(ctx context.Context, contactID, tenantID string) (int, error) {
	var score int
	err := r.pool.QueryRow(ctx, `
        SELECT score FROM engagement_scores WHERE contact_id = $1 AND tenant_id = $2
    `, contactID, tenantID).Scan(&score)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, salespipe_errors.ErrNotFound
		}
		return 0, fmt.Errorf("get engagement score: %w", err)
	}
	return score, nil
}
