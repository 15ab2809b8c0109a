package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"salespipe/internal/domain/crm"
	"salespipe/internal/events"
	"salespipe/internal/outbox"
	"salespipe/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CreateContactInput struct {
	Email     string
	FirstName string
	LastName  string
	AccountID string
	UserID    string
	RequestID string
}

// ContactService owns the demonstration write path: the contact row and its
// contact.created event commit in one transaction, so a crash between the
// two is impossible.
type ContactService struct {
	pool     *pgxpool.Pool
	contacts repository.ContactRepository
	writer   *outbox.Writer
}

func NewContactService(pool *pgxpool.Pool, contacts repository.ContactRepository, writer *outbox.Writer) *ContactService {
	return &ContactService{pool: pool, contacts: contacts, writer: writer}
}

func (s *ContactService) Create(ctx context.Context, tenantID string, in CreateContactInput) (crm.Contact, error) {
	contact := crm.Contact{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		AccountID: in.AccountID,
		CreatedAt: time.Now(),
	}

	payload, err := json.Marshal(events.ContactCreatedPayload{
		ContactID: contact.ID,
		Email:     contact.Email,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		AccountID: contact.AccountID,
	})
	if err != nil {
		return crm.Contact{}, fmt.Errorf("marshal contact payload: %w", err)
	}

	err = repository.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.contacts.Create(ctx, tx, &contact); err != nil {
			return err
		}
		_, err := s.writer.Append(ctx, tx, events.NewEnvelope(
			events.EventTypeContactCreated,
			events.AggregateTypeContact,
			contact.ID,
			tenantID,
			payload,
			events.Metadata{UserID: in.UserID, RequestID: in.RequestID},
		))
		return err
	})
	if err != nil {
		return crm.Contact{}, err
	}
	return contact, nil
}

func (s *ContactService) GetByID(ctx context.Context, id, tenantID string) (crm.Contact, error) {
	return s.contacts.GetByID(ctx, id, tenantID)
}
