package consumers

import (
	"context"
	"encoding/json"
	"fmt"

	"salespipe/internal/domain/crm"
	"salespipe/internal/events"
	"salespipe/internal/repository"
	"salespipe/pkg/logger"

	"github.com/google/uuid"
)

// ActivityHandler projects pipeline events onto the contact timeline.
type ActivityHandler struct {
	activities repository.ActivityRepository
	log        *logger.Logger
}

func NewActivityHandler(activities repository.ActivityRepository, log *logger.Logger) *ActivityHandler {
	return &ActivityHandler{activities: activities, log: log}
}

func (h *ActivityHandler) HandleEmailSent(ctx context.Context, evt events.Envelope) error {
	var p events.EmailSentPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return fmt.Errorf("decode email.sent payload: %w", err)
	}
	return h.create(ctx, evt, crm.Activity{
		Type:      "email_sent",
		Title:     "Email sent: " + p.Subject,
		ContactID: p.ContactID,
		AccountID: p.AccountID,
		SourceID:  p.EmailID,
	})
}

func (h *ActivityHandler) HandleEmailOpened(ctx context.Context, evt events.Envelope) error {
	var p events.EmailOpenedPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return fmt.Errorf("decode email.opened payload: %w", err)
	}
	// Only the first open is timeline-worthy.
	if !p.FirstOpen {
		return nil
	}
	return h.create(ctx, evt, crm.Activity{
		Type:      "email_opened",
		Title:     "Email opened",
		ContactID: p.ContactID,
		AccountID: p.AccountID,
		SourceID:  p.EmailID,
	})
}

func (h *ActivityHandler) HandleEmailClicked(ctx context.Context, evt events.Envelope) error {
	var p events.EmailClickedPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return fmt.Errorf("decode email.clicked payload: %w", err)
	}
	return h.create(ctx, evt, crm.Activity{
		Type:      "email_clicked",
		Title:     "Link clicked: " + p.URL,
		ContactID: p.ContactID,
		AccountID: p.AccountID,
		SourceID:  p.EmailID,
	})
}

func (h *ActivityHandler) HandleMeetingConfirmed(ctx context.Context, evt events.Envelope) error {
	var p events.MeetingConfirmedPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return fmt.Errorf("decode meeting.confirmed payload: %w", err)
	}
	return h.create(ctx, evt, crm.Activity{
		Type:      "meeting_confirmed",
		Title:     "Meeting confirmed",
		ContactID: p.ContactID,
		AccountID: p.AccountID,
		SourceID:  p.MeetingID,
	})
}

func (h *ActivityHandler) create(ctx context.Context, evt events.Envelope, a crm.Activity) error {
	a.ID = uuid.NewString()
	a.TenantID = evt.TenantID
	a.SourceType = evt.AggregateType
	a.OccurredAt = evt.OccurredAt
	if a.Metadata == nil {
		a.Metadata = []byte("{}")
	}
	if err := h.activities.Create(ctx, &a); err != nil {
		return err
	}
	h.log.Debugf("recorded %s activity for event %s", a.Type, evt.EventID)
	return nil
}
