package consumers

import (
	"context"
	"encoding/json"
	"fmt"

	"salespipe/internal/events"
	"salespipe/internal/repository"
	"salespipe/pkg/logger"
)

// Score deltas per signal. Opens are weak signals, replies strong.
const (
	scoreEmailOpened      = 2
	scoreEmailClicked     = 5
	scoreEmailReplied     = 10
	scoreMeetingConfirmed = 15
)

// EngagementHandler keeps per-contact engagement scores current as email and
// meeting events flow through the pipeline.
type EngagementHandler struct {
	engagement repository.EngagementRepository
	log        *logger.Logger
}

func NewEngagementHandler(engagement repository.EngagementRepository, log *logger.Logger) *EngagementHandler {
	return &EngagementHandler{engagement: engagement, log: log}
}

func (h *EngagementHandler) Handle(ctx context.Context, evt events.Envelope) error {
	var p struct {
		ContactID string `json:"contact_id"`
		FirstOpen bool   `json:"first_open"`
	}
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", evt.EventType, err)
	}
	if p.ContactID == "" {
		return nil
	}

	var delta int
	switch evt.EventType {
	case events.EventTypeEmailOpened:
		if !p.FirstOpen {
			return nil
		}
		delta = scoreEmailOpened
	case events.EventTypeEmailClicked:
		delta = scoreEmailClicked
	case events.EventTypeEmailReplied:
		delta = scoreEmailReplied
	case events.EventTypeMeetingConfirmed:
		delta = scoreMeetingConfirmed
	default:
		return nil
	}

	score, err := h.engagement.ApplyDelta(ctx, p.ContactID, evt.TenantID, delta)
	if err != nil {
		return err
	}
	h.log.Debugf("engagement score for contact %s now %d", p.ContactID, score)
	return nil
}
