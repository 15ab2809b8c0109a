package consumers

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"salespipe/internal/domain/crm"
	"salespipe/internal/events"
	"salespipe/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActivityRepo struct {
	mu      sync.Mutex
	created []crm.Activity
	err     error
}

func (f *fakeActivityRepo) Create(ctx context.Context, a *crm.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *a)
	return nil
}

func (f *fakeActivityRepo) ListByContact(ctx context.Context, contactID, tenantID string, limit int) ([]crm.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []crm.Activity
	for _, a := range f.created {
		if a.ContactID == contactID && a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeEngagementRepo struct {
	mu     sync.Mutex
	scores map[string]int
}

func newFakeEngagementRepo() *fakeEngagementRepo {
	return &fakeEngagementRepo{scores: make(map[string]int)}
}

func (f *fakeEngagementRepo) ApplyDelta(ctx context.Context, contactID, tenantID string, delta int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := tenantID + "|" + contactID
	next := f.scores[k] + delta
	if next < 0 {
		next = 0
	}
	f.scores[k] = next
	return next, nil
}

func (f *fakeEngagementRepo) GetScore(ctx context.Context, contactID, tenantID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scores[tenantID+"|"+contactID], nil
}

func envelopeFor(t *testing.T, eventType string, payload any) events.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return events.Envelope{
		EventID:       "evt-1",
		EventType:     eventType,
		AggregateType: events.AggregateTypeEmail,
		AggregateID:   "email-1",
		TenantID:      "tenant-1",
		Payload:       raw,
		OccurredAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestActivityHandlerRecordsEmailSent(t *testing.T) {
	repo := &fakeActivityRepo{}
	h := NewActivityHandler(repo, logger.NewNop())

	evt := envelopeFor(t, events.EventTypeEmailSent, events.EmailSentPayload{
		EmailID:   "email-1",
		ContactID: "contact-1",
		AccountID: "account-1",
		Subject:   "Q3 renewal",
	})
	require.NoError(t, h.HandleEmailSent(context.Background(), evt))

	require.Len(t, repo.created, 1)
	a := repo.created[0]
	assert.Equal(t, "email_sent", a.Type)
	assert.Equal(t, "Email sent: Q3 renewal", a.Title)
	assert.Equal(t, "contact-1", a.ContactID)
	assert.Equal(t, "tenant-1", a.TenantID)
	assert.Equal(t, events.AggregateTypeEmail, a.SourceType)
	assert.Equal(t, "email-1", a.SourceID)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, evt.OccurredAt, a.OccurredAt)
}

func TestActivityHandlerIgnoresRepeatOpens(t *testing.T) {
	repo := &fakeActivityRepo{}
	h := NewActivityHandler(repo, logger.NewNop())

	evt := envelopeFor(t, events.EventTypeEmailOpened, events.EmailOpenedPayload{
		EmailID:   "email-1",
		ContactID: "contact-1",
		FirstOpen: false,
	})
	require.NoError(t, h.HandleEmailOpened(context.Background(), evt))
	assert.Empty(t, repo.created)

	evt = envelopeFor(t, events.EventTypeEmailOpened, events.EmailOpenedPayload{
		EmailID:   "email-1",
		ContactID: "contact-1",
		FirstOpen: true,
	})
	require.NoError(t, h.HandleEmailOpened(context.Background(), evt))
	require.Len(t, repo.created, 1)
	assert.Equal(t, "email_opened", repo.created[0].Type)
}

func TestActivityHandlerRejectsMalformedPayload(t *testing.T) {
	repo := &fakeActivityRepo{}
	h := NewActivityHandler(repo, logger.NewNop())

	evt := events.Envelope{
		EventID:   "evt-bad",
		EventType: events.EventTypeEmailSent,
		TenantID:  "tenant-1",
		Payload:   []byte(`{"subject":`),
	}
	err := h.HandleEmailSent(context.Background(), evt)
	require.Error(t, err)
	assert.Empty(t, repo.created)
}

func TestEngagementHandlerAccumulatesScore(t *testing.T) {
	repo := newFakeEngagementRepo()
	h := NewEngagementHandler(repo, logger.NewNop())
	ctx := context.Background()

	steps := []struct {
		eventType string
		payload   any
		want      int
	}{
		{events.EventTypeEmailOpened, map[string]any{"contact_id": "c1", "first_open": true}, 2},
		{events.EventTypeEmailClicked, map[string]any{"contact_id": "c1"}, 7},
		{events.EventTypeEmailReplied, map[string]any{"contact_id": "c1"}, 17},
		{events.EventTypeMeetingConfirmed, map[string]any{"contact_id": "c1"}, 32},
	}
	for _, s := range steps {
		require.NoError(t, h.Handle(ctx, envelopeFor(t, s.eventType, s.payload)))
		score, err := repo.GetScore(ctx, "c1", "tenant-1")
		require.NoError(t, err)
		assert.Equal(t, s.want, score, "after %s", s.eventType)
	}
}

func TestEngagementHandlerSkipsRepeatOpensAndUnknownTypes(t *testing.T) {
	repo := newFakeEngagementRepo()
	h := NewEngagementHandler(repo, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, envelopeFor(t, events.EventTypeEmailOpened,
		map[string]any{"contact_id": "c1", "first_open": false})))
	require.NoError(t, h.Handle(ctx, envelopeFor(t, events.EventTypeContactCreated,
		map[string]any{"contact_id": "c1"})))
	require.NoError(t, h.Handle(ctx, envelopeFor(t, events.EventTypeEmailClicked,
		map[string]any{})))

	score, err := repo.GetScore(ctx, "c1", "tenant-1")
	require.NoError(t, err)
	assert.Zero(t, score)
}
