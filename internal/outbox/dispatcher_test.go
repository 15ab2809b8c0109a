package outbox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"salespipe/internal/domain/event"
	"salespipe/internal/events"
	"salespipe/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(repo *fakeOutboxRepo, reg *events.Registry) *Dispatcher {
	opts := DefaultOptions()
	opts.PollInterval = 5 * time.Millisecond
	return NewDispatcher(repo, reg, logger.NewNop(), opts)
}

func pendingEvent(id, eventType string, createdAt time.Time) event.OutboxEvent {
	return event.OutboxEvent{
		EventID:       id,
		EventType:     eventType,
		AggregateType: events.AggregateTypeContact,
		AggregateID:   "contact-1",
		TenantID:      "tenant-1",
		Payload:       []byte(`{}`),
		Metadata:      []byte(`{"version":1}`),
		CreatedAt:     createdAt,
	}
}

func TestDispatcherDeliversAndMarksProcessed(t *testing.T) {
	repo := newFakeOutboxRepo()
	reg := events.NewRegistry()

	var got events.Envelope
	reg.Register(events.EventTypeContactCreated, func(ctx context.Context, evt events.Envelope) error {
		got = evt
		return nil
	})

	row := repo.add(pendingEvent("evt-1", events.EventTypeContactCreated, time.Now()))
	d := newTestDispatcher(repo, reg)

	n, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, "evt-1", got.EventID)
	assert.Equal(t, "tenant-1", got.TenantID)
	assert.Equal(t, 1, got.Metadata.Version)

	stored := repo.get(row.ID)
	assert.Equal(t, event.StatusProcessed, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
	assert.True(t, repo.processed["evt-1"])
}

func TestDispatcherSkipsAlreadyProcessedEvent(t *testing.T) {
	repo := newFakeOutboxRepo()
	reg := events.NewRegistry()

	var calls int32
	reg.Register(events.EventTypeContactCreated, func(ctx context.Context, evt events.Envelope) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	// The event took effect on a prior run that crashed before closing out
	// the outbox row.
	repo.processed["evt-1"] = true
	row := repo.add(pendingEvent("evt-1", events.EventTypeContactCreated, time.Now()))

	d := newTestDispatcher(repo, reg)
	_, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "handler must not see a replayed event")
	assert.Equal(t, event.StatusProcessed, repo.get(row.ID).Status)
}

func TestDispatcherClaimOrderFollowsCreationOrder(t *testing.T) {
	repo := newFakeOutboxRepo()
	reg := events.NewRegistry()
	base := time.Now()

	repo.add(pendingEvent("evt-2", events.EventTypeContactCreated, base.Add(time.Second)))
	repo.add(pendingEvent("evt-1", events.EventTypeContactCreated, base))
	repo.add(pendingEvent("evt-3", events.EventTypeContactCreated, base.Add(2*time.Second)))

	d := newTestDispatcher(repo, reg)
	_, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"evt-1", "evt-2", "evt-3"}, repo.claimedOrder)
}

func TestDispatcherPartialHandlerFailureIsolation(t *testing.T) {
	repo := newFakeOutboxRepo()
	reg := events.NewRegistry()

	var auditRan int32
	reg.Register(events.EventTypeEmailSent, func(ctx context.Context, evt events.Envelope) error {
		return errors.New("smtp unavailable")
	})
	reg.Register(events.EventTypeEmailSent, func(ctx context.Context, evt events.Envelope) error {
		atomic.AddInt32(&auditRan, 1)
		return nil
	})

	row := repo.add(pendingEvent("evt-1", events.EventTypeEmailSent, time.Now()))
	d := newTestDispatcher(repo, reg)

	n, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, int32(1), atomic.LoadInt32(&auditRan), "sibling handler must still run")
	stored := repo.get(row.ID)
	assert.Equal(t, event.StatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Contains(t, stored.LastError, "smtp unavailable")
	assert.False(t, repo.processed["evt-1"], "failed event must not be recorded as processed")
}

func TestDispatcherMissingHandlerIsANoOp(t *testing.T) {
	repo := newFakeOutboxRepo()
	row := repo.add(pendingEvent("evt-1", "nobody.consumes_this", time.Now()))

	d := newTestDispatcher(repo, events.NewRegistry())
	n, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, event.StatusProcessed, repo.get(row.ID).Status)
}

func TestDispatcherHandlerPanicIsContained(t *testing.T) {
	repo := newFakeOutboxRepo()
	reg := events.NewRegistry()
	reg.Register(events.EventTypeContactCreated, func(ctx context.Context, evt events.Envelope) error {
		panic("boom")
	})

	row := repo.add(pendingEvent("evt-1", events.EventTypeContactCreated, time.Now()))
	d := newTestDispatcher(repo, reg)

	_, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)

	stored := repo.get(row.ID)
	assert.Equal(t, event.StatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "panicked")
}

func TestDispatcherStoreErrorAbortsCycle(t *testing.T) {
	repo := newFakeOutboxRepo()
	repo.claimErr = errors.New("connection refused")

	d := newTestDispatcher(repo, events.NewRegistry())
	n, err := d.ProcessOnce(context.Background())

	assert.Error(t, err)
	assert.Equal(t, 0, n)
}

func TestDispatcherRetrySweepRequeuesBelowMaxRetries(t *testing.T) {
	repo := newFakeOutboxRepo()

	failed := pendingEvent("evt-1", events.EventTypeEmailSent, time.Now())
	failed.Status = event.StatusFailed
	failed.RetryCount = 2
	row := repo.add(failed)

	exhausted := pendingEvent("evt-2", events.EventTypeEmailSent, time.Now())
	exhausted.Status = event.StatusFailed
	exhausted.RetryCount = 5
	spent := repo.add(exhausted)

	n, err := repo.RequeueFailed(context.Background(), 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, event.StatusPending, repo.get(row.ID).Status)
	assert.Equal(t, event.StatusFailed, repo.get(spent.ID).Status)
}

func TestDispatcherSweepReleasesStaleClaims(t *testing.T) {
	repo := newFakeOutboxRepo()

	stuck := pendingEvent("evt-1", events.EventTypeContactCreated, time.Now())
	stuck.Status = event.StatusProcessing
	row := repo.add(stuck)

	n, err := repo.ReleaseStale(context.Background(), 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, event.StatusPending, repo.get(row.ID).Status)
}

func TestDispatcherRunStopsCooperatively(t *testing.T) {
	repo := newFakeOutboxRepo()
	reg := events.NewRegistry()

	var handled int32
	release := make(chan struct{})
	reg.Register(events.EventTypeContactCreated, func(ctx context.Context, evt events.Envelope) error {
		atomic.AddInt32(&handled, 1)
		<-release
		return nil
	})
	repo.add(pendingEvent("evt-1", events.EventTypeContactCreated, time.Now()))

	d := newTestDispatcher(repo, reg)
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Run(ctx)
	}()

	// Wait for the cycle to pick the entry up, then cancel mid-handler: the
	// loop must let the cycle finish before exiting.
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&handled) == 1
	}, time.Second, time.Millisecond)
	cancel()
	close(release)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after context cancellation")
	}
	assert.True(t, repo.processed["evt-1"], "in-flight entry must settle before the loop exits")
}
