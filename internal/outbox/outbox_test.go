package outbox

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"salespipe/internal/domain/event"
	"salespipe/internal/repository"
)

// fakeOutboxRepo is an in-memory OutboxRepository for dispatcher and writer
// tests. It mimics the claim semantics of the real store: pending rows move
// to processing in creation order.
type fakeOutboxRepo struct {
	mu        sync.Mutex
	nextID    int64
	rows      map[int64]*event.OutboxEvent
	processed map[string]bool

	claimErr     error
	markErr      error
	createErr    error
	claimedOrder []string // event ids in the order they were claimed
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{
		rows:      make(map[int64]*event.OutboxEvent),
		processed: make(map[string]bool),
	}
}

func (f *fakeOutboxRepo) Create(ctx context.Context, db repository.DB, e *event.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	e.ID = f.nextID
	e.Status = event.StatusPending
	stored := *e
	f.rows[e.ID] = &stored
	return nil
}

func (f *fakeOutboxRepo) add(e event.OutboxEvent) *event.OutboxEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e.ID = f.nextID
	if e.Status == "" {
		e.Status = event.StatusPending
	}
	f.rows[e.ID] = &e
	return f.rows[e.ID]
}

func (f *fakeOutboxRepo) ClaimPending(ctx context.Context, limit int) ([]event.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	var pending []*event.OutboxEvent
	for _, e := range f.rows {
		if e.Status == event.StatusPending {
			pending = append(pending, e)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].ID < pending[j].ID
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]event.OutboxEvent, 0, len(pending))
	for _, e := range pending {
		e.Status = event.StatusProcessing
		f.claimedOrder = append(f.claimedOrder, e.EventID)
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeOutboxRepo) MarkProcessed(ctx context.Context, id int64, eventID, eventType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	e, ok := f.rows[id]
	if !ok {
		return errors.New("no such row")
	}
	now := time.Now()
	e.Status = event.StatusProcessed
	e.ProcessedAt = &now
	f.processed[eventID] = true
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok {
		return errors.New("no such row")
	}
	e.Status = event.StatusFailed
	e.RetryCount++
	e.LastError = errMsg
	return nil
}

func (f *fakeOutboxRepo) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processed[eventID], nil
}

func (f *fakeOutboxRepo) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.rows {
		if e.Status == event.StatusProcessing {
			e.Status = event.StatusPending
			n++
		}
	}
	return n, nil
}

func (f *fakeOutboxRepo) RequeueFailed(ctx context.Context, maxRetries int, backoff time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.rows {
		if e.Status == event.StatusFailed && e.RetryCount < maxRetries {
			e.Status = event.StatusPending
			n++
		}
	}
	return n, nil
}

func (f *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, e := range f.rows {
		if e.Status == event.StatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(cutoff) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeOutboxRepo) get(id int64) event.OutboxEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rows[id]
}
