package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"salespipe/internal/domain/event"
	"salespipe/internal/events"
	"salespipe/internal/repository"
	"salespipe/pkg/logger"
)

// Options tunes the dispatcher loop.
type Options struct {
	BatchSize      int
	PollInterval   time.Duration
	HandlerTimeout time.Duration

	// Sweep settings used by RunSweeps.
	SweepInterval     time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	StaleClaimTimeout time.Duration
	RetentionPeriod   time.Duration
}

func DefaultOptions() Options {
	return Options{
		BatchSize:         50,
		PollInterval:      time.Second,
		HandlerTimeout:    30 * time.Second,
		SweepInterval:     30 * time.Second,
		MaxRetries:        5,
		RetryBackoff:      time.Minute,
		StaleClaimTimeout: 5 * time.Minute,
		RetentionPeriod:   7 * 24 * time.Hour,
	}
}

// Dispatcher drains the outbox and delivers events to registered handlers,
// at least once, in creation order at the claim level.
type Dispatcher struct {
	repo     repository.OutboxRepository
	registry *events.Registry
	log      *logger.Logger
	opts     Options
}

func NewDispatcher(repo repository.OutboxRepository, registry *events.Registry, log *logger.Logger, opts Options) *Dispatcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 30 * time.Second
	}
	return &Dispatcher{repo: repo, registry: registry, log: log, opts: opts}
}

// ProcessOnce runs a single poll cycle: claim a batch, settle every entry,
// return how many were dispatched and marked processed. Entries settle
// independently; one entry's handler failure never aborts the batch.
func (d *Dispatcher) ProcessOnce(ctx context.Context) (int, error) {
	batch, err := d.repo.ClaimPending(ctx, d.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim batch: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		processed int
	)
	for _, entry := range batch {
		wg.Add(1)
		go func(e event.OutboxEvent) {
			defer wg.Done()
			if d.processEntry(ctx, e) {
				mu.Lock()
				processed++
				mu.Unlock()
			}
		}(entry)
	}
	wg.Wait()
	return processed, nil
}

// processEntry settles one claimed entry. Returns true when the entry ended
// up dispatched and marked processed this cycle.
func (d *Dispatcher) processEntry(ctx context.Context, e event.OutboxEvent) bool {
	already, err := d.repo.IsProcessed(ctx, e.EventID)
	if err != nil {
		d.fail(ctx, e, fmt.Errorf("idempotency check: %w", err))
		return false
	}
	if already {
		// A prior run already delivered this event's effects; close out the
		// outbox row without redelivering.
		if err := d.repo.MarkProcessed(ctx, e.ID, e.EventID, e.EventType); err != nil {
			d.log.Errorf("mark replayed event %s processed: %s", e.EventID, err)
		}
		return false
	}

	handlers := d.registry.Handlers(e.EventType)
	if len(handlers) == 0 {
		d.log.Debugf("no handlers for event type %s", e.EventType)
		if err := d.repo.MarkProcessed(ctx, e.ID, e.EventID, e.EventType); err != nil {
			d.log.Errorf("mark unhandled event %s processed: %s", e.EventID, err)
			return false
		}
		return true
	}

	env, err := toEnvelope(e)
	if err != nil {
		d.fail(ctx, e, err)
		return false
	}

	if err := d.invokeAll(ctx, handlers, env); err != nil {
		d.fail(ctx, e, err)
		return false
	}

	if err := d.repo.MarkProcessed(ctx, e.ID, e.EventID, e.EventType); err != nil {
		d.log.Errorf("mark event %s processed: %s", e.EventID, err)
		return false
	}
	return true
}

// invokeAll fans out to every handler concurrently and waits for all of them
// to settle; a failing handler never cancels its siblings.
func (d *Dispatcher) invokeAll(ctx context.Context, handlers []events.Handler, env events.Envelope) error {
	errs := make([]error, len(handlers))
	var wg sync.WaitGroup
	for i, h := range handlers {
		wg.Add(1)
		go func(i int, h events.Handler) {
			defer wg.Done()
			errs[i] = d.invoke(ctx, h, env)
		}(i, h)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (d *Dispatcher) invoke(ctx context.Context, h events.Handler, env events.Envelope) (err error) {
	if d.opts.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.HandlerTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h(ctx, env)
}

func (d *Dispatcher) fail(ctx context.Context, e event.OutboxEvent, cause error) {
	d.log.Errorf("event %s (%s) failed: %s", e.EventID, e.EventType, cause)
	if err := d.repo.MarkFailed(ctx, e.ID, cause.Error()); err != nil {
		d.log.Errorf("mark event %s failed: %s", e.EventID, err)
	}
}

// Run polls until ctx is cancelled. An idle cycle sleeps the poll interval;
// a failed cycle sleeps twice that so a down store is not hot-looped. The
// stop signal is honored between cycles only.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Infof("event dispatcher started (batch=%d poll=%s)", d.opts.BatchSize, d.opts.PollInterval)
	for {
		processed, err := d.ProcessOnce(ctx)

		delay := time.Duration(0)
		switch {
		case err != nil:
			if ctx.Err() == nil {
				d.log.Errorf("dispatcher cycle: %s", err)
			}
			delay = 2 * d.opts.PollInterval
		case processed == 0:
			delay = d.opts.PollInterval
		}

		if delay == 0 {
			if ctx.Err() != nil {
				d.log.Infof("event dispatcher stopped")
				return
			}
			continue
		}
		select {
		case <-ctx.Done():
			d.log.Infof("event dispatcher stopped")
			return
		case <-time.After(delay):
		}
	}
}

// RunSweeps periodically requeues retryable failures, releases claims
// stranded by crashed dispatchers, and prunes old processed rows.
func (d *Dispatcher) RunSweeps(ctx context.Context) {
	ticker := time.NewTicker(d.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := d.repo.RequeueFailed(ctx, d.opts.MaxRetries, d.opts.RetryBackoff); err != nil {
				d.log.Errorf("requeue failed events: %s", err)
			} else if n > 0 {
				d.log.Infof("requeued %d failed events", n)
			}
			if n, err := d.repo.ReleaseStale(ctx, d.opts.StaleClaimTimeout); err != nil {
				d.log.Errorf("release stale claims: %s", err)
			} else if n > 0 {
				d.log.Warnf("released %d stale claims", n)
			}
			if d.opts.RetentionPeriod > 0 {
				cutoff := time.Now().Add(-d.opts.RetentionPeriod)
				if _, err := d.repo.DeleteProcessedBefore(ctx, cutoff); err != nil {
					d.log.Errorf("prune processed events: %s", err)
				}
			}
		}
	}
}

func toEnvelope(e event.OutboxEvent) (events.Envelope, error) {
	var md events.Metadata
	if len(e.Metadata) > 0 {
		if err := json.Unmarshal(e.Metadata, &md); err != nil {
			return events.Envelope{}, fmt.Errorf("unmarshal event metadata: %w", err)
		}
	}
	if md.Version == 0 {
		md.Version = 1
	}
	return events.Envelope{
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		TenantID:      e.TenantID,
		Payload:       json.RawMessage(e.Payload),
		Metadata:      md,
		OccurredAt:    e.CreatedAt,
	}, nil
}
