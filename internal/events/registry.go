package events

import (
	"context"
	"sync"
)

// Handler consumes one event. It may do its own I/O but must not touch the
// outbox row the event came from.
type Handler func(ctx context.Context, evt Envelope) error

// Registry maps event types to their handlers. It is constructed once at
// process startup and injected into the dispatcher; registrations are
// rebuilt from a fixed bootstrap list on every start.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]Handler)}
}

// Register appends a handler for the event type. Multiple registrations for
// one type are additive.
func (r *Registry) Register(eventType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = append(r.handlers[eventType], h)
}

// Handlers returns the handlers registered for the event type, in
// registration order. The result is a copy; an unregistered type yields an
// empty slice.
func (r *Registry) Handlers(eventType string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hs := r.handlers[eventType]
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}
