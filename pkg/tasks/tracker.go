package tasks

import (
	"sync"
	"time"
)

// Tracker owns background goroutines spawned by request handling, so that a
// shutting-down process can drain them instead of dropping writes mid-flight.
type Tracker struct {
	wg sync.WaitGroup
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Go runs fn on its own goroutine and tracks its lifetime.
func (t *Tracker) Go(fn func()) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn()
	}()
}

// Wait blocks until all tracked tasks finish or the timeout elapses.
// Returns false on timeout.
func (t *Tracker) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
