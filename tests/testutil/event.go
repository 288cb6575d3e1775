// Package testutil holds helpers shared by the ledger's integration tests.
package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/erp/ledger/internal/domain/shared"
)

// RecordingHandler is an EventHandler that keeps what it receives. Pair it
// with assert.Eventually when events arrive asynchronously.
type RecordingHandler struct {
	types []string

	mu     sync.Mutex
	events []shared.DomainEvent
	fail   error
}

func NewRecordingHandler(eventTypes ...string) *RecordingHandler {
	return &RecordingHandler{types: eventTypes}
}

func (h *RecordingHandler) EventTypes() []string { return h.types }

// Handle records event, then returns the error set by FailWith
func (h *RecordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.fail
}

// FailWith makes later Handle calls return err. The event is still recorded.
func (h *RecordingHandler) FailWith(err error) {
	h.mu.Lock()
	h.fail = err
	h.mu.Unlock()
}

// Events returns a copy of everything recorded so far
func (h *RecordingHandler) Events() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.events)
}

func (h *RecordingHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

// First returns the earliest recorded event of type T
func First[T shared.DomainEvent](h *RecordingHandler) (T, bool) {
	for _, e := range h.Events() {
		if typed, ok := e.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}
