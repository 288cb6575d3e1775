package event

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/erp/ledger/internal/domain/shared"
)

// routes is an immutable routing table; every change swaps in a new one
type routes struct {
	byType map[string][]shared.EventHandler
	all    []shared.EventHandler
}

// HandlerRegistry maps event types to handlers. Lookups never take a lock.
type HandlerRegistry struct {
	mu      sync.Mutex
	current atomic.Pointer[routes]
}

func NewHandlerRegistry() *HandlerRegistry {
	r := &HandlerRegistry{}
	r.current.Store(&routes{byType: map[string][]shared.EventHandler{}})
	return r
}

// Register adds handler for eventTypes, or for every type when none are
// given. A handler is listed at most once per type.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.update(func(next *routes) {
		if len(eventTypes) == 0 {
			next.all = withHandler(next.all, handler)
			return
		}
		for _, t := range eventTypes {
			next.byType[t] = withHandler(next.byType[t], handler)
		}
	})
}

// Unregister drops handler from every type, wildcard included
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.update(func(next *routes) {
		next.all = without(next.all, handler)
		for t, hs := range next.byType {
			if hs = without(hs, handler); len(hs) == 0 {
				delete(next.byType, t)
			} else {
				next.byType[t] = hs
			}
		}
	})
}

// Handlers returns the handlers for eventType, typed ones first. The
// returned slice must not be modified.
func (r *HandlerRegistry) Handlers(eventType string) []shared.EventHandler {
	cur := r.current.Load()
	typed := cur.byType[eventType]
	switch {
	case len(cur.all) == 0:
		return typed
	case len(typed) == 0:
		return cur.all
	}
	return slices.Concat(typed, cur.all)
}

// Types lists the event types that have a typed handler
func (r *HandlerRegistry) Types() []string {
	cur := r.current.Load()
	types := make([]string, 0, len(cur.byType))
	for t := range cur.byType {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

func (r *HandlerRegistry) update(mutate func(next *routes)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current.Load()
	next := &routes{
		byType: make(map[string][]shared.EventHandler, len(cur.byType)),
		all:    slices.Clone(cur.all),
	}
	for t, hs := range cur.byType {
		next.byType[t] = slices.Clone(hs)
	}
	mutate(next)
	r.current.Store(next)
}

func withHandler(hs []shared.EventHandler, h shared.EventHandler) []shared.EventHandler {
	if slices.Contains(hs, h) {
		return hs
	}
	return append(hs, h)
}

func without(hs []shared.EventHandler, h shared.EventHandler) []shared.EventHandler {
	return slices.DeleteFunc(hs, func(x shared.EventHandler) bool { return x == h })
}
