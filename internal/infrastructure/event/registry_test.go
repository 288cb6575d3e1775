package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry(t *testing.T) {
	t.Run("register is idempotent per type", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newTestHandler()
		r.Register(h, "a")
		r.Register(h, "a")
		assert.Len(t, r.Handlers("a"), 1)
	})

	t.Run("typed handlers come before wildcard", func(t *testing.T) {
		r := NewHandlerRegistry()
		typed := newTestHandler()
		wild := newTestHandler()
		r.Register(wild)
		r.Register(typed, "a")

		handlers := r.Handlers("a")
		assert.Len(t, handlers, 2)
		assert.Same(t, typed, handlers[0])
		assert.Same(t, wild, handlers[1])
		assert.Len(t, r.Handlers("b"), 1)
	})

	t.Run("unregister removes from every type", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newTestHandler()
		other := newTestHandler()
		r.Register(h, "a", "b")
		r.Register(other, "b")
		r.Register(h)

		r.Unregister(h)
		assert.Empty(t, r.Handlers("a"))
		assert.Len(t, r.Handlers("b"), 1)
		assert.Equal(t, []string{"b"}, r.Types())
	})

	t.Run("earlier lookups are not affected by later changes", func(t *testing.T) {
		r := NewHandlerRegistry()
		first := newTestHandler()
		r.Register(first, "a")
		snapshot := r.Handlers("a")

		r.Register(newTestHandler(), "a")
		r.Unregister(first)

		assert.Len(t, snapshot, 1)
		assert.Same(t, first, snapshot[0])
	})
}
