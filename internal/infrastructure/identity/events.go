package identity

import (
	"sort"
	"sync"

	"github.com/edusuite/platform/internal/core/domain"
	"github.com/edusuite/platform/internal/core/ports"
)

// eventHub fans auth state changes out to subscribers. Handlers are invoked
// synchronously in registration order; a handler must not block.
type eventHub struct {
	mu   sync.RWMutex
	subs map[int]func(domain.AuthEvent)
	next int
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[int]func(domain.AuthEvent))}
}

func (h *eventHub) subscribe(handler func(domain.AuthEvent)) ports.UnsubscribeFunc {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = handler
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

func (h *eventHub) emit(event domain.AuthEvent) {
	h.mu.RLock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(domain.AuthEvent), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, h.subs[id])
	}
	h.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
