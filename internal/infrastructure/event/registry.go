package event

import (
	"slices"
	"sync"

	"github.com/fleetrent/backend/internal/domain/shared"
)

// HandlerRegistry tracks which handlers receive which event types.
// Handlers registered without event types are wildcard and receive everything.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	wildcard []shared.EventHandler
}

// NewHandlerRegistry creates an empty handler registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string][]shared.EventHandler),
	}
}

// Register adds a handler for the given event types, or as a wildcard
// handler when none are given.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(eventTypes) == 0 {
		r.wildcard = append(r.wildcard, handler)
		return
	}

	for _, eventType := range eventTypes {
		r.handlers[eventType] = append(r.handlers[eventType], handler)
	}
}

// Unregister removes a handler from the wildcard list and every event type.
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sameHandler := func(h shared.EventHandler) bool { return h == handler }

	r.wildcard = slices.DeleteFunc(r.wildcard, sameHandler)

	for eventType, handlers := range r.handlers {
		handlers = slices.DeleteFunc(handlers, sameHandler)
		if len(handlers) == 0 {
			delete(r.handlers, eventType)
		} else {
			r.handlers[eventType] = handlers
		}
	}
}

// GetHandlers returns the handlers for an event type, type-specific
// handlers first, then wildcards.
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Concat(r.handlers[eventType], r.wildcard)
}

// GetAllHandlers returns every registered handler exactly once.
func (r *HandlerRegistry) GetAllHandlers() []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[shared.EventHandler]bool)
	result := make([]shared.EventHandler, 0, len(r.wildcard))

	appendUnseen := func(handlers []shared.EventHandler) {
		for _, h := range handlers {
			if !seen[h] {
				seen[h] = true
				result = append(result, h)
			}
		}
	}

	appendUnseen(r.wildcard)
	for _, handlers := range r.handlers {
		appendUnseen(handlers)
	}

	return result
}
