package event

import (
	"sync"

	"github.com/erp/stockcore/internal/domain/shared"
)

type subscription struct {
	handler shared.EventHandler
	types   map[string]struct{} // nil receives every event
}

func (s *subscription) wants(eventType string) bool {
	_, ok := s.types[eventType]
	return ok
}

// HandlerRegistry keeps bus subscriptions in registration order. A handler registered
// without event types is a wildcard and receives every event after the type-specific
// handlers have run.
type HandlerRegistry struct {
	mu   sync.RWMutex
	subs []*subscription
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

func (r *HandlerRegistry) find(handler shared.EventHandler) *subscription {
	for _, s := range r.subs {
		if s.handler == handler {
			return s
		}
	}
	return nil
}

// Register subscribes handler to eventTypes. Registering a known handler again widens
// its subscription; registering it without types makes it a wildcard.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.find(handler)
	if s == nil {
		s = &subscription{handler: handler, types: map[string]struct{}{}}
		r.subs = append(r.subs, s)
	}
	if len(eventTypes) == 0 {
		s.types = nil
		return
	}
	if s.types == nil {
		return
	}
	for _, t := range eventTypes {
		s.types[t] = struct{}{}
	}
}

func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.subs[:0]
	for _, s := range r.subs {
		if s.handler != handler {
			kept = append(kept, s)
		}
	}
	r.subs = kept
}

// GetHandlers returns the handlers for eventType: type-specific ones first, then wildcards.
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var specific, wildcard []shared.EventHandler
	for _, s := range r.subs {
		switch {
		case s.types == nil:
			wildcard = append(wildcard, s.handler)
		case s.wants(eventType):
			specific = append(specific, s.handler)
		}
	}
	return append(specific, wildcard...)
}

// Count returns the number of subscribed handlers.
func (r *HandlerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
