package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
)

// ErrUnknownEventType is returned when decoding an outbox payload whose type has no
// registered payload struct.
var ErrUnknownEventType = errors.New("unknown event type")

// EventSerializer turns domain events into outbox payloads and back. Several event
// types may share one payload struct (all reservation transitions use
// ReservationEvent), so decoding is keyed by event type, not Go type.
type EventSerializer struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewEventSerializer returns an empty serializer.
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{types: make(map[string]reflect.Type)}
}

// NewStockEventSerializer returns a serializer that knows every stock event. The outbox
// processor cannot deliver an entry whose type is missing here.
func NewStockEventSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.RegisterAll(inventory.EventPrototypes())
	return s
}

// Register binds eventType to the payload struct of proto.
func (s *EventSerializer) Register(eventType string, proto shared.DomainEvent) {
	t := reflect.TypeOf(proto)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.mu.Lock()
	s.types[eventType] = t
	s.mu.Unlock()
}

func (s *EventSerializer) RegisterAll(prototypes map[string]shared.DomainEvent) {
	for eventType, proto := range prototypes {
		s.Register(eventType, proto)
	}
}

func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes data into a fresh payload struct for eventType. A payload that
// names a different type than the outbox row is rejected.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.types[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	event, ok := reflect.New(t).Interface().(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("payload %s for %s is not a domain event", t, eventType)
	}
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	if got := event.EventType(); got != "" && got != eventType {
		return nil, fmt.Errorf("decode %s: payload carries type %s", eventType, got)
	}
	return event, nil
}

func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.types[eventType]
	return ok
}

// RegisteredTypes lists the known event types in sorted order.
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.types))
	for t := range s.types {
		out = append(out, t)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}
