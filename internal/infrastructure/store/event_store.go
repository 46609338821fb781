package store

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// MessageType labels the event on the broker.
func (e Event) MessageType() string { return e.EventType }

// EventStore is an in-memory event store. It is the default backend when no
// database is configured and is what the API tests run against.
type EventStore struct {
	mu        sync.RWMutex
	events    map[string][]Event // aggregateID -> events
	order     []Event            // global append order
	publisher Publisher
}

func NewEventStore(publisher Publisher) *EventStore {
	return &EventStore{
		events:    make(map[string][]Event),
		publisher: publisher,
	}
}

// Append stores an event and publishes it
func (es *EventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, expectedVersion int, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	es.mu.Lock()
	if len(es.events[aggregateID]) != expectedVersion {
		es.mu.Unlock()
		return nil, ErrVersionConflict
	}
	event := Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
		Version:       expectedVersion + 1,
	}
	es.events[aggregateID] = append(es.events[aggregateID], event)
	es.order = append(es.order, event)
	es.mu.Unlock()

	publish(ctx, es.publisher, event)
	return &event, nil
}

// GetEvents returns all events for an aggregate
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	events := make([]Event, len(es.events[aggregateID]))
	copy(events, es.events[aggregateID])
	return events, nil
}

// GetAllEvents returns all events in append order
func (es *EventStore) GetAllEvents(ctx context.Context) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	all := make([]Event, len(es.order))
	copy(all, es.order)
	return all, nil
}

// publish hands a stored event to the publisher. The event is already
// durable at this point, so a failure only delays projections until the
// next replay and is not reported to the writer.
func publish(ctx context.Context, publisher Publisher, event Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event.AggregateID, event); err != nil {
		log.Printf("[EventStore] Failed to publish event %s (%s): %v", event.ID, event.EventType, err)
	}
}
