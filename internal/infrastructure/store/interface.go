package store

import (
	"context"
	"errors"
)

// ErrVersionConflict is returned by Append when another writer already
// stored an event at the expected version of the aggregate.
var ErrVersionConflict = errors.New("aggregate version conflict")

// EventStoreInterface defines the interface for event stores.
//
// Append stores the event as version expectedVersion+1 and must fail with
// ErrVersionConflict if that version is already taken.
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, expectedVersion int, data any) (*Event, error)
	GetEvents(ctx context.Context, aggregateID string) ([]Event, error)
	GetAllEvents(ctx context.Context) ([]Event, error)
}

// Publisher fans stored events out to downstream consumers (Kafka or an
// in-process projector).
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}
