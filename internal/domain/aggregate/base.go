package aggregate

import (
	"context"
	"fmt"

	"github.com/example/storefront/internal/infrastructure/store"
)

// Aggregate defines the interface for event-sourced aggregates
type Aggregate interface {
	GetID() string
	GetVersion() int
	ApplyEvent(store.Event) error
}

// Load rebuilds an aggregate by replaying its events.
// Returns the aggregate, a boolean indicating if any event was found, and any error.
func Load[T Aggregate](
	ctx context.Context,
	eventStore store.EventStoreInterface,
	id string,
	newAggregate func() T,
) (T, bool, error) {
	agg := newAggregate()

	events, err := eventStore.GetEvents(ctx, id)
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("failed to load events: %w", err)
	}

	for _, event := range events {
		if err := agg.ApplyEvent(event); err != nil {
			var zero T
			return zero, false, fmt.Errorf("failed to apply event %s: %w", event.EventType, err)
		}
	}

	return agg, len(events) > 0, nil
}
