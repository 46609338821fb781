package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.events = append(p.events, event.(Event))
	return p.err
}

func TestEventStore_Append_AssignsVersionsAndPublishes(t *testing.T) {
	publisher := &recordingPublisher{}
	es := NewEventStore(publisher)
	ctx := context.Background()

	first, err := es.Append(ctx, "order-1", "Order", "OrderPlaced", 0, map[string]string{"a": "b"})
	require.NoError(t, err)
	second, err := es.Append(ctx, "order-1", "Order", "OrderPaid", 1, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)
	assert.JSONEq(t, `{"a":"b"}`, string(first.Data))
	assert.Equal(t, []string{"order-1", "order-1"}, publisher.keys)

	events, err := es.GetEvents(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "OrderPaid", events[1].EventType)
}

func TestEventStore_Append_VersionConflict(t *testing.T) {
	es := NewEventStore(nil)
	ctx := context.Background()

	_, err := es.Append(ctx, "order-1", "Order", "OrderPlaced", 0, nil)
	require.NoError(t, err)

	_, err = es.Append(ctx, "order-1", "Order", "OrderPaid", 0, nil)
	assert.ErrorIs(t, err, ErrVersionConflict)

	_, err = es.Append(ctx, "order-1", "Order", "OrderPaid", 5, nil)
	assert.ErrorIs(t, err, ErrVersionConflict)

	events, _ := es.GetEvents(ctx, "order-1")
	assert.Len(t, events, 1)
}

func TestEventStore_Append_ConcurrentWritersOneWins(t *testing.T) {
	es := NewEventStore(nil)
	ctx := context.Background()
	_, err := es.Append(ctx, "order-1", "Order", "OrderPlaced", 0, nil)
	require.NoError(t, err)

	const writers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := es.Append(ctx, "order-1", "Order", "OrderPaid", 1, nil); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestEventStore_PublishFailureDoesNotFailAppend(t *testing.T) {
	es := NewEventStore(&recordingPublisher{err: errors.New("broker down")})

	event, err := es.Append(context.Background(), "order-1", "Order", "OrderPlaced", 0, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, event.Version)
}

func TestEventStore_GetAllEvents_AppendOrder(t *testing.T) {
	es := NewEventStore(nil)
	ctx := context.Background()
	_, _ = es.Append(ctx, "b", "Order", "OrderPlaced", 0, nil)
	_, _ = es.Append(ctx, "a", "Order", "OrderPlaced", 0, nil)
	_, _ = es.Append(ctx, "b", "Order", "OrderPaid", 1, nil)

	all, err := es.GetAllEvents(ctx)

	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"b", "a", "b"}, []string{all[0].AggregateID, all[1].AggregateID, all[2].AggregateID})
}
