package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/google/uuid"
)

// MockEventStore is a mock implementation of EventStoreInterface for testing
type MockEventStore struct {
	mu     sync.RWMutex
	events map[string][]store.Event
	order  []store.Event

	// For tracking calls in tests
	AppendCalls    []AppendCall
	AppendErr      error
	GetEventsErr   error
	AppendCallback func(ctx context.Context, call AppendCall) (*store.Event, error)
}

// AppendCall records parameters passed to Append
type AppendCall struct {
	AggregateID     string
	AggregateType   string
	EventType       string
	ExpectedVersion int
	Data            any
}

// NewMockEventStore creates a new MockEventStore
func NewMockEventStore() *MockEventStore {
	return &MockEventStore{
		events:      make(map[string][]store.Event),
		AppendCalls: make([]AppendCall, 0),
	}
}

// Append records the call and stores the event with the same version check
// as the real stores. A callback, if set, runs before the check and may
// return an event or error to short-circuit it.
func (m *MockEventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, expectedVersion int, data any) (*store.Event, error) {
	call := AppendCall{
		AggregateID:     aggregateID,
		AggregateType:   aggregateType,
		EventType:       eventType,
		ExpectedVersion: expectedVersion,
		Data:            data,
	}

	m.mu.Lock()
	m.AppendCalls = append(m.AppendCalls, call)
	callback := m.AppendCallback
	appendErr := m.AppendErr
	m.mu.Unlock()

	// Callback runs unlocked so it can call AddEvent to simulate a racing writer
	if callback != nil {
		event, err := callback(ctx, call)
		if event != nil || err != nil {
			return event, err
		}
	}

	if appendErr != nil {
		return nil, appendErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.events[aggregateID]) != expectedVersion {
		return nil, store.ErrVersionConflict
	}

	event, err := m.newEvent(aggregateID, aggregateType, eventType, data)
	if err != nil {
		return nil, err
	}
	m.events[aggregateID] = append(m.events[aggregateID], event)
	m.order = append(m.order, event)
	return &event, nil
}

// GetEvents returns events for an aggregate
func (m *MockEventStore) GetEvents(ctx context.Context, aggregateID string) ([]store.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetEventsErr != nil {
		return nil, m.GetEventsErr
	}
	events := make([]store.Event, len(m.events[aggregateID]))
	copy(events, m.events[aggregateID])
	return events, nil
}

// GetAllEvents returns all events in append order
func (m *MockEventStore) GetAllEvents(ctx context.Context) ([]store.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]store.Event, len(m.order))
	copy(all, m.order)
	return all, nil
}

// Reset clears all events and recorded calls
func (m *MockEventStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = make(map[string][]store.Event)
	m.order = nil
	m.AppendCalls = make([]AppendCall, 0)
	m.AppendErr = nil
	m.GetEventsErr = nil
	m.AppendCallback = nil
}

// Calls returns a copy of the recorded Append calls
func (m *MockEventStore) Calls() []AppendCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]AppendCall, len(m.AppendCalls))
	copy(calls, m.AppendCalls)
	return calls
}

// AddEvent adds a single event for testing, bypassing call tracking
func (m *MockEventStore) AddEvent(aggregateID, aggregateType, eventType string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	event, err := m.newEvent(aggregateID, aggregateType, eventType, data)
	if err != nil {
		return err
	}
	m.events[aggregateID] = append(m.events[aggregateID], event)
	m.order = append(m.order, event)
	return nil
}

func (m *MockEventStore) newEvent(aggregateID, aggregateType, eventType string, data any) (store.Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return store.Event{}, err
	}
	return store.Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
		Version:       len(m.events[aggregateID]) + 1,
	}, nil
}
