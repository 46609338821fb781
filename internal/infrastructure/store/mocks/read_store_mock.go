package mocks

import (
	"context"
	"sync"

	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/readmodel"
)

// MockReadStore is a mock implementation of OrderReadStore for testing.
// Storage is delegated to the in-memory ReadStore.
type MockReadStore struct {
	mu    sync.Mutex
	inner *store.ReadStore

	// For tracking calls in tests
	SaveCalls   []string
	UpdateCalls []string
	DeleteCalls []string
	ListCalls   []store.OrderFilter

	SaveErr error
	ListErr error
}

// NewMockReadStore creates a new MockReadStore
func NewMockReadStore() *MockReadStore {
	return &MockReadStore{inner: store.NewReadStore()}
}

func (m *MockReadStore) SaveOrder(ctx context.Context, o *readmodel.OrderReadModel) error {
	m.mu.Lock()
	m.SaveCalls = append(m.SaveCalls, o.ID)
	err := m.SaveErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.inner.SaveOrder(ctx, o)
}

func (m *MockReadStore) GetOrder(ctx context.Context, id string) (*readmodel.OrderReadModel, bool, error) {
	return m.inner.GetOrder(ctx, id)
}

func (m *MockReadStore) UpdateOrder(ctx context.Context, id string, fn func(o *readmodel.OrderReadModel)) (bool, error) {
	m.mu.Lock()
	m.UpdateCalls = append(m.UpdateCalls, id)
	m.mu.Unlock()
	return m.inner.UpdateOrder(ctx, id, fn)
}

func (m *MockReadStore) DeleteOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, id)
	m.mu.Unlock()
	return m.inner.DeleteOrder(ctx, id)
}

func (m *MockReadStore) ListOrders(ctx context.Context, filter store.OrderFilter) ([]*readmodel.OrderReadModel, error) {
	m.mu.Lock()
	m.ListCalls = append(m.ListCalls, filter)
	err := m.ListErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.inner.ListOrders(ctx, filter)
}

func (m *MockReadStore) Clear(ctx context.Context) error {
	return m.inner.Clear(ctx)
}

// SetOrder stores a model directly for testing (without recording the call)
func (m *MockReadStore) SetOrder(o *readmodel.OrderReadModel) {
	_ = m.inner.SaveOrder(context.Background(), o)
}
