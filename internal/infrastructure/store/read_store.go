package store

import (
	"context"
	"sort"
	"sync"

	"github.com/example/storefront/internal/readmodel"
)

// ReadStore is an in-memory order read model store
type ReadStore struct {
	mu     sync.RWMutex
	orders map[string]*readmodel.OrderReadModel
}

func NewReadStore() *ReadStore {
	return &ReadStore{
		orders: make(map[string]*readmodel.OrderReadModel),
	}
}

func (rs *ReadStore) SaveOrder(ctx context.Context, o *readmodel.OrderReadModel) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.orders[o.ID] = o.Clone()
	return nil
}

func (rs *ReadStore) GetOrder(ctx context.Context, id string) (*readmodel.OrderReadModel, bool, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	o, ok := rs.orders[id]
	if !ok {
		return nil, false, nil
	}
	return o.Clone(), true, nil
}

func (rs *ReadStore) UpdateOrder(ctx context.Context, id string, fn func(o *readmodel.OrderReadModel)) (bool, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	current, ok := rs.orders[id]
	if !ok {
		return false, nil
	}
	updated := current.Clone()
	fn(updated)
	rs.orders[id] = updated
	return true, nil
}

func (rs *ReadStore) DeleteOrder(ctx context.Context, id string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.orders, id)
	return nil
}

func (rs *ReadStore) ListOrders(ctx context.Context, filter OrderFilter) ([]*readmodel.OrderReadModel, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	orders := make([]*readmodel.OrderReadModel, 0, len(rs.orders))
	for _, o := range rs.orders {
		if filter.matches(o) {
			orders = append(orders, o.Clone())
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func (rs *ReadStore) Clear(ctx context.Context) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.orders = make(map[string]*readmodel.OrderReadModel)
	return nil
}
