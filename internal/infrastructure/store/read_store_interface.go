package store

import (
	"context"

	"github.com/example/storefront/internal/readmodel"
)

// OrderFilter narrows ListOrders. Empty fields match everything.
type OrderFilter struct {
	UserID   string
	SellerID string
}

func (f OrderFilter) matches(o *readmodel.OrderReadModel) bool {
	if f.UserID != "" && o.User.ID != f.UserID {
		return false
	}
	if f.SellerID != "" && o.Seller != f.SellerID {
		return false
	}
	return true
}

// OrderReadStore defines the interface for order read model storage
type OrderReadStore interface {
	// SaveOrder inserts or replaces a read model
	SaveOrder(ctx context.Context, o *readmodel.OrderReadModel) error

	// GetOrder retrieves a read model by id
	GetOrder(ctx context.Context, id string) (*readmodel.OrderReadModel, bool, error)

	// UpdateOrder applies fn to the stored model; false if it does not exist
	UpdateOrder(ctx context.Context, id string, fn func(o *readmodel.OrderReadModel)) (bool, error)

	// DeleteOrder removes a read model
	DeleteOrder(ctx context.Context, id string) error

	// ListOrders returns matching orders, oldest first
	ListOrders(ctx context.Context, filter OrderFilter) ([]*readmodel.OrderReadModel, error)

	// Clear drops every read model before a replay
	Clear(ctx context.Context) error
}
