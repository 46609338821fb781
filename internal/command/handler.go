package command

import (
	"context"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/payment"
)

type Handler struct {
	orderSvc   *order.Service
	reconciler *payment.Reconciler
}

func NewHandler(orderSvc *order.Service, reconciler *payment.Reconciler) *Handler {
	return &Handler{
		orderSvc:   orderSvc,
		reconciler: reconciler,
	}
}

// PlaceOrder creates a new unpaid order (read models update via the projector)
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, error) {
	return h.orderSvc.Place(ctx, order.PlaceRequest{
		User:            cmd.User,
		Items:           cmd.Items(),
		ShippingAddress: cmd.ShippingAddress,
		PaymentMethod:   cmd.PaymentMethod,
		Prices: order.Prices{
			Items:    cmd.ItemsPrice,
			Shipping: cmd.ShippingPrice,
			Tax:      cmd.TaxPrice,
		},
	})
}

// GetOrder reads an order from its event stream, not the read model, so a
// client sees its own writes immediately.
func (h *Handler) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	return h.orderSvc.Get(ctx, orderID)
}

// PayOrder verifies the receipt and marks the order paid
func (h *Handler) PayOrder(ctx context.Context, cmd PayOrder) (*order.Order, error) {
	return h.reconciler.ApplyPayment(ctx, cmd.OrderID, cmd.Receipt)
}

func (h *Handler) DeliverOrder(ctx context.Context, cmd DeliverOrder) (*order.Order, error) {
	return h.orderSvc.MarkDelivered(ctx, cmd.OrderID, cmd.AdminID)
}

func (h *Handler) DeleteOrder(ctx context.Context, cmd DeleteOrder) (*order.Order, error) {
	return h.orderSvc.Delete(ctx, cmd.OrderID, cmd.AdminID)
}
