package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced    = "OrderPlaced"
	EventOrderPaid      = "OrderPaid"
	EventOrderDelivered = "OrderDelivered"
	EventOrderDeleted   = "OrderDeleted"
)

type OrderPlaced struct {
	OrderID         string          `json:"order_id"`
	User            Owner           `json:"user"`
	Seller          string          `json:"seller,omitempty"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	ItemsPrice      decimal.Decimal `json:"items_price"`
	ShippingPrice   decimal.Decimal `json:"shipping_price"`
	TaxPrice        decimal.Decimal `json:"tax_price"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	PlacedAt        time.Time       `json:"placed_at"`
}

type OrderPaid struct {
	OrderID       string        `json:"order_id"`
	PaymentResult PaymentResult `json:"payment_result"`
	PaidAt        time.Time     `json:"paid_at"`
}

type OrderDelivered struct {
	OrderID     string    `json:"order_id"`
	DeliveredBy string    `json:"delivered_by"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type OrderDeleted struct {
	OrderID   string    `json:"order_id"`
	DeletedBy string    `json:"deleted_by"`
	DeletedAt time.Time `json:"deleted_at"`
}
