package readmodel

import (
	"time"

	"github.com/shopspring/decimal"
)

// OwnerReadModel is the buyer snapshot taken at checkout
type OwnerReadModel struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// OrderItemReadModel represents an item in an order
type OrderItemReadModel struct {
	Product  string          `json:"product"`
	Name     string          `json:"name"`
	Image    string          `json:"image,omitempty"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Seller   string          `json:"seller,omitempty"`
}

type ShippingAddressReadModel struct {
	FullName   string   `json:"fullName"`
	Address    string   `json:"address"`
	City       string   `json:"city"`
	PostalCode string   `json:"postalCode"`
	Country    string   `json:"country"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
}

type PaymentResultReadModel struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

// OrderReadModel is the read model for orders. Its JSON shape is the one
// served by the order list endpoints.
type OrderReadModel struct {
	ID              string                   `json:"_id"`
	User            OwnerReadModel           `json:"user"`
	Seller          string                   `json:"seller,omitempty"`
	OrderItems      []OrderItemReadModel     `json:"orderItems"`
	ShippingAddress ShippingAddressReadModel `json:"shippingAddress"`
	PaymentMethod   string                   `json:"paymentMethod"`
	PaymentResult   *PaymentResultReadModel  `json:"paymentResult,omitempty"`
	ItemsPrice      decimal.Decimal          `json:"itemsPrice"`
	ShippingPrice   decimal.Decimal          `json:"shippingPrice"`
	TaxPrice        decimal.Decimal          `json:"taxPrice"`
	TotalPrice      decimal.Decimal          `json:"totalPrice"`
	IsPaid          bool                     `json:"isPaid"`
	PaidAt          *time.Time               `json:"paidAt,omitempty"`
	IsDelivered     bool                     `json:"isDelivered"`
	DeliveredAt     *time.Time               `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
	// Version of the last projected event; redelivered events are skipped.
	Version int `json:"-"`
}

// Clone returns a deep copy so stored models are never shared with callers.
func (o *OrderReadModel) Clone() *OrderReadModel {
	c := *o
	c.OrderItems = append([]OrderItemReadModel(nil), o.OrderItems...)
	if o.PaymentResult != nil {
		pr := *o.PaymentResult
		c.PaymentResult = &pr
	}
	if o.PaidAt != nil {
		t := *o.PaidAt
		c.PaidAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		c.DeliveredAt = &t
	}
	return &c
}
