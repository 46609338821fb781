package command

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/payment"
	"github.com/shopspring/decimal"
)

// Order Commands

// PlaceOrder is the checkout payload. User is filled in from the
// authenticated identity, never from the body.
type PlaceOrder struct {
	User            order.Owner            `json:"-"`
	OrderItems      []OrderLine            `json:"orderItems"`
	ShippingAddress *order.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   order.PaymentMethod    `json:"paymentMethod"`
	ItemsPrice      decimal.Decimal        `json:"itemsPrice"`
	ShippingPrice   decimal.Decimal        `json:"shippingPrice"`
	TaxPrice        decimal.Decimal        `json:"taxPrice"`
	TotalPrice      decimal.Decimal        `json:"totalPrice"` // ignored, recomputed
}

// Items converts the wire lines to order lines.
func (c PlaceOrder) Items() []order.OrderItem {
	if c.OrderItems == nil {
		return nil
	}
	items := make([]order.OrderItem, len(c.OrderItems))
	for i, l := range c.OrderItems {
		items[i] = l.OrderItem()
	}
	return items
}

// OrderLine is one checkout line as the storefront client sends it: the cart
// item is the product document plus a quantity, so the product ref may come
// as "_id" and the seller may be populated.
type OrderLine struct {
	Product  string          `json:"product"`
	ID       string          `json:"_id"`
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Seller   SellerRef       `json:"seller"`
}

func (l OrderLine) OrderItem() order.OrderItem {
	product := l.Product
	if product == "" {
		product = l.ID
	}
	return order.OrderItem{
		Product:  product,
		Name:     l.Name,
		Image:    l.Image,
		Quantity: l.Quantity,
		Price:    l.Price,
		Seller:   string(l.Seller),
	}
}

// SellerRef is a seller id sent either bare or as a populated {"_id": ...}
// document.
type SellerRef string

func (s *SellerRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var doc struct {
			ID string `json:"_id"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("seller: %w", err)
		}
		*s = SellerRef(doc.ID)
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("seller: %w", err)
	}
	*s = SellerRef(id)
	return nil
}

type PayOrder struct {
	OrderID string
	Receipt payment.Receipt
}

type DeliverOrder struct {
	OrderID string
	AdminID string
}

type DeleteOrder struct {
	OrderID string
	AdminID string
}
