package order

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/example/storefront/internal/domain/aggregate"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateType = "Order"

// maxConflictRetries bounds how often a command is re-run after another
// process appended to the same order first.
const maxConflictRetries = 3

// ErrValidation is matched (via errors.Is) by every input or precondition
// failure of this package.
var ErrValidation = errors.New("invalid order request")

type validationError struct{ msg string }

func (e *validationError) Error() string        { return e.msg }
func (e *validationError) Is(target error) bool { return target == ErrValidation }

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrEmptyCart            error = &validationError{"Cart is empty"}
	ErrMissingAddress       error = &validationError{"Shipping address is required"}
	ErrInvalidPaymentMethod error = &validationError{"Unsupported payment method"}
	ErrInvalidLine          error = &validationError{"Order lines need a product, a quantity of at least 1 and a non-negative price"}
	ErrNegativePrice        error = &validationError{"Prices must not be negative"}
	ErrPriceMismatch        error = &validationError{"Items price does not match order lines"}
	ErrOrderNotPaid         error = &validationError{"Order is not paid"}
)

type PaymentMethod string

const (
	PaymentPayPal         PaymentMethod = "PayPal"
	PaymentStripe         PaymentMethod = "Stripe"
	PaymentCashOnDelivery PaymentMethod = "CashOnDelivery"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentPayPal, PaymentStripe, PaymentCashOnDelivery:
		return true
	}
	return false
}

type OrderItem struct {
	Product  string          `json:"product"`
	Name     string          `json:"name"`
	Image    string          `json:"image,omitempty"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Seller   string          `json:"seller,omitempty"`
}

type ShippingAddress struct {
	FullName   string   `json:"fullName"`
	Address    string   `json:"address"`
	City       string   `json:"city"`
	PostalCode string   `json:"postalCode"`
	Country    string   `json:"country"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
}

// Complete reports whether every mandatory address field is filled in.
func (a ShippingAddress) Complete() bool {
	for _, v := range []string{a.FullName, a.Address, a.City, a.PostalCode, a.Country} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// PaymentResult is the provider receipt recorded when an order is paid.
type PaymentResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

// Owner is the buyer as known from the authenticated identity at checkout.
type Owner struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Order struct {
	ID              string          `json:"_id"`
	User            Owner           `json:"user"`
	Seller          string          `json:"seller,omitempty"`
	OrderItems      []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentResult   *PaymentResult  `json:"paymentResult,omitempty"`
	ItemsPrice      decimal.Decimal `json:"itemsPrice"`
	ShippingPrice   decimal.Decimal `json:"shippingPrice"`
	TaxPrice        decimal.Decimal `json:"taxPrice"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	IsDelivered     bool            `json:"isDelivered"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Deleted         bool            `json:"-"`
	Version         int             `json:"-"` // Current event version
}

// Aggregate interface implementation
func (o *Order) GetID() string   { return o.ID }
func (o *Order) GetVersion() int { return o.Version }

// ApplyEvent applies a single event to the order state (implements aggregate.Aggregate).
// paidAt and deliveredAt are only ever set once.
func (o *Order) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventOrderPlaced:
		var data OrderPlaced
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.ID = data.OrderID
		o.User = data.User
		o.Seller = data.Seller
		o.OrderItems = data.Items
		o.ShippingAddress = data.ShippingAddress
		o.PaymentMethod = data.PaymentMethod
		o.ItemsPrice = data.ItemsPrice
		o.ShippingPrice = data.ShippingPrice
		o.TaxPrice = data.TaxPrice
		o.TotalPrice = data.TotalPrice
		o.CreatedAt = data.PlacedAt
		o.UpdatedAt = data.PlacedAt
	case EventOrderPaid:
		var data OrderPaid
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if !o.IsPaid {
			result := data.PaymentResult
			paidAt := data.PaidAt
			o.IsPaid = true
			o.PaidAt = &paidAt
			o.PaymentResult = &result
			o.UpdatedAt = data.PaidAt
		}
	case EventOrderDelivered:
		var data OrderDelivered
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if !o.IsDelivered {
			deliveredAt := data.DeliveredAt
			o.IsDelivered = true
			o.DeliveredAt = &deliveredAt
			o.UpdatedAt = data.DeliveredAt
		}
	case EventOrderDeleted:
		o.Deleted = true
	}
	o.Version = event.Version
	return nil
}

// PlaceRequest is the checkout payload turned into an order.
type PlaceRequest struct {
	User            Owner
	Items           []OrderItem
	ShippingAddress *ShippingAddress
	PaymentMethod   PaymentMethod
	Prices          Prices
}

type Service struct {
	eventStore    store.EventStoreInterface
	locks         *aggregate.KeyedMutex
	strictPricing bool
	now           func() time.Time
}

type Option func(*Service)

// WithStrictPricing toggles validation of itemsPrice against the order lines.
func WithStrictPricing(strict bool) Option {
	return func(s *Service) { s.strictPricing = strict }
}

// WithClock overrides the time source used for placedAt/paidAt/deliveredAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(es store.EventStoreInterface, opts ...Option) *Service {
	s := &Service{
		eventStore:    es,
		locks:         aggregate.NewKeyedMutex(),
		strictPricing: true,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loadOrder loads an order by replaying its events
func (s *Service) loadOrder(ctx context.Context, orderID string) (*Order, error) {
	order, found, err := aggregate.Load(ctx, s.eventStore, orderID, func() *Order {
		return &Order{}
	})
	if err != nil {
		return nil, err
	}
	if !found || order.Deleted {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Place validates the checkout payload and persists a new unpaid, undelivered order.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.Product) == "" || item.Quantity < 1 || item.Price.IsNegative() {
			return nil, ErrInvalidLine
		}
	}
	if req.ShippingAddress == nil || !req.ShippingAddress.Complete() {
		return nil, ErrMissingAddress
	}
	if !req.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	prices, err := req.Prices.normalize(req.Items, s.strictPricing)
	if err != nil {
		return nil, err
	}

	items := make([]OrderItem, len(req.Items))
	copy(items, req.Items)

	event := OrderPlaced{
		OrderID:         uuid.New().String(),
		User:            req.User,
		Seller:          items[0].Seller,
		Items:           items,
		ShippingAddress: *req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ItemsPrice:      prices.Items,
		ShippingPrice:   prices.Shipping,
		TaxPrice:        prices.Tax,
		TotalPrice:      prices.Total,
		PlacedAt:        s.now().UTC(),
	}

	stored, err := s.eventStore.Append(ctx, event.OrderID, AggregateType, EventOrderPlaced, 0, event)
	if err != nil {
		return nil, err
	}

	order := &Order{}
	if err := order.ApplyEvent(*stored); err != nil {
		return nil, err
	}

	log.Printf("[Order] Placed order %s for user %s (total %s)", order.ID, order.User.ID, order.TotalPrice.StringFixed(2))
	return order, nil
}

// Get returns the current state of an order.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.loadOrder(ctx, orderID)
}

// Pay records the provider receipt. The boolean reports whether this call
// performed the transition; an already paid order is returned unchanged.
func (s *Service) Pay(ctx context.Context, orderID string, result PaymentResult) (*Order, bool, error) {
	return s.mutate(ctx, orderID, func(o *Order) (change, error) {
		if o.IsPaid {
			return change{}, nil
		}
		return change{EventOrderPaid, OrderPaid{
			OrderID:       orderID,
			PaymentResult: result,
			PaidAt:        s.now().UTC(),
		}}, nil
	})
}

// MarkDelivered sets isDelivered on a paid order. Unpaid orders are rejected
// with ErrOrderNotPaid; an already delivered order is returned unchanged.
func (s *Service) MarkDelivered(ctx context.Context, orderID, adminID string) (*Order, error) {
	order, _, err := s.mutate(ctx, orderID, func(o *Order) (change, error) {
		if o.IsDelivered {
			return change{}, nil
		}
		if !o.IsPaid {
			return change{}, ErrOrderNotPaid
		}
		return change{EventOrderDelivered, OrderDelivered{
			OrderID:     orderID,
			DeliveredBy: adminID,
			DeliveredAt: s.now().UTC(),
		}}, nil
	})
	return order, err
}

// Delete removes an order from every later read. Returns the order as it was.
func (s *Service) Delete(ctx context.Context, orderID, adminID string) (*Order, error) {
	var snapshot Order
	_, _, err := s.mutate(ctx, orderID, func(o *Order) (change, error) {
		snapshot = *o
		return change{EventOrderDeleted, OrderDeleted{
			OrderID:   orderID,
			DeletedBy: adminID,
			DeletedAt: s.now().UTC(),
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// change is the event a command decided to append. The zero value means
// the command is a no-op for the current state.
type change struct {
	eventType string
	data      any
}

// mutate runs a read-modify-write cycle on one order under its per-id lock.
// A version conflict means another process won the race; the command is
// re-decided against the fresh state.
func (s *Service) mutate(ctx context.Context, orderID string, decide func(*Order) (change, error)) (*Order, bool, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	for attempt := 0; ; attempt++ {
		order, err := s.loadOrder(ctx, orderID)
		if err != nil {
			return nil, false, err
		}

		c, err := decide(order)
		if err != nil {
			return nil, false, err
		}
		if c.eventType == "" {
			return order, false, nil
		}

		stored, err := s.eventStore.Append(ctx, orderID, AggregateType, c.eventType, order.Version, c.data)
		if errors.Is(err, store.ErrVersionConflict) && attempt < maxConflictRetries {
			log.Printf("[Order] Version conflict on order %s (%s), retrying", orderID, c.eventType)
			continue
		}
		if err != nil {
			return nil, false, err
		}

		if err := order.ApplyEvent(*stored); err != nil {
			return nil, false, err
		}
		return order, true, nil
	}
}
