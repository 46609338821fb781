package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/email"
)

const EventPaymentReceipt = "PaymentReceipt"

var (
	// ErrDelivery wraps every failure to hand a notification to its channel.
	ErrDelivery = errors.New("notification delivery failed")
	// ErrNoRecipient means the order carries no email address to write to.
	ErrNoRecipient = errors.New("order has no recipient email")
)

// PaymentNotification is the message put on the notifications topic.
type PaymentNotification struct {
	Type   string      `json:"type"`
	Order  order.Order `json:"order"`
	SentAt time.Time   `json:"sent_at"`
}

func (n PaymentNotification) MessageType() string { return n.Type }

// Sender is the email transport.
type Sender interface {
	SendPaymentReceipt(toName, toAddr string, receipt email.PaymentReceipt) error
}

// Mailer emails the buyer directly when an order is paid.
type Mailer struct {
	sender Sender
}

func NewMailer(sender Sender) *Mailer {
	return &Mailer{sender: sender}
}

// OrderPaid implements payment.Notifier.
func (m *Mailer) OrderPaid(ctx context.Context, o *order.Order) error {
	name, addr := recipient(o)
	if addr == "" {
		return fmt.Errorf("%w: order %s", ErrNoRecipient, o.ID)
	}
	if err := m.sender.SendPaymentReceipt(name, addr, receiptFor(o)); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	log.Printf("[Notifier] Payment receipt sent to %s for order %s", addr, o.ID)
	return nil
}

// Publisher is the broker side of KafkaNotifier.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// KafkaNotifier defers the email to cmd/notifier by publishing the paid
// order on the notifications topic.
type KafkaNotifier struct {
	publisher Publisher
	now       func() time.Time
}

func NewKafkaNotifier(publisher Publisher) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher, now: time.Now}
}

// OrderPaid implements payment.Notifier.
func (k *KafkaNotifier) OrderPaid(ctx context.Context, o *order.Order) error {
	msg := PaymentNotification{Type: EventPaymentReceipt, Order: *o, SentAt: k.now().UTC()}
	if err := k.publisher.Publish(ctx, o.ID, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// recipient prefers the account email captured at checkout and falls back
// to the address the provider reported for the payment.
func recipient(o *order.Order) (name, addr string) {
	name = o.User.Name
	addr = o.User.Email
	if addr == "" && o.PaymentResult != nil {
		addr = o.PaymentResult.EmailAddress
	}
	return name, addr
}

func receiptFor(o *order.Order) email.PaymentReceipt {
	lines := make([]email.ReceiptLine, len(o.OrderItems))
	for i, item := range o.OrderItems {
		name := item.Name
		if name == "" {
			name = item.Product
		}
		lines[i] = email.ReceiptLine{Name: name, Quantity: item.Quantity, Price: item.Price}
	}

	addr := o.ShippingAddress
	var address []string
	for _, part := range []string{addr.FullName, addr.Address, joinNonEmpty(addr.City, addr.Country, addr.PostalCode)} {
		if part != "" {
			address = append(address, part)
		}
	}

	return email.PaymentReceipt{
		OrderID:       o.ID,
		CustomerName:  o.User.Name,
		PlacedAt:      o.CreatedAt,
		Lines:         lines,
		ItemsPrice:    o.ItemsPrice,
		ShippingPrice: o.ShippingPrice,
		TaxPrice:      o.TaxPrice,
		TotalPrice:    o.TotalPrice,
		PaymentMethod: string(o.PaymentMethod),
		Address:       address,
	}
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
