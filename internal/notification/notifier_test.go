package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/email"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	name    string
	addr    string
	receipt email.PaymentReceipt
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) SendPaymentReceipt(toName, toAddr string, receipt email.PaymentReceipt) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{toName, toAddr, receipt})
	return nil
}

type fakePublisher struct {
	keys   []string
	types  []string
	values [][]byte
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, key string, event any) error {
	if f.err != nil {
		return f.err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	if typed, ok := event.(interface{ MessageType() string }); ok {
		f.types = append(f.types, typed.MessageType())
	}
	f.values = append(f.values, data)
	return nil
}

func paidOrder() *order.Order {
	paidAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return &order.Order{
		ID:   "order-1",
		User: order.Owner{ID: "user-1", Name: "Ada", Email: "ada@example.com"},
		OrderItems: []order.OrderItem{
			{Product: "prod-1", Name: "Notebook", Quantity: 1, Price: decimal.NewFromInt(100)},
			{Product: "prod-2", Quantity: 2, Price: decimal.NewFromInt(50)},
		},
		ShippingAddress: order.ShippingAddress{FullName: "Ada Lovelace", Address: "12 Row", City: "London", PostalCode: "N1", Country: "UK"},
		PaymentMethod:   order.PaymentPayPal,
		PaymentResult:   &order.PaymentResult{ID: "tx1", EmailAddress: "paypal@example.com"},
		ItemsPrice:      decimal.NewFromInt(200),
		ShippingPrice:   decimal.NewFromInt(10),
		TaxPrice:        decimal.Zero,
		TotalPrice:      decimal.NewFromInt(210),
		IsPaid:          true,
		PaidAt:          &paidAt,
		CreatedAt:       paidAt.Add(-time.Hour),
	}
}

// ============================================
// Mailer Tests
// ============================================

func TestMailer_OrderPaid_SendsReceipt(t *testing.T) {
	sender := &fakeSender{}
	mailer := NewMailer(sender)

	err := mailer.OrderPaid(context.Background(), paidOrder())

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	mail := sender.sent[0]
	assert.Equal(t, "Ada", mail.name)
	assert.Equal(t, "ada@example.com", mail.addr)
	assert.Equal(t, "order-1", mail.receipt.OrderID)
	require.Len(t, mail.receipt.Lines, 2)
	assert.Equal(t, "Notebook", mail.receipt.Lines[0].Name)
	assert.Equal(t, "prod-2", mail.receipt.Lines[1].Name)
	assert.Equal(t, []string{"Ada Lovelace", "12 Row", "London, UK, N1"}, mail.receipt.Address)
	assert.Equal(t, "PayPal", mail.receipt.PaymentMethod)
}

func TestMailer_OrderPaid_FallsBackToPaymentEmail(t *testing.T) {
	sender := &fakeSender{}
	o := paidOrder()
	o.User.Email = ""

	require.NoError(t, NewMailer(sender).OrderPaid(context.Background(), o))

	assert.Equal(t, "paypal@example.com", sender.sent[0].addr)
}

func TestMailer_OrderPaid_NoRecipient(t *testing.T) {
	sender := &fakeSender{}
	o := paidOrder()
	o.User.Email = ""
	o.PaymentResult = nil

	err := NewMailer(sender).OrderPaid(context.Background(), o)

	assert.ErrorIs(t, err, ErrNoRecipient)
	assert.Empty(t, sender.sent)
}

func TestMailer_OrderPaid_SMTPFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("dial tcp: connection refused")}

	err := NewMailer(sender).OrderPaid(context.Background(), paidOrder())

	assert.ErrorIs(t, err, ErrDelivery)
}

// ============================================
// Kafka Notifier and Handler Tests
// ============================================

func TestKafkaNotifier_RoundTripThroughHandler(t *testing.T) {
	publisher := &fakePublisher{}
	notifier := NewKafkaNotifier(publisher)

	require.NoError(t, notifier.OrderPaid(context.Background(), paidOrder()))
	require.Len(t, publisher.values, 1)
	assert.Equal(t, "order-1", publisher.keys[0])
	assert.Equal(t, []string{EventPaymentReceipt}, publisher.types)

	sender := &fakeSender{}
	handler := NewHandler(NewMailer(sender))
	require.NoError(t, handler.HandleEvent(context.Background(), []byte(publisher.keys[0]), publisher.values[0]))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ada@example.com", sender.sent[0].addr)
	assert.Equal(t, "210.00", sender.sent[0].receipt.TotalPrice.StringFixed(2))
}

func TestKafkaNotifier_PublishFailure(t *testing.T) {
	notifier := NewKafkaNotifier(&fakePublisher{err: errors.New("broker down")})

	err := notifier.OrderPaid(context.Background(), paidOrder())

	assert.ErrorIs(t, err, ErrDelivery)
}

func TestHandler_HandleEvent(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		handler := NewHandler(NewMailer(&fakeSender{}))
		assert.Error(t, handler.HandleEvent(context.Background(), nil, []byte("{")))
	})

	t.Run("other message types are ignored", func(t *testing.T) {
		sender := &fakeSender{}
		handler := NewHandler(NewMailer(sender))
		require.NoError(t, handler.HandleEvent(context.Background(), nil, []byte(`{"type":"Other"}`)))
		assert.Empty(t, sender.sent)
	})

	t.Run("missing recipient is not retried", func(t *testing.T) {
		handler := NewHandler(NewMailer(&fakeSender{}))
		value := []byte(`{"type":"PaymentReceipt","order":{"_id":"order-9","user":{"_id":"u"}}}`)
		assert.NoError(t, handler.HandleEvent(context.Background(), nil, value))
	})
}
