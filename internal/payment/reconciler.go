package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/storefront/internal/domain/order"
)

// DefaultProviderTimeout bounds a single provider verification call.
const DefaultProviderTimeout = 10 * time.Second

// ErrProvider is matched (via errors.Is) by every provider-side failure.
// The order is left unpaid and the call is safe to retry.
var ErrProvider = errors.New("payment provider error")

type providerError struct{ msg string }

func (e *providerError) Error() string        { return e.msg }
func (e *providerError) Is(target error) bool { return target == ErrProvider }

var (
	ErrProviderRejected error = &providerError{"payment was not confirmed by the provider"}
	ErrProviderTimeout  error = &providerError{"payment provider did not respond in time"}
	ErrInvalidReceipt         = errors.New("payment receipt is missing a transaction id")
)

// Receipt is the provider confirmation posted by the client after checkout.
type Receipt = order.PaymentResult

// Provider confirms a receipt with the payment processor and returns the
// receipt to record.
type Provider interface {
	Verify(ctx context.Context, receipt Receipt) (Receipt, error)
}

// Notifier is told about every order that has just become paid. It is a
// best-effort side channel; its failures never affect the payment.
type Notifier interface {
	OrderPaid(ctx context.Context, o *order.Order) error
}

// Ledger is the part of order.Service the reconciler mutates.
type Ledger interface {
	Get(ctx context.Context, orderID string) (*order.Order, error)
	Pay(ctx context.Context, orderID string, result order.PaymentResult) (*order.Order, bool, error)
}

type Reconciler struct {
	ledger   Ledger
	provider Provider
	notifier Notifier
	timeout  time.Duration
}

func NewReconciler(ledger Ledger, provider Provider, notifier Notifier, timeout time.Duration) *Reconciler {
	if provider == nil {
		provider = TrustingProvider{}
	}
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &Reconciler{
		ledger:   ledger,
		provider: provider,
		notifier: notifier,
		timeout:  timeout,
	}
}

// ApplyPayment marks an order paid from a provider receipt. Applying a
// receipt to an already paid order returns it unchanged without contacting
// the provider or the notifier.
func (r *Reconciler) ApplyPayment(ctx context.Context, orderID string, receipt Receipt) (*order.Order, error) {
	current, err := r.ledger.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.IsPaid {
		log.Printf("[Payment] Order %s already paid, receipt %s ignored", orderID, receipt.ID)
		return current, nil
	}

	if strings.TrimSpace(receipt.ID) == "" {
		return nil, ErrInvalidReceipt
	}

	verified, err := r.verify(ctx, receipt)
	if err != nil {
		log.Printf("[Payment] Verification of receipt %s for order %s failed: %v", receipt.ID, orderID, err)
		return nil, err
	}

	paid, applied, err := r.ledger.Pay(ctx, orderID, verified)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent callback won the race and already notified.
		return paid, nil
	}

	log.Printf("[Payment] Order %s paid (receipt %s)", orderID, verified.ID)
	r.notify(ctx, paid)
	return paid, nil
}

func (r *Reconciler) verify(ctx context.Context, receipt Receipt) (Receipt, error) {
	vctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	verified, err := r.provider.Verify(vctx, receipt)
	switch {
	case err == nil:
		return verified, nil
	case errors.Is(err, ErrProvider):
		return Receipt{}, err
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(vctx.Err(), context.DeadlineExceeded):
		return Receipt{}, fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	default:
		return Receipt{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
}

func (r *Reconciler) notify(ctx context.Context, o *order.Order) {
	if r.notifier == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[Payment] Notifier panicked for order %s: %v", o.ID, p)
		}
	}()
	if err := r.notifier.OrderPaid(ctx, o); err != nil {
		log.Printf("[Payment] Notification for order %s failed: %v", o.ID, err)
	}
}

// TrustingProvider records receipts as posted by the client. It is used
// when no provider credentials are configured.
type TrustingProvider struct{}

func (TrustingProvider) Verify(ctx context.Context, receipt Receipt) (Receipt, error) {
	return receipt, nil
}
