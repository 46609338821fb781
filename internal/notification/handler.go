package notification

import (
	"context"
	"encoding/json"
	"errors"
	"log"
)

// Handler consumes the notifications topic and sends the emails
type Handler struct {
	mailer *Mailer
}

// NewHandler creates a new notification handler
func NewHandler(mailer *Mailer) *Handler {
	return &Handler{mailer: mailer}
}

// HandleEvent processes a message from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var msg PaymentNotification
	if err := json.Unmarshal(value, &msg); err != nil {
		log.Printf("[Notifier] Failed to unmarshal notification: %v", err)
		return err
	}

	if msg.Type != EventPaymentReceipt {
		return nil
	}

	log.Printf("[Notifier] Processing payment receipt for order %s", msg.Order.ID)

	err := h.mailer.OrderPaid(ctx, &msg.Order)
	if errors.Is(err, ErrNoRecipient) {
		// Nothing to retry.
		log.Printf("[Notifier] Skipping order %s: %v", msg.Order.ID, err)
		return nil
	}
	return err
}
