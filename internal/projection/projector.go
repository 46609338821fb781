package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/readmodel"
)

// Projector folds order events into the order read model. Every event
// carries its aggregate version, and events at or below the stored version
// are skipped, so redelivery from Kafka or Kinesis is harmless.
type Projector struct {
	readStore store.OrderReadStore
}

func NewProjector(readStore store.OrderReadStore) *Projector {
	return &Projector{readStore: readStore}
}

// HandleEvent is the Kafka message handler.
func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	return p.Project(ctx, event)
}

// Publish implements store.Publisher so the projector can run in-process
// when no broker is configured.
func (p *Projector) Publish(ctx context.Context, key string, event any) error {
	e, ok := event.(store.Event)
	if !ok {
		return fmt.Errorf("projector: unexpected event type %T", event)
	}
	return p.Project(ctx, e)
}

func (p *Projector) Project(ctx context.Context, event store.Event) error {
	if event.AggregateType != order.AggregateType {
		return nil
	}

	log.Printf("[Projector] Received event: %s (order: %s, version: %d)", event.EventType, event.AggregateID, event.Version)

	switch event.EventType {
	case order.EventOrderPlaced:
		var e order.OrderPlaced
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		existing, found, err := p.readStore.GetOrder(ctx, e.OrderID)
		if err != nil {
			return err
		}
		if found && existing.Version >= event.Version {
			return nil
		}
		return p.readStore.SaveOrder(ctx, placedReadModel(e, event.Version))

	case order.EventOrderPaid:
		var e order.OrderPaid
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, e.OrderID, event, func(o *readmodel.OrderReadModel) {
			if o.IsPaid {
				return
			}
			paidAt := e.PaidAt
			o.IsPaid = true
			o.PaidAt = &paidAt
			o.PaymentResult = &readmodel.PaymentResultReadModel{
				ID:           e.PaymentResult.ID,
				Status:       e.PaymentResult.Status,
				UpdateTime:   e.PaymentResult.UpdateTime,
				EmailAddress: e.PaymentResult.EmailAddress,
			}
			o.UpdatedAt = e.PaidAt
		})

	case order.EventOrderDelivered:
		var e order.OrderDelivered
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, e.OrderID, event, func(o *readmodel.OrderReadModel) {
			if o.IsDelivered {
				return
			}
			deliveredAt := e.DeliveredAt
			o.IsDelivered = true
			o.DeliveredAt = &deliveredAt
			o.UpdatedAt = e.DeliveredAt
		})

	case order.EventOrderDeleted:
		var e order.OrderDeleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.readStore.DeleteOrder(ctx, e.OrderID)
	}

	return nil
}

func (p *Projector) update(ctx context.Context, orderID string, event store.Event, fn func(o *readmodel.OrderReadModel)) error {
	found, err := p.readStore.UpdateOrder(ctx, orderID, func(o *readmodel.OrderReadModel) {
		if o.Version >= event.Version {
			return
		}
		fn(o)
		o.Version = event.Version
	})
	if err != nil {
		return err
	}
	if !found {
		log.Printf("[Projector] %s for unknown order %s ignored", event.EventType, orderID)
	}
	return nil
}

// Replay clears the read store and rebuilds it from the full event log.
// Returns the number of events applied.
func (p *Projector) Replay(ctx context.Context, eventStore store.EventStoreInterface) (int, error) {
	events, err := eventStore.GetAllEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load events: %w", err)
	}
	if err := p.readStore.Clear(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear read store: %w", err)
	}
	for _, event := range events {
		if err := p.Project(ctx, event); err != nil {
			return 0, fmt.Errorf("failed to project event %s: %w", event.ID, err)
		}
	}
	log.Printf("[Projector] Replayed %d events", len(events))
	return len(events), nil
}

func placedReadModel(e order.OrderPlaced, version int) *readmodel.OrderReadModel {
	items := make([]readmodel.OrderItemReadModel, len(e.Items))
	for i, item := range e.Items {
		items[i] = readmodel.OrderItemReadModel{
			Product:  item.Product,
			Name:     item.Name,
			Image:    item.Image,
			Quantity: item.Quantity,
			Price:    item.Price,
			Seller:   item.Seller,
		}
	}
	addr := e.ShippingAddress
	return &readmodel.OrderReadModel{
		ID:         e.OrderID,
		User:       readmodel.OwnerReadModel{ID: e.User.ID, Name: e.User.Name, Email: e.User.Email},
		Seller:     e.Seller,
		OrderItems: items,
		ShippingAddress: readmodel.ShippingAddressReadModel{
			FullName:   addr.FullName,
			Address:    addr.Address,
			City:       addr.City,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
			Lat:        addr.Lat,
			Lng:        addr.Lng,
		},
		PaymentMethod: string(e.PaymentMethod),
		ItemsPrice:    e.ItemsPrice,
		ShippingPrice: e.ShippingPrice,
		TaxPrice:      e.TaxPrice,
		TotalPrice:    e.TotalPrice,
		CreatedAt:     e.PlacedAt,
		UpdatedAt:     e.PlacedAt,
		Version:       version,
	}
}
