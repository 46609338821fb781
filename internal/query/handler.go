package query

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/shopspring/decimal"
)

// CatalogStats supplies the user and product figures of the summary. Users
// and products are owned by other services, so this is optional.
type CatalogStats interface {
	CountUsers(ctx context.Context) (int, error)
	CountProductsByCategory(ctx context.Context) ([]CategoryCount, error)
}

type Handler struct {
	readStore store.OrderReadStore
	catalog   CatalogStats
}

func NewHandler(readStore store.OrderReadStore) *Handler {
	return &Handler{readStore: readStore}
}

// WithCatalog attaches a CatalogStats source to the summary.
func (h *Handler) WithCatalog(catalog CatalogStats) *Handler {
	h.catalog = catalog
	return h
}

// ListOrders returns read-only order views matching filter, oldest first.
func (h *Handler) ListOrders(ctx context.Context, filter store.OrderFilter) ([]*OrderReadModel, error) {
	orders, err := h.readStore.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Summary aggregates order counts and sales over every order in the read
// model, overall and per day.
func (h *Handler) Summary(ctx context.Context) (*Summary, error) {
	orders, err := h.readStore.ListOrders(ctx, store.OrderFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	totals := OrderTotals{TotalSales: decimal.Zero}
	byDay := make(map[string]*DailyOrders)
	for _, o := range orders {
		totals.NumOrders++
		totals.TotalSales = totals.TotalSales.Add(o.TotalPrice)

		day := o.CreatedAt.UTC().Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &DailyOrders{ID: day, Sales: decimal.Zero}
			byDay[day] = d
		}
		d.Orders++
		d.Sales = d.Sales.Add(o.TotalPrice)
	}

	totals.TotalSales = order.Round2(totals.TotalSales)
	daily := make([]DailyOrders, 0, len(byDay))
	for _, d := range byDay {
		d.Sales = order.Round2(d.Sales)
		daily = append(daily, *d)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].ID < daily[j].ID })

	summary := &Summary{
		Users:             []UserCount{{}},
		Orders:            []OrderTotals{totals},
		DailyOrders:       daily,
		ProductCategories: []CategoryCount{},
	}

	if h.catalog != nil {
		if n, err := h.catalog.CountUsers(ctx); err != nil {
			log.Printf("[Query] Error counting users: %v", err)
		} else {
			summary.Users[0].NumUsers = n
		}
		if cats, err := h.catalog.CountProductsByCategory(ctx); err != nil {
			log.Printf("[Query] Error counting product categories: %v", err)
		} else if cats != nil {
			summary.ProductCategories = cats
		}
	}

	return summary, nil
}
