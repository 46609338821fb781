package query

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/infrastructure/store/mocks"
	"github.com/example/storefront/internal/readmodel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueryHandler() (*Handler, *mocks.MockReadStore) {
	readStore := mocks.NewMockReadStore()
	handler := NewHandler(readStore)
	return handler, readStore
}

func seedOrder(readStore *mocks.MockReadStore, id, userID, seller, total string, createdAt time.Time) {
	readStore.SetOrder(&readmodel.OrderReadModel{
		ID:         id,
		User:       readmodel.OwnerReadModel{ID: userID},
		Seller:     seller,
		TotalPrice: decimal.RequireFromString(total),
		CreatedAt:  createdAt,
	})
}

type fakeCatalog struct {
	users    int
	cats     []CategoryCount
	usersErr error
}

func (f *fakeCatalog) CountUsers(ctx context.Context) (int, error) { return f.users, f.usersErr }
func (f *fakeCatalog) CountProductsByCategory(ctx context.Context) ([]CategoryCount, error) {
	return f.cats, nil
}

// ============================================
// List Orders Tests
// ============================================

func TestHandler_ListOrders_PassesFilter(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	seedOrder(readStore, "o1", "u1", "s1", "10", day)
	seedOrder(readStore, "o2", "u2", "s1", "20", day.Add(time.Minute))

	orders, err := handler.ListOrders(context.Background(), store.OrderFilter{UserID: "u2"})

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o2", orders[0].ID)
	assert.Equal(t, []store.OrderFilter{{UserID: "u2"}}, readStore.ListCalls)
}

func TestHandler_ListOrders_Error(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	readStore.ListErr = errors.New("connection refused")

	orders, err := handler.ListOrders(context.Background(), store.OrderFilter{})

	assert.Error(t, err)
	assert.Nil(t, orders)
}

// ============================================
// Summary Tests
// ============================================

func TestHandler_Summary_GroupsByDay(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	day1 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 5, 2, 23, 59, 0, 0, time.UTC)
	seedOrder(readStore, "o1", "u1", "", "210.00", day1)
	seedOrder(readStore, "o2", "u2", "", "19.99", day1.Add(time.Hour))
	seedOrder(readStore, "o3", "u1", "", "5.01", day2)

	summary, err := handler.Summary(context.Background())

	require.NoError(t, err)
	require.Len(t, summary.Orders, 1)
	assert.Equal(t, 3, summary.Orders[0].NumOrders)
	assert.Equal(t, "235.00", summary.Orders[0].TotalSales.StringFixed(2))

	require.Len(t, summary.DailyOrders, 2)
	assert.Equal(t, "2026-05-01", summary.DailyOrders[0].ID)
	assert.Equal(t, 2, summary.DailyOrders[0].Orders)
	assert.Equal(t, "229.99", summary.DailyOrders[0].Sales.StringFixed(2))
	assert.Equal(t, "2026-05-02", summary.DailyOrders[1].ID)

	assert.Equal(t, []UserCount{{NumUsers: 0}}, summary.Users)
	assert.Empty(t, summary.ProductCategories)
}

func TestHandler_Summary_EmptyKeepsShape(t *testing.T) {
	handler, _ := newTestQueryHandler()

	summary, err := handler.Summary(context.Background())
	require.NoError(t, err)

	raw, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"users": [{"numUsers": 0}],
		"orders": [{"numOrders": 0, "totalSales": 0}],
		"dailyOrders": [],
		"productCategories": []
	}`, string(raw))
}

func TestHandler_Summary_WithCatalog(t *testing.T) {
	handler, _ := newTestQueryHandler()
	handler.WithCatalog(&fakeCatalog{users: 4, cats: []CategoryCount{{ID: "Shirts", Count: 3}}})

	summary, err := handler.Summary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, summary.Users[0].NumUsers)
	assert.Equal(t, []CategoryCount{{ID: "Shirts", Count: 3}}, summary.ProductCategories)
}

func TestHandler_Summary_CatalogErrorIsNotFatal(t *testing.T) {
	handler, _ := newTestQueryHandler()
	handler.WithCatalog(&fakeCatalog{usersErr: errors.New("users service down")})

	summary, err := handler.Summary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Users[0].NumUsers)
}
