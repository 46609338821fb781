package query

import (
	"github.com/example/storefront/internal/readmodel"
	"github.com/shopspring/decimal"
)

type OrderReadModel = readmodel.OrderReadModel

type UserCount struct {
	NumUsers int `json:"numUsers"`
}

type OrderTotals struct {
	NumOrders  int             `json:"numOrders"`
	TotalSales decimal.Decimal `json:"totalSales"`
}

// DailyOrders groups orders by their UTC creation day (ID is YYYY-MM-DD).
type DailyOrders struct {
	ID     string          `json:"_id"`
	Orders int             `json:"orders"`
	Sales  decimal.Decimal `json:"sales"`
}

type CategoryCount struct {
	ID    string `json:"_id"`
	Count int    `json:"count"`
}

// Summary is the admin dashboard payload. Every field is a list so the
// shape stays the same whether or not there is data.
type Summary struct {
	Users             []UserCount     `json:"users"`
	Orders            []OrderTotals   `json:"orders"`
	DailyOrders       []DailyOrders   `json:"dailyOrders"`
	ProductCategories []CategoryCount `json:"productCategories"`
}
