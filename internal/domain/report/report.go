package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Summary aggregates finalized sales over a period.
type Summary struct {
	Sales         int
	Revenue       decimal.Decimal
	Discounts     decimal.Decimal
	AverageTicket decimal.Decimal
}

// ProductRank is one row of the top-products dashboard.
type ProductRank struct {
	ProductID string
	Name      string
	Quantity  int
	Revenue   decimal.Decimal
}

// LowStockItem is a product at or below the low-stock threshold.
type LowStockItem struct {
	ProductID string
	Name      string
	Stock     int
}

// Repository defines the read-model queries behind the dashboards.
type Repository interface {
	SalesSummary(ctx context.Context, userID string, from, to time.Time) (*Summary, error)
	TopProducts(ctx context.Context, userID string, from, to time.Time, limit int) ([]ProductRank, error)
	LowStock(ctx context.Context, threshold int) ([]LowStockItem, error)
}
