package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item. Price and Stock are the live values; cart lines
// copy them as snapshots at add-time and must not assume they stay valid
// until the sale commits.
type Product struct {
	ID       string
	Name     string
	Category string
	Barcode  string
	Price    decimal.Decimal
	Stock    int
	Active   bool
}

// StockDecrement is one line of an atomic stock adjustment.
type StockDecrement struct {
	ProductID string
	Quantity  int
	SaleID    string
}

// StockShortage reports a line that could not be satisfied by live stock.
type StockShortage struct {
	ProductID string
	Requested int
	Available int
}

// Repository defines read and stock operations on the product catalog.
//
// DecrementAll applies every decrement in a single transaction, re-reading
// live stock under lock. When any line falls short it returns the full list
// of shortages and leaves stock untouched. A successful call records one
// outbound stock movement per line.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*Product, error)
	GetStock(ctx context.Context, id string) (int, error)
	DecrementAll(ctx context.Context, decs []StockDecrement) ([]StockShortage, error)
	AdjustStock(ctx context.Context, id string, delta int, reason string) error
}
