package sale

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a sale.
type Status string

const (
	StatusOpen      Status = "open"
	StatusFinalized Status = "finalized"
	StatusCancelled Status = "cancelled"
)

// DefaultPaymentMethod is assigned to newly opened sales.
const DefaultPaymentMethod = "dinheiro"

// Sale is the persisted sale record. Totals are derived and only
// authoritative once the sale is finalized.
type Sale struct {
	ID            string
	UserID        string
	CustomerID    string
	Number        int
	Status        Status
	PaymentMethod string
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	Notes         string
	CreatedAt     time.Time
	FinalizedAt   *time.Time
}

// Item is one persisted line of a sale, with the price snapshot taken at
// add-time.
type Item struct {
	SaleID    string
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

// Update carries the fields written when a sale is finalized.
type Update struct {
	PaymentMethod string
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	Notes         string
	Status        Status
	FinalizedAt   time.Time
}

// Finalization step names, in execution order. They key the per-sale step
// log so an interrupted finalize can be rolled forward.
const (
	StepInsertItems = "insert_items"
	StepUpdateSale  = "update_sale"
	StepUpdateStock = "update_stock"
)

// Repository defines persistence operations for sales.
//
// FindOpenByUser returns ErrNoOpenSale when the user has no open sale.
// Create returns ErrDuplicateSale on a sale-number or open-sale uniqueness
// conflict. Cancel is idempotent on already-cancelled sales.
type Repository interface {
	FindOpenByUser(ctx context.Context, userID string) (*Sale, error)
	GetByID(ctx context.Context, id string) (*Sale, error)
	NextNumber(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, s *Sale) error
	InsertItems(ctx context.Context, saleID string, items []Item) error
	Update(ctx context.Context, saleID string, upd Update) error
	Cancel(ctx context.Context, saleID string) error
	ItemsBySale(ctx context.Context, saleID string) ([]Item, error)

	LogStep(ctx context.Context, saleID, step string) error
	CompletedSteps(ctx context.Context, saleID string) (map[string]bool, error)
}
