package sale

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/torneiradigital/pos-server/internal/domain/product"
)

// Sentinel errors for session and finalization flow.
var (
	ErrNoOpenSale    = errors.New("no open sale")
	ErrNoSession     = errors.New("no active sale session")
	ErrSaleNotOpen   = errors.New("sale is not open")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrDuplicateSale = errors.New("duplicate sale")
	ErrNotResumable  = errors.New("finalization cannot be resumed: no step was persisted")
)

// InsufficientStockError reports cart lines whose quantity exceeds live
// stock at commit time. The cart is left intact so the caller can adjust.
type InsufficientStockError struct {
	Shortages []product.StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		parts[i] = fmt.Sprintf("%s: requested %d, available %d", s.ProductID, s.Requested, s.Available)
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// StepError wraps a persistence failure with the finalization step that
// produced it. Earlier steps are not rolled back; the caller decides on
// reconciliation or retry.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("finalize step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
