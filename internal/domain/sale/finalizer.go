package sale

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/torneiradigital/pos-server/internal/domain/cart"
	"github.com/torneiradigital/pos-server/internal/domain/product"
)

// FinalizeRequest carries the sale-level fields written at finalization.
// Discount here is distinct from the per-item discounts already in the cart.
type FinalizeRequest struct {
	PaymentMethod string
	Discount      decimal.Decimal
	Notes         string
}

// Finalizer commits an in-memory cart to persisted state as a fixed-order
// sequence: insert line items, update the sale record, re-check and
// decrement stock. The store offers no transaction spanning all three, so a
// later step's failure does not roll back earlier steps; each completed step
// is logged per sale and failures carry the step name. Within one
// invocation steps never reorder or run in parallel.
type Finalizer struct {
	sales    Repository
	products product.Repository
	lg       *zap.Logger
	now      func() time.Time
}

// NewFinalizer creates a Finalizer.
func NewFinalizer(sales Repository, products product.Repository, lg *zap.Logger) *Finalizer {
	return &Finalizer{
		sales:    sales,
		products: products,
		lg:       lg,
		now:      time.Now,
	}
}

// Run executes the finalization sequence for saleID over the given cart
// lines. The first two steps always run: the item insert replaces lines
// persisted by an earlier failed attempt and the sale update overwrites the
// totals, so a retry after the operator adjusted the cart commits the cart
// as it stands now, not as it stood then. Only the stock decrement honors
// the step log, which keeps a retry from charging stock twice.
func (f *Finalizer) Run(ctx context.Context, saleID string, lines []cart.Line, totals cart.Totals, req FinalizeRequest) (*Sale, error) {
	if req.Discount.IsNegative() {
		req.Discount = decimal.Zero
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = DefaultPaymentMethod
	}

	done, err := f.sales.CompletedSteps(ctx, saleID)
	if err != nil {
		return nil, errors.Wrap(err, "read finalize log")
	}

	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			SaleID:    saleID,
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Discount:  l.Discount,
		}
	}

	if err := f.insertItems(ctx, saleID, items); err != nil {
		return nil, err
	}
	if err := f.updateSale(ctx, saleID, totals, req); err != nil {
		return nil, err
	}
	if err := f.updateStock(ctx, saleID, items, done); err != nil {
		return nil, err
	}

	finalized, err := f.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, errors.Wrap(err, "reload finalized sale")
	}

	f.lg.Info("sale finalized",
		zap.String("sale_id", saleID),
		zap.Int("items", len(items)),
		zap.String("total", finalized.Total.String()))

	return finalized, nil
}

// Resume rolls an interrupted finalization forward from its step log. It
// reloads the persisted line items, so it only works once the first step
// committed; before that nothing was persisted and there is nothing to
// resume (the cart still holds the lines, callers retry Finalize instead).
func (f *Finalizer) Resume(ctx context.Context, saleID string, req FinalizeRequest) (*Sale, error) {
	done, err := f.sales.CompletedSteps(ctx, saleID)
	if err != nil {
		return nil, errors.Wrap(err, "read finalize log")
	}
	if !done[StepInsertItems] {
		return nil, ErrNotResumable
	}

	s, err := f.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, errors.Wrap(err, "load sale")
	}
	if s.Status == StatusCancelled {
		return nil, ErrSaleNotOpen
	}

	items, err := f.sales.ItemsBySale(ctx, saleID)
	if err != nil {
		return nil, errors.Wrap(err, "load sale items")
	}

	if !done[StepUpdateSale] {
		totals := itemTotals(items)
		if err := f.updateSale(ctx, saleID, totals, req); err != nil {
			return nil, err
		}
	}
	if err := f.updateStock(ctx, saleID, items, done); err != nil {
		return nil, err
	}

	finalized, err := f.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, errors.Wrap(err, "reload finalized sale")
	}

	f.lg.Info("sale finalization resumed", zap.String("sale_id", saleID))
	return finalized, nil
}

func (f *Finalizer) insertItems(ctx context.Context, saleID string, items []Item) error {
	if err := f.sales.InsertItems(ctx, saleID, items); err != nil {
		return &StepError{Step: StepInsertItems, Err: err}
	}
	return f.logStep(ctx, saleID, StepInsertItems)
}

func (f *Finalizer) updateSale(ctx context.Context, saleID string, totals cart.Totals, req FinalizeRequest) error {
	upd := Update{
		PaymentMethod: req.PaymentMethod,
		Subtotal:      totals.Subtotal,
		Discount:      req.Discount,
		Total:         totals.Total.Sub(req.Discount),
		Notes:         req.Notes,
		Status:        StatusFinalized,
		FinalizedAt:   f.now(),
	}
	if err := f.sales.Update(ctx, saleID, upd); err != nil {
		return &StepError{Step: StepUpdateSale, Err: err}
	}
	return f.logStep(ctx, saleID, StepUpdateSale)
}

func (f *Finalizer) updateStock(ctx context.Context, saleID string, items []Item, done map[string]bool) error {
	if done[StepUpdateStock] {
		return nil
	}

	decs := make([]product.StockDecrement, len(items))
	for i, it := range items {
		decs[i] = product.StockDecrement{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			SaleID:    saleID,
		}
	}

	shortages, err := f.products.DecrementAll(ctx, decs)
	if err != nil {
		return &StepError{Step: StepUpdateStock, Err: err}
	}
	if len(shortages) > 0 {
		return &InsufficientStockError{Shortages: shortages}
	}
	return f.logStep(ctx, saleID, StepUpdateStock)
}

func (f *Finalizer) logStep(ctx context.Context, saleID, step string) error {
	if err := f.sales.LogStep(ctx, saleID, step); err != nil {
		// The step itself committed; a lost log entry only costs an extra
		// idempotent retry of that step on resume.
		f.lg.Warn("finalize step log write failed",
			zap.String("sale_id", saleID),
			zap.String("step", step),
			zap.Error(err))
	}
	return nil
}

func itemTotals(items []Item) cart.Totals {
	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		discount = discount.Add(it.Discount)
	}
	return cart.Totals{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal.Sub(discount),
	}
}
