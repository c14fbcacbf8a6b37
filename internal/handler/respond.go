package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/torneiradigital/pos-server/internal/domain/auth"
	"github.com/torneiradigital/pos-server/internal/domain/customer"
	"github.com/torneiradigital/pos-server/internal/domain/product"
	"github.com/torneiradigital/pos-server/internal/domain/sale"
)

// writeJSON encodes a response body with jx and writes it with the given
// status code.
func writeJSON(w http.ResponseWriter, code int, build func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	build(e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// writeError maps domain errors onto HTTP status codes and a JSON error
// envelope. Stock shortages carry their per-line details so the terminal can
// point at the offending cart lines.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *sale.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeJSON(w, http.StatusConflict, func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("error")
			e.Str("insufficient stock")
			e.FieldStart("shortages")
			e.ArrStart()
			for _, s := range stockErr.Shortages {
				e.ObjStart()
				e.FieldStart("product_id")
				e.Str(s.ProductID)
				e.FieldStart("requested")
				e.Int(s.Requested)
				e.FieldStart("available")
				e.Int(s.Available)
				e.ObjEnd()
			}
			e.ArrEnd()
			e.ObjEnd()
		})
		return
	}

	var stepErr *sale.StepError
	if errors.As(err, &stepErr) {
		zctx.From(r.Context()).Error("finalize step failed",
			zap.String("step", stepErr.Step), zap.Error(stepErr.Err))
		writeJSON(w, http.StatusInternalServerError, func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("error")
			e.Str("finalization failed")
			e.FieldStart("step")
			e.Str(stepErr.Step)
			e.ObjEnd()
		})
		return
	}

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, auth.ErrNotFound),
		errors.Is(err, sale.ErrNoOpenSale):
		code = http.StatusNotFound
	case errors.Is(err, sale.ErrNoSession),
		errors.Is(err, sale.ErrSaleNotOpen),
		errors.Is(err, sale.ErrDuplicateSale),
		errors.Is(err, sale.ErrNotResumable):
		code = http.StatusConflict
	case errors.Is(err, sale.ErrEmptyCart):
		code = http.StatusUnprocessableEntity
	}

	if code == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		err = errors.New("internal error")
	}

	writeJSON(w, code, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("error")
		e.Str(err.Error())
		e.ObjEnd()
	})
}

// badRequest answers 400 with a message.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("error")
		e.Str(msg)
		e.ObjEnd()
	})
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("category")
	e.Str(p.Category)
	if p.Barcode != "" {
		e.FieldStart("barcode")
		e.Str(p.Barcode)
	}
	e.FieldStart("price")
	e.Str(p.Price.StringFixed(2))
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.ObjEnd()
}

func encodeSale(e *jx.Encoder, s *sale.Sale) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(s.ID)
	e.FieldStart("number")
	e.Int(s.Number)
	e.FieldStart("status")
	e.Str(string(s.Status))
	if s.CustomerID != "" {
		e.FieldStart("customer_id")
		e.Str(s.CustomerID)
	}
	e.FieldStart("payment_method")
	e.Str(s.PaymentMethod)
	e.FieldStart("subtotal")
	e.Str(s.Subtotal.StringFixed(2))
	e.FieldStart("discount")
	e.Str(s.Discount.StringFixed(2))
	e.FieldStart("total")
	e.Str(s.Total.StringFixed(2))
	if s.Notes != "" {
		e.FieldStart("notes")
		e.Str(s.Notes)
	}
	if s.FinalizedAt != nil {
		e.FieldStart("finalized_at")
		e.Str(s.FinalizedAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
	}
	e.ObjEnd()
}

func encodeCartView(e *jx.Encoder, view *sale.CartView) {
	e.ObjStart()
	e.FieldStart("sale_id")
	e.Str(view.SaleID)
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range view.Lines {
		lineTotal := l.UnitPrice.Mul(decimalFromInt(l.Quantity)).Sub(l.Discount)
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(l.ProductID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("unit_price")
		e.Str(l.UnitPrice.StringFixed(2))
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("discount")
		e.Str(l.Discount.StringFixed(2))
		e.FieldStart("total")
		e.Str(lineTotal.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	e.Str(view.Totals.Subtotal.StringFixed(2))
	e.FieldStart("discount")
	e.Str(view.Totals.Discount.StringFixed(2))
	e.FieldStart("total")
	e.Str(view.Totals.Total.StringFixed(2))
	e.ObjEnd()
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

func encodeCustomer(e *jx.Encoder, c customer.Customer) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	if c.Phone != "" {
		e.FieldStart("phone")
		e.Str(c.Phone)
	}
	if c.Email != "" {
		e.FieldStart("email")
		e.Str(c.Email)
	}
	e.ObjEnd()
}
