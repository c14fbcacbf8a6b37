package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/jx"
)

// reportPeriod parses the from/to query params, defaulting to the current
// day in the server's timezone.
func reportPeriod(r *http.Request) (from, to time.Time, err error) {
	now := time.Now()
	from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to = from.AddDate(0, 0, 1)

	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			return from, to, err
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			return from, to, err
		}
	}
	return from, to, nil
}

func (h *Handler) salesSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(r)
	if !ok {
		writeUnauthorized(w, "missing actor")
		return
	}

	from, to, err := reportPeriod(r)
	if err != nil {
		badRequest(w, "invalid period: use RFC 3339 timestamps")
		return
	}

	sum, err := h.reports.SalesSummary(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("sales")
		e.Int(sum.Sales)
		e.FieldStart("revenue")
		e.Str(sum.Revenue.StringFixed(2))
		e.FieldStart("discounts")
		e.Str(sum.Discounts.StringFixed(2))
		e.FieldStart("average_ticket")
		e.Str(sum.AverageTicket.StringFixed(2))
		e.ObjEnd()
	})
}

func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(r)
	if !ok {
		writeUnauthorized(w, "missing actor")
		return
	}

	from, to, err := reportPeriod(r)
	if err != nil {
		badRequest(w, "invalid period: use RFC 3339 timestamps")
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 100 {
			badRequest(w, "limit must be between 1 and 100")
			return
		}
	}

	ranks, err := h.reports.TopProducts(r.Context(), userID, from, to, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, pr := range ranks {
			e.ObjStart()
			e.FieldStart("product_id")
			e.Str(pr.ProductID)
			e.FieldStart("name")
			e.Str(pr.Name)
			e.FieldStart("quantity")
			e.Int(pr.Quantity)
			e.FieldStart("revenue")
			e.Str(pr.Revenue.StringFixed(2))
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold := h.cfg.LowStockThreshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		t, err := strconv.Atoi(v)
		if err != nil || t < 0 {
			badRequest(w, "threshold must be a non-negative integer")
			return
		}
		threshold = t
	}

	items, err := h.reports.LowStock(r.Context(), threshold)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, it := range items {
			e.ObjStart()
			e.FieldStart("product_id")
			e.Str(it.ProductID)
			e.FieldStart("name")
			e.Str(it.Name)
			e.FieldStart("stock")
			e.Int(it.Stock)
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}
