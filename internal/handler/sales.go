package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
)

func (h *Handler) saleByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s, err := h.sales.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := h.sales.ItemsBySale(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("sale")
		encodeSale(e, s)
		e.FieldStart("items")
		e.ArrStart()
		for _, it := range items {
			e.ObjStart()
			e.FieldStart("product_id")
			e.Str(it.ProductID)
			e.FieldStart("name")
			e.Str(it.Name)
			e.FieldStart("quantity")
			e.Int(it.Quantity)
			e.FieldStart("unit_price")
			e.Str(it.UnitPrice.StringFixed(2))
			e.FieldStart("discount")
			e.Str(it.Discount.StringFixed(2))
			e.ObjEnd()
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

// resumeFinalize rolls forward a finalization that died between steps. It
// works from the persisted step log, not from the in-memory cart.
func (h *Handler) resumeFinalize(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeFinalizeRequest(w, r)
	if !ok {
		return
	}

	finalized, err := h.finalizer.Resume(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSale(e, finalized) })
}
