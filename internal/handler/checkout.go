package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/torneiradigital/pos-server/internal/domain/sale"
)

func (h *Handler) startCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(r)
	if !ok {
		writeUnauthorized(w, "missing actor")
		return
	}

	var req struct {
		CustomerID string `json:"customer_id"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid request body")
			return
		}
	}

	res, err := h.manager.StartOrResume(r.Context(), userID, req.CustomerID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	code := http.StatusCreated
	if res.Resumed {
		code = http.StatusOK
	}
	writeJSON(w, code, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("sale")
		encodeSale(e, res.Sale)
		e.FieldStart("resumed")
		e.Bool(res.Resumed)
		e.ObjEnd()
	})
}

func (h *Handler) cartView(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(r)
	if !ok {
		writeUnauthorized(w, "missing actor")
		return
	}

	view, err := h.manager.Cart(userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCartView(e, view) })
}

// addItem resolves the product and hands it to the cart with its live price
// and stock as the line snapshot.
func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(r)
	if !ok {
		writeUnauthorized(w, "missing actor")
		return
	}

	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.ProductID == "" {
		badRequest(w, "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.manager.AddItem(userID, *p, req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondCart(w, r, userID)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(r)
	if !ok {
		writeUnauthorized(w, "missing actor")
		return
	}

	if err := h.manager.RemoveItem(userID, chi.URLParam(r, "productID")); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondCart(w, r, userID)
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(r)
	if !ok {
		writeUnauthorized(w, "missing actor")
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if err := h.manager.SetQuantity(userID, chi.URLParam(r, "productID"), req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondCart(w, r, userID)
}

func (h *Handler) setDiscount(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(r)
	if !ok {
		writeUnauthorized(w, "missing actor")
		return
	}

	var req struct {
		Discount decimal.Decimal `json:"discount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if err := h.manager.ApplyItemDiscount(userID, chi.URLParam(r, "productID"), req.Discount); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondCart(w, r, userID)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(r)
	if !ok {
		writeUnauthorized(w, "missing actor")
		return
	}

	req, ok := decodeFinalizeRequest(w, r)
	if !ok {
		return
	}

	finalized, err := h.manager.Finalize(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSale(e, finalized) })
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(r)
	if !ok {
		writeUnauthorized(w, "missing actor")
		return
	}

	var req struct {
		SaleID string `json:"sale_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.SaleID == "" {
		badRequest(w, "sale_id is required")
		return
	}

	if err := h.manager.Cancel(r.Context(), userID, req.SaleID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, userID string) {
	view, err := h.manager.Cart(userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCartView(e, view) })
}

func decodeFinalizeRequest(w http.ResponseWriter, r *http.Request) (sale.FinalizeRequest, bool) {
	var req struct {
		PaymentMethod string          `json:"payment_method"`
		Discount      decimal.Decimal `json:"discount"`
		Notes         string          `json:"notes"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid request body")
			return sale.FinalizeRequest{}, false
		}
	}
	return sale.FinalizeRequest{
		PaymentMethod: req.PaymentMethod,
		Discount:      req.Discount,
		Notes:         req.Notes,
	}, true
}
