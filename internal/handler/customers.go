package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/torneiradigital/pos-server/internal/domain/customer"
)

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(r)
	if !ok {
		writeUnauthorized(w, "missing actor")
		return
	}

	customers, err := h.customers.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, c := range customers {
			encodeCustomer(e, c)
		}
		e.ArrEnd()
	})
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(r)
	if !ok {
		writeUnauthorized(w, "missing actor")
		return
	}

	var req struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}

	c := &customer.Customer{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		CreatedAt: time.Now(),
	}
	if err := h.customers.Create(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCustomer(e, *c) })
}

func (h *Handler) customerByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(r)
	if !ok {
		writeUnauthorized(w, "missing actor")
		return
	}

	c, err := h.customers.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if c.UserID != userID {
		// Customers are private to the user that registered them.
		writeError(w, r, customer.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCustomer(e, *c) })
}
