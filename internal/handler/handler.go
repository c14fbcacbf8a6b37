// Package handler wires the HTTP API: product catalog, checkout session,
// customers and dashboard reports.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/torneiradigital/pos-server/internal/domain/customer"
	"github.com/torneiradigital/pos-server/internal/domain/product"
	"github.com/torneiradigital/pos-server/internal/domain/report"
	"github.com/torneiradigital/pos-server/internal/domain/sale"
)

// Config holds non-dependency knobs for the Handler.
type Config struct {
	// LowStockThreshold feeds the default low-stock report cutoff.
	LowStockThreshold int
}

// Handler exposes the POS API over chi, delegating business logic to the
// domain services.
type Handler struct {
	cfg       Config
	products  product.Repository
	barcodes  *product.BarcodeFilter
	customers customer.Repository
	sales     sale.Repository
	manager   *sale.Manager
	finalizer *sale.Finalizer
	reports   *report.Service
}

// New constructs a Handler with its domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	barcodes *product.BarcodeFilter,
	customers customer.Repository,
	sales sale.Repository,
	manager *sale.Manager,
	finalizer *sale.Finalizer,
	reports *report.Service,
) *Handler {
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = 5
	}
	return &Handler{
		cfg:       cfg,
		products:  products,
		barcodes:  barcodes,
		customers: customers,
		sales:     sales,
		manager:   manager,
		finalizer: finalizer,
		reports:   reports,
	}
}

// Routes returns the API router. Every route expects an authenticated actor
// in the context; authentication is applied by the caller.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/barcode/{code}", h.productByBarcode)
		r.Get("/{id}", h.productByID)
		r.Post("/{id}/stock", h.adjustStock)
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/start", h.startCheckout)
		r.Get("/cart", h.cartView)
		r.Post("/items", h.addItem)
		r.Delete("/items/{productID}", h.removeItem)
		r.Put("/items/{productID}/quantity", h.setQuantity)
		r.Put("/items/{productID}/discount", h.setDiscount)
		r.Post("/finalize", h.finalize)
		r.Post("/cancel", h.cancel)
	})

	r.Route("/sales", func(r chi.Router) {
		r.Get("/{id}", h.saleByID)
		r.Post("/{id}/resume", h.resumeFinalize)
	})

	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.listCustomers)
		r.Post("/", h.createCustomer)
		r.Get("/{id}", h.customerByID)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/summary", h.salesSummary)
		r.Get("/top-products", h.topProducts)
		r.Get("/low-stock", h.lowStock)
	})

	return r
}
