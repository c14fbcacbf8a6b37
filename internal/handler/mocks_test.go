package handler

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/torneiradigital/pos-server/internal/domain/auth"
	"github.com/torneiradigital/pos-server/internal/domain/customer"
	"github.com/torneiradigital/pos-server/internal/domain/product"
	"github.com/torneiradigital/pos-server/internal/domain/report"
	"github.com/torneiradigital/pos-server/internal/domain/sale"
)

type stubProductRepo struct {
	mu       sync.Mutex
	products map[string]*product.Product
	getCalls int
}

func newStubProductRepo(products ...product.Product) *stubProductRepo {
	r := &stubProductRepo{products: make(map[string]*product.Product)}
	for i := range products {
		p := products[i]
		r.products[p.ID] = &p
	}
	return r
}

func (r *stubProductRepo) List(context.Context) ([]product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]product.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, nil
}

func (r *stubProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, product.ErrNotFound
}

func (r *stubProductRepo) GetByBarcode(_ context.Context, barcode string) (*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	for _, p := range r.products {
		if p.Barcode == barcode {
			cp := *p
			return &cp, nil
		}
	}
	return nil, product.ErrNotFound
}

func (r *stubProductRepo) GetStock(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		return p.Stock, nil
	}
	return 0, product.ErrNotFound
}

func (r *stubProductRepo) DecrementAll(_ context.Context, decs []product.StockDecrement) ([]product.StockShortage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var shortages []product.StockShortage
	for _, d := range decs {
		p, ok := r.products[d.ProductID]
		if !ok || p.Stock < d.Quantity {
			available := 0
			if ok {
				available = p.Stock
			}
			shortages = append(shortages, product.StockShortage{
				ProductID: d.ProductID,
				Requested: d.Quantity,
				Available: available,
			})
		}
	}
	if len(shortages) > 0 {
		return shortages, nil
	}
	for _, d := range decs {
		r.products[d.ProductID].Stock -= d.Quantity
	}
	return nil, nil
}

func (r *stubProductRepo) AdjustStock(_ context.Context, id string, delta int, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return product.ErrNotFound
	}
	p.Stock += delta
	return nil
}

type stubSaleRepo struct {
	mu    sync.Mutex
	sales map[string]*sale.Sale
	items map[string][]sale.Item
	steps map[string]map[string]bool
}

func newStubSaleRepo() *stubSaleRepo {
	return &stubSaleRepo{
		sales: make(map[string]*sale.Sale),
		items: make(map[string][]sale.Item),
		steps: make(map[string]map[string]bool),
	}
}

func (r *stubSaleRepo) FindOpenByUser(_ context.Context, userID string) (*sale.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sales {
		if s.UserID == userID && s.Status == sale.StatusOpen {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sale.ErrNoOpenSale
}

func (r *stubSaleRepo) GetByID(_ context.Context, id string) (*sale.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sales[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sale.ErrNoOpenSale
}

func (r *stubSaleRepo) NextNumber(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, s := range r.sales {
		if s.UserID == userID && s.Number > max {
			max = s.Number
		}
	}
	return max + 1, nil
}

func (r *stubSaleRepo) Create(_ context.Context, s *sale.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sales {
		if existing.UserID == s.UserID && existing.Status == sale.StatusOpen {
			return sale.ErrDuplicateSale
		}
	}
	cp := *s
	cp.CreatedAt = time.Now()
	r.sales[s.ID] = &cp
	return nil
}

func (r *stubSaleRepo) InsertItems(_ context.Context, saleID string, items []sale.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[saleID] = append([]sale.Item(nil), items...)
	return nil
}

func (r *stubSaleRepo) Update(_ context.Context, saleID string, upd sale.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[saleID]
	if !ok {
		return sale.ErrNoOpenSale
	}
	s.PaymentMethod = upd.PaymentMethod
	s.Subtotal = upd.Subtotal
	s.Discount = upd.Discount
	s.Total = upd.Total
	s.Notes = upd.Notes
	s.Status = upd.Status
	t := upd.FinalizedAt
	s.FinalizedAt = &t
	return nil
}

func (r *stubSaleRepo) Cancel(_ context.Context, saleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sales[saleID]; ok && s.Status == sale.StatusOpen {
		s.Status = sale.StatusCancelled
	}
	return nil
}

func (r *stubSaleRepo) ItemsBySale(_ context.Context, saleID string) ([]sale.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sale.Item(nil), r.items[saleID]...), nil
}

func (r *stubSaleRepo) LogStep(_ context.Context, saleID, step string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.steps[saleID] == nil {
		r.steps[saleID] = make(map[string]bool)
	}
	r.steps[saleID][step] = true
	return nil
}

func (r *stubSaleRepo) CompletedSteps(_ context.Context, saleID string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	done := make(map[string]bool, len(r.steps[saleID]))
	for step, ok := range r.steps[saleID] {
		done[step] = ok
	}
	return done, nil
}

type stubCustomerRepo struct {
	mu        sync.Mutex
	customers map[string]*customer.Customer
}

func newStubCustomerRepo() *stubCustomerRepo {
	return &stubCustomerRepo{customers: make(map[string]*customer.Customer)}
}

func (r *stubCustomerRepo) Create(_ context.Context, c *customer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.customers[c.ID] = &cp
	return nil
}

func (r *stubCustomerRepo) GetByID(_ context.Context, id string) (*customer.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.customers[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, customer.ErrNotFound
}

func (r *stubCustomerRepo) ListByUser(_ context.Context, userID string) ([]customer.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []customer.Customer
	for _, c := range r.customers {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

type stubKeyRepo struct {
	keys map[string]*auth.APIKey // by hash
}

func (r *stubKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKey, error) {
	if k, ok := r.keys[hash]; ok && k.Active {
		return k, nil
	}
	return nil, auth.ErrNotFound
}

type stubReportRepo struct {
	summary *report.Summary
	low     []report.LowStockItem
}

func (r *stubReportRepo) SalesSummary(context.Context, string, time.Time, time.Time) (*report.Summary, error) {
	if r.summary != nil {
		return r.summary, nil
	}
	return &report.Summary{
		Revenue:       decimal.Zero,
		Discounts:     decimal.Zero,
		AverageTicket: decimal.Zero,
	}, nil
}

func (r *stubReportRepo) TopProducts(context.Context, string, time.Time, time.Time, int) ([]report.ProductRank, error) {
	return nil, nil
}

func (r *stubReportRepo) LowStock(context.Context, int) ([]report.LowStockItem, error) {
	return r.low, nil
}
