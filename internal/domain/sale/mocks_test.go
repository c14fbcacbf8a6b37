package sale

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/torneiradigital/pos-server/internal/domain/product"
)

// mockSaleRepo is an in-memory Repository with per-operation error
// injection, mirroring what the Postgres store enforces (one open sale per
// user, unique sale numbers, idempotent cancel).
type mockSaleRepo struct {
	mu    sync.Mutex
	sales map[string]*Sale
	items map[string][]Item
	steps map[string]map[string]bool

	nextNumber int

	createErr      error
	createErrOnce  bool
	insertItemsErr error
	updateErr      error
	cancelErr      error
	logStepErr     error
}

func newMockSaleRepo() *mockSaleRepo {
	return &mockSaleRepo{
		sales:      make(map[string]*Sale),
		items:      make(map[string][]Item),
		steps:      make(map[string]map[string]bool),
		nextNumber: 1,
	}
}

func (m *mockSaleRepo) FindOpenByUser(_ context.Context, userID string) (*Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sales {
		if s.UserID == userID && s.Status == StatusOpen {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNoOpenSale
}

func (m *mockSaleRepo) GetByID(_ context.Context, id string) (*Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok {
		return nil, errors.New("sale not found")
	}
	cp := *s
	return &cp, nil
}

func (m *mockSaleRepo) NextNumber(_ context.Context, _ string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.nextNumber
	m.nextNumber++
	return n, nil
}

func (m *mockSaleRepo) Create(_ context.Context, s *Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		err := m.createErr
		if m.createErrOnce {
			m.createErr = nil
		}
		return err
	}
	for _, existing := range m.sales {
		if existing.UserID == s.UserID && existing.Status == StatusOpen {
			return ErrDuplicateSale
		}
	}
	cp := *s
	m.sales[s.ID] = &cp
	return nil
}

func (m *mockSaleRepo) InsertItems(_ context.Context, saleID string, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertItemsErr != nil {
		return m.insertItemsErr
	}
	// Replaces the sale's lines, like the store's delete-then-insert.
	m.items[saleID] = append([]Item(nil), items...)
	return nil
}

func (m *mockSaleRepo) Update(_ context.Context, saleID string, upd Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	s, ok := m.sales[saleID]
	if !ok {
		return errors.New("sale not found")
	}
	s.PaymentMethod = upd.PaymentMethod
	s.Subtotal = upd.Subtotal
	s.Discount = upd.Discount
	s.Total = upd.Total
	s.Notes = upd.Notes
	s.Status = upd.Status
	at := upd.FinalizedAt
	s.FinalizedAt = &at
	return nil
}

func (m *mockSaleRepo) Cancel(_ context.Context, saleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelErr != nil {
		return m.cancelErr
	}
	if s, ok := m.sales[saleID]; ok {
		s.Status = StatusCancelled
	}
	return nil
}

func (m *mockSaleRepo) ItemsBySale(_ context.Context, saleID string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Item(nil), m.items[saleID]...), nil
}

func (m *mockSaleRepo) LogStep(_ context.Context, saleID, step string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logStepErr != nil {
		return m.logStepErr
	}
	if m.steps[saleID] == nil {
		m.steps[saleID] = make(map[string]bool)
	}
	m.steps[saleID][step] = true
	return nil
}

func (m *mockSaleRepo) CompletedSteps(_ context.Context, saleID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.steps[saleID]))
	for k, v := range m.steps[saleID] {
		out[k] = v
	}
	return out, nil
}

func (m *mockSaleRepo) openCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sales {
		if s.UserID == userID && s.Status == StatusOpen {
			n++
		}
	}
	return n
}

// mockProductRepo tracks live stock and records decrement calls.
type mockProductRepo struct {
	mu           sync.Mutex
	stock        map[string]int
	decrementErr error
	decremented  [][]product.StockDecrement
}

func newMockProductRepo(stock map[string]int) *mockProductRepo {
	return &mockProductRepo{stock: stock}
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, _ string) (*product.Product, error) {
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) GetByBarcode(_ context.Context, _ string) (*product.Product, error) {
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) GetStock(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[id], nil
}

func (m *mockProductRepo) DecrementAll(_ context.Context, decs []product.StockDecrement) ([]product.StockShortage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decrementErr != nil {
		return nil, m.decrementErr
	}

	var shortages []product.StockShortage
	for _, d := range decs {
		if available := m.stock[d.ProductID]; available < d.Quantity {
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
		m.stock[d.ProductID] -= d.Quantity
	}
	m.decremented = append(m.decremented, decs)
	return nil, nil
}

func (m *mockProductRepo) AdjustStock(_ context.Context, id string, delta int, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[id] += delta
	return nil
}
