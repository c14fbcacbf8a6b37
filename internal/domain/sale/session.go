package sale

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/torneiradigital/pos-server/internal/domain/cart"
	"github.com/torneiradigital/pos-server/internal/domain/product"
)

// session binds a user's in-memory cart to their open sale. All cart access
// goes through the session mutex; the cart itself is unsynchronized.
type session struct {
	mu     sync.Mutex
	saleID string
	cart   *cart.Cart
}

// StartResult reports the sale a session was bound to and whether an
// existing open sale was resumed rather than a new one created.
type StartResult struct {
	Sale    *Sale
	Resumed bool
}

// Manager guarantees at most one open sale per user and binds the cart's
// lifetime to it. The open-sale uniqueness check is query-then-create and
// therefore racy across concurrent tabs; the store's partial unique index
// catches the race and the losing call retries once, then resumes or fails.
type Manager struct {
	sales      Repository
	finalizer  *Finalizer
	lg         *zap.Logger
	retryDelay time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager creates a session Manager.
func NewManager(sales Repository, finalizer *Finalizer, lg *zap.Logger) *Manager {
	return &Manager{
		sales:      sales,
		finalizer:  finalizer,
		lg:         lg,
		retryDelay: 250 * time.Millisecond,
		sessions:   make(map[string]*session),
	}
}

// StartOrResume binds the user to their open sale, creating one when none
// exists. Resuming leaves the in-memory cart untouched; creating clears it.
// A uniqueness conflict on create is retried exactly once after a short
// delay before the error is surfaced.
func (m *Manager) StartOrResume(ctx context.Context, userID, customerID string) (*StartResult, error) {
	res, err := m.startOrResume(ctx, userID, customerID)
	if err == nil || !errors.Is(err, ErrDuplicateSale) {
		return res, err
	}

	m.lg.Warn("sale create conflict, retrying once",
		zap.String("user_id", userID), zap.Error(err))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(m.retryDelay):
	}

	res, err = m.startOrResume(ctx, userID, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "create sale")
	}
	return res, nil
}

func (m *Manager) startOrResume(ctx context.Context, userID, customerID string) (*StartResult, error) {
	existing, err := m.sales.FindOpenByUser(ctx, userID)
	switch {
	case err == nil:
		sess := m.session(userID)
		sess.mu.Lock()
		sess.saleID = existing.ID
		sess.mu.Unlock()
		// The cart is deliberately left as-is: persisted line items are not
		// reconstructed on resume.
		return &StartResult{Sale: existing, Resumed: true}, nil
	case !errors.Is(err, ErrNoOpenSale):
		return nil, errors.Wrap(err, "find open sale")
	}

	number, err := m.sales.NextNumber(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "next sale number")
	}

	s := &Sale{
		ID:            uuid.New().String(),
		UserID:        userID,
		CustomerID:    customerID,
		Number:        number,
		Status:        StatusOpen,
		PaymentMethod: DefaultPaymentMethod,
		Subtotal:      decimal.Zero,
		Discount:      decimal.Zero,
		Total:         decimal.Zero,
	}
	if err := m.sales.Create(ctx, s); err != nil {
		return nil, err
	}

	sess := m.session(userID)
	sess.mu.Lock()
	sess.saleID = s.ID
	sess.cart.Clear()
	sess.mu.Unlock()

	m.lg.Info("sale opened",
		zap.String("sale_id", s.ID),
		zap.String("user_id", userID),
		zap.Int("number", number))

	return &StartResult{Sale: s}, nil
}

// Cancel marks the sale cancelled. When the cancelled sale is the one bound
// to the user's session, the cart is cleared and the session unbound.
// Cancelling an already-cancelled sale is not an error.
func (m *Manager) Cancel(ctx context.Context, userID, saleID string) error {
	if err := m.sales.Cancel(ctx, saleID); err != nil {
		return errors.Wrap(err, "cancel sale")
	}

	sess := m.session(userID)
	sess.mu.Lock()
	if sess.saleID == saleID {
		sess.cart.Clear()
		sess.saleID = ""
	}
	sess.mu.Unlock()

	m.lg.Info("sale cancelled", zap.String("sale_id", saleID), zap.String("user_id", userID))
	return nil
}

// Finalize commits the user's cart through the finalization sequencer. On
// success the cart is cleared and the session unbound; on any failure both
// are left exactly as they were so the user can retry without re-entering
// data.
func (m *Manager) Finalize(ctx context.Context, userID string, req FinalizeRequest) (*Sale, error) {
	sess := m.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.saleID == "" {
		return nil, ErrNoSession
	}
	if sess.cart.Len() == 0 {
		return nil, ErrEmptyCart
	}

	finalized, err := m.finalizer.Run(ctx, sess.saleID, sess.cart.Lines(), sess.cart.Totals(), req)
	if err != nil {
		return nil, err
	}

	sess.cart.Clear()
	sess.saleID = ""
	return finalized, nil
}

// AddItem adds a product to the user's cart. The session must be bound to
// an open sale.
func (m *Manager) AddItem(userID string, p product.Product, quantity int) error {
	return m.withCart(userID, func(c *cart.Cart) {
		c.AddItem(p, quantity)
	})
}

// RemoveItem removes a product line from the user's cart.
func (m *Manager) RemoveItem(userID, productID string) error {
	return m.withCart(userID, func(c *cart.Cart) {
		c.RemoveItem(productID)
	})
}

// SetQuantity updates a line's quantity in the user's cart.
func (m *Manager) SetQuantity(userID, productID string, quantity int) error {
	return m.withCart(userID, func(c *cart.Cart) {
		c.SetQuantity(productID, quantity)
	})
}

// ApplyItemDiscount sets a line's discount in the user's cart.
func (m *Manager) ApplyItemDiscount(userID, productID string, amount decimal.Decimal) error {
	return m.withCart(userID, func(c *cart.Cart) {
		c.ApplyItemDiscount(productID, amount)
	})
}

// CartView is a snapshot of the session's cart for display.
type CartView struct {
	SaleID string
	Lines  []cart.Line
	Totals cart.Totals
}

// Cart returns a snapshot of the user's cart and its totals.
func (m *Manager) Cart(userID string) (*CartView, error) {
	sess := m.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.saleID == "" {
		return nil, ErrNoSession
	}
	return &CartView{
		SaleID: sess.saleID,
		Lines:  sess.cart.Lines(),
		Totals: sess.cart.Totals(),
	}, nil
}

func (m *Manager) withCart(userID string, fn func(*cart.Cart)) error {
	sess := m.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.saleID == "" {
		return ErrNoSession
	}
	fn(sess.cart)
	return nil
}

func (m *Manager) session(userID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[userID]
	if !ok {
		sess = &session{cart: cart.New()}
		m.sessions[userID] = sess
	}
	return sess
}
