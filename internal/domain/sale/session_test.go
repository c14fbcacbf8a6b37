package sale

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/torneiradigital/pos-server/internal/domain/product"
)

func newTestManager(t *testing.T, repo *mockSaleRepo, products *mockProductRepo) *Manager {
	t.Helper()
	lg := zaptest.NewLogger(t)
	m := NewManager(repo, NewFinalizer(repo, products, lg), lg)
	m.retryDelay = time.Millisecond
	return m
}

func testProduct(id string, price string, stock int) product.Product {
	return product.Product{
		ID:    id,
		Name:  "Produto " + id,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func TestStartOrResume_CreatesNewSale(t *testing.T) {
	repo := newMockSaleRepo()
	m := newTestManager(t, repo, newMockProductRepo(nil))

	res, err := m.StartOrResume(context.Background(), "u1", "")
	require.NoError(t, err)

	assert.False(t, res.Resumed)
	assert.Equal(t, StatusOpen, res.Sale.Status)
	assert.Equal(t, 1, res.Sale.Number)
	assert.Equal(t, DefaultPaymentMethod, res.Sale.PaymentMethod)
	assert.True(t, decimal.Zero.Equal(res.Sale.Total))
}

func TestStartOrResume_NewSaleClearsCart(t *testing.T) {
	repo := newMockSaleRepo()
	m := newTestManager(t, repo, newMockProductRepo(nil))

	// Leftover lines from a previous session.
	first, err := m.StartOrResume(context.Background(), "u1", "")
	require.NoError(t, err)
	require.NoError(t, m.AddItem("u1", testProduct("p1", "10.00", 5), 2))
	require.NoError(t, m.Cancel(context.Background(), "u1", first.Sale.ID))

	res, err := m.StartOrResume(context.Background(), "u1", "")
	require.NoError(t, err)
	require.False(t, res.Resumed)

	view, err := m.Cart("u1")
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

func TestStartOrResume_ResumesExistingOpenSale(t *testing.T) {
	repo := newMockSaleRepo()
	m := newTestManager(t, repo, newMockProductRepo(nil))

	first, err := m.StartOrResume(context.Background(), "u1", "")
	require.NoError(t, err)
	require.NoError(t, m.AddItem("u1", testProduct("p1", "10.00", 5), 2))

	second, err := m.StartOrResume(context.Background(), "u1", "")
	require.NoError(t, err)

	assert.True(t, second.Resumed)
	assert.Equal(t, first.Sale.ID, second.Sale.ID)

	// Resuming leaves the cart untouched.
	view, err := m.Cart("u1")
	require.NoError(t, err)
	assert.Len(t, view.Lines, 1)
}

func TestStartOrResume_NeverTwoOpenSalesPerUser(t *testing.T) {
	repo := newMockSaleRepo()
	m := newTestManager(t, repo, newMockProductRepo(nil))

	for range 5 {
		_, err := m.StartOrResume(context.Background(), "u1", "")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.openCount("u1"))
}

func TestStartOrResume_RetriesOnceOnConflict(t *testing.T) {
	repo := newMockSaleRepo()
	repo.createErr = ErrDuplicateSale
	repo.createErrOnce = true
	m := newTestManager(t, repo, newMockProductRepo(nil))

	res, err := m.StartOrResume(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.False(t, res.Resumed)
}

func TestStartOrResume_SurfacesErrorAfterRetry(t *testing.T) {
	repo := newMockSaleRepo()
	repo.createErr = ErrDuplicateSale // persists across both attempts
	m := newTestManager(t, repo, newMockProductRepo(nil))

	_, err := m.StartOrResume(context.Background(), "u1", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateSale)
}

func TestCancel_ClearsBoundSessionAndIsIdempotent(t *testing.T) {
	repo := newMockSaleRepo()
	m := newTestManager(t, repo, newMockProductRepo(nil))

	res, err := m.StartOrResume(context.Background(), "u1", "")
	require.NoError(t, err)
	require.NoError(t, m.AddItem("u1", testProduct("p1", "10.00", 5), 1))

	require.NoError(t, m.Cancel(context.Background(), "u1", res.Sale.ID))
	require.NoError(t, m.Cancel(context.Background(), "u1", res.Sale.ID))

	_, err = m.Cart("u1")
	assert.ErrorIs(t, err, ErrNoSession)

	got, err := repo.GetByID(context.Background(), res.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestCancel_OtherSaleLeavesSessionBound(t *testing.T) {
	repo := newMockSaleRepo()
	m := newTestManager(t, repo, newMockProductRepo(nil))

	_, err := m.StartOrResume(context.Background(), "u1", "")
	require.NoError(t, err)

	require.NoError(t, m.Cancel(context.Background(), "u1", "some-old-sale"))

	_, err = m.Cart("u1")
	assert.NoError(t, err)
}

func TestCartOps_RequireSession(t *testing.T) {
	m := newTestManager(t, newMockSaleRepo(), newMockProductRepo(nil))

	err := m.AddItem("u1", testProduct("p1", "10.00", 5), 1)
	assert.ErrorIs(t, err, ErrNoSession)

	err = m.SetQuantity("u1", "p1", 2)
	assert.ErrorIs(t, err, ErrNoSession)
}
