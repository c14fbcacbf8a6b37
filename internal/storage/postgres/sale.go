package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/torneiradigital/pos-server/internal/domain/sale"
)

var _ sale.Repository = (*SaleRepository)(nil)

// SaleRepository implements sale.Repository backed by PostgreSQL.
type SaleRepository struct {
	pool *pgxpool.Pool
}

// NewSaleRepository returns a SaleRepository using the given pool.
func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{pool: pool}
}

const saleColumns = `id, user_id, COALESCE(customer_id, ''), number, status,
	payment_method, subtotal, discount, total, notes, created_at, finalized_at`

// FindOpenByUser returns the user's single open sale, or sale.ErrNoOpenSale.
func (r *SaleRepository) FindOpenByUser(ctx context.Context, userID string) (*sale.Sale, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE user_id = $1 AND status = 'open'`, userID)
	s, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sale.ErrNoOpenSale
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find open sale for %q", userID)
	}
	return s, nil
}

// GetByID returns a sale by primary key, or sale.ErrNoOpenSale when absent.
func (r *SaleRepository) GetByID(ctx context.Context, id string) (*sale.Sale, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	s, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sale.ErrNoOpenSale
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get sale %q", id)
	}
	return s, nil
}

// NextNumber returns the next per-user sale number.
func (r *SaleRepository) NextNumber(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(number), 0) + 1 FROM sales WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, errors.Wrapf(err, "next sale number for %q", userID)
	}
	return n, nil
}

// Create inserts a new open sale. A unique violation on the open-sale index
// or the per-user number is reported as sale.ErrDuplicateSale so the caller
// can retry against the now-existing sale.
func (r *SaleRepository) Create(ctx context.Context, s *sale.Sale) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sales (id, user_id, customer_id, number, status, payment_method,
		                    subtotal, discount, total, notes, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.UserID, s.CustomerID, s.Number, s.Status, s.PaymentMethod,
		s.Subtotal, s.Discount, s.Total, s.Notes, s.CreatedAt)
	if isUniqueViolation(err) {
		return sale.ErrDuplicateSale
	}
	if err != nil {
		return errors.Wrapf(err, "create sale %q", s.ID)
	}
	return nil
}

// InsertItems replaces the persisted lines of a sale. The delete-then-insert
// keeps retries of an interrupted finalize from duplicating lines.
func (r *SaleRepository) InsertItems(ctx context.Context, saleID string, items []sale.Item) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin items tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID); err != nil {
		return errors.Wrapf(err, "clear items of %q", saleID)
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx,
			`INSERT INTO sale_items (sale_id, product_id, name, quantity, unit_price, discount)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			saleID, it.ProductID, it.Name, it.Quantity, it.UnitPrice, it.Discount); err != nil {
			return errors.Wrapf(err, "insert item %q", it.ProductID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit items tx")
	}
	return nil
}

// Update writes the finalization fields of a sale.
func (r *SaleRepository) Update(ctx context.Context, saleID string, upd sale.Update) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE sales
		 SET payment_method = $2, subtotal = $3, discount = $4, total = $5,
		     notes = $6, status = $7, finalized_at = $8
		 WHERE id = $1`,
		saleID, upd.PaymentMethod, upd.Subtotal, upd.Discount, upd.Total,
		upd.Notes, upd.Status, upd.FinalizedAt)
	if err != nil {
		return errors.Wrapf(err, "update sale %q", saleID)
	}
	if ct.RowsAffected() == 0 {
		return sale.ErrNoOpenSale
	}
	return nil
}

// Cancel marks an open sale cancelled. Cancelling a sale that is already
// cancelled or missing is a no-op.
func (r *SaleRepository) Cancel(ctx context.Context, saleID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sales SET status = 'cancelled' WHERE id = $1 AND status = 'open'`, saleID)
	if err != nil {
		return errors.Wrapf(err, "cancel sale %q", saleID)
	}
	return nil
}

// ItemsBySale returns the persisted lines of a sale in insertion order.
func (r *SaleRepository) ItemsBySale(ctx context.Context, saleID string) ([]sale.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sale_id, product_id, name, quantity, unit_price, discount
		 FROM sale_items WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, errors.Wrapf(err, "items of sale %q", saleID)
	}
	defer rows.Close()

	var items []sale.Item
	for rows.Next() {
		var it sale.Item
		if err := rows.Scan(&it.SaleID, &it.ProductID, &it.Name,
			&it.Quantity, &it.UnitPrice, &it.Discount); err != nil {
			return nil, errors.Wrap(err, "scan sale item")
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// LogStep records a completed finalization step. Re-logging a step is a
// no-op so retries stay idempotent.
func (r *SaleRepository) LogStep(ctx context.Context, saleID, step string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO finalize_log (sale_id, step) VALUES ($1, $2)
		 ON CONFLICT (sale_id, step) DO NOTHING`, saleID, step)
	if err != nil {
		return errors.Wrapf(err, "log step %q of %q", step, saleID)
	}
	return nil
}

// CompletedSteps returns the set of finalization steps already logged for a
// sale.
func (r *SaleRepository) CompletedSteps(ctx context.Context, saleID string) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT step FROM finalize_log WHERE sale_id = $1`, saleID)
	if err != nil {
		return nil, errors.Wrapf(err, "steps of sale %q", saleID)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var step string
		if err := rows.Scan(&step); err != nil {
			return nil, errors.Wrap(err, "scan step")
		}
		done[step] = true
	}
	return done, rows.Err()
}

func scanSale(row pgx.Row) (*sale.Sale, error) {
	var s sale.Sale
	err := row.Scan(&s.ID, &s.UserID, &s.CustomerID, &s.Number, &s.Status,
		&s.PaymentMethod, &s.Subtotal, &s.Discount, &s.Total, &s.Notes,
		&s.CreatedAt, &s.FinalizedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
