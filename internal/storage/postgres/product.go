package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/torneiradigital/pos-server/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository using the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `id, name, category, COALESCE(barcode, ''), price, stock, active`

// List returns all active products ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE active ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	var out []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByID returns a single product, or product.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return r.scanOne(row, id)
}

// GetByBarcode returns the product registered under barcode, or
// product.ErrNotFound.
func (r *ProductRepository) GetByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode)
	return r.scanOne(row, barcode)
}

// GetStock reads the live stock of a product.
func (r *ProductRepository) GetStock(ctx context.Context, id string) (int, error) {
	var stock int
	err := r.pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, product.ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrapf(err, "get stock %q", id)
	}
	return stock, nil
}

// DecrementAll re-reads stock under row locks and decrements every line in
// one transaction. When any line falls short nothing is committed and all
// shortages are reported. A successful decrement records one outbound stock
// movement per line.
func (r *ProductRepository) DecrementAll(ctx context.Context, decs []product.StockDecrement) ([]product.StockShortage, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin stock tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var shortages []product.StockShortage
	for _, d := range decs {
		var stock int
		err := tx.QueryRow(ctx,
			`SELECT stock FROM products WHERE id = $1 FOR UPDATE`, d.ProductID).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(product.ErrNotFound, "product %q", d.ProductID)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "lock product %q", d.ProductID)
		}

		if stock < d.Quantity {
			shortages = append(shortages, product.StockShortage{
				ProductID: d.ProductID,
				Requested: d.Quantity,
				Available: stock,
			})
			continue
		}

		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1`,
			d.ProductID, d.Quantity); err != nil {
			return nil, errors.Wrapf(err, "decrement product %q", d.ProductID)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO stock_movements (product_id, sale_id, kind, quantity, reason)
			 VALUES ($1, NULLIF($2, ''), 'saida', $3, 'venda')`,
			d.ProductID, d.SaleID, d.Quantity); err != nil {
			return nil, errors.Wrapf(err, "record movement %q", d.ProductID)
		}
	}

	if len(shortages) > 0 {
		return shortages, nil // rollback via defer
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit stock tx")
	}
	return nil, nil
}

// AdjustStock applies a manual stock correction and records an 'ajuste'
// movement in the ledger, whichever way the correction goes.
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int, reason string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin adjust tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = now()
		 WHERE id = $1 AND stock + $2 >= 0`, id, delta)
	if err != nil {
		return errors.Wrapf(err, "adjust product %q", id)
	}
	if ct.RowsAffected() == 0 {
		return errors.Errorf("adjust product %q: would drive stock negative or product missing", id)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO stock_movements (product_id, kind, quantity, reason)
		 VALUES ($1, 'ajuste', $2, $3)`, id, delta, reason); err != nil {
		return errors.Wrapf(err, "record adjustment %q", id)
	}

	return tx.Commit(ctx)
}

func (r *ProductRepository) scanOne(row pgx.Row, ref string) (*product.Product, error) {
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, product.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", ref)
	}
	return &p, nil
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Barcode, &p.Price, &p.Stock, &p.Active)
	return p, err
}
