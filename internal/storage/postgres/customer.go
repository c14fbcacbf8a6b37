package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/torneiradigital/pos-server/internal/domain/customer"
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository using the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// Create inserts a new customer record.
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO customers (id, user_id, name, phone, email, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserID, c.Name, c.Phone, c.Email, c.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "create customer %q", c.ID)
	}
	return nil
}

// GetByID returns a customer, or customer.ErrNotFound.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	var c customer.Customer
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, name, phone, email, created_at FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, customer.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get customer %q", id)
	}
	return &c, nil
}

// ListByUser returns the customers registered by a user, newest first.
func (r *CustomerRepository) ListByUser(ctx context.Context, userID string) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, name, phone, email, created_at
		 FROM customers WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list customers of %q", userID)
	}
	defer rows.Close()

	var out []customer.Customer
	for rows.Next() {
		var c customer.Customer
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan customer")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
