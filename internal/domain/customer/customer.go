package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Customer is a person a sale can be attributed to. Customers belong to the
// user that registered them.
type Customer struct {
	ID        string
	UserID    string
	Name      string
	Phone     string
	Email     string
	CreatedAt time.Time
}

// Repository defines persistence operations for customer records.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id string) (*Customer, error)
	ListByUser(ctx context.Context, userID string) ([]Customer, error)
}
