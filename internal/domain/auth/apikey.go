package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no API key matches a given hash.
var ErrNotFound = errors.New("api key not found")

// APIKey identifies the user acting through a key. Only the HMAC-SHA256 hash
// of the key material is ever stored.
type APIKey struct {
	ID      string
	UserID  string
	KeyHash string
	Name    string
	Active  bool
}

// Repository defines lookup operations for API keys.
type Repository interface {
	FindByHash(ctx context.Context, keyHash string) (*APIKey, error)
}

type actorKey struct{}

// WithActor stores the authenticated user ID in the context. Every operation
// downstream is scoped to this actor; nothing reads ambient global state.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFromContext extracts the authenticated user ID, if any.
func ActorFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorKey{}).(string)
	return id, ok && id != ""
}
