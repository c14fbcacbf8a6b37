package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/torneiradigital/pos-server/internal/domain/auth"
)

// Security authenticates requests by API key. Keys are never stored in the
// clear; the lookup runs on the HMAC-SHA256 digest of the presented key under
// the server secret.
type Security struct {
	keys   auth.Repository
	secret []byte
}

// NewSecurity creates a Security using the given key repository and HMAC
// secret.
func NewSecurity(keys auth.Repository, secret []byte) *Security {
	return &Security{keys: keys, secret: secret}
}

// HashKey returns the hex HMAC-SHA256 digest of an API key. Shared with the
// seeding tool so stored hashes match.
func HashKey(secret []byte, key string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticate rejects requests without a valid X-API-Key and stores the
// resolved user as the context actor.
func (s *Security) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			writeUnauthorized(w, "missing API key")
			return
		}

		apiKey, err := s.keys.FindByHash(r.Context(), HashKey(s.secret, key))
		if errors.Is(err, auth.ErrNotFound) {
			writeUnauthorized(w, "invalid API key")
			return
		}
		if err != nil {
			zctx.From(r.Context()).Error("api key lookup failed", zap.Error(err))
			writeError(w, r, err)
			return
		}

		ctx := auth.WithActor(r.Context(), apiKey.UserID)
		ctx = zctx.With(ctx, zap.String("user_id", apiKey.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// actor pulls the authenticated user out of the request context. The
// security middleware guarantees it is present on API routes.
func actor(r *http.Request) (string, bool) {
	return auth.ActorFromContext(r.Context())
}
