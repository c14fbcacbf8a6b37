package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_ReadyGate(t *testing.T) {
	h := New()

	assert.False(t, h.IsReady(), "starts not ready")
	h.SetReady(true)
	assert.True(t, h.IsReady())
	h.SetReady(false)
	assert.False(t, h.IsReady(), "shutdown drains readiness")
}

func TestHealth_FailureThreshold(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})
	h.SetReady(true)

	// One failed run is below the threshold; the check stays healthy.
	c := h.readiness[0]
	c.run(context.Background())
	assert.True(t, h.IsReady())

	c.run(context.Background())
	c.run(context.Background())
	assert.False(t, h.IsReady(), "three consecutive failures flip the check")
}

func TestHealth_RecoversAfterSuccess(t *testing.T) {
	h := New()
	var fail atomic.Bool
	fail.Store(true)
	h.AddReadinessCheck("db", time.Second, func(context.Context) error {
		if fail.Load() {
			return errors.New("down")
		}
		return nil
	})
	h.SetReady(true)

	c := h.readiness[0]
	for i := 0; i < 3; i++ {
		c.run(context.Background())
	}
	require.False(t, h.IsReady())

	fail.Store(false)
	c.run(context.Background())
	assert.True(t, h.IsReady(), "one success restores health")
}

func TestHealth_ReadyEndpoint(t *testing.T) {
	h := New()

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Contains(t, resp.Checks, "_readiness")

	h.SetReady(true)
	w = httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth_LiveEndpointReportsFailure(t *testing.T) {
	h := New()
	h.AddLivenessCheck("stuck", time.Second, func(context.Context) error {
		return errors.New("deadlock suspected")
	})

	c := h.liveness[0]
	for i := 0; i < 3; i++ {
		c.run(context.Background())
	}

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "deadlock suspected")
}

func TestHealth_StartStop(t *testing.T) {
	h := New()
	var runs atomic.Int32
	h.AddLivenessCheck("tick", time.Second, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	h.Start(context.Background(), 10*time.Millisecond)
	assert.Eventually(t, func() bool { return runs.Load() >= 2 },
		time.Second, 5*time.Millisecond)
	h.Stop()
	h.Stop() // idempotent
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
