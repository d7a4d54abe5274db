// Package healthcheck unit tests
package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPinger struct {
	err   error
	calls atomic.Int32
}

func (p *stubPinger) PingContext(ctx context.Context) error {
	p.calls.Add(1)
	return p.err
}

func static(status Status) Checker {
	return NewCustomChecker(func(ctx context.Context) (Status, string, interface{}) {
		return status, string(status), nil
	})
}

func TestHealthCheck_Check(t *testing.T) {
	tests := []struct {
		name     string
		checkers map[string]Checker
		want     Status
	}{
		{"no checkers", map[string]Checker{}, StatusHealthy},
		{"all healthy", map[string]Checker{"a": static(StatusHealthy), "b": static(StatusHealthy)}, StatusHealthy},
		{"one degraded", map[string]Checker{"a": static(StatusHealthy), "b": static(StatusDegraded)}, StatusDegraded},
		{"unhealthy wins", map[string]Checker{"a": static(StatusDegraded), "b": static(StatusUnhealthy)}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New("test", zap.NewNop())
			for name, c := range tt.checkers {
				hc.Register(name, c)
			}

			response := hc.Check(context.Background())

			assert.Equal(t, tt.want, response.Status)
			assert.Len(t, response.Checks, len(tt.checkers))
		})
	}
}

func TestHealthCheck_ChecksAreSortedAndNamed(t *testing.T) {
	hc := New("test", zap.NewNop())
	hc.Register("redis", static(StatusHealthy))
	hc.Register("database", static(StatusHealthy))

	response := hc.Check(context.Background())

	require.Len(t, response.Checks, 2)
	assert.Equal(t, "database", response.Checks[0].Name)
	assert.Equal(t, "redis", response.Checks[1].Name)
}

func TestHealthCheck_CachesResponse(t *testing.T) {
	pinger := &stubPinger{}
	hc := New("test", zap.NewNop())
	hc.Register("database", NewDatabaseChecker(pinger))

	hc.Check(context.Background())
	hc.Check(context.Background())
	assert.Equal(t, int32(1), pinger.calls.Load())

	hc.SetCacheTTL(0)
	hc.Check(context.Background())
	assert.Equal(t, int32(2), pinger.calls.Load())
}

func TestReadinessHandler(t *testing.T) {
	t.Run("Ready_ShouldReturn200", func(t *testing.T) {
		hc := New("1.2.3", zap.NewNop())
		hc.Register("database", NewDatabaseChecker(&stubPinger{}))
		rec := httptest.NewRecorder()

		hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "1.2.3", body["version"])
		assert.Contains(t, body, "total_duration_ms")
	})

	t.Run("DatabaseDown_ShouldReturn503", func(t *testing.T) {
		hc := New("1.2.3", zap.NewNop())
		hc.Register("database", NewDatabaseChecker(&stubPinger{err: errors.New("connection refused")}))
		rec := httptest.NewRecorder()

		hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "connection refused")
	})

	t.Run("OpenBreaker_ShouldOnlyDegrade", func(t *testing.T) {
		breaker := NewCircuitBreaker("nutrition", CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Hour})
		breaker.Execute(context.Background(), func(ctx context.Context) error { return errors.New("down") })
		hc := New("1.2.3", zap.NewNop())
		hc.Register("nutrition", NewBreakerChecker(breaker))
		rec := httptest.NewRecorder()

		hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"degraded"`)
		assert.Contains(t, rec.Body.String(), "circuit open")
	})
}

func TestLivenessHandler(t *testing.T) {
	hc := New("1.2.3", zap.NewNop())
	hc.Register("database", NewDatabaseChecker(&stubPinger{err: errors.New("down")}))
	rec := httptest.NewRecorder()

	hc.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}
