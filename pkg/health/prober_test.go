package health_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusvault/gateway/pkg/config"
	"github.com/nimbusvault/gateway/pkg/health"
	"github.com/nimbusvault/gateway/pkg/infra/logger"
	"github.com/nimbusvault/gateway/pkg/registry"
)

func newProber(t *testing.T, backends []config.BackendConfig, threshold int) *health.Prober {
	t.Helper()
	cfg := &config.Config{Backends: backends}
	reg, err := registry.NewRegistry(cfg)
	require.NoError(t, err)
	return health.NewProber(logger.NewTestLogger(), reg, health.ProberOpts{
		Interval:         time.Minute,
		Timeout:          time.Second,
		FailureThreshold: threshold,
	})
}

func TestProber_SweepMarksHealthy(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health/live", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer backend.Close()

	prober := newProber(t, []config.BackendConfig{
		{Name: "auth", Address: backend.URL, Prefix: "/api/auth", HealthPath: "/health/live"},
	}, 3)

	assert.False(t, prober.Healthy("auth"))

	prober.Sweep(context.Background())

	assert.True(t, prober.Healthy("auth"))
	snapshot := prober.Snapshot()
	require.Len(t, snapshot, 1)
	assert.True(t, snapshot[0].Healthy)
	assert.False(t, snapshot[0].LastCheck.IsZero())
}

func TestProber_SweepMarksUnhealthy(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	prober := newProber(t, []config.BackendConfig{
		{Name: "failing", Address: failing.URL, Prefix: "/a", HealthPath: "/health/live"},
		{Name: "dead", Address: dead.URL, Prefix: "/b", HealthPath: "/health/live"},
	}, 3)

	prober.Sweep(context.Background())

	assert.False(t, prober.Healthy("failing"))
	assert.False(t, prober.Healthy("dead"))
	for _, s := range prober.Snapshot() {
		assert.False(t, s.Healthy)
		assert.NotEmpty(t, s.LastError)
	}
}

func TestProber_BodyErrorMarker(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error"}`))
	}))
	defer backend.Close()

	prober := newProber(t, []config.BackendConfig{
		{Name: "auth", Address: backend.URL, Prefix: "/a", HealthPath: "/health/live"},
	}, 3)

	prober.Sweep(context.Background())
	assert.False(t, prober.Healthy("auth"))
}

func TestProber_RecoveryFlipsBack(t *testing.T) {
	var healthy atomic.Bool
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer backend.Close()

	prober := newProber(t, []config.BackendConfig{
		{Name: "auth", Address: backend.URL, Prefix: "/a", HealthPath: "/health/live"},
	}, 3)

	prober.Sweep(context.Background())
	assert.False(t, prober.Healthy("auth"))

	healthy.Store(true)
	prober.Sweep(context.Background())
	assert.True(t, prober.Healthy("auth"))
}

func TestProber_PassiveFailureThreshold(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer backend.Close()

	prober := newProber(t, []config.BackendConfig{
		{Name: "auth", Address: backend.URL, Prefix: "/a", HealthPath: "/health/live"},
	}, 3)

	prober.Sweep(context.Background())
	require.True(t, prober.Healthy("auth"))

	cause := errors.New("connection refused")
	prober.ReportFailure("auth", cause)
	prober.ReportFailure("auth", cause)
	assert.True(t, prober.Healthy("auth"), "below threshold the active status holds")

	prober.ReportFailure("auth", cause)
	assert.False(t, prober.Healthy("auth"), "threshold reached flips the backend early")

	// The next active sweep is authoritative and restores it.
	prober.Sweep(context.Background())
	assert.True(t, prober.Healthy("auth"))
}

func TestProber_SuccessResetsFailureRun(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer backend.Close()

	prober := newProber(t, []config.BackendConfig{
		{Name: "auth", Address: backend.URL, Prefix: "/a", HealthPath: "/health/live"},
	}, 3)

	prober.Sweep(context.Background())

	cause := errors.New("timeout")
	prober.ReportFailure("auth", cause)
	prober.ReportFailure("auth", cause)
	prober.ReportSuccess("auth")
	prober.ReportFailure("auth", cause)

	assert.True(t, prober.Healthy("auth"))
}
