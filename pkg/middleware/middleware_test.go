package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nimbusvault/gateway/pkg/config"
	"github.com/nimbusvault/gateway/pkg/infra/logger"
	"github.com/nimbusvault/gateway/pkg/registry"
	"github.com/nimbusvault/gateway/pkg/routing"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	return logger.NewTestLogger()
}

func testTable(t *testing.T, rateLimit map[string]config.RatePolicy) *routing.Table {
	t.Helper()
	cfg := &config.Config{
		Backends: []config.BackendConfig{
			{Name: "auth", Address: "http://auth:8001", Prefix: "/api/auth"},
			{Name: "upload", Address: "http://upload:8002", Prefix: "/api/upload", RequireAuth: true},
		},
		RateLimit: rateLimit,
	}
	reg, err := registry.NewRegistry(cfg)
	require.NoError(t, err)
	table, err := routing.NewTable(cfg, reg)
	require.NoError(t, err)
	return table
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Error
}
