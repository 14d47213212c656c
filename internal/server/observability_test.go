package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/howcatalog/internal/metrics"
)

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestObservabilityEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.RecordGrpcRequest("/how.v1.Catalog/GetTree", "OK", time.Millisecond)

	h := observabilityHandler(reg, nil)

	code, body := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"healthy"`)

	code, _ = get(t, h, "/ready")
	assert.Equal(t, http.StatusOK, code)

	code, body = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "howcatalog_grpc_requests_total")
}

func TestReadyReportsFailure(t *testing.T) {
	h := observabilityHandler(prometheus.NewRegistry(), func(context.Context) error {
		return errors.New(`redis: dial "cache:6379": connection refused`)
	})
	code, body := get(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "not_ready", out["status"])
	assert.Equal(t, `redis: dial "cache:6379": connection refused`, out["error"])
}
