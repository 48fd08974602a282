package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/corpus-self/ingest-fabric/internal/consumer"
	"github.com/corpus-self/ingest-fabric/internal/idempotency"
	"github.com/corpus-self/ingest-fabric/internal/registry"
)

func newRouter(t *testing.T) *echo.Echo {
	t.Helper()
	kernel := idempotency.NewKernel(idempotency.NewMemoryStore(), zaptest.NewLogger(t))
	c := consumer.New(registry.ServiceMeetings, nil, kernel, zaptest.NewLogger(t))

	e := echo.New()
	RegisterRoutes(e, c.Stats(), nil, zaptest.NewLogger(t))
	return e
}

func TestHealthz(t *testing.T) {
	e := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStats(t *testing.T) {
	e := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snap consumer.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, int64(0), snap.Processed)
	assert.Equal(t, int64(0), snap.Errors)
}

func TestContactRoutesSkippedWithoutService(t *testing.T) {
	e := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/contacts?user_id=u1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
