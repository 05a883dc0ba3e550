package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(e *echo.Echo, target, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(RequestIDMiddleware())
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, requestID(c)) })

	rec := serve(e, "/x", "")
	id := rec.Header().Get(headerRequestID)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "caller-id")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "caller-id", rec.Header().Get(headerRequestID))
}

type observation struct {
	method, route, status string
}

type fakeObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (f *fakeObserver) ObserveHTTP(method, route, status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, observation{method, route, status})
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	obs := &fakeObserver{}
	e := echo.New()
	e.Use(MetricsMiddleware(obs))
	e.GET("/v1/readings/:threadId", ok)
	e.GET("/metrics", ok)

	serve(e, "/v1/readings/abc", "")
	serve(e, "/metrics", "")
	rec := serve(e, "/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.Len(t, obs.seen, 2)
	assert.Equal(t, observation{http.MethodGet, "/v1/readings/:threadId", "200"}, obs.seen[0])
	assert.Equal(t, observation{http.MethodGet, "unmatched", "404"}, obs.seen[1])
}

func TestMetricsMiddlewareRecordsHandlerErrors(t *testing.T) {
	obs := &fakeObserver{}
	e := echo.New()
	e.Use(MetricsMiddleware(obs))
	e.GET("/teapot", func(echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	rec := serve(e, "/teapot", "")

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, rec.Body.String(), "short and stout")
	require.Len(t, obs.seen, 1)
	assert.Equal(t, "418", obs.seen[0].status)
}

func TestLoggingMiddlewareLogsRenderedStatus(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(LoggingMiddleware(slog.New(slog.NewJSONHandler(&buf, nil))))
	e.GET("/x", ok)

	rec := serve(e, "/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var entry struct {
		Status int    `json:"status"`
		Path   string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, http.StatusNotFound, entry.Status)
	assert.Equal(t, "/missing", entry.Path)
}

func TestRateLimiterPerClient(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	e := echo.New()
	e.Use(rl.Middleware())
	e.GET("/v1/tarot", ok)
	e.GET("/healthz", ok)

	assert.Equal(t, http.StatusOK, serve(e, "/v1/tarot", "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, serve(e, "/v1/tarot", "10.0.0.1:1001").Code)
	rec := serve(e, "/v1/tarot", "10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, serve(e, "/v1/tarot", "10.0.0.2:1000").Code, "other clients keep their own bucket")
	assert.Equal(t, http.StatusOK, serve(e, "/healthz", "10.0.0.1:1003").Code)

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, serve(e, "/v1/tarot", "10.0.0.1:1004").Code)
}

func TestRateLimiterDisabled(t *testing.T) {
	e := echo.New()
	e.Use(NewRateLimiter(0, 0).Middleware())
	e.GET("/x", ok)

	for range 5 {
		assert.Equal(t, http.StatusOK, serve(e, "/x", "10.0.0.1:1").Code)
	}
}

func TestRateLimiterEvict(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5, 5)
	rl.now = func() time.Time { return now }

	rl.allow("a")
	now = now.Add(time.Minute)
	rl.allow("b")

	assert.Equal(t, 1, rl.Evict(30*time.Second))
	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "b")
}
