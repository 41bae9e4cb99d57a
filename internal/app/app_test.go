package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gfrcli/internal/config"
	"gfrcli/internal/infrastructure"
	"gfrcli/internal/middleware"
	"gfrcli/internal/shared/testutil"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *Application {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}

	tel, err := infrastructure.InitializeOTel(cfg.Telemetry, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	logger, _ := testutil.NewTestLogger(t)
	return NewApplication(cfg, logger, tel)
}

func serve(a *Application, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func TestApplication_Routes(t *testing.T) {
	a := newTestApp(t, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/api/health", wantStatus: http.StatusOK},
		{name: "version", method: http.MethodGet, path: "/api/version", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/nope", wantStatus: http.StatusNotFound},
		{name: "unknown v1 route", method: http.MethodGet, path: "/api/v1/nope", wantStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodDelete, path: "/api/health", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(a, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestApplication_EstimateEndToEnd(t *testing.T) {
	a := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/estimate",
		strings.NewReader(`{"age":50,"female":1,"african_american":0,"creatinine":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w := serve(a, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.InDelta(t, 58.68823424615696, body["rate"], 1e-9)
	assert.Equal(t, "req-42", body["trace_id"])

	metrics := serve(a, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Body.String()
	assert.Contains(t, metrics, `route="/api/v1/estimate"`)
	assert.Contains(t, metrics, "gfr_estimates_total")
}

func TestApplication_TablesEndToEnd(t *testing.T) {
	a := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tables", strings.NewReader(testutil.SampleInput()))
	req.Header.Set("Content-Type", "text/csv")
	w := serve(a, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "2", w.Header().Get("X-GFR-Rows"))
	assert.Contains(t, w.Body.String(), "GMR Pre,GMR Post")
}

func TestApplication_RateLimit(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	})

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tables", strings.NewReader(testutil.SampleInput()))
		req.Header.Set("Content-Type", "text/csv")
		return serve(a, req).Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
	assert.Equal(t, http.StatusOK, serve(a, httptest.NewRequest(http.MethodGet, "/api/health", nil)).Code)
}

func TestApplication_Run(t *testing.T) {
	a := newTestApp(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
