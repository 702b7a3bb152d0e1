package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHealthServer_Ready(t *testing.T) {
	s := NewHealthServer("test", nil)
	h := s.Handler()

	code, resp := get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, HealthStatusUnhealthy, resp.Status)

	s.SetReady(true)
	code, resp = get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, HealthStatusHealthy, resp.Status)
}

func TestHealthServer_Live(t *testing.T) {
	code, resp := get(t, NewHealthServer("", nil).Handler(), "/livez")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, HealthStatusHealthy, resp.Status)
}

func TestHealthServer_Checks(t *testing.T) {
	s := NewHealthServer("1.2.3", nil)
	s.RegisterCheck("temporal", func(context.Context) error { return nil })
	h := s.Handler()

	code, resp := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.2.3", resp.Version)
	require.Len(t, resp.Checks, 1)
	assert.Equal(t, HealthCheck{Name: "temporal", Status: HealthStatusHealthy}, resp.Checks[0])

	s.RegisterCheck("disk", func(context.Context) error { return errors.New("read-only") })
	code, resp = get(t, h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, HealthStatusUnhealthy, resp.Status)
	require.Len(t, resp.Checks, 2)
	assert.Equal(t, "disk", resp.Checks[0].Name)
	assert.Equal(t, "read-only", resp.Checks[0].Message)
}

func TestHealthServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewHealthServer("", nil)
	s.SetReady(true)
	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/livez")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Shutdown(context.Background()))
	require.NoError(t, <-done)

	code, _ := get(t, s.Handler(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestHealthServer_ExtraRoute(t *testing.T) {
	s := NewHealthServer("", nil)
	s.Handle("GET /metrics", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("cppig_scans_total 0\n"))
	}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cppig_scans_total 0\n", rec.Body.String())
}
