package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/schooldesk/console/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		APIURL:  "http://127.0.0.1:1/api",
		Log:     config.LogConfig{Level: "error", Format: "text"},
		Session: config.SessionConfig{Secret: "test-secret", Backend: "memory"},
	}
}

func TestNewRequiresSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Secret = " "
	_, err := New(context.Background(), cfg)
	assert.EqualError(t, err, "SESSION_SECRET is required")
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Backend = "etcd"
	_, err := New(context.Background(), cfg)
	assert.EqualError(t, err, `unknown session backend "etcd"`)

	cfg = testConfig()
	cfg.Storage.Backend = "ftp"
	_, err = New(context.Background(), cfg)
	assert.ErrorContains(t, err, "open storage")
}

func TestRoutesServe(t *testing.T) {
	srv, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console_sessions_cached")

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/parents", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}
