package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personfinder/pkg/requestcontext"
)

type stubValidator struct {
	caller requestcontext.Caller
}

func (v stubValidator) ValidateToken(token string) (requestcontext.Caller, error) {
	if token != "good" {
		return requestcontext.Caller{}, errors.New("bad token")
	}
	return v.caller, nil
}

// echoHandler reports what the middleware chain attached to the request.
type echoHandler struct{}

func (echoHandler) Register(r chi.Router) {
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		_ = json.NewEncoder(w).Encode(map[string]string{
			"domain":     chi.URLParam(r, "domain"),
			"subject":    requestcontext.Principal(ctx).Subject,
			"request_id": requestcontext.RequestID(ctx),
			"now":        requestcontext.Now(ctx).Format(time.RFC3339),
		})
	})
}

type adminEcho struct{}

func (adminEcho) Register(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

func newTestRouter(health map[string]HealthCheck) http.Handler {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewRouter(RouterConfig{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Validator:  stubValidator{caller: requestcontext.Caller{Subject: "ops"}},
		AdminToken: "secret",
		Clock:      func() time.Time { return now },
		Domain:     []Registrar{echoHandler{}},
		Admin:      adminEcho{},
		Health:     health,
	})
}

func TestRouterDomainRoutes(t *testing.T) {
	router := newTestRouter(nil)

	t.Run("anonymous requests carry request id and clock", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/haiti/whoami", nil)
		req.Header.Set("X-Request-ID", "req-1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var got map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, "haiti", got["domain"])
		assert.Empty(t, got["subject"])
		assert.Equal(t, "req-1", got["request_id"])
		assert.Equal(t, "2026-03-01T12:00:00Z", got["now"])
	})

	t.Run("bearer tokens authenticate the caller", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/haiti/whoami", nil)
		req.Header.Set("Authorization", "Bearer good")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"subject":"ops"`)
	})

	t.Run("invalid tokens are rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/haiti/whoami", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRouterAdminRoutes(t *testing.T) {
	router := newTestRouter(nil)

	t.Run("requires the admin token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("accepts the admin token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		req.Header.Set("X-Admin-Token", "secret")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestRouterHealth(t *testing.T) {
	t.Run("ok when every check passes", func(t *testing.T) {
		router := newTestRouter(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"status":"ok"`)
	})

	t.Run("degraded when a check fails", func(t *testing.T) {
		router := newTestRouter(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"kafka":    func(context.Context) error { return errors.New("no brokers") },
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusServiceUnavailable, rr.Code)

		var got healthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, "degraded", got.Status)
		assert.Equal(t, "no brokers", got.Checks["kafka"])
		assert.Equal(t, "ok", got.Checks["postgres"])
	})
}
