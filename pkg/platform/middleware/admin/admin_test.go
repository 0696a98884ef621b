package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		expected string
		header   string
		want     int
	}{
		{name: "matching token", expected: "s3cret", header: "s3cret", want: http.StatusNoContent},
		{name: "wrong token", expected: "s3cret", header: "guess", want: http.StatusUnauthorized},
		{name: "missing token", expected: "s3cret", want: http.StatusUnauthorized},
		{name: "admin disabled", expected: "", header: "", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/cache_stats", nil)
			if tt.header != "" {
				req.Header.Set("X-Admin-Token", tt.header)
			}
			w := httptest.NewRecorder()
			RequireAdminToken(tt.expected, logger)(ok).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireAdminTokenBody(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodPut, "/admin/settings/haiti/peers", nil)
	req.Header.Set(Header, "guess")
	w := httptest.NewRecorder()

	RequireAdminToken("s3cret", logger)(http.NotFoundHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized","error_description":"admin token required"}`, w.Body.String())
}
