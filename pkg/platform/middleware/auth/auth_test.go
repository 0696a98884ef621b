package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"personfinder/pkg/requestcontext"
)

type stubValidator struct {
	caller requestcontext.Caller
	err    error
}

func (v stubValidator) ValidateToken(string) (requestcontext.Caller, error) {
	return v.caller, v.err
}

func TestAuthenticate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var got requestcontext.Caller
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.Principal(r.Context())
	})

	t.Run("anonymous without header", func(t *testing.T) {
		got = requestcontext.Caller{Subject: "stale"}
		w := httptest.NewRecorder()
		Authenticate(stubValidator{}, logger)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, got.Authenticated())
	})

	t.Run("valid token sets the principal", func(t *testing.T) {
		v := stubValidator{caller: requestcontext.Caller{Subject: "mod", Privileged: true}}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer token")
		w := httptest.NewRecorder()
		Authenticate(v, logger)(next).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, got.Privileged)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		v := stubValidator{err: errors.New("bad signature")}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer token")
		w := httptest.NewRecorder()
		Authenticate(v, logger)(next).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid or expired token")
	})

	t.Run("non bearer scheme is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc")
		w := httptest.NewRecorder()
		Authenticate(stubValidator{}, logger)(next).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
