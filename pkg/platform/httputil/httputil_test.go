package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "personfinder/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal_error", body["error"])
		_, ok := body["error_description"]
		assert.False(t, ok, "expected error_description to be omitted for internal errors")
	})

	t.Run("storage error is opaque", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Wrap(errors.New("connection refused"), dErrors.CodeStorage, "failed to load person"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})

	t.Run("validation includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid input"))

		require.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "validation", body["error"])
		assert.Equal(t, "invalid input", body["error_description"])
	})

	t.Run("uncoded errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeValidation:      http.StatusBadRequest,
		dErrors.CodeNotFound:        http.StatusNotFound,
		dErrors.CodeDuplicate:       http.StatusConflict,
		dErrors.CodeForbidden:       http.StatusForbidden,
		dErrors.CodeUnauthorized:    http.StatusUnauthorized,
		dErrors.CodePeerUnavailable: http.StatusServiceUnavailable,
		dErrors.CodeTimeout:         http.StatusGatewayTimeout,
		dErrors.CodeStorage:         http.StatusInternalServerError,
		dErrors.CodeInternal:        http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFor(code), string(code))
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ana"}`))
	require.NoError(t, DecodeJSON(req, &v))
	assert.Equal(t, "Ana", v.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nick":"A"}`))
	err := DecodeJSON(req, &v)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
