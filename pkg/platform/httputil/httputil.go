// Package httputil writes JSON responses and owns the only mapping from
// domain error codes to HTTP status codes.
package httputil

import (
	"encoding/json"
	"io"
	"net/http"

	dErrors "personfinder/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies decoded by DecodeJSON.
const maxBodyBytes = 8 << 20

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// StatusFor maps a code to its HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeDuplicate:
		return http.StatusConflict
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodePeerUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as {"error": code, "error_description": message}.
// Storage and internal failures never expose their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)
	body := errorResponse{Error: string(code)}
	if status == http.StatusInternalServerError {
		body.Error = "internal_error"
	} else {
		body.ErrorDescription = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, body)
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid request body")
	}
	return nil
}
