// Package admin guards the operator endpoints (settings writes, cache stats).
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/platform/httputil"
	"personfinder/pkg/requestcontext"
)

// Header carries the operator token.
const Header = "X-Admin-Token"

// RequireAdminToken rejects requests whose X-Admin-Token does not match
// expected. With no configured token the admin surface is closed.
func RequireAdminToken(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	want := []byte(expected)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(Header))
			if len(want) > 0 && subtle.ConstantTimeCompare(got, want) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			reason := "admin token mismatch"
			if len(want) == 0 {
				reason = "admin endpoints disabled"
			}
			logger.WarnContext(ctx, reason,
				"request_id", requestcontext.RequestID(ctx),
				"path", r.URL.Path,
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
		})
	}
}
