package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"personfinder/pkg/requestcontext"
)

// JWTValidator turns a bearer token into the caller it authenticates.
type JWTValidator interface {
	ValidateToken(tokenString string) (requestcontext.Caller, error)
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// Authenticate attaches the caller named by a bearer token. Requests without
// an Authorization header continue as the anonymous caller; services decide
// what anonymous callers may do. A malformed or invalid token is rejected.
func Authenticate(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - malformed authorization header",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			caller, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithPrincipal(ctx, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
