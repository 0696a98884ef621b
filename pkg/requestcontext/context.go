// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets the values; services read them without importing net/http.
//
//	now := requestcontext.Now(ctx)
//	principal := requestcontext.Principal(ctx)
//
// Tests and workers inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithPrincipal(ctx, requestcontext.Caller{Privileged: true})
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	requestTimeKey struct{}
	principalKey   struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
	ContextKeyPrincipal   = principalKey{}
)

// Caller describes what the authenticated caller may do. The zero value is an
// anonymous caller.
type Caller struct {
	Subject string
	// WriteDomain is the source domain whose records this caller may import.
	WriteDomain string
	// FullRead lifts sensitive-field filtering on reads and exports.
	FullRead bool
	// Privileged callers moderate notes and may write to persons with notes disabled.
	Privileged bool
}

func (c Caller) Authenticated() bool {
	return c.Subject != ""
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - The sweep, which uses one "now" for a whole pass
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

// Principal returns the caller, or the anonymous caller when none is set.
func Principal(ctx context.Context) Caller {
	if c, ok := ctx.Value(ContextKeyPrincipal).(Caller); ok {
		return c
	}
	return Caller{}
}

// WithPrincipal injects the caller into the context.
func WithPrincipal(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, c)
}
