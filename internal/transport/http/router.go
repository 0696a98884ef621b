// Package httptransport assembles the public HTTP surface: middleware, the
// per-domain feature routes, health and the operator endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"personfinder/internal/platform/metrics"
	"personfinder/internal/platform/middleware"
	"personfinder/pkg/platform/httputil"
	"personfinder/pkg/platform/middleware/admin"
	"personfinder/pkg/platform/middleware/auth"
	"personfinder/pkg/platform/middleware/requesttime"
)

// Registrar mounts a feature's routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// RouterConfig collects what NewRouter wires together. Nil handlers are
// skipped; a nil Validator leaves every caller anonymous.
type RouterConfig struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Validator  auth.JWTValidator
	AdminToken string
	Clock      func() time.Time

	// Domain handlers are mounted under /{domain}.
	Domain []Registrar
	Admin  Registrar
	Health map[string]HealthCheck
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	if cfg.Clock != nil {
		r.Use(requesttime.WithClock(cfg.Clock))
	} else {
		r.Use(requesttime.Middleware)
	}
	r.Use(cfg.Metrics.Middleware)

	r.Get("/health", healthHandler(cfg.Health))
	r.Handle("/metrics", metrics.Handler())

	if cfg.Admin != nil {
		r.Route("/admin", func(ar chi.Router) {
			ar.Use(admin.RequireAdminToken(cfg.AdminToken, logger))
			cfg.Admin.Register(ar)
		})
	}

	r.Group(func(dr chi.Router) {
		if cfg.Validator != nil {
			dr.Use(auth.Authenticate(cfg.Validator, logger))
		}
		dr.Route("/{domain}", func(sub chi.Router) {
			for _, h := range cfg.Domain {
				h.Register(sub)
			}
		})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
