package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"personfinder/internal/person/models"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/platform/cache"
	"personfinder/pkg/platform/httputil"
)

// SettingsAdmin manages per-domain settings.
type SettingsAdmin interface {
	Set(ctx context.Context, scope, name string, value json.RawMessage) error
	CacheStats() cache.Stats
}

// StatsSource is any cache that reports its counters.
type StatsSource interface {
	Stats() cache.Stats
}

// ExpiryAuditor lists persons on either side of the expiry sweep.
type ExpiryAuditor interface {
	ListLive(ctx context.Context, domain string, limit int) ([]*models.Person, error)
	ListPastDue(ctx context.Context, domain string, limit int) ([]*models.Person, error)
}

// AdminHandler serves operator endpoints. The router guards it with the
// admin token.
type AdminHandler struct {
	settings  SettingsAdmin
	peerCache StatsSource
	expiry    ExpiryAuditor
	logger    *slog.Logger
}

// NewAdminHandler builds the handler. peerCache may be nil when peer
// responses are cached outside the process.
func NewAdminHandler(settings SettingsAdmin, peerCache StatsSource, expiry ExpiryAuditor, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{settings: settings, peerCache: peerCache, expiry: expiry, logger: logger}
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Get("/cache_stats", h.handleCacheStats)
	r.Put("/settings/{scope}/{name}", h.handleSetSetting)
	if h.expiry != nil {
		r.Get("/expiry/{domain}", h.handleExpiry)
	}
}

// PastDueEntry is one expired person in an expiry report.
type PastDueEntry struct {
	PersonRecordID string `json:"person_record_id"`
	ExpiryDate     string `json:"expiry_date,omitempty"`
	Tombstoned     bool   `json:"tombstoned"`
}

// ExpiryReport compares the live listing with the past-due listing so
// operators can check that swept records stay out of live reads.
type ExpiryReport struct {
	Domain  string         `json:"domain"`
	Live    int            `json:"live"`
	PastDue []PastDueEntry `json:"past_due"`
}

const defaultExpiryReportSize = 100

type CacheStatsResponse struct {
	Settings  cache.Stats  `json:"settings"`
	PeerCache *cache.Stats `json:"peer_cache,omitempty"`
}

func (h *AdminHandler) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	resp := CacheStatsResponse{Settings: h.settings.CacheStats()}
	if h.peerCache != nil {
		stats := h.peerCache.Stats()
		resp.PeerCache = &stats
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := chi.URLParam(r, "scope")
	name := chi.URLParam(r, "name")

	value, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		h.fail(ctx, w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid request body"), "read setting")
		return
	}
	if err := h.settings.Set(ctx, scope, name, value); err != nil {
		h.fail(ctx, w, err, "save setting")
		return
	}
	h.logger.InfoContext(ctx, "setting updated", "scope", scope, "name", name)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleExpiry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	limit := defaultExpiryReportSize
	if v := r.URL.Query().Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.fail(ctx, w, dErrors.Newf(dErrors.CodeValidation, "invalid max_results: %q", v), "parse max_results")
			return
		}
		limit = n
	}

	live, err := h.expiry.ListLive(ctx, domain, 0)
	if err != nil {
		h.fail(ctx, w, err, "list live persons")
		return
	}
	pastDue, err := h.expiry.ListPastDue(ctx, domain, limit)
	if err != nil {
		h.fail(ctx, w, err, "list past-due persons")
		return
	}

	report := ExpiryReport{Domain: domain, Live: len(live), PastDue: make([]PastDueEntry, 0, len(pastDue))}
	for _, p := range pastDue {
		entry := PastDueEntry{PersonRecordID: p.ID.String(), Tombstoned: p.IsTombstoned()}
		if p.ExpiryDate != nil {
			entry.ExpiryDate = p.ExpiryDate.UTC().Format(time.RFC3339)
		}
		report.PastDue = append(report.PastDue, entry)
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *AdminHandler) fail(ctx context.Context, w http.ResponseWriter, err error, op string) {
	logFailure(ctx, h.logger, err, op)
	httputil.WriteError(w, err)
}
