// Package handler serves local searches and the peer query endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"personfinder/internal/interchange"
	"personfinder/internal/search/federated"
	"personfinder/internal/search/service"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/platform/httputil"
	"personfinder/pkg/requestcontext"
)

// Service defines the search operations the handler needs.
type Service interface {
	Search(ctx context.Context, domain, raw string, maxResults int) (*service.Response, error)
	PeerPayload(ctx context.Context, domain, raw string) (*federated.Payload, error)
}

type Handler struct {
	logger *slog.Logger
	search Service
}

func New(search Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, search: search}
}

// Register mounts /search and /query on a router scoped to /{domain}.
func (h *Handler) Register(r chi.Router) {
	r.Get("/search", h.handleSearch)
	r.Get("/query", h.handlePeerQuery)
}

// SearchResult is one hit as returned to clients.
type SearchResult struct {
	interchange.PersonRecord
	LatestStatus string `json:"latest_status"`
	IsClone      bool   `json:"is_clone"`
	NameMatch    bool   `json:"name_match"`
	AddressMatch bool   `json:"address_match"`
}

type SearchResponse struct {
	Query            string         `json:"query"`
	Source           string         `json:"source"`
	PeersUnavailable bool           `json:"peers_unavailable"`
	Results          []SearchResult `json:"results"`
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")
	q := r.URL.Query()
	raw := q.Get("q")

	maxResults := 0
	if v := q.Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.fail(ctx, w, dErrors.Newf(dErrors.CodeValidation, "invalid max_results: %q", v), "parse max_results")
			return
		}
		maxResults = n
	}

	resp, err := h.search.Search(ctx, domain, raw, maxResults)
	if err != nil {
		h.fail(ctx, w, err, "search")
		return
	}

	fullRead := requestcontext.Principal(ctx).FullRead
	out := SearchResponse{
		Query:            raw,
		Source:           resp.Source,
		PeersUnavailable: resp.PeersUnavailable,
		Results:          make([]SearchResult, 0, len(resp.Results)),
	}
	for _, res := range resp.Results {
		p := res.Person.Clone()
		if !fullRead {
			p.Redact()
		}
		out.Results = append(out.Results, SearchResult{
			PersonRecord: interchange.FromPerson(p),
			LatestStatus: p.LatestStatus.String(),
			IsClone:      p.IsClone(),
			NameMatch:    res.NameMatch,
			AddressMatch: res.AddressMatch,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// handlePeerQuery answers another domain's federated search.
func (h *Handler) handlePeerQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	payload, err := h.search.PeerPayload(ctx, domain, r.URL.Query().Get("q"))
	if err != nil {
		h.fail(ctx, w, err, "answer peer query")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payload)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, op string) {
	attrs := []any{
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	}
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "failed to "+op, attrs...)
	} else {
		h.logger.WarnContext(ctx, "failed to "+op, attrs...)
	}
	httputil.WriteError(w, err)
}
