// Package service orchestrates a search: query validation, the local index
// and, when a domain lists peers, federated search.
package service

import (
	"context"
	"errors"
	"log/slog"

	"personfinder/internal/search/federated"
	"personfinder/internal/search/index"
	"personfinder/internal/search/metrics"
	"personfinder/internal/search/query"
	"personfinder/internal/settings"
	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/requestcontext"
)

const (
	SourceLocal          = "local"
	SourcePeers          = "peers"
	SourceLocalAndPeers  = "local+peers"
	defaultMaxResults    = 100
	defaultHardMaxResult = 200
)

// SettingsSource resolves per-domain settings.
type SettingsSource interface {
	For(ctx context.Context, domain string) (settings.Settings, error)
}

// PeerSearcher is the federated path.
type PeerSearcher interface {
	Search(ctx context.Context, domain string, q query.Query, maxResults int, peers []string) ([]federated.Result, error)
}

// Response is an ordered result list. PeersUnavailable is set when peers
// were consulted but none answered; the results are then local only.
type Response struct {
	Query            query.Query
	Results          []federated.Result
	Source           string
	PeersUnavailable bool
}

type Service struct {
	index    index.Index
	peers    PeerSearcher
	settings SettingsSource
	max      int
	hardMax  int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

// WithLimits sets the default and hard maximum result counts.
func WithLimits(defaultMax, hardMax int) Option {
	return func(s *Service) {
		if defaultMax > 0 {
			s.max = defaultMax
		}
		if hardMax > 0 {
			s.hardMax = hardMax
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(idx index.Index, peers PeerSearcher, src SettingsSource, opts ...Option) *Service {
	s := &Service{
		index:    idx,
		peers:    peers,
		settings: src,
		max:      defaultMaxResults,
		hardMax:  defaultHardMaxResult,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search answers raw in domain with at most maxResults hits (0 means the
// default; values above the hard maximum are capped). Peer failures never
// fail the search.
func (s *Service) Search(ctx context.Context, domain, raw string, maxResults int) (*Response, error) {
	if err := id.ValidateDomain(domain); err != nil {
		return nil, err
	}
	cfg, err := s.settings.For(ctx, domain)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "load domain settings")
	}
	if cfg.SearchAuthRequired && !requestcontext.Principal(ctx).Authenticated() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "search requires authentication")
	}
	q := query.Parse(raw)
	if !q.Valid(cfg.MinQueryWordLength) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "query needs a word of at least %d characters", cfg.MinQueryWordLength)
	}
	if maxResults <= 0 {
		maxResults = s.max
	}
	if maxResults > s.hardMax {
		maxResults = s.hardMax
	}

	resp := &Response{Query: q}
	usePeers := len(cfg.SearchPeers) > 0 && s.peers != nil

	if usePeers && cfg.PreferPeers {
		results, unavailable := s.searchPeers(ctx, domain, q, maxResults, cfg.SearchPeers)
		resp.PeersUnavailable = unavailable
		if len(results) > 0 {
			resp.Results, resp.Source = results, SourcePeers
			s.metrics.IncrementSearch(domain, resp.Source)
			return resp, nil
		}
	}

	local, err := s.Local(ctx, domain, q, maxResults)
	if err != nil {
		return nil, err
	}
	resp.Results, resp.Source = local, SourceLocal

	if usePeers && !cfg.PreferPeers && len(local) < maxResults {
		results, unavailable := s.searchPeers(ctx, domain, q, maxResults, cfg.SearchPeers)
		resp.PeersUnavailable = unavailable
		if merged := appendMissing(local, results, maxResults); len(merged) > len(local) {
			resp.Results, resp.Source = merged, SourceLocalAndPeers
		}
	}
	s.metrics.IncrementSearch(domain, resp.Source)
	return resp, nil
}

// Local searches only the local index.
func (s *Service) Local(ctx context.Context, domain string, q query.Query, maxResults int) ([]federated.Result, error) {
	hits, err := s.index.Search(ctx, domain, q, maxResults)
	if err != nil {
		return nil, err
	}
	return federated.Combine(hits.NameMatches, hits.AllMatches, q, maxResults), nil
}

// PeerPayload is what this domain answers to its own peers.
func (s *Service) PeerPayload(ctx context.Context, domain, raw string) (*federated.Payload, error) {
	if err := id.ValidateDomain(domain); err != nil {
		return nil, err
	}
	q := query.Parse(raw)
	if len(q.Words) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "q is required")
	}
	hits, err := s.index.Search(ctx, domain, q, s.hardMax)
	if err != nil {
		return nil, err
	}
	payload := &federated.Payload{
		NameEntries: make([]federated.Entry, 0, len(hits.NameMatches)),
		AllEntries:  make([]federated.Entry, 0, len(hits.AllMatches)),
	}
	for _, p := range hits.NameMatches {
		payload.NameEntries = append(payload.NameEntries, federated.Entry{PersonRecordID: string(p.ID)})
	}
	for _, p := range hits.AllMatches {
		payload.AllEntries = append(payload.AllEntries, federated.Entry{PersonRecordID: string(p.ID)})
	}
	return payload, nil
}

func (s *Service) searchPeers(ctx context.Context, domain string, q query.Query, maxResults int, peers []string) ([]federated.Result, bool) {
	results, err := s.peers.Search(ctx, domain, q, maxResults, peers)
	if errors.Is(err, federated.ErrUnavailable) {
		s.logger.InfoContext(ctx, "search peers unavailable, using local results",
			"request_id", requestcontext.RequestID(ctx),
			"domain", domain,
			"peers", len(peers),
		)
		return nil, true
	}
	if err != nil {
		s.logger.WarnContext(ctx, "federated search failed",
			"request_id", requestcontext.RequestID(ctx),
			"domain", domain,
			"error", err,
		)
		return nil, true
	}
	return results, false
}

func appendMissing(base, extra []federated.Result, maxResults int) []federated.Result {
	seen := make(map[id.RecordID]struct{}, len(base))
	for _, r := range base {
		seen[r.Person.ID] = struct{}{}
	}
	out := append([]federated.Result(nil), base...)
	for _, r := range extra {
		if len(out) >= maxResults {
			break
		}
		if _, ok := seen[r.Person.ID]; ok {
			continue
		}
		seen[r.Person.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
