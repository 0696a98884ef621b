// Package federated answers searches from peer domains: load-balanced,
// timeout-bounded fetches whose results are resolved against the local store
// and merged with the name comparator.
package federated

import (
	"context"
	"log/slog"

	"personfinder/internal/search/metrics"
	"personfinder/internal/search/query"
)

// Searcher runs one federated search.
type Searcher struct {
	balancer *Balancer
	resolver Resolver
	cache    PeerCache
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type SearcherOption func(*Searcher)

func WithCache(c PeerCache) SearcherOption {
	return func(s *Searcher) { s.cache = c }
}

func WithLogger(logger *slog.Logger) SearcherOption {
	return func(s *Searcher) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) SearcherOption {
	return func(s *Searcher) { s.metrics = m }
}

func NewSearcher(balancer *Balancer, resolver Resolver, opts ...SearcherOption) *Searcher {
	s := &Searcher{balancer: balancer, resolver: resolver, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search queries peers (base urls) for q and returns at most maxResults
// locally resolved hits. ErrUnavailable is returned when no peer answered.
func (s *Searcher) Search(ctx context.Context, domain string, q query.Query, maxResults int, peers []string) ([]Result, error) {
	if len(peers) == 0 {
		return nil, ErrUnavailable
	}
	key := CacheKey(domain, q.Key())
	if s.cache != nil {
		if payload, ok := s.cache.Get(ctx, key); ok {
			s.metrics.IncrementPeerCache(true)
			return Merge(ctx, s.resolver, domain, payload, q, maxResults)
		}
		s.metrics.IncrementPeerCache(false)
	}

	urls := make([]string, len(peers))
	for i, base := range peers {
		urls[i] = PeerURL(base, q.Raw)
	}
	payload, peer, err := s.balancer.FetchWithLoadBalancing(ctx, urls)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "peer answered search",
		"domain", domain,
		"peer", peer,
		"name_entries", len(payload.NameEntries),
		"all_entries", len(payload.AllEntries),
	)
	if s.cache != nil {
		s.cache.Set(ctx, key, payload)
	}
	return Merge(ctx, s.resolver, domain, payload, q, maxResults)
}
