package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics observes local and federated search.
type Metrics struct {
	Searches          *prometheus.CounterVec
	PeerFetches       *prometheus.CounterVec
	PeerFetchDuration prometheus.Histogram
	PeerCache         *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Searches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "personfinder_searches_total",
			Help: "Searches by the source that produced the results",
		}, []string{"domain", "source"}), // source: "local", "peers", "local+peers"

		PeerFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "personfinder_peer_fetches_total",
			Help: "Peer fetch attempts by outcome",
		}, []string{"outcome"}), // outcome: "ok", "bad_status", "error", "malformed", "budget_exhausted"

		PeerFetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "personfinder_peer_fetch_duration_seconds",
			Help:    "Latency of single peer fetches",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),

		PeerCache: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "personfinder_peer_cache_total",
			Help: "Peer response cache lookups",
		}, []string{"result"}), // result: "hit", "miss"
	}
}

func (m *Metrics) IncrementSearch(domain, source string) {
	if m != nil {
		m.Searches.WithLabelValues(domain, source).Inc()
	}
}

func (m *Metrics) ObservePeerFetch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.PeerFetches.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.PeerFetchDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementPeerCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.PeerCache.WithLabelValues("hit").Inc()
		return
	}
	m.PeerCache.WithLabelValues("miss").Inc()
}
