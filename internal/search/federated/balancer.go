package federated

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"personfinder/internal/search/metrics"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/platform/circuit"
)

// ErrUnavailable means no peer produced a usable answer within the budget.
// It is distinct from a peer answering with zero results.
var ErrUnavailable = dErrors.New(dErrors.CodePeerUnavailable, "no search peer available")

const (
	DefaultFetchTimeout = 900 * time.Millisecond
	DefaultTotalTimeout = 5 * time.Second
)

// Balancer tries peers in random order until one answers.
type Balancer struct {
	fetcher      Fetcher
	fetchTimeout time.Duration
	totalTimeout time.Duration
	shuffle      func([]string)
	clock        func() time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics

	// Per-peer breakers; nil map when disabled.
	mu               sync.Mutex
	breakers         map[string]*circuit.Breaker
	breakerThreshold int
	breakerCooldown  time.Duration
}

type BalancerOption func(*Balancer)

func WithTimeouts(fetch, total time.Duration) BalancerOption {
	return func(b *Balancer) {
		if fetch > 0 {
			b.fetchTimeout = fetch
		}
		if total > 0 {
			b.totalTimeout = total
		}
	}
}

// WithShuffle replaces the random peer order, mainly for tests.
func WithShuffle(shuffle func([]string)) BalancerOption {
	return func(b *Balancer) { b.shuffle = shuffle }
}

func WithClock(clock func() time.Time) BalancerOption {
	return func(b *Balancer) { b.clock = clock }
}

func WithBalancerLogger(logger *slog.Logger) BalancerOption {
	return func(b *Balancer) { b.logger = logger }
}

func WithBalancerMetrics(m *metrics.Metrics) BalancerOption {
	return func(b *Balancer) { b.metrics = m }
}

// WithPeerBreakers skips a peer after threshold consecutive failures until
// cooldown has passed since its last failure. A threshold of zero disables it.
func WithPeerBreakers(threshold int, cooldown time.Duration) BalancerOption {
	return func(b *Balancer) {
		if threshold <= 0 {
			return
		}
		b.breakers = make(map[string]*circuit.Breaker)
		b.breakerThreshold = threshold
		b.breakerCooldown = cooldown
	}
}

func NewBalancer(fetcher Fetcher, opts ...BalancerOption) *Balancer {
	b := &Balancer{
		fetcher:      fetcher,
		fetchTimeout: DefaultFetchTimeout,
		totalTimeout: DefaultTotalTimeout,
		shuffle: func(s []string) {
			rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		},
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FetchWithLoadBalancing visits each url at most once in shuffled order and
// returns the first decodable 200 response. Before every attempt the elapsed
// time is checked against the total budget, so the call returns within
// totalTimeout plus one fetchTimeout. Failed, non-200 and malformed answers
// move on to the next peer.
func (b *Balancer) FetchWithLoadBalancing(ctx context.Context, urls []string) (*Payload, string, error) {
	peers := append([]string(nil), urls...)
	b.shuffle(peers)
	start := b.clock()

	for _, url := range peers {
		if elapsed := b.clock().Sub(start); elapsed > b.totalTimeout {
			b.logger.InfoContext(ctx, "peer search budget exhausted",
				"elapsed", elapsed,
				"budget", b.totalTimeout,
			)
			b.metrics.ObservePeerFetch("budget_exhausted", 0)
			return nil, "", ErrUnavailable
		}
		if ctx.Err() != nil {
			return nil, "", ErrUnavailable
		}

		breaker := b.breaker(url)
		if breaker != nil && !breaker.Allow() {
			b.logger.InfoContext(ctx, "peer skipped, circuit open", "peer", url)
			b.metrics.ObservePeerFetch("circuit_open", 0)
			continue
		}

		attempt := b.clock()
		status, body, err := b.fetcher.Fetch(ctx, url, b.fetchTimeout)
		took := b.clock().Sub(attempt)
		if err != nil {
			b.logger.InfoContext(ctx, "peer fetch failed", "peer", url, "error", err)
			b.metrics.ObservePeerFetch("error", took)
			b.recordFailure(ctx, breaker)
			continue
		}
		if status != http.StatusOK {
			b.logger.InfoContext(ctx, "peer returned bad status", "peer", url, "status", status)
			b.metrics.ObservePeerFetch("bad_status", took)
			b.recordFailure(ctx, breaker)
			continue
		}
		payload, err := DecodePayload(body)
		if err != nil {
			b.logger.WarnContext(ctx, "peer payload is malformed", "peer", url, "error", err)
			b.metrics.ObservePeerFetch("malformed", took)
			b.recordFailure(ctx, breaker)
			continue
		}
		b.metrics.ObservePeerFetch("ok", took)
		if breaker != nil {
			if _, change := breaker.RecordSuccess(); change.Closed {
				b.logger.InfoContext(ctx, "peer circuit closed", "peer", url)
			}
		}
		return payload, url, nil
	}
	return nil, "", ErrUnavailable
}

func (b *Balancer) breaker(url string) *circuit.Breaker {
	if b.breakers == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	br, ok := b.breakers[url]
	if !ok {
		br = circuit.New(url,
			circuit.WithFailureThreshold(b.breakerThreshold),
			circuit.WithCooldown(b.breakerCooldown),
			circuit.WithClock(b.clock),
		)
		b.breakers[url] = br
	}
	return br
}

func (b *Balancer) recordFailure(ctx context.Context, br *circuit.Breaker) {
	if br == nil {
		return
	}
	if _, change := br.RecordFailure(); change.Opened {
		b.logger.WarnContext(ctx, "peer circuit opened", "peer", br.Name())
	}
}
