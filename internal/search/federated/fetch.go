package federated

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Fetcher issues one bounded request to a peer.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (status int, body []byte, err error)
}

const maxPeerBody = 4 << 20

// HTTPFetcher is the Fetcher used against real peers.
type HTTPFetcher struct {
	client *http.Client
	tracer trace.Tracer
}

func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 10}}
	}
	return &HTTPFetcher{client: client, tracer: otel.Tracer("personfinder/search/federated")}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := f.tracer.Start(ctx, "peer.fetch", trace.WithAttributes(
		attribute.String("peer.url", url),
		attribute.Int64("peer.timeout_ms", timeout.Milliseconds()),
	))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, nil, fmt.Errorf("build peer request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return 0, nil, fmt.Errorf("peer request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPeerBody))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return resp.StatusCode, nil, fmt.Errorf("read peer body: %w", err)
	}
	return resp.StatusCode, body, nil
}
