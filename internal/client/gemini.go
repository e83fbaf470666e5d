// Package client provides the upstream HTTP client for the generative
// language API.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gemini-proxy-go/internal/config"
	"gemini-proxy-go/internal/metrics"
	"gemini-proxy-go/internal/model"
)

const userAgent = "gemini-proxy-go/1.0"

// GeminiClient sends requests to the upstream generative language API.
type GeminiClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewGeminiClient creates a GeminiClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewGeminiClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *GeminiClient {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &GeminiClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		},
		logger:  logger.With("component", "gemini_client"),
		metrics: m,
	}
}

// Post issues a JSON POST to the given upstream URL and returns the raw
// response; the caller owns the response body. The endpoint argument is used
// only as a bounded metrics label. The context controls the lifetime of the
// upstream request: when it is canceled (e.g. the client disconnects), the
// in-flight upstream call is canceled too.
func (c *GeminiClient) Post(ctx context.Context, url, endpoint string, body io.Reader) (*model.RelayResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("upstream request", "endpoint", endpoint)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via RelayResponse
	duration := time.Since(start).Seconds()

	label := metrics.NormalizeEndpoint(endpoint)

	if err != nil {
		if c.metrics != nil {
			c.metrics.UpstreamDuration.WithLabelValues(label).Observe(duration)
		}
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		status := strconv.Itoa(resp.StatusCode)
		c.metrics.UpstreamDuration.WithLabelValues(label).Observe(duration)
		c.metrics.UpstreamResponses.WithLabelValues(label, status).Inc()
	}

	// The http client strips Transfer-Encoding out of the header map; surface
	// it again so the relay can mirror the upstream's framing to its caller.
	header := resp.Header
	if len(resp.TransferEncoding) > 0 {
		header = header.Clone()
		header.Set("Transfer-Encoding", strings.Join(resp.TransferEncoding, ", "))
	}

	return &model.RelayResponse{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       resp.Body,
	}, nil
}
