// Package service implements the core request-forwarding logic.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"gemini-proxy-go/internal/client"
	"gemini-proxy-go/internal/config"
	"gemini-proxy-go/internal/model"
)

// ErrMissingAPIKey is returned when no upstream credential is configured.
// No network call is attempted in that case.
var ErrMissingAPIKey = errors.New("Gemini API key is not configured: set gemini.api_key in config or the GEMINI_API_KEY environment variable")

// ErrInvalidSegment is returned when a caller-supplied path segment contains
// characters outside the allowed set. Segments are interpolated into the
// upstream URL path, so anything with URL metacharacters is rejected rather
// than encoded.
var ErrInvalidSegment = errors.New("path segment must match [A-Za-z0-9._-]+")

// segmentPattern is the allow-list for the model and endpoint path segments.
var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// allowedUpstreamHosts restricts which hosts the relay will forward to.
var allowedUpstreamHosts = map[string]bool{
	"generativelanguage.googleapis.com": true,
}

// Forwarder turns one inbound relay request into exactly one upstream call.
// It holds no per-request state; the only shared values are the read-only
// config and the pooled upstream client.
type Forwarder struct {
	client  *client.GeminiClient
	cfg     *config.Config
	logger  *slog.Logger
	baseURL *url.URL
}

// NewForwarder creates a Forwarder.
func NewForwarder(c *client.GeminiClient, cfg *config.Config, logger *slog.Logger) (*Forwarder, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}

	if !allowedUpstreamHosts[u.Hostname()] {
		return nil, fmt.Errorf("upstream host %q is not in the allowlist", u.Hostname())
	}

	return &Forwarder{
		client:  c,
		cfg:     cfg,
		logger:  logger.With("component", "forwarder"),
		baseURL: u,
	}, nil
}

// NewForwarderForTest creates a Forwarder without host allowlist validation.
// This is intended only for tests that use httptest servers on localhost.
func NewForwarderForTest(c *client.GeminiClient, cfg *config.Config, logger *slog.Logger) (*Forwarder, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}

	return &Forwarder{
		client:  c,
		cfg:     cfg,
		logger:  logger.With("component", "forwarder"),
		baseURL: u,
	}, nil
}

// Forward sends one RelayRequest upstream and returns the response untouched;
// the caller owns the response body and decides whether to buffer or stream
// it. There is exactly one attempt: failures are returned, never retried.
func (f *Forwarder) Forward(rr *model.RelayRequest) (*model.RelayResponse, error) {
	if f.cfg.Gemini.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	if !segmentPattern.MatchString(rr.Model) {
		return nil, fmt.Errorf("%w: model %q", ErrInvalidSegment, rr.Model)
	}
	if !segmentPattern.MatchString(rr.Endpoint) {
		return nil, fmt.Errorf("%w: endpoint %q", ErrInvalidSegment, rr.Endpoint)
	}

	upstreamURL := f.buildUpstreamURL(rr.Model, rr.Endpoint, f.cfg.Gemini.APIKey)

	f.logger.Debug("forwarding request",
		"model", rr.Model,
		"endpoint", rr.Endpoint,
	)

	resp, err := f.client.Post(rr.Ctx, upstreamURL, rr.Endpoint, rr.Body)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	return resp, nil
}

// buildUpstreamURL derives the upstream target from the two path segments and
// the credential. It is a pure function of its inputs: no other request state
// participates.
func (f *Forwarder) buildUpstreamURL(modelID, endpoint, apiKey string) string {
	u := *f.baseURL
	u.Path = "/v1beta/models/" + modelID + ":" + endpoint

	q := make(url.Values)
	q.Set("key", apiKey)
	u.RawQuery = q.Encode()

	return u.String()
}
