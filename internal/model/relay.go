// Package model defines the request-scoped types crossing layer boundaries.
package model

import (
	"context"
	"io"
	"net/http"
)

// RelayRequest is one inbound generation request to be forwarded upstream.
// Model and Endpoint are the two caller-supplied path segments; Body is the
// inbound JSON payload, passed through unmodified.
type RelayRequest struct {
	Ctx      context.Context
	Model    string
	Endpoint string
	Body     io.ReadCloser
}

// RelayResponse is the upstream response to be relayed back to the client.
// Body is a live stream; ownership transfers to whoever consumes it.
type RelayResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
