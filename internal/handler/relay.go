package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"

	"github.com/labstack/echo/v4"

	"gemini-proxy-go/internal/model"
	"gemini-proxy-go/internal/service"
)

// keyPattern matches key query parameter values in URLs embedded in error messages.
var keyPattern = regexp.MustCompile(`(?i)(key=)[^&\s"]+`)

// RelayHandler forwards generation requests to the upstream API and relays
// the response back to the caller.
type RelayHandler struct {
	service *service.Forwarder
	logger  *slog.Logger
}

// NewRelayHandler creates a RelayHandler.
func NewRelayHandler(svc *service.Forwarder, logger *slog.Logger) *RelayHandler {
	return &RelayHandler{
		service: svc,
		logger:  logger.With("component", "relay_handler"),
	}
}

// Handle forwards the request upstream and relays the response. Success
// bodies are streamed chunk by chunk; error bodies are small and are read
// whole, then passed through with the upstream's own status and bytes.
func (h *RelayHandler) Handle(c echo.Context) error {
	req := c.Request()

	rr := &model.RelayRequest{
		Ctx:      req.Context(),
		Model:    c.Param("model"),
		Endpoint: c.Param("endpoint"),
		Body:     req.Body,
	}

	resp, err := h.service.Forward(rr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Upstream application errors are small; read them whole and pass
		// the exact status and bytes through, never re-wrapped.
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			h.logger.Error("reading upstream error body",
				"err", sanitizeError(err),
				"status", resp.StatusCode,
			)
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "failed to read upstream error response",
			})
		}
		return c.Blob(resp.StatusCode, contentType, body)
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, contentType)
	if te := resp.Header.Get("Transfer-Encoding"); te != "" {
		header.Set("Transfer-Encoding", te)
	}
	c.Response().WriteHeader(resp.StatusCode)

	// Relay the body chunk by chunk, flushing after every read so streaming
	// generation tokens reach the client as they arrive. If the upstream
	// stream fails here the status line has already been sent: the client
	// sees a truncated body and the failure is only logged.
	if err := relayBody(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming upstream body",
			"err", sanitizeError(err),
			"model", rr.Model,
			"endpoint", rr.Endpoint,
		)
	}

	return nil
}

// relayBody copies the upstream body to the client without ever holding more
// than one chunk in memory.
func relayBody(w *echo.Response, body io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			w.Flush()
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (h *RelayHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("relay error",
		"err", sanitizeError(err),
		"path", c.Request().URL.Path,
	)

	if errors.Is(err, service.ErrMissingAPIKey) {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "server is not configured with a Gemini API key",
		})
	}

	if errors.Is(err, service.ErrInvalidSegment) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "model and endpoint path segments must match [A-Za-z0-9._-]+",
		})
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "upstream request timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "upstream host unreachable",
			"details": sanitizeError(err),
		})
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "upstream connection failed",
			"details": sanitizeError(err),
		})
	}

	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error":   "upstream request failed",
		"details": sanitizeError(err),
	})
}

// sanitizeError redacts the API key from error messages that may contain
// upstream URLs.
func sanitizeError(err error) string {
	return keyPattern.ReplaceAllString(err.Error(), "${1}[REDACTED]")
}
