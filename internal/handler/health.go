package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gemini-proxy-go/internal/config"
)

// rootBody is the fixed plaintext health-check response.
const rootBody = "gemini-proxy is running"

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v}
}

// Root answers liveness probes at / with a fixed plaintext body.
func (h *HealthHandler) Root(c echo.Context) error {
	return c.String(http.StatusOK, rootBody)
}

// Status returns relay status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":           "ok",
		"version":          string(h.version),
		"upstream_url":     h.cfg.Upstream.BaseURL,
		"default_model":    h.cfg.Gemini.DefaultModel,
		"default_endpoint": h.cfg.Gemini.DefaultEndpoint,
	})
}
