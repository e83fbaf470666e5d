package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"gemini-proxy-go/internal/config"
	"gemini-proxy-go/internal/metrics"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	relay := newTestRelayHandler(t, upstream.URL, "test-key")
	health := NewHealthHandler(&config.Config{}, "test")
	m := metrics.New()
	cfg := &config.Config{
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}

	e := echo.New()
	RegisterRoutes(e, relay, health, m, cfg)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET /", http.MethodGet, "/", http.StatusOK},
		{"GET /proxy/status", http.MethodGet, "/proxy/status", http.StatusOK},
		{"POST main route", http.MethodPost, "/v1beta/models/gemini-2.0-flash/generateContent", http.StatusOK},
		{"GET main route rejected", http.MethodGet, "/v1beta/models/gemini-2.0-flash/generateContent", http.StatusMethodNotAllowed},
		{"GET /metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"GET /unknown", http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			if tt.method == http.MethodPost {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`))
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	relay := newTestRelayHandler(t, upstream.URL, "test-key")
	health := NewHealthHandler(&config.Config{}, "test")
	m := metrics.New()
	cfg := &config.Config{
		Metrics: config.MetricsConfig{Enabled: false, Path: "/metrics"},
	}

	e := echo.New()
	RegisterRoutes(e, relay, health, m, cfg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d when metrics are disabled", rec.Code, http.StatusNotFound)
	}
}
