// Package admin implements the optional local HTTP endpoint for health,
// readiness, metrics, and capability inspection. It is an operator surface,
// not a query transport: snippets only enter through the MCP server, and the
// default listen address is loopback.
package admin

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jkaninda/okapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/syntrobox/ociq/internal/observability"
	"github.com/syntrobox/ociq/internal/query"
)

// Config configures the admin endpoint.
type Config struct {
	ListenAddr string // e.g. "127.0.0.1:8484"

	// Observability
	MetricsRegistry *prometheus.Registry            // Custom Prometheus registry for /metrics. nil = no metrics endpoint.
	MetricsPath     string                          // Path for metrics endpoint. Default: "/metrics".
	HealthChecker   *observability.HealthChecker    // Health checker for /readyz.
	Metrics         *observability.MetricsCollector // Metrics collector for HTTP middleware.
	Tracer          trace.Tracer                    // OTel tracer for HTTP middleware.
}

// Server is the admin HTTP server.
type Server struct {
	config Config
	exec   query.Executor
	logger *slog.Logger
	server *http.Server
	okapi  *okapi.Okapi
}

// HealthResponse is the JSON body for the health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}

// New creates an admin server for the given executor.
func New(cfg Config, exec query.Executor, logger *slog.Logger) *Server {
	return &Server{
		config: cfg,
		exec:   exec,
		logger: logger,
		okapi:  okapi.New(),
	}
}

// Start launches the HTTP server and blocks until it exits or ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s.config.Metrics != nil || s.config.Tracer != nil {
		s.okapi.UseMiddleware(func(next http.Handler) http.Handler {
			return observability.HTTPMetricsMiddleware(s.config.Metrics, s.config.Tracer, next)
		})
	}

	s.okapi.Get("/healthz", s.handleLiveness)
	s.okapi.Get("/readyz", s.handleReadiness)
	s.okapi.Get("/v1/capabilities", s.handleCapabilities)

	if s.config.MetricsRegistry != nil {
		path := s.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.okapi.HandleStd("GET", path, promhttp.HandlerFor(s.config.MetricsRegistry, promhttp.HandlerOpts{}).ServeHTTP)
	}

	s.server = &http.Server{
		Addr:              s.config.ListenAddr,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	s.logger.Info("admin endpoint starting", slog.String("addr", s.config.ListenAddr))

	return s.okapi.StartServer(s.server)
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(_ context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("admin endpoint stopping")
	return s.okapi.Shutdown(s.server)
}

// handleLiveness is the liveness probe.
func (s *Server) handleLiveness(c *okapi.Context) error {
	return c.OK(&HealthResponse{Status: "ok"})
}

// handleReadiness checks all registered dependencies and returns 200 or 503.
func (s *Server) handleReadiness(c *okapi.Context) error {
	if s.config.HealthChecker == nil {
		return c.OK(&HealthResponse{Status: "ok"})
	}

	status := s.config.HealthChecker.CheckReady(c.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

// handleCapabilities returns the active whitelist schema.
func (s *Server) handleCapabilities(c *okapi.Context) error {
	return c.OK(s.exec.Capabilities())
}
