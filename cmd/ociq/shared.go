package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/syntrobox/ociq/internal/capability"
	"github.com/syntrobox/ociq/internal/config"
	"github.com/syntrobox/ociq/internal/observability"
	"github.com/syntrobox/ociq/internal/query"
	"github.com/syntrobox/ociq/internal/sandbox"
	"github.com/syntrobox/ociq/internal/session"
)

// newLogger builds the process logger. Structured JSON on stderr; stdout is
// reserved for the MCP protocol stream in serve mode.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
}

// buildWhitelist resolves the capability whitelist: the config's, or the
// built-in default when none is configured.
func buildWhitelist(cfg *config.Config) (*capability.Whitelist, error) {
	if cfg.Whitelist == nil {
		return capability.Default(), nil
	}
	wl, err := capability.New(*cfg.Whitelist)
	if err != nil {
		return nil, fmt.Errorf("building whitelist: %w", err)
	}
	return wl, nil
}

// buildExecutor wires whitelist, sandbox, and session into the query service,
// wrapped with observability when obs is non-nil.
func buildExecutor(cfg *config.Config, sess *session.Session, obs *observability.Observability, logger *slog.Logger) (query.Executor, error) {
	wl, err := buildWhitelist(cfg)
	if err != nil {
		return nil, err
	}

	runner := sandbox.NewRunner(sandbox.Config{
		Timeout:  cfg.Query.Timeout(),
		MaxSteps: cfg.Query.MaxSteps,
	}, logger)

	svc := query.New(wl, runner, sess.Bindings, logger).WithMaxDepth(cfg.Query.MaxDepth)

	if obs == nil {
		return svc, nil
	}
	return observability.NewInstrumentedExecutor(svc, obs.Metrics, obs.TracerOrNil(), obs.Watchdog), nil
}

// sessionConfig maps the OCI section of the file config onto the session.
func sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		ConfigFile: cfg.OCI.ConfigFile,
		Profile:    cfg.OCI.Profile,
		Auth:       cfg.OCI.Auth,
		Region:     cfg.OCI.Region,
	}
}
