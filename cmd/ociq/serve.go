package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	goutils "github.com/jkaninda/go-utils"

	"github.com/syntrobox/ociq/internal/admin"
	"github.com/syntrobox/ociq/internal/config"
	"github.com/syntrobox/ociq/internal/observability"
	"github.com/syntrobox/ociq/internal/server"
	"github.com/syntrobox/ociq/internal/session"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdio",
	RunE:  runServe,
}

func init() {
	// Register on both root and serve so that `ociq --config path` and
	// `ociq serve --config path` both work.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&serveConfigPath, "config", "", "path to config file (default ~/.ociq/config.yaml)")
	}
}

// runServe starts the MCP stdio server and, when enabled, the admin endpoint.
func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadOrDefault(goutils.Env("OCIQ_CONFIG", serveConfigPath))
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	// Signal-aware context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Credentials resolve at startup so a misconfigured server fails fast.
	sess, err := session.New(sessionConfig(cfg), logger)
	if err != nil {
		return err
	}
	logger.Info("session ready", slog.String("tenancy", sess.Tenancy()))

	obs, err := observability.New(cfg.Observability, logger)
	if err != nil {
		return err
	}
	defer obs.Shutdown(context.Background())

	exec, err := buildExecutor(cfg, sess, obs, logger)
	if err != nil {
		return err
	}

	// Admin endpoint (optional).
	if cfg.Admin != nil && cfg.Admin.Enabled {
		adminCfg := admin.Config{ListenAddr: cfg.Admin.ListenAddr()}
		if obs != nil {
			adminCfg.HealthChecker = obs.Health
			obs.Health.AddCheck("session", sess.Ready)
			if obs.Metrics != nil {
				adminCfg.MetricsRegistry = obs.Metrics.Registry
				adminCfg.Metrics = obs.Metrics
			}
			if cfg.Observability != nil && cfg.Observability.Metrics != nil {
				adminCfg.MetricsPath = cfg.Observability.Metrics.Path
			}
			if obs.Tracer != nil {
				adminCfg.Tracer = obs.Tracer.Tracer()
			}
		}
		adminSrv := admin.New(adminCfg, exec, logger)
		go func() {
			if err := adminSrv.Start(ctx); err != nil {
				logger.Error("admin endpoint failed", slog.String("error", err.Error()))
			}
		}()
		defer func() {
			_ = adminSrv.Stop(context.Background())
		}()
	}

	srv := server.New(exec, version, logger)
	return srv.ServeStdio(ctx)
}
