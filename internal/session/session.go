// Package session resolves OCI credentials once at startup and exposes the
// authenticated client catalog that gets bound into each sandbox run. The
// session is the only component that touches credential material; the query
// core receives ready-to-use bindings and never reads ambient state.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/common/auth"
)

// Auth modes.
const (
	AuthConfigFile        = "config_file"
	AuthInstancePrincipal = "instance_principal"
)

// Config selects how credentials are resolved.
type Config struct {
	// ConfigFile is the OCI config file path. Empty = ~/.oci/config.
	ConfigFile string
	// Profile is the config file profile. Empty = DEFAULT.
	Profile string
	// Auth is the auth mode: config_file (default) or instance_principal.
	Auth string
	// Region overrides the provider's region for constructed clients.
	Region string
}

// DefaultConfigFile returns ~/.oci/config.
func DefaultConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".oci/config"
	}
	return filepath.Join(home, ".oci", "config")
}

// Session holds the resolved configuration provider. Immutable after New;
// safe for concurrent use. The underlying SDK provider handles token refresh
// internally for instance-principal auth.
type Session struct {
	provider common.ConfigurationProvider
	region   string
	tenancy  string
	details  map[string]any
	logger   *slog.Logger
}

// New resolves credentials according to cfg. It fails fast when the config
// file or instance identity is unusable, so a misconfigured server never
// starts serving.
func New(cfg Config, logger *slog.Logger) (*Session, error) {
	var (
		provider common.ConfigurationProvider
		err      error
	)
	switch cfg.Auth {
	case "", AuthConfigFile:
		file := cfg.ConfigFile
		if file == "" {
			file = DefaultConfigFile()
		}
		profile := cfg.Profile
		if profile == "" {
			profile = "DEFAULT"
		}
		provider, err = common.ConfigurationProviderFromFileWithProfile(file, profile, "")
		if err != nil {
			return nil, fmt.Errorf("loading OCI config %s (profile %s): %w", file, profile, err)
		}
		logger.Info("session configured from file",
			slog.String("config_file", file),
			slog.String("profile", profile),
		)
	case AuthInstancePrincipal:
		provider, err = auth.InstancePrincipalConfigurationProvider()
		if err != nil {
			return nil, fmt.Errorf("resolving instance principal: %w", err)
		}
		logger.Info("session configured from instance principal")
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth)
	}

	tenancy, err := provider.TenancyOCID()
	if err != nil {
		return nil, fmt.Errorf("reading tenancy OCID: %w", err)
	}

	details := map[string]any{"tenancy": tenancy}
	if region, err := provider.Region(); err == nil {
		details["region"] = region
	}
	if user, err := provider.UserOCID(); err == nil && user != "" {
		details["user"] = user
	}
	if fp, err := provider.KeyFingerprint(); err == nil && fp != "" {
		details["fingerprint"] = fp
	}
	if cfg.Region != "" {
		details["region"] = cfg.Region
	}

	return &Session{
		provider: provider,
		region:   cfg.Region,
		tenancy:  tenancy,
		details:  details,
		logger:   logger,
	}, nil
}

// Tenancy returns the tenancy OCID the session authenticates against.
func (s *Session) Tenancy() string { return s.tenancy }

// Bindings returns a fresh binding set for one sandbox run: the `oci` client
// catalog, a read-only `config` map, and the `tenancy` OCID for convenience.
// A new catalog per call means clients constructed during a run live exactly
// as long as that run.
func (s *Session) Bindings() map[string]any {
	cfg := make(map[string]any, len(s.details))
	for k, v := range s.details {
		cfg[k] = v
	}
	return map[string]any{
		"oci":     newCatalog(s.provider, s.region),
		"config":  cfg,
		"tenancy": s.tenancy,
	}
}

// Ready reports whether the session's credentials are usable. Wired into the
// admin readiness endpoint.
func (s *Session) Ready(_ context.Context) error {
	if _, err := s.provider.KeyID(); err != nil {
		return fmt.Errorf("session credentials unavailable: %w", err)
	}
	return nil
}
