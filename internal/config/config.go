// Package config handles loading and validating ociq configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/syntrobox/ociq/internal/capability"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

// Config is the root configuration for ociq.
type Config struct {
	OCI           OCIConfig            `json:"oci" yaml:"oci"`
	Query         QueryConfig          `json:"query" yaml:"query"`
	Whitelist     *capability.Config   `json:"whitelist,omitempty" yaml:"whitelist,omitempty"` // nil = built-in default whitelist
	Admin         *AdminConfig         `json:"admin,omitempty" yaml:"admin,omitempty"`         // nil = admin endpoint disabled
	Observability *ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"`
	LogLevel      string               `json:"log_level,omitempty" yaml:"log_level,omitempty"` // "debug", "info" (default), "warn", "error"
}

// OCIConfig selects how OCI credentials are resolved.
type OCIConfig struct {
	ConfigFile string `json:"config_file,omitempty" yaml:"config_file,omitempty"` // Default: ~/.oci/config. Override: OCI_CONFIG_FILE.
	Profile    string `json:"profile,omitempty" yaml:"profile,omitempty"`         // Default: DEFAULT. Override: OCI_CONFIG_PROFILE.
	Auth       string `json:"auth,omitempty" yaml:"auth,omitempty"`               // "config_file" (default) or "instance_principal".
	Region     string `json:"region,omitempty" yaml:"region,omitempty"`           // Optional region override for constructed clients.
}

// QueryConfig bounds snippet execution and result shape.
type QueryConfig struct {
	TimeoutMS int   `json:"timeout_ms" yaml:"timeout_ms"` // Per-query wall clock budget. Default: 2000.
	MaxSteps  int64 `json:"max_steps" yaml:"max_steps"`   // Per-query evaluation step budget. Default: 5,000,000.
	MaxDepth  int   `json:"max_depth" yaml:"max_depth"`   // Result tree depth before truncation. Default: 32.
}

// Timeout returns the per-query wall clock budget with a default of 2s.
func (q QueryConfig) Timeout() time.Duration {
	if q.TimeoutMS > 0 {
		return time.Duration(q.TimeoutMS) * time.Millisecond
	}
	return 2 * time.Second
}

// AdminConfig configures the optional local HTTP endpoint for health,
// metrics, and capability inspection. Disabled when nil.
type AdminConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"` // Default: "127.0.0.1:8484".
}

// ListenAddr returns the admin listen address with the loopback default.
func (a *AdminConfig) ListenAddr() string {
	if a != nil && a.Addr != "" {
		return a.Addr
	}
	return "127.0.0.1:8484"
}

// ObservabilityConfig configures metrics and tracing.
// When nil, all observability features are disabled with zero overhead.
type ObservabilityConfig struct {
	Metrics  *MetricsConfig  `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing  *TracingConfig  `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	Watchdog *WatchdogConfig `json:"watchdog,omitempty" yaml:"watchdog,omitempty"`
}

// MetricsConfig configures Prometheus metrics exposition on the admin endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"` // Default: "/metrics"
}

// TracingConfig configures OpenTelemetry distributed tracing.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`         // OTLP endpoint, e.g. "localhost:4317"
	Protocol    string  `json:"protocol" yaml:"protocol"`         // "grpc" or "http". Default: "grpc"
	ServiceName string  `json:"service_name" yaml:"service_name"` // Default: "ociq"
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`   // 0.0–1.0. Default: 1.0
	Insecure    bool    `json:"insecure" yaml:"insecure"`         // Skip TLS for dev
}

// WatchdogConfig configures sliding-window denial rate warnings. A sustained
// spike in capability denials usually means the caller is probing outside the
// whitelist.
type WatchdogConfig struct {
	Enabled             bool    `json:"enabled" yaml:"enabled"`
	DenialRateThreshold float64 `json:"denial_rate_threshold" yaml:"denial_rate_threshold"` // 0.0–1.0. Default: 0.5
	WindowSeconds       int     `json:"window_seconds" yaml:"window_seconds"`               // Sliding window. Default: 300
}

// DefaultConfigPath returns the default config file path (~/.ociq/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "configs/ociq.yaml" // fallback for environments without a home dir
	}
	return filepath.Join(home, ".ociq", "config.yaml")
}

// Default returns the configuration used when no config file exists: built-in
// whitelist, default budgets, admin disabled.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	return cfg
}

// Load reads a JSON or YAML config file and returns a validated Config.
// The format is detected by file extension: .yml/.yaml for YAML, everything
// else for JSON. Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path %s: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", resolved, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(resolved)); ext {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config %s: %w", resolved, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config %s: %w", resolved, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path when given, otherwise the default config file,
// otherwise the built-in defaults when no file exists.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	def := DefaultConfigPath()
	if _, err := os.Stat(def); err != nil {
		return Default(), nil
	}
	return Load(def)
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("OCI_CONFIG_FILE"); v != "" {
		c.OCI.ConfigFile = v
	}
	if v := os.Getenv("OCI_CONFIG_PROFILE"); v != "" {
		c.OCI.Profile = v
	}
	if v := os.Getenv("OCIQ_AUTH"); v != "" {
		c.OCI.Auth = v
	}
	if v := os.Getenv("OCIQ_REGION"); v != "" {
		c.OCI.Region = v
	}
	if v := os.Getenv("OCIQ_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// resolvePath expands ~ to the user home directory and returns an absolute path.
func resolvePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}

func (c *Config) validate() error {
	switch c.OCI.Auth {
	case "", "config_file", "instance_principal":
		// valid
	default:
		return fmt.Errorf("oci.auth %q is not supported (use config_file or instance_principal)", c.OCI.Auth)
	}
	if c.Query.TimeoutMS < 0 {
		return fmt.Errorf("query.timeout_ms must not be negative")
	}
	if c.Query.MaxSteps < 0 {
		return fmt.Errorf("query.max_steps must not be negative")
	}
	if c.Query.MaxDepth < 0 {
		return fmt.Errorf("query.max_depth must not be negative")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("log_level %q is not supported (use debug, info, warn, or error)", c.LogLevel)
	}
	if c.Observability != nil && c.Observability.Tracing != nil && c.Observability.Tracing.Enabled {
		t := c.Observability.Tracing
		if t.Endpoint == "" {
			return fmt.Errorf("observability.tracing.endpoint is required when tracing is enabled")
		}
		switch t.Protocol {
		case "", "grpc", "http":
			// valid
		default:
			return fmt.Errorf("observability.tracing.protocol %q is not supported (use grpc or http)", t.Protocol)
		}
		if t.SampleRate < 0 || t.SampleRate > 1 {
			return fmt.Errorf("observability.tracing.sample_rate must be between 0 and 1")
		}
	}
	return nil
}
