package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
oci:
  profile: PROD
  region: eu-frankfurt-1
query:
  timeout_ms: 1500
  max_steps: 100000
admin:
  enabled: true
  addr: "127.0.0.1:9999"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.OCI.Profile != "PROD" {
		t.Errorf("Profile = %q, want PROD", cfg.OCI.Profile)
	}
	if cfg.OCI.Region != "eu-frankfurt-1" {
		t.Errorf("Region = %q", cfg.OCI.Region)
	}
	if got := cfg.Query.Timeout(); got != 1500*time.Millisecond {
		t.Errorf("Timeout() = %v, want 1.5s", got)
	}
	if cfg.Admin == nil || !cfg.Admin.Enabled || cfg.Admin.ListenAddr() != "127.0.0.1:9999" {
		t.Errorf("Admin = %+v", cfg.Admin)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "oci": {"auth": "instance_principal"},
  "whitelist": {
    "version": "v2",
    "allowed_modules": ["oci"],
    "allowed_calls": [{"receiver": "object", "member": "list_*"}]
  }
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.OCI.Auth != "instance_principal" {
		t.Errorf("Auth = %q", cfg.OCI.Auth)
	}
	if cfg.Whitelist == nil || cfg.Whitelist.Version != "v2" {
		t.Errorf("Whitelist = %+v", cfg.Whitelist)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if got := cfg.Query.Timeout(); got != 2*time.Second {
		t.Errorf("Timeout() default = %v, want 2s", got)
	}
	var admin *AdminConfig
	if got := admin.ListenAddr(); got != "127.0.0.1:8484" {
		t.Errorf("ListenAddr() default = %q", got)
	}
	if cfg.Whitelist != nil {
		t.Errorf("Whitelist = %+v, want nil (built-in default)", cfg.Whitelist)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OCI_CONFIG_PROFILE", "STAGING")
	t.Setenv("OCIQ_REGION", "us-phoenix-1")

	path := writeConfig(t, "config.yaml", `
oci:
  profile: PROD
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.OCI.Profile != "STAGING" {
		t.Errorf("Profile = %q, want env override STAGING", cfg.OCI.Profile)
	}
	if cfg.OCI.Region != "us-phoenix-1" {
		t.Errorf("Region = %q, want env override", cfg.OCI.Region)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad auth", `{"oci": {"auth": "kerberos"}}`},
		{"negative timeout", `{"query": {"timeout_ms": -1}}`},
		{"bad log level", `{"log_level": "trace"}`},
		{"tracing without endpoint", `{"observability": {"tracing": {"enabled": true}}}`},
		{"bad tracing protocol", `{"observability": {"tracing": {"enabled": true, "endpoint": "x:4317", "protocol": "udp"}}}`},
		{"bad sample rate", `{"observability": {"tracing": {"enabled": true, "endpoint": "x:4317", "sample_rate": 2}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, "config.json", tc.body)
			if _, err := Load(path); err == nil {
				t.Errorf("Load accepted %s", tc.name)
			}
		})
	}
}

func TestLoadOrDefaultWithoutFile(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadOrDefault returned nil config")
	}
}
