package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/syntrobox/ociq/internal/capability"
	"github.com/syntrobox/ociq/internal/config"
	"github.com/syntrobox/ociq/internal/query"
	"github.com/syntrobox/ociq/internal/validate"
)

// --- No-op Path ---

func TestNew_NilConfig(t *testing.T) {
	obs, err := New(nil, nil)
	if err != nil {
		t.Fatalf("New(nil) error: %v", err)
	}
	if obs != nil {
		t.Fatal("expected nil Observability for nil config")
	}
}

func TestNew_AllDisabled(t *testing.T) {
	obs, err := New(&config.ObservabilityConfig{}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if obs == nil {
		t.Fatal("expected non-nil Observability")
	}
	if obs.Metrics != nil {
		t.Error("metrics should be nil when not enabled")
	}
	if obs.Tracer != nil {
		t.Error("tracer should be nil when not enabled")
	}
	if obs.Watchdog != nil {
		t.Error("watchdog should be nil when not enabled")
	}
	if obs.Health == nil {
		t.Error("health checker should always be created")
	}
}

func TestObservability_ShutdownNil(t *testing.T) {
	// Should not panic.
	var obs *Observability
	obs.Shutdown(context.Background())
}

// --- MetricsCollector ---

func TestMetricsCollector_Created(t *testing.T) {
	m := NewMetricsCollector()
	if m == nil || m.Registry == nil {
		t.Fatal("expected collector with registry")
	}

	// Vec metrics only appear in Gather after first use.
	m.QueriesTotal.WithLabelValues("ok").Inc()
	m.QueryDuration.WithLabelValues("ok").Observe(0.1)
	m.HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200").Inc()
	m.ValidationViolationsTotal.Add(2)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gather error: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, expected := range []string{
		"ociq_query_requests_total",
		"ociq_query_duration_seconds",
		"ociq_validation_violations_total",
		"ociq_http_requests_total",
		"ociq_active_queries",
	} {
		if !names[expected] {
			t.Errorf("metric %q not found in registry", expected)
		}
	}
}

// --- HealthChecker ---

func TestHealthChecker_NoChecks(t *testing.T) {
	h := NewHealthChecker(nil)
	status := h.CheckReady(context.Background())
	if status.Status != "ok" {
		t.Errorf("status = %q, want ok", status.Status)
	}
}

func TestHealthChecker_OneFails(t *testing.T) {
	h := NewHealthChecker(nil)
	h.AddCheck("session", func(ctx context.Context) error { return errors.New("no credentials") })
	h.AddCheck("whitelist", func(ctx context.Context) error { return nil })

	status := h.CheckReady(context.Background())
	if status.Status != "degraded" {
		t.Errorf("status = %q, want degraded", status.Status)
	}
	if status.Checks["session"].Status != "fail" {
		t.Errorf("session check = %q, want fail", status.Checks["session"].Status)
	}
	if status.Checks["whitelist"].Status != "ok" {
		t.Errorf("whitelist check = %q, want ok", status.Checks["whitelist"].Status)
	}
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil)
	if status := h.CheckHealth(); status.Status != "ok" {
		t.Errorf("liveness status = %q, want ok", status.Status)
	}
}

// --- Watchdog ---

func TestWatchdog_NilSafe(t *testing.T) {
	// All methods should be no-ops on nil receiver.
	var w *Watchdog
	w.RecordDenied("req-1")
	w.RecordAdmitted()
}

func TestWatchdog_Counts(t *testing.T) {
	w := NewWatchdog(&config.WatchdogConfig{
		Enabled:             true,
		DenialRateThreshold: 0.5,
		WindowSeconds:       60,
	}, nil)

	for i := 0; i < 4; i++ {
		w.RecordAdmitted()
	}
	for i := 0; i < 6; i++ {
		w.RecordDenied("req")
	}

	w.mu.Lock()
	denied := w.denied.count()
	admitted := w.admitted.count()
	w.mu.Unlock()

	if denied != 6 {
		t.Errorf("denied = %d, want 6", denied)
	}
	if admitted != 4 {
		t.Errorf("admitted = %d, want 4", admitted)
	}
}

// --- InstrumentedExecutor ---

type mockExecutor struct {
	env    *query.Envelope
	called int
}

func (m *mockExecutor) Execute(ctx context.Context, req query.Request) *query.Envelope {
	m.called++
	return m.env
}

func (m *mockExecutor) Capabilities() capability.Schema {
	return capability.Schema{Version: "test"}
}

func TestInstrumentedExecutor_Success(t *testing.T) {
	metrics := NewMetricsCollector()
	inner := &mockExecutor{env: &query.Envelope{OK: true, RequestID: "req-1"}}

	e := NewInstrumentedExecutor(inner, metrics, nil, nil)
	env := e.Execute(context.Background(), query.Request{Snippet: "1 + 1"})
	if !env.OK {
		t.Fatalf("envelope = %+v, want ok", env)
	}
	if inner.called != 1 {
		t.Errorf("inner called %d times, want 1", inner.called)
	}

	val := counterValue(t, metrics.Registry, "ociq_query_requests_total", prometheus.Labels{"outcome": "ok"})
	if val != 1 {
		t.Errorf("requests_total{ok} = %v, want 1", val)
	}
}

func TestInstrumentedExecutor_DenialFeedsWatchdogAndMetrics(t *testing.T) {
	metrics := NewMetricsCollector()
	watchdog := NewWatchdog(&config.WatchdogConfig{Enabled: true}, nil)
	inner := &mockExecutor{env: &query.Envelope{
		OK:   false,
		Kind: query.KindCapabilityDenied,
		Violations: []validate.Violation{
			{Reason: "module \"subprocess\" is not allowed"},
			{Reason: "call not allowed"},
		},
		RequestID: "req-2",
	}}

	e := NewInstrumentedExecutor(inner, metrics, nil, watchdog)
	env := e.Execute(context.Background(), query.Request{Snippet: "import subprocess"})
	if env.OK {
		t.Fatal("envelope OK, want denied")
	}

	if val := counterValue(t, metrics.Registry, "ociq_query_requests_total", prometheus.Labels{"outcome": "capability_denied"}); val != 1 {
		t.Errorf("requests_total{capability_denied} = %v, want 1", val)
	}
	if val := counterValue(t, metrics.Registry, "ociq_validation_violations_total", nil); val != 2 {
		t.Errorf("violations_total = %v, want 2", val)
	}

	watchdog.mu.Lock()
	denied := watchdog.denied.count()
	watchdog.mu.Unlock()
	if denied != 1 {
		t.Errorf("watchdog denials = %d, want 1", denied)
	}
}

func TestInstrumentedExecutor_NilComponents(t *testing.T) {
	// nil metrics, tracer, watchdog: should not panic.
	inner := &mockExecutor{env: &query.Envelope{OK: true}}
	e := NewInstrumentedExecutor(inner, nil, nil, nil)
	if env := e.Execute(context.Background(), query.Request{}); !env.OK {
		t.Errorf("envelope = %+v, want ok", env)
	}
	if e.Capabilities().Version != "test" {
		t.Error("Capabilities not passed through")
	}
}

// --- HTTP Middleware ---

func TestHTTPMetricsMiddleware(t *testing.T) {
	metrics := NewMetricsCollector()

	handler := HTTPMetricsMiddleware(metrics, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	val := counterValue(t, metrics.Registry, "ociq_http_requests_total", prometheus.Labels{"method": "GET", "path": "/healthz", "status_code": "200"})
	if val != 1 {
		t.Errorf("http requests = %v, want 1", val)
	}
}

func TestHTTPMetricsMiddleware_NilMetrics(t *testing.T) {
	// Should not panic with nil metrics.
	handler := HTTPMetricsMiddleware(nil, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

// --- Helpers ---

func labelMap(pairs []*dto.LabelPair) map[string]string {
	m := make(map[string]string)
	for _, p := range pairs {
		m[p.GetName()] = p.GetValue()
	}
	return m
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels prometheus.Labels) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather error: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			lm := labelMap(metric.GetLabel())
			match := true
			for k, v := range labels {
				if lm[k] != v {
					match = false
					break
				}
			}
			if match {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
