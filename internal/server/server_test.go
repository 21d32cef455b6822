package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/syntrobox/ociq/internal/capability"
	"github.com/syntrobox/ociq/internal/query"
	"github.com/syntrobox/ociq/internal/validate"
)

type fakeExecutor struct {
	lastSnippet string
	envelope    *query.Envelope
}

func (f *fakeExecutor) Execute(_ context.Context, req query.Request) *query.Envelope {
	f.lastSnippet = req.Snippet
	return f.envelope
}

func (f *fakeExecutor) Capabilities() capability.Schema {
	return capability.Schema{
		Version:        "v1",
		AllowedModules: []string{"oci"},
		Builtins:       []string{"len", "str"},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func callToolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("len(Content) = %d, want 1", len(res.Content))
	}
	tc, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("Content[0] = %T, want text content", res.Content[0])
	}
	return tc.Text
}

func TestHandleQuerySuccess(t *testing.T) {
	exec := &fakeExecutor{envelope: &query.Envelope{
		OK:        true,
		Result:    []any{map[string]any{"name": "prod"}},
		RequestID: "req-1",
	}}
	s := New(exec, "0.1.0", testLogger())

	res, err := s.handleQuery(context.Background(), callToolRequest(map[string]any{
		"snippet": "result = 1 + 1",
	}))
	if err != nil {
		t.Fatalf("handleQuery error = %v", err)
	}
	if res.IsError {
		t.Fatalf("IsError = true, text = %s", textOf(t, res))
	}
	if exec.lastSnippet != "result = 1 + 1" {
		t.Errorf("snippet passed = %q", exec.lastSnippet)
	}

	var env query.Envelope
	if err := json.Unmarshal([]byte(textOf(t, res)), &env); err != nil {
		t.Fatalf("response is not a JSON envelope: %v", err)
	}
	if !env.OK || env.RequestID != "req-1" {
		t.Errorf("envelope = %+v, want ok with request_id req-1", env)
	}
}

func TestHandleQueryDeniedIsToolError(t *testing.T) {
	exec := &fakeExecutor{envelope: &query.Envelope{
		OK:      false,
		Kind:    query.KindCapabilityDenied,
		Message: "1 violation",
		Violations: []validate.Violation{
			{NodeKind: "import", Line: 1, Col: 1, Reason: `module "subprocess" is not allowed`},
		},
		RequestID: "req-2",
	}}
	s := New(exec, "0.1.0", testLogger())

	res, err := s.handleQuery(context.Background(), callToolRequest(map[string]any{
		"snippet": "import subprocess",
	}))
	if err != nil {
		t.Fatalf("handleQuery error = %v", err)
	}
	if !res.IsError {
		t.Fatal("IsError = false for denied query")
	}
	text := textOf(t, res)
	for _, want := range []string{"capability_denied", "subprocess", "req-2"} {
		if !strings.Contains(text, want) {
			t.Errorf("response %q does not contain %q", text, want)
		}
	}
}

func TestHandleQueryMissingSnippet(t *testing.T) {
	exec := &fakeExecutor{envelope: &query.Envelope{OK: true}}
	s := New(exec, "0.1.0", testLogger())

	res, err := s.handleQuery(context.Background(), callToolRequest(nil))
	if err != nil {
		t.Fatalf("handleQuery error = %v", err)
	}
	if !res.IsError {
		t.Fatal("IsError = false for missing snippet")
	}
	if exec.lastSnippet != "" {
		t.Errorf("executor called with %q, want no call", exec.lastSnippet)
	}
}

func TestHandleCapabilities(t *testing.T) {
	s := New(&fakeExecutor{}, "0.1.0", testLogger())

	res, err := s.handleCapabilities(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("handleCapabilities error = %v", err)
	}
	if res.IsError {
		t.Fatalf("IsError = true, text = %s", textOf(t, res))
	}

	var schema capability.Schema
	if err := json.Unmarshal([]byte(textOf(t, res)), &schema); err != nil {
		t.Fatalf("response is not a JSON schema: %v", err)
	}
	if schema.Version != "v1" || len(schema.AllowedModules) != 1 {
		t.Errorf("schema = %+v", schema)
	}
}

func TestHandleQueryResource(t *testing.T) {
	s := New(&fakeExecutor{}, "0.1.0", testLogger())

	req := mcp.ReadResourceRequest{}
	req.Params.URI = QueryResourceURI
	contents, err := s.handleQueryResource(context.Background(), req)
	if err != nil {
		t.Fatalf("handleQueryResource error = %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("len(contents) = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] = %T, want TextResourceContents", contents[0])
	}
	if tc.MIMEType != "application/json" {
		t.Errorf("MIMEType = %q", tc.MIMEType)
	}
	if !strings.Contains(tc.Text, "read_create_update_oci_resources") {
		t.Errorf("resource text %q does not point at the query tool", tc.Text)
	}

	req.Params.URI = "oci://unknown"
	if _, err := s.handleQueryResource(context.Background(), req); err == nil {
		t.Error("unknown resource URI accepted")
	}
}
