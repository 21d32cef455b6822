// Package server exposes the query service over MCP stdio. The transport is
// a thin shell: it parses tool calls, hands snippets to the query service,
// and writes the structured envelope back as JSON text content. All policy
// lives below this layer.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/syntrobox/ociq/internal/query"
)

// Name and version advertised in the MCP initialize handshake.
const (
	ServerName = "oci-resources"

	// QueryResourceURI is the informational resource pointing callers at the
	// query tool.
	QueryResourceURI = "oci://query_resources"
)

// Server is the MCP stdio frontend for a query.Executor.
type Server struct {
	exec   query.Executor
	mcp    *server.MCPServer
	logger *slog.Logger
}

// New builds the MCP server and registers the tool and resource surface.
func New(exec query.Executor, version string, logger *slog.Logger) *Server {
	s := &Server{
		exec:   exec,
		logger: logger,
	}

	m := server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	m.AddTool(
		mcp.NewTool("read_create_update_oci_resources",
			mcp.WithDescription("Execute a query snippet against OCI resources. "+
				"The snippet runs in a sandbox restricted to the whitelisted OCI SDK surface; "+
				"bind the value to return to a variable named result."),
			mcp.WithString("snippet",
				mcp.Required(),
				mcp.Description("Query snippet to execute, e.g. "+
					`identity = oci.identity.IdentityClient(config); result = identity.list_compartments(compartment_id: tenancy)`),
			),
		),
		s.handleQuery,
	)

	m.AddTool(
		mcp.NewTool("describe_capabilities",
			mcp.WithDescription("Return the whitelist of modules, calls, and builtins "+
				"a snippet may use. Read-only."),
		),
		s.handleCapabilities,
	)

	m.AddResource(
		mcp.NewResource(QueryResourceURI, "OCI Resources Query",
			mcp.WithResourceDescription("Execute OCI SDK queries for resources"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleQueryResource,
	)

	s.mcp = m
	return s
}

// ServeStdio serves MCP over the process's stdin and stdout until ctx is
// cancelled or stdin closes. Logs must go to stderr: stdout carries the
// protocol stream.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio", slog.String("server", ServerName))
	return s.serve(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, in, out)
}

func (s *Server) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snippet, err := req.RequireString("snippet")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	env := s.exec.Execute(ctx, query.Request{Snippet: snippet})
	data, err := json.Marshal(env)
	if err != nil {
		// The serializer guarantees JSON-safe results, so this indicates a bug
		// in the envelope itself rather than in caller input.
		s.logger.Error("envelope marshal failed",
			slog.String("request_id", env.RequestID),
			slog.String("error", err.Error()),
		)
		return mcp.NewToolResultError(fmt.Sprintf("internal error: %s", err)), nil
	}

	if !env.OK {
		return mcp.NewToolResultError(string(data)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleCapabilities(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(s.exec.Capabilities(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("internal error: %s", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleQueryResource(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if req.Params.URI != QueryResourceURI {
		return nil, fmt.Errorf("unknown resource: %s", req.Params.URI)
	}
	body, err := json.Marshal(map[string]any{
		"message":      "Use the read_create_update_oci_resources tool to execute specific queries",
		"capabilities": s.exec.Capabilities(),
	})
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      QueryResourceURI,
			MIMEType: "application/json",
			Text:     string(body),
		},
	}, nil
}
