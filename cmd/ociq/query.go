package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	goutils "github.com/jkaninda/go-utils"

	"github.com/syntrobox/ociq/internal/config"
	"github.com/syntrobox/ociq/internal/query"
	"github.com/syntrobox/ociq/internal/session"
)

// Exit codes for the query command.
const (
	ExitSuccess            = 0
	ExitFailure            = 1
	ExitCapabilityDenied   = 2
	ExitSessionUnavailable = 3
)

var (
	querySnippet    string
	queryConfigPath string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Execute a single query snippet locally",
	Long: `Run one snippet through the full validate → sandbox → serialize pipeline
and print the result envelope as JSON. Useful for testing whitelist configs
and snippets without an MCP client.

The snippet comes from -s, or from stdin when -s is omitted.

Examples:
  ociq query -s 'identity = oci.identity.IdentityClient(config); result = identity.list_compartments(compartment_id: tenancy)'
  echo 'result = config' | ociq query

Exit codes:
  0  success
  1  execution failure
  2  capability denied or syntax invalid
  3  OCI session unavailable`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&querySnippet, "snippet", "s", "", "snippet to execute (default: read from stdin)")
	queryCmd.Flags().StringVar(&queryConfigPath, "config", "", "path to config file (default ~/.ociq/config.yaml)")
}

func runQuery(_ *cobra.Command, _ []string) error {
	snippet := querySnippet
	if snippet == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading snippet from stdin: %w", err)
		}
		snippet = string(data)
	}
	if snippet == "" {
		return fmt.Errorf("snippet is required: use -s or pipe it on stdin")
	}

	cfg, err := config.LoadOrDefault(goutils.Env("OCIQ_CONFIG", queryConfigPath))
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	sess, err := session.New(sessionConfig(cfg), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitSessionUnavailable)
	}

	exec, err := buildExecutor(cfg, sess, nil, logger)
	if err != nil {
		return err
	}

	env := exec.Execute(context.Background(), query.Request{Snippet: snippet})

	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}
	fmt.Println(string(out))

	switch {
	case env.OK:
		os.Exit(ExitSuccess)
	case env.Kind == query.KindCapabilityDenied || env.Kind == query.KindSyntaxInvalid:
		os.Exit(ExitCapabilityDenied)
	default:
		os.Exit(ExitFailure)
	}
	return nil
}
