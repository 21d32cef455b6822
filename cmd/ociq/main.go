// ociq is a secure OCI resource query engine for LLM callers.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ociq",
	Short: "Sandboxed OCI resource queries over MCP",
	Long: `ociq executes whitelisted query snippets against Oracle Cloud Infrastructure
on behalf of an LLM caller. Every snippet is validated against a capability
whitelist before it runs, executes inside a preemptible sandbox, and returns
a JSON-safe result envelope. The primary transport is MCP over stdio.`,
	RunE:          runServe, // Default to serve mode.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, queryCmd, capabilitiesCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
