package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	goutils "github.com/jkaninda/go-utils"

	"github.com/syntrobox/ociq/internal/config"
)

var capabilitiesConfigPath string

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Print the active whitelist schema as JSON",
	RunE:  runCapabilities,
}

func init() {
	capabilitiesCmd.Flags().StringVar(&capabilitiesConfigPath, "config", "", "path to config file (default ~/.ociq/config.yaml)")
}

// runCapabilities needs no OCI credentials: the whitelist is pure config.
func runCapabilities(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadOrDefault(goutils.Env("OCIQ_CONFIG", capabilitiesConfigPath))
	if err != nil {
		return err
	}
	wl, err := buildWhitelist(cfg)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(wl.Describe(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
