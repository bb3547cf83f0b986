package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// configPath points at the YAML configuration file. Environment variables
// (MCP_PAGODA_*) override whatever the file says.
var configPath string

// debug raises the log level to debug regardless of configuration.
var debug bool

// rootCmd is the entry point when mcp-pagoda is called without a
// subcommand.
var rootCmd = &cobra.Command{
	Use:   "mcp-pagoda",
	Short: "MCP server for the Pagoda CMDB",
	Long: `mcp-pagoda exposes the Pagoda CMDB to AI assistants over the Model
Context Protocol: model and item lookup, attribute-filtered search, the
datacenter rack inventory, and router topology.

Requests authenticate either with a Pagoda API token passed through as a
bearer token, or with session tokens issued by the built-in OAuth
authorization bridge in front of Azure AD.`,
	SilenceUsage: true,
}

// SetVersion injects the build version into the root command. Called from
// main with the value set via -ldflags.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the injected build version.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the CLI.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcp-pagoda version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}
