package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mcp-pagoda/internal/config"
	"mcp-pagoda/internal/mcpserver"
	"mcp-pagoda/internal/pagoda"
	"mcp-pagoda/pkg/logging"
)

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve MCP over stdin/stdout",
	Long: `Serves the MCP protocol on stdin/stdout for clients that spawn the
server as a subprocess. There is no HTTP surface in this mode, so the
Pagoda API token is taken from the MCP_PAGODA_TOKEN environment variable
instead of a bearer header. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runStdio,
}

func runStdio(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol stream.
	logging.Init(logLevel(), os.Stderr)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	token := os.Getenv("MCP_PAGODA_TOKEN")
	if token == "" {
		return fmt.Errorf("MCP_PAGODA_TOKEN is required for the stdio transport")
	}

	client := pagoda.NewClient(cfg.Pagoda.Endpoint, func(ctx context.Context) (string, error) {
		return token, nil
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return mcpserver.New(GetVersion(), client).ServeStdio(ctx)
}

func init() {
	rootCmd.AddCommand(stdioCmd)
}
