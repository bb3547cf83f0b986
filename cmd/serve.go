package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mcp-pagoda/internal/config"
	"mcp-pagoda/internal/server"
	"mcp-pagoda/pkg/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over HTTP",
	Long: `Starts the MCP server on the configured HTTP transport
(streamable-http or sse) behind bearer authentication. In bridge mode the
OAuth authorization endpoints are served alongside the MCP endpoint.

Configuration is read from the file given with --config, overridden by
MCP_PAGODA_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logging.Init(logLevel(), os.Stdout)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !debug {
		logging.Init(logging.ParseLevel(cfg.Server.LogLevel), os.Stdout)
	}

	srv, err := server.New(cfg, GetVersion())
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return srv.Shutdown(context.Background())
}

// logLevel resolves the level to use before configuration is loaded.
func logLevel() logging.LogLevel {
	if debug {
		return logging.LevelDebug
	}
	return logging.LevelInfo
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
