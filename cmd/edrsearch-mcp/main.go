package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/seclens/edrsearch-mcp/pkg/mcpsrv"
)

func main() {
	// Set up context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load .env if present; a missing file is fine, credentials usually come
	// from the real environment in production.
	_ = godotenv.Load()

	// Create MCP server with all builtin tools
	// Configuration is loaded from environment variables:
	// - EDR_LOG_LEVEL: debug, info, warn, error (default: info)
	// - EDR_LOG_FILE: path to log file (default: stderr only)
	// - EDR_BASE_URL: backend API base URL
	// - EDR_CLIENT_ID_<CODE> / EDR_CLIENT_SECRET_<CODE>: per-tenant credentials
	// - etc. (see internal/config for all options)
	server, err := mcpsrv.NewServer()
	if err != nil {
		slog.Error("failed to create MCP server", "error", err)
		os.Exit(1)
	}
	defer server.Close()

	// Run the server with stdio transport
	slog.Info("starting edrsearch MCP server on stdio")
	if err := server.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
