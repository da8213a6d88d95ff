package mcpsrv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/seclens/edrsearch-mcp/internal/cache"
	"github.com/seclens/edrsearch-mcp/internal/config"
	"github.com/seclens/edrsearch-mcp/internal/logging"
	"github.com/seclens/edrsearch-mcp/internal/mcp"
	"github.com/seclens/edrsearch-mcp/internal/mcp/tools"
	"github.com/seclens/edrsearch-mcp/internal/metrics"
	"github.com/seclens/edrsearch-mcp/internal/registry"
)

// Server is the EDR search MCP server.
// It wraps the internal implementation and provides extension points.
type Server struct {
	internal   *mcp.Server
	registry   *registry.Registry
	deps       *Deps
	opsAddr    string
	logCleanup func() error
}

// NewServer creates a new MCP server with the builtin investigation tools.
//
// Tenant credentials are read from <prefix>_CLIENT_ID_<CODE> and
// <prefix>_CLIENT_SECRET_<CODE> environment variables on first use; nothing
// authenticates at construction time. Use functional options to configure
// logging, add custom tools, etc.
func NewServer(opts ...Option) (*Server, error) {
	cfg := &serverConfig{
		config: config.Load(), // Load defaults from environment
	}
	for _, opt := range opts {
		opt(cfg)
	}

	logCfg := logging.Config{
		Level:      cfg.config.LogLevel,
		FilePath:   cfg.config.LogFile,
		MaxSizeMB:  cfg.config.LogMaxSizeMB,
		MaxBackups: cfg.config.LogMaxBackups,
		MaxAgeDays: cfg.config.LogMaxAgeDays,
		Compress:   cfg.config.LogCompress,
	}
	if cfg.logLevel != "" {
		logCfg.Level = cfg.logLevel
	}
	if cfg.logFile != "" {
		logCfg.FilePath = cfg.logFile
	}
	logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	// Per-tenant base URL overrides come from the optional tenants file.
	overrides := make(map[string]registry.TenantOverride)
	if cfg.config.TenantsFile != "" {
		tenants, err := config.LoadTenants(cfg.config.TenantsFile)
		if err != nil {
			return nil, err
		}
		for code, baseURL := range tenants.BaseURLOverrides() {
			overrides[code] = registry.TenantOverride{BaseURL: baseURL}
		}
		slog.Info("loaded tenants file",
			slog.String("path", cfg.config.TenantsFile),
			slog.Int("tenants", len(tenants.Tenants)))
	}

	reg := registry.New(registry.Options{
		EnvPrefix:  cfg.config.EnvPrefix,
		BaseURL:    cfg.config.BaseURL,
		HTTPClient: cfg.httpClient,
		Overrides:  overrides,
	})

	alerts, err := cache.NewAlertCache(cfg.config.AlertCacheMaxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert cache: %w", err)
	}

	toolDeps := &tools.Deps{
		Registry: reg,
		Config:   cfg.config,
		Alerts:   alerts,
	}
	deps := &Deps{
		Registry: reg,
		Config:   cfg.config,
		Alerts:   alerts,
	}

	var internalOpts []mcp.ServerOption
	if !cfg.disableBuiltinTools {
		internalOpts = append(internalOpts, mcp.WithBuiltinTools())
	}
	if !cfg.disableBuiltinPrompts {
		internalOpts = append(internalOpts, mcp.WithBuiltinPrompts())
	}

	for _, fn := range cfg.toolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.promptRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}

	for _, fn := range cfg.deferredToolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(func(srv *sdkmcp.Server) {
			fn(srv, deps)
		}))
	}

	internal, err := mcp.NewServer(toolDeps, internalOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &Server{
		internal:   internal,
		registry:   reg,
		deps:       deps,
		opsAddr:    cfg.config.OpsListenAddr,
		logCleanup: logCleanup,
	}, nil
}

// Run starts the MCP server with stdio transport, plus the operational HTTP
// listener (/metrics, /healthz) when one is configured. It runs until the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if s.opsAddr == "" {
		return s.internal.Run(ctx)
	}

	ops := &http.Server{
		Addr:              s.opsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("ops listener starting", slog.String("addr", s.opsAddr))
		if err := ops.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return ops.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return s.internal.Run(gctx)
	})
	return g.Wait()
}

// Close cleans up server resources: all tenant sessions and the log writer.
func (s *Server) Close() error {
	s.registry.Close()
	if s.logCleanup != nil {
		return s.logCleanup()
	}
	return nil
}

// Deps returns the dependencies for building custom tools.
func (s *Server) Deps() *Deps {
	return s.deps
}
