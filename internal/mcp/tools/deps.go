package tools

import (
	"context"
	"strings"

	"github.com/seclens/edrsearch-mcp/internal/cache"
	"github.com/seclens/edrsearch-mcp/internal/config"
	"github.com/seclens/edrsearch-mcp/internal/investigate"
	"github.com/seclens/edrsearch-mcp/internal/registry"
	"github.com/seclens/edrsearch-mcp/pkg/edr"
)

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Registry *registry.Registry
	Config   *config.Config
	Alerts   *cache.AlertCache
}

// Investigator resolves a tenant code to an authenticated investigator. An
// empty code falls back to the configured default tenant.
func (d *Deps) Investigator(ctx context.Context, tenantCode string) (*investigate.Investigator, error) {
	code := strings.ToUpper(strings.TrimSpace(tenantCode))
	if code == "" {
		code = strings.ToUpper(strings.TrimSpace(d.Config.DefaultTenant))
	}
	if code == "" {
		return nil, ErrInvalidInput("tenant_code is required (no default tenant configured)")
	}

	client, err := d.Registry.Get(ctx, code)
	if err != nil {
		return nil, WrapBackendError(err)
	}

	var opts []investigate.Option
	if d.Alerts != nil {
		opts = append(opts, investigate.WithAlertCache(code, d.Alerts))
	}
	return investigate.New(client, opts...), nil
}

// SearchOptions merges per-call search tuning over the configured defaults.
func (d *Deps) SearchOptions(period, repository string) edr.SearchOptions {
	opts := d.Config.SearchOptions()
	if period != "" {
		opts.Start = period
	}
	if repository != "" {
		opts.Repository = repository
	}
	return opts
}
