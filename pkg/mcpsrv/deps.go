package mcpsrv

import (
	"github.com/seclens/edrsearch-mcp/internal/cache"
	"github.com/seclens/edrsearch-mcp/internal/config"
	"github.com/seclens/edrsearch-mcp/internal/registry"
)

// Deps contains all dependencies available to custom tools.
// This gives custom tools access to the same infrastructure as builtin tools.
type Deps struct {
	Registry *registry.Registry
	Config   *config.Config
	Alerts   *cache.AlertCache
}
