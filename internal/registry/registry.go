// Package registry manages authenticated backend sessions per tenant code.
//
// Sessions are created lazily on first use and cached for the life of the
// process. Concurrent first requests for the same tenant are collapsed into a
// single authentication attempt; requests for different tenants proceed
// independently.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/seclens/edrsearch-mcp/internal/metrics"
	"github.com/seclens/edrsearch-mcp/pkg/edr"
)

// DefaultEnvPrefix is used when Options.EnvPrefix is empty. Credentials are
// read from <PREFIX>_CLIENT_ID_<TENANT_CODE> / <PREFIX>_CLIENT_SECRET_<TENANT_CODE>.
const DefaultEnvPrefix = "EDR"

// TenantOverride carries optional per-tenant connection settings from the
// tenants file.
type TenantOverride struct {
	BaseURL string
}

// Options configures a Registry.
type Options struct {
	// EnvPrefix for credential environment variables. Default "EDR".
	EnvPrefix string
	// BaseURL for tenants without an override. Empty uses the edr default.
	BaseURL string
	// HTTPClient shared by all sessions. Nil uses http.DefaultClient.
	HTTPClient *http.Client
	// Overrides maps tenant code → per-tenant settings.
	Overrides map[string]TenantOverride
	// Lookup resolves environment variables. Nil uses os.Getenv.
	// Swappable for tests.
	Lookup func(key string) string
}

// Registry is the process-wide session cache. Safe for concurrent use.
type Registry struct {
	opts  Options
	group singleflight.Group

	mu      sync.RWMutex
	clients map[string]*edr.Client
}

// New creates an empty Registry.
func New(opts Options) *Registry {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = DefaultEnvPrefix
	}
	if opts.Lookup == nil {
		opts.Lookup = os.Getenv
	}
	return &Registry{
		opts:    opts,
		clients: make(map[string]*edr.Client),
	}
}

// Get returns the tenant's session, authenticating on first use. A failed
// construction is not cached: a later call retries from scratch. All
// concurrent first callers for one tenant observe the same session instance.
func (r *Registry) Get(ctx context.Context, tenantCode string) (*edr.Client, error) {
	key := normalizeCode(tenantCode)
	if key == "" {
		return nil, fmt.Errorf("%w: empty tenant code", edr.ErrConfiguration)
	}

	r.mu.RLock()
	client, ok := r.clients[key]
	r.mu.RUnlock()
	if ok {
		metrics.SessionCacheHit()
		return client, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		// A racing creator may have finished while this caller queued.
		r.mu.RLock()
		existing, ok := r.clients[key]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}

		metrics.SessionCacheMiss()
		created, err := r.connect(ctx, key)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.clients[key] = created
		metrics.SetActiveSessions(len(r.clients))
		r.mu.Unlock()

		slog.Info("tenant session created", slog.String("tenant", key))
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*edr.Client), nil
}

// connect reads the tenant's credentials and authenticates a new session.
// Only a fully authenticated session is ever returned.
func (r *Registry) connect(ctx context.Context, key string) (*edr.Client, error) {
	idKey := r.opts.EnvPrefix + "_CLIENT_ID_" + key
	secretKey := r.opts.EnvPrefix + "_CLIENT_SECRET_" + key

	clientID := r.opts.Lookup(idKey)
	clientSecret := r.opts.Lookup(secretKey)
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: credentials for tenant %q not set (expected %s and %s)",
			edr.ErrConfiguration, key, idKey, secretKey)
	}

	var opts []edr.Option
	baseURL := r.opts.BaseURL
	if ov, ok := r.opts.Overrides[key]; ok && ov.BaseURL != "" {
		baseURL = ov.BaseURL
	}
	if baseURL != "" {
		opts = append(opts, edr.WithBaseURL(baseURL))
	}
	if r.opts.HTTPClient != nil {
		opts = append(opts, edr.WithHTTPClient(r.opts.HTTPClient))
	}

	return edr.Connect(ctx, clientID, clientSecret, opts...)
}

// Evict drops a tenant's cached session, forcing re-authentication on the
// next Get. Safe to call concurrently with in-flight Gets.
func (r *Registry) Evict(tenantCode string) bool {
	key := normalizeCode(tenantCode)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[key]; !ok {
		return false
	}
	delete(r.clients, key)
	metrics.SetActiveSessions(len(r.clients))
	slog.Info("tenant session evicted", slog.String("tenant", key))
	return true
}

// Close drops every cached session. Called at process shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = make(map[string]*edr.Client)
	metrics.SetActiveSessions(0)
}

// Codes lists the tenant codes with a cached session, sorted.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.clients))
	for code := range r.clients {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// normalizeCode maps a tenant code to its canonical cache and env-var form.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
