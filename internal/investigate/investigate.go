// Package investigate implements the pivot-template catalog: named searches
// that start from one known attribute (filename, hash, process id) and
// retrieve related telemetry.
//
// Every template validates its arguments, builds one query, executes it, and
// returns the records unmodified. Templates hold no state between calls.
package investigate

import (
	"context"
	"errors"
	"time"

	"github.com/seclens/edrsearch-mcp/internal/cache"
	"github.com/seclens/edrsearch-mcp/internal/metrics"
	"github.com/seclens/edrsearch-mcp/pkg/edr"
	"github.com/seclens/edrsearch-mcp/pkg/query"
)

// ErrMissingHost is returned by process templates when no host identifier is
// supplied. File templates accept an unrestricted scope; process telemetry is
// only meaningful pinned to one host.
var ErrMissingHost = errors.New("host identifier is required for this template")

// ErrAmbiguousTarget is returned when a template accepting filename-or-hash
// receives both or neither.
var ErrAmbiguousTarget = errors.New("exactly one of filename or hash must be given")

// Client is the backend surface a template needs. *edr.Client satisfies it.
type Client interface {
	SearchEvents(ctx context.Context, queryString string, opts edr.SearchOptions) ([]edr.Record, error)
	GetAlertsByIDs(ctx context.Context, ids []string) ([]edr.Record, error)
	GetSingleAlert(ctx context.Context, id string) (edr.Record, error)
	QueryAlertIDs(ctx context.Context, filter string, opts edr.AlertQueryOptions) ([]string, error)
	SearchAndGetAlerts(ctx context.Context, filter string, opts edr.AlertQueryOptions) ([]edr.Record, error)
}

// FileTarget selects the pivot attribute for file templates: a filename or a
// SHA256 hash, exactly one of which must be set.
type FileTarget struct {
	Filename string
	Hash     string
}

func (t FileTarget) validate() error {
	if (t.Filename == "") == (t.Hash == "") {
		return ErrAmbiguousTarget
	}
	return nil
}

// apply appends the target's match condition to the builder.
func (t FileTarget) apply(b *query.Builder) {
	if t.Filename != "" {
		b.Where("FileName", t.Filename)
	} else {
		b.Where("SHA256HashData", t.Hash)
	}
}

// ScopeFrom builds a HostScope from the aid/exclude parameter pair the tool
// layer receives. An empty aid is unrestricted regardless of exclude.
func ScopeFrom(aid string, exclude bool) query.HostScope {
	if aid == "" {
		return query.Unrestricted()
	}
	if exclude {
		return query.ExcludeHost(aid)
	}
	return query.IncludeHost(aid)
}

// Investigator executes pivot templates against one tenant's session.
type Investigator struct {
	client Client
	tenant string
	alerts *cache.AlertCache
}

// Option configures an Investigator.
type Option func(*Investigator)

// WithAlertCache shares an alert detail cache across investigators. The
// tenant code keys the cache so identical alert ids from different tenants
// never collide.
func WithAlertCache(tenant string, c *cache.AlertCache) Option {
	return func(inv *Investigator) {
		inv.tenant = tenant
		inv.alerts = c
	}
}

// New creates an Investigator bound to a tenant session.
func New(client Client, opts ...Option) *Investigator {
	inv := &Investigator{client: client}
	for _, o := range opts {
		o(inv)
	}
	return inv
}

// run builds the query, executes it, and records metrics for the template.
func (inv *Investigator) run(ctx context.Context, template string, b *query.Builder, scope query.HostScope, opts edr.SearchOptions) ([]edr.Record, error) {
	b.SetHostScope(scope)
	expr, err := b.Build()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	records, err := inv.client.SearchEvents(ctx, expr.String(), opts)
	metrics.ObserveSearch(template, outcomeOf(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return records, nil
}

// RawSearch executes a caller-supplied query string unchanged. It bypasses
// the builder entirely; the caller owns the dialect.
func (inv *Investigator) RawSearch(ctx context.Context, queryString string, opts edr.SearchOptions) ([]edr.Record, error) {
	start := time.Now()
	records, err := inv.client.SearchEvents(ctx, queryString, opts)
	metrics.ObserveSearch("raw", outcomeOf(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return records, nil
}

// outcomeOf maps an executor error to its metrics label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCompleted
	case errors.Is(err, edr.ErrCancelled):
		return metrics.OutcomeCancelled
	case errors.Is(err, edr.ErrPollTimeout):
		return metrics.OutcomeTimeout
	default:
		var subErr *edr.SubmissionError
		var jobErr *edr.JobError
		switch {
		case errors.As(err, &subErr):
			return metrics.OutcomeSubmitErr
		case errors.As(err, &jobErr):
			return metrics.OutcomeJobErr
		}
		return metrics.OutcomeOther
	}
}

// requireHost enforces the process-template host rule: a host must be named
// and must be included, not excluded.
func requireHost(aid string) (query.HostScope, error) {
	if aid == "" {
		return query.HostScope{}, ErrMissingHost
	}
	return query.IncludeHost(aid), nil
}
