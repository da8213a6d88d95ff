package investigate

import (
	"context"
	"fmt"

	"github.com/seclens/edrsearch-mcp/internal/metrics"
	"github.com/seclens/edrsearch-mcp/pkg/edr"
	"github.com/seclens/edrsearch-mcp/pkg/query"
)

// AlertByID resolves one composite alert id to its detail record. A nil
// record with nil error means the id is unknown to the backend. Resolved
// records are cached when the investigator carries an alert cache.
func (inv *Investigator) AlertByID(ctx context.Context, id string) (edr.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: alert id", query.ErrEmptyTemplate)
	}

	if inv.alerts != nil {
		if rec, ok := inv.alerts.Get(inv.tenant, id); ok {
			metrics.AlertCacheHit()
			return rec, nil
		}
		metrics.AlertCacheMiss()
	}

	rec, err := inv.client.GetSingleAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec != nil && inv.alerts != nil {
		inv.alerts.Put(inv.tenant, id, rec)
	}
	return rec, nil
}

// AlertsByIDs resolves a batch of composite alert ids, serving what it can
// from the cache and fetching the rest in one backend round trip. Results
// keep the input order; ids the backend does not know are absent from the
// result.
func (inv *Investigator) AlertsByIDs(ctx context.Context, ids []string) ([]edr.Record, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: alert ids", query.ErrEmptyTemplate)
	}

	byID := make(map[string]edr.Record, len(ids))
	var missing []string
	if inv.alerts != nil {
		for _, id := range ids {
			if rec, ok := inv.alerts.Get(inv.tenant, id); ok {
				metrics.AlertCacheHit()
				byID[id] = rec
			} else {
				metrics.AlertCacheMiss()
				missing = append(missing, id)
			}
		}
	} else {
		missing = ids
	}

	if len(missing) > 0 {
		fetched, err := inv.client.GetAlertsByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, rec := range fetched {
			id := rec.GetString("composite_id")
			if id == "" {
				continue
			}
			byID[id] = rec
			if inv.alerts != nil {
				inv.alerts.Put(inv.tenant, id, rec)
			}
		}
	}

	out := make([]edr.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// QueryAlertIDs lists composite alert ids matching a filter expression.
func (inv *Investigator) QueryAlertIDs(ctx context.Context, filter string, opts edr.AlertQueryOptions) ([]string, error) {
	return inv.client.QueryAlertIDs(ctx, filter, opts)
}

// SearchAlerts lists alert detail records matching a filter expression. An
// empty match is an empty slice, not an error.
func (inv *Investigator) SearchAlerts(ctx context.Context, filter string, opts edr.AlertQueryOptions) ([]edr.Record, error) {
	return inv.client.SearchAndGetAlerts(ctx, filter, opts)
}
