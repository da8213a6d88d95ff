package edr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// alertBatchSize is the maximum number of composite ids per details request.
const alertBatchSize = 100

// alertFetchWorkers bounds concurrent batch fetches in GetAlertsByIDs.
const alertFetchWorkers = 4

// GetAlertsByIDs fetches alert details for the given composite ids. IDs are
// fetched in batches of alertBatchSize; batches run concurrently but the
// returned records preserve input id order at batch granularity. Unknown ids
// are simply absent from the result.
func (c *Client) GetAlertsByIDs(ctx context.Context, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no alert ids given", ErrNotFound)
	}

	batches := make([][]string, 0, (len(ids)+alertBatchSize-1)/alertBatchSize)
	for start := 0; start < len(ids); start += alertBatchSize {
		end := min(start+alertBatchSize, len(ids))
		batches = append(batches, ids[start:end])
	}

	results := make([][]Record, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(alertFetchWorkers)
	for i, batch := range batches {
		g.Go(func() error {
			var resp alertDetailsResponse
			err := c.do(gctx, http.MethodPost, "/api/v1/alerts/details", nil,
				alertDetailsRequest{CompositeIDs: batch}, &resp)
			if err != nil {
				return err
			}
			results[i] = resp.Resources
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []Record
	for _, page := range results {
		records = append(records, page...)
	}
	return records, nil
}

// GetSingleAlert fetches one alert by composite id. A missing alert is an
// absent result, not a hard failure: it returns (nil, nil).
func (c *Client) GetSingleAlert(ctx context.Context, id string) (Record, error) {
	records, err := c.GetAlertsByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// QueryAlertIDs runs a filter expression against the alert index and returns
// matching composite ids.
func (c *Client) QueryAlertIDs(ctx context.Context, filter string, opts AlertQueryOptions) ([]string, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	q := url.Values{
		"filter": {filter},
		"limit":  {strconv.Itoa(opts.Limit)},
		"offset": {strconv.Itoa(opts.Offset)},
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}

	var resp alertQueryResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/alerts/queries", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Resources, nil
}

// SearchAndGetAlerts combines QueryAlertIDs and GetAlertsByIDs: filter to
// ids, then resolve details. An empty filter match returns an empty slice.
func (c *Client) SearchAndGetAlerts(ctx context.Context, filter string, opts AlertQueryOptions) ([]Record, error) {
	ids, err := c.QueryAlertIDs(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Record{}, nil
	}
	return c.GetAlertsByIDs(ctx, ids)
}
