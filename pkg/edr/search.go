package edr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// SearchEvents submits a query as an asynchronous search job and drives it to
// a terminal state: submit, poll at a fixed interval up to the attempt budget,
// then fetch every result page in order.
//
// Failure classification: a submit-time rejection returns *SubmissionError, a
// backend-side job failure returns *JobError, an exhausted poll budget returns
// *PollTimeoutError, and caller cancellation returns an error wrapping
// ErrCancelled. None of these are retried. A search abandoned by timeout or
// cancellation is stopped on the backend best-effort.
func (c *Client) SearchEvents(ctx context.Context, queryString string, opts SearchOptions) ([]Record, error) {
	opts = opts.withDefaults()

	searchID, err := c.startSearch(ctx, queryString, opts)
	if err != nil {
		return nil, err
	}

	slog.Debug("search submitted",
		slog.String("search_id", searchID),
		slog.String("repository", opts.Repository),
		slog.String("start", opts.Start),
		slog.Bool("live", opts.Live),
	)

	return c.awaitResults(ctx, searchID, opts)
}

// startSearch submits the job and returns the backend's search id.
func (c *Client) startSearch(ctx context.Context, queryString string, opts SearchOptions) (string, error) {
	req := startSearchRequest{
		Query:      queryString,
		Repository: opts.Repository,
		Start:      opts.Start,
		End:        opts.End,
		IsLive:     opts.Live,
	}

	var resp startSearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/search", nil, req, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return "", &SubmissionError{StatusCode: apiErr.StatusCode, Detail: apiErr.Message}
		}
		return "", err
	}
	if resp.ID == "" {
		return "", &SubmissionError{Detail: "backend returned no search id"}
	}
	return resp.ID, nil
}

// awaitResults polls the job to completion and paginates its results.
// Polls for one search are strictly sequential; cancellation is observed
// before every sleep and every page fetch.
func (c *Client) awaitResults(ctx context.Context, searchID string, opts SearchOptions) ([]Record, error) {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for attempts := 1; attempts <= opts.MaxAttempts; attempts++ {
		if err := ctx.Err(); err != nil {
			c.stopSearch(searchID)
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}

		status, err := c.searchStatus(ctx, searchID, "")
		if err != nil {
			if ctx.Err() != nil {
				c.stopSearch(searchID)
				return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
			}
			return nil, err
		}

		switch status.Status {
		case statusDone:
			return c.collectPages(ctx, searchID, status)
		case statusError:
			return nil, &JobError{SearchID: searchID, Detail: status.ErrorMessage}
		case statusRunning, statusPending:
			// still running; fall through to the interval sleep
		default:
			return nil, &JobError{SearchID: searchID, Detail: fmt.Sprintf("unknown search status %q", status.Status)}
		}

		if attempts == opts.MaxAttempts {
			break
		}

		timer.Reset(opts.Interval)
		select {
		case <-ctx.Done():
			c.stopSearch(searchID)
			return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	c.stopSearch(searchID)
	return nil, &PollTimeoutError{SearchID: searchID, Attempts: opts.MaxAttempts}
}

// collectPages concatenates every result page in page order, starting from
// the page embedded in the terminal status response.
func (c *Client) collectPages(ctx context.Context, searchID string, status *searchStatusResponse) ([]Record, error) {
	records := make([]Record, 0, len(status.Events))
	records = append(records, status.Events...)

	next := status.NextPage
	for next != "" {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		page, err := c.searchStatus(ctx, searchID, next)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
			}
			return nil, err
		}
		records = append(records, page.Events...)
		next = page.NextPage
	}

	slog.Debug("search completed",
		slog.String("search_id", searchID),
		slog.Int("records", len(records)),
	)
	return records, nil
}

// searchStatus polls the job, optionally requesting a specific result page.
func (c *Client) searchStatus(ctx context.Context, searchID, page string) (*searchStatusResponse, error) {
	q := url.Values{}
	if page != "" {
		q.Set("page", page)
	}
	var resp searchStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/search/"+searchID, q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// stopSearch cancels an abandoned job on the backend. Best effort: the
// search result is already decided, so failures are only logged.
func (c *Client) stopSearch(searchID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.do(ctx, http.MethodDelete, "/api/v1/search/"+searchID, nil, nil, nil); err != nil {
		slog.Debug("best-effort search stop failed",
			slog.String("search_id", searchID),
			slog.String("error", err.Error()),
		)
	}
}
