package edr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend emulates the event-search API surface used by the client.
type fakeBackend struct {
	mux *http.ServeMux
	srv *httptest.Server

	authCalls int32
	polls     int32
	stops     int32

	// pollsUntilDone is how many status polls report RUNNING before DONE.
	pollsUntilDone int
	// pages holds the result pages served once the search is done.
	pages [][]Record
	// jobError, when set, makes the job terminate with ERROR.
	jobError string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	f := &fakeBackend{mux: http.NewServeMux()}

	f.mux.HandleFunc("POST /oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.authCalls, 1)
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("client_secret") != "good-secret" {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("invalid client credentials"))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 1800})
	})

	f.mux.HandleFunc("POST /api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		var req startSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if strings.Contains(req.Query, "MALFORMED") {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(errorResponse{Errors: []string{"query parse error"}})
			return
		}
		json.NewEncoder(w).Encode(startSearchResponse{ID: "job-1"})
	})

	f.mux.HandleFunc("GET /api/v1/search/job-1", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page != "" {
			idx := int(page[len(page)-1] - '0')
			resp := searchStatusResponse{Status: statusDone, Events: f.pages[idx]}
			if idx+1 < len(f.pages) {
				resp.NextPage = "p" + string(rune('0'+idx+1))
			}
			json.NewEncoder(w).Encode(resp)
			return
		}

		n := atomic.AddInt32(&f.polls, 1)
		if f.jobError != "" {
			json.NewEncoder(w).Encode(searchStatusResponse{Status: statusError, ErrorMessage: f.jobError})
			return
		}
		if int(n) <= f.pollsUntilDone {
			json.NewEncoder(w).Encode(searchStatusResponse{Status: statusRunning})
			return
		}
		resp := searchStatusResponse{Status: statusDone}
		if len(f.pages) > 0 {
			resp.Events = f.pages[0]
			if len(f.pages) > 1 {
				resp.NextPage = "p1"
			}
		}
		json.NewEncoder(w).Encode(resp)
	})

	f.mux.HandleFunc("DELETE /api/v1/search/job-1", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.stops, 1)
		w.WriteHeader(http.StatusNoContent)
	})

	f.srv = httptest.NewServer(f.mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeBackend) connect(t *testing.T) *Client {
	t.Helper()
	c, err := Connect(context.Background(), "id", "good-secret", WithBaseURL(f.srv.URL))
	require.NoError(t, err)
	return c
}

func fastOpts() SearchOptions {
	return SearchOptions{Interval: time.Millisecond, MaxAttempts: 5}
}

func TestConnect_rejectsEmptyCredentials(t *testing.T) {
	_, err := Connect(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestConnect_authFailure(t *testing.T) {
	f := newFakeBackend(t)
	_, err := Connect(context.Background(), "id", "bad-secret", WithBaseURL(f.srv.URL))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusForbidden, authErr.StatusCode)
}

func TestSearchEvents_completesAfterPolling(t *testing.T) {
	f := newFakeBackend(t)
	f.pollsUntilDone = 2
	f.pages = [][]Record{{{"FileName": "a.exe"}, {"FileName": "b.exe"}}}

	c := f.connect(t)
	records, err := c.SearchEvents(context.Background(), `FileName="a.exe"`, fastOpts())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a.exe", records[0].GetString("FileName"))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&f.polls), int32(3))
}

func TestSearchEvents_paginatesInPageOrder(t *testing.T) {
	f := newFakeBackend(t)
	f.pages = [][]Record{
		{{"seq": "0"}, {"seq": "1"}},
		{{"seq": "2"}},
		{{"seq": "3"}, {"seq": "4"}},
	}

	c := f.connect(t)
	records, err := c.SearchEvents(context.Background(), "*", fastOpts())
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i, rec := range records {
		assert.Equal(t, string(rune('0'+i)), rec.GetString("seq"))
	}
}

func TestSearchEvents_emptyResultIsNotAnError(t *testing.T) {
	f := newFakeBackend(t)

	c := f.connect(t)
	records, err := c.SearchEvents(context.Background(), "*", fastOpts())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSearchEvents_submissionErrorIsTerminal(t *testing.T) {
	f := newFakeBackend(t)

	c := f.connect(t)
	_, err := c.SearchEvents(context.Background(), "MALFORMED", fastOpts())

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, http.StatusBadRequest, subErr.StatusCode)
	assert.Contains(t, subErr.Detail, "query parse error")
	assert.Zero(t, atomic.LoadInt32(&f.polls), "a rejected submission must not be polled")
}

func TestSearchEvents_backendJobError(t *testing.T) {
	f := newFakeBackend(t)
	f.jobError = "shard unavailable"

	c := f.connect(t)
	_, err := c.SearchEvents(context.Background(), "*", fastOpts())

	var jobErr *JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, "shard unavailable", jobErr.Detail)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.polls), "job failures are not retried")
}

func TestSearchEvents_pollBudgetExhausted(t *testing.T) {
	f := newFakeBackend(t)
	f.pollsUntilDone = 1000

	c := f.connect(t)
	_, err := c.SearchEvents(context.Background(), "*", SearchOptions{Interval: time.Millisecond, MaxAttempts: 3})

	assert.ErrorIs(t, err, ErrPollTimeout)
	var toErr *PollTimeoutError
	require.ErrorAs(t, err, &toErr)
	assert.Equal(t, 3, toErr.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&f.polls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.stops), "abandoned search should be stopped best-effort")
}

func TestSearchEvents_cancelledBeforeFirstPoll(t *testing.T) {
	f := newFakeBackend(t)
	f.pollsUntilDone = 1000

	c := f.connect(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.SearchEvents(ctx, "*", fastOpts())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.NotErrorIs(t, err, ErrPollTimeout)
}

func TestSearchEvents_cancelledDuringPollSleep(t *testing.T) {
	f := newFakeBackend(t)
	f.pollsUntilDone = 1000

	c := f.connect(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.SearchEvents(ctx, "*", SearchOptions{Interval: time.Second, MaxAttempts: 60})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestSearchOptions_defaults(t *testing.T) {
	opts := SearchOptions{}.withDefaults()
	assert.Equal(t, "search-all", opts.Repository)
	assert.Equal(t, "15m", opts.Start)
	assert.Equal(t, 5*time.Second, opts.Interval)
	assert.Equal(t, 60, opts.MaxAttempts)
}

func TestClient_reauthenticatesOn401(t *testing.T) {
	f := newFakeBackend(t)
	var rejected int32
	f.mux.HandleFunc("GET /api/v1/search/job-2", func(w http.ResponseWriter, r *http.Request) {
		if atomic.CompareAndSwapInt32(&rejected, 0, 1) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(searchStatusResponse{Status: statusDone})
	})

	c := f.connect(t)
	status, err := c.searchStatus(context.Background(), "job-2", "")
	require.NoError(t, err)
	assert.Equal(t, statusDone, status.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.authCalls), "401 should force one re-authentication")
}

func TestClient_apiErrorCarriesBackendDetail(t *testing.T) {
	f := newFakeBackend(t)
	f.mux.HandleFunc("GET /api/v1/search/job-3", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(errorResponse{Errors: []string{"rate limited"}})
	})

	c := f.connect(t)
	_, err := c.searchStatus(context.Background(), "job-3", "")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "rate limited", apiErr.Message)
}

func TestSearchEvents_concurrentJobsDoNotSerialize(t *testing.T) {
	f := newFakeBackend(t)
	f.pages = [][]Record{{{"k": "v"}}}
	c := f.connect(t)

	const n = 8
	errs := make(chan error, n)
	start := time.Now()
	for range n {
		go func() {
			_, err := c.SearchEvents(context.Background(), "*", fastOpts())
			errs <- err
		}()
	}
	for range n {
		require.NoError(t, <-errs)
	}
	// Eight 1ms-interval searches sharing one client should overlap rather
	// than queue behind each other.
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestJobError_messageIncludesSearchID(t *testing.T) {
	err := &JobError{SearchID: "job-9", Detail: "boom"}
	assert.Contains(t, err.Error(), "job-9")
	assert.Contains(t, err.Error(), "boom")
}
