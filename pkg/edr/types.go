package edr

import "time"

// Record is one matched event or alert: an opaque field→value mapping.
// No schema is enforced beyond string keys.
type Record map[string]any

// GetString returns the record field as a string, or "" when absent or not a
// string.
func (r Record) GetString(field string) string {
	if v, ok := r[field].(string); ok {
		return v
	}
	return ""
}

// Search tuning defaults, matching the backend's recommended values.
const (
	DefaultRepository  = "search-all"
	DefaultStart       = "15m"
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 60
)

// SearchOptions tunes one event search. The zero value is usable: every
// field falls back to its default.
type SearchOptions struct {
	// Repository selects the backend repository or view. Default "search-all".
	Repository string
	// Start bounds the search window: a relative duration token ("15m", "1h")
	// or an absolute timestamp. Passed through opaque; default "15m".
	Start string
	// End bounds the search window; empty means "now". Passed through opaque.
	End string
	// Live switches the backend to streaming semantics. It does not change
	// the poll state machine.
	Live bool
	// Interval is the fixed delay between status polls. Default 5s.
	Interval time.Duration
	// MaxAttempts is the poll attempt budget before the search is abandoned
	// as timed out. Default 60.
	MaxAttempts int
}

func (o SearchOptions) withDefaults() SearchOptions {
	if o.Repository == "" {
		o.Repository = DefaultRepository
	}
	if o.Start == "" {
		o.Start = DefaultStart
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

// AlertQueryOptions tunes an alert-id query.
type AlertQueryOptions struct {
	Limit  int    // default 100
	Offset int    // default 0
	Sort   string // backend sort expression, e.g. "created_timestamp|desc"
}

// --- wire types ---

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type startSearchRequest struct {
	Query      string `json:"query"`
	Repository string `json:"repository"`
	Start      string `json:"start"`
	End        string `json:"end,omitempty"`
	IsLive     bool   `json:"isLive"`
}

type startSearchResponse struct {
	ID string `json:"id"`
}

// Search job states reported by the backend.
const (
	statusPending = "PENDING"
	statusRunning = "RUNNING"
	statusDone    = "DONE"
	statusError   = "ERROR"
)

type searchStatusResponse struct {
	Status       string   `json:"status"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
	Events       []Record `json:"events,omitempty"`
	NextPage     string   `json:"nextPage,omitempty"`
}

type alertDetailsRequest struct {
	CompositeIDs []string `json:"composite_ids"`
}

type alertDetailsResponse struct {
	Resources []Record `json:"resources"`
}

type alertQueryResponse struct {
	Resources []string `json:"resources"`
	Meta      struct {
		Pagination struct {
			Total  int `json:"total"`
			Offset int `json:"offset"`
		} `json:"pagination"`
	} `json:"meta"`
}

type errorResponse struct {
	Errors []string `json:"errors"`
}
