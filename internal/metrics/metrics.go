// Package metrics exposes Prometheus instrumentation for the MCP server and
// an optional ops HTTP handler serving /metrics and /healthz.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edrsearch",
			Name:      "searches_total",
			Help:      "Event searches by template and outcome",
		},
		[]string{"template", "outcome"},
	)

	searchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edrsearch",
			Name:      "search_duration_seconds",
			Help:      "Wall-clock duration of event searches, submission to terminal state",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"template"},
	)

	sessionCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edrsearch",
			Name:      "session_cache_total",
			Help:      "Tenant session registry lookups by result",
		},
		[]string{"result"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "edrsearch",
			Name:      "sessions_active",
			Help:      "Authenticated tenant sessions currently cached",
		},
	)

	alertCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edrsearch",
			Name:      "alert_cache_total",
			Help:      "Alert detail cache lookups by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(searchesTotal)
	prometheus.MustRegister(searchDuration)
	prometheus.MustRegister(sessionCacheTotal)
	prometheus.MustRegister(sessionsActive)
	prometheus.MustRegister(alertCacheTotal)
}

// Search outcomes recorded by ObserveSearch.
const (
	OutcomeCompleted = "completed"
	OutcomeSubmitErr = "submission_error"
	OutcomeJobErr    = "job_error"
	OutcomeTimeout   = "poll_timeout"
	OutcomeCancelled = "cancelled"
	OutcomeOther     = "error"
)

// ObserveSearch records one finished search for a template.
func ObserveSearch(template, outcome string, elapsed time.Duration) {
	searchesTotal.WithLabelValues(template, outcome).Inc()
	searchDuration.WithLabelValues(template).Observe(elapsed.Seconds())
}

// SessionCacheHit records a registry lookup served from cache.
func SessionCacheHit() { sessionCacheTotal.WithLabelValues("hit").Inc() }

// SessionCacheMiss records a registry lookup that had to authenticate.
func SessionCacheMiss() { sessionCacheTotal.WithLabelValues("miss").Inc() }

// SetActiveSessions tracks the size of the session registry.
func SetActiveSessions(n int) { sessionsActive.Set(float64(n)) }

// AlertCacheHit records an alert detail served from the LRU.
func AlertCacheHit() { alertCacheTotal.WithLabelValues("hit").Inc() }

// AlertCacheMiss records an alert detail that required a backend call.
func AlertCacheMiss() { alertCacheTotal.WithLabelValues("miss").Inc() }

// Handler returns the ops HTTP handler: Prometheus metrics and a liveness
// probe. Mounted on the optional ops listener, never on the MCP transport.
func Handler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	return r
}
