// Package metrics exposes Prometheus collectors for the tracker service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	reportsTotal               *prometheus.CounterVec
	playersClaimedTotal        prometheus.Counter
	hofPagesClaimedTotal       prometheus.Counter
	hofReseedsTotal            prometheus.Counter
	hofPlayersDiscoveredTotal  prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		reportsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hofwatch_reports_total",
				Help: "Total number of ingested player reports, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		playersClaimedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hofwatch_players_claimed_total",
				Help: "Total number of player recrawl leases handed out.",
			},
		)

		hofPagesClaimedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hofwatch_hof_pages_claimed_total",
				Help: "Total number of hall-of-fame page leases handed out.",
			},
		)

		hofReseedsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hofwatch_hof_reseeds_total",
				Help: "Total number of hall-of-fame page list regenerations.",
			},
		)

		hofPlayersDiscoveredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hofwatch_hof_players_discovered_total",
				Help: "Total number of players first seen via hall-of-fame listings.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveReport increments the report counter for the given outcome.
func ObserveReport(outcome string) {
	reportsTotal.WithLabelValues(outcome).Inc()
}

// ObservePlayersClaimed adds handed-out player leases.
func ObservePlayersClaimed(n int) {
	playersClaimedTotal.Add(float64(n))
}

// ObserveHofPagesClaimed adds handed-out page leases.
func ObserveHofPagesClaimed(n int) {
	hofPagesClaimedTotal.Add(float64(n))
}

// ObserveHofReseed counts one page list regeneration.
func ObserveHofReseed() {
	hofReseedsTotal.Inc()
}

// ObserveHofPlayersDiscovered adds newly discovered players.
func ObserveHofPlayersDiscovered(n int64) {
	hofPlayersDiscoveredTotal.Add(float64(n))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
