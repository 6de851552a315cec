// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kidquest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kidquest_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// GenerationTotal counts content generation calls by task and outcome
	// (success, config, validation, upstream).
	GenerationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kidquest_generation_total",
			Help: "Content generation calls by task and outcome",
		},
		[]string{"task", "outcome"},
	)

	// SelectionTotal counts exercises served by source (pool, generated,
	// fallback, none).
	SelectionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kidquest_selection_total",
			Help: "Exercise selections by source",
		},
		[]string{"source"},
	)

	QuotaReachedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kidquest_generation_quota_reached_total",
			Help: "Selections where the per-skill generation quota blocked generation",
		},
	)

	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kidquest_answers_total",
			Help: "Recorded answers by correctness",
		},
		[]string{"correct"},
	)

	// OutcomesTotal counts progression outcomes (mastery, domain_complete,
	// level_up, struggling, streak, default).
	OutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kidquest_progression_outcomes_total",
			Help: "Progression outcomes by kind",
		},
		[]string{"outcome"},
	)

	UnlocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kidquest_skill_unlocks_total",
			Help: "Skills unlocked by mastery",
		},
	)

	SessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kidquest_sessions_total",
			Help: "Learning session lifecycle events",
		},
		[]string{"event"},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		RequestCounter,
		RequestDuration,
		GenerationTotal,
		SelectionTotal,
		QuotaReachedTotal,
		AnswersTotal,
		OutcomesTotal,
		UnlocksTotal,
		SessionsTotal,
	)
}

// Middleware records request count and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

// Handler serves the metrics of gatherer.
func Handler(gatherer prometheus.Gatherer) gin.HandlerFunc {
	h := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
