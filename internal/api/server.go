// Package api exposes the engine to the presentation layer as a JSON API.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/abhisek/kidquest/internal/config"
	"github.com/abhisek/kidquest/internal/contentgen"
	"github.com/abhisek/kidquest/internal/metrics"
	"github.com/abhisek/kidquest/internal/pool"
	"github.com/abhisek/kidquest/internal/progression"
	"github.com/abhisek/kidquest/internal/session"
	"github.com/abhisek/kidquest/internal/store"
)

// HintGenerator writes hints. *contentgen.Generator implements it.
type HintGenerator interface {
	GenerateHint(ctx context.Context, req contentgen.HintRequest) (string, error)
}

// Pinger reports storage health. *store.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the services behind the routes.
type Handler struct {
	Pool        *pool.Manager
	Progression *progression.Engine
	Sessions    *session.Service
	Hints       HintGenerator
	Skills      store.SkillRepo
	Students    store.StudentRepo
	Exercises   store.ExerciseRepo
	Reviews     store.ReviewRepo
	Health      Pinger
	Config      config.Source

	log *zap.Logger
	now func() time.Time
}

// NewRouter builds the gin engine with tracing, metrics and request logging.
func NewRouter(h *Handler, gatherer prometheus.Gatherer, serviceName string, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	h.log = log
	if h.now == nil {
		h.now = time.Now
	}

	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(serviceName), metrics.Middleware(), requestLogger(log))

	r.GET("/healthz", h.health)
	if gatherer != nil {
		r.GET("/metrics", metrics.Handler(gatherer))
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/students/:student/skills/:skill/next-exercise", h.nextExercise)
		v1.GET("/students/:student/reviews/due", h.dueReviews)
		v1.POST("/answers", h.recordAnswer)
		v1.GET("/exercises/:id/hint", h.hint)

		v1.POST("/sessions", h.createSession)
		v1.GET("/sessions/:id", h.getSession)
		v1.POST("/sessions/:id/theory", h.completeTheory)
		v1.GET("/sessions/:id/next-exercise", h.sessionNextExercise)
		v1.POST("/sessions/:id/answers", h.sessionAnswer)
		v1.POST("/sessions/:id/complete", h.completeSession)
		v1.DELETE("/sessions/:id", h.abandonSession)
	}
	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", strings.ToUpper(c.Request.Method)),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Debug("HTTP request", fields...)
		}
	}
}

func (h *Handler) health(c *gin.Context) {
	if h.Health != nil {
		if err := h.Health.Ping(c.Request.Context()); err != nil {
			errorJSON(c, http.StatusServiceUnavailable, "database unavailable", nil)
			return
		}
	}
	success(c, gin.H{"status": "ok"})
}
