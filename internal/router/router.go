package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/conference-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine      *gin.Engine
	auth        *middleware.AuthMiddleware
	health      Handler
	invitationH Handler
	assignmentH Handler
	metrics     *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	MaxBodySize      int64
	MetricsPrefix    string
	Registerer       prometheus.Registerer
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	health Handler,
	invitationH Handler,
	assignmentH Handler,
	config RouterConfig,
) *Router {
	engine := gin.New()

	r := &Router{
		engine:      engine,
		auth:        auth,
		health:      health,
		invitationH: invitationH,
		assignmentH: assignmentH,
		metrics:     initRouterMetrics(config.MetricsPrefix, config.Registerer),
	}

	if config.MaxBodySize <= 0 {
		config.MaxBodySize = middleware.DefaultMaxBodySize
	}

	// Add core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		r.metricsMiddleware(),
		middleware.ErrorHandler(),
		middleware.SizeLimit(config.MaxBodySize),
	)

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	// Health check endpoints
	r.health.RegisterRoutes(api)

	// Protected routes
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.invitationH.RegisterRoutes(protected)
	r.assignmentH.RegisterRoutes(protected)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Metrics initialization and middleware
func initRouterMetrics(prefix string, reg prometheus.Registerer) *routerMetrics {
	m := &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requestDuration, m.requestTotal, m.errorTotal)
	}
	return m
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		code := c.Writer.Status()
		status := strconv.Itoa(code)

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		switch {
		case code >= 500:
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "server").Inc()
		case code >= 400:
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "client").Inc()
		}
	}
}
