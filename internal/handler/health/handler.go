package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

type Handler struct {
	checks   map[string]Check
	gatherer prometheus.Gatherer
}

func NewHandler(checks map[string]Check, gatherer prometheus.Gatherer) *Handler {
	return &Handler{
		checks:   checks,
		gatherer: gatherer,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
		health.GET("/metrics", h.Metrics)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = "unavailable"
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"checks": failed,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) Metrics(c *gin.Context) {
	promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}
