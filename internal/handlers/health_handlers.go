package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"commerce-service/internal/metrics"
	"commerce-service/internal/models"
)

const serviceName = "commerce-service"

// Pinger is a dependency that can report its reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	version string
	db      Pinger
	cache   Pinger
}

// NewHealthHandler creates a new health handler. cache may be nil.
func NewHealthHandler(version string, db, cache Pinger) *HealthHandler {
	return &HealthHandler{version: version, db: db, cache: cache}
}

// Health reports that the process is up
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "healthy",
		Service: serviceName,
		Version: h.version,
	})
}

// Ready checks the database and cache
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Failure 503 {object} models.HealthResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := models.HealthResponse{
		Status:  "ready",
		Service: serviceName,
		Version: h.version,
		Checks:  map[string]string{},
	}

	if err := h.db.Ping(ctx); err != nil {
		metrics.SetDBStatus(false)
		resp.Status = "not_ready"
		resp.Checks["database"] = "unhealthy: " + err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	metrics.SetDBStatus(true)
	resp.Checks["database"] = "healthy"

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks["cache"] = "unhealthy: " + err.Error()
		} else {
			resp.Checks["cache"] = "healthy"
		}
	}

	c.JSON(http.StatusOK, resp)
}
