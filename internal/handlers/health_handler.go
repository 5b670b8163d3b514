package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	env string
	now func() time.Time
}

func NewHealthHandler(env string) *HealthHandler {
	return &HealthHandler{
		env: env,
		now: time.Now,
	}
}

func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": formatTimestamp(h.now()),
		"env":       h.env,
	})
}

// Index lists the available endpoints
func (h *HealthHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "LPU Timetable API",
		"version": "1.0.0",
		"endpoints": gin.H{
			"health":    "GET /health",
			"timetable": "GET /api/timetable",
			"refresh":   "POST /api/timetable/refresh",
			"status":    "GET /api/timetable/status",
		},
	})
}

// NotFound is the fallback for unknown routes
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"error":   "Endpoint not found",
		"path":    c.Request.URL.Path,
	})
}
