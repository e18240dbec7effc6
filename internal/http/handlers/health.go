package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Ready pings every registered dependency; any failure is a 503.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	out := gin.H{}
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			out[name] = err.Error()
			continue
		}
		out[name] = "ok"
	}
	c.JSON(status, gin.H{"checks": out})
}
