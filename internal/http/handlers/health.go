package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler answers "ok" while every check passes.
type HealthHandler struct {
	checks map[string]func(ctx context.Context) error
}

func NewHealthHandler(checks map[string]func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, name+": "+err.Error())
			return
		}
	}
	c.String(http.StatusOK, "ok")
}
