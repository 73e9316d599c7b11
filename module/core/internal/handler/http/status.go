package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetwatch/tracker/module/core/domain"
)

type diagnostics interface {
	StreamStatus() string
	ActiveCooldowns(now time.Time) int
}

type alertReader interface {
	RecentAlerts(ctx context.Context, limit int) ([]domain.GeofenceAlert, error)
}

type StatusHandler struct {
	diag   diagnostics
	alerts alertReader
}

func NewStatusHandler(diag diagnostics, alerts alertReader) *StatusHandler {
	return &StatusHandler{diag: diag, alerts: alerts}
}

func (h *StatusHandler) Register(r *gin.RouterGroup) {
	r.GET("/status", h.GetStatus)
	r.GET("/alerts", h.GetAlerts)
}

func (h *StatusHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stream":           h.diag.StreamStatus(),
		"active_cooldowns": h.diag.ActiveCooldowns(time.Now()),
	})
}

func (h *StatusHandler) GetAlerts(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		limit = n
	}

	alerts, err := h.alerts.RecentAlerts(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alerts"})
		return
	}
	if alerts == nil {
		alerts = []domain.GeofenceAlert{}
	}

	c.JSON(http.StatusOK, alerts)
}
