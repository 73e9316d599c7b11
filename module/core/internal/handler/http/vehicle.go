package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetwatch/tracker/module/core/domain"
)

type runtimeService interface {
	State(vehicleID string, now time.Time) (domain.RuntimeState, bool)
	All(now time.Time) []domain.RuntimeState
}

type historyService interface {
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.TrackPoint, error)
}

type VehicleHandler struct {
	runtime runtimeService
	history historyService
}

func NewVehicleHandler(runtime runtimeService, history historyService) *VehicleHandler {
	return &VehicleHandler{runtime: runtime, history: history}
}

func (h *VehicleHandler) Register(r *gin.RouterGroup) {
	r.GET("/vehicles", h.GetAllStates)
	r.GET("/vehicles/:vehicle_id/state", h.GetState)
	r.GET("/vehicles/:vehicle_id/history", h.GetHistory)
}

func (h *VehicleHandler) GetAllStates(c *gin.Context) {
	c.JSON(http.StatusOK, h.runtime.All(time.Now()))
}

func (h *VehicleHandler) GetState(c *gin.Context) {
	vehicleID := c.Param("vehicle_id")

	st, ok := h.runtime.State(vehicleID, time.Now())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
		return
	}

	c.JSON(http.StatusOK, st)
}

func (h *VehicleHandler) GetHistory(c *gin.Context) {
	vehicleID := c.Param("vehicle_id")

	start, err := strconv.ParseInt(c.Query("start"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start parameter"})
		return
	}

	end, err := strconv.ParseInt(c.Query("end"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end parameter"})
		return
	}

	query := &domain.HistoryQuery{
		VehicleID: vehicleID,
		Start:     time.Unix(start, 0),
		End:       time.Unix(end, 0),
	}

	points, err := h.history.GetHistory(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}
	if points == nil {
		points = []domain.TrackPoint{}
	}

	c.JSON(http.StatusOK, points)
}
