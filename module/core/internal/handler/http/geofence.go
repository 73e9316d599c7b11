package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetwatch/tracker/module/core/domain"
)

type geofenceRegistry interface {
	Upsert(g domain.Geofence) (reactivated bool, err error)
	All() []domain.Geofence
}

type violationDetector interface {
	ResetGeofence(geofenceID string)
}

type GeofenceHandler struct {
	registry geofenceRegistry
	detector violationDetector
}

func NewGeofenceHandler(registry geofenceRegistry, detector violationDetector) *GeofenceHandler {
	return &GeofenceHandler{registry: registry, detector: detector}
}

func (h *GeofenceHandler) Register(r *gin.RouterGroup) {
	r.GET("/geofences", h.GetAll)
	r.PUT("/geofences/:geofence_id", h.Upsert)
}

func (h *GeofenceHandler) GetAll(c *gin.Context) {
	geofences := h.registry.All()
	if geofences == nil {
		geofences = []domain.Geofence{}
	}
	c.JSON(http.StatusOK, geofences)
}

func (h *GeofenceHandler) Upsert(c *gin.Context) {
	var g domain.Geofence
	if err := c.ShouldBindJSON(&g); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid geofence body"})
		return
	}
	g.GeofenceID = c.Param("geofence_id")

	reactivated, err := h.registry.Upsert(g)
	if err != nil {
		// Prior valid definition, if any, stays in effect.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if reactivated {
		h.detector.ResetGeofence(g.GeofenceID)
	}

	c.JSON(http.StatusOK, g)
}
