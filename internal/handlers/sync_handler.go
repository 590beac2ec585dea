package handlers

import (
	"net/http"

	"alert-agent/internal/services"
	syncengine "alert-agent/internal/sync"

	"github.com/gin-gonic/gin"
)

// SyncHandler exposes queue observability and the manual triggers
type SyncHandler struct {
	engine    *syncengine.Engine
	locations *services.LocationService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(engine *syncengine.Engine, locations *services.LocationService) *SyncHandler {
	return &SyncHandler{engine: engine, locations: locations}
}

// Status handles GET /api/sync/status
func (h *SyncHandler) Status(c *gin.Context) {
	pending, err := h.engine.PendingCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	exhausted, err := h.engine.ExhaustedItems()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pending":   pending,
		"exhausted": len(exhausted),
	})
}

// Process handles POST /api/sync/process — a manual drain trigger.
// Like every other trigger it simply skips when a pass is running.
func (h *SyncHandler) Process(c *gin.Context) {
	synced := h.engine.ProcessQueue()
	c.JSON(http.StatusOK, gin.H{"synced": synced})
}

type locationReportRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// ReportLocation handles POST /api/location/report
func (h *SyncHandler) ReportLocation(c *gin.Context) {
	var req locationReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.locations.ReportLocation(c.Request.Context(), req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, report)
}
