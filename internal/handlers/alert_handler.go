package handlers

import (
	"net/http"

	"alert-agent/internal/models"
	"alert-agent/internal/services"
	"alert-agent/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AlertHandler exposes alert ingestion and the alert read side to the
// device UI layer.
type AlertHandler struct {
	alerts    *services.AlertService
	responses *services.ResponseService
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alerts *services.AlertService, responses *services.ResponseService) *AlertHandler {
	return &AlertHandler{alerts: alerts, responses: responses}
}

// Ingest handles POST /api/alerts — the push binding delivers alerts here
func (h *AlertHandler) Ingest(c *gin.Context) {
	var alert models.Alert
	if err := c.ShouldBindJSON(&alert); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.alerts.Ingest(&alert); err != nil {
		logger.Warn("Alert ingestion rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, alert)
}

// List handles GET /api/alerts?status=active
func (h *AlertHandler) List(c *gin.Context) {
	status := models.AlertStatus(c.Query("status"))

	alerts, err := h.alerts.List(status, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if alerts == nil {
		alerts = []*models.Alert{}
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// Get handles GET /api/alerts/:id
func (h *AlertHandler) Get(c *gin.Context) {
	alert, err := h.alerts.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if alert == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}

	c.JSON(http.StatusOK, alert)
}

// Resolve handles POST /api/alerts/:id/resolve
func (h *AlertHandler) Resolve(c *gin.Context) {
	if err := h.alerts.Resolve(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Expire handles POST /api/alerts/:id/expire
func (h *AlertHandler) Expire(c *gin.Context) {
	if err := h.alerts.Expire(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type respondRequest struct {
	UserID   string              `json:"user_id" binding:"required"`
	Response models.ResponseType `json:"response" binding:"required"`
}

// Respond handles POST /api/alerts/:id/responses. The response is
// persisted and queued before the handler returns; delivery happens
// asynchronously and is never awaited here.
func (h *AlertHandler) Respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.responses.SubmitResponse(c.Request.Context(), c.Param("id"), req.UserID, req.Response)
	if err != nil {
		logger.Warn("Response submission failed",
			zap.String("alert_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListResponses handles GET /api/alerts/:id/responses
func (h *AlertHandler) ListResponses(c *gin.Context) {
	responses, err := h.responses.ListByAlert(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if responses == nil {
		responses = []*models.UserResponse{}
	}

	c.JSON(http.StatusOK, gin.H{"responses": responses})
}
