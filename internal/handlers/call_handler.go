package handlers

import (
	"errors"
	"net/http"

	"alert-agent/internal/services"

	"github.com/gin-gonic/gin"
)

// CallHandler exposes the call state machine to the device UI layer
type CallHandler struct {
	calls *services.CallService
}

// NewCallHandler creates a new CallHandler
func NewCallHandler(calls *services.CallService) *CallHandler {
	return &CallHandler{calls: calls}
}

type placeCallRequest struct {
	Number  string  `json:"number" binding:"required"`
	AlertID *string `json:"alert_id,omitempty"`
}

// Place handles POST /api/calls
func (h *CallHandler) Place(c *gin.Context) {
	var req placeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	call, err := h.calls.PlaceCall(c.Request.Context(), req.Number, req.AlertID)
	if err != nil {
		if errors.Is(err, services.ErrCallInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, call)
}

// End handles POST /api/calls/end
func (h *CallHandler) End(c *gin.Context) {
	if err := h.calls.EndCall(); err != nil {
		if errors.Is(err, services.ErrNoActiveCall) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

// Mute handles POST /api/calls/mute
func (h *CallHandler) Mute(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.calls.ToggleMute(req.Enabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Speaker handles POST /api/calls/speaker
func (h *CallHandler) Speaker(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.calls.ToggleSpeaker(req.Enabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Active handles GET /api/calls/active
func (h *CallHandler) Active(c *gin.Context) {
	call := h.calls.ActiveCall()
	if call == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active call"})
		return
	}
	c.JSON(http.StatusOK, call)
}

// History handles GET /api/calls
func (h *CallHandler) History(c *gin.Context) {
	calls, err := h.calls.History(0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"calls": calls})
}
