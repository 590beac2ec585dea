package services

import (
	"context"
	"fmt"
	"time"

	"alert-agent/internal/db"
	"alert-agent/internal/models"
	"alert-agent/internal/platform"
	"alert-agent/pkg/logger"

	"go.uber.org/zap"
)

// ResponseService is the producer for user status responses. Submission
// is fire-and-persist: the caller gets the persisted row back immediately
// and observes delivery through the queue's status, never by blocking.
type ResponseService struct {
	alerts    db.AlertRepository
	responses db.ResponseRepository
	queue     Enqueuer
	location  platform.LocationProvider
	budget    time.Duration
}

// NewResponseService creates a new response producer
func NewResponseService(
	alerts db.AlertRepository,
	responses db.ResponseRepository,
	queue Enqueuer,
	location platform.LocationProvider,
) *ResponseService {
	return &ResponseService{
		alerts:    alerts,
		responses: responses,
		queue:     queue,
		location:  location,
		budget:    DefaultCaptureBudget,
	}
}

// SubmitResponse records the user's answer to an alert with a best-effort
// location snapshot, persists it, and enqueues it for delivery. Location
// capture failure never blocks submission; only a store failure does.
func (s *ResponseService) SubmitResponse(ctx context.Context, alertID, userID string, responseType models.ResponseType) (*models.UserResponse, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert ID is required")
	}
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if !responseType.Valid() {
		return nil, fmt.Errorf("invalid response type: %q", responseType)
	}

	alert, err := s.alerts.GetByID(alertID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, fmt.Errorf("alert not found")
	}
	if alert.RequiresResponse && !alert.AllowsResponse(responseType) {
		return nil, fmt.Errorf("response %q is not offered by this alert", responseType)
	}

	response := models.NewUserResponse(alertID, userID, responseType)

	if pos := capturePosition(ctx, s.location, s.budget); pos != nil {
		response.SetLocation(pos.Latitude, pos.Longitude, pos.Accuracy)
	}

	if err := s.responses.Create(response); err != nil {
		return nil, err
	}

	// The queue item is created only after the domain row is durable,
	// so a crash between the two never leaves an orphan queue item.
	if _, err := s.queue.Enqueue(models.SyncTypeUserResponse, response); err != nil {
		return nil, err
	}

	logger.Info("Response submitted",
		zap.String("response_id", response.ID),
		zap.String("alert_id", alertID),
		zap.String("response", string(responseType)),
		zap.Bool("has_location", response.Latitude != nil),
	)

	return response, nil
}

// ListByAlert returns the responses recorded for one alert
func (s *ResponseService) ListByAlert(alertID string) ([]*models.UserResponse, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert ID is required")
	}
	return s.responses.ListByAlert(alertID)
}
