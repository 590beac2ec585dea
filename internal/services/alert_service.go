package services

import (
	"fmt"

	"alert-agent/internal/db"
	"alert-agent/internal/models"
	"alert-agent/pkg/logger"

	"go.uber.org/zap"
)

// AlertService handles alert ingestion from the push binding and the
// read side used by the alert screens.
type AlertService struct {
	alerts db.AlertRepository
}

// NewAlertService creates a new alert service
func NewAlertService(alerts db.AlertRepository) *AlertService {
	return &AlertService{alerts: alerts}
}

// Ingest validates and stores an alert delivered by push. Repeated
// delivery of the same alert id overwrites the stored copy, so push
// retries are harmless.
func (s *AlertService) Ingest(alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert cannot be nil")
	}

	if alert.Status == "" {
		alert.Status = models.AlertActive
	}

	if err := alert.Validate(); err != nil {
		return err
	}

	if err := s.alerts.Upsert(alert); err != nil {
		return err
	}

	logger.Info("Alert ingested",
		zap.String("alert_id", alert.ID),
		zap.String("severity", string(alert.Severity)),
	)
	return nil
}

// Get retrieves one alert, nil when unknown
func (s *AlertService) Get(id string) (*models.Alert, error) {
	if id == "" {
		return nil, fmt.Errorf("alert ID is required")
	}
	return s.alerts.GetByID(id)
}

// List retrieves alerts, optionally filtered by status
func (s *AlertService) List(status models.AlertStatus, limit int) ([]*models.Alert, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("invalid alert status: %q", status)
	}
	return s.alerts.List(status, limit)
}

// Resolve marks an alert resolved
func (s *AlertService) Resolve(id string) error {
	return s.setStatus(id, models.AlertResolved)
}

// Expire marks an alert expired
func (s *AlertService) Expire(id string) error {
	return s.setStatus(id, models.AlertExpired)
}

func (s *AlertService) setStatus(id string, status models.AlertStatus) error {
	if id == "" {
		return fmt.Errorf("alert ID is required")
	}
	return s.alerts.UpdateStatus(id, status)
}
