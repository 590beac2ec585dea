package services

import (
	"context"
	"fmt"
	"time"

	"alert-agent/internal/models"
	"alert-agent/internal/platform"
	"alert-agent/pkg/logger"

	"go.uber.org/zap"
)

// LocationService produces standalone location check-ins. A check-in is
// queue-only: it has no domain table of its own, the enqueued payload is
// the whole record.
type LocationService struct {
	queue    Enqueuer
	location platform.LocationProvider
	budget   time.Duration
}

// NewLocationService creates a new location reporter
func NewLocationService(queue Enqueuer, location platform.LocationProvider) *LocationService {
	return &LocationService{
		queue:    queue,
		location: location,
		budget:   DefaultCaptureBudget,
	}
}

// ReportLocation captures the device position and enqueues it as a
// location_update. A check-in with null coordinates still ships; it
// doubles as a liveness signal when the fix is unavailable.
func (s *LocationService) ReportLocation(ctx context.Context, userID string) (*models.LocationReport, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	report := &models.LocationReport{
		UserID:     userID,
		ReportedAt: time.Now().Unix(),
	}

	if pos := capturePosition(ctx, s.location, s.budget); pos != nil {
		report.Latitude = &pos.Latitude
		report.Longitude = &pos.Longitude
		report.Accuracy = &pos.Accuracy
	}

	if _, err := s.queue.Enqueue(models.SyncTypeLocationUpdate, report); err != nil {
		return nil, err
	}

	logger.Info("Location report enqueued",
		zap.String("user_id", userID),
		zap.Bool("has_location", report.Latitude != nil),
	)

	return report, nil
}
