package services

import (
	"context"
	"errors"
	"testing"

	"alert-agent/internal/db"
	"alert-agent/internal/models"
	"alert-agent/internal/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryAlertRepo is a minimal in-memory db.AlertRepository
type memoryAlertRepo struct {
	alerts map[string]*models.Alert
	getErr error
}

func newMemoryAlertRepo(alerts ...*models.Alert) *memoryAlertRepo {
	repo := &memoryAlertRepo{alerts: make(map[string]*models.Alert)}
	for _, a := range alerts {
		repo.alerts[a.ID] = a
	}
	return repo
}

func (r *memoryAlertRepo) Upsert(alert *models.Alert) error {
	r.alerts[alert.ID] = alert
	return nil
}

func (r *memoryAlertRepo) GetByID(id string) (*models.Alert, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.alerts[id], nil
}

func (r *memoryAlertRepo) List(status models.AlertStatus, limit int) ([]*models.Alert, error) {
	var out []*models.Alert
	for _, a := range r.alerts {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryAlertRepo) UpdateStatus(id string, status models.AlertStatus) error {
	alert, ok := r.alerts[id]
	if !ok {
		return errors.New("alert not found")
	}
	alert.Status = status
	return nil
}

// memoryResponseRepo is a minimal in-memory db.ResponseRepository
type memoryResponseRepo struct {
	responses map[string]*models.UserResponse
	createErr error
}

func newMemoryResponseRepo() *memoryResponseRepo {
	return &memoryResponseRepo{responses: make(map[string]*models.UserResponse)}
}

func (r *memoryResponseRepo) Create(response *models.UserResponse) error {
	if r.createErr != nil {
		return r.createErr
	}
	if err := response.Validate(); err != nil {
		return err
	}
	copied := *response
	r.responses[response.ID] = &copied
	return nil
}

func (r *memoryResponseRepo) GetByID(id string) (*models.UserResponse, error) {
	return r.responses[id], nil
}

func (r *memoryResponseRepo) ListByAlert(alertID string) ([]*models.UserResponse, error) {
	var out []*models.UserResponse
	for _, resp := range r.responses {
		if resp.AlertID == alertID {
			out = append(out, resp)
		}
	}
	return out, nil
}

func (r *memoryResponseRepo) MarkSynced(id string, syncedAt int64) error {
	resp, ok := r.responses[id]
	if !ok {
		return errors.New("response not found")
	}
	resp.SyncedAt = &syncedAt
	return nil
}

var _ db.AlertRepository = (*memoryAlertRepo)(nil)
var _ db.ResponseRepository = (*memoryResponseRepo)(nil)

func respondableAlert() *models.Alert {
	alert := models.NewAlert("Wildfire", "Evacuate zone 3", models.SeverityCritical)
	alert.RequiresResponse = true
	alert.ResponseOptions = []models.ResponseType{models.ResponseSafe, models.ResponseEvacuating}
	return alert
}

func TestSubmitResponseWithLocation(t *testing.T) {
	alert := respondableAlert()
	responses := newMemoryResponseRepo()
	queue := &captureEnqueuer{}
	location := &fakeLocation{
		capturePos: &platform.Position{Latitude: 37.77, Longitude: -122.42, Accuracy: 10},
	}

	svc := NewResponseService(newMemoryAlertRepo(alert), responses, queue, location)

	response, err := svc.SubmitResponse(context.Background(), alert.ID, "user-1", models.ResponseSafe)
	require.NoError(t, err)

	require.NotNil(t, response.Latitude)
	assert.InDelta(t, 37.77, *response.Latitude, 0.001)
	require.NotNil(t, response.Longitude)
	assert.Nil(t, response.SyncedAt)

	// Persisted first, then enqueued
	stored, err := responses.GetByID(response.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	items := queue.captured()
	require.Len(t, items, 1)
	assert.Equal(t, models.SyncTypeUserResponse, items[0].Type)
}

func TestSubmitResponseLocationFallsBackToLastKnown(t *testing.T) {
	alert := respondableAlert()
	location := &fakeLocation{
		captureErr: platform.ErrLocationUnavailable,
		lastKnown:  &platform.Position{Latitude: 40.0, Longitude: -74.0, Accuracy: 500},
	}

	svc := NewResponseService(newMemoryAlertRepo(alert), newMemoryResponseRepo(), &captureEnqueuer{}, location)

	response, err := svc.SubmitResponse(context.Background(), alert.ID, "user-1", models.ResponseEvacuating)
	require.NoError(t, err)

	require.NotNil(t, response.Latitude)
	assert.InDelta(t, 40.0, *response.Latitude, 0.001)
	require.NotNil(t, response.Accuracy)
	assert.InDelta(t, 500, *response.Accuracy, 0.001)
}

func TestSubmitResponseProceedsWithoutLocation(t *testing.T) {
	alert := respondableAlert()
	responses := newMemoryResponseRepo()
	queue := &captureEnqueuer{}
	location := &fakeLocation{
		captureErr:   platform.ErrLocationUnavailable,
		lastKnownErr: platform.ErrLocationUnavailable,
	}

	svc := NewResponseService(newMemoryAlertRepo(alert), responses, queue, location)

	// Location failure must never block submission
	response, err := svc.SubmitResponse(context.Background(), alert.ID, "user-1", models.ResponseSafe)
	require.NoError(t, err)

	assert.Nil(t, response.Latitude)
	assert.Nil(t, response.Longitude)
	assert.Nil(t, response.Accuracy)

	stored, err := responses.GetByID(response.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Nil(t, stored.Latitude)

	require.Len(t, queue.captured(), 1)
}

func TestSubmitResponseValidation(t *testing.T) {
	alert := respondableAlert()

	tests := []struct {
		name         string
		alertID      string
		userID       string
		responseType models.ResponseType
	}{
		{"missing alert ID", "", "user-1", models.ResponseSafe},
		{"missing user ID", alert.ID, "", models.ResponseSafe},
		{"unknown response type", alert.ID, "user-1", "fleeing"},
		{"unknown alert", "missing", "user-1", models.ResponseSafe},
		{"response not offered by alert", alert.ID, "user-1", models.ResponseSheltering},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := &captureEnqueuer{}
			svc := NewResponseService(newMemoryAlertRepo(alert), newMemoryResponseRepo(), queue, &fakeLocation{})

			_, err := svc.SubmitResponse(context.Background(), tt.alertID, tt.userID, tt.responseType)
			assert.Error(t, err)
			assert.Empty(t, queue.captured(), "nothing may be enqueued on a rejected submission")
		})
	}
}

func TestSubmitResponseStoreFailureIsFatal(t *testing.T) {
	alert := respondableAlert()
	responses := newMemoryResponseRepo()
	responses.createErr = errors.New("disk full")
	queue := &captureEnqueuer{}

	svc := NewResponseService(newMemoryAlertRepo(alert), responses, queue, &fakeLocation{captureErr: platform.ErrLocationUnavailable, lastKnownErr: platform.ErrLocationUnavailable})

	_, err := svc.SubmitResponse(context.Background(), alert.ID, "user-1", models.ResponseSafe)
	require.Error(t, err)

	// No queue item without its domain row
	assert.Empty(t, queue.captured())
}
