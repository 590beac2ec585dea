package services

import (
	"encoding/json"
	"testing"

	"alert-agent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueItem(t *testing.T, itemType models.SyncItemType, payload interface{}) *models.SyncQueueItem {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &models.SyncQueueItem{ID: "item-1", Type: itemType, Payload: raw}
}

func TestSyncedMarkerStampsResponse(t *testing.T) {
	responses := newMemoryResponseRepo()
	calls := newMemoryCallRepo()
	mark := NewSyncedMarker(responses, calls)

	response := models.NewUserResponse("alert-1", "user-1", models.ResponseSafe)
	require.NoError(t, responses.Create(response))

	mark(queueItem(t, models.SyncTypeUserResponse, response))

	got, err := responses.GetByID(response.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SyncedAt)
}

func TestSyncedMarkerStampsCallLog(t *testing.T) {
	responses := newMemoryResponseRepo()
	calls := newMemoryCallRepo()
	mark := NewSyncedMarker(responses, calls)

	log := models.NewCallLog("+15551234567", nil)
	require.NoError(t, calls.Create(log))

	completion := &models.CallCompletion{CallID: log.ID, HotlineNumber: log.HotlineNumber}
	mark(queueItem(t, models.SyncTypeCallLog, completion))

	got, err := calls.GetByID(log.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SyncedAt)
}

func TestSyncedMarkerIgnoresLocationAndGarbage(t *testing.T) {
	responses := newMemoryResponseRepo()
	calls := newMemoryCallRepo()
	mark := NewSyncedMarker(responses, calls)

	// location reports have no domain row; nothing to stamp, nothing to fail
	mark(queueItem(t, models.SyncTypeLocationUpdate, &models.LocationReport{UserID: "user-1"}))

	// payload without an id is logged and skipped, never panics
	mark(&models.SyncQueueItem{ID: "item-2", Type: models.SyncTypeUserResponse, Payload: json.RawMessage(`{}`)})
	mark(&models.SyncQueueItem{ID: "item-3", Type: models.SyncTypeCallLog, Payload: json.RawMessage(`not json`)})

	// marking an unknown row is tolerated
	mark(queueItem(t, models.SyncTypeUserResponse, map[string]string{"id": "missing"}))

	assert.Empty(t, responses.responses)
}
