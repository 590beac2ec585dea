package services

import (
	"encoding/json"
	"time"

	"alert-agent/internal/db"
	"alert-agent/internal/models"
	"alert-agent/pkg/logger"

	"go.uber.org/zap"
)

// NewSyncedMarker builds the engine's synced hook: once a queue item is
// delivered, the domain row it represents gets its synced_at stamped.
// Location reports have no domain row, so they need no marking.
func NewSyncedMarker(responses db.ResponseRepository, calls db.CallLogRepository) func(item *models.SyncQueueItem) {
	return func(item *models.SyncQueueItem) {
		now := time.Now().Unix()

		switch item.Type {
		case models.SyncTypeUserResponse:
			var payload struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(item.Payload, &payload); err != nil || payload.ID == "" {
				logger.Warn("Synced response payload missing id", zap.String("item_id", item.ID))
				return
			}
			if err := responses.MarkSynced(payload.ID, now); err != nil {
				logger.Warn("Failed to stamp response synced_at",
					zap.String("response_id", payload.ID), zap.Error(err))
			}

		case models.SyncTypeCallLog:
			var payload struct {
				CallID string `json:"call_id"`
			}
			if err := json.Unmarshal(item.Payload, &payload); err != nil || payload.CallID == "" {
				logger.Warn("Synced call payload missing call_id", zap.String("item_id", item.ID))
				return
			}
			if err := calls.MarkSynced(payload.CallID, now); err != nil {
				logger.Warn("Failed to stamp call log synced_at",
					zap.String("call_id", payload.CallID), zap.Error(err))
			}
		}
	}
}
