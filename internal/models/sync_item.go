package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxSyncRetries is the number of delivery attempts a queue item gets
// before it is permanently excluded from draining.
const MaxSyncRetries = 5

// SyncItemType identifies which remote endpoint a queue item belongs to
type SyncItemType string

const (
	SyncTypeUserResponse   SyncItemType = "user_response"
	SyncTypeLocationUpdate SyncItemType = "location_update"
	SyncTypeCallLog        SyncItemType = "call_log"
)

// Valid reports whether the item type is one of the known values
func (t SyncItemType) Valid() bool {
	switch t {
	case SyncTypeUserResponse, SyncTypeLocationUpdate, SyncTypeCallLog:
		return true
	}
	return false
}

// SyncStatus is the delivery state of a queue item. Syncing is transient:
// it is only ever held while a drain pass has the item in flight.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSyncing SyncStatus = "syncing"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

// Valid reports whether the status is one of the known values
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncPending, SyncSyncing, SyncSynced, SyncFailed:
		return true
	}
	return false
}

// SyncQueueItem is one durable outbound write awaiting delivery.
// The payload is the serialized domain record; the queue never inspects it.
type SyncQueueItem struct {
	ID         string          `json:"id"`
	Type       SyncItemType    `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  int64           `json:"created_at"` // Unix timestamp
	Status     SyncStatus      `json:"status"`
	RetryCount int             `json:"retry_count"`
	LastError  *string         `json:"last_error,omitempty"`
}

// NewSyncQueueItem marshals payload and wraps it in a pending queue item
func NewSyncQueueItem(itemType SyncItemType, payload interface{}) (*SyncQueueItem, error) {
	if !itemType.Valid() {
		return nil, fmt.Errorf("invalid sync item type: %q", itemType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync payload: %w", err)
	}

	return &SyncQueueItem{
		ID:        uuid.New().String(),
		Type:      itemType,
		Payload:   raw,
		CreatedAt: time.Now().Unix(),
		Status:    SyncPending,
	}, nil
}

// Exhausted reports whether the item has used up all delivery attempts
func (i *SyncQueueItem) Exhausted() bool {
	return i.RetryCount >= MaxSyncRetries
}
