package services

import (
	"context"

	"alert-agent/internal/models"
)

// Enqueuer is the sync queue surface the producers depend on
type Enqueuer interface {
	Enqueue(itemType models.SyncItemType, payload interface{}) (string, error)
}

// TokenSource supplies voice transport credentials
type TokenSource interface {
	Token(ctx context.Context, identity string) (string, error)
}
