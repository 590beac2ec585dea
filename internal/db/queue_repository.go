package db

import (
	"database/sql"
	"fmt"

	"alert-agent/internal/models"
)

// QueueRepository defines the interface for sync queue data access.
// Items are created by producers and mutated only by the sync engine.
type QueueRepository interface {
	Create(item *models.SyncQueueItem) error
	GetByID(id string) (*models.SyncQueueItem, error)
	Candidates() ([]*models.SyncQueueItem, error)
	MarkSyncing(id string) error
	MarkSynced(id string) error
	MarkFailed(id string, retryCount int, lastError string) error
	ResetSyncing() (int, error)
	PendingCount() (int, error)
	ListExhausted() ([]*models.SyncQueueItem, error)
	PruneSynced(keep int) (int, error)
}

type queueRepository struct {
	db *sql.DB
}

// NewQueueRepository creates a new QueueRepository
func NewQueueRepository(db *sql.DB) QueueRepository {
	return &queueRepository{db: db}
}

// Create persists a new queue item
func (r *queueRepository) Create(item *models.SyncQueueItem) error {
	if item == nil {
		return fmt.Errorf("queue item cannot be nil")
	}
	if !item.Type.Valid() {
		return fmt.Errorf("invalid sync item type: %q", item.Type)
	}
	if len(item.Payload) == 0 {
		return fmt.Errorf("queue item payload cannot be empty")
	}

	query := `
		INSERT INTO sync_queue (id, type, payload, created_at, status, retry_count, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		item.ID,
		string(item.Type),
		string(item.Payload),
		item.CreatedAt,
		string(item.Status),
		item.RetryCount,
		item.LastError,
	)

	if err != nil {
		return fmt.Errorf("failed to create queue item: %w", err)
	}

	return nil
}

// GetByID retrieves a queue item by ID, returning nil when it does not exist
func (r *queueRepository) GetByID(id string) (*models.SyncQueueItem, error) {
	if id == "" {
		return nil, fmt.Errorf("queue item ID cannot be empty")
	}

	query := `
		SELECT id, type, payload, created_at, status, retry_count, last_error
		FROM sync_queue
		WHERE id = ?
	`

	item, err := scanQueueItem(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item by ID: %w", err)
	}

	return item, nil
}

// Candidates returns the items eligible for the next drain pass: pending
// or failed, with attempts remaining, oldest first so a user's actions
// are delivered in the order they happened.
func (r *queueRepository) Candidates() ([]*models.SyncQueueItem, error) {
	query := `
		SELECT id, type, payload, created_at, status, retry_count, last_error
		FROM sync_queue
		WHERE status IN ('pending', 'failed') AND retry_count < ?
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := r.db.Query(query, models.MaxSyncRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to select drain candidates: %w", err)
	}
	defer rows.Close()

	var items []*models.SyncQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue items: %w", err)
	}

	return items, nil
}

// MarkSyncing flags an item as in flight for the current drain pass
func (r *queueRepository) MarkSyncing(id string) error {
	return r.setStatus(id, models.SyncSyncing)
}

// MarkSynced records a successful delivery and clears any stale error
func (r *queueRepository) MarkSynced(id string) error {
	if id == "" {
		return fmt.Errorf("queue item ID cannot be empty")
	}

	result, err := r.db.Exec(
		`UPDATE sync_queue SET status = ?, last_error = NULL WHERE id = ?`,
		string(models.SyncSynced), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark queue item synced: %w", err)
	}

	return requireRow(result, "queue item")
}

// MarkFailed records a failed delivery attempt
func (r *queueRepository) MarkFailed(id string, retryCount int, lastError string) error {
	if id == "" {
		return fmt.Errorf("queue item ID cannot be empty")
	}

	result, err := r.db.Exec(
		`UPDATE sync_queue SET status = ?, retry_count = ?, last_error = ? WHERE id = ?`,
		string(models.SyncFailed), retryCount, lastError, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark queue item failed: %w", err)
	}

	return requireRow(result, "queue item")
}

// ResetSyncing returns items stranded in syncing back to pending. A row
// rests in syncing only when a previous run died mid-drain; without this
// reset it would never be a candidate again. Retry counts are untouched:
// a crash is not a delivery failure.
func (r *queueRepository) ResetSyncing() (int, error) {
	result, err := r.db.Exec(
		`UPDATE sync_queue SET status = ? WHERE status = ?`,
		string(models.SyncPending), string(models.SyncSyncing),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset in-flight queue items: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

// PendingCount counts the items not yet delivered, including exhausted
// ones so operators can see writes that will never be retried.
func (r *queueRepository) PendingCount() (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM sync_queue WHERE status IN ('pending', 'failed')`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending queue items: %w", err)
	}
	return count, nil
}

// ListExhausted returns the items that have used up every retry. They are
// never auto-purged; they stay in the table for inspection.
func (r *queueRepository) ListExhausted() ([]*models.SyncQueueItem, error) {
	query := `
		SELECT id, type, payload, created_at, status, retry_count, last_error
		FROM sync_queue
		WHERE status = 'failed' AND retry_count >= ?
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(query, models.MaxSyncRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to list exhausted queue items: %w", err)
	}
	defer rows.Close()

	var items []*models.SyncQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue items: %w", err)
	}

	return items, nil
}

// PruneSynced deletes synced items beyond the `keep` most recently
// created, returning the number of rows removed.
func (r *queueRepository) PruneSynced(keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep count cannot be negative")
	}

	query := `
		DELETE FROM sync_queue
		WHERE status = 'synced' AND id NOT IN (
			SELECT id FROM sync_queue
			WHERE status = 'synced'
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		)
	`

	result, err := r.db.Exec(query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune synced queue items: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

func (r *queueRepository) setStatus(id string, status models.SyncStatus) error {
	if id == "" {
		return fmt.Errorf("queue item ID cannot be empty")
	}

	result, err := r.db.Exec(
		`UPDATE sync_queue SET status = ? WHERE id = ?`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update queue item status: %w", err)
	}

	return requireRow(result, "queue item")
}

func requireRow(result sql.Result, what string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s not found", what)
	}
	return nil
}

func scanQueueItem(row rowScanner) (*models.SyncQueueItem, error) {
	item := &models.SyncQueueItem{}
	var itemType, status, payload string

	err := row.Scan(
		&item.ID,
		&itemType,
		&payload,
		&item.CreatedAt,
		&status,
		&item.RetryCount,
		&item.LastError,
	)
	if err != nil {
		return nil, err
	}

	item.Type = models.SyncItemType(itemType)
	item.Status = models.SyncStatus(status)
	item.Payload = []byte(payload)
	return item, nil
}
