package db

import (
	"database/sql"
	"fmt"

	"alert-agent/internal/models"

	"github.com/google/uuid"
)

// CallLogRepository defines the interface for call log data access
type CallLogRepository interface {
	Create(log *models.CallLog) error
	GetByID(id string) (*models.CallLog, error)
	Update(log *models.CallLog) error
	List(limit int) ([]*models.CallLog, error)
	MarkSynced(id string, syncedAt int64) error
}

type callLogRepository struct {
	db *sql.DB
}

// NewCallLogRepository creates a new CallLogRepository
func NewCallLogRepository(db *sql.DB) CallLogRepository {
	return &callLogRepository{db: db}
}

// Create persists a new call log row
func (r *callLogRepository) Create(log *models.CallLog) error {
	if log == nil {
		return fmt.Errorf("call log cannot be nil")
	}
	if err := log.Validate(); err != nil {
		return err
	}

	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	query := `
		INSERT INTO call_logs (id, alert_id, hotline_number, started_at, ended_at, duration_seconds, recording_url, status, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		log.ID,
		log.AlertID,
		log.HotlineNumber,
		log.StartedAt,
		log.EndedAt,
		log.DurationSeconds,
		log.RecordingURL,
		string(log.Status),
		log.SyncedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create call log: %w", err)
	}

	return nil
}

// GetByID retrieves a call log by ID, returning nil when it does not exist
func (r *callLogRepository) GetByID(id string) (*models.CallLog, error) {
	if id == "" {
		return nil, fmt.Errorf("call log ID cannot be empty")
	}

	query := `
		SELECT id, alert_id, hotline_number, started_at, ended_at, duration_seconds, recording_url, status, synced_at
		FROM call_logs
		WHERE id = ?
	`

	log, err := scanCallLog(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get call log by ID: %w", err)
	}

	return log, nil
}

// Update rewrites a call log row in place. Lifecycle transitions update
// the existing row; they never insert a second one.
func (r *callLogRepository) Update(log *models.CallLog) error {
	if log == nil {
		return fmt.Errorf("call log cannot be nil")
	}
	if log.ID == "" {
		return fmt.Errorf("call log ID cannot be empty")
	}
	if err := log.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE call_logs
		SET alert_id = ?, hotline_number = ?, started_at = ?, ended_at = ?,
			duration_seconds = ?, recording_url = ?, status = ?, synced_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		log.AlertID,
		log.HotlineNumber,
		log.StartedAt,
		log.EndedAt,
		log.DurationSeconds,
		log.RecordingURL,
		string(log.Status),
		log.SyncedAt,
		log.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update call log: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("call log not found")
	}

	return nil
}

// List retrieves call logs, most recent first
func (r *callLogRepository) List(limit int) ([]*models.CallLog, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, alert_id, hotline_number, started_at, ended_at, duration_seconds, recording_url, status, synced_at
		FROM call_logs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list call logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.CallLog
	for rows.Next() {
		log, err := scanCallLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call log: %w", err)
		}
		logs = append(logs, log)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating call logs: %w", err)
	}

	return logs, nil
}

// MarkSynced records the time the call log was delivered upstream
func (r *callLogRepository) MarkSynced(id string, syncedAt int64) error {
	if id == "" {
		return fmt.Errorf("call log ID cannot be empty")
	}

	result, err := r.db.Exec(`UPDATE call_logs SET synced_at = ? WHERE id = ?`, syncedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark call log synced: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("call log not found")
	}

	return nil
}

func scanCallLog(row rowScanner) (*models.CallLog, error) {
	log := &models.CallLog{}
	var status string

	err := row.Scan(
		&log.ID,
		&log.AlertID,
		&log.HotlineNumber,
		&log.StartedAt,
		&log.EndedAt,
		&log.DurationSeconds,
		&log.RecordingURL,
		&status,
		&log.SyncedAt,
	)
	if err != nil {
		return nil, err
	}

	log.Status = models.CallStatus(status)
	return log, nil
}
