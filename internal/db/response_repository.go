package db

import (
	"database/sql"
	"fmt"
	"time"

	"alert-agent/internal/models"

	"github.com/google/uuid"
)

// ResponseRepository defines the interface for user response data access
type ResponseRepository interface {
	Create(response *models.UserResponse) error
	GetByID(id string) (*models.UserResponse, error)
	ListByAlert(alertID string) ([]*models.UserResponse, error)
	MarkSynced(id string, syncedAt int64) error
}

type responseRepository struct {
	db *sql.DB
}

// NewResponseRepository creates a new ResponseRepository
func NewResponseRepository(db *sql.DB) ResponseRepository {
	return &responseRepository{db: db}
}

// Create persists a new user response
func (r *responseRepository) Create(response *models.UserResponse) error {
	if response == nil {
		return fmt.Errorf("response cannot be nil")
	}
	if err := response.Validate(); err != nil {
		return err
	}

	if response.ID == "" {
		response.ID = uuid.New().String()
	}
	if response.RespondedAt == 0 {
		response.RespondedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO user_responses (id, alert_id, user_id, response, latitude, longitude, accuracy, responded_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		response.ID,
		response.AlertID,
		response.UserID,
		string(response.Response),
		response.Latitude,
		response.Longitude,
		response.Accuracy,
		response.RespondedAt,
		response.SyncedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create user response: %w", err)
	}

	return nil
}

// GetByID retrieves a response by ID, returning nil when it does not exist
func (r *responseRepository) GetByID(id string) (*models.UserResponse, error) {
	if id == "" {
		return nil, fmt.Errorf("response ID cannot be empty")
	}

	query := `
		SELECT id, alert_id, user_id, response, latitude, longitude, accuracy, responded_at, synced_at
		FROM user_responses
		WHERE id = ?
	`

	response, err := scanResponse(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get response by ID: %w", err)
	}

	return response, nil
}

// ListByAlert retrieves all responses recorded for an alert, newest first
func (r *responseRepository) ListByAlert(alertID string) ([]*models.UserResponse, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert ID cannot be empty")
	}

	query := `
		SELECT id, alert_id, user_id, response, latitude, longitude, accuracy, responded_at, synced_at
		FROM user_responses
		WHERE alert_id = ?
		ORDER BY responded_at DESC
	`

	rows, err := r.db.Query(query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	var responses []*models.UserResponse
	for rows.Next() {
		response, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, response)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating responses: %w", err)
	}

	return responses, nil
}

// MarkSynced records the time the response was delivered upstream
func (r *responseRepository) MarkSynced(id string, syncedAt int64) error {
	if id == "" {
		return fmt.Errorf("response ID cannot be empty")
	}

	result, err := r.db.Exec(`UPDATE user_responses SET synced_at = ? WHERE id = ?`, syncedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark response synced: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("response not found")
	}

	return nil
}

func scanResponse(row rowScanner) (*models.UserResponse, error) {
	response := &models.UserResponse{}
	var responseType string

	err := row.Scan(
		&response.ID,
		&response.AlertID,
		&response.UserID,
		&responseType,
		&response.Latitude,
		&response.Longitude,
		&response.Accuracy,
		&response.RespondedAt,
		&response.SyncedAt,
	)
	if err != nil {
		return nil, err
	}

	response.Response = models.ResponseType(responseType)
	return response, nil
}
