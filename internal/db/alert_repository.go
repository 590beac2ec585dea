package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"alert-agent/internal/models"

	"github.com/google/uuid"
)

// AlertRepository defines the interface for alert data access
type AlertRepository interface {
	Upsert(alert *models.Alert) error
	GetByID(id string) (*models.Alert, error)
	List(status models.AlertStatus, limit int) ([]*models.Alert, error)
	UpdateStatus(id string, status models.AlertStatus) error
}

type alertRepository struct {
	db *sql.DB
}

// NewAlertRepository creates a new AlertRepository
func NewAlertRepository(db *sql.DB) AlertRepository {
	return &alertRepository{db: db}
}

// Upsert inserts an alert, or replaces the stored copy when the same id
// arrives again (push delivery retries re-send the whole alert).
func (r *alertRepository) Upsert(alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert cannot be nil")
	}

	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt == 0 {
		alert.CreatedAt = time.Now().Unix()
	}

	options, err := marshalResponseOptions(alert.ResponseOptions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO alerts (id, title, message, severity, status, issued_at, requires_response, response_options, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			message = excluded.message,
			severity = excluded.severity,
			status = excluded.status,
			issued_at = excluded.issued_at,
			requires_response = excluded.requires_response,
			response_options = excluded.response_options
	`

	_, err = r.db.Exec(query,
		alert.ID,
		alert.Title,
		alert.Message,
		string(alert.Severity),
		string(alert.Status),
		alert.IssuedAt,
		alert.RequiresResponse,
		options,
		alert.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert alert: %w", err)
	}

	return nil
}

// GetByID retrieves an alert by ID, returning nil when it does not exist
func (r *alertRepository) GetByID(id string) (*models.Alert, error) {
	if id == "" {
		return nil, fmt.Errorf("alert ID cannot be empty")
	}

	query := `
		SELECT id, title, message, severity, status, issued_at, requires_response, response_options, created_at
		FROM alerts
		WHERE id = ?
	`

	alert, err := scanAlert(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert by ID: %w", err)
	}

	return alert, nil
}

// List retrieves alerts, optionally filtered by status, newest first
func (r *alertRepository) List(status models.AlertStatus, limit int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, title, message, severity, status, issued_at, requires_response, response_options, created_at
		FROM alerts
	`
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY issued_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// UpdateStatus moves an alert to a new lifecycle status
func (r *alertRepository) UpdateStatus(id string, status models.AlertStatus) error {
	if id == "" {
		return fmt.Errorf("alert ID cannot be empty")
	}
	if !status.Valid() {
		return fmt.Errorf("invalid alert status: %q", status)
	}

	result, err := r.db.Exec(`UPDATE alerts SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update alert status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert not found")
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	alert := &models.Alert{}
	var severity, status string
	var message, options sql.NullString

	err := row.Scan(
		&alert.ID,
		&alert.Title,
		&message,
		&severity,
		&status,
		&alert.IssuedAt,
		&alert.RequiresResponse,
		&options,
		&alert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	alert.Message = message.String
	alert.Severity = models.AlertSeverity(severity)
	alert.Status = models.AlertStatus(status)

	if options.Valid && options.String != "" {
		if err := json.Unmarshal([]byte(options.String), &alert.ResponseOptions); err != nil {
			return nil, fmt.Errorf("failed to decode response options: %w", err)
		}
	}

	return alert, nil
}

func marshalResponseOptions(options []models.ResponseType) (*string, error) {
	if len(options) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response options: %w", err)
	}
	s := string(raw)
	return &s, nil
}
