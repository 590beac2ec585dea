package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AlertSeverity classifies how urgent an alert is
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
)

// Valid reports whether the severity is one of the known values
func (s AlertSeverity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// AlertStatus is the lifecycle state of an alert
type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
	AlertExpired  AlertStatus = "expired"
)

// Valid reports whether the status is one of the known values
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertActive, AlertResolved, AlertExpired:
		return true
	}
	return false
}

// Alert represents an emergency notification delivered to the device
type Alert struct {
	ID               string         `json:"id"`
	Title            string         `json:"title" binding:"required"`
	Message          string         `json:"message"`
	Severity         AlertSeverity  `json:"severity" binding:"required"`
	Status           AlertStatus    `json:"status"`
	IssuedAt         int64          `json:"issued_at"` // Unix timestamp
	RequiresResponse bool           `json:"requires_response"`
	ResponseOptions  []ResponseType `json:"response_options,omitempty"`
	CreatedAt        int64          `json:"created_at"` // Unix timestamp of local receipt
}

// NewAlert creates an active Alert with a generated UUID and timestamps
func NewAlert(title, message string, severity AlertSeverity) *Alert {
	now := time.Now().Unix()
	return &Alert{
		ID:        uuid.New().String(),
		Title:     title,
		Message:   message,
		Severity:  severity,
		Status:    AlertActive,
		IssuedAt:  now,
		CreatedAt: now,
	}
}

// Validate checks enum values and the response-options invariant:
// an alert that requires a response must offer at least one option,
// and one that does not must offer none.
func (a *Alert) Validate() error {
	if a.Title == "" {
		return fmt.Errorf("alert title is required")
	}
	if !a.Severity.Valid() {
		return fmt.Errorf("invalid alert severity: %q", a.Severity)
	}
	if !a.Status.Valid() {
		return fmt.Errorf("invalid alert status: %q", a.Status)
	}
	if a.RequiresResponse && len(a.ResponseOptions) == 0 {
		return fmt.Errorf("alert requires a response but offers no response options")
	}
	if !a.RequiresResponse && len(a.ResponseOptions) > 0 {
		return fmt.Errorf("alert offers response options but does not require a response")
	}
	for _, opt := range a.ResponseOptions {
		if !opt.Valid() {
			return fmt.Errorf("invalid response option: %q", opt)
		}
	}
	return nil
}

// AllowsResponse reports whether rt is one of the alert's offered options
func (a *Alert) AllowsResponse(rt ResponseType) bool {
	for _, opt := range a.ResponseOptions {
		if opt == rt {
			return true
		}
	}
	return false
}

// IsActive reports whether the alert still accepts responses
func (a *Alert) IsActive() bool {
	return a.Status == AlertActive
}
