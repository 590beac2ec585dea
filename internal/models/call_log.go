package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CallStatus is the lifecycle state of a hotline call
type CallStatus string

const (
	CallConnecting   CallStatus = "connecting"
	CallConnected    CallStatus = "connected"
	CallDisconnected CallStatus = "disconnected"
	CallFailed       CallStatus = "failed"
)

// Valid reports whether the status is one of the known values
func (s CallStatus) Valid() bool {
	switch s {
	case CallConnecting, CallConnected, CallDisconnected, CallFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions can occur for the call
func (s CallStatus) Terminal() bool {
	return s == CallDisconnected || s == CallFailed
}

// CallLog is the audit record of one outbound hotline call.
// EndedAt stays nil while the call is connecting or connected;
// DurationSeconds is set only once EndedAt is set. RecordingURL is
// populated out-of-band by the voice backend and never written locally.
type CallLog struct {
	ID              string     `json:"id"`
	AlertID         *string    `json:"alert_id,omitempty"`
	HotlineNumber   string     `json:"hotline_number"`
	StartedAt       int64      `json:"started_at"` // Unix timestamp
	EndedAt         *int64     `json:"ended_at,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
	RecordingURL    *string    `json:"recording_url,omitempty"`
	Status          CallStatus `json:"status"`
	SyncedAt        *int64     `json:"synced_at,omitempty"`
}

// NewCallLog creates a connecting CallLog with a generated UUID
func NewCallLog(hotlineNumber string, alertID *string) *CallLog {
	return &CallLog{
		ID:            uuid.New().String(),
		AlertID:       alertID,
		HotlineNumber: hotlineNumber,
		StartedAt:     time.Now().Unix(),
		Status:        CallConnecting,
	}
}

// Validate checks required fields and the ended-at/duration invariants
func (c *CallLog) Validate() error {
	if c.HotlineNumber == "" {
		return fmt.Errorf("hotline number is required")
	}
	if !c.Status.Valid() {
		return fmt.Errorf("invalid call status: %q", c.Status)
	}
	if c.EndedAt != nil && (c.Status == CallConnecting || c.Status == CallConnected) {
		return fmt.Errorf("ended_at must be empty while the call is %s", c.Status)
	}
	if c.DurationSeconds != nil && c.EndedAt == nil {
		return fmt.Errorf("duration requires ended_at to be set")
	}
	return nil
}

// End marks the call disconnected at the given time and computes its
// duration from the connecting timestamp. Safe to call more than once;
// later calls are no-ops.
func (c *CallLog) End(at time.Time) {
	if c.EndedAt != nil {
		return
	}
	ended := at.Unix()
	duration := ended - c.StartedAt
	if duration < 0 {
		duration = 0
	}
	c.EndedAt = &ended
	c.DurationSeconds = &duration
	c.Status = CallDisconnected
}

// CallCompletion is the sync payload enqueued when a call ends
type CallCompletion struct {
	CallID          string  `json:"call_id"`
	AlertID         *string `json:"alert_id,omitempty"`
	HotlineNumber   string  `json:"hotline_number"`
	StartedAt       int64   `json:"started_at"`
	EndedAt         int64   `json:"ended_at"`
	DurationSeconds int64   `json:"duration_seconds"`
}
