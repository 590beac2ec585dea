package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ResponseType is the user's answer to an alert
type ResponseType string

const (
	ResponseSafe           ResponseType = "safe"
	ResponseNeedAssistance ResponseType = "need_assistance"
	ResponseEvacuating     ResponseType = "evacuating"
	ResponseSheltering     ResponseType = "sheltering"
)

// Valid reports whether the response type is one of the known values
func (r ResponseType) Valid() bool {
	switch r {
	case ResponseSafe, ResponseNeedAssistance, ResponseEvacuating, ResponseSheltering:
		return true
	}
	return false
}

// UserResponse is a user's recorded status answer to an alert, with an
// optional location snapshot. Latitude and longitude are either both set
// or both nil; SyncedAt is nil until the row has been delivered upstream.
type UserResponse struct {
	ID          string       `json:"id"`
	AlertID     string       `json:"alert_id"`
	UserID      string       `json:"user_id"`
	Response    ResponseType `json:"response"`
	Latitude    *float64     `json:"latitude,omitempty"`
	Longitude   *float64     `json:"longitude,omitempty"`
	Accuracy    *float64     `json:"accuracy,omitempty"`
	RespondedAt int64        `json:"responded_at"` // Unix timestamp
	SyncedAt    *int64       `json:"synced_at,omitempty"`
}

// NewUserResponse creates a UserResponse with a generated UUID and the
// current time; location is attached separately by the producer.
func NewUserResponse(alertID, userID string, response ResponseType) *UserResponse {
	return &UserResponse{
		ID:          uuid.New().String(),
		AlertID:     alertID,
		UserID:      userID,
		Response:    response,
		RespondedAt: time.Now().Unix(),
	}
}

// SetLocation attaches a location snapshot to the response
func (r *UserResponse) SetLocation(lat, lon, accuracy float64) {
	r.Latitude = &lat
	r.Longitude = &lon
	r.Accuracy = &accuracy
}

// Validate checks required fields and the paired lat/lon invariant
func (r *UserResponse) Validate() error {
	if r.AlertID == "" {
		return fmt.Errorf("alert ID is required")
	}
	if r.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if !r.Response.Valid() {
		return fmt.Errorf("invalid response type: %q", r.Response)
	}
	if (r.Latitude == nil) != (r.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must both be set or both be empty")
	}
	return nil
}

// LocationReport is a standalone location check-in, produced outside of
// any alert response. It is never stored in its own table; it exists only
// as a sync queue payload.
type LocationReport struct {
	UserID     string   `json:"user_id"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	ReportedAt int64    `json:"reported_at"` // Unix timestamp
}
