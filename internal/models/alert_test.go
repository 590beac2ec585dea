package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlertValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *Alert)
		wantErr bool
	}{
		{
			name:    "valid informational alert",
			mutate:  func(a *Alert) {},
			wantErr: false,
		},
		{
			name: "valid alert requiring response",
			mutate: func(a *Alert) {
				a.RequiresResponse = true
				a.ResponseOptions = []ResponseType{ResponseSafe, ResponseNeedAssistance}
			},
			wantErr: false,
		},
		{
			name:    "missing title",
			mutate:  func(a *Alert) { a.Title = "" },
			wantErr: true,
		},
		{
			name:    "unknown severity",
			mutate:  func(a *Alert) { a.Severity = "catastrophic" },
			wantErr: true,
		},
		{
			name:    "unknown status",
			mutate:  func(a *Alert) { a.Status = "archived" },
			wantErr: true,
		},
		{
			name:    "requires response with no options",
			mutate:  func(a *Alert) { a.RequiresResponse = true },
			wantErr: true,
		},
		{
			name: "options offered without requiring response",
			mutate: func(a *Alert) {
				a.ResponseOptions = []ResponseType{ResponseSafe}
			},
			wantErr: true,
		},
		{
			name: "unknown response option",
			mutate: func(a *Alert) {
				a.RequiresResponse = true
				a.ResponseOptions = []ResponseType{"fleeing"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := NewAlert("Flood warning", "Move to higher ground", SeverityWarning)
			tt.mutate(alert)

			err := alert.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewAlert(t *testing.T) {
	alert := NewAlert("Earthquake", "Drop, cover, hold on", SeverityCritical)

	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, AlertActive, alert.Status)
	assert.NotZero(t, alert.IssuedAt)
	assert.True(t, alert.IsActive())
}

func TestAlertAllowsResponse(t *testing.T) {
	alert := NewAlert("Wildfire", "Evacuate zone 3", SeverityCritical)
	alert.RequiresResponse = true
	alert.ResponseOptions = []ResponseType{ResponseSafe, ResponseEvacuating}

	assert.True(t, alert.AllowsResponse(ResponseSafe))
	assert.True(t, alert.AllowsResponse(ResponseEvacuating))
	assert.False(t, alert.AllowsResponse(ResponseSheltering))
}

func TestAlertSeverityValid(t *testing.T) {
	assert.True(t, SeverityCritical.Valid())
	assert.True(t, SeverityWarning.Valid())
	assert.True(t, SeverityInfo.Valid())
	assert.False(t, AlertSeverity("urgent").Valid())
}
