package platform

import (
	"context"
	"errors"
)

// ErrLocationUnavailable is returned when no position can be produced
var ErrLocationUnavailable = errors.New("location unavailable")

// Position is one geolocation snapshot
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64 // meters
}

// LocationProvider is the device geolocation capability. Capture makes a
// fresh bounded-accuracy attempt and honors ctx cancellation; LastKnown
// returns the most recent cached fix without touching the hardware.
// Both return ErrLocationUnavailable when nothing can be produced.
type LocationProvider interface {
	Capture(ctx context.Context) (*Position, error)
	LastKnown() (*Position, error)
}

// NoLocationProvider is the fallback when the platform exposes no
// geolocation, or permission was denied. Producers treat its failures as
// "proceed with null coordinates".
type NoLocationProvider struct{}

// Capture always fails
func (NoLocationProvider) Capture(ctx context.Context) (*Position, error) {
	return nil, ErrLocationUnavailable
}

// LastKnown always fails
func (NoLocationProvider) LastKnown() (*Position, error) {
	return nil, ErrLocationUnavailable
}
