package platform

import (
	"alert-agent/pkg/logger"

	"go.uber.org/zap"
)

// CallUI presents the platform's system call chrome for an active call
type CallUI interface {
	ShowActiveCall(callID, number string)
	Hide(callID string)
}

// NoCallUI is the fallback when the platform exposes no call chrome
type NoCallUI struct{}

// ShowActiveCall is a no-op
func (NoCallUI) ShowActiveCall(callID, number string) {}

// Hide is a no-op
func (NoCallUI) Hide(callID string) {}

// Dialer is the degraded call path: hand the number to the platform's
// basic dialer and step out of the way. No transport, no recording.
type Dialer interface {
	Dial(number string) error
}

// LogDialer records the handoff and succeeds. On a real device the
// platform binding replaces this with the native dial intent.
type LogDialer struct{}

// Dial logs the number being handed off
func (LogDialer) Dial(number string) error {
	logger.Info("Handing call off to native dialer", zap.String("number", number))
	return nil
}
