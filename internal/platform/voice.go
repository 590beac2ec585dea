package platform

import (
	"context"
	"errors"
)

// ErrTransportUnavailable signals that no voice transport is present on
// this device; callers fall back to the plain dialer.
var ErrTransportUnavailable = errors.New("voice transport unavailable")

// CallEventKind is the type of an event emitted by the voice transport
type CallEventKind string

const (
	CallEventConnected     CallEventKind = "connected"
	CallEventDisconnected  CallEventKind = "disconnected"
	CallEventConnectFailed CallEventKind = "connect_failed"
	// CallEventIncoming is an inbound call invitation. The agent always
	// rejects these; they exist so the transport can surface them.
	CallEventIncoming CallEventKind = "incoming"
)

// CallEvent is one asynchronous notification from the voice transport
type CallEvent struct {
	Kind   CallEventKind
	CallID string
	Reason string
}

// VoiceTransport is the audio-path capability backing hotline calls.
// Connect establishes transport for a call using a backend credential;
// events arrive on the Events channel at any time afterwards.
type VoiceTransport interface {
	Connect(ctx context.Context, token, number, callID string) error
	Disconnect(callID string) error
	SetMuted(muted bool) error
	SetSpeaker(enabled bool) error
	Events() <-chan CallEvent
}

// NoVoiceTransport is the fallback when the voice SDK is not present.
// Connect fails with ErrTransportUnavailable so the call service can
// degrade to the plain dialer.
type NoVoiceTransport struct {
	events chan CallEvent
}

// NewNoVoiceTransport creates the no-op transport
func NewNoVoiceTransport() *NoVoiceTransport {
	return &NoVoiceTransport{events: make(chan CallEvent)}
}

// Connect always fails with ErrTransportUnavailable
func (t *NoVoiceTransport) Connect(ctx context.Context, token, number, callID string) error {
	return ErrTransportUnavailable
}

// Disconnect is a no-op
func (t *NoVoiceTransport) Disconnect(callID string) error { return nil }

// SetMuted is a no-op
func (t *NoVoiceTransport) SetMuted(muted bool) error { return nil }

// SetSpeaker is a no-op
func (t *NoVoiceTransport) SetSpeaker(enabled bool) error { return nil }

// Events returns a channel that never delivers
func (t *NoVoiceTransport) Events() <-chan CallEvent { return t.events }
