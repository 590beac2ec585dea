package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"alert-agent/internal/db"
	"alert-agent/internal/models"
	"alert-agent/internal/platform"
	"alert-agent/pkg/logger"

	"go.uber.org/zap"
)

// ErrCallInProgress is returned when PlaceCall is invoked while a call
// session already exists; the machine only leaves idle once at a time.
var ErrCallInProgress = errors.New("a call is already in progress")

// ErrNoActiveCall is returned by EndCall when the machine is idle
var ErrNoActiveCall = errors.New("no active call")

// CallService drives a single outbound hotline call through
// connecting → {connected, failed} and connected → disconnected,
// persisting the call log and enqueueing a completion record when the
// call ends. Transport and call chrome are platform capabilities; when
// the voice transport is unavailable the call degrades to the plain
// dialer and the state machine steps out of the way.
type CallService struct {
	logs      db.CallLogRepository
	queue     Enqueuer
	tokens    TokenSource
	transport platform.VoiceTransport
	callUI    platform.CallUI
	dialer    platform.Dialer
	identity  string

	mu     sync.Mutex
	active *models.CallLog // nil while idle

	stop     chan struct{}
	stopOnce sync.Once
}

// NewCallService creates a call service for the given identity
func NewCallService(
	logs db.CallLogRepository,
	queue Enqueuer,
	tokens TokenSource,
	transport platform.VoiceTransport,
	callUI platform.CallUI,
	dialer platform.Dialer,
	identity string,
) *CallService {
	return &CallService{
		logs:      logs,
		queue:     queue,
		tokens:    tokens,
		transport: transport,
		callUI:    callUI,
		dialer:    dialer,
		identity:  identity,
		stop:      make(chan struct{}),
	}
}

// Start launches the transport event consumer
func (s *CallService) Start() {
	go s.consumeEvents()
}

// Stop halts the event consumer
func (s *CallService) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// PlaceCall starts an outbound call to the hotline. The call log row is
// persisted with status connecting before any transport work. If the
// voice transport is unavailable the number is handed to the plain
// dialer instead: the row stays as the audit record, but no events, no
// recording, and no queue activity follow.
func (s *CallService) PlaceCall(ctx context.Context, number string, alertID *string) (*models.CallLog, error) {
	if number == "" {
		return nil, fmt.Errorf("hotline number is required")
	}

	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return nil, ErrCallInProgress
	}

	call := models.NewCallLog(number, alertID)
	if err := s.logs.Create(call); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.active = call
	s.mu.Unlock()

	logger.Info("Placing call",
		zap.String("call_id", call.ID),
		zap.String("number", number),
	)

	token, err := s.tokens.Token(ctx, s.identity)
	if err == nil {
		err = s.transport.Connect(ctx, token, number, call.ID)
	}

	if err != nil {
		if errors.Is(err, platform.ErrTransportUnavailable) || token == "" {
			// Degraded path: plain dialer, no further state machine involvement
			s.mu.Lock()
			s.active = nil
			s.mu.Unlock()

			logger.Warn("Voice transport unavailable, falling back to dialer",
				zap.String("call_id", call.ID), zap.Error(err))

			if dialErr := s.dialer.Dial(number); dialErr != nil {
				return nil, fmt.Errorf("dialer fallback failed: %w", dialErr)
			}
			return call, nil
		}

		s.failCall(call.ID, err.Error())
		return nil, fmt.Errorf("failed to establish call transport: %w", err)
	}

	return call, nil
}

// EndCall tears the active call down unconditionally, without waiting
// for the backend to confirm the disconnect.
func (s *CallService) EndCall() error {
	s.mu.Lock()
	call := s.active
	s.mu.Unlock()

	if call == nil {
		return ErrNoActiveCall
	}

	if err := s.transport.Disconnect(call.ID); err != nil {
		logger.Warn("Transport disconnect failed",
			zap.String("call_id", call.ID), zap.Error(err))
	}

	s.finishCall(call.ID)
	return nil
}

// ToggleMute passes the mute state through to the active transport.
// A no-op when there is no active call.
func (s *CallService) ToggleMute(muted bool) error {
	s.mu.Lock()
	active := s.active != nil
	s.mu.Unlock()

	if !active {
		return nil
	}
	return s.transport.SetMuted(muted)
}

// ToggleSpeaker passes the speaker state through to the active transport.
// A no-op when there is no active call.
func (s *CallService) ToggleSpeaker(enabled bool) error {
	s.mu.Lock()
	active := s.active != nil
	s.mu.Unlock()

	if !active {
		return nil
	}
	return s.transport.SetSpeaker(enabled)
}

// ActiveCall returns a copy of the call currently in flight, nil when idle
func (s *CallService) ActiveCall() *models.CallLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil
	}
	call := *s.active
	return &call
}

// History lists recent call logs
func (s *CallService) History(limit int) ([]*models.CallLog, error) {
	return s.logs.List(limit)
}

// consumeEvents dispatches transport events to the transition handlers
func (s *CallService) consumeEvents() {
	for {
		select {
		case event, ok := <-s.transport.Events():
			if !ok {
				return
			}
			s.handleEvent(event)
		case <-s.stop:
			return
		}
	}
}

func (s *CallService) handleEvent(event platform.CallEvent) {
	switch event.Kind {
	case platform.CallEventConnected:
		s.connectCall(event.CallID)
	case platform.CallEventDisconnected:
		s.finishCall(event.CallID)
	case platform.CallEventConnectFailed:
		s.failCall(event.CallID, event.Reason)
	case platform.CallEventIncoming:
		// Inbound calls are rejected in v1
		logger.Info("Rejecting inbound call invitation", zap.String("call_id", event.CallID))
		if err := s.transport.Disconnect(event.CallID); err != nil {
			logger.Warn("Failed to reject inbound call", zap.Error(err))
		}
	default:
		logger.Warn("Ignoring unknown call event", zap.String("kind", string(event.Kind)))
	}
}

// connectCall moves connecting → connected and raises the call chrome
func (s *CallService) connectCall(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.ID != callID || s.active.Status != models.CallConnecting {
		return
	}

	s.active.Status = models.CallConnected
	if err := s.logs.Update(s.active); err != nil {
		logger.Error("Failed to persist connected transition",
			zap.String("call_id", callID), zap.Error(err))
	}

	s.callUI.ShowActiveCall(callID, s.active.HotlineNumber)
	logger.Info("Call connected", zap.String("call_id", callID))
}

// finishCall moves the call to disconnected, computes its duration, and
// enqueues the completion delta. Redundant disconnect events are no-ops.
func (s *CallService) finishCall(callID string) {
	s.mu.Lock()

	if s.active == nil || s.active.ID != callID || s.active.Status.Terminal() {
		s.mu.Unlock()
		return
	}

	call := s.active
	call.End(time.Now())
	s.active = nil

	if err := s.logs.Update(call); err != nil {
		logger.Error("Failed to persist disconnected transition",
			zap.String("call_id", callID), zap.Error(err))
	}
	s.mu.Unlock()

	s.callUI.Hide(callID)

	completion := &models.CallCompletion{
		CallID:          call.ID,
		AlertID:         call.AlertID,
		HotlineNumber:   call.HotlineNumber,
		StartedAt:       call.StartedAt,
		EndedAt:         *call.EndedAt,
		DurationSeconds: *call.DurationSeconds,
	}
	if _, err := s.queue.Enqueue(models.SyncTypeCallLog, completion); err != nil {
		logger.Error("Failed to enqueue call completion",
			zap.String("call_id", callID), zap.Error(err))
	}

	logger.Info("Call ended",
		zap.String("call_id", callID),
		zap.Int64("duration_seconds", *call.DurationSeconds),
	)
}

// failCall moves connecting → failed. Calls that never connected are not
// enqueued for sync; the failed row is the locally visible record.
func (s *CallService) failCall(callID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.ID != callID || s.active.Status.Terminal() {
		return
	}

	s.active.Status = models.CallFailed
	if err := s.logs.Update(s.active); err != nil {
		logger.Error("Failed to persist failed transition",
			zap.String("call_id", callID), zap.Error(err))
	}
	s.active = nil

	s.callUI.Hide(callID)
	logger.Warn("Call failed",
		zap.String("call_id", callID),
		zap.String("reason", reason),
	)
}
