package services

import (
	"context"
	"fmt"
	"sync"

	"alert-agent/internal/models"
	"alert-agent/internal/platform"
)

// Shared hand-rolled fakes for the service tests. They live in a non-test
// file so every *_test.go in the package can use them; nothing outside
// the package can.

// captureEnqueuer records every enqueued item instead of syncing it
type captureEnqueuer struct {
	mu    sync.Mutex
	items []capturedItem
	err   error
}

type capturedItem struct {
	Type    models.SyncItemType
	Payload interface{}
}

func (e *captureEnqueuer) Enqueue(itemType models.SyncItemType, payload interface{}) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.items = append(e.items, capturedItem{Type: itemType, Payload: payload})
	return fmt.Sprintf("item-%d", len(e.items)), nil
}

func (e *captureEnqueuer) captured() []capturedItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]capturedItem, len(e.items))
	copy(out, e.items)
	return out
}

// fakeLocation scripts the capture ladder
type fakeLocation struct {
	capturePos   *platform.Position
	captureErr   error
	lastKnown    *platform.Position
	lastKnownErr error
}

func (f *fakeLocation) Capture(ctx context.Context) (*platform.Position, error) {
	return f.capturePos, f.captureErr
}

func (f *fakeLocation) LastKnown() (*platform.Position, error) {
	return f.lastKnown, f.lastKnownErr
}

// memoryCallRepo is an in-memory db.CallLogRepository
type memoryCallRepo struct {
	mu        sync.Mutex
	logs      map[string]models.CallLog
	createErr error
}

func newMemoryCallRepo() *memoryCallRepo {
	return &memoryCallRepo{logs: make(map[string]models.CallLog)}
}

func (r *memoryCallRepo) Create(log *models.CallLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.logs[log.ID] = *log
	return nil
}

func (r *memoryCallRepo) GetByID(id string) (*models.CallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[id]
	if !ok {
		return nil, nil
	}
	copied := log
	return &copied, nil
}

func (r *memoryCallRepo) Update(log *models.CallLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.logs[log.ID]; !ok {
		return fmt.Errorf("call log not found")
	}
	r.logs[log.ID] = *log
	return nil
}

func (r *memoryCallRepo) List(limit int) ([]*models.CallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CallLog
	for _, log := range r.logs {
		copied := log
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memoryCallRepo) MarkSynced(id string, syncedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[id]
	if !ok {
		return fmt.Errorf("call log not found")
	}
	log.SyncedAt = &syncedAt
	r.logs[id] = log
	return nil
}

// fakeTransport scripts the voice transport capability
type fakeTransport struct {
	mu          sync.Mutex
	events      chan platform.CallEvent
	connectErr  error
	connected   []string
	disconnects []string
	muted       []bool
	speaker     []bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan platform.CallEvent, 8)}
}

func (t *fakeTransport) Connect(ctx context.Context, token, number, callID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connectErr != nil {
		return t.connectErr
	}
	t.connected = append(t.connected, callID)
	return nil
}

func (t *fakeTransport) Disconnect(callID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disconnects = append(t.disconnects, callID)
	return nil
}

func (t *fakeTransport) SetMuted(muted bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.muted = append(t.muted, muted)
	return nil
}

func (t *fakeTransport) SetSpeaker(enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.speaker = append(t.speaker, enabled)
	return nil
}

func (t *fakeTransport) Events() <-chan platform.CallEvent { return t.events }

// fakeTokens hands out a canned credential
type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) Token(ctx context.Context, identity string) (string, error) {
	return f.token, f.err
}

// recordingCallUI records chrome show/hide calls
type recordingCallUI struct {
	mu     sync.Mutex
	shown  []string
	hidden []string
}

func (u *recordingCallUI) ShowActiveCall(callID, number string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.shown = append(u.shown, callID)
}

func (u *recordingCallUI) Hide(callID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.hidden = append(u.hidden, callID)
}

// recordingDialer records degraded-path dials
type recordingDialer struct {
	mu      sync.Mutex
	numbers []string
	err     error
}

func (d *recordingDialer) Dial(number string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.numbers = append(d.numbers, number)
	return nil
}
