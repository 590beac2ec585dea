package sync

import (
	"bytes"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"alert-agent/internal/db"
	"alert-agent/internal/models"
	"alert-agent/internal/platform"
	"alert-agent/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// endpoints maps each item type to its remote path. An item type missing
// from this table is a programming error, not a transient failure.
var endpoints = map[models.SyncItemType]string{
	models.SyncTypeUserResponse:   "/api/responses",
	models.SyncTypeLocationUpdate: "/api/locations",
	models.SyncTypeCallLog:        "/api/calls",
}

// DefaultPruneKeep is how many synced items survive pruning, retained
// for audit and debugging.
const DefaultPruneKeep = 100

// Config holds the engine's tunables
type Config struct {
	BaseURL        string        // remote API root, e.g. https://alerts.example.com
	RequestTimeout time.Duration // per-delivery HTTP timeout
	DrainSchedule  string        // cron spec for the periodic wake, e.g. "@every 15m"
	PruneKeep      int           // synced items retained after a drain
}

// Engine is the durable outbound mailbox. Producers persist domain rows,
// then hand a queue item to Enqueue; the engine guarantees each committed
// item is eventually delivered, across offline intervals and restarts,
// with bounded retries.
type Engine struct {
	queue        db.QueueRepository
	connectivity platform.ConnectivityMonitor
	client       *http.Client
	baseURL      string
	schedule     string
	pruneKeep    int
	cron         *cron.Cron

	// draining is the drain-pass latch: at most one ProcessQueue runs at
	// a time, and concurrent callers skip rather than wait.
	draining atomic.Bool

	// onSynced, when set, is invoked after an item is delivered so the
	// owning domain row can record its synced_at timestamp.
	onSynced func(item *models.SyncQueueItem)
}

// NewEngine creates a sync engine over the given queue repository
func NewEngine(queue db.QueueRepository, connectivity platform.ConnectivityMonitor, cfg Config) *Engine {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	keep := cfg.PruneKeep
	if keep <= 0 {
		keep = DefaultPruneKeep
	}
	schedule := cfg.DrainSchedule
	if schedule == "" {
		schedule = "@every 15m"
	}

	return &Engine{
		queue:        queue,
		connectivity: connectivity,
		client:       &http.Client{Timeout: timeout},
		baseURL:      cfg.BaseURL,
		schedule:     schedule,
		pruneKeep:    keep,
	}
}

// SetSyncedHook registers a callback invoked for every item that reaches
// synced. Must be called before Start.
func (e *Engine) SetSyncedHook(fn func(item *models.SyncQueueItem)) {
	e.onSynced = fn
}

// Start recovers any items a previous run left in flight, then wires the
// engine's trigger surface: a connectivity-regained subscription and the
// periodic background wake.
func (e *Engine) Start() error {
	// A crash between MarkSyncing and the terminal mark leaves the row
	// in syncing, where no future drain would pick it up.
	recovered, err := e.queue.ResetSyncing()
	if err != nil {
		return fmt.Errorf("failed to recover in-flight queue items: %w", err)
	}
	if recovered > 0 {
		logger.Warn("Recovered in-flight queue items from previous run",
			zap.Int("count", recovered))
	}

	e.connectivity.Subscribe(func(online bool) {
		if online {
			go e.ProcessQueue()
		}
	})

	e.cron = cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := e.cron.AddFunc(e.schedule, func() { e.ProcessQueue() }); err != nil {
		return fmt.Errorf("failed to schedule periodic drain: %w", err)
	}
	e.cron.Start()

	return nil
}

// Stop halts the periodic wake. An in-flight drain pass runs to completion.
func (e *Engine) Stop() {
	if e.cron != nil {
		ctx := e.cron.Stop()
		<-ctx.Done()
	}
}

// Enqueue persists a new pending queue item. Network state never fails an
// enqueue; only the store can. When the network is up, a drain attempt is
// kicked off without blocking the caller.
func (e *Engine) Enqueue(itemType models.SyncItemType, payload interface{}) (string, error) {
	item, err := models.NewSyncQueueItem(itemType, payload)
	if err != nil {
		return "", err
	}

	if err := e.queue.Create(item); err != nil {
		return "", fmt.Errorf("failed to enqueue %s item: %w", itemType, err)
	}

	logger.Debug("Enqueued sync item",
		zap.String("id", item.ID),
		zap.String("type", string(itemType)),
	)

	if e.connectivity.Online() {
		go e.ProcessQueue()
	}

	return item.ID, nil
}

// ProcessQueue runs one drain pass and returns the number of items newly
// synced. It is non-reentrant: if a pass is already running the call is a
// no-op returning 0. Items are attempted strictly oldest-first; after a
// failure the pass aborts if the network is down, leaving the remaining
// items in order for the next trigger.
func (e *Engine) ProcessQueue() int {
	if !e.draining.CompareAndSwap(false, true) {
		return 0
	}
	defer e.draining.Store(false)

	items, err := e.queue.Candidates()
	if err != nil {
		logger.Error("Failed to select drain candidates", zap.Error(err))
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	logger.Info("Starting drain pass", zap.Int("candidates", len(items)))

	synced := 0
	for _, item := range items {
		if err := e.queue.MarkSyncing(item.ID); err != nil {
			logger.Error("Failed to mark item syncing",
				zap.String("id", item.ID), zap.Error(err))
			continue
		}

		err := e.deliver(item)
		if err == nil {
			if err := e.queue.MarkSynced(item.ID); err != nil {
				logger.Error("Failed to mark item synced",
					zap.String("id", item.ID), zap.Error(err))
				continue
			}
			synced++
			if e.onSynced != nil {
				e.onSynced(item)
			}
			continue
		}

		retryCount := item.RetryCount + 1
		if !item.Type.Valid() || endpoints[item.Type] == "" {
			// Unmapped type: fatal, never retried
			retryCount = models.MaxSyncRetries
		}

		if markErr := e.queue.MarkFailed(item.ID, retryCount, err.Error()); markErr != nil {
			logger.Error("Failed to record item failure",
				zap.String("id", item.ID), zap.Error(markErr))
		}

		if retryCount >= models.MaxSyncRetries {
			logger.Warn("Sync item exhausted all retries",
				zap.String("id", item.ID),
				zap.String("type", string(item.Type)),
				zap.Error(err),
			)
		} else {
			logger.Warn("Sync item delivery failed",
				zap.String("id", item.ID),
				zap.Int("retry_count", retryCount),
				zap.Error(err),
			)
		}

		// Fail fast against a dead network: keep the remaining items,
		// in order, for the next pass.
		if !e.connectivity.Online() {
			logger.Info("Offline mid-drain, aborting pass",
				zap.Int("synced", synced))
			break
		}
	}

	pruned, err := e.queue.PruneSynced(e.pruneKeep)
	if err != nil {
		logger.Error("Failed to prune synced items", zap.Error(err))
	} else if pruned > 0 {
		logger.Debug("Pruned synced items", zap.Int("count", pruned))
	}

	logger.Info("Drain pass complete", zap.Int("synced", synced))
	return synced
}

// PendingCount reports how many items are awaiting delivery, including
// exhausted ones left behind for inspection.
func (e *Engine) PendingCount() (int, error) {
	return e.queue.PendingCount()
}

// ExhaustedItems returns items that have permanently failed
func (e *Engine) ExhaustedItems() ([]*models.SyncQueueItem, error) {
	return e.queue.ListExhausted()
}

// deliver POSTs one item's payload to its mapped endpoint
func (e *Engine) deliver(item *models.SyncQueueItem) error {
	path, ok := endpoints[item.Type]
	if !ok {
		return fmt.Errorf("no endpoint mapped for sync item type %q", item.Type)
	}

	req, err := http.NewRequest(http.MethodPost, e.baseURL+path, bytes.NewReader(item.Payload))
	if err != nil {
		return fmt.Errorf("failed to build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sync endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
