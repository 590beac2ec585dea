package platform

import (
	"net/http"
	"sync"
	"time"

	"alert-agent/pkg/logger"

	"go.uber.org/zap"
)

// ConnectivityMonitor reports whether the network is reachable and
// notifies subscribers when that changes. Subscribers are invoked with
// the new state; the sync engine uses the online=true edge as a drain
// trigger.
type ConnectivityMonitor interface {
	Online() bool
	Subscribe(fn func(online bool))
}

// ProbeMonitor determines reachability by periodically issuing a HEAD
// request against a probe URL, normally the sync backend itself.
type ProbeMonitor struct {
	probeURL string
	interval time.Duration
	client   *http.Client

	mu          sync.Mutex
	online      bool
	subscribers []func(online bool)
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewProbeMonitor creates a monitor that probes url every interval.
// The monitor starts offline; the first successful probe flips it.
func NewProbeMonitor(url string, interval time.Duration) *ProbeMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ProbeMonitor{
		probeURL: url,
		interval: interval,
		client:   &http.Client{Timeout: 10 * time.Second},
		stop:     make(chan struct{}),
	}
}

// Online reports the last observed reachability state
func (m *ProbeMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a callback for reachability changes
func (m *ProbeMonitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Start launches the probe loop. An immediate probe runs before the
// first tick so startup does not wait a full interval.
func (m *ProbeMonitor) Start() {
	go func() {
		m.probe()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.probe()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop terminates the probe loop
func (m *ProbeMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *ProbeMonitor) probe() {
	online := false
	resp, err := m.client.Head(m.probeURL)
	if err == nil {
		resp.Body.Close()
		online = true
	}
	m.setOnline(online)
}

func (m *ProbeMonitor) setOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	subscribers := make([]func(bool), len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.Unlock()

	if !changed {
		return
	}

	logger.Info("Connectivity changed", zap.Bool("online", online))
	for _, fn := range subscribers {
		fn(online)
	}
}
