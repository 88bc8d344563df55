// Package connectivity watches whether the server is reachable, replays
// pending notes when it comes back, and keeps a polled pending count for display.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atinyakov/QuoteKeeper/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultProbeInterval is how often reachability is checked.
	DefaultProbeInterval = 10 * time.Second
	// DefaultPendingInterval is how often the pending count is recomputed.
	DefaultPendingInterval = 5 * time.Second
)

// ErrOffline is returned by SyncNow while the server is unreachable.
var ErrOffline = errors.New("no connection to the server")

// Prober checks whether the server can be reached.
type Prober interface {
	Probe(ctx context.Context) error
}

// PendingSyncer is the part of the sync engine the monitor drives.
type PendingSyncer interface {
	SyncAllPending(ctx context.Context) (models.SyncReport, error)
	PendingCount(ctx context.Context) (int, error)
}

// Status is a point-in-time view for display.
type Status struct {
	Online  bool
	Pending int
}

// HTTPProber issues GET requests to a health URL. Any response below 500 counts as reachable.
type HTTPProber struct {
	Client *http.Client
	URL    string
}

// Probe implements Prober.
func (p HTTPProber) Probe(ctx context.Context) error {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("health check: status %d", resp.StatusCode)
	}
	return nil
}

// Monitor tracks connectivity and the pending count.
type Monitor struct {
	prober Prober
	syncer PendingSyncer
	log    *zap.Logger

	probeInterval   time.Duration
	pendingInterval time.Duration
	onStatus        func(Status)

	online  atomic.Bool
	pending atomic.Int64

	// syncMu keeps at most one sync-all pass running.
	syncMu sync.Mutex
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithIntervals overrides the probe and pending-count intervals.
func WithIntervals(probe, pending time.Duration) Option {
	return func(m *Monitor) {
		if probe > 0 {
			m.probeInterval = probe
		}
		if pending > 0 {
			m.pendingInterval = pending
		}
	}
}

// WithOnStatus registers a callback fired whenever the online flag or the pending count changes.
func WithOnStatus(fn func(Status)) Option {
	return func(m *Monitor) { m.onStatus = fn }
}

// WithInitialOnline sets the state assumed before the first probe. The default is offline.
func WithInitialOnline(online bool) Option {
	return func(m *Monitor) { m.online.Store(online) }
}

// New creates a Monitor. A nil prober means connectivity only changes through SetOnline.
func New(prober Prober, syncer PendingSyncer, log *zap.Logger, opts ...Option) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Monitor{
		prober:          prober,
		syncer:          syncer,
		log:             log,
		probeInterval:   DefaultProbeInterval,
		pendingInterval: DefaultPendingInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Online reports the last known connectivity.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// PendingCount returns the last computed pending count.
func (m *Monitor) PendingCount() int {
	return int(m.pending.Load())
}

// Status returns the current online flag and pending count.
func (m *Monitor) Status() Status {
	return Status{Online: m.Online(), Pending: m.PendingCount()}
}

// Run probes connectivity and refreshes the pending count until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)
	m.Refresh(ctx)

	probe := time.NewTicker(m.probeInterval)
	defer probe.Stop()
	pending := time.NewTicker(m.pendingInterval)
	defer pending.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-probe.C:
			m.Check(ctx)
		case <-pending.C:
			m.Refresh(ctx)
		}
	}
}

// Check probes the server once and applies the result.
func (m *Monitor) Check(ctx context.Context) {
	if online, ok := m.probe(ctx); ok {
		m.SetOnline(ctx, online)
	}
}

// Reachable probes the server once and records the result without replaying
// pending notes, leaving that to a following SyncNow.
func (m *Monitor) Reachable(ctx context.Context) bool {
	if online, ok := m.probe(ctx); ok && m.online.Swap(online) != online {
		m.notify()
	}
	return m.Online()
}

// probe reports reachability. ok is false when there is no prober or ctx ended mid-probe.
func (m *Monitor) probe(ctx context.Context) (online, ok bool) {
	if m.prober == nil {
		return false, false
	}
	err := m.prober.Probe(ctx)
	if err != nil && ctx.Err() != nil {
		return false, false
	}
	if err != nil {
		m.log.Debug("probe failed", zap.Error(err))
	}
	return err == nil, true
}

// SetOnline records the connectivity state. A transition from offline to
// online replays every pending note before returning.
func (m *Monitor) SetOnline(ctx context.Context, online bool) {
	was := m.online.Swap(online)
	if was == online {
		return
	}

	if online {
		m.log.Info("connection restored, syncing pending notes")
	} else {
		m.log.Info("connection lost, working offline")
	}
	m.notify()

	if online {
		if _, err := m.syncAll(ctx); err != nil {
			m.log.Warn("automatic sync failed", zap.Error(err))
		}
	}
}

// SyncNow replays pending notes on demand.
func (m *Monitor) SyncNow(ctx context.Context) (models.SyncReport, error) {
	if !m.Online() {
		return models.SyncReport{}, ErrOffline
	}
	return m.syncAll(ctx)
}

// Refresh recomputes the pending count.
func (m *Monitor) Refresh(ctx context.Context) {
	n, err := m.syncer.PendingCount(ctx)
	if err != nil {
		m.log.Warn("pending count failed", zap.Error(err))
		return
	}
	if m.pending.Swap(int64(n)) != int64(n) {
		m.notify()
	}
}

func (m *Monitor) syncAll(ctx context.Context) (models.SyncReport, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	report, err := m.syncer.SyncAllPending(ctx)
	m.Refresh(ctx)
	return report, err
}

func (m *Monitor) notify() {
	if m.onStatus != nil {
		m.onStatus(m.Status())
	}
}
