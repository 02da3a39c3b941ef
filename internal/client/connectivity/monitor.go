// Package connectivity tracks whether the device is online. A Monitor polls
// a Prober on a fixed interval and exposes the last observed flags; any probe
// failure is treated as offline.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/agriai/agrisync/internal/logging"
)

// DefaultInterval is the poll period used when none is configured.
const DefaultInterval = 5 * time.Second

const probeTimeout = 3 * time.Second

// Mode is the coarse online/offline label logged on transitions.
type Mode string

const (
	ModeUnknown Mode = ""
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// State is one sample of the network flags.
type State struct {
	Connected         bool
	InternetReachable bool
	CheckedAt         time.Time
}

func (s State) mode() Mode {
	if s.Connected {
		return ModeOnline
	}
	return ModeOffline
}

// Monitor polls a Prober. The zero state is offline until the first probe.
type Monitor struct {
	prober   Prober
	interval time.Duration
	log      logging.Logger
	now      func() time.Time

	mu    sync.RWMutex
	state State
	mode  Mode

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(p Prober, interval time.Duration, log logging.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Monitor{prober: p, interval: interval, log: log, now: time.Now}
}

// Start probes once, then keeps polling in the background until ctx is done
// or Stop is called. Calling Start on a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return
	}

	m.Refresh(ctx)

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(loopCtx, m.done)
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends polling and waits for the poll goroutine to exit.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Refresh probes now and stores the result.
func (m *Monitor) Refresh(ctx context.Context) State {
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	st, err := m.prober.Probe(pctx)
	cancel()

	if err != nil {
		m.log.Warn(ctx, "network probe failed", "error", err)
		st = State{}
	}
	st.CheckedAt = m.now()

	m.mu.Lock()
	m.state = st
	prev := m.mode
	m.mode = st.mode()
	m.mu.Unlock()

	if prev != st.mode() {
		m.log.Info(ctx, "connectivity changed", "mode", string(st.mode()), "internet_reachable", st.InternetReachable)
	}
	return st
}

func (m *Monitor) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Connected
}

func (m *Monitor) IsInternetReachable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.InternetReachable
}

func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}
