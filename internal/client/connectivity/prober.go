package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/agriai/agrisync/internal/netx"
)

// Prober samples the current network state once.
type Prober interface {
	Probe(ctx context.Context) (State, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) (State, error)

func (f ProberFunc) Probe(ctx context.Context) (State, error) { return f(ctx) }

// NetworkProber reports connected when a non-loopback interface is up, and
// internet-reachable when a TCP connection to Addr succeeds.
type NetworkProber struct {
	Addr        string
	DialTimeout time.Duration
}

func (p NetworkProber) Probe(ctx context.Context) (State, error) {
	up, err := netx.HasActiveInterface()
	if err != nil {
		return State{}, err
	}
	st := State{Connected: up}
	if !up || p.Addr == "" {
		return st, nil
	}
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	st.InternetReachable = netx.CanDial(ctx, p.Addr, timeout) == nil
	return st, nil
}

// StaticProber reports fixed flags. It backs forced-offline mode and tests;
// Set changes the flags seen by the next probe.
type StaticProber struct {
	mu    sync.Mutex
	state State
}

func NewStaticProber(connected, reachable bool) *StaticProber {
	return &StaticProber{state: State{Connected: connected, InternetReachable: reachable}}
}

func (p *StaticProber) Set(connected, reachable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = State{Connected: connected, InternetReachable: reachable}
}

func (p *StaticProber) Probe(context.Context) (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, nil
}
