package connectivity

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMonitor_StartProbesImmediately(t *testing.T) {
	p := NewStaticProber(true, true)
	m := NewMonitor(p, time.Hour, nil)

	require.False(t, m.IsConnected(), "offline before the first probe")

	m.Start(context.Background())
	defer m.Stop()

	require.True(t, m.IsConnected())
	require.True(t, m.IsInternetReachable())
	require.False(t, m.State().CheckedAt.IsZero())
}

func TestMonitor_PollPicksUpChanges(t *testing.T) {
	p := NewStaticProber(false, false)
	m := NewMonitor(p, 10*time.Millisecond, nil)
	m.Start(context.Background())
	defer m.Stop()

	require.False(t, m.IsConnected())
	p.Set(true, false)
	require.Eventually(t, m.IsConnected, time.Second, 5*time.Millisecond)
	require.False(t, m.IsInternetReachable())

	p.Set(false, false)
	require.Eventually(t, func() bool { return !m.IsConnected() }, time.Second, 5*time.Millisecond)
}

func TestMonitor_ProbeFailureForcesOffline(t *testing.T) {
	var fail atomic.Bool
	p := ProberFunc(func(context.Context) (State, error) {
		if fail.Load() {
			return State{Connected: true, InternetReachable: true}, errors.New("probe broke")
		}
		return State{Connected: true, InternetReachable: true}, nil
	})
	m := NewMonitor(p, time.Hour, nil)

	require.True(t, m.Refresh(context.Background()).Connected)

	fail.Store(true)
	st := m.Refresh(context.Background())
	require.False(t, st.Connected)
	require.False(t, st.InternetReachable)
	require.False(t, m.IsConnected())
}

func TestMonitor_StopIsIdempotentAndWaits(t *testing.T) {
	var probes atomic.Int32
	p := ProberFunc(func(context.Context) (State, error) {
		probes.Add(1)
		return State{Connected: true}, nil
	})
	m := NewMonitor(p, 5*time.Millisecond, nil)

	m.Start(context.Background())
	m.Start(context.Background())
	require.Eventually(t, func() bool { return probes.Load() > 2 }, time.Second, 5*time.Millisecond)

	m.Stop()
	m.Stop()
	after := probes.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, after, probes.Load(), "no probes after Stop")
}

func TestMonitor_ContextCancelEndsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewMonitor(NewStaticProber(true, true), 5*time.Millisecond, nil)
	m.Start(ctx)
	cancel()
	m.Stop()
}

func TestNetworkProber_DialsAddr(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	st, err := NetworkProber{Addr: ln.Addr().String(), DialTimeout: time.Second}.Probe(context.Background())
	require.NoError(t, err)
	if st.Connected {
		require.True(t, st.InternetReachable)
	} else {
		require.False(t, st.InternetReachable)
	}
}
