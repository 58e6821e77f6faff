package netmon_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somtumlabs/placekit/pkg/netmon"
)

func boolProbe(v *atomic.Bool) netmon.Probe {
	return func(ctx context.Context) bool { return v.Load() }
}

func TestNewRequiresProbe(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { netmon.New(nil) })
}

func TestInitialProbeSettlesState(t *testing.T) {
	t.Parallel()

	var online atomic.Bool
	online.Store(true)

	m := netmon.New(boolProbe(&online), netmon.WithInterval(time.Hour))
	t.Cleanup(func() { _ = m.Close() })

	assert.True(t, m.Connected(), "New probes once before returning")
}

func TestPollDetectsTransitions(t *testing.T) {
	t.Parallel()

	var online atomic.Bool
	m := netmon.New(boolProbe(&online), netmon.WithInterval(5*time.Millisecond))
	t.Cleanup(func() { _ = m.Close() })

	require.False(t, m.Connected())

	online.Store(true)
	require.Eventually(t, m.Connected, time.Second, 2*time.Millisecond)

	online.Store(false)
	require.Eventually(t, func() bool { return !m.Connected() }, time.Second, 2*time.Millisecond)
}

func TestSubscribeSeesTransitionsUntilUnsubscribed(t *testing.T) {
	t.Parallel()

	var online atomic.Bool
	m := netmon.New(boolProbe(&online), netmon.WithInterval(time.Hour))
	t.Cleanup(func() { _ = m.Close() })

	var events []bool
	unsubscribe := m.Subscribe(func(connected bool) {
		events = append(events, connected)
	})

	online.Store(true)
	m.Check(context.Background())
	m.Check(context.Background()) // same state, no callback

	online.Store(false)
	m.Check(context.Background())

	unsubscribe()
	online.Store(true)
	m.Check(context.Background())

	assert.Equal(t, []bool{true, false}, events)
}

func TestWaitForConnection(t *testing.T) {
	t.Parallel()

	t.Run("already connected", func(t *testing.T) {
		t.Parallel()

		var online atomic.Bool
		online.Store(true)
		m := netmon.New(boolProbe(&online), netmon.WithInterval(time.Hour))
		t.Cleanup(func() { _ = m.Close() })

		assert.True(t, m.WaitForConnection(context.Background(), time.Millisecond))
	})

	t.Run("unblocks on reconnect", func(t *testing.T) {
		t.Parallel()

		var online atomic.Bool
		m := netmon.New(boolProbe(&online), netmon.WithInterval(time.Hour))
		t.Cleanup(func() { _ = m.Close() })

		result := make(chan bool, 1)
		go func() {
			result <- m.WaitForConnection(context.Background(), 5*time.Second)
		}()

		time.Sleep(10 * time.Millisecond)
		online.Store(true)
		m.Check(context.Background())

		select {
		case got := <-result:
			assert.True(t, got)
		case <-time.After(time.Second):
			t.Fatal("WaitForConnection did not unblock on reconnect")
		}
	})

	t.Run("times out while offline", func(t *testing.T) {
		t.Parallel()

		var online atomic.Bool
		m := netmon.New(boolProbe(&online), netmon.WithInterval(time.Hour))
		t.Cleanup(func() { _ = m.Close() })

		assert.False(t, m.WaitForConnection(context.Background(), 10*time.Millisecond))
	})

	t.Run("unblocks on context cancel", func(t *testing.T) {
		t.Parallel()

		var online atomic.Bool
		m := netmon.New(boolProbe(&online), netmon.WithInterval(time.Hour))
		t.Cleanup(func() { _ = m.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, m.WaitForConnection(ctx, 5*time.Second))
	})
}

func TestWithInitialState(t *testing.T) {
	t.Parallel()

	// Probe contradicts the seed; the immediate check wins.
	var online atomic.Bool
	m := netmon.New(boolProbe(&online), netmon.WithInitialState(true), netmon.WithInterval(time.Hour))
	t.Cleanup(func() { _ = m.Close() })

	assert.False(t, m.Connected())
}

func TestHTTPProbe(t *testing.T) {
	t.Parallel()

	t.Run("any response counts as connected", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		t.Cleanup(srv.Close)

		probe := netmon.HTTPProbe(srv.URL, srv.Client())
		assert.True(t, probe(context.Background()))
	})

	t.Run("transport failure counts as offline", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // connection refused from here on

		probe := netmon.HTTPProbe(srv.URL, nil)
		assert.False(t, probe(context.Background()))
	})
}
