package netmon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/somtumlabs/placekit/pkg/logger"
)

// Probe reports whether the network is currently reachable. Implementations
// should be cheap and bounded; the monitor calls them on every poll tick.
type Probe func(ctx context.Context) bool

// Monitor polls a Probe and tracks connectivity transitions. The reported
// state is best-effort and may be stale by up to one poll interval.
type Monitor struct {
	probe    Probe
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger

	mu        sync.Mutex
	connected bool
	subs      map[int]func(connected bool)
	nextSubID int
	waiters   []chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the poll interval (default 15s).
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithProbeTimeout bounds each probe invocation (default 3s).
func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the logger for transition events.
func WithLogger(log *slog.Logger) Option {
	return func(m *Monitor) {
		if log != nil {
			m.log = log
		}
	}
}

// WithInitialState seeds connectivity before the first probe completes.
func WithInitialState(connected bool) Option {
	return func(m *Monitor) {
		m.connected = connected
	}
}

// New creates a Monitor and starts its polling loop. The probe runs once
// immediately so state settles before the first interval elapses. Callers
// must Close the monitor to stop the loop.
func New(probe Probe, opts ...Option) *Monitor {
	if probe == nil {
		panic("netmon: probe is required")
	}

	m := &Monitor{
		probe:    probe,
		interval: 15 * time.Second,
		timeout:  3 * time.Second,
		log:      logger.Discard(),
		subs:     make(map[int]func(bool)),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.Check(context.Background())
	go m.loop()

	return m
}

// Connected returns the last observed connectivity state.
func (m *Monitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Check runs the probe immediately and applies any transition. Returns the
// observed state.
func (m *Monitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	connected := m.probe(ctx)
	m.apply(connected)
	return connected
}

// WaitForConnection blocks until connectivity is observed or timeout
// elapses, returning true in the former case. Cancelling ctx also unblocks
// the wait with a false result.
func (m *Monitor) WaitForConnection(ctx context.Context, timeout time.Duration) bool {
	m.mu.Lock()
	if m.connected {
		m.mu.Unlock()
		return true
	}
	wait := make(chan struct{})
	m.waiters = append(m.waiters, wait)
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-wait:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	case <-m.done:
		return false
	}
}

// Subscribe registers fn to be called on every connectivity transition and
// returns an unsubscribe handle. The callback runs on the monitor's
// goroutine; it must not block.
func (m *Monitor) Subscribe(fn func(connected bool)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Close stops the polling loop. Idempotent.
func (m *Monitor) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	return nil
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(context.Background())
		case <-m.done:
			return
		}
	}
}

func (m *Monitor) apply(connected bool) {
	m.mu.Lock()
	if connected == m.connected {
		m.mu.Unlock()
		return
	}
	m.connected = connected

	var fns []func(bool)
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	var waiters []chan struct{}
	if connected {
		waiters = m.waiters
		m.waiters = nil
	}
	m.mu.Unlock()

	m.log.Debug("connectivity transition", slog.Bool("connected", connected))

	for _, wait := range waiters {
		close(wait)
	}
	for _, fn := range fns {
		fn(connected)
	}
}

// HTTPProbe reports reachability by issuing a HEAD request to url. Any
// response, including an error status, counts as connected; only transport
// failures count as offline.
func HTTPProbe(url string, client *http.Client) Probe {
	if client == nil {
		client = &http.Client{}
	}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}
}
