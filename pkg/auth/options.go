package auth

import (
	"log/slog"
	"time"

	"github.com/somtumlabs/placekit/pkg/retry"
)

// Connectivity is the slice of the network monitor the manager consumes.
type Connectivity interface {
	Connected() bool
	Subscribe(fn func(connected bool)) (unsubscribe func())
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig replaces the entire lifecycle configuration.
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		m.config = cfg
	}
}

// WithStore sets the durable snapshot store. Without one, persistence is
// disabled and every recovery attempt is a miss.
func WithStore(store SnapshotStore) Option {
	return func(m *Manager) {
		if store != nil {
			m.store = store
		}
	}
}

// WithConnectivity wires a network monitor for reconnect reconciliation.
func WithConnectivity(netmon Connectivity) Option {
	return func(m *Manager) {
		m.netmon = netmon
	}
}

// WithLogger sets the manager's logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSleep injects the backoff sleep used between retry attempts so tests
// can simulate elapsed time without real delays.
func WithSleep(sleep retry.SleepFunc) Option {
	return func(m *Manager) {
		if sleep != nil {
			m.sleep = sleep
		}
	}
}

// WithFailsafeTimeout overrides the Initializing failsafe window.
func WithFailsafeTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.config.FailsafeTimeout = d
		}
	}
}

// WithRecoveryGraceWindow overrides how long past expiry a stored session
// is still recoverable.
func WithRecoveryGraceWindow(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.config.RecoveryGraceWindow = d
		}
	}
}

// WithRefreshInterval overrides the periodic refresh cadence. Zero disables
// the periodic loop.
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.config.RefreshInterval = d
	}
}
