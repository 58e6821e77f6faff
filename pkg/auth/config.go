package auth

import "time"

// Config holds session lifecycle tuning. Every window here exists to bound
// an otherwise unbounded wait; none of them affects correctness of the
// state machine, only how quickly it settles.
type Config struct {
	// FailsafeTimeout bounds the Initializing state. When it fires the
	// manager falls back to the best available snapshot and clears the
	// loading flag unconditionally.
	FailsafeTimeout time.Duration `env:"AUTH_FAILSAFE_TIMEOUT" envDefault:"10s"`

	// RecoveryGraceWindow is how long past its expiry a stored session is
	// still adopted on recovery, bridging brief backend unavailability.
	RecoveryGraceWindow time.Duration `env:"AUTH_RECOVERY_GRACE_WINDOW" envDefault:"24h"`

	// SessionTimeout bounds a single session fetch or refresh call.
	SessionTimeout time.Duration `env:"AUTH_SESSION_TIMEOUT" envDefault:"8s"`

	// ProfileTimeout bounds a single profile fetch or update call.
	ProfileTimeout time.Duration `env:"AUTH_PROFILE_TIMEOUT" envDefault:"5s"`

	// OperationCeiling clamps any single operation's deadline.
	OperationCeiling time.Duration `env:"AUTH_OPERATION_CEILING" envDefault:"60s"`

	// RefreshInterval is the periodic refresh check cadence.
	RefreshInterval time.Duration `env:"AUTH_REFRESH_INTERVAL" envDefault:"60s"`

	// RefreshLeeway triggers a refresh when the session expires within it.
	RefreshLeeway time.Duration `env:"AUTH_REFRESH_LEEWAY" envDefault:"5m"`

	// RetryAttempts is the total attempt budget for transient failures.
	RetryAttempts int `env:"AUTH_RETRY_ATTEMPTS" envDefault:"3"`

	// RetryBaseDelay seeds the exponential backoff between attempts.
	RetryBaseDelay time.Duration `env:"AUTH_RETRY_BASE_DELAY" envDefault:"500ms"`

	// StoreTimeout bounds best-effort snapshot store calls.
	StoreTimeout time.Duration `env:"AUTH_STORE_TIMEOUT" envDefault:"2s"`
}

// DefaultConfig returns the default lifecycle configuration.
func DefaultConfig() Config {
	return Config{
		FailsafeTimeout:     10 * time.Second,
		RecoveryGraceWindow: 24 * time.Hour,
		SessionTimeout:      8 * time.Second,
		ProfileTimeout:      5 * time.Second,
		OperationCeiling:    60 * time.Second,
		RefreshInterval:     60 * time.Second,
		RefreshLeeway:       5 * time.Minute,
		RetryAttempts:       3,
		RetryBaseDelay:      500 * time.Millisecond,
		StoreTimeout:        2 * time.Second,
	}
}

// sessionDeadline returns the session call timeout clamped to the ceiling.
func (c Config) sessionDeadline() time.Duration {
	return clampDeadline(c.SessionTimeout, c.OperationCeiling)
}

// profileDeadline returns the profile call timeout clamped to the ceiling.
func (c Config) profileDeadline() time.Duration {
	return clampDeadline(c.ProfileTimeout, c.OperationCeiling)
}

func clampDeadline(d, ceiling time.Duration) time.Duration {
	if ceiling > 0 && d > ceiling {
		return ceiling
	}
	return d
}
