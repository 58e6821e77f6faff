package auth

import (
	"context"
	"time"
)

// Snapshot is a persisted (Session, User) pair with the time it was saved.
// Snapshots exist purely for degraded-mode continuity: they are only ever
// replaced by a strictly newer successful result, never by a failure.
type Snapshot struct {
	Session *Session  `json:"session"`
	User    *User     `json:"user"`
	SavedAt time.Time `json:"saved_at"`
}

// SnapshotStore mirrors the manager's state across process restarts. It is a
// passive mirror with no independent authority: on conflict the in-memory
// state wins and is rewritten. Persistence is best-effort: implementations
// return errors, but callers swallow and log them.
type SnapshotStore interface {
	// Save writes the snapshot as a set. Partial writes must not be
	// observable by Load.
	Save(ctx context.Context, snap Snapshot) error

	// Load reads the stored snapshot, all-or-nothing: if any part is
	// missing or fails to parse the whole read is ErrSnapshotNotFound.
	Load(ctx context.Context) (*Snapshot, error)

	// Clear removes the stored snapshot. Invoked only on explicit,
	// user-initiated sign-out or a confirmed-permanent auth failure,
	// never on a transient read/refresh failure.
	Clear(ctx context.Context) error
}

// nopStore is the default store when none is configured: every load is a
// miss, every write succeeds silently.
type nopStore struct{}

func (nopStore) Save(context.Context, Snapshot) error    { return nil }
func (nopStore) Load(context.Context) (*Snapshot, error) { return nil, ErrSnapshotNotFound }
func (nopStore) Clear(context.Context) error             { return nil }
