package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/somtumlabs/placekit/pkg/auth"
)

// FileStore persists the snapshot as a single JSON document on disk,
// written atomically via a temp file and rename so a crash mid-write never
// leaves a partial snapshot behind. This is the store a device embedding
// the SDK normally uses.
type FileStore struct {
	path string
}

// fileSnapshot is the on-disk document: the three logical keys in one file
// so they are written and read as a set.
type fileSnapshot struct {
	Session json.RawMessage `json:"session"`
	User    json.RawMessage `json:"user"`
	SavedAt int64           `json:"saved_at"`
}

// NewFileStore creates a store writing to path. The parent directory is
// created on first save.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("sessionstore: file path is required")
	}
	return &FileStore{path: path}, nil
}

// Save writes the snapshot atomically.
func (s *FileStore) Save(ctx context.Context, snap auth.Snapshot) error {
	session, err := json.Marshal(snap.Session)
	if err != nil {
		return fmt.Errorf("sessionstore: encode session: %w", err)
	}
	user, err := json.Marshal(snap.User)
	if err != nil {
		return fmt.Errorf("sessionstore: encode user: %w", err)
	}

	doc, err := json.Marshal(fileSnapshot{
		Session: session,
		User:    user,
		SavedAt: snap.SavedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("sessionstore: encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("sessionstore: create directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, doc, 0o600); err != nil {
		return fmt.Errorf("sessionstore: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("sessionstore: commit snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot back; a missing or unparsable file is a miss.
func (s *FileStore) Load(ctx context.Context) (*auth.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, auth.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("sessionstore: read snapshot: %w", err)
	}

	var doc fileSnapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, auth.ErrSnapshotNotFound
	}

	var snap auth.Snapshot
	if err := json.Unmarshal(doc.Session, &snap.Session); err != nil {
		return nil, auth.ErrSnapshotNotFound
	}
	if err := json.Unmarshal(doc.User, &snap.User); err != nil {
		return nil, auth.ErrSnapshotNotFound
	}
	snap.SavedAt = time.Unix(doc.SavedAt, 0)

	if !snap.Session.Valid() {
		return nil, auth.ErrSnapshotNotFound
	}
	return &snap, nil
}

// Clear removes the snapshot file. Clearing an already-missing file is not
// an error, which keeps sign-out idempotent.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("sessionstore: remove snapshot: %w", err)
	}
	return nil
}
