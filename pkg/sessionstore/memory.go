package sessionstore

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/somtumlabs/placekit/pkg/auth"
)

// MemoryStore keeps the snapshot in process memory. Useful for tests and as
// an explicit "no durable persistence" store that still exercises the full
// serialization path.
type MemoryStore struct {
	mu     sync.RWMutex
	prefix string
	values map[string][]byte
}

// NewMemoryStore creates an empty in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prefix: DefaultKeyPrefix,
		values: make(map[string][]byte),
	}
}

// Save writes the snapshot as a set under the key prefix.
func (s *MemoryStore) Save(ctx context.Context, snap auth.Snapshot) error {
	pairs, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range pairs {
		s.values[s.prefix+":"+key] = value
	}
	return nil
}

// Load reads the snapshot back, all-or-nothing.
func (s *MemoryStore) Load(ctx context.Context) (*auth.Snapshot, error) {
	s.mu.RLock()
	raw := make(map[string][]byte, 3)
	for _, key := range []string{keySession, keyUser, keySavedAt} {
		value, ok := s.values[s.prefix+":"+key]
		if !ok {
			s.mu.RUnlock()
			return nil, auth.ErrSnapshotNotFound
		}
		raw[key] = value
	}
	s.mu.RUnlock()

	return decodeSnapshot(raw)
}

// Clear removes all snapshot keys.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range []string{keySession, keyUser, keySavedAt} {
		delete(s.values, s.prefix+":"+key)
	}
	return nil
}

// encodeSnapshot serializes the snapshot into its three keyed parts.
func encodeSnapshot(snap auth.Snapshot) (map[string][]byte, error) {
	session, err := json.Marshal(snap.Session)
	if err != nil {
		return nil, err
	}
	user, err := json.Marshal(snap.User)
	if err != nil {
		return nil, err
	}
	return map[string][]byte{
		keySession: session,
		keyUser:    user,
		keySavedAt: []byte(strconv.FormatInt(snap.SavedAt.Unix(), 10)),
	}, nil
}

// decodeSnapshot parses the three keyed parts; any failure turns the whole
// read into a miss so callers never observe a partial snapshot.
func decodeSnapshot(raw map[string][]byte) (*auth.Snapshot, error) {
	var snap auth.Snapshot
	if err := json.Unmarshal(raw[keySession], &snap.Session); err != nil {
		return nil, auth.ErrSnapshotNotFound
	}
	if err := json.Unmarshal(raw[keyUser], &snap.User); err != nil {
		return nil, auth.ErrSnapshotNotFound
	}
	savedAt, err := strconv.ParseInt(string(raw[keySavedAt]), 10, 64)
	if err != nil {
		return nil, auth.ErrSnapshotNotFound
	}
	snap.SavedAt = time.Unix(savedAt, 0)

	if !snap.Session.Valid() {
		return nil, auth.ErrSnapshotNotFound
	}
	return &snap, nil
}
