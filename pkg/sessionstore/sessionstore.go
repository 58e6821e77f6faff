package sessionstore

import "github.com/somtumlabs/placekit/pkg/auth"

// DefaultKeyPrefix namespaces all snapshot keys so the store can share a
// backend with other application data.
const DefaultKeyPrefix = "placekit:auth"

const (
	keySession = "session"
	keyUser    = "user"
	keySavedAt = "saved_at"
)

// Compile-time interface assertions
var (
	_ auth.SnapshotStore = (*MemoryStore)(nil)
	_ auth.SnapshotStore = (*FileStore)(nil)
	_ auth.SnapshotStore = (*RedisStore)(nil)
)
