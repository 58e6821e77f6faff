package sessionstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somtumlabs/placekit/pkg/auth"
	"github.com/somtumlabs/placekit/pkg/sessionstore"
)

func testSnapshot() auth.Snapshot {
	id := uuid.New()
	return auth.Snapshot{
		Session: &auth.Session{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			ExpiresAt:    time.Now().Add(time.Hour).Unix(),
			UserID:       id,
			Email:        "somchai@example.com",
		},
		User: &auth.User{
			ID:          id,
			Email:       "somchai@example.com",
			FullName:    "Somchai J.",
			Preferences: map[string]any{"district": "Ari"},
		},
		SavedAt: time.Now().Truncate(time.Second),
	}
}

// storeUnderTest lets the shared contract run against every implementation.
type storeUnderTest struct {
	name string
	make func(t *testing.T) auth.SnapshotStore
}

func stores() []storeUnderTest {
	return []storeUnderTest{
		{
			name: "memory",
			make: func(t *testing.T) auth.SnapshotStore {
				return sessionstore.NewMemoryStore()
			},
		},
		{
			name: "file",
			make: func(t *testing.T) auth.SnapshotStore {
				s, err := sessionstore.NewFileStore(filepath.Join(t.TempDir(), "auth", "snapshot.json"))
				require.NoError(t, err)
				return s
			},
		},
	}
}

func TestStoreContract(t *testing.T) {
	t.Parallel()

	for _, tc := range stores() {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			t.Run("load before save is a miss", func(t *testing.T) {
				t.Parallel()

				s := tc.make(t)
				_, err := s.Load(context.Background())
				assert.ErrorIs(t, err, auth.ErrSnapshotNotFound)
			})

			t.Run("round trip", func(t *testing.T) {
				t.Parallel()

				s := tc.make(t)
				snap := testSnapshot()
				require.NoError(t, s.Save(context.Background(), snap))

				got, err := s.Load(context.Background())
				require.NoError(t, err)
				assert.Equal(t, snap.Session, got.Session)
				assert.Equal(t, snap.User, got.User)
				assert.Equal(t, snap.SavedAt.Unix(), got.SavedAt.Unix())
			})

			t.Run("save overwrites", func(t *testing.T) {
				t.Parallel()

				s := tc.make(t)
				require.NoError(t, s.Save(context.Background(), testSnapshot()))

				second := testSnapshot()
				second.Session.AccessToken = "rotated-access"
				second.Session.RefreshToken = "rotated-refresh"
				require.NoError(t, s.Save(context.Background(), second))

				got, err := s.Load(context.Background())
				require.NoError(t, err)
				assert.Equal(t, "rotated-access", got.Session.AccessToken)
			})

			t.Run("clear then load is a miss", func(t *testing.T) {
				t.Parallel()

				s := tc.make(t)
				require.NoError(t, s.Save(context.Background(), testSnapshot()))
				require.NoError(t, s.Clear(context.Background()))

				_, err := s.Load(context.Background())
				assert.ErrorIs(t, err, auth.ErrSnapshotNotFound)
			})

			t.Run("clear is idempotent", func(t *testing.T) {
				t.Parallel()

				s := tc.make(t)
				require.NoError(t, s.Clear(context.Background()))
				require.NoError(t, s.Clear(context.Background()))
			})

			t.Run("nil user round trips", func(t *testing.T) {
				t.Parallel()

				s := tc.make(t)
				snap := testSnapshot()
				snap.User = nil
				require.NoError(t, s.Save(context.Background(), snap))

				got, err := s.Load(context.Background())
				require.NoError(t, err)
				assert.Nil(t, got.User)
				assert.Equal(t, snap.Session.AccessToken, got.Session.AccessToken)
			})
		})
	}
}

func TestFileStoreRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := sessionstore.NewFileStore("")
	assert.Error(t, err)
}

func TestFileStoreCorruptFileIsAMiss(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "snapshot.json")
	s, err := sessionstore.NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, auth.ErrSnapshotNotFound)
}

func TestFileStorePartialSnapshotIsAMiss(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "snapshot.json")
	s, err := sessionstore.NewFileStore(path)
	require.NoError(t, err)

	// Parsable document, but the session inside is incomplete.
	doc := `{"session":{"access_token":"only-half"},"user":null,"saved_at":1}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, auth.ErrSnapshotNotFound)
}

func TestFileStoreWritesWithOwnerOnlyPermissions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "snapshot.json")
	s, err := sessionstore.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), testSnapshot()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "tokens on disk stay owner-readable only")
}
