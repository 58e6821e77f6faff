package sessionstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/somtumlabs/placekit/pkg/auth"
)

// RedisStore mirrors the snapshot into Redis under the key prefix. Suited
// to server-side embedders of the SDK that want sessions to survive across
// hosts. The three keys are written in a single MSET and read in a single
// MGET so Load stays all-or-nothing.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the default key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL expires stored snapshots after d. Zero keeps them until cleared.
// The TTL should comfortably exceed the recovery grace window, otherwise
// recoverable sessions vanish before the manager can adopt them.
func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = d
	}
}

// NewRedisStore creates a Redis-backed snapshot store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("sessionstore: redis client is required")
	}
	s := &RedisStore{
		client: client,
		prefix: DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save writes all three keys in one round trip.
func (s *RedisStore) Save(ctx context.Context, snap auth.Snapshot) error {
	pairs, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	args := make([]any, 0, len(pairs)*2)
	for key, value := range pairs {
		args = append(args, s.key(key), value)
	}
	if err := s.client.MSet(ctx, args...).Err(); err != nil {
		return err
	}

	if s.ttl > 0 {
		pipe := s.client.Pipeline()
		for key := range pairs {
			pipe.Expire(ctx, s.key(key), s.ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Load reads all three keys; any nil value is a miss for the whole set.
func (s *RedisStore) Load(ctx context.Context) (*auth.Snapshot, error) {
	values, err := s.client.MGet(ctx, s.key(keySession), s.key(keyUser), s.key(keySavedAt)).Result()
	if err != nil {
		return nil, err
	}

	raw := make(map[string][]byte, 3)
	for i, key := range []string{keySession, keyUser, keySavedAt} {
		str, ok := values[i].(string)
		if !ok {
			return nil, auth.ErrSnapshotNotFound
		}
		raw[key] = []byte(str)
	}

	return decodeSnapshot(raw)
}

// Clear removes the snapshot keys.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key(keySession), s.key(keyUser), s.key(keySavedAt)).Err()
}

func (s *RedisStore) key(part string) string {
	return s.prefix + ":" + part
}
