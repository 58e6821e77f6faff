package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/somtumlabs/placekit/pkg/retry"
)

// Connect establishes a Redis connection, retrying with backoff until the
// server answers a ping or the attempt budget runs out. The whole sequence is
// bounded by cfg.ConnectTimeout.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrInvalidConnectionURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := retry.Do(ctx,
		retry.Policy{MaxAttempts: cfg.RetryAttempts, BaseDelay: cfg.RetryInterval},
		func(ctx context.Context) (*redis.Client, error) {
			client := redis.NewClient(opt)
			if err := client.Ping(ctx).Err(); err != nil {
				_ = client.Close()
				return nil, err
			}
			return client, nil
		},
	)
	if err != nil {
		return nil, errors.Join(ErrNotReady, err)
	}
	return client, nil
}
