// Package redis connects to a Redis server with retry and exposes a
// healthcheck probe. Server-side embedders pair it with
// sessionstore.NewRedisStore:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	store := sessionstore.NewRedisStore(client)
package redis
