package redis

import "time"

// Config describes the Redis connection used by the snapshot store.
type Config struct {
	// ConnectionURL in the form "redis://:password@localhost:6379/0".
	ConnectionURL string `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`

	// RetryAttempts is the total number of connection attempts.
	RetryAttempts int `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`

	// RetryInterval is the delay before the first reconnection attempt;
	// subsequent attempts back off from it.
	RetryInterval time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`

	// ConnectTimeout bounds the whole connection sequence including retries.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}
