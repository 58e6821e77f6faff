// Package config loads typed configuration structs from environment
// variables using caarlos0/env tags, with optional .env file support via
// godotenv for local development.
//
//	type Config struct {
//	    BaseURL string        `env:"IDP_BASE_URL,required"`
//	    Timeout time.Duration `env:"IDP_REQUEST_TIMEOUT" envDefault:"10s"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
package config
