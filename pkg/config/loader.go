package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from environment variables using its `env` tags. All
// gateway configuration comes in this way; there is no config file.
//
// Example:
//
//	type Config struct {
//	    Port       int           `env:"HTTP_PORT" envDefault:"8080"`
//	    SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
