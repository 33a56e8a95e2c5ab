// Package config holds the environment-driven configuration for the console
// authentication service. Every struct is a cleanenv env-tag struct; Load
// reads the whole tree from the process environment in one call.
package config

import (
	"github.com/ilyakaznacheev/cleanenv"
)

// Config aggregates all service configuration
type Config struct {
	Database  DatabaseConfig
	JWT       JWTConfig
	Pending   PendingAuthConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Email     EmailConfig
}

// Load reads the full configuration from environment variables
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
