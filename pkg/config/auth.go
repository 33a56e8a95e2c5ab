package config

import (
	"time"
)

// PendingAuthConfig controls the window between the password check and the
// second factor
type PendingAuthConfig struct {
	TTL         string `env:"PENDING_TOKEN_TTL" env-default:"5m"`
	MaxAttempts int    `env:"PENDING_MAX_ATTEMPTS" env-default:"5"`
}

// ParseTTL parses the pending token lifetime
func (p PendingAuthConfig) ParseTTL() (time.Duration, error) {
	return time.ParseDuration(p.TTL)
}

// SessionConfig controls server-side session lifetime
type SessionConfig struct {
	TTL string `env:"SESSION_TTL" env-default:"24h"`
}

// ParseTTL parses the session lifetime
func (s SessionConfig) ParseTTL() (time.Duration, error) {
	return time.ParseDuration(s.TTL)
}
