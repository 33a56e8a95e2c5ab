package config

import (
	"time"
)

// JWTConfig holds access token signing configuration
type JWTConfig struct {
	Secret            string `env:"JWT_SECRET" env-default:"change-me-in-production"`
	Issuer            string `env:"JWT_ISSUER" env-default:"console-auth"`
	Audience          string `env:"JWT_AUDIENCE" env-default:"gla1v3-console"`
	AccessTokenExpiry string `env:"ACCESS_TOKEN_EXPIRY" env-default:"24h"`
}

// ParseAccessTokenExpiry parses the access token expiry duration
func (j JWTConfig) ParseAccessTokenExpiry() (time.Duration, error) {
	return time.ParseDuration(j.AccessTokenExpiry)
}
