package config

import (
	"time"

	"github.com/gla1v3/console-auth/pkg/ratelimit"
)

// RateLimitConfig contains per-IP throttling settings. Refill rates are
// expressed as requests per minute for readability.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" env-default:"true"`

	PerIPPerMinute  int `env:"RATE_LIMIT_PER_IP" env-default:"100"`
	LoginPerMinute  int `env:"RATE_LIMIT_LOGIN" env-default:"10"`
	VerifyPerMinute int `env:"RATE_LIMIT_VERIFY" env-default:"15"`
}

// ToMiddlewareConfig converts the env settings to a ratelimit.Config.
// Returns nil when rate limiting is disabled.
func (r RateLimitConfig) ToMiddlewareConfig() *ratelimit.Config {
	if !r.Enabled {
		return nil
	}
	return &ratelimit.Config{
		PerIPEnabled:    r.PerIPPerMinute > 0,
		PerIPCapacity:   r.PerIPPerMinute,
		PerIPRefillRate: float64(r.PerIPPerMinute) / 60.0,

		LoginCapacity:   r.LoginPerMinute,
		LoginRefillRate: float64(r.LoginPerMinute) / 60.0,

		VerifyCapacity:   r.VerifyPerMinute,
		VerifyRefillRate: float64(r.VerifyPerMinute) / 60.0,

		BucketTTL:      1 * time.Hour,
		IncludeHeaders: true,
	}
}
