package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config holds rate limiting configuration for the console API. Login and
// second-factor verification get much tighter per-IP budgets than the rest
// of the surface, since each request there is a credential guess.
type Config struct {
	// Per-IP budget across all endpoints
	PerIPEnabled    bool
	PerIPCapacity   int
	PerIPRefillRate float64 // requests per second

	// Per-IP budget for POST login
	LoginCapacity   int
	LoginRefillRate float64

	// Per-IP budget for POST second-factor verification
	VerifyCapacity   int
	VerifyRefillRate float64

	// How long inactive buckets stay in memory
	BucketTTL time.Duration

	// Include X-RateLimit-* headers in responses
	IncludeHeaders bool
}

// DefaultConfig returns the default console budgets
func DefaultConfig() *Config {
	return &Config{
		PerIPEnabled:    true,
		PerIPCapacity:   100,
		PerIPRefillRate: 100.0 / 60.0,

		// 10 password guesses per minute per IP
		LoginCapacity:   10,
		LoginRefillRate: 10.0 / 60.0,

		// 15 factor submissions per minute per IP; the pending token's own
		// attempt budget is the hard stop, this just slows the outer loop
		VerifyCapacity:   15,
		VerifyRefillRate: 15.0 / 60.0,

		BucketTTL:      1 * time.Hour,
		IncludeHeaders: true,
	}
}

// Middleware holds the rate limiting middleware state
type Middleware struct {
	config        *Config
	ipLimiter     *RateLimiter
	loginLimiter  *RateLimiter
	verifyLimiter *RateLimiter
	loginPath     string
	verifyPath    string
}

// NewMiddleware creates a new rate limiting middleware. loginPath and
// verifyPath are the mounted request paths of the login and second-factor
// verification endpoints.
func NewMiddleware(config *Config, loginPath, verifyPath string) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}

	m := &Middleware{
		config:     config,
		loginPath:  loginPath,
		verifyPath: verifyPath,
	}

	if config.PerIPEnabled {
		m.ipLimiter = NewRateLimiter(config.PerIPCapacity, config.PerIPRefillRate, config.BucketTTL)
	}
	if config.LoginCapacity > 0 {
		m.loginLimiter = NewRateLimiter(config.LoginCapacity, config.LoginRefillRate, config.BucketTTL)
	}
	if config.VerifyCapacity > 0 {
		m.verifyLimiter = NewRateLimiter(config.VerifyCapacity, config.VerifyRefillRate, config.BucketTTL)
	}

	return m
}

// Handler returns the rate limiting middleware handler
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)

		if m.config.PerIPEnabled && ip != "" && !m.ipLimiter.Allow(ip) {
			m.rateLimitExceeded(w, r, "ip")
			return
		}

		if r.Method == http.MethodPost {
			switch r.URL.Path {
			case m.loginPath:
				if m.loginLimiter != nil && !m.loginLimiter.Allow(ip) {
					m.rateLimitExceeded(w, r, "login")
					return
				}
			case m.verifyPath:
				if m.verifyLimiter != nil && !m.verifyLimiter.Allow(ip) {
					m.rateLimitExceeded(w, r, "verify")
					return
				}
			}
		}

		if m.config.IncludeHeaders && ip != "" && m.config.PerIPEnabled {
			w.Header().Set("X-RateLimit-Limit-IP", fmt.Sprintf("%d", m.config.PerIPCapacity))
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) rateLimitExceeded(w http.ResponseWriter, r *http.Request, limitType string) {
	slog.Warn("Rate limit exceeded",
		"type", limitType,
		"ip", getClientIP(r),
		"path", r.URL.Path,
		"method", r.Method,
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)

	fmt.Fprintf(w, `{"status":"error","error":"rate_limited","message":"Too many requests. Please try again later.","type":"%s"}`, limitType)
}

// Reset clears the budgets for a specific IP
func (m *Middleware) Reset(ip string) {
	if m.ipLimiter != nil {
		m.ipLimiter.Reset(ip)
	}
	if m.loginLimiter != nil {
		m.loginLimiter.Reset(ip)
	}
	if m.verifyLimiter != nil {
		m.verifyLimiter.Reset(ip)
	}
}

// GetStats returns statistics for each active limiter
func (m *Middleware) GetStats() map[string]Stats {
	stats := make(map[string]Stats)
	if m.ipLimiter != nil {
		stats["ip"] = m.ipLimiter.GetStats()
	}
	if m.loginLimiter != nil {
		stats["login"] = m.loginLimiter.GetStats()
	}
	if m.verifyLimiter != nil {
		stats["verify"] = m.verifyLimiter.GetStats()
	}
	return stats
}

// getClientIP extracts the client IP, preferring proxy headers
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
