package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(handler http.Handler, method, path, ip string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, nil)
	r.RemoteAddr = ip + ":51234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestMiddleware_LoginBudget(t *testing.T) {
	config := DefaultConfig()
	config.PerIPEnabled = false
	config.LoginCapacity = 3
	config.LoginRefillRate = 0.001
	config.BucketTTL = time.Hour

	m := NewMiddleware(config, "/api/auth/login", "/api/auth/2fa/verify")
	handler := m.Handler(testHandler())

	for i := 0; i < 3; i++ {
		w := doRequest(handler, http.MethodPost, "/api/auth/login", "10.0.0.1")
		assert.Equal(t, http.StatusOK, w.Code, "login attempt %d", i+1)
	}

	w := doRequest(handler, http.MethodPost, "/api/auth/login", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limited")

	// Other endpoints and other IPs are unaffected
	assert.Equal(t, http.StatusOK, doRequest(handler, http.MethodPost, "/api/auth/logout", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, doRequest(handler, http.MethodPost, "/api/auth/login", "10.0.0.2").Code)
}

func TestMiddleware_VerifyBudget(t *testing.T) {
	config := DefaultConfig()
	config.PerIPEnabled = false
	config.VerifyCapacity = 2
	config.VerifyRefillRate = 0.001

	m := NewMiddleware(config, "/api/auth/login", "/api/auth/2fa/verify")
	handler := m.Handler(testHandler())

	assert.Equal(t, http.StatusOK, doRequest(handler, http.MethodPost, "/api/auth/2fa/verify", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, doRequest(handler, http.MethodPost, "/api/auth/2fa/verify", "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, http.MethodPost, "/api/auth/2fa/verify", "10.0.0.1").Code)

	// GET to the same path is not a factor submission
	assert.Equal(t, http.StatusOK, doRequest(handler, http.MethodGet, "/api/auth/2fa/verify", "10.0.0.1").Code)
}

func TestMiddleware_PerIPBudget(t *testing.T) {
	config := &Config{
		PerIPEnabled:    true,
		PerIPCapacity:   2,
		PerIPRefillRate: 0.001,
		IncludeHeaders:  true,
	}

	m := NewMiddleware(config, "/api/auth/login", "/api/auth/2fa/verify")
	handler := m.Handler(testHandler())

	w := doRequest(handler, http.MethodGet, "/api/sessions", "10.0.0.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit-IP"))

	doRequest(handler, http.MethodGet, "/api/sessions", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, http.MethodGet, "/api/sessions", "10.0.0.1").Code)
}

func TestMiddleware_ForwardedForHeader(t *testing.T) {
	config := &Config{
		PerIPEnabled:    true,
		PerIPCapacity:   1,
		PerIPRefillRate: 0.001,
	}
	m := NewMiddleware(config, "/api/auth/login", "/api/auth/2fa/verify")
	handler := m.Handler(testHandler())

	makeRequest := func(forwardedFor string) int {
		r := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
		r.RemoteAddr = "127.0.0.1:51234"
		r.Header.Set("X-Forwarded-For", forwardedFor)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, makeRequest("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, makeRequest("203.0.113.7, 10.0.0.1"))
	assert.Equal(t, http.StatusOK, makeRequest("203.0.113.8"), "a different forwarded IP has its own budget")
}

func TestMiddleware_Reset(t *testing.T) {
	config := DefaultConfig()
	config.PerIPEnabled = false
	config.LoginCapacity = 1
	config.LoginRefillRate = 0.001

	m := NewMiddleware(config, "/api/auth/login", "/api/auth/2fa/verify")
	handler := m.Handler(testHandler())

	assert.Equal(t, http.StatusOK, doRequest(handler, http.MethodPost, "/api/auth/login", "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, http.MethodPost, "/api/auth/login", "10.0.0.1").Code)

	m.Reset("10.0.0.1")
	assert.Equal(t, http.StatusOK, doRequest(handler, http.MethodPost, "/api/auth/login", "10.0.0.1").Code)
}
