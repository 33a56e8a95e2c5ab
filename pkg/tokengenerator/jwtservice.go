package tokengenerator

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type constants
const (
	ACCESS_TOKEN_NAME = "access_token"
)

// Default token expiry durations
const (
	DefaultAccessTokenExpiry = 24 * time.Hour
)

// JwtService provides JWT token generation for named token types
type JwtService struct {
	TokenGenerators       map[string]TokenGenerator
	DefaultTokenGenerator TokenGenerator

	AccessTokenExpiry time.Duration
}

// JwtServiceOption is a function that configures a JwtService
type JwtServiceOption func(*JwtService)

// WithTokenGenerator sets the token generator for a specific token name
func WithTokenGenerator(tokenName string, tokenGenerator TokenGenerator) JwtServiceOption {
	return func(js *JwtService) {
		if js.TokenGenerators == nil {
			js.TokenGenerators = make(map[string]TokenGenerator)
		}
		js.TokenGenerators[tokenName] = tokenGenerator
	}
}

// WithDefaultTokenGenerator sets the default token generator
func WithDefaultTokenGenerator(tokenGenerator TokenGenerator) JwtServiceOption {
	return func(js *JwtService) {
		js.DefaultTokenGenerator = tokenGenerator
	}
}

// WithAccessTokenExpiry sets the access token expiry duration
func WithAccessTokenExpiry(expiry time.Duration) JwtServiceOption {
	return func(js *JwtService) {
		if expiry > 0 {
			js.AccessTokenExpiry = expiry
		}
	}
}

// NewJwtService creates a new JwtService
func NewJwtService(options ...JwtServiceOption) *JwtService {
	js := &JwtService{
		TokenGenerators:   make(map[string]TokenGenerator),
		AccessTokenExpiry: DefaultAccessTokenExpiry,
	}

	for _, option := range options {
		option(js)
	}

	return js
}

// GenerateToken generates a token with the given parameters
func (js *JwtService) GenerateToken(tokenName, subject string, extraClaims map[string]interface{}) (string, time.Time, error) {
	tokenGenerator, ok := js.TokenGenerators[tokenName]
	if !ok {
		tokenGenerator = js.DefaultTokenGenerator
	}

	var expiry time.Duration
	switch tokenName {
	case ACCESS_TOKEN_NAME:
		expiry = js.AccessTokenExpiry
	default:
		expiry = js.AccessTokenExpiry
	}

	return tokenGenerator.GenerateToken(subject, expiry, extraClaims)
}

// ParseToken parses and validates a token
func (js *JwtService) ParseToken(tokenName, tokenStr string) (*jwt.Token, error) {
	tokenGenerator, ok := js.TokenGenerators[tokenName]
	if !ok {
		tokenGenerator = js.DefaultTokenGenerator
	}
	return tokenGenerator.ParseToken(tokenStr)
}
