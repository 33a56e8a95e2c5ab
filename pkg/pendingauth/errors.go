package pendingauth

import "errors"

// Common errors
var (
	ErrTokenNotFound     = errors.New("pending token not found")
	ErrTokenExpired      = errors.New("pending token expired")
	ErrAttemptsExhausted = errors.New("verification attempts exhausted")
)
