package twofa

import "errors"

// Common errors
var (
	ErrMalformedPasscode       = errors.New("passcode must be exactly 6 digits")
	ErrMalformedBackupCode     = errors.New("backup code must look like XXXX-XXXX")
	ErrInvalidPasscode         = errors.New("invalid passcode")
	ErrTwoFactorNotEnabled     = errors.New("two-factor authentication is not enabled")
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication is already enabled")
)
