package account

import "errors"

// Common errors
var (
	ErrAccountNotFound       = errors.New("account not found")
	ErrAccountExists         = errors.New("account already exists")
	ErrPasswordMismatch      = errors.New("current password is incorrect")
	ErrBackupCodeNotFound    = errors.New("backup code not found")
	ErrBackupCodeAlreadyUsed = errors.New("backup code already used")
)
