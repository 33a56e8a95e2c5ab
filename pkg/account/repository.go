package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for account data access. Implementations
// must make MarkBackupCodeUsed atomic: under concurrent calls for the same
// code, exactly one succeeds and the rest observe ErrBackupCodeAlreadyUsed.
type Repository interface {
	// Create a new account
	Create(ctx context.Context, params CreateAccountParams) (AccountEntity, error)

	// GetByUsername retrieves an account by its exact (case-sensitive) username
	GetByUsername(ctx context.Context, username string) (AccountEntity, error)

	// List all accounts
	List(ctx context.Context) ([]AccountEntity, error)

	// SetTwoFactor stores a TOTP secret with fresh backup codes and enables
	// two-factor authentication
	SetTwoFactor(ctx context.Context, params SetTwoFactorParams) error

	// DisableTwoFactor clears the TOTP secret and all backup codes
	DisableTwoFactor(ctx context.Context, username string) error

	// ReplaceBackupCodes discards all existing backup codes and stores new ones
	ReplaceBackupCodes(ctx context.Context, username string, codes []BackupCode) error

	// MarkBackupCodeUsed marks a backup code consumed. Fails with
	// ErrBackupCodeAlreadyUsed when invoked on an already-consumed code.
	MarkBackupCodeUsed(ctx context.Context, username string, codeID uuid.UUID) error

	// UpdatePassword replaces the stored password hash
	UpdatePassword(ctx context.Context, username string, passwordHash string) error

	// Delete removes an account
	Delete(ctx context.Context, username string) error
}
