package account

import (
	"time"

	"github.com/google/uuid"
)

// BackupCode represents a single-use recovery code. Only the bcrypt hash of
// the code is stored; a code transitions unused -> used exactly once, never
// back.
type BackupCode struct {
	ID       uuid.UUID
	CodeHash string
	Used     bool
	UsedAt   *time.Time
}

// AccountEntity represents an operator account in the domain model
type AccountEntity struct {
	ID               uuid.UUID
	Username         string
	PasswordHash     string
	Role             string
	TotpSecret       string
	TwoFactorEnabled bool
	BackupCodes      []BackupCode
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UnusedBackupCodes returns the backup codes that have not been consumed yet
func (a AccountEntity) UnusedBackupCodes() []BackupCode {
	var codes []BackupCode
	for _, c := range a.BackupCodes {
		if !c.Used {
			codes = append(codes, c)
		}
	}
	return codes
}

// CreateAccountParams represents parameters for creating an account
type CreateAccountParams struct {
	Username     string
	PasswordHash string
	Role         string
}

// SetTwoFactorParams represents parameters for enabling two-factor
// authentication on an account
type SetTwoFactorParams struct {
	Username    string
	TotpSecret  string
	BackupCodes []BackupCode
}
