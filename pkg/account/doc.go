// Package account provides operator account storage for the console
// authentication core.
//
// # Overview
//
// The account package provides:
//   - Account CRUD operations with bcrypt password hashing
//   - TOTP secret and backup code storage per account
//   - Atomic single-use accounting for backup codes
//   - Repository pattern with in-memory and PostgreSQL implementations
//
// # Basic Usage
//
//	import "github.com/gla1v3/console-auth/pkg/account"
//
//	repo := account.NewInMemoryRepository()
//	service := account.NewService(repo, nil)
//
//	// Provision an account
//	acct, err := service.CreateAccount(ctx, account.CreateParams{
//		Username: "alice",
//		Password: "correct-pw",
//		Role:     "operator",
//	})
//
//	// Verify a password during login
//	ok, err := service.VerifyPassword(ctx, "alice", "correct-pw")
//
// # Backup Code Semantics
//
// A backup code transitions unused -> used exactly once. MarkBackupCodeUsed
// is a compare-and-set at the storage layer: under concurrent spends of the
// same code only one call succeeds, the rest fail with
// ErrBackupCodeAlreadyUsed. Callers that gate session issuance on this call
// therefore cannot double-spend a code.
package account
