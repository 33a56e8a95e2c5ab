// Package twofa implements the second authentication factor for the console:
// TOTP passcodes and single-use backup codes.
//
// # Overview
//
// The twofa package provides:
//   - TOTP generation and validation (6 digits, 30-second period, skew 1)
//   - Backup code generation in XXXX-XXXX uppercase hex form
//   - Backup code verification that distinguishes invalid from already-used
//   - Enrollment flow: setup, enable, disable, regenerate backup codes
//
// # Basic Usage
//
//	twoFaService := twofa.NewTwoFaService(accountRepo, nil)
//
//	// Enrollment: generate a candidate secret, confirm with a passcode
//	enrollment, err := twoFaService.Setup(ctx, "alice")
//	codes, err := twoFaService.EnableTwoFactor(ctx, "alice", enrollment.Secret, passcode)
//	// codes holds the plaintext backup codes; they are never retrievable again
//
//	// Verification during login
//	ok, err := twoFaService.VerifyTotpPasscode(ctx, "alice", "123456")
//	check, err := twoFaService.VerifyBackupCode(ctx, "alice", "A1B2-C3D4")
//	if check.Status == twofa.BackupCodeValid {
//		err = twoFaService.ConsumeBackupCode(ctx, "alice", check.CodeID)
//	}
//
// # Backup Code Lifecycle
//
// Consumed codes stay stored with their used flag set, so replaying one
// yields BackupCodeAlreadyUsed rather than the generic BackupCodeInvalid. A
// code is marked used before any session is issued on it; if the mark fails,
// no session exists for that attempt.
package twofa
