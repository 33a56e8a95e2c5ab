package twofa

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gla1v3/console-auth/pkg/account"
	"github.com/gla1v3/console-auth/pkg/password"
)

// BackupCodeStatus is the outcome of checking a supplied backup code.
type BackupCodeStatus string

const (
	BackupCodeValid       BackupCodeStatus = "valid"
	BackupCodeInvalid     BackupCodeStatus = "invalid"
	BackupCodeAlreadyUsed BackupCodeStatus = "already_used"
)

// BackupCodeCheck reports the status of a supplied code and, when the code
// matched a stored one, its ID so the caller can mark it consumed.
type BackupCodeCheck struct {
	Status BackupCodeStatus
	CodeID uuid.UUID
}

// TwoFaService implements second-factor verification and enrollment against
// the account store.
type TwoFaService struct {
	repo   account.Repository
	hasher password.Hasher
}

// NewTwoFaService creates a new two-factor service
func NewTwoFaService(repo account.Repository, hasher password.Hasher) *TwoFaService {
	if hasher == nil {
		hasher = password.NewBcryptHasher()
	}
	return &TwoFaService{
		repo:   repo,
		hasher: hasher,
	}
}

// VerifyTotpPasscode checks a TOTP passcode for an account at the current time
func (s *TwoFaService) VerifyTotpPasscode(ctx context.Context, username, passcode string) (bool, error) {
	entity, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if !entity.TwoFactorEnabled {
		return false, ErrTwoFactorNotEnabled
	}
	return ValidateTotpPasscode(entity.TotpSecret, passcode, time.Now())
}

// VerifyBackupCode compares a supplied code against every stored hash for the
// account, used ones included. A match on a consumed code reports
// BackupCodeAlreadyUsed, which is deliberately distinguishable from a code
// that never existed. A code that does not even have the XXXX-XXXX shape
// fails with ErrMalformedBackupCode before any comparison runs.
func (s *TwoFaService) VerifyBackupCode(ctx context.Context, username, supplied string) (BackupCodeCheck, error) {
	entity, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return BackupCodeCheck{}, err
	}
	if !entity.TwoFactorEnabled {
		return BackupCodeCheck{}, ErrTwoFactorNotEnabled
	}

	normalized := NormalizeBackupCode(supplied)
	if !IsBackupCodeShape(normalized) {
		return BackupCodeCheck{}, ErrMalformedBackupCode
	}

	for _, code := range entity.BackupCodes {
		match, err := s.hasher.Verify(normalized, code.CodeHash)
		if err != nil {
			return BackupCodeCheck{}, fmt.Errorf("failed to compare backup code: %w", err)
		}
		if !match {
			continue
		}
		if code.Used {
			return BackupCodeCheck{Status: BackupCodeAlreadyUsed, CodeID: code.ID}, nil
		}
		return BackupCodeCheck{Status: BackupCodeValid, CodeID: code.ID}, nil
	}
	return BackupCodeCheck{Status: BackupCodeInvalid}, nil
}

// ConsumeBackupCode marks a matched backup code used. The storage layer
// guarantees a single winner under concurrent spends of the same code.
func (s *TwoFaService) ConsumeBackupCode(ctx context.Context, username string, codeID uuid.UUID) error {
	err := s.repo.MarkBackupCodeUsed(ctx, username, codeID)
	if err != nil {
		slog.Warn("Failed to consume backup code", "username", username, "err", err)
		return err
	}
	slog.Info("Backup code consumed", "username", username)
	return nil
}

// Setup generates a candidate TOTP secret for an account that has not
// enrolled yet. Nothing is persisted until EnableTwoFactor confirms the
// user's authenticator produces valid passcodes for this secret.
func (s *TwoFaService) Setup(ctx context.Context, username string) (TotpEnrollment, error) {
	entity, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return TotpEnrollment{}, err
	}
	if entity.TwoFactorEnabled {
		return TotpEnrollment{}, ErrTwoFactorAlreadyEnabled
	}
	return GenerateTotpSecret(username)
}

// EnableTwoFactor verifies the passcode against the candidate secret, then
// persists the secret together with a fresh set of backup codes. The
// plaintext codes are returned to the caller exactly once.
func (s *TwoFaService) EnableTwoFactor(ctx context.Context, username, totpSecret, passcode string) ([]string, error) {
	entity, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if entity.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	valid, err := ValidateTotpPasscode(totpSecret, passcode, time.Now())
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, ErrInvalidPasscode
	}

	plaintext, hashed, err := s.mintBackupCodes()
	if err != nil {
		return nil, err
	}

	err = s.repo.SetTwoFactor(ctx, account.SetTwoFactorParams{
		Username:    username,
		TotpSecret:  totpSecret,
		BackupCodes: hashed,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Two-factor authentication enabled", "username", username)
	return plaintext, nil
}

// DisableTwoFactor requires a currently valid passcode before clearing the
// secret and all backup codes.
func (s *TwoFaService) DisableTwoFactor(ctx context.Context, username, passcode string) error {
	valid, err := s.VerifyTotpPasscode(ctx, username, passcode)
	if err != nil {
		return err
	}
	if !valid {
		return ErrInvalidPasscode
	}

	if err := s.repo.DisableTwoFactor(ctx, username); err != nil {
		return err
	}
	slog.Info("Two-factor authentication disabled", "username", username)
	return nil
}

// RegenerateBackupCodes discards every existing backup code, consumed or not,
// and issues a fresh set.
func (s *TwoFaService) RegenerateBackupCodes(ctx context.Context, username string) ([]string, error) {
	entity, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !entity.TwoFactorEnabled {
		return nil, ErrTwoFactorNotEnabled
	}

	plaintext, hashed, err := s.mintBackupCodes()
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceBackupCodes(ctx, username, hashed); err != nil {
		return nil, err
	}
	slog.Info("Backup codes regenerated", "username", username)
	return plaintext, nil
}

func (s *TwoFaService) mintBackupCodes() ([]string, []account.BackupCode, error) {
	plaintext, err := GenerateBackupCodes()
	if err != nil {
		return nil, nil, err
	}
	hashed := make([]account.BackupCode, 0, len(plaintext))
	for _, code := range plaintext {
		hash, err := s.hasher.Hash(code)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to hash backup code: %w", err)
		}
		hashed = append(hashed, account.BackupCode{
			ID:       uuid.New(),
			CodeHash: hash,
		})
	}
	return plaintext, hashed, nil
}
