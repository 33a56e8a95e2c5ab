package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]*AccountEntity
}

// NewInMemoryRepository creates a new in-memory account repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		accounts: make(map[string]*AccountEntity),
	}
}

// Create creates a new account
func (r *InMemoryRepository) Create(ctx context.Context, params CreateAccountParams) (AccountEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[params.Username]; ok {
		return AccountEntity{}, ErrAccountExists
	}

	now := time.Now().UTC()
	entity := &AccountEntity{
		ID:           uuid.New(),
		Username:     params.Username,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.accounts[params.Username] = entity
	return cloneAccount(entity), nil
}

// GetByUsername retrieves an account by username
func (r *InMemoryRepository) GetByUsername(ctx context.Context, username string) (AccountEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.accounts[username]
	if !ok {
		return AccountEntity{}, ErrAccountNotFound
	}
	return cloneAccount(entity), nil
}

// List retrieves all accounts
func (r *InMemoryRepository) List(ctx context.Context) ([]AccountEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]AccountEntity, 0, len(r.accounts))
	for _, entity := range r.accounts {
		accounts = append(accounts, cloneAccount(entity))
	}
	return accounts, nil
}

// SetTwoFactor stores the TOTP secret and backup codes and enables 2FA
func (r *InMemoryRepository) SetTwoFactor(ctx context.Context, params SetTwoFactorParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.accounts[params.Username]
	if !ok {
		return ErrAccountNotFound
	}

	entity.TotpSecret = params.TotpSecret
	entity.TwoFactorEnabled = true
	entity.BackupCodes = cloneBackupCodes(params.BackupCodes)
	entity.UpdatedAt = time.Now().UTC()
	return nil
}

// DisableTwoFactor clears the TOTP secret and all backup codes
func (r *InMemoryRepository) DisableTwoFactor(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.accounts[username]
	if !ok {
		return ErrAccountNotFound
	}

	entity.TotpSecret = ""
	entity.TwoFactorEnabled = false
	entity.BackupCodes = nil
	entity.UpdatedAt = time.Now().UTC()
	return nil
}

// ReplaceBackupCodes replaces all backup codes for an account
func (r *InMemoryRepository) ReplaceBackupCodes(ctx context.Context, username string, codes []BackupCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.accounts[username]
	if !ok {
		return ErrAccountNotFound
	}

	entity.BackupCodes = cloneBackupCodes(codes)
	entity.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkBackupCodeUsed marks a backup code as consumed. The write lock makes the
// check-and-set atomic: concurrent calls for the same code serialize here and
// only the first one succeeds.
func (r *InMemoryRepository) MarkBackupCodeUsed(ctx context.Context, username string, codeID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.accounts[username]
	if !ok {
		return ErrAccountNotFound
	}

	for i := range entity.BackupCodes {
		if entity.BackupCodes[i].ID != codeID {
			continue
		}
		if entity.BackupCodes[i].Used {
			return ErrBackupCodeAlreadyUsed
		}
		now := time.Now().UTC()
		entity.BackupCodes[i].Used = true
		entity.BackupCodes[i].UsedAt = &now
		entity.UpdatedAt = now
		return nil
	}
	return ErrBackupCodeNotFound
}

// UpdatePassword replaces the stored password hash
func (r *InMemoryRepository) UpdatePassword(ctx context.Context, username string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.accounts[username]
	if !ok {
		return ErrAccountNotFound
	}

	entity.PasswordHash = passwordHash
	entity.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes an account
func (r *InMemoryRepository) Delete(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[username]; !ok {
		return ErrAccountNotFound
	}
	delete(r.accounts, username)
	return nil
}

func cloneAccount(entity *AccountEntity) AccountEntity {
	clone := *entity
	clone.BackupCodes = cloneBackupCodes(entity.BackupCodes)
	return clone
}

func cloneBackupCodes(codes []BackupCode) []BackupCode {
	if codes == nil {
		return nil
	}
	cloned := make([]BackupCode, len(codes))
	copy(cloned, codes)
	return cloned
}
