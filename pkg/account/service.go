package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinzhu/copier"

	"github.com/gla1v3/console-auth/pkg/password"
)

// Service provides account management business logic on top of a Repository.
// It owns all mutations of account records; password hashes never leave this
// package in plaintext-adjacent form.
type Service struct {
	repo   Repository
	hasher password.Hasher

	// decoyHash is compared against on unknown-username logins so they
	// cost the same hash verification as a wrong password
	decoyHash string
}

// NewService creates a new account service
func NewService(repo Repository, hasher password.Hasher) *Service {
	if hasher == nil {
		hasher = password.NewBcryptHasher()
	}
	s := &Service{
		repo:   repo,
		hasher: hasher,
	}
	if decoy, err := hasher.Hash("console-auth-decoy"); err == nil {
		s.decoyHash = decoy
	}
	return s
}

// CreateParams represents the request to provision an account
type CreateParams struct {
	Username string
	Password string
	Role     string
}

// CreateAccount provisions a new account with a hashed password
func (s *Service) CreateAccount(ctx context.Context, params CreateParams) (AccountEntity, error) {
	if params.Username == "" {
		return AccountEntity{}, fmt.Errorf("username is required")
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return AccountEntity{}, fmt.Errorf("failed to hash password: %w", err)
	}

	repoParams := CreateAccountParams{}
	copier.Copy(&repoParams, &params)
	repoParams.PasswordHash = hash
	if repoParams.Role == "" {
		repoParams.Role = "operator"
	}

	entity, err := s.repo.Create(ctx, repoParams)
	if err != nil {
		slog.Error("Failed to create account", "username", params.Username, "err", err)
		return AccountEntity{}, err
	}
	return entity, nil
}

// Lookup retrieves an account by username
func (s *Service) Lookup(ctx context.Context, username string) (AccountEntity, error) {
	return s.repo.GetByUsername(ctx, username)
}

// ListAccounts retrieves all accounts
func (s *Service) ListAccounts(ctx context.Context) ([]AccountEntity, error) {
	return s.repo.List(ctx)
}

// VerifyPassword checks a plaintext password against the stored hash.
// Neither the plaintext nor the hash is ever logged.
func (s *Service) VerifyPassword(ctx context.Context, username, plaintext string) (bool, error) {
	entity, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return s.hasher.Verify(plaintext, entity.PasswordHash)
}

// BurnPasswordCheck runs a hash verification against a throwaway hash.
// Login calls it when the username does not exist, keeping the unknown-user
// path as expensive as a wrong-password one.
func (s *Service) BurnPasswordCheck(plaintext string) {
	if s.decoyHash == "" {
		return
	}
	_, _ = s.hasher.Verify(plaintext, s.decoyHash)
}

// ChangePassword verifies the current password and stores a new hash
func (s *Service) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	valid, err := s.VerifyPassword(ctx, username, currentPassword)
	if err != nil {
		return err
	}
	if !valid {
		return ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, username, hash)
}

// DeleteAccount removes an account
func (s *Service) DeleteAccount(ctx context.Context, username string) error {
	return s.repo.Delete(ctx, username)
}
