package pendingauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gla1v3/console-auth/pkg/utils"
)

const (
	// DefaultTTL bounds the window between password and second factor
	DefaultTTL = 5 * time.Minute

	// DefaultMaxAttempts is the second-factor attempt budget per token
	DefaultMaxAttempts = 5

	// Token IDs are hex strings of this many random bytes
	tokenBytes = 16
)

// Service manages the lifecycle of pending tokens: issue after password
// verification, validate and spend attempts during second-factor
// verification, invalidate on success or exhaustion.
type Service struct {
	repo        Repository
	ttl         time.Duration
	maxAttempts int
}

// Option configures the service
type Option func(*Service)

// WithTTL overrides the pending token lifetime
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxAttempts overrides the second-factor attempt budget
func WithMaxAttempts(max int) Option {
	return func(s *Service) {
		if max > 0 {
			s.maxAttempts = max
		}
	}
}

// NewService creates a new pending token service
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		ttl:         DefaultTTL,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a pending token for a username whose password has been
// verified. The ID is unguessable random material, not derived from any
// account attribute.
func (s *Service) Issue(ctx context.Context, username string) (PendingToken, error) {
	id, err := utils.GenerateRandomHex(tokenBytes)
	if err != nil {
		return PendingToken{}, fmt.Errorf("failed to generate pending token: %w", err)
	}

	now := time.Now().UTC()
	token := PendingToken{
		ID:                id,
		Username:          username,
		AttemptsRemaining: s.maxAttempts,
		ExpiresAt:         now.Add(s.ttl),
		CreatedAt:         now,
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return PendingToken{}, err
	}
	slog.Info("Issued pending token", "username", username, "expires_at", token.ExpiresAt)
	return token, nil
}

// Validate looks up a pending token and evaluates expiry lazily: an expired
// record behaves exactly like an absent one apart from the sentinel, and is
// removed on sight. Correctness never depends on the background reaper.
func (s *Service) Validate(ctx context.Context, id string) (PendingToken, error) {
	token, err := s.repo.Get(ctx, id)
	if err != nil {
		return PendingToken{}, err
	}
	if token.Expired(time.Now()) {
		_, _ = s.repo.Delete(ctx, id)
		return PendingToken{}, ErrTokenExpired
	}
	return token, nil
}

// ConsumeAttempt spends one unit of the token's attempt budget. The final
// unit deletes the token and reports ErrAttemptsExhausted; a fresh login is
// the only way forward from there.
func (s *Service) ConsumeAttempt(ctx context.Context, id string) (int, error) {
	remaining, err := s.repo.ConsumeAttempt(ctx, id)
	if err != nil {
		return 0, err
	}
	slog.Info("Pending token attempt consumed", "remaining", remaining)
	return remaining, nil
}

// Redeem removes a pending token on a successful verification. Exactly one
// of any concurrent redeemers wins; the rest get ErrTokenNotFound. This is
// what makes the token one-shot.
func (s *Service) Redeem(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTokenNotFound
	}
	return nil
}

// Invalidate removes a pending token. Idempotent.
func (s *Service) Invalidate(ctx context.Context, id string) error {
	_, err := s.repo.Delete(ctx, id)
	return err
}

// DeleteExpired removes expired tokens in bulk, for a periodic reaper
func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		slog.Info("Reaped expired pending tokens", "count", removed)
	}
	return removed, nil
}
