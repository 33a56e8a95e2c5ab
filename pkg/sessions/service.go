package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gla1v3/console-auth/pkg/utils"
)

const (
	// DefaultTTL is the session lifetime
	DefaultTTL = 24 * time.Hour

	// Bearers are hex strings of this many random bytes
	bearerBytes = 32
)

// Service provides session management business logic. IssueSession is the
// only way a session credential comes into existence.
type Service struct {
	repo Repository
	ttl  time.Duration
}

// Option configures the service
type Option func(*Service)

// WithTTL overrides the session lifetime
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewService creates a new session service
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		ttl:  DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueSession mints a session for a fully authenticated username. The
// bearer is unguessable random material with no structure.
func (s *Service) IssueSession(ctx context.Context, username string, meta SessionMeta) (Session, error) {
	bearer, err := utils.GenerateRandomHex(bearerBytes)
	if err != nil {
		return Session{}, fmt.Errorf("failed to generate session bearer: %w", err)
	}

	now := time.Now().UTC()
	session := Session{
		ID:           uuid.New(),
		Bearer:       bearer,
		Username:     username,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.ttl),
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return Session{}, err
	}
	slog.Info("Issued session", "username", username, "session_id", session.ID, "expires_at", session.ExpiresAt)
	return session, nil
}

// ValidateBearer resolves a bearer to its session. Expired and revoked
// sessions fail validation with distinct sentinels but are equally dead;
// neither grants access.
func (s *Service) ValidateBearer(ctx context.Context, bearer string) (Session, error) {
	session, err := s.repo.GetByBearer(ctx, bearer)
	if err != nil {
		return Session{}, err
	}
	if session.Revoked() {
		return Session{}, ErrSessionRevoked
	}
	if session.Expired(time.Now()) {
		return Session{}, ErrSessionExpired
	}
	return session, nil
}

// RevokeByBearer revokes the session behind a bearer (logout)
func (s *Service) RevokeByBearer(ctx context.Context, bearer string) error {
	err := s.repo.RevokeByBearer(ctx, bearer)
	if err != nil {
		return err
	}
	slog.Info("Session revoked")
	return nil
}

// RevokeByID revokes a session by ID, for console session management
func (s *Service) RevokeByID(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Revoke(ctx, id)
	if err != nil {
		return err
	}
	slog.Info("Session revoked", "session_id", id)
	return nil
}

// RevokeAllByUsername revokes every active session of a username
func (s *Service) RevokeAllByUsername(ctx context.Context, username string) error {
	err := s.repo.RevokeAllByUsername(ctx, username)
	if err != nil {
		return err
	}
	slog.Info("All sessions revoked", "username", username)
	return nil
}

// ListActiveByUsername returns summaries of live sessions, marking the one
// matching currentBearer
func (s *Service) ListActiveByUsername(ctx context.Context, username, currentBearer string) (SessionListResponse, error) {
	active, err := s.repo.ListActiveByUsername(ctx, username)
	if err != nil {
		return SessionListResponse{}, err
	}

	summaries := make([]SessionSummary, len(active))
	for i, session := range active {
		summaries[i] = SessionSummary{
			ID:           session.ID,
			IPAddress:    session.IPAddress,
			UserAgent:    session.UserAgent,
			IssuedAt:     session.IssuedAt,
			LastActivity: session.LastActivity,
			ExpiresAt:    session.ExpiresAt,
			IsCurrent:    session.Bearer == currentBearer,
		}
	}
	return SessionListResponse{
		Sessions: summaries,
		Total:    len(summaries),
	}, nil
}

// UpdateActivity bumps the last activity timestamp of a session
func (s *Service) UpdateActivity(ctx context.Context, bearer string) error {
	return s.repo.UpdateActivity(ctx, bearer)
}

// CleanupExpired removes expired sessions (maintenance task)
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		slog.Info("Reaped expired sessions", "count", removed)
	}
	return removed, nil
}

// CleanupRevoked removes old revoked sessions (maintenance task)
func (s *Service) CleanupRevoked(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteRevoked(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		slog.Info("Reaped revoked sessions", "count", removed)
	}
	return removed, nil
}
