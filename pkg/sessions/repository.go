package sessions

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for session data access. Revocation is a
// soft delete: revoked rows stay until maintenance removes them, so a
// revoked bearer is distinguishable from one that never existed.
type Repository interface {
	// Create a new session
	Create(ctx context.Context, session Session) error

	// GetByBearer retrieves a session by its bearer credential. Expiry and
	// revocation are NOT evaluated here.
	GetByBearer(ctx context.Context, bearer string) (Session, error)

	// GetByID retrieves a session by ID
	GetByID(ctx context.Context, id uuid.UUID) (Session, error)

	// ListActiveByUsername lists non-revoked, non-expired sessions
	ListActiveByUsername(ctx context.Context, username string) ([]Session, error)

	// Revoke marks a session revoked by ID
	Revoke(ctx context.Context, id uuid.UUID) error

	// RevokeByBearer marks a session revoked by bearer
	RevokeByBearer(ctx context.Context, bearer string) error

	// RevokeAllByUsername revokes every active session of a username
	RevokeAllByUsername(ctx context.Context, username string) error

	// UpdateActivity bumps the last activity timestamp
	UpdateActivity(ctx context.Context, bearer string) error

	// DeleteExpired removes sessions past their expiry (maintenance)
	DeleteExpired(ctx context.Context) (int64, error)

	// DeleteRevoked removes revoked sessions older than the cutoff
	// (maintenance)
	DeleteRevoked(ctx context.Context) (int64, error)
}
