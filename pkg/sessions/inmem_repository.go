package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	mu       sync.RWMutex
	byBearer map[string]*Session
	byID     map[uuid.UUID]string
}

// NewInMemoryRepository creates a new in-memory session repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byBearer: make(map[string]*Session),
		byID:     make(map[uuid.UUID]string),
	}
}

// Create stores a new session
func (r *InMemoryRepository) Create(ctx context.Context, session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := session
	r.byBearer[session.Bearer] = &clone
	r.byID[session.ID] = session.Bearer
	return nil
}

// GetByBearer retrieves a session by its bearer credential
func (r *InMemoryRepository) GetByBearer(ctx context.Context, bearer string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.byBearer[bearer]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *session, nil
}

// GetByID retrieves a session by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bearer, ok := r.byID[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *r.byBearer[bearer], nil
}

// ListActiveByUsername lists non-revoked, non-expired sessions
func (r *InMemoryRepository) ListActiveByUsername(ctx context.Context, username string) ([]Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	var active []Session
	for _, session := range r.byBearer {
		if session.Username != username || session.Revoked() || session.Expired(now) {
			continue
		}
		active = append(active, *session)
	}
	return active, nil
}

// Revoke marks a session revoked by ID
func (r *InMemoryRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bearer, ok := r.byID[id]
	if !ok {
		return ErrSessionNotFound
	}
	r.revokeLocked(r.byBearer[bearer])
	return nil
}

// RevokeByBearer marks a session revoked by bearer
func (r *InMemoryRepository) RevokeByBearer(ctx context.Context, bearer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.byBearer[bearer]
	if !ok {
		return ErrSessionNotFound
	}
	r.revokeLocked(session)
	return nil
}

// RevokeAllByUsername revokes every active session of a username
func (r *InMemoryRepository) RevokeAllByUsername(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, session := range r.byBearer {
		if session.Username == username && !session.Revoked() {
			r.revokeLocked(session)
		}
	}
	return nil
}

// UpdateActivity bumps the last activity timestamp
func (r *InMemoryRepository) UpdateActivity(ctx context.Context, bearer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.byBearer[bearer]
	if !ok {
		return ErrSessionNotFound
	}
	now := time.Now().UTC()
	session.LastActivity = now
	session.UpdatedAt = now
	return nil
}

// DeleteExpired removes sessions past their expiry
func (r *InMemoryRepository) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var removed int64
	for bearer, session := range r.byBearer {
		if session.Expired(now) {
			delete(r.byBearer, bearer)
			delete(r.byID, session.ID)
			removed++
		}
	}
	return removed, nil
}

// DeleteRevoked removes revoked sessions
func (r *InMemoryRepository) DeleteRevoked(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for bearer, session := range r.byBearer {
		if session.Revoked() {
			delete(r.byBearer, bearer)
			delete(r.byID, session.ID)
			removed++
		}
	}
	return removed, nil
}

func (r *InMemoryRepository) revokeLocked(session *Session) {
	now := time.Now().UTC()
	session.RevokedAt = &now
	session.UpdatedAt = now
}
