package pendingauth

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	mu     sync.RWMutex
	tokens map[string]*PendingToken
}

// NewInMemoryRepository creates a new in-memory pending token repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		tokens: make(map[string]*PendingToken),
	}
}

// Create stores a new pending token
func (r *InMemoryRepository) Create(ctx context.Context, token PendingToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := token
	r.tokens[token.ID] = &clone
	return nil
}

// Get retrieves a pending token by ID
func (r *InMemoryRepository) Get(ctx context.Context, id string) (PendingToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[id]
	if !ok {
		return PendingToken{}, ErrTokenNotFound
	}
	return *token, nil
}

// ConsumeAttempt decrements the attempt budget under the write lock, so
// concurrent consumers each observe a distinct remaining count.
func (r *InMemoryRepository) ConsumeAttempt(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[id]
	if !ok {
		return 0, ErrTokenNotFound
	}
	if token.AttemptsRemaining <= 0 {
		delete(r.tokens, id)
		return 0, ErrAttemptsExhausted
	}

	token.AttemptsRemaining--
	if token.AttemptsRemaining == 0 {
		delete(r.tokens, id)
		return 0, ErrAttemptsExhausted
	}
	return token.AttemptsRemaining, nil
}

// Delete removes a pending token and reports whether it existed
func (r *InMemoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.tokens[id]
	delete(r.tokens, id)
	return ok, nil
}

// DeleteExpired removes all tokens past their expiry
func (r *InMemoryRepository) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var removed int64
	for id, token := range r.tokens {
		if token.Expired(now) {
			delete(r.tokens, id)
			removed++
		}
	}
	return removed, nil
}
