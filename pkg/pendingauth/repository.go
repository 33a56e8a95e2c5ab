package pendingauth

import "context"

// Repository defines the interface for pending token storage. ConsumeAttempt
// must be atomic: concurrent calls for the same token serialize at the
// storage layer and each decrement is observed exactly once.
type Repository interface {
	// Create stores a new pending token
	Create(ctx context.Context, token PendingToken) error

	// Get retrieves a pending token by ID. Expiry is NOT evaluated here;
	// callers decide what an expired record means.
	Get(ctx context.Context, id string) (PendingToken, error)

	// ConsumeAttempt atomically decrements the attempt budget and returns
	// the remaining count. When the budget reaches zero the token is
	// deleted and ErrAttemptsExhausted is returned.
	ConsumeAttempt(ctx context.Context, id string) (int, error)

	// Delete removes a pending token and reports whether a record was
	// actually removed. Under concurrent deletes of the same token exactly
	// one caller observes true.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteExpired removes all tokens past their expiry and returns how
	// many were removed
	DeleteExpired(ctx context.Context) (int64, error)
}
