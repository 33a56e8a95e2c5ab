package pendingauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL.
// The attempt budget lives in a single row; the conditional UPDATE in
// ConsumeAttempt is what serializes concurrent verifications of one token.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL pending token repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// Create stores a new pending token
func (r *PostgresRepository) Create(ctx context.Context, token PendingToken) error {
	query := `
		INSERT INTO pending_tokens (id, username, attempts_remaining, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, token.ID, token.Username, token.AttemptsRemaining, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create pending token: %w", err)
	}
	return nil
}

// Get retrieves a pending token by ID
func (r *PostgresRepository) Get(ctx context.Context, id string) (PendingToken, error) {
	query := `
		SELECT id, username, attempts_remaining, expires_at, created_at
		FROM pending_tokens
		WHERE id = $1
	`

	var token PendingToken
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&token.ID,
		&token.Username,
		&token.AttemptsRemaining,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PendingToken{}, ErrTokenNotFound
		}
		return PendingToken{}, fmt.Errorf("failed to get pending token: %w", err)
	}
	return token, nil
}

// ConsumeAttempt decrements the attempt budget with a conditional UPDATE, so
// concurrent consumers each observe a distinct remaining count. The row is
// removed once the budget hits zero.
func (r *PostgresRepository) ConsumeAttempt(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE pending_tokens
		SET attempts_remaining = attempts_remaining - 1
		WHERE id = $1 AND attempts_remaining > 0
		RETURNING attempts_remaining
	`

	var remaining int
	err := r.pool.QueryRow(ctx, query, id).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the token never existed or a concurrent consumer
			// already drained it; a zero-budget leftover row counts as
			// exhausted.
			var exists bool
			checkErr := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pending_tokens WHERE id = $1)`, id).Scan(&exists)
			if checkErr != nil {
				return 0, fmt.Errorf("failed to consume attempt: %w", checkErr)
			}
			if exists {
				_, _ = r.Delete(ctx, id)
				return 0, ErrAttemptsExhausted
			}
			return 0, ErrTokenNotFound
		}
		return 0, fmt.Errorf("failed to consume attempt: %w", err)
	}

	if remaining == 0 {
		if _, err := r.Delete(ctx, id); err != nil {
			return 0, err
		}
		return 0, ErrAttemptsExhausted
	}
	return remaining, nil
}

// Delete removes a pending token and reports whether a row was removed
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pending_tokens WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete pending token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteExpired removes all tokens past their expiry
func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pending_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired pending tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
