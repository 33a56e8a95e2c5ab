package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RevokedRetention is how long revoked sessions are kept before maintenance
// removes them.
const RevokedRetention = 30 * 24 * time.Hour

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL session repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

const sessionColumns = `id, bearer, username, ip_address, user_agent, issued_at, expires_at, revoked_at, last_activity, created_at, updated_at`

// Create stores a new session
func (r *PostgresRepository) Create(ctx context.Context, session Session) error {
	query := `
		INSERT INTO console_sessions (id, bearer, username, ip_address, user_agent, issued_at, expires_at, last_activity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.Bearer,
		session.Username,
		session.IPAddress,
		session.UserAgent,
		session.IssuedAt,
		session.ExpiresAt,
		session.LastActivity,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByBearer retrieves a session by its bearer credential
func (r *PostgresRepository) GetByBearer(ctx context.Context, bearer string) (Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM console_sessions WHERE bearer = $1`
	return r.scanSession(r.pool.QueryRow(ctx, query, bearer))
}

// GetByID retrieves a session by ID
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM console_sessions WHERE id = $1`
	return r.scanSession(r.pool.QueryRow(ctx, query, id))
}

// ListActiveByUsername lists non-revoked, non-expired sessions
func (r *PostgresRepository) ListActiveByUsername(ctx context.Context, username string) ([]Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM console_sessions
		WHERE username = $1 AND revoked_at IS NULL AND expires_at > NOW()
		ORDER BY last_activity DESC
	`

	rows, err := r.pool.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var active []Session
	for rows.Next() {
		session, err := r.scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		active = append(active, session)
	}
	return active, rows.Err()
}

// Revoke marks a session revoked by ID
func (r *PostgresRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE console_sessions
		SET revoked_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RevokeByBearer marks a session revoked by bearer
func (r *PostgresRepository) RevokeByBearer(ctx context.Context, bearer string) error {
	query := `
		UPDATE console_sessions
		SET revoked_at = NOW(), updated_at = NOW()
		WHERE bearer = $1 AND revoked_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, bearer)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RevokeAllByUsername revokes every active session of a username
func (r *PostgresRepository) RevokeAllByUsername(ctx context.Context, username string) error {
	query := `
		UPDATE console_sessions
		SET revoked_at = NOW(), updated_at = NOW()
		WHERE username = $1 AND revoked_at IS NULL
	`

	_, err := r.pool.Exec(ctx, query, username)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// UpdateActivity bumps the last activity timestamp
func (r *PostgresRepository) UpdateActivity(ctx context.Context, bearer string) error {
	query := `
		UPDATE console_sessions
		SET last_activity = NOW(), updated_at = NOW()
		WHERE bearer = $1
	`

	tag, err := r.pool.Exec(ctx, query, bearer)
	if err != nil {
		return fmt.Errorf("failed to update session activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteExpired removes sessions past their expiry
func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM console_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteRevoked removes revoked sessions older than the retention window
func (r *PostgresRepository) DeleteRevoked(ctx context.Context) (int64, error) {
	query := `DELETE FROM console_sessions WHERE revoked_at IS NOT NULL AND revoked_at <= NOW() - make_interval(secs => $1)`

	tag, err := r.pool.Exec(ctx, query, RevokedRetention.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to delete revoked sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) scanSession(row pgx.Row) (Session, error) {
	session, err := scanInto(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) scanSessionRow(rows pgx.Rows) (Session, error) {
	session, err := scanInto(rows)
	if err != nil {
		return Session{}, fmt.Errorf("failed to scan session: %w", err)
	}
	return session, nil
}

func scanInto(row pgx.Row) (Session, error) {
	var session Session
	err := row.Scan(
		&session.ID,
		&session.Bearer,
		&session.Username,
		&session.IPAddress,
		&session.UserAgent,
		&session.IssuedAt,
		&session.ExpiresAt,
		&session.RevokedAt,
		&session.LastActivity,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	return session, err
}
