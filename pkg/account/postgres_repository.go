package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL account repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// Create creates a new account
func (r *PostgresRepository) Create(ctx context.Context, params CreateAccountParams) (AccountEntity, error) {
	query := `
		INSERT INTO accounts (username, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, username, password_hash, role, totp_secret, two_factor_enabled, created_at, updated_at
	`

	entity, err := r.scanAccount(r.pool.QueryRow(ctx, query, params.Username, params.PasswordHash, params.Role))
	if err != nil {
		return AccountEntity{}, fmt.Errorf("failed to create account: %w", err)
	}
	return entity, nil
}

// GetByUsername retrieves an account with its backup codes
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (AccountEntity, error) {
	query := `
		SELECT id, username, password_hash, role, totp_secret, two_factor_enabled, created_at, updated_at
		FROM accounts
		WHERE username = $1
	`

	entity, err := r.scanAccount(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountEntity{}, ErrAccountNotFound
		}
		return AccountEntity{}, fmt.Errorf("failed to get account: %w", err)
	}

	codes, err := r.backupCodes(ctx, entity.ID)
	if err != nil {
		return AccountEntity{}, err
	}
	entity.BackupCodes = codes
	return entity, nil
}

// List retrieves all accounts without backup codes
func (r *PostgresRepository) List(ctx context.Context) ([]AccountEntity, error) {
	query := `
		SELECT id, username, password_hash, role, totp_secret, two_factor_enabled, created_at, updated_at
		FROM accounts
		ORDER BY username
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []AccountEntity
	for rows.Next() {
		entity, err := r.scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, entity)
	}
	return accounts, rows.Err()
}

// SetTwoFactor stores the TOTP secret and backup codes and enables 2FA in a
// single transaction
func (r *PostgresRepository) SetTwoFactor(ctx context.Context, params SetTwoFactorParams) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE accounts
		SET totp_secret = $2, two_factor_enabled = TRUE, updated_at = NOW()
		WHERE username = $1
	`, params.Username, params.TotpSecret)
	if err != nil {
		return fmt.Errorf("failed to set totp secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	if err := r.replaceBackupCodesTx(ctx, tx, params.Username, params.BackupCodes); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DisableTwoFactor clears the TOTP secret and deletes all backup codes
func (r *PostgresRepository) DisableTwoFactor(ctx context.Context, username string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE accounts
		SET totp_secret = NULL, two_factor_enabled = FALSE, updated_at = NOW()
		WHERE username = $1
	`, username)
	if err != nil {
		return fmt.Errorf("failed to disable two-factor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM account_backup_codes
		WHERE account_id = (SELECT id FROM accounts WHERE username = $1)
	`, username)
	if err != nil {
		return fmt.Errorf("failed to delete backup codes: %w", err)
	}

	return tx.Commit(ctx)
}

// ReplaceBackupCodes replaces all backup codes for an account
func (r *PostgresRepository) ReplaceBackupCodes(ctx context.Context, username string, codes []BackupCode) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.replaceBackupCodesTx(ctx, tx, username, codes); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// MarkBackupCodeUsed marks a backup code consumed. The conditional UPDATE is
// the concurrency guard: two racing calls cannot both match used = FALSE.
func (r *PostgresRepository) MarkBackupCodeUsed(ctx context.Context, username string, codeID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE account_backup_codes
		SET used = TRUE, used_at = NOW()
		WHERE id = $1
		  AND used = FALSE
		  AND account_id = (SELECT id FROM accounts WHERE username = $2)
	`, codeID, username)
	if err != nil {
		return fmt.Errorf("failed to mark backup code used: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing updated: either the code never existed or it is already spent
	var used bool
	err = r.pool.QueryRow(ctx, `
		SELECT used FROM account_backup_codes
		WHERE id = $1
		  AND account_id = (SELECT id FROM accounts WHERE username = $2)
	`, codeID, username).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrBackupCodeNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check backup code: %w", err)
	}
	if used {
		return ErrBackupCodeAlreadyUsed
	}
	return ErrBackupCodeNotFound
}

// UpdatePassword replaces the stored password hash
func (r *PostgresRepository) UpdatePassword(ctx context.Context, username string, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE username = $1
	`, username, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Delete removes an account and its backup codes
func (r *PostgresRepository) Delete(ctx context.Context, username string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PostgresRepository) replaceBackupCodesTx(ctx context.Context, tx pgx.Tx, username string, codes []BackupCode) error {
	var accountID uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM accounts WHERE username = $1`, username).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to resolve account: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM account_backup_codes WHERE account_id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("failed to clear backup codes: %w", err)
	}

	for _, code := range codes {
		_, err = tx.Exec(ctx, `
			INSERT INTO account_backup_codes (id, account_id, code_hash, used, used_at)
			VALUES ($1, $2, $3, $4, $5)
		`, code.ID, accountID, code.CodeHash, code.Used, code.UsedAt)
		if err != nil {
			return fmt.Errorf("failed to insert backup code: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) backupCodes(ctx context.Context, accountID uuid.UUID) ([]BackupCode, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code_hash, used, used_at
		FROM account_backup_codes
		WHERE account_id = $1
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup codes: %w", err)
	}
	defer rows.Close()

	var codes []BackupCode
	for rows.Next() {
		var code BackupCode
		var usedAt sql.NullTime
		if err := rows.Scan(&code.ID, &code.CodeHash, &code.Used, &usedAt); err != nil {
			return nil, fmt.Errorf("failed to scan backup code: %w", err)
		}
		if usedAt.Valid {
			code.UsedAt = &usedAt.Time
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (r *PostgresRepository) scanAccount(row pgx.Row) (AccountEntity, error) {
	var entity AccountEntity
	var totpSecret sql.NullString
	err := row.Scan(
		&entity.ID,
		&entity.Username,
		&entity.PasswordHash,
		&entity.Role,
		&totpSecret,
		&entity.TwoFactorEnabled,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return AccountEntity{}, err
	}
	entity.TotpSecret = totpSecret.String
	return entity, nil
}
