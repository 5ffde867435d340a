package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresCredentialStore implements CredentialStore using PostgreSQL
type PostgresCredentialStore struct {
	db DBTX
}

// NewPostgresCredentialStore creates a new PostgreSQL credential store
func NewPostgresCredentialStore(db DBTX) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db}
}

const pgAccountColumns = `id, username, email, password_hash, role, status, failed_attempts,
	lockout_until, reset_token_hash, reset_token_expiry, last_login_at, created_at, updated_at`

func (r *PostgresCredentialStore) findOne(ctx context.Context, query string, args ...interface{}) (Account, error) {
	var row accountRow
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&row.ID, &row.Username, &row.Email, &row.PasswordHash, &row.Role, &row.Status, &row.FailedAttempts,
		&row.LockoutUntil, &row.ResetTokenHash, &row.ResetTokenExpiry, &row.LastLoginAt, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("failed to query account: %w", err)
	}
	return hydrate(row)
}

func (r *PostgresCredentialStore) FindByIdentifier(ctx context.Context, identifier string) (Account, error) {
	return r.findOne(ctx, `SELECT `+pgAccountColumns+` FROM accounts
		WHERE username = $1 OR lower(email) = lower($1)
		ORDER BY (username = $1) DESC
		LIMIT 1`, identifier)
}

func (r *PostgresCredentialStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	return r.findOne(ctx, `SELECT `+pgAccountColumns+` FROM accounts WHERE lower(email) = lower($1) LIMIT 1`, email)
}

func (r *PostgresCredentialStore) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (Account, error) {
	return r.findOne(ctx, `SELECT `+pgAccountColumns+` FROM accounts
		WHERE reset_token_hash = $1 AND reset_token_expiry > $2
		LIMIT 1`, tokenHash, now)
}

// RecordFailedAttempt locks the row in the CTE so the previous deadline can be
// compared with the new one; UPDATE reads the pre-update row on every
// right-hand side, so the threshold and lock checks see the same old count.
func (r *PostgresCredentialStore) RecordFailedAttempt(ctx context.Context, id uuid.UUID, policy LockoutPolicy, now time.Time) (FailedAttemptResult, error) {
	until := lockoutDeadline(now, policy)

	var (
		res    FailedAttemptResult
		status string
	)
	err := r.db.QueryRow(ctx, `
		WITH prev AS (
			SELECT id, lockout_until FROM accounts WHERE id = $1 FOR UPDATE
		)
		UPDATE accounts a SET
			failed_attempts = a.failed_attempts + 1,
			status = CASE
				WHEN a.failed_attempts + 1 >= $2 AND a.status <> 'suspended' THEN 'locked'
				ELSE a.status END,
			lockout_until = CASE
				WHEN a.failed_attempts + 1 >= $2 AND (a.lockout_until IS NULL OR a.lockout_until <= $4) THEN $3
				ELSE a.lockout_until END,
			updated_at = $4
		FROM prev
		WHERE a.id = prev.id
		RETURNING a.failed_attempts, a.status, a.lockout_until,
			a.lockout_until IS DISTINCT FROM prev.lockout_until`,
		id, policy.MaxFailedAttempts, until, now,
	).Scan(&res.FailedAttempts, &status, &res.LockoutUntil, &res.Locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FailedAttemptResult{}, ErrAccountNotFound
		}
		return FailedAttemptResult{}, fmt.Errorf("failed to record failed attempt: %w", err)
	}
	res.Status = Status(status)
	return res, nil
}

func (r *PostgresCredentialStore) RecordSuccessfulLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET
			failed_attempts = 0,
			lockout_until = NULL,
			status = 'active',
			last_login_at = $2,
			updated_at = $2
		WHERE id = $1 AND status <> 'suspended'`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to record successful login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PostgresCredentialStore) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET reset_token_hash = $2, reset_token_expiry = $3
		WHERE id = $1`,
		id, tokenHash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CompletePasswordReset re-checks token and expiry in the same statement that
// clears them, so only one of several concurrent resets can succeed.
func (r *PostgresCredentialStore) CompletePasswordReset(ctx context.Context, params CompleteResetParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		UPDATE accounts SET
			password_hash = $2,
			reset_token_hash = NULL,
			reset_token_expiry = NULL,
			failed_attempts = 0,
			lockout_until = NULL,
			status = 'active',
			updated_at = $3
		WHERE reset_token_hash = $1 AND reset_token_expiry > $3
		RETURNING id`,
		params.TokenHash, params.PasswordHash, params.Now,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrAccountNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to complete password reset: %w", err)
	}
	return id, nil
}

func (r *PostgresCredentialStore) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	a := newAccount(params)
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, role, status, failed_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $7)`,
		a.ID, a.Username, a.Email, a.PasswordHash, a.Role, string(a.Status), a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrAccountExists
		}
		return Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return a, nil
}

func (r *PostgresCredentialStore) VerifySchema(ctx context.Context) error {
	rows, err := r.db.Query(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_name = 'accounts' AND table_schema = current_schema()`)
	if err != nil {
		return fmt.Errorf("failed to inspect accounts table: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan column name: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to inspect accounts table: %w", err)
	}
	if missing := missingColumns(present); len(missing) > 0 {
		return fmt.Errorf("accounts table is missing security columns %v; run migrations", missing)
	}
	return nil
}
