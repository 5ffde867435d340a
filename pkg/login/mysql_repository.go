package login

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// MySQLCredentialStore implements CredentialStore on MySQL through database/sql.
type MySQLCredentialStore struct {
	db *sql.DB
}

// NewMySQLCredentialStore creates a new MySQL credential store
func NewMySQLCredentialStore(db *sql.DB) *MySQLCredentialStore {
	return &MySQLCredentialStore{db: db}
}

const mysqlAccountColumns = `id, username, email, password_hash, role, status, failed_attempts,
	lockout_until, reset_token_hash, reset_token_expiry, last_login_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMySQLAccount(s rowScanner) (Account, error) {
	var row accountRow
	err := s.Scan(
		&row.ID, &row.Username, &row.Email, &row.PasswordHash, &row.Role, &row.Status, &row.FailedAttempts,
		&row.LockoutUntil, &row.ResetTokenHash, &row.ResetTokenExpiry, &row.LastLoginAt, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("failed to query account: %w", err)
	}
	return hydrate(row)
}

func (r *MySQLCredentialStore) FindByIdentifier(ctx context.Context, identifier string) (Account, error) {
	return scanMySQLAccount(r.db.QueryRowContext(ctx, `SELECT `+mysqlAccountColumns+` FROM accounts
		WHERE username = ? OR email = ?
		ORDER BY (username = ?) DESC
		LIMIT 1`, identifier, identifier, identifier))
}

func (r *MySQLCredentialStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	return scanMySQLAccount(r.db.QueryRowContext(ctx, `SELECT `+mysqlAccountColumns+` FROM accounts
		WHERE email = ? LIMIT 1`, email))
}

func (r *MySQLCredentialStore) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (Account, error) {
	return scanMySQLAccount(r.db.QueryRowContext(ctx, `SELECT `+mysqlAccountColumns+` FROM accounts
		WHERE reset_token_hash = ? AND reset_token_expiry > ?
		LIMIT 1`, tokenHash, now.UTC()))
}

// RecordFailedAttempt locks the row, increments and reads back in one
// transaction. MySQL evaluates SET assignments left to right against the
// updated row, so status and lockout_until are assigned before
// failed_attempts is incremented.
func (r *MySQLCredentialStore) RecordFailedAttempt(ctx context.Context, id uuid.UUID, policy LockoutPolicy, now time.Time) (FailedAttemptResult, error) {
	until := lockoutDeadline(now, policy)
	now = now.UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return FailedAttemptResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var prev *time.Time
	err = tx.QueryRowContext(ctx, `SELECT lockout_until FROM accounts WHERE id = ? FOR UPDATE`, id).Scan(&prev)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FailedAttemptResult{}, ErrAccountNotFound
		}
		return FailedAttemptResult{}, fmt.Errorf("failed to lock account: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE accounts SET
			status = CASE
				WHEN failed_attempts + 1 >= ? AND status <> 'suspended' THEN 'locked'
				ELSE status END,
			lockout_until = CASE
				WHEN failed_attempts + 1 >= ? AND (lockout_until IS NULL OR lockout_until <= ?) THEN ?
				ELSE lockout_until END,
			failed_attempts = failed_attempts + 1,
			updated_at = ?
		WHERE id = ?`,
		policy.MaxFailedAttempts, policy.MaxFailedAttempts, now, until, now, id,
	)
	if err != nil {
		return FailedAttemptResult{}, fmt.Errorf("failed to record failed attempt: %w", err)
	}

	var (
		res    FailedAttemptResult
		status string
	)
	err = tx.QueryRowContext(ctx, `SELECT failed_attempts, status, lockout_until FROM accounts WHERE id = ?`, id).
		Scan(&res.FailedAttempts, &status, &res.LockoutUntil)
	if err != nil {
		return FailedAttemptResult{}, fmt.Errorf("failed to read failed attempt state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return FailedAttemptResult{}, fmt.Errorf("failed to commit failed attempt: %w", err)
	}

	res.Status = Status(status)
	res.Locked = res.LockoutUntil != nil && (prev == nil || !prev.Equal(*res.LockoutUntil))
	return res, nil
}

func (r *MySQLCredentialStore) RecordSuccessfulLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	at = at.UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET
			failed_attempts = 0,
			lockout_until = NULL,
			status = 'active',
			last_login_at = ?,
			updated_at = ?
		WHERE id = ? AND status <> 'suspended'`,
		at, at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to record successful login: %w", err)
	}
	return requireAffected(result)
}

func (r *MySQLCredentialStore) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET reset_token_hash = ?, reset_token_expiry = ?
		WHERE id = ?`,
		tokenHash, expiresAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return requireAffected(result)
}

// CompletePasswordReset consumes the token inside a transaction so the
// account id can be read before the token column is cleared.
func (r *MySQLCredentialStore) CompletePasswordReset(ctx context.Context, params CompleteResetParams) (uuid.UUID, error) {
	now := params.Now.UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM accounts
		WHERE reset_token_hash = ? AND reset_token_expiry > ?
		LIMIT 1 FOR UPDATE`,
		params.TokenHash, now,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrAccountNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to lock reset token: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE accounts SET
			password_hash = ?,
			reset_token_hash = NULL,
			reset_token_expiry = NULL,
			failed_attempts = 0,
			lockout_until = NULL,
			status = 'active',
			updated_at = ?
		WHERE id = ? AND reset_token_hash = ? AND reset_token_expiry > ?`,
		params.PasswordHash, now, id, params.TokenHash, now,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to complete password reset: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return uuid.Nil, err
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit password reset: %w", err)
	}
	return id, nil
}

func (r *MySQLCredentialStore) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	a := newAccount(params)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, role, status, failed_attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		a.ID, a.Username, a.Email, a.PasswordHash, a.Role, string(a.Status), a.CreatedAt.UTC(), a.CreatedAt.UTC(),
	)
	if err != nil {
		var myErr *mysql.MySQLError
		// 1062: ER_DUP_ENTRY
		if errors.As(err, &myErr) && myErr.Number == 1062 {
			return Account{}, ErrAccountExists
		}
		return Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return a, nil
}

func (r *MySQLCredentialStore) VerifySchema(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_name = 'accounts' AND table_schema = DATABASE()`)
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

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}
