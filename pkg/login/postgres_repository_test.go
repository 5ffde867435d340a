package login

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountColumnNames = []string{
	"id", "username", "email", "password_hash", "role", "status", "failed_attempts",
	"lockout_until", "reset_token_hash", "reset_token_expiry", "last_login_at", "created_at", "updated_at",
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestPostgresCredentialStore_FindByIdentifier(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .* FROM accounts WHERE username = \\$1 OR lower\\(email\\) = lower\\(\\$1\\)").
		WithArgs("jdoe").
		WillReturnRows(pgxmock.NewRows(accountColumnNames).AddRow(
			id, "jdoe", "jdoe@example.com", "$2a$12$hash", strPtr("admin"), strPtr("locked"), intPtr(5),
			&until, (*string)(nil), (*time.Time)(nil), (*time.Time)(nil), &created, &created,
		))

	store := NewPostgresCredentialStore(mock)
	acct, err := store.FindByIdentifier(context.Background(), "jdoe")
	require.NoError(t, err)

	assert.Equal(t, id, acct.ID)
	assert.Equal(t, StatusLocked, acct.Status)
	assert.Equal(t, 5, acct.FailedAttempts)
	require.NotNil(t, acct.LockoutUntil)
	assert.Equal(t, until, *acct.LockoutUntil)
	assert.Equal(t, "admin", acct.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCredentialStore_FindCorruptRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .* FROM accounts WHERE lower\\(email\\)").
		WithArgs("jdoe@example.com").
		WillReturnRows(pgxmock.NewRows(accountColumnNames).AddRow(
			uuid.New(), "jdoe", "jdoe@example.com", "hash", strPtr("admin"), strPtr("frozen"), intPtr(0),
			(*time.Time)(nil), (*string)(nil), (*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil),
		))

	_, err = NewPostgresCredentialStore(mock).FindByEmail(context.Background(), "jdoe@example.com")
	assert.ErrorIs(t, err, ErrCorruptAccount)
}

func TestPostgresCredentialStore_RecordFailedAttempt(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	until := now.Add(30 * time.Minute)
	policy := LockoutPolicy{MaxFailedAttempts: 5, LockoutDuration: 30 * time.Minute}

	mock.ExpectQuery("SELECT id, lockout_until FROM accounts WHERE id = \\$1 FOR UPDATE .* UPDATE accounts a SET failed_attempts = a.failed_attempts \\+ 1").
		WithArgs(id, 5, until, now).
		WillReturnRows(pgxmock.NewRows([]string{"failed_attempts", "status", "lockout_until", "locked"}).
			AddRow(5, "locked", &until, true))

	res, err := NewPostgresCredentialStore(mock).RecordFailedAttempt(context.Background(), id, policy, now)
	require.NoError(t, err)
	assert.Equal(t, 5, res.FailedAttempts)
	assert.Equal(t, StatusLocked, res.Status)
	assert.True(t, res.Locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCredentialStore_RecordFailedAttemptKeepsActiveLock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC)
	existing := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery("UPDATE accounts a SET failed_attempts").
		WithArgs(id, 5, now.Add(30*time.Minute), now).
		WillReturnRows(pgxmock.NewRows([]string{"failed_attempts", "status", "lockout_until", "locked"}).
			AddRow(6, "locked", &existing, false))

	res, err := NewPostgresCredentialStore(mock).RecordFailedAttempt(context.Background(), id,
		LockoutPolicy{MaxFailedAttempts: 5, LockoutDuration: 30 * time.Minute}, now)
	require.NoError(t, err)
	assert.False(t, res.Locked)
	assert.Equal(t, existing, *res.LockoutUntil)
}

func TestPostgresCredentialStore_RecordSuccessfulLogin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewPostgresCredentialStore(mock)

	mock.ExpectExec("UPDATE accounts SET failed_attempts = 0, lockout_until = NULL, status = 'active'").
		WithArgs(id, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	assert.NoError(t, store.RecordSuccessfulLogin(context.Background(), id, at))

	mock.ExpectExec("UPDATE accounts SET failed_attempts = 0").
		WithArgs(id, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, store.RecordSuccessfulLogin(context.Background(), id, at), ErrAccountNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCredentialStore_CompletePasswordReset(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewPostgresCredentialStore(mock)
	params := CompleteResetParams{TokenHash: "tokenhash", PasswordHash: "newhash", Now: now}

	mock.ExpectQuery("WHERE reset_token_hash = \\$1 AND reset_token_expiry > \\$3 RETURNING id").
		WithArgs("tokenhash", "newhash", now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
	got, err := store.CompletePasswordReset(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	mock.ExpectQuery("RETURNING id").
		WithArgs("tokenhash", "newhash", now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	_, err = store.CompletePasswordReset(context.Background(), params)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCredentialStore_CreateDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err = NewPostgresCredentialStore(mock).CreateAccount(context.Background(), CreateAccountParams{
		Username: "jdoe", Email: "jdoe@example.com", PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestPostgresCredentialStore_VerifySchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store := NewPostgresCredentialStore(mock)

	full := pgxmock.NewRows([]string{"column_name"})
	for _, c := range requiredColumns {
		full.AddRow(c)
	}
	mock.ExpectQuery("information_schema.columns").WillReturnRows(full)
	assert.NoError(t, store.VerifySchema(context.Background()))

	partial := pgxmock.NewRows([]string{"column_name"}).AddRow("id").AddRow("username").AddRow("password_hash")
	mock.ExpectQuery("information_schema.columns").WillReturnRows(partial)
	err = store.VerifySchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lockout_until")

	assert.NoError(t, mock.ExpectationsWereMet())
}
