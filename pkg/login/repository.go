package login

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CredentialStore persists accounts and their security state.
//
// RecordFailedAttempt, RecordSuccessfulLogin and CompletePasswordReset are
// single conditional writes: concurrent callers never lose an increment and
// never observe status and lockout deadline out of step.
type CredentialStore interface {
	// FindByIdentifier matches the identifier against username or email.
	FindByIdentifier(ctx context.Context, identifier string) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	// FindByResetToken returns the account holding tokenHash with expiry after now.
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (Account, error)

	RecordFailedAttempt(ctx context.Context, id uuid.UUID, policy LockoutPolicy, now time.Time) (FailedAttemptResult, error)
	// RecordSuccessfulLogin clears failure state unless the account is suspended,
	// in which case ErrAccountNotFound is returned.
	RecordSuccessfulLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	// CompletePasswordReset consumes the token only if it is still valid at now.
	CompletePasswordReset(ctx context.Context, params CompleteResetParams) (uuid.UUID, error)

	CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error)

	// VerifySchema fails when a column the security logic depends on is missing.
	VerifySchema(ctx context.Context) error
}

// LockoutPolicy is the threshold and cooldown applied on a failed attempt
type LockoutPolicy struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
}

// FailedAttemptResult is the security state after a failed attempt was recorded
type FailedAttemptResult struct {
	FailedAttempts int
	Status         Status
	LockoutUntil   *time.Time
	// Locked is true when this attempt engaged a new lock.
	Locked bool
}

type CompleteResetParams struct {
	TokenHash    string
	PasswordHash string
	Now          time.Time
}

type CreateAccountParams struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Status       Status
	CreatedAt    time.Time
}

// requiredColumns are the accounts columns the security logic reads or writes.
var requiredColumns = []string{
	"id",
	"username",
	"email",
	"password_hash",
	"role",
	"status",
	"failed_attempts",
	"lockout_until",
	"reset_token_hash",
	"reset_token_expiry",
	"last_login_at",
}

func missingColumns(present map[string]bool) []string {
	var missing []string
	for _, c := range requiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
