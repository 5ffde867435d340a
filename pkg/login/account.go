package login

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an account
type Status string

const (
	StatusActive    Status = "active"
	StatusLocked    Status = "locked"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusLocked, StatusSuspended:
		return true
	}
	return false
}

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrCorruptAccount  = errors.New("account record is inconsistent")
)

// Account is an identity with credentials and security state.
type Account struct {
	ID               uuid.UUID
	Username         string
	Email            string
	PasswordHash     string
	Role             string
	Status           Status
	FailedAttempts   int
	LockoutUntil     *time.Time
	ResetTokenHash   string
	ResetTokenExpiry *time.Time
	LastLoginAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LogValue keeps credentials out of logs
func (a Account) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", a.ID.String()),
		slog.String("username", a.Username),
		slog.String("status", string(a.Status)),
		slog.Int("failed_attempts", a.FailedAttempts),
	)
}

// LockoutRemaining reports whether a lock is in effect at now and for how long.
// A locked status whose deadline has passed is an expired lock. A locked status
// without any deadline is indefinite and reports zero remaining time.
func (a Account) LockoutRemaining(now time.Time) (time.Duration, bool) {
	if a.LockoutUntil != nil && a.LockoutUntil.After(now) {
		return a.LockoutUntil.Sub(now), true
	}
	if a.Status == StatusLocked && a.LockoutUntil == nil {
		return 0, true
	}
	return 0, false
}

// Profile is the public view of an account returned after login.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	LastLogin time.Time `json:"lastLogin"`
}

// accountRow is the raw shape read from storage. Nullable columns are pointers.
type accountRow struct {
	ID               uuid.UUID
	Username         string
	Email            string
	PasswordHash     string
	Role             *string
	Status           *string
	FailedAttempts   *int
	LockoutUntil     *time.Time
	ResetTokenHash   *string
	ResetTokenExpiry *time.Time
	LastLoginAt      *time.Time
	CreatedAt        *time.Time
	UpdatedAt        *time.Time
}

// hydrate validates a storage row and normalizes absent optional fields once,
// so the services never see half-populated security state.
func hydrate(row accountRow) (Account, error) {
	acct := Account{
		ID:               row.ID,
		Username:         row.Username,
		Email:            row.Email,
		PasswordHash:     row.PasswordHash,
		Role:             DefaultRole,
		Status:           StatusActive,
		LockoutUntil:     row.LockoutUntil,
		ResetTokenExpiry: row.ResetTokenExpiry,
		LastLoginAt:      row.LastLoginAt,
	}
	if row.Role != nil && *row.Role != "" {
		acct.Role = *row.Role
	}
	if row.Status != nil && *row.Status != "" {
		acct.Status = Status(*row.Status)
		if !acct.Status.Valid() {
			return Account{}, fmt.Errorf("%w: unknown status %q for account %s", ErrCorruptAccount, *row.Status, row.ID)
		}
	}
	if row.FailedAttempts != nil {
		if *row.FailedAttempts < 0 {
			return Account{}, fmt.Errorf("%w: negative failed attempts for account %s", ErrCorruptAccount, row.ID)
		}
		acct.FailedAttempts = *row.FailedAttempts
	}
	if row.ResetTokenHash != nil {
		acct.ResetTokenHash = *row.ResetTokenHash
	}
	// A token without an expiry can never be valid.
	if acct.ResetTokenHash != "" && acct.ResetTokenExpiry == nil {
		acct.ResetTokenHash = ""
	}
	if row.CreatedAt != nil {
		acct.CreatedAt = *row.CreatedAt
	}
	if row.UpdatedAt != nil {
		acct.UpdatedAt = *row.UpdatedAt
	}
	return acct, nil
}
