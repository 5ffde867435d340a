package login

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryCredentialStore implements CredentialStore using in-memory storage.
// It is used for development and tests; all state is lost on restart.
type InMemoryCredentialStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]Account
}

// NewInMemoryCredentialStore creates a new in-memory credential store
func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{
		accounts: make(map[uuid.UUID]Account),
	}
}

func (s *InMemoryCredentialStore) FindByIdentifier(ctx context.Context, identifier string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// A username match wins over an email match.
	for _, a := range s.accounts {
		if a.Username == identifier {
			return copyAccount(a), nil
		}
	}
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, identifier) {
			return copyAccount(a), nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (s *InMemoryCredentialStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			return copyAccount(a), nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (s *InMemoryCredentialStore) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if resetTokenValid(a, tokenHash, now) {
			return copyAccount(a), nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (s *InMemoryCredentialStore) RecordFailedAttempt(ctx context.Context, id uuid.UUID, policy LockoutPolicy, now time.Time) (FailedAttemptResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return FailedAttemptResult{}, ErrAccountNotFound
	}

	until := lockoutDeadline(now, policy)
	a.FailedAttempts++
	locked := false
	if a.FailedAttempts >= policy.MaxFailedAttempts {
		if a.Status != StatusSuspended {
			a.Status = StatusLocked
		}
		if a.LockoutUntil == nil || !a.LockoutUntil.After(now) {
			a.LockoutUntil = &until
			locked = true
		}
	}
	a.UpdatedAt = now
	s.accounts[id] = a

	return FailedAttemptResult{
		FailedAttempts: a.FailedAttempts,
		Status:         a.Status,
		LockoutUntil:   copyTime(a.LockoutUntil),
		Locked:         locked,
	}, nil
}

func (s *InMemoryCredentialStore) RecordSuccessfulLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok || a.Status == StatusSuspended {
		return ErrAccountNotFound
	}
	a.FailedAttempts = 0
	a.LockoutUntil = nil
	a.Status = StatusActive
	a.LastLoginAt = &at
	a.UpdatedAt = at
	s.accounts[id] = a
	return nil
}

func (s *InMemoryCredentialStore) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.ResetTokenHash = tokenHash
	a.ResetTokenExpiry = &expiresAt
	s.accounts[id] = a
	return nil
}

func (s *InMemoryCredentialStore) CompletePasswordReset(ctx context.Context, params CompleteResetParams) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, a := range s.accounts {
		if !resetTokenValid(a, params.TokenHash, params.Now) {
			continue
		}
		a.PasswordHash = params.PasswordHash
		a.ResetTokenHash = ""
		a.ResetTokenExpiry = nil
		a.FailedAttempts = 0
		a.LockoutUntil = nil
		a.Status = StatusActive
		a.UpdatedAt = params.Now
		s.accounts[id] = a
		return id, nil
	}
	return uuid.Nil, ErrAccountNotFound
}

func (s *InMemoryCredentialStore) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Username == params.Username || strings.EqualFold(a.Email, params.Email) {
			return Account{}, ErrAccountExists
		}
	}

	a := newAccount(params)
	s.accounts[a.ID] = a
	return copyAccount(a), nil
}

// Put stores an account as-is, replacing any account with the same ID.
// Tests use it to seed arbitrary security state.
func (s *InMemoryCredentialStore) Put(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.accounts[a.ID] = copyAccount(a)
}

// Get returns the stored account by ID
func (s *InMemoryCredentialStore) Get(id uuid.UUID) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	return copyAccount(a), ok
}

func (s *InMemoryCredentialStore) VerifySchema(ctx context.Context) error {
	return nil
}

func resetTokenValid(a Account, tokenHash string, now time.Time) bool {
	return tokenHash != "" &&
		a.ResetTokenHash == tokenHash &&
		a.ResetTokenExpiry != nil &&
		a.ResetTokenExpiry.After(now)
}

func newAccount(params CreateAccountParams) Account {
	a := Account{
		ID:           params.ID,
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		Status:       params.Status,
		CreatedAt:    params.CreatedAt,
		UpdatedAt:    params.CreatedAt,
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Role == "" {
		a.Role = DefaultRole
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
		a.UpdatedAt = a.CreatedAt
	}
	return a
}

// lockoutDeadline truncates to the microsecond precision both SQL backends store.
func lockoutDeadline(now time.Time, policy LockoutPolicy) time.Time {
	return now.Add(policy.LockoutDuration).UTC().Truncate(time.Microsecond)
}

func copyAccount(a Account) Account {
	a.LockoutUntil = copyTime(a.LockoutUntil)
	a.ResetTokenExpiry = copyTime(a.ResetTokenExpiry)
	a.LastLoginAt = copyTime(a.LastLoginAt)
	return a
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
