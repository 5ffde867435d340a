package login

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgAccountSuspended   = "Account suspended. Contact an administrator."
)

// AuthResult is returned on a successful login
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      Profile
}

// LoginService verifies credentials and enforces progressive lockout
type LoginService struct {
	store    CredentialStore
	hasher   PasswordHasher
	issuer   SessionIssuer
	config   Config
	now      func() time.Time
	recorder Recorder
}

// NewLoginService creates a login service
func NewLoginService(store CredentialStore, hasher PasswordHasher, issuer SessionIssuer, opts ...Option) (*LoginService, error) {
	o := newOptions(opts)
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid login config: %w", err)
	}
	return &LoginService{
		store:    store,
		hasher:   hasher,
		issuer:   issuer,
		config:   o.config,
		now:      o.now,
		recorder: o.recorder,
	}, nil
}

// dummyVerifier is implemented by hashers that can burn a verification's
// worth of time for unknown identifiers.
type dummyVerifier interface {
	VerifyDummy(ctx context.Context, password string)
}

// Authenticate checks identifier (username or email) and password.
//
// Unknown identifiers and wrong passwords fail with the same authentication
// error. Suspended and locked accounts fail with an authorization error before
// the password is checked, so a correct password cannot bypass a lock.
func (s *LoginService) Authenticate(ctx context.Context, identifier, password string) (AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		s.recorder.LoginAttempt(OutcomeValidationFailure)
		return AuthResult{}, errors.MissingRequired("Identifier and password are required", "identifier", "password")
	}

	acct, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			if dv, ok := s.hasher.(dummyVerifier); ok {
				dv.VerifyDummy(ctx, password)
			}
			s.recorder.LoginAttempt(OutcomeInvalid)
			return AuthResult{}, errors.New(errors.ErrCodeInvalidCredentials, msgInvalidCredentials)
		}
		s.recorder.LoginAttempt(OutcomeError)
		return AuthResult{}, errors.InternalWrap(err, "failed to load account")
	}

	now := s.now()
	if acct.Status == StatusSuspended {
		slog.Warn("Login refused for suspended account", "account", acct)
		s.recorder.LoginAttempt(OutcomeSuspended)
		return AuthResult{}, errors.New(errors.ErrCodeAccountSuspended, msgAccountSuspended)
	}
	if remaining, locked := acct.LockoutRemaining(now); locked {
		s.recorder.LoginAttempt(OutcomeLocked)
		return AuthResult{}, lockedError(remaining)
	}

	match, err := s.hasher.Verify(ctx, password, acct.PasswordHash)
	if err != nil {
		s.recorder.LoginAttempt(OutcomeError)
		return AuthResult{}, errors.InternalWrap(err, "failed to verify password")
	}

	if !match {
		// A client hanging up after the comparison must not skip the count.
		res, err := s.store.RecordFailedAttempt(context.WithoutCancel(ctx), acct.ID, s.config.LockoutPolicy(), now)
		if err != nil {
			s.recorder.LoginAttempt(OutcomeError)
			return AuthResult{}, errors.InternalWrap(err, "failed to record failed attempt")
		}
		if res.Locked {
			slog.Warn("Account locked after repeated failures",
				"account", acct.ID, "failed_attempts", res.FailedAttempts, "until", res.LockoutUntil)
			s.recorder.LockoutEngaged()
		}
		s.recorder.LoginAttempt(OutcomeInvalid)
		return AuthResult{}, errors.New(errors.ErrCodeInvalidCredentials, msgInvalidCredentials)
	}

	if err := s.store.RecordSuccessfulLogin(ctx, acct.ID, now); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// suspended or removed between the read and this write
			s.recorder.LoginAttempt(OutcomeSuspended)
			return AuthResult{}, errors.New(errors.ErrCodeAccountSuspended, msgAccountSuspended)
		}
		s.recorder.LoginAttempt(OutcomeError)
		return AuthResult{}, errors.InternalWrap(err, "failed to record login")
	}

	issued, err := s.issuer.Issue(tokengenerator.Identity{
		ID:       acct.ID.String(),
		Username: acct.Username,
		Role:     acct.Role,
	}, s.config.SessionTTL)
	if err != nil {
		s.recorder.LoginAttempt(OutcomeError)
		return AuthResult{}, errors.InternalWrap(err, "failed to issue session token")
	}

	s.recorder.LoginAttempt(OutcomeSuccess)
	slog.Info("Login successful", "account", acct.ID, "role", acct.Role)
	return AuthResult{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		User: Profile{
			ID:        acct.ID,
			Username:  acct.Username,
			Email:     acct.Email,
			Role:      acct.Role,
			LastLogin: now,
		},
	}, nil
}

func lockedError(remaining time.Duration) error {
	minutes := int(math.Ceil(remaining.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return errors.Newf(errors.ErrCodeAccountLocked,
		"Account temporarily locked. Try again in %d %s.", minutes, unit).
		WithDetail("retry_after_minutes", minutes)
}
