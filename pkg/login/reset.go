package login

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tendant/simple-auth/pkg/errors"
)

const (
	resetTokenBytes = 32

	msgResetLinkInvalid = "The recovery link is invalid or has expired."
)

// PasswordResetService issues single-use reset tokens and consumes them.
type PasswordResetService struct {
	store    CredentialStore
	hasher   PasswordHasher
	notifier ResetNotifier
	config   Config
	now      func() time.Time
	recorder Recorder

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewPasswordResetService creates a password reset service
func NewPasswordResetService(store CredentialStore, hasher PasswordHasher, notifier ResetNotifier, opts ...Option) (*PasswordResetService, error) {
	o := newOptions(opts)
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid password reset config: %w", err)
	}
	if _, err := url.Parse(o.config.ResetBaseURL); err != nil {
		return nil, fmt.Errorf("invalid reset base url: %w", err)
	}
	return &PasswordResetService{
		store:    store,
		hasher:   hasher,
		notifier: notifier,
		config:   o.config,
		now:      o.now,
		recorder: o.recorder,
	}, nil
}

// GenerateResetToken returns 32 random bytes as 64 hex characters
func GenerateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashResetToken is the form a reset token is stored and looked up in
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RequestReset starts a reset for the account registered with email.
//
// An unknown email returns nil without side effects so callers cannot tell
// whether an account exists. A delivery failure is returned as a dependency
// error, which transports must not distinguish from success.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.MissingRequired("Email is required", "email")
	}
	s.recorder.ResetRequested()

	acct, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			slog.Debug("Password reset requested for unknown email")
			return nil
		}
		return errors.InternalWrap(err, "failed to look up account")
	}

	token, err := GenerateResetToken()
	if err != nil {
		return errors.InternalWrap(err, "failed to generate reset token")
	}
	expiresAt := s.now().Add(s.config.ResetTokenTTL)

	// Persist before sending so a delivered link always resolves.
	if err := s.store.SetResetToken(ctx, acct.ID, HashResetToken(token), expiresAt); err != nil {
		return errors.InternalWrap(err, "failed to store reset token")
	}

	link := s.resetLink(token)
	if s.config.AsyncDispatch && s.track() {
		go func() {
			defer s.inflight.Done()
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.DispatchTimeout)
			defer cancel()
			_ = s.dispatch(ctx, acct, link, expiresAt)
		}()
		return nil
	}
	return s.dispatch(ctx, acct, link, expiresAt)
}

// track registers a background send. It reports false once Close has
// started, in which case the caller sends inline.
func (s *PasswordResetService) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.inflight.Add(1)
	return true
}

func (s *PasswordResetService) dispatch(ctx context.Context, acct Account, link string, expiresAt time.Time) error {
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.SendPasswordReset(ctx, acct.Email, acct.Username, link, expiresAt); err != nil {
		slog.Error("Failed to send password reset email", "account", acct.ID, "err", err)
		s.recorder.NotificationFailed()
		return errors.Dependency(err, "failed to send password reset email")
	}
	slog.Info("Password reset email sent", "account", acct.ID)
	return nil
}

func (s *PasswordResetService) resetLink(token string) string {
	return strings.TrimRight(s.config.ResetBaseURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

// ResetPassword sets a new password using a token from RequestReset.
// The token is consumed by the same write that stores the new hash, so it
// works at most once even under concurrent use.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		s.recorder.ResetCompleted(OutcomeValidationFailure)
		return errors.MissingRequired("Token and new password are required", "token", "password")
	}
	if err := s.config.PasswordPolicy.Check(newPassword); err != nil {
		s.recorder.ResetCompleted(OutcomeValidationFailure)
		return errors.New(errors.ErrCodePasswordPolicy, err.Error())
	}

	tokenHash := HashResetToken(token)
	now := s.now()
	if _, err := s.store.FindByResetToken(ctx, tokenHash, now); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			s.recorder.ResetCompleted(OutcomeInvalid)
			return errors.New(errors.ErrCodeResetTokenInvalid, msgResetLinkInvalid)
		}
		s.recorder.ResetCompleted(OutcomeError)
		return errors.InternalWrap(err, "failed to look up reset token")
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		s.recorder.ResetCompleted(OutcomeError)
		return errors.InternalWrap(err, "failed to hash password")
	}

	id, err := s.store.CompletePasswordReset(ctx, CompleteResetParams{
		TokenHash:    tokenHash,
		PasswordHash: hash,
		Now:          s.now(),
	})
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// consumed or expired while hashing
			s.recorder.ResetCompleted(OutcomeInvalid)
			return errors.New(errors.ErrCodeResetTokenInvalid, msgResetLinkInvalid)
		}
		s.recorder.ResetCompleted(OutcomeError)
		return errors.InternalWrap(err, "failed to complete password reset")
	}

	s.recorder.ResetCompleted(OutcomeSuccess)
	slog.Info("Password reset completed", "account", id)
	return nil
}

// Close waits for background reset emails to finish sending or for ctx to end.
// Requests arriving after Close send their email before returning.
func (s *PasswordResetService) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
