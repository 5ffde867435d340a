package login

import (
	"context"
	"time"

	"github.com/tendant/simple-auth/pkg/tokengenerator"
)

// SessionIssuer signs session tokens
type SessionIssuer interface {
	Issue(identity tokengenerator.Identity, ttl time.Duration) (tokengenerator.IssuedToken, error)
}

// ResetNotifier delivers password reset links
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, username, resetLink string, expiresAt time.Time) error
}

// Outcomes reported to a Recorder
const (
	OutcomeSuccess           = "success"
	OutcomeInvalid           = "invalid_credentials"
	OutcomeLocked            = "locked"
	OutcomeSuspended         = "suspended"
	OutcomeValidationFailure = "validation_failed"
	OutcomeError             = "error"
)

// Recorder receives security events for metrics
type Recorder interface {
	LoginAttempt(outcome string)
	LockoutEngaged()
	ResetRequested()
	ResetCompleted(outcome string)
	NotificationFailed()
}

type noopRecorder struct{}

func (noopRecorder) LoginAttempt(string)   {}
func (noopRecorder) LockoutEngaged()       {}
func (noopRecorder) ResetRequested()       {}
func (noopRecorder) ResetCompleted(string) {}
func (noopRecorder) NotificationFailed()   {}

// Option configures LoginService and PasswordResetService
type Option func(*options)

type options struct {
	config   Config
	now      func() time.Time
	recorder Recorder
}

func newOptions(opts []Option) options {
	o := options{
		config:   DefaultConfig(),
		now:      time.Now,
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithConfig replaces the default lockout and token settings
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithRecorder reports security events to r
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}
