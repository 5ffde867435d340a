package login

import (
	"fmt"
	"time"
)

const (
	DefaultRole = "user"

	DefaultMaxFailedAttempts = 5
	DefaultLockoutDuration   = 30 * time.Minute
	DefaultSessionTTL        = 8 * time.Hour
	DefaultResetTokenTTL     = time.Hour
	DefaultDispatchTimeout   = 30 * time.Second
)

// Config holds configuration for the LoginService and PasswordResetService
type Config struct {
	MaxFailedAttempts int           // consecutive failures before lockout (default: 5)
	LockoutDuration   time.Duration // cooldown after lockout (default: 30m)
	SessionTTL        time.Duration // session token lifetime (default: 8h)
	ResetTokenTTL     time.Duration // reset link lifetime (default: 1h)
	ResetBaseURL      string        // site origin the reset link points to
	AsyncDispatch     bool          // send reset emails in the background
	DispatchTimeout   time.Duration // per-email send timeout
	PasswordPolicy    PasswordPolicy
}

// DefaultConfig returns a Config with the standard lockout and token lifetimes
func DefaultConfig() Config {
	return Config{
		MaxFailedAttempts: DefaultMaxFailedAttempts,
		LockoutDuration:   DefaultLockoutDuration,
		SessionTTL:        DefaultSessionTTL,
		ResetTokenTTL:     DefaultResetTokenTTL,
		ResetBaseURL:      "http://localhost:3000",
		AsyncDispatch:     true,
		DispatchTimeout:   DefaultDispatchTimeout,
		PasswordPolicy:    DefaultPasswordPolicy(),
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.MaxFailedAttempts < 1 {
		return fmt.Errorf("max failed attempts must be at least 1, got %d", c.MaxFailedAttempts)
	}
	if c.LockoutDuration <= 0 {
		return fmt.Errorf("lockout duration must be positive, got %v", c.LockoutDuration)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %v", c.SessionTTL)
	}
	if c.ResetTokenTTL <= 0 {
		return fmt.Errorf("reset token ttl must be positive, got %v", c.ResetTokenTTL)
	}
	if c.AsyncDispatch && c.DispatchTimeout <= 0 {
		return fmt.Errorf("dispatch timeout must be positive for async dispatch, got %v", c.DispatchTimeout)
	}
	return c.PasswordPolicy.Validate()
}

// LockoutPolicy returns the threshold and cooldown as applied by the store
func (c Config) LockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		MaxFailedAttempts: c.MaxFailedAttempts,
		LockoutDuration:   c.LockoutDuration,
	}
}
