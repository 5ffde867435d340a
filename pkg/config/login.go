package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// LoginConfig contains credential verification and lockout settings.
type LoginConfig struct {
	// MaxFailedAttempts is the number of consecutive failures that locks an account
	MaxFailedAttempts int `env:"LOGIN_MAX_FAILED_ATTEMPTS" env-default:"5"`

	// LockoutDuration is the cooldown after lockout (ISO 8601 format, e.g., "PT30M")
	LockoutDuration string `env:"LOGIN_LOCKOUT_DURATION" env-default:"PT30M"`

	// BcryptCost is the work factor for new password hashes
	BcryptCost int `env:"BCRYPT_COST" env-default:"12"`

	// HashConcurrency bounds simultaneous hash operations; 0 means GOMAXPROCS
	HashConcurrency int `env:"HASH_CONCURRENCY" env-default:"0"`

	// PasswordMinLength applies to passwords set through a reset
	PasswordMinLength int `env:"PASSWORD_MIN_LENGTH" env-default:"8"`
}

// ParseLockoutDuration parses the LockoutDuration field as a time.Duration.
// Supports ISO 8601 duration format (e.g., "PT30M") and Go duration format (e.g., "30m").
func (c LoginConfig) ParseLockoutDuration() (time.Duration, error) {
	return parseISO8601OrGoDuration(c.LockoutDuration)
}

// HashWorkers returns the effective hashing concurrency
func (c LoginConfig) HashWorkers() int {
	if c.HashConcurrency > 0 {
		return c.HashConcurrency
	}
	return runtime.GOMAXPROCS(0)
}

func (c LoginConfig) Validate() error {
	var errs []error
	if c.MaxFailedAttempts < 1 {
		errs = append(errs, fmt.Errorf("LOGIN_MAX_FAILED_ATTEMPTS must be at least 1, got %d", c.MaxFailedAttempts))
	}
	if err := positiveDuration("LOGIN_LOCKOUT_DURATION", c.LockoutDuration); err != nil {
		errs = append(errs, err)
	}
	// bcrypt accepts 4..31
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost))
	}
	if c.HashConcurrency < 0 {
		errs = append(errs, fmt.Errorf("HASH_CONCURRENCY must not be negative, got %d", c.HashConcurrency))
	}
	if c.PasswordMinLength < 1 || c.PasswordMinLength > 72 {
		errs = append(errs, fmt.Errorf("PASSWORD_MIN_LENGTH must be between 1 and 72, got %d", c.PasswordMinLength))
	}
	return errors.Join(errs...)
}

// PasswordResetConfig controls reset token lifetime and delivery.
type PasswordResetConfig struct {
	TokenExpiry     string `env:"PASSWORD_RESET_TOKEN_EXPIRY" env-default:"PT1H"`
	BaseURL         string `env:"PASSWORD_RESET_BASE_URL" env-default:"http://localhost:3000"`
	AsyncDispatch   bool   `env:"PASSWORD_RESET_ASYNC_DISPATCH" env-default:"true"`
	DispatchTimeout string `env:"PASSWORD_RESET_DISPATCH_TIMEOUT" env-default:"PT30S"`
}

// ParseTokenExpiry parses the reset token lifetime
func (c PasswordResetConfig) ParseTokenExpiry() (time.Duration, error) {
	return parseISO8601OrGoDuration(c.TokenExpiry)
}

// ParseDispatchTimeout parses the per-email send timeout
func (c PasswordResetConfig) ParseDispatchTimeout() (time.Duration, error) {
	return parseISO8601OrGoDuration(c.DispatchTimeout)
}

func (c PasswordResetConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("PASSWORD_RESET_BASE_URL must not be empty")
	}
	return errors.Join(
		positiveDuration("PASSWORD_RESET_TOKEN_EXPIRY", c.TokenExpiry),
		positiveDuration("PASSWORD_RESET_DISPATCH_TIMEOUT", c.DispatchTimeout),
	)
}
