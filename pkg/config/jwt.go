package config

import (
	"errors"
	"time"
)

// DefaultJWTSecret is the development fallback. Startup warns when it is in use.
const DefaultJWTSecret = "very-secure-jwt-secret"

// JWTConfig holds session token configuration
type JWTConfig struct {
	Secret        string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer        string `env:"JWT_ISSUER" env-default:"simple-auth"`
	SessionExpiry string `env:"SESSION_TOKEN_EXPIRY" env-default:"PT8H"`
}

// ParseSessionExpiry parses the session token lifetime
func (j JWTConfig) ParseSessionExpiry() (time.Duration, error) {
	return parseISO8601OrGoDuration(j.SessionExpiry)
}

// UsesDefaultSecret reports whether the signing secret was never configured
func (j JWTConfig) UsesDefaultSecret() bool {
	return j.Secret == DefaultJWTSecret
}

func (j JWTConfig) Validate() error {
	if j.Secret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	return positiveDuration("SESSION_TOKEN_EXPIRY", j.SessionExpiry)
}
