package tokengenerator

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tendant/simple-auth/pkg/errors"
)

// InvalidSessionMessage is returned for any token that fails verification.
// Expired, tampered and malformed tokens are deliberately indistinguishable.
const InvalidSessionMessage = "Session has expired or is invalid"

// Identity is the subject a session token is issued for
type Identity struct {
	ID       string
	Username string
	Role     string
}

// SessionClaims is the payload of a session token
type SessionClaims struct {
	AccountID string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token and the instant it stops being accepted
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// JwtTokenGenerator signs and verifies HS256 session tokens
type JwtTokenGenerator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option configures a JwtTokenGenerator
type Option func(*JwtTokenGenerator)

// WithIssuer sets the iss claim; tokens from another issuer are rejected
func WithIssuer(issuer string) Option {
	return func(g *JwtTokenGenerator) {
		g.issuer = issuer
	}
}

// WithClock replaces time.Now for issuing and expiry checks
func WithClock(now func() time.Time) Option {
	return func(g *JwtTokenGenerator) {
		g.now = now
	}
}

// NewJwtTokenGenerator creates a generator signing with secret
func NewJwtTokenGenerator(secret string, opts ...Option) (*JwtTokenGenerator, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	g := &JwtTokenGenerator{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Issue signs a token for identity that expires after ttl
func (g *JwtTokenGenerator) Issue(identity Identity, ttl time.Duration) (IssuedToken, error) {
	if ttl <= 0 {
		return IssuedToken{}, fmt.Errorf("token ttl must be positive, got %v", ttl)
	}
	if identity.ID == "" {
		return IssuedToken{}, fmt.Errorf("token identity must have an id")
	}

	now := g.now()
	// exp has whole-second precision; round up so a token never lives
	// shorter than ttl.
	exp := now.Add(ttl)
	if t := exp.Truncate(time.Second); t.Before(exp) {
		exp = t.Add(time.Second)
	}
	claims := SessionClaims{
		AccountID: identity.ID,
		Username:  identity.Username,
		Role:      identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID,
			Issuer:    g.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return IssuedToken{Token: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks signature, algorithm, issuer and expiry and returns the claims.
// Every failure is an authorization error with the same message.
func (g *JwtTokenGenerator) Verify(tokenStr string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	}
	if g.issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.issuer))
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTokenInvalid, InvalidSessionMessage)
	}
	if claims.AccountID == "" {
		return nil, errors.New(errors.ErrCodeTokenInvalid, InvalidSessionMessage)
	}
	return claims, nil
}
