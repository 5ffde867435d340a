package tokengenerator

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/jwtauth/v5"

	"github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/response"
)

// AuthUser is the verified caller attached to the request context
type AuthUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (u AuthUser) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user", u.ID),
		slog.String("role", u.Role),
	)
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "auth context value " + k.name
}

var (
	AuthUserKey = &contextKey{"AuthUser"}
)

// AuthUserFromContext returns the caller set by Authenticator
func AuthUserFromContext(ctx context.Context) (AuthUser, bool) {
	u, ok := ctx.Value(AuthUserKey).(AuthUser)
	return u, ok
}

// WithAuthUser stores u in ctx
func WithAuthUser(ctx context.Context, u AuthUser) context.Context {
	return context.WithValue(ctx, AuthUserKey, u)
}

// Verifier validates a raw token string
type Verifier interface {
	Verify(token string) (*SessionClaims, error)
}

// Authenticator requires an "Authorization: Bearer <token>" header.
// A missing or malformed header answers 401; a token that fails
// verification answers 403.
func Authenticator(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := jwtauth.TokenFromHeader(r)
			if raw == "" {
				response.Error(w, r, errors.Unauthorized("Authentication required"))
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				slog.Debug("Rejected session token", "path", r.URL.Path, "err", err)
				response.Error(w, r, err)
				return
			}

			user := AuthUser{
				ID:       claims.AccountID,
				Username: claims.Username,
				Role:     claims.Role,
			}
			if claims.ExpiresAt != nil {
				user.ExpiresAt = claims.ExpiresAt.Time
			}
			next.ServeHTTP(w, r.WithContext(WithAuthUser(r.Context(), user)))
		})
	}
}

// RequireRole lets the request through only when the authenticated caller
// holds one of roles. It must run after Authenticator.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := AuthUserFromContext(r.Context())
			if !ok {
				response.Error(w, r, errors.Unauthorized("Authentication required"))
				return
			}
			if !slices.Contains(roles, user.Role) {
				slog.Warn("Role check failed", "user", user, "required", roles)
				response.Error(w, r, errors.Forbidden("Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
