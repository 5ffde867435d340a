package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/response"
)

// KeyFunc derives the rate limit key of a request
type KeyFunc func(r *http.Request) string

// Middleware rejects requests over the limit with 429
type Middleware struct {
	store   Store
	keyFunc KeyFunc
	onLimit func(key string)
}

// MiddlewareOption configures a Middleware
type MiddlewareOption func(*Middleware)

// WithKeyFunc overrides the default client IP plus path key
func WithKeyFunc(fn KeyFunc) MiddlewareOption {
	return func(m *Middleware) { m.keyFunc = fn }
}

// WithOnLimit is called for every rejected request, e.g. to count it
func WithOnLimit(fn func(key string)) MiddlewareOption {
	return func(m *Middleware) { m.onLimit = fn }
}

// NewMiddleware creates a new rate limiting middleware
func NewMiddleware(store Store, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{store: store, keyFunc: ClientIPPathKey}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler returns the rate limiting middleware handler. Store errors fail
// open so a Redis outage does not take down login.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.keyFunc(r)
		decision, err := m.store.Allow(r.Context(), key)
		if err != nil {
			slog.Warn("Rate limit store unavailable, allowing request", "path", r.URL.Path, "err", err)
			next.ServeHTTP(w, r)
			return
		}

		if !decision.Allowed {
			m.rateLimitExceeded(w, r, key, decision)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) rateLimitExceeded(w http.ResponseWriter, r *http.Request, key string, decision Decision) {
	seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	retryAfter := strconv.Itoa(seconds)

	slog.Warn("Rate limit exceeded", "key", key, "method", r.Method, "retry_after", retryAfter)
	if m.onLimit != nil {
		m.onLimit(key)
	}

	w.Header().Set("Retry-After", retryAfter)
	response.Error(w, r, errors.RateLimitExceeded(retryAfter))
}

// ClientIPPathKey keys on the client address and the request path. The
// address comes from RemoteAddr; mount chi's RealIP middleware in front
// when running behind a trusted proxy.
func ClientIPPathKey(r *http.Request) string {
	return clientIP(r) + "|" + r.URL.Path
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
