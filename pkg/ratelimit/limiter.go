package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// Store counts requests per key. Implementations must be safe for
// concurrent use.
type Store interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Limit allows Requests per Window for each key
type Limit struct {
	Requests int
	Window   time.Duration
}

func (l Limit) normalize() Limit {
	if l.Requests < 1 {
		l.Requests = 1
	}
	if l.Window <= 0 {
		l.Window = time.Minute
	}
	return l
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore keeps a token bucket per key in process memory. Buckets hold
// Requests tokens and refill at Requests per Window.
type MemoryStore struct {
	limit    Limit
	now      func() time.Time
	mu       sync.Mutex
	visitors map[string]*visitor
	stop     chan struct{}
	stopOnce sync.Once
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithMemoryClock replaces time.Now
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates a store and starts a janitor that drops buckets
// idle for longer than the window. Close stops it.
func NewMemoryStore(limit Limit, opts ...MemoryOption) *MemoryStore {
	limit = limit.normalize()
	s := &MemoryStore{
		limit:    limit,
		now:      time.Now,
		visitors: make(map[string]*visitor),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) Allow(ctx context.Context, key string) (Decision, error) {
	now := s.now()

	s.mu.Lock()
	v, ok := s.visitors[key]
	if !ok {
		every := rate.Every(s.limit.Window / time.Duration(s.limit.Requests))
		v = &visitor{limiter: rate.NewLimiter(every, s.limit.Requests)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	s.mu.Unlock()

	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		return Decision{RetryAfter: s.limit.Window}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{RetryAfter: delay}, nil
	}
	return Decision{Allowed: true, Remaining: int(v.limiter.TokensAt(now))}, nil
}

// Len returns the number of tracked keys
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// Close stops the janitor goroutine
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(s.limit.Window)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep removes buckets that have been idle for a full window; such a bucket
// has refilled completely, so dropping it does not change any decision.
func (s *MemoryStore) sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.limit.Window {
			delete(s.visitors, key)
		}
	}
}
