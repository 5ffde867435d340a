package login

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tendant/simple-auth/pkg/tokengenerator"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestHasher(t *testing.T) *BoundedHasher {
	t.Helper()
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return NewBoundedHasher(h, 4)
}

func newTestTokens(t *testing.T, clock *testClock) *tokengenerator.JwtTokenGenerator {
	t.Helper()
	g, err := tokengenerator.NewJwtTokenGenerator("test-secret", tokengenerator.WithClock(clock.Now))
	require.NoError(t, err)
	return g
}

func seedAccount(t *testing.T, store *InMemoryCredentialStore, hasher PasswordHasher, username, email, password string, mutate ...func(*Account)) Account {
	t.Helper()
	hash, err := hasher.Hash(context.Background(), password)
	require.NoError(t, err)

	a := Account{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         "admin",
		Status:       StatusActive,
	}
	for _, m := range mutate {
		m(&a)
	}
	store.Put(a)
	return a
}

func timePtr(t time.Time) *time.Time { return &t }

type sentReset struct {
	Email     string
	Username  string
	Link      string
	ExpiresAt time.Time
}

// recordingNotifier captures reset emails instead of sending them
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentReset
	err  error
}

func (n *recordingNotifier) SendPasswordReset(ctx context.Context, email, username, link string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentReset{Email: email, Username: username, Link: link, ExpiresAt: expiresAt})
	return n.err
}

func (n *recordingNotifier) Sent() []sentReset {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentReset(nil), n.sent...)
}

// countingRecorder counts security events by name
type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{counts: make(map[string]int)}
}

func (r *countingRecorder) inc(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[key]++
}

func (r *countingRecorder) Count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

func (r *countingRecorder) LoginAttempt(outcome string)   { r.inc("login:" + outcome) }
func (r *countingRecorder) LockoutEngaged()               { r.inc("lockout") }
func (r *countingRecorder) ResetRequested()               { r.inc("reset_requested") }
func (r *countingRecorder) ResetCompleted(outcome string) { r.inc("reset:" + outcome) }
func (r *countingRecorder) NotificationFailed()           { r.inc("notification_failed") }

// failingStore returns err from every lookup
type failingStore struct {
	CredentialStore
	err error
}

func (s failingStore) FindByIdentifier(ctx context.Context, identifier string) (Account, error) {
	return Account{}, s.err
}

func (s failingStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	return Account{}, s.err
}

func (s failingStore) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (Account, error) {
	return Account{}, s.err
}
