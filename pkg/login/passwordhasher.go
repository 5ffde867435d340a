package login

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// PasswordHasher hashes and verifies passwords.
// Verify returns (false, nil) on a mismatch and an error only when the
// comparison itself could not be performed.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hashed string) (bool, error)
}

// BcryptHasher implements PasswordHasher with bcrypt at a fixed cost
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt hasher. Costs outside bcrypt's range are rejected.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash implements PasswordHasher.Hash
func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// Verify implements PasswordHasher.Verify. The comparison is constant-time.
func (h *BcryptHasher) Verify(ctx context.Context, password, hashedPassword string) (bool, error) {
	if password == "" || hashedPassword == "" {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// BoundedHasher limits how many hash operations run at once. Callers wait for
// a slot and give up when their context is cancelled.
type BoundedHasher struct {
	inner PasswordHasher
	sem   *semaphore.Weighted

	dummyOnce sync.Once
	dummy     string
}

// NewBoundedHasher wraps inner with a pool of size workers
func NewBoundedHasher(inner PasswordHasher, workers int) *BoundedHasher {
	if workers < 1 {
		workers = 1
	}
	return &BoundedHasher{
		inner: inner,
		sem:   semaphore.NewWeighted(int64(workers)),
	}
}

func (h *BoundedHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)
	return h.inner.Hash(ctx, password)
}

func (h *BoundedHasher) Verify(ctx context.Context, password, hashed string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)
	return h.inner.Verify(ctx, password, hashed)
}

// VerifyDummy spends the same work as a real verification against a hash
// nobody knows the password for.
func (h *BoundedHasher) VerifyDummy(ctx context.Context, password string) {
	h.dummyOnce.Do(func() {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return
		}
		h.dummy, _ = h.inner.Hash(context.Background(), hex.EncodeToString(b))
	})
	if h.dummy == "" {
		return
	}
	_, _ = h.Verify(ctx, password, h.dummy)
}
