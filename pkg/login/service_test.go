package login

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-auth/pkg/errors"
)

type loginFixture struct {
	clock    *testClock
	store    *InMemoryCredentialStore
	hasher   *BoundedHasher
	recorder *countingRecorder
	svc      *LoginService
}

func newLoginFixture(t *testing.T) *loginFixture {
	t.Helper()
	f := &loginFixture{
		clock:    newTestClock(),
		store:    NewInMemoryCredentialStore(),
		hasher:   newTestHasher(t),
		recorder: newCountingRecorder(),
	}
	svc, err := NewLoginService(f.store, f.hasher, newTestTokens(t, f.clock),
		WithClock(f.clock.Now), WithRecorder(f.recorder))
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestAuthenticate_Success(t *testing.T) {
	f := newLoginFixture(t)
	acct := seedAccount(t, f.store, f.hasher, "jdoe", "jdoe@example.com", "correct-horse", func(a *Account) {
		a.FailedAttempts = 4
	})

	result, err := f.svc.Authenticate(context.Background(), "jdoe", "correct-horse")
	require.NoError(t, err)

	assert.NotEmpty(t, result.Token)
	assert.Equal(t, f.clock.Now().Add(DefaultSessionTTL), result.ExpiresAt)
	assert.Equal(t, acct.ID, result.User.ID)
	assert.Equal(t, "jdoe", result.User.Username)
	assert.Equal(t, "jdoe@example.com", result.User.Email)
	assert.Equal(t, "admin", result.User.Role)
	assert.Equal(t, f.clock.Now(), result.User.LastLogin)

	stored, _ := f.store.Get(acct.ID)
	assert.Equal(t, 0, stored.FailedAttempts)
	assert.Nil(t, stored.LockoutUntil)
	assert.Equal(t, StatusActive, stored.Status)
	require.NotNil(t, stored.LastLoginAt)
	assert.Equal(t, f.clock.Now(), *stored.LastLoginAt)
	assert.Equal(t, 1, f.recorder.Count("login:"+OutcomeSuccess))
}

func TestAuthenticate_SuccessClearsFailures(t *testing.T) {
	for prior := 0; prior < DefaultMaxFailedAttempts; prior++ {
		t.Run(fmt.Sprintf("%d prior failures", prior), func(t *testing.T) {
			f := newLoginFixture(t)
			acct := seedAccount(t, f.store, f.hasher, "jdoe", "jdoe@example.com", "correct-horse", func(a *Account) {
				a.FailedAttempts = prior
				a.LockoutUntil = timePtr(f.clock.Now().Add(-time.Minute))
			})

			_, err := f.svc.Authenticate(context.Background(), "jdoe", "correct-horse")
			require.NoError(t, err)

			stored, _ := f.store.Get(acct.ID)
			assert.Equal(t, 0, stored.FailedAttempts)
			assert.Nil(t, stored.LockoutUntil)
			assert.Equal(t, StatusActive, stored.Status)
		})
	}
}

func TestAuthenticate_ByEmail(t *testing.T) {
	f := newLoginFixture(t)
	seedAccount(t, f.store, f.hasher, "jdoe", "jdoe@example.com", "correct-horse")

	result, err := f.svc.Authenticate(context.Background(), "JDoe@Example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", result.User.Username)
}

func TestAuthenticate_Validation(t *testing.T) {
	f := newLoginFixture(t)

	for _, tc := range []struct{ identifier, password string }{
		{"", "pw"},
		{"jdoe", ""},
		{"   ", "pw"},
	} {
		_, err := f.svc.Authenticate(context.Background(), tc.identifier, tc.password)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation), "identifier=%q", tc.identifier)
	}
}

func TestAuthenticate_UnknownIdentifierMatchesWrongPassword(t *testing.T) {
	f := newLoginFixture(t)
	seedAccount(t, f.store, f.hasher, "jdoe", "jdoe@example.com", "correct-horse")

	_, unknownErr := f.svc.Authenticate(context.Background(), "nobody", "whatever")
	_, wrongErr := f.svc.Authenticate(context.Background(), "jdoe", "whatever")

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, errors.GetCode(unknownErr), errors.GetCode(wrongErr))
	assert.Equal(t, errors.PublicMessage(unknownErr), errors.PublicMessage(wrongErr))
	assert.Equal(t, "Invalid credentials", errors.PublicMessage(unknownErr))
	assert.True(t, errors.IsCategory(unknownErr, errors.CategoryAuthentication))
}

func TestAuthenticate_LockoutLifecycle(t *testing.T) {
	f := newLoginFixture(t)
	acct := seedAccount(t, f.store, f.hasher, "jdoe", "jdoe@example.com", "correct-horse")
	ctx := context.Background()
	lockedAt := f.clock.Now()

	for i := 1; i <= DefaultMaxFailedAttempts; i++ {
		_, err := f.svc.Authenticate(ctx, "jdoe", "wrong")
		require.True(t, errors.IsCode(err, errors.ErrCodeInvalidCredentials), "attempt %d", i)
	}

	stored, _ := f.store.Get(acct.ID)
	assert.Equal(t, DefaultMaxFailedAttempts, stored.FailedAttempts)
	assert.Equal(t, StatusLocked, stored.Status)
	require.NotNil(t, stored.LockoutUntil)
	assert.Equal(t, lockedAt.Add(DefaultLockoutDuration), *stored.LockoutUntil)
	assert.Equal(t, 1, f.recorder.Count("lockout"))

	t.Run("correct password refused while locked", func(t *testing.T) {
		_, err := f.svc.Authenticate(ctx, "jdoe", "correct-horse")
		require.True(t, errors.IsCode(err, errors.ErrCodeAccountLocked))
		assert.True(t, errors.IsCategory(err, errors.CategoryAuthorization))
		assert.Contains(t, errors.PublicMessage(err), "30 minutes")
	})

	t.Run("wrong password while locked does not count", func(t *testing.T) {
		_, err := f.svc.Authenticate(ctx, "jdoe", "wrong")
		require.True(t, errors.IsCode(err, errors.ErrCodeAccountLocked))
		stored, _ := f.store.Get(acct.ID)
		assert.Equal(t, DefaultMaxFailedAttempts, stored.FailedAttempts)
	})

	t.Run("remaining time decreases and is never zero", func(t *testing.T) {
		f.clock.Advance(29*time.Minute + 30*time.Second)
		_, err := f.svc.Authenticate(ctx, "jdoe", "correct-horse")
		require.True(t, errors.IsCode(err, errors.ErrCodeAccountLocked))
		assert.Contains(t, errors.PublicMessage(err), "1 minute")
	})

	t.Run("login succeeds once cooldown elapsed", func(t *testing.T) {
		f.clock.Advance(time.Minute)
		_, err := f.svc.Authenticate(ctx, "jdoe", "correct-horse")
		require.NoError(t, err)

		stored, _ := f.store.Get(acct.ID)
		assert.Equal(t, 0, stored.FailedAttempts)
		assert.Nil(t, stored.LockoutUntil)
		assert.Equal(t, StatusActive, stored.Status)
	})
}

func TestAuthenticate_ExpiredLockRelocksOnNextFailure(t *testing.T) {
	f := newLoginFixture(t)
	acct := seedAccount(t, f.store, f.hasher, "jdoe", "jdoe@example.com", "correct-horse", func(a *Account) {
		a.Status = StatusLocked
		a.FailedAttempts = 5
		a.LockoutUntil = timePtr(f.clock.Now().Add(-time.Minute))
	})

	_, err := f.svc.Authenticate(context.Background(), "jdoe", "wrong")
	require.True(t, errors.IsCode(err, errors.ErrCodeInvalidCredentials))

	stored, _ := f.store.Get(acct.ID)
	assert.Equal(t, 6, stored.FailedAttempts)
	assert.Equal(t, StatusLocked, stored.Status)
	require.NotNil(t, stored.LockoutUntil)
	assert.Equal(t, f.clock.Now().Add(DefaultLockoutDuration), *stored.LockoutUntil)
}

func TestAuthenticate_LockedWithoutDeadline(t *testing.T) {
	f := newLoginFixture(t)
	seedAccount(t, f.store, f.hasher, "jdoe", "jdoe@example.com", "correct-horse", func(a *Account) {
		a.Status = StatusLocked
	})

	_, err := f.svc.Authenticate(context.Background(), "jdoe", "correct-horse")
	require.True(t, errors.IsCode(err, errors.ErrCodeAccountLocked))
	assert.Contains(t, errors.PublicMessage(err), "1 minute")
}

func TestAuthenticate_Suspended(t *testing.T) {
	f := newLoginFixture(t)
	acct := seedAccount(t, f.store, f.hasher, "jdoe", "jdoe@example.com", "correct-horse", func(a *Account) {
		a.Status = StatusSuspended
		a.LockoutUntil = timePtr(f.clock.Now().Add(-time.Hour))
	})

	_, err := f.svc.Authenticate(context.Background(), "jdoe", "correct-horse")
	require.True(t, errors.IsCode(err, errors.ErrCodeAccountSuspended))
	assert.Equal(t, "Account suspended. Contact an administrator.", errors.PublicMessage(err))

	_, err = f.svc.Authenticate(context.Background(), "jdoe", "wrong")
	require.True(t, errors.IsCode(err, errors.ErrCodeAccountSuspended))

	stored, _ := f.store.Get(acct.ID)
	assert.Equal(t, 0, stored.FailedAttempts)
}

func TestAuthenticate_ConcurrentFailures(t *testing.T) {
	f := newLoginFixture(t)
	acct := seedAccount(t, f.store, f.hasher, "jdoe", "jdoe@example.com", "correct-horse")

	const attempts = 20
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Authenticate(context.Background(), "jdoe", "wrong")
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	stored, _ := f.store.Get(acct.ID)
	assert.GreaterOrEqual(t, stored.FailedAttempts, DefaultMaxFailedAttempts)
	assert.LessOrEqual(t, stored.FailedAttempts, attempts)
	assert.Equal(t, StatusLocked, stored.Status)
	require.NotNil(t, stored.LockoutUntil)
	assert.Equal(t, f.clock.Now().Add(DefaultLockoutDuration), *stored.LockoutUntil)
	assert.Equal(t, 1, f.recorder.Count("lockout"))
}

func TestAuthenticate_StorageFailure(t *testing.T) {
	clock := newTestClock()
	store := failingStore{err: stderrors.New("connection reset by peer")}
	svc, err := NewLoginService(store, newTestHasher(t), newTestTokens(t, clock), WithClock(clock.Now))
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "jdoe", "correct-horse")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryInternal))
	assert.Equal(t, "Internal server error", errors.PublicMessage(err))
}

func TestNewLoginService_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFailedAttempts = 0
	_, err := NewLoginService(NewInMemoryCredentialStore(), newTestHasher(t), nil, WithConfig(cfg))
	assert.Error(t, err)
}
