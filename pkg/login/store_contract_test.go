package login

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCredentialStoreContract exercises the behaviour every CredentialStore
// must share, independent of the backing database.
func runCredentialStoreContract(t *testing.T, store CredentialStore) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	policy := LockoutPolicy{MaxFailedAttempts: 5, LockoutDuration: 30 * time.Minute}

	acct, err := store.CreateAccount(ctx, CreateAccountParams{
		ID:           uuid.New(),
		Username:     "jdoe-" + uuid.NewString()[:8],
		Email:        uuid.NewString()[:8] + "@example.com",
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
		Role:         "admin",
		CreatedAt:    base,
	})
	require.NoError(t, err)

	t.Run("create rejects duplicates", func(t *testing.T) {
		_, err := store.CreateAccount(ctx, CreateAccountParams{
			Username:     acct.Username,
			Email:        acct.Email,
			PasswordHash: "x",
			CreatedAt:    base,
		})
		assert.ErrorIs(t, err, ErrAccountExists)
	})

	t.Run("find by username or email", func(t *testing.T) {
		byName, err := store.FindByIdentifier(ctx, acct.Username)
		require.NoError(t, err)
		assert.Equal(t, acct.ID, byName.ID)
		assert.Equal(t, StatusActive, byName.Status)
		assert.Equal(t, 0, byName.FailedAttempts)
		assert.Nil(t, byName.LockoutUntil)

		byEmail, err := store.FindByIdentifier(ctx, acct.Email)
		require.NoError(t, err)
		assert.Equal(t, acct.ID, byEmail.ID)

		_, err = store.FindByIdentifier(ctx, "missing-"+uuid.NewString())
		assert.ErrorIs(t, err, ErrAccountNotFound)

		_, err = store.FindByEmail(ctx, "missing-"+uuid.NewString()+"@example.com")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("failed attempts lock at threshold without extending", func(t *testing.T) {
		for i := 1; i < policy.MaxFailedAttempts; i++ {
			res, err := store.RecordFailedAttempt(ctx, acct.ID, policy, base)
			require.NoError(t, err)
			assert.Equal(t, i, res.FailedAttempts)
			assert.False(t, res.Locked)
			assert.Equal(t, StatusActive, res.Status)
			assert.Nil(t, res.LockoutUntil)
		}

		res, err := store.RecordFailedAttempt(ctx, acct.ID, policy, base)
		require.NoError(t, err)
		assert.Equal(t, 5, res.FailedAttempts)
		assert.True(t, res.Locked)
		assert.Equal(t, StatusLocked, res.Status)
		require.NotNil(t, res.LockoutUntil)
		assert.WithinDuration(t, base.Add(30*time.Minute), *res.LockoutUntil, 0)

		// A racing failure inside the window keeps the original deadline.
		res, err = store.RecordFailedAttempt(ctx, acct.ID, policy, base.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 6, res.FailedAttempts)
		assert.False(t, res.Locked)
		assert.WithinDuration(t, base.Add(30*time.Minute), *res.LockoutUntil, 0)

		// After the window a further failure locks again.
		later := base.Add(31 * time.Minute)
		res, err = store.RecordFailedAttempt(ctx, acct.ID, policy, later)
		require.NoError(t, err)
		assert.True(t, res.Locked)
		assert.WithinDuration(t, later.Add(30*time.Minute), *res.LockoutUntil, 0)
	})

	t.Run("successful login clears security state", func(t *testing.T) {
		at := base.Add(2 * time.Hour)
		require.NoError(t, store.RecordSuccessfulLogin(ctx, acct.ID, at))

		got, err := store.FindByIdentifier(ctx, acct.Username)
		require.NoError(t, err)
		assert.Equal(t, 0, got.FailedAttempts)
		assert.Nil(t, got.LockoutUntil)
		assert.Equal(t, StatusActive, got.Status)
		require.NotNil(t, got.LastLoginAt)
		assert.WithinDuration(t, at, *got.LastLoginAt, 0)
	})

	t.Run("reset token lifecycle", func(t *testing.T) {
		hash := HashResetToken("raw-token-" + uuid.NewString())
		expires := base.Add(time.Hour)
		require.NoError(t, store.SetResetToken(ctx, acct.ID, hash, expires))

		found, err := store.FindByResetToken(ctx, hash, base.Add(59*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, acct.ID, found.ID)

		_, err = store.FindByResetToken(ctx, hash, base.Add(61*time.Minute))
		assert.ErrorIs(t, err, ErrAccountNotFound)

		_, err = store.CompletePasswordReset(ctx, CompleteResetParams{TokenHash: hash, PasswordHash: "new", Now: base.Add(61 * time.Minute)})
		assert.ErrorIs(t, err, ErrAccountNotFound, "expired tokens are not consumed")

		id, err := store.CompletePasswordReset(ctx, CompleteResetParams{TokenHash: hash, PasswordHash: "new", Now: base.Add(30 * time.Minute)})
		require.NoError(t, err)
		assert.Equal(t, acct.ID, id)

		_, err = store.CompletePasswordReset(ctx, CompleteResetParams{TokenHash: hash, PasswordHash: "again", Now: base.Add(31 * time.Minute)})
		assert.ErrorIs(t, err, ErrAccountNotFound)

		got, err := store.FindByIdentifier(ctx, acct.Username)
		require.NoError(t, err)
		assert.Equal(t, "new", got.PasswordHash)
		assert.Empty(t, got.ResetTokenHash)
		assert.Nil(t, got.ResetTokenExpiry)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := store.RecordFailedAttempt(ctx, uuid.New(), policy, base)
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.ErrorIs(t, store.RecordSuccessfulLogin(ctx, uuid.New(), base), ErrAccountNotFound)
		assert.ErrorIs(t, store.SetResetToken(ctx, uuid.New(), "h", base), ErrAccountNotFound)
	})

	t.Run("schema", func(t *testing.T) {
		assert.NoError(t, store.VerifySchema(ctx))
	})
}
