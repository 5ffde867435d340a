package login

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tendant/simple-auth/pkg/config"
	"github.com/tendant/simple-auth/pkg/database"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	dbName := "simple_auth"
	dbUser := "auth"
	dbPassword := "pwd"

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		Host:            host,
		Port:            uint16(port.Int()),
		Name:            dbName,
		User:            dbUser,
		Password:        dbPassword,
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    1,
		ConnMaxLifetime: "PT5M",
	}
	require.NoError(t, database.RunMigrate(nil, cfg, "up", nil))

	pool, err := database.OpenPostgres(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresCredentialStore_Integration(t *testing.T) {
	pool := setupTestDatabase(t)
	store := NewPostgresCredentialStore(pool)

	runCredentialStoreContract(t, store)

	t.Run("email lookup is case insensitive", func(t *testing.T) {
		ctx := context.Background()
		_, err := store.CreateAccount(ctx, CreateAccountParams{
			Username: "casey", Email: "Casey@Example.com", PasswordHash: "h", CreatedAt: time.Now(),
		})
		require.NoError(t, err)

		got, err := store.FindByEmail(ctx, "casey@example.com")
		require.NoError(t, err)
		assert.Equal(t, "casey", got.Username)
	})

	t.Run("concurrent failures lock exactly once", func(t *testing.T) {
		ctx := context.Background()
		acct, err := store.CreateAccount(ctx, CreateAccountParams{
			Username: "racer", Email: "racer@example.com", PasswordHash: "h", CreatedAt: time.Now(),
		})
		require.NoError(t, err)

		policy := LockoutPolicy{MaxFailedAttempts: 5, LockoutDuration: 30 * time.Minute}
		now := time.Now().UTC().Truncate(time.Second)
		results := make(chan FailedAttemptResult, 20)
		for i := 0; i < 20; i++ {
			go func() {
				res, err := store.RecordFailedAttempt(ctx, acct.ID, policy, now)
				assert.NoError(t, err)
				results <- res
			}()
		}

		locked := 0
		for i := 0; i < 20; i++ {
			if (<-results).Locked {
				locked++
			}
		}
		assert.Equal(t, 1, locked)

		got, err := store.FindByIdentifier(ctx, "racer")
		require.NoError(t, err)
		assert.Equal(t, 20, got.FailedAttempts)
	})
}
