package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/tendant/simple-auth/pkg/bootstrap"
	"github.com/tendant/simple-auth/pkg/config"
	"github.com/tendant/simple-auth/pkg/database"
	"github.com/tendant/simple-auth/pkg/login"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.Log.NewLogger(os.Stdout))

	// Flags override the ADMIN_* environment variables
	flag.StringVar(&cfg.Admin.Username, "username", cfg.Admin.Username, "Username of the admin account")
	flag.StringVar(&cfg.Admin.Email, "email", cfg.Admin.Email, "Email of the admin account")
	flag.StringVar(&cfg.Admin.Password, "password", cfg.Admin.Password, "Password of the admin account (generated when empty)")
	flag.StringVar(&cfg.Admin.Role, "role", cfg.Admin.Role, "Role of the admin account")
	flag.Parse()

	if cfg.Database.Driver == config.DriverMemory {
		slog.Error("init-admin needs a persistent database; the memory driver seeds its admin at startup")
		os.Exit(1)
	}

	ctx := context.Background()
	storeCfg := login.StoreConfig{Driver: cfg.Database.Driver}
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.Database)
		if err != nil {
			slog.Error("Failed to connect to database", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		storeCfg.Postgres = pool
	case config.DriverMySQL:
		db, err := database.OpenMySQL(ctx, cfg.Database)
		if err != nil {
			slog.Error("Failed to connect to database", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		storeCfg.MySQL = db
	}

	store, err := login.NewCredentialStore(storeCfg)
	if err != nil {
		slog.Error("Failed to create credential store", "err", err)
		os.Exit(1)
	}
	if err := store.VerifySchema(ctx); err != nil {
		slog.Error("Accounts table is missing or incomplete - run migrate up first", "err", err)
		os.Exit(1)
	}

	hasher, err := login.NewBcryptHasher(cfg.Login.BcryptCost)
	if err != nil {
		slog.Error("Invalid bcrypt cost", "err", err)
		os.Exit(1)
	}
	policy := login.DefaultPasswordPolicy()
	policy.MinLength = cfg.Login.PasswordMinLength

	result, err := bootstrap.BootstrapAdmin(ctx, bootstrap.AdminBootstrapConfig{
		Admin:  cfg.Admin,
		Store:  store,
		Hasher: hasher,
		Policy: policy,
	})
	if err != nil {
		slog.Error("Admin bootstrap failed", "err", err)
		os.Exit(1)
	}

	bootstrap.LogBootstrapSummary(result)
	bootstrap.PrintBootstrapResult(os.Stdout, result)
}
