package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-auth/pkg/config"
	"github.com/tendant/simple-auth/pkg/login"
)

const generatedPasswordBytes = 15

// AdminBootstrapConfig contains configuration for bootstrapping the admin account
type AdminBootstrapConfig struct {
	Admin config.AdminConfig

	Store  login.CredentialStore
	Hasher login.PasswordHasher
	Policy login.PasswordPolicy

	// Now defaults to time.Now
	Now func() time.Time
}

// AdminBootstrapResult contains the result of admin bootstrap operation
type AdminBootstrapResult struct {
	AccountID uuid.UUID
	Username  string
	Email     string
	Role      string
	Password  string // Only populated if auto-generated
	Created   bool   // false when an account with the same username or email already existed

	PasswordFromEnv bool
}

// BootstrapAdmin creates the admin account unless one with the same username
// or email already exists. Running it twice is safe.
func BootstrapAdmin(ctx context.Context, cfg AdminBootstrapConfig) (*AdminBootstrapResult, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid bootstrap configuration: %w", err)
	}

	role := cfg.Admin.Role
	if role == "" {
		role = "admin"
	}
	result := &AdminBootstrapResult{
		Username:        strings.TrimSpace(cfg.Admin.Username),
		Email:           strings.TrimSpace(cfg.Admin.Email),
		Role:            role,
		PasswordFromEnv: cfg.Admin.Password != "",
	}

	password := cfg.Admin.Password
	if password == "" {
		generated, err := generatePassword(cfg.Policy)
		if err != nil {
			return nil, fmt.Errorf("failed to generate admin password: %w", err)
		}
		password = generated
		result.Password = generated
	} else if err := cfg.Policy.Check(password); err != nil {
		return nil, fmt.Errorf("ADMIN_PASSWORD rejected: %w", err)
	}

	hash, err := cfg.Hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	acct, err := cfg.Store.CreateAccount(ctx, login.CreateAccountParams{
		Username:     result.Username,
		Email:        result.Email,
		PasswordHash: hash,
		Role:         role,
		Status:       login.StatusActive,
		CreatedAt:    now().UTC(),
	})
	if err != nil {
		if errors.Is(err, login.ErrAccountExists) {
			slog.Info("Admin account already exists - skipping bootstrap", "username", result.Username)
			result.Password = ""
			return result, nil
		}
		return nil, fmt.Errorf("failed to create admin account: %w", err)
	}

	result.AccountID = acct.ID
	result.Created = true
	slog.Info("Admin account created", "account", acct.ID, "username", acct.Username, "role", acct.Role)
	return result, nil
}

func validateConfig(cfg AdminBootstrapConfig) error {
	if strings.TrimSpace(cfg.Admin.Username) == "" || strings.TrimSpace(cfg.Admin.Email) == "" {
		return fmt.Errorf("admin username and email are required")
	}
	if cfg.Store == nil {
		return fmt.Errorf("credential store is required")
	}
	if cfg.Hasher == nil {
		return fmt.Errorf("password hasher is required")
	}
	return cfg.Policy.Validate()
}

// generatePassword draws random passwords until one satisfies policy.
func generatePassword(policy login.PasswordPolicy) (string, error) {
	n := generatedPasswordBytes
	if ml := policy.MinLength; base64.RawURLEncoding.EncodedLen(n) < ml {
		n = (ml*3 + 3) / 4
	}
	for i := 0; i < 32; i++ {
		b := make([]byte, n)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		pw := base64.RawURLEncoding.EncodeToString(b)
		if policy.Check(pw) == nil {
			return pw, nil
		}
	}
	return "", fmt.Errorf("no generated password satisfied the password policy")
}
