// Package login verifies credentials, enforces account lockout and runs the
// password reset token lifecycle.
//
// # Login
//
// LoginService.Authenticate looks the identifier up as username or email,
// refuses suspended and locked accounts before checking the password, and on a
// mismatch records the failure with one atomic conditional write. After
// MaxFailedAttempts consecutive failures (default 5) the account is locked for
// LockoutDuration (default 30 minutes). A correct password clears the counter
// and returns a signed session token.
//
//	store := login.NewPostgresCredentialStore(pool)
//	hasher := login.NewBoundedHasher(bcryptHasher, runtime.GOMAXPROCS(0))
//	svc, err := login.NewLoginService(store, hasher, tokens)
//	result, err := svc.Authenticate(ctx, "jdoe", "secret")
//
// # Password Reset
//
// PasswordResetService.RequestReset stores the SHA-256 of a random 64-hex-char
// token with a one hour expiry, then mails the raw token. Unknown emails get the
// same nil result. ResetPassword consumes the token exactly once, sets the new
// password hash and clears any lockout.
//
// # Storage
//
// CredentialStore has in-memory, PostgreSQL (pgx) and MySQL (database/sql)
// implementations. Rows are validated by a single hydrate step; a missing
// security column is reported by VerifySchema at startup.
package login
