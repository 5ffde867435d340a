// Package config loads the simple-auth runtime configuration.
//
// Values come from the environment through cleanenv struct tags. A .env file in
// the working directory is loaded first with godotenv when present. Durations
// accept ISO 8601 ("PT30M", "PT8H") as well as Go duration strings ("30m").
//
//	cfg, err := config.Load()
//	if err != nil {
//	    slog.Error("invalid configuration", "err", err)
//	    os.Exit(1)
//	}
//	lockout, _ := cfg.Login.ParseLockoutDuration()
//
// # Environment Variables
//
// Database:
//   - DB_DRIVER: postgres, mysql or memory (default: postgres)
//   - DB_HOST, DB_PORT, DB_NAME, DB_USER, DB_PASSWORD, DB_SSLMODE
//   - DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS, DB_CONN_MAX_LIFETIME
//
// Session tokens:
//   - JWT_SECRET, JWT_ISSUER
//   - SESSION_TOKEN_EXPIRY (default: PT8H)
//
// Login:
//   - LOGIN_MAX_FAILED_ATTEMPTS (default: 5)
//   - LOGIN_LOCKOUT_DURATION (default: PT30M)
//   - BCRYPT_COST (default: 12), HASH_CONCURRENCY (default: GOMAXPROCS)
//   - PASSWORD_MIN_LENGTH (default: 8)
//
// Password reset:
//   - PASSWORD_RESET_TOKEN_EXPIRY (default: PT1H)
//   - PASSWORD_RESET_BASE_URL, PASSWORD_RESET_ASYNC_DISPATCH, PASSWORD_RESET_DISPATCH_TIMEOUT
//
// Email:
//   - EMAIL_ENABLED, SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASS, SMTP_FROM, SMTP_SECURE, SMTP_TIMEOUT
//
// Rate limiting:
//   - RATE_LIMIT_ENABLED, RATE_LIMIT_BACKEND (memory or redis), RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
//
// Admin bootstrap:
//   - ADMIN_USERNAME, ADMIN_EMAIL, ADMIN_PASSWORD, ADMIN_ROLE
//
// Server:
//   - API_PREFIX (default: /api), METRICS_ENABLED, METRICS_PATH, LOG_LEVEL, LOG_FORMAT
package config
