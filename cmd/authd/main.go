package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/chi-demo/app"

	"github.com/tendant/simple-auth/pkg/bootstrap"
	"github.com/tendant/simple-auth/pkg/config"
	"github.com/tendant/simple-auth/pkg/database"
	"github.com/tendant/simple-auth/pkg/login"
	loginapi "github.com/tendant/simple-auth/pkg/login/api"
	"github.com/tendant/simple-auth/pkg/metrics"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/ratelimit"
	"github.com/tendant/simple-auth/pkg/response"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
)

type Services struct {
	loginService *login.LoginService
	resetService *login.PasswordResetService
	tokens       *tokengenerator.JwtTokenGenerator
	limiter      *ratelimit.Middleware
	metrics      *metrics.AuthMetrics
	registry     *prometheus.Registry

	closers []func()
}

func (s *Services) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.resetService.Close(ctx); err != nil {
		slog.Warn("Pending password reset emails not sent before shutdown", "err", err)
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	slog.Info("Starting simple-auth", "driver", cfg.Database.Driver, "prefix", cfg.Prefix.AuthPrefix())

	services, err := initializeServices(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to initialize services", "err", err)
		os.Exit(1)
	}
	defer services.Close()

	server := app.DefaultApp()
	setupRoutes(server.R, services, cfg)

	slog.Info(strings.Repeat("=", 60))
	slog.Info("simple-auth ready")
	slog.Info("  POST " + cfg.Prefix.AuthPrefix() + "/login")
	slog.Info("  POST " + cfg.Prefix.AuthPrefix() + "/forgot-password")
	slog.Info("  POST " + cfg.Prefix.AuthPrefix() + "/reset-password")
	slog.Info("  GET  " + cfg.Prefix.AuthPrefix() + "/me")
	slog.Info(strings.Repeat("=", 60))

	server.Run()
}

func initializeServices(ctx context.Context, cfg config.Config) (*Services, error) {
	s := &Services{}

	store, err := openStore(ctx, cfg, s)
	if err != nil {
		s.closeAll()
		return nil, err
	}
	// Refuse to serve against a schema that cannot persist lockout state.
	if err := store.VerifySchema(ctx); err != nil {
		s.closeAll()
		return nil, err
	}

	loginCfg, err := buildLoginConfig(cfg)
	if err != nil {
		s.closeAll()
		return nil, err
	}

	bc, err := login.NewBcryptHasher(cfg.Login.BcryptCost)
	if err != nil {
		s.closeAll()
		return nil, err
	}
	hasher := login.NewBoundedHasher(bc, cfg.Login.HashWorkers())

	if cfg.JWT.UsesDefaultSecret() {
		slog.Warn("JWT_SECRET is not set - using the development default. Set it before deploying.")
	}
	s.tokens, err = tokengenerator.NewJwtTokenGenerator(cfg.JWT.Secret, tokengenerator.WithIssuer(cfg.JWT.Issuer))
	if err != nil {
		s.closeAll()
		return nil, err
	}

	notifier, err := buildNotificationManager(cfg.Email)
	if err != nil {
		s.closeAll()
		return nil, err
	}

	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		s.metrics, err = metrics.New(metrics.Options{Registerer: s.registry})
		if err != nil {
			s.closeAll()
			return nil, err
		}
	}

	opts := []login.Option{login.WithConfig(loginCfg)}
	if s.metrics != nil {
		opts = append(opts, login.WithRecorder(s.metrics))
	}
	if s.loginService, err = login.NewLoginService(store, hasher, s.tokens, opts...); err != nil {
		s.closeAll()
		return nil, err
	}
	if s.resetService, err = login.NewPasswordResetService(store, hasher, notifier, opts...); err != nil {
		s.closeAll()
		return nil, err
	}

	if cfg.RateLimit.Enabled {
		if err := buildRateLimiter(ctx, cfg, s); err != nil {
			s.closeAll()
			return nil, err
		}
	}

	if cfg.Database.Driver == config.DriverMemory {
		// The memory store starts empty; seed an administrator so the
		// service is usable without a separate init step.
		result, err := bootstrap.BootstrapAdmin(ctx, bootstrap.AdminBootstrapConfig{
			Admin:  cfg.Admin,
			Store:  store,
			Hasher: hasher,
			Policy: loginCfg.PasswordPolicy,
		})
		if err != nil {
			s.closeAll()
			return nil, err
		}
		bootstrap.PrintBootstrapResult(os.Stdout, result)
	}

	return s, nil
}

// closeAll releases what was opened before a failed initialization
func (s *Services) closeAll() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func openStore(ctx context.Context, cfg config.Config, s *Services) (login.CredentialStore, error) {
	storeCfg := login.StoreConfig{Driver: cfg.Database.Driver}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		storeCfg.Postgres = pool
		slog.Info("Database connected", "driver", cfg.Database.Driver, "host", cfg.Database.Host, "database", cfg.Database.Name)
	case config.DriverMySQL:
		db, err := database.OpenMySQL(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { db.Close() })
		storeCfg.MySQL = db
		slog.Info("Database connected", "driver", cfg.Database.Driver, "host", cfg.Database.Host, "database", cfg.Database.Name)
	case config.DriverMemory:
		slog.Warn("Using the in-memory credential store - accounts are lost on restart")
	}

	return login.NewCredentialStore(storeCfg)
}

func buildLoginConfig(cfg config.Config) (login.Config, error) {
	c := login.DefaultConfig()
	var err error

	c.MaxFailedAttempts = cfg.Login.MaxFailedAttempts
	if c.LockoutDuration, err = cfg.Login.ParseLockoutDuration(); err != nil {
		return c, err
	}
	if c.SessionTTL, err = cfg.JWT.ParseSessionExpiry(); err != nil {
		return c, err
	}
	if c.ResetTokenTTL, err = cfg.PasswordReset.ParseTokenExpiry(); err != nil {
		return c, err
	}
	if c.DispatchTimeout, err = cfg.PasswordReset.ParseDispatchTimeout(); err != nil {
		return c, err
	}
	c.ResetBaseURL = cfg.PasswordReset.BaseURL
	c.AsyncDispatch = cfg.PasswordReset.AsyncDispatch
	c.PasswordPolicy.MinLength = cfg.Login.PasswordMinLength

	return c, c.Validate()
}

func buildNotificationManager(cfg config.EmailConfig) (*notification.NotificationManager, error) {
	if !cfg.Enabled {
		slog.Warn("EMAIL_ENABLED=false - password reset emails are logged instead of sent")
		return notification.NewNotificationManagerWithOptions(
			notification.WithNotifier(notification.EmailSystem, notification.LogNotifier{Logger: slog.Default()}),
			notification.WithDefaultTemplates(),
		)
	}

	timeout, err := cfg.ParseTimeout()
	if err != nil {
		return nil, err
	}
	return notification.NewNotificationManagerWithOptions(
		notification.WithSMTP(notification.SMTPConfig{
			Host:     cfg.Host,
			Port:     int(cfg.Port),
			TLS:      cfg.TLS,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
			Timeout:  timeout,
		}),
		notification.WithDefaultTemplates(),
	)
}

func buildRateLimiter(ctx context.Context, cfg config.Config, s *Services) error {
	window, err := cfg.RateLimit.ParseWindow()
	if err != nil {
		return err
	}
	limit := ratelimit.Limit{Requests: cfg.RateLimit.Requests, Window: window}

	var store ratelimit.Store
	switch cfg.RateLimit.Backend {
	case config.RateLimitBackendRedis:
		client, err := ratelimit.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() { client.Close() })
		store = ratelimit.NewRedisStore(client, limit, "")
		slog.Info("Rate limiting with redis", "addr", cfg.Redis.Addr, "requests", limit.Requests, "window", window)
	default:
		mem := ratelimit.NewMemoryStore(limit)
		s.closers = append(s.closers, mem.Close)
		store = mem
		slog.Info("Rate limiting in memory", "requests", limit.Requests, "window", window)
	}

	m := s.metrics
	s.limiter = ratelimit.NewMiddleware(store, ratelimit.WithOnLimit(func(key string) {
		route := key
		if i := strings.LastIndex(key, "|"); i >= 0 {
			route = key[i+1:]
		}
		m.RateLimitHit(route)
	}))
	return nil
}

func setupRoutes(r *chi.Mux, services *Services, cfg config.Config) {
	app.RoutesHealthz(r)
	app.RoutesHealthzReady(r)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, r, "OK", nil)
	})

	if services.registry != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, metrics.ExpositionHandler(services.registry))
	}

	var public []func(http.Handler) http.Handler
	if services.limiter != nil {
		public = append(public, services.limiter.Handler)
	}

	handle := loginapi.NewHandle(services.loginService, services.resetService, services.tokens)
	r.Group(func(r chi.Router) {
		if services.metrics != nil {
			r.Use(services.metrics.Handler)
		}
		r.Mount(cfg.Prefix.AuthPrefix(), handle.Routes(public...))
	})
}
