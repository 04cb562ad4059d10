package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/budgetly/budgetly/internal/cache"
	"github.com/budgetly/budgetly/internal/config"
	"github.com/budgetly/budgetly/internal/credstore"
	"github.com/budgetly/budgetly/internal/metrics"
	"github.com/budgetly/budgetly/internal/middleware"
	"github.com/budgetly/budgetly/internal/repository"
	"github.com/budgetly/budgetly/internal/server"
	"github.com/budgetly/budgetly/internal/service"
	"github.com/budgetly/budgetly/internal/session"
)

// credentialStore is what the API needs from the credential store client,
// whether it verifies tokens remotely or locally.
type credentialStore interface {
	session.CredentialStore
	service.CredentialStore
	Ping(ctx context.Context) error
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until SIGINT or SIGTERM. Configuration is read from
the environment.`,
		RunE: runServe,
	}
	cmd.Flags().Bool("migrate", false, "apply pending database migrations before serving")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger := initLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Flag may be absent when serve runs as the root command.
	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			logger.Error("failed to apply migrations", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
			return err
		}
		logger.Info("migrations applied")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return oops.Code("DB_CONNECT_FAILED").Errorf("connect to database")
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		repo.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return oops.Code("CACHE_CONNECT_FAILED").Errorf("connect to redis")
	}
	logger.Info("connected to Redis")

	var (
		recorder     metrics.Recorder = metrics.NewNoop()
		metricsRoute http.Handler
	)
	if cfg.MetricsEnabled {
		prom := metrics.NewPrometheus()
		recorder = prom
		metricsRoute = prom.Handler()
	}

	store, err := newCredentialStore(cfg, recorder)
	if err != nil {
		repo.Close()
		_ = cacheClient.Close()
		return err
	}
	logger.Info("credential store configured",
		"url", redactURL(cfg.CredstoreURL),
		"local_verification", cfg.CredstoreJWTSecret != "",
	)

	validator := session.NewValidator(store, session.Options{
		Cache:    cacheClient,
		CacheTTL: cfg.PrincipalCacheTTL,
		Logger:   logger,
		Metrics:  recorder,
	})
	cookies := session.CookieConfig{Secure: cfg.CookieSecure, Domain: cfg.CookieDomain}

	router := server.NewRouter(server.Dependencies{
		Logger:         logger,
		Metrics:        recorder,
		MetricsHandler: metricsRoute,
		Budgets:        service.NewBudgetService(repo, recorder),
		Users:          service.NewUserService(store, repo, validator, logger),
		Validator:      validator,
		Limiter:        cacheClient,
		Cookies:        cookies,
		DB:             repo,
		Cache:          cacheClient,
		Credstore:      store,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.GetCORSAllowedOrigins(),
			MaxAge:         middleware.DefaultCORSConfig().MaxAge,
		},
		IsDevelopment: cfg.IsDevelopment(),
		MaxBodySize:   cfg.MaxRequestBodySize,
		RateLimit: server.RateLimit{
			Enabled: cfg.RateLimitAuthEnabled,
			RPS:     cfg.RateLimitAuthRPS,
			Burst:   cfg.RateLimitAuthBurst,
		},
	})

	srv := server.New(
		router,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)
	// Closed in reverse order: redis first, then postgres.
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"version", cmd.Root().Version,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		return oops.Code("SERVER_FAILED").Wrap(err)
	}
	return nil
}

// newCredentialStore builds the credential store client. With a JWT secret
// configured, access tokens are verified locally.
func newCredentialStore(cfg *config.Config, recorder metrics.Recorder) (credentialStore, error) {
	client, err := credstore.New(credstore.Config{
		URL:     cfg.CredstoreURL,
		Key:     cfg.CredstoreKey,
		Timeout: cfg.CredstoreTimeout,
		Metrics: recorder,
	})
	if err != nil {
		return nil, err
	}
	if cfg.CredstoreJWTSecret == "" {
		return client, nil
	}

	verifier, err := credstore.NewJWTVerifier(cfg.CredstoreJWTSecret)
	if err != nil {
		return nil, err
	}
	return client.WithLocalVerification(verifier), nil
}
