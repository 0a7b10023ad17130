package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iho/branchledger/internal/adapter/feelookup"
	httpAdapter "github.com/iho/branchledger/internal/adapter/http"
	"github.com/iho/branchledger/internal/adapter/http/handler"
	"github.com/iho/branchledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/branchledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/branchledger/internal/adapter/repository/redis"
	"github.com/iho/branchledger/internal/infrastructure/auth"
	"github.com/iho/branchledger/internal/infrastructure/config"
	"github.com/iho/branchledger/internal/infrastructure/eventpublisher"
	"github.com/iho/branchledger/internal/infrastructure/logger"
	"github.com/iho/branchledger/internal/infrastructure/metrics"
	"github.com/iho/branchledger/internal/infrastructure/postgres"
	"github.com/iho/branchledger/internal/infrastructure/redis"
	"github.com/iho/branchledger/internal/usecase"
)

const (
	rateLimiterIdle = 10 * time.Minute
	tokenDuration   = 8 * time.Hour
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	lg := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Branch: cfg.LogBranch})

	if err := run(cfg, lg); err != nil {
		lg.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, lg zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, lg).Up(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	lg.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, redis.Config{
		URL:         cfg.RedisURL,
		PoolSize:    cfg.RedisPoolSize,
		DialTimeout: cfg.RedisDialTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()
	lg.Info().Msg("connected to redis")

	m := metrics.New()

	// Repositories
	txManager := postgresRepo.NewTxManager(pool).WithIsolation(txIsolation(cfg))
	accountRepo := postgresRepo.NewFloatAccountRepository(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	glRepo := postgresRepo.NewGLRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()
	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	// Use cases
	rate, feeCap, err := cfg.FeePolicy()
	if err != nil {
		return err
	}

	accountUC := usecase.NewAccountUseCase(accountRepo, outboxRepo, idGen).WithMetrics(m)
	postingUC := usecase.NewPostingUseCase(glRepo, idGen)
	auditUC := usecase.NewAuditUseCase(auditRepo, lg)
	settlementUC := usecase.NewSettlementUseCase(
		txManager, transactionRepo, outboxRepo, accountUC, postingUC, auditUC, idGen, lg,
	).
		WithRetrier(postgresRepo.NewRetrierWithPolicy(postgresRepo.RetryPolicy{MaxRetries: cfg.DatabaseMaxRetries}, lg).OnRetry(m.IncDBRetry)).
		WithMetrics(m).
		WithTimeout(cfg.SettlementTimeout)
	feeUC := usecase.NewFeeUseCase(
		newFeeLookup(cfg, lg), cache, usecase.FeePolicy{DefaultRate: rate, Cap: feeCap}, lg,
	).WithMetrics(m)
	reconciliationUC := usecase.NewReconciliationUseCase(transactionRepo, ledgerRepo)

	// Background workers
	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  newPublisher(cfg, lg),
		Metrics:    m,
		Logger:     lg,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})
	go func() {
		if err := publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).OnReject(m.RateLimitHits.Inc)
	go sweepRateLimiter(ctx, limiter, lg)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		TransactionHandler: handler.NewTransactionHandler(settlementUC, postingUC, lg),
		AccountHandler:     handler.NewAccountHandler(accountUC),
		LedgerHandler:      handler.NewLedgerHandler(auditUC, reconciliationUC, feeUC),
		HealthHandler: handler.NewHealthHandler(
			handler.PingerFunc(pool.Ping),
			handler.PingerFunc(func(ctx context.Context) error { return redis.Ping(ctx, redisClient) }),
		),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		TokenVerifier:    newTokenVerifier(cfg),
		RateLimiter:      limiter,
		Metrics:          m,
		Logger:           lg,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		lg.Info().Str("port", cfg.HTTPPort).Bool("auth", cfg.AuthEnabled).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	lg.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	lg.Info().Msg("server stopped")

	return nil
}

// newFeeLookup returns nil when no fee service is configured so quotes use
// the fallback policy.
// txIsolation maps DATABASE_ISOLATION onto pgx. Load has already
// normalised and validated the value.
func txIsolation(cfg *config.Config) pgx.TxIsoLevel {
	if cfg.DatabaseIsolation == "" {
		return pgx.ReadCommitted
	}
	return pgx.TxIsoLevel(cfg.DatabaseIsolation)
}

func newFeeLookup(cfg *config.Config, lg zerolog.Logger) usecase.FeeLookup {
	if cfg.FeeLookupURL == "" {
		return nil
	}

	return feelookup.NewClient(feelookup.Config{
		BaseURL: cfg.FeeLookupURL,
		Timeout: cfg.FeeLookupTimeout,
	}, nil, lg)
}

func newPublisher(cfg *config.Config, lg zerolog.Logger) eventpublisher.Publisher {
	if cfg.NotifyWebhookURL == "" {
		return eventpublisher.NewLogPublisher(lg)
	}

	return eventpublisher.NewWebhookPublisher(cfg.NotifyWebhookURL, &http.Client{Timeout: 10 * time.Second})
}

// newTokenVerifier returns nil when auth is off; the router then reads the
// actor from headers.
func newTokenVerifier(cfg *config.Config) middleware.TokenVerifier {
	if !cfg.AuthEnabled {
		return nil
	}

	return auth.NewJWTManager(cfg.JWTSecret, tokenDuration, auth.WithIssuer(cfg.JWTIssuer))
}

func sweepRateLimiter(ctx context.Context, limiter *middleware.RateLimiter, lg zerolog.Logger) {
	ticker := time.NewTicker(rateLimiterIdle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Cleanup(rateLimiterIdle); n > 0 {
				lg.Debug().Int("visitors", n).Msg("rate limiter swept idle visitors")
			}
		}
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
