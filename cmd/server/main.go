package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/bookkeeper/internal/adapter/http"
	"github.com/iho/bookkeeper/internal/adapter/http/handler"
	apimiddleware "github.com/iho/bookkeeper/internal/adapter/http/middleware"
	"github.com/iho/bookkeeper/internal/adapter/importer"
	postgresRepo "github.com/iho/bookkeeper/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/bookkeeper/internal/adapter/repository/redis"
	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/auth"
	"github.com/iho/bookkeeper/internal/infrastructure/chartseed"
	"github.com/iho/bookkeeper/internal/infrastructure/config"
	"github.com/iho/bookkeeper/internal/infrastructure/eventpublisher"
	"github.com/iho/bookkeeper/internal/infrastructure/logger"
	"github.com/iho/bookkeeper/internal/infrastructure/logging"
	"github.com/iho/bookkeeper/internal/infrastructure/metrics"
	"github.com/iho/bookkeeper/internal/infrastructure/postgres"
	"github.com/iho/bookkeeper/internal/infrastructure/redis"
	"github.com/iho/bookkeeper/internal/usecase"
)

const limiterIdleTimeout = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	zlog, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid logging configuration")
	}
	log.Logger = zlog
	slogger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	if err := run(cfg, zlog, slogger); err != nil {
		zlog.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, zlog zerolog.Logger, slogger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:      cfg.DatabaseURL,
		MaxConns:         cfg.DatabaseMaxConns,
		MinConns:         cfg.DatabaseMinConns,
		ConnectTimeout:   cfg.DatabaseTimeout,
		StatementTimeout: cfg.DatabaseStatementTimeout,
		LockTimeout:      cfg.DatabaseLockTimeout,
	})
	if err != nil {
		return err
	}
	defer pool.Close()
	zlog.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL, redis.Options{
		ConnectWait: cfg.RedisConnectWait,
		PoolSize:    cfg.RedisPoolSize,
	})
	if err != nil {
		return err
	}
	defer redisClient.Close()
	zlog.Info().Msg("connected to redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewWithRegisterer(registry)

	tolerance, err := matchTolerance(cfg)
	if err != nil {
		return err
	}

	chart := domain.DefaultChart
	if cfg.ChartSeedFile != "" {
		chart, err = chartseed.Load(cfg.ChartSeedFile)
		if err != nil {
			return fmt.Errorf("chart seed: %w", err)
		}
	}

	iso, err := postgresRepo.ParseIsolation(cfg.DatabaseIsolation)
	if err != nil {
		return fmt.Errorf("DATABASE_ISOLATION: %w", err)
	}

	// Repositories
	txManager := postgresRepo.NewTxManager(pool, iso)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	statementRepo := postgresRepo.NewStatementRepository(pool)
	batchRepo := postgresRepo.NewImportBatchRepository(pool)
	monthlyRepo := postgresRepo.NewMonthlyReconciliationRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(
		postgresRepo.WithMaxRetries(cfg.DatabaseRetries),
		postgresRepo.WithRetrierLogger(slogger.Component("retrier")),
		postgresRepo.WithRetryCounter(m.DBRetries),
	)

	discarded := postgresRepo.NewDiscardOutbox()
	var outboxRepo usecase.OutboxRepository = discarded
	if cfg.OutboxEnabled {
		outboxRepo = postgresRepo.NewOutboxRepository(pool)
	}

	balanceCache := redisRepo.NewBalanceCache(redisClient, cfg.BalanceCacheTTL)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	// Use cases
	accountUC := usecase.NewAccountUseCase(txManager, accountRepo, entryRepo, outboxRepo, auditRepo, idGen).
		WithChart(chart).
		WithRetrier(retrier).
		WithMetrics(m).
		WithLogger(logger.WithComponent(zlog, "accounts"))
	balanceUC := usecase.NewBalanceUseCase(accountRepo, entryRepo).
		WithCache(balanceCache).
		WithMetrics(m).
		WithLogger(logger.WithComponent(zlog, "balances"))
	journalUC := usecase.NewJournalUseCase(txManager, accountRepo, transactionRepo, entryRepo, outboxRepo, auditRepo, idGen).
		WithRetrier(retrier).
		WithMetrics(m).
		WithLogger(logger.WithComponent(zlog, "journal")).
		WithCache(balanceCache)
	statementUC := usecase.NewStatementUseCase(txManager, accountRepo, statementRepo, batchRepo, importer.DefaultRegistry(), outboxRepo, auditRepo, idGen).
		WithMaxRows(cfg.ImportMaxRows).
		WithRetrier(retrier).
		WithMetrics(m).
		WithLogger(logger.WithComponent(zlog, "statements"))
	reconUC := usecase.NewReconciliationUseCase(txManager, accountRepo, transactionRepo, entryRepo, statementRepo, journalUC, outboxRepo, auditRepo, idGen).
		WithTolerance(tolerance).
		WithRetrier(retrier).
		WithMetrics(m).
		WithLogger(logger.WithComponent(zlog, "reconciliation"))
	monthlyUC := usecase.NewMonthlyCloseUseCase(txManager, accountRepo, monthlyRepo, balanceUC, outboxRepo, auditRepo, idGen).
		WithRetrier(retrier).
		WithMetrics(m).
		WithLogger(logger.WithComponent(zlog, "monthly-close"))
	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo).WithAudit(auditRepo)

	var verifier apimiddleware.TokenVerifier
	if cfg.AuthEnabled {
		verifier = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration, auth.WithPreviousSecret(cfg.JWTPreviousSecret))
	}

	var limiter *apimiddleware.RateLimiter
	if cfg.RateLimitEnabled {
		limiter = apimiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m.RateLimitHits)
		go sweepLimiters(ctx, limiter, zlog)
	}

	health := handler.NewHealthHandler(map[string]handler.Checker{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return redis.Ping(ctx, redisClient) },
	})

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:        handler.NewAccountHandler(accountUC),
		BalanceHandler:        handler.NewBalanceHandler(balanceUC),
		JournalHandler:        handler.NewJournalHandler(journalUC),
		StatementHandler:      handler.NewStatementHandler(statementUC, cfg.ImportMaxBytes),
		ReconciliationHandler: handler.NewReconciliationHandler(reconUC, tolerance),
		MonthlyHandler:        handler.NewMonthlyHandler(monthlyUC),
		LedgerHandler:         handler.NewLedgerHandler(ledgerUC),
		HealthHandler:         health,
		Logger:                zlog,
		Metrics:               m,
		MetricsHandler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		TokenVerifier:         verifier,
		RateLimiter:           limiter,
		IdempotencyStore:      idempotencyStore,
		IdempotencyTTL:        cfg.IdempotencyTTL,
	})

	if cfg.OutboxEnabled {
		publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: outboxRepo,
			Publisher:  newOutboxSink(cfg, redisClient, slogger),
			Logger:     slogger.Component("outbox"),
			Published:  m.EventsPublished,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxInterval,
			Retention:  cfg.OutboxRetention,
		})
		go func() {
			if err := publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zlog.Error().Err(err).Msg("event publisher stopped")
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info().Str("port", cfg.HTTPPort).Bool("auth", cfg.AuthEnabled).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	zlog.Info().Msg("shutting down server...")
	health.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if !cfg.OutboxEnabled {
		zlog.Info().
			Int64("postings", discarded.Dropped(domain.EventTypeTransactionPosted)).
			Int64("reversals", discarded.Dropped(domain.EventTypeTransactionReversed)).
			Int64("closes", discarded.Dropped(domain.EventTypeMonthClosed)).
			Msg("outbox disabled, events discarded")
	}

	zlog.Info().Msg("server stopped")
	return nil
}

func matchTolerance(cfg *config.Config) (domain.MatchTolerance, error) {
	amount, err := cfg.MatchTolerance()
	if err != nil {
		return domain.MatchTolerance{}, err
	}
	t := domain.MatchTolerance{DateDays: cfg.MatchDateWindowDays, Amount: amount}
	return t, t.Validate()
}

func newOutboxSink(cfg *config.Config, client goredis.Cmdable, slogger *logging.Logger) eventpublisher.Publisher {
	if cfg.OutboxSink == "log" {
		return eventpublisher.NewLogPublisher(slogger.Component("outbox-sink"))
	}
	return eventpublisher.NewStreamPublisher(client, cfg.OutboxStream, cfg.OutboxStreamLen)
}

func sweepLimiters(ctx context.Context, limiter *apimiddleware.RateLimiter, zlog zerolog.Logger) {
	ticker := time.NewTicker(limiterIdleTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.CleanupLimiters(limiterIdleTimeout); n > 0 {
				zlog.Debug().Int("removed", n).Msg("pruned idle rate limiters")
			}
		}
	}
}
