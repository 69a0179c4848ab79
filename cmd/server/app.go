package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/goaccount/internal/adapter/http"
	"github.com/iho/goaccount/internal/adapter/http/handler"
	"github.com/iho/goaccount/internal/adapter/http/middleware"
	"github.com/iho/goaccount/internal/adapter/messaging/kafka"
	"github.com/iho/goaccount/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/goaccount/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/goaccount/internal/adapter/repository/redis"
	"github.com/iho/goaccount/internal/infrastructure/config"
	"github.com/iho/goaccount/internal/infrastructure/idgen"
	"github.com/iho/goaccount/internal/infrastructure/metrics"
	"github.com/iho/goaccount/internal/infrastructure/postgres"
	"github.com/iho/goaccount/internal/infrastructure/redis"
	"github.com/iho/goaccount/internal/infrastructure/relay"
	"github.com/iho/goaccount/internal/usecase"
)

const (
	limiterEvictInterval = time.Minute
	limiterMaxIdle       = 10 * time.Minute
)

// app holds the wired service and the resources it has to release.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	handler   http.Handler
	relay     *relay.Relay // nil unless outbox delivery
	limiter   *middleware.RateLimiter
	publisher *kafka.Publisher
	closers   []func()
}

// buildApp wires repositories, the event channel, the use case and the HTTP
// router from cfg.
func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewWithRegisterer(reg)

	var (
		txManager   usecase.TransactionManager
		accountRepo usecase.AccountRepository
		outboxRepo  usecase.OutboxRepository
		retrier     usecase.Retrier
		checks      []handler.Check
	)

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		txManager, accountRepo, outboxRepo = store, store, store
		logger.Warn().Msg("using in-memory store, data is lost on restart")
	default:
		pool, err := openPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		txManager = postgresRepo.NewTxManager(pool)
		accountRepo = postgresRepo.NewAccountRepository(pool)
		outboxRepo = postgresRepo.NewOutboxRepository(pool)
		retrier = postgresRepo.NewRetrier(logger)
		checks = append(checks, handler.PostgresCheck(pool))
	}

	var (
		cache            usecase.AccountCache
		idempotencyStore usecase.IdempotencyStore
		sink             kafka.FailureSink
	)
	if cfg.RedisEnabled {
		client, err := redis.NewClient(ctx, redis.Config{URL: cfg.RedisURL})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		logger.Info().Msg("connected to redis")
		cache, idempotencyStore, sink = redisServices(client, cfg.DeadLetterStream)
		checks = append(checks, handler.RedisCheck(client))
	}

	publisher, err := kafka.NewPublisher(kafka.Config{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaTopic,
		RequiredAcks: cfg.KafkaRequiredAcks,
		BatchTimeout: cfg.KafkaBatchTimeout,
		AckTimeout:   cfg.KafkaAckTimeout,
	}, sink, m, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	a.publisher = publisher

	delivery := usecase.DeliveryMode(cfg.EventDelivery)
	accountUC, err := usecase.NewAccountUseCase(usecase.AccountUseCaseConfig{
		TxManager:   txManager,
		AccountRepo: accountRepo,
		OutboxRepo:  outboxRepo,
		Publisher:   publisher,
		Cache:       cache,
		CacheTTL:    cfg.AccountCacheTTL,
		IDGen:       idgen.NewULIDGenerator(),
		EventIDGen:  idgen.NewUUIDGenerator(),
		Retrier:     retrier,
		Delivery:    delivery,
		Metrics:     m,
		Logger:      logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	if delivery == usecase.DeliveryOutbox {
		a.relay = relay.New(relay.Config{
			OutboxRepo: outboxRepo,
			Deliverer:  publisher,
			Logger:     logger,
			Metrics:    m,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxPollInterval,
			Retention:  cfg.OutboxRetention,
		})
	}

	if cfg.RateLimitRPS > 0 {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	a.handler = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:   handler.NewAccountHandler(accountUC, logger),
		HealthHandler:    handler.NewHealthHandler(checks...),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      a.limiter,
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:           logger,
	})

	return a, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info().Msg("connected to postgres")

	return pool, nil
}

func redisServices(client *goredis.Client, stream string) (usecase.AccountCache, usecase.IdempotencyStore, kafka.FailureSink) {
	return redisRepo.NewAccountCache(client),
		redisRepo.NewIdempotencyStore(client),
		redisRepo.NewDeadLetterStream(client, stream)
}

// run serves HTTP and the background workers until ctx is cancelled, then
// shuts everything down within the configured timeout.
func (a *app) run(ctx context.Context) error {
	defer a.close()

	server := &http.Server{
		Addr:         a.cfg.HTTPAddr(),
		Handler:      a.handler,
		ReadTimeout:  a.cfg.HTTPReadTimeout,
		WriteTimeout: a.cfg.HTTPWriteTimeout,
		IdleTimeout:  a.cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("addr", server.Addr).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.relay != nil {
		g.Go(func() error {
			if err := a.relay.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.RunEviction(gctx, limiterEvictInterval, limiterMaxIdle)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.HTTPShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	a.logger.Info().Msg("server stopped")
	return err
}

// close releases resources in reverse acquisition order. The publisher is
// closed first so pending events flush before the stores go away.
func (a *app) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error().Err(err).Msg("failed to close kafka publisher")
		}
		a.publisher = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
