package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/goaccount/internal/adapter/http"
	"github.com/iho/goaccount/internal/adapter/http/handler"
	"github.com/iho/goaccount/internal/adapter/http/middleware"
	"github.com/iho/goaccount/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/goaccount/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/goaccount/internal/adapter/repository/redis"
	"github.com/iho/goaccount/internal/infrastructure/auth"
	"github.com/iho/goaccount/internal/infrastructure/config"
	"github.com/iho/goaccount/internal/infrastructure/eventpublisher"
	"github.com/iho/goaccount/internal/infrastructure/idgen"
	"github.com/iho/goaccount/internal/infrastructure/metrics"
	"github.com/iho/goaccount/internal/infrastructure/postgres"
	"github.com/iho/goaccount/internal/infrastructure/redis"
	"github.com/iho/goaccount/internal/usecase"
)

// eventStreamMaxLen caps the Redis event stream (approximate trimming).
const eventStreamMaxLen = 100_000

// app is the wired service.
type app struct {
	handler     http.Handler
	accountUC   *usecase.AccountUseCase
	rateLimiter *middleware.RateLimiter
	closers     []func()
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires config into stores, locker, publisher, use case and router.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var checkers []handler.Checker

	var redisClient *goredis.Client
	if cfg.NeedsRedis() {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { redisClient.Close() })
		checkers = append(checkers, redis.NewChecker(redisClient))
		log.Info().Msg("connected to redis")
	}

	var pool *pgxpool.Pool
	if cfg.StoreDriver == config.StorePostgres {
		if err = postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}

		pool, err = postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		checkers = append(checkers, postgres.NewChecker(pool))
		log.Info().Msg("connected to postgres")
	}

	var store usecase.AccountStore
	switch cfg.StoreDriver {
	case config.StorePostgres:
		store = postgresRepo.NewAccountRepository(pool, postgresRepo.NewRetrier(log))
	case config.StoreRedis:
		store = redisRepo.NewAccountStore(redisClient)
	default:
		store = memory.NewAccountStore()
	}

	var locker usecase.Locker = memory.NewLocker()
	if cfg.LockDriver == config.StoreRedis {
		locker = redisRepo.NewLocker(redisClient, cfg.LockTTL, log)
	}

	var publisher eventpublisher.Publisher
	switch cfg.EventSink {
	case config.EventSinkRedis:
		publisher = eventpublisher.NewRedisStreamPublisher(redisClient, cfg.EventStream, eventStreamMaxLen)
	case config.EventSinkPostgres:
		publisher = postgresRepo.NewOutboxRepository(pool)
	default:
		publisher = eventpublisher.NewLogPublisher(log)
	}

	a.accountUC = usecase.NewAccountUseCase(
		store,
		locker,
		eventpublisher.Instrument(publisher, m),
		idgen.NewULIDGenerator(),
		usecase.WithMetrics(m),
		usecase.WithLogger(log),
	)

	routerCfg := httpAdapter.RouterConfig{
		AccountHandler: handler.NewAccountHandler(a.accountUC),
		HealthHandler:  handler.NewHealthHandler(checkers...),
		Logger:         log,
		Metrics:        m,
		Gatherer:       reg,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}

	if redisClient != nil {
		routerCfg.IdempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
	}

	if cfg.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m.RateLimitHits)
		routerCfg.RateLimiter = a.rateLimiter
	}

	if cfg.AuthEnabled {
		routerCfg.TokenVerifier = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	}

	a.handler = httpAdapter.NewRouter(routerCfg)
	return a, nil
}
