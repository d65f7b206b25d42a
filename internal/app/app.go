package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirinyoku/lessonbook/internal/config"
	"github.com/kirinyoku/lessonbook/internal/postgres"
	"github.com/kirinyoku/lessonbook/internal/rabbitmq"
	"github.com/kirinyoku/lessonbook/internal/redis"
	"github.com/kirinyoku/lessonbook/internal/repository"
	"github.com/kirinyoku/lessonbook/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/lessonbook/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/lessonbook/internal/repository/redis"
	"github.com/kirinyoku/lessonbook/internal/service"
	"github.com/kirinyoku/lessonbook/internal/service/catalog"
	httpgin "github.com/kirinyoku/lessonbook/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server

	// closers release infrastructure in reverse order of creation.
	closers []func()
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()
	a := &App{cfg: cfg, logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	var (
		deps service.Deps
		idem *redisrepo.IdempotencyStore
	)

	if cfg.Redis.Enabled {
		rdb, err := redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })

		deps.Cache = redisrepo.New(rdb)
		deps.PubSub = redisrepo.NewLessonsPubSub(rdb)
		if cfg.Orders.RateLimit > 0 {
			deps.Limiter = redisrepo.NewSlidingWindowLimiter(rdb, "orders", cfg.Orders.RateLimit, cfg.Orders.RateWindow)
		}
		idem = redisrepo.NewIdempotencyStore(rdb, cfg.Orders.IdempotencyTTL)
	} else {
		logger.Info("redis disabled: no search cache, change stream, rate limit or idempotency")
	}

	if cfg.RabbitMQ.URL != "" {
		conn, ch, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize rabbitmq: %w", err)
		}
		a.closers = append(a.closers, func() {
			_ = ch.Close()
			_ = conn.Close()
		})

		deps.Events = rabbitmq.NewOrderPublisher(ch, cfg.RabbitMQ.Exchange)
	}

	services := service.NewServices(store, deps, logger, service.Config{
		Catalog: catalog.Config{
			PublicBaseURL:  cfg.Server.PublicBaseURL,
			SearchCacheTTL: cfg.Redis.SearchCacheTTL,
		},
	})

	router := httpgin.NewRouter(services, idem, logger, httpgin.RouterConfig{
		AllowOrigins: cfg.Server.AllowOrigins,
		StaticDir:    cfg.Server.StaticDir,
		AdminToken:   cfg.Server.AdminToken,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	if a.cfg.Store.Driver == config.StoreDriverMemory {
		a.logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	}

	dsn := a.cfg.Postgres.DSN()

	if a.cfg.Postgres.Migrate {
		if err := postgres.Migrate(dsn); err != nil {
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
	}

	pool, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: a.cfg.Postgres.MaxConns})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	return postgresrepo.NewStore(pool), nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
