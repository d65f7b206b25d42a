package service

import (
	"log/slog"

	"github.com/kirinyoku/lessonbook/internal/repository"
	redisrepo "github.com/kirinyoku/lessonbook/internal/repository/redis"
	"github.com/kirinyoku/lessonbook/internal/service/catalog"
	"github.com/kirinyoku/lessonbook/internal/service/orders"
)

type Services struct {
	Catalog *catalog.Service
	Orders  *orders.Service
}

type Config struct {
	Catalog catalog.Config
}

// Deps holds the optional infrastructure shared by the services. Any field
// may be nil.
type Deps struct {
	Cache   *redisrepo.Cache
	PubSub  *redisrepo.LessonsPubSub
	Limiter orders.RateLimiter
	Events  orders.EventPublisher
}

func NewServices(store repository.Store, deps Deps, logger *slog.Logger, cfg Config) *Services {
	cat := catalog.New(store, deps.Cache, deps.PubSub, logger, cfg.Catalog)

	return &Services{
		Catalog: cat,
		Orders:  orders.New(store, cat, deps.Events, deps.Limiter, logger),
	}
}
