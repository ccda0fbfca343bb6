package components

import (
	"log/slog"
	"time"

	"booking-engine/internal/infra/cache"
	"booking-engine/internal/infra/repository"
	"booking-engine/internal/infra/uow"
	"booking-engine/internal/pkg/config"
	"booking-engine/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	uowModule,
	catalogModule,
)

var uowModule = fx.Module("persistence/uow",
	fx.Provide(
		NewUoWOptions,
		uow.NewPostgresUoW,
		func(u *uow.PostgresUoW) shared.UnitOfWork { return u },
	),
)

var catalogModule = fx.Module("persistence/catalog",
	fx.Provide(
		NewCatalogReader,
	),
)

func NewUoWOptions(cfg config.Config) uow.Options {
	opts := uow.DefaultOptions()
	opts.StoreTimeout = cfg.DB.StoreTimeout
	return opts
}

// NewCatalogReader serves catalog reads from Redis in front of the pool.
// Catalog data is edited out of band, so it never joins a write transaction.
func NewCatalogReader(pool *pgxpool.Pool, rdb redis.UniversalClient, cfg config.Config, logger *slog.Logger) shared.CatalogReader {
	store := repository.NewCatalogRepository(pool, logger)
	ttl := cfg.Redis.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return cache.NewCachedCatalog(store, rdb, ttl, logger)
}
