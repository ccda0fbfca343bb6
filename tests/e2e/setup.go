//go:build e2e

package e2e

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"booking-engine/cmd/bootstrap"
	"booking-engine/cmd/bootstrap/components"
	"booking-engine/internal/infra/gateway"
	"booking-engine/internal/pkg/config"
	"booking-engine/internal/usecase/shared"
	"booking-engine/tests/common/authtest"
	"booking-engine/tests/common/builder"
	"booking-engine/tests/common/containers"
	"booking-engine/tests/common/dbtest"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/fx"
)

// Environment is one running application backed by real Postgres, Redis and
// stripe-mock containers. The background workers are not started so tests
// drive every transition explicitly.
type Environment struct {
	Router *gin.Engine
	DB     *pgxpool.Pool
	Redis  redis.UniversalClient
	Config config.Config
}

func setupE2EEnvironment(t *testing.T) Environment {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pool, dbCfg := containers.NewDatabase(t)
	redisInfo := containers.Redis(t)
	stripeInfo := containers.StripeMock(t)

	cfg := config.NewTestConfig()
	cfg.DB = dbCfg
	cfg.Redis.Addr = redisInfo.Addr()

	env, app := buildE2EApp(t, pool, cfg, "http://"+stripeInfo.Addr())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			slog.Warn("failed to stop fx app", "error", err.Error())
		}
	})
	return env
}

func buildE2EApp(t *testing.T, pool *pgxpool.Pool, cfg config.Config, stripeURL string) (Environment, *fx.App) {
	t.Helper()
	env := Environment{DB: pool, Config: cfg}

	app := fx.New(
		fx.Provide(
			func() *pgxpool.Pool { return pool },
			func() config.Config { return cfg },
			func() config.BookingConfig { return cfg.Booking },
			func() config.StripeConfig { return cfg.Stripe },
			func() *gin.Engine { return gin.New() },
		),
		bootstrap.LoggerModule,
		bootstrap.RedisModule,
		bootstrap.JWTModule,
		components.PersistenceModule,
		components.GatewayModule,
		components.UseCaseModule,
		components.HandlerModule,

		fx.Decorate(func(c config.StripeConfig, logger *slog.Logger) shared.PaymentGateway {
			return gateway.NewStripeGateway(c, logger, gateway.WithBaseURL(stripeURL))
		}),

		fx.Populate(&env.Router, &env.Redis),
		fx.NopLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx), "failed to start fx app")
	require.NotNil(t, env.Router, "router was not built")
	return env, app
}

// SharedSuite is embedded by every e2e suite. Each subtest starts from empty
// tables and a freshly seeded catalog.
type SharedSuite struct {
	suite.Suite
	Environment
	Catalog *builder.CatalogBuilder
	JWT     *authtest.JWTHelper
}

func (s *SharedSuite) SetupSuite() {
	s.Environment = setupE2EEnvironment(s.T())
	s.JWT = authtest.NewJWTHelper(s.Config.JWT)
}

func (s *SharedSuite) SetupTest() {
	s.reset()
}

func (s *SharedSuite) SetupSubTest() {
	s.reset()
}

func (s *SharedSuite) reset() {
	require.NoError(s.T(), dbtest.ResetDB(s.DB), "failed to reset database state")
	require.NoError(s.T(), s.Redis.FlushDB(context.Background()).Err(), "failed to flush redis")
	s.Catalog = builder.NewCatalogBuilder()
	dbtest.SeedCatalog(s.T(), s.DB, s.Catalog)
}
