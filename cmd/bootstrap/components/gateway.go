package components

import (
	"booking-engine/internal/infra/gateway"
	"booking-engine/internal/infra/queue"
	"booking-engine/internal/pkg/config"
	"booking-engine/internal/pkg/retry"
	"booking-engine/internal/usecase/shared"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var GatewayModule = fx.Module("gateway",
	fx.Provide(
		fx.Annotate(
			gateway.NewStripeGateway,
			fx.As(new(shared.PaymentGateway)),
		),
		NewRetryPolicy,
		NewAsynqClient,
		fx.Annotate(
			queue.NewExpiryScheduler,
			fx.As(new(shared.HoldExpiryScheduler)),
		),
	),
)

func NewRetryPolicy(cfg config.Config) retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxRetries = cfg.Stripe.MaxRetries
	return p
}

func NewAsynqClient(lc fx.Lifecycle, cfg config.Config) queue.TaskEnqueuer {
	client := asynq.NewClient(queue.RedisOpt(cfg.Redis))
	lc.Append(fx.StopHook(client.Close))
	return client
}
