package components

import (
	"booking-engine/internal/handler"
	"booking-engine/internal/handler/api"
	"booking-engine/internal/handler/middleware"
	"booking-engine/internal/infra/cache"
	"booking-engine/internal/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewAvailabilityHandler,
		api.NewBookingHandler,
		api.NewPaymentHandler,
		api.NewWebhookHandler,
		middleware.NewAuthMiddleware,
		NewReservationLimiter,
		func(
			a *api.AvailabilityHandler,
			b *api.BookingHandler,
			p *api.PaymentHandler,
			w *api.WebhookHandler,
		) handler.Handlers {
			return handler.Handlers{Availability: a, Booking: b, Payment: p, Webhook: w}
		},
	),
	fx.Invoke(handler.NewRouter),
)

func NewReservationLimiter(rdb redis.UniversalClient, cfg config.Config) middleware.Limiter {
	return cache.NewRateLimiter(rdb, cfg.Redis.RateLimit, cfg.Redis.RateLimitWindow, "ratelimit")
}
