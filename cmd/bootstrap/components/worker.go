package components

import (
	"context"
	"log/slog"

	"booking-engine/internal/infra/messaging"
	"booking-engine/internal/infra/queue"
	"booking-engine/internal/infra/uow"
	"booking-engine/internal/pkg/clock"
	"booking-engine/internal/pkg/config"
	"booking-engine/internal/usecase/commands"
	"booking-engine/internal/worker"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		fx.Annotate(
			worker.NewPgLeader,
			fx.As(new(worker.Leader)),
		),
		NewRunner,
		NewExpiryWorker,
		NewPublisher,
	),
	fx.Invoke(
		startRunner,
		startExpiryWorker,
		startPublisher,
	),
)

func NewRunner(
	reservations commands.ReservationCommands,
	payments commands.PaymentCommands,
	leader worker.Leader,
	cfg config.Config,
	logger *slog.Logger,
) *worker.Runner {
	return worker.NewRunner(reservations, payments, leader, cfg.Worker, logger)
}

func NewExpiryWorker(cfg config.Config, reservations commands.ReservationCommands, logger *slog.Logger) *queue.ExpiryWorker {
	return queue.NewExpiryWorker(cfg, reservations, logger)
}

func NewPublisher(u *uow.PostgresUoW, clk clock.Clock, cfg config.Config, logger *slog.Logger) *messaging.Publisher {
	return messaging.NewPublisher(u, messaging.NewKafkaWriter(cfg.Kafka), clk, cfg.Kafka, logger.With("component", "outbox"))
}

func startRunner(lc fx.Lifecycle, r *worker.Runner) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			r.Start(context.Background())
			return nil
		},
		OnStop: func(_ context.Context) error {
			r.Stop()
			return nil
		},
	})
}

func startExpiryWorker(lc fx.Lifecycle, w *queue.ExpiryWorker) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return w.Start()
		},
		OnStop: func(_ context.Context) error {
			w.Stop()
			return nil
		},
	})
}

func startPublisher(lc fx.Lifecycle, p *messaging.Publisher) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				p.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
