package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"booking-engine/internal/pkg/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TypeExpireHold = "booking:expire_hold"
	queueName      = "holds"
)

type expirePayload struct {
	BookingID uuid.UUID `json:"booking_id"`
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.QueueDB,
	}
}

// TaskEnqueuer is the subset of *asynq.Client used for scheduling.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExpiryScheduler schedules one expiry task per hold. It only speeds up
// expiry; the periodic sweep is what guarantees it.
type ExpiryScheduler struct {
	client TaskEnqueuer
	logger *slog.Logger
}

func NewExpiryScheduler(client TaskEnqueuer, logger *slog.Logger) *ExpiryScheduler {
	return &ExpiryScheduler{client: client, logger: logger}
}

func NewExpireHoldTask(bookingID uuid.UUID) (*asynq.Task, error) {
	b, err := json.Marshal(expirePayload{BookingID: bookingID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExpireHold, b), nil
}

func (s *ExpiryScheduler) ScheduleExpiry(ctx context.Context, bookingID uuid.UUID, at time.Time) error {
	task, err := NewExpireHoldTask(bookingID)
	if err != nil {
		return err
	}
	_, err = s.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.Queue(queueName),
		asynq.TaskID("expire:"+bookingID.String()),
		asynq.MaxRetry(5),
		asynq.Retention(time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("schedule hold expiry: %w", err)
	}
	s.logger.Debug("hold expiry scheduled", "booking_id", bookingID, "at", at)
	return nil
}

// HoldExpirer expires one hold if it is still held and elapsed.
type HoldExpirer interface {
	ExpireHold(ctx context.Context, bookingID uuid.UUID) error
}

// ExpiryWorker consumes expiry tasks.
type ExpiryWorker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

func NewExpiryWorker(cfg config.Config, expirer HoldExpirer, logger *slog.Logger) *ExpiryWorker {
	concurrency := cfg.Worker.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	srv := asynq.NewServer(RedisOpt(cfg.Redis), asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queueName: 1},
		Logger:      newAsynqLogger(logger),
		LogLevel:    asynq.WarnLevel,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpireHold, HandleExpireHold(expirer, logger))
	return &ExpiryWorker{srv: srv, mux: mux, logger: logger}
}

func (w *ExpiryWorker) Start() error {
	w.logger.Info("starting hold expiry worker")
	return w.srv.Start(w.mux)
}

func (w *ExpiryWorker) Stop() {
	w.srv.Shutdown()
}

func HandleExpireHold(expirer HoldExpirer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p expirePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid expire hold payload", "error", err.Error())
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return expirer.ExpireHold(ctx, p.BookingID)
	}
}

type asynqLogger struct{ l *slog.Logger }

func newAsynqLogger(l *slog.Logger) asynq.Logger { return asynqLogger{l: l.With("component", "asynq")} }

func (a asynqLogger) Debug(args ...any) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...any)  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...any) { a.l.Error(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...any) { a.l.Error(fmt.Sprint(args...)) }
