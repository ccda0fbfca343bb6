package uow

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"booking-engine/internal/domain/booking"
	"booking-engine/internal/domain/interval"
	"booking-engine/internal/domain/payment"
	"booking-engine/internal/infra"
	"booking-engine/internal/infra/db"
	"booking-engine/internal/infra/repository"
	"booking-engine/internal/pkg/errs"
	"booking-engine/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	errTransactionBegin   = errs.New("failed to begin transaction")
	errTransactionCommit  = errs.New("failed to commit transaction")
	errMaxRetriesExceeded = errs.New("transaction failed after max retries")
)

type Options struct {
	MaxRetries   int
	BaseBackoff  time.Duration
	StoreTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{MaxRetries: 3, BaseBackoff: 50 * time.Millisecond, StoreTimeout: 5 * time.Second}
}

type PostgresUoW struct {
	pool   *pgxpool.Pool
	opts   Options
	logger *slog.Logger
}

func NewPostgresUoW(pool *pgxpool.Pool, opts Options, logger *slog.Logger) *PostgresUoW {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = DefaultOptions().BaseBackoff
	}
	return &PostgresUoW{pool: pool, opts: opts, logger: logger}
}

// Within runs fn in a SERIALIZABLE transaction. Serialization failures and
// deadlocks restart fn from scratch, so fn must not have side effects outside
// tx.
func (u *PostgresUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.runInTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
}

// WithinReadCommitted is used by background jobs that lock rows explicitly.
func (u *PostgresUoW) WithinReadCommitted(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error {
	return u.runInTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx shared.Tx) error {
		return fn(ctx, tx.(*pgTx).dbtx)
	})
}

func (u *PostgresUoW) CommandReads() shared.CommandReads {
	return &commandReads{dbtx: u.pool, logger: u.logger, timeout: u.opts.StoreTimeout}
}

// Avoids defer accumulation in retry loops to prevent connection leaks
func (u *PostgresUoW) runInTx(ctx context.Context, options pgx.TxOptions, fn func(ctx context.Context, tx shared.Tx) error) error {
	for attempt := 0; attempt <= u.opts.MaxRetries; attempt++ {
		err := u.attempt(ctx, options, fn)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return err
		}
		if attempt == u.opts.MaxRetries {
			u.logger.Error("transaction failed after max retries",
				"attempts", attempt+1,
				"error", err.Error())
			return errs.Mark(errs.Mark(err, errMaxRetriesExceeded), errs.ErrTransientStore)
		}

		waitTime := calculateBackoff(attempt, u.opts.BaseBackoff)
		u.logger.Warn("retrying transaction due to retryable error",
			"attempt", attempt+1,
			"wait_ms", waitTime.Milliseconds(),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return errs.Mark(ctx.Err(), errs.ErrTransientStore)
		case <-time.After(waitTime):
		}
	}
	return errs.Mark(errMaxRetriesExceeded, errs.ErrTransientStore)
}

func (u *PostgresUoW) attempt(ctx context.Context, options pgx.TxOptions, fn func(ctx context.Context, tx shared.Tx) error) error {
	if u.opts.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.opts.StoreTimeout)
		defer cancel()
	}

	pgxTx, err := u.pool.BeginTx(ctx, options)
	if err != nil {
		return errs.Mark(errs.Mark(err, errTransactionBegin), errs.ErrTransientStore)
	}

	err = fn(ctx, &pgTx{dbtx: pgxTx, logger: u.logger})
	if err == nil {
		if err = pgxTx.Commit(ctx); err == nil {
			return nil
		}
		err = errs.Mark(err, errTransactionCommit)
		if infra.ClassifyPgErr(err) != infra.KindSerialization {
			err = errs.Mark(err, errs.ErrTransientStore)
		}
	}

	if rollbackErr := pgxTx.Rollback(ctx); rollbackErr != nil {
		if !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			u.logger.Warn("rollback failed", "error", rollbackErr.Error())
		}
	}
	return err
}

func calculateBackoff(attempt int, base time.Duration) time.Duration {
	waitTime := time.Duration(1<<attempt) * base
	jitter := cryptoRandInt63n(int64(waitTime / 2))
	return waitTime + time.Duration(jitter)
}

func cryptoRandInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	uval := binary.BigEndian.Uint64(buf[:]) & 0x7FFFFFFFFFFFFFFF
	// #nosec G115 -- high bit masked above
	return int64(uval) % n
}

// isRetryable covers both raw pg errors from Commit and repository errors
// raised inside fn.
func isRetryable(err error) bool {
	if kind, ok := infra.KindOf(err); ok {
		return kind == infra.KindSerialization
	}
	return infra.ClassifyPgErr(err) == infra.KindSerialization
}

type pgTx struct {
	dbtx   pgx.Tx
	logger *slog.Logger

	// Lazy-initialized repositories
	bookingRepo      shared.BookingRepository
	paymentRepo      shared.PaymentRepository
	webhookRepo      shared.WebhookEventRepository
	notificationRepo shared.NotificationRepository
	commandReads     shared.CommandReads
}

func (t *pgTx) Bookings() shared.BookingRepository {
	if t.bookingRepo == nil {
		t.bookingRepo = repository.NewBookingRepository(t.dbtx, t.logger)
	}
	return t.bookingRepo
}

func (t *pgTx) Payments() shared.PaymentRepository {
	if t.paymentRepo == nil {
		t.paymentRepo = repository.NewPaymentRepository(t.dbtx, t.logger)
	}
	return t.paymentRepo
}

func (t *pgTx) WebhookEvents() shared.WebhookEventRepository {
	if t.webhookRepo == nil {
		t.webhookRepo = repository.NewWebhookEventRepository(t.dbtx, t.logger)
	}
	return t.webhookRepo
}

func (t *pgTx) Notifications() shared.NotificationRepository {
	if t.notificationRepo == nil {
		t.notificationRepo = repository.NewNotificationRepository(t.dbtx, t.logger)
	}
	return t.notificationRepo
}

func (t *pgTx) Reads() shared.CommandReads {
	if t.commandReads == nil {
		t.commandReads = &commandReads{dbtx: t.dbtx, logger: t.logger}
	}
	return t.commandReads
}

type commandReads struct {
	dbtx   db.DBTX
	logger *slog.Logger
	// zero inside a transaction, which carries its own deadline
	timeout time.Duration
}

func (r *commandReads) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *commandReads) BookingByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return repository.NewBookingRepository(r.dbtx, r.logger).FindByID(ctx, id)
}

func (r *commandReads) OverlappingBookings(ctx context.Context, practitionerID uuid.UUID, window interval.TimeInterval) ([]*booking.Booking, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return repository.NewBookingRepository(r.dbtx, r.logger).ListOverlapping(ctx, practitionerID, window)
}

func (r *commandReads) IntentByBookingID(ctx context.Context, bookingID uuid.UUID) (*payment.Intent, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return repository.NewPaymentRepository(r.dbtx, r.logger).FindIntentByBookingID(ctx, bookingID)
}

func (r *commandReads) BookingsByCustomer(ctx context.Context, customerID uuid.UUID, after *shared.PagePosition, limit int) ([]*booking.Booking, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return repository.NewBookingRepository(r.dbtx, r.logger).ListByCustomer(ctx, customerID, after, limit)
}
