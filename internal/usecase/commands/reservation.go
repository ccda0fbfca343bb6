package commands

import (
	"context"
	"log/slog"
	"time"

	"booking-engine/internal/domain/availability"
	"booking-engine/internal/domain/booking"
	"booking-engine/internal/domain/catalog"
	"booking-engine/internal/domain/interval"
	"booking-engine/internal/domain/payment"
	"booking-engine/internal/pkg/clock"
	"booking-engine/internal/pkg/config"
	"booking-engine/internal/pkg/errs"
	"booking-engine/internal/pkg/retry"
	"booking-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

type ReserveParams struct {
	PractitionerID uuid.UUID
	ServiceID      uuid.UUID
	CustomerID     uuid.UUID
	SlotStart      time.Time
	// HoldDuration falls back to the configured default when zero.
	HoldDuration time.Duration
}

type ReservationCommands interface {
	Reserve(ctx context.Context, params ReserveParams) (*booking.Booking, error)
	Cancel(ctx context.Context, bookingID, customerID uuid.UUID) (*booking.Booking, error)
	ExpireHold(ctx context.Context, bookingID uuid.UUID) error
	SweepExpiredHolds(ctx context.Context, limit int) (int, error)
}

type reservationUseCaseImpl struct {
	uow       shared.UnitOfWork
	catalog   shared.CatalogReader
	gateway   shared.PaymentGateway
	scheduler shared.HoldExpiryScheduler
	filter    availability.Filter
	cfg       config.BookingConfig
	policy    retry.Policy
	clock     clock.Clock
	logger    *slog.Logger
}

func NewReservationUseCase(
	uow shared.UnitOfWork,
	catalogReader shared.CatalogReader,
	gateway shared.PaymentGateway,
	scheduler shared.HoldExpiryScheduler,
	cfg config.BookingConfig,
	policy retry.Policy,
	clk clock.Clock,
	logger *slog.Logger,
) ReservationCommands {
	return &reservationUseCaseImpl{
		uow:       uow,
		catalog:   catalogReader,
		gateway:   gateway,
		scheduler: scheduler,
		filter:    availability.NewFilter(availability.NewGenerator(cfg.SlotGranularity), cfg.LeadTime),
		cfg:       cfg,
		policy:    policy,
		clock:     clk,
		logger:    logger,
	}
}

func (r *reservationUseCaseImpl) Reserve(ctx context.Context, params ReserveParams) (*booking.Booking, error) {
	hold, err := r.holdDuration(params)
	if err != nil {
		return nil, err
	}

	svc, plan, err := r.loadPlan(ctx, params.PractitionerID, params.ServiceID, params.SlotStart)
	if err != nil {
		return nil, err
	}

	now := r.clock.Now()
	buffered, err := r.filter.Admit(params.SlotStart, plan, *svc, now)
	if err != nil {
		return nil, admitErr(err)
	}
	slot := interval.MustNew(params.SlotStart, params.SlotStart.Add(svc.Duration()))

	var created *booking.Booking
	err = r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := r.clock.Now()
		if err := tx.Bookings().LockPractitioner(ctx, params.PractitionerID); err != nil {
			return err
		}

		if err := r.releaseStaleHolds(ctx, tx, params.PractitionerID, buffered, now); err != nil {
			return err
		}

		b, err := booking.NewHold(params.PractitionerID, params.ServiceID, params.CustomerID, slot, svc.BufferMinutes, hold, now)
		if err != nil {
			return errs.Mark(err, errs.ErrValidation)
		}
		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}
		created = b
		return enqueueBookingEvent(ctx, tx, EventBookingHeld, b, now)
	})
	if err != nil {
		return nil, classifyStoreErr(err, nil)
	}

	if r.scheduler != nil {
		if schedErr := r.scheduler.ScheduleExpiry(ctx, created.ID(), created.ExpiresAt()); schedErr != nil {
			r.logger.Warn("failed to schedule hold expiry, sweeper will release it",
				slog.String("booking_id", created.ID().String()),
				slog.String("error", schedErr.Error()))
		}
	}

	r.logger.Info("slot held",
		slog.String("booking_id", created.ID().String()),
		slog.String("practitioner_id", params.PractitionerID.String()),
		slog.Time("slot_start", slot.Start()),
		slog.Time("expires_at", created.ExpiresAt()))
	return created, nil
}

// releaseStaleHolds re-checks occupancy against committed bookings. Elapsed
// holds in the way are expired first so the exclusion constraint lets the
// new row in; anything still occupying means the slot is gone.
func (r *reservationUseCaseImpl) releaseStaleHolds(
	ctx context.Context,
	tx shared.Tx,
	practitionerID uuid.UUID,
	buffered interval.TimeInterval,
	now time.Time,
) error {
	overlapping, err := tx.Bookings().ListOverlapping(ctx, practitionerID, buffered)
	if err != nil {
		return err
	}
	for _, existing := range overlapping {
		if existing.OccupiesAt(now) {
			return errs.Markf(errs.ErrSlotNoLongerAvailable, "slot %s overlaps booking %s", buffered, existing.ID())
		}
	}
	for _, stale := range overlapping {
		if stale.Status() != booking.StatusHeld {
			continue
		}
		if err := stale.Expire(now); err != nil {
			return err
		}
		if err := saveTransition(ctx, tx, EventBookingExpired, stale, now); err != nil {
			return err
		}
	}
	return nil
}

func (r *reservationUseCaseImpl) Cancel(ctx context.Context, bookingID, customerID uuid.UUID) (*booking.Booking, error) {
	b, err := r.uow.CommandReads().BookingByID(ctx, bookingID)
	if err != nil {
		return nil, classifyStoreErr(err, errs.ErrBookingNotFound)
	}
	if err := checkOwner(b, customerID); err != nil {
		return nil, err
	}
	if b.Status() == booking.StatusCancelled {
		return b, nil
	}
	if !booking.CanTransition(b.Status(), booking.StatusCancelled) {
		return nil, errs.Markf(errs.ErrIllegalTransition, "cannot cancel booking in status %s", b.Status())
	}

	if b.Status() == booking.StatusPendingPayment && b.PaymentIntentID() != nil {
		if err := voidIntent(ctx, r.gateway, r.policy, r.logger, *b.PaymentIntentID()); err != nil {
			return nil, err
		}
	}

	var cancelled *booking.Booking
	err = r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := r.clock.Now()
		current, err := tx.Bookings().FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if current.Version() != b.Version() {
			return errs.Markf(errs.ErrStaleBookingVersion, "booking %s changed while cancelling", bookingID)
		}
		if err := current.Cancel(now); err != nil {
			return err
		}
		if current.PaymentIntentID() != nil {
			if err := tx.Payments().UpdateIntentStatus(ctx, *current.PaymentIntentID(), payment.IntentCanceled, now); err != nil {
				return err
			}
		}
		cancelled = current
		return saveTransition(ctx, tx, EventBookingCancelled, current, now)
	})
	if err != nil {
		err = classifyStoreErr(err, errs.ErrBookingNotFound)
		if errs.Is(err, errs.ErrStaleBookingVersion) {
			if latest, readErr := r.uow.CommandReads().BookingByID(ctx, bookingID); readErr == nil && latest.Status() == booking.StatusCancelled {
				return latest, nil
			}
		}
		return nil, err
	}
	return cancelled, nil
}

func (r *reservationUseCaseImpl) ExpireHold(ctx context.Context, bookingID uuid.UUID) error {
	err := retry.Do(ctx, r.policy, r.logger, func(ctx context.Context) error {
		return classifyStoreErr(r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			now := r.clock.Now()
			b, err := tx.Bookings().FindByID(ctx, bookingID)
			if err != nil {
				return err
			}
			if b.Status() != booking.StatusHeld || !b.HoldElapsed(now) {
				return nil
			}
			if err := b.Expire(now); err != nil {
				return err
			}
			return saveTransition(ctx, tx, EventBookingExpired, b, now)
		}), errs.ErrBookingNotFound)
	})
	if errs.Is(err, errs.ErrBookingNotFound) {
		r.logger.Warn("hold expiry for unknown booking", slog.String("booking_id", bookingID.String()))
		return nil
	}
	return err
}

func (r *reservationUseCaseImpl) SweepExpiredHolds(ctx context.Context, limit int) (int, error) {
	var ids []uuid.UUID
	err := r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		ids, err = tx.Bookings().ListElapsedHolds(ctx, r.clock.Now(), limit)
		return err
	})
	if err != nil {
		return 0, classifyStoreErr(err, nil)
	}

	expired := 0
	for _, id := range ids {
		if err := r.ExpireHold(ctx, id); err != nil {
			r.logger.Error("failed to expire hold",
				slog.String("booking_id", id.String()),
				slog.String("error", err.Error()))
			continue
		}
		expired++
	}
	return expired, nil
}

func (r *reservationUseCaseImpl) holdDuration(params ReserveParams) (time.Duration, error) {
	if params.PractitionerID == uuid.Nil || params.ServiceID == uuid.Nil || params.CustomerID == uuid.Nil {
		return 0, errs.Markf(errs.ErrValidation, "practitioner, service and customer are required")
	}
	if params.SlotStart.IsZero() {
		return 0, errs.Markf(errs.ErrValidation, "slot start is required")
	}
	hold := params.HoldDuration
	if hold == 0 {
		hold = r.cfg.HoldDuration
	}
	if hold <= 0 || (r.cfg.MaxHoldDuration > 0 && hold > r.cfg.MaxHoldDuration) {
		return 0, errs.Markf(errs.ErrValidation, "hold duration %s out of range", hold)
	}
	return hold, nil
}

func (r *reservationUseCaseImpl) loadPlan(ctx context.Context, practitionerID, serviceID uuid.UUID, start time.Time) (*catalog.Service, catalog.DayPlan, error) {
	return shared.LoadDayPlan(ctx, r.catalog, practitionerID, serviceID, func(loc *time.Location) time.Time {
		return start.In(loc)
	})
}

func admitErr(err error) error {
	switch {
	case errs.Is(err, availability.ErrNoSchedule), errs.Is(err, availability.ErrClosed):
		return errs.Mark(err, errs.ErrScheduleNotFound)
	case errs.Is(err, availability.ErrOnBreak), errs.Is(err, availability.ErrOutsideHours),
		errs.Is(err, availability.ErrOutsideSchedule), errs.Is(err, availability.ErrOffGrid),
		errs.Is(err, availability.ErrTooSoon):
		return errs.Mark(err, errs.ErrValidation)
	default:
		return err
	}
}
