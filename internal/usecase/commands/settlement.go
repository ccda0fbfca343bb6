package commands

import (
	"context"
	"log/slog"
	"time"

	"booking-engine/internal/domain/booking"
	"booking-engine/internal/domain/payment"
	"booking-engine/internal/infra"
	"booking-engine/internal/pkg/errs"
	"booking-engine/internal/pkg/retry"
	"booking-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

// refundGrace keeps the reconciler away from refunds whose first gateway call
// may still be in flight.
const refundGrace = time.Minute

// settle applies the gateway's view of an intent to its booking in one
// transaction. Illegal transitions are logged and skipped.
func (p *paymentUseCaseImpl) settle(ctx context.Context, bookingID uuid.UUID, gi *shared.GatewayIntent, outcome payment.Outcome) (*booking.Booking, error) {
	var result *booking.Booking
	err := retry.Do(ctx, p.policy, p.logger, func(ctx context.Context) error {
		return classifyStoreErr(p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			now := p.clock.Now()
			b, err := tx.Bookings().FindByID(ctx, bookingID)
			if err != nil {
				return err
			}
			if err := tx.Payments().UpdateIntentStatus(ctx, gi.ID, gi.Status, now); err != nil {
				return err
			}
			switch outcome {
			case payment.OutcomeSucceeded:
				_, err = p.applySuccess(ctx, tx, b, gi.ID, now)
			case payment.OutcomeFailed:
				_, err = p.applyFailure(ctx, tx, b, now)
			}
			result = b
			return err
		}), errs.ErrBookingNotFound)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applySuccess confirms the booking for a captured payment. A payment that
// arrives after the hold elapsed is honoured when the slot is still free and
// flagged for reconciliation either way.
func (p *paymentUseCaseImpl) applySuccess(ctx context.Context, tx shared.Tx, b *booking.Booking, intentID string, now time.Time) (bool, error) {
	switch b.Status() {
	case booking.StatusConfirmed, booking.StatusRefunded:
		return false, nil
	case booking.StatusFailed, booking.StatusCancelled:
		return false, p.flagPaidButClosed(ctx, tx, b, intentID, now)
	case booking.StatusExpired:
		if err := tx.Bookings().LockPractitioner(ctx, b.PractitionerID()); err != nil {
			return false, err
		}
		others, err := tx.Bookings().ListOverlapping(ctx, b.PractitionerID(), b.Occupied())
		if err != nil {
			return false, err
		}
		for _, o := range others {
			if o.ID() != b.ID() && o.OccupiesAt(now) {
				return false, p.flagPaidButClosed(ctx, tx, b, intentID, now)
			}
		}
	}

	if err := b.Confirm(intentID, now); err != nil {
		return false, p.ignoreIllegal(err, b)
	}
	if b.NeedsReconciliation() {
		p.logger.Warn("payment confirmed after hold elapsed",
			slog.String("booking_id", b.ID().String()),
			slog.String("payment_intent_id", intentID))
	}
	return true, saveTransition(ctx, tx, EventBookingConfirmed, b, now)
}

func (p *paymentUseCaseImpl) flagPaidButClosed(ctx context.Context, tx shared.Tx, b *booking.Booking, intentID string, now time.Time) error {
	if b.NeedsReconciliation() {
		return nil
	}
	p.logger.Error("payment captured for a booking that cannot be confirmed",
		slog.String("booking_id", b.ID().String()),
		slog.String("status", b.Status().String()),
		slog.String("payment_intent_id", intentID))
	b.FlagForReconciliation(now)
	return saveTransition(ctx, tx, EventBookingFlagged, b, now)
}

func (p *paymentUseCaseImpl) applyFailure(ctx context.Context, tx shared.Tx, b *booking.Booking, now time.Time) (bool, error) {
	if b.Status() == booking.StatusFailed {
		return false, nil
	}
	if err := b.Fail(now); err != nil {
		return false, p.ignoreIllegal(err, b)
	}
	return true, saveTransition(ctx, tx, EventBookingFailed, b, now)
}

func (p *paymentUseCaseImpl) applyRefunded(ctx context.Context, tx shared.Tx, b *booking.Booking, now time.Time) (bool, error) {
	refund, err := tx.Payments().FindActiveRefund(ctx, b.ID())
	switch {
	case err == nil && refund.Status == payment.RefundPending:
		refund.Status = payment.RefundSucceeded
		refund.UpdatedAt = now
		if err := tx.Payments().UpdateRefund(ctx, refund); err != nil {
			return false, err
		}
	case err != nil && !infra.IsKind(err, infra.KindNotFound):
		return false, err
	}

	if b.Status() == booking.StatusRefunded {
		return false, nil
	}
	if err := b.Refund(now); err != nil {
		return false, p.ignoreIllegal(err, b)
	}
	return true, saveTransition(ctx, tx, EventBookingRefunded, b, now)
}

func (p *paymentUseCaseImpl) ignoreIllegal(err error, b *booking.Booking) error {
	if errs.Is(err, errs.ErrIllegalTransition) || errs.Is(err, errs.ErrAlreadyRefunded) {
		p.logger.Info("ignoring illegal booking transition",
			slog.String("booking_id", b.ID().String()),
			slog.String("status", b.Status().String()),
			slog.String("reason", err.Error()))
		return nil
	}
	return err
}

func (p *paymentUseCaseImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	evt, err := p.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrInvalidWebhook)
	}
	result := &WebhookResult{EventID: evt.ID, EventType: evt.Type}

	err = retry.Do(ctx, p.policy, p.logger, func(ctx context.Context) error {
		result.Duplicate, result.Applied = false, false
		return classifyStoreErr(p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			now := p.clock.Now()
			evt.ReceivedAt = now
			inserted, err := tx.WebhookEvents().Record(ctx, *evt)
			if err != nil {
				return err
			}
			if !inserted {
				result.Duplicate = true
				return nil
			}
			applied, err := p.applyEvent(ctx, tx, evt, now)
			if err != nil && rejectedByBooking(ctx, err) {
				p.logger.Warn("webhook transition rejected, event recorded",
					slog.String("event_id", evt.ID),
					slog.String("event_type", evt.Type),
					slog.String("reason", err.Error()))
				return nil
			}
			result.Applied = applied
			return err
		}), nil)
	})
	if err != nil {
		return nil, err
	}

	logArgs := []any{
		slog.String("event_id", evt.ID),
		slog.String("event_type", evt.Type),
		slog.String("payment_intent_id", evt.IntentID),
	}
	switch {
	case result.Duplicate:
		p.logger.Info("duplicate webhook ignored", logArgs...)
	case result.Applied:
		p.logger.Info("webhook applied", logArgs...)
	default:
		p.logger.Info("webhook recorded without transition", logArgs...)
	}
	return result, nil
}

// rejectedByBooking reports whether err came from the booking model rather
// than the store. Such events are still recorded; store failures roll back so
// the gateway redelivers.
func rejectedByBooking(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errs.IsTransient(err) {
		return false
	}
	_, fromStore := infra.KindOf(err)
	return !fromStore
}

func (p *paymentUseCaseImpl) applyEvent(ctx context.Context, tx shared.Tx, evt *payment.WebhookEvent, now time.Time) (bool, error) {
	switch evt.Type {
	case payment.EventIntentSucceeded, payment.EventIntentFailed, payment.EventIntentCanceled, payment.EventChargeRefunded:
	default:
		return false, nil
	}

	b, err := p.resolveBooking(ctx, tx, evt)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			p.logger.Warn("webhook for unknown booking",
				slog.String("event_id", evt.ID),
				slog.String("payment_intent_id", evt.IntentID))
			return false, nil
		}
		return false, err
	}

	if evt.IntentID != "" && evt.Status != "" && !settledAgainst(evt, b) {
		if err := tx.Payments().UpdateIntentStatus(ctx, evt.IntentID, evt.Status, now); err != nil {
			return false, err
		}
	}

	switch evt.Type {
	case payment.EventIntentSucceeded:
		return p.applySuccess(ctx, tx, b, evt.IntentID, now)
	case payment.EventIntentFailed, payment.EventIntentCanceled:
		return p.applyFailure(ctx, tx, b, now)
	default:
		return p.applyRefunded(ctx, tx, b, now)
	}
}

// settledAgainst reports whether a failure event arrived after the booking
// was already paid, in which case the stored intent status is kept.
func settledAgainst(evt *payment.WebhookEvent, b *booking.Booking) bool {
	switch evt.Type {
	case payment.EventIntentFailed, payment.EventIntentCanceled:
		return b.Status() == booking.StatusConfirmed || b.Status() == booking.StatusRefunded
	}
	return false
}

func (p *paymentUseCaseImpl) resolveBooking(ctx context.Context, tx shared.Tx, evt *payment.WebhookEvent) (*booking.Booking, error) {
	if evt.BookingID != uuid.Nil {
		b, err := tx.Bookings().FindByID(ctx, evt.BookingID)
		if err == nil || !infra.IsKind(err, infra.KindNotFound) || evt.IntentID == "" {
			return b, err
		}
	}
	return tx.Bookings().FindByPaymentIntentID(ctx, evt.IntentID)
}

// Reconcile settles bookings stuck in PENDING_PAYMENT past their hold and
// re-drives refunds whose gateway outcome is unknown.
func (p *paymentUseCaseImpl) Reconcile(ctx context.Context, limit int) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	now := p.clock.Now()

	var pending []uuid.UUID
	var refunds []*payment.Refund
	err := p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		if pending, err = tx.Bookings().ListPendingPastHold(ctx, now, limit); err != nil {
			return err
		}
		refunds, err = tx.Payments().ListPendingRefunds(ctx, now.Add(-refundGrace), limit)
		return err
	})
	if err != nil {
		return nil, classifyStoreErr(err, nil)
	}

	for _, id := range pending {
		if err := p.reconcileBooking(ctx, id, report); err != nil {
			report.Errors++
			p.logger.Error("failed to reconcile booking",
				slog.String("booking_id", id.String()),
				slog.String("error", err.Error()))
		}
	}
	for _, r := range refunds {
		if err := p.reconcileRefund(ctx, r, report); err != nil {
			report.Errors++
			p.logger.Error("failed to reconcile refund",
				slog.String("refund_id", r.ID.String()),
				slog.String("error", err.Error()))
		}
	}
	return report, nil
}

func (p *paymentUseCaseImpl) reconcileBooking(ctx context.Context, bookingID uuid.UUID, report *ReconcileReport) error {
	b, err := p.uow.CommandReads().BookingByID(ctx, bookingID)
	if err != nil {
		return classifyStoreErr(err, errs.ErrBookingNotFound)
	}
	if b.Status() != booking.StatusPendingPayment || b.PaymentIntentID() == nil {
		report.Skipped++
		return nil
	}
	intentID := *b.PaymentIntentID()

	gi, err := retry.DoValue(ctx, p.policy, p.logger, func(ctx context.Context) (*shared.GatewayIntent, error) {
		return p.gateway.GetIntent(ctx, intentID)
	})
	if err != nil {
		return err
	}

	switch gi.Status.Outcome() {
	case payment.OutcomeSucceeded:
		if _, err := p.settle(ctx, bookingID, gi, payment.OutcomeSucceeded); err != nil {
			return err
		}
		report.Confirmed++
		return nil
	case payment.OutcomeFailed:
		if _, err := p.settle(ctx, bookingID, gi, payment.OutcomeFailed); err != nil {
			return err
		}
		report.Failed++
		return nil
	}

	if gi.Status == payment.IntentProcessing {
		report.Skipped++
		return nil
	}
	if err := voidIntent(ctx, p.gateway, p.policy, p.logger, intentID); err != nil {
		return err
	}
	err = retry.Do(ctx, p.policy, p.logger, func(ctx context.Context) error {
		return classifyStoreErr(p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			now := p.clock.Now()
			current, err := tx.Bookings().FindByID(ctx, bookingID)
			if err != nil {
				return err
			}
			if err := tx.Payments().UpdateIntentStatus(ctx, intentID, payment.IntentCanceled, now); err != nil {
				return err
			}
			if current.Status() != booking.StatusPendingPayment {
				return nil
			}
			if err := current.Expire(now); err != nil {
				return err
			}
			return saveTransition(ctx, tx, EventBookingExpired, current, now)
		}), errs.ErrBookingNotFound)
	})
	if err != nil {
		return err
	}
	report.Expired++
	return nil
}

func (p *paymentUseCaseImpl) reconcileRefund(ctx context.Context, refund *payment.Refund, report *ReconcileReport) error {
	gr, err := p.refundAtGateway(ctx, refund)
	if err != nil {
		if errs.Is(err, errs.ErrAmbiguousGatewayResult) || errs.IsTransient(err) {
			report.Skipped++
			return nil
		}
		refund.Status = payment.RefundFailed
		refund.UpdatedAt = p.clock.Now()
		return p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			return tx.Payments().UpdateRefund(ctx, refund)
		})
	}
	if err := p.finalizeRefund(ctx, refund, gr); err != nil {
		return err
	}
	if refund.Status == payment.RefundSucceeded {
		report.Refunded++
	} else {
		report.Skipped++
	}
	return nil
}
