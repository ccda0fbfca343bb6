package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"booking-engine/internal/domain/booking"
	"booking-engine/internal/domain/payment"
	"booking-engine/internal/pkg/errs"
	"booking-engine/internal/pkg/retry"
	"booking-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

const BookingEventsTopic = "booking-events"

// Notification kinds written to the outbox with every booking transition.
const (
	EventBookingHeld      = "booking.held"
	EventBookingPending   = "booking.pending_payment"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingFailed    = "booking.failed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingExpired   = "booking.expired"
	EventBookingRefunded  = "booking.refunded"
	EventBookingFlagged   = "booking.needs_reconciliation"
)

type bookingEventPayload struct {
	BookingID           uuid.UUID `json:"booking_id"`
	PractitionerID      uuid.UUID `json:"practitioner_id"`
	ServiceID           uuid.UUID `json:"service_id"`
	CustomerID          uuid.UUID `json:"customer_id"`
	Status              string    `json:"status"`
	SlotStart           time.Time `json:"slot_start"`
	SlotEnd             time.Time `json:"slot_end"`
	PaymentIntentID     *string   `json:"payment_intent_id,omitempty"`
	NeedsReconciliation bool      `json:"needs_reconciliation"`
	OccurredAt          time.Time `json:"occurred_at"`
}

// enqueueBookingEvent writes the outbox row inside the caller's transaction.
// Delivery happens later, so a broker outage never rolls back a booking.
func enqueueBookingEvent(ctx context.Context, tx shared.Tx, kind string, b *booking.Booking, now time.Time) error {
	payload, err := json.Marshal(bookingEventPayload{
		BookingID:           b.ID(),
		PractitionerID:      b.PractitionerID(),
		ServiceID:           b.ServiceID(),
		CustomerID:          b.CustomerID(),
		Status:              b.Status().String(),
		SlotStart:           b.Slot().Start(),
		SlotEnd:             b.Slot().End(),
		PaymentIntentID:     b.PaymentIntentID(),
		NeedsReconciliation: b.NeedsReconciliation(),
		OccurredAt:          now,
	})
	if err != nil {
		return errs.Wrap(err, "failed to marshal booking event")
	}
	return tx.Notifications().CreateJob(ctx, kind, BookingEventsTopic, payload, now)
}

// saveTransition persists a booking transition and its outbox event.
func saveTransition(ctx context.Context, tx shared.Tx, kind string, b *booking.Booking, now time.Time) error {
	if err := tx.Bookings().Update(ctx, b); err != nil {
		return err
	}
	return enqueueBookingEvent(ctx, tx, kind, b, now)
}

func classifyStoreErr(err error, notFound error) error {
	return shared.ClassifyStoreErr(err, notFound)
}

func checkOwner(b *booking.Booking, customerID uuid.UUID) error {
	if customerID != uuid.Nil && !b.OwnedBy(customerID) {
		return errs.Markf(errs.ErrForbidden, "booking %s not owned by customer", b.ID())
	}
	return nil
}

// voidIntent cancels a pending gateway intent, so a customer is never charged
// for a booking that is being cancelled or failed locally.
func voidIntent(ctx context.Context, gateway shared.PaymentGateway, policy retry.Policy, logger *slog.Logger, intentID string) error {
	_, err := retry.DoValue(ctx, policy, logger, func(ctx context.Context) (*shared.GatewayIntent, error) {
		return gateway.CancelIntent(ctx, intentID)
	})
	if err == nil {
		return nil
	}

	// The cancel may have lost a race with a successful payment.
	current, getErr := retry.DoValue(ctx, policy, logger, func(ctx context.Context) (*shared.GatewayIntent, error) {
		return gateway.GetIntent(ctx, intentID)
	})
	if getErr != nil {
		return errs.Mark(err, errs.ErrAmbiguousGatewayResult)
	}
	switch current.Status.Outcome() {
	case payment.OutcomeFailed:
		return nil
	case payment.OutcomeSucceeded:
		return errs.Markf(errs.ErrIllegalTransition, "payment %s already succeeded", intentID)
	default:
		return err
	}
}
