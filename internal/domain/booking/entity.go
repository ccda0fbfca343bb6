package booking

import (
	"time"

	"booking-engine/internal/domain/interval"
	"booking-engine/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrInvalidHoldDuration = errs.New("hold duration must be positive")
	ErrMissingReference    = errs.New("booking requires practitioner, service and customer")
)

type Booking struct {
	id                  uuid.UUID
	practitionerID      uuid.UUID
	serviceID           uuid.UUID
	customerID          uuid.UUID
	slot                interval.TimeInterval
	bufferMinutes       int
	status              Status
	paymentIntentID     *string
	version             int64
	needsReconciliation bool
	createdAt           time.Time
	updatedAt           time.Time
	expiresAt           time.Time
	cancelledAt         *time.Time
}

// NewHold creates a provisional booking that blocks slot plus buffer until
// now+hold.
func NewHold(
	practitionerID, serviceID, customerID uuid.UUID,
	slot interval.TimeInterval,
	bufferMinutes int,
	hold time.Duration,
	now time.Time,
) (*Booking, error) {
	if practitionerID == uuid.Nil || serviceID == uuid.Nil || customerID == uuid.Nil {
		return nil, ErrMissingReference
	}
	if hold <= 0 {
		return nil, ErrInvalidHoldDuration
	}
	if bufferMinutes < 0 {
		bufferMinutes = 0
	}
	return &Booking{
		id:             uuid.New(),
		practitionerID: practitionerID,
		serviceID:      serviceID,
		customerID:     customerID,
		slot:           slot,
		bufferMinutes:  bufferMinutes,
		status:         StatusHeld,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
		expiresAt:      now.Add(hold),
	}, nil
}

func ReconstructBooking(
	id, practitionerID, serviceID, customerID uuid.UUID,
	slot interval.TimeInterval,
	bufferMinutes int,
	status Status,
	paymentIntentID *string,
	version int64,
	needsReconciliation bool,
	createdAt, updatedAt, expiresAt time.Time,
	cancelledAt *time.Time,
) *Booking {
	return &Booking{
		id:                  id,
		practitionerID:      practitionerID,
		serviceID:           serviceID,
		customerID:          customerID,
		slot:                slot,
		bufferMinutes:       bufferMinutes,
		status:              status,
		paymentIntentID:     paymentIntentID,
		version:             version,
		needsReconciliation: needsReconciliation,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
		expiresAt:           expiresAt,
		cancelledAt:         cancelledAt,
	}
}

func (b *Booking) ID() uuid.UUID               { return b.id }
func (b *Booking) PractitionerID() uuid.UUID   { return b.practitionerID }
func (b *Booking) ServiceID() uuid.UUID        { return b.serviceID }
func (b *Booking) CustomerID() uuid.UUID       { return b.customerID }
func (b *Booking) Slot() interval.TimeInterval { return b.slot }
func (b *Booking) BufferMinutes() int          { return b.bufferMinutes }
func (b *Booking) Status() Status              { return b.status }
func (b *Booking) PaymentIntentID() *string    { return b.paymentIntentID }
func (b *Booking) Version() int64              { return b.version }
func (b *Booking) NeedsReconciliation() bool   { return b.needsReconciliation }
func (b *Booking) CreatedAt() time.Time        { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time        { return b.updatedAt }
func (b *Booking) ExpiresAt() time.Time        { return b.expiresAt }
func (b *Booking) CancelledAt() *time.Time     { return b.cancelledAt }

// Occupied is the slot extended by the service buffer.
func (b *Booking) Occupied() interval.TimeInterval {
	return b.slot.Extend(time.Duration(b.bufferMinutes) * time.Minute)
}

func (b *Booking) HoldElapsed(now time.Time) bool {
	return !now.Before(b.expiresAt)
}

// OccupiesAt reports whether the booking blocks its interval at now. An
// elapsed HELD booking no longer blocks even before the sweeper marks it.
func (b *Booking) OccupiesAt(now time.Time) bool {
	if b.status == StatusHeld {
		return !b.HoldElapsed(now)
	}
	return b.status.Occupies()
}

func (b *Booking) OwnedBy(customerID uuid.UUID) bool {
	return b.customerID == customerID
}

// MarkPersisted advances the version after the store accepted the write.
func (b *Booking) MarkPersisted() {
	b.version++
}

func (b *Booking) transition(to Status, now time.Time) error {
	if !CanTransition(b.status, to) {
		return errs.Markf(errs.ErrIllegalTransition, "booking %s: %s -> %s", b.id, b.status, to)
	}
	b.status = to
	b.updatedAt = now
	return nil
}

// AwaitPayment binds the payment intent and moves HELD to PENDING_PAYMENT.
// Re-binding the same intent while already pending is a no-op.
func (b *Booking) AwaitPayment(intentID string, now time.Time) error {
	if b.status == StatusPendingPayment && b.paymentIntentID != nil && *b.paymentIntentID == intentID {
		return nil
	}
	if b.status == StatusHeld && b.HoldElapsed(now) {
		return errs.Markf(errs.ErrHoldExpired, "booking %s hold expired at %s", b.id, b.expiresAt.Format(time.RFC3339))
	}
	if err := b.transition(StatusPendingPayment, now); err != nil {
		return err
	}
	b.paymentIntentID = &intentID
	return nil
}

// Confirm records a successful payment. A confirmation that lands after the
// hold elapsed is still honoured but flagged for manual reconciliation; the
// caller must have verified the slot is still free when the booking is
// EXPIRED.
func (b *Booking) Confirm(intentID string, now time.Time) error {
	late := b.status == StatusExpired ||
		((b.status == StatusHeld || b.status == StatusPendingPayment) && b.HoldElapsed(now))
	if err := b.transition(StatusConfirmed, now); err != nil {
		return err
	}
	if intentID != "" {
		b.paymentIntentID = &intentID
	}
	if late {
		b.needsReconciliation = true
	}
	return nil
}

func (b *Booking) Fail(now time.Time) error {
	return b.transition(StatusFailed, now)
}

func (b *Booking) Cancel(now time.Time) error {
	if err := b.transition(StatusCancelled, now); err != nil {
		return err
	}
	b.cancelledAt = &now
	return nil
}

// Expire releases a hold. HELD bookings expire only once the hold elapsed;
// PENDING_PAYMENT bookings are expired by the reconciler after the gateway
// confirmed nothing was charged.
func (b *Booking) Expire(now time.Time) error {
	if b.status == StatusHeld && !b.HoldElapsed(now) {
		return errs.Markf(errs.ErrIllegalTransition, "booking %s hold still active", b.id)
	}
	return b.transition(StatusExpired, now)
}

func (b *Booking) Refund(now time.Time) error {
	if b.status == StatusRefunded {
		return errs.Markf(errs.ErrAlreadyRefunded, "booking %s already refunded", b.id)
	}
	return b.transition(StatusRefunded, now)
}

// FlagForReconciliation marks a booking whose local and gateway state could
// not be made to agree automatically.
func (b *Booking) FlagForReconciliation(now time.Time) {
	b.needsReconciliation = true
	b.updatedAt = now
}
