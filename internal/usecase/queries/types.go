package queries

import (
	"time"

	"booking-engine/internal/domain/booking"
	"booking-engine/internal/domain/interval"

	"github.com/google/uuid"
)

// SlotView is a bookable slot; the service buffer is not included.
type SlotView struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AvailabilityView represents one practitioner-day of open slots
type AvailabilityView struct {
	PractitionerID uuid.UUID  `json:"practitioner_id"`
	ServiceID      uuid.UUID  `json:"service_id"`
	Date           string     `json:"date"`
	TimeZone       string     `json:"time_zone"`
	Slots          []SlotView `json:"slots"`
	ScheduleFound  bool       `json:"schedule_found"`
	Reason         string     `json:"reason,omitempty"`
}

// BookingView represents read-optimized booking data
type BookingView struct {
	ID                  uuid.UUID  `json:"id"`
	PractitionerID      uuid.UUID  `json:"practitioner_id"`
	ServiceID           uuid.UUID  `json:"service_id"`
	CustomerID          uuid.UUID  `json:"customer_id"`
	SlotStart           time.Time  `json:"slot_start"`
	SlotEnd             time.Time  `json:"slot_end"`
	Status              string     `json:"status"`
	PaymentIntentID     *string    `json:"payment_intent_id,omitempty"`
	HoldExpiresAt       *time.Time `json:"hold_expires_at,omitempty"`
	NeedsReconciliation bool       `json:"needs_reconciliation"`
	Version             int64      `json:"version"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type ListBookingsParams struct {
	CustomerID uuid.UUID
	After      string
	Limit      int
}

type BookingPage struct {
	Items      []*BookingView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func NewBookingView(b *booking.Booking) *BookingView {
	v := &BookingView{
		ID:                  b.ID(),
		PractitionerID:      b.PractitionerID(),
		ServiceID:           b.ServiceID(),
		CustomerID:          b.CustomerID(),
		SlotStart:           b.Slot().Start(),
		SlotEnd:             b.Slot().End(),
		Status:              b.Status().String(),
		PaymentIntentID:     b.PaymentIntentID(),
		NeedsReconciliation: b.NeedsReconciliation(),
		Version:             b.Version(),
		CreatedAt:           b.CreatedAt(),
		UpdatedAt:           b.UpdatedAt(),
	}
	if b.Status() == booking.StatusHeld || b.Status() == booking.StatusPendingPayment {
		exp := b.ExpiresAt()
		v.HoldExpiresAt = &exp
	}
	return v
}

func newSlotViews(slots []interval.TimeInterval, loc *time.Location) []SlotView {
	out := make([]SlotView, 0, len(slots))
	for _, s := range slots {
		s = s.In(loc)
		out = append(out, SlotView{Start: s.Start(), End: s.End()})
	}
	return out
}
