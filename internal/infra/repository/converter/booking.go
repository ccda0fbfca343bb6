package converter

import (
	"time"

	"booking-engine/internal/domain/booking"
	"booking-engine/internal/domain/catalog"
	"booking-engine/internal/domain/interval"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// BookingRow mirrors one row of the bookings table.
type BookingRow struct {
	ID                  uuid.UUID
	PractitionerID      uuid.UUID
	ServiceID           uuid.UUID
	CustomerID          uuid.UUID
	SlotStart           time.Time
	SlotEnd             time.Time
	BufferMinutes       int32
	Status              string
	PaymentIntentID     pgtype.Text
	Version             int64
	NeedsReconciliation bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ExpiresAt           time.Time
	CancelledAt         pgtype.Timestamptz
}

// ScanTargets lists the destinations in the column order of BookingColumns.
func (r *BookingRow) ScanTargets() []any {
	return []any{
		&r.ID, &r.PractitionerID, &r.ServiceID, &r.CustomerID,
		&r.SlotStart, &r.SlotEnd, &r.BufferMinutes, &r.Status,
		&r.PaymentIntentID, &r.Version, &r.NeedsReconciliation,
		&r.CreatedAt, &r.UpdatedAt, &r.ExpiresAt, &r.CancelledAt,
	}
}

const BookingColumns = `id, practitioner_id, service_id, customer_id, slot_start, slot_end,
	buffer_minutes, status, payment_intent_id, version, needs_reconciliation,
	created_at, updated_at, expires_at, cancelled_at`

func BookingToDomain(r BookingRow) (*booking.Booking, error) {
	slot, err := interval.New(r.SlotStart.UTC(), r.SlotEnd.UTC())
	if err != nil {
		return nil, err
	}
	var intentID *string
	if r.PaymentIntentID.Valid {
		v := r.PaymentIntentID.String
		intentID = &v
	}
	var cancelledAt *time.Time
	if r.CancelledAt.Valid {
		t := r.CancelledAt.Time.UTC()
		cancelledAt = &t
	}
	return booking.ReconstructBooking(
		r.ID, r.PractitionerID, r.ServiceID, r.CustomerID,
		slot,
		int(r.BufferMinutes),
		booking.Status(r.Status),
		intentID,
		r.Version,
		r.NeedsReconciliation,
		r.CreatedAt.UTC(), r.UpdatedAt.UTC(), r.ExpiresAt.UTC(),
		cancelledAt,
	), nil
}

func TextFromPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func TimestamptzFromPtr(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// TimeOfDayFromPg converts a Postgres time value (microseconds after midnight).
func TimeOfDayFromPg(t pgtype.Time) (catalog.TimeOfDay, error) {
	minutes := int(t.Microseconds / int64(time.Minute/time.Microsecond))
	return catalog.NewTimeOfDay(minutes/60, minutes%60)
}
