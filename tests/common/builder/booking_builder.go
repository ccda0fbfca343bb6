//go:build unit || integration || e2e

package builder

import (
	"time"

	"booking-engine/internal/domain/booking"
	"booking-engine/internal/domain/interval"
	reqdto "booking-engine/internal/handler/dto/request"

	"github.com/google/uuid"
)

// Monday 2030-06-03, far enough ahead that lead-time checks never interfere.
var BaseDay = time.Date(2030, 6, 3, 0, 0, 0, 0, time.UTC)

// At returns BaseDay at h:m UTC.
func At(h, m int) time.Time {
	return BaseDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

type BookingBuilder struct {
	ID                  uuid.UUID
	PractitionerID      uuid.UUID
	ServiceID           uuid.UUID
	CustomerID          uuid.UUID
	Start               time.Time
	DurationMinutes     int
	BufferMinutes       int
	Status              booking.Status
	PaymentIntentID     *string
	Version             int64
	NeedsReconciliation bool
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

func NewBookingBuilder() *BookingBuilder {
	created := At(8, 0)
	return &BookingBuilder{
		ID:              uuid.New(),
		PractitionerID:  uuid.New(),
		ServiceID:       uuid.New(),
		CustomerID:      uuid.New(),
		Start:           At(10, 0),
		DurationMinutes: 30,
		BufferMinutes:   10,
		Status:          booking.StatusHeld,
		Version:         1,
		CreatedAt:       created,
		ExpiresAt:       created.Add(10 * time.Minute),
	}
}

func (b *BookingBuilder) With(mutate func(*BookingBuilder)) *BookingBuilder {
	mutate(b)
	return b
}

func (b *BookingBuilder) WithStatus(status booking.Status) *BookingBuilder {
	b.Status = status
	return b
}

func (b *BookingBuilder) WithIntent(intentID string) *BookingBuilder {
	b.PaymentIntentID = &intentID
	return b
}

func (b *BookingBuilder) BuildDomain() *booking.Booking {
	slot := interval.MustNew(b.Start, b.Start.Add(time.Duration(b.DurationMinutes)*time.Minute))
	return booking.ReconstructBooking(
		b.ID, b.PractitionerID, b.ServiceID, b.CustomerID,
		slot, b.BufferMinutes, b.Status, b.PaymentIntentID, b.Version,
		b.NeedsReconciliation, b.CreatedAt, b.CreatedAt, b.ExpiresAt, nil,
	)
}

func (b *BookingBuilder) BuildCreateRequestDTO() reqdto.CreateBookingRequest {
	return reqdto.CreateBookingRequest{
		PractitionerID: b.PractitionerID,
		ServiceID:      b.ServiceID,
		SlotStart:      b.Start,
	}
}
