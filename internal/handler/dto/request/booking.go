package request

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityQuery keeps ids as strings: form binding cannot fill uuid.UUID.
type AvailabilityQuery struct {
	PractitionerID string `form:"practitionerId" binding:"required,uuid"`
	ServiceID      string `form:"serviceId" binding:"required,uuid"`
	Date           string `form:"date" binding:"required"`
	TimeZone       string `form:"timezone"`
}

func (q AvailabilityQuery) IDs() (practitionerID, serviceID uuid.UUID, err error) {
	if practitionerID, err = uuid.Parse(q.PractitionerID); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if serviceID, err = uuid.Parse(q.ServiceID); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return practitionerID, serviceID, nil
}

type CreateBookingRequest struct {
	PractitionerID uuid.UUID `json:"practitionerId" binding:"required"`
	ServiceID      uuid.UUID `json:"serviceId" binding:"required"`
	SlotStart      time.Time `json:"slotStart" binding:"required"`
	HoldSeconds    *int      `json:"holdSeconds,omitempty" binding:"omitempty,min=1"`
}

func (r CreateBookingRequest) HoldDuration() time.Duration {
	if r.HoldSeconds == nil {
		return 0
	}
	return time.Duration(*r.HoldSeconds) * time.Second
}

type ListBookingsQuery struct {
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
	After string `form:"after"`
}

type CreatePaymentIntentRequest struct {
	Amount   *int64 `json:"amount,omitempty" binding:"omitempty,min=1"`
	Currency string `json:"currency,omitempty"`
}

type ConfirmBookingRequest struct {
	PaymentMethodRef string `json:"paymentMethodRef"`
}

type RefundBookingRequest struct {
	Amount *int64 `json:"amount,omitempty" binding:"omitempty,min=1"`
	Reason string `json:"reason"`
}
