package response

import (
	"time"

	"booking-engine/internal/domain/booking"
	"booking-engine/internal/domain/payment"
	"booking-engine/internal/usecase/commands"
	"booking-engine/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type SlotResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type AvailabilityResponse struct {
	PractitionerID uuid.UUID      `json:"practitionerId"`
	ServiceID      uuid.UUID      `json:"serviceId"`
	Date           string         `json:"date"`
	TimeZone       string         `json:"timezone"`
	Slots          []SlotResponse `json:"slots"`
	ScheduleFound  bool           `json:"scheduleFound"`
	Reason         string         `json:"reason,omitempty"`
}

func FromAvailabilityView(v *queries.AvailabilityView) *AvailabilityResponse {
	resp := &AvailabilityResponse{}
	_ = copier.Copy(resp, v)
	if resp.Slots == nil {
		resp.Slots = []SlotResponse{}
	}
	return resp
}

type BookingCreatedResponse struct {
	BookingID     uuid.UUID `json:"bookingId"`
	Status        string    `json:"status"`
	HoldExpiresAt time.Time `json:"holdExpiresAt"`
}

func FromHeldBooking(b *booking.Booking) *BookingCreatedResponse {
	return &BookingCreatedResponse{
		BookingID:     b.ID(),
		Status:        b.Status().String(),
		HoldExpiresAt: b.ExpiresAt(),
	}
}

type BookingResponse struct {
	ID                  uuid.UUID  `json:"id"`
	PractitionerID      uuid.UUID  `json:"practitionerId"`
	ServiceID           uuid.UUID  `json:"serviceId"`
	SlotStart           time.Time  `json:"slotStart"`
	SlotEnd             time.Time  `json:"slotEnd"`
	Status              string     `json:"status"`
	PaymentIntentID     *string    `json:"paymentIntentId,omitempty"`
	HoldExpiresAt       *time.Time `json:"holdExpiresAt,omitempty"`
	NeedsReconciliation bool       `json:"needsReconciliation"`
	Version             int64      `json:"version"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func FromBookingView(v *queries.BookingView) *BookingResponse {
	resp := &BookingResponse{}
	_ = copier.Copy(resp, v)
	return resp
}

type BookingListResponse struct {
	Items      []*BookingResponse `json:"items"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

func FromBookingPage(p *queries.BookingPage) *BookingListResponse {
	resp := &BookingListResponse{Items: make([]*BookingResponse, 0, len(p.Items)), NextCursor: p.NextCursor}
	for _, v := range p.Items {
		resp.Items = append(resp.Items, FromBookingView(v))
	}
	return resp
}

func FromBooking(b *booking.Booking) *BookingResponse {
	return FromBookingView(queries.NewBookingView(b))
}

type PaymentIntentResponse struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
}

func FromIntent(in *payment.Intent) *PaymentIntentResponse {
	return &PaymentIntentResponse{
		PaymentIntentID: in.ID,
		ClientSecret:    in.ClientSecret,
		Amount:          in.Amount,
		Currency:        in.Currency,
		Status:          string(in.Status),
	}
}

type StatusResponse struct {
	BookingID uuid.UUID `json:"bookingId"`
	Status    string    `json:"status"`
}

func FromBookingStatus(b *booking.Booking) *StatusResponse {
	return &StatusResponse{BookingID: b.ID(), Status: b.Status().String()}
}

type RefundResponse struct {
	RefundID  uuid.UUID `json:"refundId"`
	BookingID uuid.UUID `json:"bookingId"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
}

func FromRefund(r *payment.Refund) *RefundResponse {
	return &RefundResponse{RefundID: r.ID, BookingID: r.BookingID, Amount: r.Amount, Status: string(r.Status)}
}

type WebhookResponse struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate"`
}

func FromWebhookResult(r *commands.WebhookResult) *WebhookResponse {
	return &WebhookResponse{Received: true, Duplicate: r.Duplicate}
}
