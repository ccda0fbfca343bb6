package shared

import (
	"context"
	"time"

	"booking-engine/internal/domain/booking"
	"booking-engine/internal/domain/catalog"
	"booking-engine/internal/domain/interval"
	"booking-engine/internal/domain/payment"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: serializable transaction for booking writes, retried on
	// serialization failures and deadlocks
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// CommandReads: committed reads outside a transaction; never block writers
	CommandReads() CommandReads
}

type Tx interface {
	Bookings() BookingRepository
	Payments() PaymentRepository
	WebhookEvents() WebhookEventRepository
	Notifications() NotificationRepository
	Reads() CommandReads
}

type CommandReads interface {
	BookingByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	// OverlappingBookings returns bookings in an occupying status whose
	// buffered interval overlaps window, including holds that have elapsed
	// but were not swept yet.
	OverlappingBookings(ctx context.Context, practitionerID uuid.UUID, window interval.TimeInterval) ([]*booking.Booking, error)
	IntentByBookingID(ctx context.Context, bookingID uuid.UUID) (*payment.Intent, error)
	// BookingsByCustomer pages newest first; after excludes everything up to
	// and including that position.
	BookingsByCustomer(ctx context.Context, customerID uuid.UUID, after *PagePosition, limit int) ([]*booking.Booking, error)
}

// PagePosition is a keyset position in (created_at, id) descending order.
type PagePosition struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// CatalogReader is the read-only catalog store. Missing service or
// practitioner records are NOT_FOUND repository errors; a missing weekday
// record is a nil result.
type CatalogReader interface {
	ServiceByID(ctx context.Context, id uuid.UUID) (*catalog.Service, error)
	PractitionerByID(ctx context.Context, id uuid.UUID) (*catalog.Practitioner, error)
	DaySchedule(ctx context.Context, practitionerID uuid.UUID, day time.Weekday) (*catalog.BusinessHours, *catalog.PractitionerSchedule, error)
}

type BookingRepository interface {
	// LockPractitioner serialises writers for one practitioner until the
	// transaction ends.
	LockPractitioner(ctx context.Context, practitionerID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*booking.Booking, error)
	ListOverlapping(ctx context.Context, practitionerID uuid.UUID, window interval.TimeInterval) ([]*booking.Booking, error)
	// Create fails with a CONFLICT repository error when the exclusion
	// constraint rejects the interval.
	Create(ctx context.Context, b *booking.Booking) error
	// Update writes status fields guarded by b.Version() and advances the
	// version on success; a stale version is a STALE_VERSION error.
	Update(ctx context.Context, b *booking.Booking) error
	ListElapsedHolds(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	ListPendingPastHold(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type PaymentRepository interface {
	FindIntentByBookingID(ctx context.Context, bookingID uuid.UUID) (*payment.Intent, error)
	// SaveIntent inserts or refreshes the single intent row of a booking.
	SaveIntent(ctx context.Context, intent *payment.Intent) error
	UpdateIntentStatus(ctx context.Context, intentID string, status payment.IntentStatus, now time.Time) error
	// ClaimRefund fails with DUPLICATE_KEY when another non-failed refund
	// exists for the booking.
	ClaimRefund(ctx context.Context, refund *payment.Refund) error
	UpdateRefund(ctx context.Context, refund *payment.Refund) error
	FindActiveRefund(ctx context.Context, bookingID uuid.UUID) (*payment.Refund, error)
	ListPendingRefunds(ctx context.Context, createdBefore time.Time, limit int) ([]*payment.Refund, error)
}

type WebhookEventRepository interface {
	// Record returns false when the event id was already recorded.
	Record(ctx context.Context, evt payment.WebhookEvent) (bool, error)
}

type NotificationRepository interface {
	CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error
}
