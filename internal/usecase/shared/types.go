package shared

import (
	"context"
	"time"

	"booking-engine/internal/domain/payment"

	"github.com/google/uuid"
)

type CreateIntentRequest struct {
	BookingID      uuid.UUID
	CustomerID     uuid.UUID
	Amount         int64
	Currency       string
	IdempotencyKey string
}

type RefundRequest struct {
	BookingID      uuid.UUID
	IntentID       string
	Amount         int64
	Reason         string
	IdempotencyKey string
}

type GatewayIntent struct {
	ID           string
	ClientSecret string
	Status       payment.IntentStatus
	Amount       int64
	Currency     string
}

type GatewayRefund struct {
	ID     string
	Status payment.RefundStatus
}

// PaymentGateway errors are marked with errs.ErrPaymentDeclined,
// errs.ErrTransientGateway or errs.ErrAmbiguousGatewayResult. Gateway text
// must not reach API responses.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*GatewayIntent, error)
	GetIntent(ctx context.Context, intentID string) (*GatewayIntent, error)
	// FindIntentByIdempotencyKey returns nil, nil when the gateway has no
	// intent for the key.
	FindIntentByIdempotencyKey(ctx context.Context, key string) (*GatewayIntent, error)
	ConfirmIntent(ctx context.Context, intentID, paymentMethodRef string) (*GatewayIntent, error)
	CancelIntent(ctx context.Context, intentID string) (*GatewayIntent, error)
	CreateRefund(ctx context.Context, req RefundRequest) (*GatewayRefund, error)
	ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error)
}

type HoldExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, bookingID uuid.UUID, at time.Time) error
}
