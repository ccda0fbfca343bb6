package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"booking-engine/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrInvalidAmount   = errs.New("amount must be positive")
	ErrInvalidCurrency = errs.New("currency must be a three letter code")
)

type IntentStatus string

// Mirrors the gateway's payment intent lifecycle.
const (
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentRequiresAction        IntentStatus = "requires_action"
	IntentProcessing            IntentStatus = "processing"
	IntentSucceeded             IntentStatus = "succeeded"
	IntentCanceled              IntentStatus = "canceled"
)

// Outcome collapses a gateway status into what the booking should do next.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

func (s IntentStatus) Outcome() Outcome {
	switch s {
	case IntentSucceeded:
		return OutcomeSucceeded
	case IntentCanceled:
		return OutcomeFailed
	default:
		return OutcomePending
	}
}

// Intent is the local mirror of a gateway payment intent, one per booking.
type Intent struct {
	ID             string
	BookingID      uuid.UUID
	Amount         int64
	Currency       string
	Status         IntentStatus
	IdempotencyKey string
	ClientSecret   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type RefundStatus string

const (
	RefundPending   RefundStatus = "PENDING"
	RefundSucceeded RefundStatus = "SUCCEEDED"
	RefundFailed    RefundStatus = "FAILED"
)

type Refund struct {
	ID              uuid.UUID
	BookingID       uuid.UUID
	IntentID        string
	Amount          int64
	Reason          string
	Status          RefundStatus
	GatewayRefundID *string
	IdempotencyKey  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewRefund(bookingID uuid.UUID, intentID string, amount int64, reason string, now time.Time) (*Refund, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &Refund{
		ID:             uuid.New(),
		BookingID:      bookingID,
		IntentID:       intentID,
		Amount:         amount,
		Reason:         strings.TrimSpace(reason),
		Status:         RefundPending,
		IdempotencyKey: RefundIdempotencyKey(bookingID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// WebhookEvent is a verified, decoded gateway notification.
type WebhookEvent struct {
	ID         string
	Type       string
	IntentID   string
	BookingID  uuid.UUID
	Status     IntentStatus
	ReceivedAt time.Time
}

const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventIntentCanceled  = "payment_intent.canceled"
	EventChargeRefunded  = "charge.refunded"
)

// IntentIdempotencyKey is derived from the booking id only, so every retry
// for the same booking reaches the same gateway intent.
func IntentIdempotencyKey(bookingID uuid.UUID) string {
	return "booking-intent-" + digest(bookingID)
}

func RefundIdempotencyKey(bookingID uuid.UUID) string {
	return "booking-refund-" + digest(bookingID)
}

func digest(bookingID uuid.UUID) string {
	sum := sha256.Sum256([]byte(bookingID.String()))
	return hex.EncodeToString(sum[:])
}

func ValidateCurrency(currency string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(currency))
	if len(c) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range c {
		if r < 'a' || r > 'z' {
			return "", ErrInvalidCurrency
		}
	}
	return c, nil
}
