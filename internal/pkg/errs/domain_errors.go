package errs

import "errors"

// Sentinel errors shared by the usecase and handler layers. Handlers map them
// to status codes and machine-readable reason codes.
var (
	// Input errors
	ErrValidation      = errors.New("validation error")
	ErrServiceNotFound = errors.New("service not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrForbidden       = errors.New("forbidden")

	// Availability errors
	ErrScheduleNotFound      = errors.New("schedule not found")
	ErrSlotNoLongerAvailable = errors.New("slot no longer available")
	ErrHoldExpired           = errors.New("hold expired")

	// State machine errors
	ErrIllegalTransition   = errors.New("illegal booking transition")
	ErrStaleBookingVersion = errors.New("stale booking version")

	// Payment errors
	ErrPaymentDeclined        = errors.New("payment declined")
	ErrAlreadyRefunded        = errors.New("already refunded")
	ErrAmbiguousGatewayResult = errors.New("ambiguous gateway result")
	ErrInvalidWebhook         = errors.New("invalid webhook")

	// Infrastructure errors, retryable by the caller
	ErrTransientStore   = errors.New("transient store error")
	ErrTransientGateway = errors.New("transient gateway error")
)

// Reason returns the machine-readable code for the first sentinel err is marked with.
func Reason(err error) string {
	switch {
	case Is(err, ErrSlotNoLongerAvailable):
		return "SLOT_NO_LONGER_AVAILABLE"
	case Is(err, ErrScheduleNotFound):
		return "SCHEDULE_NOT_FOUND"
	case Is(err, ErrHoldExpired):
		return "HOLD_EXPIRED"
	case Is(err, ErrServiceNotFound):
		return "SERVICE_NOT_FOUND"
	case Is(err, ErrBookingNotFound), Is(err, ErrForbidden):
		return "BOOKING_NOT_FOUND"
	case Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case Is(err, ErrIllegalTransition):
		return "ILLEGAL_TRANSITION"
	case Is(err, ErrStaleBookingVersion):
		return "STALE_BOOKING_VERSION"
	case Is(err, ErrPaymentDeclined):
		return "PAYMENT_DECLINED"
	case Is(err, ErrAlreadyRefunded):
		return "ALREADY_REFUNDED"
	case Is(err, ErrAmbiguousGatewayResult):
		return "AMBIGUOUS_GATEWAY_RESULT"
	case Is(err, ErrInvalidWebhook):
		return "INVALID_WEBHOOK"
	case Is(err, ErrTransientGateway):
		return "TRANSIENT_GATEWAY_ERROR"
	case Is(err, ErrTransientStore):
		return "TRANSIENT_STORE_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// IsTransient reports whether err may succeed when retried unchanged.
func IsTransient(err error) bool {
	return Is(err, ErrTransientStore) || Is(err, ErrTransientGateway)
}
