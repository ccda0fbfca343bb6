package httperr

import (
	"errors"
	"net/http"

	"booking-engine/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	// Reason repeats Error.Code for clients that only read the top level.
	Reason string `json:"reason,omitempty"`
	Detail any    `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	abort(c, status, err, codeForStatus(status), msg, detail)
}

// AbortWithDomainError derives status, code and message from the sentinel
// err is marked with. The message never includes err's own text.
func AbortWithDomainError(c *gin.Context, err error) {
	status, code, msg := Classify(err)
	abort(c, status, err, code, msg, nil)
}

func abort(c *gin.Context, status int, err error, code, msg string, detail any) {
	if err == nil {
		err = errors.New(msg)
	}

	resp := Response{Status: status, Reason: code, Detail: detail}
	resp.Error.Code = code
	resp.Error.Message = msg

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}

// Classify maps a usecase error to an HTTP status, a reason code and a safe
// message.
func Classify(err error) (int, string, string) {
	code := errs.Reason(err)
	switch code {
	case "VALIDATION_ERROR":
		return http.StatusBadRequest, code, "Invalid request"
	case "SERVICE_NOT_FOUND":
		return http.StatusNotFound, code, "Service not found"
	case "BOOKING_NOT_FOUND":
		return http.StatusNotFound, code, "Booking not found"
	case "SCHEDULE_NOT_FOUND":
		return http.StatusUnprocessableEntity, code, "Practitioner has no schedule for that day"
	case "SLOT_NO_LONGER_AVAILABLE":
		return http.StatusConflict, code, "Slot is no longer available"
	case "HOLD_EXPIRED":
		return http.StatusConflict, code, "Hold has expired"
	case "ILLEGAL_TRANSITION":
		return http.StatusConflict, code, "Booking is not in a state that allows this action"
	case "STALE_BOOKING_VERSION":
		return http.StatusConflict, code, "Booking was modified concurrently"
	case "ALREADY_REFUNDED":
		return http.StatusConflict, code, "Booking already has a refund"
	case "PAYMENT_DECLINED":
		return http.StatusPaymentRequired, code, "Payment was declined"
	case "INVALID_WEBHOOK":
		return http.StatusBadRequest, code, "Invalid webhook"
	case "AMBIGUOUS_GATEWAY_RESULT":
		return http.StatusBadGateway, code, "Payment provider outcome unknown, retry later"
	case "TRANSIENT_GATEWAY_ERROR":
		return http.StatusServiceUnavailable, code, "Payment provider unavailable, retry later"
	case "TRANSIENT_STORE_ERROR":
		return http.StatusServiceUnavailable, code, "Temporarily unavailable, retry later"
	default:
		return http.StatusInternalServerError, code, "Internal server error"
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return "UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}
