package api

import (
	"net/http"

	"booking-engine/internal/domain/payment"
	reqdto "booking-engine/internal/handler/dto/request"
	resdto "booking-engine/internal/handler/dto/response"
	"booking-engine/internal/handler/httperr"
	"booking-engine/internal/pkg/errs"
	"booking-engine/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	cmds commands.PaymentCommands
}

func NewPaymentHandler(cmds commands.PaymentCommands) *PaymentHandler {
	return &PaymentHandler{cmds: cmds}
}

// @Summary Create payment intent
// @Description Create (or return the existing) payment intent of a held booking
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.CreatePaymentIntentRequest false "Amount override"
// @Success 200 {object} resdto.PaymentIntentResponse
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 502 {object} httperr.Response
// @Router /bookings/{id}/payment-intent [post]
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	id, customerID, ok := bookingRequestIDs(c)
	if !ok {
		return
	}
	var req reqdto.CreatePaymentIntentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
			return
		}
	}
	params := commands.CreateIntentParams{BookingID: id, CustomerID: customerID, Currency: req.Currency}
	if req.Amount != nil {
		params.Amount = *req.Amount
	}
	intent, err := h.cmds.CreateIntent(c.Request.Context(), params)
	if err != nil {
		httperr.AbortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromIntent(intent))
}

// @Summary Confirm booking
// @Description Confirm the payment intent of a pending booking
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.ConfirmBookingRequest true "Payment method"
// @Success 200 {object} resdto.StatusResponse
// @Failure 402 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /bookings/{id}/confirm [post]
func (h *PaymentHandler) Confirm(c *gin.Context) {
	id, customerID, ok := bookingRequestIDs(c)
	if !ok {
		return
	}
	var req reqdto.ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}
	b, err := h.cmds.Confirm(c.Request.Context(), commands.ConfirmParams{
		BookingID:        id,
		CustomerID:       customerID,
		PaymentMethodRef: req.PaymentMethodRef,
	})
	if err != nil {
		httperr.AbortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromBookingStatus(b))
}

// @Summary Refund booking
// @Description Refund a confirmed booking once
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.RefundBookingRequest true "Refund request"
// @Success 200 {object} resdto.RefundResponse
// @Success 202 {object} resdto.RefundResponse
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /bookings/{id}/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	id, customerID, ok := bookingRequestIDs(c)
	if !ok {
		return
	}
	var req reqdto.RefundBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}
	params := commands.RefundParams{BookingID: id, CustomerID: customerID, Reason: req.Reason}
	if req.Amount != nil {
		params.Amount = *req.Amount
	}
	refund, err := h.cmds.Refund(c.Request.Context(), params)
	switch {
	case err == nil && refund.Status == payment.RefundPending:
		c.JSON(http.StatusAccepted, resdto.FromRefund(refund))
	case err == nil:
		c.JSON(http.StatusOK, resdto.FromRefund(refund))
	case refund != nil && errs.Is(err, errs.ErrAmbiguousGatewayResult):
		// Claimed locally; the reconciler settles it with the gateway.
		_ = c.Error(err)
		c.JSON(http.StatusAccepted, resdto.FromRefund(refund))
	default:
		httperr.AbortWithDomainError(c, err)
	}
}
