package commands

import (
	"context"
	"log/slog"

	"booking-engine/internal/domain/booking"
	"booking-engine/internal/domain/payment"
	"booking-engine/internal/infra"
	"booking-engine/internal/pkg/clock"
	"booking-engine/internal/pkg/config"
	"booking-engine/internal/pkg/errs"
	"booking-engine/internal/pkg/retry"
	"booking-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

type CreateIntentParams struct {
	BookingID  uuid.UUID
	CustomerID uuid.UUID
	// Amount in minor units; zero uses the service's catalog price.
	Amount   int64
	Currency string
}

type ConfirmParams struct {
	BookingID        uuid.UUID
	CustomerID       uuid.UUID
	PaymentMethodRef string
}

type RefundParams struct {
	BookingID  uuid.UUID
	CustomerID uuid.UUID
	// Amount in minor units; zero refunds the full captured amount.
	Amount int64
	Reason string
}

type WebhookResult struct {
	EventID   string
	EventType string
	Duplicate bool
	Applied   bool
}

type ReconcileReport struct {
	Confirmed int
	Failed    int
	Expired   int
	Refunded  int
	Skipped   int
	Errors    int
}

type PaymentCommands interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*payment.Intent, error)
	Confirm(ctx context.Context, params ConfirmParams) (*booking.Booking, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
	Refund(ctx context.Context, params RefundParams) (*payment.Refund, error)
	Reconcile(ctx context.Context, limit int) (*ReconcileReport, error)
}

type paymentUseCaseImpl struct {
	uow     shared.UnitOfWork
	catalog shared.CatalogReader
	gateway shared.PaymentGateway
	cfg     config.BookingConfig
	policy  retry.Policy
	clock   clock.Clock
	logger  *slog.Logger
}

func NewPaymentUseCase(
	uow shared.UnitOfWork,
	catalogReader shared.CatalogReader,
	gateway shared.PaymentGateway,
	cfg config.BookingConfig,
	policy retry.Policy,
	clk clock.Clock,
	logger *slog.Logger,
) PaymentCommands {
	return &paymentUseCaseImpl{
		uow:     uow,
		catalog: catalogReader,
		gateway: gateway,
		cfg:     cfg,
		policy:  policy,
		clock:   clk,
		logger:  logger,
	}
}

func (p *paymentUseCaseImpl) CreateIntent(ctx context.Context, params CreateIntentParams) (*payment.Intent, error) {
	reads := p.uow.CommandReads()
	b, err := reads.BookingByID(ctx, params.BookingID)
	if err != nil {
		return nil, classifyStoreErr(err, errs.ErrBookingNotFound)
	}
	if err := checkOwner(b, params.CustomerID); err != nil {
		return nil, err
	}

	existing, err := reads.IntentByBookingID(ctx, b.ID())
	switch {
	case err == nil:
		return existing, nil
	case !infra.IsKind(err, infra.KindNotFound):
		return nil, classifyStoreErr(err, nil)
	}

	now := p.clock.Now()
	switch b.Status() {
	case booking.StatusHeld:
		if b.HoldElapsed(now) {
			return nil, errs.Markf(errs.ErrHoldExpired, "booking %s hold expired", b.ID())
		}
	case booking.StatusExpired:
		return nil, errs.Markf(errs.ErrHoldExpired, "booking %s hold expired", b.ID())
	default:
		return nil, errs.Markf(errs.ErrIllegalTransition, "cannot create payment intent for booking in status %s", b.Status())
	}

	amount, currency, err := p.resolveAmount(ctx, b, params)
	if err != nil {
		return nil, err
	}

	key := payment.IntentIdempotencyKey(b.ID())
	gi, err := p.createAtGateway(ctx, shared.CreateIntentRequest{
		BookingID:      b.ID(),
		CustomerID:     b.CustomerID(),
		Amount:         amount,
		Currency:       currency,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}

	intent := &payment.Intent{
		ID:             gi.ID,
		BookingID:      b.ID(),
		Amount:         gi.Amount,
		Currency:       gi.Currency,
		Status:         gi.Status,
		IdempotencyKey: key,
		ClientSecret:   gi.ClientSecret,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := p.clock.Now()
		current, err := tx.Bookings().FindByID(ctx, b.ID())
		if err != nil {
			return err
		}
		alreadyBound := current.Status() == booking.StatusPendingPayment &&
			current.PaymentIntentID() != nil && *current.PaymentIntentID() == gi.ID
		if err := current.AwaitPayment(gi.ID, now); err != nil {
			return err
		}
		if err := tx.Payments().SaveIntent(ctx, intent); err != nil {
			return err
		}
		if alreadyBound {
			return nil
		}
		return saveTransition(ctx, tx, EventBookingPending, current, now)
	})
	if err != nil {
		err = classifyStoreErr(err, errs.ErrBookingNotFound)
		if errs.Is(err, errs.ErrHoldExpired) || errs.Is(err, errs.ErrIllegalTransition) {
			if voidErr := voidIntent(ctx, p.gateway, p.policy, p.logger, gi.ID); voidErr != nil {
				p.logger.Error("failed to void intent for unusable booking",
					slog.String("booking_id", b.ID().String()),
					slog.String("payment_intent_id", gi.ID),
					slog.String("error", voidErr.Error()))
			}
		}
		return nil, err
	}

	p.logger.Info("payment intent bound",
		slog.String("booking_id", b.ID().String()),
		slog.String("payment_intent_id", gi.ID),
		slog.Int64("amount", gi.Amount))
	return intent, nil
}

// createAtGateway never treats an ambiguous result as success or failure: it
// looks the intent up by idempotency key, then replays the create with the
// same key, which the gateway answers with the original intent.
func (p *paymentUseCaseImpl) createAtGateway(ctx context.Context, req shared.CreateIntentRequest) (*shared.GatewayIntent, error) {
	create := func(ctx context.Context) (*shared.GatewayIntent, error) {
		return p.gateway.CreateIntent(ctx, req)
	}
	gi, err := retry.DoValue(ctx, p.policy, p.logger, create)
	if err == nil || !errs.Is(err, errs.ErrAmbiguousGatewayResult) {
		return gi, err
	}

	p.logger.Warn("ambiguous intent creation, re-querying gateway",
		slog.String("booking_id", req.BookingID.String()),
		slog.String("idempotency_key", req.IdempotencyKey))

	found, findErr := retry.DoValue(ctx, p.policy, p.logger, func(ctx context.Context) (*shared.GatewayIntent, error) {
		return p.gateway.FindIntentByIdempotencyKey(ctx, req.IdempotencyKey)
	})
	if findErr == nil && found != nil {
		return found, nil
	}

	gi, err = retry.DoValue(ctx, p.policy, p.logger, create)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrAmbiguousGatewayResult)
	}
	return gi, nil
}

func (p *paymentUseCaseImpl) resolveAmount(ctx context.Context, b *booking.Booking, params CreateIntentParams) (int64, string, error) {
	if params.Amount < 0 {
		return 0, "", errs.Markf(errs.ErrValidation, "amount must not be negative")
	}
	amount, currency := params.Amount, params.Currency
	if amount == 0 || currency == "" {
		svc, err := p.catalog.ServiceByID(ctx, b.ServiceID())
		if err != nil {
			return 0, "", classifyStoreErr(err, errs.ErrServiceNotFound)
		}
		if amount == 0 {
			amount = svc.PriceAmount
		}
		if currency == "" {
			currency = svc.Currency
		}
	}
	if currency == "" {
		currency = p.cfg.DefaultCurrency
	}
	if amount <= 0 {
		return 0, "", errs.Mark(payment.ErrInvalidAmount, errs.ErrValidation)
	}
	c, err := payment.ValidateCurrency(currency)
	if err != nil {
		return 0, "", errs.Mark(err, errs.ErrValidation)
	}
	return amount, c, nil
}

func (p *paymentUseCaseImpl) Confirm(ctx context.Context, params ConfirmParams) (*booking.Booking, error) {
	b, err := p.uow.CommandReads().BookingByID(ctx, params.BookingID)
	if err != nil {
		return nil, classifyStoreErr(err, errs.ErrBookingNotFound)
	}
	if err := checkOwner(b, params.CustomerID); err != nil {
		return nil, err
	}

	switch b.Status() {
	case booking.StatusConfirmed, booking.StatusFailed:
		return b, nil
	case booking.StatusPendingPayment:
	default:
		return nil, errs.Markf(errs.ErrIllegalTransition, "cannot confirm booking in status %s", b.Status())
	}
	if params.PaymentMethodRef == "" {
		return nil, errs.Markf(errs.ErrValidation, "payment method is required")
	}
	intentID := *b.PaymentIntentID()

	gi, err := retry.DoValue(ctx, p.policy, p.logger, func(ctx context.Context) (*shared.GatewayIntent, error) {
		return p.gateway.ConfirmIntent(ctx, intentID, params.PaymentMethodRef)
	})
	switch {
	case err == nil:
	case errs.Is(err, errs.ErrPaymentDeclined):
		p.logger.Info("payment declined",
			slog.String("booking_id", b.ID().String()),
			slog.String("payment_intent_id", intentID))
		status := payment.IntentRequiresPaymentMethod
		if voidErr := voidIntent(ctx, p.gateway, p.policy, p.logger, intentID); voidErr == nil {
			status = payment.IntentCanceled
		} else if errs.Is(voidErr, errs.ErrIllegalTransition) {
			// Declined locally but captured at the gateway.
			status = payment.IntentSucceeded
		}
		gi = &shared.GatewayIntent{ID: intentID, Status: status}
		if status != payment.IntentSucceeded {
			return p.settle(ctx, b.ID(), gi, payment.OutcomeFailed)
		}
	case errs.Is(err, errs.ErrAmbiguousGatewayResult):
		p.logger.Warn("ambiguous confirmation, re-querying intent",
			slog.String("booking_id", b.ID().String()),
			slog.String("payment_intent_id", intentID))
		gi, err = retry.DoValue(ctx, p.policy, p.logger, func(ctx context.Context) (*shared.GatewayIntent, error) {
			return p.gateway.GetIntent(ctx, intentID)
		})
		if err != nil {
			return nil, errs.Mark(err, errs.ErrAmbiguousGatewayResult)
		}
	default:
		return nil, err
	}

	return p.settle(ctx, b.ID(), gi, gi.Status.Outcome())
}

func (p *paymentUseCaseImpl) Refund(ctx context.Context, params RefundParams) (*payment.Refund, error) {
	reads := p.uow.CommandReads()
	b, err := reads.BookingByID(ctx, params.BookingID)
	if err != nil {
		return nil, classifyStoreErr(err, errs.ErrBookingNotFound)
	}
	if err := checkOwner(b, params.CustomerID); err != nil {
		return nil, err
	}
	switch b.Status() {
	case booking.StatusRefunded:
		return nil, errs.Markf(errs.ErrAlreadyRefunded, "booking %s already refunded", b.ID())
	case booking.StatusConfirmed:
	default:
		return nil, errs.Markf(errs.ErrIllegalTransition, "cannot refund booking in status %s", b.Status())
	}

	intent, err := reads.IntentByBookingID(ctx, b.ID())
	if err != nil {
		return nil, classifyStoreErr(err, errs.ErrIllegalTransition)
	}
	amount := params.Amount
	if amount == 0 {
		amount = intent.Amount
	}
	if amount < 0 || amount > intent.Amount {
		return nil, errs.Markf(errs.ErrValidation, "refund amount %d outside 1..%d", amount, intent.Amount)
	}
	refund, err := payment.NewRefund(b.ID(), intent.ID, amount, params.Reason, p.clock.Now())
	if err != nil {
		return nil, errs.Mark(err, errs.ErrValidation)
	}

	err = p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		current, err := tx.Bookings().FindByID(ctx, b.ID())
		if err != nil {
			return err
		}
		if current.Status() == booking.StatusRefunded {
			return errs.Markf(errs.ErrAlreadyRefunded, "booking %s already refunded", b.ID())
		}
		if err := tx.Payments().ClaimRefund(ctx, refund); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				return errs.Mark(err, errs.ErrAlreadyRefunded)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, classifyStoreErr(err, errs.ErrBookingNotFound)
	}

	gr, err := p.refundAtGateway(ctx, refund)
	if err != nil {
		if errs.Is(err, errs.ErrAmbiguousGatewayResult) {
			p.logger.Warn("ambiguous refund left pending for reconciliation",
				slog.String("booking_id", b.ID().String()),
				slog.String("refund_id", refund.ID.String()))
			return refund, err
		}
		refund.Status = payment.RefundFailed
		refund.UpdatedAt = p.clock.Now()
		if updErr := p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			return tx.Payments().UpdateRefund(ctx, refund)
		}); updErr != nil {
			p.logger.Error("failed to release refund claim",
				slog.String("refund_id", refund.ID.String()),
				slog.String("error", updErr.Error()))
		}
		return nil, err
	}

	if err := p.finalizeRefund(ctx, refund, gr); err != nil {
		return nil, err
	}
	if refund.Status == payment.RefundFailed {
		return nil, errs.Markf(errs.ErrPaymentDeclined, "refund for booking %s rejected by gateway", b.ID())
	}
	return refund, nil
}

func (p *paymentUseCaseImpl) refundAtGateway(ctx context.Context, refund *payment.Refund) (*shared.GatewayRefund, error) {
	req := shared.RefundRequest{
		BookingID:      refund.BookingID,
		IntentID:       refund.IntentID,
		Amount:         refund.Amount,
		Reason:         refund.Reason,
		IdempotencyKey: refund.IdempotencyKey,
	}
	create := func(ctx context.Context) (*shared.GatewayRefund, error) {
		return p.gateway.CreateRefund(ctx, req)
	}
	gr, err := retry.DoValue(ctx, p.policy, p.logger, create)
	if err == nil || !errs.Is(err, errs.ErrAmbiguousGatewayResult) {
		return gr, err
	}
	// Same idempotency key: the gateway replays the first attempt's outcome.
	return retry.DoValue(ctx, p.policy, p.logger, create)
}

func (p *paymentUseCaseImpl) finalizeRefund(ctx context.Context, refund *payment.Refund, gr *shared.GatewayRefund) error {
	return retry.Do(ctx, p.policy, p.logger, func(ctx context.Context) error {
		return classifyStoreErr(p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			now := p.clock.Now()
			refund.GatewayRefundID = &gr.ID
			refund.UpdatedAt = now
			if gr.Status == payment.RefundFailed || gr.Status == payment.RefundPending {
				refund.Status = gr.Status
				return tx.Payments().UpdateRefund(ctx, refund)
			}
			refund.Status = payment.RefundSucceeded
			if err := tx.Payments().UpdateRefund(ctx, refund); err != nil {
				return err
			}
			b, err := tx.Bookings().FindByID(ctx, refund.BookingID)
			if err != nil {
				return err
			}
			if b.Status() == booking.StatusRefunded {
				return nil
			}
			if err := b.Refund(now); err != nil {
				return err
			}
			return saveTransition(ctx, tx, EventBookingRefunded, b, now)
		}), errs.ErrBookingNotFound)
	})
}
