package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"booking-engine/internal/domain/payment"
	"booking-engine/internal/pkg/config"
	"booking-engine/internal/pkg/errs"
	"booking-engine/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

const (
	metaBookingID      = "booking_id"
	metaCustomerID     = "customer_id"
	metaIdempotencyKey = "idempotency_key"
)

// StripeGateway adapts the Stripe PaymentIntents and Refunds APIs.
type StripeGateway struct {
	api              *client.API
	webhookSecret    string
	webhookTolerance time.Duration
	timeout          time.Duration
	clock            func() time.Time
	logger           *slog.Logger
}

type Option func(*stripe.BackendConfig)

// WithBaseURL points the client at another API host, e.g. stripe-mock.
func WithBaseURL(url string) Option {
	return func(c *stripe.BackendConfig) { c.URL = stripe.String(url) }
}

func NewStripeGateway(cfg config.StripeConfig, logger *slog.Logger, opts ...Option) *StripeGateway {
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	for _, opt := range opts {
		opt(backendCfg)
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}
	return &StripeGateway{
		api:              client.New(cfg.SecretKey, backends),
		webhookSecret:    cfg.WebhookSecret,
		webhookTolerance: cfg.WebhookTolerance,
		timeout:          cfg.Timeout,
		clock:            func() time.Time { return time.Now().UTC() },
		logger:           logger,
	}
}

func (g *StripeGateway) params(ctx context.Context, p *stripe.Params, idempotencyKey string) {
	p.Context = ctx
	if idempotencyKey != "" {
		p.IdempotencyKey = stripe.String(idempotencyKey)
	}
}

func (g *StripeGateway) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req shared.CreateIntentRequest) (*shared.GatewayIntent, error) {
	ctx, cancel := g.bounded(ctx)
	defer cancel()

	p := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	p.AddMetadata(metaBookingID, req.BookingID.String())
	p.AddMetadata(metaCustomerID, req.CustomerID.String())
	p.AddMetadata(metaIdempotencyKey, req.IdempotencyKey)
	g.params(ctx, &p.Params, req.IdempotencyKey)

	pi, err := g.api.PaymentIntents.New(p)
	if err != nil {
		return nil, g.classify("create payment intent", err)
	}
	return toGatewayIntent(pi), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, intentID string) (*shared.GatewayIntent, error) {
	ctx, cancel := g.bounded(ctx)
	defer cancel()

	p := &stripe.PaymentIntentParams{}
	g.params(ctx, &p.Params, "")
	pi, err := g.api.PaymentIntents.Get(intentID, p)
	if err != nil {
		return nil, g.classify("get payment intent", err)
	}
	return toGatewayIntent(pi), nil
}

// FindIntentByIdempotencyKey uses the search API, which lags writes by up to
// a minute. Callers treat a miss as "unknown", not as "absent".
func (g *StripeGateway) FindIntentByIdempotencyKey(ctx context.Context, key string) (*shared.GatewayIntent, error) {
	ctx, cancel := g.bounded(ctx)
	defer cancel()

	p := &stripe.PaymentIntentSearchParams{}
	p.Query = fmt.Sprintf("metadata['%s']:'%s'", metaIdempotencyKey, key)
	p.Context = ctx
	p.Limit = stripe.Int64(1)

	it := g.api.PaymentIntents.Search(p)
	if it.Next() {
		return toGatewayIntent(it.PaymentIntent()), nil
	}
	if err := it.Err(); err != nil {
		return nil, g.classify("search payment intent", err)
	}
	return nil, nil
}

func (g *StripeGateway) ConfirmIntent(ctx context.Context, intentID, paymentMethodRef string) (*shared.GatewayIntent, error) {
	ctx, cancel := g.bounded(ctx)
	defer cancel()

	p := &stripe.PaymentIntentConfirmParams{}
	if paymentMethodRef != "" {
		p.PaymentMethod = stripe.String(paymentMethodRef)
	}
	g.params(ctx, &p.Params, "")
	pi, err := g.api.PaymentIntents.Confirm(intentID, p)
	if err != nil {
		return nil, g.classify("confirm payment intent", err)
	}
	return toGatewayIntent(pi), nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, intentID string) (*shared.GatewayIntent, error) {
	ctx, cancel := g.bounded(ctx)
	defer cancel()

	p := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	g.params(ctx, &p.Params, "")
	pi, err := g.api.PaymentIntents.Cancel(intentID, p)
	if err != nil {
		return nil, g.classify("cancel payment intent", err)
	}
	return toGatewayIntent(pi), nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, req shared.RefundRequest) (*shared.GatewayRefund, error) {
	ctx, cancel := g.bounded(ctx)
	defer cancel()

	p := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.IntentID),
		Amount:        stripe.Int64(req.Amount),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	p.AddMetadata(metaBookingID, req.BookingID.String())
	if req.Reason != "" {
		p.AddMetadata("reason", req.Reason)
	}
	g.params(ctx, &p.Params, req.IdempotencyKey)

	r, err := g.api.Refunds.New(p)
	if err != nil {
		return nil, g.classify("create refund", err)
	}
	return &shared.GatewayRefund{ID: r.ID, Status: toRefundStatus(r.Status)}, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the events
// the booking engine reacts to. Other event types decode with an empty
// intent id and are recorded without effect.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if strings.TrimSpace(signature) == "" {
		return nil, errs.Markf(errs.ErrInvalidWebhook, "missing signature")
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                g.webhookTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errs.Mark(err, errs.ErrInvalidWebhook)
	}

	out := &payment.WebhookEvent{
		ID:         evt.ID,
		Type:       string(evt.Type),
		ReceivedAt: g.clock(),
	}
	switch out.Type {
	case payment.EventIntentSucceeded, payment.EventIntentFailed, payment.EventIntentCanceled:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			return nil, errs.Mark(err, errs.ErrInvalidWebhook)
		}
		out.IntentID = pi.ID
		out.Status = payment.IntentStatus(pi.Status)
		out.BookingID = bookingIDFromMetadata(pi.Metadata)
		if out.Type == payment.EventIntentFailed && out.Status == "" {
			out.Status = payment.IntentRequiresPaymentMethod
		}
	case payment.EventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(evt.Data.Raw, &ch); err != nil {
			return nil, errs.Mark(err, errs.ErrInvalidWebhook)
		}
		if ch.PaymentIntent != nil {
			out.IntentID = ch.PaymentIntent.ID
		}
		out.BookingID = bookingIDFromMetadata(ch.Metadata)
	default:
		g.logger.Debug("ignoring unhandled stripe event type", "event_id", evt.ID, "event_type", out.Type)
	}
	return out, nil
}

func bookingIDFromMetadata(md map[string]string) uuid.UUID {
	id, err := uuid.Parse(md[metaBookingID])
	if err != nil {
		return uuid.Nil
	}
	return id
}

// classify maps a Stripe failure onto the gateway error sentinels. Anything
// where the request may have been applied is ambiguous.
func (g *StripeGateway) classify(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		g.logger.Warn("stripe request failed",
			"op", op,
			"status", se.HTTPStatusCode,
			"type", string(se.Type),
			"code", string(se.Code),
			"request_id", se.RequestID)
		switch {
		case se.Type == stripe.ErrorTypeCard || se.HTTPStatusCode == http.StatusPaymentRequired:
			return errs.Mark(err, errs.ErrPaymentDeclined)
		case se.HTTPStatusCode == http.StatusTooManyRequests,
			se.Type == stripe.ErrorTypeIdempotency,
			se.HTTPStatusCode == http.StatusConflict:
			return errs.Mark(err, errs.ErrTransientGateway)
		case se.HTTPStatusCode >= http.StatusInternalServerError:
			return errs.Mark(err, errs.ErrAmbiguousGatewayResult)
		default:
			return errs.Wrap(err, op)
		}
	}

	g.logger.Warn("stripe request failed", "op", op, "error", err.Error())
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return errs.Mark(err, errs.ErrAmbiguousGatewayResult)
	}
	if errors.Is(err, context.Canceled) {
		return errs.Mark(err, errs.ErrTransientGateway)
	}
	return errs.Mark(err, errs.ErrAmbiguousGatewayResult)
}

func toGatewayIntent(pi *stripe.PaymentIntent) *shared.GatewayIntent {
	return &shared.GatewayIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       payment.IntentStatus(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
}

func toRefundStatus(s stripe.RefundStatus) payment.RefundStatus {
	switch s {
	case stripe.RefundStatusSucceeded:
		return payment.RefundSucceeded
	case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
		return payment.RefundFailed
	default:
		return payment.RefundPending
	}
}
