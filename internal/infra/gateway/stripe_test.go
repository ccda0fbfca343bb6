//go:build unit

package gateway_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"booking-engine/internal/domain/payment"
	"booking-engine/internal/infra/gateway"
	"booking-engine/internal/pkg/config"
	"booking-engine/internal/pkg/errs"
	"booking-engine/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
)

func newGateway(t *testing.T, handler http.HandlerFunc) *gateway.StripeGateway {
	t.Helper()
	cfg := config.NewTestConfig().Stripe
	cfg.Timeout = 200 * time.Millisecond
	opts := []gateway.Option{}
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		opts = append(opts, gateway.WithBaseURL(srv.URL))
	}
	return gateway.NewStripeGateway(cfg, slog.New(slog.DiscardHandler), opts...)
}

func stripeError(w http.ResponseWriter, status int, typ, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"type":%q,"code":%q,"message":"test failure"}}`, typ, code)
}

func TestStripeGateway_CreateIntent(t *testing.T) {
	req := shared.CreateIntentRequest{
		BookingID:      uuid.New(),
		CustomerID:     uuid.New(),
		Amount:         5000,
		Currency:       "usd",
		IdempotencyKey: "intent-key-1",
	}

	t.Run("created", func(t *testing.T) {
		g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/payment_intents", r.URL.Path)
			assert.Equal(t, "intent-key-1", r.Header.Get("Idempotency-Key"))
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "5000", r.PostForm.Get("amount"))
			assert.Equal(t, req.BookingID.String(), r.PostForm.Get("metadata[booking_id]"))
			assert.Equal(t, "intent-key-1", r.PostForm.Get("metadata[idempotency_key]"))

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"pi_1","object":"payment_intent","amount":5000,"currency":"usd",
				"status":"requires_payment_method","client_secret":"pi_1_secret_x"}`)
		})

		got, err := g.CreateIntent(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, &shared.GatewayIntent{
			ID:           "pi_1",
			ClientSecret: "pi_1_secret_x",
			Status:       payment.IntentRequiresPaymentMethod,
			Amount:       5000,
			Currency:     "usd",
		}, got)
	})

	failures := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name:    "card declined",
			handler: func(w http.ResponseWriter, _ *http.Request) { stripeError(w, 402, "card_error", "card_declined") },
			want:    errs.ErrPaymentDeclined,
		},
		{
			name:    "rate limited",
			handler: func(w http.ResponseWriter, _ *http.Request) { stripeError(w, 429, "invalid_request_error", "rate_limit") },
			want:    errs.ErrTransientGateway,
		},
		{
			name:    "idempotency conflict",
			handler: func(w http.ResponseWriter, _ *http.Request) { stripeError(w, 409, "idempotency_error", "") },
			want:    errs.ErrTransientGateway,
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) { stripeError(w, 500, "api_error", "") },
			want:    errs.ErrAmbiguousGatewayResult,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			want: errs.ErrAmbiguousGatewayResult,
		},
	}

	for _, tc := range failures {
		t.Run(tc.name, func(t *testing.T) {
			g := newGateway(t, tc.handler)

			got, err := g.CreateIntent(context.Background(), req)

			assert.Nil(t, got)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestStripeGateway_CreateRefund(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   payment.RefundStatus
	}{
		{name: "succeeded", status: "succeeded", want: payment.RefundSucceeded},
		{name: "pending", status: "pending", want: payment.RefundPending},
		{name: "failed", status: "failed", want: payment.RefundFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/refunds", r.URL.Path)
				assert.Equal(t, "refund-key", r.Header.Get("Idempotency-Key"))
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprintf(w, `{"id":"re_1","object":"refund","status":%q}`, tc.status)
			})

			got, err := g.CreateRefund(context.Background(), shared.RefundRequest{
				BookingID:      uuid.New(),
				IntentID:       "pi_1",
				Amount:         5000,
				IdempotencyKey: "refund-key",
			})

			require.NoError(t, err)
			assert.Equal(t, &shared.GatewayRefund{ID: "re_1", Status: tc.want}, got)
		})
	}
}

func signed(t *testing.T, payload string, secret string) (body []byte, header string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  secret,
	})
	return sp.Payload, sp.Header
}

func TestStripeGateway_ParseWebhook(t *testing.T) {
	g := newGateway(t, nil)
	secret := config.NewTestConfig().Stripe.WebhookSecret
	bookingID := uuid.New()

	t.Run("payment succeeded", func(t *testing.T) {
		body, header := signed(t, fmt.Sprintf(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded",
			"data":{"object":{"id":"pi_1","object":"payment_intent","status":"succeeded",
			"metadata":{"booking_id":%q}}}}`, bookingID), secret)

		evt, err := g.ParseWebhook(body, header)

		require.NoError(t, err)
		assert.Equal(t, "evt_1", evt.ID)
		assert.Equal(t, payment.EventIntentSucceeded, evt.Type)
		assert.Equal(t, "pi_1", evt.IntentID)
		assert.Equal(t, payment.IntentSucceeded, evt.Status)
		assert.Equal(t, bookingID, evt.BookingID)
		assert.False(t, evt.ReceivedAt.IsZero())
	})

	t.Run("payment failed defaults status", func(t *testing.T) {
		body, header := signed(t, `{"id":"evt_2","object":"event","type":"payment_intent.payment_failed",
			"data":{"object":{"id":"pi_2","object":"payment_intent"}}}`, secret)

		evt, err := g.ParseWebhook(body, header)

		require.NoError(t, err)
		assert.Equal(t, payment.IntentRequiresPaymentMethod, evt.Status)
		assert.Equal(t, uuid.Nil, evt.BookingID)
	})

	t.Run("charge refunded", func(t *testing.T) {
		body, header := signed(t, fmt.Sprintf(`{"id":"evt_3","object":"event","type":"charge.refunded",
			"data":{"object":{"id":"ch_1","object":"charge","payment_intent":"pi_3",
			"metadata":{"booking_id":%q}}}}`, bookingID), secret)

		evt, err := g.ParseWebhook(body, header)

		require.NoError(t, err)
		assert.Equal(t, "pi_3", evt.IntentID)
		assert.Equal(t, bookingID, evt.BookingID)
	})

	t.Run("unhandled type decodes without intent", func(t *testing.T) {
		body, header := signed(t, `{"id":"evt_4","object":"event","type":"customer.created",
			"data":{"object":{"id":"cus_1","object":"customer"}}}`, secret)

		evt, err := g.ParseWebhook(body, header)

		require.NoError(t, err)
		assert.Empty(t, evt.IntentID)
	})

	rejections := []struct {
		name string
		body func() ([]byte, string)
	}{
		{name: "missing signature", body: func() ([]byte, string) { return []byte(`{}`), "" }},
		{name: "wrong secret", body: func() ([]byte, string) {
			return signed(t, `{"id":"evt_5","object":"event","type":"payment_intent.succeeded"}`, "whsec_other")
		}},
		{name: "tampered payload", body: func() ([]byte, string) {
			_, header := signed(t, `{"id":"evt_6","object":"event","type":"payment_intent.succeeded"}`, secret)
			return []byte(`{"id":"evt_7","object":"event","type":"payment_intent.succeeded"}`), header
		}},
		{name: "stale timestamp", body: func() ([]byte, string) {
			sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
				Payload:   []byte(`{"id":"evt_8","object":"event","type":"payment_intent.succeeded"}`),
				Secret:    secret,
				Timestamp: time.Now().Add(-time.Hour),
			})
			return sp.Payload, sp.Header
		}},
	}

	for _, tc := range rejections {
		t.Run(tc.name, func(t *testing.T) {
			body, header := tc.body()

			evt, err := g.ParseWebhook(body, header)

			assert.Nil(t, evt)
			assert.ErrorIs(t, err, errs.ErrInvalidWebhook)
		})
	}
}
