package repository

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"booking-engine/internal/domain/payment"
	"booking-engine/internal/infra"
	"booking-engine/internal/infra/db"
	"booking-engine/internal/infra/repository/converter"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type PaymentRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewPaymentRepository(dbtx db.DBTX, logger *slog.Logger) *PaymentRepository {
	return &PaymentRepository{db: dbtx, logger: logger}
}

func (r *PaymentRepository) FindIntentByBookingID(ctx context.Context, bookingID uuid.UUID) (*payment.Intent, error) {
	var (
		in     payment.Intent
		status string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, booking_id, amount, currency, status, idempotency_key, client_secret, created_at, updated_at
		 FROM payment_intents WHERE booking_id = $1`, bookingID,
	).Scan(&in.ID, &in.BookingID, &in.Amount, &in.Currency, &status, &in.IdempotencyKey,
		&in.ClientSecret, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to find payment intent", err)
	}
	in.Status = payment.IntentStatus(status)
	in.Currency = strings.TrimSpace(in.Currency)
	return &in, nil
}

// SaveIntent keeps one intent row per booking; a replacement intent for the
// same booking overwrites the previous one.
func (r *PaymentRepository) SaveIntent(ctx context.Context, in *payment.Intent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO payment_intents (id, booking_id, amount, currency, status, idempotency_key,
			client_secret, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (booking_id) DO UPDATE
		 SET id = EXCLUDED.id, amount = EXCLUDED.amount, currency = EXCLUDED.currency,
		     status = EXCLUDED.status, client_secret = EXCLUDED.client_secret,
		     updated_at = EXCLUDED.updated_at`,
		in.ID, in.BookingID, in.Amount, in.Currency, string(in.Status), in.IdempotencyKey,
		in.ClientSecret, in.CreatedAt, in.UpdatedAt,
	)
	if err != nil {
		return infra.PgRepoErr(r.logger, "failed to save payment intent", err)
	}
	return nil
}

func (r *PaymentRepository) UpdateIntentStatus(ctx context.Context, intentID string, status payment.IntentStatus, now time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE payment_intents SET status = $2, updated_at = $3 WHERE id = $1`,
		intentID, string(status), now)
	if err != nil {
		return infra.PgRepoErr(r.logger, "failed to update payment intent", err)
	}
	return nil
}

// ClaimRefund relies on the partial unique index over active refunds, so
// concurrent claims for one booking yield DUPLICATE_KEY for all but one.
func (r *PaymentRepository) ClaimRefund(ctx context.Context, ref *payment.Refund) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO refunds (id, booking_id, intent_id, amount, reason, status, gateway_refund_id,
			idempotency_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ref.ID, ref.BookingID, ref.IntentID, ref.Amount, ref.Reason, string(ref.Status),
		converter.TextFromPtr(ref.GatewayRefundID), ref.IdempotencyKey, ref.CreatedAt, ref.UpdatedAt,
	)
	if err != nil {
		return infra.PgRepoErr(r.logger, "failed to claim refund", err)
	}
	return nil
}

func (r *PaymentRepository) UpdateRefund(ctx context.Context, ref *payment.Refund) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE refunds SET status = $2, gateway_refund_id = $3, updated_at = $4 WHERE id = $1`,
		ref.ID, string(ref.Status), converter.TextFromPtr(ref.GatewayRefundID), ref.UpdatedAt)
	if err != nil {
		return infra.PgRepoErr(r.logger, "failed to update refund", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(r.logger, infra.KindNotFound, "refund not found", nil)
	}
	return nil
}

func (r *PaymentRepository) FindActiveRefund(ctx context.Context, bookingID uuid.UUID) (*payment.Refund, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE booking_id = $1 AND status <> 'FAILED'`, bookingID)
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to find refund", err)
	}
	ref, err := pgx.CollectExactlyOneRow(rows, scanRefund)
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to find refund", err)
	}
	return ref, nil
}

func (r *PaymentRepository) ListPendingRefunds(ctx context.Context, createdBefore time.Time, limit int) ([]*payment.Refund, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE status = 'PENDING' AND created_at <= $1
		 ORDER BY created_at LIMIT $2`, createdBefore, limit)
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to list pending refunds", err)
	}
	refs, err := pgx.CollectRows(rows, scanRefund)
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to list pending refunds", err)
	}
	return refs, nil
}

const refundColumns = `id, booking_id, intent_id, amount, reason, status, gateway_refund_id,
	idempotency_key, created_at, updated_at`

func scanRefund(row pgx.CollectableRow) (*payment.Refund, error) {
	var (
		ref       payment.Refund
		status    string
		gatewayID pgtype.Text
	)
	if err := row.Scan(&ref.ID, &ref.BookingID, &ref.IntentID, &ref.Amount, &ref.Reason, &status,
		&gatewayID, &ref.IdempotencyKey, &ref.CreatedAt, &ref.UpdatedAt); err != nil {
		return nil, err
	}
	ref.Status = payment.RefundStatus(status)
	if gatewayID.Valid {
		id := gatewayID.String
		ref.GatewayRefundID = &id
	}
	return &ref, nil
}
