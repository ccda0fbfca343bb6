package repository

import (
	"context"
	"log/slog"

	"booking-engine/internal/domain/payment"
	"booking-engine/internal/infra"
	"booking-engine/internal/infra/db"

	"github.com/google/uuid"
)

// WebhookEventRepository is the ledger of processed gateway events.
type WebhookEventRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewWebhookEventRepository(dbtx db.DBTX, logger *slog.Logger) *WebhookEventRepository {
	return &WebhookEventRepository{db: dbtx, logger: logger}
}

func (r *WebhookEventRepository) Record(ctx context.Context, evt payment.WebhookEvent) (bool, error) {
	var bookingID *uuid.UUID
	if evt.BookingID != uuid.Nil {
		bookingID = &evt.BookingID
	}
	var intentID *string
	if evt.IntentID != "" {
		intentID = &evt.IntentID
	}
	tag, err := r.db.Exec(ctx,
		`INSERT INTO processed_webhook_events (event_id, event_type, intent_id, booking_id, received_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (event_id) DO NOTHING`,
		evt.ID, evt.Type, intentID, bookingID, evt.ReceivedAt)
	if err != nil {
		return false, infra.PgRepoErr(r.logger, "failed to record webhook event", err)
	}
	return tag.RowsAffected() == 1, nil
}
