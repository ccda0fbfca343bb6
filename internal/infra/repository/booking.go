package repository

import (
	"context"
	"log/slog"
	"time"

	"booking-engine/internal/domain/booking"
	"booking-engine/internal/domain/interval"
	"booking-engine/internal/infra"
	"booking-engine/internal/infra/db"
	"booking-engine/internal/infra/repository/converter"
	"booking-engine/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BookingRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewBookingRepository(dbtx db.DBTX, logger *slog.Logger) *BookingRepository {
	return &BookingRepository{db: dbtx, logger: logger}
}

// LockPractitioner takes a transaction-scoped advisory lock keyed by the
// practitioner id.
func (r *BookingRepository) LockPractitioner(ctx context.Context, practitionerID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, practitionerID)
	if err != nil {
		return infra.PgRepoErr(r.logger, "failed to lock practitioner", err)
	}
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return r.findOne(ctx, "failed to find booking",
		`SELECT `+converter.BookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *BookingRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (*booking.Booking, error) {
	return r.findOne(ctx, "failed to find booking by payment intent",
		`SELECT `+converter.BookingColumns+` FROM bookings WHERE payment_intent_id = $1
		 ORDER BY created_at DESC LIMIT 1`, intentID)
}

func (r *BookingRepository) findOne(ctx context.Context, msg, query string, args ...any) (*booking.Booking, error) {
	var row converter.BookingRow
	if err := r.db.QueryRow(ctx, query, args...).Scan(row.ScanTargets()...); err != nil {
		return nil, infra.PgRepoErr(r.logger, msg, err)
	}
	b, err := converter.BookingToDomain(row)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "corrupt booking row", err)
	}
	return b, nil
}

func (r *BookingRepository) ListOverlapping(ctx context.Context, practitionerID uuid.UUID, window interval.TimeInterval) ([]*booking.Booking, error) {
	statuses := make([]string, len(booking.OccupyingStatuses))
	for i, s := range booking.OccupyingStatuses {
		statuses[i] = s.String()
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+converter.BookingColumns+` FROM bookings
		 WHERE practitioner_id = $1
		   AND status = ANY($2)
		   AND occupied && tstzrange($3, $4, '[)')
		 ORDER BY slot_start`,
		practitionerID, statuses, window.Start(), window.End())
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to list overlapping bookings", err)
	}
	return r.collect(rows)
}

// ListByCustomer pages in (created_at, id) descending order.
func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, after *shared.PagePosition, limit int) ([]*booking.Booking, error) {
	var (
		afterAt *time.Time
		afterID uuid.UUID
	)
	if after != nil {
		afterAt, afterID = &after.CreatedAt, after.ID
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+converter.BookingColumns+` FROM bookings
		 WHERE customer_id = $1
		   AND ($2::timestamptz IS NULL OR (created_at, id) < ($2, $3))
		 ORDER BY created_at DESC, id DESC
		 LIMIT $4`,
		customerID, afterAt, afterID, limit)
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to list customer bookings", err)
	}
	return r.collect(rows)
}

func (r *BookingRepository) collect(rows pgx.Rows) ([]*booking.Booking, error) {
	defer rows.Close()

	var out []*booking.Booking
	for rows.Next() {
		var row converter.BookingRow
		if err := rows.Scan(row.ScanTargets()...); err != nil {
			return nil, infra.PgRepoErr(r.logger, "failed to scan booking", err)
		}
		b, err := converter.BookingToDomain(row)
		if err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "corrupt booking row", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to iterate bookings", err)
	}
	return out, nil
}

// Create inserts a new booking. The exclusion constraint reports an
// overlapping occupying booking as a CONFLICT.
func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO bookings (id, practitioner_id, service_id, customer_id, slot_start, slot_end,
			buffer_minutes, occupied_end, status, payment_intent_id, version, needs_reconciliation,
			created_at, updated_at, expires_at, cancelled_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		b.ID(), b.PractitionerID(), b.ServiceID(), b.CustomerID(),
		b.Slot().Start(), b.Slot().End(), b.BufferMinutes(), b.Occupied().End(),
		b.Status().String(), converter.TextFromPtr(b.PaymentIntentID()), b.Version(), b.NeedsReconciliation(),
		b.CreatedAt(), b.UpdatedAt(), b.ExpiresAt(), converter.TimestamptzFromPtr(b.CancelledAt()),
	)
	if err != nil {
		return infra.PgRepoErr(r.logger, "failed to create booking", err)
	}
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE bookings
		 SET status = $3, payment_intent_id = $4, needs_reconciliation = $5,
		     updated_at = $6, cancelled_at = $7, version = version + 1
		 WHERE id = $1 AND version = $2`,
		b.ID(), b.Version(), b.Status().String(), converter.TextFromPtr(b.PaymentIntentID()),
		b.NeedsReconciliation(), b.UpdatedAt(), converter.TimestamptzFromPtr(b.CancelledAt()),
	)
	if err != nil {
		return infra.PgRepoErr(r.logger, "failed to update booking", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(r.logger, infra.KindStaleVersion, "booking version changed", nil)
	}
	b.MarkPersisted()
	return nil
}

func (r *BookingRepository) ListElapsedHolds(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	return r.listIDs(ctx, "failed to list elapsed holds", booking.StatusHeld, now, limit)
}

func (r *BookingRepository) ListPendingPastHold(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	return r.listIDs(ctx, "failed to list pending payments", booking.StatusPendingPayment, now, limit)
}

func (r *BookingRepository) listIDs(ctx context.Context, msg string, status booking.Status, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM bookings WHERE status = $1 AND expires_at <= $2 ORDER BY expires_at LIMIT $3`,
		status.String(), now, limit)
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, msg, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, msg, err)
	}
	return ids, nil
}
