//go:build integration || e2e

package dbtest

import (
	"context"
	"testing"

	"booking-engine/internal/domain/booking"
	"booking-engine/tests/common/builder"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

// DBLike is the minimal interface required for test DB operations.
type DBLike interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SeedCatalog inserts the service, practitioner, business hours and
// schedule described by fixture.
func SeedCatalog(t *testing.T, db DBLike, fixture *builder.CatalogBuilder) {
	t.Helper()
	ctx := context.Background()

	svc := fixture.Service
	_, err := db.Exec(ctx,
		`INSERT INTO services (id, name, duration_minutes, buffer_minutes, price_amount, currency)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		svc.ID, svc.Name, svc.DurationMinutes, svc.BufferMinutes, svc.PriceAmount, svc.Currency)
	require.NoError(t, err, "failed to insert service")

	p := fixture.Practitioner
	_, err = db.Exec(ctx, `INSERT INTO practitioners (id, name, time_zone) VALUES ($1, $2, $3)`,
		p.ID, p.Name, p.TimeZone)
	require.NoError(t, err, "failed to insert practitioner")

	h := fixture.Hours
	_, err = db.Exec(ctx,
		`INSERT INTO business_hours (practitioner_id, day_of_week, open_time, close_time, is_closed)
		 VALUES ($1, $2, $3::time, $4::time, $5)`,
		h.PractitionerID, int16(h.DayOfWeek), h.OpenTime.String(), h.CloseTime.String(), h.IsClosed)
	require.NoError(t, err, "failed to insert business hours")

	s := fixture.Schedule
	_, err = db.Exec(ctx,
		`INSERT INTO practitioner_schedules (practitioner_id, day_of_week, start_time, end_time)
		 VALUES ($1, $2, $3::time, $4::time)`,
		s.PractitionerID, int16(s.DayOfWeek), s.StartTime.String(), s.EndTime.String())
	require.NoError(t, err, "failed to insert schedule")

	for _, br := range s.Breaks {
		_, err = db.Exec(ctx,
			`INSERT INTO schedule_breaks (practitioner_id, day_of_week, start_time, end_time)
			 VALUES ($1, $2, $3::time, $4::time)`,
			s.PractitionerID, int16(s.DayOfWeek), br.Start.String(), br.End.String())
		require.NoError(t, err, "failed to insert break")
	}
}

// InsertBooking writes b directly, bypassing the overlap checks of the
// reservation flow but not the exclusion constraint.
func InsertBooking(t *testing.T, db DBLike, b *booking.Booking) error {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`INSERT INTO bookings (id, practitioner_id, service_id, customer_id, slot_start, slot_end,
			buffer_minutes, occupied_end, status, payment_intent_id, version, needs_reconciliation,
			created_at, updated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		b.ID(), b.PractitionerID(), b.ServiceID(), b.CustomerID(), b.Slot().Start(), b.Slot().End(),
		b.BufferMinutes(), b.Occupied().End(), b.Status().String(), b.PaymentIntentID(), b.Version(),
		b.NeedsReconciliation(), b.CreatedAt(), b.UpdatedAt(), b.ExpiresAt())
	return err
}

// BookingStatus reads the stored status of one booking.
func BookingStatus(t *testing.T, db DBLike, id any) string {
	t.Helper()
	var status string
	require.NoError(t, db.QueryRow(context.Background(), `SELECT status FROM bookings WHERE id = $1`, id).Scan(&status))
	return status
}
