//go:build integration || e2e

package dbtest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ResetDB empties every table; the catalog is reseeded per test.
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := pool.Exec(ctx, `TRUNCATE notification_jobs, processed_webhook_events, refunds, payment_intents,
		bookings, schedule_breaks, practitioner_schedules, business_hours, practitioners, services
		RESTART IDENTITY CASCADE`)
	return err
}
