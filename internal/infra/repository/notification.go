package repository

import (
	"context"
	"log/slog"
	"time"

	"booking-engine/internal/infra"
	"booking-engine/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	JobStatusQueued = "queued"
	JobStatusSent   = "sent"
	JobStatusFailed = "failed"
)

// NotificationJob is one outbox row waiting to be published.
type NotificationJob struct {
	ID       uuid.UUID
	Kind     string
	Topic    string
	Payload  []byte
	Attempts int
	RunAt    time.Time
}

type NotificationRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewNotificationRepository(dbtx db.DBTX, logger *slog.Logger) *NotificationRepository {
	return &NotificationRepository{db: dbtx, logger: logger}
}

func (r *NotificationRepository) CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO notification_jobs (kind, topic, payload, status, run_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		kind, topic, payload, JobStatusQueued, runAt)
	if err != nil {
		return infra.PgRepoErr(r.logger, "failed to create notification job", err)
	}
	return nil
}

// ClaimDue locks up to limit due jobs; concurrent publishers skip rows that
// are already locked. Must run inside a transaction.
func (r *NotificationRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]NotificationJob, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, kind, topic, payload, attempts, run_at FROM notification_jobs
		 WHERE status = $1 AND run_at <= $2
		 ORDER BY run_at
		 LIMIT $3
		 FOR UPDATE SKIP LOCKED`,
		JobStatusQueued, now, limit)
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to claim notification jobs", err)
	}
	jobs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (NotificationJob, error) {
		var j NotificationJob
		var attempts int32
		err := row.Scan(&j.ID, &j.Kind, &j.Topic, &j.Payload, &attempts, &j.RunAt)
		j.Attempts = int(attempts)
		return j, err
	})
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to scan notification jobs", err)
	}
	return jobs, nil
}

func (r *NotificationRepository) MarkSent(ctx context.Context, ids []uuid.UUID, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		`UPDATE notification_jobs SET status = $2, published_at = $3, attempts = attempts + 1, last_error = NULL
		 WHERE id = ANY($1)`,
		ids, JobStatusSent, now)
	if err != nil {
		return infra.PgRepoErr(r.logger, "failed to mark notification jobs sent", err)
	}
	return nil
}

// MarkRetry pushes the jobs back by delay, or fails them for good once
// maxAttempts is reached.
func (r *NotificationRepository) MarkRetry(ctx context.Context, ids []uuid.UUID, lastError string, retryAt time.Time, maxAttempts int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		`UPDATE notification_jobs
		 SET attempts = attempts + 1,
		     last_error = $2,
		     run_at = $3,
		     status = CASE WHEN attempts + 1 >= $4 THEN $5 ELSE status END
		 WHERE id = ANY($1)`,
		ids, lastError, retryAt, maxAttempts, JobStatusFailed)
	if err != nil {
		return infra.PgRepoErr(r.logger, "failed to reschedule notification jobs", err)
	}
	return nil
}
