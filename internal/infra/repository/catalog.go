package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"booking-engine/internal/domain/catalog"
	"booking-engine/internal/infra"
	"booking-engine/internal/infra/db"
	"booking-engine/internal/infra/repository/converter"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// CatalogRepository reads services, practitioners and weekly schedules.
// Catalog rows are managed outside this service.
type CatalogRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewCatalogRepository(dbtx db.DBTX, logger *slog.Logger) *CatalogRepository {
	return &CatalogRepository{db: dbtx, logger: logger}
}

func (r *CatalogRepository) ServiceByID(ctx context.Context, id uuid.UUID) (*catalog.Service, error) {
	var (
		svc      catalog.Service
		duration int32
		buffer   int32
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, name, duration_minutes, buffer_minutes, price_amount, currency
		 FROM services WHERE id = $1`, id,
	).Scan(&svc.ID, &svc.Name, &duration, &buffer, &svc.PriceAmount, &svc.Currency)
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to find service", err)
	}
	svc.DurationMinutes = int(duration)
	svc.BufferMinutes = int(buffer)
	svc.Currency = strings.TrimSpace(svc.Currency)
	return &svc, nil
}

func (r *CatalogRepository) PractitionerByID(ctx context.Context, id uuid.UUID) (*catalog.Practitioner, error) {
	var p catalog.Practitioner
	err := r.db.QueryRow(ctx,
		`SELECT id, name, time_zone FROM practitioners WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.TimeZone)
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to find practitioner", err)
	}
	return &p, nil
}

// DaySchedule returns nil for whichever of business hours and practitioner
// schedule has no row for day.
func (r *CatalogRepository) DaySchedule(ctx context.Context, practitionerID uuid.UUID, day time.Weekday) (*catalog.BusinessHours, *catalog.PractitionerSchedule, error) {
	hours, err := r.businessHours(ctx, practitionerID, day)
	if err != nil {
		return nil, nil, err
	}
	sched, err := r.practitionerSchedule(ctx, practitionerID, day)
	if err != nil {
		return nil, nil, err
	}
	return hours, sched, nil
}

func (r *CatalogRepository) businessHours(ctx context.Context, practitionerID uuid.UUID, day time.Weekday) (*catalog.BusinessHours, error) {
	var (
		open, closeAt pgtype.Time
		isClosed      bool
	)
	err := r.db.QueryRow(ctx,
		`SELECT open_time, close_time, is_closed FROM business_hours
		 WHERE practitioner_id = $1 AND day_of_week = $2`, practitionerID, int16(day),
	).Scan(&open, &closeAt, &isClosed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to load business hours", err)
	}
	openTOD, err := converter.TimeOfDayFromPg(open)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "corrupt business hours", err)
	}
	closeTOD, err := converter.TimeOfDayFromPg(closeAt)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "corrupt business hours", err)
	}
	return &catalog.BusinessHours{
		PractitionerID: practitionerID,
		DayOfWeek:      day,
		OpenTime:       openTOD,
		CloseTime:      closeTOD,
		IsClosed:       isClosed,
	}, nil
}

func (r *CatalogRepository) practitionerSchedule(ctx context.Context, practitionerID uuid.UUID, day time.Weekday) (*catalog.PractitionerSchedule, error) {
	var start, end pgtype.Time
	err := r.db.QueryRow(ctx,
		`SELECT start_time, end_time FROM practitioner_schedules
		 WHERE practitioner_id = $1 AND day_of_week = $2`, practitionerID, int16(day),
	).Scan(&start, &end)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to load practitioner schedule", err)
	}

	sched := &catalog.PractitionerSchedule{PractitionerID: practitionerID, DayOfWeek: day}
	if sched.StartTime, err = converter.TimeOfDayFromPg(start); err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "corrupt practitioner schedule", err)
	}
	if sched.EndTime, err = converter.TimeOfDayFromPg(end); err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "corrupt practitioner schedule", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT start_time, end_time FROM schedule_breaks
		 WHERE practitioner_id = $1 AND day_of_week = $2 ORDER BY start_time`, practitionerID, int16(day))
	if err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to load schedule breaks", err)
	}
	defer rows.Close()
	for rows.Next() {
		var bs, be pgtype.Time
		if err := rows.Scan(&bs, &be); err != nil {
			return nil, infra.PgRepoErr(r.logger, "failed to scan schedule break", err)
		}
		from, err1 := converter.TimeOfDayFromPg(bs)
		to, err2 := converter.TimeOfDayFromPg(be)
		if err := errors.Join(err1, err2); err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "corrupt schedule break", err)
		}
		br, err := catalog.NewTimeOfDayRange(from, to)
		if err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "corrupt schedule break", err)
		}
		sched.Breaks = append(sched.Breaks, br)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.PgRepoErr(r.logger, "failed to iterate schedule breaks", err)
	}
	return sched, nil
}
