package shared

import (
	"context"
	"time"

	"booking-engine/internal/domain/catalog"
	"booking-engine/internal/pkg/errs"

	"github.com/google/uuid"
)

// LoadDayPlan resolves the service and the practitioner's plan for the local
// calendar day chosen by day, which receives the practitioner's location.
func LoadDayPlan(
	ctx context.Context,
	reader CatalogReader,
	practitionerID, serviceID uuid.UUID,
	day func(loc *time.Location) time.Time,
) (*catalog.Service, catalog.DayPlan, error) {
	svc, err := reader.ServiceByID(ctx, serviceID)
	if err != nil {
		return nil, catalog.DayPlan{}, ClassifyStoreErr(err, errs.ErrServiceNotFound)
	}
	if err := svc.Validate(); err != nil {
		return nil, catalog.DayPlan{}, errs.Mark(err, errs.ErrServiceNotFound)
	}
	practitioner, err := reader.PractitionerByID(ctx, practitionerID)
	if err != nil {
		return nil, catalog.DayPlan{}, ClassifyStoreErr(err, errs.ErrScheduleNotFound)
	}
	loc, err := practitioner.Location()
	if err != nil {
		return nil, catalog.DayPlan{}, errs.Mark(err, errs.ErrScheduleNotFound)
	}
	local := day(loc)
	hours, schedule, err := reader.DaySchedule(ctx, practitionerID, local.Weekday())
	if err != nil {
		return nil, catalog.DayPlan{}, ClassifyStoreErr(err, errs.ErrScheduleNotFound)
	}
	return svc, catalog.NewDayPlan(local, loc, hours, schedule), nil
}
