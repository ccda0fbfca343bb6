package queries

import (
	"context"
	"time"

	"booking-engine/internal/domain/availability"
	"booking-engine/internal/domain/interval"
	"booking-engine/internal/pkg/clock"
	"booking-engine/internal/pkg/config"
	"booking-engine/internal/pkg/errs"
	"booking-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

type AvailabilityParams struct {
	PractitionerID uuid.UUID
	ServiceID      uuid.UUID
	// Date is the practitioner's local calendar day, YYYY-MM-DD.
	Date string
	// TimeZone only changes the offset slots are rendered in.
	TimeZone string
}

type AvailabilityQueries interface {
	GetAvailability(ctx context.Context, params AvailabilityParams) (*AvailabilityView, error)
}

type availabilityQueriesImpl struct {
	uow     shared.UnitOfWork
	catalog shared.CatalogReader
	filter  availability.Filter
	clock   clock.Clock
}

func NewAvailabilityQueries(uow shared.UnitOfWork, catalogReader shared.CatalogReader, cfg config.BookingConfig, clk clock.Clock) AvailabilityQueries {
	return &availabilityQueriesImpl{
		uow:     uow,
		catalog: catalogReader,
		filter:  availability.NewFilter(availability.NewGenerator(cfg.SlotGranularity), cfg.LeadTime),
		clock:   clk,
	}
}

func (q *availabilityQueriesImpl) GetAvailability(ctx context.Context, params AvailabilityParams) (*AvailabilityView, error) {
	if params.PractitionerID == uuid.Nil || params.ServiceID == uuid.Nil {
		return nil, errs.Markf(errs.ErrValidation, "practitionerId and serviceId are required")
	}
	display := time.UTC
	if params.TimeZone != "" {
		loc, err := time.LoadLocation(params.TimeZone)
		if err != nil {
			return nil, errs.Markf(errs.ErrValidation, "unknown timezone %q", params.TimeZone)
		}
		display = loc
	}

	date, err := time.Parse(DateLayout, params.Date)
	if err != nil {
		return nil, errs.Markf(errs.ErrValidation, "date must be YYYY-MM-DD")
	}
	svc, plan, err := shared.LoadDayPlan(ctx, q.catalog, params.PractitionerID, params.ServiceID, func(loc *time.Location) time.Time {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	})
	if err != nil {
		return nil, err
	}

	view := &AvailabilityView{
		PractitionerID: params.PractitionerID,
		ServiceID:      params.ServiceID,
		Date:           params.Date,
		TimeZone:       display.String(),
		Slots:          []SlotView{},
	}
	if !plan.HasSchedule() {
		view.Reason = string(availability.ReasonNoSchedule)
		return view, nil
	}

	now := q.clock.Now()
	bookings, err := q.uow.CommandReads().OverlappingBookings(ctx, params.PractitionerID, plan.Bounds())
	if err != nil {
		return nil, shared.ClassifyStoreErr(err, nil)
	}
	occupied := make([]interval.TimeInterval, 0, len(bookings))
	for _, b := range bookings {
		if b.OccupiesAt(now) {
			occupied = append(occupied, b.Occupied())
		}
	}

	res := q.filter.Available(plan, *svc, occupied, now)
	view.ScheduleFound = res.ScheduleFound
	view.Reason = string(res.Reason)
	view.Slots = newSlotViews(res.Slots, display)
	return view, nil
}
