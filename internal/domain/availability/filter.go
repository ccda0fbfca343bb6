package availability

import (
	"iter"
	"time"

	"booking-engine/internal/domain/catalog"
	"booking-engine/internal/domain/interval"
	"booking-engine/internal/pkg/errs"
)

type Reason string

const (
	ReasonNone       Reason = ""
	ReasonNoSchedule Reason = "NO_SCHEDULE_CONFIGURED"
	ReasonClosed     Reason = "CLOSED"
)

var (
	ErrNoSchedule      = errs.New("no schedule configured for day")
	ErrClosed          = errs.New("closed on day")
	ErrOutsideHours    = errs.New("slot outside business hours")
	ErrOutsideSchedule = errs.New("slot outside practitioner schedule")
	ErrOffGrid         = errs.New("slot not aligned to granularity")
	ErrOnBreak         = errs.New("slot overlaps a break")
	ErrOccupied        = errs.New("slot overlaps an existing booking")
	ErrTooSoon         = errs.New("slot starts before lead time")
)

type Result struct {
	// Slots are service-only intervals, buffer excluded, in start order.
	Slots         []interval.TimeInterval
	ScheduleFound bool
	Reason        Reason
}

type Filter struct {
	Generator Generator
	LeadTime  time.Duration
}

func NewFilter(gen Generator, leadTime time.Duration) Filter {
	if leadTime < 0 {
		leadTime = 0
	}
	return Filter{Generator: gen, LeadTime: leadTime}
}

// Available generates the day's candidates and filters them.
func (f Filter) Available(plan catalog.DayPlan, svc catalog.Service, existing []interval.TimeInterval, now time.Time) Result {
	window, ok := plan.WorkingInterval()
	if !ok || !plan.HasSchedule() {
		return Result{ScheduleFound: false, Reason: ReasonNoSchedule}
	}
	return f.Apply(f.Generator.Candidates(svc, window), plan, svc, existing, now)
}

// Apply keeps the candidates whose buffered interval fits the business hours,
// avoids every break and avoids every occupied interval. existing holds
// intervals that already include their own buffer. Each accepted slot is
// treated as occupied for the candidates after it, so the result is a set of
// mutually bookable slots.
func (f Filter) Apply(
	candidates iter.Seq[time.Time],
	plan catalog.DayPlan,
	svc catalog.Service,
	existing []interval.TimeInterval,
	now time.Time,
) Result {
	if !plan.HasSchedule() {
		return Result{ScheduleFound: false, Reason: ReasonNoSchedule}
	}
	if plan.Closed() {
		return Result{ScheduleFound: true, Reason: ReasonClosed, Slots: []interval.TimeInterval{}}
	}

	occupied := interval.Merge(existing)
	breaks := plan.BreakIntervals()
	earliest := now.Add(f.LeadTime)

	slots := []interval.TimeInterval{}
	for start := range candidates {
		if start.Before(earliest) {
			continue
		}
		buffered, err := interval.New(start, start.Add(svc.Footprint()))
		if err != nil {
			continue
		}
		if f.checkHours(buffered, plan) != nil {
			continue
		}
		if interval.OverlapsAny(buffered, breaks) {
			continue
		}
		if interval.OverlapsAny(buffered, occupied) {
			continue
		}
		slots = append(slots, interval.MustNew(start, start.Add(svc.Duration())))
		occupied = append(occupied, buffered)
	}
	return Result{Slots: slots, ScheduleFound: true}
}

// Admit checks a single requested start against the day plan without
// looking at bookings. The caller re-checks occupancy inside its
// transaction.
func (f Filter) Admit(start time.Time, plan catalog.DayPlan, svc catalog.Service, now time.Time) (interval.TimeInterval, error) {
	if !plan.HasSchedule() {
		return interval.TimeInterval{}, ErrNoSchedule
	}
	if plan.Closed() {
		return interval.TimeInterval{}, ErrClosed
	}
	if start.Before(now.Add(f.LeadTime)) {
		return interval.TimeInterval{}, ErrTooSoon
	}
	buffered, err := interval.New(start, start.Add(svc.Footprint()))
	if err != nil {
		return interval.TimeInterval{}, err
	}
	window, _ := plan.WorkingInterval()
	if !interval.Contains(window, buffered) {
		return interval.TimeInterval{}, ErrOutsideSchedule
	}
	if !f.Generator.OnGrid(start, window) {
		return interval.TimeInterval{}, ErrOffGrid
	}
	if err := f.checkHours(buffered, plan); err != nil {
		return interval.TimeInterval{}, err
	}
	if interval.OverlapsAny(buffered, plan.BreakIntervals()) {
		return interval.TimeInterval{}, ErrOnBreak
	}
	return buffered, nil
}

func (f Filter) checkHours(buffered interval.TimeInterval, plan catalog.DayPlan) error {
	open, ok := plan.OpenInterval()
	if !ok {
		return ErrClosed
	}
	if !interval.Contains(open, buffered) {
		return ErrOutsideHours
	}
	return nil
}
