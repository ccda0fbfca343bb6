package catalog

import (
	"time"

	"booking-engine/internal/domain/interval"
)

// DayPlan resolves the weekly catalog records for one calendar day into
// absolute intervals. Hours or Schedule are nil when the catalog has no
// record for that weekday.
type DayPlan struct {
	Day      time.Time
	Location *time.Location
	Hours    *BusinessHours
	Schedule *PractitionerSchedule
}

func NewDayPlan(day time.Time, loc *time.Location, hours *BusinessHours, schedule *PractitionerSchedule) DayPlan {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.Date()
	return DayPlan{
		Day:      time.Date(y, m, d, 0, 0, 0, 0, loc),
		Location: loc,
		Hours:    hours,
		Schedule: schedule,
	}
}

func (p DayPlan) HasSchedule() bool {
	return p.Hours != nil && p.Schedule != nil
}

func (p DayPlan) Closed() bool {
	return p.Hours != nil && p.Hours.IsClosed
}

func (p DayPlan) OpenInterval() (interval.TimeInterval, bool) {
	if p.Hours == nil || p.Hours.IsClosed {
		return interval.TimeInterval{}, false
	}
	return p.span(p.Hours.OpenTime, p.Hours.CloseTime)
}

func (p DayPlan) WorkingInterval() (interval.TimeInterval, bool) {
	if p.Schedule == nil {
		return interval.TimeInterval{}, false
	}
	return p.span(p.Schedule.StartTime, p.Schedule.EndTime)
}

func (p DayPlan) BreakIntervals() []interval.TimeInterval {
	if p.Schedule == nil {
		return nil
	}
	out := make([]interval.TimeInterval, 0, len(p.Schedule.Breaks))
	for _, b := range p.Schedule.Breaks {
		if iv, ok := p.span(b.Start, b.End); ok {
			out = append(out, iv)
		}
	}
	return out
}

// Bounds is the absolute UTC window covering the whole calendar day, used to
// load existing bookings.
func (p DayPlan) Bounds() interval.TimeInterval {
	start := p.Day
	end := time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, p.Location)
	return interval.MustNew(start.UTC(), end.UTC())
}

func (p DayPlan) span(from, to TimeOfDay) (interval.TimeInterval, bool) {
	iv, err := interval.New(from.On(p.Day, p.Location).UTC(), to.On(p.Day, p.Location).UTC())
	if err != nil {
		return interval.TimeInterval{}, false
	}
	return iv, true
}
