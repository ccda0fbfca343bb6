package catalog

import (
	"fmt"
	"time"

	"booking-engine/internal/pkg/errs"
)

var ErrInvalidTimeOfDay = errs.New("invalid time of day")

const minutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed as minutes after local midnight.
// 1440 is allowed so a schedule can run until the end of the day.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	t := TimeOfDay(hour*60 + minute)
	if hour < 0 || minute < 0 || minute > 59 || t > minutesPerDay {
		return 0, errs.Wrapf(ErrInvalidTimeOfDay, "%02d:%02d", hour, minute)
	}
	return t, nil
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS" (seconds are ignored).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return 0, errs.Wrapf(ErrInvalidTimeOfDay, "%q", s)
		}
	}
	return NewTimeOfDay(h, m)
}

func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) Minutes() int { return int(t) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// On anchors t to the given calendar day in loc. time.Date normalises
// wall-clock gaps caused by DST transitions.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, int(t), 0, 0, loc)
}

// TimeOfDayRange is a wall-clock range within a single day, used for breaks.
type TimeOfDayRange struct {
	Start TimeOfDay
	End   TimeOfDay
}

func NewTimeOfDayRange(start, end TimeOfDay) (TimeOfDayRange, error) {
	if start >= end {
		return TimeOfDayRange{}, errs.Wrapf(ErrInvalidTimeOfDay, "range %s-%s", start, end)
	}
	return TimeOfDayRange{Start: start, End: end}, nil
}
