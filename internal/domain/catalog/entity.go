package catalog

import (
	"time"

	"booking-engine/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrInvalidService  = errs.New("invalid service definition")
	ErrInvalidTimeZone = errs.New("invalid practitioner time zone")
)

type Service struct {
	ID              uuid.UUID
	Name            string
	DurationMinutes int
	BufferMinutes   int
	PriceAmount     int64
	Currency        string
}

func (s Service) Validate() error {
	if s.DurationMinutes <= 0 || s.BufferMinutes < 0 {
		return ErrInvalidService
	}
	return nil
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

func (s Service) Buffer() time.Duration {
	return time.Duration(s.BufferMinutes) * time.Minute
}

// Footprint is how long one booking of the service blocks the practitioner.
func (s Service) Footprint() time.Duration {
	return s.Duration() + s.Buffer()
}

type Practitioner struct {
	ID       uuid.UUID
	Name     string
	TimeZone string
}

func (p Practitioner) Location() (*time.Location, error) {
	if p.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidTimeZone)
	}
	return loc, nil
}

// BusinessHours is one weekday of the opening hours that apply to a
// practitioner.
type BusinessHours struct {
	PractitionerID uuid.UUID
	DayOfWeek      time.Weekday
	OpenTime       TimeOfDay
	CloseTime      TimeOfDay
	IsClosed       bool
}

// PractitionerSchedule is one weekday of a practitioner's working pattern.
// Breaks are expected to be disjoint and inside the working window, but the
// availability code does not rely on it.
type PractitionerSchedule struct {
	PractitionerID uuid.UUID
	DayOfWeek      time.Weekday
	StartTime      TimeOfDay
	EndTime        TimeOfDay
	Breaks         []TimeOfDayRange
}
