//go:build unit || integration || e2e

package builder

import (
	"time"

	"booking-engine/internal/domain/catalog"

	"github.com/google/uuid"
)

// CatalogBuilder describes one practitioner offering one service on BaseDay's
// weekday: open 09:00-17:00 with a lunch break.
type CatalogBuilder struct {
	Service      catalog.Service
	Practitioner catalog.Practitioner
	Hours        catalog.BusinessHours
	Schedule     catalog.PractitionerSchedule
}

func NewCatalogBuilder() *CatalogBuilder {
	practitionerID := uuid.New()
	return &CatalogBuilder{
		Service: catalog.Service{
			ID:              uuid.New(),
			Name:            "Consultation",
			DurationMinutes: 30,
			BufferMinutes:   10,
			PriceAmount:     5000,
			Currency:        "usd",
		},
		Practitioner: catalog.Practitioner{
			ID:       practitionerID,
			Name:     "Dr. Example",
			TimeZone: "UTC",
		},
		Hours: catalog.BusinessHours{
			PractitionerID: practitionerID,
			DayOfWeek:      BaseDay.Weekday(),
			OpenTime:       catalog.MustTimeOfDay("09:00"),
			CloseTime:      catalog.MustTimeOfDay("17:00"),
		},
		Schedule: catalog.PractitionerSchedule{
			PractitionerID: practitionerID,
			DayOfWeek:      BaseDay.Weekday(),
			StartTime:      catalog.MustTimeOfDay("09:00"),
			EndTime:        catalog.MustTimeOfDay("17:00"),
			Breaks: []catalog.TimeOfDayRange{
				{Start: catalog.MustTimeOfDay("12:00"), End: catalog.MustTimeOfDay("13:00")},
			},
		},
	}
}

func (c *CatalogBuilder) With(mutate func(*CatalogBuilder)) *CatalogBuilder {
	mutate(c)
	return c
}

// Booking returns a booking builder pointing at this catalog.
func (c *CatalogBuilder) Booking() *BookingBuilder {
	return NewBookingBuilder().With(func(b *BookingBuilder) {
		b.PractitionerID = c.Practitioner.ID
		b.ServiceID = c.Service.ID
		b.DurationMinutes = c.Service.DurationMinutes
		b.BufferMinutes = c.Service.BufferMinutes
	})
}

// Weekday is the weekday the builder's hours and schedule apply to.
func (c *CatalogBuilder) Weekday() time.Weekday {
	return c.Hours.DayOfWeek
}
