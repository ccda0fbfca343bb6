//go:build unit

package availability_test

import (
	"slices"
	"testing"
	"time"

	"booking-engine/internal/domain/availability"
	"booking-engine/internal/domain/catalog"
	"booking-engine/internal/domain/interval"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	monday    = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	longAgo   = monday.Add(-24 * time.Hour)
	massage   = catalog.Service{DurationMinutes: 60, BufferMinutes: 15}
	quickTrim = catalog.Service{DurationMinutes: 30}
)

func at(h, m int) time.Time {
	return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func slot(h1, m1, h2, m2 int) interval.TimeInterval {
	return interval.MustNew(at(h1, m1), at(h2, m2))
}

func plan(open, close string, breaks ...catalog.TimeOfDayRange) catalog.DayPlan {
	return catalog.NewDayPlan(monday, time.UTC,
		&catalog.BusinessHours{
			DayOfWeek: time.Monday,
			OpenTime:  catalog.MustTimeOfDay(open),
			CloseTime: catalog.MustTimeOfDay(close),
		},
		&catalog.PractitionerSchedule{
			DayOfWeek: time.Monday,
			StartTime: catalog.MustTimeOfDay(open),
			EndTime:   catalog.MustTimeOfDay(close),
			Breaks:    breaks,
		},
	)
}

func starts(slots []interval.TimeInterval) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start().Format("15:04")+"-"+s.End().Format("15:04"))
	}
	return out
}

func TestGenerator(t *testing.T) {
	gen := availability.NewGenerator(15 * time.Minute)

	t.Run("last candidate ends with its buffer at the window end", func(t *testing.T) {
		got := slices.Collect(gen.Candidates(massage, slot(9, 0, 11, 0)))
		want := []time.Time{at(9, 0), at(9, 15), at(9, 30), at(9, 45)}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("candidates mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("sequence is restartable", func(t *testing.T) {
		seq := gen.Candidates(quickTrim, slot(9, 0, 10, 0))
		first := slices.Collect(seq)
		second := slices.Collect(seq)
		assert.Equal(t, first, second)
		assert.Len(t, first, 3)
	})

	t.Run("window shorter than service yields nothing", func(t *testing.T) {
		got := slices.Collect(gen.Candidates(massage, slot(9, 0, 10, 0)))
		assert.Empty(t, got)
	})

	t.Run("early break stops enumeration", func(t *testing.T) {
		var got []time.Time
		for s := range gen.Candidates(quickTrim, slot(9, 0, 17, 0)) {
			got = append(got, s)
			if len(got) == 2 {
				break
			}
		}
		assert.Equal(t, []time.Time{at(9, 0), at(9, 15)}, got)
	})

	t.Run("zero granularity falls back to default", func(t *testing.T) {
		assert.Equal(t, availability.DefaultGranularity, availability.NewGenerator(0).Granularity)
	})
}

func TestFilter(t *testing.T) {
	filter := availability.NewFilter(availability.NewGenerator(15*time.Minute), 0)

	t.Run("buffered slots are packed back to back", func(t *testing.T) {
		res := filter.Available(plan("09:00", "17:00"), massage, nil, longAgo)
		require.True(t, res.ScheduleFound)
		require.GreaterOrEqual(t, len(res.Slots), 2)
		assert.Equal(t, slot(9, 0, 10, 0), res.Slots[0])
		assert.Equal(t, slot(10, 15, 11, 15), res.Slots[1])
	})

	t.Run("full day slate for a buffered service", func(t *testing.T) {
		res := filter.Available(plan("09:00", "17:00"), massage, nil, longAgo)
		want := []string{"09:00-10:00", "10:15-11:15", "11:30-12:30", "12:45-13:45", "14:00-15:00", "15:15-16:15"}
		if diff := cmp.Diff(want, starts(res.Slots)); diff != "" {
			t.Errorf("slots mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("breaks are avoided including the buffer", func(t *testing.T) {
		lunch, err := catalog.NewTimeOfDayRange(catalog.MustTimeOfDay("12:00"), catalog.MustTimeOfDay("13:00"))
		require.NoError(t, err)
		res := filter.Available(plan("09:00", "15:00", lunch), massage, nil, longAgo)
		want := []string{"09:00-10:00", "10:15-11:15", "13:00-14:00"}
		if diff := cmp.Diff(want, starts(res.Slots)); diff != "" {
			t.Errorf("slots mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("existing bookings block their buffered interval", func(t *testing.T) {
		existing := []interval.TimeInterval{slot(10, 0, 11, 15)}
		res := filter.Available(plan("09:00", "13:00"), quickTrim, existing, longAgo)
		want := []string{"09:00-09:30", "09:30-10:00", "11:15-11:45", "11:45-12:15", "12:15-12:45"}
		if diff := cmp.Diff(want, starts(res.Slots)); diff != "" {
			t.Errorf("slots mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("business hours narrower than the schedule", func(t *testing.T) {
		p := plan("09:00", "12:00")
		p.Hours.OpenTime = catalog.MustTimeOfDay("10:00")
		res := filter.Available(p, quickTrim, nil, longAgo)
		assert.Equal(t, "10:00-10:30", starts(res.Slots)[0])
	})

	t.Run("past slots and lead time are excluded", func(t *testing.T) {
		lead := availability.NewFilter(availability.NewGenerator(15*time.Minute), time.Hour)
		res := lead.Available(plan("09:00", "12:00"), quickTrim, nil, at(9, 10))
		assert.Equal(t, "10:15-10:45", starts(res.Slots)[0])
	})

	t.Run("missing schedule is reported, not raised", func(t *testing.T) {
		p := catalog.NewDayPlan(monday, time.UTC, nil, nil)
		res := filter.Available(p, massage, nil, longAgo)
		assert.False(t, res.ScheduleFound)
		assert.Equal(t, availability.ReasonNoSchedule, res.Reason)
		assert.Empty(t, res.Slots)
	})

	t.Run("closed day", func(t *testing.T) {
		p := plan("09:00", "17:00")
		p.Hours.IsClosed = true
		res := filter.Available(p, massage, nil, longAgo)
		assert.True(t, res.ScheduleFound)
		assert.Equal(t, availability.ReasonClosed, res.Reason)
		assert.Empty(t, res.Slots)
	})

	t.Run("deterministic", func(t *testing.T) {
		existing := []interval.TimeInterval{slot(13, 0, 14, 0), slot(10, 0, 10, 30)}
		a := filter.Available(plan("09:00", "17:00"), massage, existing, longAgo)
		b := filter.Available(plan("09:00", "17:00"), massage, existing, longAgo)
		assert.Equal(t, a, b)
	})
}

func TestAdmit(t *testing.T) {
	filter := availability.NewFilter(availability.NewGenerator(15*time.Minute), 0)
	lunch, _ := catalog.NewTimeOfDayRange(catalog.MustTimeOfDay("12:00"), catalog.MustTimeOfDay("13:00"))
	p := plan("09:00", "17:00", lunch)

	tests := []struct {
		name  string
		start time.Time
		errIs error
	}{
		{name: "valid slot", start: at(10, 0)},
		{name: "buffer runs into lunch", start: at(11, 0), errIs: availability.ErrOnBreak},
		{name: "off grid", start: at(10, 5), errIs: availability.ErrOffGrid},
		{name: "runs past close", start: at(16, 0), errIs: availability.ErrOutsideSchedule},
		{name: "before opening", start: at(8, 45), errIs: availability.ErrOutsideSchedule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buffered, err := filter.Admit(tt.start, p, massage, longAgo)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, interval.MustNew(tt.start, tt.start.Add(75*time.Minute)), buffered)
		})
	}

	t.Run("no schedule", func(t *testing.T) {
		_, err := filter.Admit(at(10, 0), catalog.NewDayPlan(monday, time.UTC, nil, nil), massage, longAgo)
		assert.ErrorIs(t, err, availability.ErrNoSchedule)
	})

	t.Run("in the past", func(t *testing.T) {
		_, err := filter.Admit(at(10, 0), p, massage, at(11, 0))
		assert.ErrorIs(t, err, availability.ErrTooSoon)
	})
}
