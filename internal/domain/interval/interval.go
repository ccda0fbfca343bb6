package interval

import (
	"fmt"
	"slices"
	"time"

	"booking-engine/internal/pkg/errs"
)

var ErrInvalidInterval = errs.New("interval start must be before end")

// TimeInterval is a half-open range [start, end) on the absolute timeline.
type TimeInterval struct {
	start time.Time
	end   time.Time
}

func New(start, end time.Time) (TimeInterval, error) {
	if !start.Before(end) {
		return TimeInterval{}, errs.Wrapf(ErrInvalidInterval, "[%s, %s)",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeInterval{start: start, end: end}, nil
}

// MustNew panics on an invalid interval. Only for literals in tests and
// intervals already validated elsewhere.
func MustNew(start, end time.Time) TimeInterval {
	iv, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

func (i TimeInterval) Start() time.Time { return i.start }
func (i TimeInterval) End() time.Time   { return i.end }

func (i TimeInterval) Duration() time.Duration {
	return i.end.Sub(i.start)
}

func (i TimeInterval) IsZero() bool {
	return i.start.IsZero() && i.end.IsZero()
}

// Extend returns the interval with its end pushed out by d (e.g. a buffer).
func (i TimeInterval) Extend(d time.Duration) TimeInterval {
	if d <= 0 {
		return i
	}
	return TimeInterval{start: i.start, end: i.end.Add(d)}
}

func (i TimeInterval) In(loc *time.Location) TimeInterval {
	return TimeInterval{start: i.start.In(loc), end: i.end.In(loc)}
}

func (i TimeInterval) Tstzrange() string {
	return fmt.Sprintf("[%s,%s)", i.start.UTC().Format(time.RFC3339Nano), i.end.UTC().Format(time.RFC3339Nano))
}

func (i TimeInterval) String() string {
	return i.Tstzrange()
}

// Overlaps reports whether a and b share any instant. Touching intervals
// such as [09:00,10:00) and [10:00,11:00) do not overlap.
func Overlaps(a, b TimeInterval) bool {
	return a.start.Before(b.end) && b.start.Before(a.end)
}

func Contains(outer, inner TimeInterval) bool {
	return !inner.start.Before(outer.start) && !inner.end.After(outer.end)
}

// OverlapsAny reports whether candidate overlaps any interval in set.
func OverlapsAny(candidate TimeInterval, set []TimeInterval) bool {
	for _, iv := range set {
		if Overlaps(candidate, iv) {
			return true
		}
	}
	return false
}

// Subtract returns the parts of outer not covered by any excluded interval,
// sorted ascending. Exclusions may be unsorted, overlapping or reach outside
// outer.
func Subtract(outer TimeInterval, excluded []TimeInterval) []TimeInterval {
	cuts := Merge(excluded)

	var out []TimeInterval
	cursor := outer.start
	for _, c := range cuts {
		if !c.end.After(cursor) {
			continue
		}
		if !c.start.Before(outer.end) {
			break
		}
		if c.start.After(cursor) {
			out = append(out, TimeInterval{start: cursor, end: c.start})
		}
		if c.end.After(cursor) {
			cursor = c.end
		}
	}
	if cursor.Before(outer.end) {
		out = append(out, TimeInterval{start: cursor, end: outer.end})
	}
	return out
}

// Merge sorts intervals and coalesces the ones that overlap or touch.
func Merge(in []TimeInterval) []TimeInterval {
	if len(in) == 0 {
		return nil
	}
	sorted := slices.Clone(in)
	slices.SortFunc(sorted, func(a, b TimeInterval) int {
		return a.start.Compare(b.start)
	})

	out := []TimeInterval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if !iv.start.After(last.end) {
			if iv.end.After(last.end) {
				last.end = iv.end
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}
