package availability

import (
	"iter"
	"time"

	"booking-engine/internal/domain/catalog"
	"booking-engine/internal/domain/interval"
)

const DefaultGranularity = 15 * time.Minute

// Generator enumerates candidate start times on a fixed grid. It knows
// nothing about bookings or breaks.
type Generator struct {
	Granularity time.Duration
}

func NewGenerator(granularity time.Duration) Generator {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	return Generator{Granularity: granularity}
}

// Candidates yields window.Start() + k*Granularity for every k where the
// service and its buffer still end inside the window. The sequence is lazy,
// finite and can be ranged over any number of times.
func (g Generator) Candidates(svc catalog.Service, window interval.TimeInterval) iter.Seq[time.Time] {
	step := g.Granularity
	if step <= 0 {
		step = DefaultGranularity
	}
	footprint := svc.Footprint()
	return func(yield func(time.Time) bool) {
		if footprint <= 0 {
			return
		}
		for start := window.Start(); !start.Add(footprint).After(window.End()); start = start.Add(step) {
			if !yield(start) {
				return
			}
		}
	}
}

// OnGrid reports whether start is one of the generator's candidates for window.
func (g Generator) OnGrid(start time.Time, window interval.TimeInterval) bool {
	step := g.Granularity
	if step <= 0 {
		step = DefaultGranularity
	}
	offset := start.Sub(window.Start())
	return offset >= 0 && offset%step == 0
}
