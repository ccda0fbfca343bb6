//go:build unit

package interval_test

import (
	"testing"
	"time"

	"booking-engine/internal/domain/interval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func iv(h1, m1, h2, m2 int) interval.TimeInterval {
	return interval.MustNew(at(h1, m1), at(h2, m2))
}

func TestNew(t *testing.T) {
	t.Run("rejects empty and inverted intervals", func(t *testing.T) {
		_, err := interval.New(at(9, 0), at(9, 0))
		assert.ErrorIs(t, err, interval.ErrInvalidInterval)

		_, err = interval.New(at(10, 0), at(9, 0))
		assert.ErrorIs(t, err, interval.ErrInvalidInterval)
	})

	t.Run("accepts a positive interval", func(t *testing.T) {
		got, err := interval.New(at(9, 0), at(9, 30))
		require.NoError(t, err)
		assert.Equal(t, 30*time.Minute, got.Duration())
	})
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b interval.TimeInterval
		want bool
	}{
		{"touching intervals do not overlap", iv(9, 0, 10, 0), iv(10, 0, 11, 0), false},
		{"partial overlap", iv(9, 0, 10, 0), iv(9, 30, 10, 30), true},
		{"nested", iv(9, 0, 12, 0), iv(10, 0, 11, 0), true},
		{"disjoint", iv(9, 0, 10, 0), iv(11, 0, 12, 0), false},
		{"identical", iv(9, 0, 10, 0), iv(9, 0, 10, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, interval.Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.want, interval.Overlaps(tt.b, tt.a), "overlap must be symmetric")
		})
	}
}

func TestContains(t *testing.T) {
	assert.True(t, interval.Contains(iv(9, 0, 17, 0), iv(9, 0, 17, 0)))
	assert.True(t, interval.Contains(iv(9, 0, 17, 0), iv(16, 15, 17, 0)))
	assert.False(t, interval.Contains(iv(9, 0, 17, 0), iv(16, 30, 17, 15)))
	assert.False(t, interval.Contains(iv(9, 0, 17, 0), iv(8, 45, 9, 15)))
}

func TestSubtract(t *testing.T) {
	t.Run("schedule minus lunch break", func(t *testing.T) {
		got := interval.Subtract(iv(9, 0, 17, 0), []interval.TimeInterval{iv(12, 0, 13, 0)})
		assert.Equal(t, []interval.TimeInterval{iv(9, 0, 12, 0), iv(13, 0, 17, 0)}, got)
	})

	t.Run("unsorted overlapping exclusions are merged", func(t *testing.T) {
		got := interval.Subtract(iv(9, 0, 17, 0), []interval.TimeInterval{
			iv(14, 0, 15, 0), iv(12, 0, 13, 0), iv(12, 30, 14, 30),
		})
		assert.Equal(t, []interval.TimeInterval{iv(9, 0, 12, 0), iv(15, 0, 17, 0)}, got)
	})

	t.Run("touching exclusions leave no gap", func(t *testing.T) {
		got := interval.Subtract(iv(9, 0, 17, 0), []interval.TimeInterval{iv(13, 0, 14, 0), iv(12, 0, 13, 0)})
		assert.Equal(t, []interval.TimeInterval{iv(9, 0, 12, 0), iv(14, 0, 17, 0)}, got)
	})

	t.Run("exclusions outside the outer interval are clipped", func(t *testing.T) {
		got := interval.Subtract(iv(9, 0, 17, 0), []interval.TimeInterval{iv(7, 0, 9, 30), iv(16, 0, 19, 0)})
		assert.Equal(t, []interval.TimeInterval{iv(9, 30, 16, 0)}, got)
	})

	t.Run("full cover leaves nothing", func(t *testing.T) {
		got := interval.Subtract(iv(9, 0, 17, 0), []interval.TimeInterval{iv(8, 0, 18, 0)})
		assert.Empty(t, got)
	})

	t.Run("no exclusions returns outer", func(t *testing.T) {
		got := interval.Subtract(iv(9, 0, 17, 0), nil)
		assert.Equal(t, []interval.TimeInterval{iv(9, 0, 17, 0)}, got)
	})
}

func TestExtend(t *testing.T) {
	assert.Equal(t, iv(9, 0, 10, 15), iv(9, 0, 10, 0).Extend(15*time.Minute))
	assert.Equal(t, iv(9, 0, 10, 0), iv(9, 0, 10, 0).Extend(0))
}
