//go:build unit

package booking_test

import (
	"testing"
	"time"

	"booking-engine/internal/domain/booking"
	"booking-engine/internal/domain/interval"
	"booking-engine/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

func newHold(t *testing.T) *booking.Booking {
	t.Helper()
	slot := interval.MustNew(now.Add(2*time.Hour), now.Add(3*time.Hour))
	b, err := booking.NewHold(uuid.New(), uuid.New(), uuid.New(), slot, 15, 10*time.Minute, now)
	require.NoError(t, err)
	return b
}

func TestNewHold(t *testing.T) {
	b := newHold(t)
	assert.Equal(t, booking.StatusHeld, b.Status())
	assert.Equal(t, int64(1), b.Version())
	assert.Equal(t, now.Add(10*time.Minute), b.ExpiresAt())
	assert.Equal(t, b.Slot().End().Add(15*time.Minute), b.Occupied().End())
	assert.Nil(t, b.PaymentIntentID())

	t.Run("requires positive hold", func(t *testing.T) {
		slot := interval.MustNew(now, now.Add(time.Hour))
		_, err := booking.NewHold(uuid.New(), uuid.New(), uuid.New(), slot, 0, 0, now)
		assert.ErrorIs(t, err, booking.ErrInvalidHoldDuration)
	})
}

func TestOccupiesAt(t *testing.T) {
	b := newHold(t)
	assert.True(t, b.OccupiesAt(now.Add(9*time.Minute)))
	assert.False(t, b.OccupiesAt(now.Add(10*time.Minute)), "elapsed hold no longer blocks")

	require.NoError(t, b.AwaitPayment("pi_1", now.Add(time.Minute)))
	assert.True(t, b.OccupiesAt(now.Add(time.Hour)), "pending payment keeps blocking")
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from booking.Status
		to   booking.Status
		ok   bool
	}{
		{booking.StatusHeld, booking.StatusPendingPayment, true},
		{booking.StatusHeld, booking.StatusExpired, true},
		{booking.StatusHeld, booking.StatusCancelled, true},
		{booking.StatusHeld, booking.StatusConfirmed, true},
		{booking.StatusHeld, booking.StatusRefunded, false},
		{booking.StatusPendingPayment, booking.StatusConfirmed, true},
		{booking.StatusPendingPayment, booking.StatusFailed, true},
		{booking.StatusPendingPayment, booking.StatusCancelled, true},
		{booking.StatusConfirmed, booking.StatusRefunded, true},
		{booking.StatusConfirmed, booking.StatusCancelled, false},
		{booking.StatusConfirmed, booking.StatusFailed, false},
		{booking.StatusExpired, booking.StatusConfirmed, true},
		{booking.StatusExpired, booking.StatusHeld, false},
		{booking.StatusRefunded, booking.StatusConfirmed, false},
		{booking.StatusFailed, booking.StatusConfirmed, false},
		{booking.StatusCancelled, booking.StatusPendingPayment, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, booking.CanTransition(tt.from, tt.to))
		})
	}

	for _, s := range []booking.Status{booking.StatusFailed, booking.StatusCancelled, booking.StatusRefunded} {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestPaymentLifecycle(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		b := newHold(t)
		require.NoError(t, b.AwaitPayment("pi_1", now.Add(time.Minute)))
		require.NoError(t, b.AwaitPayment("pi_1", now.Add(2*time.Minute)), "re-binding same intent is a no-op")
		require.NoError(t, b.Confirm("pi_1", now.Add(3*time.Minute)))
		assert.Equal(t, booking.StatusConfirmed, b.Status())
		assert.False(t, b.NeedsReconciliation())
		require.NoError(t, b.Refund(now.Add(time.Hour)))

		err := b.Refund(now.Add(2 * time.Hour))
		assert.ErrorIs(t, err, errs.ErrAlreadyRefunded)
	})

	t.Run("cannot await payment on an elapsed hold", func(t *testing.T) {
		b := newHold(t)
		err := b.AwaitPayment("pi_1", now.Add(11*time.Minute))
		assert.ErrorIs(t, err, errs.ErrHoldExpired)
	})

	t.Run("late confirmation is honoured and flagged", func(t *testing.T) {
		b := newHold(t)
		require.NoError(t, b.AwaitPayment("pi_1", now.Add(time.Minute)))
		require.NoError(t, b.Confirm("pi_1", now.Add(30*time.Minute)))
		assert.Equal(t, booking.StatusConfirmed, b.Status())
		assert.True(t, b.NeedsReconciliation())
	})

	t.Run("confirmation after expiry is flagged", func(t *testing.T) {
		b := newHold(t)
		require.NoError(t, b.Expire(now.Add(11*time.Minute)))
		require.NoError(t, b.Confirm("pi_1", now.Add(12*time.Minute)))
		assert.True(t, b.NeedsReconciliation())
		assert.Equal(t, "pi_1", *b.PaymentIntentID())
	})

	t.Run("confirm after refund is illegal", func(t *testing.T) {
		b := newHold(t)
		require.NoError(t, b.Confirm("pi_1", now))
		require.NoError(t, b.Refund(now))
		assert.ErrorIs(t, b.Confirm("pi_1", now), errs.ErrIllegalTransition)
	})
}

func TestExpire(t *testing.T) {
	b := newHold(t)
	assert.ErrorIs(t, b.Expire(now.Add(time.Minute)), errs.ErrIllegalTransition)
	require.NoError(t, b.Expire(now.Add(10*time.Minute)))
	assert.Equal(t, booking.StatusExpired, b.Status())
}

func TestCancel(t *testing.T) {
	b := newHold(t)
	require.NoError(t, b.Cancel(now))
	require.NotNil(t, b.CancelledAt())
	assert.ErrorIs(t, b.Cancel(now), errs.ErrIllegalTransition)
}
