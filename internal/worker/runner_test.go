//go:build unit

package worker_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"booking-engine/internal/pkg/config"
	"booking-engine/internal/usecase/commands"
	"booking-engine/internal/worker"
	commandsmock "booking-engine/tests/mock/commands"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// stubLeader grants leadership when leading is set and records the lock keys
// it was asked for.
type stubLeader struct {
	leading atomic.Bool
	keys    chan int64
}

func newStubLeader(leading bool) *stubLeader {
	l := &stubLeader{keys: make(chan int64, 64)}
	l.leading.Store(leading)
	return l
}

func (l *stubLeader) RunIfLeader(ctx context.Context, key int64, fn func(ctx context.Context) error) (bool, error) {
	select {
	case l.keys <- key:
	default:
	}
	if !l.leading.Load() {
		return false, nil
	}
	return true, fn(ctx)
}

var discard = slog.New(slog.DiscardHandler)

func TestRunner_Sweep(t *testing.T) {
	ctrl := gomock.NewController(t)
	reservations := commandsmock.NewMockReservationCommands(ctrl)
	r := worker.NewRunner(reservations, commandsmock.NewMockPaymentCommands(ctrl), newStubLeader(true),
		config.WorkerConfig{BatchSize: 25}, discard)

	gomock.InOrder(
		reservations.EXPECT().SweepExpiredHolds(gomock.Any(), 25).Return(3, nil),
		reservations.EXPECT().SweepExpiredHolds(gomock.Any(), 25).Return(0, errors.New("store unavailable")),
	)

	assert.NoError(t, r.Sweep(context.Background()))
	assert.Error(t, r.Sweep(context.Background()))
}

func TestRunner_Reconcile(t *testing.T) {
	ctrl := gomock.NewController(t)
	payments := commandsmock.NewMockPaymentCommands(ctrl)
	r := worker.NewRunner(commandsmock.NewMockReservationCommands(ctrl), payments, newStubLeader(true),
		config.WorkerConfig{}, discard)

	payments.EXPECT().Reconcile(gomock.Any(), 100).Return(&commands.ReconcileReport{Confirmed: 1, Expired: 2}, nil)

	assert.NoError(t, r.Reconcile(context.Background()))
}

func TestRunner_StartStop(t *testing.T) {
	cfg := config.WorkerConfig{
		SweepInterval:     5 * time.Millisecond,
		ReconcileInterval: 5 * time.Millisecond,
		BatchSize:         10,
		LeaderLockKey:     42,
	}

	t.Run("leader runs both jobs", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		reservations := commandsmock.NewMockReservationCommands(ctrl)
		payments := commandsmock.NewMockPaymentCommands(ctrl)
		var swept, reconciled atomic.Int32
		reservations.EXPECT().SweepExpiredHolds(gomock.Any(), 10).DoAndReturn(func(context.Context, int) (int, error) {
			swept.Add(1)
			return 0, nil
		}).MinTimes(1)
		payments.EXPECT().Reconcile(gomock.Any(), 10).DoAndReturn(func(context.Context, int) (*commands.ReconcileReport, error) {
			reconciled.Add(1)
			return &commands.ReconcileReport{}, nil
		}).MinTimes(1)

		r := worker.NewRunner(reservations, payments, newStubLeader(true), cfg, discard)
		r.Start(context.Background())
		require.Eventually(t, func() bool { return swept.Load() > 0 && reconciled.Load() > 0 }, time.Second, 5*time.Millisecond)
		r.Stop()
	})

	t.Run("follower skips the jobs", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		leader := newStubLeader(false)

		r := worker.NewRunner(commandsmock.NewMockReservationCommands(ctrl), commandsmock.NewMockPaymentCommands(ctrl), leader, cfg, discard)
		r.Start(context.Background())

		seen := map[int64]bool{}
		require.Eventually(t, func() bool {
			for {
				select {
				case k := <-leader.keys:
					seen[k] = true
				default:
					return seen[42] && seen[43]
				}
			}
		}, time.Second, 5*time.Millisecond)
		r.Stop()
	})

	t.Run("disabled intervals start nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		leader := newStubLeader(true)

		r := worker.NewRunner(commandsmock.NewMockReservationCommands(ctrl), commandsmock.NewMockPaymentCommands(ctrl), leader,
			config.WorkerConfig{}, discard)
		r.Start(context.Background())
		time.Sleep(20 * time.Millisecond)
		r.Stop()

		assert.Empty(t, leader.keys)
	})
}
