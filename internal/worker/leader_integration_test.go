//go:build integration

package worker_test

import (
	"context"
	"log/slog"
	"testing"

	"booking-engine/internal/worker"
	"booking-engine/tests/common/containers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgLeader_RunIfLeader(t *testing.T) {
	pool, _ := containers.NewDatabase(t)
	logger := slog.New(slog.DiscardHandler)
	first := worker.NewPgLeader(pool, logger)
	second := worker.NewPgLeader(pool, logger)
	ctx := context.Background()

	t.Run("only one instance runs while the lock is held", func(t *testing.T) {
		ran, err := first.RunIfLeader(ctx, 7342001, func(ctx context.Context) error {
			innerRan, err := second.RunIfLeader(ctx, 7342001, func(context.Context) error {
				t.Fatal("follower must not run")
				return nil
			})
			require.NoError(t, err)
			assert.False(t, innerRan)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
	})

	t.Run("lock is released after the job", func(t *testing.T) {
		ran, err := second.RunIfLeader(ctx, 7342001, func(context.Context) error { return nil })

		require.NoError(t, err)
		assert.True(t, ran)
	})

	t.Run("different keys do not contend", func(t *testing.T) {
		ran, err := first.RunIfLeader(ctx, 1, func(ctx context.Context) error {
			ok, err := second.RunIfLeader(ctx, 2, func(context.Context) error { return nil })
			require.NoError(t, err)
			assert.True(t, ok)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
	})
}
