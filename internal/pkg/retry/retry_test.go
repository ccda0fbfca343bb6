//go:build unit

package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"booking-engine/internal/pkg/errs"
	"booking-engine/internal/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() retry.Policy {
	return retry.Policy{InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, MaxRetries: 3}
}

func TestDo(t *testing.T) {
	t.Run("transient errors are retried until success", func(t *testing.T) {
		calls := 0
		err := retry.Do(context.Background(), fastPolicy(), nil, func(context.Context) error {
			calls++
			if calls < 3 {
				return errs.Mark(errors.New("connection reset"), errs.ErrTransientStore)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non transient errors stop immediately", func(t *testing.T) {
		calls := 0
		err := retry.Do(context.Background(), fastPolicy(), nil, func(context.Context) error {
			calls++
			return errs.ErrAmbiguousGatewayResult
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrAmbiguousGatewayResult)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := retry.Do(context.Background(), fastPolicy(), nil, func(context.Context) error {
			calls++
			return errs.ErrTransientGateway
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrTransientGateway)
		assert.Equal(t, 4, calls)
	})
}

func TestDoValue(t *testing.T) {
	calls := 0
	v, err := retry.DoValue(context.Background(), fastPolicy(), nil, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errs.ErrTransientGateway
		}
		return "pi_123", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", v)
}
