package ingestion

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds first time", func(t *testing.T) {
		attempts := 0
		err := RetryWithBackoff(ctx, func() error { attempts++; return nil }, 3, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		err := RetryWithBackoff(ctx, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("busy")
			}
			return nil
		}, 5, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("returns last error", func(t *testing.T) {
		attempts := 0
		want := errors.New("locked")
		err := RetryWithBackoff(ctx, func() error { attempts++; return want }, 3, time.Millisecond)
		assert.Equal(t, want, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("permanent error stops at once", func(t *testing.T) {
		attempts := 0
		err := RetryWithBackoff(ctx, func() error { attempts++; return Permanent(os.ErrNotExist) }, 5, time.Millisecond)
		assert.Equal(t, os.ErrNotExist, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("invalid max attempts", func(t *testing.T) {
		for _, n := range []int{0, -1} {
			attempts := 0
			err := RetryWithBackoff(ctx, func() error { attempts++; return nil }, n, time.Millisecond)
			assert.Equal(t, ErrInvalidMaxAttempts, err)
			assert.Zero(t, attempts)
		}
	})

	t.Run("canceled during backoff", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		attempts := 0
		err := RetryWithBackoff(canceled, func() error {
			attempts++
			cancel()
			return errors.New("busy")
		}, 10, time.Second)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	})

	t.Run("delay doubles", func(t *testing.T) {
		var stamps []time.Time
		err := RetryWithBackoff(ctx, func() error {
			stamps = append(stamps, time.Now())
			if len(stamps) < 4 {
				return errors.New("busy")
			}
			return nil
		}, 5, 10*time.Millisecond)
		require.NoError(t, err)
		require.Len(t, stamps, 4)
		assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 20*time.Millisecond)
		assert.GreaterOrEqual(t, stamps[3].Sub(stamps[2]), 40*time.Millisecond)
	})
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
