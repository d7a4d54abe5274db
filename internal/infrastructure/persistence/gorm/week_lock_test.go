package gorm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekLocks(t *testing.T) {
	t.Run("Acquire_ShouldBlockSecondHolderUntilContextExpires", func(t *testing.T) {
		locks := newWeekLocks()
		unlock, err := locks.acquire(context.Background(), "2024-01-01")
		require.NoError(t, err)
		defer unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = locks.acquire(ctx, "2024-01-01")

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Acquire_ShouldNotBlockOtherWeeks", func(t *testing.T) {
		locks := newWeekLocks()
		unlock, err := locks.acquire(context.Background(), "2024-01-01")
		require.NoError(t, err)
		defer unlock()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		other, err := locks.acquire(ctx, "2024-01-08")

		require.NoError(t, err)
		other()
	})

	t.Run("Release_ShouldHandOverAndDropEntries", func(t *testing.T) {
		locks := newWeekLocks()
		unlock, err := locks.acquire(context.Background(), "2024-01-01")
		require.NoError(t, err)

		acquired := make(chan func())
		go func() {
			next, err := locks.acquire(context.Background(), "2024-01-01")
			if err == nil {
				acquired <- next
			}
		}()

		unlock()
		select {
		case next := <-acquired:
			next()
		case <-time.After(time.Second):
			t.Fatal("waiter was not handed the lock")
		}

		locks.mu.Lock()
		defer locks.mu.Unlock()
		assert.Empty(t, locks.locks)
	})
}
