package loader

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_CompleteDeliversOnce(t *testing.T) {
	var calls []string

	task := NewTask(func(value string, _ error) {
		calls = append(calls, value)
	}, nil)

	task.Complete("first", nil)
	task.Complete("second", nil)

	assert.Equal(t, []string{"first"}, calls)
}

func TestTask_CancelDropsCompletion(t *testing.T) {
	var cancelled int
	var delivered bool

	task := NewTask(func(string, error) {
		delivered = true
	}, CancelFunc(func() { cancelled++ }))

	task.Cancel()
	task.Complete("late", nil)
	task.Cancel()

	assert.False(t, delivered)
	assert.Equal(t, 2, cancelled, "every cancel is forwarded to the wrapped operation")
}

func TestStart(t *testing.T) {
	t.Run("Delivers the result", func(t *testing.T) {
		done := make(chan struct{})
		var result string
		var resultErr error

		Start(context.Background(), succeeding("value"), func(value string, err error) {
			result, resultErr = value, err
			close(done)
		})

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("completion was not delivered")
		}

		require.NoError(t, resultErr)
		assert.Equal(t, "value", result)
	})

	t.Run("Delivers the error", func(t *testing.T) {
		loadErr := errors.New("load failed")
		errs := make(chan error, 1)

		Start(context.Background(), failing[string](loadErr), func(_ string, err error) {
			errs <- err
		})

		select {
		case err := <-errs:
			assert.ErrorIs(t, err, loadErr)
		case <-time.After(time.Second):
			t.Fatal("completion was not delivered")
		}
	})

	t.Run("Cancel stops the load and drops the result", func(t *testing.T) {
		started := make(chan struct{})
		stopped := make(chan struct{})
		var delivered atomic.Bool

		load := func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			close(stopped)
			return "", ctx.Err()
		}

		task := Start(context.Background(), load, func(string, error) {
			delivered.Store(true)
		})

		<-started
		task.Cancel()

		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("load was not cancelled")
		}

		// Give the goroutine a chance to attempt delivery
		time.Sleep(10 * time.Millisecond)
		assert.False(t, delivered.Load())
	})
}
