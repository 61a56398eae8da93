package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFibonacciSequence(t *testing.T) {
	assert.Equal(t, InitialDelay, fibonacci(0))
	assert.Equal(t, InitialDelay, fibonacci(1))
	assert.Equal(t, 2*time.Second, fibonacci(2))
	assert.Equal(t, 3*time.Second, fibonacci(3))
	assert.Equal(t, 5*time.Second, fibonacci(4))
	assert.Equal(t, 8*time.Second, fibonacci(5))
	assert.Equal(t, 13*time.Second, fibonacci(6))
}

func TestFibonacciCapsAtMaxDelay(t *testing.T) {
	assert.Equal(t, MaxDelay, fibonacci(20))
}

func TestDoSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "test", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "test", func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

type fatalErr struct{}

func (fatalErr) Error() string   { return "structurally broken" }
func (fatalErr) Retryable() bool { return false }

func TestDoFailsFastOnNonRetryableError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "test", func() error {
		calls++
		return fatalErr{}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.IsType(t, fatalErr{}, err)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, "test", func() error {
		calls++
		return errors.New("always fails")
	})
	require.Error(t, err)
}
