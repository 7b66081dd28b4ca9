package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, Policy{Name: "test_success", Attempts: 5, Backoff: ExpoJitter{Base: time.Millisecond}})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return fatal
	}, Policy{Name: "test_fatal", Attempts: 5, Retryable: func(err error) bool { return !errors.Is(err, fatal) }})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("boom")
	}, Policy{Name: "test_cancel", Attempts: 3, Backoff: ExpoJitter{Base: time.Hour}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestExpoJitter_Capped(t *testing.T) {
	b := ExpoJitter{Base: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 400*time.Millisecond, b.Next(2))
	assert.Equal(t, time.Second, b.Next(10))
}

func TestDo_PermanentStopsAndUnwraps(t *testing.T) {
	bad := errors.New("bad payload")
	calls := 0
	exhausted := false
	err := Do(context.Background(), func() error {
		calls++
		return Permanent(bad)
	}, Policy{Name: "test_permanent", Attempts: 5, OnExhaust: func(error) { exhausted = true }})

	assert.Equal(t, bad, err)
	assert.Equal(t, 1, calls)
	assert.True(t, exhausted)
	assert.True(t, IsPermanent(Permanent(bad)))
	assert.False(t, IsPermanent(bad))
	assert.NoError(t, Permanent(nil))
}

func TestDefaultKafkaPolicy_DoesNotRetryCancel(t *testing.T) {
	p := DefaultKafkaPolicy(nil)
	assert.False(t, p.Retryable(context.Canceled))
	assert.True(t, p.Retryable(errors.New("broker unavailable")))
}
