package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	b := New(Config{})
	assert.Equal(t, StateClosed, b.GetState())
	assert.Equal(t, 5, b.failureThreshold)
	assert.Equal(t, 2, b.successThreshold)
	assert.Equal(t, 30*time.Second, b.openTimeout)
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New(Config{FailureThreshold: 3, OpenTimeout: time.Hour})

	b.RecordFailure()
	b.RecordFailure()
	require.NoError(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.GetState())
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)
}

func TestBreaker_HalfOpenThenClose(t *testing.T) {
	now := time.Now()
	b := New(Config{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: time.Second})
	b.nowFn = func() time.Time { return now }

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.GetState())

	b.nowFn = func() time.Time { return now.Add(2 * time.Second) }
	require.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.GetState())

	b.RecordSuccess()
	assert.Equal(t, StateHalfOpen, b.GetState())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.GetState())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := New(Config{FailureThreshold: 1, OpenTimeout: time.Second})
	b.nowFn = func() time.Time { return now }
	b.RecordFailure()

	b.nowFn = func() time.Time { return now.Add(2 * time.Second) }
	require.NoError(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.GetState())
}

func TestBreaker_Do(t *testing.T) {
	var transitions []string
	b := New(Config{
		Name:             "ownership-index",
		FailureThreshold: 2,
		OpenTimeout:      time.Hour,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})
	boom := errors.New("boom")

	assert.ErrorIs(t, b.Do(context.Background(), func(context.Context) error { return boom }), boom)
	assert.ErrorIs(t, b.Do(context.Background(), func(context.Context) error { return context.Canceled }), context.Canceled)
	assert.Equal(t, StateClosed, b.GetState(), "cancellation is not a failure")

	assert.ErrorIs(t, b.Do(context.Background(), func(context.Context) error { return boom }), boom)
	assert.Equal(t, StateOpen, b.GetState())

	called := false
	err := b.Do(context.Background(), func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, []string{"ownership-index:closed->open"}, transitions)
}

func TestBreaker_ConcurrentUse(t *testing.T) {
	b := New(Config{FailureThreshold: 1000})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if (i+j)%2 == 0 {
					b.RecordFailure()
				} else {
					b.RecordSuccess()
				}
				_ = b.Allow()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, StateClosed, b.GetState())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
