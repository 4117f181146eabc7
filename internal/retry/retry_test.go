package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("http status %d", int(e)) }
func (e statusErr) HTTPStatus() int { return int(e) }

type rpcCodeErr int

func (e rpcCodeErr) Error() string    { return "rpc error" }
func (e rpcCodeErr) JSONRPCCode() int { return int(e) }

func TestClassify_ExplicitMarkers(t *testing.T) {
	transient := Classify(Transient(errors.New("subgraph timed out")))
	assert.Equal(t, ClassTransient, transient.Class)
	assert.Equal(t, "explicit_transient", transient.Reason)

	terminal := Classify(Terminal(errors.New("invalid params")))
	assert.Equal(t, ClassTerminal, terminal.Class)
	assert.Equal(t, "explicit_terminal", terminal.Reason)
}

func TestClassify_RepresentativeRuntimeErrors(t *testing.T) {
	testCases := []struct {
		name          string
		err           error
		expectedClass Class
	}{
		{"context deadline transient", context.DeadlineExceeded, ClassTransient},
		{"context canceled terminal", context.Canceled, ClassTerminal},
		{"http 503 transient", fmt.Errorf("query: %w", statusErr(503)), ClassTransient},
		{"http 429 transient", statusErr(429), ClassTransient},
		{"http 400 terminal", statusErr(400), ClassTerminal},
		{"jsonrpc server range transient", rpcCodeErr(-32010), ClassTransient},
		{"jsonrpc reverted terminal", rpcCodeErr(3), ClassTerminal},
		{"jsonrpc invalid params terminal", rpcCodeErr(-32602), ClassTerminal},
		{"graphql syntax terminal", errors.New("graphql: Syntax Error: unexpected }"), ClassTerminal},
		{"indexing error transient", errors.New("graphql: indexing error"), ClassTransient},
		{"unknown defaults terminal", errors.New("unexpected failure"), ClassTerminal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedClass, Classify(tc.err).Class)
		})
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{BackoffInitial: 10 * time.Millisecond, BackoffMax: 50 * time.Millisecond}
	assert.Equal(t, 10*time.Millisecond, p.Delay(1))
	assert.Equal(t, 20*time.Millisecond, p.Delay(2))
	assert.Equal(t, 40*time.Millisecond, p.Delay(3))
	assert.Equal(t, 50*time.Millisecond, p.Delay(4))
	assert.Equal(t, 50*time.Millisecond, p.Delay(10))
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3, BackoffInitial: time.Millisecond}, slog.Default(), "test", func(context.Context) error {
		calls++
		if calls < 3 {
			return statusErr(502)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnTerminal(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 5, BackoffInitial: time.Millisecond}, slog.Default(), "test", func(context.Context) error {
		calls++
		return statusErr(400)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "terminal_failure stage=test")
	var se statusErr
	assert.ErrorAs(t, err, &se)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 2, BackoffInitial: time.Millisecond}, slog.Default(), "test", func(context.Context) error {
		calls++
		return context.DeadlineExceeded
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "transient_recovery_exhausted")
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	require.NoError(t, Do(context.Background(), Policy{}, slog.Default(), "test", func(context.Context) error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}
