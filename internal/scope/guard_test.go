package scope

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/adamantine/internal/decision"
)

func countingExecutor(calls *atomic.Int32) Executor {
	return func(*decision.Context) (any, error) {
		calls.Add(1)
		return "signed", nil
	}
}

func TestExecuteWithScope_HappyPath(t *testing.T) {
	d, ctx := allowDecision(t)
	s, err := Bind(d, "w1", "send", 0, testNow)
	require.NoError(t, err)

	var calls atomic.Int32
	res, err := ExecuteWithScope(s, ctx, "w1", "send", countingExecutor(&calls), testNow)
	require.NoError(t, err)

	assert.Equal(t, "signed", res.Output)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecuteWithScope_ActionCaseInsensitive(t *testing.T) {
	d, ctx := allowDecision(t)
	s, err := Bind(d, "w1", "send", 0, testNow)
	require.NoError(t, err)

	var calls atomic.Int32
	_, err = ExecuteWithScope(s, ctx, "w1", "SEND", countingExecutor(&calls), testNow)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecuteWithScope_Mismatches(t *testing.T) {
	d, ctx := allowDecision(t)
	s, err := Bind(d, "w1", "send", 0, testNow)
	require.NoError(t, err)

	otherCtx := *ctx
	otherAction := *ctx.Action
	otherAction.Amount = 501
	otherCtx.Action = &otherAction

	tests := []struct {
		name    string
		wallet  string
		action  string
		ctx     *decision.Context
		now     int64
		wantErr *Error
	}{
		{"expired scope", "w1", "send", ctx, testNow + 120, ErrScopeNotActive},
		{"wallet mismatch", "w2", "send", ctx, testNow, ErrWalletMismatch},
		{"action mismatch", "w1", "mint", ctx, testNow, ErrActionMismatch},
		{"context mismatch", "w1", "send", &otherCtx, testNow, ErrContextMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			_, err := ExecuteWithScope(s, tt.ctx, tt.wallet, tt.action, countingExecutor(&calls), tt.now)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int32(0), calls.Load(), "executor must not run on any guard failure")
		})
	}
}

func TestExecuteGuarded_ExactlyOncePerNonce(t *testing.T) {
	d, ctx := allowDecision(t)
	s, err := Bind(d, "w1", "send", 0, testNow)
	require.NoError(t, err)

	session := NewSession(60*time.Second, testNow)
	nonce := session.IssueNonce()

	var calls atomic.Int32
	res, err := ExecuteGuarded(s, session, nonce, ctx, "w1", "send", countingExecutor(&calls), testNow)
	require.NoError(t, err)
	assert.Equal(t, session.ID, res.SessionID)
	assert.Equal(t, nonce, res.Nonce)

	_, err = ExecuteGuarded(s, session, nonce, ctx, "w1", "send", countingExecutor(&calls), testNow)
	assert.ErrorIs(t, err, ErrNonceReplayed)
	assert.Equal(t, int32(1), calls.Load(), "executor must run exactly once per nonce")
}

func TestExecuteGuarded_ExpiredSession(t *testing.T) {
	d, ctx := allowDecision(t)
	s, err := Bind(d, "w1", "send", 2*time.Minute, testNow)
	require.NoError(t, err)

	session := NewSession(30*time.Second, testNow)
	nonce := session.IssueNonce()

	var calls atomic.Int32
	_, err = ExecuteGuarded(s, session, nonce, ctx, "w1", "send", countingExecutor(&calls), testNow+31)
	assert.ErrorIs(t, err, ErrSessionNotActive)
	assert.Equal(t, int32(0), calls.Load())
}

func TestExecuteGuarded_FailedExecutorBurnsNonce(t *testing.T) {
	d, ctx := allowDecision(t)
	s, err := Bind(d, "w1", "send", 0, testNow)
	require.NoError(t, err)

	session := NewSession(60*time.Second, testNow)
	nonce := session.IssueNonce()

	boom := errors.New("broadcast failed")
	_, err = ExecuteGuarded(s, session, nonce, ctx, "w1", "send",
		func(*decision.Context) (any, error) { return nil, boom }, testNow)
	require.ErrorIs(t, err, boom, "executor failure propagates as-is")

	// The nonce is not refunded: the same presentation now fails as a replay.
	var calls atomic.Int32
	_, err = ExecuteGuarded(s, session, nonce, ctx, "w1", "send", countingExecutor(&calls), testNow)
	assert.ErrorIs(t, err, ErrNonceReplayed)
	assert.Equal(t, int32(0), calls.Load())
}

func TestExecuteGuarded_ConcurrentSameNonce(t *testing.T) {
	d, ctx := allowDecision(t)
	s, err := Bind(d, "w1", "send", 0, testNow)
	require.NoError(t, err)

	session := NewSession(60*time.Second, testNow)
	nonce := session.IssueNonce()

	const goroutines = 32
	var calls atomic.Int32
	var successes atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ExecuteGuarded(s, session, nonce, ctx, "w1", "send", countingExecutor(&calls), testNow)
			if err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(1), calls.Load())
}
