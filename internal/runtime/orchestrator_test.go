package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/mbd888/adamantine/internal/decision"
	"github.com/mbd888/adamantine/internal/scope"
)

func allowedContext() *decision.Context {
	return &decision.Context{
		Action:    &decision.ActionContext{Action: "send", Asset: "DGB", Amount: 500, Recipient: "DRecipient1"},
		Device:    &decision.DeviceContext{DeviceID: "dev-1", DeviceType: "mobile", OS: "android", Trusted: true, FirstSeenTS: 1_690_000_000},
		Network:   &decision.NetworkContext{Network: "mainnet", FeeRate: 10, PeerCount: 8},
		User:      &decision.UserContext{UserID: "u1", BiometricAvailable: true, PINSet: true},
		Timestamp: 1_700_000_000,
	}
}

func deniedContext() *decision.Context {
	ctx := allowedContext()
	ctx.Device.DeviceType = "browser"
	return ctx
}

func counting(calls *atomic.Int32, output any, err error) scope.Executor {
	return func(*decision.Context) (any, error) {
		calls.Add(1)
		return output, err
	}
}

func TestExecute_Allow(t *testing.T) {
	o := NewOrchestrator(nil)
	var calls atomic.Int32

	res, err := o.Execute(context.Background(), "w1", allowedContext(), counting(&calls, "txid-1", nil))
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "txid-1" {
		t.Errorf("output: %v", res.Output)
	}
	if calls.Load() != 1 {
		t.Errorf("executor calls: %d", calls.Load())
	}
	if !res.Decision.Verdict.IsAllow() {
		t.Errorf("verdict: %s", res.Decision.Verdict.Type)
	}
	if res.Decision.ContextHash == "" {
		t.Error("expected a context hash")
	}
}

func TestExecute_BlockedNeverRunsExecutor(t *testing.T) {
	o := NewOrchestrator(nil)
	var calls atomic.Int32

	_, err := o.Execute(context.Background(), "w1", deniedContext(), counting(&calls, nil, nil))
	if !errors.Is(err, ErrExecutionBlocked) {
		t.Fatalf("expected ErrExecutionBlocked, got %v", err)
	}
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatal("expected a BlockedError")
	}
	if !blocked.Decision.Verdict.IsDeny() {
		t.Errorf("verdict: %s", blocked.Decision.Verdict.Type)
	}
	if calls.Load() != 0 {
		t.Errorf("executor must not run, got %d calls", calls.Load())
	}
}

func TestExecute_StepUpBlocks(t *testing.T) {
	o := NewOrchestrator(nil)
	var calls atomic.Int32

	ctx := allowedContext()
	ctx.Action.Action = "mint"

	_, err := o.Execute(context.Background(), "w1", ctx, counting(&calls, nil, nil))
	if !errors.Is(err, ErrExecutionBlocked) {
		t.Fatalf("expected ErrExecutionBlocked, got %v", err)
	}
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatal("expected a BlockedError")
	}
	if !blocked.Decision.Verdict.IsStepUp() {
		t.Errorf("verdict: %s", blocked.Decision.Verdict.Type)
	}
	if calls.Load() != 0 {
		t.Error("executor must not run on STEP_UP")
	}
}

func TestExecute_ExecutorErrorPropagates(t *testing.T) {
	o := NewOrchestrator(nil)
	boom := errors.New("broadcast failed")
	var calls atomic.Int32

	res, err := o.Execute(context.Background(), "w1", allowedContext(), counting(&calls, nil, boom))
	if !errors.Is(err, boom) {
		t.Fatalf("expected executor error, got %v", err)
	}
	if res == nil || !res.Decision.Verdict.IsAllow() {
		t.Error("decision should still be reported alongside the failure")
	}
}

func TestExecuteScoped_BindsAndRuns(t *testing.T) {
	o := NewOrchestrator(nil)
	var calls atomic.Int32

	res, err := o.ExecuteScoped(context.Background(), "w1", allowedContext(), counting(&calls, "txid-2", nil))
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "txid-2" || calls.Load() != 1 {
		t.Errorf("output %v, calls %d", res.Output, calls.Load())
	}
	if res.Scope == nil {
		t.Fatal("expected a bound scope")
	}
	if res.Scope.WalletID != "w1" || res.Scope.Action != "send" {
		t.Errorf("scope: %+v", res.Scope)
	}
	if res.Scope.ContextHash != res.Decision.ContextHash {
		t.Error("scope must carry the decision's context hash")
	}
}

func TestExecuteInSession_NonceConsumedOnce(t *testing.T) {
	o := NewOrchestrator(nil)
	ses := scope.NewSession(scope.DefaultSessionTTL, 0)
	var calls atomic.Int32

	res, err := o.ExecuteInSession(context.Background(), ses, "w1", allowedContext(), counting(&calls, "txid-3", nil))
	if err != nil {
		t.Fatal(err)
	}
	if res.SessionID != ses.ID || res.Nonce == "" {
		t.Errorf("session linkage: %q %q", res.SessionID, res.Nonce)
	}
	if ses.ConsumedCount() != 1 {
		t.Errorf("consumed nonces: %d", ses.ConsumedCount())
	}

	// The issued nonce is burned; replaying it directly must fail.
	err = ses.ConsumeNonce(res.Nonce, 0)
	if !errors.Is(err, scope.ErrNonceReplayed) {
		t.Errorf("expected ErrNonceReplayed, got %v", err)
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	o := NewOrchestrator(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	_, err := o.Execute(ctx, "w1", allowedContext(), counting(&calls, nil, nil))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls.Load() != 0 {
		t.Error("executor must not run after cancellation")
	}
}
