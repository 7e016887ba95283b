package scope

import (
	"strings"

	"github.com/mbd888/adamantine/internal/decision"
)

// Executor performs the actual operation (signing, broadcasting) once the
// guard has validated the capability. It receives the original context and
// may fail; the guard never retries it and never refunds the consumed nonce,
// so a failed execution cannot be silently replayed.
type Executor func(*decision.Context) (any, error)

// Result wraps an executor's output with the scope that authorized it.
type Result struct {
	Scope  Scope `json:"scope"`
	Output any   `json:"output"`
}

// GuardedResult is the output of a nonce-protected execution.
type GuardedResult struct {
	Scope     Scope  `json:"scope"`
	SessionID string `json:"sessionId"`
	Nonce     string `json:"nonce"`
	Output    any    `json:"output"`
}

// ExecuteWithScope enforces scope constraints, then executes exactly once.
//
// Assertions run in order: time window, wallet, action (case-insensitive),
// context hash. Any failure returns a typed *Error and the executor is never
// invoked.
func ExecuteWithScope(s Scope, ctx *decision.Context, walletID, action string, executor Executor, now int64) (*Result, error) {
	if !s.IsActive(now) {
		return nil, ErrScopeNotActive
	}
	if s.WalletID != walletID {
		return nil, ErrWalletMismatch
	}
	if !strings.EqualFold(s.Action, action) {
		return nil, ErrActionMismatch
	}
	hash, err := ctx.Hash()
	if err != nil {
		return nil, &Error{Code: "scope_context_unhashable", Message: err.Error()}
	}
	if s.ContextHash != hash {
		return nil, ErrContextMismatch
	}

	out, err := executor(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Scope: s, Output: out}, nil
}

// ExecuteGuarded adds replay protection on top of ExecuteWithScope.
//
// The session must be active and the nonce unconsumed; the nonce is consumed
// atomically before the scope check, so even a failed scope match burns it.
// The combination guarantees at-most-once execution per (scope, nonce) pair
// under concurrent callers.
func ExecuteGuarded(s Scope, session *Session, nonce string, ctx *decision.Context, walletID, action string, executor Executor, now int64) (*GuardedResult, error) {
	if !session.IsActive(now) {
		return nil, ErrSessionNotActive
	}
	if err := session.ConsumeNonce(nonce, now); err != nil {
		return nil, err
	}

	res, err := ExecuteWithScope(s, ctx, walletID, action, executor, now)
	if err != nil {
		return nil, err
	}
	return &GuardedResult{
		Scope:     res.Scope,
		SessionID: session.ID,
		Nonce:     nonce,
		Output:    res.Output,
	}, nil
}
