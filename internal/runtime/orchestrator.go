// Package runtime ties the decision engine and the scoped execution gate
// together: every wallet operation is decided fresh, then run either directly
// or through a single-use scope. The executor is never reached without an
// ALLOW verdict from the current context.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbd888/adamantine/internal/decision"
	"github.com/mbd888/adamantine/internal/metrics"
	"github.com/mbd888/adamantine/internal/scope"
	"github.com/mbd888/adamantine/internal/syncutil"
	"github.com/mbd888/adamantine/internal/traces"
)

// ErrExecutionBlocked is returned when the policy verdict is not ALLOW.
var ErrExecutionBlocked = errors.New("runtime: execution blocked by policy")

// BlockedError carries the full decision that blocked execution.
// It unwraps to ErrExecutionBlocked.
type BlockedError struct {
	Decision decision.Decision
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("runtime: execution blocked, verdict %s", e.Decision.Verdict.Type)
}

func (e *BlockedError) Unwrap() error { return ErrExecutionBlocked }

// Result is the outcome of an orchestrated execution.
type Result struct {
	Decision decision.Decision
	Output   any

	// Set on the scope-bound paths.
	Scope     *scope.Scope
	SessionID string
	Nonce     string
}

// Orchestrator runs wallet operations behind the policy engine.
//
// Executions for the same wallet serialize; different wallets proceed
// independently. Waiting respects the caller's context.
type Orchestrator struct {
	engine *decision.Engine
	logger *slog.Logger

	scopeTTL time.Duration

	wallets *syncutil.ContextShardedMutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithScopeTTL overrides the lifetime of scopes bound on the scoped paths.
func WithScopeTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) { o.scopeTTL = ttl }
}

// NewOrchestrator creates an orchestrator over the given decision engine.
// A nil engine gets the default policy and classifiers.
func NewOrchestrator(engine *decision.Engine, opts ...Option) *Orchestrator {
	if engine == nil {
		engine = decision.NewEngine(nil, nil)
	}
	o := &Orchestrator{
		engine:   engine,
		logger:   slog.Default(),
		scopeTTL: scope.DefaultScopeTTL,
		wallets:  syncutil.NewContextShardedMutex(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Engine returns the underlying decision engine.
func (o *Orchestrator) Engine() *decision.Engine { return o.engine }

// Execute decides and, on ALLOW, runs the executor directly.
//
// The decision is made under the per-wallet lock, so two concurrent
// operations on the same wallet cannot interleave decide and execute.
func (o *Orchestrator) Execute(ctx context.Context, walletID string, dctx *decision.Context, exec scope.Executor) (*Result, error) {
	unlock, err := o.wallets.LockContext(ctx, walletID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	d, err := o.decide(ctx, walletID, dctx)
	if err != nil {
		return nil, err
	}

	output, err := exec(dctx)
	if err != nil {
		metrics.GuardedExecutionsTotal.WithLabelValues("executor_error").Inc()
		return &Result{Decision: *d}, err
	}
	metrics.GuardedExecutionsTotal.WithLabelValues("ok").Inc()
	return &Result{Decision: *d, Output: output}, nil
}

// ExecuteScoped decides, binds a single-use scope, and runs the executor
// through the scope's assertions.
func (o *Orchestrator) ExecuteScoped(ctx context.Context, walletID string, dctx *decision.Context, exec scope.Executor) (*Result, error) {
	unlock, err := o.wallets.LockContext(ctx, walletID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	d, err := o.decide(ctx, walletID, dctx)
	if err != nil {
		return nil, err
	}

	sc, err := o.bind(*d, walletID, dctx)
	if err != nil {
		return nil, err
	}

	res, err := scope.ExecuteWithScope(sc, dctx, walletID, dctx.Action.Action, exec, 0)
	if err != nil {
		metrics.GuardedExecutionsTotal.WithLabelValues(executionResultLabel(err)).Inc()
		return &Result{Decision: *d, Scope: &sc}, err
	}
	metrics.GuardedExecutionsTotal.WithLabelValues("ok").Inc()
	return &Result{Decision: *d, Output: res.Output, Scope: &sc}, nil
}

// ExecuteInSession decides, binds a scope, and runs the executor guarded by
// the session's nonce ledger. The nonce is issued here and consumed exactly
// once; a failed executor still burns it.
func (o *Orchestrator) ExecuteInSession(ctx context.Context, ses *scope.Session, walletID string, dctx *decision.Context, exec scope.Executor) (*Result, error) {
	unlock, err := o.wallets.LockContext(ctx, walletID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	d, err := o.decide(ctx, walletID, dctx)
	if err != nil {
		return nil, err
	}

	sc, err := o.bind(*d, walletID, dctx)
	if err != nil {
		return nil, err
	}

	nonce := ses.IssueNonce()
	res, err := scope.ExecuteGuarded(sc, ses, nonce, dctx, walletID, dctx.Action.Action, exec, 0)
	if err != nil {
		metrics.GuardedExecutionsTotal.WithLabelValues(executionResultLabel(err)).Inc()
		return &Result{Decision: *d, Scope: &sc, SessionID: ses.ID, Nonce: nonce}, err
	}
	metrics.GuardedExecutionsTotal.WithLabelValues("ok").Inc()
	return &Result{
		Decision:  *d,
		Output:    res.Output,
		Scope:     &sc,
		SessionID: ses.ID,
		Nonce:     nonce,
	}, nil
}

func (o *Orchestrator) decide(ctx context.Context, walletID string, dctx *decision.Context) (*decision.Decision, error) {
	action := ""
	if dctx.Action != nil {
		action = dctx.Action.Action
	}

	_, span := traces.StartSpan(ctx, "runtime.decide",
		traces.WalletID(walletID),
		traces.Action(action),
	)
	defer span.End()

	d, err := o.engine.Decide(dctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		traces.VerdictType(string(d.Verdict.Type)),
		traces.ContextHash(d.ContextHash),
	)
	metrics.DecisionsTotal.WithLabelValues(string(d.Verdict.Type)).Inc()
	if d.Verdict.IsStepUp() && d.Verdict.StepUp != nil && len(d.Verdict.StepUp.Requirements) > 0 {
		metrics.StepUpsTotal.WithLabelValues(d.Verdict.StepUp.Requirements[0]).Inc()
	}

	if !d.Verdict.IsAllow() {
		o.logger.Info("execution blocked",
			"wallet_id", walletID,
			"action", action,
			"verdict", d.Verdict.Type,
			"context_hash", d.ContextHash,
		)
		return nil, &BlockedError{Decision: d}
	}

	o.logger.Debug("execution allowed",
		"wallet_id", walletID,
		"action", action,
		"context_hash", d.ContextHash,
	)
	return &d, nil
}

func (o *Orchestrator) bind(d decision.Decision, walletID string, dctx *decision.Context) (scope.Scope, error) {
	sc, err := scope.Bind(d, walletID, dctx.Action.Action, o.scopeTTL, 0)
	if err != nil {
		metrics.ScopeBindingsTotal.WithLabelValues("rejected").Inc()
		return scope.Scope{}, err
	}
	metrics.ScopeBindingsTotal.WithLabelValues("ok").Inc()
	return sc, nil
}

func executionResultLabel(err error) string {
	var serr *scope.Error
	if errors.As(err, &serr) {
		return serr.Code
	}
	return "executor_error"
}
