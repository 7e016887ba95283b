package approval

import (
	"time"

	"github.com/mbd888/adamantine/internal/idgen"
	"github.com/mbd888/adamantine/internal/syncutil"
)

// DefaultRequestExpiry is how long a pending request stays actionable.
// Expiry is checked lazily: the first Evaluate/ApplyDecision/Refresh touch
// past the deadline flips a PENDING request to EXPIRED.
const DefaultRequestExpiry = 24 * time.Hour

// Engine evaluates guardian rules against requested actions and records
// guardian votes.
//
// Rules are an ordered catalog: the first matching rule that requires
// approval names the request. Vote application serializes per request id via
// a sharded mutex; votes on different requests proceed independently.
type Engine struct {
	guardians map[string]Guardian
	rules     []Rule
	rulesByID map[string]Rule

	expiry time.Duration
	now    func() time.Time

	votes syncutil.ShardedMutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects a time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRequestExpiry overrides the default pending-request expiry.
func WithRequestExpiry(d time.Duration) Option {
	return func(e *Engine) { e.expiry = d }
}

// NewEngine creates an engine over the given guardian set and rule catalog.
// Rule order matters; it is preserved from the caller's configuration.
func NewEngine(guardians []Guardian, rules []Rule, opts ...Option) *Engine {
	e := &Engine{
		guardians: make(map[string]Guardian, len(guardians)),
		rules:     rules,
		rulesByID: make(map[string]Rule, len(rules)),
		expiry:    DefaultRequestExpiry,
		now:       time.Now,
	}
	for _, g := range guardians {
		e.guardians[g.ID] = g
	}
	for _, r := range rules {
		e.rulesByID[r.ID] = r
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LockRequest acquires the per-request lock and returns its unlock func.
//
// Callers that load a request from a store, mutate it, and write it back must
// hold this lock across the whole read-modify-write. Locking only the
// mutation leaves a window where two overlapping votes each load their own
// copy and the second write erases the first.
func (e *Engine) LockRequest(id string) (unlock func()) {
	return e.votes.Lock(id)
}

// Guardian returns the guardian with the given id, if known.
func (e *Engine) Guardian(id string) (Guardian, bool) {
	g, ok := e.guardians[id]
	return g, ok
}

// Rule returns the rule with the given id, if known.
func (e *Engine) Rule(id string) (Rule, bool) {
	r, ok := e.rulesByID[id]
	return r, ok
}

// Evaluate determines the outcome for a requested action.
//
// Any matching unconditional block rule wins immediately. Otherwise the first
// matching rule whose threshold the action meets (rules without a threshold
// always require approval) produces a PENDING Request; if no rule requires
// approval the action is allowed with no request.
func (e *Engine) Evaluate(ctx ActionContext) (Verdict, *Request) {
	matching := e.matchRules(ctx)
	if len(matching) == 0 {
		return VerdictAllow, nil
	}

	for _, rule := range matching {
		if rule.IsBlock() {
			return VerdictBlock, nil
		}
	}

	rule, required := e.requiresApproval(ctx, matching)
	if !required {
		return VerdictAllow, nil
	}

	now := e.now()
	req := &Request{
		ID:                idgen.WithPrefix("apr_"),
		RuleID:            rule.ID,
		Action:            ctx.Action,
		Scope:             rule.Scope,
		WalletID:          ctx.WalletID,
		AccountID:         ctx.AccountID,
		AssetID:           ctx.AssetID,
		Value:             ctx.Value,
		Description:       ctx.Description,
		RequiredGuardians: append([]string(nil), rule.GuardianIDs...),
		Decisions:         []Decision{},
		Status:            StatusPending,
		CreatedAt:         now,
		ExpiresAt:         now.Add(e.expiry),
		UpdatedAt:         now,
	}
	return VerdictRequireApproval, req
}

func (e *Engine) matchRules(ctx ActionContext) []Rule {
	var matching []Rule
	for _, rule := range e.rules {
		if rule.Action != ctx.Action {
			continue
		}
		if rule.Scope == ScopeAccount && rule.AccountID != ctx.AccountID {
			continue
		}
		if rule.Scope == ScopeAsset && rule.AssetID != ctx.AssetID {
			continue
		}
		matching = append(matching, rule)
	}
	return matching
}

func (e *Engine) requiresApproval(ctx ActionContext, rules []Rule) (Rule, bool) {
	for _, rule := range rules {
		if rule.ThresholdValue == nil {
			return rule, true
		}
		if ctx.Value >= *rule.ThresholdValue {
			return rule, true
		}
	}
	return Rule{}, false
}

// ApplyDecision records a guardian's vote on a request.
//
// Re-voting by the same guardian replaces their prior vote. A single
// REJECTED vote forces the request to REJECTED; APPROVED votes from distinct
// guardians accumulate until the rule's minimum is reached. Terminal requests
// (including lazily expired ones) reject further votes with
// ErrRequestTerminal.
func (e *Engine) ApplyDecision(req *Request, guardianID string, status Status, reason string) error {
	unlock := e.votes.Lock(req.ID)
	defer unlock()
	return e.applyDecisionLocked(req, guardianID, status, reason)
}

// applyDecisionLocked is ApplyDecision for callers already holding the
// per-request lock (LockRequest).
func (e *Engine) applyDecisionLocked(req *Request, guardianID string, status Status, reason string) error {
	now := e.now()
	e.expireLocked(req, now)
	if req.IsTerminal() {
		return ErrRequestTerminal
	}

	// Replace any prior vote by the same guardian.
	kept := req.Decisions[:0]
	for _, d := range req.Decisions {
		if d.GuardianID != guardianID {
			kept = append(kept, d)
		}
	}
	req.Decisions = append(kept, Decision{
		GuardianID: guardianID,
		Status:     status,
		Reason:     reason,
		VotedAt:    now,
	})
	req.UpdatedAt = now

	if status == StatusRejected {
		req.Status = StatusRejected
		return nil
	}

	rule, ok := e.rulesByID[req.RuleID]
	if !ok {
		return ErrUnknownRule
	}
	if req.ApprovalsCount() >= rule.MinApprovals {
		req.Status = StatusApproved
	}
	return nil
}

// Cancel moves a non-terminal request to CANCELLED. Cancellation is
// caller-driven; the engine never cancels on its own.
func (e *Engine) Cancel(req *Request) error {
	unlock := e.votes.Lock(req.ID)
	defer unlock()
	return e.cancelLocked(req)
}

func (e *Engine) cancelLocked(req *Request) error {
	e.expireLocked(req, e.now())
	if req.IsTerminal() {
		return ErrRequestTerminal
	}
	req.Status = StatusCancelled
	req.UpdatedAt = e.now()
	return nil
}

// Refresh applies the lazy expiry check and reports whether the request
// transitioned to EXPIRED. Read paths call this so a long-pending request can
// never silently unblock.
func (e *Engine) Refresh(req *Request) bool {
	unlock := e.votes.Lock(req.ID)
	defer unlock()
	return e.refreshLocked(req)
}

func (e *Engine) refreshLocked(req *Request) bool {
	before := req.Status
	e.expireLocked(req, e.now())
	return before == StatusPending && req.Status == StatusExpired
}

// expireLocked flips a PENDING request past its deadline to EXPIRED.
// Caller must hold the per-request lock.
func (e *Engine) expireLocked(req *Request, now time.Time) {
	if req.Status == StatusPending && !req.ExpiresAt.IsZero() && now.After(req.ExpiresAt) {
		req.Status = StatusExpired
		req.UpdatedAt = now
	}
}
