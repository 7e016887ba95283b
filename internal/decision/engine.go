package decision

// Decision is the full engine output: verdict, the hash of the context it was
// produced from, and classifier signals for audit/UI.
type Decision struct {
	Verdict     Verdict            `json:"verdict"`
	ContextHash string             `json:"contextHash"`
	Signals     map[string]Signals `json:"signals"`
}

// Engine evaluates contexts against a policy and a classifier set.
//
// Both are explicit configuration passed in by the caller; there is no global
// default instance, so tests and embedders always get isolated engines.
// The engine is stateless and safe for concurrent use.
type Engine struct {
	policy      *Policy
	classifiers []Classifier
}

// NewEngine creates an engine. A nil policy selects the baseline rule set
// with the default large-amount threshold; nil classifiers select the
// baseline classifier set.
func NewEngine(policy *Policy, classifiers []Classifier) *Engine {
	if policy == nil {
		policy = DefaultPolicy(DefaultLargeAmountThreshold)
	}
	if classifiers == nil {
		classifiers = DefaultClassifiers()
	}
	return &Engine{policy: policy, classifiers: classifiers}
}

// Evaluate returns only the Verdict (minimal API).
func (e *Engine) Evaluate(ctx *Context) Verdict {
	return e.policy.Evaluate(ctx)
}

// Classify runs the configured classifiers against the context.
func (e *Engine) Classify(ctx *Context) map[string]Signals {
	return ClassifyAll(ctx, e.classifiers)
}

// Decide returns the verdict together with the context hash and classifier
// signals. The hash is the binding key consumed by the execution gate.
func (e *Engine) Decide(ctx *Context) (Decision, error) {
	hash, err := ctx.Hash()
	if err != nil {
		return Decision{}, err
	}
	d := Decision{
		Verdict:     e.policy.Evaluate(ctx),
		ContextHash: hash,
	}
	// Classifiers read all four sub-records; an incomplete context already
	// produced a MISSING_CONTEXT denial above, so skip signals for it.
	if ctx.Complete() {
		d.Signals = e.Classify(ctx)
	}
	return d, nil
}
