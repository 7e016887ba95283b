package decision

import "strings"

// Signals are named, side-effect-free facts computed from a context.
// They feed audit logs and telemetry, never the verdict itself.
type Signals map[string]any

// Classifier extracts a named signal bundle from a context.
// Implementations must be deterministic and must not return verdicts.
type Classifier interface {
	Name() string
	Classify(ctx *Context) Signals
}

// DeviceClassifier extracts device and environment signals.
type DeviceClassifier struct{}

func (DeviceClassifier) Name() string { return "device" }

func (DeviceClassifier) Classify(ctx *Context) Signals {
	d := ctx.Device
	dt := strings.ToLower(d.DeviceType)
	return Signals{
		"device_id":     d.DeviceID,
		"device_type":   d.DeviceType,
		"os":            d.OS,
		"trusted":       d.Trusted,
		"first_seen_ts": d.FirstSeenTS,
		"is_new_device": !d.Trusted && d.FirstSeenTS == 0,
		"is_browser":    dt == "browser",
		"is_extension":  dt == "extension" || dt == "browser_extension",
	}
}

// TransactionClassifier extracts transaction-level signals. No thresholds are
// enforced here; the policy decides what the numbers mean.
type TransactionClassifier struct{}

func (TransactionClassifier) Name() string { return "transaction" }

func (TransactionClassifier) Classify(ctx *Context) Signals {
	action := strings.ToLower(ctx.Action.Action)
	return Signals{
		"is_send":       action == "send",
		"is_mint":       action == "mint",
		"is_redeem":     action == "redeem",
		"amount":        ctx.Action.Amount,
		"has_amount":    ctx.Action.Amount != 0,
		"has_recipient": ctx.Action.Recipient != "",
		"recipient":     ctx.Action.Recipient,
		"fee_rate":      ctx.Network.FeeRate,
		"has_fee_rate":  ctx.Network.FeeRate != 0,
		"asset":         ctx.Action.Asset,
	}
}

// DefaultClassifiers returns the baseline classifier set.
func DefaultClassifiers() []Classifier {
	return []Classifier{TransactionClassifier{}, DeviceClassifier{}}
}

// ClassifyAll runs the classifiers in order and returns their bundles keyed
// by classifier name.
func ClassifyAll(ctx *Context, classifiers []Classifier) map[string]Signals {
	if classifiers == nil {
		classifiers = DefaultClassifiers()
	}
	out := make(map[string]Signals, len(classifiers))
	for _, c := range classifiers {
		out[c.Name()] = c.Classify(ctx)
	}
	return out
}
