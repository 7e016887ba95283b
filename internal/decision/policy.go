package decision

import (
	"fmt"
	"strings"
)

// DefaultLargeAmountThreshold is the baseline step-up threshold in atomic
// units (e.g. satoshis). Tunable per deployment via config.
const DefaultLargeAmountThreshold int64 = 10_000_000

// Rule is a single ordered policy rule.
//
// When the predicate matches, Outcome may still return nil to let evaluation
// continue; a non-nil Verdict terminates evaluation immediately.
type Rule struct {
	Name    string
	When    func(*Context) bool
	Outcome func(*Context) *Verdict
}

// Policy applies rules in list order and returns the first terminal verdict.
//
// Ordering matters: hard blocks first, then step-up rules, then allow rules.
// If no rule terminates, the result is an explicit DEFAULT_ALLOW so the
// fallthrough is auditable rather than implicit.
type Policy struct {
	Rules []Rule
}

// Evaluate produces a Verdict for the given context. It is pure: no I/O, no
// randomness, no clock reads.
func (p *Policy) Evaluate(ctx *Context) Verdict {
	if !ctx.Complete() {
		return Deny(Reason{
			Code:    CodeMissingContext,
			Message: "Missing required context fields.",
		})
	}

	for _, rule := range p.Rules {
		if !rule.When(ctx) {
			continue
		}
		out := rule.Outcome(ctx)
		if out == nil {
			continue
		}
		return annotateRuleMatch(*out, rule.Name)
	}

	return Allow(Reason{
		Code:    CodePolicyRuleMatch,
		Message: "No policy rules blocked the action.",
		Details: map[string]any{"rule": "DEFAULT_ALLOW"},
	})
}

// annotateRuleMatch prefixes the matched rule's name to the verdict's reason
// list unless the rule already recorded a POLICY_RULE_MATCH itself.
func annotateRuleMatch(v Verdict, ruleName string) Verdict {
	for _, r := range v.Reasons {
		if r.Code == CodePolicyRuleMatch {
			return v
		}
	}
	reasons := make([]Reason, 0, len(v.Reasons)+1)
	reasons = append(reasons, Reason{
		Code:    CodePolicyRuleMatch,
		Message: fmt.Sprintf("Matched policy rule: %s", ruleName),
		Details: map[string]any{"rule": ruleName},
	})
	reasons = append(reasons, v.Reasons...)
	return Verdict{Type: v.Type, Reasons: reasons, StepUp: v.StepUp}
}

// DefaultPolicy returns the baseline rule set.
//
// Hard blocks come first (browser and extension contexts can never sign or
// touch seed material), then the step-up rules for mint/redeem flows, large
// amounts, and untrusted devices.
func DefaultPolicy(largeAmountThreshold int64) *Policy {
	if largeAmountThreshold <= 0 {
		largeAmountThreshold = DefaultLargeAmountThreshold
	}

	return &Policy{Rules: []Rule{
		{
			Name: "HARD_BLOCK_BROWSER_CONTEXT",
			When: func(ctx *Context) bool {
				return strings.EqualFold(ctx.Device.DeviceType, "browser")
			},
			Outcome: func(ctx *Context) *Verdict {
				v := Deny(Reason{
					Code:    CodeBrowserContextBlocked,
					Message: "Browser context is not permitted for sensitive operations.",
					Details: map[string]any{"deviceType": ctx.Device.DeviceType},
				})
				return &v
			},
		},
		{
			Name: "HARD_BLOCK_EXTENSION_CONTEXT",
			When: func(ctx *Context) bool {
				dt := strings.ToLower(ctx.Device.DeviceType)
				return dt == "extension" || dt == "browser_extension"
			},
			Outcome: func(ctx *Context) *Verdict {
				v := Deny(Reason{
					Code:    CodeExtensionContextBlocked,
					Message: "Extension context is not permitted for signing or seed handling.",
					Details: map[string]any{"deviceType": ctx.Device.DeviceType},
				})
				return &v
			},
		},
		{
			Name: "STEP_UP_FOR_MINT_REDEEM",
			When: isMintOrRedeem,
			Outcome: func(ctx *Context) *Verdict {
				v := RequireStepUp(
					StepUp{
						Requirements: StepUpRequirements(ctx),
						Message:      "Mint/Redeem requires step-up verification.",
					},
					Reason{
						Code:    CodeMintRedeemStepUp,
						Message: "Sensitive monetary action requires additional verification.",
						Details: map[string]any{"action": ctx.Action.Action, "asset": ctx.Action.Asset},
					},
				)
				return &v
			},
		},
		{
			Name: "STEP_UP_FOR_LARGE_AMOUNT",
			When: func(ctx *Context) bool {
				return ctx.Action.Amount >= largeAmountThreshold
			},
			Outcome: func(ctx *Context) *Verdict {
				v := RequireStepUp(
					StepUp{
						Requirements: StepUpRequirements(ctx),
						Message:      "Large amount requires step-up verification.",
					},
					Reason{
						Code:    CodeLargeAmount,
						Message: "Amount exceeds baseline step-up threshold.",
						Details: map[string]any{"amount": ctx.Action.Amount, "threshold": largeAmountThreshold},
					},
				)
				return &v
			},
		},
		{
			Name: "STEP_UP_FOR_UNTRUSTED_DEVICE",
			When: func(ctx *Context) bool {
				return !ctx.Device.Trusted
			},
			Outcome: func(ctx *Context) *Verdict {
				v := RequireStepUp(
					StepUp{
						Requirements: StepUpRequirements(ctx),
						Message:      "Untrusted device requires step-up verification.",
					},
					Reason{
						Code:    CodeNewDevice,
						Message: "Device is not yet trusted.",
						Details: map[string]any{"deviceId": ctx.Device.DeviceID},
					},
				)
				return &v
			},
		},
	}}
}

func isMintOrRedeem(ctx *Context) bool {
	a := strings.ToLower(ctx.Action.Action)
	if a == "mint" || a == "redeem" {
		return true
	}
	// Synthetic-asset issue/burn is the same monetary flow under another name.
	if strings.EqualFold(ctx.Action.Asset, "digidollar") && (a == "issue" || a == "burn") {
		return true
	}
	return false
}

// StepUpRequirements picks the strongest available local checks,
// deterministically: biometric, then pin, then local_confirmation if neither
// is available. The result is never empty.
func StepUpRequirements(ctx *Context) []string {
	var req []string
	if ctx.User.BiometricAvailable {
		req = append(req, RequirementBiometric)
	}
	if ctx.User.PINSet {
		req = append(req, RequirementPIN)
	}
	if len(req) == 0 {
		req = append(req, RequirementLocalConfirmation)
	}
	return req
}
