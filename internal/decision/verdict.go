package decision

// VerdictType is the high-level gate result.
type VerdictType string

const (
	// VerdictAllow means the operation may proceed (and only then may an
	// execution scope be bound).
	VerdictAllow VerdictType = "ALLOW"
	// VerdictDeny means the operation must not proceed.
	VerdictDeny VerdictType = "DENY"
	// VerdictStepUp means the operation requires additional assurances
	// (re-auth, second factor) before being re-evaluated.
	VerdictStepUp VerdictType = "STEP_UP"
)

// ReasonCode is a stable identifier for audit logs, UI, and tests.
// Codes are part of the cross-client contract; never repurpose one.
type ReasonCode string

const (
	// Generic / framework
	CodePolicyRuleMatch ReasonCode = "POLICY_RULE_MATCH"
	CodeMissingContext  ReasonCode = "MISSING_CONTEXT"
	CodeInvalidContext  ReasonCode = "INVALID_CONTEXT"

	// Risk signals
	CodeHighRiskScore          ReasonCode = "HIGH_RISK_SCORE"
	CodeNewDevice              ReasonCode = "NEW_DEVICE"
	CodeNewRecipient           ReasonCode = "NEW_RECIPIENT"
	CodeLargeAmount            ReasonCode = "LARGE_AMOUNT"
	CodeUnusualFee             ReasonCode = "UNUSUAL_FEE"
	CodeRapidSuccessiveActions ReasonCode = "RAPID_SUCCESSIVE_ACTIONS"
	CodeGeoAnomaly             ReasonCode = "GEO_ANOMALY"
	CodeTimeAnomaly            ReasonCode = "TIME_ANOMALY"

	// Architecture enforcement
	CodeBrowserContextBlocked   ReasonCode = "BROWSER_CONTEXT_BLOCKED"
	CodeExtensionContextBlocked ReasonCode = "EXTENSION_CONTEXT_BLOCKED"
	CodeSeedExposureRisk        ReasonCode = "SEED_EXPOSURE_RISK"

	// Asset / protocol
	CodeMintRedeemStepUp      ReasonCode = "MINT_REDEEM_REQUIRES_STEP_UP"
	CodePolicyDisallowsAction ReasonCode = "POLICY_DISALLOWS_ACTION"
)

// Step-up requirement names. Selection order is deterministic: biometric,
// then pin, then local_confirmation as the fallback.
const (
	RequirementBiometric         = "biometric"
	RequirementPIN               = "pin"
	RequirementLocalConfirmation = "local_confirmation"
)

// Reason is a single machine- and human-readable explanation for a verdict.
type Reason struct {
	Code    ReasonCode     `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// StepUp lists the additional checks required before the operation can be
// re-submitted. Requirements is never empty on a STEP_UP verdict.
type StepUp struct {
	Requirements []string `json:"requirements"`
	Message      string   `json:"message"`
}

// Verdict is the final engine output. Exactly one terminal type per
// evaluation; reasons accumulate in order and are never replaced.
type Verdict struct {
	Type    VerdictType `json:"type"`
	Reasons []Reason    `json:"reasons"`
	StepUp  *StepUp     `json:"stepUp,omitempty"`
}

// IsAllow reports whether the verdict permits execution.
func (v Verdict) IsAllow() bool { return v.Type == VerdictAllow }

// IsDeny reports whether the verdict forbids execution.
func (v Verdict) IsDeny() bool { return v.Type == VerdictDeny }

// IsStepUp reports whether the verdict requires additional verification.
func (v Verdict) IsStepUp() bool { return v.Type == VerdictStepUp }

// Allow constructs an ALLOW verdict.
func Allow(reasons ...Reason) Verdict {
	return Verdict{Type: VerdictAllow, Reasons: reasons}
}

// Deny constructs a DENY verdict.
func Deny(reasons ...Reason) Verdict {
	return Verdict{Type: VerdictDeny, Reasons: reasons}
}

// RequireStepUp constructs a STEP_UP verdict with the given requirements.
func RequireStepUp(stepUp StepUp, reasons ...Reason) Verdict {
	return Verdict{Type: VerdictStepUp, Reasons: reasons, StepUp: &stepUp}
}
