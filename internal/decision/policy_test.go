package decision

import (
	"testing"
)

func trustedContext() *Context {
	return &Context{
		Action:    &ActionContext{Action: "send", Asset: "DGB", Amount: 500, Recipient: "D8xk..."},
		Device:    &DeviceContext{DeviceID: "dev-1", DeviceType: "mobile", OS: "ios", Trusted: true},
		Network:   &NetworkContext{Network: "mainnet", FeeRate: 10, PeerCount: 8},
		User:      &UserContext{UserID: "u1", BiometricAvailable: true, PINSet: true},
		Timestamp: 1700000000,
	}
}

func TestEvaluate_DefaultAllow(t *testing.T) {
	p := DefaultPolicy(0)
	v := p.Evaluate(trustedContext())

	if !v.IsAllow() {
		t.Fatalf("expected ALLOW, got %s", v.Type)
	}
	if len(v.Reasons) != 1 {
		t.Fatalf("expected 1 reason, got %d", len(v.Reasons))
	}
	if v.Reasons[0].Details["rule"] != "DEFAULT_ALLOW" {
		t.Errorf("expected explicit DEFAULT_ALLOW marker, got %v", v.Reasons[0].Details)
	}
}

func TestEvaluate_MissingContext(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Context)
	}{
		{"nil action", func(c *Context) { c.Action = nil }},
		{"nil device", func(c *Context) { c.Device = nil }},
		{"nil network", func(c *Context) { c.Network = nil }},
		{"nil user", func(c *Context) { c.User = nil }},
	}

	p := DefaultPolicy(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := trustedContext()
			tt.mutate(ctx)
			v := p.Evaluate(ctx)
			if !v.IsDeny() {
				t.Fatalf("expected DENY, got %s", v.Type)
			}
			if v.Reasons[0].Code != CodeMissingContext {
				t.Errorf("expected MISSING_CONTEXT, got %s", v.Reasons[0].Code)
			}
		})
	}
}

func TestEvaluate_BrowserAndExtensionAlwaysDeny(t *testing.T) {
	p := DefaultPolicy(0)

	tests := []struct {
		deviceType string
		wantCode   ReasonCode
	}{
		{"browser", CodeBrowserContextBlocked},
		{"Browser", CodeBrowserContextBlocked},
		{"extension", CodeExtensionContextBlocked},
		{"browser_extension", CodeExtensionContextBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.deviceType, func(t *testing.T) {
			ctx := trustedContext()
			ctx.Device.DeviceType = tt.deviceType
			// Hard blocks win regardless of any other field.
			ctx.Action.Amount = 0
			ctx.Device.Trusted = true

			v := p.Evaluate(ctx)
			if !v.IsDeny() {
				t.Fatalf("expected DENY for %s, got %s", tt.deviceType, v.Type)
			}
			found := false
			for _, r := range v.Reasons {
				if r.Code == tt.wantCode {
					found = true
				}
			}
			if !found {
				t.Errorf("expected reason %s, got %+v", tt.wantCode, v.Reasons)
			}
		})
	}
}

func TestEvaluate_MintRedeemStepUp(t *testing.T) {
	p := DefaultPolicy(0)

	tests := []struct {
		name   string
		action string
		asset  string
	}{
		{"mint", "mint", "DigiDollar"},
		{"redeem", "redeem", "DigiDollar"},
		{"digidollar issue", "issue", "DigiDollar"},
		{"digidollar burn", "burn", "digidollar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := trustedContext()
			ctx.Action.Action = tt.action
			ctx.Action.Asset = tt.asset

			v := p.Evaluate(ctx)
			if !v.IsStepUp() {
				t.Fatalf("expected STEP_UP, got %s", v.Type)
			}
			if v.StepUp == nil || len(v.StepUp.Requirements) == 0 {
				t.Fatal("step-up requirements must never be empty")
			}
		})
	}
}

func TestEvaluate_NonSyntheticIssueIsNotStepUp(t *testing.T) {
	p := DefaultPolicy(0)
	ctx := trustedContext()
	ctx.Action.Action = "issue"
	ctx.Action.Asset = "DigiAsset"

	if v := p.Evaluate(ctx); !v.IsAllow() {
		t.Errorf("issue of a non-synthetic asset should fall through, got %s", v.Type)
	}
}

func TestEvaluate_LargeAmountStepUp(t *testing.T) {
	p := DefaultPolicy(1_000_000)

	ctx := trustedContext()
	ctx.Action.Amount = 1_000_000
	v := p.Evaluate(ctx)
	if !v.IsStepUp() {
		t.Fatalf("amount at threshold: expected STEP_UP, got %s", v.Type)
	}
	if v.StepUp == nil || len(v.StepUp.Requirements) == 0 {
		t.Fatal("step-up requirements must never be empty")
	}

	ctx = trustedContext()
	ctx.Action.Amount = 999_999
	if v := p.Evaluate(ctx); !v.IsAllow() {
		t.Errorf("amount below threshold: expected ALLOW, got %s", v.Type)
	}
}

func TestEvaluate_UntrustedDeviceStepUp(t *testing.T) {
	p := DefaultPolicy(0)
	ctx := trustedContext()
	ctx.Device.Trusted = false

	v := p.Evaluate(ctx)
	if !v.IsStepUp() {
		t.Fatalf("expected STEP_UP, got %s", v.Type)
	}
	if v.Reasons[1].Code != CodeNewDevice {
		t.Errorf("expected NEW_DEVICE reason, got %s", v.Reasons[1].Code)
	}
}

func TestEvaluate_HardBlockOrderedBeforeStepUp(t *testing.T) {
	// Browser context on an untrusted device with a huge mint must still DENY:
	// hard blocks are evaluated before any step-up rule.
	p := DefaultPolicy(0)
	ctx := trustedContext()
	ctx.Device.DeviceType = "browser"
	ctx.Device.Trusted = false
	ctx.Action.Action = "mint"
	ctx.Action.Amount = 999_999_999_999

	if v := p.Evaluate(ctx); !v.IsDeny() {
		t.Errorf("expected DENY, got %s", v.Type)
	}
}

func TestEvaluate_RuleMatchAnnotation(t *testing.T) {
	p := DefaultPolicy(0)
	ctx := trustedContext()
	ctx.Device.Trusted = false

	v := p.Evaluate(ctx)
	if v.Reasons[0].Code != CodePolicyRuleMatch {
		t.Fatalf("first reason should be POLICY_RULE_MATCH, got %s", v.Reasons[0].Code)
	}
	if v.Reasons[0].Details["rule"] != "STEP_UP_FOR_UNTRUSTED_DEVICE" {
		t.Errorf("expected rule name in details, got %v", v.Reasons[0].Details)
	}
}

func TestEvaluate_RuleCanDeclineToTerminate(t *testing.T) {
	calls := 0
	p := &Policy{Rules: []Rule{
		{
			Name:    "OBSERVE_ONLY",
			When:    func(*Context) bool { calls++; return true },
			Outcome: func(*Context) *Verdict { return nil },
		},
	}}

	v := p.Evaluate(trustedContext())
	if calls != 1 {
		t.Errorf("expected rule predicate to run once, got %d", calls)
	}
	if !v.IsAllow() {
		t.Errorf("nil outcome should fall through to DEFAULT_ALLOW, got %s", v.Type)
	}
}

func TestStepUpRequirements_Deterministic(t *testing.T) {
	tests := []struct {
		biometric bool
		pin       bool
		want      []string
	}{
		{true, true, []string{"biometric", "pin"}},
		{true, false, []string{"biometric"}},
		{false, true, []string{"pin"}},
		{false, false, []string{"local_confirmation"}},
	}

	for _, tt := range tests {
		ctx := trustedContext()
		ctx.User.BiometricAvailable = tt.biometric
		ctx.User.PINSet = tt.pin

		got := StepUpRequirements(ctx)
		if len(got) != len(tt.want) {
			t.Fatalf("(%v,%v): got %v, want %v", tt.biometric, tt.pin, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("(%v,%v): got %v, want %v", tt.biometric, tt.pin, got, tt.want)
			}
		}
	}
}
