package approval

import (
	"testing"
	"time"
)

func TestBuildUIPayload_Allow(t *testing.T) {
	eng := newTestEngine()
	p := eng.BuildUIPayload(VerdictAllow, nil)

	if p.SchemaVersion != SchemaVersion {
		t.Errorf("schema version %q", p.SchemaVersion)
	}
	if p.NeedsApproval {
		t.Error("ALLOW must not need approval")
	}
	if len(p.Codes) != 1 || p.Codes[0] != "GUARDIAN_ALLOW" {
		t.Errorf("codes: %v", p.Codes)
	}
	if len(p.NextActions) != 0 {
		t.Errorf("next actions: %v", p.NextActions)
	}
	if p.Guardians == nil || p.Codes == nil {
		t.Error("slices must be non-nil for JSON clients")
	}
}

func TestBuildUIPayload_RequireApproval(t *testing.T) {
	eng := newTestEngine()
	_, req := eng.Evaluate(ActionContext{Action: ActionSend, WalletID: "w1", Value: 50_000})

	_ = eng.ApplyDecision(req, "g1", StatusApproved, "")

	p := eng.BuildUIPayload(VerdictRequireApproval, req)
	if !p.NeedsApproval {
		t.Error("expected NeedsApproval")
	}
	if p.ApprovalRequestID != req.ID || p.RuleID != "r_send_large" {
		t.Errorf("request linkage: %q %q", p.ApprovalRequestID, p.RuleID)
	}
	if len(p.NextActions) != 1 || p.NextActions[0] != "await_guardian_approval" {
		t.Errorf("next actions: %v", p.NextActions)
	}
	if len(p.Guardians) != 3 {
		t.Fatalf("expected 3 guardian views, got %d", len(p.Guardians))
	}
	if p.Guardians[0].Label == "" {
		t.Error("guardian view missing label")
	}
	if p.Status == nil {
		t.Fatal("expected status view")
	}
	if p.Status.TotalRequired != 3 || p.Status.Approved != 1 || p.Status.Pending != 2 {
		t.Errorf("status view: %+v", p.Status)
	}
}

func TestBuildUIPayload_UnknownGuardianFallback(t *testing.T) {
	eng := newTestEngine()
	req := storedRequest("apr_1", "w1", StatusPending, time.Unix(1_700_000_000, 0))
	req.RequiredGuardians = []string{"ghost"}

	p := eng.BuildUIPayload(VerdictRequireApproval, req)
	if len(p.Guardians) != 1 {
		t.Fatalf("expected 1 guardian view, got %d", len(p.Guardians))
	}
	if p.Guardians[0].ID != "ghost" || p.Guardians[0].Label != "ghost" {
		t.Errorf("fallback view: %+v", p.Guardians[0])
	}
}

func TestPresets(t *testing.T) {
	solo := SoloPlusGuardianPreset("g1")
	if len(solo.Rules) != 3 {
		t.Errorf("solo preset: %d rules", len(solo.Rules))
	}
	for _, r := range solo.Rules {
		if r.IsBlock() {
			t.Errorf("solo preset rule %s must not block", r.ID)
		}
		if r.MinApprovals != 1 {
			t.Errorf("solo preset rule %s: min approvals %d", r.ID, r.MinApprovals)
		}
	}

	family := FamilyPreset([]string{"g1", "g2", "g3"})
	for _, r := range family.Rules {
		if r.MinApprovals != 2 {
			t.Errorf("family preset rule %s: min approvals %d", r.ID, r.MinApprovals)
		}
	}
	if *family.Rules[0].ThresholdValue != 10_000*DGBAtoms {
		t.Errorf("family send threshold: %d", *family.Rules[0].ThresholdValue)
	}

	hs := HighSecurityPreset([]string{"g1", "g2"}, 2)
	if !hs.Rules[0].IsBlock() {
		t.Error("high security preset must block device binding")
	}
	eng := NewEngine(testGuardians(), hs.Rules)
	if verdict, _ := eng.Evaluate(ActionContext{Action: ActionDeviceBind}); verdict != VerdictBlock {
		t.Errorf("device bind under high security: %s", verdict)
	}
	if verdict, _ := eng.Evaluate(ActionContext{Action: ActionSend, Value: 1}); verdict != VerdictRequireApproval {
		t.Errorf("tiny send under high security: %s", verdict)
	}
}
