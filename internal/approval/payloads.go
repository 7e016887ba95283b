package approval

import "time"

// SchemaVersion is the UI payload contract version. Bump only on breaking
// changes; additive optional fields keep the same version.
const SchemaVersion = "1"

// GuardianView is the minimal guardian info safe to show in a wallet UI.
type GuardianView struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Role    string `json:"role"`
	Contact string `json:"contact,omitempty"`
	Status  string `json:"status"`
}

// StatusView aggregates approvals vs rejections vs outstanding votes.
type StatusView struct {
	TotalRequired int `json:"totalRequired"`
	Approved      int `json:"approved"`
	Rejected      int `json:"rejected"`
	Pending       int `json:"pending"`
}

// UIPayload is the stable client-facing view of a guardian evaluation.
// Clients should prefer the machine-facing fields over parsing messages.
type UIPayload struct {
	SchemaVersion string `json:"schemaVersion"`

	Verdict       Verdict `json:"verdict"`
	NeedsApproval bool    `json:"needsApproval"`

	ShortMessage string `json:"shortMessage"`
	LongMessage  string `json:"longMessage,omitempty"`

	Codes       []string `json:"codes"`
	NextActions []string `json:"nextActions"`

	ApprovalRequestID string `json:"approvalRequestId,omitempty"`
	RuleID            string `json:"ruleId,omitempty"`
	RuleDescription   string `json:"ruleDescription,omitempty"`

	Guardians []GuardianView `json:"guardians"`
	Status    *StatusView    `json:"status,omitempty"`

	TimestampMS int64 `json:"timestampMs"`
}

// BuildUIPayload converts an evaluation outcome into the UI contract form.
func (e *Engine) BuildUIPayload(verdict Verdict, req *Request) UIPayload {
	p := UIPayload{
		SchemaVersion: SchemaVersion,
		Verdict:       verdict,
		NeedsApproval: verdict == VerdictRequireApproval,
		Guardians:     []GuardianView{},
		Codes:         []string{},
		NextActions:   []string{},
		TimestampMS:   e.now().UnixMilli(),
	}

	switch verdict {
	case VerdictAllow:
		p.ShortMessage = "Action allowed."
		p.Codes = append(p.Codes, "GUARDIAN_ALLOW")
	case VerdictBlock:
		p.ShortMessage = "Action blocked by guardian rule."
		p.Codes = append(p.Codes, "GUARDIAN_BLOCK")
	case VerdictRequireApproval:
		p.ShortMessage = "Guardian approval required."
		p.Codes = append(p.Codes, "GUARDIAN_APPROVAL_REQUIRED")
		p.NextActions = append(p.NextActions, "await_guardian_approval")
	}

	if req == nil {
		return p
	}

	p.ApprovalRequestID = req.ID
	p.RuleID = req.RuleID
	if rule, ok := e.rulesByID[req.RuleID]; ok {
		p.RuleDescription = rule.Description
	}

	for _, gid := range req.RequiredGuardians {
		if g, ok := e.guardians[gid]; ok {
			p.Guardians = append(p.Guardians, GuardianView{
				ID:      g.ID,
				Label:   g.Label,
				Role:    string(g.Role),
				Contact: g.Contact,
				Status:  string(g.Status),
			})
		} else {
			p.Guardians = append(p.Guardians, GuardianView{ID: gid, Label: gid, Status: string(GuardianActive)})
		}
	}

	approved := req.ApprovalsCount()
	rejected := req.RejectionsCount()
	totalRequired := len(req.RequiredGuardians)
	pending := totalRequired - approved - rejected
	if pending < 0 {
		pending = 0
	}
	p.Status = &StatusView{
		TotalRequired: totalRequired,
		Approved:      approved,
		Rejected:      rejected,
		Pending:       pending,
	}
	return p
}

// Age returns how long the request has been open, for UI ordering.
func (r *Request) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}
