// Package approval implements the guardian quorum workflow for wallet
// operations that policy marks as requiring human sign-off.
//
// A catalog of guardian rules decides whether a requested action passes
// immediately, is blocked outright, or pauses behind an ApprovalRequest that
// collects votes from a configured set of guardians. Quorum accounting is
// idempotent per guardian and a single rejection is terminal.
package approval

import (
	"errors"
	"time"
)

// Errors
var (
	ErrRequestNotFound = errors.New("approval: request not found")
	ErrRequestTerminal = errors.New("approval: request is in a terminal state")
	ErrUnknownRule     = errors.New("approval: unknown rule id")
	ErrUnknownGuardian = errors.New("approval: guardian not in required set")
)

// Role of a guardian relative to the protected wallet.
type Role string

const (
	RolePerson  Role = "PERSON"  // trusted friend, family member
	RoleDevice  Role = "DEVICE"  // second device the owner controls
	RoleService Role = "SERVICE" // custody or institutional service
)

// GuardianStatus is the lifecycle state of a guardian.
type GuardianStatus string

const (
	GuardianActive    GuardianStatus = "ACTIVE"
	GuardianSuspended GuardianStatus = "SUSPENDED"
	GuardianRevoked   GuardianStatus = "REVOKED"
)

// Guardian is a single approver identity.
type Guardian struct {
	ID      string         `json:"id"`
	Label   string         `json:"label"`
	Role    Role           `json:"role"`
	Contact string         `json:"contact,omitempty"`
	Status  GuardianStatus `json:"status"`
}

// RuleScope selects what a rule applies to.
type RuleScope string

const (
	ScopeWallet  RuleScope = "WALLET"
	ScopeAccount RuleScope = "ACCOUNT"
	ScopeAsset   RuleScope = "ASSET"
)

// RuleAction is the kind of operation a rule protects.
type RuleAction string

const (
	ActionSend           RuleAction = "SEND"
	ActionDDMint         RuleAction = "DD_MINT"
	ActionDDRedeem       RuleAction = "DD_REDEEM"
	ActionAssetIssue     RuleAction = "ASSET_ISSUE"
	ActionAssetBurn      RuleAction = "ASSET_BURN"
	ActionDeviceBind     RuleAction = "DEVICE_BIND"
	ActionSettingsChange RuleAction = "SETTINGS_CHANGE"
)

// Rule is a single guardian rule.
//
// A rule with a nil ThresholdValue always requires approval; a rule with nil
// ThresholdValue AND MinApprovals == 0 is an unconditional block.
type Rule struct {
	ID     string     `json:"id"`
	Scope  RuleScope  `json:"scope"`
	Action RuleAction `json:"action"`

	AccountID string `json:"accountId,omitempty"`
	AssetID   string `json:"assetId,omitempty"`

	// Threshold in atomic units (satoshis, asset units).
	ThresholdValue *int64 `json:"thresholdValue,omitempty"`

	MinApprovals int      `json:"minApprovals"`
	GuardianIDs  []string `json:"guardianIds"`

	Description string `json:"description,omitempty"`
}

// IsBlock reports whether the rule is an unconditional block.
func (r Rule) IsBlock() bool {
	return r.ThresholdValue == nil && r.MinApprovals == 0
}

// Status of an approval request.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// Verdict is the high-level outcome of a guardian evaluation.
type Verdict string

const (
	VerdictAllow           Verdict = "ALLOW"
	VerdictRequireApproval Verdict = "REQUIRE_APPROVAL"
	VerdictBlock           Verdict = "BLOCK"
)

// Decision is a single guardian's recorded vote.
type Decision struct {
	GuardianID string    `json:"guardianId"`
	Status     Status    `json:"status"` // APPROVED or REJECTED
	Reason     string    `json:"reason,omitempty"`
	VotedAt    time.Time `json:"votedAt"`
}

// ActionContext describes what the wallet is attempting to do.
type ActionContext struct {
	Action      RuleAction `json:"action"`
	WalletID    string     `json:"walletId,omitempty"`
	AccountID   string     `json:"accountId,omitempty"`
	AssetID     string     `json:"assetId,omitempty"`
	Value       int64      `json:"value,omitempty"` // atomic units
	Description string     `json:"description,omitempty"`
}

// Request is a structured request for guardian approval, created before a
// protected action is executed.
type Request struct {
	ID     string     `json:"id"`
	RuleID string     `json:"ruleId"`
	Action RuleAction `json:"action"`
	Scope  RuleScope  `json:"scope"`

	WalletID  string `json:"walletId,omitempty"`
	AccountID string `json:"accountId,omitempty"`
	AssetID   string `json:"assetId,omitempty"`

	Value       int64  `json:"value,omitempty"`
	Description string `json:"description,omitempty"`

	RequiredGuardians []string   `json:"requiredGuardians"`
	Decisions         []Decision `json:"decisions"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ApprovalsCount returns the number of APPROVED votes.
func (r *Request) ApprovalsCount() int {
	n := 0
	for _, d := range r.Decisions {
		if d.Status == StatusApproved {
			n++
		}
	}
	return n
}

// RejectionsCount returns the number of REJECTED votes.
func (r *Request) RejectionsCount() int {
	n := 0
	for _, d := range r.Decisions {
		if d.Status == StatusRejected {
			n++
		}
	}
	return n
}

// IsTerminal reports whether the request can no longer change status.
func (r *Request) IsTerminal() bool {
	switch r.Status {
	case StatusApproved, StatusRejected, StatusExpired, StatusCancelled:
		return true
	}
	return false
}
