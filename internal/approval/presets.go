package approval

// DGBAtoms is the atomic unit multiplier for DGB amounts.
// Thresholds are always expressed in atomic units, never floats.
const DGBAtoms int64 = 100_000_000

// Preset is a named rule bundle wallet clients can offer out of the box.
type Preset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rules       []Rule `json:"rules"`
}

func thresholdRule(id string, scope RuleScope, action RuleAction, thresholdAtoms int64, minApprovals int, guardianIDs []string, description string) Rule {
	t := thresholdAtoms
	return Rule{
		ID:             id,
		Scope:          scope,
		Action:         action,
		ThresholdValue: &t,
		MinApprovals:   minApprovals,
		GuardianIDs:    append([]string(nil), guardianIDs...),
		Description:    description,
	}
}

func blockRule(id string, scope RuleScope, action RuleAction, description string) Rule {
	return Rule{
		ID:          id,
		Scope:       scope,
		Action:      action,
		Description: description,
	}
}

// SoloPlusGuardianPreset protects large sends with a single trusted guardian.
func SoloPlusGuardianPreset(guardianID string) Preset {
	return Preset{
		Name:        "solo_plus_guardian",
		Description: "One trusted guardian approves large sends and synthetic-asset flows.",
		Rules: []Rule{
			thresholdRule("solo_send_large", ScopeWallet, ActionSend,
				1_000*DGBAtoms, 1, []string{guardianID},
				"Sends of 1,000 DGB or more need guardian approval."),
			thresholdRule("solo_dd_mint", ScopeWallet, ActionDDMint,
				0, 1, []string{guardianID},
				"All DigiDollar mints need guardian approval."),
			thresholdRule("solo_dd_redeem", ScopeWallet, ActionDDRedeem,
				0, 1, []string{guardianID},
				"All DigiDollar redemptions need guardian approval."),
		},
	}
}

// FamilyPreset requires two of the listed guardians for high-value moves and
// settings changes.
func FamilyPreset(guardianIDs []string) Preset {
	return Preset{
		Name:        "family",
		Description: "Two family guardians approve high-value sends and settings changes.",
		Rules: []Rule{
			thresholdRule("family_send_large", ScopeWallet, ActionSend,
				10_000*DGBAtoms, 2, guardianIDs,
				"Sends of 10,000 DGB or more need two approvals."),
			thresholdRule("family_settings", ScopeWallet, ActionSettingsChange,
				0, 2, guardianIDs,
				"All settings changes need two approvals."),
		},
	}
}

// HighSecurityPreset blocks device binding outright and gates everything
// monetary behind quorum.
func HighSecurityPreset(guardianIDs []string, minApprovals int) Preset {
	return Preset{
		Name:        "high_security",
		Description: "Quorum on all monetary actions; new device binding is blocked.",
		Rules: []Rule{
			blockRule("hs_device_bind", ScopeWallet, ActionDeviceBind,
				"Device binding is disabled on this wallet."),
			thresholdRule("hs_send_any", ScopeWallet, ActionSend,
				0, minApprovals, guardianIDs,
				"All sends need quorum approval."),
			thresholdRule("hs_dd_mint", ScopeWallet, ActionDDMint,
				0, minApprovals, guardianIDs,
				"All DigiDollar mints need quorum approval."),
			thresholdRule("hs_dd_redeem", ScopeWallet, ActionDDRedeem,
				0, minApprovals, guardianIDs,
				"All DigiDollar redemptions need quorum approval."),
			thresholdRule("hs_asset_issue", ScopeWallet, ActionAssetIssue,
				0, minApprovals, guardianIDs,
				"All asset issuance needs quorum approval."),
		},
	}
}
