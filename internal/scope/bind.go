package scope

import (
	"time"

	"github.com/mbd888/adamantine/internal/decision"
	"github.com/mbd888/adamantine/internal/validation"
)

// Bind converts an ALLOW decision into an execution scope carrying the
// decision's context hash.
//
// This is the only constructor the orchestrator uses, and it is intentionally
// strict: any non-ALLOW verdict fails with ErrBindRequiresAllow, and a
// decision carrying a malformed context hash fails with ErrInvalidContextHash
// since the resulting scope could never match a real context. The caller must
// re-decide, not retry the bind.
func Bind(d decision.Decision, walletID, action string, ttl time.Duration, now int64) (Scope, error) {
	if !d.Verdict.IsAllow() {
		return Scope{}, ErrBindRequiresAllow
	}
	if !validation.IsValidContextHash(d.ContextHash) {
		return Scope{}, ErrInvalidContextHash
	}
	return NewScope(walletID, action, d.ContextHash, ttl, now), nil
}
