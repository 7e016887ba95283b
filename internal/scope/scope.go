// Package scope implements the scoped execution gate for approved wallet
// operations.
//
// An ALLOW decision can be bound into a Scope: a narrowly scoped, short-lived
// capability tied to one wallet, one action, and the exact context hash the
// decision was produced from. A Session issues single-use nonces, and the
// guard re-validates everything before invoking the caller-supplied executor
// exactly once. Failures are terminal for that (scope, nonce) pair; retrying
// requires a fresh decision, scope, and nonce.
package scope

import "time"

// Error is a typed guard failure with a stable code for logs and clients.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

// Guard and binding errors. All are terminal for the scope/nonce presented.
var (
	ErrBindRequiresAllow  = &Error{Code: "bind_requires_allow", Message: "Cannot bind a scope from a non-ALLOW decision"}
	ErrInvalidContextHash = &Error{Code: "bind_invalid_context_hash", Message: "Decision carries a malformed context hash"}
	ErrScopeNotActive     = &Error{Code: "scope_not_active", Message: "Scope is outside its permitted time window"}
	ErrWalletMismatch     = &Error{Code: "scope_wallet_mismatch", Message: "Scope is bound to a different wallet"}
	ErrActionMismatch     = &Error{Code: "scope_action_mismatch", Message: "Scope is bound to a different action"}
	ErrContextMismatch    = &Error{Code: "scope_context_mismatch", Message: "Presented context does not match the scope's context hash"}
	ErrSessionNotActive   = &Error{Code: "session_not_active", Message: "Session is expired or not yet valid"}
	ErrNonceReplayed      = &Error{Code: "nonce_replayed", Message: "Nonce has already been consumed"}
)

// DefaultScopeTTL bounds the blast radius of a stolen capability.
const DefaultScopeTTL = 60 * time.Second

// Scope is a single-use execution capability.
//
// It is valid only for an exact wallet+action+context match and only within
// [NotBefore, ExpiresAt]. A scope is never extended; once expired or consumed
// it is discarded and the caller must obtain a fresh decision.
type Scope struct {
	WalletID    string `json:"walletId"`
	Action      string `json:"action"`
	ContextHash string `json:"contextHash"`
	NotBefore   int64  `json:"notBefore"` // unix seconds
	ExpiresAt   int64  `json:"expiresAt"` // unix seconds
}

// NewScope creates a scope active immediately for the given TTL.
// A non-positive ttl selects DefaultScopeTTL. now=0 means wall clock.
func NewScope(walletID, action, contextHash string, ttl time.Duration, now int64) Scope {
	if ttl <= 0 {
		ttl = DefaultScopeTTL
	}
	t := unixOrNow(now)
	return Scope{
		WalletID:    walletID,
		Action:      action,
		ContextHash: contextHash,
		NotBefore:   t,
		ExpiresAt:   t + int64(ttl/time.Second),
	}
}

// IsActive reports whether the scope's time window contains now.
// now=0 means wall clock; tests inject a fixed instant.
func (s Scope) IsActive(now int64) bool {
	t := unixOrNow(now)
	return s.NotBefore <= t && t <= s.ExpiresAt
}

func unixOrNow(now int64) int64 {
	if now != 0 {
		return now
	}
	return time.Now().Unix()
}
