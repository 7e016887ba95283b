// Package decision implements the deterministic policy engine that gates
// sensitive wallet operations.
//
// A caller builds an immutable Context snapshot describing why an action is
// happening (action, device, network, user), the engine walks an ordered rule
// list, and the result is a Verdict: ALLOW, DENY, or STEP_UP. Verdicts are
// reproducible from the recorded context alone: no network, storage, or
// wall-clock access beyond the timestamp already embedded in the snapshot.
package decision

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
)

// ActionContext describes the requested operation.
type ActionContext struct {
	Action    string `json:"action"` // send, mint, redeem, sign, vote
	Asset     string `json:"asset"`  // DGB, DigiAsset, DigiDollar
	Amount    int64  `json:"amount,omitempty"`
	Recipient string `json:"recipient,omitempty"`
}

// DeviceContext describes the device the request originates from.
type DeviceContext struct {
	DeviceID    string `json:"deviceId"`
	DeviceType  string `json:"deviceType"` // mobile, hardware, airgap, browser, extension
	OS          string `json:"os"`
	Trusted     bool   `json:"trusted"`
	FirstSeenTS int64  `json:"firstSeenTs,omitempty"` // unix seconds, 0 = never seen
}

// NetworkContext describes observed network conditions.
type NetworkContext struct {
	Network   string `json:"network"` // mainnet, testnet
	FeeRate   int64  `json:"feeRate,omitempty"`
	PeerCount int    `json:"peerCount,omitempty"`
}

// UserContext describes local user authentication capabilities.
type UserContext struct {
	UserID             string `json:"userId,omitempty"`
	BiometricAvailable bool   `json:"biometricAvailable"`
	PINSet             bool   `json:"pinSet"`
}

// Context is the canonical snapshot passed into the engine.
//
// All four sub-records are required; the engine denies with MISSING_CONTEXT
// when any is absent. The struct is hashed and may later be bound to an
// execution scope, so treat it as immutable once constructed.
type Context struct {
	Action    *ActionContext  `json:"action"`
	Device    *DeviceContext  `json:"device"`
	Network   *NetworkContext `json:"network"`
	User      *UserContext    `json:"user"`
	Timestamp int64           `json:"timestamp"`
	Extra     map[string]any  `json:"extra,omitempty"`
}

// NewContext builds a Context stamped with the current time.
func NewContext(action ActionContext, device DeviceContext, network NetworkContext, user UserContext) *Context {
	return &Context{
		Action:    &action,
		Device:    &device,
		Network:   &network,
		User:      &user,
		Timestamp: time.Now().Unix(),
	}
}

// Complete reports whether all four required sub-records are present.
func (c *Context) Complete() bool {
	return c != nil && c.Action != nil && c.Device != nil && c.Network != nil && c.User != nil
}

// Hash returns the canonical SHA-256 digest of the context.
//
// The context is serialized as RFC 8785 canonical JSON (key-ordered, no HTML
// escaping) before hashing, so structurally equal contexts produce identical
// digests across processes and machines. The digest is the join key between a
// Verdict and any execution scope later bound to it.
func (c *Context) Hash() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("context hash: marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("context hash: canonicalize: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// MustHash is Hash for contexts already known to be serializable.
// It panics on marshal failure, which cannot happen for contexts built from
// the plain structs above.
func (c *Context) MustHash() string {
	h, err := c.Hash()
	if err != nil {
		panic("decision: context hash failed: " + err.Error())
	}
	return h
}
