package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHash_StableForEqualValues(t *testing.T) {
	a := trustedContext()
	b := trustedContext()

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)

	assert.Equal(t, ha, hb, "structurally equal contexts must hash identically")
	assert.Len(t, ha, 64, "sha-256 hex digest")
}

func TestContextHash_DiffersOnAnyField(t *testing.T) {
	base := trustedContext().MustHash()

	tests := []struct {
		name   string
		mutate func(*Context)
	}{
		{"amount", func(c *Context) { c.Action.Amount = 501 }},
		{"recipient", func(c *Context) { c.Action.Recipient = "other" }},
		{"device id", func(c *Context) { c.Device.DeviceID = "dev-2" }},
		{"trusted flag", func(c *Context) { c.Device.Trusted = false }},
		{"network", func(c *Context) { c.Network.Network = "testnet" }},
		{"fee rate", func(c *Context) { c.Network.FeeRate = 11 }},
		{"user id", func(c *Context) { c.User.UserID = "u2" }},
		{"timestamp", func(c *Context) { c.Timestamp = 1700000001 }},
		{"extra", func(c *Context) { c.Extra = map[string]any{"origin": "deep-link"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := trustedContext()
			tt.mutate(ctx)
			assert.NotEqual(t, base, ctx.MustHash())
		})
	}
}

func TestContextHash_ExtraMapOrderIndependent(t *testing.T) {
	a := trustedContext()
	a.Extra = map[string]any{"alpha": 1, "beta": "x", "gamma": true}
	b := trustedContext()
	b.Extra = map[string]any{"gamma": true, "beta": "x", "alpha": 1}

	assert.Equal(t, a.MustHash(), b.MustHash(), "canonical serialization must be key-ordered")
}

func TestNewContext_StampsTimestamp(t *testing.T) {
	ctx := NewContext(
		ActionContext{Action: "send", Asset: "DGB", Amount: 1},
		DeviceContext{DeviceID: "d", DeviceType: "mobile", OS: "android", Trusted: true},
		NetworkContext{Network: "mainnet"},
		UserContext{UserID: "u"},
	)

	require.True(t, ctx.Complete())
	assert.NotZero(t, ctx.Timestamp)
}
