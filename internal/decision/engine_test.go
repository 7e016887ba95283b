package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Decide(t *testing.T) {
	eng := NewEngine(nil, nil)
	ctx := trustedContext()

	d, err := eng.Decide(ctx)
	require.NoError(t, err)

	assert.True(t, d.Verdict.IsAllow())
	assert.Equal(t, ctx.MustHash(), d.ContextHash)

	tx, ok := d.Signals["transaction"]
	require.True(t, ok, "transaction classifier bundle present")
	assert.Equal(t, true, tx["is_send"])
	assert.Equal(t, int64(500), tx["amount"])

	dev, ok := d.Signals["device"]
	require.True(t, ok, "device classifier bundle present")
	assert.Equal(t, false, dev["is_browser"])
	assert.Equal(t, false, dev["is_new_device"])
}

func TestEngine_DecideIncompleteContext(t *testing.T) {
	eng := NewEngine(nil, nil)
	ctx := trustedContext()
	ctx.User = nil

	d, err := eng.Decide(ctx)
	require.NoError(t, err)
	assert.True(t, d.Verdict.IsDeny())
	assert.Nil(t, d.Signals)
	assert.NotEmpty(t, d.ContextHash, "even denied decisions carry an auditable hash")
}

func TestEngine_SignalsNeverChangeVerdict(t *testing.T) {
	// Same policy with and without classifiers must agree on the verdict.
	withSignals := NewEngine(DefaultPolicy(0), DefaultClassifiers())
	withoutSignals := NewEngine(DefaultPolicy(0), []Classifier{})

	for _, mutate := range []func(*Context){
		func(c *Context) {},
		func(c *Context) { c.Device.Trusted = false },
		func(c *Context) { c.Device.DeviceType = "browser" },
		func(c *Context) { c.Action.Action = "mint" },
	} {
		ctx := trustedContext()
		mutate(ctx)

		a, err := withSignals.Decide(ctx)
		require.NoError(t, err)
		b, err := withoutSignals.Decide(ctx)
		require.NoError(t, err)

		assert.Equal(t, a.Verdict.Type, b.Verdict.Type)
	}
}

func TestDeviceClassifier_NewDeviceSignal(t *testing.T) {
	ctx := trustedContext()
	ctx.Device.Trusted = false
	ctx.Device.FirstSeenTS = 0

	signals := DeviceClassifier{}.Classify(ctx)
	assert.Equal(t, true, signals["is_new_device"])

	ctx.Device.FirstSeenTS = 1690000000
	signals = DeviceClassifier{}.Classify(ctx)
	assert.Equal(t, false, signals["is_new_device"], "previously seen device is not new")
}
