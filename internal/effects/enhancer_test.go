package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnhancerZeroMixIsBitExactPassthrough(t *testing.T) {
	e := NewEnhancer()
	require.NoError(t, e.Initialize(48000, 1))
	e.SetMix(0)
	e.SetGain(8)
	e.SetCutoffHz(500)

	in := []float32{0.1, -0.2, 0.3, 0.9, -1.0}
	buf := append([]float32(nil), in...)
	e.Process(buf, len(buf))

	assert.Equal(t, in, buf)
}

func TestEnhancerDisabledIsNoOp(t *testing.T) {
	e := NewEnhancer()
	require.NoError(t, e.Initialize(44100, 1))
	e.SetEnabled(false)
	e.SetMix(1)

	in := []float32{1, 2, -3}
	buf := append([]float32(nil), in...)
	e.Process(buf, len(buf))
	assert.Equal(t, in, buf)
}

func TestEnhancerSetGainClampsRange(t *testing.T) {
	e := NewEnhancer()
	e.SetGain(0)
	assert.Equal(t, 0.1, e.Gain())
	e.SetGain(100)
	assert.Equal(t, 10.0, e.Gain())
}

func TestEnhancerSetCutoffHzClampsRangeAndRecomputesCoefficient(t *testing.T) {
	e := NewEnhancer()
	require.NoError(t, e.Initialize(44100, 1))

	e.SetCutoffHz(0)
	assert.Equal(t, 100.0, e.CutoffHz())
	e.SetCutoffHz(100000)
	assert.Equal(t, 20000.0, e.CutoffHz())

	e.alpha = 0
	e.SetCutoffHz(8000)
	// With RC = 1/(2*pi*f) the coefficient reduces to sr/(sr+1), so the
	// recomputed value depends on the sample rate, not the cutoff.
	assert.InDelta(t, 44100.0/44101.0, e.alpha, 1e-12)
}

func TestEnhancerPerChannelStateDoesNotLeak(t *testing.T) {
	e := NewEnhancer()
	require.NoError(t, e.Initialize(48000, 2))
	e.SetMix(1)
	e.SetGain(5)

	// Drive channel 0 with a loud signal and channel 1 with silence; if the
	// high-pass filter's state leaked across channels, channel 1 would pick
	// up energy from channel 0.
	frames := 50
	buf := make([]float32, frames*2)
	for f := 0; f < frames; f++ {
		buf[f*2] = 1
		buf[f*2+1] = 0
	}
	e.Process(buf, frames)

	for f := 0; f < frames; f++ {
		assert.Equal(t, float32(0), buf[f*2+1], "channel 1 must stay silent")
	}
}

func TestEnhancerResetClearsFilterHistory(t *testing.T) {
	e := NewEnhancer()
	require.NoError(t, e.Initialize(44100, 1))
	e.SetMix(1)

	buf := []float32{1, 1, 1, 1}
	e.Process(buf, len(buf))

	e.Reset()
	assert.Equal(t, []float64{0}, e.prevInput)
	assert.Equal(t, []float64{0}, e.prevOutput)
}
