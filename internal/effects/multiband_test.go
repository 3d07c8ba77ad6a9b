package effects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultibandZeroMixIsPassthrough(t *testing.T) {
	m := NewMultiband()
	require.NoError(t, m.Initialize(44100, 1))
	m.SetMix(0)

	in := chirp(2000, 44100, 100, 8000)
	buf := make([]float32, len(in))
	for i, x := range in {
		buf[i] = float32(x)
	}
	orig := append([]float32(nil), buf...)
	m.Process(buf, len(buf))
	assert.Equal(t, orig, buf)
}

func TestMultibandDoesNotProduceNaNOrInf(t *testing.T) {
	m := NewMultiband()
	require.NoError(t, m.Initialize(44100, 2))
	m.SetBandGainsDB([10]float64{12, -12, 6, -6, 3, -3, 9, -9, 1, -1})

	n := 44100
	buf := make([]float32, n*2)
	for i := 0; i < n; i++ {
		v := float32(math.Sin(float64(i) * 0.05))
		buf[i*2] = v
		buf[i*2+1] = -v
	}
	m.Process(buf, n)

	for _, v := range buf {
		assert.False(t, math.IsNaN(float64(v)))
		assert.False(t, math.IsInf(float64(v), 0))
	}
}

func TestMultibandDisabledIsNoOp(t *testing.T) {
	m := NewMultiband()
	require.NoError(t, m.Initialize(44100, 1))
	m.SetEnabled(false)

	in := []float32{0.5, -0.3, 0.2}
	buf := append([]float32(nil), in...)
	m.Process(buf, len(buf))
	assert.Equal(t, in, buf)
}

func TestMultibandSetCutsRebuildsBandCount(t *testing.T) {
	m := NewMultiband()
	require.NoError(t, m.Initialize(44100, 1))
	m.SetCuts([]float64{500, 4000})
	assert.Len(t, m.bandEQ, 3)
	assert.Len(t, m.bandComp, 3)
}
