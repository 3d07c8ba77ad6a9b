package effects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chirp synthesizes a broadband linear-sweep signal from loFreq to
// hiFreq over n samples at sampleRate.
func chirp(n, sampleRate int, loFreq, hiFreq float64) []float64 {
	out := make([]float64, n)
	dur := float64(n) / float64(sampleRate)
	k := (hiFreq - loFreq) / dur
	for i := 0; i < n; i++ {
		tt := float64(i) / float64(sampleRate)
		phase := 2 * math.Pi * (loFreq*tt + 0.5*k*tt*tt)
		out[i] = math.Sin(phase)
	}
	return out
}

func rms(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func TestCrossoverScenario5SplitAndRecombine(t *testing.T) {
	const sampleRate = 44100
	n := sampleRate * 2
	in := chirp(n, sampleRate, 50, 18000)

	c := NewCrossover(sampleRate, 1, []float64{250, 2000, 8000})
	require.Equal(t, 4, c.Bands())

	bands := make([][]float64, 4)
	for i := range bands {
		bands[i] = make([]float64, n)
	}
	c.ProcessToBands(in, 1, bands)

	for i, band := range bands {
		assert.Greater(t, rms(band), 0.0, "band %d must carry energy", i)
	}

	out := make([]float64, n)
	CombineBands(out, bands)

	ratio := rms(out) / rms(in)
	assert.GreaterOrEqual(t, ratio, 0.5)
	assert.LessOrEqual(t, ratio, 1.5)
}

func TestCrossoverResetClearsHistory(t *testing.T) {
	c := NewCrossover(44100, 1, []float64{1000})
	bands := [][]float64{make([]float64, 4), make([]float64, 4)}
	c.ProcessToBands([]float64{1, 1, 1, 1}, 1, bands)
	c.Reset()
	for _, s := range c.stages {
		assert.Equal(t, 0.0, s.lowA.x1[0])
		assert.Equal(t, 0.0, s.lowA.y1[0])
	}
}
