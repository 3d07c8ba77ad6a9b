package spectral

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestWAV encodes a mono 16-bit PCM WAV of a sine tone at the given
// frequency/amplitude, long enough to clear Analyze's 10s minimum.
func writeTestWAV(t *testing.T, path string, sampleRate int, freq, amp float64, seconds int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	n := sampleRate * seconds
	data := make([]int, n)
	const scale = (1 << 15) - 1
	for i := 0; i < n; i++ {
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		data[i] = int(math.Round(v * scale))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func TestProcessEQMatchingScenario6(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.wav")
	targetPath := filepath.Join(dir, "target.wav")
	outPath := filepath.Join(dir, "out.wav")

	const sampleRate = 44100
	// Source is bright (high frequency, loud); target is dark and quiet,
	// giving the two files distinctly different spectra.
	writeTestWAV(t, sourcePath, sampleRate, 6000, 0.9, 12)
	writeTestWAV(t, targetPath, sampleRate, 150, 0.3, 12)

	err := ProcessEQMatching(sourcePath, targetPath, outPath)
	require.NoError(t, err)

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	outClip, err := decodeWAV(outPath)
	require.NoError(t, err)
	outSpectrum, err := Analyze(outClip.mono, outClip.sampleRate)
	require.NoError(t, err)
	assert.LessOrEqual(t, outSpectrum.Peak, 1.0+1e-6)

	sourceClip, err := decodeWAV(sourcePath)
	require.NoError(t, err)
	sourceSpectrum, err := Analyze(sourceClip.mono, sourceClip.sampleRate)
	require.NoError(t, err)

	targetClip, err := decodeWAV(targetPath)
	require.NoError(t, err)
	targetSpectrum, err := Analyze(targetClip.mono, targetClip.sampleRate)
	require.NoError(t, err)

	assert.Less(t, bandDistance(outSpectrum, targetSpectrum), bandDistance(sourceSpectrum, targetSpectrum))
}

func bandDistance(a, b Spectrum) float64 {
	var sum float64
	for i := 0; i < 10; i++ {
		d := a.Bands[i] - b.Bands[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
