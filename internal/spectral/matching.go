package spectral

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/le-bot-team/audioengine/internal/effects"
)

// outputBitDepth is the PCM bit depth spec.md §6 names for the
// EQ-matched output file.
const outputBitDepth = 16

// decodedClip holds a decoded WAV file in both its native channel layout
// (for re-synthesis) and a mono downmix (for analysis).
type decodedClip struct {
	sampleRate int
	channels   int
	interleaved []float64 // native channel layout, [-1, 1]
	mono        []float64
}

func decodeWAV(path string) (decodedClip, error) {
	f, err := os.Open(path)
	if err != nil {
		return decodedClip{}, fmt.Errorf("spectral: open %s: %w", path, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if !d.IsValidFile() {
		return decodedClip{}, fmt.Errorf("spectral: %s is not a valid WAV file", path)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return decodedClip{}, fmt.Errorf("spectral: decode %s: %w", path, err)
	}

	floatBuf := buf.AsFloatBuffer()
	channels := floatBuf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	sampleRate := floatBuf.Format.SampleRate

	// AsFloatBuffer keeps integer PCM values unscaled; divide by the
	// source bit depth's full scale to bring them into [-1, 1].
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = outputBitDepth
	}
	fullScale := math.Pow(2, float64(bitDepth-1))
	interleaved := make([]float64, len(floatBuf.Data))
	for i, v := range floatBuf.Data {
		interleaved[i] = v / fullScale
	}

	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}

	return decodedClip{
		sampleRate:  sampleRate,
		channels:    channels,
		interleaved: interleaved,
		mono:        mono,
	}, nil
}

// ProcessEQMatching implements spec.md §4.J/§6's file-to-file operation:
// it analyses sourcePath and targetPath, derives EQ and dynamic-range
// parameters that pull the source toward the target's spectral and
// loudness profile, applies them, and writes the result to outPath as
// 16-bit PCM WAV with the source's own channel count and sample rate.
//
// EQ is realized as a bank of peaking biquads (effects.Biquad) centered
// on the 10 standard band frequencies, reusing the same filter the
// multiband compressor/EQ effect uses; loudness matching is realized with
// effects.DynamicAmp. Both types from internal/effects are exercised
// here exactly as they are in the real-time path, just driven offline.
func ProcessEQMatching(sourcePath, targetPath, outPath string) error {
	source, err := decodeWAV(sourcePath)
	if err != nil {
		return err
	}
	target, err := decodeWAV(targetPath)
	if err != nil {
		return err
	}

	sourceSpectrum, err := Analyze(source.mono, source.sampleRate)
	if err != nil {
		return fmt.Errorf("spectral: analysing source: %w", err)
	}
	targetSpectrum, err := Analyze(target.mono, target.sampleRate)
	if err != nil {
		return fmt.Errorf("spectral: analysing target: %w", err)
	}

	gainsDB := DeriveEQ(sourceSpectrum, targetSpectrum)
	targetLoudnessDB, maxGainDB := DeriveDynamicAmp(targetSpectrum)

	out := applyMatching(source, gainsDB, targetLoudnessDB, maxGainDB)

	if err := encodeWAV(outPath, out, source.sampleRate, source.channels); err != nil {
		return err
	}
	return nil
}

// applyMatching runs the source's interleaved samples through one
// peaking biquad per EQ band, then a broadband DynamicAmp, then a hard
// safety clamp to guarantee the output peak never exceeds 1.0 (spec.md
// §4.J's "Output" clause) regardless of how the dynamic amp settles.
func applyMatching(source decodedClip, gainsDB [10]float64, targetLoudnessDB, maxGainDB float64) []float64 {
	channels := source.channels
	buf := append([]float64(nil), source.interleaved...)

	for i, center := range BandCenters {
		if math.Abs(gainsDB[i]) < 0.05 {
			continue
		}
		eq := effects.NewBiquad(source.sampleRate, channels)
		eq.SetParams(effects.BiquadPeaking, center, 1.0, gainsDB[i])
		eq.Process(buf, channels)
	}

	amp := effects.NewDynamicAmp(source.sampleRate)
	amp.SetParams(targetLoudnessDB, 50, 300, maxGainDB)
	amp.Process(buf)

	for i, v := range buf {
		if v > 1 {
			buf[i] = 1
		} else if v < -1 {
			buf[i] = -1
		}
	}
	return buf
}

func encodeWAV(path string, interleaved []float64, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("spectral: create %s: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, outputBitDepth, channels, 1)

	ints := make([]int, len(interleaved))
	const scale = (1 << (outputBitDepth - 1)) - 1
	for i, v := range interleaved {
		ints[i] = int(math.Round(v * scale))
	}

	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           ints,
		SourceBitDepth: outputBitDepth,
	}

	if err := enc.Write(intBuf); err != nil {
		return fmt.Errorf("spectral: write %s: %w", path, err)
	}
	return enc.Close()
}
