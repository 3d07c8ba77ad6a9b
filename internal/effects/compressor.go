package effects

import "math"

// BandCompressor implements spec.md §4.I's per-band compressor: a log
// domain envelope follower with one-pole attack/release smoothing and a
// static gain curve. It operates per-channel so stereo bands do not
// bleed gain-reduction state across channels.
type BandCompressor struct {
	thresholdDB float64
	ratio       float64
	attackMs    float64
	releaseMs   float64
	makeupDB    float64

	sampleRate int
	envelopeDB []float64 // one per channel, in dB
}

// NewBandCompressor constructs a compressor with conservative defaults.
func NewBandCompressor(sampleRate, channels int) *BandCompressor {
	c := &BandCompressor{
		thresholdDB: -18,
		ratio:       2,
		attackMs:    10,
		releaseMs:   100,
		sampleRate:  sampleRate,
	}
	c.allocEnvelope(channels)
	return c
}

func (c *BandCompressor) allocEnvelope(channels int) {
	if channels < 1 {
		channels = 1
	}
	c.envelopeDB = make([]float64, channels)
	for i := range c.envelopeDB {
		c.envelopeDB[i] = -120
	}
}

// SetParams sets threshold/ratio/attack/release/makeup, clamped to
// documented ranges.
func (c *BandCompressor) SetParams(thresholdDB, ratio, attackMs, releaseMs, makeupDB float64) {
	c.thresholdDB = clamp(thresholdDB, -60, 0)
	c.ratio = clamp(ratio, 1, 20)
	c.attackMs = clamp(attackMs, 0.1, 1000)
	c.releaseMs = clamp(releaseMs, 1, 5000)
	c.makeupDB = clamp(makeupDB, -24, 24)
}

// Reset clears the envelope follower back to silence.
func (c *BandCompressor) Reset() {
	for i := range c.envelopeDB {
		c.envelopeDB[i] = -120
	}
}

func onePoleCoeff(ms float64, sampleRate int) float64 {
	if ms <= 0 || sampleRate <= 0 {
		return 1
	}
	return 1 - math.Exp(-1/(ms*float64(sampleRate)/1000))
}

// ProcessSample compresses one sample belonging to channel ch.
func (c *BandCompressor) ProcessSample(ch int, x float64) float64 {
	inputDB := linearToDB(math.Abs(x))

	coeff := onePoleCoeff(c.releaseMs, c.sampleRate)
	if inputDB > c.envelopeDB[ch] {
		coeff = onePoleCoeff(c.attackMs, c.sampleRate)
	}
	c.envelopeDB[ch] += coeff * (inputDB - c.envelopeDB[ch])

	gainDB := 0.0
	if over := c.envelopeDB[ch] - c.thresholdDB; over > 0 {
		gainDB = -over * (1 - 1/c.ratio)
	}

	return x * dbToLinear(gainDB+c.makeupDB)
}

// Process compresses an interleaved float64 buffer in place.
func (c *BandCompressor) Process(buf []float64, channels int) {
	if channels < 1 {
		channels = 1
	}
	for i := range buf {
		buf[i] = c.ProcessSample(i%channels, buf[i])
	}
}

// DynamicAmp implements spec.md §4.I's final-stage dynamic amplifier: it
// measures output RMS with one-pole smoothing and applies a broadband
// gain toward a target level, clamped by a configured maximum gain.
type DynamicAmp struct {
	targetDB float64
	attackMs float64
	releaseMs float64
	maxGainDB float64

	sampleRate int
	rms        float64 // smoothed mean-square level, linear
	gain       float64
}

// NewDynamicAmp constructs a DynamicAmp with conservative defaults.
func NewDynamicAmp(sampleRate int) *DynamicAmp {
	return &DynamicAmp{
		targetDB:  -14,
		attackMs:  50,
		releaseMs: 300,
		maxGainDB: 6,
		sampleRate: sampleRate,
		gain:      1,
	}
}

// SetParams sets target level, attack/release, and max gain, clamped to
// documented ranges (target [-20,-5], max gain (0,10]).
func (d *DynamicAmp) SetParams(targetDB, attackMs, releaseMs, maxGainDB float64) {
	d.targetDB = clamp(targetDB, -20, -5)
	d.attackMs = clamp(attackMs, 0.1, 2000)
	d.releaseMs = clamp(releaseMs, 1, 5000)
	d.maxGainDB = clamp(maxGainDB, 0.001, 10)
}

// Reset clears the RMS estimate and gain back to unity/silence.
func (d *DynamicAmp) Reset() {
	d.rms = 0
	d.gain = 1
}

// Process applies broadband gain to an interleaved float64 buffer,
// measuring RMS across all channels jointly.
func (d *DynamicAmp) Process(buf []float64) {
	target := dbToLinear(d.targetDB)
	maxGain := dbToLinear(d.maxGainDB)

	for i, x := range buf {
		sq := x * x
		coeff := onePoleCoeff(d.releaseMs, d.sampleRate)
		if sq > d.rms {
			coeff = onePoleCoeff(d.attackMs, d.sampleRate)
		}
		d.rms += coeff * (sq - d.rms)

		level := math.Sqrt(d.rms)
		desired := 1.0
		if level > 1e-9 {
			desired = target / level
		}
		if desired > maxGain {
			desired = maxGain
		}
		if desired < 0 {
			desired = 0
		}
		d.gain = desired

		buf[i] = x * d.gain
	}
}
