package effects

import "math"

// Limiter implements spec.md §4.I's lookahead peak limiter: a delay
// buffer paired with an envelope buffer sized to the lookahead window, a
// fast-attack/exponential-release gain smoother, and a hard clip to the
// ceiling.
type Limiter struct {
	base

	sampleRate int

	thresholdDB float64
	ceilingDB   float64
	releaseMs   float64
	lookaheadMs float64

	delay    []float32
	envelope []float64
	idx      int

	appliedGain     float64
	gainReductionDB float64
}

// NewLimiter constructs a Limiter with conservative defaults.
func NewLimiter() *Limiter {
	l := &Limiter{
		base:        newBase("Limiter"),
		thresholdDB: -6,
		ceilingDB:   -0.1,
		releaseMs:   50,
		lookaheadMs: 5,
	}
	l.appliedGain = 1
	return l
}

func (l *Limiter) Initialize(sampleRate int, channels int) error {
	l.sampleRate = sampleRate
	l.resize()
	l.Reset()
	return nil
}

func (l *Limiter) resize() {
	if l.sampleRate <= 0 {
		l.sampleRate = 44100
	}
	n := int(math.Ceil(l.lookaheadMs * float64(l.sampleRate) / 1000))
	if n < 1 {
		n = 1
	}
	l.delay = make([]float32, n)
	l.envelope = make([]float64, n)
	l.idx = 0
}

// SetThresholdDB clamps to [-20, 0].
func (l *Limiter) SetThresholdDB(db float64) { l.thresholdDB = clamp(db, -20, 0) }

// SetCeilingDB clamps to [-2, 0].
func (l *Limiter) SetCeilingDB(db float64) { l.ceilingDB = clamp(db, -2, 0) }

// SetReleaseMs clamps to [1, 1000].
func (l *Limiter) SetReleaseMs(ms float64) { l.releaseMs = clamp(ms, 1, 1000) }

// SetLookaheadMs clamps to [1, 20] and resizes/resets the buffers.
func (l *Limiter) SetLookaheadMs(ms float64) {
	l.lookaheadMs = clamp(ms, 1, 20)
	l.resize()
	l.Reset()
}

func (l *Limiter) ThresholdDB() float64 { return l.thresholdDB }
func (l *Limiter) CeilingDB() float64   { return l.ceilingDB }
func (l *Limiter) ReleaseMs() float64   { return l.releaseMs }
func (l *Limiter) LookaheadMs() float64 { return l.lookaheadMs }

// IsLimiting reports whether the limiter is currently reducing gain.
func (l *Limiter) IsLimiting() bool { return l.appliedGain < 0.999 }

// GainReductionDb reports the current applied gain reduction in dB
// (non-positive; 0 means unity gain).
func (l *Limiter) GainReductionDb() float64 { return l.gainReductionDB }

func (l *Limiter) Reset() {
	for i := range l.delay {
		l.delay[i] = 0
	}
	for i := range l.envelope {
		l.envelope[i] = 1
	}
	l.idx = 0
	l.appliedGain = 1
	l.gainReductionDB = 0
}

func (l *Limiter) Dispose() {}

func (l *Limiter) Process(buf []float32, frameCount int) {
	if !l.shouldProcess() {
		return
	}
	n := len(l.delay)
	if n == 0 {
		return
	}

	threshold := dbToLinear(l.thresholdDB)
	ceiling := dbToLinear(l.ceilingDB)
	releaseCoeff := 1 - math.Exp(-1/(l.releaseMs*float64(l.sampleRate)/1000))

	for i := range buf {
		sample := buf[i]

		// Enqueue into the lookahead window; the oldest entry becomes the
		// sample emitted this iteration.
		outSample := l.delay[l.idx]
		l.delay[l.idx] = sample

		peak := l.windowPeak()

		target := 1.0
		if peak > threshold {
			target = threshold / peak
		}
		l.envelope[l.idx] = target

		worstCase := l.worstCaseGain()

		if worstCase < l.appliedGain {
			// Fast attack: adopt the reduction immediately.
			l.appliedGain = worstCase
		} else {
			l.appliedGain += releaseCoeff * (worstCase - l.appliedGain)
		}

		out := float64(outSample) * l.appliedGain
		if out > ceiling {
			out = ceiling
		}
		if out < -ceiling {
			out = -ceiling
		}
		buf[i] = float32(out)

		l.idx++
		if l.idx >= n {
			l.idx = 0
		}
	}

	l.gainReductionDB = linearToDB(l.appliedGain)
	if math.IsInf(l.gainReductionDB, -1) {
		l.gainReductionDB = -math.MaxFloat64 / 2
	}
}

// windowPeak returns the maximum absolute sample currently held in the
// lookahead delay buffer.
func (l *Limiter) windowPeak() float64 {
	peak := 0.0
	for _, v := range l.delay {
		av := math.Abs(float64(v))
		if av > peak {
			peak = av
		}
	}
	return peak
}

// worstCaseGain returns the minimum target gain across the envelope
// buffer, matching spec.md §4.I's "applied gain is the minimum across the
// envelope buffer (worst-case over the window)".
func (l *Limiter) worstCaseGain() float64 {
	worst := 1.0
	for _, v := range l.envelope {
		if v < worst {
			worst = v
		}
	}
	return worst
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

func linearToDB(lin float64) float64 {
	if lin <= 0 {
		return -math.MaxFloat64 / 2
	}
	return 20 * math.Log10(lin)
}
