package effects

// lrCrossover is a single Linkwitz-Riley two-way split: cascading two
// matched 2nd-order Butterworth sections (Q = 1/sqrt(2)) into each branch
// gives 4th-order complementary lowpass/highpass outputs that sum back to
// (approximately) the original signal's magnitude, per spec.md §4.I.
type lrCrossover struct {
	freq float64

	lowA, lowB   *Biquad
	highA, highB *Biquad
}

const butterworthQ = 0.7071067811865476

func newLRCrossover(sampleRate, channels int, freq float64) *lrCrossover {
	c := &lrCrossover{
		freq:  freq,
		lowA:  NewBiquad(sampleRate, channels),
		lowB:  NewBiquad(sampleRate, channels),
		highA: NewBiquad(sampleRate, channels),
		highB: NewBiquad(sampleRate, channels),
	}
	c.retune()
	return c
}

func (c *lrCrossover) retune() {
	c.lowA.SetParams(BiquadLowpass, c.freq, butterworthQ, 0)
	c.lowB.SetParams(BiquadLowpass, c.freq, butterworthQ, 0)
	c.highA.SetParams(BiquadHighpass, c.freq, butterworthQ, 0)
	c.highB.SetParams(BiquadHighpass, c.freq, butterworthQ, 0)
}

func (c *lrCrossover) reset() {
	c.lowA.Reset()
	c.lowB.Reset()
	c.highA.Reset()
	c.highB.Reset()
}

// split filters one interleaved sample on channel ch into its low and
// high complementary outputs.
func (c *lrCrossover) split(ch int, x float64) (low, high float64) {
	low = c.lowB.ProcessSample(ch, c.lowA.ProcessSample(ch, x))
	high = c.highB.ProcessSample(ch, c.highA.ProcessSample(ch, x))
	return low, high
}

// Crossover implements spec.md §4.I's multi-band Linkwitz-Riley
// crossover: N cut frequencies produce N+1 bands via a cascade of
// two-way splits, each one operating on the prior split's high output.
type Crossover struct {
	sampleRate int
	channels   int
	cuts       []float64
	stages     []*lrCrossover
}

// NewCrossover builds a crossover for the given ascending cut
// frequencies (Hz). len(cuts) cuts produce len(cuts)+1 bands:
// [0,f1], (f1,f2], ..., (fN,inf).
func NewCrossover(sampleRate, channels int, cuts []float64) *Crossover {
	c := &Crossover{sampleRate: sampleRate, channels: channels}
	c.SetCuts(cuts)
	return c
}

// SetCuts reconfigures the cut frequencies, rebuilding and resetting all
// internal filter stages.
func (c *Crossover) SetCuts(cuts []float64) {
	c.cuts = append([]float64(nil), cuts...)
	c.stages = make([]*lrCrossover, len(cuts))
	for i, f := range cuts {
		c.stages[i] = newLRCrossover(c.sampleRate, c.channels, f)
	}
}

// Bands returns the number of bands this crossover produces.
func (c *Crossover) Bands() int { return len(c.cuts) + 1 }

// Reset clears every stage's filter history.
func (c *Crossover) Reset() {
	for _, s := range c.stages {
		s.reset()
	}
}

// ProcessToBands splits an interleaved float64 buffer into N = Bands()
// band buffers, each the same length as in. bands must already be sized
// [N][len(in)] by the caller; this never allocates.
func (c *Crossover) ProcessToBands(in []float64, channels int, bands [][]float64) {
	if channels < 1 {
		channels = 1
	}
	n := len(c.stages)
	for i, x := range in {
		ch := i % channels
		remainder := x
		for s := 0; s < n; s++ {
			low, high := c.stages[s].split(ch, remainder)
			bands[s][i] = low
			remainder = high
		}
		bands[n][i] = remainder
	}
}

// CombineBands sums the band buffers back into out, reconstructing the
// (approximately) original signal.
func CombineBands(out []float64, bands [][]float64) {
	for i := range out {
		var sum float64
		for _, band := range bands {
			sum += band[i]
		}
		out[i] = sum
	}
}
