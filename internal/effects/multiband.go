package effects

import "math"

// TenBandCenters are the log-spaced center frequencies (Hz) spec.md
// §4.J's band definition uses for both spectral analysis and the
// multiband EQ's 10-band gain vector.
var TenBandCenters = [10]float64{31.25, 62.5, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// Multiband implements spec.md §4.I's composite multiband
// compressor/EQ: a Linkwitz-Riley crossover splits the signal into bands,
// each band is shaped by a peaking biquad (gain drawn from the nearest
// entry of a 10-band EQ vector) and a BandCompressor, the bands are
// summed, and a final DynamicAmp stage brings the mix to a target level.
type Multiband struct {
	base

	sampleRate int
	channels   int

	cuts      []float64
	crossover *Crossover

	eqGainsDB [10]float64
	bandEQ    []*Biquad
	bandComp  []*BandCompressor
	dynAmp    *DynamicAmp

	scratchIn   []float64
	scratchOut  []float64
	scratchBand [][]float64
}

// NewMultiband constructs a Multiband with a default 3-cut crossover
// (250 Hz, 2 kHz, 8 kHz — the values spec.md §8 scenario 5 exercises) and
// a flat EQ.
func NewMultiband() *Multiband {
	m := &Multiband{base: newBase("Multiband")}
	m.cuts = []float64{250, 2000, 8000}
	return m
}

func (m *Multiband) Initialize(sampleRate int, channels int) error {
	m.sampleRate = sampleRate
	m.channels = channels
	if channels < 1 {
		m.channels = 1
	}
	m.crossover = NewCrossover(sampleRate, m.channels, m.cuts)
	m.rebuildBands()
	m.dynAmp = NewDynamicAmp(sampleRate)
	m.Reset()
	return nil
}

func (m *Multiband) rebuildBands() {
	n := m.crossover.Bands()
	m.bandEQ = make([]*Biquad, n)
	m.bandComp = make([]*BandCompressor, n)
	edges := bandEdges(m.cuts)
	for i := 0; i < n; i++ {
		center := bandCenter(edges[i], edges[i+1])
		eq := NewBiquad(m.sampleRate, m.channels)
		eq.SetParams(BiquadPeaking, center, 1.0, m.gainForCenter(center))
		m.bandEQ[i] = eq
		m.bandComp[i] = NewBandCompressor(m.sampleRate, m.channels)
	}
}

// bandEdges returns the crossover band edges, [0, f1, f2, ..., +Inf].
func bandEdges(cuts []float64) []float64 {
	edges := make([]float64, 0, len(cuts)+2)
	edges = append(edges, 0)
	edges = append(edges, cuts...)
	edges = append(edges, math.Inf(1))
	return edges
}

// bandCenter picks a representative frequency for a crossover band,
// using the geometric mean of finite edges and falling back to the
// lower edge scaled up for the open-ended top band.
func bandCenter(lo, hi float64) float64 {
	if lo <= 0 {
		lo = 20
	}
	if math.IsInf(hi, 1) {
		return lo * 2
	}
	return math.Sqrt(lo * hi)
}

// gainForCenter looks up the nearest (in log-frequency distance) entry
// of the 10-band EQ vector for a given band's representative center.
func (m *Multiband) gainForCenter(center float64) float64 {
	best := 0
	bestDist := math.Inf(1)
	logCenter := math.Log2(center)
	for i, f := range TenBandCenters {
		d := math.Abs(math.Log2(f) - logCenter)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return m.eqGainsDB[best]
}

// SetCuts reconfigures the crossover's cut frequencies (Hz, ascending),
// rebuilding all per-band stages.
func (m *Multiband) SetCuts(cuts []float64) {
	m.cuts = append([]float64(nil), cuts...)
	if m.crossover != nil {
		m.crossover.SetCuts(m.cuts)
		m.rebuildBands()
		m.scratchBand = nil
	}
}

// SetBandGainsDB sets the 10-band EQ gain vector (dB), clamped to
// [-12, 12] per spec.md §4.J, and reapplies it to each band's peaking
// filter.
func (m *Multiband) SetBandGainsDB(gains [10]float64) {
	for i, g := range gains {
		m.eqGainsDB[i] = clamp(g, -12, 12)
	}
	edges := bandEdges(m.cuts)
	for i, eq := range m.bandEQ {
		center := bandCenter(edges[i], edges[i+1])
		eq.SetParams(BiquadPeaking, center, 1.0, m.gainForCenter(center))
	}
}

// SetBandParams configures band i's compressor (threshold/ratio/
// attack/release/makeup).
func (m *Multiband) SetBandParams(i int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float64) {
	if i < 0 || i >= len(m.bandComp) {
		return
	}
	m.bandComp[i].SetParams(thresholdDB, ratio, attackMs, releaseMs, makeupDB)
}

// SetDynamicAmpParams configures the final broadband dynamic amplifier.
func (m *Multiband) SetDynamicAmpParams(targetDB, attackMs, releaseMs, maxGainDB float64) {
	m.dynAmp.SetParams(targetDB, attackMs, releaseMs, maxGainDB)
}

func (m *Multiband) Reset() {
	if m.crossover != nil {
		m.crossover.Reset()
	}
	for i := range m.bandEQ {
		m.bandEQ[i].Reset()
	}
	for i := range m.bandComp {
		m.bandComp[i].Reset()
	}
	if m.dynAmp != nil {
		m.dynAmp.Reset()
	}
}

func (m *Multiband) Dispose() {}

func (m *Multiband) ensureScratch(total int) {
	if cap(m.scratchIn) < total {
		m.scratchIn = make([]float64, total)
		m.scratchOut = make([]float64, total)
	}
	m.scratchIn = m.scratchIn[:total]
	m.scratchOut = m.scratchOut[:total]

	if m.scratchBand == nil {
		m.scratchBand = make([][]float64, len(m.bandEQ))
	}
	for i := range m.scratchBand {
		if cap(m.scratchBand[i]) < total {
			m.scratchBand[i] = make([]float64, total)
		}
		m.scratchBand[i] = m.scratchBand[i][:total]
	}
}

func (m *Multiband) Process(buf []float32, frameCount int) {
	if !m.shouldProcess() || m.crossover == nil {
		return
	}
	channels := m.channels
	if channels < 1 {
		channels = 1
	}
	total := frameCount * channels
	if total > len(buf) {
		total = len(buf)
	}
	if total == 0 {
		return
	}

	m.ensureScratch(total)
	in := m.scratchIn[:total]
	for i := 0; i < total; i++ {
		in[i] = float64(buf[i])
	}

	bands := m.scratchBand
	for i := range bands {
		bands[i] = bands[i][:total]
	}
	m.crossover.ProcessToBands(in, channels, bands)

	for i, eq := range m.bandEQ {
		eq.Process(bands[i], channels)
		m.bandComp[i].Process(bands[i], channels)
	}

	out := m.scratchOut[:total]
	CombineBands(out, bands)
	m.dynAmp.Process(out)

	for i := 0; i < total; i++ {
		dry := float64(buf[i])
		buf[i] = float32(dry*(1-m.mix) + out[i]*m.mix)
	}
}
