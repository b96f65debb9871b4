package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Tone discriminator for the receive path.
 *
 * Description:	Each tone has a quadrature local oscillator at exactly
 *		the tone frequency.  The input is mixed with it and the
 *		I and Q products are summed over a sliding window.  The
 *		magnitude of the two sums is the amplitude of that tone
 *		during the window, which is a single bin DFT evaluated
 *		every sample.
 *
 *		The window is a fraction of a symbol: short enough to
 *		follow transitions, long enough to separate the tones.
 *		When it fits, the window is a whole number of cycles of
 *		the shift frequency, which puts the other tone exactly
 *		on a null of the boxcar response.
 *
 *		Mark and space amplitudes are each scaled by their own
 *		peak envelope so an uneven receiver passband does not
 *		bias the slicer.
 *
 *---------------------------------------------------------------*/

import (
	"math"
)

// ToneEnergy is the amplitude of each tone on the current window.
type ToneEnergy struct {
	Mark  float64
	Space float64
}

const ticksPerCycle = 256.0 * 256.0 * 256.0 * 256.0

var cos256Table [256]float64

func init() {
	for j := range cos256Table {
		cos256Table[j] = math.Cos(float64(j) * 2.0 * math.Pi / 256.0)
	}
}

func cos256(x uint32) float64 {
	return cos256Table[(x>>24)&0xff]
}

func sin256(x uint32) float64 {
	return cos256Table[((x>>24)-64)&0xff]
}

// Recompute the running sums from scratch this often to stop rounding
// from accumulating.
const resumInterval = 1 << 16

type toneCorrelator struct {
	delta uint32
	phase uint32

	iHist []float64
	qHist []float64
	pos   int

	iSum float64
	qSum float64

	sinceResum int
}

func newToneCorrelator(freq float64, sampleRate int, size int) *toneCorrelator {
	return &toneCorrelator{
		delta: uint32(math.Round(ticksPerCycle * freq / float64(sampleRate))),
		iHist: make([]float64, size),
		qHist: make([]float64, size),
	}
}

// push returns the tone amplitude over the window ending with x.
func (c *toneCorrelator) push(x float64) float64 {
	var i = x * cos256(c.phase)
	var q = x * sin256(c.phase)
	c.phase += c.delta

	c.iSum += i - c.iHist[c.pos]
	c.qSum += q - c.qHist[c.pos]
	c.iHist[c.pos] = i
	c.qHist[c.pos] = q
	c.pos++
	if c.pos == len(c.iHist) {
		c.pos = 0
	}

	c.sinceResum++
	if c.sinceResum >= resumInterval {
		c.sinceResum = 0
		c.iSum, c.qSum = 0, 0
		for k := range c.iHist {
			c.iSum += c.iHist[k]
			c.qSum += c.qHist[k]
		}
	}

	return 2 * math.Hypot(c.iSum, c.qSum) / float64(len(c.iHist))
}

func (c *toneCorrelator) reset() {
	clear(c.iHist)
	clear(c.qHist)
	c.pos = 0
	c.iSum, c.qSum = 0, 0
	c.phase = 0
	c.sinceResum = 0
}

/*------------------------------------------------------------------
 *
 * Name:	envelope
 *
 * Purpose:	Track the peak of a tone amplitude.
 *
 * Inputs:	in		- New amplitude.
 *		fastAttack	- Fraction taken from a new peak.
 *		slowDecay	- Fraction taken otherwise.
 *		peak		- Previous envelope.
 *
 * Returns:	New envelope.
 *
 *---------------------------------------------------------------*/

func envelope(in, fastAttack, slowDecay float64, peak float64) float64 {
	if in >= peak {
		return in*fastAttack + peak*(1.0-fastAttack)
	}
	return in*slowDecay + peak*(1.0-slowDecay)
}

// Below this fraction of the envelope both tones are considered absent.
const squelchFraction = 0.1

const squelchOutput = 0.01

// Discriminator turns audio into a signal that is positive for mark
// and negative for space.
type Discriminator struct {
	pre   *firFilter
	mark  *toneCorrelator
	space *toneCorrelator

	fastAttack float64
	slowDecay  float64

	mPeak float64
	sPeak float64

	// Reference for a tone that has not been heard, as a fraction of
	// the louder envelope.
	floor float64

	window int
}

/*------------------------------------------------------------------
 *
 * Name:	discriminatorWindow
 *
 * Purpose:	Pick the correlation window length in samples.
 *
 * Description:	Largest whole number of shift periods that is not
 *		longer than the requested fraction of a symbol.
 *
 *		A narrow shift at a high speed may not fit even one
 *		period.  Then the window is one shift period, or the
 *		whole symbol if that is shorter, because anything less
 *		leaves the two tones almost inseparable.
 *
 *---------------------------------------------------------------*/

func discriminatorWindow(cfg ModemConfig) int {
	var limit = cfg.WindowFraction * cfg.SamplesPerSymbol()
	var period = float64(cfg.SampleRate) / cfg.Shift

	var k = math.Floor(limit / period)
	var n float64
	if k >= 1 {
		n = math.Round(k * period)
	} else {
		n = math.Round(math.Min(period, cfg.SamplesPerSymbol()))
	}
	if n < 4 {
		n = 4
	}
	return int(n)
}

// windowLeakage is how much of one tone a window of n samples picks up
// at the other tone, relative to its own.  Zero for whole shift periods.
func windowLeakage(cfg ModemConfig, n int) float64 {
	var x = math.Pi * cfg.Shift / float64(cfg.SampleRate)
	return math.Abs(math.Sin(float64(n)*x) / (float64(n) * math.Sin(x)))
}

// prefilterTaps covers both tones plus a guard of one baud either side.
func prefilterTaps(cfg ModemConfig) []float64 {
	var lo = math.Min(cfg.MarkFreq(), cfg.SpaceFreq()) - cfg.Shift/2 - cfg.Baud
	var hi = math.Max(cfg.MarkFreq(), cfg.SpaceFreq()) + cfg.Shift/2 + cfg.Baud
	if lo < 10 {
		lo = 10
	}
	if hi > 0.49*float64(cfg.SampleRate) {
		hi = 0.49 * float64(cfg.SampleRate)
	}

	var size = int(2*float64(cfg.SampleRate)/cfg.Shift) | 1
	return genBandpass(lo/float64(cfg.SampleRate), hi/float64(cfg.SampleRate), size, windowBlackman)
}

func NewDiscriminator(cfg ModemConfig) *Discriminator {
	var n = discriminatorWindow(cfg)
	var d = &Discriminator{
		mark:       newToneCorrelator(cfg.MarkFreq(), cfg.SampleRate, n),
		space:      newToneCorrelator(cfg.SpaceFreq(), cfg.SampleRate, n),
		fastAttack: 0.70,
		slowDecay:  1.0 / (16 * cfg.SamplesPerSymbol()),
		floor:      math.Max(0.5, math.Min(1, windowLeakage(cfg, n)+0.25)),
		window:     n,
	}
	if cfg.Prefilter {
		d.pre = newFIR(prefilterTaps(cfg))
	}
	return d
}

// Window is the correlation length in samples.
func (d *Discriminator) Window() int {
	return d.window
}

// Process takes one input sample, full scale +-1.
func (d *Discriminator) Process(x float64) (float64, ToneEnergy) {
	if d.pre != nil {
		x = d.pre.push(x)
	}

	var mAmp = d.mark.push(x)
	var sAmp = d.space.push(x)

	d.mPeak = envelope(mAmp, d.fastAttack, d.slowDecay, d.mPeak)
	d.sPeak = envelope(sAmp, d.fastAttack, d.slowDecay, d.sPeak)

	var energy = ToneEnergy{Mark: mAmp, Space: sAmp}

	// No signal reads as idle mark so silence never looks like a start bit.
	var ref = math.Max(d.mPeak, d.sPeak)
	if ref < 1e-9 || math.Max(mAmp, sAmp) < squelchFraction*ref {
		return squelchOutput, energy
	}

	// A tone that has not been heard yet, such as space during a long
	// idle, would otherwise be normalized against its own leakage.  The
	// floor stays above what leaks through a short window.
	var floor = d.floor * ref
	var mRef = math.Max(d.mPeak, floor)
	var sRef = math.Max(d.sPeak, floor)

	return mAmp/mRef - sAmp/sRef, energy
}

func (d *Discriminator) Reset() {
	if d.pre != nil {
		d.pre.reset()
	}
	d.mark.reset()
	d.space.reset()
	d.mPeak, d.sPeak = 0, 0
}

/* end tone_disc.go */
