package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Recover the bit clock from the discriminator output.
 *
 * Description:	A signed 32 bit counter advances by a fixed step each
 *		audio sample so that it wraps once per symbol.  The
 *		wrap from positive to negative is the middle of the
 *		symbol and that is where the discriminator is sampled.
 *
 *		Ideally transitions happen when the counter is near 0.
 *		At each transition the counter is multiplied by a
 *		factor less than one, pulling it toward 0 by an amount
 *		proportional to the error and never past it.
 *
 *		With no transitions the counter keeps running at the
 *		configured rate.
 *
 *		A change from mark to space after at least most of a
 *		symbol of mark may be a start bit.  Like a UART, the
 *		clock is restarted from that edge, so odd stop bit
 *		lengths such as 1.5 do not leave it half a symbol out
 *		at the start of every character.
 *
 *		Carrier detect keeps a running score of how well the
 *		transitions line up with where they are expected.
 *
 *---------------------------------------------------------------*/

import (
	"math"
	"math/bits"
)

const (
	pllLockedInertia    = 0.74
	pllSearchingInertia = 0.50

	// Transitions within +- 1/8 symbol of expected count as good.
	dcdGoodWidth = 1 << 29

	// Steady mark needed before an edge is treated as a start bit.
	startIdleFraction = 0.9
)

type BitClock struct {
	step int32
	pll  int32

	prevData bool
	lastBit  bool // Most recent decision.
	markRun  int  // Samples since the last transition.
	minIdle  int
	skip     bool // Next sample point was already taken.

	// Carrier detect.
	goodFlag bool
	badFlag  bool
	goodHist uint8
	badHist  uint8
	score    uint32
	dcdOn    int
	dcdOff   int
	detect   bool
}

func NewBitClock(cfg ModemConfig) *BitClock {
	return &BitClock{
		step:    int32(math.Round(ticksPerCycle * cfg.Baud / float64(cfg.SampleRate))),
		minIdle: int(startIdleFraction * cfg.SamplesPerSymbol()),
		lastBit: true,
		dcdOn:   cfg.DCDOn,
		dcdOff:  cfg.DCDOff,
	}
}

// Phase is the clock position in symbols, -0.5 .. +0.5, with the sample
// point at the wrap.
func (b *BitClock) Phase() float64 {
	return float64(b.pll) / ticksPerCycle
}

// Locked reports carrier detect.
func (b *BitClock) Locked() bool {
	return b.detect
}

/*------------------------------------------------------------------
 *
 * Name:	Step
 *
 * Purpose:	Advance the clock by one audio sample.
 *
 * Inputs:	demodOut	- Discriminator output.  Positive is mark.
 *
 * Returns:	sampled		- True once per symbol.
 *		bit		- Symbol decision when sampled.
 *		dcdChanged	- Carrier detect changed on this sample.
 *
 *---------------------------------------------------------------*/

func (b *BitClock) Step(demodOut float64) (sampled bool, bit bool, dcdChanged bool) {
	var prev = b.pll
	b.pll = int32(uint32(b.pll) + uint32(b.step))

	var data = demodOut > 0

	if b.pll < 0 && prev > 0 {
		// Overflow.  This is where we sample.
		if b.skip {
			b.skip = false
		} else {
			sampled = true
			bit = data
			b.lastBit = data
			dcdChanged = b.eachSymbol()
		}
	}

	if data != b.prevData {
		var start = !data && b.markRun >= b.minIdle

		if b.pll > -dcdGoodWidth && b.pll < dcdGoodWidth {
			b.goodFlag = true
		} else if !start {
			b.badFlag = true
		}

		switch {
		case start:
			// A space was sampled less than half a symbol ago, so the
			// start bit has been seen already.
			if b.pll < 0 && !b.lastBit {
				b.skip = true
			}
			b.pll = 0
		case b.detect:
			b.pll = int32(float64(b.pll) * pllLockedInertia)
		default:
			b.pll = int32(float64(b.pll) * pllSearchingInertia)
		}
		b.markRun = 0
	}

	b.markRun++
	b.prevData = data
	return sampled, bit, dcdChanged
}

func (b *BitClock) eachSymbol() bool {
	b.goodHist <<= 1
	if b.goodFlag {
		b.goodHist |= 1
	}
	b.goodFlag = false

	b.badHist <<= 1
	if b.badFlag {
		b.badHist |= 1
	}
	b.badFlag = false

	b.score <<= 1
	if bits.OnesCount8(b.goodHist)-bits.OnesCount8(b.badHist) >= 2 {
		b.score |= 1
	}

	var s = bits.OnesCount32(b.score)
	if s >= b.dcdOn && !b.detect {
		b.detect = true
		return true
	}
	if s <= b.dcdOff && b.detect {
		b.detect = false
		return true
	}
	return false
}

func (b *BitClock) Reset() {
	*b = BitClock{step: b.step, minIdle: b.minIdle, lastBit: true, dcdOn: b.dcdOn, dcdOff: b.dcdOff}
}

/* end bit_clock.go */
