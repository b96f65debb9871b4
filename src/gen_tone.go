package rtty

/*------------------------------------------------------------------
 *
 * Purpose:     Convert Baudot words to AFSK audio samples.
 *
 * Description:	Direct digital synthesis.  One 32 bit phase
 *		accumulator is shared by every bit so switching between
 *		mark and space never breaks the phase.  The top 8 bits
 *		index a sine table scaled for the requested amplitude.
 *
 *		Bit lengths are rarely a whole number of samples.  The
 *		fraction is carried from one bit to the next so the
 *		n-th bit boundary is always at round(n * rate / baud).
 *
 *---------------------------------------------------------------*/

import (
	"math"
)

type ToneGen struct {
	markDelta  uint32
	spaceDelta uint32
	phase      uint32

	sineTable [256]int16

	samplesPerBit float64
	bitLenAcc     float64 // Fractional samples carried to the next bit.
	stopBits      float64

	written int64
}

/*------------------------------------------------------------------
 *
 * Name:        NewToneGen
 *
 * Purpose:     Calculate constants for tone generation.
 *
 * Inputs:      cfg	- Sample rate, baud, tones, stop bits and amplitude.
 *			  Amplitude 100 uses the full 16 bit range.
 *
 *----------------------------------------------------------------*/

func NewToneGen(cfg ModemConfig) *ToneGen {
	var g = &ToneGen{
		markDelta:     uint32(math.Round(cfg.MarkFreq() * ticksPerCycle / float64(cfg.SampleRate))),
		spaceDelta:    uint32(math.Round(cfg.SpaceFreq() * ticksPerCycle / float64(cfg.SampleRate))),
		samplesPerBit: cfg.SamplesPerSymbol(),
		bitLenAcc:     0.5,
		stopBits:      cfg.StopBits,
	}

	for j := range g.sineTable {
		var a = (float64(j) / 256.0) * (2.0 * math.Pi)
		var s = math.Sin(a) * 32767 * float64(cfg.Amplitude) / 100.0
		g.sineTable[j] = int16(max(-32767, min(32767, s)))
	}

	return g
}

// bitSamples returns the length of the next bit of the given duration
// in symbol periods.
func (g *ToneGen) bitSamples(symbols float64) int {
	g.bitLenAcc += symbols * g.samplesPerBit
	var n = math.Floor(g.bitLenAcc)
	g.bitLenAcc -= n
	return int(n)
}

/*-------------------------------------------------------------------
 *
 * Name:        AppendBit
 *
 * Purpose:     Generate tone of proper duration for one bit.
 *
 * Inputs:      dst	- Samples are appended here.
 *
 *		mark	- true for the mark tone.
 *
 *		symbols	- Duration in symbol periods, normally 1.
 *
 *--------------------------------------------------------------------*/

func (g *ToneGen) AppendBit(dst []int16, mark bool, symbols float64) []int16 {
	var delta = g.spaceDelta
	if mark {
		delta = g.markDelta
	}

	var n = g.bitSamples(symbols)
	for range n {
		dst = append(dst, g.sineTable[g.phase>>24])
		g.phase += delta
	}
	g.written += int64(n)
	return dst
}

// AppendWord renders start bit, 5 data bits least significant first,
// and the stop bits.
func (g *ToneGen) AppendWord(dst []int16, word byte) []int16 {
	dst = g.AppendBit(dst, false, 1)
	for k := range 5 {
		dst = g.AppendBit(dst, word&(1<<k) != 0, 1)
	}
	return g.AppendBit(dst, true, g.stopBits)
}

// AppendIdle renders n bit periods of steady mark.
func (g *ToneGen) AppendIdle(dst []int16, n int) []int16 {
	for range n {
		dst = g.AppendBit(dst, true, 1)
	}
	return dst
}

// AppendSilence does not disturb bit timing or tone phase.
func (g *ToneGen) AppendSilence(dst []int16, n int) []int16 {
	for range n {
		dst = append(dst, 0)
	}
	g.written += int64(n)
	return dst
}

// Slip moves every later bit boundary by the given number of symbol
// periods, at most half a symbol earlier.  Used to test clock recovery.
func (g *ToneGen) Slip(symbols float64) {
	g.bitLenAcc += max(symbols, -0.5) * g.samplesPerBit
}

// Written counts all samples produced.
func (g *ToneGen) Written() int64 {
	return g.written
}

// Calibration is a steady test signal for transmitter adjustment.
type Calibration string

const (
	CalibrateMark      Calibration = "mark"
	CalibrateSpace     Calibration = "space"
	CalibrateReversals Calibration = "reversals" // Alternating mark and space each bit.
)

// AppendCalibration renders nbits bit periods of the chosen pattern.
func (g *ToneGen) AppendCalibration(dst []int16, c Calibration, nbits int) []int16 {
	for k := range nbits {
		switch c {
		case CalibrateSpace:
			dst = g.AppendBit(dst, false, 1)
		case CalibrateReversals:
			dst = g.AppendBit(dst, k%2 == 0, 1)
		default:
			dst = g.AppendBit(dst, true, 1)
		}
	}
	return dst
}

/* end gen_tone.go */
