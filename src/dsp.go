package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Generate the filters used by the discriminator.
 *
 *---------------------------------------------------------------*/

import (
	"math"
)

type windowType int

const (
	windowTruncated windowType = iota
	windowCosine
	windowHamming
	windowBlackman
)

const maxFilterSize = 2048

/*------------------------------------------------------------------
 *
 * Name:        window
 *
 * Purpose:     Filter window shape functions.
 *
 * Inputs:   	wtype	- windowHamming, etc.
 *		size	- Number of filter taps.
 *		j	- Index in range of 0 to size-1.
 *
 * Returns:     Multiplier for the window shape.
 *
 *----------------------------------------------------------------*/

func window(wtype windowType, size int, j int) float64 {
	var n = float64(size)
	var x = float64(j)
	var center = 0.5 * (n - 1)

	switch wtype {
	case windowCosine:
		return math.Cos((x - center) / n * math.Pi)

	case windowHamming:
		return 0.53836 - 0.46164*math.Cos((x*2*math.Pi)/(n-1))

	case windowBlackman:
		return 0.42659 - 0.49656*math.Cos((x*2*math.Pi)/(n-1)) +
			0.076849*math.Cos((x*4*math.Pi)/(n-1))

	default:
		return 1.0
	}
}

/*------------------------------------------------------------------
 *
 * Name:        genBandpass
 *
 * Purpose:     Generate band pass filter kernel for the prefilter.
 *
 * Inputs:   	f1	- Lower cutoff frequency as fraction of sampling frequency.
 *		f2	- Upper cutoff frequency...
 *		size	- Number of filter taps.  Odd keeps the delay whole.
 *		wtype	- Window type.
 *
 * Returns:	Kernel normalized for unity gain in the middle of the
 *		passband.
 *
 *----------------------------------------------------------------*/

func genBandpass(f1, f2 float64, size int, wtype windowType) []float64 {
	if size < 3 {
		size = 3
	}
	if size > maxFilterSize {
		size = maxFilterSize
	}

	var taps = make([]float64, size)
	var center = 0.5 * float64(size-1)

	for j := range taps {
		var t = float64(j) - center
		var sinc float64
		if t == 0 {
			sinc = 2 * (f2 - f1)
		} else {
			sinc = math.Sin(2*math.Pi*f2*t)/(math.Pi*t) -
				math.Sin(2*math.Pi*f1*t)/(math.Pi*t)
		}
		taps[j] = sinc * window(wtype, size, j)
	}

	// Gain at the middle of the passband.  A plain sum works for a
	// lowpass but not here.
	var w = 2 * math.Pi * (f1 + f2) / 2
	var re, im float64
	for j, v := range taps {
		re += v * math.Cos(float64(j)*w)
		im += v * math.Sin(float64(j)*w)
	}
	var g = math.Hypot(re, im)
	for j := range taps {
		taps[j] /= g
	}

	return taps
}

// gainAt is the magnitude response of a FIR kernel at f, a fraction of
// the sampling frequency.
func gainAt(taps []float64, f float64) float64 {
	var w = 2 * math.Pi * f
	var re, im float64
	for j, v := range taps {
		re += v * math.Cos(float64(j)*w)
		im += v * math.Sin(float64(j)*w)
	}
	return math.Hypot(re, im)
}

// firFilter is a direct form FIR with a circular history.
type firFilter struct {
	taps []float64
	hist []float64
	pos  int
}

func newFIR(taps []float64) *firFilter {
	return &firFilter{taps: taps, hist: make([]float64, len(taps))}
}

func (f *firFilter) push(x float64) float64 {
	f.hist[f.pos] = x
	var n = len(f.taps)
	var sum float64
	var k = f.pos
	for _, t := range f.taps {
		sum += t * f.hist[k]
		k--
		if k < 0 {
			k = n - 1
		}
	}
	f.pos++
	if f.pos == n {
		f.pos = 0
	}
	return sum
}

func (f *firFilter) reset() {
	clear(f.hist)
	f.pos = 0
}

/* end dsp.go */
