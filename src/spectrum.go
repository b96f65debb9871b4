package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Magnitude spectrum snapshots for a tuning display.
 *
 * Description:	The audio callback only copies samples into a history
 *		buffer.  At the configured interval it offers a copy to
 *		a separate goroutine, which windows it, transforms it,
 *		and publishes the result.  If that goroutine is still
 *		busy the snapshot is skipped.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"math/cmplx"
	"sync/atomic"
	"time"

	"github.com/mjibson/go-dsp/fft"
	dspwindow "github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

const (
	spectrumSize = 1024
	spectrumBins = 512
)

// Spectrum is one snapshot.  Magnitudes[k] is at k * BinWidth Hz.
type Spectrum struct {
	Time       time.Time
	BinWidth   float64
	Magnitudes []float64
}

// Peak returns the frequency and magnitude of the strongest bin.
func (s *Spectrum) Peak() (float64, float64) {
	if s == nil || len(s.Magnitudes) == 0 {
		return 0, 0
	}
	var k = floats.MaxIdx(s.Magnitudes)
	return float64(k) * s.BinWidth, s.Magnitudes[k]
}

// Band returns the strongest magnitude between lo and hi Hz.
func (s *Spectrum) Band(lo, hi float64) float64 {
	if s == nil || s.BinWidth == 0 {
		return 0
	}
	var a = int(lo / s.BinWidth)
	var b = int(hi/s.BinWidth) + 1
	a = max(a, 0)
	b = min(b, len(s.Magnitudes))
	if a >= b {
		return 0
	}
	return floats.Max(s.Magnitudes[a:b])
}

type SpectrumTap struct {
	hist  [spectrumSize]int16
	pos   int
	since int64

	interval   atomic.Int64 // Samples between snapshots.  0 disables.
	sampleRate atomic.Int64

	free chan []float64
	work chan []float64

	win    []float64
	latest atomic.Pointer[Spectrum]
}

func NewSpectrumTap(cfg ModemConfig) *SpectrumTap {
	var t = &SpectrumTap{
		free: make(chan []float64, 2),
		work: make(chan []float64, 1),
		win:  dspwindow.Hamming(spectrumSize),
	}
	for range cap(t.free) {
		t.free <- make([]float64, spectrumSize)
	}
	t.Configure(cfg)
	return t
}

func (t *SpectrumTap) Configure(cfg ModemConfig) {
	t.sampleRate.Store(int64(cfg.SampleRate))
	t.interval.Store(cfg.Samples(cfg.SpectrumInterval))
}

// Feed is called from the audio callback.
func (t *SpectrumTap) Feed(in []int16) {
	for _, v := range in {
		t.hist[t.pos] = v
		t.pos = (t.pos + 1) % spectrumSize
	}

	var interval = t.interval.Load()
	if interval <= 0 {
		return
	}
	t.since += int64(len(in))
	if t.since < interval {
		return
	}
	t.since = 0

	var buf []float64
	select {
	case buf = <-t.free:
	default:
		return
	}

	for j := range buf {
		buf[j] = float64(t.hist[(t.pos+j)%spectrumSize]) / 32768.0
	}

	select {
	case t.work <- buf:
	default:
		t.free <- buf
	}
}

// Run computes snapshots until ctx is done.
func (t *SpectrumTap) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case buf := <-t.work:
			t.latest.Store(t.compute(buf))
			t.free <- buf
		}
	}
}

func (t *SpectrumTap) compute(buf []float64) *Spectrum {
	var x = make([]float64, len(buf))
	floats.MulTo(x, buf, t.win)

	var bins = fft.FFTReal(x)
	var mags = make([]float64, spectrumBins)
	for k := range mags {
		mags[k] = cmplx.Abs(bins[k]) * 2 / spectrumSize
	}

	return &Spectrum{
		Time:       time.Now(),
		BinWidth:   float64(t.sampleRate.Load()) / spectrumSize,
		Magnitudes: mags,
	}
}

// Latest is nil until the first snapshot.
func (t *SpectrumTap) Latest() *Spectrum {
	return t.latest.Load()
}

/* end spectrum.go */
