package rtty

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// The n-th bit boundary is at round(n * rate / baud) whatever the speed.
func Test_ToneGen_BitBoundaries(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var cfg = DefaultModemConfig()
		cfg.Baud = rapid.SampledFrom(BaudPresets).Draw(t, "baud")
		cfg.SampleRate = rapid.SampledFrom([]int{8000, 11025, 22050, 44100, 48000}).Draw(t, "rate")
		cfg.Center = 1500

		var g = NewToneGen(cfg)
		var out []int16
		for n := 1; n <= 200; n++ {
			out = g.AppendBit(out, n%3 == 0, 1)
			var want = int64(math.Round(float64(n) * float64(cfg.SampleRate) / cfg.Baud))
			if g.Written() != want || int64(len(out)) != want {
				t.Fatalf("after %d bits: wrote %d, want %d", n, g.Written(), want)
			}
		}
	})
}

func Test_ToneGen_Word(t *testing.T) {
	var cfg = DefaultModemConfig()
	cfg.Baud = 50
	cfg.SampleRate = 8000
	cfg.Center = 1000

	for _, stop := range []float64{1, 1.5, 2} {
		cfg.StopBits = stop
		var g = NewToneGen(cfg)
		var out = g.AppendWord(nil, 0x1f)
		assert.Len(t, out, int(math.Round((6+stop)*160)), "stop bits %v", stop)
	}
}

func Test_ToneGen_Amplitude(t *testing.T) {
	var cfg = DefaultModemConfig()
	cfg.Amplitude = 25

	var g = NewToneGen(cfg)
	var out = g.AppendIdle(nil, 10)
	var peak int16
	for _, v := range out {
		peak = max(peak, v)
	}
	assert.InDelta(t, 32767*0.25, float64(peak), 200)
}

// Switching tones never jumps in phase: no sample to sample step is
// bigger than the highest tone allows.
func Test_ToneGen_PhaseContinuous(t *testing.T) {
	var cfg = DefaultModemConfig()
	cfg.Amplitude = 100
	var g = NewToneGen(cfg)

	var out []int16
	for k := range 100 {
		out = g.AppendBit(out, k%2 == 0, 1)
	}

	var limit = 32767 * 2 * math.Pi * cfg.MarkFreq() / float64(cfg.SampleRate) * 1.1
	for j := 1; j < len(out); j++ {
		var step = math.Abs(float64(out[j]) - float64(out[j-1]))
		if step > limit {
			t.Fatalf("step of %v at sample %d", step, j)
		}
	}
}

func Test_ToneGen_SilenceAndSlip(t *testing.T) {
	var cfg = DefaultModemConfig()
	cfg.SampleRate = 8000
	cfg.Baud = 50
	var g = NewToneGen(cfg)

	var out = g.AppendSilence(nil, 100)
	assert.Len(t, out, 100)
	assert.Equal(t, int64(100), g.Written())
	for _, v := range out {
		assert.Equal(t, int16(0), v)
	}

	out = g.AppendBit(nil, true, 1)
	assert.Len(t, out, 160)

	g.Slip(0.25)
	out = g.AppendBit(nil, true, 1)
	assert.Len(t, out, 200)

	g.Slip(-0.25)
	out = g.AppendBit(nil, true, 1)
	assert.Len(t, out, 120)

	g.Slip(-3)
	out = g.AppendBit(nil, true, 1)
	assert.Len(t, out, 80, "slip limited to half a symbol")
}

func Test_ToneGen_Calibration(t *testing.T) {
	var cfg = DefaultModemConfig()
	cfg.SampleRate = 8000
	cfg.Baud = 50
	cfg.Center = 1000

	for _, c := range []Calibration{CalibrateMark, CalibrateSpace, CalibrateReversals} {
		var g = NewToneGen(cfg)
		assert.Len(t, g.AppendCalibration(nil, c, 50), 50*160, "%s", c)
	}
}
