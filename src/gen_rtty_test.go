package rtty

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GenRTTY_Decode(t *testing.T) {
	var cfg = DefaultModemConfig()
	var path = filepath.Join(t.TempDir(), "test1.wav")

	AssertOutputContains(t, func() {
		require.NoError(t, genRTTY(genRTTYOptions{cfg: cfg, output: path, text: genRTTYDefaultMessage, repeat: 2}))
	}, "to "+path)

	var f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	res, err := DecodeWAV(f, cfg)
	require.NoError(t, err)

	var line = strings.TrimSuffix(genRTTYDefaultMessage, "\n") + "\r\n"
	assert.Equal(t, line+line, res.Text)
	assert.Equal(t, int64(0), res.Stats.FramingErrors)
	assert.Equal(t, 1, res.Carrier)
	assert.Greater(t, res.Duration, 10*time.Second)
}

func Test_GenRTTY_Noise(t *testing.T) {
	var cfg = DefaultModemConfig()
	cfg.Baud = 50
	cfg.Shift = 450
	var path = filepath.Join(t.TempDir(), "noisy.wav")

	CaptureOutput(t, func() {
		require.NoError(t, genRTTY(genRTTYOptions{cfg: cfg, output: path, text: "CQ CQ DE N0CALL N0CALL K\n", noise: 0.1}))
	})

	var f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	res, err := DecodeWAV(f, cfg)
	require.NoError(t, err)
	// Noise before the preamble may decode as anything.
	assert.Contains(t, res.Text, "DE N0CALL N0CALL K")
}

func Test_GenRTTY_Calibrate(t *testing.T) {
	var cfg = DefaultModemConfig()
	cfg.SampleRate = 8000
	cfg.Baud = 50
	cfg.Center = 1000
	var path = filepath.Join(t.TempDir(), "cal.wav")

	CaptureOutput(t, func() {
		require.NoError(t, genRTTY(genRTTYOptions{cfg: cfg, output: path, calibrate: CalibrateReversals, duration: time.Second}))
	})

	var f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rate, samples, err := ReadWAV(f)
	require.NoError(t, err)
	assert.Equal(t, 8000, rate)
	// Lead guard, 50 symbols, trail guard.
	assert.Len(t, samples, 1600+50*160+800)
}

func Test_GenRTTY_BadConfig(t *testing.T) {
	var cfg = DefaultModemConfig()
	cfg.Shift = 5000
	var err = genRTTY(genRTTYOptions{cfg: cfg, output: filepath.Join(t.TempDir(), "x.wav"), text: "X"})
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "shift", ce.Field)
}

func Test_AddNoise(t *testing.T) {
	var clean = make([]int16, 1000)
	clean[10] = 32767
	clean[11] = -32767

	var a = slices.Clone(clean)
	var b = slices.Clone(clean)
	AddNoise(a, 0.2)
	AddNoise(b, 0.2)

	assert.Equal(t, a, b, "repeatable")
	assert.NotEqual(t, clean, a)
	for _, v := range a {
		assert.LessOrEqual(t, v, int16(32767))
		assert.GreaterOrEqual(t, v, int16(-32767))
	}
	var peak int16
	for j, v := range a {
		if j != 10 && j != 11 {
			peak = max(peak, v, -v)
		}
	}
	assert.LessOrEqual(t, float64(peak), 0.2*32767)
}

func Test_RenderBurst_Empty(t *testing.T) {
	var out, err = RenderBurst(DefaultModemConfig(), "")
	assert.NoError(t, err)
	assert.Empty(t, out)
}

func Test_DecodeWAV_SampleRateFromFile(t *testing.T) {
	var cfg = DefaultModemConfig()
	cfg.SampleRate = 22050

	var audio, err = RenderBurst(cfg, "RATE")
	require.NoError(t, err)

	var path = filepath.Join(t.TempDir(), "r.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteWAV(f, cfg.SampleRate, audio))
	require.NoError(t, f.Close())

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	// Told 44100, but the file says otherwise.
	res, err := DecodeWAV(f, DefaultModemConfig())
	require.NoError(t, err)
	assert.Equal(t, "RATE", res.Text)
}
