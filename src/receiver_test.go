package rtty

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rxResult struct {
	text   string
	stats  RxStats
	events []RxEvent
}

// receive runs audio through a receiver in sound card sized frames.
func receive(t *testing.T, rx *Receiver, audio []int16) rxResult {
	t.Helper()

	var res rxResult
	var text strings.Builder
	var chars = make([]rune, decodedQueueSize)

	for len(audio) > 0 {
		var n = min(len(audio), 1024)
		rx.Process(audio[:n])
		audio = audio[n:]

		var k = rx.Decoded().PopSlice(chars)
		text.WriteString(string(chars[:k]))
		res.events = rx.DrainEvents(res.events)
	}

	res.text = text.String()
	res.stats = rx.Stats()
	return res
}

func countEvents(events []RxEvent, kind RxEventKind) int {
	var n = 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func Test_Receiver_Loopback(t *testing.T) {
	var cfg = DefaultModemConfig()
	var msg = genRTTYDefaultMessage

	var audio, err = RenderBurst(cfg, msg)
	require.NoError(t, err)

	rx, err := NewReceiver(cfg)
	require.NoError(t, err)

	// Long enough after the burst for carrier detect to drop.
	var res = receive(t, rx, append(audio, make([]int16, 2*cfg.SampleRate)...))

	assert.Equal(t, strings.TrimSuffix(msg, "\n")+"\r\n", res.text)
	assert.Equal(t, int64(0), res.stats.FramingErrors)
	assert.Equal(t, int64(len(msg)+1), res.stats.Chars)
	assert.Equal(t, 1, countEvents(res.events, EventCarrierOn))
	assert.Equal(t, 1, countEvents(res.events, EventCarrierOff))
	assert.False(t, rx.Active())
	assert.Equal(t, int64(len(audio)+2*cfg.SampleRate), res.stats.Samples)
}

func Test_Receiver_HelloFigures(t *testing.T) {
	var cfg = DefaultModemConfig()

	var audio, err = RenderBurst(cfg, "HELLO 123")
	require.NoError(t, err)

	rx, err := NewReceiver(cfg)
	require.NoError(t, err)

	var res = receive(t, rx, audio)

	assert.Equal(t, "HELLO 123", res.text)
	assert.Equal(t, int64(0), res.stats.FramingErrors)
	// LTRS at the start of the burst and one FIGS.
	assert.Equal(t, int64(2), res.stats.ShiftWords)
}

func Test_Receiver_Settings(t *testing.T) {
	for _, tc := range []struct {
		name string
		set  func(*ModemConfig)
	}{
		{"50 baud 450 Hz", func(c *ModemConfig) { c.Baud = 50; c.Shift = 450; c.Center = 1800 }},
		{"75 baud", func(c *ModemConfig) { c.Baud = 75 }},
		{"reverse", func(c *ModemConfig) { c.Reverse = true }},
		{"one stop bit", func(c *ModemConfig) { c.StopBits = 1 }},
		{"one and a half stop bits", func(c *ModemConfig) { c.StopBits = 1.5 }},
		{"8000 Hz", func(c *ModemConfig) { c.SampleRate = 8000; c.Center = 1000 }},
		{"48000 Hz no prefilter", func(c *ModemConfig) { c.SampleRate = 48000; c.Prefilter = false }},
		{"us charset", func(c *ModemConfig) { c.Charset = CharsetUS }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var cfg = DefaultModemConfig()
			tc.set(&cfg)
			require.NoError(t, cfg.Validate())

			var msg = "CQ CQ DE N0CALL 599 73 ?"
			var audio, err = RenderBurst(cfg, msg)
			require.NoError(t, err)

			rx, err := NewReceiver(cfg)
			require.NoError(t, err)

			var res = receive(t, rx, audio)
			assert.Equal(t, msg, res.text)
			assert.Equal(t, int64(0), res.stats.FramingErrors)
		})
	}
}

// Every preset speed decodes cleanly at the narrowest, usual and widest
// shift.
func Test_Receiver_PresetShifts(t *testing.T) {
	var msg = "CQ CQ DE N0CALL 599 73 THE QUICK BROWN FOX"

	for _, baud := range BaudPresets {
		for _, shift := range []float64{MIN_SHIFT, DEFAULT_SHIFT, MAX_SHIFT} {
			var cfg = DefaultModemConfig()
			cfg.Baud = baud
			cfg.Shift = shift
			require.NoError(t, cfg.Validate())

			var audio, err = RenderBurst(cfg, msg)
			require.NoError(t, err)
			rx, err := NewReceiver(cfg)
			require.NoError(t, err)

			var res = receive(t, rx, audio)
			assert.Equal(t, msg, res.text, "%v baud %v Hz", baud, shift)
			assert.Equal(t, int64(0), res.stats.FramingErrors, "%v baud %v Hz", baud, shift)
		}
	}
}

// A 0.3 symbol jump in timing part way through costs at most one
// character.
func Test_Receiver_TimingJump(t *testing.T) {
	var cfg = DefaultModemConfig()
	var codec, _ = NewBaudot(cfg.Charset, cfg.UnshiftOnSpace)
	var first = "RYRYRYRYRY"
	var second = "THE QUICK BROWN FOX"

	for _, jump := range []float64{0.3, -0.3} {
		var g = NewToneGen(cfg)
		var audio = g.AppendSilence(nil, 4410)
		audio = g.AppendIdle(audio, 8)
		audio = g.AppendWord(audio, CodeLetters)
		for _, w := range encodeString(t, codec, first) {
			audio = g.AppendWord(audio, w)
		}
		g.Slip(jump)
		for _, w := range encodeString(t, codec, second) {
			audio = g.AppendWord(audio, w)
		}
		audio = g.AppendIdle(audio, 4)
		audio = g.AppendSilence(audio, 4410)

		var rx, err = NewReceiver(cfg)
		require.NoError(t, err)
		var res = receive(t, rx, audio)

		assert.True(t, strings.HasPrefix(res.text, first), "jump %v: %q", jump, res.text)
		assert.Contains(t, res.text, second[1:], "jump %v", jump)
		assert.LessOrEqual(t, res.stats.FramingErrors, int64(1), "jump %v", jump)
	}
}

func Test_Receiver_Silence(t *testing.T) {
	var cfg = DefaultModemConfig()
	var rx, err = NewReceiver(cfg)
	require.NoError(t, err)

	var res = receive(t, rx, make([]int16, 3*cfg.SampleRate))

	assert.Empty(t, res.text)
	assert.Equal(t, int64(0), res.stats.FramingErrors)
	assert.False(t, rx.Active())
	assert.Equal(t, 0, rx.TakePeak())
}

func Test_Receiver_Configure(t *testing.T) {
	var cfg = DefaultModemConfig()
	var rx, err = NewReceiver(cfg)
	require.NoError(t, err)

	var other = cfg
	other.Baud = 50
	other.Shift = 450
	other.Center = 1800
	require.NoError(t, rx.Configure(other))

	// Still the old one until audio arrives.
	assert.Equal(t, cfg, rx.Config())

	audio, err := RenderBurst(other, "RECONFIGURED")
	require.NoError(t, err)
	var res = receive(t, rx, audio)

	assert.Equal(t, other, rx.Config())
	assert.Equal(t, "RECONFIGURED", res.text)
	assert.Equal(t, 1, countEvents(res.events, EventReset))
}

func Test_Receiver_Overrun(t *testing.T) {
	var cfg = DefaultModemConfig()
	cfg.SampleRate = 8000
	cfg.Baud = 100
	cfg.Shift = 450
	cfg.Center = 1500
	cfg.Prefilter = false

	var msg = strings.Repeat("RY", decodedQueueSize/2+50)
	var audio, err = RenderBurst(cfg, msg)
	require.NoError(t, err)

	rx, err := NewReceiver(cfg)
	require.NoError(t, err)

	// Nobody reads the decoded queue.
	rx.Process(audio)

	var stats = rx.Stats()
	assert.Equal(t, int64(decodedQueueSize), stats.Chars)
	assert.Equal(t, int64(len(msg)-decodedQueueSize), stats.Overruns)
	assert.Equal(t, decodedQueueSize, rx.Decoded().Len())

	var events = rx.DrainEvents(nil)
	assert.Positive(t, countEvents(events, EventOverrun))
}

func Test_Receiver_Peak(t *testing.T) {
	var cfg = DefaultModemConfig()
	var rx, _ = NewReceiver(cfg)

	rx.Process([]int16{100, -30000, 2000})
	assert.Equal(t, 30000, rx.TakePeak())
	assert.Equal(t, 0, rx.TakePeak(), "cleared by the read")
}

func Test_RxEventKind_String(t *testing.T) {
	assert.Equal(t, "carrier on", EventCarrierOn.String())
	assert.Equal(t, "unknown", RxEventKind(99).String())
}
