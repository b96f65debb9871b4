package rtty

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type txHarness struct {
	tx    *Transmitter
	clock *PlaybackClock
	ptt   *recordingPTT
	log   bytes.Buffer
	out   []int16 // Everything played, indexed by play position.
}

func newTxHarness(t *testing.T, cfg ModemConfig) *txHarness {
	t.Helper()

	var h = &txHarness{clock: NewPlaybackClock()}
	h.ptt = &recordingPTT{clock: h.clock}

	var logger, err = NewLogger(&h.log, "tx", "debug")
	require.NoError(t, err)

	h.tx, err = NewTransmitter(cfg, h.ptt, h.clock, logger)
	require.NoError(t, err)
	return h
}

// frame is one audio callback.
func (h *txHarness) frame() {
	var buf = make([]int16, 1024)
	var ring = h.tx.Samples()
	var n = ring.PopSlice(buf)
	clear(buf[n:])
	h.clock.advance(len(buf), n, ring.ReadPos())
	h.out = append(h.out, buf...)
}

// run steps and plays until the transmitter is idle with nothing queued.
func (h *txHarness) run(t *testing.T) {
	t.Helper()
	for range 100000 {
		require.NoError(t, h.tx.Step())
		if !h.tx.Sending() && h.tx.Queued() == 0 {
			return
		}
		h.frame()
	}
	t.Fatal("transmitter never went idle")
}

func firstNonZero(s []int16) int {
	for j, v := range s {
		if v != 0 {
			return j
		}
	}
	return -1
}

func lastNonZero(s []int16) int {
	for j := len(s) - 1; j >= 0; j-- {
		if s[j] != 0 {
			return j
		}
	}
	return -1
}

func decodeAll(t *testing.T, cfg ModemConfig, audio []int16) rxResult {
	t.Helper()
	var rx, err = NewReceiver(cfg)
	require.NoError(t, err)
	return receive(t, rx, audio)
}

func Test_Transmitter_Guards(t *testing.T) {
	var cfg = DefaultModemConfig()
	var h = newTxHarness(t, cfg)

	require.NoError(t, h.tx.Enqueue("RYRY DE N0CALL"))
	h.run(t)

	require.Len(t, h.ptt.changes, 2)
	var on, off = h.ptt.changes[0], h.ptt.changes[1]
	assert.True(t, on.on)
	assert.False(t, off.on)

	var first = int64(firstNonZero(h.out))
	var last = int64(lastNonZero(h.out))
	var lead = cfg.Samples(cfg.LeadGuard)
	var trail = cfg.Samples(cfg.TrailGuard)

	assert.GreaterOrEqual(t, first-on.at, lead, "lead guard of 200 ms")
	assert.GreaterOrEqual(t, off.at-(last+1), trail, "trail guard of 100 ms")
	assert.Less(t, off.at-(last+1), trail+2*1024, "PTT not held much past the trail guard")
	assert.NotContains(t, h.log.String(), "Transmit timing error")

	var stats = h.tx.Stats()
	assert.Equal(t, int64(14), stats.Chars)
	assert.Equal(t, int64(1), stats.Bursts)
	assert.False(t, h.tx.Keyer().Keyed())
}

// A postamble several times longer than the lookahead is rendered over
// many steps and the burst still ends.
func Test_Transmitter_LongPostamble(t *testing.T) {
	var cfg = DefaultModemConfig()
	cfg.Lookahead = 30 * time.Millisecond
	cfg.PostambleBits = 16
	var h = newTxHarness(t, cfg)

	require.NoError(t, h.tx.Enqueue("HI"))
	h.run(t)

	require.Len(t, h.ptt.changes, 2)
	assert.False(t, h.ptt.changes[1].on)
	assert.False(t, h.tx.Sending())
	assert.NotContains(t, h.log.String(), "Transmit timing error")

	// Preamble, LTRS H I, postamble.
	var span = lastNonZero(h.out) - firstNonZero(h.out) + 1
	assert.InDelta(t, (8+3*7.5+16)*cfg.SamplesPerSymbol(), float64(span), 4)

	var res = decodeAll(t, cfg, h.out)
	assert.Equal(t, "HI", res.text)
	assert.Equal(t, int64(0), res.stats.FramingErrors)
}

// Rendering stops when the sample queue is full rather than dropping
// symbols, even with a lookahead that would not pass validation.
func Test_Transmitter_SampleQueueFull(t *testing.T) {
	var cfg = DefaultModemConfig()
	cfg.Lookahead = 5 * time.Second
	var h = newTxHarness(t, cfg)

	var msg = "THE QUICK BROWN FOX JUMPS OVER THE LAZY DOG"
	require.NoError(t, h.tx.Enqueue(msg))
	require.NoError(t, h.tx.Step())
	assert.LessOrEqual(t, h.tx.Samples().Len(), h.tx.Samples().Cap())
	assert.Positive(t, h.tx.Queued(), "text left for later")

	h.run(t)
	var res = decodeAll(t, cfg, h.out)
	assert.Equal(t, msg, res.text)
	assert.Equal(t, int64(0), res.stats.FramingErrors)
}

func Test_Transmitter_Decodes(t *testing.T) {
	var cfg = DefaultModemConfig()
	var h = newTxHarness(t, cfg)

	require.NoError(t, h.tx.Enqueue("cq test 1 2 3\n"))
	h.run(t)

	var res = decodeAll(t, cfg, h.out)
	assert.Equal(t, "CQ TEST 1 2 3\r\n", res.text)
	assert.Equal(t, int64(0), res.stats.FramingErrors)
}

func Test_Transmitter_Newlines(t *testing.T) {
	for _, tc := range []struct {
		crlf  bool
		chars int64
	}{
		// A, CR LF, B, CR LF (LF after CR dropped), C, CR LF, D
		{true, 10},
		{false, 8},
	} {
		var cfg = DefaultModemConfig()
		cfg.CRLF = tc.crlf
		var h = newTxHarness(t, cfg)

		for _, r := range "A\nB\r\nC\rD" {
			h.tx.character(r)
		}
		assert.Equal(t, tc.chars, h.tx.Stats().Chars, "crlf %v", tc.crlf)
	}
}

func Test_Transmitter_Unencodable(t *testing.T) {
	var cfg = DefaultModemConfig()
	var h = newTxHarness(t, cfg)

	require.NoError(t, h.tx.Enqueue("A~B[C"))
	h.run(t)

	var stats = h.tx.Stats()
	assert.Equal(t, int64(3), stats.Chars)
	assert.Equal(t, int64(2), stats.Unencodable)
	assert.Equal(t, "ABC", decodeAll(t, cfg, h.out).text)
}

func Test_Transmitter_QueueFull(t *testing.T) {
	var cfg = DefaultModemConfig()
	var h = newTxHarness(t, cfg)

	var err = h.tx.Enqueue(strings.Repeat("A", txTextQueueSize+1))
	assert.ErrorIs(t, err, ErrTxQueueFull)
	assert.Equal(t, 0, h.tx.Queued(), "all or nothing")

	assert.NoError(t, h.tx.Enqueue(strings.Repeat("A", txTextQueueSize)))
	assert.ErrorIs(t, h.tx.Enqueue("B"), ErrTxQueueFull)

	assert.NoError(t, h.tx.Enqueue(""), "empty is fine")
}

func Test_Transmitter_Cancel(t *testing.T) {
	var cfg = DefaultModemConfig()
	var h = newTxHarness(t, cfg)

	var text = strings.Repeat("THE QUICK BROWN FOX ", 20)
	require.NoError(t, h.tx.Enqueue(text))

	// Get well into the text.
	for range 100 {
		require.NoError(t, h.tx.Step())
		h.frame()
	}
	require.True(t, h.tx.Sending())
	h.tx.Cancel()
	h.run(t)

	var stats = h.tx.Stats()
	assert.Equal(t, int64(1), stats.Cancels)
	assert.Less(t, stats.Chars, int64(len(text)))
	assert.Equal(t, 0, h.tx.Queued())
	assert.False(t, h.tx.Keyer().Keyed())

	require.Len(t, h.ptt.changes, 2)
	var last = int64(lastNonZero(h.out))
	assert.GreaterOrEqual(t, h.ptt.changes[1].at-(last+1), cfg.Samples(cfg.TrailGuard), "trail guard after cancel")
}

// Text queued after a cancel is sent, in the same transmission.
func Test_Transmitter_CancelThenSend(t *testing.T) {
	var cfg = DefaultModemConfig()
	var h = newTxHarness(t, cfg)

	require.NoError(t, h.tx.Enqueue(strings.Repeat("RY", 100)))
	for range 60 {
		require.NoError(t, h.tx.Step())
		h.frame()
	}
	h.tx.Cancel()
	require.NoError(t, h.tx.Enqueue("KEEP"))
	h.run(t)

	assert.Len(t, h.ptt.changes, 2, "PTT held across the cancel")
	assert.Equal(t, int64(2), h.tx.Stats().Bursts)

	var res = decodeAll(t, cfg, h.out)
	assert.True(t, strings.HasSuffix(res.text, "KEEP"), "%q", res.text)
}

func Test_Transmitter_Idle(t *testing.T) {
	var cfg = DefaultModemConfig()
	var h = newTxHarness(t, cfg)

	// Cancel with nothing queued does nothing harmful.
	h.tx.Cancel()
	require.NoError(t, h.tx.Step())
	assert.False(t, h.tx.Sending())
	assert.Empty(t, h.ptt.changes)
	assert.Equal(t, 0, h.tx.Samples().Len())
}

// A new configuration waits for the next burst.
func Test_Transmitter_ConfigureBetweenBursts(t *testing.T) {
	var cfg = DefaultModemConfig()
	var h = newTxHarness(t, cfg)

	require.NoError(t, h.tx.Enqueue("FIRST"))
	require.NoError(t, h.tx.Step())
	require.True(t, h.tx.Sending())

	var next = cfg
	next.Baud = 50
	h.tx.Configure(next)
	require.NoError(t, h.tx.Step())
	assert.Equal(t, cfg.Baud, h.tx.cfg.Baud, "not in the middle of a burst")

	h.run(t)
	require.NoError(t, h.tx.Enqueue("SECOND"))
	require.NoError(t, h.tx.Step())
	assert.Equal(t, 50.0, h.tx.cfg.Baud)
	h.run(t)

	assert.Contains(t, h.log.String(), "transmit configuration")
}

func Test_Transmitter_PTTFailure(t *testing.T) {
	var cfg = DefaultModemConfig()
	var h = newTxHarness(t, cfg)
	var boom = errors.New("boom")
	h.ptt.fail = boom

	require.NoError(t, h.tx.Enqueue("X"))
	assert.ErrorIs(t, h.tx.Step(), boom)
	assert.False(t, h.tx.Sending())
	assert.Equal(t, 1, h.tx.Queued(), "text kept for the next try")

	h.ptt.fail = nil
	h.run(t)
	assert.Equal(t, int64(1), h.tx.Stats().Chars)
}

// A PTT that keeps failing is retried with a growing interval and only
// the first failure is an error.
func Test_Transmitter_RunPTTFailure(t *testing.T) {
	var cfg = DefaultModemConfig()
	var h = newTxHarness(t, cfg)
	h.ptt.fail = errors.New("boom")

	var ctx, cancel = context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, h.tx.Enqueue("X"))
	require.NoError(t, h.tx.Run(ctx))

	assert.GreaterOrEqual(t, h.ptt.attempts, 2)
	assert.LessOrEqual(t, h.ptt.attempts, 8, "not every tick")
	assert.Equal(t, 1, strings.Count(h.log.String(), "PTT failed"))
	assert.Contains(t, h.log.String(), "PTT retry")
	assert.Equal(t, 1, h.tx.Queued())
}

func Test_Transmitter_Run(t *testing.T) {
	var cfg = DefaultModemConfig()
	var h = newTxHarness(t, cfg)

	var ctx, cancel = context.WithCancel(context.Background())
	var done = make(chan error, 1)
	go func() { done <- h.tx.Run(ctx) }()

	require.NoError(t, h.tx.Enqueue("NOBODY IS PLAYING THIS"))
	assert.Eventually(t, h.tx.Keyer().Keyed, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.False(t, h.tx.Keyer().Keyed())
	assert.False(t, h.tx.Sending())
	require.NotEmpty(t, h.ptt.changes)
	assert.False(t, h.ptt.changes[len(h.ptt.changes)-1].on, "PTT off on the way out")
}
