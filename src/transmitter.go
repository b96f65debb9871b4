package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Turn queued text into keyed audio bursts.
 *
 * Description:	One goroutine owns everything here except the two
 *		rings.  It takes characters from the text ring, renders
 *		whole symbols into the sample ring no further ahead of
 *		playback than the lookahead, and drives the keying
 *		controller.  The audio callback only copies samples out.
 *
 *		A burst is:
 *
 *			lead guard of silence	(only when PTT just went on)
 *			preamble of idle mark
 *			LTRS
 *			the text
 *			postamble of idle mark
 *
 *		followed by the trail guard, which the keying
 *		controller measures against the playback clock.
 *
 *		A configuration change is taken at the start of the
 *		next burst so one burst always has one speed and one
 *		pair of tones.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

var ErrTxQueueFull = errors.New("transmit queue full")

const (
	txTextQueueSize   = 8192
	txSampleQueueSize = 1 << 17
	txPollInterval    = 5 * time.Millisecond
	txRetryMax        = time.Second
	txSilenceChunk    = 1024
)

type txPhase int

const (
	txIdle txPhase = iota
	txLead
	txPreamble
	txText
	txPostamble
	txDone // Postamble queued; the burst ends once it is rendered.
)

// txSymbol is one bit period, or a partial stop bit.
type txSymbol struct {
	mark    bool
	symbols float64
}

// TxStats are running totals since the transmitter was created.
type TxStats struct {
	Chars       int64
	Unencodable int64
	Bursts      int64
	Cancels     int64
}

type Transmitter struct {
	mu   sync.Mutex // Serializes producers of text.
	text *Ring[rune]
	wake chan struct{}

	samples *Ring[int16]
	clock   *PlaybackClock
	keyer   *KeyingController

	pending atomic.Pointer[ModemConfig]

	cancelPos atomic.Int64
	cancelReq atomic.Bool

	// The rest belongs to the transmit goroutine.
	cfg   ModemConfig
	gen   *ToneGen
	codec *Baudot
	shift ShiftState

	phase   txPhase
	lead    int64
	syms    []txSymbol
	scratch []int16
	words   []byte
	prevCR  bool

	burstStart int64 // Sample ring position when PTT went on.

	logger *log.Logger

	onBurst func(time.Duration)

	chars       atomic.Int64
	unencodable atomic.Int64
	bursts      atomic.Int64
	cancels     atomic.Int64
	sending     atomic.Bool
}

/*------------------------------------------------------------------
 *
 * Name:	NewTransmitter
 *
 * Inputs:	cfg	- Must already be valid.
 *
 *		ptt	- Keying line.  nil for none.
 *
 *		clock	- Advanced by whoever drains Samples().
 *
 *		logger	- nil for none.
 *
 *---------------------------------------------------------------*/

func NewTransmitter(cfg ModemConfig, ptt PTT, clock *PlaybackClock, logger *log.Logger) (*Transmitter, error) {
	var codec, err = NewBaudot(cfg.Charset, cfg.UnshiftOnSpace)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = discardLogger()
	}

	var t = &Transmitter{
		text:    NewRing[rune](txTextQueueSize),
		wake:    make(chan struct{}, 1),
		samples: NewRing[int16](txSampleQueueSize),
		clock:   clock,
		keyer:   NewKeyingController(ptt, clock),
		cfg:     cfg,
		gen:     NewToneGen(cfg),
		codec:   codec,
		logger:  logger,
	}
	return t, nil
}

// Samples is the ring the audio callback drains.
func (t *Transmitter) Samples() *Ring[int16] {
	return t.samples
}

func (t *Transmitter) Keyer() *KeyingController {
	return t.keyer
}

// Configure queues a configuration for the next burst.  Safe from any
// goroutine.
func (t *Transmitter) Configure(cfg ModemConfig) {
	t.pending.Store(&cfg)
	t.poke()
}

/*------------------------------------------------------------------
 *
 * Name:	Enqueue
 *
 * Purpose:	Accept text for transmission.
 *
 * Returns:	ErrTxQueueFull, and nothing queued, if the whole of text
 *		does not fit.
 *
 *---------------------------------------------------------------*/

func (t *Transmitter) Enqueue(text string) error {
	var rs = []rune(text)
	if len(rs) == 0 {
		return nil
	}

	t.mu.Lock()
	var ok = t.text.PushSlice(rs)
	t.mu.Unlock()

	if !ok {
		return ErrTxQueueFull
	}
	t.poke()
	return nil
}

/*------------------------------------------------------------------
 *
 * Name:	Cancel
 *
 * Purpose:	Drop everything queued so far.
 *
 * Description:	Text enqueued after this call is kept.  Rendering stops
 *		at the next symbol boundary.  Samples already in the
 *		sample ring are played and the trail guard follows them.
 *
 *---------------------------------------------------------------*/

func (t *Transmitter) Cancel() {
	t.mu.Lock()
	t.cancelPos.Store(t.text.WritePos())
	t.cancelReq.Store(true)
	t.mu.Unlock()
	t.poke()
}

func (t *Transmitter) poke() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Sending is true from the start of a burst until PTT is released.
func (t *Transmitter) Sending() bool {
	return t.sending.Load()
}

// Queued is the number of characters waiting.
func (t *Transmitter) Queued() int {
	return t.text.Len()
}

func (t *Transmitter) Stats() TxStats {
	return TxStats{
		Chars:       t.chars.Load(),
		Unencodable: t.unencodable.Load(),
		Bursts:      t.bursts.Load(),
		Cancels:     t.cancels.Load(),
	}
}

// Run renders and keys until ctx is done.  PTT is off when it returns.
// While PTT keeps failing it is retried less and less often, up to once
// a second.
func (t *Transmitter) Run(ctx context.Context) error {
	var ticker = time.NewTicker(txPollInterval)
	defer ticker.Stop()

	var failures int
	var retryAt time.Time

	for {
		if now := time.Now(); !now.Before(retryAt) {
			if err := t.Step(); err != nil {
				failures++
				retryAt = now.Add(min(txPollInterval<<min(failures, 10), txRetryMax))
				if failures == 1 {
					t.logger.Error("PTT failed", "err", err)
				} else {
					t.logger.Debug("PTT retry", "failures", failures, "err", err)
				}
			} else if failures > 0 {
				t.logger.Info("PTT recovered", "failures", failures)
				failures = 0
				retryAt = time.Time{}
			}
		}

		select {
		case <-ctx.Done():
			return t.shutdown()
		case <-ticker.C:
		case <-t.wake:
		}
	}
}

func (t *Transmitter) shutdown() error {
	t.cancelReq.Store(false)
	t.phase = txIdle
	t.syms = t.syms[:0]
	t.sending.Store(false)
	return t.keyer.ForceOff()
}

/*------------------------------------------------------------------
 *
 * Name:	Step
 *
 * Purpose:	Do whatever rendering and keying is due now.
 *
 * Description:	Called by Run on every tick and wake up.  Tests call it
 *		directly to run the transmitter without a goroutine.
 *
 *---------------------------------------------------------------*/

func (t *Transmitter) Step() error {
	if t.cancelReq.Swap(false) {
		t.cancel()
	}

	if t.phase == txIdle && t.text.Len() > 0 {
		if err := t.startBurst(); err != nil {
			return err
		}
	}

	if t.phase != txIdle {
		t.render()
	}

	var released, err = t.keyer.Poll()
	if err != nil {
		return err
	}
	if released {
		t.released()
	}
	return nil
}

func (t *Transmitter) startBurst() error {
	if c := t.pending.Swap(nil); c != nil {
		t.apply(*c)
	}

	var needLead, err = t.keyer.KeyUp()
	if err != nil {
		return err
	}

	if needLead {
		t.burstStart = t.samples.WritePos()
		t.lead = t.cfg.Samples(t.cfg.LeadGuard)
		t.phase = txLead
		t.logger.Debug("PTT on", "lead_samples", t.lead)
	} else {
		t.phase = txPreamble
	}

	t.shift.Reset()
	t.prevCR = false
	t.bursts.Add(1)
	t.sending.Store(true)
	return nil
}

func (t *Transmitter) apply(cfg ModemConfig) {
	var codec, err = NewBaudot(cfg.Charset, cfg.UnshiftOnSpace)
	if err != nil {
		// Validated before it got here.
		t.logger.Error("transmit configuration", "err", err)
		return
	}
	t.cfg = cfg
	t.codec = codec
	t.gen = NewToneGen(cfg)
	t.logger.Info("transmit configuration", "baud", cfg.Baud, "mark", cfg.MarkFreq(), "space", cfg.SpaceFreq())
}

// render fills the sample ring up to the lookahead, one symbol at a time.
// A symbol is only rendered when the ring has room for all of it.
func (t *Transmitter) render() {
	var budget = t.cfg.Samples(t.cfg.Lookahead)
	var room = maxSymbolSamples(t.cfg)

	for int64(t.samples.Len()) < budget {
		if t.cancelReq.Load() {
			return
		}

		if t.phase == txLead {
			if t.lead <= 0 {
				t.phase = txPreamble
				continue
			}
			var n = min(t.lead, txSilenceChunk, int64(t.samples.Free()))
			if n <= 0 {
				return
			}
			t.scratch = t.gen.AppendSilence(t.scratch[:0], int(n))
			t.samples.PushSlice(t.scratch)
			t.lead -= n
			continue
		}

		if len(t.syms) == 0 && !t.refill() {
			t.endBurst()
			return
		}

		if int64(t.samples.Free()) < room {
			return
		}

		var s = t.syms[0]
		t.syms = t.syms[1:]
		t.scratch = t.gen.AppendBit(t.scratch[:0], s.mark, s.symbols)
		t.samples.PushSlice(t.scratch)
	}
}

// maxSymbolSamples is the most samples one rendered symbol can take, a
// full length stop bit plus the carried fraction.
func maxSymbolSamples(cfg ModemConfig) int64 {
	return int64(math.Ceil(max(cfg.StopBits, 1)*cfg.SamplesPerSymbol())) + 1
}

// refill queues the symbols for the next part of the burst.  False when
// the burst is complete.
func (t *Transmitter) refill() bool {
	t.syms = t.syms[:0]

	for len(t.syms) == 0 {
		switch t.phase {
		case txPreamble:
			t.idle(t.cfg.PreambleBits)
			t.word(CodeLetters)
			t.phase = txText

		case txText:
			var r, ok = t.text.Pop()
			if !ok {
				t.phase = txPostamble
				continue
			}
			t.character(r)

		case txPostamble:
			t.idle(t.cfg.PostambleBits)
			t.phase = txDone
			if len(t.syms) == 0 {
				return false
			}

		default:
			return false
		}
	}
	return true
}

func (t *Transmitter) idle(n int) {
	for range n {
		t.syms = append(t.syms, txSymbol{mark: true, symbols: 1})
	}
}

func (t *Transmitter) word(code byte) {
	t.syms = append(t.syms, txSymbol{mark: false, symbols: 1})
	for k := range 5 {
		t.syms = append(t.syms, txSymbol{mark: code&(1<<k) != 0, symbols: 1})
	}
	t.syms = append(t.syms, txSymbol{mark: true, symbols: t.cfg.StopBits})
}

// character applies the newline policy and encodes one rune.
func (t *Transmitter) character(r rune) {
	var rs = []rune{r}
	if t.cfg.CRLF {
		switch {
		case r == '\n' && t.prevCR:
			rs = nil
		case r == '\r' || r == '\n':
			rs = []rune{'\r', '\n'}
		}
		t.prevCR = r == '\r'
	}

	for _, c := range rs {
		var ok bool
		t.words, ok = t.shift.EncodeRune(t.codec, c, t.words[:0])
		if !ok {
			t.unencodable.Add(1)
			continue
		}
		for _, w := range t.words {
			t.word(w)
		}
		t.chars.Add(1)
	}
}

func (t *Transmitter) endBurst() {
	t.phase = txIdle
	t.keyer.EndBurst(t.samples.WritePos(), t.cfg.Samples(t.cfg.TrailGuard))
}

func (t *Transmitter) cancel() {
	var dropped = t.text.DiscardTo(t.cancelPos.Load())
	t.cancels.Add(1)
	t.logger.Info("transmit cancelled", "dropped", dropped, "pending_symbols", len(t.syms))

	t.syms = t.syms[:0]
	t.lead = 0
	if t.phase != txIdle {
		t.endBurst()
	}
}

// released is called once the trail guard has been played and PTT is off.
func (t *Transmitter) released() {
	t.sending.Store(false)

	var on = t.clock.Played() - t.keyer.AssertedAt()
	var audio = t.samples.WritePos() - t.burstStart + t.cfg.Samples(t.cfg.TrailGuard)
	var sr = float64(t.cfg.SampleRate)
	var dur = time.Duration(float64(on) / sr * float64(time.Second))

	t.logger.Debug("PTT off", "on", dur)
	if t.onBurst != nil {
		t.onBurst(dur)
	}

	// Playback ran dry somewhere in the burst.
	var late = time.Duration(float64(on-audio) / sr * float64(time.Second))
	if late > 50*time.Millisecond {
		t.logger.Warn("Transmit timing error: PTT was on longer than the audio", "extra", late.Round(time.Millisecond))
	}
}

/* end transmitter.go */
