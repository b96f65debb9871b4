package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Receive chain: discriminator, bit clock, framer, codec.
 *
 * Description:	Process runs on the audio callback.  It does not take
 *		locks, allocate, or block.  Results leave through the
 *		decoded character ring, the event ring and a set of
 *		atomic counters.
 *
 *		A new configuration is built elsewhere and handed over
 *		through an atomic pointer.  It is picked up at the start
 *		of the next frame and every stage starts clean.
 *
 *---------------------------------------------------------------*/

import (
	"sync/atomic"
)

type RxEventKind int

const (
	EventFramingError RxEventKind = iota
	EventCarrierOn
	EventCarrierOff
	EventOverrun
	EventReset
)

func (k RxEventKind) String() string {
	switch k {
	case EventFramingError:
		return "framing error"
	case EventCarrierOn:
		return "carrier on"
	case EventCarrierOff:
		return "carrier off"
	case EventOverrun:
		return "decoded queue overrun"
	case EventReset:
		return "reset"
	}
	return "unknown"
}

// RxEvent is a diagnostic from the receive chain.
type RxEvent struct {
	Kind   RxEventKind
	Sample int64 // Input sample count when it happened.
}

// RxStats are running totals since the receiver was created.
type RxStats struct {
	Samples       int64
	Chars         int64
	FramingErrors int64
	ShiftWords    int64
	Dropped       int64 // Codes with no character in the active table.
	Overruns      int64
}

type rxStages struct {
	cfg    ModemConfig
	disc   *Discriminator
	clock  *BitClock
	framer *Framer
	codec  *Baudot
}

func newRxStages(cfg ModemConfig) (*rxStages, error) {
	var codec, err = NewBaudot(cfg.Charset, cfg.UnshiftOnSpace)
	if err != nil {
		return nil, err
	}
	return &rxStages{
		cfg:    cfg,
		disc:   NewDiscriminator(cfg),
		clock:  NewBitClock(cfg),
		framer: NewFramer(),
		codec:  codec,
	}, nil
}

type Receiver struct {
	st      *rxStages
	pending atomic.Pointer[rxStages]
	shift   ShiftState

	decoded  *Ring[rune]
	events   *Ring[RxEvent]
	spectrum *SpectrumTap

	active atomic.Bool
	peak   atomic.Int32

	samples       atomic.Int64
	chars         atomic.Int64
	framingErrors atomic.Int64
	shiftWords    atomic.Int64
	dropped       atomic.Int64
	overruns      atomic.Int64
}

const (
	decodedQueueSize = 4096
	eventQueueSize   = 256
)

// NewReceiver fails only on a configuration that is not valid.
func NewReceiver(cfg ModemConfig) (*Receiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var st, err = newRxStages(cfg)
	if err != nil {
		return nil, err
	}
	return &Receiver{
		st:      st,
		decoded: NewRing[rune](decodedQueueSize),
		events:  NewRing[RxEvent](eventQueueSize),
	}, nil
}

// Configure queues a replacement configuration.  Safe from any goroutine.
func (r *Receiver) Configure(cfg ModemConfig) error {
	var st, err = newRxStages(cfg)
	if err != nil {
		return err
	}
	r.pending.Store(st)
	return nil
}

// AttachSpectrum must be called before audio starts.
func (r *Receiver) AttachSpectrum(tap *SpectrumTap) {
	r.spectrum = tap
}

// Reset clears every stage.  Audio context only.
func (r *Receiver) Reset() {
	var s = r.st
	s.disc.Reset()
	s.clock.Reset()
	s.framer.Reset()
	r.shift.Reset()
	if r.active.Swap(false) {
		r.event(EventCarrierOff)
	}
	r.event(EventReset)
}

/*------------------------------------------------------------------
 *
 * Name:	Process
 *
 * Purpose:	Run one audio frame through the receive chain.
 *
 * Inputs:	in	- Mono 16 bit samples.  Not modified or kept.
 *
 *---------------------------------------------------------------*/

func (r *Receiver) Process(in []int16) {
	if st := r.pending.Swap(nil); st != nil {
		r.st = st
		r.Reset()
	}

	var s = r.st
	var framePeak int32

	for _, v := range in {
		var a = int32(v)
		if a < 0 {
			a = -a
		}
		if a > framePeak {
			framePeak = a
		}

		var d, _ = s.disc.Process(float64(v) / 32768.0)
		var sampled, bit, dcdChanged = s.clock.Step(d)
		r.samples.Add(1)

		if dcdChanged {
			var on = s.clock.Locked()
			r.active.Store(on)
			if on {
				r.event(EventCarrierOn)
			} else {
				r.event(EventCarrierOff)
			}
		}

		if !sampled {
			continue
		}

		switch result, word := s.framer.Symbol(bit); result {
		case FrameWord:
			r.word(s.codec, word)
		case FramingError:
			r.framingErrors.Add(1)
			r.event(EventFramingError)
		}
	}

	for {
		var old = r.peak.Load()
		if framePeak <= old || r.peak.CompareAndSwap(old, framePeak) {
			break
		}
	}

	if r.spectrum != nil {
		r.spectrum.Feed(in)
	}
}

func (r *Receiver) word(codec *Baudot, word byte) {
	var ch, ok = r.shift.DecodeWord(codec, word)
	if !ok {
		if word == CodeLetters || word == CodeFigures {
			r.shiftWords.Add(1)
		} else {
			r.dropped.Add(1)
		}
		return
	}

	if !r.decoded.Push(ch) {
		r.overruns.Add(1)
		r.event(EventOverrun)
		return
	}
	r.chars.Add(1)
}

func (r *Receiver) event(kind RxEventKind) {
	// A full event ring loses diagnostics only; the counters still move.
	r.events.Push(RxEvent{Kind: kind, Sample: r.samples.Load()})
}

// Decoded is the character queue.  One consumer only.
func (r *Receiver) Decoded() *Ring[rune] {
	return r.decoded
}

// DrainEvents appends pending events to dst.  One consumer only.
func (r *Receiver) DrainEvents(dst []RxEvent) []RxEvent {
	for {
		var e, ok = r.events.Pop()
		if !ok {
			return dst
		}
		dst = append(dst, e)
	}
}

// Active is carrier detect.
func (r *Receiver) Active() bool {
	return r.active.Load()
}

// TakePeak returns the largest input magnitude since the last call.
func (r *Receiver) TakePeak() int {
	return int(r.peak.Swap(0))
}

// Config is the configuration in use.  Audio context only.
func (r *Receiver) Config() ModemConfig {
	return r.st.cfg
}

func (r *Receiver) Stats() RxStats {
	return RxStats{
		Samples:       r.samples.Load(),
		Chars:         r.chars.Load(),
		FramingErrors: r.framingErrors.Load(),
		ShiftWords:    r.shiftWords.Load(),
		Dropped:       r.dropped.Load(),
		Overruns:      r.overruns.Load(),
	}
}

/* end receiver.go */
