package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Tie the receive chain, the transmitter, keying and the
 *		spectrum together behind one audio callback.
 *
 * Description:	Contexts:
 *
 *		audio		Process.  Receive chain and transmit drain.
 *		transmit	Text expansion and keying.
 *		spectrum	FFT of snapshots offered by the receiver.
 *		monitor		Logging and metrics from counters and events.
 *		control		Everything else, from the caller.
 *
 *		Nothing is shared between them except rings, atomics and
 *		the configuration pointer.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

type RxMode int

const (
	RxIdle RxMode = iota
	RxActive
)

func (m RxMode) String() string {
	if m == RxActive {
		return "RX_ACTIVE"
	}
	return "RX_IDLE"
}

type TxMode int

const (
	TxIdle TxMode = iota
	TxSending
)

func (m TxMode) String() string {
	if m == TxSending {
		return "TX_SENDING"
	}
	return "TX_IDLE"
}

type Status struct {
	RX     RxMode
	TX     TxMode
	Keyed  bool
	Queued int // Characters waiting to be sent.
}

type ModemStats struct {
	Rx     RxStats
	Tx     TxStats
	Played int64 // Output samples.
}

type ModemOptions struct {
	PTT     PTT         // nil for none.
	Logger  *log.Logger // nil for none.
	Metrics *Metrics    // nil for none.

	// How often the monitor logs and updates metrics.  Default 250 ms.
	MonitorInterval time.Duration
}

type Modem struct {
	cfg atomic.Pointer[ModemConfig]

	rx       *Receiver
	tx       *Transmitter
	spectrum *SpectrumTap
	clock    *PlaybackClock

	muted bool // Audio context.

	pollMu  sync.Mutex
	pollBuf []rune

	logger   *log.Logger
	metrics  *Metrics
	interval time.Duration
}

/*------------------------------------------------------------------
 *
 * Name:	NewModem
 *
 * Purpose:	Build a modem ready for audio.
 *
 * Inputs:	cfg	- Initial configuration.  Rejected like
 *			  SubmitConfig if not valid.
 *
 *		opts	- Collaborators, all optional.
 *
 *---------------------------------------------------------------*/

func NewModem(cfg ModemConfig, opts ModemOptions) (*Modem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var logger = opts.Logger
	if logger == nil {
		logger = discardLogger()
	}

	var rx, err = NewReceiver(cfg)
	if err != nil {
		return nil, err
	}

	var clock = NewPlaybackClock()
	tx, err := NewTransmitter(cfg, opts.PTT, clock, logger.WithPrefix("tx"))
	if err != nil {
		return nil, err
	}

	var m = &Modem{
		rx:       rx,
		tx:       tx,
		spectrum: NewSpectrumTap(cfg),
		clock:    clock,
		pollBuf:  make([]rune, decodedQueueSize),
		logger:   logger,
		metrics:  opts.Metrics,
		interval: opts.MonitorInterval,
	}
	if m.interval <= 0 {
		m.interval = 250 * time.Millisecond
	}
	m.cfg.Store(&cfg)
	rx.AttachSpectrum(m.spectrum)

	if m.metrics != nil {
		tx.onBurst = func(d time.Duration) {
			m.metrics.BurstDuration.Record(context.Background(), d.Seconds())
		}
	}

	return m, nil
}

/*------------------------------------------------------------------
 *
 * Name:	SubmitConfig
 *
 * Purpose:	Replace the configuration.
 *
 * Returns:	Validation errors, each a *ConfigError.  The old
 *		configuration stays in effect when there are any.
 *
 * Description:	The receiver starts clean with the new values at the
 *		next audio frame.  The transmitter takes them at the
 *		start of its next burst.
 *
 *---------------------------------------------------------------*/

func (m *Modem) SubmitConfig(cfg ModemConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := m.rx.Configure(cfg); err != nil {
		return err
	}
	m.tx.Configure(cfg)
	m.spectrum.Configure(cfg)
	m.cfg.Store(&cfg)

	m.logger.Info("configuration", "baud", cfg.Baud, "mark", cfg.MarkFreq(), "space", cfg.SpaceFreq(), "shift", cfg.Shift)
	return nil
}

// Config is the most recently accepted configuration.
func (m *Modem) Config() ModemConfig {
	return *m.cfg.Load()
}

// EnqueueTransmit returns ErrTxQueueFull, with nothing queued, when the
// whole text does not fit.
func (m *Modem) EnqueueTransmit(text string) error {
	return m.tx.Enqueue(text)
}

// Cancel drops queued text.  What has already been rendered plays out
// and the trail guard is honoured.
func (m *Modem) Cancel() {
	m.tx.Cancel()
}

// PollDecoded returns the characters decoded since the last call, or ""
// if there are none.  It never blocks.
func (m *Modem) PollDecoded() string {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	var n = m.rx.Decoded().PopSlice(m.pollBuf)
	if n == 0 {
		return ""
	}
	return string(m.pollBuf[:n])
}

// CurrentSpectrum is nil until the first snapshot has been computed.
func (m *Modem) CurrentSpectrum() *Spectrum {
	return m.spectrum.Latest()
}

func (m *Modem) Status() Status {
	var s = Status{
		Keyed:  m.tx.Keyer().Keyed(),
		Queued: m.tx.Queued(),
	}
	if m.rx.Active() {
		s.RX = RxActive
	}
	if m.tx.Sending() {
		s.TX = TxSending
	}
	return s
}

func (m *Modem) Stats() ModemStats {
	return ModemStats{
		Rx:     m.rx.Stats(),
		Tx:     m.tx.Stats(),
		Played: m.clock.Played(),
	}
}

/*------------------------------------------------------------------
 *
 * Name:	Process
 *
 * Purpose:	Audio callback.
 *
 * Inputs:	in	- Captured samples.  May be empty.
 *
 * Outputs:	out	- Filled completely, with silence when nothing is
 *			  queued.  May be empty.
 *
 * Description:	Does not block, lock or allocate.  In half duplex the
 *		input is ignored while PTT is on and the receiver is
 *		reset when it drops.
 *
 *---------------------------------------------------------------*/

func (m *Modem) Process(in, out []int16) {
	if len(in) > 0 {
		if m.cfg.Load().HalfDuplex && m.tx.Keyer().Keyed() {
			m.muted = true
		} else {
			if m.muted {
				m.muted = false
				m.rx.Reset()
			}
			m.rx.Process(in)
		}
	}

	if len(out) > 0 {
		var ring = m.tx.Samples()
		var n = ring.PopSlice(out)
		clear(out[n:])
		m.clock.advance(len(out), n, ring.ReadPos())
	}
}

// Run the transmit, spectrum and monitor contexts until ctx is done.
func (m *Modem) Run(ctx context.Context) error {
	var g, gctx = errgroup.WithContext(ctx)

	g.Go(func() error { return m.tx.Run(gctx) })
	g.Go(func() error { return m.spectrum.Run(gctx) })
	g.Go(func() error { return m.monitor(gctx) })

	return g.Wait()
}

/*------------------------------------------------------------------
 *
 * Name:	monitor
 *
 * Purpose:	Report what the other contexts have been doing.
 *
 * Description:	Everything comes from counters and the event ring so
 *		the audio callback never waits on a logger.
 *
 *---------------------------------------------------------------*/

func (m *Modem) monitor(ctx context.Context) error {
	var ticker = time.NewTicker(m.interval)
	defer ticker.Stop()

	var mon = monitorState{}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.report(ctx, &mon)
		}
	}
}

type monitorState struct {
	events  []RxEvent
	rx      RxStats
	tx      TxStats
	keyed   bool
	carrier bool
}

func (m *Modem) report(ctx context.Context, mon *monitorState) {
	mon.events = m.rx.DrainEvents(mon.events[:0])

	var framing = 0
	for _, e := range mon.events {
		switch e.Kind {
		case EventCarrierOn:
			m.logger.Info("carrier detected", "sample", e.Sample)
			m.carrier(ctx, mon, true)
			m.tuning()
		case EventCarrierOff:
			m.logger.Info("carrier lost", "sample", e.Sample)
			m.carrier(ctx, mon, false)
		case EventFramingError:
			framing++
		case EventOverrun:
			m.logger.Warn("decoded text is not being read fast enough, characters lost")
		case EventReset:
			m.logger.Debug("receiver reset", "sample", e.Sample)
		}
	}
	if framing > 0 {
		m.logger.Debug("framing errors", "count", framing)
	}

	var rx = m.rx.Stats()
	var tx = m.tx.Stats()
	var keyed = m.tx.Keyer().Keyed()
	var level = float64(m.rx.TakePeak()) * 100 / 32768

	if keyed != mon.keyed {
		if keyed {
			m.logger.Info("PTT on")
		} else {
			m.logger.Info("PTT off")
		}
	}
	if level > 90 {
		m.logger.Warn("Audio input level is too high, reduce the receive volume", "level", int(level))
	}

	if met := m.metrics; met != nil {
		met.RxChars.Add(ctx, rx.Chars-mon.rx.Chars)
		met.RxFramingErrors.Add(ctx, rx.FramingErrors-mon.rx.FramingErrors)
		met.RxOverruns.Add(ctx, rx.Overruns-mon.rx.Overruns)
		met.RxLevel.Record(ctx, level)
		met.TxChars.Add(ctx, tx.Chars-mon.tx.Chars)
		met.TxBursts.Add(ctx, tx.Bursts-mon.tx.Bursts)
		met.TxCancels.Add(ctx, tx.Cancels-mon.tx.Cancels)
		if keyed != mon.keyed {
			met.TxKeyed.Add(ctx, boolDelta(keyed))
		}
	}

	mon.rx = rx
	mon.tx = tx
	mon.keyed = keyed
}

func (m *Modem) carrier(ctx context.Context, mon *monitorState, on bool) {
	if on == mon.carrier {
		return
	}
	mon.carrier = on
	if m.metrics != nil {
		m.metrics.RxCarrier.Add(ctx, boolDelta(on))
	}
}

// tuning logs where the strongest signal is relative to the tones.
func (m *Modem) tuning() {
	var s = m.spectrum.Latest()
	if s == nil {
		return
	}
	var cfg = m.Config()
	var freq, _ = s.Peak()
	m.logger.Debug("tuning", "peak", int(freq),
		"mark", int(cfg.MarkFreq()), "space", int(cfg.SpaceFreq()))
}

func boolDelta(on bool) int64 {
	if on {
		return 1
	}
	return -1
}

/* end modem.go */
