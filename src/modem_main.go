package rtty

/*------------------------------------------------------------------
 *
 * Name:	rttymodem
 *
 * Purpose:   	Main program for the RTTY sound card modem.
 *
 * Description:	Text typed on stdin, or written to the pseudo terminal,
 *		is sent.  Decoded text is printed on stdout, or written
 *		to the pseudo terminal.
 *
 *		An ESC character in the input cancels what has not been
 *		sent yet.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const textPollInterval = 50 * time.Millisecond

const asciiESC = 0x1b

func ModemMain() {
	var defaults = DefaultAppConfig()

	var configFile = pflag.StringP("config-file", "c", "", "Read YAML configuration from this file.")
	var baud = pflag.Float64P("baud", "B", defaults.Modem.Baud, fmt.Sprintf("Symbols / second.  Common values: %v.", BaudPresets))
	var center = pflag.Float64P("center", "C", defaults.Modem.Center, "Frequency midway between mark and space, Hz.")
	var shift = pflag.Float64P("shift", "s", defaults.Modem.Shift, "Mark minus space, Hz.  50 to 500.")
	var reverse = pflag.BoolP("reverse", "R", false, "Swap mark and space.")
	var halfDuplex = pflag.BoolP("half-duplex", "H", false, "Ignore receive audio while transmitting.")
	var audioDevice = pflag.StringP("audio-device", "a", "", "Sound card, part of the name is enough.  Default device if not given.")
	var pttMethod = pflag.StringP("ptt", "p", "", `PTT method:
none   = VOX or receive only.
serial = RTS or DTR of a serial port, see --ptt-line.
cat    = Command strings to the radio.
gpio   = GPIO character device line.
cm108  = GPIO of a CM108 class USB audio adapter.
hamlib = Rig control, needs a hamlib build.`)
	var pttDevice = pflag.StringP("ptt-device", "P", "", "Serial port, hidraw device, or rig port for PTT.")
	var pttLine = pflag.String("ptt-line", defaults.PTT.Line, "rts, dtr or both, for serial PTT.")
	var pttInvert = pflag.Bool("ptt-invert", false, "PTT line low to transmit.")
	var logLevel = pflag.StringP("log-level", "l", "", "debug, info, warn or error.")
	var logDir = pflag.StringP("log-dir", "L", "", "Directory for daily receive logs.")
	var timestampFormat = pflag.StringP("timestamp-format", "T", "", "Precede received lines with 'strftime' format time stamp.")
	var metricsListen = pflag.StringP("metrics", "m", "", "Serve /metrics on this address, e.g. :9464.")
	var usePTY = pflag.BoolP("pty", "t", false, "Use a pseudo terminal for text instead of stdin and stdout.")
	var version = pflag.BoolP("version", "v", false, "Print version and exit.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - RTTY sound card modem.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Options given on the command line override the configuration file.\n")
		fmt.Fprintf(os.Stderr, "Type ESC to cancel what has not been sent yet.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Example:  rttymodem -p serial -P /dev/ttyUSB0\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "    45.45 baud, 170 Hz shift, PTT on RTS of the serial port.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Example:  rttymodem -c rtty.yaml -t -m :9464\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "    Settings from a file, text on a pseudo terminal, metrics for Prometheus.\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}
	if *version {
		printVersion("rttymodem", false)
		os.Exit(0)
	}

	var cfg = defaults
	if *configFile != "" {
		var loaded, err = LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var changed = pflag.CommandLine.Changed
	if changed("baud") {
		cfg.Modem.Baud = *baud
	}
	if changed("center") {
		cfg.Modem.Center = *center
	}
	if changed("shift") {
		cfg.Modem.Shift = *shift
	}
	if changed("reverse") {
		cfg.Modem.Reverse = *reverse
	}
	if changed("half-duplex") {
		cfg.Modem.HalfDuplex = *halfDuplex
	}
	if changed("audio-device") {
		cfg.Audio.Device = *audioDevice
	}
	if changed("ptt") {
		cfg.PTT.Method = PTTMethod(strings.ToLower(*pttMethod))
	}
	if changed("ptt-device") {
		cfg.PTT.Device = *pttDevice
	}
	if changed("ptt-line") {
		cfg.PTT.Line = *pttLine
	}
	if changed("ptt-invert") {
		cfg.PTT.Invert = *pttInvert
	}
	if changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if changed("log-dir") {
		cfg.Log.Dir = *logDir
	}
	if changed("timestamp-format") {
		cfg.Log.TimestampFormat = *timestampFormat
	}
	if changed("metrics") {
		cfg.Metrics.Listen = *metricsListen
	}
	if changed("pty") {
		cfg.PTY.Enable = *usePTY
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error:\n%s\n", err)
		os.Exit(1)
	}

	var logger, err = NewLogger(os.Stderr, "rttymodem", cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	var ctx, stop = signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runModem(ctx, cfg, logger); err != nil {
		logger.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func runModem(ctx context.Context, cfg AppConfig, logger *log.Logger) error {
	var opts = ModemOptions{Logger: logger}

	if cfg.Metrics.Listen != "" {
		var mp, shutdown, err = InitMetricsProvider("rttymodem", Version())
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		defer shutdown(context.Background())

		opts.Metrics, err = NewMetrics(mp)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	var ptt, err = OpenPTT(cfg.PTT)
	if err != nil {
		return err
	}
	defer ptt.Close()
	opts.PTT = ptt

	m, err := NewModem(cfg.Modem, opts)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	var out io.Writer = os.Stdout
	if cfg.PTY.Enable {
		var p, err = OpenTextPTY(cfg.PTY.Link)
		if err != nil {
			return err
		}
		defer p.Close()
		logger.Info("text interface is available", "pty", p.Name(), "link", cfg.PTY.Link)
		in, out = p, p
	}

	var rxlog *RxLog
	if cfg.Log.Dir != "" {
		rxlog, err = NewRxLog(cfg.Log.Dir, logger)
		if err != nil {
			return err
		}
		defer rxlog.Close()
	}

	var stamp *strftime.Strftime
	if cfg.Log.TimestampFormat != "" {
		stamp, err = strftime.New(cfg.Log.TimestampFormat)
		if err != nil {
			return fmt.Errorf("timestamp format: %w", err)
		}
	}

	audio, err := OpenAudio(cfg.Audio, cfg.Modem.SampleRate)
	if err != nil {
		return err
	}
	defer audio.Close()
	if err := audio.Start(m.Process); err != nil {
		return err
	}
	logger.Info("ready", "baud", cfg.Modem.Baud, "mark", cfg.Modem.MarkFreq(), "space", cfg.Modem.SpaceFreq(), "ptt", cfg.PTT.Method)

	var g, gctx = errgroup.WithContext(ctx)

	g.Go(func() error { return m.Run(gctx) })

	g.Go(func() error {
		var tw = &textWriter{w: out, stamp: stamp, rxlog: rxlog, logger: logger, atLineStart: true}
		return tw.run(gctx, m)
	})

	if cfg.Metrics.Listen != "" {
		var mux = http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		var srv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("metrics", "listen", cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			var sctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	// Not in the group: a read from stdin can't be interrupted.
	go readText(in, m, logger)

	return g.Wait()
}

// readText sends whatever arrives until EOF.
func readText(r io.Reader, m *Modem, logger *log.Logger) {
	var buf = make([]byte, 256)
	var have int // Bytes of a rune split across reads, at the front of buf.
	for {
		var n, err = r.Read(buf[have:])
		n += have
		have = 0
		if err == nil {
			have = partialRune(buf[:n])
			n -= have
		}
		if n > 0 {
			var text = string(buf[:n])
			copy(buf, buf[n:n+have])
			if i := strings.LastIndexByte(text, asciiESC); i >= 0 {
				m.Cancel()
				text = text[i+1:]
			}
			if err := m.EnqueueTransmit(text); err != nil {
				logger.Warn("text not sent", "err", err, "chars", len(text))
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Error("reading text", "err", err)
			}
			return
		}
	}
}

// partialRune is the length of an incomplete UTF-8 sequence at the end
// of b.
func partialRune(b []byte) int {
	for k := 1; k < utf8.UTFMax && k <= len(b); k++ {
		if utf8.RuneStart(b[len(b)-k]) {
			if utf8.FullRune(b[len(b)-k:]) {
				return 0
			}
			return k
		}
	}
	return 0
}

type textWriter struct {
	w      io.Writer
	stamp  *strftime.Strftime
	rxlog  *RxLog
	logger *log.Logger

	atLineStart bool
	wasActive   bool
}

func (t *textWriter) run(ctx context.Context, m *Modem) error {
	var ticker = time.NewTicker(textPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if t.rxlog != nil {
				t.rxlog.Flush(m.Stats().Rx.FramingErrors)
			}
			return nil
		case <-ticker.C:
		}

		var text = m.PollDecoded()
		var status = m.Status()
		var framing = m.Stats().Rx.FramingErrors

		if text != "" {
			if _, err := io.WriteString(t.w, t.prefix(text)); err != nil {
				return fmt.Errorf("writing received text: %w", err)
			}
			if t.rxlog != nil {
				if err := t.rxlog.Text(text, framing); err != nil {
					t.logger.Error("receive log", "err", err)
				}
			}
		}

		var active = status.RX == RxActive
		if t.wasActive && !active && t.rxlog != nil {
			if err := t.rxlog.Flush(framing); err != nil {
				t.logger.Error("receive log", "err", err)
			}
		}
		t.wasActive = active
	}
}

// prefix puts the time stamp at the start of each line.
func (t *textWriter) prefix(text string) string {
	if t.stamp == nil {
		return text
	}

	var b strings.Builder
	for _, r := range text {
		if t.atLineStart && r != '\n' && r != '\r' {
			b.WriteString(t.stamp.FormatString(time.Now()))
			b.WriteByte(' ')
			t.atLineStart = false
		}
		b.WriteRune(r)
		if r == '\n' {
			t.atLineStart = true
		}
	}
	return b.String()
}

/* end modem_main.go */
