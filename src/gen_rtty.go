package rtty

/*------------------------------------------------------------------
 *
 * Name:	gen_rtty
 *
 * Purpose:	Test program for generating RTTY audio.
 *
 * Description:	Given text, on the command line, in a file, or from
 *		stdin, produce the audio a transmitter would send, and
 *		write it to a .wav file.  The same transmitter code is
 *		used as for a sound card, so lead guard, preamble,
 *		postamble and trail guard are all there.
 *
 *		It can also produce steady calibration tones, and add
 *		noise to test the receiver.
 *
 *		Use rtty_atest to decode the result.
 *
 *--------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

const genRTTYDefaultMessage = "RYRYRYRY THE QUICK BROWN FOX JUMPS OVER THE LAZY DOG 0123456789\n"

/*------------------------------------------------------------------
 *
 * Name:	RenderBurst
 *
 * Purpose:	Run the transmitter against a simulated sound card.
 *
 * Returns:	Every sample played from PTT on until PTT off.
 *
 *---------------------------------------------------------------*/

func RenderBurst(cfg ModemConfig, text string) ([]int16, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	var clock = NewPlaybackClock()
	var tx, err = NewTransmitter(cfg, nil, clock, nil)
	if err != nil {
		return nil, err
	}
	if err := tx.Enqueue(text); err != nil {
		return nil, err
	}

	var ring = tx.Samples()
	var frame = make([]int16, 1024)
	var out []int16
	var limit = burstLimit(cfg, text)/int64(len(frame)) + 16
	for range limit {
		if err := tx.Step(); err != nil {
			return nil, err
		}
		if !tx.Sending() && tx.Queued() == 0 {
			return out, nil
		}

		var n = ring.PopSlice(frame)
		clear(frame[n:])
		clock.advance(len(frame), n, ring.ReadPos())
		out = append(out, frame...)
	}
	return nil, fmt.Errorf("transmitter still keyed after %d samples", len(out))
}

// burstLimit is more samples than a burst of text can take, counting a
// CR LF and a shift word for every character.
func burstLimit(cfg ModemConfig, text string) int64 {
	var words = 4*len(text) + 1
	var symbols = float64(cfg.PreambleBits+cfg.PostambleBits) + float64(words)*(6+cfg.StopBits)
	return cfg.Samples(cfg.LeadGuard+cfg.TrailGuard+cfg.Lookahead) + int64(math.Ceil(symbols*(cfg.SamplesPerSymbol()+1)))
}

// The same linear congruential generator every time, so files with
// noise are repeatable.
type noiseSource struct {
	seed int32
}

const noiseRandMax = 0x7fffffff

func (g *noiseSource) next() int32 {
	g.seed = int32((uint32(g.seed)*1103515245 + 12345) & noiseRandMax)
	return g.seed
}

// AddNoise adds uniform noise, level as a fraction of full scale.
func AddNoise(samples []int16, level float64) {
	var g = noiseSource{seed: 1}
	for i, s := range samples {
		var r = (float64(g.next()) - noiseRandMax/2.0) / (noiseRandMax / 2.0)
		var v = float64(s) + r*level*32767
		samples[i] = int16(max(-32767, min(32767, v)))
	}
}

// Calibrate renders PTT style framing around steady tone: lead silence,
// the pattern, trail silence.
func Calibrate(cfg ModemConfig, c Calibration, d time.Duration) ([]int16, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var g = NewToneGen(cfg)
	var nbits = int(d.Seconds() * cfg.Baud)

	var out = g.AppendSilence(nil, int(cfg.Samples(cfg.LeadGuard)))
	out = g.AppendCalibration(out, c, nbits)
	out = g.AppendSilence(out, int(cfg.Samples(cfg.TrailGuard)))
	return out, nil
}

type genRTTYOptions struct {
	cfg       ModemConfig
	output    string
	noise     float64
	calibrate Calibration
	duration  time.Duration
	repeat    int
	text      string
}

func genRTTY(o genRTTYOptions) error {
	var samples []int16
	var err error

	if o.calibrate != "" {
		samples, err = Calibrate(o.cfg, o.calibrate, o.duration)
	} else {
		samples, err = RenderBurst(o.cfg, strings.Repeat(o.text, max(o.repeat, 1)))
	}
	if err != nil {
		return err
	}

	if o.noise > 0 {
		AddNoise(samples, o.noise)
	}

	var f, ferr = os.Create(o.output)
	if ferr != nil {
		return fmt.Errorf("can't open %s for write: %w", o.output, ferr)
	}
	if err := WriteWAV(f, o.cfg.SampleRate, samples); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Printf("Wrote %d samples, %.2f seconds, to %s\n", len(samples),
		float64(len(samples))/float64(o.cfg.SampleRate), o.output)
	return nil
}

func GenRTTYMain() {
	var cfg = DefaultModemConfig()

	var baud = pflag.Float64P("baud", "B", cfg.Baud, fmt.Sprintf("Symbols / second.  Common values: %v.", BaudPresets))
	var center = pflag.Float64P("center", "c", cfg.Center, "Frequency midway between mark and space, Hz.")
	var shift = pflag.Float64P("shift", "s", cfg.Shift, "Mark minus space, Hz.  50 to 500.")
	var reverse = pflag.BoolP("reverse", "R", false, "Swap mark and space.")
	var stopBits = pflag.Float64P("stop-bits", "S", cfg.StopBits, "1, 1.5 or 2.")
	var charset = pflag.String("charset", string(cfg.Charset), "Figures table, ita2 or us.")
	var amplitude = pflag.IntP("amplitude", "a", cfg.Amplitude, "Signal amplitude in range of 1 - 100%.")
	var sampleRate = pflag.IntP("audio-sample-rate", "r", cfg.SampleRate, "Audio sample rate.")
	var noise = pflag.Float64P("noise", "n", 0, "Add uniform noise, fraction of full scale, e.g. 0.2.")
	var calibrate = pflag.StringP("calibrate", "C", "", "Steady tone instead of text: mark, space or reversals.")
	var duration = pflag.DurationP("duration", "d", 10*time.Second, "Length of calibration tone.")
	var repeat = pflag.IntP("repeat", "N", 1, "Send the message this many times.")
	var outputFile = pflag.StringP("output-file", "o", "", "Send output to .wav file.")
	var version = pflag.BoolP("version", "v", false, "Print version and exit.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Generate audio file for RTTY text.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [file]\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "An optional file may be specified to provide text other than\n")
		fmt.Fprintf(os.Stderr, "the default built-in message.  Use - for stdin.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Example:  gen_rtty -o x.wav\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "    With all defaults, a built-in test message is generated\n")
		fmt.Fprintf(os.Stderr, "    at 45.45 baud with 170 Hz shift, mark at 2125 Hz.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Example:  gen_rtty -o x.wav -B 50 -s 450\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "    50 baud, 450 Hz shift.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Example:  echo \"CQ CQ DE N0CALL\" | gen_rtty -a 25 -o x.wav -\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "    Read message from stdin and put quarter volume sound into the file x.wav.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Example:  gen_rtty -o cal.wav -C reversals -d 30s\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "    Alternating mark and space for adjusting the transmitter.\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}
	if *version {
		printVersion("gen_rtty", false)
		os.Exit(0)
	}
	if *outputFile == "" {
		fmt.Fprintf(os.Stderr, "ERROR: The -o output file option must be specified.\n")
		pflag.Usage()
		os.Exit(1)
	}

	cfg.Baud = *baud
	cfg.Center = *center
	cfg.Shift = *shift
	cfg.Reverse = *reverse
	cfg.StopBits = *stopBits
	cfg.Charset = Charset(*charset)
	cfg.Amplitude = *amplitude
	cfg.SampleRate = *sampleRate

	var o = genRTTYOptions{
		cfg:       cfg,
		output:    *outputFile,
		noise:     *noise,
		calibrate: Calibration(*calibrate),
		duration:  *duration,
		repeat:    *repeat,
		text:      genRTTYDefaultMessage,
	}

	switch o.calibrate {
	case "", CalibrateMark, CalibrateSpace, CalibrateReversals:
	default:
		fmt.Fprintf(os.Stderr, "Calibration must be mark, space or reversals, not %q.\n", *calibrate)
		os.Exit(1)
	}

	if pflag.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Only one input file allowed.\n")
		os.Exit(1)
	}
	if pflag.NArg() == 1 {
		var text, err = readTextArg(pflag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
		o.text = text
	}

	if err := genRTTY(o); err != nil {
		var cerr *ConfigError
		if errors.As(err, &cerr) {
			fmt.Fprintf(os.Stderr, "Bad modem settings:\n%s\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "%s\n", err)
		}
		os.Exit(1)
	}
}

func readTextArg(name string) (string, error) {
	var b []byte
	var err error
	if name == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("can't read %s: %w", name, err)
	}
	return string(b), nil
}

/* end gen_rtty.go */
