package rtty

/*-------------------------------------------------------------------
 *
 * Name:	rtty_atest
 *
 * Purpose:	Test fixture for the RTTY receive chain.
 *
 * Description:	Decode RTTY from audio recordings.  This provides an
 *		easy way to test decoding performance and functionality
 *		much quicker than normal real-time.
 *
 *--------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// DecodeResult is what the receiver made of one recording.
type DecodeResult struct {
	Text     string
	Stats    RxStats
	Duration time.Duration // Of the audio.
	Carrier  int           // Number of times DCD came on.
}

/*------------------------------------------------------------------
 *
 * Name:	DecodeWAV
 *
 * Purpose:	Run a WAV file through the receiver.
 *
 * Inputs:	cfg	- Sample rate is taken from the file.
 *
 *---------------------------------------------------------------*/

func DecodeWAV(f riffReader, cfg ModemConfig) (DecodeResult, error) {
	var r, err = NewWAVReader(f)
	if err != nil {
		return DecodeResult{}, err
	}
	cfg.SampleRate = r.SampleRate

	rx, err := NewReceiver(cfg)
	if err != nil {
		return DecodeResult{}, err
	}

	var res DecodeResult
	var text strings.Builder
	var events []RxEvent
	var buf = make([]int16, 1024)
	var chars = make([]rune, decodedQueueSize)

	for {
		var n, rerr = r.Read(buf)
		if n > 0 {
			rx.Process(buf[:n])

			var k = rx.Decoded().PopSlice(chars)
			text.WriteString(string(chars[:k]))

			events = rx.DrainEvents(events[:0])
			for _, e := range events {
				if e.Kind == EventCarrierOn {
					res.Carrier++
				}
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return DecodeResult{}, rerr
		}
	}

	res.Text = text.String()
	res.Stats = rx.Stats()
	res.Duration = time.Duration(float64(res.Stats.Samples) / float64(cfg.SampleRate) * float64(time.Second))
	return res, nil
}

func ATestMain() {
	var cfg = DefaultModemConfig()

	var baud = pflag.Float64P("baud", "B", cfg.Baud, fmt.Sprintf("Symbols / second.  Common values: %v.", BaudPresets))
	var center = pflag.Float64P("center", "c", cfg.Center, "Frequency midway between mark and space, Hz.")
	var shift = pflag.Float64P("shift", "s", cfg.Shift, "Mark minus space, Hz.  50 to 500.")
	var reverse = pflag.BoolP("reverse", "R", false, "Swap mark and space.")
	var stopBits = pflag.Float64P("stop-bits", "S", cfg.StopBits, "1, 1.5 or 2.")
	var charset = pflag.String("charset", string(cfg.Charset), "Figures table, ita2 or us.")
	var window = pflag.Float64P("window", "w", cfg.WindowFraction, "Discriminator window, fraction of a symbol.")
	var noPrefilter = pflag.BoolP("no-prefilter", "P", false, "Skip the band pass filter in front of the discriminator.")
	var quiet = pflag.BoolP("quiet", "q", false, "Don't print the decoded text.")
	var errorIfLessThan = pflag.IntP("error-if-less-than", "L", -1, "Error if less than this number of characters decoded.")
	var errorIfFramingOver = pflag.IntP("error-if-framing-errors-over", "F", -1, "Error if more than this number of framing errors.")
	var expect = pflag.StringP("expect", "e", "", "Error if the decoded text does not contain this.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s is a test application which decodes RTTY from audio recordings.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "This provides an easy way to test decoding performance and functionality much quicker than normal real-time.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... <WAV FILE>...\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "$ gen_rtty -o test1.wav\n")
		fmt.Fprintf(os.Stderr, "$ rtty_atest test1.wav\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "$ gen_rtty -B 75 -s 850 -o test2.wav\n")
		fmt.Fprintf(os.Stderr, "$ rtty_atest -B 75 -s 850 test2.wav\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Try different combinations of options to compare decoding performance.\n")
	}

	pflag.Parse()

	if *help || pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(1)
	}

	cfg.Baud = *baud
	cfg.Center = *center
	cfg.Shift = *shift
	cfg.Reverse = *reverse
	cfg.StopBits = *stopBits
	cfg.Charset = Charset(*charset)
	cfg.WindowFraction = *window
	cfg.Prefilter = !*noPrefilter

	var start = time.Now()
	var total DecodeResult
	var decoded strings.Builder

	for _, name := range pflag.Args() {
		var f, err = os.Open(name)
		if err != nil {
			fmt.Printf("Couldn't open file for read: %s\n", name)
			os.Exit(1)
		}

		res, err := DecodeWAV(f, cfg)
		f.Close()
		if err != nil {
			fmt.Printf("%s: %s\n", name, err)
			os.Exit(1)
		}

		if !*quiet {
			fmt.Printf("%s\n", res.Text)
		}
		fmt.Printf("%d characters, %d framing errors from %s, %.1f seconds\n",
			res.Stats.Chars, res.Stats.FramingErrors, name, res.Duration.Seconds())

		decoded.WriteString(res.Text)
		total.Stats.Chars += res.Stats.Chars
		total.Stats.FramingErrors += res.Stats.FramingErrors
		total.Duration += res.Duration
	}

	var elapsed = time.Since(start)
	fmt.Printf("%d characters decoded in %.3f seconds.  %.1f x realtime\n",
		total.Stats.Chars, elapsed.Seconds(), total.Duration.Seconds()/elapsed.Seconds())

	if *errorIfLessThan >= 0 && total.Stats.Chars < int64(*errorIfLessThan) {
		fmt.Printf("\n * * * TEST FAILED: number decoded is less than %d * * * \n", *errorIfLessThan)
		os.Exit(1)
	}
	if *errorIfFramingOver >= 0 && total.Stats.FramingErrors > int64(*errorIfFramingOver) {
		fmt.Printf("\n * * * TEST FAILED: more than %d framing errors * * * \n", *errorIfFramingOver)
		os.Exit(1)
	}
	if *expect != "" && !strings.Contains(decoded.String(), *expect) {
		fmt.Printf("\n * * * TEST FAILED: %q not found in decoded text * * * \n", *expect)
		os.Exit(1)
	}
}

/* end atest.go */
