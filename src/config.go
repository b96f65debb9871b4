package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Modem configuration and its validation.
 *
 * Description:	A ModemConfig is never modified once handed to the
 *		modem.  A change is a new value swapped in whole.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	DEFAULT_SAMPLE_RATE = 44100
	DEFAULT_BAUD        = 45.45
	DEFAULT_MARK        = 2125
	DEFAULT_SHIFT       = 170

	MIN_SHIFT = 50
	MAX_SHIFT = 500
)

// Common amateur and commercial speeds.
var BaudPresets = []float64{45.45, 50, 75, 100, 110, 300}

type ModemConfig struct {
	SampleRate int     `yaml:"sample_rate"`
	Baud       float64 `yaml:"baud"`
	Center     float64 `yaml:"center"` // Midway between mark and space, Hz.
	Shift      float64 `yaml:"shift"`  // Mark minus space, Hz.
	Reverse    bool    `yaml:"reverse"`
	StopBits   float64 `yaml:"stop_bits"`

	LeadGuard  time.Duration `yaml:"lead_guard"`
	TrailGuard time.Duration `yaml:"trail_guard"`
	HalfDuplex bool          `yaml:"half_duplex"`

	Charset        Charset `yaml:"charset"`
	UnshiftOnSpace bool    `yaml:"unshift_on_space"`
	CRLF           bool    `yaml:"crlf"` // Send LF as CR LF.

	PreambleBits  int `yaml:"preamble_bits"` // Idle mark after lead guard.
	PostambleBits int `yaml:"postamble_bits"`
	Amplitude     int `yaml:"amplitude"` // Percent of full scale.

	WindowFraction float64 `yaml:"window_fraction"` // Discriminator window, fraction of a symbol.
	Prefilter      bool    `yaml:"prefilter"`
	DCDOn          int     `yaml:"dcd_on"`
	DCDOff         int     `yaml:"dcd_off"`

	SpectrumInterval time.Duration `yaml:"spectrum_interval"`
	Lookahead        time.Duration `yaml:"lookahead"` // TX audio rendered ahead of playback.
}

func DefaultModemConfig() ModemConfig {
	return ModemConfig{
		SampleRate:       DEFAULT_SAMPLE_RATE,
		Baud:             DEFAULT_BAUD,
		Center:           DEFAULT_MARK - DEFAULT_SHIFT/2,
		Shift:            DEFAULT_SHIFT,
		StopBits:         2,
		LeadGuard:        200 * time.Millisecond,
		TrailGuard:       100 * time.Millisecond,
		Charset:          CharsetITA2,
		UnshiftOnSpace:   true,
		CRLF:             true,
		PreambleBits:     8,
		PostambleBits:    2,
		Amplitude:        50,
		WindowFraction:   0.5,
		Prefilter:        true,
		DCDOn:            20,
		DCDOff:           4,
		SpectrumInterval: 100 * time.Millisecond,
		Lookahead:        250 * time.Millisecond,
	}
}

// ConfigError describes one rejected field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

/*------------------------------------------------------------------
 *
 * Name:	Validate
 *
 * Purpose:	Check a configuration before it is applied.
 *
 * Returns:	nil, or all problems joined.  Each is a *ConfigError.
 *
 * Description:	The highest tone must be below the Nyquist frequency.
 *
 *---------------------------------------------------------------*/

func (c ModemConfig) Validate() error {
	var errs []error
	var bad = func(field, format string, args ...any) {
		errs = append(errs, &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if !(c.Baud > 0) || math.IsInf(c.Baud, 0) {
		bad("baud", "must be greater than 0, got %v", c.Baud)
	}
	if !(c.Shift >= MIN_SHIFT && c.Shift <= MAX_SHIFT) {
		bad("shift", "must be %d to %d Hz, got %v", MIN_SHIFT, MAX_SHIFT, c.Shift)
	}
	if c.SampleRate <= 0 {
		bad("sample_rate", "must be greater than 0, got %d", c.SampleRate)
	} else if float64(c.SampleRate) < 2*(c.Center+c.Shift/2) {
		bad("sample_rate", "%d Hz cannot represent a %v Hz tone", c.SampleRate, c.Center+c.Shift/2)
	}
	if c.Center-c.Shift/2 <= 0 {
		bad("center", "space tone would be at or below 0 Hz")
	}
	if c.Baud > 0 && c.SampleRate > 0 && float64(c.SampleRate)/c.Baud < 8 {
		bad("baud", "%v is too fast for %d samples per second", c.Baud, c.SampleRate)
	}

	switch c.StopBits {
	case 1, 1.5, 2:
	default:
		bad("stop_bits", "must be 1, 1.5 or 2, got %v", c.StopBits)
	}

	if c.LeadGuard < 0 {
		bad("lead_guard", "must not be negative")
	}
	if c.TrailGuard < 0 {
		bad("trail_guard", "must not be negative")
	}

	switch c.Charset {
	case CharsetITA2, CharsetUS, "":
	default:
		bad("charset", "must be %q or %q, got %q", CharsetITA2, CharsetUS, c.Charset)
	}

	if c.PreambleBits < 0 || c.PostambleBits < 0 {
		bad("preamble_bits", "must not be negative")
	}
	if c.Amplitude < 1 || c.Amplitude > 100 {
		bad("amplitude", "must be 1 to 100 percent, got %d", c.Amplitude)
	}
	if !(c.WindowFraction >= 0.1 && c.WindowFraction <= 1) {
		bad("window_fraction", "must be 0.1 to 1, got %v", c.WindowFraction)
	}
	if c.DCDOn < 1 || c.DCDOn > 32 || c.DCDOff < 0 || c.DCDOff >= c.DCDOn {
		bad("dcd_on", "need 0 <= dcd_off < dcd_on <= 32, got %d and %d", c.DCDOff, c.DCDOn)
	}
	if c.SpectrumInterval < 0 {
		bad("spectrum_interval", "must not be negative")
	}
	if c.Lookahead <= 0 {
		bad("lookahead", "must be greater than 0")
	} else if c.Baud > 0 && c.SampleRate > 0 && c.Samples(c.Lookahead)+maxSymbolSamples(c) > txSampleQueueSize {
		bad("lookahead", "%v plus one symbol does not fit the %d sample transmit queue", c.Lookahead, txSampleQueueSize)
	}

	return errors.Join(errs...)
}

// MarkFreq is the tone for a 1 bit.
func (c ModemConfig) MarkFreq() float64 {
	if c.Reverse {
		return c.Center - c.Shift/2
	}
	return c.Center + c.Shift/2
}

func (c ModemConfig) SpaceFreq() float64 {
	if c.Reverse {
		return c.Center + c.Shift/2
	}
	return c.Center - c.Shift/2
}

// SamplesPerSymbol is fractional.
func (c ModemConfig) SamplesPerSymbol() float64 {
	return float64(c.SampleRate) / c.Baud
}

// Samples converts a duration to a whole number of samples, rounding up
// so guard times are never short.
func (c ModemConfig) Samples(d time.Duration) int64 {
	return int64(math.Ceil(d.Seconds()*float64(c.SampleRate) - 1e-6))
}

/* end config.go */
