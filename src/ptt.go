package rtty

/*------------------------------------------------------------------
 *
 * Purpose:   	Activate the output control lines for push to talk (PTT).
 *
 * Description:	Traditionally this is done with the RTS signal of the serial port.
 *
 *		Other methods:
 *
 *		  - DTR instead of RTS.
 *		  - A command string to the radio's CAT port.
 *		  - A GPIO line through the Linux GPIO character device.
 *		  - A GPIO pin on a CM108 class USB audio adapter.
 *		  - Hamlib, when built with the hamlib tag.
 *
 *		Every method can be inverted for radios or interfaces
 *		that want the line low to transmit.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/term"
	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

// PTT is a boolean keying line.
type PTT interface {
	Set(on bool) error
	Close() error
}

type PTTMethod string

const (
	PTTNone   PTTMethod = "none"
	PTTSerial PTTMethod = "serial"
	PTTCAT    PTTMethod = "cat"
	PTTGPIO   PTTMethod = "gpio"
	PTTCM108  PTTMethod = "cm108"
	PTTHamlib PTTMethod = "hamlib"
)

type PTTConfig struct {
	Method PTTMethod `yaml:"method"`
	Device string    `yaml:"device"` // Serial port, hidraw device, or hamlib rig port.
	Line   string    `yaml:"line"`   // rts, dtr or both for serial.
	Invert bool      `yaml:"invert"`

	GPIOChip string `yaml:"gpio_chip"`
	GPIOLine int    `yaml:"gpio_line"`

	CM108Pin int `yaml:"cm108_gpio"`

	CATOn   string `yaml:"cat_on"`
	CATOff  string `yaml:"cat_off"`
	CATBaud int    `yaml:"cat_baud"`

	HamlibModel int `yaml:"hamlib_model"`
	HamlibBaud  int `yaml:"hamlib_baud"`
}

func DefaultPTTConfig() PTTConfig {
	return PTTConfig{
		Method:   PTTNone,
		Line:     "rts",
		GPIOChip: "gpiochip0",
		CM108Pin: 3,
		CATOn:    "TX;",
		CATOff:   "RX;",
		CATBaud:  9600,
	}
}

var ErrNoHamlib = errors.New("hamlib PTT support not compiled in, rebuild with -tags hamlib")

/*------------------------------------------------------------------
 *
 * Name:        OpenPTT
 *
 * Purpose:    	Open the PTT control and leave it in the off state.
 *
 * Returns:	A PTT ready to use, closed by the caller.
 *
 *--------------------------------------------------------------------*/

func OpenPTT(cfg PTTConfig) (PTT, error) {
	var ptt PTT
	var err error

	switch cfg.Method {
	case PTTNone, "":
		return NoPTT{}, nil
	case PTTSerial:
		ptt, err = openSerialPTT(cfg.Device, cfg.Line, cfg.Invert)
	case PTTCAT:
		ptt, err = openCATPTT(cfg.Device, cfg.CATBaud, cfg.CATOn, cfg.CATOff, cfg.Invert)
	case PTTGPIO:
		ptt, err = openGPIOPTT(cfg.GPIOChip, cfg.GPIOLine, cfg.Invert)
	case PTTCM108:
		ptt, err = openCM108PTT(cfg.Device, cfg.CM108Pin, cfg.Invert)
	case PTTHamlib:
		ptt, err = openHamlibPTT(cfg.HamlibModel, cfg.Device, cfg.HamlibBaud, cfg.Invert)
	default:
		return nil, fmt.Errorf("unknown PTT method %q", cfg.Method)
	}
	if err != nil {
		return nil, fmt.Errorf("PTT %s: %w", cfg.Method, err)
	}

	if err := ptt.Set(false); err != nil {
		ptt.Close()
		return nil, fmt.Errorf("PTT %s: initial off: %w", cfg.Method, err)
	}
	return ptt, nil
}

// NoPTT is for VOX or receive only.
type NoPTT struct{}

func (NoPTT) Set(bool) error { return nil }
func (NoPTT) Close() error   { return nil }

func level(on, invert bool) bool {
	return on != invert
}

/*
 * Serial port RTS / DTR.
 */

type serialPTT struct {
	f      *os.File
	bits   int
	invert bool
}

func openSerialPTT(device, line string, invert bool) (*serialPTT, error) {
	var bits int
	switch strings.ToLower(line) {
	case "rts", "":
		bits = unix.TIOCM_RTS
	case "dtr":
		bits = unix.TIOCM_DTR
	case "both":
		bits = unix.TIOCM_RTS | unix.TIOCM_DTR
	default:
		return nil, fmt.Errorf("serial line must be rts, dtr or both, not %q", line)
	}

	var f, err = os.OpenFile(device, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	return &serialPTT{f: f, bits: bits, invert: invert}, nil
}

func tiocm(fd int, bits int, on bool) error {
	var stuff, err = unix.IoctlGetInt(fd, unix.TIOCMGET)
	if err != nil {
		return fmt.Errorf("TIOCMGET: %w", err)
	}
	if on {
		stuff |= bits
	} else {
		stuff &^= bits
	}
	if err := unix.IoctlSetInt(fd, unix.TIOCMSET, stuff); err != nil {
		return fmt.Errorf("TIOCMSET: %w", err)
	}
	return nil
}

func (p *serialPTT) Set(on bool) error {
	return tiocm(int(p.f.Fd()), p.bits, level(on, p.invert))
}

func (p *serialPTT) Close() error {
	return p.f.Close()
}

/*
 * CAT command strings, e.g. "TX;" and "RX;" for Kenwood style rigs.
 * Escapes \r and \n are accepted in the configuration.
 */

type catPTT struct {
	port    io.WriteCloser
	on, off []byte
	invert  bool
}

// openCATPTT sends on to transmit and off to receive.  Inverted, the two
// are swapped.
func openCATPTT(device string, baud int, on, off string, invert bool) (*catPTT, error) {
	if on == "" || off == "" {
		return nil, errors.New("cat_on and cat_off commands are required")
	}
	var t, err = term.Open(device, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, err
	}
	var unescape = strings.NewReplacer(`\r`, "\r", `\n`, "\n")
	return &catPTT{
		port:   t,
		on:     []byte(unescape.Replace(on)),
		off:    []byte(unescape.Replace(off)),
		invert: invert,
	}, nil
}

func (p *catPTT) Set(on bool) error {
	var cmd = p.off
	if level(on, p.invert) {
		cmd = p.on
	}
	var _, err = p.port.Write(cmd)
	return err
}

func (p *catPTT) Close() error {
	return p.port.Close()
}

/*
 * GPIO character device.
 */

// gpioLine is the part of *gpiocdev.Line we use.
type gpioLine interface {
	SetValue(int) error
	Close() error
}

type gpioPTT struct {
	line   gpioLine
	invert bool
}

func openGPIOPTT(chip string, offset int, invert bool) (*gpioPTT, error) {
	var initial = 0
	if invert {
		initial = 1
	}
	var line, err = gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(initial),
		gpiocdev.WithConsumer("rttymodem"))
	if err != nil {
		return nil, err
	}
	return &gpioPTT{line: line, invert: invert}, nil
}

func (p *gpioPTT) Set(on bool) error {
	var v = 0
	if level(on, p.invert) {
		v = 1
	}
	return p.line.SetValue(v)
}

func (p *gpioPTT) Close() error {
	return p.line.Close()
}

/*
 * CM108 audio adapter GPIO.  See cm108.go.
 */

type cm108PTT struct {
	path   string
	pin    int
	invert bool
}

func openCM108PTT(path string, pin int, invert bool) (*cm108PTT, error) {
	if pin < 1 || pin > 8 {
		return nil, fmt.Errorf("CM108 GPIO number %d must be in range of 1 thru 8", pin)
	}
	if path == "" {
		var found, err = CM108FindHID()
		if err != nil {
			return nil, err
		}
		path = found
	}
	return &cm108PTT{path: path, pin: pin, invert: invert}, nil
}

func (p *cm108PTT) Set(on bool) error {
	return CM108SetGPIOPin(p.path, p.pin, level(on, p.invert))
}

func (p *cm108PTT) Close() error {
	return nil
}

/* end ptt.go */
