package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Configuration file for the rttymodem application.
 *
 * Description:	YAML, with a section per concern.  Anything left out
 *		keeps its default.  Unknown keys are an error so a typo
 *		does not silently do nothing.
 *
 *		modem:
 *		  baud: 45.45
 *		  center: 2040
 *		  shift: 170
 *		  lead_guard: 200ms
 *		audio:
 *		  device: "USB Audio"
 *		ptt:
 *		  method: serial
 *		  device: /dev/ttyUSB0
 *		  line: rts
 *		log:
 *		  level: info
 *		  dir: /var/log/rtty
 *		  timestamp_format: "%H:%M:%S"
 *		metrics:
 *		  listen: ":9464"
 *		pty:
 *		  enable: true
 *		  link: /tmp/rtty
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level           string `yaml:"level"`
	Dir             string `yaml:"dir"` // Daily receive logs.  Empty for none.
	TimestampFormat string `yaml:"timestamp_format"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // Address for /metrics.  Empty for none.
}

type PTYConfig struct {
	Enable bool   `yaml:"enable"`
	Link   string `yaml:"link"` // Stable symlink to the pty slave.
}

type AppConfig struct {
	Modem   ModemConfig   `yaml:"modem"`
	Audio   AudioConfig   `yaml:"audio"`
	PTT     PTTConfig     `yaml:"ptt"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	PTY     PTYConfig     `yaml:"pty"`
}

func DefaultAppConfig() AppConfig {
	return AppConfig{
		Modem: DefaultModemConfig(),
		Audio: DefaultAudioConfig(),
		PTT:   DefaultPTTConfig(),
		Log:   LogConfig{Level: "info"},
		PTY:   PTYConfig{Link: "/tmp/rtty"},
	}
}

// LoadConfig reads and validates the file at path.
func LoadConfig(path string) (AppConfig, error) {
	var f, err = os.Open(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadConfigFromReader(f)
	if err != nil {
		return AppConfig{}, fmt.Errorf("config: %q: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigFromReader starts from the defaults.  An empty input is
// just the defaults.
func LoadConfigFromReader(r io.Reader) (AppConfig, error) {
	var cfg = DefaultAppConfig()
	var dec = yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return AppConfig{}, fmt.Errorf("decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate returns every problem found, joined.
func (c AppConfig) Validate() error {
	var errs []error

	if err := c.Modem.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("modem: %w", err))
	}

	if c.Audio.FramesPerBuffer < 0 {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer must not be negative"))
	}

	switch c.PTT.Method {
	case PTTNone, "", PTTSerial, PTTCAT, PTTGPIO, PTTCM108, PTTHamlib:
	default:
		errs = append(errs, fmt.Errorf("ptt.method %q is invalid; valid values: none, serial, cat, gpio, cm108, hamlib", c.PTT.Method))
	}
	if (c.PTT.Method == PTTSerial || c.PTT.Method == PTTCAT) && c.PTT.Device == "" {
		errs = append(errs, fmt.Errorf("ptt.device is required for %s", c.PTT.Method))
	}
	if c.PTT.Method == PTTCM108 && (c.PTT.CM108Pin < 1 || c.PTT.CM108Pin > 8) {
		errs = append(errs, fmt.Errorf("ptt.cm108_gpio must be 1 thru 8, got %d", c.PTT.CM108Pin))
	}

	if c.Log.Level != "" {
		if _, err := log.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", c.Log.Level))
		}
	}
	if c.Log.TimestampFormat != "" {
		if _, err := strftime.New(c.Log.TimestampFormat); err != nil {
			errs = append(errs, fmt.Errorf("log.timestamp_format: %w", err))
		}
	}

	if c.PTY.Enable && c.PTY.Link == "" {
		errs = append(errs, errors.New("pty.link is required when pty is enabled"))
	}

	return errors.Join(errs...)
}

/* end appconfig.go */
