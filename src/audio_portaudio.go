//go:build portaudio

package rtty

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

type portAudioDevice struct {
	cfg        AudioConfig
	sampleRate int
	stream     *portaudio.Stream
}

// OpenAudio initializes PortAudio.  The stream is opened by Start.
func OpenAudio(cfg AudioConfig, sampleRate int) (AudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}
	return &portAudioDevice{cfg: cfg, sampleRate: sampleRate}, nil
}

func (d *portAudioDevice) Start(cb AudioCallback) error {
	var process = func(in, out []int16) { cb(in, out) }

	var stream *portaudio.Stream
	var err error
	if d.cfg.Device == "" {
		stream, err = portaudio.OpenDefaultStream(1, 1, float64(d.sampleRate), d.cfg.FramesPerBuffer, process)
	} else {
		var dev, ferr = findAudioDevice(d.cfg.Device)
		if ferr != nil {
			return ferr
		}
		var p = portaudio.LowLatencyParameters(dev, dev)
		p.Input.Channels = 1
		p.Output.Channels = 1
		p.SampleRate = float64(d.sampleRate)
		p.FramesPerBuffer = d.cfg.FramesPerBuffer
		stream, err = portaudio.OpenStream(p, process)
	}
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("starting stream: %w", err)
	}
	d.stream = stream
	return nil
}

func findAudioDevice(name string) (*portaudio.DeviceInfo, error) {
	var devices, err = portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if strings.Contains(dev.Name, name) && dev.MaxInputChannels > 0 && dev.MaxOutputChannels > 0 {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("no full duplex audio device matching %q", name)
}

func (d *portAudioDevice) Close() error {
	var err error
	if d.stream != nil {
		d.stream.Stop()
		err = d.stream.Close()
	}
	portaudio.Terminate()
	return err
}
