package rtty

/*------------------------------------------------------------------
 *
 * Purpose:   	Interface to the audio device commonly called a "sound
 *		card" for historical reasons.
 *
 * Description:	One mono 16 bit stream in each direction at the modem
 *		sample rate.  The device calls back with a buffer of
 *		input and a buffer to fill for output, normally
 *		Modem.Process.
 *
 *		The real device is PortAudio, compiled in with the
 *		portaudio build tag.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
)

// AudioCallback must not block.  in and out are only valid for the call.
type AudioCallback func(in, out []int16)

type AudioDevice interface {
	Start(cb AudioCallback) error
	Close() error
}

type AudioConfig struct {
	Device          string `yaml:"device"` // Substring of the device name.  Empty for the default.
	FramesPerBuffer int    `yaml:"frames_per_buffer"`
}

func DefaultAudioConfig() AudioConfig {
	return AudioConfig{FramesPerBuffer: 1024}
}

var ErrNoAudioBackend = errors.New("sound card support not compiled in, rebuild with -tags portaudio")

/* end audio.go */
