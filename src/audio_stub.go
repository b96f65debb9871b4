//go:build !portaudio

package rtty

func OpenAudio(cfg AudioConfig, sampleRate int) (AudioDevice, error) {
	return nil, ErrNoAudioBackend
}
