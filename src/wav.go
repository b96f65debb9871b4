package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Read and write audio files for the offline tools.
 *
 * Description:	Always written as 16 bit mono PCM.  Reading accepts 8
 *		or 16 bit PCM with one or two channels.  Only the first
 *		channel is used.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"

	"github.com/youpy/go-wav"
)

func WriteWAV(w io.Writer, sampleRate int, samples []int16) error {
	var ww = wav.NewWriter(w, uint32(len(samples)), 1, uint32(sampleRate), 16)

	var buf = make([]wav.Sample, 0, 4096)
	for len(samples) > 0 {
		var n = min(len(samples), cap(buf))
		buf = buf[:0]
		for _, v := range samples[:n] {
			buf = append(buf, wav.Sample{Values: [2]int{int(v), 0}})
		}
		if err := ww.WriteSamples(buf); err != nil {
			return err
		}
		samples = samples[n:]
	}
	return nil
}

// WAVReader delivers a file as 16 bit samples, a block at a time.
type WAVReader struct {
	r          *wav.Reader
	SampleRate int
	Channels   int
	Bits       int
}

type riffReader interface {
	io.Reader
	io.ReaderAt
}

func NewWAVReader(f riffReader) (*WAVReader, error) {
	var r = wav.NewReader(f)
	var format, err = r.Format()
	if err != nil {
		return nil, fmt.Errorf("WAV file error: %w", err)
	}
	if format.AudioFormat != wav.AudioFormatPCM {
		return nil, fmt.Errorf("WAV file error: need PCM format, not %d", format.AudioFormat)
	}
	if format.BitsPerSample != 8 && format.BitsPerSample != 16 {
		return nil, fmt.Errorf("WAV file error: need 8 or 16 bits per sample, not %d", format.BitsPerSample)
	}
	if format.NumChannels != 1 && format.NumChannels != 2 {
		return nil, fmt.Errorf("WAV file error: need one or two channels, not %d", format.NumChannels)
	}
	return &WAVReader{
		r:          r,
		SampleRate: int(format.SampleRate),
		Channels:   int(format.NumChannels),
		Bits:       int(format.BitsPerSample),
	}, nil
}

// Read fills dst and returns the count, or io.EOF at the end.
func (w *WAVReader) Read(dst []int16) (int, error) {
	var samples, err = w.r.ReadSamples(uint32(len(dst)))
	if len(samples) == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	for i, s := range samples {
		var v = w.r.IntValue(s, 0)
		if w.Bits == 8 {
			v = (v - 128) << 8
		}
		dst[i] = int16(v)
	}
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return len(samples), err
}

// ReadWAV reads a whole file.
func ReadWAV(f riffReader) (int, []int16, error) {
	var r, err = NewWAVReader(f)
	if err != nil {
		return 0, nil, err
	}

	var out []int16
	var buf = make([]int16, 4096)
	for {
		var n, rerr = r.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(rerr, io.EOF) {
			return r.SampleRate, out, nil
		}
		if rerr != nil {
			return 0, nil, rerr
		}
	}
}

/* end wav.go */
