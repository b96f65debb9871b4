package rtty

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_WAV_RoundTrip(t *testing.T) {
	var samples = []int16{0, 1, -1, 32767, -32768, 1000, -1000}
	for j := range 5000 {
		samples = append(samples, int16(j*7))
	}

	var path = filepath.Join(t.TempDir(), "x.wav")
	var f, err = os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteWAV(f, 8000, samples))
	require.NoError(t, f.Close())

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var rate, got, rerr = ReadWAV(f)
	require.NoError(t, rerr)
	assert.Equal(t, 8000, rate)
	assert.Equal(t, samples, got)
}

// pcmHeader builds a canonical 44 byte header.
func pcmHeader(format uint16, channels uint16, rate uint32, bits uint16, dataLen uint32) []byte {
	var b bytes.Buffer
	var w = func(v any) { _ = binary.Write(&b, binary.LittleEndian, v) }

	b.WriteString("RIFF")
	w(uint32(36 + dataLen))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	w(uint32(16))
	w(format)
	w(channels)
	w(rate)
	w(rate * uint32(channels) * uint32(bits) / 8)
	w(channels * bits / 8)
	w(bits)
	b.WriteString("data")
	w(dataLen)
	return b.Bytes()
}

func Test_WAV_Stereo(t *testing.T) {
	var file = pcmHeader(1, 2, 11025, 16, 12)
	for _, v := range []int16{100, -5, 200, -6, 300, -7} {
		file = binary.LittleEndian.AppendUint16(file, uint16(v))
	}

	var rate, got, err = ReadWAV(bytes.NewReader(file))
	require.NoError(t, err)
	assert.Equal(t, 11025, rate)
	assert.Equal(t, []int16{100, 200, 300}, got, "first channel only")
}

func Test_WAV_Rejected(t *testing.T) {
	for _, tc := range []struct {
		name   string
		header []byte
		want   string
	}{
		{"float", pcmHeader(3, 1, 8000, 32, 0), "PCM"},
		{"24 bit", pcmHeader(1, 1, 8000, 24, 0), "8 or 16 bits"},
		{"surround", pcmHeader(1, 6, 8000, 16, 0), "one or two channels"},
	} {
		var _, err = NewWAVReader(bytes.NewReader(tc.header))
		require.Error(t, err, tc.name)
		assert.Contains(t, err.Error(), tc.want, tc.name)
	}
}
