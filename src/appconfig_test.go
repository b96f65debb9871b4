package rtty

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LoadConfig_Empty(t *testing.T) {
	var cfg, err = LoadConfigFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig(), cfg)
}

func Test_LoadConfig(t *testing.T) {
	var input = `
modem:
  baud: 50
  center: 1800
  shift: 450
  reverse: true
  lead_guard: 300ms
  charset: us
audio:
  device: "USB Audio"
ptt:
  method: serial
  device: /dev/ttyUSB0
  line: dtr
log:
  level: debug
  dir: /var/log/rtty
  timestamp_format: "%Y-%m-%d %H:%M:%S"
metrics:
  listen: ":9464"
pty:
  enable: true
`
	var cfg, err = LoadConfigFromReader(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 50.0, cfg.Modem.Baud)
	assert.Equal(t, 1800.0, cfg.Modem.Center)
	assert.True(t, cfg.Modem.Reverse)
	assert.Equal(t, 300*time.Millisecond, cfg.Modem.LeadGuard)
	assert.Equal(t, CharsetUS, cfg.Modem.Charset)
	assert.Equal(t, 100*time.Millisecond, cfg.Modem.TrailGuard, "untouched keeps default")
	assert.Equal(t, 44100, cfg.Modem.SampleRate)

	assert.Equal(t, "USB Audio", cfg.Audio.Device)
	assert.Equal(t, 1024, cfg.Audio.FramesPerBuffer)

	assert.Equal(t, PTTSerial, cfg.PTT.Method)
	assert.Equal(t, "dtr", cfg.PTT.Line)
	assert.Equal(t, 3, cfg.PTT.CM108Pin)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/log/rtty", cfg.Log.Dir)
	assert.Equal(t, ":9464", cfg.Metrics.Listen)
	assert.True(t, cfg.PTY.Enable)
	assert.Equal(t, "/tmp/rtty", cfg.PTY.Link)
}

func Test_LoadConfig_UnknownField(t *testing.T) {
	var _, err = LoadConfigFromReader(strings.NewReader("modem:\n  bawd: 50\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bawd")
}

func Test_LoadConfig_Invalid(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  string
	}{
		{"modem:\n  shift: 20\n", "invalid shift"},
		{"ptt:\n  method: smoke-signals\n", "ptt.method"},
		{"ptt:\n  method: serial\n", "ptt.device is required"},
		{"ptt:\n  method: cat\n", "ptt.device is required"},
		{"ptt:\n  method: cm108\n  cm108_gpio: 9\n", "1 thru 8"},
		{"log:\n  level: chatty\n", "log.level"},
		{"pty:\n  enable: true\n  link: \"\"\n", "pty.link"},
		{"audio:\n  frames_per_buffer: -1\n", "frames_per_buffer"},
	} {
		var _, err = LoadConfigFromReader(strings.NewReader(tc.input))
		require.Error(t, err, tc.input)
		assert.Contains(t, err.Error(), tc.want, tc.input)
	}
}

func Test_LoadConfig_File(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "rtty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("modem:\n  baud: 75\n"), 0o600))

	var cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 75.0, cfg.Modem.Baud)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}
