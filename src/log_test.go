package rtty

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	var f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func Test_RxLog(t *testing.T) {
	var dir = filepath.Join(t.TempDir(), "logs")
	var l, err = NewRxLog(dir, nil)
	require.NoError(t, err)
	defer l.Close()

	var now = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	require.NoError(t, l.Text("CQ CQ DE N0CALL\r\nPSE", 2))
	require.NoError(t, l.Text(" K, WITH \"QUOTES\"", 5))
	require.NoError(t, l.Flush(5))

	// Blank lines are not logged.
	require.NoError(t, l.Text("\r\n  \r\n", 5))

	var rows = readCSV(t, filepath.Join(dir, "2026-10-14.log"))
	assert.Equal(t, [][]string{
		{"utime", "isotime", "text", "framing_errors"},
		{"1791979200", "2026-10-14T12:00:00Z", "CQ CQ DE N0CALL", "0"},
		{"1791979200", "2026-10-14T12:00:00Z", "PSE K, WITH \"QUOTES\"", "3"},
	}, rows)

	// A new day is a new file, with its own header.
	now = now.Add(24 * time.Hour)
	require.NoError(t, l.Text("NEXT DAY\n", 5))
	rows = readCSV(t, filepath.Join(dir, "2026-10-15.log"))
	assert.Len(t, rows, 2)
	assert.Equal(t, "NEXT DAY", rows[1][2])
}

// Reopening an existing file appends without another header.
func Test_RxLog_Append(t *testing.T) {
	var dir = t.TempDir()
	var now = time.Date(2026, 10, 14, 23, 59, 0, 0, time.UTC)

	for _, text := range []string{"FIRST\n", "SECOND\n"} {
		var l, err = NewRxLog(dir, nil)
		require.NoError(t, err)
		l.now = func() time.Time { return now }
		require.NoError(t, l.Text(text, 0))
		require.NoError(t, l.Close())
	}

	var rows = readCSV(t, filepath.Join(dir, "2026-10-14.log"))
	require.Len(t, rows, 3)
	assert.Equal(t, "FIRST", rows[1][2])
	assert.Equal(t, "SECOND", rows[2][2])
}

func Test_NewRxLog_NotDir(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	var _, err = NewRxLog(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")

	_, err = NewRxLog(filepath.Join(path, "a", "b"), nil)
	assert.Error(t, err)
}

// A file that can no longer be written to is reported, not ignored.
func Test_RxLog_WriteError(t *testing.T) {
	var l, err = NewRxLog(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, l.Text("OPEN\n", 0))

	require.NoError(t, l.f.Close())
	assert.Error(t, l.Text(strings.Repeat("RY", 4096)+"\n", 0))
}
