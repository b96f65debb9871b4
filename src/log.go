package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Save received text to a log file.
 *
 * Description: One CSV row per received line, for easy reading and
 *		later processing:
 *
 *			utime,isotime,text,framing_errors
 *
 *		Daily names are created in the given directory, from the
 *		current date, UTC.  A line ends at LF, or when the
 *		signal goes away.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

type RxLog struct {
	dir    string
	now    func() time.Time
	logger *log.Logger

	f        *os.File
	w        *csv.Writer
	openName string

	line       strings.Builder
	lineErrors int64 // Framing error total when the line started.
	started    bool
}

/*------------------------------------------------------------------
 *
 * Function:	NewRxLog
 *
 * Inputs:	dir	- Directory for the daily files.  Created if it
 *			  does not exist, but its parent must.
 *
 *------------------------------------------------------------------*/

func NewRxLog(dir string, logger *log.Logger) (*RxLog, error) {
	if logger == nil {
		logger = discardLogger()
	}

	var stat, statErr = os.Stat(dir)
	if statErr == nil {
		if !stat.IsDir() {
			return nil, fmt.Errorf("log file location %q is not a directory", dir)
		}
	} else {
		// We don't create multiple levels like "mkdir -p"
		if err := os.Mkdir(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log file location %q: %w", dir, err)
		}
		logger.Info("log file location has been created", "dir", dir)
	}

	return &RxLog{dir: dir, now: time.Now, logger: logger}, nil
}

// Text adds decoded characters.  framingErrors is the receiver's running
// total, used to count errors per line.
func (l *RxLog) Text(s string, framingErrors int64) error {
	for _, r := range s {
		if !l.started {
			l.started = true
			l.lineErrors = framingErrors
		}
		switch r {
		case '\n':
			if err := l.Flush(framingErrors); err != nil {
				return err
			}
		case '\r':
		default:
			l.line.WriteRune(r)
		}
	}
	return nil
}

// Flush writes any partial line.
func (l *RxLog) Flush(framingErrors int64) error {
	if !l.started {
		return nil
	}
	var text = l.line.String()
	var errs = framingErrors - l.lineErrors
	l.line.Reset()
	l.started = false

	if strings.TrimSpace(text) == "" {
		return nil
	}
	return l.write(text, errs)
}

func (l *RxLog) write(text string, framingErrors int64) error {
	var now = l.now().UTC()
	var fname = now.Format("2006-01-02.log")

	// Close current file if name has changed
	if l.f != nil && fname != l.openName {
		l.Close()
	}

	if l.f == nil {
		var full_path = filepath.Join(l.dir, fname)

		// Header only if this will be the first line.
		var _, statErr = os.Stat(full_path)
		var already_there = statErr == nil

		l.logger.Info("opening log file", "file", fname)
		var f, err = os.OpenFile(full_path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			return fmt.Errorf("can't open log file %q for write: %w", full_path, err)
		}
		l.f = f
		l.w = csv.NewWriter(f)
		l.openName = fname

		if !already_there {
			if err := l.w.Write([]string{"utime", "isotime", "text", "framing_errors"}); err != nil {
				return fmt.Errorf("log file %q header: %w", full_path, err)
			}
		}
	}

	var err = l.w.Write([]string{
		strconv.FormatInt(now.Unix(), 10),
		now.Format("2006-01-02T15:04:05Z"),
		text,
		strconv.FormatInt(framingErrors, 10),
	})
	if err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *RxLog) Close() error {
	if l.f == nil {
		return nil
	}
	var err = l.f.Close()
	l.f = nil
	l.w = nil
	l.openName = ""
	return err
}

/* end log.go */
