package rtty

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// NewLogger builds the logger shared by the library and the tools.  An
// empty level means info.
func NewLogger(w io.Writer, prefix string, level string) (*log.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	var lvl = log.InfoLevel
	if level != "" {
		var err error
		lvl, err = log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          prefix,
		Level:           lvl,
	}), nil
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
