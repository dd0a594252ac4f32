package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// FormatLogger exposes printf-style methods on top of a slog.Logger. It
// satisfies badger.Logger.
type FormatLogger struct {
	*slog.Logger
}

func (l FormatLogger) Errorf(format string, args ...interface{}) {
	l.Logger.Error(trim(format, args))
}

func (l FormatLogger) Warningf(format string, args ...interface{}) {
	l.Logger.Warn(trim(format, args))
}

func (l FormatLogger) Infof(format string, args ...interface{}) {
	l.Logger.Info(trim(format, args))
}

func (l FormatLogger) Debugf(format string, args ...interface{}) {
	l.Logger.Debug(trim(format, args))
}

// badger terminates its messages with a newline
func trim(format string, args []interface{}) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
