package api

import (
	"fmt"
	"strings"
)

// LogLevel is a syslog style severity. Values match collectd's LOG_* constants.
type LogLevel int

const (
	LogError   LogLevel = 3
	LogWarning LogLevel = 4
	LogNotice  LogLevel = 5
	LogInfo    LogLevel = 6
	LogDebug   LogLevel = 7
)

func (l LogLevel) String() string {
	switch l {
	case LogError:
		return "error"
	case LogWarning:
		return "warning"
	case LogNotice:
		return "notice"
	case LogInfo:
		return "info"
	case LogDebug:
		return "debug"
	default:
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
}

// ParseLogLevel parses a level name, ignoring case. Both the short and the
// long spelling of error and warning are accepted.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "err", "error":
		return LogError, nil
	case "warn", "warning":
		return LogWarning, nil
	case "notice":
		return LogNotice, nil
	case "info":
		return LogInfo, nil
	case "debug":
		return LogDebug, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *LogLevel) UnmarshalText(text []byte) error {
	v, err := ParseLogLevel(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
