package logger

import (
	"bytes"
	"context"
	"io"
	"log"
	"log/slog"

	"github.com/hashicorp/go-hclog"
)

// HCLogAdapter implements hashicorp/go-hclog.Logger on top of the collectd
// handler, so libraries such as go-plugin log into collectd.
type HCLogAdapter struct {
	logger *slog.Logger
	name   string
	args   []any
	level  hclog.Level
}

// NewHCLogAdapter returns an hclog.Logger that prefixes messages with name.
func NewHCLogAdapter(name string) hclog.Logger {
	return &HCLogAdapter{
		logger: New(name),
		name:   name,
		level:  hclog.Debug,
	}
}

func (h *HCLogAdapter) slogLevel(level hclog.Level) (slog.Level, bool) {
	switch level {
	case hclog.Trace, hclog.Debug:
		return slog.LevelDebug, true
	case hclog.Info:
		return slog.LevelInfo, true
	case hclog.Warn:
		return slog.LevelWarn, true
	case hclog.Error:
		return slog.LevelError, true
	default:
		return 0, false
	}
}

func (h *HCLogAdapter) Log(level hclog.Level, msg string, args ...interface{}) {
	if level < h.level {
		return
	}
	l, ok := h.slogLevel(level)
	if !ok {
		return
	}
	all := append(append([]any{}, h.args...), args...)
	h.logger.Log(context.Background(), l, msg, all...)
}

func (h *HCLogAdapter) Trace(msg string, args ...interface{}) { h.Log(hclog.Trace, msg, args...) }
func (h *HCLogAdapter) Debug(msg string, args ...interface{}) { h.Log(hclog.Debug, msg, args...) }
func (h *HCLogAdapter) Info(msg string, args ...interface{})  { h.Log(hclog.Info, msg, args...) }
func (h *HCLogAdapter) Warn(msg string, args ...interface{})  { h.Log(hclog.Warn, msg, args...) }
func (h *HCLogAdapter) Error(msg string, args ...interface{}) { h.Log(hclog.Error, msg, args...) }

func (h *HCLogAdapter) IsTrace() bool { return h.level <= hclog.Trace }
func (h *HCLogAdapter) IsDebug() bool { return h.level <= hclog.Debug }
func (h *HCLogAdapter) IsInfo() bool  { return h.level <= hclog.Info }
func (h *HCLogAdapter) IsWarn() bool  { return h.level <= hclog.Warn }
func (h *HCLogAdapter) IsError() bool { return h.level <= hclog.Error }

func (h *HCLogAdapter) ImpliedArgs() []interface{} {
	return h.args
}

func (h *HCLogAdapter) With(args ...interface{}) hclog.Logger {
	c := *h
	c.args = append(append([]any{}, h.args...), args...)
	return &c
}

func (h *HCLogAdapter) Name() string {
	return h.name
}

// Named appends name to the logger's name, go-plugin uses this for the
// plugin's stderr stream.
func (h *HCLogAdapter) Named(name string) hclog.Logger {
	if h.name != "" {
		name = h.name + "." + name
	}
	return h.ResetNamed(name)
}

func (h *HCLogAdapter) ResetNamed(name string) hclog.Logger {
	c := *h
	c.name = name
	c.logger = New(name)
	return &c
}

func (h *HCLogAdapter) SetLevel(level hclog.Level) {
	h.level = level
}

func (h *HCLogAdapter) GetLevel() hclog.Level {
	return h.level
}

func (h *HCLogAdapter) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.New(h.StandardWriter(opts), "", 0)
}

func (h *HCLogAdapter) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	level := hclog.Info
	if opts != nil && opts.ForceLevel != hclog.NoLevel {
		level = opts.ForceLevel
	}
	return &lineWriter{h: h, level: level}
}

type lineWriter struct {
	h     *HCLogAdapter
	level hclog.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) > 0 {
			w.h.Log(w.level, string(line))
		}
	}
	return len(p), nil
}
