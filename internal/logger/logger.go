// Package logger is the harness's process logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"collectd.szuro.net/pkg/api"
	pkglogger "collectd.szuro.net/pkg/logger"
)

var (
	harnessLogger atomic.Pointer[HarnessLogger]
	level         slog.LevelVar
)

func init() {
	harnessLogger.Store(NewHarnessLogger(os.Stderr))
}

type HarnessLogger struct {
	slogger *slog.Logger
}

func NewHarnessLogger(w io.Writer) *HarnessLogger {
	return &HarnessLogger{
		slogger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &level})),
	}
}

func Default() *HarnessLogger {
	return harnessLogger.Load()
}

// SetOutput replaces the default logger with one writing to w.
func SetOutput(w io.Writer) {
	harnessLogger.Store(NewHarnessLogger(w))
}

func SetLogLevel(l slog.Level) {
	level.Set(l)
}

// Slog returns the underlying slog.Logger.
func (l *HarnessLogger) Slog() *slog.Logger {
	return l.slogger
}

// slog wrapper

func Debug(msg string, args ...any) {
	harnessLogger.Load().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	harnessLogger.Load().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	harnessLogger.Load().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	harnessLogger.Load().Error(msg, args...)
}

func (l *HarnessLogger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

func (l *HarnessLogger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

func (l *HarnessLogger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

func (l *HarnessLogger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// Plugin logs a line a plugin process sent to its host.
func Plugin(plugin string, l api.LogLevel, msg string) {
	harnessLogger.Load().slogger.Log(context.Background(), pkglogger.SlogLevel(l), msg, slog.String("plugin", plugin))
}

// Sink adapts the harness logger to the plugin logger's sink, so code of
// package pkg/logger running inside the harness logs here.
func Sink() pkglogger.Sink {
	return func(l api.LogLevel, msg string) {
		harnessLogger.Load().slogger.Log(context.Background(), pkglogger.SlogLevel(l), msg)
	}
}
