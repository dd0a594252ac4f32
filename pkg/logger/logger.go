// Package logger routes log/slog records into collectd's logging pipeline.
//
// Plugins log through an ordinary *slog.Logger. Records are rendered as
// "name: message key=value ..." and handed to a Sink, which the collectd
// runtime points at plugin_log. Until a sink is installed, for instance in
// unit tests, lines go to stderr.
//
//	var log = logger.New("myplugin")
//
//	func (p *MyPlugin) Read(ctx context.Context) error {
//	    log.Info("collecting", "targets", len(p.targets))
//	    ...
//	}
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"collectd.szuro.net/pkg/api"
)

// LevelNotice sits between slog.LevelInfo and slog.LevelWarn and maps to
// collectd's LOG_NOTICE.
const LevelNotice = slog.Level(2)

// Sink receives fully rendered log lines.
type Sink func(level api.LogLevel, msg string)

var (
	sink  atomic.Pointer[Sink]
	level slog.LevelVar
)

func init() {
	level.Set(slog.LevelDebug)
}

// SetSink replaces the destination of every logger in the process. A nil sink
// restores the stderr default.
func SetSink(s Sink) {
	if s == nil {
		sink.Store(nil)
		return
	}
	sink.Store(&s)
}

// SetLevel sets the minimum level passed on to the sink. collectd applies its
// own LogLevel on top of this.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Log sends msg to the sink unchanged.
func Log(l api.LogLevel, msg string) {
	if s := sink.Load(); s != nil {
		(*s)(l, msg)
		return
	}
	fmt.Fprintf(os.Stderr, "[%s] %s\n", l, msg)
}

// New returns a logger whose messages are prefixed with "name: ", the
// convention native collectd plugins follow.
func New(name string) *slog.Logger {
	prefix := ""
	if name != "" {
		prefix = name + ": "
	}
	return slog.New(&Handler{prefix: prefix})
}

// Default returns a logger without prefix.
func Default() *slog.Logger {
	return slog.New(&Handler{})
}

// CollectdLevel maps an slog level to the collectd severity it is logged at.
func CollectdLevel(l slog.Level) api.LogLevel {
	switch {
	case l >= slog.LevelError:
		return api.LogError
	case l >= slog.LevelWarn:
		return api.LogWarning
	case l >= LevelNotice:
		return api.LogNotice
	case l >= slog.LevelInfo:
		return api.LogInfo
	default:
		return api.LogDebug
	}
}

// SlogLevel is the inverse of CollectdLevel.
func SlogLevel(l api.LogLevel) slog.Level {
	switch l {
	case api.LogError:
		return slog.LevelError
	case api.LogWarning:
		return slog.LevelWarn
	case api.LogNotice:
		return LevelNotice
	case api.LogInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// Handler is a slog.Handler that writes to the installed Sink.
type Handler struct {
	prefix string
	attrs  string
	group  string
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(h.prefix)
	b.WriteString(r.Message)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.group, a)
		return true
	})
	Log(CollectdLevel(r.Level), b.String())
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.group, a)
	}
	return &Handler{prefix: h.prefix, attrs: b.String(), group: h.group}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{prefix: h.prefix, attrs: h.attrs, group: h.group + name + "."}
}

func appendAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := group
		if a.Key != "" {
			sub += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, sub, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(group)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(quoteIfNeeded(a.Value.String()))
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
