package logger

import (
	"context"
	"log/slog"
	"testing"

	"collectd.szuro.net/pkg/api"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

type line struct {
	level api.LogLevel
	msg   string
}

func capture(t *testing.T) *[]line {
	t.Helper()
	var lines []line
	SetSink(func(level api.LogLevel, msg string) {
		lines = append(lines, line{level, msg})
	})
	t.Cleanup(func() { SetSink(nil) })
	return &lines
}

func TestLevels(t *testing.T) {
	lines := capture(t)
	log := New("myplugin")

	log.Debug("d")
	log.Info("i")
	log.Log(context.Background(), LevelNotice, "n")
	log.Warn("w")
	log.Error("e")

	require.Equal(t, []line{
		{api.LogDebug, "myplugin: d"},
		{api.LogInfo, "myplugin: i"},
		{api.LogNotice, "myplugin: n"},
		{api.LogWarning, "myplugin: w"},
		{api.LogError, "myplugin: e"},
	}, *lines)
}

func TestSlogLevelRoundTrip(t *testing.T) {
	for _, l := range []api.LogLevel{api.LogError, api.LogWarning, api.LogNotice, api.LogInfo, api.LogDebug} {
		require.Equal(t, l, CollectdLevel(SlogLevel(l)))
	}
}

func TestAttrs(t *testing.T) {
	lines := capture(t)
	log := New("p").With("target", "db 1").WithGroup("req")

	log.Info("done", "n", 3, slog.Group("t", "ms", 12))

	require.Equal(t, []line{{api.LogInfo, `p: done target="db 1" req.n=3 req.t.ms=12`}}, *lines)
}

func TestMinimumLevel(t *testing.T) {
	lines := capture(t)
	SetLevel(slog.LevelInfo)
	defer SetLevel(slog.LevelDebug)

	Default().Debug("hidden")
	Default().Info("shown")

	require.Equal(t, []line{{api.LogInfo, "shown"}}, *lines)
}

func TestHCLogAdapter(t *testing.T) {
	lines := capture(t)
	h := NewHCLogAdapter("rpc").Named("child").With("pid", 42)

	h.Trace("trace")
	h.Warn("careful", "attempt", 2)
	h.SetLevel(hclog.Warn)
	h.Info("dropped")
	require.False(t, h.IsInfo())
	require.True(t, h.IsError())

	h.StandardLogger(&hclog.StandardLoggerOptions{ForceLevel: hclog.Error}).Print("from std")

	require.Equal(t, "rpc.child", h.Name())
	require.Equal(t, []line{
		{api.LogDebug, "rpc.child: trace pid=42"},
		{api.LogWarning, "rpc.child: careful pid=42 attempt=2"},
		{api.LogError, "rpc.child: from std pid=42"},
	}, *lines)
}

func TestFormatLogger(t *testing.T) {
	lines := capture(t)
	l := FormatLogger{New("buffer")}

	l.Warningf("value log %d\n", 3)

	require.Equal(t, []line{{api.LogWarning, "buffer: value log 3"}}, *lines)
}
