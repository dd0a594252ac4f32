package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"collectd.szuro.net/pkg/api"
	"github.com/stretchr/testify/require"
)

func TestPluginLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLogLevel(slog.LevelInfo)
	t.Cleanup(func() { SetLogLevel(slog.LevelInfo) })

	Plugin("cpu", api.LogWarning, "counter wrapped")
	Plugin("cpu", api.LogDebug, "hidden")
	Sink()(api.LogError, "from sink")

	out := buf.String()
	require.Contains(t, out, `level=WARN msg="counter wrapped" plugin=cpu`)
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `level=ERROR msg="from sink"`)
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLogLevel(slog.LevelDebug)
	t.Cleanup(func() { SetLogLevel(slog.LevelInfo) })

	Debug("visible", "n", 1)
	require.Contains(t, buf.String(), "msg=visible n=1")
}
