package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetInterval(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Duration
		expected time.Duration
	}{
		{"Zero", 0, DEFAULT_INTERVAL},
		{"Negative", -time.Second, DEFAULT_INTERVAL},
		{"Non-Zero", time.Minute, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := HarnessConf{Interval: tt.input}
			config.setInterval()
			if config.Interval != tt.expected {
				t.Errorf("setInterval() with Interval=%s = %s; want %s", tt.input, config.Interval, tt.expected)
			}
		})
	}
}

func TestSetPort(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"Zero Port", 0, DEFAULT_PORT},
		{"Non-Zero Port", 8080, 8080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := HarnessConf{Http: HTTPConf{ListenPort: tt.input}}
			config.setPort()
			if config.Http.ListenPort != tt.expected {
				t.Errorf("setPort() with ListenPort=%d = %d; want %d", tt.input, config.Http.ListenPort, tt.expected)
			}
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"FNORD", slog.LevelInfo},
	}

	for _, tt := range tests {
		config := HarnessConf{LogLevel: tt.input}
		config.setLogLevel()
		require.Equal(t, tt.expected, config.GetLogLevel(), tt.input)
	}
}

func TestSetOfflineBuffers(t *testing.T) {
	tests := []struct {
		name     string
		sinks    []SinkConf
		expected []time.Duration
	}{
		{
			name:     "All positive values",
			sinks:    []SinkConf{{OfflineBufferTime: time.Hour}, {OfflineBufferTime: time.Minute}},
			expected: []time.Duration{time.Hour, time.Minute},
		},
		{
			name:     "Mixed values",
			sinks:    []SinkConf{{OfflineBufferTime: -time.Hour}, {OfflineBufferTime: 0}, {OfflineBufferTime: time.Second}},
			expected: []time.Duration{0, 0, time.Second},
		},
		{
			name:     "Empty sinks",
			sinks:    []SinkConf{},
			expected: []time.Duration{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := &HarnessConf{Sinks: tt.sinks}
			conf.setOfflineBuffers()
			for i, s := range conf.Sinks {
				require.Equal(t, tt.expected[i], s.OfflineBufferTime)
			}
		})
	}
}

const sample = `
collectd_config: /tmp/collectd.conf
hostname: test.example
interval: 5s
log_level: DEBUG
plugins:
  - name: uptime
    path: /usr/lib/collectd-go/uptime
sinks:
  - name: stdout
    type: print
  - name: remote
    type: remote_write
    connection: http://localhost:9090/api/v1/write
    offline_buffer_time: 2h
    filter:
      rejected: ["plugin:cpu"]
    options:
      timeout: 5s
filter:
  accepted: ["host:test.*"]
http:
  listen_port: 9200
`

func TestParse(t *testing.T) {
	conf, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.Equal(t, "/tmp/collectd.conf", conf.CollectdConfig)
	require.Equal(t, "test.example", conf.Hostname)
	require.Equal(t, 5*time.Second, conf.Interval)
	require.Equal(t, slog.LevelDebug, conf.GetLogLevel())
	require.Equal(t, []PluginConf{{Name: "uptime", Path: "/usr/lib/collectd-go/uptime"}}, conf.Plugins)
	require.Len(t, conf.Sinks, 2)
	require.Equal(t, 2*time.Hour, conf.Sinks[1].OfflineBufferTime)
	require.Equal(t, []string{"plugin:cpu"}, conf.Sinks[1].Filter.Rejected)
	require.Equal(t, "5s", conf.Sinks[1].Options["timeout"])
	require.Equal(t, []string{"host:test.*"}, conf.Filter.Accepted)
	require.Equal(t, 9200, conf.Http.ListenPort)
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval string
		want     time.Duration
	}{
		{"Seconds", "10", 10 * time.Second},
		{"Fraction", "1.5", 1500 * time.Millisecond},
		{"Duration", "30s", 30 * time.Second},
		{"Quoted", "\"2m\"", 2 * time.Minute},
		{"Zero", "0", DEFAULT_INTERVAL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, err := Parse([]byte("interval: " + tt.interval + "\nplugins: [{name: a, path: /a}]"))
			require.NoError(t, err)
			require.Equal(t, tt.want, conf.Interval)
		})
	}

	_, err := Parse([]byte("interval: often\nplugins: [{name: a, path: /a}]"))
	require.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"No plugins", "sinks: []"},
		{"Plugin without path", "plugins: [{name: a}]"},
		{"Duplicate plugin", "plugins: [{name: a, path: /a}, {name: a, path: /b}]"},
		{"Sink without type", "plugins: [{name: a, path: /a}]\nsinks: [{name: s}]"},
		{"Bad filter", "plugins: [{name: a, path: /a}]\nfilter: {accepted: [\"colour:red\"]}"},
		{"Not YAML", "plugins: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestToSink(t *testing.T) {
	conf := HarnessConf{WorkingDir: t.TempDir()}
	s := SinkConf{Name: "spool", Type: "print", OfflineBufferTime: time.Hour}

	out, err := s.ToSink(conf)
	require.NoError(t, err)
	defer out.Close()
	require.Equal(t, "spool", out.Name())
	_, err = os.Stat(filepath.Join(conf.WorkingDir, "buffer", "spool"))
	require.NoError(t, err)

	_, err = (&SinkConf{Name: "x", Type: "carrier-pigeon"}).ToSink(conf)
	require.Error(t, err)
}

func TestDiscoverPlugins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uptime"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cpu.bin"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("docs"), 0o644))

	conf, err := Parse([]byte("plugins_dir: " + dir + "\nplugins: [{name: uptime, path: /opt/uptime}]"))
	require.NoError(t, err)
	require.Equal(t, []PluginConf{
		{Name: "uptime", Path: "/opt/uptime"},
		{Name: "cpu", Path: filepath.Join(dir, "cpu.bin")},
	}, conf.Plugins)
}
