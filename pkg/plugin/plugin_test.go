package plugin

import (
	"context"
	"strings"
	"testing"
	"time"

	"collectd.szuro.net/pkg/api"
	"collectd.szuro.net/pkg/config"
	"github.com/stretchr/testify/require"
)

type reader struct{}

func (reader) Read(ctx context.Context) error { return nil }

type everything struct{ reader }

func (everything) Write(ctx context.Context, vl api.ValueList) error           { return nil }
func (everything) Log(level api.LogLevel, msg string) error                    { return nil }
func (everything) Flush(ctx context.Context, d time.Duration, id string) error { return nil }
func (everything) Notify(ctx context.Context, n api.Notification) error        { return nil }
func (everything) Shutdown(ctx context.Context) error                          { return nil }

type narrowed struct{ everything }

func (narrowed) Capabilities() Capabilities { return CapWrite | CapShutdown }

func TestCapabilitiesOf(t *testing.T) {
	tests := []struct {
		name     string
		plugin   any
		expected Capabilities
		str      string
	}{
		{"Reader only", reader{}, CapRead, "read"},
		{"Everything", everything{}, CapRead | CapWrite | CapLog | CapFlush | CapNotification | CapShutdown,
			"read|write|log|flush|notification|shutdown"},
		{"Narrowed", narrowed{}, CapWrite | CapShutdown, "write|shutdown"},
		{"Nothing", struct{}{}, 0, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CapabilitiesOf(tt.plugin)
			require.Equal(t, tt.expected, c)
			require.Equal(t, tt.str, c.String())
		})
	}
}

func TestRegistrationEntries(t *testing.T) {
	entries, err := Single(reader{}).Entries("myplugin")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "myplugin", entries[0].Name)
	require.Equal(t, CapRead, entries[0].Caps)

	entries, err = Multiple(map[string]any{"b": reader{}, "a": everything{}}).Entries("myplugin")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "myplugin/a", entries[0].Name)
	require.Equal(t, "a", entries[0].Instance)
	require.Equal(t, "myplugin/b", entries[1].Name)
}

func TestRegistrationErrors(t *testing.T) {
	tests := []struct {
		name string
		reg  Registration
	}{
		{"Empty", Registration{}},
		{"Empty map", Multiple(map[string]any{})},
		{"No capabilities", Single(struct{}{})},
		{"Empty instance", Multiple(map[string]any{"": reader{}})},
		{"Name too long", Multiple(map[string]any{strings.Repeat("x", 130): reader{}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.reg.Entries("myplugin")
			require.Error(t, err)
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	m := NewManager("MyPlugin", func(config []api.ConfigItem) (Registration, error) {
		return Single(reader{}), nil
	})

	require.NoError(t, r.Register(m))
	require.Error(t, r.Register(NewManager("myplugin", nil)))
	require.Error(t, r.Register(NewManager("bad/name", nil)))
	require.Error(t, r.Register(NewManager("", nil)))
	require.NoError(t, r.Register(NewManager("other", nil)))

	found, ok := r.Lookup("MYPLUGIN")
	require.True(t, ok)
	require.Equal(t, "MyPlugin", found.Name())

	_, ok = r.Lookup("missing")
	require.False(t, ok)

	managers := r.Managers()
	require.Len(t, managers, 2)
	require.Equal(t, "MyPlugin", managers[0].Name())
	require.Equal(t, "other", managers[1].Name())
}

func TestBasePluginConfigure(t *testing.T) {
	type conf struct {
		BaseConfig `collectd:",squash"`
		URL        string
	}

	items := []api.ConfigItem{
		{Key: "URL", Values: []api.ConfigValue{api.StringValue("http://localhost")}},
		{Key: "BufferPath", Values: []api.ConfigValue{api.StringValue(t.TempDir())}},
		{Key: "BufferTTL", Values: []api.ConfigValue{api.NumberValue(3600)}},
		{Key: "Filter", Children: []api.ConfigItem{
			{Key: "Reject", Values: []api.ConfigValue{api.StringValue("plugin:interface")}},
		}},
	}

	var c conf
	require.NoError(t, config.Decode(items, &c))
	require.Equal(t, "http://localhost", c.URL)
	require.Equal(t, time.Hour, c.BufferTTL)
	require.Equal(t, []string{"plugin:interface"}, c.Filter.Rejected)

	b := NewBasePlugin("myplugin")
	require.NoError(t, b.Configure(c.BaseConfig))
	defer b.Cleanup()

	require.NotNil(t, b.Buffer)
	require.True(t, b.Buffer.Enabled())
	require.False(t, b.Accept(api.Identifier{Plugin: "interface", Type: "if_octets"}))
	require.True(t, b.Accept(api.Identifier{Plugin: "cpu", Type: "percent"}))
	require.Equal(t, "myplugin", b.GetName())
}
