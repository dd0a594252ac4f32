package oconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"collectd.szuro.net/pkg/api"
	"github.com/stretchr/testify/require"
)

const sample = `# collectd.conf
Hostname "box"
Interval 10
LoadPlugin myplugin

<Plugin "myplugin">
    Host "local \"host\""   # trailing comment
    Ports 2003 0x10 -1.5e2
    Verbose yes
    Quiet Off
    Mode fast
    Long "a" \
         "b"
    <Address primary>
        Weight .5
    </Address>
    <Empty>
    </Empty>
</Plugin>
`

func TestParse(t *testing.T) {
	items, err := ParseString(sample)
	require.NoError(t, err)
	require.Len(t, items, 4)

	require.Equal(t, api.ConfigItem{Key: "Hostname", Values: []api.ConfigValue{api.StringValue("box")}}, items[0])
	require.Equal(t, api.ConfigItem{Key: "Interval", Values: []api.ConfigValue{api.NumberValue(10)}}, items[1])
	require.Equal(t, []string{"myplugin"}, LoadedPlugins(items))

	plugin, ok := FindPlugin(items, "MyPlugin")
	require.True(t, ok)
	require.Equal(t, api.ConfigItem{
		Key:    "Plugin",
		Values: []api.ConfigValue{api.StringValue("myplugin")},
		Children: []api.ConfigItem{
			{Key: "Host", Values: []api.ConfigValue{api.StringValue(`local "host"`)}},
			{Key: "Ports", Values: []api.ConfigValue{api.NumberValue(2003), api.NumberValue(16), api.NumberValue(-150)}},
			{Key: "Verbose", Values: []api.ConfigValue{api.BooleanValue(true)}},
			{Key: "Quiet", Values: []api.ConfigValue{api.BooleanValue(false)}},
			{Key: "Mode", Values: []api.ConfigValue{api.StringValue("fast")}},
			{Key: "Long", Values: []api.ConfigValue{api.StringValue("a"), api.StringValue("b")}},
			{
				Key:      "Address",
				Values:   []api.ConfigValue{api.StringValue("primary")},
				Children: []api.ConfigItem{{Key: "Weight", Values: []api.ConfigValue{api.NumberValue(0.5)}}},
			},
			{Key: "Empty"},
		},
	}, plugin)

	_, ok = FindPlugin(items, "other")
	require.False(t, ok)
}

func TestParseQuotedNumberStaysString(t *testing.T) {
	items, err := ParseString(`Port "2003"`)
	require.NoError(t, err)
	require.Equal(t, []api.ConfigValue{api.StringValue("2003")}, items[0].Values)
}

func TestParseRoundTrip(t *testing.T) {
	items, err := ParseString(sample)
	require.NoError(t, err)
	plugin, _ := FindPlugin(items, "myplugin")

	again, err := ParseString(plugin.String())
	require.NoError(t, err)
	require.Len(t, again, 1)
	// An empty block renders as a bare key; everything else survives.
	require.Equal(t, plugin.Children[:7], again[0].Children[:7])
}

func TestParseCloseTagWithSpace(t *testing.T) {
	items, err := ParseString("<Plugin x>\n  <Node \"a\" >\n    Port 1\n  </Node >\n</Plugin\t>\n")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Node", items[0].Children[0].Key)
	require.Equal(t, []api.ConfigValue{api.NumberValue(1)}, items[0].Children[0].Children[0].Values)

	_, err = ParseString("<Plugin x>\n</Other >")
	require.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"Unterminated string", "Host \"abc", 1},
		{"Unclosed block", "\n<Plugin x>\n  Key 1\n", 2},
		{"Mismatched block", "<Plugin x>\n</Other>", 2},
		{"Unexpected close", "Key 1\n</Plugin>", 2},
		{"Missing bracket", "<Plugin x", 1},
		{"Quoted key", `"Key" 1`, 1},
		{"Stray bracket", "Key <x", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			require.Error(t, err)
			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			require.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collectd.conf")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	items, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, items, 4)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.conf"))
	require.Error(t, err)
}
