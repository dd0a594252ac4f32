package config

import (
	"testing"
	"time"

	"collectd.szuro.net/pkg/api"
	"github.com/stretchr/testify/require"
)

func item(key string, values ...api.ConfigValue) api.ConfigItem {
	return api.ConfigItem{Key: key, Values: values}
}

func block(key string, children ...api.ConfigItem) api.ConfigItem {
	return api.ConfigItem{Key: key, Children: children}
}

func TestDecodeScalars(t *testing.T) {
	type conf struct {
		MyBool   bool   `collectd:"my_bool"`
		MyInt    int8   `collectd:"my_int"`
		MyString string `collectd:"my_string"`
	}

	items := []api.ConfigItem{
		item("my_bool", api.BooleanValue(true)),
		item("my_int", api.NumberValue(1)),
		item("my_string", api.StringValue("HEY")),
	}

	var actual conf
	require.NoError(t, Decode(items, &actual))
	require.Equal(t, conf{MyBool: true, MyInt: 1, MyString: "HEY"}, actual)
}

func TestDecodeEmpty(t *testing.T) {
	type conf struct {
		MyBool *bool `collectd:"my_bool"`
	}

	var actual conf
	require.NoError(t, Decode(nil, &actual))
	require.Nil(t, actual.MyBool)
}

func TestDecodeSequences(t *testing.T) {
	type conf struct {
		MyBool []bool    `collectd:"my_bool"`
		MyNum  []float64 `collectd:"my_num"`
		Single []string  `collectd:"single"`
	}

	tests := []struct {
		name     string
		items    []api.ConfigItem
		expected conf
	}{
		{
			name:     "Several values on one line",
			items:    []api.ConfigItem{item("my_bool", api.BooleanValue(true), api.BooleanValue(false))},
			expected: conf{MyBool: []bool{true, false}},
		},
		{
			name: "Repeated keys",
			items: []api.ConfigItem{
				item("my_bool", api.BooleanValue(true)),
				item("my_bool", api.BooleanValue(false)),
				item("my_num", api.NumberValue(10), api.NumberValue(12)),
			},
			expected: conf{MyBool: []bool{true, false}, MyNum: []float64{10, 12}},
		},
		{
			name:     "Single value into slice",
			items:    []api.ConfigItem{item("single", api.StringValue("/"))},
			expected: conf{Single: []string{"/"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var actual conf
			require.NoError(t, Decode(tt.items, &actual))
			require.Equal(t, tt.expected, actual)
		})
	}
}

func TestDecodeOptions(t *testing.T) {
	type conf struct {
		MyBool   *bool   `collectd:"my_bool"`
		MyString *string `collectd:"my_string"`
	}

	var actual conf
	require.NoError(t, Decode([]api.ConfigItem{item("my_bool", api.BooleanValue(true))}, &actual))
	require.NotNil(t, actual.MyBool)
	require.True(t, *actual.MyBool)
	require.Nil(t, actual.MyString)
}

func TestDecodeLogLevel(t *testing.T) {
	type conf struct {
		Warn    api.LogLevel
		Warning api.LogLevel
		Err     api.LogLevel
		Error   api.LogLevel
		Debug   api.LogLevel
		Info    api.LogLevel
		Notice  api.LogLevel
	}

	items := []api.ConfigItem{
		item("warn", api.StringValue("warn")),
		item("warning", api.StringValue("Warning")),
		item("err", api.StringValue("ErR")),
		item("error", api.StringValue("Error")),
		item("debug", api.StringValue("debug")),
		item("info", api.StringValue("INFO")),
		item("notice", api.StringValue("notice")),
	}

	var actual conf
	require.NoError(t, Decode(items, &actual))
	require.Equal(t, conf{
		Warn:    api.LogWarning,
		Warning: api.LogWarning,
		Err:     api.LogError,
		Error:   api.LogError,
		Debug:   api.LogDebug,
		Info:    api.LogInfo,
		Notice:  api.LogNotice,
	}, actual)
}

func TestDecodeIgnoresUnknownKeys(t *testing.T) {
	type conf struct {
		MyChar string `collectd:"my_char"`
	}

	items := []api.ConfigItem{
		item("my_char", api.StringValue("/")),
		item("my_boat", api.StringValue("/")),
	}

	var actual conf
	unused, err := DecodeUnused(items, &actual)
	require.NoError(t, err)
	require.Equal(t, conf{MyChar: "/"}, actual)
	require.Equal(t, []string{"my_boat"}, unused)
}

func TestDecodeNested(t *testing.T) {
	type address struct {
		Port int
		Host string
	}
	type conf struct {
		Address []address
	}

	items := []api.ConfigItem{
		block("Address",
			item("Port", api.NumberValue(2003)),
			item("Host", api.StringValue("localhost")),
		),
		block("Address",
			item("Host", api.StringValue("127.0.0.1")),
			item("Port", api.NumberValue(2004)),
		),
	}

	var actual conf
	require.NoError(t, Decode(items, &actual))
	require.Equal(t, conf{Address: []address{
		{Host: "localhost", Port: 2003},
		{Host: "127.0.0.1", Port: 2004},
	}}, actual)
}

func TestDecodeSingleNestedBlockIntoSlice(t *testing.T) {
	type port struct {
		Port int32
	}
	type conf struct {
		Ports []port
	}

	items := []api.ConfigItem{block("ports", item("port", api.NumberValue(2003)))}

	var actual conf
	require.NoError(t, Decode(items, &actual))
	require.Equal(t, conf{Ports: []port{{Port: 2003}}}, actual)
}

func TestDecodeDurations(t *testing.T) {
	type conf struct {
		Timeout  time.Duration
		Interval time.Duration
	}

	items := []api.ConfigItem{
		item("Timeout", api.StringValue("1m30s")),
		item("Interval", api.NumberValue(2.5)),
	}

	var actual conf
	require.NoError(t, Decode(items, &actual))
	require.Equal(t, 90*time.Second, actual.Timeout)
	require.Equal(t, 2500*time.Millisecond, actual.Interval)
}

func TestDecodeTypeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		items []api.ConfigItem
		out   any
	}{
		{"String into bool", []api.ConfigItem{item("v", api.StringValue("yes"))}, &struct{ V bool }{}},
		{"Bool into number", []api.ConfigItem{item("v", api.BooleanValue(true))}, &struct{ V int }{}},
		{"Number into string", []api.ConfigItem{item("v", api.NumberValue(1))}, &struct{ V string }{}},
		{"Unknown log level", []api.ConfigItem{item("v", api.StringValue("loud"))}, &struct{ V api.LogLevel }{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, Decode(tt.items, tt.out))
		})
	}
}

func TestDecodeBareKeyIsFlag(t *testing.T) {
	type conf struct {
		Verbose bool
	}

	var actual conf
	require.NoError(t, Decode([]api.ConfigItem{item("Verbose")}, &actual))
	require.True(t, actual.Verbose)
}

func TestToMap(t *testing.T) {
	m := ToMap([]api.ConfigItem{
		item("Host", api.StringValue("a")),
		item("host", api.StringValue("b")),
		block("Sub", item("Key", api.NumberValue(1))),
	})
	require.Equal(t, map[string]any{
		"host": []any{"a", "b"},
		"sub":  map[string]any{"key": 1.0},
	}, m)
}
