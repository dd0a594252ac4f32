package buffer

import (
	"testing"
	"time"

	"collectd.szuro.net/pkg/api"
	"github.com/stretchr/testify/require"
)

func valueList(instance string, sec int64) api.ValueList {
	return api.ValueList{
		Identifier: api.Identifier{Host: "h", Plugin: "cpu", PluginInstance: instance, Type: "percent", TypeInstance: "idle"},
		Time:       time.Unix(sec, 0),
		Interval:   10 * time.Second,
		Values:     []api.Value{api.Gauge(97.5)},
		Meta:       api.Meta{"source": "test"},
	}
}

func TestBufferFetchDelete(t *testing.T) {
	b, err := Open(t.TempDir(), time.Hour)
	require.NoError(t, err)
	defer b.Close()
	require.True(t, b.Enabled())

	vls := []api.ValueList{valueList("0", 100), valueList("1", 100), valueList("0", 110)}
	require.NoError(t, b.Buffer(vls))

	n, err := b.Len()
	require.NoError(t, err)
	require.Equal(t, 3, n)

	fetched, err := b.Fetch(2)
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	require.Equal(t, vls[0], fetched[0])

	require.NoError(t, b.Delete(fetched))
	rest, err := b.Fetch(10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
}

func TestBufferReplacesSameKey(t *testing.T) {
	b, err := Open(t.TempDir(), time.Hour)
	require.NoError(t, err)
	defer b.Close()

	first := valueList("0", 100)
	second := valueList("0", 100)
	second.Values = []api.Value{api.Gauge(1)}
	require.NoError(t, b.Buffer([]api.ValueList{first}))
	require.NoError(t, b.Buffer([]api.ValueList{second}))

	fetched, err := b.Fetch(10)
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	require.Equal(t, []api.Value{api.Gauge(1)}, fetched[0].Values)
}

func TestBufferDisabled(t *testing.T) {
	b, err := Open(t.TempDir(), 0)
	require.NoError(t, err)
	require.False(t, b.Enabled())

	require.ErrorIs(t, b.Buffer([]api.ValueList{valueList("0", 1)}), ErrDisabled)
	_, err = b.Fetch(1)
	require.ErrorIs(t, err, ErrDisabled)
	require.ErrorIs(t, b.Delete(nil), ErrDisabled)
	require.NoError(t, b.Close())
}

func TestBufferPersists(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(dir, time.Hour)
	require.NoError(t, err)
	require.NoError(t, b.Buffer([]api.ValueList{valueList("0", 100)}))
	require.NoError(t, b.Close())

	b, err = Open(dir, time.Hour)
	require.NoError(t, err)
	defer b.Close()
	fetched, err := b.Fetch(10)
	require.NoError(t, err)
	require.Len(t, fetched, 1)
}
