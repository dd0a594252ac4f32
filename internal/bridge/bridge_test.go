package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"collectd.szuro.net/pkg/api"
	"collectd.szuro.net/pkg/logger"
	"collectd.szuro.net/pkg/plugin"
	"github.com/stretchr/testify/require"
)

type registration struct {
	kind     string
	name     string
	id       uint64
	interval time.Duration
}

type fakeHost struct {
	registrations []registration
	values        []api.ValueList
	notifications []api.Notification
	logs          []string
}

func (h *fakeHost) add(kind, name string, id uint64) error {
	h.registrations = append(h.registrations, registration{kind: kind, name: name, id: id})
	return nil
}

func (h *fakeHost) RegisterConfig(name string) error           { return h.add("config", name, 0) }
func (h *fakeHost) RegisterInit(name string) error             { return h.add("init", name, 0) }
func (h *fakeHost) RegisterWrite(name string, id uint64) error { return h.add("write", name, id) }
func (h *fakeHost) RegisterLog(name string, id uint64) error   { return h.add("log", name, id) }
func (h *fakeHost) RegisterFlush(name string, id uint64) error { return h.add("flush", name, id) }
func (h *fakeHost) RegisterShutdown(name string) error         { return h.add("shutdown", name, 0) }

func (h *fakeHost) RegisterNotification(name string, id uint64) error {
	return h.add("notification", name, id)
}

func (h *fakeHost) RegisterRead(name string, id uint64, interval time.Duration) error {
	h.registrations = append(h.registrations, registration{kind: "read", name: name, id: id, interval: interval})
	return nil
}

func (h *fakeHost) DispatchValues(vl api.ValueList) error {
	h.values = append(h.values, vl)
	return nil
}

func (h *fakeHost) DispatchNotification(n api.Notification) error {
	h.notifications = append(h.notifications, n)
	return nil
}

func (h *fakeHost) Log(level api.LogLevel, msg string) { h.logs = append(h.logs, msg) }
func (h *fakeHost) Interval() time.Duration            { return 10 * time.Second }
func (h *fakeHost) Hostname() string                   { return "localhost" }

func (h *fakeHost) find(kind, name string) (registration, bool) {
	for _, r := range h.registrations {
		if r.kind == kind && r.name == name {
			return r, true
		}
	}
	return registration{}, false
}

type loadPlugin struct {
	reads    int
	written  []api.ValueList
	shutdown bool
	fail     error
}

func (p *loadPlugin) Read(ctx context.Context) error {
	p.reads++
	if p.fail != nil {
		return p.fail
	}
	return api.NewValueListBuilder("load", "load").Values(api.Gauge(1), api.Gauge(2), api.Gauge(3)).Submit()
}

func (p *loadPlugin) Write(ctx context.Context, vl api.ValueList) error {
	p.written = append(p.written, vl)
	return nil
}

func (p *loadPlugin) Shutdown(ctx context.Context) error {
	p.shutdown = true
	return nil
}

func (p *loadPlugin) ReadInterval() time.Duration { return 5 * time.Second }

type panicky struct{}

func (panicky) Read(ctx context.Context) error                       { panic("boom") }
func (panicky) Log(level api.LogLevel, msg string) error             { return errors.New("disk full") }
func (panicky) Notify(ctx context.Context, n api.Notification) error { return nil }

func (panicky) Flush(ctx context.Context, timeout time.Duration, identifier string) error {
	return nil
}

type manager struct {
	*plugin.ManagerFunc
	initialized bool
	stopped     bool
}

func (m *manager) Initialize(ctx context.Context) error {
	m.initialized = true
	return nil
}

func (m *manager) Shutdown(ctx context.Context) error {
	m.stopped = true
	return nil
}

func setup(t *testing.T) (*Bridge, *fakeHost, *loadPlugin, *manager, *[]api.ConfigItem) {
	t.Helper()
	host := &fakeHost{}
	reg := plugin.NewRegistry()
	load := &loadPlugin{}
	var seen []api.ConfigItem

	m := &manager{ManagerFunc: plugin.NewManager("load", func(config []api.ConfigItem) (plugin.Registration, error) {
		seen = config
		return plugin.Single(load), nil
	})}
	require.NoError(t, reg.Register(m))
	require.NoError(t, reg.Register(plugin.NewManager("multi", func(config []api.ConfigItem) (plugin.Registration, error) {
		return plugin.Multiple(map[string]any{"b": panicky{}, "a": panicky{}}), nil
	})))

	b := New(host, reg)
	b.Install()
	t.Cleanup(func() {
		api.SetDispatcher(nil)
		logger.SetSink(nil)
	})
	return b, host, load, m, &seen
}

func TestLifecycle(t *testing.T) {
	b, host, load, m, seen := setup(t)

	require.Equal(t, StatusOK, b.ModuleRegister())
	_, ok := host.find("config", "load")
	require.True(t, ok)
	_, ok = host.find("config", "multi")
	require.True(t, ok)
	_, ok = host.find("init", "load")
	require.True(t, ok)

	block := api.ConfigItem{
		Key:      "Plugin",
		Values:   []api.ConfigValue{api.StringValue("LOAD")},
		Children: []api.ConfigItem{{Key: "Verbose", Values: []api.ConfigValue{api.BooleanValue(true)}}},
	}
	require.Equal(t, StatusOK, b.Configure(block))
	require.Equal(t, StatusError, b.Configure(api.ConfigItem{Key: "Plugin", Values: []api.ConfigValue{api.StringValue("unknown")}}))

	require.Equal(t, StatusOK, b.Init())
	require.True(t, m.initialized)
	require.Equal(t, block.Children, *seen)

	read, ok := host.find("read", "load")
	require.True(t, ok)
	require.Equal(t, 5*time.Second, read.interval)
	_, ok = host.find("write", "load")
	require.True(t, ok)
	for _, kind := range []string{"read", "log", "flush", "notification"} {
		_, ok = host.find(kind, "multi/a")
		require.True(t, ok, kind)
		_, ok = host.find(kind, "multi/b")
		require.True(t, ok, kind)
	}

	require.Equal(t, StatusOK, b.Read(read.id))
	require.Equal(t, 1, load.reads)
	require.Len(t, host.values, 1)
	require.Equal(t, "load", host.values[0].Plugin)

	write, _ := host.find("write", "load")
	vl := api.ValueList{Identifier: api.Identifier{Plugin: "cpu", Type: "percent"}, Values: []api.Value{api.Gauge(1)}}
	require.Equal(t, StatusOK, b.Write(write.id, vl))
	require.Equal(t, []api.ValueList{vl}, load.written)

	// A read handle cannot be used as a write handle.
	require.Equal(t, StatusError, b.Write(read.id, vl))

	require.Equal(t, StatusOK, b.Shutdown())
	require.True(t, load.shutdown)
	require.True(t, m.stopped)
	require.Equal(t, 0, b.Handles())
	require.Equal(t, StatusError, b.Read(read.id))
}

func TestCallbackErrors(t *testing.T) {
	b, host, load, _, _ := setup(t)
	require.Equal(t, StatusOK, b.ModuleRegister())
	require.Equal(t, StatusOK, b.Init())

	load.fail = errors.New("no route to host")
	read, _ := host.find("read", "load")
	host.logs = nil
	require.Equal(t, StatusError, b.Read(read.id))
	require.Equal(t, []string{"load: read failed: no route to host"}, host.logs)

	panics, _ := host.find("read", "multi/a")
	host.logs = nil
	require.Equal(t, StatusError, b.Read(panics.id))
	require.Equal(t, []string{"multi/a: read panicked: boom"}, host.logs)

	// Log failures are not logged through the host.
	logHandle, _ := host.find("log", "multi/b")
	host.logs = nil
	require.Equal(t, StatusError, b.Log(logHandle.id, api.LogInfo, "hello"))
	require.Empty(t, host.logs)

	flush, _ := host.find("flush", "multi/b")
	require.Equal(t, StatusOK, b.Flush(flush.id, 0, ""))

	notif, _ := host.find("notification", "multi/b")
	require.Equal(t, StatusOK, b.Notify(notif.id, api.Notification{Severity: api.SeverityOkay}))

	b.Free(flush.id)
	require.Equal(t, StatusError, b.Flush(flush.id, 0, ""))
}

func TestInitFailure(t *testing.T) {
	host := &fakeHost{}
	reg := plugin.NewRegistry()
	require.NoError(t, reg.Register(plugin.NewManager("broken", func(config []api.ConfigItem) (plugin.Registration, error) {
		return plugin.Registration{}, errors.New("missing URL")
	})))
	require.NoError(t, reg.Register(plugin.NewManager("fine", func(config []api.ConfigItem) (plugin.Registration, error) {
		return plugin.Single(&loadPlugin{}), nil
	})))

	b := New(host, reg)
	b.Install()
	defer api.SetDispatcher(nil)
	defer logger.SetSink(nil)

	require.Equal(t, StatusError, b.Init())
	require.Contains(t, host.logs, "broken: init failed: missing URL")
	_, ok := host.find("read", "fine")
	require.True(t, ok)
}

func TestModuleRegisterWithoutManagers(t *testing.T) {
	b := New(&fakeHost{}, plugin.NewRegistry())
	require.Equal(t, StatusError, b.ModuleRegister())
}

func TestDispatchValidates(t *testing.T) {
	b, host, _, _, _ := setup(t)
	err := b.DispatchValues(api.ValueList{Identifier: api.Identifier{Plugin: "p"}})
	require.Error(t, err)
	require.Empty(t, host.values)
}

type selfManager struct {
	shutdowns int
}

func (m *selfManager) Name() string { return "self" }

func (m *selfManager) Plugins(config []api.ConfigItem) (plugin.Registration, error) {
	return plugin.Single(m), nil
}

func (m *selfManager) Read(ctx context.Context) error { return nil }

func (m *selfManager) Shutdown(ctx context.Context) error {
	m.shutdowns++
	return nil
}

func TestShutdownManagerActingAsPlugin(t *testing.T) {
	host := &fakeHost{}
	reg := plugin.NewRegistry()
	m := &selfManager{}
	require.NoError(t, reg.Register(m))

	b := New(host, reg)
	require.Equal(t, StatusOK, b.Init())
	require.Equal(t, StatusOK, b.Shutdown())
	require.Equal(t, 1, m.shutdowns)
}
