// Package plugin defines how Go code registers itself as collectd plugins.
//
// A shared object built with -buildmode=c-shared is loaded by collectd like
// any native plugin. Go packages linked into it register a Manager from init;
// the runtime in package collectd asks every manager for its plugins once the
// daemon has parsed the configuration, and registers a callback for every
// capability those plugins implement.
//
// Capabilities are discovered from the interfaces a plugin value implements:
//
//   - Reader: called every interval to submit values
//   - Writer: receives every value list dispatched in the daemon
//   - Logger: receives every log line
//   - Flusher: asked to flush cached values
//   - Notifier: receives notifications
//   - Shutdowner: called once when the daemon stops
//
// Creating a Plugin:
//
//  1. Implement one or more of the callback interfaces
//  2. Implement Manager to build plugins from the <Plugin name> block
//  3. Register the manager from init()
//  4. Build with: go build -buildmode=c-shared -o myplugin.so
//
// Example plugin structure:
//
//	package main
//
//	import (
//	    "context"
//
//	    "collectd.szuro.net/pkg/api"
//	    _ "collectd.szuro.net/pkg/collectd"
//	    "collectd.szuro.net/pkg/plugin"
//	)
//
//	type MyPlugin struct{}
//
//	func (MyPlugin) Read(ctx context.Context) error {
//	    return api.NewValueListBuilder("myplugin", "load").
//	        Values(api.Gauge(15), api.Gauge(10), api.Gauge(12)).
//	        Submit()
//	}
//
//	func init() {
//	    plugin.RegisterManager(plugin.NewManager("myplugin",
//	        func(config []api.ConfigItem) (plugin.Registration, error) {
//	            return plugin.Single(MyPlugin{}), nil
//	        }))
//	}
//
//	func main() {}
package plugin

import (
	"context"
	"time"

	"collectd.szuro.net/pkg/api"
)

// Reader is implemented by plugins that collect values. Read submits them
// with api.ValueListBuilder.Submit.
type Reader interface {
	Read(ctx context.Context) error
}

// Writer is implemented by plugins that ship values elsewhere. The value
// list's Sources are filled from the daemon's data set.
type Writer interface {
	Write(ctx context.Context, vl api.ValueList) error
}

// Logger is implemented by plugins that handle log lines. Log must not log
// through package logger; such lines would loop back into Log.
type Logger interface {
	Log(level api.LogLevel, msg string) error
}

// Flusher is implemented by plugins that cache values. A timeout <= 0 means
// flush everything, an empty identifier means every identifier.
type Flusher interface {
	Flush(ctx context.Context, timeout time.Duration, identifier string) error
}

// Notifier is implemented by plugins that handle notifications.
type Notifier interface {
	Notify(ctx context.Context, n api.Notification) error
}

// Shutdowner is implemented by plugins and managers that release resources
// when the daemon stops.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// ReadIntervaler overrides the daemon's interval for a Reader.
type ReadIntervaler interface {
	ReadInterval() time.Duration
}

// Manager creates the plugins of one collectd plugin name.
type Manager interface {
	// Name is the name used in LoadPlugin and <Plugin name>.
	Name() string

	// Plugins builds the plugins to register. config holds the children of
	// the <Plugin name> block, nil when there is none.
	Plugins(config []api.ConfigItem) (Registration, error)
}

// Initializer is implemented by managers that need to run code once, before
// Plugins is called.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// ManagerFunc is a Manager built from a name and a function.
type ManagerFunc struct {
	name    string
	plugins func(config []api.ConfigItem) (Registration, error)
}

// NewManager returns a Manager calling fn for its plugins.
func NewManager(name string, fn func(config []api.ConfigItem) (Registration, error)) *ManagerFunc {
	return &ManagerFunc{name: name, plugins: fn}
}

func (m *ManagerFunc) Name() string {
	return m.name
}

func (m *ManagerFunc) Plugins(config []api.ConfigItem) (Registration, error) {
	return m.plugins(config)
}
