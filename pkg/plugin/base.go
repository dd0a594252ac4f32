package plugin

import (
	"log/slog"
	"time"

	"collectd.szuro.net/pkg/api"
	"collectd.szuro.net/pkg/buffer"
	"collectd.szuro.net/pkg/filter"
	"collectd.szuro.net/pkg/logger"
)

// BaseConfig holds the options BasePlugin understands. Embed it in a
// plugin's configuration struct with `collectd:",squash"`:
//
//	type Config struct {
//	    plugin.BaseConfig `collectd:",squash"`
//	    URL string
//	}
//
// which accepts
//
//	<Plugin myplugin>
//	    URL "http://localhost:9090"
//	    BufferPath "/var/lib/collectd/myplugin"
//	    BufferTTL 3600
//	    <Filter>
//	        Reject "plugin:interface"
//	    </Filter>
//	</Plugin>
type BaseConfig struct {
	Filter     filter.FilterConfig `collectd:"Filter"`
	BufferPath string              `collectd:"BufferPath"`
	BufferTTL  time.Duration       `collectd:"BufferTTL"`
}

// BasePlugin provides the common parts of write plugins: a named logger, an
// identifier filter and an offline buffer. Embed it in plugin types.
type BasePlugin struct {
	// name is the callback name this plugin is registered under
	name string

	// Log prefixes messages with the plugin name.
	Log *slog.Logger

	// Filter decides which value lists and notifications are handled.
	Filter filter.Filter

	// Buffer provides offline storage, nil until InitBuffer is called.
	Buffer *buffer.Buffer
}

// NewBasePlugin creates a BasePlugin. Plugins embedding BasePlugin directly
// call SetName instead.
func NewBasePlugin(name string) *BasePlugin {
	b := &BasePlugin{}
	b.SetName(name)
	return b
}

func (b *BasePlugin) GetName() string {
	return b.name
}

// SetName sets the name and renames the logger.
func (b *BasePlugin) SetName(name string) {
	b.name = name
	b.Log = logger.New(name)
}

// Configure applies cfg: it prepares the filter and, when a path and TTL
// are set, opens the buffer.
func (b *BasePlugin) Configure(cfg BaseConfig) error {
	if err := b.PrepareFilter(cfg.Filter); err != nil {
		return err
	}
	if cfg.BufferPath != "" && cfg.BufferTTL > 0 {
		return b.InitBuffer(cfg.BufferPath, cfg.BufferTTL)
	}
	return nil
}

// PrepareFilter builds the filter from its configuration.
func (b *BasePlugin) PrepareFilter(cfg filter.FilterConfig) error {
	f, err := filter.NewFilter(cfg)
	if err != nil {
		return err
	}
	b.Filter = f
	return nil
}

// InitBuffer opens the offline buffer in path. ttl 0 disables buffering.
func (b *BasePlugin) InitBuffer(path string, ttl time.Duration) error {
	buf, err := buffer.Open(path, ttl)
	if err != nil {
		return err
	}
	b.Buffer = buf
	b.logger().Debug("Offline buffer ready", slog.String("path", path), slog.Duration("ttl", ttl))
	return nil
}

// Accept applies the filter; without one everything is accepted.
func (b *BasePlugin) Accept(id api.Identifier) bool {
	if b.Filter == nil {
		return true
	}
	return b.Filter.Accept(id)
}

// Cleanup releases the buffer. Plugins call it from their Shutdown.
func (b *BasePlugin) Cleanup() error {
	if b.Buffer == nil {
		return nil
	}
	return b.Buffer.Close()
}

func (b *BasePlugin) logger() *slog.Logger {
	if b.Log == nil {
		b.Log = logger.New(b.name)
	}
	return b.Log
}
