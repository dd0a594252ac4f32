// Package rpcplugin serves plugin managers over hashicorp/go-plugin so the
// same plugin code can run outside the daemon, and provides the client used
// to drive such a process.
//
// The shared object built for collectd never calls main, so a plugin can
// offer both modes from one package:
//
//	func init() {
//	    plugin.RegisterManager(myManager{})
//	}
//
//	func main() {
//	    rpcplugin.Serve()
//	}
package rpcplugin

import (
	"net/rpc"
	"time"

	"collectd.szuro.net/pkg/api"
	"github.com/hashicorp/go-plugin"
)

// Handshake is the shared configuration between the harness and plugins.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "COLLECTD_GO_PLUGIN",
	MagicCookieValue: "collectd_plugin_runtime",
}

// PluginName is the name the plugin is dispensed under.
const PluginName = "collectd"

// Registration is a callback the plugin registered with its host.
type Registration struct {
	Kind     string
	Name     string
	ID       uint64
	Interval time.Duration
}

// LogLine is a message the plugin logged.
type LogLine struct {
	Level   api.LogLevel
	Message string
}

// Output is everything the plugin produced while serving a call. Values
// dispatched from background goroutines are returned with the next call.
type Output struct {
	Status        int
	Registrations []Registration
	Values        []api.ValueList
	Notifications []api.Notification
	Logs          []LogLine
}

// HostInfo describes the host the plugin believes it runs in.
type HostInfo struct {
	Hostname string
	Interval time.Duration
}

type WriteArgs struct {
	ID     uint64
	Values api.ValueList
}

type FlushArgs struct {
	ID         uint64
	Timeout    time.Duration
	Identifier string
}

type NotifyArgs struct {
	ID           uint64
	Notification api.Notification
}

type LogArgs struct {
	ID      uint64
	Level   api.LogLevel
	Message string
}

// CollectdPlugin is the plugin.Plugin implementation for net/rpc.
type CollectdPlugin struct {
	// Impl is set on the plugin side only.
	Impl *Server
}

func (p *CollectdPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return p.Impl, nil
}

func (p *CollectdPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &RPCClient{client: c}, nil
}
