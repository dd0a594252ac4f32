package rpcplugin

import (
	"fmt"
	"net/rpc"
	"os/exec"
	"path/filepath"
	"strings"

	"collectd.szuro.net/pkg/api"
	"collectd.szuro.net/pkg/logger"
	"github.com/hashicorp/go-plugin"
)

// RPCClient is the harness side of a plugin process.
type RPCClient struct {
	client *rpc.Client
}

func (c *RPCClient) call(method string, args any) (Output, error) {
	var out Output
	if err := c.client.Call("Plugin."+method, args, &out); err != nil {
		return Output{}, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

func (c *RPCClient) Register(info HostInfo) (Output, error) {
	return c.call("Register", info)
}

func (c *RPCClient) Configure(item api.ConfigItem) (Output, error) {
	return c.call("Configure", item)
}

func (c *RPCClient) Init() (Output, error) {
	return c.call("Init", struct{}{})
}

func (c *RPCClient) Read(id uint64) (Output, error) {
	return c.call("Read", id)
}

func (c *RPCClient) Write(id uint64, vl api.ValueList) (Output, error) {
	return c.call("Write", WriteArgs{ID: id, Values: vl})
}

func (c *RPCClient) Flush(args FlushArgs) (Output, error) {
	return c.call("Flush", args)
}

func (c *RPCClient) Notify(id uint64, n api.Notification) (Output, error) {
	return c.call("Notify", NotifyArgs{ID: id, Notification: n})
}

func (c *RPCClient) Log(id uint64, level api.LogLevel, msg string) (Output, error) {
	return c.call("Log", LogArgs{ID: id, Level: level, Message: msg})
}

func (c *RPCClient) Shutdown() (Output, error) {
	return c.call("Shutdown", struct{}{})
}

// Process is a plugin executable started by the harness.
type Process struct {
	*RPCClient
	Name   string
	Path   string
	client *plugin.Client
}

// Start launches the plugin executable at path and connects to it.
func Start(path string, args ...string) (*Process, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			PluginName: &CollectdPlugin{},
		},
		Cmd:              exec.Command(path, args...),
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		Logger:           logger.NewHCLogAdapter(name),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to connect to plugin %s: %w", name, err)
	}
	raw, err := rpcClient.Dispense(PluginName)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense plugin %s: %w", name, err)
	}
	c, ok := raw.(*RPCClient)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin %s did not return a collectd client", name)
	}
	return &Process{RPCClient: c, Name: name, Path: path, client: client}, nil
}

// Exited reports whether the plugin process is gone.
func (p *Process) Exited() bool {
	return p.client.Exited()
}

// Kill stops the plugin process.
func (p *Process) Kill() {
	p.client.Kill()
}
