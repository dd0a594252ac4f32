package rpcplugin

import (
	"fmt"
	"os"
	"sync"
	"time"

	"collectd.szuro.net/internal/bridge"
	"collectd.szuro.net/pkg/api"
	"collectd.szuro.net/pkg/logger"
	"collectd.szuro.net/pkg/plugin"
	goplugin "github.com/hashicorp/go-plugin"
)

// recorder is the Host seen by plugins served over RPC. It keeps what the
// plugin produces until the running call returns it.
type recorder struct {
	mutex sync.Mutex
	info  HostInfo
	out   Output
}

func (r *recorder) record(fn func(o *Output)) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	fn(&r.out)
}

func (r *recorder) registration(kind, name string, id uint64, interval time.Duration) error {
	r.record(func(o *Output) {
		o.Registrations = append(o.Registrations, Registration{Kind: kind, Name: name, ID: id, Interval: interval})
	})
	return nil
}

func (r *recorder) RegisterConfig(name string) error   { return r.registration("config", name, 0, 0) }
func (r *recorder) RegisterInit(name string) error     { return r.registration("init", name, 0, 0) }
func (r *recorder) RegisterShutdown(name string) error { return r.registration("shutdown", name, 0, 0) }

func (r *recorder) RegisterRead(name string, id uint64, interval time.Duration) error {
	return r.registration("read", name, id, interval)
}

func (r *recorder) RegisterWrite(name string, id uint64) error {
	return r.registration("write", name, id, 0)
}

func (r *recorder) RegisterLog(name string, id uint64) error {
	return r.registration("log", name, id, 0)
}

func (r *recorder) RegisterFlush(name string, id uint64) error {
	return r.registration("flush", name, id, 0)
}

func (r *recorder) RegisterNotification(name string, id uint64) error {
	return r.registration("notification", name, id, 0)
}

func (r *recorder) DispatchValues(vl api.ValueList) error {
	vl = vl.Clone()
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if vl.Host == "" {
		vl.Host = r.info.Hostname
	}
	if vl.Interval == 0 {
		vl.Interval = r.info.Interval
	}
	if vl.Time.IsZero() {
		vl.Time = time.Now()
	}
	r.out.Values = append(r.out.Values, vl)
	return nil
}

func (r *recorder) DispatchNotification(n api.Notification) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if n.Host == "" {
		n.Host = r.info.Hostname
	}
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	r.out.Notifications = append(r.out.Notifications, n)
	return nil
}

func (r *recorder) Log(level api.LogLevel, msg string) {
	r.record(func(o *Output) {
		o.Logs = append(o.Logs, LogLine{Level: level, Message: msg})
	})
}

func (r *recorder) Interval() time.Duration {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.info.Interval
}

func (r *recorder) Hostname() string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.info.Hostname
}

func (r *recorder) drain(status int) Output {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := r.out
	out.Status = status
	r.out = Output{}
	return out
}

// Server exposes a bridge over net/rpc. Calls are served one at a time so
// the output of a call is not mixed with another's.
type Server struct {
	calls  sync.Mutex
	host   *recorder
	bridge *bridge.Bridge
}

// NewServer returns a server for the managers of registry. It installs the
// server as the process wide dispatcher.
func NewServer(registry *plugin.Registry) *Server {
	host := &recorder{info: HostInfo{Interval: 10 * time.Second}}
	if h, err := os.Hostname(); err == nil {
		host.info.Hostname = h
	}
	s := &Server{host: host, bridge: bridge.New(host, registry)}
	s.bridge.Install()
	return s
}

func (s *Server) run(out *Output, fn func() int) error {
	s.calls.Lock()
	defer s.calls.Unlock()
	*out = s.host.drain(fn())
	return nil
}

// Register sets the host information and runs module registration.
func (s *Server) Register(info HostInfo, out *Output) error {
	s.host.mutex.Lock()
	if info.Hostname != "" {
		s.host.info.Hostname = info.Hostname
	}
	if info.Interval > 0 {
		s.host.info.Interval = info.Interval
	}
	s.host.mutex.Unlock()
	return s.run(out, s.bridge.ModuleRegister)
}

func (s *Server) Configure(item api.ConfigItem, out *Output) error {
	return s.run(out, func() int { return s.bridge.Configure(item) })
}

func (s *Server) Init(_ struct{}, out *Output) error {
	return s.run(out, s.bridge.Init)
}

func (s *Server) Read(id uint64, out *Output) error {
	return s.run(out, func() int { return s.bridge.Read(id) })
}

func (s *Server) Write(args WriteArgs, out *Output) error {
	return s.run(out, func() int { return s.bridge.Write(args.ID, args.Values) })
}

func (s *Server) Flush(args FlushArgs, out *Output) error {
	return s.run(out, func() int { return s.bridge.Flush(args.ID, args.Timeout, args.Identifier) })
}

func (s *Server) Notify(args NotifyArgs, out *Output) error {
	return s.run(out, func() int { return s.bridge.Notify(args.ID, args.Notification) })
}

func (s *Server) Log(args LogArgs, out *Output) error {
	return s.run(out, func() int { return s.bridge.Log(args.ID, args.Level, args.Message) })
}

func (s *Server) Shutdown(_ struct{}, out *Output) error {
	return s.run(out, s.bridge.Shutdown)
}

// Serve registers managers and serves the process's registry until the
// client disconnects. It is meant to be called from main.
func Serve(managers ...plugin.Manager) {
	for _, m := range managers {
		if err := plugin.RegisterManager(m); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	log := logger.NewHCLogAdapter("rpcplugin")
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]goplugin.Plugin{
			PluginName: &CollectdPlugin{Impl: NewServer(plugin.GetRegistry())},
		},
		Logger: log,
	})
}
