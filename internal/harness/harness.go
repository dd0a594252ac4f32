// Package harness runs plugin executables without collectd: it configures
// them from a collectd.conf file, calls their read callbacks every interval
// and sends what they dispatch to sinks and to the other plugins' callbacks.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"collectd.szuro.net/internal/config"
	"collectd.szuro.net/internal/logger"
	"collectd.szuro.net/internal/sink"
	"collectd.szuro.net/pkg/api"
	"collectd.szuro.net/pkg/filter"
	"collectd.szuro.net/pkg/oconfig"
	"collectd.szuro.net/pkg/rpcplugin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	readsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectd_harness_reads_total",
		Help: "Total number of read callbacks run",
	}, []string{"plugin"})

	readErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectd_harness_read_errors_total",
		Help: "Total number of read callbacks that failed",
	}, []string{"plugin"})

	dispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectd_harness_dispatched_values_total",
		Help: "Total number of value lists dispatched by plugins",
	}, []string{"plugin"})
)

// Client is the harness's view of a plugin process.
type Client interface {
	Register(info rpcplugin.HostInfo) (rpcplugin.Output, error)
	Configure(item api.ConfigItem) (rpcplugin.Output, error)
	Init() (rpcplugin.Output, error)
	Read(id uint64) (rpcplugin.Output, error)
	Write(id uint64, vl api.ValueList) (rpcplugin.Output, error)
	Flush(args rpcplugin.FlushArgs) (rpcplugin.Output, error)
	Notify(id uint64, n api.Notification) (rpcplugin.Output, error)
	Log(id uint64, level api.LogLevel, msg string) (rpcplugin.Output, error)
	Shutdown() (rpcplugin.Output, error)
}

// Starter launches the plugin described by conf.
type Starter func(conf config.PluginConf) (Client, func(), error)

// StartProcess starts a plugin executable through rpcplugin.
func StartProcess(conf config.PluginConf) (Client, func(), error) {
	p, err := rpcplugin.Start(conf.Path, conf.Args...)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Kill, nil
}

type loaded struct {
	name   string
	client Client
	kill   func()
	regs   []rpcplugin.Registration
}

func (l *loaded) callbacks(kind string) []rpcplugin.Registration {
	var out []rpcplugin.Registration
	for _, r := range l.regs {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

type Harness struct {
	conf    config.HarnessConf
	config  []api.ConfigItem
	filter  filter.Filter
	sinks   []sink.Sink
	start   Starter
	log     *slog.Logger
	plugins []*loaded
	wg      sync.WaitGroup
}

// New creates a harness. items is the parsed collectd.conf.
func New(conf config.HarnessConf, items []api.ConfigItem, sinks []sink.Sink, start Starter) (*Harness, error) {
	f, err := filter.NewFilter(conf.Filter)
	if err != nil {
		return nil, err
	}
	if start == nil {
		start = StartProcess
	}
	return &Harness{
		conf:   conf,
		config: items,
		filter: f,
		sinks:  sinks,
		start:  start,
		log:    logger.Default().Slog().With(slog.String("component", "harness")),
	}, nil
}

// Load parses the collectd.conf named in conf.
func Load(conf config.HarnessConf) ([]api.ConfigItem, error) {
	items, err := oconfig.ParseFile(conf.CollectdConfig)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", conf.CollectdConfig, err)
	}
	return items, nil
}

// Start launches every plugin, hands it its <Plugin> blocks and runs its
// init callback. A plugin that fails to start is skipped.
func (h *Harness) Start() error {
	var errs []error
	for _, pc := range h.conf.Plugins {
		l, err := h.startPlugin(pc)
		if err != nil {
			h.log.Error("Failed to start plugin", slog.String("plugin", pc.Name), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", pc.Name, err))
			continue
		}
		h.plugins = append(h.plugins, l)
	}
	if len(h.plugins) == 0 {
		return errors.Join(append(errs, errors.New("no plugin started"))...)
	}
	return errors.Join(errs...)
}

func (h *Harness) startPlugin(pc config.PluginConf) (*loaded, error) {
	client, kill, err := h.start(pc)
	if err != nil {
		return nil, err
	}
	l := &loaded{name: pc.Name, client: client, kill: kill}

	out, err := client.Register(rpcplugin.HostInfo{Hostname: h.conf.Hostname, Interval: h.conf.Interval})
	if err != nil {
		l.stop()
		return nil, err
	}
	h.handle(l, out, false)

	for _, r := range out.Registrations {
		if r.Kind != "config" {
			continue
		}
		for _, block := range h.blocks(r.Name) {
			out, err := client.Configure(block)
			if err != nil {
				l.stop()
				return nil, err
			}
			h.handle(l, out, false)
			if out.Status != 0 {
				h.log.Warn("Plugin rejected its configuration", slog.String("plugin", r.Name))
			}
		}
	}

	out, err = client.Init()
	if err != nil {
		l.stop()
		return nil, err
	}
	l.regs = out.Registrations
	h.handle(l, out, false)
	if out.Status != 0 {
		h.log.Warn("Plugin init reported errors", slog.String("plugin", pc.Name))
	}
	h.log.Info("Started plugin",
		slog.String("plugin", pc.Name),
		slog.Int("reads", len(l.callbacks("read"))),
		slog.Int("writes", len(l.callbacks("write"))))
	return l, nil
}

// blocks returns the <Plugin name> blocks for name, in file order.
func (h *Harness) blocks(name string) []api.ConfigItem {
	var out []api.ConfigItem
	for _, item := range h.config {
		if !strings.EqualFold(item.Key, "Plugin") {
			continue
		}
		if n, err := item.StringValue(); err == nil && strings.EqualFold(n, name) {
			out = append(out, item)
		}
	}
	return out
}

// Run calls every read callback at its interval until ctx is done.
func (h *Harness) Run(ctx context.Context) {
	for _, l := range h.plugins {
		for _, r := range l.callbacks("read") {
			interval := r.Interval
			if interval <= 0 {
				interval = h.conf.Interval
			}
			h.wg.Add(1)
			go func(l *loaded, r rpcplugin.Registration) {
				defer h.wg.Done()
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					h.readOnce(l, r)
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
					}
				}
			}(l, r)
		}
	}
	<-ctx.Done()
	h.wg.Wait()
}

// ReadAll runs every read callback once.
func (h *Harness) ReadAll() {
	for _, l := range h.plugins {
		for _, r := range l.callbacks("read") {
			h.readOnce(l, r)
		}
	}
}

func (h *Harness) readOnce(l *loaded, r rpcplugin.Registration) {
	readsTotal.WithLabelValues(r.Name).Inc()
	out, err := l.client.Read(r.ID)
	if err != nil {
		readErrors.WithLabelValues(r.Name).Inc()
		h.log.Error("Read failed", slog.String("plugin", r.Name), slog.Any("error", err))
		return
	}
	if out.Status != 0 {
		readErrors.WithLabelValues(r.Name).Inc()
	}
	h.handle(l, out, true)
}

// handle logs what a call produced and dispatches its values and
// notifications. Output of write, notification and log callbacks is not
// routed back to plugins.
func (h *Harness) handle(from *loaded, out rpcplugin.Output, route bool) {
	for _, line := range out.Logs {
		logger.Plugin(from.name, line.Level, line.Message)
		if route {
			h.forwardLog(line)
		}
	}
	if len(out.Values) > 0 {
		dispatched.WithLabelValues(from.name).Add(float64(len(out.Values)))
		h.dispatchValues(out.Values, route)
	}
	for _, n := range out.Notifications {
		h.dispatchNotification(n, route)
	}
}

func (h *Harness) dispatchValues(vls []api.ValueList, route bool) {
	vls = h.filter.FilterValues(vls)
	if len(vls) == 0 {
		return
	}
	ctx := context.Background()
	for _, s := range h.sinks {
		if err := s.Write(ctx, vls); err != nil {
			h.log.Error("Sink write failed", slog.String("sink", s.Name()), slog.Any("error", err))
		}
	}
	if !route {
		return
	}
	for _, l := range h.plugins {
		for _, r := range l.callbacks("write") {
			for _, vl := range vls {
				out, err := l.client.Write(r.ID, vl)
				if err != nil {
					h.log.Error("Write failed", slog.String("plugin", r.Name), slog.Any("error", err))
					continue
				}
				h.handle(l, out, false)
			}
		}
	}
}

func (h *Harness) dispatchNotification(n api.Notification, route bool) {
	h.log.Info("Notification",
		slog.String("severity", n.Severity.String()),
		slog.String("identifier", n.Identifier.String()),
		slog.String("message", n.Message))
	if !route || !h.filter.AcceptNotification(n) {
		return
	}
	for _, l := range h.plugins {
		for _, r := range l.callbacks("notification") {
			out, err := l.client.Notify(r.ID, n)
			if err != nil {
				h.log.Error("Notification failed", slog.String("plugin", r.Name), slog.Any("error", err))
				continue
			}
			h.handle(l, out, false)
		}
	}
}

func (h *Harness) forwardLog(line rpcplugin.LogLine) {
	for _, l := range h.plugins {
		for _, r := range l.callbacks("log") {
			if _, err := l.client.Log(r.ID, line.Level, line.Message); err != nil {
				h.log.Debug("Log callback failed", slog.String("plugin", r.Name), slog.Any("error", err))
			}
		}
	}
}

// Stop flushes and shuts down every plugin, then closes the sinks.
func (h *Harness) Stop() error {
	var errs []error
	for _, l := range h.plugins {
		for _, r := range l.callbacks("flush") {
			out, err := l.client.Flush(rpcplugin.FlushArgs{ID: r.ID})
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", r.Name, err))
				continue
			}
			h.handle(l, out, false)
		}
		out, err := l.client.Shutdown()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", l.name, err))
		} else {
			h.handle(l, out, false)
		}
		l.stop()
	}
	h.plugins = nil
	for _, s := range h.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (l *loaded) stop() {
	if l.kill != nil {
		l.kill()
	}
}
