// Package bridge drives registered plugin managers through collectd's
// lifecycle. It holds no cgo code: the daemon side is reached through Host,
// implemented by package collectd inside the daemon and by package rpcplugin
// when plugins run out of process.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"collectd.szuro.net/pkg/api"
	"collectd.szuro.net/pkg/logger"
	"collectd.szuro.net/pkg/plugin"
	"golang.org/x/exp/slices"
)

// Status codes returned to the daemon.
const (
	StatusOK    = 0
	StatusError = -1
)

// Host is the daemon's side of the plugin ABI.
type Host interface {
	RegisterConfig(name string) error
	RegisterInit(name string) error
	RegisterRead(name string, id uint64, interval time.Duration) error
	RegisterWrite(name string, id uint64) error
	RegisterLog(name string, id uint64) error
	RegisterFlush(name string, id uint64) error
	RegisterNotification(name string, id uint64) error
	RegisterShutdown(name string) error

	DispatchValues(vl api.ValueList) error
	DispatchNotification(n api.Notification) error
	Log(level api.LogLevel, msg string)
	Interval() time.Duration
	Hostname() string
}

type handle struct {
	name   string
	cap    plugin.Capabilities
	plugin any
}

// Bridge connects the managers of a registry to a Host.
type Bridge struct {
	host     Host
	registry *plugin.Registry

	mutex       sync.RWMutex
	configs     map[string][]api.ConfigItem
	handles     map[uint64]*handle
	entries     []plugin.Entry
	nextID      uint64
	initialized bool

	ctx    context.Context
	cancel context.CancelFunc
}

func New(host Host, registry *plugin.Registry) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		host:     host,
		registry: registry,
		configs:  make(map[string][]api.ConfigItem),
		handles:  make(map[uint64]*handle),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// ModuleName is the name init and shutdown are registered under: the first
// registered manager's name.
func (b *Bridge) ModuleName() string {
	managers := b.registry.Managers()
	if len(managers) == 0 {
		return ""
	}
	return managers[0].Name()
}

// ModuleRegister registers a config callback for every manager, and one init
// and one shutdown callback for the module.
func (b *Bridge) ModuleRegister() int {
	managers := b.registry.Managers()
	if len(managers) == 0 {
		logger.Default().Error("no plugin registered, call plugin.RegisterManager from init")
		return StatusError
	}

	status := StatusOK
	for _, m := range managers {
		if err := b.host.RegisterConfig(m.Name()); err != nil {
			logger.New(m.Name()).Error(fmt.Sprintf("registering config callback failed: %v", err))
			status = StatusError
		}
	}
	name := b.ModuleName()
	if err := b.host.RegisterInit(name); err != nil {
		logger.New(name).Error(fmt.Sprintf("registering init callback failed: %v", err))
		status = StatusError
	}
	if err := b.host.RegisterShutdown(name); err != nil {
		logger.New(name).Error(fmt.Sprintf("registering shutdown callback failed: %v", err))
		status = StatusError
	}
	return status
}

// Configure receives a <Plugin name> block and stores its children for the
// manager of that name. Several blocks for one plugin are merged.
func (b *Bridge) Configure(item api.ConfigItem) int {
	name, err := item.StringValue()
	if err != nil {
		logger.Default().Error(fmt.Sprintf("config: cannot read plugin name: %v", err))
		return StatusError
	}
	m, ok := b.registry.Lookup(name)
	if !ok {
		logger.Default().Error(fmt.Sprintf("config: no plugin named %q", name))
		return StatusError
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	key := strings.ToLower(m.Name())
	b.configs[key] = append(b.configs[key], item.Children...)
	return StatusOK
}

// Init builds every manager's plugins and registers their callbacks. A
// failing manager does not keep the others from initializing.
func (b *Bridge) Init() int {
	b.mutex.Lock()
	if b.initialized {
		b.mutex.Unlock()
		return StatusOK
	}
	b.initialized = true
	b.mutex.Unlock()

	status := StatusOK
	for _, m := range b.registry.Managers() {
		if err := b.initManager(m); err != nil {
			logger.New(m.Name()).Error(fmt.Sprintf("init failed: %v", err))
			status = StatusError
		}
	}
	return status
}

func (b *Bridge) initManager(m plugin.Manager) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if initializer, ok := m.(plugin.Initializer); ok {
		if err := initializer.Initialize(b.ctx); err != nil {
			return err
		}
	}

	b.mutex.RLock()
	config := b.configs[strings.ToLower(m.Name())]
	b.mutex.RUnlock()

	reg, err := m.Plugins(config)
	if err != nil {
		return err
	}
	entries, err := reg.Entries(m.Name())
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := b.register(e); err != nil {
			return fmt.Errorf("%s: %w", e.Name, err)
		}
	}
	return nil
}

func (b *Bridge) register(e plugin.Entry) error {
	b.mutex.Lock()
	b.entries = append(b.entries, e)
	b.mutex.Unlock()

	var errs []error
	if e.Caps.Has(plugin.CapRead) {
		var interval time.Duration
		if ri, ok := e.Plugin.(plugin.ReadIntervaler); ok {
			interval = ri.ReadInterval()
		}
		errs = append(errs, b.host.RegisterRead(e.Name, b.newHandle(e, plugin.CapRead), interval))
	}
	if e.Caps.Has(plugin.CapWrite) {
		errs = append(errs, b.host.RegisterWrite(e.Name, b.newHandle(e, plugin.CapWrite)))
	}
	if e.Caps.Has(plugin.CapLog) {
		errs = append(errs, b.host.RegisterLog(e.Name, b.newHandle(e, plugin.CapLog)))
	}
	if e.Caps.Has(plugin.CapFlush) {
		errs = append(errs, b.host.RegisterFlush(e.Name, b.newHandle(e, plugin.CapFlush)))
	}
	if e.Caps.Has(plugin.CapNotification) {
		errs = append(errs, b.host.RegisterNotification(e.Name, b.newHandle(e, plugin.CapNotification)))
	}
	return errors.Join(errs...)
}

func (b *Bridge) newHandle(e plugin.Entry, c plugin.Capabilities) uint64 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.nextID++
	b.handles[b.nextID] = &handle{name: e.Name, cap: c, plugin: e.Plugin}
	return b.nextID
}

func (b *Bridge) lookup(id uint64, c plugin.Capabilities) (*handle, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	h, ok := b.handles[id]
	if !ok {
		return nil, fmt.Errorf("unknown callback handle %d", id)
	}
	if h.cap != c {
		return nil, fmt.Errorf("callback handle %d is a %s callback, not %s", id, h.cap, c)
	}
	return h, nil
}

// call runs fn for the plugin behind id, turning errors and panics into a
// logged StatusError.
func (b *Bridge) call(id uint64, c plugin.Capabilities, fn func(p any) error) (status int) {
	h, err := b.lookup(id, c)
	if err != nil {
		logger.Default().Error(err.Error())
		return StatusError
	}
	defer func() {
		if r := recover(); r != nil {
			logger.New(h.name).Error(fmt.Sprintf("%s panicked: %v", c, r))
			status = StatusError
		}
	}()
	if err := fn(h.plugin); err != nil {
		logger.New(h.name).Error(fmt.Sprintf("%s failed: %v", c, err))
		return StatusError
	}
	return StatusOK
}

func (b *Bridge) Read(id uint64) int {
	return b.call(id, plugin.CapRead, func(p any) error {
		return p.(plugin.Reader).Read(b.ctx)
	})
}

func (b *Bridge) Write(id uint64, vl api.ValueList) int {
	return b.call(id, plugin.CapWrite, func(p any) error {
		return p.(plugin.Writer).Write(b.ctx, vl)
	})
}

func (b *Bridge) Flush(id uint64, timeout time.Duration, identifier string) int {
	return b.call(id, plugin.CapFlush, func(p any) error {
		return p.(plugin.Flusher).Flush(b.ctx, timeout, identifier)
	})
}

func (b *Bridge) Notify(id uint64, n api.Notification) int {
	return b.call(id, plugin.CapNotification, func(p any) error {
		return p.(plugin.Notifier).Notify(b.ctx, n)
	})
}

// Log hands a log line to a Logger plugin. Failures go to stderr: logging
// them through the daemon would call Log again.
func (b *Bridge) Log(id uint64, level api.LogLevel, msg string) (status int) {
	h, err := b.lookup(id, plugin.CapLog)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return StatusError
	}
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "%s: log panicked: %v\n", h.name, r)
			status = StatusError
		}
	}()
	if err := h.plugin.(plugin.Logger).Log(level, msg); err != nil {
		fmt.Fprintf(os.Stderr, "%s: log failed: %v\n", h.name, err)
		return StatusError
	}
	return StatusOK
}

// Shutdown calls every plugin Shutdowner, then every manager Shutdowner, and
// releases all handles.
func (b *Bridge) Shutdown() int {
	b.mutex.Lock()
	entries := b.entries
	b.entries = nil
	b.mutex.Unlock()

	status := StatusOK
	var done []any
	for _, e := range entries {
		if !e.Caps.Has(plugin.CapShutdown) {
			continue
		}
		done = append(done, e.Plugin)
		if err := safeShutdown(b.ctx, e.Plugin.(plugin.Shutdowner)); err != nil {
			logger.New(e.Name).Error(fmt.Sprintf("shutdown failed: %v", err))
			status = StatusError
		}
	}
	for _, m := range b.registry.Managers() {
		if slices.ContainsFunc(done, func(p any) bool { return samePlugin(p, m) }) {
			continue
		}
		if s, ok := m.(plugin.Shutdowner); ok {
			if err := safeShutdown(b.ctx, s); err != nil {
				logger.New(m.Name()).Error(fmt.Sprintf("shutdown failed: %v", err))
				status = StatusError
			}
		}
	}

	b.cancel()
	b.mutex.Lock()
	b.handles = make(map[uint64]*handle)
	b.mutex.Unlock()
	return status
}

// samePlugin reports whether a and b are the same value. Values of
// uncomparable types are never the same.
func samePlugin(a, b any) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

func safeShutdown(ctx context.Context, s plugin.Shutdowner) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Shutdown(ctx)
}

// Free releases a handle once the daemon drops the callback's user data.
func (b *Bridge) Free(id uint64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.handles, id)
}

// Handles returns the number of live callback handles.
func (b *Bridge) Handles() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.handles)
}

// DispatchValues implements api.Dispatcher on top of the host.
func (b *Bridge) DispatchValues(vl api.ValueList) error {
	if err := vl.Validate(); err != nil {
		return err
	}
	return b.host.DispatchValues(vl)
}

// DispatchNotification implements api.Dispatcher on top of the host.
func (b *Bridge) DispatchNotification(n api.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	return b.host.DispatchNotification(n)
}

// Install makes the bridge the process wide dispatcher and routes package
// logger output to the host.
func (b *Bridge) Install() {
	api.SetDispatcher(b)
	logger.SetSink(b.host.Log)
	slog.SetDefault(logger.Default())
}
