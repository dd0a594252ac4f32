package api

import (
	"sync/atomic"
	"time"
)

// Dispatcher hands value lists and notifications to the daemon. The
// collectd binding installs itself on load; tests install a recorder.
type Dispatcher interface {
	DispatchValues(vl ValueList) error
	DispatchNotification(n Notification) error
}

type noDispatcher struct{}

func (noDispatcher) DispatchValues(ValueList) error          { return ErrNoDispatcher }
func (noDispatcher) DispatchNotification(Notification) error { return ErrNoDispatcher }

type dispatcherBox struct {
	d Dispatcher
}

var dispatcher atomic.Pointer[dispatcherBox]

func init() {
	dispatcher.Store(&dispatcherBox{d: noDispatcher{}})
}

// SetDispatcher installs d as the target of Submit. A nil d restores the
// default, which fails every call with ErrNoDispatcher.
func SetDispatcher(d Dispatcher) {
	if d == nil {
		d = noDispatcher{}
	}
	dispatcher.Store(&dispatcherBox{d: d})
}

// CurrentDispatcher returns the installed dispatcher.
func CurrentDispatcher() Dispatcher {
	return dispatcher.Load().d
}

// ValueListBuilder assembles a value list and submits it to the daemon.
// Errors are deferred until Build or Submit.
type ValueListBuilder struct {
	vl ValueList
}

// NewValueListBuilder starts a value list for the given plugin and type.
// The type must exist in the daemon's types.db.
func NewValueListBuilder(plugin, typ string) *ValueListBuilder {
	return &ValueListBuilder{vl: ValueList{Identifier: Identifier{Plugin: plugin, Type: typ}}}
}

// Values appends values. Their count must match the type's data set.
func (b *ValueListBuilder) Values(values ...Value) *ValueListBuilder {
	b.vl.Values = append(b.vl.Values, values...)
	return b
}

func (b *ValueListBuilder) PluginInstance(s string) *ValueListBuilder {
	b.vl.PluginInstance = s
	return b
}

func (b *ValueListBuilder) TypeInstance(s string) *ValueListBuilder {
	b.vl.TypeInstance = s
	return b
}

// Host overrides the host name. Left empty, the daemon uses its own.
func (b *ValueListBuilder) Host(s string) *ValueListBuilder {
	b.vl.Host = s
	return b
}

// Time sets the sample time. Left zero, the daemon uses the dispatch time.
func (b *ValueListBuilder) Time(t time.Time) *ValueListBuilder {
	b.vl.Time = t
	return b
}

// Interval sets the interval. Left zero, the daemon uses the plugin's
// read interval.
func (b *ValueListBuilder) Interval(d time.Duration) *ValueListBuilder {
	b.vl.Interval = d
	return b
}

// DSNames names the values for in-process consumers; the daemon takes the
// names from types.db.
func (b *ValueListBuilder) DSNames(names ...string) *ValueListBuilder {
	b.vl.DSNames = append(b.vl.DSNames, names...)
	return b
}

// Metadata attaches a meta data entry.
func (b *ValueListBuilder) Metadata(key string, value any) *ValueListBuilder {
	if b.vl.Meta == nil {
		b.vl.Meta = Meta{}
	}
	if err := b.vl.Meta.Set(key, value); err != nil {
		// kept raw so Build reports it
		b.vl.Meta[key] = value
	}
	return b
}

// Build validates and returns the value list.
func (b *ValueListBuilder) Build() (ValueList, error) {
	if err := b.vl.Validate(); err != nil {
		return ValueList{}, err
	}
	return b.vl.Clone(), nil
}

// Submit validates the value list and dispatches it.
func (b *ValueListBuilder) Submit() error {
	vl, err := b.Build()
	if err != nil {
		return err
	}
	return CurrentDispatcher().DispatchValues(vl)
}
