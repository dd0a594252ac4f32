// Package sink holds the destinations the harness sends dispatched values to.
package sink

import (
	"context"
	"fmt"
	"strings"

	"collectd.szuro.net/pkg/api"
	"collectd.szuro.net/pkg/buffer"
	"collectd.szuro.net/pkg/filter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	PRINT       = "print"
	PROMETHEUS  = "prometheus"
	PUSHGATEWAY = "pushgateway"
	REMOTEWRITE = "remote_write"
)

var (
	valuesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectd_harness_values_sent_total",
		Help: "Total number of value lists handed to a sink",
	}, []string{"sink_name", "sink_type"})

	valuesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectd_harness_values_failed_total",
		Help: "Total number of value lists a sink failed to deliver",
	}, []string{"sink_name", "sink_type"})

	valuesBuffered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectd_harness_values_buffered_total",
		Help: "Total number of value lists spooled for a later retry",
	}, []string{"sink_name", "sink_type"})
)

// Sink receives value lists read from plugins.
type Sink interface {
	Name() string
	Type() string
	Write(ctx context.Context, vls []api.ValueList) error
	Close() error
}

// Options configure a sink.
type Options struct {
	Name       string
	Connection string
	Filter     filter.Filter
	// Buffer spools value lists a sink could not deliver. May be disabled.
	Buffer  *buffer.Buffer
	Options map[string]string
}

// New creates a sink of the given type.
func New(typ string, opts Options) (Sink, error) {
	if opts.Filter == nil {
		opts.Filter = filter.NewEmptyFilter()
	}
	switch strings.ToLower(typ) {
	case PRINT:
		return NewPrint(opts), nil
	case PROMETHEUS:
		return NewPrometheus(opts, prometheus.DefaultRegisterer)
	case PUSHGATEWAY:
		return NewPushgateway(opts)
	case REMOTEWRITE:
		return NewRemoteWrite(opts)
	default:
		return nil, fmt.Errorf("unknown sink type %q", typ)
	}
}

type monitor struct {
	sent     prometheus.Counter
	failed   prometheus.Counter
	buffered prometheus.Counter
}

type baseSink struct {
	name    string
	typ     string
	filter  filter.Filter
	buffer  *buffer.Buffer
	monitor monitor
}

func newBaseSink(typ string, opts Options) baseSink {
	labels := prometheus.Labels{"sink_name": opts.Name, "sink_type": typ}
	return baseSink{
		name:   opts.Name,
		typ:    typ,
		filter: opts.Filter,
		buffer: opts.Buffer,
		monitor: monitor{
			sent:     valuesSent.With(labels),
			failed:   valuesFailed.With(labels),
			buffered: valuesBuffered.With(labels),
		},
	}
}

func (b *baseSink) Name() string { return b.name }
func (b *baseSink) Type() string { return b.typ }

func (b *baseSink) accept(vls []api.ValueList) []api.ValueList {
	if b.filter == nil {
		return vls
	}
	return b.filter.FilterValues(vls)
}

func (b *baseSink) Close() error {
	if b.buffer != nil {
		return b.buffer.Close()
	}
	return nil
}

// spool keeps vls for a later retry. It reports whether anything was kept.
func (b *baseSink) spool(vls []api.ValueList) bool {
	if b.buffer == nil || !b.buffer.Enabled() {
		return false
	}
	if err := b.buffer.Buffer(vls); err != nil {
		return false
	}
	b.monitor.buffered.Add(float64(len(vls)))
	return true
}

// identifierLine formats a value list the way collectd's text protocol does:
// PUTVAL "host/plugin/type" interval=10.000 1700000000.000:1:2
func identifierLine(vl api.ValueList) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PUTVAL %q", vl.Identifier.String())
	if vl.Interval > 0 {
		fmt.Fprintf(&b, " interval=%.3f", vl.Interval.Seconds())
	}
	fmt.Fprintf(&b, " %.3f", float64(vl.Time.UnixNano())/1e9)
	for _, v := range vl.Values {
		b.WriteByte(':')
		b.WriteString(v.String())
	}
	return b.String()
}
