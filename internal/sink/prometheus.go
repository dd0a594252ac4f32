package sink

import (
	"context"
	"sync"
	"time"

	"collectd.szuro.net/pkg/api"
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exposes the latest value of every identifier as metrics. Values
// older than twice their interval are dropped.
type Prometheus struct {
	baseSink
	mutex  sync.Mutex
	values map[string]api.ValueList
	now    func() time.Time
}

// NewPrometheus creates the sink and registers it with reg.
func NewPrometheus(opts Options, reg prometheus.Registerer) (*Prometheus, error) {
	p := newCollector(PROMETHEUS, opts)
	if reg != nil {
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func newCollector(typ string, opts Options) *Prometheus {
	return &Prometheus{
		baseSink: newBaseSink(typ, opts),
		values:   make(map[string]api.ValueList),
		now:      time.Now,
	}
}

func (p *Prometheus) Write(ctx context.Context, vls []api.ValueList) error {
	vls = p.accept(vls)
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for _, vl := range vls {
		p.values[vl.Identifier.String()] = vl.Clone()
		p.monitor.sent.Inc()
	}
	return nil
}

// Describe sends nothing, the collector is unchecked: its metrics depend on
// what plugins dispatch.
func (p *Prometheus) Describe(ch chan<- *prometheus.Desc) {}

func (p *Prometheus) Collect(ch chan<- prometheus.Metric) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	now := p.now()
	for key, vl := range p.values {
		if vl.Interval > 0 && now.Sub(vl.Time) > 2*vl.Interval {
			delete(p.values, key)
			continue
		}
		for _, s := range seriesOf(vl) {
			valueType := prometheus.GaugeValue
			if s.counter {
				valueType = prometheus.CounterValue
			}
			desc := prometheus.NewDesc(s.name, s.help, nil, s.labels)
			m, err := prometheus.NewConstMetric(desc, valueType, s.value)
			if err != nil {
				m = prometheus.NewInvalidMetric(desc, err)
			}
			ch <- m
		}
	}
}
