package sink

import (
	"context"
	"fmt"
	"os"

	"collectd.szuro.net/pkg/api"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Pushgateway pushes the latest values to a Prometheus Pushgateway after
// every write.
type Pushgateway struct {
	*Prometheus
	pusher *push.Pusher
}

func NewPushgateway(opts Options) (*Pushgateway, error) {
	if opts.Connection == "" {
		return nil, fmt.Errorf("%s: pushgateway URL is required", opts.Name)
	}
	job := opts.Options["job_name"]
	if job == "" {
		job = "collectd"
	}
	instance := opts.Options["instance"]
	if instance == "" {
		instance, _ = os.Hostname()
	}

	collector := newCollector(PUSHGATEWAY, opts)
	return &Pushgateway{
		Prometheus: collector,
		pusher: push.New(opts.Connection, job).
			Collector(collector).
			Grouping("instance", instance),
	}, nil
}

func (p *Pushgateway) Write(ctx context.Context, vls []api.ValueList) error {
	if err := p.Prometheus.Write(ctx, vls); err != nil {
		return err
	}
	if err := p.pusher.PushContext(ctx); err != nil {
		p.monitor.failed.Add(float64(len(vls)))
		return fmt.Errorf("%s: push failed: %w", p.name, err)
	}
	return nil
}
