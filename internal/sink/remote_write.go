package sink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"time"

	"collectd.szuro.net/pkg/api"
	"github.com/m3db/prometheus_remote_client_golang/promremote"
	"github.com/prometheus/prometheus/prompb"
)

const userAgent = "collectd-harness remote_write"

// RemoteWrite sends value lists to a Prometheus remote write endpoint.
// Retryable failures are spooled to the buffer and sent again after the next
// successful write.
type RemoteWrite struct {
	baseSink
	client promremote.Client
}

func NewRemoteWrite(opts Options) (*RemoteWrite, error) {
	if opts.Connection == "" {
		return nil, fmt.Errorf("%s: remote write URL is required", opts.Name)
	}
	cfgOpts := []promremote.ConfigOption{
		promremote.WriteURLOption(opts.Connection),
		promremote.UserAgent(userAgent),
	}
	if t, ok := opts.Options["timeout"]; ok {
		d, err := time.ParseDuration(t)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid timeout: %w", opts.Name, err)
		}
		cfgOpts = append(cfgOpts, promremote.HTTPClientTimeoutOption(d))
	}

	client, err := promremote.NewClient(promremote.NewConfig(cfgOpts...))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to construct client: %w", opts.Name, err)
	}
	return &RemoteWrite{baseSink: newBaseSink(REMOTEWRITE, opts), client: client}, nil
}

func (r *RemoteWrite) Write(ctx context.Context, vls []api.ValueList) error {
	vls = r.accept(vls)
	if len(vls) == 0 {
		return nil
	}

	counter := float64(len(vls))
	if err := r.send(ctx, vls); err != nil {
		r.monitor.failed.Add(counter)
		if retryable(err) && r.spool(vls) {
			return fmt.Errorf("%s: write failed, %d value lists buffered: %w", r.name, len(vls), err)
		}
		return fmt.Errorf("%s: write failed: %w", r.name, err)
	}
	r.monitor.sent.Add(counter)
	return r.resend(ctx, len(vls))
}

// resend sends up to n buffered value lists.
func (r *RemoteWrite) resend(ctx context.Context, n int) error {
	if r.buffer == nil || !r.buffer.Enabled() {
		return nil
	}
	buffered, err := r.buffer.Fetch(n)
	if err != nil || len(buffered) == 0 {
		return err
	}
	if err := r.send(ctx, buffered); err != nil {
		return fmt.Errorf("%s: resending buffered values failed: %w", r.name, err)
	}
	r.monitor.sent.Add(float64(len(buffered)))
	return r.buffer.Delete(buffered)
}

func (r *RemoteWrite) send(ctx context.Context, vls []api.ValueList) error {
	_, werr := r.client.WriteProto(ctx, toWriteRequest(vls), promremote.WriteOptions{})
	if werr != nil {
		return werr
	}
	return nil
}

// retryable reports whether a write may succeed later: network errors, 5xx
// and 429 responses.
func retryable(err error) bool {
	var werr promremote.WriteError
	if !errors.As(err, &werr) {
		return true
	}
	code := werr.StatusCode()
	return code == 0 || code == http.StatusTooManyRequests || code >= 500
}

func toWriteRequest(vls []api.ValueList) *prompb.WriteRequest {
	promTS := make(map[string]*prompb.TimeSeries)
	for _, vl := range vls {
		ts := vl.Time.UnixMilli()
		for _, s := range seriesOf(vl) {
			labels := []prompb.Label{{Name: "__name__", Value: s.name}}
			for k, v := range s.labels {
				labels = append(labels, prompb.Label{Name: k, Value: v})
			}
			sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })

			key := seriesKey(labels)
			sample := prompb.Sample{Value: s.value, Timestamp: ts}
			if existing, ok := promTS[key]; ok {
				existing.Samples = append(existing.Samples, sample)
				continue
			}
			promTS[key] = &prompb.TimeSeries{Labels: labels, Samples: []prompb.Sample{sample}}
		}
	}

	keys := make([]string, 0, len(promTS))
	for k := range promTS {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	wr := &prompb.WriteRequest{Timeseries: make([]prompb.TimeSeries, 0, len(promTS))}
	for _, k := range keys {
		ts := promTS[k]
		// Samples of one series must be sent in timestamp order.
		slices.SortFunc(ts.Samples, timestampSort)
		wr.Timeseries = append(wr.Timeseries, *ts)
	}
	return wr
}

func seriesKey(labels []prompb.Label) string {
	var key []byte
	for _, l := range labels {
		key = append(key, l.Name...)
		key = append(key, 0xff)
		key = append(key, l.Value...)
		key = append(key, 0xfe)
	}
	return string(key)
}

func timestampSort(i, j prompb.Sample) int {
	switch {
	case i.Timestamp < j.Timestamp:
		return -1
	case i.Timestamp > j.Timestamp:
		return 1
	}
	return 0
}
