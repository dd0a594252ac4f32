package config

import (
	"fmt"
	"path/filepath"
	"time"

	"collectd.szuro.net/internal/sink"
	"collectd.szuro.net/pkg/buffer"
	"collectd.szuro.net/pkg/filter"
)

type SinkConf struct {
	Name              string
	Type              string `yaml:"type"`
	Connection        string
	OfflineBufferTime time.Duration       `yaml:"offline_buffer_time"`
	Filter            filter.FilterConfig `yaml:"filter"`
	Options           map[string]string
}

// ToSink builds the configured sink. Its offline buffer lives under the
// working directory.
func (s *SinkConf) ToSink(conf HarnessConf) (sink.Sink, error) {
	f, err := filter.NewFilter(s.Filter)
	if err != nil {
		return nil, fmt.Errorf("sink %s: %w", s.Name, err)
	}

	buf, err := buffer.Open(filepath.Join(conf.WorkingDir, "buffer", s.Name), s.OfflineBufferTime)
	if err != nil {
		return nil, fmt.Errorf("sink %s: failed to open buffer: %w", s.Name, err)
	}

	out, err := sink.New(s.Type, sink.Options{
		Name:       s.Name,
		Connection: s.Connection,
		Filter:     f,
		Buffer:     buf,
		Options:    s.Options,
	})
	if err != nil {
		buf.Close()
		return nil, fmt.Errorf("failed to create sink %s: %w", s.Name, err)
	}
	return out, nil
}
