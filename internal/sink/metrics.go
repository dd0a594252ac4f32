package sink

import (
	"fmt"
	"strings"

	"collectd.szuro.net/pkg/api"
)

// series is one data source of a value list, named the way collectd_exporter
// names it.
type series struct {
	name    string
	help    string
	labels  map[string]string
	counter bool
	value   float64
}

// metricName returns collectd_<plugin>_<type>[_<ds>][_total].
func metricName(vl api.ValueList, i int) string {
	name := "collectd_" + vl.Plugin + "_" + vl.Type
	if ds := vl.DSName(i); ds != "value" {
		name += "_" + ds
	}
	if isCounter(vl.Values[i]) {
		name += "_total"
	}
	return sanitize(name)
}

func isCounter(v api.Value) bool {
	switch v.Type() {
	case api.DSTypeCounter, api.DSTypeDerive:
		return true
	}
	return false
}

func metricLabels(vl api.ValueList) map[string]string {
	labels := map[string]string{"instance": vl.Host}
	if vl.PluginInstance != "" {
		labels[sanitize(vl.Plugin)] = vl.PluginInstance
	}
	if vl.TypeInstance != "" {
		labels["type"] = vl.TypeInstance
	}
	return labels
}

func seriesOf(vl api.ValueList) []series {
	out := make([]series, 0, len(vl.Values))
	for i, v := range vl.Values {
		out = append(out, series{
			name: metricName(vl, i),
			help: fmt.Sprintf("Collectd exporter: '%s' Type: '%s' Dstype: '%s' Dsname: '%s'",
				vl.Plugin, vl.Type, v.Type(), vl.DSName(i)),
			labels:  metricLabels(vl),
			counter: isCounter(v),
			value:   v.Float(),
		})
	}
	return out
}

// sanitize replaces characters not allowed in metric and label names.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			return r
		default:
			return '_'
		}
	}, s)
}
