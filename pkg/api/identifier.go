package api

import (
	"fmt"
	"strings"
)

// Identifier names a metric the way collectd does:
// host "/" plugin ["-" plugin_instance] "/" type ["-" type_instance].
type Identifier struct {
	Host           string
	Plugin         string
	PluginInstance string
	Type           string
	TypeInstance   string
}

// String formats the identifier in collectd's canonical form.
func (id Identifier) String() string {
	var b strings.Builder
	b.WriteString(id.Host)
	b.WriteByte('/')
	b.WriteString(id.Plugin)
	if id.PluginInstance != "" {
		b.WriteByte('-')
		b.WriteString(id.PluginInstance)
	}
	b.WriteByte('/')
	b.WriteString(id.Type)
	if id.TypeInstance != "" {
		b.WriteByte('-')
		b.WriteString(id.TypeInstance)
	}
	return b.String()
}

// ParseIdentifier parses the canonical form produced by Identifier.String.
// Instances are split at the first dash, matching the daemon's parser.
func ParseIdentifier(s string) (Identifier, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Identifier{}, fmt.Errorf("invalid identifier %q: want host/plugin/type", s)
	}
	id := Identifier{Host: parts[0]}
	id.Plugin, id.PluginInstance, _ = strings.Cut(parts[1], "-")
	id.Type, id.TypeInstance, _ = strings.Cut(parts[2], "-")
	if id.Host == "" || id.Plugin == "" || id.Type == "" {
		return Identifier{}, fmt.Errorf("invalid identifier %q: empty host, plugin or type", s)
	}
	return id, nil
}

// validate checks every field against the fixed-size arrays of the C ABI.
func (id Identifier) validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"host", id.Host},
		{"plugin", id.Plugin},
		{"plugin_instance", id.PluginInstance},
		{"type", id.Type},
		{"type_instance", id.TypeInstance},
	}
	for _, f := range fields {
		if err := CheckArray(f.value, DataMaxNameLen); err != nil {
			return &FieldError{Field: f.name, Err: err}
		}
	}
	return nil
}
