package plugin

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"collectd.szuro.net/pkg/api"
)

var (
	ErrNoPlugins      = errors.New("registration holds no plugins")
	ErrNoCapabilities = errors.New("plugin implements no callback interface")
)

// Registration is what a Manager returns: one plugin, or several plugins
// keyed by instance name.
type Registration struct {
	single   any
	multiple map[string]any
}

// Single registers p under the manager's name.
func Single(p any) Registration {
	return Registration{single: p}
}

// Multiple registers every plugin under "name/instance".
func Multiple(plugins map[string]any) Registration {
	return Registration{multiple: plugins}
}

// Entry is one plugin to register with the daemon.
type Entry struct {
	// Name is the callback name, "name" or "name/instance".
	Name     string
	Instance string
	Plugin   any
	Caps     Capabilities
}

// Entries expands the registration for manager name. Instances are sorted so
// callbacks are registered in a stable order.
func (r Registration) Entries(name string) ([]Entry, error) {
	if r.single != nil {
		e, err := newEntry(name, "", r.single)
		if err != nil {
			return nil, err
		}
		return []Entry{e}, nil
	}
	if len(r.multiple) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoPlugins)
	}

	instances := make([]string, 0, len(r.multiple))
	for k := range r.multiple {
		instances = append(instances, k)
	}
	sort.Strings(instances)

	entries := make([]Entry, 0, len(instances))
	for _, inst := range instances {
		if inst == "" {
			return nil, fmt.Errorf("%s: empty instance name", name)
		}
		e, err := newEntry(name, inst, r.multiple[inst])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func newEntry(name, instance string, p any) (Entry, error) {
	full := name
	if instance != "" {
		full = name + "/" + instance
	}
	if err := api.CheckArray(full, api.DataMaxNameLen); err != nil {
		return Entry{}, fmt.Errorf("callback name %q: %w", full, err)
	}
	if p == nil {
		return Entry{}, fmt.Errorf("%s: nil plugin", full)
	}
	caps := CapabilitiesOf(p)
	if caps == 0 {
		return Entry{}, fmt.Errorf("%s: %w", full, ErrNoCapabilities)
	}
	return Entry{Name: full, Instance: instance, Plugin: p, Caps: caps}, nil
}

// ValidName checks a manager name can be used in collectd.conf.
func ValidName(name string) error {
	if name == "" {
		return errors.New("empty plugin name")
	}
	if strings.ContainsAny(name, "/ \t") {
		return fmt.Errorf("plugin name %q contains '/' or whitespace", name)
	}
	return api.CheckArray(name, api.DataMaxNameLen)
}
