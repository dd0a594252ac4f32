// Package filter decides which value lists and notifications a writer or
// sink handles, based on glob rules over identifier fields.
package filter

import (
	"fmt"
	"path"
	"strings"

	"collectd.szuro.net/pkg/api"
)

type Filter interface {
	Accept(id api.Identifier) bool
	FilterValues(vls []api.ValueList) []api.ValueList
	AcceptNotification(n api.Notification) bool
}

// FilterConfig lists rules of the form "field:pattern", e.g. "plugin:cpu" or
// "type_instance:idle*". Patterns use path.Match syntax.
//
// In collectd.conf:
//
//	<Filter>
//	    Accept "plugin:cpu"
//	    Reject "type_instance:steal"
//	</Filter>
type FilterConfig struct {
	Accepted []string `yaml:"accepted" collectd:"Accept"`
	Rejected []string `yaml:"rejected" collectd:"Reject"`
}

// Field names accepted in rules.
const (
	FieldHost           = "host"
	FieldPlugin         = "plugin"
	FieldPluginInstance = "plugin_instance"
	FieldType           = "type"
	FieldTypeInstance   = "type_instance"
)

// Rule matches one identifier field against a glob pattern.
type Rule struct {
	Field   string
	Pattern string
}

// ParseRule parses "field:pattern".
func ParseRule(s string) (Rule, error) {
	field, pattern, ok := strings.Cut(s, ":")
	if !ok {
		return Rule{}, fmt.Errorf("rule %q: expected field:pattern", s)
	}
	r := Rule{Field: strings.ToLower(strings.TrimSpace(field)), Pattern: strings.TrimSpace(pattern)}
	switch r.Field {
	case FieldHost, FieldPlugin, FieldPluginInstance, FieldType, FieldTypeInstance:
	default:
		return Rule{}, fmt.Errorf("rule %q: unknown field %q", s, r.Field)
	}
	if _, err := path.Match(r.Pattern, ""); err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", s, err)
	}
	return r, nil
}

func (r Rule) Match(id api.Identifier) bool {
	var v string
	switch r.Field {
	case FieldHost:
		v = id.Host
	case FieldPlugin:
		v = id.Plugin
	case FieldPluginInstance:
		v = id.PluginInstance
	case FieldType:
		v = id.Type
	case FieldTypeInstance:
		v = id.TypeInstance
	}
	ok, _ := path.Match(r.Pattern, v)
	return ok
}

func (r Rule) String() string {
	return r.Field + ":" + r.Pattern
}

// NewFilter builds a filter from cfg. Without rules it returns an EmptyFilter.
func NewFilter(cfg FilterConfig) (Filter, error) {
	if len(cfg.Accepted) == 0 && len(cfg.Rejected) == 0 {
		return NewEmptyFilter(), nil
	}
	return NewIdentifierFilter(cfg)
}
