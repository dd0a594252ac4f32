package filter

import (
	"golang.org/x/exp/slices"

	"collectd.szuro.net/pkg/api"
)

type IdentifierFilter struct {
	Accepted []Rule
	Rejected []Rule
	active   bool
}

func NewIdentifierFilter(cfg FilterConfig) (*IdentifierFilter, error) {
	var f IdentifierFilter
	var err error

	if f.Accepted, err = parseRules(cfg.Accepted); err != nil {
		return nil, err
	}
	if f.Rejected, err = parseRules(cfg.Rejected); err != nil {
		return nil, err
	}

	if len(f.Accepted) != 0 || len(f.Rejected) != 0 {
		f.active = true
	}
	return &f, nil
}

func parseRules(raw []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(raw))
	for _, s := range raw {
		r, err := ParseRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func (f *IdentifierFilter) Accept(id api.Identifier) bool {
	return f.identifierFilter(id)
}

func (f *IdentifierFilter) FilterValues(vls []api.ValueList) []api.ValueList {
	accepted := make([]api.ValueList, 0, len(vls))
	for _, vl := range vls {
		if f.identifierFilter(vl.Identifier) {
			accepted = append(accepted, vl)
		}
	}
	return accepted
}

func (f *IdentifierFilter) AcceptNotification(n api.Notification) bool {
	return f.identifierFilter(n.Identifier)
}

// Check if an identifier should be accepted or not
// No rules -> everything is accepted
// only Accepted rules -> identifier must match one of them
// only Rejected rules -> everything except matching identifiers
// both -> accepted identifiers that no rejected rule matches
func (f *IdentifierFilter) identifierFilter(id api.Identifier) bool {
	if !f.active {
		return true
	}
	match := func(r Rule) bool { return r.Match(id) }

	accepted := len(f.Accepted) == 0 || slices.ContainsFunc(f.Accepted, match)
	if slices.ContainsFunc(f.Rejected, match) {
		accepted = false
	}
	return accepted
}
