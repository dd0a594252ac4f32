package filter

import "collectd.szuro.net/pkg/api"

type EmptyFilter struct{}

func NewEmptyFilter() *EmptyFilter {
	var f EmptyFilter
	return &f
}

func (f *EmptyFilter) Accept(id api.Identifier) bool {
	return true
}

func (f *EmptyFilter) FilterValues(vls []api.ValueList) []api.ValueList {
	return vls
}

func (f *EmptyFilter) AcceptNotification(n api.Notification) bool {
	return true
}
