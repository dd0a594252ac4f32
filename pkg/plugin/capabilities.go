package plugin

import "strings"

// Capabilities is the set of callbacks a plugin is registered for.
type Capabilities uint8

const (
	CapRead Capabilities = 1 << iota
	CapWrite
	CapLog
	CapFlush
	CapNotification
	CapShutdown
)

var capNames = []struct {
	c    Capabilities
	name string
}{
	{CapRead, "read"},
	{CapWrite, "write"},
	{CapLog, "log"},
	{CapFlush, "flush"},
	{CapNotification, "notification"},
	{CapShutdown, "shutdown"},
}

func (c Capabilities) Has(o Capabilities) bool {
	return c&o == o
}

func (c Capabilities) String() string {
	var parts []string
	for _, cn := range capNames {
		if c.Has(cn.c) {
			parts = append(parts, cn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Capable lets a plugin register fewer callbacks than it implements, e.g. a
// type that implements Writer but only wants to write when configured to.
type Capable interface {
	Capabilities() Capabilities
}

// CapabilitiesOf returns the callbacks p is registered for.
func CapabilitiesOf(p any) Capabilities {
	var c Capabilities
	if _, ok := p.(Reader); ok {
		c |= CapRead
	}
	if _, ok := p.(Writer); ok {
		c |= CapWrite
	}
	if _, ok := p.(Logger); ok {
		c |= CapLog
	}
	if _, ok := p.(Flusher); ok {
		c |= CapFlush
	}
	if _, ok := p.(Notifier); ok {
		c |= CapNotification
	}
	if _, ok := p.(Shutdowner); ok {
		c |= CapShutdown
	}
	if cp, ok := p.(Capable); ok {
		c &= cp.Capabilities()
	}
	return c
}
