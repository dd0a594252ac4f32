package plugin

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"collectd.szuro.net/pkg/logger"
)

// Registry holds the managers linked into the shared object.
type Registry struct {
	managers map[string]Manager
	order    []string
	mutex    sync.RWMutex
}

var registry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{managers: make(map[string]Manager)}
}

// GetRegistry returns the process wide registry.
func GetRegistry() *Registry {
	return registry
}

// Register adds m. Names are compared ignoring case, like collectd does.
func (r *Registry) Register(m Manager) error {
	if m == nil {
		return fmt.Errorf("nil manager")
	}
	name := m.Name()
	if err := ValidName(name); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := strings.ToLower(name)
	if _, exists := r.managers[key]; exists {
		return fmt.Errorf("plugin %s is already registered", name)
	}
	r.managers[key] = m
	r.order = append(r.order, key)

	logger.Default().Debug("Registered plugin manager", slog.String("name", name))
	return nil
}

// Lookup returns the manager registered under name, ignoring case.
func (r *Registry) Lookup(name string) (Manager, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	m, exists := r.managers[strings.ToLower(name)]
	return m, exists
}

// Managers returns the managers in registration order.
func (r *Registry) Managers() []Manager {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]Manager, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.managers[key])
	}
	return out
}

// RegisterManager adds m to the process wide registry. It is meant to be
// called from init; a failure is logged as well as returned, since init
// functions usually drop the error.
func RegisterManager(m Manager) error {
	err := registry.Register(m)
	if err != nil {
		logger.Default().Error("Cannot register plugin manager", slog.Any("error", err))
	}
	return err
}

func Managers() []Manager {
	return registry.Managers()
}

func Lookup(name string) (Manager, bool) {
	return registry.Lookup(name)
}
