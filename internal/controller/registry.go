package controller

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"chartd/internal/event"
	"chartd/internal/plugin"
	"chartd/pkg/types"
)

// Dispatchable is anything the HTTP layer can dispatch.
type Dispatchable interface {
	Dispatch(ctx context.Context, req Request, resp Response) (any, error)
}

// EventAware controllers accept an event prepared by the caller.
type EventAware interface {
	SetEvent(e *MvcEvent)
}

// EventManagerAware controllers accept an event manager.
type EventManagerAware interface {
	SetEventManager(m *event.Manager)
}

// PluginManagerAware controllers accept a plugin manager.
type PluginManagerAware interface {
	SetPluginManager(m *plugin.Manager)
}

// LoggerAware controllers accept a logger.
type LoggerAware interface {
	SetLogger(l zerolog.Logger)
}

// Locator finds controllers by name.
type Locator interface {
	Get(name string) (Dispatchable, error)
	Has(name string) bool
}

// Factory builds a fresh controller.
type Factory func() Dispatchable

// Registry builds controllers per request and wires their collaborators.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	shared    *event.SharedManager
	log       zerolog.Logger
	plugins   []func(*plugin.Manager)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger handed to controllers.
func WithLogger(l zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

// WithPlugins runs fn on every controller's plugin manager after the
// built-ins are registered.
func WithPlugins(fn func(*plugin.Manager)) RegistryOption {
	return func(r *Registry) { r.plugins = append(r.plugins, fn) }
}

// NewRegistry returns a registry whose controllers see listeners on shared.
func NewRegistry(shared *event.SharedManager, opts ...RegistryOption) *Registry {
	if shared == nil {
		shared = event.NewSharedManager()
	}
	r := &Registry{factories: make(map[string]Factory), shared: shared, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Shared returns the shared listener registry.
func (r *Registry) Shared() *event.SharedManager { return r.shared }

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns registered controller names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get builds the named controller with a logger, an event manager bound to
// the shared listeners and a fresh plugin manager.
func (r *Registry) Get(name string) (Dispatchable, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, controllerNotFoundError{name: name}
	}
	c := f()
	if la, ok := c.(LoggerAware); ok {
		la.SetLogger(r.log)
	}
	if em, ok := c.(EventManagerAware); ok {
		em.SetEventManager(event.NewManager(r.shared))
	}
	if pm, ok := c.(PluginManagerAware); ok {
		m := NewPluginManager()
		for _, fn := range r.plugins {
			fn(m)
		}
		pm.SetPluginManager(m)
	}
	return c, nil
}

// Routes lists controllers and, where exposed, their action methods.
func (r *Registry) Routes() []types.RouteInfo {
	var out []types.RouteInfo
	for _, name := range r.Names() {
		rt := types.RouteInfo{Controller: name}
		r.mu.RLock()
		f := r.factories[name]
		r.mu.RUnlock()
		if lister, ok := f().(interface{ Actions() []string }); ok {
			rt.Actions = lister.Actions()
		}
		out = append(out, rt)
	}
	return out
}
