// Package plugin is a named registry of lazily built helper objects that
// controllers look up by name.
package plugin

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a plugin. opts is nil for shared instances.
type Factory func(opts map[string]any) (any, error)

// Invokable plugins can be called directly through a controller.
type Invokable interface {
	Invoke(ctx context.Context, args ...any) (any, error)
}

// ControllerAware plugins receive the controller they serve.
type ControllerAware interface {
	SetController(c any)
}

type entry struct {
	factory Factory
	shared  bool
}

// Manager maps normalized plugin names to factories and caches shared
// instances.
type Manager struct {
	mu         sync.Mutex
	entries    map[string]entry
	aliases    map[string]string
	instances  map[string]any
	controller any
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithController sets the controller injected into ControllerAware plugins.
func WithController(c any) ManagerOption {
	return func(m *Manager) { m.controller = c }
}

// WithFactory registers a shared factory at construction.
func WithFactory(name string, f Factory) ManagerOption {
	return func(m *Manager) { m.register(name, f, true) }
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		entries:   make(map[string]entry),
		aliases:   make(map[string]string),
		instances: make(map[string]any),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterOption tweaks a single registration.
type RegisterOption func(*entry)

// Unshared makes every Get build a fresh instance.
func Unshared() RegisterOption { return func(e *entry) { e.shared = false } }

// Register adds or replaces the factory for name. A replaced factory drops
// any cached instance.
func (m *Manager) Register(name string, f Factory, opts ...RegisterOption) {
	e := entry{factory: f, shared: true}
	for _, opt := range opts {
		opt(&e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.register(name, e.factory, e.shared)
}

func (m *Manager) register(name string, f Factory, shared bool) {
	key := normalize(name)
	m.entries[key] = entry{factory: f, shared: shared}
	delete(m.instances, key)
	delete(m.aliases, key)
}

// Alias makes alias resolve to target.
func (m *Manager) Alias(alias, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliases[normalize(alias)] = normalize(target)
}

// Has reports whether name (or an alias of it) is registered.
func (m *Manager) Has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[m.resolve(name)]
	return ok
}

// Names returns the registered plugin keys, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for k := range m.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns the plugin for name. Non-nil opts always yield a fresh
// instance that is not cached.
func (m *Manager) Get(name string, opts map[string]any) (any, error) {
	m.mu.Lock()
	key := m.resolve(name)
	e, ok := m.entries[key]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound(name)
	}
	cacheable := e.shared && opts == nil
	if cacheable {
		if inst, ok := m.instances[key]; ok {
			m.mu.Unlock()
			return inst, nil
		}
	}
	ctrl := m.controller
	m.mu.Unlock()

	inst, err := e.factory(opts)
	if err != nil {
		return nil, fmt.Errorf("build plugin %q: %w", name, err)
	}
	if ca, ok := inst.(ControllerAware); ok && ctrl != nil {
		ca.SetController(ctrl)
	}
	if cacheable {
		m.mu.Lock()
		if cached, ok := m.instances[key]; ok {
			m.mu.Unlock()
			return cached, nil
		}
		m.instances[key] = inst
		m.mu.Unlock()
	}
	return inst, nil
}

// SetController updates the controller and re-injects it into cached
// ControllerAware instances.
func (m *Manager) SetController(c any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controller = c
	for _, inst := range m.instances {
		if ca, ok := inst.(ControllerAware); ok {
			ca.SetController(c)
		}
	}
}

// Controller returns the injected controller or nil.
func (m *Manager) Controller() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controller
}

func (m *Manager) resolve(name string) string {
	key := normalize(name)
	if target, ok := m.aliases[key]; ok {
		return target
	}
	return key
}

var nameReplacer = strings.NewReplacer("-", "", "_", "", ".", "", " ", "")

// normalize folds case and separators so "Redirect", "redirect" and
// "re-direct" share a key.
func normalize(name string) string {
	return strings.ToLower(nameReplacer.Replace(name))
}
