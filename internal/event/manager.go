// Package event provides a synchronous publish/subscribe bus used to hook
// lifecycle listeners into controller dispatch.
//
// A Manager owns local listeners keyed by event name and a list of
// identifiers. A SharedManager holds listeners keyed by identifier pattern;
// every Manager created against it picks those up when its identifiers match.
package event

import (
	"context"
	"sort"
	"sync"
)

// Wildcard attaches a listener to every event name.
const Wildcard = "*"

// DefaultPriority is used by callers that have no ordering preference.
const DefaultPriority = 1

// Listener handles an event. A non-nil error aborts the trigger.
type Listener func(ctx context.Context, e Interface) (any, error)

// Handle identifies an attached listener for Detach.
type Handle struct {
	name string
	id   uint64
}

type registration struct {
	id       uint64
	name     string
	priority int
	listener Listener
}

// Manager dispatches events to listeners in priority order.
type Manager struct {
	mu          sync.RWMutex
	shared      *SharedManager
	identifiers []string
	listeners   map[string][]*registration
	seq         uint64
}

// NewManager returns a manager bound to shared (which may be nil).
func NewManager(shared *SharedManager, identifiers ...string) *Manager {
	m := &Manager{
		shared:    shared,
		listeners: make(map[string][]*registration),
	}
	m.SetIdentifiers(identifiers...)
	return m
}

// SetIdentifiers replaces the identifier list.
func (m *Manager) SetIdentifiers(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identifiers = appendUnique(nil, ids...)
}

// AddIdentifiers appends identifiers not already present.
func (m *Manager) AddIdentifiers(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identifiers = appendUnique(m.identifiers, ids...)
}

// Identifiers returns a copy of the identifier list.
func (m *Manager) Identifiers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.identifiers...)
}

// Shared returns the shared manager, if any.
func (m *Manager) Shared() *SharedManager { return m.shared }

// Attach registers l for the named event. Higher priority runs first.
func (m *Manager) Attach(name string, l Listener, priority int) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	r := &registration{id: m.seq, name: name, priority: priority, listener: l}
	m.listeners[name] = append(m.listeners[name], r)
	return Handle{name: name, id: r.id}
}

// Detach removes a listener previously returned by Attach.
func (m *Manager) Detach(h Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	regs := m.listeners[h.name]
	for i, r := range regs {
		if r.id == h.id {
			m.listeners[h.name] = append(regs[:i:i], regs[i+1:]...)
			return true
		}
	}
	return false
}

// ClearListeners removes every local listener for name.
func (m *Manager) ClearListeners(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listeners, name)
}

// Trigger runs every listener for e.
func (m *Manager) Trigger(ctx context.Context, e Interface) (*ResponseCollection, error) {
	return m.TriggerUntil(ctx, e, nil)
}

// TriggerUntil runs listeners for e until one returns a value for which
// until reports true, or a listener stops propagation. Listener errors are
// returned as-is together with the results collected so far.
func (m *Manager) TriggerUntil(ctx context.Context, e Interface, until func(any) bool) (*ResponseCollection, error) {
	// a stop flag left over from a previous trigger must not leak
	e.StopPropagation(false)
	rc := &ResponseCollection{}
	for _, r := range m.listenersFor(e.Name()) {
		res, err := r.listener(ctx, e)
		if err != nil {
			return rc, err
		}
		rc.push(res)
		if e.PropagationIsStopped() {
			rc.stopped = true
			break
		}
		if until != nil && until(res) {
			rc.stopped = true
			break
		}
	}
	return rc, nil
}

// listenersFor merges local and shared listeners. Sort is stable so equal
// priorities keep registration order with locals ahead of shared ones.
func (m *Manager) listenersFor(name string) []*registration {
	m.mu.RLock()
	out := make([]*registration, 0, len(m.listeners[name])+len(m.listeners[Wildcard]))
	out = append(out, m.listeners[name]...)
	if name != Wildcard {
		out = append(out, m.listeners[Wildcard]...)
	}
	ids := append([]string(nil), m.identifiers...)
	m.mu.RUnlock()

	// locals attached to name and Wildcard interleave by id
	sort.SliceStable(out, func(i, j int) bool { return out[i].id < out[j].id })
	if m.shared != nil {
		out = append(out, m.shared.listenersFor(ids, name)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].priority > out[j].priority })
	return out
}

func appendUnique(dst []string, ids ...string) []string {
	seen := make(map[string]struct{}, len(dst)+len(ids))
	for _, id := range dst {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		dst = append(dst, id)
	}
	return dst
}
