package event

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gobwas/glob"
)

type sharedRegistration struct {
	registration
	pattern string
	match   glob.Glob
}

// SharedManager holds listeners targeted at identifiers rather than at a
// single Manager. Patterns use glob syntax with '.' as separator, so
// "records.*" matches "records.patient" but not "records.controller.x".
type SharedManager struct {
	mu        sync.RWMutex
	listeners []*sharedRegistration
	seq       uint64
}

// NewSharedManager returns an empty shared manager.
func NewSharedManager() *SharedManager { return &SharedManager{} }

// SharedHandle identifies a shared listener for Detach.
type SharedHandle struct{ id uint64 }

// Attach registers l for the named event on every manager carrying an
// identifier matching pattern.
func (s *SharedManager) Attach(pattern, name string, l Listener, priority int) (SharedHandle, error) {
	g, err := glob.Compile(pattern, '.')
	if err != nil {
		return SharedHandle{}, fmt.Errorf("compile identifier pattern %q: %w", pattern, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.listeners = append(s.listeners, &sharedRegistration{
		registration: registration{id: s.seq, name: name, priority: priority, listener: l},
		pattern:      pattern,
		match:        g,
	})
	return SharedHandle{id: s.seq}, nil
}

// MustAttach is Attach for static patterns; it panics on a bad pattern.
func (s *SharedManager) MustAttach(pattern, name string, l Listener, priority int) SharedHandle {
	h, err := s.Attach(pattern, name, l, priority)
	if err != nil {
		panic(err)
	}
	return h
}

// Detach removes a shared listener.
func (s *SharedManager) Detach(h SharedHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.listeners {
		if r.id == h.id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Patterns returns the distinct identifier patterns with listeners, sorted.
func (s *SharedManager) Patterns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, r := range s.listeners {
		out = appendUnique(out, r.pattern)
	}
	sort.Strings(out)
	return out
}

func (s *SharedManager) listenersFor(identifiers []string, name string) []*registration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*registration
	for _, r := range s.listeners {
		if r.name != name && r.name != Wildcard {
			continue
		}
		for _, id := range identifiers {
			if r.match.Match(id) {
				reg := r.registration
				out = append(out, &reg)
				break
			}
		}
	}
	return out
}
