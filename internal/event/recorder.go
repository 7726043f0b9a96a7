package event

import (
	"context"
	"sync"
)

// Recorder is a listener that keeps the names of the events it sees.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

func NewRecorder() *Recorder { return &Recorder{} }

// Listen is the Listener to attach. It returns nil so it never short-circuits.
func (r *Recorder) Listen(_ context.Context, e Interface) (any, error) {
	r.mu.Lock()
	r.events = append(r.events, e.Name())
	r.mu.Unlock()
	return nil, nil
}

func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}
