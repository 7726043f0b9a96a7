package event

// Interface is what listeners receive. Concrete event types embed *Event and
// add their own typed fields; listeners type-assert when they need them.
type Interface interface {
	Name() string
	SetName(name string)
	Target() any
	SetTarget(target any)
	Param(key string) any
	SetParam(key string, v any)
	Params() map[string]any
	StopPropagation(stop bool)
	PropagationIsStopped() bool
}

// Event is a named, mutable context passed to listeners.
type Event struct {
	name    string
	target  any
	params  map[string]any
	stopped bool
}

// New returns an event with the given name and target.
func New(name string, target any) *Event {
	return &Event{name: name, target: target, params: make(map[string]any)}
}

func (e *Event) Name() string        { return e.name }
func (e *Event) SetName(name string) { e.name = name }
func (e *Event) Target() any         { return e.target }
func (e *Event) SetTarget(target any) {
	e.target = target
}

// Param returns the named param or nil.
func (e *Event) Param(key string) any {
	if e.params == nil {
		return nil
	}
	return e.params[key]
}

func (e *Event) SetParam(key string, v any) {
	if e.params == nil {
		e.params = make(map[string]any)
	}
	e.params[key] = v
}

// Params returns a copy of the event params.
func (e *Event) Params() map[string]any {
	out := make(map[string]any, len(e.params))
	for k, v := range e.params {
		out[k] = v
	}
	return out
}

func (e *Event) StopPropagation(stop bool)  { e.stopped = stop }
func (e *Event) PropagationIsStopped() bool { return e.stopped }
