// Package controller implements event-driven request dispatch.
//
// A controller embeds Base (or ActionController), which owns the request,
// response, event, event manager and plugin manager for one dispatch. Dispatch
// publishes EventDispatch through the event manager; the controller's own
// OnDispatch is attached as the default listener, and any listener returning a
// Response ends the chain early.
//
// Files by concern:
//
//   - base.go: Base, lazy accessors, event manager binding, plugin calls.
//   - action.go: action-name to method-name mapping.
//   - action_controller.go: ActionController and its action table.
//   - plugins.go: built-in plugins (params, redirect, json, forward).
//   - registry.go: controller Registry and Locator.
//   - message.go / mvc_event.go: request, response and event types.
package controller

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chartd/internal/event"
	"chartd/internal/plugin"
)

// DispatchableIdentifier is carried by every controller's event manager so
// shared listeners can target all controllers at once.
const DispatchableIdentifier = "controller.Dispatchable"

var tracer = otel.Tracer("chartd/internal/controller")

// Handler is implemented by every concrete controller.
type Handler interface {
	OnDispatch(ctx context.Context, e *MvcEvent) (any, error)
}

// Identity names a controller on the event bus. Namespace is dot separated;
// every prefix of it becomes an identifier.
type Identity struct {
	Name         string
	Namespace    string
	Capabilities []string
	Custom       string
}

// Identifiers returns the identifiers registered on an event manager, most
// specific first.
func (id Identity) Identifiers() []string {
	out := []string{id.Name, DispatchableIdentifier}
	if id.Namespace != "" {
		parts := strings.Split(id.Namespace, ".")
		for i := len(parts); i > 0; i-- {
			out = append(out, strings.Join(parts[:i], "."))
		}
	}
	out = append(out, id.Capabilities...)
	if id.Custom != "" {
		out = append(out, id.Custom)
	}
	return out
}

// Base holds per-dispatch state. It is not safe for concurrent dispatches;
// controllers are built per request by the Registry.
type Base struct {
	handler  Handler
	self     any
	identity Identity

	request  Request
	response Response
	event    *MvcEvent

	events        *event.Manager
	defaultHandle event.Handle
	plugins       *plugin.Manager

	log zerolog.Logger
}

// BaseOption configures a Base.
type BaseOption func(*Base)

// WithTarget sets the value used as event target and injected into plugins.
// Defaults to the handler.
func WithTarget(self any) BaseOption {
	return func(b *Base) { b.self = self }
}

// NewBase returns a Base dispatching to h.
func NewBase(h Handler, id Identity, opts ...BaseOption) *Base {
	b := &Base{handler: h, self: h, identity: id, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Base) Identity() Identity { return b.identity }

// Target returns the concrete controller.
func (b *Base) Target() any { return b.self }

func (b *Base) SetLogger(l zerolog.Logger) { b.log = l.With().Str("controller", b.identity.Name).Logger() }
func (b *Base) Logger() zerolog.Logger     { return b.log }

// Dispatch stores req and resp, then publishes EventDispatch until a listener
// returns a Response. It returns that Response, or the event result when no
// listener short-circuits. A nil resp is replaced by the lazy default.
func (b *Base) Dispatch(ctx context.Context, req Request, resp Response) (any, error) {
	ctx, span := tracer.Start(ctx, "controller.dispatch",
		trace.WithAttributes(attribute.String("controller", b.identity.Name)))
	defer span.End()
	start := time.Now()

	if req != nil {
		b.request = req
	}
	if resp != nil {
		b.response = resp
	}
	e := b.Event()
	e.SetName(EventDispatch)
	e.SetRequest(b.Request())
	e.SetResponse(b.Response())
	e.SetTarget(b.self)

	rc, err := b.EventManager().TriggerUntil(ctx, e, isResponse)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observeDispatch(b.identity.Name, outcomeError, start)
		b.log.Debug().Err(err).Str("action", e.RouteParam("action")).Msg("dispatch failed")
		return nil, err
	}
	if rc.Stopped() {
		observeDispatch(b.identity.Name, outcomeShortCircuit, start)
		b.log.Debug().Str("action", e.RouteParam("action")).Int("listeners", rc.Len()).Msg("dispatch short-circuited")
		return rc.Last(), nil
	}
	observeDispatch(b.identity.Name, outcomeResult, start)
	b.log.Debug().Str("action", e.RouteParam("action")).Int("listeners", rc.Len()).Msg("dispatch done")
	return e.Result(), nil
}

func isResponse(v any) bool {
	_, ok := v.(Response)
	return ok
}

// Request returns the stored request, defaulting to an empty GET HTTPRequest.
func (b *Base) Request() Request {
	if b.request == nil {
		b.request = NewHTTPRequest("", "/")
	}
	return b.request
}

// Response returns the stored response, defaulting to an HTTPResponse.
func (b *Base) Response() Response {
	if b.response == nil {
		b.response = NewHTTPResponse()
	}
	return b.response
}

// Event returns the controller's event, creating it on first use.
func (b *Base) Event() *MvcEvent {
	if b.event == nil {
		b.SetEvent(NewMvcEvent())
	}
	return b.event
}

// SetEvent installs e and adopts any request or response it already carries.
func (b *Base) SetEvent(e *MvcEvent) {
	if e.Request() != nil {
		b.request = e.Request()
	}
	if e.Response() != nil {
		b.response = e.Response()
	}
	b.event = e
}

// EventManager returns the bound event manager, creating an unshared one on
// first use.
func (b *Base) EventManager() *event.Manager {
	if b.events == nil {
		b.SetEventManager(event.NewManager(nil))
	}
	return b.events
}

// SetEventManager registers the controller identifiers on m and attaches
// OnDispatch as the default dispatch listener. A listener attached to a
// previously bound manager is removed first.
func (b *Base) SetEventManager(m *event.Manager) {
	if b.events != nil {
		b.events.Detach(b.defaultHandle)
	}
	m.SetIdentifiers(b.identity.Identifiers()...)
	b.events = m
	b.defaultHandle = m.Attach(EventDispatch, b.onDispatch, event.DefaultPriority)
}

func (b *Base) onDispatch(ctx context.Context, e event.Interface) (any, error) {
	me, ok := e.(*MvcEvent)
	if !ok {
		// only MvcEvent carries a request; fall back to ours
		me = b.Event()
	}
	return b.handler.OnDispatch(ctx, me)
}

// PluginManager returns the plugin manager, creating one with the built-in
// plugins on first use.
func (b *Base) PluginManager() *plugin.Manager {
	if b.plugins == nil {
		b.SetPluginManager(NewPluginManager())
	}
	return b.plugins
}

// SetPluginManager installs m and injects this controller into it.
func (b *Base) SetPluginManager(m *plugin.Manager) {
	m.SetController(b.self)
	b.plugins = m
}

// Plugin returns the named plugin instance.
func (b *Base) Plugin(name string, opts map[string]any) (any, error) {
	return b.PluginManager().Get(name, opts)
}

// Call resolves name as a plugin. Invokable plugins are invoked with args and
// their result returned; anything else is returned as is.
func (b *Base) Call(ctx context.Context, name string, args ...any) (any, error) {
	p, err := b.Plugin(name, nil)
	if err != nil {
		return nil, err
	}
	if inv, ok := p.(plugin.Invokable); ok {
		return inv.Invoke(ctx, args...)
	}
	return p, nil
}
