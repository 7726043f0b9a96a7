package controller

import "chartd/internal/event"

// EventDispatch is the event published by Dispatch.
const EventDispatch = "dispatch"

// MvcEvent carries the request, response and result of a dispatch.
type MvcEvent struct {
	*event.Event
	request    Request
	response   Response
	result     any
	routeMatch map[string]string
	locator    Locator
}

func NewMvcEvent() *MvcEvent {
	return &MvcEvent{Event: event.New("", nil), routeMatch: make(map[string]string)}
}

func (e *MvcEvent) Request() Request        { return e.request }
func (e *MvcEvent) SetRequest(r Request)    { e.request = r }
func (e *MvcEvent) Response() Response      { return e.response }
func (e *MvcEvent) SetResponse(r Response)  { e.response = r }
func (e *MvcEvent) Result() any             { return e.result }
func (e *MvcEvent) SetResult(v any)         { e.result = v }
func (e *MvcEvent) Locator() Locator        { return e.locator }
func (e *MvcEvent) SetLocator(l Locator)    { e.locator = l }
func (e *MvcEvent) RouteParam(k string) string {
	return e.routeMatch[k]
}

// RouteMatch returns a copy of the matched route params.
func (e *MvcEvent) RouteMatch() map[string]string {
	out := make(map[string]string, len(e.routeMatch))
	for k, v := range e.routeMatch {
		out[k] = v
	}
	return out
}

// SetRouteMatch replaces the route params.
func (e *MvcEvent) SetRouteMatch(params map[string]string) {
	e.routeMatch = make(map[string]string, len(params))
	for k, v := range params {
		e.routeMatch[k] = v
	}
}

func (e *MvcEvent) SetRouteParam(k, v string) {
	if e.routeMatch == nil {
		e.routeMatch = make(map[string]string)
	}
	e.routeMatch[k] = v
}
