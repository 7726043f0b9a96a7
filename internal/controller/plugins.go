package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"chartd/internal/plugin"
)

// Built-in plugin names.
const (
	PluginParams   = "params"
	PluginRedirect = "redirect"
	PluginJSON     = "json"
	PluginForward  = "forward"
)

// maxNestedForwards bounds forward chains.
const maxNestedForwards = 10

// EventProvider is what built-in plugins need from their controller.
type EventProvider interface {
	Event() *MvcEvent
	Request() Request
	Response() Response
}

// NewPluginManager returns a plugin manager with the built-in plugins.
func NewPluginManager(opts ...plugin.ManagerOption) *plugin.Manager {
	m := plugin.NewManager(opts...)
	m.Register(PluginParams, func(map[string]any) (any, error) { return &Params{}, nil })
	m.Register(PluginRedirect, func(map[string]any) (any, error) { return &Redirect{}, nil })
	m.Register(PluginJSON, func(map[string]any) (any, error) { return &JSON{}, nil })
	m.Register(PluginForward, func(opts map[string]any) (any, error) {
		f := &Forward{max: maxNestedForwards}
		if n, ok := opts["max_nested"].(int); ok && n > 0 {
			f.max = n
		}
		return f, nil
	})
	return m
}

// controllerRef is embedded by plugins that serve a controller.
type controllerRef struct{ ctrl any }

func (c *controllerRef) SetController(ctrl any) { c.ctrl = ctrl }

func (c *controllerRef) provider() (EventProvider, error) {
	p, ok := c.ctrl.(EventProvider)
	if !ok {
		return nil, fmt.Errorf("plugin: controller %T does not expose its event", c.ctrl)
	}
	return p, nil
}

func (c *controllerRef) httpResponse() (*HTTPResponse, error) {
	p, err := c.provider()
	if err != nil {
		return nil, err
	}
	resp, ok := p.Response().(*HTTPResponse)
	if !ok {
		return nil, fmt.Errorf("plugin: response %T is not an HTTP response", p.Response())
	}
	return resp, nil
}

// Params reads route, query and header values of the current dispatch.
type Params struct{ controllerRef }

// Invoke with no args returns the plugin; with (name[, default]) it returns
// the route param, else the query param, else default.
func (p *Params) Invoke(_ context.Context, args ...any) (any, error) {
	if len(args) == 0 {
		return p, nil
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("params: name must be a string, got %T", args[0])
	}
	var def any
	if len(args) > 1 {
		def = args[1]
	}
	if v, ok := p.FromRoute(name); ok {
		return v, nil
	}
	if v, ok := p.FromQuery(name); ok {
		return v, nil
	}
	return def, nil
}

// FromRoute returns the matched route param. An empty value counts as
// absent.
func (p *Params) FromRoute(name string) (string, bool) {
	ep, err := p.provider()
	if err != nil {
		return "", false
	}
	v := ep.Event().RouteMatch()[name]
	return v, v != ""
}

// FromQuery returns the first query value for name.
func (p *Params) FromQuery(name string) (string, bool) {
	req := p.httpRequest()
	if req == nil {
		return "", false
	}
	vs, ok := req.Query()[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// FromHeader returns the request header value for name.
func (p *Params) FromHeader(name string) string {
	req := p.httpRequest()
	if req == nil {
		return ""
	}
	return req.Header().Get(name)
}

// FromJSON decodes the request content into v.
func (p *Params) FromJSON(v any) error {
	ep, err := p.provider()
	if err != nil {
		return err
	}
	body := ep.Request().Content()
	if len(body) == 0 {
		return Errorf(http.StatusBadRequest, "request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return Errorf(http.StatusBadRequest, "invalid JSON body")
	}
	return nil
}

func (p *Params) httpRequest() *HTTPRequest {
	ep, err := p.provider()
	if err != nil {
		return nil
	}
	req, _ := ep.Request().(*HTTPRequest)
	return req
}

// Redirect turns the current response into a redirect.
type Redirect struct{ controllerRef }

// Invoke expects a single URL argument.
func (r *Redirect) Invoke(_ context.Context, args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("redirect: expected 1 argument, got %d", len(args))
	}
	url, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("redirect: url must be a string, got %T", args[0])
	}
	return r.ToURL(url)
}

// ToURL sets a 302 with Location and returns the response.
func (r *Redirect) ToURL(url string) (Response, error) {
	resp, err := r.httpResponse()
	if err != nil {
		return nil, err
	}
	resp.Header().Set("Location", url)
	resp.SetStatusCode(http.StatusFound)
	return resp, nil
}

// JSON writes a JSON body onto the current response.
type JSON struct{ controllerRef }

// Invoke expects (status int, value).
func (j *JSON) Invoke(_ context.Context, args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("json: expected 2 arguments, got %d", len(args))
	}
	status, ok := args[0].(int)
	if !ok {
		return nil, fmt.Errorf("json: status must be an int, got %T", args[0])
	}
	return j.Write(status, args[1])
}

// Write encodes v as the response body and returns the response.
func (j *JSON) Write(status int, v any) (Response, error) {
	resp, err := j.httpResponse()
	if err != nil {
		return nil, err
	}
	if err := resp.SetJSON(status, v); err != nil {
		return nil, err
	}
	return resp, nil
}

// Forward dispatches another controller with the current request and
// response.
type Forward struct {
	controllerRef
	max int
}

// Invoke expects (name string[, params map[string]string]).
func (f *Forward) Invoke(ctx context.Context, args ...any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("forward: controller name is required")
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("forward: name must be a string, got %T", args[0])
	}
	var params map[string]string
	if len(args) > 1 {
		if params, ok = args[1].(map[string]string); !ok {
			return nil, fmt.Errorf("forward: params must be map[string]string, got %T", args[1])
		}
	}
	return f.Dispatch(ctx, name, params)
}

// Dispatch locates name through the current event's Locator and dispatches
// it. params override the current route match.
func (f *Forward) Dispatch(ctx context.Context, name string, params map[string]string) (any, error) {
	ep, err := f.provider()
	if err != nil {
		return nil, err
	}
	cur := ep.Event()
	loc := cur.Locator()
	if loc == nil {
		return nil, fmt.Errorf("forward: no controller locator on event")
	}
	depth, _ := cur.Param("forward_depth").(int)
	if depth+1 > f.max {
		return nil, forwardLimitError{depth: f.max}
	}
	target, err := loc.Get(name)
	if err != nil {
		return nil, err
	}

	next := NewMvcEvent()
	next.SetLocator(loc)
	next.SetParam("forward_depth", depth+1)
	match := cur.RouteMatch()
	for k, v := range params {
		match[k] = v
	}
	match["controller"] = name
	next.SetRouteMatch(match)
	if ea, ok := target.(EventAware); ok {
		ea.SetEvent(next)
	}
	return target.Dispatch(ctx, ep.Request(), ep.Response())
}
