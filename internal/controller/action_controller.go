package controller

import (
	"context"
	"net/http"
	"sort"

	"chartd/pkg/types"
)

// NotFoundMethod is dispatched when the action has no handler.
const NotFoundMethod = "notFoundAction"

// ActionFunc handles one action.
type ActionFunc func(ctx context.Context, e *MvcEvent) (any, error)

// ActionController dispatches to a table of actions keyed by method name.
type ActionController struct {
	*Base
	actions map[string]ActionFunc
}

// NewActionController returns a controller whose event target is self (or
// the ActionController itself when self is nil). indexAction defaults to a
// placeholder until replaced.
func NewActionController(self any, id Identity) *ActionController {
	a := &ActionController{actions: make(map[string]ActionFunc)}
	if self == nil {
		self = a
	}
	a.Base = NewBase(a, id, WithTarget(self))
	a.actions["indexAction"] = func(context.Context, *MvcEvent) (any, error) {
		return map[string]any{"content": "Placeholder page"}, nil
	}
	return a
}

// Handle registers fn under a method name such as "viewNotesAction".
func (a *ActionController) Handle(method string, fn ActionFunc) { a.actions[method] = fn }

// HandleAction registers fn under the method derived from a route action.
func (a *ActionController) HandleAction(action string, fn ActionFunc) {
	a.Handle(MethodFromAction(action), fn)
}

// Actions returns the registered method names, sorted.
func (a *ActionController) Actions() []string {
	out := make([]string, 0, len(a.actions))
	for k := range a.actions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// OnDispatch runs the action named by the "action" route param and stores
// its result on the event.
func (a *ActionController) OnDispatch(ctx context.Context, e *MvcEvent) (any, error) {
	action := e.RouteParam("action")
	if action == "" {
		action = "not-found"
	}
	method := MethodFromAction(action)
	fn, ok := a.actions[method]
	if !ok {
		method = NotFoundMethod
		fn = a.notFoundAction
	}
	e.SetParam("method", method)
	result, err := fn(ctx, e)
	if err != nil {
		return nil, err
	}
	e.SetResult(result)
	return result, nil
}

func (a *ActionController) notFoundAction(_ context.Context, e *MvcEvent) (any, error) {
	if resp := e.Response(); resp != nil {
		resp.SetStatusCode(http.StatusNotFound)
	}
	return types.ErrorResponse{Error: "page not found", Code: http.StatusNotFound}, nil
}
