package records

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"chartd/internal/controller"
	"chartd/internal/event"
	"chartd/pkg/types"
)

// Listener priorities: the clinician check runs before the audit entry so
// rejected requests are not audited, and both run before the action.
const (
	clinicianPriority = 100
	auditPriority     = 90
)

// Register wires the records controllers and listeners into reg.
func Register(reg *controller.Registry, s *Store, requireClinician bool, log zerolog.Logger) {
	reg.Register("patient", func() controller.Dispatchable { return NewPatientController(s) })
	reg.Register("notes", func() controller.Dispatchable { return NewNotesController(s) })
	shared := reg.Shared()
	if requireClinician {
		shared.MustAttach("records.*", controller.EventDispatch, RequireClinician, clinicianPriority)
	}
	shared.MustAttach(AuditedCapability, controller.EventDispatch, AuditTrail(log), auditPriority)
}

// RequireClinician rejects dispatches that carry no clinician header with a
// 401 response, which ends the listener chain.
func RequireClinician(_ context.Context, e event.Interface) (any, error) {
	me, ok := e.(*controller.MvcEvent)
	if !ok {
		return nil, nil
	}
	req, ok := me.Request().(*controller.HTTPRequest)
	if !ok || req.Header().Get(ClinicianHeader) != "" {
		return nil, nil
	}
	resp, ok := me.Response().(*controller.HTTPResponse)
	if !ok {
		return nil, controller.Errorf(http.StatusUnauthorized, "clinician identity required")
	}
	if err := resp.SetJSON(http.StatusUnauthorized, types.ErrorResponse{
		Error: "clinician identity required",
		Code:  http.StatusUnauthorized,
	}); err != nil {
		return nil, err
	}
	return resp, nil
}

// AuditTrail logs who dispatched which records action.
func AuditTrail(log zerolog.Logger) event.Listener {
	return func(_ context.Context, e event.Interface) (any, error) {
		me, ok := e.(*controller.MvcEvent)
		if !ok {
			return nil, nil
		}
		z := log.Info().
			Str("controller", me.RouteParam("controller")).
			Str("action", me.RouteParam("action")).
			Str("id", me.RouteParam("id"))
		if req, ok := me.Request().(*controller.HTTPRequest); ok {
			z = z.Str("method", req.Method()).Str("clinician", req.Header().Get(ClinicianHeader))
		}
		z.Msg("records access")
		return nil, nil
	}
}
