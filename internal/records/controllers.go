package records

import (
	"context"
	"fmt"
	"net/http"

	"chartd/internal/controller"
	"chartd/pkg/types"
)

// Identifiers shared listeners use to target records controllers.
const (
	Namespace         = "records.controller"
	AuditedCapability = "records.Audited"
	ClinicianHeader   = "X-Clinician"
)

// PatientController serves patient demographics.
type PatientController struct {
	*controller.ActionController
	store *Store
}

func NewPatientController(s *Store) *PatientController {
	c := &PatientController{store: s}
	c.ActionController = controller.NewActionController(c, controller.Identity{
		Name:         "records.patient",
		Namespace:    Namespace,
		Capabilities: []string{AuditedCapability},
	})
	c.HandleAction("index", c.indexAction)
	c.HandleAction("view", c.viewAction)
	c.HandleAction("create", c.createAction)
	c.HandleAction("edit-patient-record", c.editPatientRecordAction)
	return c
}

func (c *PatientController) indexAction(context.Context, *controller.MvcEvent) (any, error) {
	return types.PatientsResponse{Patients: c.store.ListPatients()}, nil
}

func (c *PatientController) viewAction(ctx context.Context, _ *controller.MvcEvent) (any, error) {
	id, err := requiredID(ctx, c.ActionController)
	if err != nil {
		return nil, err
	}
	p, err := c.store.Patient(id)
	if err != nil {
		return nil, statusFor(err)
	}
	return p, nil
}

func (c *PatientController) createAction(ctx context.Context, e *controller.MvcEvent) (any, error) {
	if err := requireMethod(e, http.MethodPost); err != nil {
		return nil, err
	}
	var in types.PatientInput
	if err := decodeBody(ctx, c.ActionController, &in); err != nil {
		return nil, err
	}
	p, err := c.store.CreatePatient(in)
	if err != nil {
		return nil, statusFor(err)
	}
	return c.Call(ctx, controller.PluginJSON, http.StatusCreated, p)
}

func (c *PatientController) editPatientRecordAction(ctx context.Context, e *controller.MvcEvent) (any, error) {
	if err := requireMethod(e, http.MethodPost, http.MethodPut); err != nil {
		return nil, err
	}
	id, err := requiredID(ctx, c.ActionController)
	if err != nil {
		return nil, err
	}
	var in types.PatientInput
	if err := decodeBody(ctx, c.ActionController, &in); err != nil {
		return nil, err
	}
	p, err := c.store.UpdatePatient(id, in)
	if err != nil {
		return nil, statusFor(err)
	}
	return p, nil
}

// NotesController serves clinical notes for a patient.
type NotesController struct {
	*controller.ActionController
	store *Store
}

func NewNotesController(s *Store) *NotesController {
	c := &NotesController{store: s}
	c.ActionController = controller.NewActionController(c, controller.Identity{
		Name:         "records.notes",
		Namespace:    Namespace,
		Capabilities: []string{AuditedCapability},
	})
	c.HandleAction("view.notes", c.viewNotesAction)
	c.HandleAction("add-note", c.addNoteAction)
	// the bare controller URL lists notes too
	c.HandleAction("index", c.viewNotesAction)
	return c
}

func (c *NotesController) viewNotesAction(ctx context.Context, _ *controller.MvcEvent) (any, error) {
	id, err := requiredID(ctx, c.ActionController)
	if err != nil {
		return nil, err
	}
	notes, err := c.store.Notes(id)
	if err != nil {
		return nil, statusFor(err)
	}
	return types.NotesResponse{PatientID: id, Notes: notes}, nil
}

func (c *NotesController) addNoteAction(ctx context.Context, e *controller.MvcEvent) (any, error) {
	if err := requireMethod(e, http.MethodPost); err != nil {
		return nil, err
	}
	id, err := requiredID(ctx, c.ActionController)
	if err != nil {
		return nil, err
	}
	var in types.NoteInput
	if err := decodeBody(ctx, c.ActionController, &in); err != nil {
		return nil, err
	}
	author, err := c.Call(ctx, controller.PluginParams)
	if err != nil {
		return nil, err
	}
	params, ok := author.(*controller.Params)
	if !ok {
		return nil, fmt.Errorf("params plugin: unexpected type %T", author)
	}
	n, err := c.store.AddNote(id, params.FromHeader(ClinicianHeader), in)
	if err != nil {
		return nil, statusFor(err)
	}
	return c.Call(ctx, controller.PluginJSON, http.StatusCreated, n)
}

func requiredID(ctx context.Context, c *controller.ActionController) (string, error) {
	v, err := c.Call(ctx, controller.PluginParams, "id", "")
	if err != nil {
		return "", err
	}
	id, _ := v.(string)
	if id == "" {
		return "", controller.Errorf(http.StatusBadRequest, "patient id is required")
	}
	return id, nil
}

func decodeBody(ctx context.Context, c *controller.ActionController, v any) error {
	p, err := c.Call(ctx, controller.PluginParams)
	if err != nil {
		return err
	}
	params, ok := p.(*controller.Params)
	if !ok {
		return fmt.Errorf("params plugin: unexpected type %T", p)
	}
	return params.FromJSON(v)
}

func requireMethod(e *controller.MvcEvent, allowed ...string) error {
	m := http.MethodGet
	if req := e.Request(); req != nil {
		m = req.Method()
	}
	for _, a := range allowed {
		if m == a {
			return nil
		}
	}
	return controller.Errorf(http.StatusMethodNotAllowed, "method %s not allowed", m)
}

func statusFor(err error) error {
	switch {
	case IsNotFound(err):
		return controller.Errorf(http.StatusNotFound, "%s", err.Error())
	case IsInvalid(err):
		return controller.Errorf(http.StatusBadRequest, "%s", err.Error())
	default:
		return err
	}
}
