package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"chartd/internal/controller"
	"chartd/internal/records"
	"chartd/pkg/types"
)

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

// funcController dispatches through a plain function.
type funcController struct {
	ev *controller.MvcEvent
	fn func(ctx context.Context, ev *controller.MvcEvent) (any, error)
}

func (c *funcController) SetEvent(e *controller.MvcEvent) { c.ev = e }
func (c *funcController) Dispatch(ctx context.Context, _ controller.Request, _ controller.Response) (any, error) {
	return c.fn(ctx, c.ev)
}

func newRecordsMux(t *testing.T, requireClinician bool) http.Handler {
	t.Helper()
	reg := controller.NewRegistry(nil)
	records.Register(reg, records.NewStore(""), requireClinician, zerolog.Nop())
	return NewMux(reg)
}

func newFuncMux(fn func(ctx context.Context, ev *controller.MvcEvent) (any, error)) http.Handler {
	reg := controller.NewRegistry(nil)
	reg.Register("probe", func() controller.Dispatchable { return &funcController{fn: fn} })
	return NewMux(reg)
}

func do(h http.Handler, method, target, body string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := do(newRecordsMux(t, false), http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("nosniff header=%q", got)
	}
}

func TestReadyz(t *testing.T) {
	w := do(newRecordsMux(t, false), http.MethodGet, "/readyz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NoControllers(t *testing.T) {
	w := do(NewMux(controller.NewRegistry(nil)), http.MethodGet, "/readyz", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no controllers") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestRoutes_ListsControllers(t *testing.T) {
	w := do(newRecordsMux(t, false), http.MethodGet, "/routes", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var routes []types.RouteInfo
	if err := json.Unmarshal(w.Body.Bytes(), &routes); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(routes) != 2 || routes[0].Controller != "notes" || routes[1].Controller != "patient" {
		t.Fatalf("routes=%+v", routes)
	}
	found := false
	for _, a := range routes[1].Actions {
		if a == "editPatientRecordAction" {
			found = true
		}
	}
	if !found {
		t.Fatalf("patient actions=%v", routes[1].Actions)
	}
}

func TestDispatch_PatientLifecycle(t *testing.T) {
	h := newRecordsMux(t, false)

	w := do(h, http.MethodPost, "/patient/create", `{"mrn":"MRN-1","name":"Ada Lovelace","birth_date":"1815-12-10"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var p types.Patient
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("json: %v", err)
	}
	if p.ID == "" || p.MRN != "MRN-1" {
		t.Fatalf("patient=%+v", p)
	}

	w = do(h, http.MethodGet, "/patient/view/"+p.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("view status=%d body=%s", w.Code, w.Body.String())
	}

	w = do(h, http.MethodPut, "/patient/edit-patient-record/"+p.ID, `{"mrn":"MRN-1","name":"Augusta Ada King"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("edit status=%d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Augusta Ada King") {
		t.Fatalf("edit body=%s", w.Body.String())
	}

	w = do(h, http.MethodGet, "/patient", "")
	if w.Code != http.StatusOK {
		t.Fatalf("index status=%d", w.Code)
	}
	var list types.PatientsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(list.Patients) != 1 {
		t.Fatalf("patients=%+v", list.Patients)
	}
}

func TestDispatch_IDFromQuery(t *testing.T) {
	h := newRecordsMux(t, false)
	w := do(h, http.MethodPost, "/patient/create", `{"mrn":"MRN-Q","name":"Mary Seacole"}`)
	var p types.Patient
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("json: %v", err)
	}

	w = do(h, http.MethodGet, "/patient/view?id="+p.ID, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), p.ID) {
		t.Fatalf("view status=%d body=%s", w.Code, w.Body.String())
	}
	w = do(h, http.MethodGet, "/notes/index?id="+p.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("notes index status=%d body=%s", w.Code, w.Body.String())
	}
	w = do(h, http.MethodGet, "/patient/view", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing id status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestDispatch_NotesDottedAction(t *testing.T) {
	h := newRecordsMux(t, false)
	w := do(h, http.MethodPost, "/patient/create", `{"mrn":"MRN-2","name":"Grace Hopper"}`)
	var p types.Patient
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("json: %v", err)
	}

	w = do(h, http.MethodPost, "/notes/add-note/"+p.ID, `{"body":"follow-up in two weeks"}`, records.ClinicianHeader, "dr-who")
	if w.Code != http.StatusCreated {
		t.Fatalf("add-note status=%d body=%s", w.Code, w.Body.String())
	}

	w = do(h, http.MethodGet, "/notes/view.notes/"+p.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("view.notes status=%d body=%s", w.Code, w.Body.String())
	}
	var notes types.NotesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &notes); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(notes.Notes) != 1 || notes.Notes[0].Author != "dr-who" {
		t.Fatalf("notes=%+v", notes)
	}
}

func TestDispatch_ErrorMapping(t *testing.T) {
	h := newRecordsMux(t, false)
	cases := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"unknown controller", http.MethodGet, "/billing", "", http.StatusNotFound},
		{"unknown action", http.MethodGet, "/patient/discharge", "", http.StatusNotFound},
		{"unknown patient", http.MethodGet, "/patient/view/nope", "", http.StatusNotFound},
		{"wrong method", http.MethodGet, "/patient/create", "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "/patient/create", "{", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(h, tc.method, tc.target, tc.body)
			if w.Code != tc.want {
				t.Fatalf("status=%d want=%d body=%s", w.Code, tc.want, w.Body.String())
			}
			var er types.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v body=%s", err, w.Body.String())
			}
			if er.Code != tc.want || er.Error == "" {
				t.Fatalf("error body=%+v", er)
			}
		})
	}
}

func TestDispatch_RequireClinicianShortCircuits(t *testing.T) {
	h := newRecordsMux(t, true)
	w := do(h, http.MethodGet, "/patient", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	w = do(h, http.MethodGet, "/patient", "", records.ClinicianHeader, "dr-who")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestDispatch_BodyTooLarge(t *testing.T) {
	SetMaxBodyBytes(8)
	defer SetMaxBodyBytes(0)
	w := do(newRecordsMux(t, false), http.MethodPost, "/patient/create", `{"mrn":"MRN-3","name":"too long for the limit"}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestDispatch_HTTPErrorStatus(t *testing.T) {
	h := newFuncMux(func(context.Context, *controller.MvcEvent) (any, error) {
		return nil, fmt.Errorf("wrapped: %w", mockHTTPError{msg: "conflict", code: http.StatusConflict})
	})
	w := do(h, http.MethodGet, "/probe", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestDispatch_PlainErrorIs500(t *testing.T) {
	h := newFuncMux(func(context.Context, *controller.MvcEvent) (any, error) {
		return nil, errors.New("boom")
	})
	w := do(h, http.MethodGet, "/probe", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestDispatch_RouteMatchAndRequestID(t *testing.T) {
	h := newFuncMux(func(_ context.Context, ev *controller.MvcEvent) (any, error) {
		return map[string]any{
			"action":     ev.RouteParam("action"),
			"id":         ev.RouteParam("id"),
			"request_id": ev.Param("request_id"),
			"locator":    ev.Locator() != nil,
		}, nil
	})
	w := do(h, http.MethodGet, "/probe", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["action"] != "index" || body["id"] != "" || body["locator"] != true {
		t.Fatalf("body=%v", body)
	}
	if rid, _ := body["request_id"].(string); rid == "" {
		t.Fatalf("missing request id: %v", body)
	}
}

func TestDispatch_TimeoutMapsTo504(t *testing.T) {
	SetDispatchTimeoutSeconds(1)
	defer SetDispatchTimeoutSeconds(0)
	h := newFuncMux(func(ctx context.Context, _ *controller.MvcEvent) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	w := do(h, http.MethodGet, "/probe/wait", "")
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	SetCORSOptions(true, []string{"https://clinic.example"}, []string{"GET"}, []string{"Content-Type"})
	defer SetCORSOptions(false, nil, nil, nil)
	w := do(newRecordsMux(t, false), http.MethodGet, "/healthz", "", "Origin", "https://clinic.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://clinic.example" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestStatusForError(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"http error": {mockHTTPError{"teapot", http.StatusTeapot}, http.StatusTeapot},
		"status":     {controller.Errorf(http.StatusBadRequest, "bad"), http.StatusBadRequest},
		"deadline":   {fmt.Errorf("x: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		"plain":      {errors.New("boom"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		if got := statusForError(tc.err); got != tc.want {
			t.Fatalf("%s: got %d want %d", name, got, tc.want)
		}
	}
}

func TestRender(t *testing.T) {
	t.Run("value encodes as json", func(t *testing.T) {
		w := httptest.NewRecorder()
		resp := controller.NewHTTPResponse()
		status, err := render(w, w, resp, map[string]string{"k": "v"})
		if err != nil || status != http.StatusOK {
			t.Fatalf("status=%d err=%v", status, err)
		}
		if strings.TrimSpace(w.Body.String()) != `{"k":"v"}` {
			t.Fatalf("body=%q", w.Body.String())
		}
	})
	t.Run("nil sends dispatch response", func(t *testing.T) {
		w := httptest.NewRecorder()
		resp := controller.NewHTTPResponse()
		resp.SetStatusCode(http.StatusAccepted)
		_, _ = resp.Write([]byte("queued"))
		status, err := render(w, w, resp, nil)
		if err != nil || status != http.StatusAccepted || w.Body.String() != "queued" {
			t.Fatalf("status=%d err=%v body=%q", status, err, w.Body.String())
		}
	})
	t.Run("response result wins", func(t *testing.T) {
		w := httptest.NewRecorder()
		other := controller.NewHTTPResponse()
		other.Header().Set("Location", "/patient")
		other.SetStatusCode(http.StatusFound)
		status, err := render(w, w, controller.NewHTTPResponse(), other)
		if err != nil || status != http.StatusFound || w.Header().Get("Location") != "/patient" {
			t.Fatalf("status=%d err=%v hdr=%v", status, err, w.Header())
		}
	})
	t.Run("error response uses its code", func(t *testing.T) {
		w := httptest.NewRecorder()
		status, err := render(w, w, controller.NewHTTPResponse(), types.ErrorResponse{Error: "page not found", Code: http.StatusNotFound})
		if err != nil || status != http.StatusNotFound {
			t.Fatalf("status=%d err=%v", status, err)
		}
	})
	t.Run("unencodable value fails", func(t *testing.T) {
		w := httptest.NewRecorder()
		if _, err := render(w, w, controller.NewHTTPResponse(), make(chan int)); err == nil {
			t.Fatal("expected encode error")
		}
	})
}
