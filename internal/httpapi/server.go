package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chartd/internal/controller"
	"chartd/pkg/types"
)

// defaultAction is dispatched for /{controller}.
const defaultAction = "index"

type server struct {
	reg *controller.Registry
}

// NewMux mounts controller dispatch and the operational endpoints.
func NewMux(reg *controller.Registry) http.Handler {
	s := &server{reg: reg}
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if len(reg.Names()) > 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no controllers"))
	})

	r.Get("/routes", s.handleRoutes)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	r.HandleFunc("/{controller}", s.handleDispatch)
	r.HandleFunc("/{controller}/{action}", s.handleDispatch)
	r.HandleFunc("/{controller}/{action}/{id}", s.handleDispatch)

	return r
}

// handleRoutes lists the dispatchable controllers.
//
// @Summary  List controllers and actions
// @Produce  json
// @Success  200  {array}  types.RouteInfo
// @Router   /routes [get]
func (s *server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.reg.Routes()); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// handleDispatch builds a controller for the request and dispatches it.
//
// @Summary  Dispatch a controller action
// @Param    controller  path  string  true   "controller name, e.g. patient"
// @Param    action      path  string  false  "action token, e.g. edit-patient-record"
// @Param    id          path  string  false  "record id"
// @Produce  json
// @Success  200  {object}  map[string]any
// @Failure  400  {object}  types.ErrorResponse
// @Failure  401  {object}  types.ErrorResponse
// @Failure  404  {object}  types.ErrorResponse
// @Router   /{controller}/{action}/{id} [get]
func (s *server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lvl := requestLogLevel(r)
	name := chi.URLParam(r, "controller")
	action := chi.URLParam(r, "action")
	if action == "" {
		action = defaultAction
	}

	c, err := s.reg.Get(name)
	if err != nil {
		status := http.StatusInternalServerError
		if controller.IsControllerNotFound(err) {
			status = http.StatusNotFound
			IncrementRejection("unknown_controller")
		}
		writeJSONError(w, status, err.Error())
		logDispatchEnd(r, lvl, status, start, err)
		return
	}

	// Limit body size (configurable, default 1MiB)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		status := http.StatusBadRequest
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			status = http.StatusRequestEntityTooLarge
			IncrementRejection("body_too_large")
		}
		writeJSONError(w, status, "failed to read request body")
		logDispatchEnd(r, lvl, status, start, err)
		return
	}

	ev := controller.NewMvcEvent()
	ev.SetLocator(s.reg)
	match := map[string]string{"controller": name, "action": action}
	if id := chi.URLParam(r, "id"); id != "" {
		match["id"] = id
	}
	ev.SetRouteMatch(match)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		ev.SetParam("request_id", rid)
	}
	if ea, ok := c.(controller.EventAware); ok {
		ea.SetEvent(ev)
	}
	logDispatchStart(r, lvl, name, action)

	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if dispatchTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, time.Duration(dispatchTimeout)*time.Second)
		defer tcancel()
	}

	resp := controller.NewHTTPResponse()
	result, err := c.Dispatch(ctx, controller.RequestFromHTTP(r, body), resp)
	if err != nil {
		// If context was canceled (client disconnect), just return.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := statusForError(err)
		writeJSONError(w, status, err.Error())
		logDispatchEnd(r, lvl, status, start, err)
		return
	}

	var out io.Writer = w
	if lvl >= LevelDebug {
		lw := &loggingLineWriter{}
		defer lw.Flush()
		out = io.MultiWriter(w, lw)
	}
	status, err := render(w, out, resp, result)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		logDispatchEnd(r, lvl, http.StatusInternalServerError, start, err)
		return
	}
	logDispatchEnd(r, lvl, status, start, nil)
}

// statusForError maps dispatch errors to HTTP status codes.
func statusForError(err error) int {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	if controller.IsControllerNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// render writes a dispatch result. Responses are sent as they are; nil sends
// the dispatch response; any other value is encoded as JSON with the
// response's status and headers.
func render(w http.ResponseWriter, body io.Writer, resp *controller.HTTPResponse, result any) (int, error) {
	switch v := result.(type) {
	case nil:
	case *controller.HTTPResponse:
		resp = v
	case controller.Response:
		w.WriteHeader(v.StatusCode())
		_, err := body.Write(v.Content())
		return v.StatusCode(), err
	case types.ErrorResponse:
		if err := resp.SetJSON(v.Code, v); err != nil {
			return 0, err
		}
	default:
		if len(resp.Content()) == 0 {
			if err := resp.SetJSON(resp.StatusCode(), v); err != nil {
				return 0, err
			}
		}
	}
	for k, vs := range resp.Header() {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode())
	_, err := body.Write(resp.Content())
	return resp.StatusCode(), err
}
