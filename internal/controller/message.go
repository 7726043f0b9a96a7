package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Message is the shape shared by requests and responses.
type Message interface {
	Metadata(key string) any
	SetMetadata(key string, v any)
	Content() []byte
	SetContent(b []byte)
}

// Request is an inbound call.
type Request interface {
	Message
	Method() string
	URI() string
}

// Response is the outcome of a dispatch. Returning one from a dispatch
// listener short-circuits the remaining listeners.
type Response interface {
	Message
	StatusCode() int
	SetStatusCode(code int)
}

type metadata map[string]any

func (m *metadata) get(key string) any {
	if *m == nil {
		return nil
	}
	return (*m)[key]
}

func (m *metadata) set(key string, v any) {
	if *m == nil {
		*m = make(metadata)
	}
	(*m)[key] = v
}

// HTTPRequest is the default Request.
type HTTPRequest struct {
	method  string
	uri     string
	header  http.Header
	query   url.Values
	content []byte
	meta    metadata
}

// NewHTTPRequest builds a request for method and uri. An unparsable uri
// yields an empty query.
func NewHTTPRequest(method, uri string) *HTTPRequest {
	if method == "" {
		method = http.MethodGet
	}
	req := &HTTPRequest{method: method, uri: uri, header: make(http.Header), query: url.Values{}}
	if u, err := url.ParseRequestURI(uri); err == nil {
		req.query = u.Query()
	}
	return req
}

// RequestFromHTTP copies r into an HTTPRequest. body is the already read
// request body.
func RequestFromHTTP(r *http.Request, body []byte) *HTTPRequest {
	return &HTTPRequest{
		method:  r.Method,
		uri:     r.URL.RequestURI(),
		header:  r.Header.Clone(),
		query:   r.URL.Query(),
		content: body,
	}
}

func (r *HTTPRequest) Method() string                { return r.method }
func (r *HTTPRequest) URI() string                   { return r.uri }
func (r *HTTPRequest) Header() http.Header           { return r.header }
func (r *HTTPRequest) Query() url.Values             { return r.query }
func (r *HTTPRequest) Metadata(key string) any       { return r.meta.get(key) }
func (r *HTTPRequest) SetMetadata(key string, v any) { r.meta.set(key, v) }
func (r *HTTPRequest) Content() []byte               { return r.content }
func (r *HTTPRequest) SetContent(b []byte)           { r.content = b }

// HTTPResponse is the default Response. The zero status is reported as 200.
type HTTPResponse struct {
	status  int
	header  http.Header
	content bytes.Buffer
	meta    metadata
}

func NewHTTPResponse() *HTTPResponse {
	return &HTTPResponse{status: http.StatusOK, header: make(http.Header)}
}

func (r *HTTPResponse) StatusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *HTTPResponse) SetStatusCode(code int) { r.status = code }

func (r *HTTPResponse) Header() http.Header {
	if r.header == nil {
		r.header = make(http.Header)
	}
	return r.header
}

func (r *HTTPResponse) Metadata(key string) any       { return r.meta.get(key) }
func (r *HTTPResponse) SetMetadata(key string, v any) { r.meta.set(key, v) }
func (r *HTTPResponse) Content() []byte               { return r.content.Bytes() }

func (r *HTTPResponse) SetContent(b []byte) {
	r.content.Reset()
	r.content.Write(b)
}

// Write appends to the body.
func (r *HTTPResponse) Write(p []byte) (int, error) { return r.content.Write(p) }

// SetJSON replaces the body with v encoded as JSON.
func (r *HTTPResponse) SetJSON(status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode json body: %w", err)
	}
	r.Header().Set("Content-Type", "application/json")
	r.SetStatusCode(status)
	r.SetContent(append(b, '\n'))
	return nil
}

// Send copies status, headers and body to w.
func (r *HTTPResponse) Send(w http.ResponseWriter) error {
	for k, vs := range r.header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(r.StatusCode())
	_, err := w.Write(r.content.Bytes())
	return err
}
