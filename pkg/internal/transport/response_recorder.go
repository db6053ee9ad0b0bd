// Package transport holds HTTP plumbing shared by the server side handlers.
package transport

import (
	"fmt"
	"net/http"
)

// ResponseRecorder buffers the status, headers and body written by a handler,
// so the response can be signed before anything reaches the client.
type ResponseRecorder struct {
	header     http.Header
	written    bool
	statusCode int
	body       []byte
}

func NewResponseRecorder() *ResponseRecorder {
	return &ResponseRecorder{
		header:     make(http.Header),
		statusCode: http.StatusOK,
	}
}

func (r *ResponseRecorder) Header() http.Header {
	return r.header
}

// WriteHeader captures the status code, only the first call counts.
func (r *ResponseRecorder) WriteHeader(statusCode int) {
	if r.written {
		return
	}
	r.statusCode = statusCode
	r.written = true
}

func (r *ResponseRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body = append(r.body, b...)
	return len(b), nil
}

func (r *ResponseRecorder) Body() []byte {
	return r.body
}

func (r *ResponseRecorder) StatusCode() int {
	return r.statusCode
}

// CopyTo copies the recorded response to w, keeping headers already set on w.
func (r *ResponseRecorder) CopyTo(w http.ResponseWriter) error {
	for name, values := range r.header {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	w.WriteHeader(r.statusCode)
	if len(r.body) == 0 {
		return nil
	}
	if _, err := w.Write(r.body); err != nil {
		return fmt.Errorf("failed to write response body: %w", err)
	}
	return nil
}
