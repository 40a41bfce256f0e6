package oicp

import (
	"fmt"
	"reflect"
	"time"
)

// Request is implemented by every message sent to a partner.
type Request interface {
	// Operation returns the name of the remote procedure the request belongs to.
	Operation() string
}

// HTTPFailure keeps the transport level detail of a failed exchange.
// The dispatch layer carries it along without interpreting it.
type HTTPFailure struct {
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
	Err        error  `json:"-"`
}

func (f *HTTPFailure) Error() string {
	if f.Err != nil {
		if f.StatusCode != 0 {
			return fmt.Sprintf("http %d: %v", f.StatusCode, f.Err)
		}
		return f.Err.Error()
	}
	return fmt.Sprintf("http %d", f.StatusCode)
}

func (f *HTTPFailure) Unwrap() error {
	return f.Err
}

// Result is the outcome of a remote operation. IsSuccessful tells whether a live
// partner produced Response; a failed result still carries a locally built one.
type Result[T any] struct {
	Request      Request
	Response     T
	IsSuccessful bool
	ProcessID    ProcessID
	Failure      *HTTPFailure
	Runtime      time.Duration
}

func Success[T any](request Request, response T, processID ProcessID) *Result[T] {
	mustValue("request", request)
	mustValue("response", response)
	return &Result[T]{
		Request:      request,
		Response:     response,
		IsSuccessful: true,
		ProcessID:    processID,
	}
}

func Failed[T any](request Request, response T, processID ProcessID) *Result[T] {
	mustValue("request", request)
	mustValue("response", response)
	return &Result[T]{
		Request:   request,
		Response:  response,
		ProcessID: processID,
	}
}

func (r *Result[T]) WithFailure(failure *HTTPFailure) *Result[T] {
	r.Failure = failure
	return r
}

func (r *Result[T]) WithRuntime(runtime time.Duration) *Result[T] {
	r.Runtime = runtime
	return r
}

func mustValue(name string, v any) {
	if isNil(v) {
		panic(fmt.Sprintf("oicp: nil %s", name))
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// IsNil reports whether v is nil or a typed nil pointer.
func IsNil(v any) bool {
	return isNil(v)
}
