package controller

import (
	"errors"
	"fmt"
)

// controllerNotFoundError is returned by Registry.Get for unknown names.
type controllerNotFoundError struct{ name string }

func (e controllerNotFoundError) Error() string { return "controller not found: " + e.name }

// IsControllerNotFound reports whether err indicates an unknown controller.
func IsControllerNotFound(err error) bool {
	var nf controllerNotFoundError
	return errors.As(err, &nf)
}

// StatusError lets actions pick the HTTP status of a failure.
type StatusError struct {
	Code int
	Msg  string
}

func (e StatusError) Error() string   { return e.Msg }
func (e StatusError) StatusCode() int { return e.Code }

// Errorf builds a StatusError.
func Errorf(code int, format string, a ...any) error {
	return StatusError{Code: code, Msg: fmt.Sprintf(format, a...)}
}

// forwardLimitError stops forward chains that loop.
type forwardLimitError struct{ depth int }

func (e forwardLimitError) Error() string {
	return fmt.Sprintf("forward: nested forward limit %d reached", e.depth)
}

// IsForwardLimit reports whether err came from a forward chain that was too deep.
func IsForwardLimit(err error) bool {
	var fl forwardLimitError
	return errors.As(err, &fl)
}
