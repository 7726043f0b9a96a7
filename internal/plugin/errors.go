package plugin

import "errors"

// notFoundError is returned by Get for an unregistered name.
type notFoundError struct{ name string }

func (e notFoundError) Error() string { return "plugin not found: " + e.name }

// ErrNotFound constructs the error returned for an unknown plugin name.
func ErrNotFound(name string) error { return notFoundError{name: name} }

// IsNotFound reports whether err (or anything it wraps) is a missing plugin.
func IsNotFound(err error) bool {
	var nf notFoundError
	return errors.As(err, &nf)
}
