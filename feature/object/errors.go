package object

import "fmt"

// ValidationError reports a malformed request: bad bucket name,
// conflicting source fields, or a missing required-per-mode field. It is
// always raised before any remote call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// TagConvergenceError reports that the remote tag set did not converge to
// the requested one within the poll budget. It carries both sets so the
// caller can see how far propagation got.
type TagConvergenceError struct {
	Requested map[string]string
	Live      map[string]string
}

func (e *TagConvergenceError) Error() string {
	return fmt.Sprintf("object tags failed to apply in the expected time (requested: %v, live: %v)",
		e.Requested, e.Live)
}
