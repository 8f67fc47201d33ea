// Package invariant signals programmer errors: references to vertices or
// faces that do not exist, writes to a read-only model, double registration
// of a mesh id. A violation panics with a *Violation carrying a stack trace.
// Nothing in the editing core recovers from these; a top-level handler may
// call Recover to decide between crashing and rolling back.
package invariant

import (
	"fmt"

	"github.com/pkg/errors"
)

// Violation is the panic value raised by Check and Fail.
type Violation struct {
	err error
}

func (v *Violation) Error() string {
	return v.err.Error()
}

// Unwrap exposes the underlying stack-carrying error.
func (v *Violation) Unwrap() error {
	return v.err
}

// StackTrace formats the stack recorded where the violation was raised.
func (v *Violation) StackTrace() string {
	return fmt.Sprintf("%+v", v.err)
}

// Check panics with a Violation when cond is false.
func Check(cond bool, format string, args ...any) {
	if cond {
		return
	}
	panic(&Violation{err: errors.Errorf(format, args...)})
}

// Fail always panics with a Violation.
func Fail(format string, args ...any) {
	panic(&Violation{err: errors.Errorf(format, args...)})
}

// Recover converts a Violation panic into an error stored in *err. Any other
// panic value is re-raised. Use as `defer invariant.Recover(&err)`.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if v, ok := r.(*Violation); ok {
		*err = errors.Wrap(v, "invariant violation")
		return
	}
	panic(r)
}
