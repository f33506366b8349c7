package vm

import (
	"fmt"

	"github.com/simonw/micro-javascript-sub000/value"
)

// ThrownError wraps a guest `throw`-ed value as a Go error so it can unwind
// through the Go call stack between Run/Call invocations. It is the only error type
// THROW/TRY_START/CATCH ever deal with; the VM's own guest-visible errors
// (TypeError etc.) are constructed as ordinary JSError objects and thrown
// through this same wrapper.
type ThrownError struct {
	Value value.Value
}

func (e *ThrownError) Error() string {
	if e.Value.IsObjectLike() && e.Value.Object() != nil {
		if msg, ok := e.Value.Object().GetOwn("message"); ok {
			name := "Error"
			if n, ok := e.Value.Object().GetOwn("name"); ok {
				name = value.ToString(n)
			}
			return fmt.Sprintf("%s: %s", name, value.ToString(msg))
		}
	}
	return value.ToString(e.Value)
}

// newError constructs a guest-visible Error-family object, rooted at the Realm's shared Error.prototype.
func (r *Realm) newError(name, message string) value.Value {
	o := value.NewObject(r.ErrorProto)
	o.SetOwn("name", value.String(name))
	o.SetOwn("message", value.String(message))
	return value.FromObject(o)
}

func (r *Realm) typeError(format string, args ...any) *ThrownError {
	return &ThrownError{Value: r.newError("TypeError", fmt.Sprintf(format, args...))}
}

func (r *Realm) referenceError(format string, args ...any) *ThrownError {
	return &ThrownError{Value: r.newError("ReferenceError", fmt.Sprintf(format, args...))}
}

func (r *Realm) rangeError(format string, args ...any) *ThrownError {
	return &ThrownError{Value: r.newError("RangeError", fmt.Sprintf(format, args...))}
}

// TypeError, RangeError, ReferenceError, and NewError are the exported
// counterparts of the unexported constructors above — package builtins has
// no way to reach into a Realm's internals otherwise, since its method
// tables live outside this package.
func (r *Realm) TypeError(format string, args ...any) error { return r.typeError(format, args...) }
func (r *Realm) RangeError(format string, args ...any) error { return r.rangeError(format, args...) }
func (r *Realm) ReferenceError(format string, args ...any) error {
	return r.referenceError(format, args...)
}

// NewError constructs a guest-visible Error-family object under the given
// name (e.g. "TypeError", "Error") without throwing it, for built-ins like
// the Error constructor that need to return an error object as a plain
// value rather than raise one.
func (r *Realm) NewError(name, message string) value.Value { return r.newError(name, message) }

// LimitError is raised when a script exceeds its step, memory or wall-clock budget
//. Unlike ThrownError, it is NOT
// catchable by guest try/catch — the dispatch loop propagates it past every exception
// handler instead of consulting the frame's handler stack.
type LimitError struct {
	Kind    string // "time", "step" or "memory"
	Message string
}

func (e *LimitError) Error() string { return e.Message }
