// Package invariant provides contract assertions for the interpreter core.
//
// These checks guard programming errors inside the lexer/parser/compiler/VM —
// a violated invariant means the implementation is wrong, not that the guest
// program is misbehaving. Guest-triggerable conditions (bad syntax, a
// TypeError, a blown time/memory budget) are never reported through this
// package; they are ordinary returned errors instead.
package invariant

import (
	"fmt"
	"reflect"
)

// Precondition checks an input contract at function entry.
func Precondition(condition bool, format string, args ...any) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Invariant checks an internal consistency condition during execution.
func Invariant(condition bool, format string, args ...any) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil, including a typed nil pointer/interface.
func NotNil(value any, name string) {
	if value == nil || isNilValue(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

// InRange panics if value is outside [min, max].
func InRange(value, min, max int, name string) {
	if value < min || value > max {
		fail("PRECONDITION", "%s must be in range [%d, %d], got %d", name, min, max, value)
	}
}

func isNilValue(value any) bool {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

func fail(kind, format string, args ...any) {
	panic(fmt.Sprintf("%s VIOLATION: %s", kind, fmt.Sprintf(format, args...)))
}
