// Package vm implements the bytecode interpreter: the operand
// and call stacks, frame layout, property resolution, and opcode dispatch
// loop that executes a *bytecode.CompiledFunction. Grounded op-for-op on
// _execute_opcode dispatch.
package vm

import "github.com/simonw/micro-javascript-sub000/value"

// Realm holds the shared, per-Context global object and builtin prototypes
//. Package builtins populates one via
// builtins.Install; this package only depends on the shape, never the
// individual methods installed on it.
type Realm struct {
	Global *value.Object

	ObjectProto   *value.Object
	ArrayProto    *value.Object
	FunctionProto *value.Object
	StringProto   *value.Object
	NumberProto   *value.Object
	BooleanProto  *value.Object
	RegExpProto   *value.Object
	ErrorProto    *value.Object
}

// NewRealm allocates a Realm with bare prototype objects linked per the
// standard prototype chain; builtins.Install populates their
// methods afterward.
func NewRealm() *Realm {
	objectProto := value.NewObject(nil)
	r := &Realm{
		Global: value.NewObject(objectProto),
		ObjectProto: objectProto,
		ArrayProto: value.NewObject(objectProto),
		FunctionProto: value.NewObject(objectProto),
		StringProto: value.NewObject(objectProto),
		NumberProto: value.NewObject(objectProto),
		BooleanProto: value.NewObject(objectProto),
		RegExpProto: value.NewObject(objectProto),
		ErrorProto: value.NewObject(objectProto),
	}
	return r
}

// PrototypeFor returns the builtin prototype backing v's property fallback
// chain.
func (r *Realm) PrototypeFor(v value.Value) *value.Object {
	switch {
	case v.IsString():
		return r.StringProto
	case v.IsNumber():
		return r.NumberProto
	case v.IsBool():
		return r.BooleanProto
	case v.IsRegExp():
		return r.RegExpProto
	case v.IsFunction():
		return r.FunctionProto
	case v.IsArray():
		return r.ArrayProto
	default:
		return r.ObjectProto
	}
}
