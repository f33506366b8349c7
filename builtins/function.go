package builtins

import (
	"github.com/simonw/micro-javascript-sub000/value"
	"github.com/simonw/micro-javascript-sub000/vm"
)

func installFunctionProto(realm *vm.Realm) {
	p := realm.FunctionProto

	method(p, "call", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if !this.IsFunction() {
			return value.Undefined, realm.TypeError("Function.prototype.call called on non-function")
		}
		var callThis value.Value
		var rest []value.Value
		if len(args) > 0 {
			callThis = args[0]
			rest = args[1:]
		}
		return c.Call(this, callThis, rest)
	}, realm)

	method(p, "apply", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if !this.IsFunction() {
			return value.Undefined, realm.TypeError("Function.prototype.apply called on non-function")
		}
		var callThis value.Value
		if len(args) > 0 {
			callThis = args[0]
		}
		var rest []value.Value
		if len(args) > 1 && args[1].IsArray() {
			rest = args[1].Object().Array.Elements
		}
		return c.Call(this, callThis, rest)
	}, realm)

	method(p, "bind", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if !this.IsFunction() {
			return value.Undefined, realm.TypeError("Function.prototype.bind called on non-function")
		}
		var boundThis value.Value
		var prepend []value.Value
		if len(args) > 0 {
			boundThis = args[0]
			prepend = append([]value.Value{}, args[1:]...)
		}
		bound := value.NewObject(realm.FunctionProto)
		name := "bound"
		if this.Object().Function.Name != "" {
			name = "bound " + this.Object().Function.Name
		}
		bound.Function = &value.FunctionData{
			Name: name,
			Bound: &value.BoundFunction{
				This:     boundThis,
				Prepend:  prepend,
				Original: this.Object(),
			},
		}
		return value.FromObject(bound), nil
	}, realm)

	method(p, "toString", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if !this.IsFunction() {
			return value.Undefined, realm.TypeError("Function.prototype.toString called on non-function")
		}
		name := this.Object().Function.Name
		if name == "" {
			name = "anonymous"
		}
		return value.String("function " + name + "() { [native code] }"), nil
	}, realm)
}
