package jsctx

import (
	"fmt"

	"github.com/simonw/micro-javascript-sub000/value"
	"github.com/simonw/micro-javascript-sub000/vm"
)

// Callable is what a guest function marshals to on the host side: an opaque
// handle a host can invoke without reaching into package vm itself.
type Callable struct {
	ctx *Context
	fn  value.Value
}

// Invoke calls the wrapped guest function with host-value arguments,
// marshalling them in and the result back out the same way Eval does.
func (c *Callable) Invoke(args ...any) (any, error) {
	guestArgs := make([]value.Value, len(args))
	for i, a := range args {
		v, err := FromHost(c.ctx, a)
		if err != nil {
			return nil, err
		}
		guestArgs[i] = v
	}
	m := vm.New(c.ctx.realm)
	result, err := m.Call(c.fn, value.FromObject(c.ctx.realm.Global), guestArgs)
	if err != nil {
		return nil, c.ctx.classify(err)
	}
	return ToHost(c.ctx, result), nil
}

// RegExp is what a guest regular expression marshals to: its source and
// flags, not a re-runnable host regexp — matching stays a guest-side
// operation.
type RegExp struct {
	Source string
	Flags  string
}

// ToHost converts a guest Value into a plain Go value a host can consume
// without importing package value: null/undefined both become nil,
// primitives pass through as their natural Go type, arrays become []any,
// plain objects become map[string]any, and callables/regexps become the
// opaque handles above. ctx is needed only to dispatch a later Callable.Invoke;
// it is never read during the conversion itself.
func ToHost(ctx *Context, v value.Value) any {
	switch {
	case v.IsUndefined(), v.IsNull():
		return nil
	case v.IsBool():
		return v.Bool()
	case v.IsNumber():
		return v.Num()
	case v.IsString():
		return v.Str()
	case v.IsFunction():
		return &Callable{ctx: ctx, fn: v}
	case v.IsArray():
		elems := v.Object().Array.Elements
		out := make([]any, len(elems))
		for i, el := range elems {
			out[i] = ToHost(ctx, el)
		}
		return out
	case v.IsRegExp():
		re := v.Object().RegExp
		return RegExp{Source: re.Source, Flags: re.FlagsString()}
	case v.IsObjectLike() && v.Object() != nil:
		out := make(map[string]any, len(v.Object().OwnKeys()))
		for _, k := range v.Object().OwnKeys() {
			val, _ := v.Object().GetOwn(k)
			out[k] = ToHost(ctx, val)
		}
		return out
	default:
		return nil
	}
}

// FromHost converts a plain Go value into a guest Value: nil becomes null,
// bool/numeric/string types pass through, []any becomes a guest array,
// map[string]any becomes a guest object (key order is not preserved — guest
// code that depends on enumeration order should be given an array of
// [key, value] pairs instead), and a func(...any) (any, error) becomes a
// guest-callable host function. Any other Go type is rejected rather than
// silently stringified.
func FromHost(ctx *Context, v any) (value.Value, error) {
	switch t := v.(type) {
	case nil:
		return value.Null, nil
	case value.Value:
		return t, nil
	case bool:
		return value.Bool(t), nil
	case string:
		return value.String(t), nil
	case float64:
		return value.Number(t), nil
	case float32:
		return value.Number(float64(t)), nil
	case int:
		return value.Number(float64(t)), nil
	case int32:
		return value.Number(float64(t)), nil
	case int64:
		return value.Number(float64(t)), nil
	case []any:
		elems := make([]value.Value, len(t))
		for i, el := range t {
			gv, err := FromHost(ctx, el)
			if err != nil {
				return value.Undefined, err
			}
			elems[i] = gv
		}
		arr := value.NewObject(ctx.realm.ArrayProto)
		arr.Array = value.NewArrayData(elems)
		return value.FromObject(arr), nil
	case map[string]any:
		obj := value.NewObject(ctx.realm.ObjectProto)
		for k, el := range t {
			gv, err := FromHost(ctx, el)
			if err != nil {
				return value.Undefined, err
			}
			obj.SetOwn(k, gv)
		}
		return value.FromObject(obj), nil
	case func(args ...any) (any, error):
		return value.FromObject(value.NewHostFunction("", hostCallback(ctx, t), ctx.realm.FunctionProto)), nil
	default:
		return value.Undefined, fmt.Errorf("jsctx: unsupported host value type %T", v)
	}
}

// hostCallback adapts a host-supplied func(...any) (any, error) to the
// value.HostFunc signature the VM invokes guest callables through.
func hostCallback(ctx *Context, f func(args ...any) (any, error)) value.HostFunc {
	return func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		hostArgs := make([]any, len(args))
		for i, a := range args {
			hostArgs[i] = ToHost(ctx, a)
		}
		result, err := f(hostArgs...)
		if err != nil {
			return value.Undefined, err
		}
		return FromHost(ctx, result)
	}
}

// WrapFunction marshals a guest function Value into a host-invocable
// Callable, the same wrapping ToHost applies to callables that Eval and Get
// return.
func (c *Context) WrapFunction(v value.Value) (*Callable, bool) {
	if !v.IsFunction() {
		return nil, false
	}
	return &Callable{ctx: c, fn: v}, true
}
