package builtins

import (
	"github.com/simonw/micro-javascript-sub000/value"
	"github.com/simonw/micro-javascript-sub000/vm"
)

func installObjectProto(realm *vm.Realm) {
	p := realm.ObjectProto

	method(p, "toString", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		switch {
		case this.IsArray():
			return value.String("[object Array]"), nil
		case this.IsFunction():
			return value.String("[object Function]"), nil
		case this.IsObjectLike():
			return value.String("[object Object]"), nil
		default:
			return value.String("[object " + value.TypeOf(this) + "]"), nil
		}
	}, realm)

	method(p, "hasOwnProperty", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if !this.IsObjectLike() || this.Object() == nil {
			return value.False, nil
		}
		key := value.ToString(arg(args, 0))
		if this.IsArray() {
			if idx, ok := arrayIndexOf(key); ok {
				return value.Bool(idx >= 0 && idx < len(this.Object().Array.Elements)), nil
			}
		}
		return value.Bool(this.Object().HasOwn(key)), nil
	}, realm)

	method(p, "valueOf", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		return this, nil
	}, realm)

	method(p, "isPrototypeOf", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		if !v.IsObjectLike() || v.Object() == nil || !this.IsObjectLike() || this.Object() == nil {
			return value.False, nil
		}
		for proto := v.Object().Prototype; proto != nil; proto = proto.Prototype {
			if proto == this.Object() {
				return value.True, nil
			}
		}
		return value.False, nil
	}, realm)
}

// arrayIndexOf reports whether key parses as a non-negative integer index,
// the same array-index test the VM's own property-access path applies.
func arrayIndexOf(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	n := 0
	for _, c := range key {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if key[0] == '0' && len(key) > 1 {
		return 0, false
	}
	return n, true
}

func installObjectGlobal(realm *vm.Realm) {
	ctor := func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if len(args) > 0 && args[0].IsObjectLike() && args[0].Object() != nil {
			return args[0], nil
		}
		return value.FromObject(value.NewObject(realm.ObjectProto)), nil
	}
	ctorObj := value.NewHostFunction("Object", ctor, realm.FunctionProto)
	ctorObj.SetOwn("prototype", value.FromObject(realm.ObjectProto))

	method(ctorObj, "keys", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		o, err := requireObjectArg(realm, arg(args, 0), "keys")
		if err != nil {
			return value.Undefined, err
		}
		keys := ownEnumerableKeys(o)
		out := make([]value.Value, len(keys))
		for i, k := range keys {
			out[i] = value.String(k)
		}
		return newArray(realm, out), nil
	}, realm)

	method(ctorObj, "values", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		o, err := requireObjectArg(realm, arg(args, 0), "values")
		if err != nil {
			return value.Undefined, err
		}
		keys := ownEnumerableKeys(o)
		out := make([]value.Value, len(keys))
		for i, k := range keys {
			v, _ := o.GetOwn(k)
			out[i] = v
		}
		return newArray(realm, out), nil
	}, realm)

	method(ctorObj, "entries", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		o, err := requireObjectArg(realm, arg(args, 0), "entries")
		if err != nil {
			return value.Undefined, err
		}
		keys := ownEnumerableKeys(o)
		out := make([]value.Value, len(keys))
		for i, k := range keys {
			v, _ := o.GetOwn(k)
			out[i] = newArray(realm, []value.Value{value.String(k), v})
		}
		return newArray(realm, out), nil
	}, realm)

	method(ctorObj, "assign", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Undefined, realm.TypeError("Object.assign target must be an object")
		}
		target, err := requireObjectArg(realm, args[0], "assign")
		if err != nil {
			return value.Undefined, err
		}
		for _, src := range args[1:] {
			if !src.IsObjectLike() || src.Object() == nil {
				continue
			}
			for _, k := range src.Object().OwnKeys() {
				v, _ := src.Object().GetOwn(k)
				target.SetOwn(k, v)
			}
		}
		return args[0], nil
	}, realm)

	method(ctorObj, "freeze", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		return arg(args, 0), nil
	}, realm)

	method(ctorObj, "getPrototypeOf", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		if !v.IsObjectLike() || v.Object() == nil || v.Object().Prototype == nil {
			return value.Null, nil
		}
		return value.FromObject(v.Object().Prototype), nil
	}, realm)

	realm.Global.SetOwn("Object", value.FromObject(ctorObj))
}

func requireObjectArg(realm *vm.Realm, v value.Value, method string) (*value.Object, error) {
	if !v.IsObjectLike() || v.Object() == nil {
		return nil, realm.TypeError("Object.%s called on non-object", method)
	}
	return v.Object(), nil
}

// ownEnumerableKeys returns an array's index keys (as decimal strings) ahead
// of its object's own keys when the receiver is array-backed, matching the
// iteration order guest for-in/Object.keys code expects.
func ownEnumerableKeys(o *value.Object) []string {
	if o.Array == nil {
		return o.OwnKeys()
	}
	keys := make([]string, 0, len(o.Array.Elements))
	for i := range o.Array.Elements {
		keys = append(keys, value.ToString(value.Number(float64(i))))
	}
	return append(keys, o.OwnKeys()...)
}
