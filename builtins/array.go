package builtins

import (
	"sort"
	"strings"

	"github.com/simonw/micro-javascript-sub000/value"
	"github.com/simonw/micro-javascript-sub000/vm"
)

// arg returns args[i], or Undefined when the call supplied fewer arguments —
// every method below tolerates missing trailing arguments this way.
func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Undefined
}

func newArray(realm *vm.Realm, elems []value.Value) value.Value {
	o := value.NewObject(realm.ArrayProto)
	o.Array = value.NewArrayData(elems)
	return value.FromObject(o)
}

// clampIndex maps a (possibly negative, possibly fractional) JS-style index
// argument onto [0, length], the rule shared by slice/splice/indexOf/...
// across both arrays and strings.
func clampIndex(n float64, length int) int {
	i := int(n)
	if i < 0 {
		i += length
		if i < 0 {
			i = 0
		}
	}
	if i > length {
		i = length
	}
	return i
}

func installArrayProto(realm *vm.Realm) {
	p := realm.ArrayProto

	method(p, "push", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "push")
		if err != nil {
			return value.Undefined, err
		}
		arr.Elements = append(arr.Elements, args...)
		return value.Number(float64(len(arr.Elements))), nil
	}, realm)

	method(p, "pop", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "pop")
		if err != nil {
			return value.Undefined, err
		}
		if len(arr.Elements) == 0 {
			return value.Undefined, nil
		}
		last := arr.Elements[len(arr.Elements)-1]
		arr.Elements = arr.Elements[:len(arr.Elements)-1]
		return last, nil
	}, realm)

	method(p, "shift", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "shift")
		if err != nil {
			return value.Undefined, err
		}
		if len(arr.Elements) == 0 {
			return value.Undefined, nil
		}
		first := arr.Elements[0]
		arr.Elements = arr.Elements[1:]
		return first, nil
	}, realm)

	method(p, "unshift", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "unshift")
		if err != nil {
			return value.Undefined, err
		}
		arr.Elements = append(append([]value.Value{}, args...), arr.Elements...)
		return value.Number(float64(len(arr.Elements))), nil
	}, realm)

	method(p, "toString", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "toString")
		if err != nil {
			return value.Undefined, err
		}
		return value.String(joinElements(arr.Elements, ",")), nil
	}, realm)

	method(p, "join", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "join")
		if err != nil {
			return value.Undefined, err
		}
		sep := ","
		if len(args) > 0 {
			sep = value.ToString(args[0])
		}
		return value.String(joinElements(arr.Elements, sep)), nil
	}, realm)

	method(p, "map", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "map")
		if err != nil {
			return value.Undefined, err
		}
		callback := arg(args, 0)
		out := make([]value.Value, len(arr.Elements))
		for i, elem := range arr.Elements {
			v, err := c.Call(callback, value.Undefined, []value.Value{elem, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			out[i] = v
		}
		return newArray(realm, out), nil
	}, realm)

	method(p, "filter", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "filter")
		if err != nil {
			return value.Undefined, err
		}
		callback := arg(args, 0)
		var out []value.Value
		for i, elem := range arr.Elements {
			v, err := c.Call(callback, value.Undefined, []value.Value{elem, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			if value.ToBoolean(v) {
				out = append(out, elem)
			}
		}
		return newArray(realm, out), nil
	}, realm)

	method(p, "reduce", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "reduce")
		if err != nil {
			return value.Undefined, err
		}
		if len(args) == 0 || !args[0].IsFunction() {
			return value.Undefined, realm.TypeError("reduce callback is not a function")
		}
		callback := args[0]
		var acc value.Value
		start := 0
		if len(args) > 1 {
			acc = args[1]
		} else {
			if len(arr.Elements) == 0 {
				return value.Undefined, realm.TypeError("Reduce of empty array with no initial value")
			}
			acc = arr.Elements[0]
			start = 1
		}
		for i := start; i < len(arr.Elements); i++ {
			v, err := c.Call(callback, value.Undefined, []value.Value{acc, arr.Elements[i], value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			acc = v
		}
		return acc, nil
	}, realm)

	method(p, "forEach", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "forEach")
		if err != nil {
			return value.Undefined, err
		}
		callback := arg(args, 0)
		for i, elem := range arr.Elements {
			if _, err := c.Call(callback, value.Undefined, []value.Value{elem, value.Number(float64(i)), this}); err != nil {
				return value.Undefined, err
			}
		}
		return value.Undefined, nil
	}, realm)

	method(p, "indexOf", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "indexOf")
		if err != nil {
			return value.Undefined, err
		}
		search := arg(args, 0)
		start := 0
		if len(args) > 1 {
			start = clampIndex(value.ToNumber(args[1]), len(arr.Elements))
		}
		for i := start; i < len(arr.Elements); i++ {
			if value.StrictEquals(arr.Elements[i], search) {
				return value.Number(float64(i)), nil
			}
		}
		return value.Number(-1), nil
	}, realm)

	method(p, "lastIndexOf", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "lastIndexOf")
		if err != nil {
			return value.Undefined, err
		}
		search := arg(args, 0)
		start := len(arr.Elements) - 1
		if len(args) > 1 {
			start = int(value.ToNumber(args[1]))
			if start < 0 {
				start += len(arr.Elements)
			}
			if start >= len(arr.Elements) {
				start = len(arr.Elements) - 1
			}
		}
		for i := start; i >= 0; i-- {
			if value.StrictEquals(arr.Elements[i], search) {
				return value.Number(float64(i)), nil
			}
		}
		return value.Number(-1), nil
	}, realm)

	method(p, "find", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "find")
		if err != nil {
			return value.Undefined, err
		}
		callback := arg(args, 0)
		for i, elem := range arr.Elements {
			v, err := c.Call(callback, value.Undefined, []value.Value{elem, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			if value.ToBoolean(v) {
				return elem, nil
			}
		}
		return value.Undefined, nil
	}, realm)

	method(p, "findIndex", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "findIndex")
		if err != nil {
			return value.Undefined, err
		}
		callback := arg(args, 0)
		for i, elem := range arr.Elements {
			v, err := c.Call(callback, value.Undefined, []value.Value{elem, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			if value.ToBoolean(v) {
				return value.Number(float64(i)), nil
			}
		}
		return value.Number(-1), nil
	}, realm)

	method(p, "some", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "some")
		if err != nil {
			return value.Undefined, err
		}
		callback := arg(args, 0)
		for i, elem := range arr.Elements {
			v, err := c.Call(callback, value.Undefined, []value.Value{elem, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			if value.ToBoolean(v) {
				return value.True, nil
			}
		}
		return value.False, nil
	}, realm)

	method(p, "every", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "every")
		if err != nil {
			return value.Undefined, err
		}
		callback := arg(args, 0)
		for i, elem := range arr.Elements {
			v, err := c.Call(callback, value.Undefined, []value.Value{elem, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			if !value.ToBoolean(v) {
				return value.False, nil
			}
		}
		return value.True, nil
	}, realm)

	method(p, "concat", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "concat")
		if err != nil {
			return value.Undefined, err
		}
		out := append([]value.Value{}, arr.Elements...)
		for _, a := range args {
			if a.IsArray() {
				out = append(out, a.Object().Array.Elements...)
			} else {
				out = append(out, a)
			}
		}
		return newArray(realm, out), nil
	}, realm)

	method(p, "slice", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "slice")
		if err != nil {
			return value.Undefined, err
		}
		n := len(arr.Elements)
		start, end := 0, n
		if len(args) > 0 {
			start = clampIndex(value.ToNumber(args[0]), n)
		}
		if len(args) > 1 {
			end = clampIndex(value.ToNumber(args[1]), n)
		}
		if start > end {
			start = end
		}
		out := append([]value.Value{}, arr.Elements[start:end]...)
		return newArray(realm, out), nil
	}, realm)

	method(p, "splice", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "splice")
		if err != nil {
			return value.Undefined, err
		}
		n := len(arr.Elements)
		start := 0
		if len(args) > 0 {
			start = clampIndex(value.ToNumber(args[0]), n)
		}
		deleteCount := n - start
		if len(args) > 1 {
			dc := int(value.ToNumber(args[1]))
			if dc < 0 {
				dc = 0
			}
			if dc > n-start {
				dc = n - start
			}
			deleteCount = dc
		}
		removed := append([]value.Value{}, arr.Elements[start:start+deleteCount]...)
		var inserted []value.Value
		if len(args) > 2 {
			inserted = args[2:]
		}
		rebuilt := append([]value.Value{}, arr.Elements[:start]...)
		rebuilt = append(rebuilt, inserted...)
		rebuilt = append(rebuilt, arr.Elements[start+deleteCount:]...)
		arr.Elements = rebuilt
		return newArray(realm, removed), nil
	}, realm)

	method(p, "reverse", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "reverse")
		if err != nil {
			return value.Undefined, err
		}
		for i, j := 0, len(arr.Elements)-1; i < j; i, j = i+1, j-1 {
			arr.Elements[i], arr.Elements[j] = arr.Elements[j], arr.Elements[i]
		}
		return this, nil
	}, realm)

	method(p, "includes", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "includes")
		if err != nil {
			return value.Undefined, err
		}
		search := arg(args, 0)
		start := 0
		if len(args) > 1 {
			start = clampIndex(value.ToNumber(args[1]), len(arr.Elements))
		}
		for i := start; i < len(arr.Elements); i++ {
			if value.StrictEquals(arr.Elements[i], search) || (value.IsNaN(arr.Elements[i]) && value.IsNaN(search)) {
				return value.True, nil
			}
		}
		return value.False, nil
	}, realm)

	method(p, "sort", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		arr, err := requireArray(realm, this, "sort")
		if err != nil {
			return value.Undefined, err
		}
		var cmp value.Value
		if len(args) > 0 && args[0].IsFunction() {
			cmp = args[0]
		}
		if err := sortElements(c, arr.Elements, cmp); err != nil {
			return value.Undefined, err
		}
		return this, nil
	}, realm)
}

// sortElements sorts in place using sort.SliceStable so equal elements keep
// their relative order, the stability decision documented for Array#sort.
// A missing comparator falls back to comparing ToString(a) against
// ToString(b); a supplied one is invoked as cmp(a, b) and its sign decides
// order, undefined values always sorting last regardless of comparator.
func sortElements(c value.Caller, elems []value.Value, cmp value.Value) error {
	var sortErr error
	sort.SliceStable(elems, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		a, b := elems[i], elems[j]
		if a.IsUndefined() != b.IsUndefined() {
			return b.IsUndefined()
		}
		if a.IsUndefined() {
			return false
		}
		if cmp.IsUndefined() {
			return value.ToString(a) < value.ToString(b)
		}
		result, err := c.Call(cmp, value.Undefined, []value.Value{a, b})
		if err != nil {
			sortErr = err
			return false
		}
		return value.ToNumber(result) < 0
	})
	return sortErr
}

func requireArray(realm *vm.Realm, this value.Value, method string) (*value.ArrayData, error) {
	if !this.IsArray() {
		return nil, realm.TypeError("Array.prototype.%s called on non-array", method)
	}
	return this.Object().Array, nil
}

func joinElements(elems []value.Value, sep string) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		if e.IsNullish() {
			parts[i] = ""
		} else {
			parts[i] = value.ToString(e)
		}
	}
	return strings.Join(parts, sep)
}

func installArrayGlobal(realm *vm.Realm) {
	ctor := func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 1 && args[0].IsNumber() {
			n := int(args[0].Num())
			elems := make([]value.Value, n)
			for i := range elems {
				elems[i] = value.Undefined
			}
			return newArray(realm, elems), nil
		}
		return newArray(realm, append([]value.Value{}, args...)), nil
	}
	ctorObj := value.NewHostFunction("Array", ctor, realm.FunctionProto)
	ctorObj.SetOwn("prototype", value.FromObject(realm.ArrayProto))
	method(ctorObj, "isArray", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		return value.Bool(arg(args, 0).IsArray()), nil
	}, realm)
	realm.Global.SetOwn("Array", value.FromObject(ctorObj))
}
