package vm

import (
	"math"
	"strconv"
	"unicode/utf16"

	"github.com/simonw/micro-javascript-sub000/value"
)

// getProperty implements, grounded
// on _get_property: special-cased numeric
// indices and "length" for arrays and strings, a single "lastIndex" slot for
// RegExp objects, then a getter-or-own walk up the prototype chain. Builtin
// methods (Array.prototype.push, String.prototype.slice,...) are ordinary
// own properties package builtins installs on the Realm's prototype
// objects, so they fall out of the same chain walk rather than needing a
// separate per-kind method table here.
func (m *VM) getProperty(recv value.Value, key string) (value.Value, error) {
	if recv.IsNullish() {
		return value.Undefined, m.Realm.typeError("Cannot read properties of %s (reading '%s')", value.ToString(recv), key)
	}
	if recv.IsString() {
		if v, ok := stringOwnProperty(recv.Str(), key); ok {
			return v, nil
		}
		return m.protoChainLookup(recv, m.Realm.StringProto, key)
	}
	if recv.IsNumber() {
		return m.protoChainLookup(recv, m.Realm.NumberProto, key)
	}
	if recv.IsBool() {
		return m.protoChainLookup(recv, m.Realm.BooleanProto, key)
	}

	obj := recv.Object()
	if obj.Array != nil {
		if v, ok := arrayOwnProperty(obj.Array, key); ok {
			return v, nil
		}
	}
	if obj.RegExp != nil && key == "lastIndex" {
		return value.Number(float64(obj.RegExp.LastIndex)), nil
	}

	for cur := obj; cur != nil; cur = cur.Prototype {
		if g, ok := cur.Getter(key); ok {
			return m.Call(value.FromObject(g), recv, nil)
		}
		if v, ok := cur.GetOwn(key); ok {
			return v, nil
		}
	}
	return value.Undefined, nil
}

// protoChainLookup resolves a primitive's property by walking its builtin
// prototype chain only (primitives have no own-property slots of their own).
func (m *VM) protoChainLookup(recv value.Value, proto *value.Object, key string) (value.Value, error) {
	for cur := proto; cur != nil; cur = cur.Prototype {
		if g, ok := cur.Getter(key); ok {
			return m.Call(value.FromObject(g), recv, nil)
		}
		if v, ok := cur.GetOwn(key); ok {
			return v, nil
		}
	}
	return value.Undefined, nil
}

// setProperty implements, including the array rules
// (§3's Array invariant: "length" truncates/pads, an in-range or
// next-in-sequence integer index writes or appends, any other numeric-
// looking key is a TypeError) and returns the stored value, since the
// compiler relies on SET_PROP leaving it on the operand stack.
func (m *VM) setProperty(recv value.Value, key string, val value.Value) (value.Value, error) {
	if recv.IsNullish() {
		return value.Undefined, m.Realm.typeError("Cannot set properties of %s (setting '%s')", value.ToString(recv), key)
	}
	if !recv.IsObjectLike() || recv.Object() == nil {
		return val, nil
	}
	obj := recv.Object()

	if obj.Array != nil {
		switch {
		case key == "length":
			n := value.ToNumber(val)
			if math.IsNaN(n) || n < 0 || n != math.Trunc(n) {
				return value.Undefined, m.Realm.rangeError("Invalid array length")
			}
			obj.Array.SetLength(int(n))
			return val, nil
		case isArrayIndexKey(key):
			idx, _ := arrayIndex(key)
			switch {
			case idx == len(obj.Array.Elements):
				obj.Array.Elements = append(obj.Array.Elements, val)
			case idx < len(obj.Array.Elements):
				obj.Array.Elements[idx] = val
			default:
				return value.Undefined, m.Realm.typeError("Invalid array index: %s", key)
			}
			return val, nil
		case looksNumeric(key):
			return value.Undefined, m.Realm.typeError("Invalid array index: %s", key)
		}
	}

	if obj.RegExp != nil && key == "lastIndex" {
		obj.RegExp.LastIndex = int(value.ToNumber(val))
		return val, nil
	}

	for cur := obj; cur != nil; cur = cur.Prototype {
		if s, ok := cur.Setter(key); ok {
			if _, err := m.Call(value.FromObject(s), recv, []value.Value{val}); err != nil {
				return value.Undefined, err
			}
			return val, nil
		}
	}
	obj.SetOwn(key, val)
	return val, nil
}

// deleteProperty implements DELETE_PROP: removing an array element leaves a
// hole (set to undefined) rather than shrinking the array; "length" can't be
// deleted. Deleting a property from a non-object receiver is a no-op that
// still reports success, matching delete's general permissiveness in this
// dialect.
func (m *VM) deleteProperty(recv value.Value, key string) bool {
	if !recv.IsObjectLike() || recv.Object() == nil {
		return true
	}
	obj := recv.Object()
	if obj.Array != nil {
		if key == "length" {
			return false
		}
		if idx, ok := arrayIndex(key); ok && idx < len(obj.Array.Elements) {
			obj.Array.Elements[idx] = value.Undefined
			return true
		}
	}
	return obj.DeleteOwn(key)
}

// hasProperty implements the `in` operator: an own array index/length, or an
// own slot (getter, setter, or value) anywhere up the prototype chain.
func (m *VM) hasProperty(obj *value.Object, key string) bool {
	if obj.Array != nil {
		if key == "length" {
			return true
		}
		if idx, ok := arrayIndex(key); ok && idx < len(obj.Array.Elements) {
			return true
		}
	}
	for cur := obj; cur != nil; cur = cur.Prototype {
		if _, ok := cur.Getter(key); ok {
			return true
		}
		if _, ok := cur.Setter(key); ok {
			return true
		}
		if cur.HasOwn(key) {
			return true
		}
	}
	return false
}

func arrayOwnProperty(a *value.ArrayData, key string) (value.Value, bool) {
	if key == "length" {
		return value.Number(float64(a.Length())), true
	}
	if idx, ok := arrayIndex(key); ok && idx < len(a.Elements) {
		return a.Elements[idx], true
	}
	return value.Value{}, false
}

func stringOwnProperty(s string, key string) (value.Value, bool) {
	units := utf16.Encode([]rune(s))
	if key == "length" {
		return value.Number(float64(len(units))), true
	}
	if idx, ok := arrayIndex(key); ok && idx < len(units) {
		return value.String(string(utf16.Decode(units[idx: idx+1]))), true
	}
	return value.Value{}, false
}

func isArrayIndexKey(key string) bool {
	_, ok := arrayIndex(key)
	return ok
}

// arrayIndex parses key as a canonical non-negative integer index (no
// leading zero except "0" itself, digits only).
func arrayIndex(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	if len(key) > 1 && key[0] == '0' {
		return 0, false
	}
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, false
	}
	return n, true
}

// looksNumeric reports whether key parses as a number in some form even
// though it isn't a canonical array index ("1.5", "-1", "NaN", "Infinity"),
// the case.
func looksNumeric(key string) bool {
	if key == "NaN" || key == "Infinity" || key == "-Infinity" {
		return true
	}
	_, err := strconv.ParseFloat(key, 64)
	return err == nil
}
