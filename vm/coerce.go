package vm

import (
	"math"

	"github.com/simonw/micro-javascript-sub000/value"
)

// toPrimitive is the guest-callable-aware counterpart to value.ToPrimitive
//.../vm.py's _to_primitive: it
// tries valueOf then toString (or the reverse for a "string" hint), calling
// through the VM so guest-defined methods run, and only falls back to
// value.ToPrimitive's default object conversions (array join, "[object
// Object]") when neither produces a primitive. value.ToPrimitive can't do
// this itself since calling a guest function requires vm.Call, and package
// value can't import package vm without a cycle.
func (m *VM) toPrimitive(v value.Value, hint string) (value.Value, error) {
	if !v.IsObjectLike() || v.Object() == nil {
		return v, nil
	}
	order := [2]string{"valueOf", "toString"}
	if hint == "string" {
		order = [2]string{"toString", "valueOf"}
	}
	for _, name := range order {
		method, err := m.getProperty(v, name)
		if err != nil {
			return value.Undefined, err
		}
		if !method.IsFunction() {
			continue
		}
		result, err := m.Call(method, v, nil)
		if err != nil {
			return value.Undefined, err
		}
		if !result.IsObjectLike() {
			return result, nil
		}
	}
	return value.ToPrimitive(v, hint), nil
}

func (m *VM) toNumber(v value.Value) (float64, error) {
	if v.IsObjectLike() && v.Object() != nil {
		p, err := m.toPrimitive(v, "number")
		if err != nil {
			return 0, err
		}
		return value.ToNumber(p), nil
	}
	return value.ToNumber(v), nil
}

func (m *VM) toInt32(v value.Value) (int32, error) {
	if v.IsObjectLike() && v.Object() != nil {
		p, err := m.toPrimitive(v, "number")
		if err != nil {
			return 0, err
		}
		return value.ToInt32(p), nil
	}
	return value.ToInt32(v), nil
}

func (m *VM) toUint32(v value.Value) (uint32, error) {
	if v.IsObjectLike() && v.Object() != nil {
		p, err := m.toPrimitive(v, "number")
		if err != nil {
			return 0, err
		}
		return value.ToUint32(p), nil
	}
	return value.ToUint32(v), nil
}

// add implements `+`, grounded on vm.py's _add: ToPrimitive both operands
// with hint "default", then string-concatenate if either result is a
// string, else numeric-add.
func (m *VM) add(a, b value.Value) (value.Value, error) {
	pa, err := m.toPrimitive(a, "default")
	if err != nil {
		return value.Undefined, err
	}
	pb, err := m.toPrimitive(b, "default")
	if err != nil {
		return value.Undefined, err
	}
	if pa.IsString() || pb.IsString() {
		return value.String(value.ToString(pa) + value.ToString(pb)), nil
	}
	return value.Number(value.ToNumber(pa) + value.ToNumber(pb)), nil
}

// compare implements <, <=, >, >=, grounded on vm.py's
// _compare: ToPrimitive both with hint "number"; lexicographic if both are
// strings, otherwise numeric with NaN making every comparison false.
func (m *VM) compare(a, b value.Value) (value.Ordering, error) {
	pa, err := m.toPrimitive(a, "number")
	if err != nil {
		return value.OrderUndefined, err
	}
	pb, err := m.toPrimitive(b, "number")
	if err != nil {
		return value.OrderUndefined, err
	}
	if pa.IsString() && pb.IsString() {
		switch {
		case pa.Str() < pb.Str():
			return value.OrderLess, nil
		case pa.Str() > pb.Str():
			return value.OrderGreater, nil
		default:
			return value.OrderEqual, nil
		}
	}
	na, nb := value.ToNumber(pa), value.ToNumber(pb)
	if math.IsNaN(na) || math.IsNaN(nb) {
		return value.OrderUndefined, nil
	}
	switch {
	case na < nb:
		return value.OrderLess, nil
	case na > nb:
		return value.OrderGreater, nil
	default:
		return value.OrderEqual, nil
	}
}

// abstractEquals implements == with guest-aware coercion,
// grounded on vm.py's _abstract_equals.
func (m *VM) abstractEquals(a, b value.Value) (bool, error) {
	if a.IsNullish() && b.IsNullish() {
		return true, nil
	}
	if (a.IsNullish() && !b.IsNullish()) || (!a.IsNullish() && b.IsNullish()) {
		return false, nil
	}
	if a.IsNumber() && b.IsNumber() || a.IsString() && b.IsString() || a.IsBool() && b.IsBool() {
		return value.StrictEquals(a, b), nil
	}
	if a.IsObjectLike() && b.IsObjectLike() {
		return value.StrictEquals(a, b), nil
	}
	if a.IsBool() {
		return m.abstractEquals(value.Number(value.ToNumber(a)), b)
	}
	if b.IsBool() {
		return m.abstractEquals(a, value.Number(value.ToNumber(b)))
	}
	if a.IsNumber() && b.IsString() {
		return a.Num() == value.ToNumber(b), nil
	}
	if a.IsString() && b.IsNumber() {
		return value.ToNumber(a) == b.Num(), nil
	}
	if a.IsObjectLike() {
		pa, err := m.toPrimitive(a, "default")
		if err != nil {
			return false, err
		}
		return m.abstractEquals(pa, b)
	}
	if b.IsObjectLike() {
		pb, err := m.toPrimitive(b, "default")
		if err != nil {
			return false, err
		}
		return m.abstractEquals(a, pb)
	}
	return false, nil
}

// instanceOf implements `instanceof`: walks obj's prototype chain checking
// identity against ctor's own "prototype" property.
func (m *VM) instanceOf(obj, ctor value.Value) (bool, error) {
	if !obj.IsObjectLike() || obj.Object() == nil {
		return false, nil
	}
	protoVal, err := m.getProperty(ctor, "prototype")
	if err != nil {
		return false, err
	}
	if !protoVal.IsObjectLike() || protoVal.Object() == nil {
		return false, nil
	}
	target := protoVal.Object()
	for p := obj.Object().Prototype; p != nil; p = p.Prototype {
		if p == target {
			return true, nil
		}
	}
	return false, nil
}
