package vm

import (
	"math"
	"strconv"
	"unicode/utf16"

	"github.com/simonw/micro-javascript-sub000/bytecode"
	"github.com/simonw/micro-javascript-sub000/internal/invariant"
	"github.com/simonw/micro-javascript-sub000/jsregexp"
	"github.com/simonw/micro-javascript-sub000/value"
)

// runFrame is the opcode dispatch loop, grounded op-for-
// op on _execute_opcode and on the byte layout
// bytecode.Disassemble already renders: a one-byte opcode, followed by a
// two-byte little-endian jump target for wide operands (bytecode.IsWide) or
// a single-byte operand otherwise (bytecode.HasOperand).
func (m *VM) runFrame() (value.Value, error) {
	f := m.top()

	for {
		if err := m.pollLimit(); err != nil {
			return value.Undefined, err
		}

		op := bytecode.Op(f.fn.Code[f.ip])
		f.ip++

		switch op {

		// --- stack manipulation ---

		case bytecode.POP:
			m.pop()

		case bytecode.DUP:
			m.push(m.peek())

		case bytecode.DUP2:
			n := len(m.stack)
			a, b := m.stack[n-2], m.stack[n-1]
			m.push(a)
			m.push(b)

		case bytecode.SWAP:
			n := len(m.stack)
			m.stack[n-2], m.stack[n-1] = m.stack[n-1], m.stack[n-2]

		case bytecode.ROT3:
			n := len(m.stack)
			a, b, c := m.stack[n-3], m.stack[n-2], m.stack[n-1]
			m.stack[n-3], m.stack[n-2], m.stack[n-1] = b, c, a

		case bytecode.ROT4:
			n := len(m.stack)
			a, b, c, d := m.stack[n-4], m.stack[n-3], m.stack[n-2], m.stack[n-1]
			m.stack[n-4], m.stack[n-3], m.stack[n-2], m.stack[n-1] = b, c, d, a

		// --- loads ---

		case bytecode.LOAD_CONST:
			idx := int(f.readByte())
			m.push(constToValue(f.fn.Constants[idx]))

		case bytecode.LOAD_UNDEFINED:
			m.push(value.Undefined)

		case bytecode.LOAD_NULL:
			m.push(value.Null)

		case bytecode.LOAD_TRUE:
			m.push(value.True)

		case bytecode.LOAD_FALSE:
			m.push(value.False)

		case bytecode.THIS:
			m.push(f.this)

		// --- locals / globals / cells / closures ---
		// Stores are non-popping: the compiler relies on the stored value
		// remaining on top of the stack as the expression's completion value.

		case bytecode.LOAD_LOCAL:
			idx := int(f.readByte())
			m.push(f.locals[idx])

		case bytecode.STORE_LOCAL:
			idx := int(f.readByte())
			f.locals[idx] = m.peek()

		case bytecode.LOAD_NAME:
			idx := int(f.readByte())
			name := f.fn.Constants[idx].(string)
			v, ok := m.Realm.Global.GetOwn(name)
			if !ok {
				if err := m.dispatchError(f, m.Realm.referenceError("%s is not defined", name)); err != nil {
					return value.Undefined, err
				}
				continue
			}
			m.push(v)

		case bytecode.STORE_NAME:
			idx := int(f.readByte())
			name := f.fn.Constants[idx].(string)
			m.Realm.Global.SetOwn(name, m.peek())

		case bytecode.LOAD_CELL:
			idx := int(f.readByte())
			m.push(f.cells[idx].V)

		case bytecode.STORE_CELL:
			idx := int(f.readByte())
			f.cells[idx].V = m.peek()

		case bytecode.LOAD_CLOSURE:
			idx := int(f.readByte())
			m.push(f.free[idx].V)

		case bytecode.STORE_CLOSURE:
			idx := int(f.readByte())
			f.free[idx].V = m.peek()

		// --- properties ---

		case bytecode.GET_PROP:
			key := m.pop()
			obj := m.pop()
			v, err := m.getProperty(obj, value.ToString(key))
			if err != nil {
				if err = m.dispatchError(f, err); err != nil {
					return value.Undefined, err
				}
				continue
			}
			m.push(v)

		case bytecode.SET_PROP:
			val := m.pop()
			key := m.pop()
			obj := m.pop()
			stored, err := m.setProperty(obj, value.ToString(key), val)
			if err != nil {
				if err = m.dispatchError(f, err); err != nil {
					return value.Undefined, err
				}
				continue
			}
			m.push(stored)

		case bytecode.DELETE_PROP:
			key := m.pop()
			objv := m.pop()
			m.push(value.Bool(m.deleteProperty(objv, value.ToString(key))))

		// --- construction ---

		case bytecode.BUILD_ARRAY:
			n := int(f.readByte())
			elems := append([]value.Value(nil), m.stack[len(m.stack)-n:]...)
			m.stack = m.stack[:len(m.stack)-n]
			arr := value.NewObject(m.Realm.ArrayProto)
			arr.Array = value.NewArrayData(elems)
			m.push(value.FromObject(arr))

		case bytecode.BUILD_OBJECT:
			n := int(f.readByte())
			items := append([]value.Value(nil), m.stack[len(m.stack)-3*n:]...)
			m.stack = m.stack[:len(m.stack)-3*n]
			obj := value.NewObject(m.Realm.ObjectProto)
			for i := 0; i < n; i++ {
				key := value.ToString(items[3*i])
				kind := value.ToString(items[3*i+1])
				val := items[3*i+2]
				switch kind {
				case "get":
					if val.IsFunction() {
						obj.SetGetter(key, val.Object())
					}
				case "set":
					if val.IsFunction() {
						obj.SetSetter(key, val.Object())
					}
				default:
					if key == "__proto__" {
						if val.IsObjectLike() && val.Object() != nil {
							obj.Prototype = val.Object()
						} else if val.IsNull() {
							obj.Prototype = nil
						}
						continue
					}
					obj.SetOwn(key, val)
				}
			}
			m.push(value.FromObject(obj))

		case bytecode.BUILD_REGEX:
			idx := int(f.readByte())
			desc := f.fn.Constants[idx].(*bytecode.RegexDescriptor)
			flags, ferr := jsregexp.ParseFlags(desc.Flags)
			if ferr != nil {
				if err := m.dispatchError(f, m.Realm.typeError("Invalid regular expression flags: %s", desc.Flags)); err != nil {
					return value.Undefined, err
				}
				continue
			}
			prog := desc.Compiled()
			if prog == nil {
				node, numCaptures, perr := jsregexp.Parse(desc.Pattern)
				if perr == nil {
					prog, perr = jsregexp.Compile(node, numCaptures, flags)
				}
				if perr != nil {
					if err := m.dispatchError(f, m.Realm.typeError("Invalid regular expression: /%s/: %s", desc.Pattern, perr)); err != nil {
						return value.Undefined, err
					}
					continue
				}
				desc.SetCompiled(prog)
			}
			regexObj := value.NewRegExp(desc.Pattern, flags, prog, m.Realm.RegExpProto)
			m.push(value.FromObject(regexObj))

		case bytecode.MAKE_CLOSURE:
			idx := int(f.readByte())
			childFn := f.fn.Constants[idx].(*bytecode.CompiledFunction)
			cells := make([]*value.Cell, len(childFn.FreeVars))
			for i, name := range childFn.FreeVars {
				if slot := f.fn.CellSlot(name); slot >= 0 {
					cells[i] = f.cells[slot]
					continue
				}
				if slot := f.fn.FreeSlot(name); slot >= 0 {
					cells[i] = f.free[slot]
					continue
				}
				invariant.Invariant(false, "MAKE_CLOSURE: free var %q not resolvable in enclosing frame", name)
			}
			fnObj := value.NewFunction(childFn.Name, childFn.Params, childFn, cells, m.Realm.FunctionProto)
			fnObj.SetOwn("length", value.Number(float64(len(childFn.Params))))
			fnObj.SetOwn("name", value.String(childFn.Name))
			if childFn.IsArrow {
				fnObj.Function.HasCapturedThis = true
				fnObj.Function.CapturedThis = f.this
			}
			m.push(value.FromObject(fnObj))

		// --- arithmetic / logic ---

		case bytecode.ADD:
			b := m.pop()
			a := m.pop()
			v, err := m.add(a, b)
			if err != nil {
				if err = m.dispatchError(f, err); err != nil {
					return value.Undefined, err
				}
				continue
			}
			m.push(v)

		case bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.MOD, bytecode.POW:
			b := m.pop()
			a := m.pop()
			na, err := m.toNumber(a)
			if err == nil {
				var nb float64
				nb, err = m.toNumber(b)
				if err == nil {
					m.push(value.Number(arith(op, na, nb)))
					continue
				}
			}
			if err = m.dispatchError(f, err); err != nil {
				return value.Undefined, err
			}

		case bytecode.NEG:
			a := m.pop()
			n, err := m.toNumber(a)
			if err != nil {
				if err = m.dispatchError(f, err); err != nil {
					return value.Undefined, err
				}
				continue
			}
			m.push(value.Number(-n))

		case bytecode.POS:
			a := m.pop()
			n, err := m.toNumber(a)
			if err != nil {
				if err = m.dispatchError(f, err); err != nil {
					return value.Undefined, err
				}
				continue
			}
			m.push(value.Number(n))

		case bytecode.INC, bytecode.DEC:
			a := m.pop()
			n, err := m.toNumber(a)
			if err != nil {
				if err = m.dispatchError(f, err); err != nil {
					return value.Undefined, err
				}
				continue
			}
			if op == bytecode.INC {
				m.push(value.Number(n + 1))
			} else {
				m.push(value.Number(n - 1))
			}

		case bytecode.BAND, bytecode.BOR, bytecode.BXOR:
			b := m.pop()
			a := m.pop()
			ia, err := m.toInt32(a)
			if err == nil {
				var ib int32
				ib, err = m.toInt32(b)
				if err == nil {
					m.push(value.Number(float64(bitwise(op, ia, ib))))
					continue
				}
			}
			if err = m.dispatchError(f, err); err != nil {
				return value.Undefined, err
			}

		case bytecode.BNOT:
			a := m.pop()
			ia, err := m.toInt32(a)
			if err != nil {
				if err = m.dispatchError(f, err); err != nil {
					return value.Undefined, err
				}
				continue
			}
			m.push(value.Number(float64(^ia)))

		case bytecode.SHL, bytecode.SHR, bytecode.USHR:
			b := m.pop()
			a := m.pop()
			ub, err := m.toUint32(b)
			if err == nil {
				shift := uint(ub & 31)
				if op == bytecode.USHR {
					var ua uint32
					ua, err = m.toUint32(a)
					if err == nil {
						m.push(value.Number(float64(ua >> shift)))
						continue
					}
				} else {
					var ia int32
					ia, err = m.toInt32(a)
					if err == nil {
						if op == bytecode.SHL {
							m.push(value.Number(float64(ia << shift)))
						} else {
							m.push(value.Number(float64(ia >> shift)))
						}
						continue
					}
				}
			}
			if err = m.dispatchError(f, err); err != nil {
				return value.Undefined, err
			}

		case bytecode.LT, bytecode.LE, bytecode.GT, bytecode.GE:
			b := m.pop()
			a := m.pop()
			ord, err := m.compare(a, b)
			if err != nil {
				if err = m.dispatchError(f, err); err != nil {
					return value.Undefined, err
				}
				continue
			}
			m.push(value.Bool(orderSatisfies(op, ord)))

		case bytecode.EQ, bytecode.NE:
			b := m.pop()
			a := m.pop()
			eq, err := m.abstractEquals(a, b)
			if err != nil {
				if err = m.dispatchError(f, err); err != nil {
					return value.Undefined, err
				}
				continue
			}
			if op == bytecode.NE {
				eq = !eq
			}
			m.push(value.Bool(eq))

		case bytecode.SEQ:
			b := m.pop()
			a := m.pop()
			m.push(value.Bool(value.StrictEquals(a, b)))

		case bytecode.SNE:
			b := m.pop()
			a := m.pop()
			m.push(value.Bool(!value.StrictEquals(a, b)))

		case bytecode.NOT:
			a := m.pop()
			m.push(value.Bool(!value.ToBoolean(a)))

		// --- type operators ---

		case bytecode.TYPEOF:
			a := m.pop()
			m.push(value.String(value.TypeOf(a)))

		case bytecode.TYPEOF_NAME:
			idx := int(f.readByte())
			name := f.fn.Constants[idx].(string)
			if v, ok := m.Realm.Global.GetOwn(name); ok {
				m.push(value.String(value.TypeOf(v)))
			} else {
				m.push(value.String("undefined"))
			}

		case bytecode.INSTANCEOF:
			ctor := m.pop()
			obj := m.pop()
			if !ctor.IsFunction() {
				if err := m.dispatchError(f, m.Realm.typeError("Right-hand side of 'instanceof' is not callable")); err != nil {
					return value.Undefined, err
				}
				continue
			}
			result, err := m.instanceOf(obj, ctor)
			if err != nil {
				if err = m.dispatchError(f, err); err != nil {
					return value.Undefined, err
				}
				continue
			}
			m.push(value.Bool(result))

		case bytecode.IN:
			objv := m.pop()
			keyv := m.pop()
			if !objv.IsObjectLike() || objv.Object() == nil {
				if err := m.dispatchError(f, m.Realm.typeError("Cannot use 'in' operator to search for '%s' in %s", value.ToString(keyv), value.ToString(objv))); err != nil {
					return value.Undefined, err
				}
				continue
			}
			m.push(value.Bool(m.hasProperty(objv.Object(), value.ToString(keyv))))

		// --- control flow ---

		case bytecode.JUMP:
			target := f.readWide()
			f.ip = target

		case bytecode.JUMP_IF_FALSE:
			target := f.readWide()
			v := m.pop()
			if !value.ToBoolean(v) {
				f.ip = target
			}

		case bytecode.JUMP_IF_TRUE:
			target := f.readWide()
			v := m.pop()
			if value.ToBoolean(v) {
				f.ip = target
			}

		// --- calls ---

		case bytecode.CALL:
			n := int(f.readByte())
			args := append([]value.Value(nil), m.stack[len(m.stack)-n:]...)
			m.stack = m.stack[:len(m.stack)-n]
			callee := m.pop()
			result, err := m.Call(callee, value.Undefined, args)
			if err != nil {
				if err = m.dispatchError(f, err); err != nil {
					return value.Undefined, err
				}
				continue
			}
			m.push(result)

		case bytecode.CALL_METHOD:
			n := int(f.readByte())
			args := append([]value.Value(nil), m.stack[len(m.stack)-n:]...)
			m.stack = m.stack[:len(m.stack)-n]
			key := m.pop()
			objv := m.pop()
			method, err := m.getProperty(objv, value.ToString(key))
			if err == nil {
				var result value.Value
				result, err = m.Call(method, objv, args)
				if err == nil {
					m.push(result)
					continue
				}
			}
			if err = m.dispatchError(f, err); err != nil {
				return value.Undefined, err
			}

		case bytecode.NEW:
			n := int(f.readByte())
			args := append([]value.Value(nil), m.stack[len(m.stack)-n:]...)
			m.stack = m.stack[:len(m.stack)-n]
			callee := m.pop()
			result, err := m.Construct(callee, args)
			if err != nil {
				if err = m.dispatchError(f, err); err != nil {
					return value.Undefined, err
				}
				continue
			}
			m.push(result)

		case bytecode.RETURN:
			return m.pop(), nil

		case bytecode.RETURN_UNDEFINED:
			return value.Undefined, nil

		// --- exceptions ---

		case bytecode.THROW:
			v := m.pop()
			if err := m.dispatchError(f, &ThrownError{Value: v}); err != nil {
				return value.Undefined, err
			}

		case bytecode.TRY_START:
			target := f.readWide()
			f.handlers = append(f.handlers, exceptionHandler{catchIP: target, stackBase: len(m.stack)})

		case bytecode.TRY_END:
			f.handlers = f.handlers[:len(f.handlers)-1]

		case bytecode.CATCH:
			m.push(m.pendingThrow)
			m.pendingThrow = value.Undefined

		// --- iteration ---

		case bytecode.FOR_IN_INIT:
			v := m.pop()
			m.push(value.NewIterator(&value.IteratorState{Keys: m.enumerableKeys(v)}))

		case bytecode.FOR_IN_NEXT:
			it := m.peek()
			st := it.Object().Iterator
			if st.Index >= len(st.Keys) {
				m.push(value.True)
			} else {
				k := st.Keys[st.Index]
				st.Index++
				m.push(value.String(k))
				m.push(value.False)
			}

		case bytecode.FOR_OF_INIT:
			v := m.pop()
			values, err := m.forOfValues(v)
			if err != nil {
				if err = m.dispatchError(f, err); err != nil {
					return value.Undefined, err
				}
				continue
			}
			m.push(value.NewIterator(&value.IteratorState{Values: values}))

		case bytecode.FOR_OF_NEXT:
			it := m.peek()
			st := it.Object().Iterator
			if st.Index >= len(st.Values) {
				m.push(value.True)
			} else {
				v := st.Values[st.Index]
				st.Index++
				m.push(v)
				m.push(value.False)
			}

		default:
			invariant.Invariant(false, "unhandled opcode %s", op)
		}
	}
}

// readByte/readWide mirror bytecode.Disassemble's own decode convention.
func (f *frame) readByte() byte {
	b := f.fn.Code[f.ip]
	f.ip++
	return b
}

func (f *frame) readWide() int {
	lo := int(f.fn.Code[f.ip])
	hi := int(f.fn.Code[f.ip+1])
	f.ip += 2
	return lo | hi<<8
}

// dispatchError routes a fallible opcode's error either to the current
// frame's innermost exception handler (unwinding the operand stack and
// jumping to the catch landing pad) or, if no handler catches it, returns it
// unchanged so runFrame propagates it to the caller. LimitError is never
// caught here: it always returns unchanged.
func (m *VM) dispatchError(f *frame, err error) error {
	te, ok := err.(*ThrownError)
	if !ok || len(f.handlers) == 0 {
		return err
	}
	h := f.handlers[len(f.handlers)-1]
	f.handlers = f.handlers[:len(f.handlers)-1]
	if h.stackBase <= len(m.stack) {
		m.stack = m.stack[:h.stackBase]
	}
	f.ip = h.catchIP
	m.pendingThrow = te.Value
	return nil
}

func constToValue(raw any) value.Value {
	switch v := raw.(type) {
	case float64:
		return value.Number(v)
	case string:
		return value.String(v)
	case bool:
		return value.Bool(v)
	}
	invariant.Invariant(false, "LOAD_CONST of non-primitive constant %T", raw)
	return value.Undefined
}

func arith(op bytecode.Op, a, b float64) float64 {
	switch op {
	case bytecode.SUB:
		return a - b
	case bytecode.MUL:
		return a * b
	case bytecode.DIV:
		return a / b
	case bytecode.MOD:
		return math.Mod(a, b)
	case bytecode.POW:
		return math.Pow(a, b)
	}
	invariant.Invariant(false, "arith: unhandled op %s", op)
	return 0
}

func bitwise(op bytecode.Op, a, b int32) int32 {
	switch op {
	case bytecode.BAND:
		return a & b
	case bytecode.BOR:
		return a | b
	case bytecode.BXOR:
		return a ^ b
	}
	invariant.Invariant(false, "bitwise: unhandled op %s", op)
	return 0
}

func orderSatisfies(op bytecode.Op, ord value.Ordering) bool {
	switch op {
	case bytecode.LT:
		return ord == value.OrderLess
	case bytecode.LE:
		return ord == value.OrderLess || ord == value.OrderEqual
	case bytecode.GT:
		return ord == value.OrderGreater
	case bytecode.GE:
		return ord == value.OrderGreater || ord == value.OrderEqual
	}
	invariant.Invariant(false, "orderSatisfies: unhandled op %s", op)
	return false
}

// forOfValues snapshots the operand's elements at loop-entry time: arrays by their elements, strings by UTF-16 code
// unit. There is no Symbol.iterator protocol in this dialect, so any other
// operand is a TypeError.
func (m *VM) forOfValues(v value.Value) ([]value.Value, error) {
	if v.IsString() {
		units := utf16.Encode([]rune(v.Str()))
		out := make([]value.Value, len(units))
		for i := range units {
			out[i] = value.String(string(utf16.Decode(units[i: i+1])))
		}
		return out, nil
	}
	if v.IsArray() {
		return append([]value.Value(nil), v.Object().Array.Elements...), nil
	}
	return nil, m.Realm.typeError("%s is not iterable", value.TypeOf(v))
}

// enumerableKeys snapshots the own keys for-in walks: for
// arrays, "0".."length-1" followed by any string keys; otherwise the
// object's own keys in insertion order. Unlike full ECMAScript, this dialect
// does not walk the prototype chain for for-in.
func (m *VM) enumerableKeys(v value.Value) []string {
	if !v.IsObjectLike() || v.Object() == nil {
		return nil
	}
	obj := v.Object()
	var keys []string
	if obj.Array != nil {
		for i := range obj.Array.Elements {
			keys = append(keys, strconv.Itoa(i))
		}
	}
	keys = append(keys, obj.OwnKeys()...)
	return keys
}
