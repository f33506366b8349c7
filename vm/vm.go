package vm

import (
	"github.com/simonw/micro-javascript-sub000/bytecode"
	"github.com/simonw/micro-javascript-sub000/internal/invariant"
	"github.com/simonw/micro-javascript-sub000/value"
)

// defaultStepPoll mirrors jsregexp.VM's poll cadence: check the wall-clock
// budget every N executed opcodes rather than on every single one.
const defaultStepPoll = 4096

// VM interprets compiled bytecode against one Realm. One VM
// instance executes one Eval/top-level Run at a time; package jsctx creates
// a fresh VM per call so concurrent evaluations never share operand stacks.
type VM struct {
	Realm *Realm

	stack  []value.Value
	frames []*frame

	// pendingThrow carries a THROW opcode's value across to the CATCH opcode
	// at the handler's landing pad; the operand stack itself can't carry it
	// because THROW doesn't know the stack shape at an arbitrary catch IP.
	pendingThrow value.Value

	stepCount int
	// MaxSteps, if > 0, bounds the total opcodes a single Run/Call may
	// execute.
	MaxSteps int
	// MaxMemoryBytes, if > 0, bounds a coarse live-memory estimate (see
	// memoryEstimate) rather than the opcode count: a tight non-allocating
	// loop trips MaxSteps/the time poll, not this.
	MaxMemoryBytes int
	PollEvery      int
	// PollCB is polled every PollEvery opcodes; returning a non-nil error
	// aborts execution with that error wrapped as a non-catchable LimitError
	// if it isn't one already.
	PollCB func() error
}

// New creates a VM bound to realm.
func New(realm *Realm) *VM {
	invariant.NotNil(realm, "realm")
	return &VM{Realm: realm, PollEvery: defaultStepPoll}
}

func (m *VM) push(v value.Value) { m.stack = append(m.stack, v) }

func (m *VM) pop() value.Value {
	invariant.Invariant(len(m.stack) > 0, "pop from empty operand stack")
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *VM) peek() value.Value {
	invariant.Invariant(len(m.stack) > 0, "peek on empty operand stack")
	return m.stack[len(m.stack)-1]
}

func (m *VM) top() *frame { return m.frames[len(m.frames)-1] }

// Run executes the program-level compiled function, binding `this` to the Realm's global object, the
// convention this module's embedding layer (package jsctx) always uses for
// top-level evaluation (an Open Question this package resolves: there is no
// browser `window` to default to, so `this` at program scope is the global
// object rather than undefined).
func (m *VM) Run(fn *bytecode.CompiledFunction) (value.Value, error) {
	return m.callCompiled(fn, nil, value.FromObject(m.Realm.Global), nil, false, value.Undefined, value.Undefined)
}

// Call invokes any callable value: compiled closures,
// host functions, and bound functions, uniformly. This is the primitive
// package builtins uses to invoke guest callbacks (map/forEach/sort
// comparators, etc.) via the Caller interface.
func (m *VM) Call(fnVal value.Value, this value.Value, args []value.Value) (value.Value, error) {
	if !fnVal.IsFunction() {
		return value.Undefined, m.Realm.typeError("%s is not a function", value.TypeOf(fnVal))
	}
	fd := fnVal.Object().Function
	if fd.Bound != nil {
		allArgs := append(append([]value.Value{}, fd.Bound.Prepend...), args...)
		return m.Call(value.FromObject(fd.Bound.Original), fd.Bound.This, allArgs)
	}
	if fd.Host != nil {
		return fd.Host(m, this, args)
	}
	compiled, _ := fd.Compiled.(*bytecode.CompiledFunction)
	invariant.NotNil(compiled, "FunctionData.Compiled()")
	effectiveThis := this
	if fd.HasCapturedThis {
		effectiveThis = fd.CapturedThis
	}
	return m.callCompiled(compiled, fd.Cells, effectiveThis, args, false, value.Undefined, fnVal)
}

// Construct implements the `new` operator: a fresh object is linked to the callee's.prototype
// property, invoked as `this`; if the call returns a non-object the newly
// created object is kept instead of the return value.
func (m *VM) Construct(fnVal value.Value, args []value.Value) (value.Value, error) {
	if !fnVal.IsFunction() {
		return value.Undefined, m.Realm.typeError("%s is not a constructor", value.TypeOf(fnVal))
	}
	proto := m.Realm.ObjectProto
	if p, ok := fnVal.Object().GetOwn("prototype"); ok && p.IsObjectLike() && p.Object() != nil {
		proto = p.Object()
	}
	newObj := value.NewObject(proto)
	newThis := value.FromObject(newObj)

	fd := fnVal.Object().Function
	var result value.Value
	var err error
	switch {
	case fd.Host != nil:
		result, err = fd.Host(m, newThis, args)
	default:
		compiled, _ := fd.Compiled.(*bytecode.CompiledFunction)
		invariant.NotNil(compiled, "FunctionData.Compiled()")
		result, err = m.callCompiled(compiled, fd.Cells, newThis, args, true, fnVal, fnVal)
	}
	if err != nil {
		return value.Undefined, err
	}
	if result.IsObjectLike() && result.Object() != nil {
		return result, nil
	}
	return newThis, nil
}

// callCompiled pushes one frame, seeds locals from args, runs the dispatch
// loop to completion, and pops the frame. selfVal is the
// function's own callable Value (Undefined for the top-level program),
// bound into the frame under fn.Name for named-function self-reference.
func (m *VM) callCompiled(fn *bytecode.CompiledFunction, closureCells []*value.Cell, this value.Value, args []value.Value, isConstructor bool, newTarget value.Value, selfVal value.Value) (value.Value, error) {
	f := newFrame(fn, closureCells, this, len(m.stack))
	f.isConstructor = isConstructor
	f.newTarget = newTarget
	m.seedLocals(f, fn, args)
	if fn.Name != "" && !selfVal.IsUndefined() {
		if slot := fn.CellSlot(fn.Name); slot >= 0 {
			f.cells[slot] = value.NewCell(selfVal)
		} else if slot := fn.LocalSlot(fn.Name); slot >= 0 {
			f.locals[slot] = selfVal
		}
	}

	m.frames = append(m.frames, f)
	result, err := m.runFrame()
	m.frames = m.frames[:len(m.frames)-1]
	return result, err
}

// seedLocals writes parameters into their local (or cell) slots and builds
// the `arguments` array-like object.
func (m *VM) seedLocals(f *frame, fn *bytecode.CompiledFunction, args []value.Value) {
	for i, name := range fn.Params {
		var v value.Value
		if i < len(args) {
			v = args[i]
		} else {
			v = value.Undefined
		}
		if slot := fn.CellSlot(name); slot >= 0 {
			f.cells[slot] = value.NewCell(v)
			continue
		}
		if slot := fn.LocalSlot(name); slot >= 0 {
			f.locals[slot] = v
		}
	}
	if !fn.IsArrow {
		argsArr := value.NewObject(m.Realm.ArrayProto)
		argsArr.Array = value.NewArrayData(append([]value.Value{}, args...))
		argsVal := value.FromObject(argsArr)
		if slot := fn.CellSlot("arguments"); slot >= 0 {
			f.cells[slot] = value.NewCell(argsVal)
		} else if slot := fn.LocalSlot("arguments"); slot >= 0 {
			f.locals[slot] = argsVal
		}
	}
	// Named function expression self-reference is bound in callCompiled,
	// once the caller's own Value wrapper (selfVal) is available.
}
