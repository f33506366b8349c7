package vm

import (
	"github.com/simonw/micro-javascript-sub000/bytecode"
	"github.com/simonw/micro-javascript-sub000/value"
)

// exceptionHandler is one entry of a frame's TRY_START stack: the catch
// landing pad to jump to, and the operand-stack depth to restore (this module
// §4.5, grounded on vm.py's exception_handlers: "(call-stack depth, catch
// ip)" — restructured here as a per-frame stack since each Go frame already
// scopes its own operand-stack base).
type exceptionHandler struct {
	catchIP   int
	stackBase int // operand stack length to truncate back to before CATCH
}

// frame is one activation record.
type frame struct {
	fn *bytecode.CompiledFunction

	locals []value.Value
	cells  []*value.Cell // one per fn.CellVars, shared by pointer with inner closures
	free   []*value.Cell // one per fn.FreeVars, aliased from the closure that created this frame

	this      value.Value
	ip        int
	stackBase int // index into vm.stack where this frame's operand stack begins

	isConstructor bool
	newTarget     value.Value

	handlers []exceptionHandler
}

func newFrame(fn *bytecode.CompiledFunction, closureCells []*value.Cell, this value.Value, stackBase int) *frame {
	f := &frame{
		fn: fn,
		locals: make([]value.Value, len(fn.Locals)),
		cells: make([]*value.Cell, len(fn.CellVars)),
		free: closureCells,
		this: this,
		stackBase: stackBase,
	}
	for i := range f.locals {
		f.locals[i] = value.Undefined
	}
	for i := range f.cells {
		f.cells[i] = value.NewCell(value.Undefined)
	}
	return f
}
