// Package compiler implements the scope analyzer and the single-pass
// bytecode compiler that turns an *ast.Program into a
// *bytecode.CompiledFunction. Grounded op-for-op on
// restructured from that file's manual
// save/restore-of-instance-fields idiom into an explicit funcState stack.
package compiler

import (
	"fmt"

	"github.com/simonw/micro-javascript-sub000/ast"
	"github.com/simonw/micro-javascript-sub000/bytecode"
	"github.com/simonw/micro-javascript-sub000/internal/invariant"
)

// loopCtx tracks pending break/continue jump-fixup positions for one loop or
// switch.
type loopCtx struct {
	breakJumps    []int
	continueJumps []int
	label         string
	isLoop        bool // false for switch: break only, no continue
	// finallyDepth is the number of enclosing finally frames active when this
	// loop was entered; a break/continue targeting it must inline every
	// finally from the current depth down to this one.
	finallyDepth int
}

// finallyFrame records one active `try...finally` region so non-local exits
// can inline its body before transferring control.
type finallyFrame struct {
	body *ast.BlockStatement
}

// funcState is one function's (or the program's) compile-time scope and
// emission state. Nesting is modeled as a parent-linked stack instead of the
// teacher source's manual field save/restore.
type funcState struct {
	parent *funcState

	code      []byte
	constants []any
	constIdx  map[any]int

	locals     []string
	localIdx   map[string]int
	cellVars   []string
	freeVars   []string
	freeVarIdx map[string]int

	loopStack    []*loopCtx
	finallyStack []*finallyFrame

	sourceMap  []bytecode.SourceLocation
	isArrow    bool
	inFunction bool // false for the top-level program
	tempSlots  int  // next synthetic temp-local suffix (property ++/-- restacking)
}

func newFuncState(parent *funcState) *funcState {
	return &funcState{
		parent: parent,
		constIdx: map[any]int{},
		localIdx: map[string]int{},
		freeVarIdx: map[string]int{},
	}
}

// Compiler drives compilation of one program; Compile is its only exported
// entry point.
type Compiler struct {
	cur *funcState
}

// CompileError wraps a compile-time failure (unresolved label, break/continue
// outside a loop) with the offending node's position, mirroring
// parser.SyntaxError's line/column carrying.
type CompileError struct {
	Message string
	Line    int
	Column  int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("SyntaxError: %s (%d:%d)", e.Message, e.Line, e.Column)
}

// Compile compiles a full program to its top-level CompiledFunction.
func Compile(prog *ast.Program) (fn *bytecode.CompiledFunction, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*CompileError); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()

	c := &Compiler{cur: newFuncState(nil)}
	body := prog.Body
	if len(body) == 0 {
		c.emit(bytecode.LOAD_UNDEFINED)
		c.emit(bytecode.RETURN)
	} else {
		for _, stmt := range body[:len(body)-1] {
			c.compileStatement(stmt)
		}
		c.compileStatementForValue(body[len(body)-1])
		c.emit(bytecode.RETURN)
	}

	return &bytecode.CompiledFunction{
		Name: "<program>",
		Code: c.cur.code,
		Constants: c.cur.constants,
		Locals: c.cur.locals,
		CellVars: c.cur.cellVars,
		FreeVars: c.cur.freeVars,
		SourceMap: c.cur.sourceMap,
	}, nil
}

// ---- emission primitives ----

func (c *Compiler) emit(op bytecode.Op) int {
	pos := len(c.cur.code)
	c.cur.code = append(c.cur.code, byte(op))
	return pos
}

func (c *Compiler) emitArg(op bytecode.Op, arg int) int {
	pos := len(c.cur.code)
	c.cur.code = append(c.cur.code, byte(op))
	invariant.InRange(arg, 0, 255, "compiler opcode byte operand")
	c.cur.code = append(c.cur.code, byte(arg))
	return pos
}

// emitJump emits a jump-family opcode with a placeholder 2-byte little-endian
// target, returning the position to patch later.
func (c *Compiler) emitJump(op bytecode.Op) int {
	pos := len(c.cur.code)
	c.cur.code = append(c.cur.code, byte(op), 0, 0)
	return pos
}

func (c *Compiler) patchJumpTo(pos, target int) {
	c.cur.code[pos+1] = byte(target & 0xFF)
	c.cur.code[pos+2] = byte((target >> 8) & 0xFF)
}

// patchJumpHere patches the jump at pos to land on the current code position.
func (c *Compiler) patchJumpHere(pos int) {
	c.patchJumpTo(pos, len(c.cur.code))
}

func (c *Compiler) here() int { return len(c.cur.code) }

func (c *Compiler) mark(n ast.Node) {
	line, col := n.Pos()
	c.cur.sourceMap = append(c.cur.sourceMap, bytecode.SourceLocation{Offset: len(c.cur.code), Line: line, Column: col})
}

// ---- constant pool ----

func (c *Compiler) addConstant(v any) int {
	switch v.(type) {
	case float64, string, bool:
		if idx, ok := c.cur.constIdx[v]; ok {
			return idx
		}
		idx := len(c.cur.constants)
		c.cur.constants = append(c.cur.constants, v)
		c.cur.constIdx[v] = idx
		return idx
	default:
		idx := len(c.cur.constants)
		c.cur.constants = append(c.cur.constants, v)
		return idx
	}
}

func (c *Compiler) addName(name string) int { return c.addConstant(name) }

// loadConst emits LOAD_CONST for v with a one-byte constant index. There is
// no wide encoding: a constant pool index past 255 trips an invariant panic
// rather than being silently truncated.
func (c *Compiler) loadConst(v any) {
	idx := c.addConstant(v)
	invariant.InRange(idx, 0, 255, "constant pool index")
	c.emitArg(bytecode.LOAD_CONST, idx)
}

// ---- locals / cells / free vars ----

func (c *Compiler) addLocal(name string) int {
	if idx, ok := c.cur.localIdx[name]; ok {
		return idx
	}
	idx := len(c.cur.locals)
	c.cur.locals = append(c.cur.locals, name)
	c.cur.localIdx[name] = idx
	return idx
}

func (c *Compiler) getLocal(name string) (int, bool) {
	idx, ok := c.cur.localIdx[name]
	return idx, ok
}

func (c *Compiler) getCellVar(name string) (int, bool) {
	for i, n := range c.cur.cellVars {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func (c *Compiler) getFreeVar(name string) (int, bool) {
	if idx, ok := c.cur.freeVarIdx[name]; ok {
		return idx, true
	}
	if !c.isInOuterScope(name) {
		return 0, false
	}
	idx := len(c.cur.freeVars)
	c.cur.freeVars = append(c.cur.freeVars, name)
	c.cur.freeVarIdx[name] = idx
	return idx, true
}

func (c *Compiler) isInOuterScope(name string) bool {
	for f := c.cur.parent; f != nil; f = f.parent {
		if _, ok := f.localIdx[name]; ok {
			return true
		}
		for _, n := range f.cellVars {
			if n == name {
				return true
			}
		}
	}
	return false
}

// newTempLocal allocates a synthetic local slot used only for stack
// restacking;
// "%t" cannot collide with a guest identifier since guest identifiers never
// contain "%".
func (c *Compiler) newTempLocal() int {
	name := fmt.Sprintf("%%t%d", c.cur.tempSlots)
	c.cur.tempSlots++
	return c.addLocal(name)
}

// resolveIdentifierLoad emits the correct load opcode for name, following
//.
func (c *Compiler) resolveIdentifierLoad(name string) {
	if slot, ok := c.getCellVar(name); ok {
		c.emitArg(bytecode.LOAD_CELL, slot)
		return
	}
	if slot, ok := c.getLocal(name); ok {
		c.emitArg(bytecode.LOAD_LOCAL, slot)
		return
	}
	if slot, ok := c.getFreeVar(name); ok {
		c.emitArg(bytecode.LOAD_CLOSURE, slot)
		return
	}
	c.emitArg(bytecode.LOAD_NAME, c.addName(name))
}

// resolveIdentifierStore emits the correct (non-popping) store opcode for
// name.
func (c *Compiler) resolveIdentifierStore(name string) {
	if slot, ok := c.getCellVar(name); ok {
		c.emitArg(bytecode.STORE_CELL, slot)
		return
	}
	if slot, ok := c.getLocal(name); ok {
		c.emitArg(bytecode.STORE_LOCAL, slot)
		return
	}
	if slot, ok := c.getFreeVar(name); ok {
		c.emitArg(bytecode.STORE_CLOSURE, slot)
		return
	}
	c.emitArg(bytecode.STORE_NAME, c.addName(name))
}

// declareAndStore compiles the store half of a `var` declarator or a
// function-declaration binding: inside a function body, the name is a local
// (a cell-var local if some inner function captures it); at program level it
// is a global. Catch
// clause params are local in both contexts and are stored directly by the
// try-statement compiler, not through this helper.
func (c *Compiler) declareAndStore(name string) {
	if c.cur.inFunction {
		if slot, ok := c.getCellVar(name); ok {
			c.emitArg(bytecode.STORE_CELL, slot)
			return
		}
		slot := c.addLocal(name)
		c.emitArg(bytecode.STORE_LOCAL, slot)
		return
	}
	c.emitArg(bytecode.STORE_NAME, c.addName(name))
}

func syntaxErrorAt(n ast.Node, format string, args ...any) {
	line, col := n.Pos()
	panic(&CompileError{Message: fmt.Sprintf(format, args...), Line: line, Column: col})
}
