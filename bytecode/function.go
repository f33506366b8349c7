package bytecode

import "github.com/simonw/micro-javascript-sub000/jsregexp"

// RegexDescriptor is the (pattern, flags) constant-pool entry a regex
// literal compiles to. The VM compiles it to a *jsregexp.Program lazily on
// first BUILD_REGEX execution and caches the result here.
type RegexDescriptor struct {
	Pattern string
	Flags   string

	compiled *jsregexp.Program
}

// Compiled returns the cached *jsregexp.Program, or nil before the VM's first
// BUILD_REGEX execution for this literal.
func (d *RegexDescriptor) Compiled() *jsregexp.Program { return d.compiled }

// SetCompiled caches the lazily-compiled program: regex literals compile to
// a (pattern, flags) pair and are turned into a program on first use, not
// at compile time.
func (d *RegexDescriptor) SetCompiled(p *jsregexp.Program) { d.compiled = p }

// SourceLocation maps a bytecode offset to the source line/column that
// produced it, for thrown-error annotation.
type SourceLocation struct {
	Offset int
	Line   int
	Column int
}

// CompiledFunction is the immutable record the compiler produces and the VM
// interprets. Everything needed to run the
// function lives here: code, constants, parameter/locals layout, and the
// capture sets the scope analyzer computed.
type CompiledFunction struct {
	Name   string
	Params []string

	Code      []byte
	Constants []any // number, string, interned name, *CompiledFunction, *RegexDescriptor

	// Locals holds every name in scope as a local slot: params, "arguments",
	// and every var-hoisted declaration, in the order they were assigned a
	// slot.
	Locals []string

	// CellVars is the subset of Locals that some inner function captures;
	// a frame allocates one value.Cell per entry here.
	CellVars []string

	// FreeVars are names this function needs from the enclosing function's
	// locals/cells/free_vars.
	FreeVars []string

	SourceMap []SourceLocation

	// IsArrow marks arrow functions, which bind neither their own `this` nor
	// `arguments`; the VM frame setup reads this instead of
	// giving arrows their own `this`/`arguments` slot.
	IsArrow bool
}

// NumLocals is the slot count a call frame must allocate.
func (f *CompiledFunction) NumLocals() int { return len(f.Locals) }

// LocalSlot returns the slot index for name, or -1.
func (f *CompiledFunction) LocalSlot(name string) int {
	for i, n := range f.Locals {
		if n == name {
			return i
		}
	}
	return -1
}

// CellSlot returns the cell index for name, or -1.
func (f *CompiledFunction) CellSlot(name string) int {
	for i, n := range f.CellVars {
		if n == name {
			return i
		}
	}
	return -1
}

// FreeSlot returns the free-variable index for name, or -1.
func (f *CompiledFunction) FreeSlot(name string) int {
	for i, n := range f.FreeVars {
		if n == name {
			return i
		}
	}
	return -1
}

// LineFor resolves offset to a (line, column) pair using the nearest
// preceding SourceMap entry, or (0, 0) if no map was attached.
func (f *CompiledFunction) LineFor(offset int) (line, column int) {
	best := -1
	for i, loc := range f.SourceMap {
		if loc.Offset <= offset && (best == -1 || loc.Offset > f.SourceMap[best].Offset) {
			best = i
		}
	}
	if best == -1 {
		return 0, 0
	}
	return f.SourceMap[best].Line, f.SourceMap[best].Column
}
