package compiler

import (
	"github.com/simonw/micro-javascript-sub000/ast"
	"github.com/simonw/micro-javascript-sub000/bytecode"
)

// inlineFinallies recompiles every active finally body from the innermost
// frame down to (but not including) keepDepth, in that order, before a
// break/continue/return transfers control out of its enclosing try blocks
//. Grounded on this module's
// single-pass-emitter idiom of resolving control transfers at compile time
// rather than through a runtime unwind table.
func (c *Compiler) inlineFinallies(keepDepth int) {
	stack := c.cur.finallyStack
	for i := len(stack) - 1; i >= keepDepth; i-- {
		c.compileStatement(stack[i].body)
	}
}

// compileFinallyInline compiles body with its own (topmost) finally frame
// temporarily removed from the active stack, so a break/continue/return
// inside the finally body itself does not re-trigger it — but still inlines
// any further-out finally frames it needs to cross.
func (c *Compiler) compileFinallyInline(body *ast.BlockStatement) {
	saved := c.cur.finallyStack
	c.cur.finallyStack = saved[:len(saved)-1]
	c.compileStatement(body)
	c.cur.finallyStack = saved
}

// compileTryStatement compiles try/catch/finally.
//
// The VM's exception machinery (TRY_START/TRY_END/CATCH) is exactly the
// teacher/the reference implementation's: TRY_START pushes a (frame, catch-ip) handler
// that THROW pops and jumps to. It has no notion of finally. The upstream
// Python compiler only inlines finally
// bodies ahead of break/continue/return — a thrown exception that escapes a
// try-with-finally-but-no-catch skips the finally entirely there, which
// violates the "finally runs exactly once on every exit path" property this
// module targets. This compiler closes that gap by giving every
// finally-bearing try an implicit catch-and-rethrow: the finally body runs on
// the exceptional path too, immediately before the exception continues
// propagating, purely as compile-time desugaring — the VM still never hears
// the word "finally".
func (c *Compiler) compileTryStatement(n *ast.TryStatement) {
	c.mark(n)
	hasFinally := n.Finalizer != nil
	if hasFinally {
		c.cur.finallyStack = append(c.cur.finallyStack, &finallyFrame{body: n.Finalizer})
	}

	tryStart := c.emitJump(bytecode.TRY_START)
	c.compileStatement(n.Block)
	c.emit(bytecode.TRY_END)
	jumpEnd := c.emitJump(bytecode.JUMP)
	c.patchJumpHere(tryStart)
	c.emit(bytecode.CATCH)

	switch {
	case n.Handler != nil && hasFinally:
		slot := c.addLocal(n.Handler.Param.Name)
		c.emitArg(bytecode.STORE_LOCAL, slot)
		c.emit(bytecode.POP)

	// Protect the handler body too: an exception escaping the catch
	// (a rethrow, or a new error) must still run the finally exactly
	// once before it keeps propagating.
		innerStart := c.emitJump(bytecode.TRY_START)
		c.compileStatement(n.Handler.Body)
		c.emit(bytecode.TRY_END)
		innerDone := c.emitJump(bytecode.JUMP)
		c.patchJumpHere(innerStart)
		c.emit(bytecode.CATCH)
		tmp := c.newTempLocal()
		c.emitArg(bytecode.STORE_LOCAL, tmp)
		c.emit(bytecode.POP)
		c.compileFinallyInline(n.Finalizer)
		c.emitArg(bytecode.LOAD_LOCAL, tmp)
		c.emit(bytecode.THROW)
		c.patchJumpHere(innerDone)

	case n.Handler != nil:
		slot := c.addLocal(n.Handler.Param.Name)
		c.emitArg(bytecode.STORE_LOCAL, slot)
		c.emit(bytecode.POP)
		c.compileStatement(n.Handler.Body)

	default:
	// finally-only: save the exception, run the finally, rethrow.
		tmp := c.newTempLocal()
		c.emitArg(bytecode.STORE_LOCAL, tmp)
		c.emit(bytecode.POP)
		c.compileFinallyInline(n.Finalizer)
		c.emitArg(bytecode.LOAD_LOCAL, tmp)
		c.emit(bytecode.THROW)
	}

	c.patchJumpHere(jumpEnd)

	if hasFinally {
		c.cur.finallyStack = c.cur.finallyStack[:len(c.cur.finallyStack)-1]
		c.compileStatement(n.Finalizer)
	}
}
