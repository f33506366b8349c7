package compiler

import (
	"github.com/simonw/micro-javascript-sub000/ast"
	"github.com/simonw/micro-javascript-sub000/bytecode"
)

// compileStatement compiles a statement for its side effects only; the
// operand stack is left exactly as it started. Grounded on compiler.py:_compile_statement.
func (c *Compiler) compileStatement(node ast.Node) {
	switch n := node.(type) {
	case *ast.ExpressionStatement:
		c.mark(n)
		c.compileExpression(n.Expression)
		c.emit(bytecode.POP)

	case *ast.BlockStatement:
		for _, stmt := range n.Body {
			c.compileStatement(stmt)
		}

	case *ast.EmptyStatement:
	// no-op

	case *ast.VariableDeclaration:
		c.compileVariableDeclaration(n)

	case *ast.IfStatement:
		c.mark(n)
		c.compileExpression(n.Test)
		jumpFalse := c.emitJump(bytecode.JUMP_IF_FALSE)
		c.compileStatement(n.Consequent)
		if n.Alternate != nil {
			jumpEnd := c.emitJump(bytecode.JUMP)
			c.patchJumpHere(jumpFalse)
			c.compileStatement(n.Alternate)
			c.patchJumpHere(jumpEnd)
		} else {
			c.patchJumpHere(jumpFalse)
		}

	case *ast.WhileStatement:
		c.compileWhile(n, "")

	case *ast.DoWhileStatement:
		c.compileDoWhile(n, "")

	case *ast.ForStatement:
		c.compileFor(n, "")

	case *ast.ForInStatement:
		c.compileForIn(n, "")

	case *ast.ForOfStatement:
		c.compileForOf(n, "")

	case *ast.BreakStatement:
		c.compileBreak(n)

	case *ast.ContinueStatement:
		c.compileContinue(n)

	case *ast.ReturnStatement:
		c.mark(n)
		if n.Argument != nil {
			c.compileExpression(n.Argument)
			c.inlineFinallies(0)
			c.emit(bytecode.RETURN)
		} else {
			c.inlineFinallies(0)
			c.emit(bytecode.RETURN_UNDEFINED)
		}

	case *ast.ThrowStatement:
		c.mark(n)
		c.compileExpression(n.Argument)
		c.emit(bytecode.THROW)

	case *ast.TryStatement:
		c.compileTryStatement(n)

	case *ast.SwitchStatement:
		c.compileSwitch(n)

	case *ast.FunctionDeclaration:
		c.compileFunctionDeclaration(n)

	case *ast.LabeledStatement:
		c.compileLabeled(n)

	default:
		syntaxErrorAt(node, "cannot compile statement %T", node)
	}
}

// compileStatementForValue compiles a statement leaving its completion value
// on the stack, used only for the program's final statement.
// Grounded on compiler.py:_compile_statement_for_value.
func (c *Compiler) compileStatementForValue(node ast.Node) {
	switch n := node.(type) {
	case *ast.ExpressionStatement:
		c.compileExpression(n.Expression)

	case *ast.BlockStatement:
		if len(n.Body) == 0 {
			c.emit(bytecode.LOAD_UNDEFINED)
			return
		}
		for _, stmt := range n.Body[:len(n.Body)-1] {
			c.compileStatement(stmt)
		}
		c.compileStatementForValue(n.Body[len(n.Body)-1])

	case *ast.IfStatement:
		c.compileExpression(n.Test)
		jumpFalse := c.emitJump(bytecode.JUMP_IF_FALSE)
		c.compileStatementForValue(n.Consequent)
		jumpEnd := c.emitJump(bytecode.JUMP)
		c.patchJumpHere(jumpFalse)
		if n.Alternate != nil {
			c.compileStatementForValue(n.Alternate)
		} else {
			c.emit(bytecode.LOAD_UNDEFINED)
		}
		c.patchJumpHere(jumpEnd)

	case *ast.EmptyStatement:
		c.emit(bytecode.LOAD_UNDEFINED)

	default:
		c.compileStatement(node)
		c.emit(bytecode.LOAD_UNDEFINED)
	}
}

func (c *Compiler) compileVariableDeclaration(n *ast.VariableDeclaration) {
	c.mark(n)
	for _, decl := range n.Declarations {
		if decl.Init != nil {
			c.compileExpression(decl.Init)
		} else {
			c.emit(bytecode.LOAD_UNDEFINED)
		}
		c.declareAndStore(decl.ID.Name)
		c.emit(bytecode.POP)
	}
}

func (c *Compiler) compileFunctionDeclaration(n *ast.FunctionDeclaration) {
	c.mark(n)
	c.compileClosureLiteral(n.ID.Name, n.Params, n.Body, false)
	c.declareAndStore(n.ID.Name)
	c.emit(bytecode.POP)
}

// ---- loops ----

func (c *Compiler) pushLoop(label string, isLoop bool) *loopCtx {
	lc := &loopCtx{label: label, isLoop: isLoop, finallyDepth: len(c.cur.finallyStack)}
	c.cur.loopStack = append(c.cur.loopStack, lc)
	return lc
}

func (c *Compiler) popLoop() {
	c.cur.loopStack = c.cur.loopStack[:len(c.cur.loopStack)-1]
}

func (c *Compiler) finishLoop(lc *loopCtx, breakTarget, continueTarget int) {
	for _, pos := range lc.breakJumps {
		c.patchJumpTo(pos, breakTarget)
	}
	for _, pos := range lc.continueJumps {
		c.patchJumpTo(pos, continueTarget)
	}
}

func (c *Compiler) compileWhile(n *ast.WhileStatement, label string) {
	lc := c.pushLoop(label, true)
	loopStart := c.here()
	c.compileExpression(n.Test)
	jumpFalse := c.emitJump(bytecode.JUMP_IF_FALSE)
	c.compileStatement(n.Body)
	backJump := c.emitJump(bytecode.JUMP)
	c.patchJumpTo(backJump, loopStart)
	c.patchJumpHere(jumpFalse)
	c.finishLoop(lc, c.here(), loopStart)
	c.popLoop()
}

func (c *Compiler) compileDoWhile(n *ast.DoWhileStatement, label string) {
	lc := c.pushLoop(label, true)
	loopStart := c.here()
	c.compileStatement(n.Body)
	continueTarget := c.here()
	c.compileExpression(n.Test)
	jumpTrue := c.emitJump(bytecode.JUMP_IF_TRUE)
	c.patchJumpTo(jumpTrue, loopStart)
	c.finishLoop(lc, c.here(), continueTarget)
	c.popLoop()
}

func (c *Compiler) compileFor(n *ast.ForStatement, label string) {
	lc := c.pushLoop(label, true)
	if n.Init != nil {
		if decl, ok := n.Init.(*ast.VariableDeclaration); ok {
			c.compileStatement(decl)
		} else {
			c.compileExpression(n.Init)
			c.emit(bytecode.POP)
		}
	}
	loopStart := c.here()
	var jumpFalse int
	hasTest := n.Test != nil
	if hasTest {
		c.compileExpression(n.Test)
		jumpFalse = c.emitJump(bytecode.JUMP_IF_FALSE)
	}
	c.compileStatement(n.Body)
	continueTarget := c.here()
	if n.Update != nil {
		c.compileExpression(n.Update)
		c.emit(bytecode.POP)
	}
	backJump := c.emitJump(bytecode.JUMP)
	c.patchJumpTo(backJump, loopStart)
	if hasTest {
		c.patchJumpHere(jumpFalse)
	}
	c.finishLoop(lc, c.here(), continueTarget)
	c.popLoop()
}

// compileForInLeftStore compiles the store half of a for-in/for-of loop's
// left-hand binding, given the just-produced value already on the stack.
func (c *Compiler) compileForInLeftStore(left ast.Node) {
	switch l := left.(type) {
	case *ast.VariableDeclaration:
		c.declareAndStore(l.Declarations[0].ID.Name)
		c.emit(bytecode.POP)
	case *ast.Identifier:
		c.resolveIdentifierStore(l.Name)
		c.emit(bytecode.POP)
	case *ast.MemberExpression:
	// Stack: [..., iterator, value]. Build [obj, prop] under value, then
	// reorder so SET_PROP sees (obj, prop, value).
		c.compileExpression(l.Object)
		if l.Computed {
			c.compileExpression(l.Property)
		} else {
			idx := c.addConstant(l.Property.(*ast.Identifier).Name)
			c.emitArg(bytecode.LOAD_CONST, idx)
		}
	// Stack: [iterator, value, obj, prop] -> need [iterator, obj, prop, value].
		c.emit(bytecode.ROT3)
		c.emit(bytecode.SET_PROP)
		c.emit(bytecode.POP)
	default:
		syntaxErrorAt(left, "invalid for-in/for-of left-hand side")
	}
}

func (c *Compiler) compileForIn(n *ast.ForInStatement, label string) {
	lc := c.pushLoop(label, true)
	c.compileExpression(n.Right)
	c.emit(bytecode.FOR_IN_INIT)
	loopStart := c.here()
	c.emit(bytecode.FOR_IN_NEXT)
	jumpDone := c.emitJump(bytecode.JUMP_IF_TRUE)
	c.compileForInLeftStore(n.Left)
	c.compileStatement(n.Body)
	backJump := c.emitJump(bytecode.JUMP)
	c.patchJumpTo(backJump, loopStart)
	c.patchJumpHere(jumpDone)
	c.emit(bytecode.POP) // pop iterator
	c.finishLoop(lc, c.here(), loopStart)
	c.popLoop()
}

func (c *Compiler) compileForOf(n *ast.ForOfStatement, label string) {
	lc := c.pushLoop(label, true)
	c.compileExpression(n.Right)
	c.emit(bytecode.FOR_OF_INIT)
	loopStart := c.here()
	c.emit(bytecode.FOR_OF_NEXT)
	jumpDone := c.emitJump(bytecode.JUMP_IF_TRUE)
	c.compileForInLeftStore(n.Left)
	c.compileStatement(n.Body)
	backJump := c.emitJump(bytecode.JUMP)
	c.patchJumpTo(backJump, loopStart)
	c.patchJumpHere(jumpDone)
	c.emit(bytecode.POP) // pop iterator
	c.finishLoop(lc, c.here(), loopStart)
	c.popLoop()
}

func (c *Compiler) compileBreak(n *ast.BreakStatement) {
	if len(c.cur.loopStack) == 0 {
		syntaxErrorAt(n, "'break' outside of loop")
	}
	targetLabel := ""
	if n.Label != nil {
		targetLabel = n.Label.Name
	}
	var target *loopCtx
	for i := len(c.cur.loopStack) - 1; i >= 0; i-- {
		lc := c.cur.loopStack[i]
		if targetLabel == "" || lc.label == targetLabel {
			target = lc
			break
		}
	}
	if target == nil {
		syntaxErrorAt(n, "label '%s' not found", targetLabel)
	}
	c.inlineFinallies(target.finallyDepth)
	pos := c.emitJump(bytecode.JUMP)
	target.breakJumps = append(target.breakJumps, pos)
}

func (c *Compiler) compileContinue(n *ast.ContinueStatement) {
	if len(c.cur.loopStack) == 0 {
		syntaxErrorAt(n, "'continue' outside of loop")
	}
	targetLabel := ""
	if n.Label != nil {
		targetLabel = n.Label.Name
	}
	var target *loopCtx
	for i := len(c.cur.loopStack) - 1; i >= 0; i-- {
		lc := c.cur.loopStack[i]
		if !lc.isLoop && targetLabel == "" {
			continue // skip switch contexts for unlabeled continue
		}
		if targetLabel == "" || lc.label == targetLabel {
			target = lc
			break
		}
	}
	if target == nil || !target.isLoop {
		syntaxErrorAt(n, "label '%s' not found", targetLabel)
	}
	c.inlineFinallies(target.finallyDepth)
	pos := c.emitJump(bytecode.JUMP)
	target.continueJumps = append(target.continueJumps, pos)
}

// compileLabeled handles `label: loop` by threading the label directly into
// the loop's own loopCtx (so continue can target it), and otherwise pushes a
// break-only context for labeled non-loop statements.
func (c *Compiler) compileLabeled(n *ast.LabeledStatement) {
	label := n.Label.Name
	switch body := n.Body.(type) {
	case *ast.WhileStatement:
		c.compileWhile(body, label)
	case *ast.DoWhileStatement:
		c.compileDoWhile(body, label)
	case *ast.ForStatement:
		c.compileFor(body, label)
	case *ast.ForInStatement:
		c.compileForIn(body, label)
	case *ast.ForOfStatement:
		c.compileForOf(body, label)
	default:
		lc := &loopCtx{label: label, isLoop: false, finallyDepth: len(c.cur.finallyStack)}
		c.cur.loopStack = append(c.cur.loopStack, lc)
		c.compileStatement(n.Body)
		for _, pos := range lc.breakJumps {
			c.patchJumpHere(pos)
		}
		c.popLoop()
	}
}

// ---- switch ----

type pendingCaseJump struct {
	pos, caseIdx int
}

func (c *Compiler) compileSwitch(n *ast.SwitchStatement) {
	c.mark(n)
	c.compileExpression(n.Discriminant)

	var toBody []pendingCaseJump
	defaultIdx := -1
	var defaultJump int

	for i, cs := range n.Cases {
		if cs.Test != nil {
			c.emit(bytecode.DUP)
			c.compileExpression(cs.Test)
			c.emit(bytecode.SEQ)
			pos := c.emitJump(bytecode.JUMP_IF_TRUE)
			toBody = append(toBody, pendingCaseJump{pos, i})
		} else {
			defaultJump = c.emitJump(bytecode.JUMP)
			defaultIdx = i
		}
	}
	jumpEnd := c.emitJump(bytecode.JUMP)

	lc := c.pushLoop("", false)
	casePositions := make([]int, len(n.Cases))
	for i, cs := range n.Cases {
		casePositions[i] = c.here()
		for _, stmt := range cs.Consequent {
			c.compileStatement(stmt)
		}
	}

	// Every exit (no match, break, or natural fallthrough past the last
	// case) must land exactly on the discriminant POP so the operand stack
	// is always balanced; `break` targeting this POP rather
	// than skipping it is this package's one correction of the upstream
	// behavior in where break jumps were
	// patched to land *after* the POP, leaking the discriminant.
	popPos := c.here()
	c.patchJumpTo(jumpEnd, popPos)
	for _, pos := range lc.breakJumps {
		c.patchJumpTo(pos, popPos)
	}
	c.emit(bytecode.POP)

	for _, pj := range toBody {
		c.patchJumpTo(pj.pos, casePositions[pj.caseIdx])
	}
	if defaultIdx >= 0 {
		c.patchJumpTo(defaultJump, casePositions[defaultIdx])
	}
	c.popLoop()
}
