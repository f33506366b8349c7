package compiler

import (
	"sort"

	"github.com/simonw/micro-javascript-sub000/ast"
	"github.com/simonw/micro-javascript-sub000/bytecode"
)

// sortedNames returns the keys of a name set in a fixed, deterministic order.
// Python's corresponding sets iterate in an
// implementation-defined order; sorting keeps this compiler's output
// reproducible across runs, which the Python source does not guarantee.
func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// compileClosureLiteral compiles a nested function/arrow body into its own
// CompiledFunction, adds it to the enclosing function's constant pool, and
// emits MAKE_CLOSURE. The VM resolves FreeVars against the current frame by
// name at closure-creation time.
func (c *Compiler) compileClosureLiteral(name string, params []*ast.Identifier, body *ast.BlockStatement, isArrow bool) {
	fn := c.compileFunctionBody(name, params, body, nil, isArrow)
	idx := c.addConstant(fn)
	c.emitArg(bytecode.MAKE_CLOSURE, idx)
}

func (c *Compiler) compileArrowFunction(n *ast.ArrowFunctionExpression) {
	fn := c.compileFunctionBody("", n.Params, n.Body, n.ExpressionBody, true)
	idx := c.addConstant(fn)
	c.emitArg(bytecode.MAKE_CLOSURE, idx)
}

// compileFunctionBody compiles one function-like scope. Exactly one
// of body/exprBody is non-nil; exprBody is an arrow's bare-expression form
// (`x => x + 1`), which compiles to `<expr>; RETURN`.
func (c *Compiler) compileFunctionBody(name string, params []*ast.Identifier, body *ast.BlockStatement, exprBody ast.Node, isArrow bool) *bytecode.CompiledFunction {
	parent := c.cur
	child := newFuncState(parent)
	child.inFunction = true
	child.isArrow = isArrow
	c.cur = child

	paramNames := make([]string, len(params))
	for i, p := range params {
		paramNames[i] = p.Name
	}

	// locals: the full set of names hoisted to this function scope, used for
	// cell/free-var analysis. Arrow functions get no
	// "arguments" binding of their own (ast.go's ArrowFunctionExpression doc).
	localsSet := map[string]bool{}
	for _, pn := range paramNames {
		localsSet[pn] = true
	}
	if !isArrow {
		localsSet["arguments"] = true
	}
	if name != "" {
		localsSet[name] = true // named function expression: self-reference
	}
	var bodyNode ast.Node = body
	if body != nil {
		collectVarDecls(body, localsSet)
	} else {
		bodyNode = exprBody
	}

	capturedSet := findCapturedVars(bodyNode, localsSet)
	child.cellVars = sortedNames(capturedSet)

	handled := map[string]bool{}
	for _, pn := range paramNames {
		if !capturedSet[pn] {
			c.addLocal(pn)
		}
		handled[pn] = true
	}
	if !isArrow {
		if !capturedSet["arguments"] {
			c.addLocal("arguments")
		}
		handled["arguments"] = true
	}
	if name != "" {
		if !capturedSet[name] {
			c.addLocal(name)
		}
		handled[name] = true
	}
	for _, n := range sortedNames(localsSet) {
		if handled[n] || capturedSet[n] {
			continue
		}
		c.addLocal(n)
	}

	required := findRequiredFreeVars(bodyNode, localsSet, c.isInOuterScope)
	child.freeVars = sortedNames(required)
	for i, n := range child.freeVars {
		child.freeVarIdx[n] = i
	}

	if body != nil {
		for _, stmt := range body.Body {
			c.compileStatement(stmt)
		}
		c.emit(bytecode.RETURN_UNDEFINED)
	} else {
		c.compileExpression(exprBody)
		c.emit(bytecode.RETURN)
	}

	fn := &bytecode.CompiledFunction{
		Name: name,
		Params: paramNames,
		Code: child.code,
		Constants: child.constants,
		Locals: child.locals,
		CellVars: child.cellVars,
		FreeVars: child.freeVars,
		SourceMap: child.sourceMap,
		IsArrow: isArrow,
	}
	c.cur = parent
	return fn
}
