package compiler

import "github.com/simonw/micro-javascript-sub000/ast"

// children returns n's direct Node-valued fields, in declaration order. It is
// the generic traversal primitive the scope analyzer uses in
// place of a reflection-driven "hasattr(node, '__dict__')" walk
// — Go has no free-standing equivalent, so
// each node lists its own children explicitly.
func children(n ast.Node) []ast.Node {
	switch t := n.(type) {
	case *ast.Program:
		return t.Body
	case *ast.ArrayExpression:
		return t.Elements
	case *ast.ObjectExpression:
		out := make([]ast.Node, 0, len(t.Properties)*2)
		for _, p := range t.Properties {
			if p.Computed {
				out = append(out, p.Key)
			}
			out = append(out, p.Value)
		}
		return out
	case *ast.UnaryExpression:
		return []ast.Node{t.Argument}
	case *ast.UpdateExpression:
		return []ast.Node{t.Argument}
	case *ast.BinaryExpression:
		return []ast.Node{t.Left, t.Right}
	case *ast.LogicalExpression:
		return []ast.Node{t.Left, t.Right}
	case *ast.ConditionalExpression:
		return []ast.Node{t.Test, t.Consequent, t.Alternate}
	case *ast.AssignmentExpression:
		return []ast.Node{t.Left, t.Right}
	case *ast.SequenceExpression:
		return t.Expressions
	case *ast.MemberExpression:
		if t.Computed {
			return []ast.Node{t.Object, t.Property}
		}
		return []ast.Node{t.Object}
	case *ast.CallExpression:
		out := append([]ast.Node{t.Callee}, t.Arguments...)
		return out
	case *ast.NewExpression:
		out := append([]ast.Node{t.Callee}, t.Arguments...)
		return out
	case *ast.ExpressionStatement:
		return []ast.Node{t.Expression}
	case *ast.BlockStatement:
		return t.Body
	case *ast.VariableDeclaration:
		out := make([]ast.Node, 0, len(t.Declarations))
		for _, d := range t.Declarations {
			if d.Init != nil {
				out = append(out, d.Init)
			}
		}
		return out
	case *ast.IfStatement:
		out := []ast.Node{t.Test, t.Consequent}
		if t.Alternate != nil {
			out = append(out, t.Alternate)
		}
		return out
	case *ast.WhileStatement:
		return []ast.Node{t.Test, t.Body}
	case *ast.DoWhileStatement:
		return []ast.Node{t.Body, t.Test}
	case *ast.ForStatement:
		var out []ast.Node
		if t.Init != nil {
			out = append(out, t.Init)
		}
		if t.Test != nil {
			out = append(out, t.Test)
		}
		if t.Update != nil {
			out = append(out, t.Update)
		}
		out = append(out, t.Body)
		return out
	case *ast.ForInStatement:
		return []ast.Node{t.Right, t.Body}
	case *ast.ForOfStatement:
		return []ast.Node{t.Right, t.Body}
	case *ast.ReturnStatement:
		if t.Argument != nil {
			return []ast.Node{t.Argument}
		}
		return nil
	case *ast.ThrowStatement:
		return []ast.Node{t.Argument}
	case *ast.TryStatement:
		out := []ast.Node{t.Block}
		if t.Handler != nil {
			out = append(out, t.Handler.Body)
		}
		if t.Finalizer != nil {
			out = append(out, t.Finalizer)
		}
		return out
	case *ast.SwitchStatement:
		out := []ast.Node{t.Discriminant}
		for _, c := range t.Cases {
			if c.Test != nil {
				out = append(out, c.Test)
			}
			out = append(out, c.Consequent...)
		}
		return out
	case *ast.LabeledStatement:
		return []ast.Node{t.Body}
	default:
		return nil
	}
}

// isFunctionNode reports whether n introduces a new function scope — the
// traversal stopping point for both cell_vars and free_vars analysis.
func isFunctionNode(n ast.Node) bool {
	switch n.(type) {
	case *ast.FunctionDeclaration, *ast.FunctionExpression, *ast.ArrowFunctionExpression:
		return true
	default:
		return false
	}
}

// funcParamsAndBody returns a function-like node's parameter names and body.
// For an ArrowFunctionExpression with an expression body, body is nil and
// exprBody holds the expression instead.
func funcParamsAndBody(n ast.Node) (params []string, body *ast.BlockStatement, exprBody ast.Node) {
	switch t := n.(type) {
	case *ast.FunctionDeclaration:
		for _, p := range t.Params {
			params = append(params, p.Name)
		}
		return params, t.Body, nil
	case *ast.FunctionExpression:
		for _, p := range t.Params {
			params = append(params, p.Name)
		}
		return params, t.Body, nil
	case *ast.ArrowFunctionExpression:
		for _, p := range t.Params {
			params = append(params, p.Name)
		}
		if t.Body != nil {
			return params, t.Body, nil
		}
		return params, nil, t.ExpressionBody
	}
	return nil, nil, nil
}

// collectVarDecls gathers every name hoisted to function scope from node:
// `var` declarators and function-declaration names, without descending into
// nested function bodies. Grounded on
//
func collectVarDecls(node ast.Node, into map[string]bool) {
	if node == nil {
		return
	}
	switch t := node.(type) {
	case *ast.VariableDeclaration:
		for _, d := range t.Declarations {
			into[d.ID.Name] = true
		}
	case *ast.FunctionDeclaration:
		into[t.ID.Name] = true
		return // do not recurse into the nested function's own body
	case *ast.FunctionExpression, *ast.ArrowFunctionExpression:
		return
	case *ast.BlockStatement:
		for _, stmt := range t.Body {
			collectVarDecls(stmt, into)
		}
	case *ast.IfStatement:
		collectVarDecls(t.Consequent, into)
		collectVarDecls(t.Alternate, into)
	case *ast.WhileStatement:
		collectVarDecls(t.Body, into)
	case *ast.DoWhileStatement:
		collectVarDecls(t.Body, into)
	case *ast.ForStatement:
		collectVarDecls(t.Init, into)
		collectVarDecls(t.Body, into)
	case *ast.ForInStatement:
		collectVarDecls(t.Left, into)
		collectVarDecls(t.Body, into)
	case *ast.ForOfStatement:
		collectVarDecls(t.Left, into)
		collectVarDecls(t.Body, into)
	case *ast.TryStatement:
		collectVarDecls(t.Block, into)
		if t.Handler != nil {
			collectVarDecls(t.Handler.Body, into)
		}
		collectVarDecls(t.Finalizer, into)
	case *ast.SwitchStatement:
		for _, c := range t.Cases {
			for _, stmt := range c.Consequent {
				collectVarDecls(stmt, into)
			}
		}
	case *ast.LabeledStatement:
		collectVarDecls(t.Body, into)
	}
}

// findCapturedVars finds every name in localsSet that some function nested
// (directly or transitively) inside body references from its enclosing
// scope — the set that must live in cells.
// Grounded on compiler.py:_find_captured_vars / _find_free_vars_in_function.
func findCapturedVars(body ast.Node, localsSet map[string]bool) map[string]bool {
	captured := map[string]bool{}
	var visit func(n ast.Node)
	visit = func(n ast.Node) {
		if n == nil {
			return
		}
		if isFunctionNode(n) {
			for name := range freeVarsOfFunction(n, localsSet) {
				captured[name] = true
			}
			return
		}
		for _, c := range children(n) {
			visit(c)
		}
	}
	visit(body)
	return captured
}

// freeVarsOfFunction returns the names funcNode references from outerLocals
// that it does not declare itself, including pass-through for its own nested
// functions (compiler.py:_find_free_vars_in_function).
func freeVarsOfFunction(funcNode ast.Node, outerLocals map[string]bool) map[string]bool {
	params, body, exprBody := funcParamsAndBody(funcNode)
	localVars := map[string]bool{}
	for _, p := range params {
		localVars[p] = true
	}
	if body != nil {
		collectVarDecls(body, localVars)
	}

	free := map[string]bool{}
	var visit func(n ast.Node)
	visit = func(n ast.Node) {
		if n == nil {
			return
		}
		if id, ok := n.(*ast.Identifier); ok {
			if outerLocals[id.Name] && !localVars[id.Name] {
				free[id.Name] = true
			}
			return
		}
		if isFunctionNode(n) {
			for name := range freeVarsOfFunction(n, outerLocals) {
				if !localVars[name] {
					free[name] = true
				}
			}
			return
		}
		for _, c := range children(n) {
			visit(c)
		}
	}
	if body != nil {
		visit(body)
	} else {
		visit(exprBody)
	}
	return free
}

// findRequiredFreeVars finds names body needs from ANY ancestor scope
// (checked via isInOuterScope, not just the immediate outer locals set),
// including pass-through for nested functions. This is the function's own
// `free_vars`, distinct from findCapturedVars which computes
// what the function's *inner* functions need from *it*.
// Grounded on compiler.py:_find_required_free_vars.
func findRequiredFreeVars(body ast.Node, localVars map[string]bool, isInOuterScope func(string) bool) map[string]bool {
	free := map[string]bool{}
	var visit func(n ast.Node)
	visit = func(n ast.Node) {
		if n == nil {
			return
		}
		if id, ok := n.(*ast.Identifier); ok {
			if !localVars[id.Name] && isInOuterScope(id.Name) {
				free[id.Name] = true
			}
			return
		}
		if isFunctionNode(n) {
			nestedParams, nestedBody, nestedExpr := funcParamsAndBody(n)
			nestedLocals := map[string]bool{"arguments": true}
			for _, p := range nestedParams {
				nestedLocals[p] = true
			}
			if nestedBody != nil {
				collectVarDecls(nestedBody, nestedLocals)
			}
			var nb ast.Node = nestedBody
			if nb == nil {
				nb = nestedExpr
			}
			nested := findRequiredFreeVars(nb, nestedLocals, isInOuterScope)
			for name := range nested {
				if !localVars[name] && isInOuterScope(name) {
					free[name] = true
				}
			}
			return
		}
		for _, c := range children(n) {
			visit(c)
		}
	}
	visit(body)
	return free
}
