package parser

import (
	"testing"

	"github.com/simonw/micro-javascript-sub000/ast"
)

func parseOK(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return prog
}

func TestParseVariableDeclaration(t *testing.T) {
	prog := parseOK(t, "var x = 1, y = 2;")
	if len(prog.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Body))
	}
	decl, ok := prog.Body[0].(*ast.VariableDeclaration)
	if !ok {
		t.Fatalf("expected VariableDeclaration, got %T", prog.Body[0])
	}
	if len(decl.Declarations) != 2 {
		t.Fatalf("expected 2 declarators, got %d", len(decl.Declarations))
	}
	if decl.Declarations[0].ID.Name != "x" || decl.Declarations[1].ID.Name != "y" {
		t.Fatalf("unexpected declarator names: %+v", decl.Declarations)
	}
}

func TestParseBinaryPrecedence(t *testing.T) {
	prog := parseOK(t, "1 + 2 * 3;")
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	bin, ok := stmt.Expression.(*ast.BinaryExpression)
	if !ok {
		t.Fatalf("expected top-level BinaryExpression, got %T", stmt.Expression)
	}
	if bin.Operator != "+" {
		t.Fatalf("expected '+' at top level, got %q", bin.Operator)
	}
	right, ok := bin.Right.(*ast.BinaryExpression)
	if !ok || right.Operator != "*" {
		t.Fatalf("expected '*' nested on the right, got %+v", bin.Right)
	}
}

func TestParseExponentRightAssociative(t *testing.T) {
	prog := parseOK(t, "2 ** 3 ** 2;")
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	bin := stmt.Expression.(*ast.BinaryExpression)
	if bin.Operator != "**" {
		t.Fatalf("expected '**', got %q", bin.Operator)
	}
	if _, ok := bin.Right.(*ast.BinaryExpression); !ok {
		t.Fatalf("expected right-associative nesting on the right operand, got %+v", bin.Right)
	}
	if _, ok := bin.Left.(*ast.NumericLiteral); !ok {
		t.Fatalf("expected a bare literal on the left, got %+v", bin.Left)
	}
}

func TestParseLogicalShortCircuitNodes(t *testing.T) {
	prog := parseOK(t, "a && b || c;")
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	top, ok := stmt.Expression.(*ast.LogicalExpression)
	if !ok || top.Operator != "||" {
		t.Fatalf("expected top-level '||' LogicalExpression, got %+v", stmt.Expression)
	}
	if _, ok := top.Left.(*ast.LogicalExpression); !ok {
		t.Fatalf("expected nested '&&' LogicalExpression on the left, got %+v", top.Left)
	}
}

func TestParseIfElse(t *testing.T) {
	prog := parseOK(t, "if (x) { y = 1; } else { y = 2; }")
	ifStmt, ok := prog.Body[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected IfStatement, got %T", prog.Body[0])
	}
	if ifStmt.Alternate == nil {
		t.Fatal("expected else branch")
	}
}

func TestParseForLoop(t *testing.T) {
	prog := parseOK(t, "for (var i = 0; i < 10; i = i + 1) { x = i; }")
	forStmt, ok := prog.Body[0].(*ast.ForStatement)
	if !ok {
		t.Fatalf("expected ForStatement, got %T", prog.Body[0])
	}
	if _, ok := forStmt.Init.(*ast.VariableDeclaration); !ok {
		t.Fatalf("expected VariableDeclaration init, got %T", forStmt.Init)
	}
}

func TestParseForIn(t *testing.T) {
	prog := parseOK(t, "for (var k in obj) { x = k; }")
	forIn, ok := prog.Body[0].(*ast.ForInStatement)
	if !ok {
		t.Fatalf("expected ForInStatement, got %T", prog.Body[0])
	}
	if _, ok := forIn.Left.(*ast.VariableDeclaration); !ok {
		t.Fatalf("expected VariableDeclaration left, got %T", forIn.Left)
	}
}

func TestParseForOf(t *testing.T) {
	prog := parseOK(t, "for (var v of arr) { x = v; }")
	if _, ok := prog.Body[0].(*ast.ForOfStatement); !ok {
		t.Fatalf("expected ForOfStatement, got %T", prog.Body[0])
	}
}

func TestParseForWithExistingIdentifierIn(t *testing.T) {
	prog := parseOK(t, "for (k in obj) { x = k; }")
	forIn, ok := prog.Body[0].(*ast.ForInStatement)
	if !ok {
		t.Fatalf("expected ForInStatement, got %T", prog.Body[0])
	}
	if _, ok := forIn.Left.(*ast.Identifier); !ok {
		t.Fatalf("expected bare Identifier left, got %T", forIn.Left)
	}
}

func TestParseLabeledStatement(t *testing.T) {
	prog := parseOK(t, "outer: while (true) { break outer; }")
	label, ok := prog.Body[0].(*ast.LabeledStatement)
	if !ok {
		t.Fatalf("expected LabeledStatement, got %T", prog.Body[0])
	}
	if label.Label.Name != "outer" {
		t.Fatalf("unexpected label name %q", label.Label.Name)
	}
}

func TestParseTryCatchFinally(t *testing.T) {
	prog := parseOK(t, "try { a(); } catch (e) { b(); } finally { c(); }")
	tryStmt, ok := prog.Body[0].(*ast.TryStatement)
	if !ok {
		t.Fatalf("expected TryStatement, got %T", prog.Body[0])
	}
	if tryStmt.Handler == nil || tryStmt.Finalizer == nil {
		t.Fatal("expected both a handler and a finalizer")
	}
	if tryStmt.Handler.Param.Name != "e" {
		t.Fatalf("unexpected catch parameter name %q", tryStmt.Handler.Param.Name)
	}
}

func TestParseTryWithoutHandlerOrFinalizerErrors(t *testing.T) {
	_, err := Parse("try { a(); }")
	if err == nil {
		t.Fatal("expected a SyntaxError for try without catch or finally")
	}
}

func TestParseSwitchStatement(t *testing.T) {
	prog := parseOK(t, `switch (x) { case 1: a(); break; default: b(); }`)
	sw, ok := prog.Body[0].(*ast.SwitchStatement)
	if !ok {
		t.Fatalf("expected SwitchStatement, got %T", prog.Body[0])
	}
	if len(sw.Cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(sw.Cases))
	}
	if sw.Cases[1].Test != nil {
		t.Fatal("expected default case to have a nil Test")
	}
}

func TestParseFunctionDeclaration(t *testing.T) {
	prog := parseOK(t, "function add(a, b) { return a + b; }")
	fn, ok := prog.Body[0].(*ast.FunctionDeclaration)
	if !ok {
		t.Fatalf("expected FunctionDeclaration, got %T", prog.Body[0])
	}
	if fn.ID.Name != "add" || len(fn.Params) != 2 {
		t.Fatalf("unexpected function signature: %+v", fn)
	}
}

func TestParseArrowSingleParam(t *testing.T) {
	prog := parseOK(t, "var f = x => x + 1;")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	arrow, ok := decl.Declarations[0].Init.(*ast.ArrowFunctionExpression)
	if !ok {
		t.Fatalf("expected ArrowFunctionExpression, got %T", decl.Declarations[0].Init)
	}
	if len(arrow.Params) != 1 || arrow.Params[0].Name != "x" {
		t.Fatalf("unexpected arrow params: %+v", arrow.Params)
	}
	if arrow.ExpressionBody == nil || arrow.Body != nil {
		t.Fatal("expected an expression body, not a block")
	}
}

func TestParseArrowParenParamsBlockBody(t *testing.T) {
	prog := parseOK(t, "var f = (a, b) => { return a + b; };")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	arrow, ok := decl.Declarations[0].Init.(*ast.ArrowFunctionExpression)
	if !ok {
		t.Fatalf("expected ArrowFunctionExpression, got %T", decl.Declarations[0].Init)
	}
	if len(arrow.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(arrow.Params))
	}
	if arrow.Body == nil || arrow.ExpressionBody != nil {
		t.Fatal("expected a block body, not a bare expression")
	}
}

func TestParseArrowNoParams(t *testing.T) {
	prog := parseOK(t, "var f = () => 42;")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	arrow, ok := decl.Declarations[0].Init.(*ast.ArrowFunctionExpression)
	if !ok {
		t.Fatalf("expected ArrowFunctionExpression, got %T", decl.Declarations[0].Init)
	}
	if len(arrow.Params) != 0 {
		t.Fatalf("expected 0 params, got %d", len(arrow.Params))
	}
}

func TestParseParenthesizedExpressionIsNotArrow(t *testing.T) {
	prog := parseOK(t, "var f = (a + b);")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	if _, ok := decl.Declarations[0].Init.(*ast.ArrowFunctionExpression); ok {
		t.Fatal("plain parenthesized expression should not parse as an arrow function")
	}
	if _, ok := decl.Declarations[0].Init.(*ast.BinaryExpression); !ok {
		t.Fatalf("expected BinaryExpression, got %T", decl.Declarations[0].Init)
	}
}

func TestParseObjectLiteralGetSet(t *testing.T) {
	prog := parseOK(t, `var o = { get x() { return 1; }, set x(v) { this.v = v; }, y: 2, z };`)
	decl := prog.Body[0].(*ast.VariableDeclaration)
	obj, ok := decl.Declarations[0].Init.(*ast.ObjectExpression)
	if !ok {
		t.Fatalf("expected ObjectExpression, got %T", decl.Declarations[0].Init)
	}
	if len(obj.Properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(obj.Properties))
	}
	if obj.Properties[0].Kind != "get" || obj.Properties[1].Kind != "set" {
		t.Fatalf("expected get/set kinds, got %q/%q", obj.Properties[0].Kind, obj.Properties[1].Kind)
	}
	if !obj.Properties[3].Shorthand {
		t.Fatal("expected the bare 'z' property to be shorthand")
	}
}

func TestParseObjectLiteralComputedAndMethod(t *testing.T) {
	prog := parseOK(t, `var o = { [k]: 1, method() { return 2; } };`)
	decl := prog.Body[0].(*ast.VariableDeclaration)
	obj := decl.Declarations[0].Init.(*ast.ObjectExpression)
	if !obj.Properties[0].Computed {
		t.Fatal("expected first property to be computed")
	}
	if _, ok := obj.Properties[1].Value.(*ast.FunctionExpression); !ok {
		t.Fatalf("expected method shorthand to produce a FunctionExpression, got %T", obj.Properties[1].Value)
	}
}

func TestParseMemberAndCallChain(t *testing.T) {
	prog := parseOK(t, "a.b[c](d, e).f;")
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	outer, ok := stmt.Expression.(*ast.MemberExpression)
	if !ok {
		t.Fatalf("expected trailing MemberExpression, got %T", stmt.Expression)
	}
	if outer.Computed {
		t.Fatal("expected '.f' to be a non-computed member access")
	}
	call, ok := outer.Object.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected a CallExpression beneath the member access, got %T", outer.Object)
	}
	if len(call.Arguments) != 2 {
		t.Fatalf("expected 2 call arguments, got %d", len(call.Arguments))
	}
}

func TestParseNewExpression(t *testing.T) {
	prog := parseOK(t, "new Foo(1, 2);")
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	newExpr, ok := stmt.Expression.(*ast.NewExpression)
	if !ok {
		t.Fatalf("expected NewExpression, got %T", stmt.Expression)
	}
	if len(newExpr.Arguments) != 2 {
		t.Fatalf("expected 2 constructor arguments, got %d", len(newExpr.Arguments))
	}
}

func TestParseUnaryAndUpdate(t *testing.T) {
	prog := parseOK(t, "typeof x; !y; ++z; w--;")
	if _, ok := prog.Body[0].(*ast.ExpressionStatement).Expression.(*ast.UnaryExpression); !ok {
		t.Fatal("expected typeof to parse as UnaryExpression")
	}
	prefixed := prog.Body[2].(*ast.ExpressionStatement).Expression.(*ast.UpdateExpression)
	if !prefixed.Prefix {
		t.Fatal("expected ++z to be prefix")
	}
	postfixed := prog.Body[3].(*ast.ExpressionStatement).Expression.(*ast.UpdateExpression)
	if postfixed.Prefix {
		t.Fatal("expected w-- to be postfix")
	}
}

func TestParseConditionalExpression(t *testing.T) {
	prog := parseOK(t, "a ? b : c;")
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	if _, ok := stmt.Expression.(*ast.ConditionalExpression); !ok {
		t.Fatalf("expected ConditionalExpression, got %T", stmt.Expression)
	}
}

func TestParseSequenceExpression(t *testing.T) {
	prog := parseOK(t, "a = 1, b = 2;")
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	seq, ok := stmt.Expression.(*ast.SequenceExpression)
	if !ok {
		t.Fatalf("expected SequenceExpression, got %T", stmt.Expression)
	}
	if len(seq.Expressions) != 2 {
		t.Fatalf("expected 2 expressions in sequence, got %d", len(seq.Expressions))
	}
}

func TestParseRegexLiteral(t *testing.T) {
	prog := parseOK(t, `var r = /ab+c/gi;`)
	decl := prog.Body[0].(*ast.VariableDeclaration)
	re, ok := decl.Declarations[0].Init.(*ast.RegExpLiteral)
	if !ok {
		t.Fatalf("expected RegExpLiteral, got %T", decl.Declarations[0].Init)
	}
	if re.Pattern != "ab+c" || re.Flags != "gi" {
		t.Fatalf("unexpected regex literal: %+v", re)
	}
}

func TestParseDivisionIsNotRegex(t *testing.T) {
	prog := parseOK(t, "var r = a / b;")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	if _, ok := decl.Declarations[0].Init.(*ast.BinaryExpression); !ok {
		t.Fatalf("expected a division BinaryExpression, got %T", decl.Declarations[0].Init)
	}
}

func TestParseUnclosedBraceReportsOpenPosition(t *testing.T) {
	_, err := Parse("function f() { return 1;")
	if err == nil {
		t.Fatal("expected an unclosed-bracket SyntaxError")
	}
	synErr, ok := err.(*SyntaxError)
	if !ok {
		t.Fatalf("expected *SyntaxError, got %T", err)
	}
	if synErr.OpenedAt == nil {
		t.Fatal("expected OpenedAt to point back at the unclosed '{'")
	}
}

func TestParseMismatchedBracketsReportsBoth(t *testing.T) {
	_, err := Parse("var a = [1, 2);")
	if err == nil {
		t.Fatal("expected a mismatched-bracket SyntaxError")
	}
	if _, ok := err.(*SyntaxError); !ok {
		t.Fatalf("expected *SyntaxError, got %T", err)
	}
}

func TestSuggestKeywordFindsCloseMatch(t *testing.T) {
	suggestions := suggestKeyword("vra")
	found := false
	for _, s := range suggestions {
		if s == "var" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 'var' among suggestions for 'vra', got %v", suggestions)
	}
}
