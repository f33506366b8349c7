// Package ast defines the guest-language abstract syntax tree produced by
// package parser and consumed by package compiler.
package ast

// Node is implemented by every AST node. Position is carried for
// diagnostics.
type Node interface {
	Pos() (line, column int)
}

type pos struct{ Line, Column int }

func (p pos) Pos() (int, int) { return p.Line, p.Column }

// Program is the root node.
type Program struct {
	pos
	Body []Node
}

// Literals

type NumericLiteral struct {
	pos
	Value float64
}

type StringLiteral struct {
	pos
	Value string
}

type BooleanLiteral struct {
	pos
	Value bool
}

type NullLiteral struct{ pos }

type Identifier struct {
	pos
	Name string
}

type ThisExpression struct{ pos }

// RegExpLiteral is produced when the parser calls the lexer's regex-literal
// entry point.
type RegExpLiteral struct {
	pos
	Pattern string
	Flags string
}

// Expressions

type ArrayExpression struct {
	pos
	Elements []Node // nil element = elision
}

type ObjectExpression struct {
	pos
	Properties []*Property
}

type Property struct {
	pos
	Key Node // Identifier or StringLiteral/NumericLiteral
	Value Node
	Kind string // "init", "get", "set"
	Computed bool
	Shorthand bool
}

type UnaryExpression struct {
	pos
	Operator string
	Argument Node
	Prefix bool
}

type UpdateExpression struct {
	pos
	Operator string // "++" or "--"
	Argument Node
	Prefix bool
}

type BinaryExpression struct {
	pos
	Operator string
	Left Node
	Right Node
}

type LogicalExpression struct {
	pos
	Operator string // "&&" or "||"
	Left Node
	Right Node
}

type ConditionalExpression struct {
	pos
	Test Node
	Consequent Node
	Alternate Node
}

type AssignmentExpression struct {
	pos
	Operator string
	Left Node
	Right Node
}

type SequenceExpression struct {
	pos
	Expressions []Node
}

type MemberExpression struct {
	pos
	Object Node
	Property Node
	Computed bool
}

type CallExpression struct {
	pos
	Callee Node
	Arguments []Node
}

type NewExpression struct {
	pos
	Callee Node
	Arguments []Node
}

// FunctionExpression backs both `function(...) {}` expressions and named
// function declarations reached via FunctionDeclaration.
type FunctionExpression struct {
	pos
	ID *Identifier // nil for anonymous
	Params []*Identifier
	Body *BlockStatement
}

// ArrowFunctionExpression differs from FunctionExpression in scope binding
// only (no own `this`/`arguments`); the compiler's scope analyzer treats it as an ordinary nested function for cell/free-var purposes
// but does not give it its own `this` slot. ExpressionBody is used when the
// arrow's body is a bare expression (`x => x + 1`) rather than a block.
type ArrowFunctionExpression struct {
	pos
	Params []*Identifier
	Body *BlockStatement
	ExpressionBody Node
}

// Statements

type ExpressionStatement struct {
	pos
	Expression Node
}

type BlockStatement struct {
	pos
	Body []Node
}

type EmptyStatement struct{ pos }

type VariableDeclaration struct {
	pos
	Declarations []*VariableDeclarator
	Kind string // always "var" in this dialect
}

type VariableDeclarator struct {
	pos
	ID *Identifier
	Init Node // nil if uninitialized
}

type IfStatement struct {
	pos
	Test Node
	Consequent Node
	Alternate Node // nil if no else
}

type WhileStatement struct {
	pos
	Test Node
	Body Node
}

type DoWhileStatement struct {
	pos
	Body Node
	Test Node
}

type ForStatement struct {
	pos
	Init Node // *VariableDeclaration or expression, nil if omitted
	Test Node
	Update Node
	Body Node
}

type ForInStatement struct {
	pos
	Left Node // *VariableDeclaration or Identifier/MemberExpression
	Right Node
	Body Node
}

type ForOfStatement struct {
	pos
	Left Node
	Right Node
	Body Node
}

type BreakStatement struct {
	pos
	Label *Identifier
}

type ContinueStatement struct {
	pos
	Label *Identifier
}

type ReturnStatement struct {
	pos
	Argument Node // nil for bare `return;`
}

type ThrowStatement struct {
	pos
	Argument Node
}

type TryStatement struct {
	pos
	Block *BlockStatement
	Handler *CatchClause
	Finalizer *BlockStatement
}

type CatchClause struct {
	pos
	Param *Identifier
	Body *BlockStatement
}

type SwitchStatement struct {
	pos
	Discriminant Node
	Cases []*SwitchCase
}

type SwitchCase struct {
	pos
	Test Node // nil for default
	Consequent []Node
}

type LabeledStatement struct {
	pos
	Label *Identifier
	Body Node
}

type FunctionDeclaration struct {
	pos
	ID *Identifier
	Params []*Identifier
	Body *BlockStatement
}
