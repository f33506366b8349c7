package compiler

import (
	"github.com/simonw/micro-javascript-sub000/ast"
	"github.com/simonw/micro-javascript-sub000/bytecode"
)

// binaryOps maps a BinaryExpression operator token to its opcode. Grounded on
// compiler.py:_compile_expression's BinaryExpression branch.
var binaryOps = map[string]bytecode.Op{
	"+": bytecode.ADD, "-": bytecode.SUB, "*": bytecode.MUL, "/": bytecode.DIV,
	"%": bytecode.MOD, "**": bytecode.POW,
	"&": bytecode.BAND, "|": bytecode.BOR, "^": bytecode.BXOR,
	"<<": bytecode.SHL, ">>": bytecode.SHR, ">>>": bytecode.USHR,
	"<": bytecode.LT, "<=": bytecode.LE, ">": bytecode.GT, ">=": bytecode.GE,
	"==": bytecode.EQ, "!=": bytecode.NE, "===": bytecode.SEQ, "!==": bytecode.SNE,
	"instanceof": bytecode.INSTANCEOF, "in": bytecode.IN,
}

// compoundAssignOps maps a compound-assignment operator to the binary opcode
// applied before the store.
var compoundAssignOps = map[string]bytecode.Op{
	"+=": bytecode.ADD, "-=": bytecode.SUB, "*=": bytecode.MUL, "/=": bytecode.DIV,
	"%=": bytecode.MOD, "&=": bytecode.BAND, "|=": bytecode.BOR, "^=": bytecode.BXOR,
	"<<=": bytecode.SHL, ">>=": bytecode.SHR, ">>>=": bytecode.USHR,
}

// compileExpression compiles node to leave exactly one value on the operand
// stack. Grounded on compiler.py:_compile_expression.
func (c *Compiler) compileExpression(node ast.Node) {
	switch n := node.(type) {
	case *ast.NumericLiteral:
		c.loadConst(n.Value)
	case *ast.StringLiteral:
		c.loadConst(n.Value)
	case *ast.BooleanLiteral:
		if n.Value {
			c.emit(bytecode.LOAD_TRUE)
		} else {
			c.emit(bytecode.LOAD_FALSE)
		}
	case *ast.NullLiteral:
		c.emit(bytecode.LOAD_NULL)
	case *ast.Identifier:
		c.compileIdentifierLoad(n)
	case *ast.ThisExpression:
		c.emit(bytecode.THIS)
	case *ast.RegExpLiteral:
		idx := c.addConstant(&bytecode.RegexDescriptor{Pattern: n.Pattern, Flags: n.Flags})
		c.emitArg(bytecode.BUILD_REGEX, idx)
	case *ast.ArrayExpression:
		c.compileArrayExpression(n)
	case *ast.ObjectExpression:
		c.compileObjectExpression(n)
	case *ast.UnaryExpression:
		c.compileUnaryExpression(n)
	case *ast.UpdateExpression:
		c.compileUpdateExpression(n)
	case *ast.BinaryExpression:
		c.compileExpression(n.Left)
		c.compileExpression(n.Right)
		op, ok := binaryOps[n.Operator]
		if !ok {
			syntaxErrorAt(n, "unsupported binary operator %q", n.Operator)
		}
		c.emit(op)
	case *ast.LogicalExpression:
		c.compileLogicalExpression(n)
	case *ast.ConditionalExpression:
		c.compileExpression(n.Test)
		jumpFalse := c.emitJump(bytecode.JUMP_IF_FALSE)
		c.compileExpression(n.Consequent)
		jumpEnd := c.emitJump(bytecode.JUMP)
		c.patchJumpHere(jumpFalse)
		c.compileExpression(n.Alternate)
		c.patchJumpHere(jumpEnd)
	case *ast.AssignmentExpression:
		c.compileAssignmentExpression(n)
	case *ast.SequenceExpression:
		for i, e := range n.Expressions {
			if i > 0 {
				c.emit(bytecode.POP)
			}
			c.compileExpression(e)
		}
	case *ast.MemberExpression:
		c.compileExpression(n.Object)
		c.compilePropertyKey(n)
		c.emit(bytecode.GET_PROP)
	case *ast.CallExpression:
		c.compileCallExpression(n)
	case *ast.NewExpression:
		c.compileExpression(n.Callee)
		for _, a := range n.Arguments {
			c.compileExpression(a)
		}
		c.emitArg(bytecode.NEW, len(n.Arguments))
	case *ast.FunctionExpression:
		name := ""
		if n.ID != nil {
			name = n.ID.Name
		}
		c.compileClosureLiteral(name, n.Params, n.Body, false)
	case *ast.ArrowFunctionExpression:
		c.compileArrowFunction(n)
	default:
		syntaxErrorAt(node, "cannot compile expression %T", node)
	}
}

func (c *Compiler) compileIdentifierLoad(n *ast.Identifier) {
	if n.Name == "undefined" {
		c.emit(bytecode.LOAD_UNDEFINED)
		return
	}
	if slot, ok := c.getCellVar(n.Name); ok {
		c.emitArg(bytecode.LOAD_CELL, slot)
		return
	}
	if slot, ok := c.getLocal(n.Name); ok {
		c.emitArg(bytecode.LOAD_LOCAL, slot)
		return
	}
	if slot, ok := c.getFreeVar(n.Name); ok {
		c.emitArg(bytecode.LOAD_CLOSURE, slot)
		return
	}
	c.emitArg(bytecode.LOAD_NAME, c.addName(n.Name))
}

// compilePropertyKey compiles a MemberExpression's key half, leaving exactly
// one value on the stack: the computed expression's value, or the literal
// property name as a constant for `.prop` access.
func (c *Compiler) compilePropertyKey(n *ast.MemberExpression) {
	if n.Computed {
		c.compileExpression(n.Property)
		return
	}
	name := n.Property.(*ast.Identifier).Name
	c.loadConst(name)
}

func (c *Compiler) compileArrayExpression(n *ast.ArrayExpression) {
	for _, el := range n.Elements {
		if el == nil {
			c.emit(bytecode.LOAD_UNDEFINED)
			continue
		}
		c.compileExpression(el)
	}
	c.emitArg(bytecode.BUILD_ARRAY, len(n.Elements))
}

func (c *Compiler) compileObjectExpression(n *ast.ObjectExpression) {
	for _, p := range n.Properties {
		switch key := p.Key.(type) {
		case *ast.Identifier:
			c.loadConst(key.Name)
		case *ast.StringLiteral:
			c.loadConst(key.Value)
		case *ast.NumericLiteral:
			c.loadConst(key.Value)
		default:
			syntaxErrorAt(p, "invalid object key")
		}
		kind := p.Kind
		if kind == "" {
			kind = "init"
		}
		c.loadConst(kind)
		c.compileExpression(p.Value)
	}
	c.emitArg(bytecode.BUILD_OBJECT, len(n.Properties))
}

func (c *Compiler) compileUnaryExpression(n *ast.UnaryExpression) {
	switch n.Operator {
	case "-":
		c.compileExpression(n.Argument)
		c.emit(bytecode.NEG)
	case "+":
		c.compileExpression(n.Argument)
		c.emit(bytecode.POS)
	case "!":
		c.compileExpression(n.Argument)
		c.emit(bytecode.NOT)
	case "~":
		c.compileExpression(n.Argument)
		c.emit(bytecode.BNOT)
	case "void":
		c.compileExpression(n.Argument)
		c.emit(bytecode.POP)
		c.emit(bytecode.LOAD_UNDEFINED)
	case "typeof":
		if id, ok := n.Argument.(*ast.Identifier); ok {
			if _, local := c.getCellVar(id.Name); !local {
				if _, local = c.getLocal(id.Name); !local {
					if _, local = c.getFreeVar(id.Name); !local {
						// Not resolvable in any enclosing scope: typeof of an
						// undeclared name yields "undefined" rather than
						// throwing.
						c.emitArg(bytecode.TYPEOF_NAME, c.addName(id.Name))
						return
					}
				}
			}
		}
		c.compileExpression(n.Argument)
		c.emit(bytecode.TYPEOF)
	case "delete":
		if m, ok := n.Argument.(*ast.MemberExpression); ok {
			c.compileExpression(m.Object)
			c.compilePropertyKey(m)
			c.emit(bytecode.DELETE_PROP)
			return
		}
		c.emit(bytecode.LOAD_TRUE)
	default:
		syntaxErrorAt(n, "unsupported unary operator %q", n.Operator)
	}
}

func (c *Compiler) compileUpdateExpression(n *ast.UpdateExpression) {
	incDec := bytecode.INC
	if n.Operator == "--" {
		incDec = bytecode.DEC
	}

	switch arg := n.Argument.(type) {
	case *ast.Identifier:
		c.compileIdentifierLoad(arg)
		if !n.Prefix {
			// Postfix: DUP the pre-increment value so it survives as the
			// expression's result once the post-INC copy is stored and
			// popped back off.
			c.emit(bytecode.DUP)
			c.emit(incDec)
			c.resolveIdentifierStore(arg.Name)
			c.emit(bytecode.POP)
			return
		}
		c.emit(incDec)
		c.resolveIdentifierStore(arg.Name)

	case *ast.MemberExpression:
		c.compileExpression(arg.Object)
		c.compilePropertyKey(arg)
		c.emit(bytecode.DUP2)
		c.emit(bytecode.GET_PROP)
		if n.Prefix {
			c.emit(incDec)
			c.emit(bytecode.SET_PROP)
			return
		}
		tmp := c.newTempLocal()
		c.emitArg(bytecode.STORE_LOCAL, tmp)
		c.emit(incDec)
		c.emit(bytecode.SET_PROP)
		c.emit(bytecode.POP)
		c.emitArg(bytecode.LOAD_LOCAL, tmp)

	default:
		syntaxErrorAt(n, "invalid update expression target")
	}
}

func (c *Compiler) compileLogicalExpression(n *ast.LogicalExpression) {
	c.compileExpression(n.Left)
	switch n.Operator {
	case "&&":
		c.emit(bytecode.DUP)
		jumpFalse := c.emitJump(bytecode.JUMP_IF_FALSE)
		c.emit(bytecode.POP)
		c.compileExpression(n.Right)
		c.patchJumpHere(jumpFalse)
	case "||":
		c.emit(bytecode.DUP)
		jumpTrue := c.emitJump(bytecode.JUMP_IF_TRUE)
		c.emit(bytecode.POP)
		c.compileExpression(n.Right)
		c.patchJumpHere(jumpTrue)
	default:
		syntaxErrorAt(n, "unsupported logical operator %q", n.Operator)
	}
}

func (c *Compiler) compileAssignmentExpression(n *ast.AssignmentExpression) {
	if n.Operator == "=" {
		switch left := n.Left.(type) {
		case *ast.Identifier:
			c.compileExpression(n.Right)
			c.resolveIdentifierStore(left.Name)
		case *ast.MemberExpression:
			c.compileExpression(left.Object)
			c.compilePropertyKey(left)
			c.compileExpression(n.Right)
			c.emit(bytecode.SET_PROP)
		default:
			syntaxErrorAt(n, "invalid assignment target")
		}
		return
	}

	op, ok := compoundAssignOps[n.Operator]
	if !ok {
		syntaxErrorAt(n, "unsupported assignment operator %q", n.Operator)
	}
	switch left := n.Left.(type) {
	case *ast.Identifier:
		c.compileIdentifierLoad(left)
		c.compileExpression(n.Right)
		c.emit(op)
		c.resolveIdentifierStore(left.Name)
	case *ast.MemberExpression:
		c.compileExpression(left.Object)
		c.compilePropertyKey(left)
		c.emit(bytecode.DUP2)
		c.emit(bytecode.GET_PROP)
		c.compileExpression(n.Right)
		c.emit(op)
		c.emit(bytecode.SET_PROP)
	default:
		syntaxErrorAt(n, "invalid assignment target")
	}
}

func (c *Compiler) compileCallExpression(n *ast.CallExpression) {
	if m, ok := n.Callee.(*ast.MemberExpression); ok {
		c.compileExpression(m.Object)
		c.compilePropertyKey(m)
		for _, a := range n.Arguments {
			c.compileExpression(a)
		}
		c.emitArg(bytecode.CALL_METHOD, len(n.Arguments))
		return
	}
	c.compileExpression(n.Callee)
	for _, a := range n.Arguments {
		c.compileExpression(a)
	}
	c.emitArg(bytecode.CALL, len(n.Arguments))
}
