// Package parser implements the guest language's recursive-descent parser,
// producing an ast.Program and reporting syntax errors as *SyntaxError
// (errors.go).
package parser

import (
	"fmt"

	"github.com/simonw/micro-javascript-sub000/ast"
	"github.com/simonw/micro-javascript-sub000/lexer"
)

var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"|": 3,
	"^": 4,
	"&": 5,
	"==": 6, "!=": 6, "===": 6, "!==": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7, "in": 7, "instanceof": 7,
	"<<": 8, ">>": 8, ">>>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
	"**": 11,
}

// Parser turns a token stream into an ast.Program.
type Parser struct {
	lex      *lexer.Lexer
	current  lexer.Token
	previous lexer.Token
	brackets BracketTracker
}

func New(source string) (*Parser, error) {
	l := lexer.New(source)
	p := &Parser{lex: l}
	tok, err := l.Next()
	if err != nil {
		return nil, err
	}
	p.current = tok
	return p, nil
}

func Parse(source string) (*ast.Program, error) {
	p, err := New(source)
	if err != nil {
		return nil, err
	}
	return p.ParseProgram()
}

func (p *Parser) err(format string, args ...any) *SyntaxError {
	return &SyntaxError{Type: ErrorInvalidSyntax, Message: fmt.Sprintf(format, args...), Token: p.current}
}

func (p *Parser) advance() (lexer.Token, error) {
	p.previous = p.current
	tok, err := p.lex.Next()
	if err != nil {
		return lexer.Token{}, err
	}
	p.current = tok
	return p.previous, nil
}

func (p *Parser) check(types...lexer.TokenType) bool {
	for _, t := range types {
		if p.current.Type == t {
			return true
		}
	}
	return false
}

func (p *Parser) match(types...lexer.TokenType) (bool, error) {
	if p.check(types...) {
		if _, err := p.advance(); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (p *Parser) expect(tt lexer.TokenType, message string) (lexer.Token, error) {
	if p.current.Type != tt {
		e := p.err("%s", message)
		if word := p.current.Str; word != "" {
			e.Suggestions = suggestKeyword(word)
		}
		return lexer.Token{}, e
	}
	return p.advance()
}

func (p *Parser) atEnd() bool { return p.current.Type == lexer.EOF }

// ParseProgram parses the entire source.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	var body []ast.Node
	for !p.atEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			body = append(body, stmt)
		}
	}
	if !p.brackets.IsEmpty() {
		unclosed := p.brackets.GetUnclosedBrackets()[0]
		return nil, &SyntaxError{Type: ErrorUnterminated, Message: "unexpected end of input, unclosed bracket",
			Token: p.current, OpenedAt: &unclosed.Token}
	}
	return &ast.Program{Body: body}, nil
}

// ---- Statements ----

func (p *Parser) parseStatement() (ast.Node, error) {
	if ok, err := p.match(lexer.SEMICOLON); err != nil {
		return nil, err
	} else if ok {
		return &ast.EmptyStatement{}, nil
	}

	if p.check(lexer.LBRACE) {
		return p.parseBlockStatement()
	}
	if ok, err := p.match(lexer.VAR); err != nil {
		return nil, err
	} else if ok {
		return p.parseVariableDeclaration()
	}
	if ok, err := p.match(lexer.IF); err != nil {
		return nil, err
	} else if ok {
		return p.parseIfStatement()
	}
	if ok, err := p.match(lexer.WHILE); err != nil {
		return nil, err
	} else if ok {
		return p.parseWhileStatement()
	}
	if ok, err := p.match(lexer.DO); err != nil {
		return nil, err
	} else if ok {
		return p.parseDoWhileStatement()
	}
	if ok, err := p.match(lexer.FOR); err != nil {
		return nil, err
	} else if ok {
		return p.parseForStatement()
	}
	if ok, err := p.match(lexer.BREAK); err != nil {
		return nil, err
	} else if ok {
		return p.parseBreakStatement()
	}
	if ok, err := p.match(lexer.CONTINUE); err != nil {
		return nil, err
	} else if ok {
		return p.parseContinueStatement()
	}
	if ok, err := p.match(lexer.RETURN); err != nil {
		return nil, err
	} else if ok {
		return p.parseReturnStatement()
	}
	if ok, err := p.match(lexer.THROW); err != nil {
		return nil, err
	} else if ok {
		return p.parseThrowStatement()
	}
	if ok, err := p.match(lexer.TRY); err != nil {
		return nil, err
	} else if ok {
		return p.parseTryStatement()
	}
	if ok, err := p.match(lexer.SWITCH); err != nil {
		return nil, err
	} else if ok {
		return p.parseSwitchStatement()
	}
	if ok, err := p.match(lexer.FUNCTION); err != nil {
		return nil, err
	} else if ok {
		return p.parseFunctionDeclaration()
	}

	if p.check(lexer.IDENTIFIER) {
		save := p.snapshot()
		labelTok := p.current
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		if p.check(lexer.COLON) {
			if _, err := p.advance(); err != nil {
				return nil, err
			}
			body, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			return &ast.LabeledStatement{
				Label: &ast.Identifier{Name: labelTok.Str},
				Body: body,
			}, nil
		}
		p.restore(save)
	}

	return p.parseExpressionStatement()
}

func (p *Parser) parseBlockStatement() (*ast.BlockStatement, error) {
	open, err := p.expect(lexer.LBRACE, "expected '{'")
	if err != nil {
		return nil, err
	}
	p.brackets.Push(lexer.LBRACE, open)
	var body []ast.Node
	for !p.check(lexer.RBRACE) && !p.atEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			body = append(body, stmt)
		}
	}
	if p.atEnd() {
		openTok := open
		return nil, &SyntaxError{Type: ErrorUnterminated, Message: "unexpected end of input, unclosed '{'",
			Token: p.current, OpenedAt: &openTok}
	}
	closeTok, err := p.expect(lexer.RBRACE, "expected '}'")
	if err != nil {
		return nil, err
	}
	if bErr := p.brackets.Pop(lexer.LBRACE, closeTok); bErr != nil {
		return nil, bErr
	}
	return &ast.BlockStatement{Body: body}, nil
}

func (p *Parser) parseVariableDeclaration() (*ast.VariableDeclaration, error) {
	var decls []*ast.VariableDeclarator
	for {
		nameTok, err := p.expect(lexer.IDENTIFIER, "expected variable name")
		if err != nil {
			return nil, err
		}
		var init ast.Node
		if ok, err := p.match(lexer.ASSIGN); err != nil {
			return nil, err
		} else if ok {
			init, err = p.parseAssignmentExpression(false)
			if err != nil {
				return nil, err
			}
		}
		decls = append(decls, &ast.VariableDeclarator{ID: &ast.Identifier{Name: nameTok.Str}, Init: init})
		if ok, err := p.match(lexer.COMMA); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	p.consumeSemicolon()
	return &ast.VariableDeclaration{Declarations: decls, Kind: "var"}, nil
}

func (p *Parser) consumeSemicolon() {
	if p.check(lexer.SEMICOLON) {
		p.advance()
	}
}

func (p *Parser) parseIfStatement() (*ast.IfStatement, error) {
	if _, err := p.expect(lexer.LPAREN, "expected '(' after 'if'"); err != nil {
		return nil, err
	}
	test, err := p.parseExpression(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "expected ')' after condition"); err != nil {
		return nil, err
	}
	consequent, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var alternate ast.Node
	if ok, err := p.match(lexer.ELSE); err != nil {
		return nil, err
	} else if ok {
		alternate, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return &ast.IfStatement{Test: test, Consequent: consequent, Alternate: alternate}, nil
}

func (p *Parser) parseWhileStatement() (*ast.WhileStatement, error) {
	if _, err := p.expect(lexer.LPAREN, "expected '(' after 'while'"); err != nil {
		return nil, err
	}
	test, err := p.parseExpression(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "expected ')' after condition"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Test: test, Body: body}, nil
}

func (p *Parser) parseDoWhileStatement() (*ast.DoWhileStatement, error) {
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.WHILE, "expected 'while' after do block"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN, "expected '(' after 'while'"); err != nil {
		return nil, err
	}
	test, err := p.parseExpression(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "expected ')' after condition"); err != nil {
		return nil, err
	}
	p.consumeSemicolon()
	return &ast.DoWhileStatement{Body: body, Test: test}, nil
}

func (p *Parser) parseForStatement() (ast.Node, error) {
	if _, err := p.expect(lexer.LPAREN, "expected '(' after 'for'"); err != nil {
		return nil, err
	}

	var init ast.Node
	if ok, err := p.match(lexer.SEMICOLON); err != nil {
		return nil, err
	} else if !ok {
		if ok, err := p.match(lexer.VAR); err != nil {
			return nil, err
		} else if ok {
			nameTok, err := p.expect(lexer.IDENTIFIER, "expected variable name")
			if err != nil {
				return nil, err
			}
			if ok, err := p.match(lexer.IN); err != nil {
				return nil, err
			} else if ok {
				right, err := p.parseExpression(false)
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(lexer.RPAREN, "expected ')' after for-in"); err != nil {
					return nil, err
				}
				body, err := p.parseStatement()
				if err != nil {
					return nil, err
				}
				left := &ast.VariableDeclaration{Declarations: []*ast.VariableDeclarator{{ID: &ast.Identifier{Name: nameTok.Str}}}, Kind: "var"}
				return &ast.ForInStatement{Left: left, Right: right, Body: body}, nil
			}
			if ok, err := p.match(lexer.OF); err != nil {
				return nil, err
			} else if ok {
				right, err := p.parseExpression(false)
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(lexer.RPAREN, "expected ')' after for-of"); err != nil {
					return nil, err
				}
				body, err := p.parseStatement()
				if err != nil {
					return nil, err
				}
				left := &ast.VariableDeclaration{Declarations: []*ast.VariableDeclarator{{ID: &ast.Identifier{Name: nameTok.Str}}}, Kind: "var"}
				return &ast.ForOfStatement{Left: left, Right: right, Body: body}, nil
			}
			var varInit ast.Node
			if ok, err := p.match(lexer.ASSIGN); err != nil {
				return nil, err
			} else if ok {
				varInit, err = p.parseAssignmentExpression(false)
				if err != nil {
					return nil, err
				}
			}
			decls := []*ast.VariableDeclarator{{ID: &ast.Identifier{Name: nameTok.Str}, Init: varInit}}
			for {
				ok, err := p.match(lexer.COMMA)
				if err != nil {
					return nil, err
				}
				if !ok {
					break
				}
				n, err := p.expect(lexer.IDENTIFIER, "expected variable name")
				if err != nil {
					return nil, err
				}
				var vi ast.Node
				if ok, err := p.match(lexer.ASSIGN); err != nil {
					return nil, err
				} else if ok {
					vi, err = p.parseAssignmentExpression(false)
					if err != nil {
						return nil, err
					}
				}
				decls = append(decls, &ast.VariableDeclarator{ID: &ast.Identifier{Name: n.Str}, Init: vi})
			}
			init = &ast.VariableDeclaration{Declarations: decls, Kind: "var"}
			if _, err := p.expect(lexer.SEMICOLON, "expected ';' after for init"); err != nil {
				return nil, err
			}
		} else {
			expr, err := p.parseExpression(true)
			if err != nil {
				return nil, err
			}
			if ok, err := p.match(lexer.IN); err != nil {
				return nil, err
			} else if ok {
				right, err := p.parseExpression(false)
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(lexer.RPAREN, "expected ')' after for-in"); err != nil {
					return nil, err
				}
				body, err := p.parseStatement()
				if err != nil {
					return nil, err
				}
				return &ast.ForInStatement{Left: expr, Right: right, Body: body}, nil
			}
			init = expr
			if _, err := p.expect(lexer.SEMICOLON, "expected ';' after for init"); err != nil {
				return nil, err
			}
		}
	}

	var test ast.Node
	if !p.check(lexer.SEMICOLON) {
		var err error
		test, err = p.parseExpression(false)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMICOLON, "expected ';' after for condition"); err != nil {
		return nil, err
	}

	var update ast.Node
	if !p.check(lexer.RPAREN) {
		var err error
		update, err = p.parseExpression(false)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.RPAREN, "expected ')' after for update"); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.ForStatement{Init: init, Test: test, Update: update, Body: body}, nil
}

func (p *Parser) parseBreakStatement() (*ast.BreakStatement, error) {
	var label *ast.Identifier
	if p.check(lexer.IDENTIFIER) {
		tok, err := p.advance()
		if err != nil {
			return nil, err
		}
		label = &ast.Identifier{Name: tok.Str}
	}
	p.consumeSemicolon()
	return &ast.BreakStatement{Label: label}, nil
}

func (p *Parser) parseContinueStatement() (*ast.ContinueStatement, error) {
	var label *ast.Identifier
	if p.check(lexer.IDENTIFIER) {
		tok, err := p.advance()
		if err != nil {
			return nil, err
		}
		label = &ast.Identifier{Name: tok.Str}
	}
	p.consumeSemicolon()
	return &ast.ContinueStatement{Label: label}, nil
}

func (p *Parser) parseReturnStatement() (*ast.ReturnStatement, error) {
	var arg ast.Node
	if !p.check(lexer.SEMICOLON) && !p.check(lexer.RBRACE) && !p.atEnd() {
		var err error
		arg, err = p.parseExpression(false)
		if err != nil {
			return nil, err
		}
	}
	p.consumeSemicolon()
	return &ast.ReturnStatement{Argument: arg}, nil
}

func (p *Parser) parseThrowStatement() (*ast.ThrowStatement, error) {
	arg, err := p.parseExpression(false)
	if err != nil {
		return nil, err
	}
	p.consumeSemicolon()
	return &ast.ThrowStatement{Argument: arg}, nil
}

func (p *Parser) parseTryStatement() (*ast.TryStatement, error) {
	block, err := p.parseBlockStatement()
	if err != nil {
		return nil, err
	}
	var handler *ast.CatchClause
	var finalizer *ast.BlockStatement

	if ok, err := p.match(lexer.CATCH); err != nil {
		return nil, err
	} else if ok {
		if _, err := p.expect(lexer.LPAREN, "expected '(' after 'catch'"); err != nil {
			return nil, err
		}
		paramTok, err := p.expect(lexer.IDENTIFIER, "expected catch parameter")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN, "expected ')' after catch parameter"); err != nil {
			return nil, err
		}
		catchBody, err := p.parseBlockStatement()
		if err != nil {
			return nil, err
		}
		handler = &ast.CatchClause{Param: &ast.Identifier{Name: paramTok.Str}, Body: catchBody}
	}

	if ok, err := p.match(lexer.FINALLY); err != nil {
		return nil, err
	} else if ok {
		finalizer, err = p.parseBlockStatement()
		if err != nil {
			return nil, err
		}
	}

	if handler == nil && finalizer == nil {
		return nil, p.err("missing catch or finally clause")
	}
	return &ast.TryStatement{Block: block, Handler: handler, Finalizer: finalizer}, nil
}

func (p *Parser) parseSwitchStatement() (*ast.SwitchStatement, error) {
	if _, err := p.expect(lexer.LPAREN, "expected '(' after 'switch'"); err != nil {
		return nil, err
	}
	disc, err := p.parseExpression(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "expected ')' after switch expression"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBRACE, "expected '{' before switch body"); err != nil {
		return nil, err
	}

	var cases []*ast.SwitchCase
	for !p.check(lexer.RBRACE) && !p.atEnd() {
		var test ast.Node
		if ok, err := p.match(lexer.CASE); err != nil {
			return nil, err
		} else if ok {
			test, err = p.parseExpression(false)
			if err != nil {
				return nil, err
			}
		} else if ok, err := p.match(lexer.DEFAULT); err != nil {
			return nil, err
		} else if !ok {
			return nil, p.err("expected 'case' or 'default'")
		}
		if _, err := p.expect(lexer.COLON, "expected ':' after case expression"); err != nil {
			return nil, err
		}
		var consequent []ast.Node
		for !p.check(lexer.CASE, lexer.DEFAULT, lexer.RBRACE) && !p.atEnd() {
			stmt, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			if stmt != nil {
				consequent = append(consequent, stmt)
			}
		}
		cases = append(cases, &ast.SwitchCase{Test: test, Consequent: consequent})
	}
	if _, err := p.expect(lexer.RBRACE, "expected '}' after switch body"); err != nil {
		return nil, err
	}
	return &ast.SwitchStatement{Discriminant: disc, Cases: cases}, nil
}

func (p *Parser) parseFunctionDeclaration() (*ast.FunctionDeclaration, error) {
	nameTok, err := p.expect(lexer.IDENTIFIER, "expected function name")
	if err != nil {
		return nil, err
	}
	params, err := p.parseFunctionParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlockStatement()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDeclaration{ID: &ast.Identifier{Name: nameTok.Str}, Params: params, Body: body}, nil
}

func (p *Parser) parseFunctionParams() ([]*ast.Identifier, error) {
	open, err := p.expect(lexer.LPAREN, "expected '(' after function name")
	if err != nil {
		return nil, err
	}
	p.brackets.Push(lexer.LPAREN, open)
	var params []*ast.Identifier
	if !p.check(lexer.RPAREN) {
		for {
			param, err := p.expect(lexer.IDENTIFIER, "expected parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, &ast.Identifier{Name: param.Str})
			if ok, err := p.match(lexer.COMMA); err != nil {
				return nil, err
			} else if !ok {
				break
			}
		}
	}
	closeTok, err := p.expect(lexer.RPAREN, "expected ')' after parameters")
	if err != nil {
		return nil, err
	}
	if bErr := p.brackets.Pop(lexer.LPAREN, closeTok); bErr != nil {
		return nil, bErr
	}
	return params, nil
}

func (p *Parser) parseExpressionStatement() (*ast.ExpressionStatement, error) {
	expr, err := p.parseExpression(false)
	if err != nil {
		return nil, err
	}
	p.consumeSemicolon()
	return &ast.ExpressionStatement{Expression: expr}, nil
}

// ---- Expressions ----

func (p *Parser) parseExpression(excludeIn bool) (ast.Node, error) {
	expr, err := p.parseAssignmentExpression(excludeIn)
	if err != nil {
		return nil, err
	}
	if p.check(lexer.COMMA) {
		exprs := []ast.Node{expr}
		for {
			ok, err := p.match(lexer.COMMA)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			e, err := p.parseAssignmentExpression(excludeIn)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
		}
		return &ast.SequenceExpression{Expressions: exprs}, nil
	}
	return expr, nil
}

var assignOps = []lexer.TokenType{
	lexer.ASSIGN, lexer.PLUS_ASSIGN, lexer.MINUS_ASSIGN, lexer.STAR_ASSIGN, lexer.SLASH_ASSIGN,
	lexer.PERCENT_ASSIGN, lexer.AND_ASSIGN, lexer.OR_ASSIGN, lexer.XOR_ASSIGN,
	lexer.LSHIFT_ASSIGN, lexer.RSHIFT_ASSIGN, lexer.URSHIFT_ASSIGN,
}

func (p *Parser) parseAssignmentExpression(excludeIn bool) (ast.Node, error) {
	if arrow, ok, err := p.tryParseArrowFunction(); err != nil {
		return nil, err
	} else if ok {
		return arrow, nil
	}

	expr, err := p.parseConditionalExpression(excludeIn)
	if err != nil {
		return nil, err
	}
	if p.check(assignOps...) {
		opTok, err := p.advance()
		if err != nil {
			return nil, err
		}
		right, err := p.parseAssignmentExpression(excludeIn)
		if err != nil {
			return nil, err
		}
		return &ast.AssignmentExpression{Operator: opTok.Str, Left: expr, Right: right}, nil
	}
	return expr, nil
}

func (p *Parser) parseConditionalExpression(excludeIn bool) (ast.Node, error) {
	expr, err := p.parseBinaryExpression(0, excludeIn)
	if err != nil {
		return nil, err
	}
	if ok, err := p.match(lexer.QUESTION); err != nil {
		return nil, err
	} else if ok {
		cons, err := p.parseAssignmentExpression(excludeIn)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COLON, "expected ':' in conditional expression"); err != nil {
			return nil, err
		}
		alt, err := p.parseAssignmentExpression(excludeIn)
		if err != nil {
			return nil, err
		}
		return &ast.ConditionalExpression{Test: expr, Consequent: cons, Alternate: alt}, nil
	}
	return expr, nil
}

func (p *Parser) parseBinaryExpression(minPrec int, excludeIn bool) (ast.Node, error) {
	left, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}
	for {
		op := binaryOperatorOf(p.current.Type)
		if op == "" {
			break
		}
		if excludeIn && op == "in" {
			break
		}
		prec := precedence[op]
		if prec < minPrec {
			break
		}
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		var right ast.Node
		if op == "**" {
			right, err = p.parseBinaryExpression(prec, excludeIn)
		} else {
			right, err = p.parseBinaryExpression(prec+1, excludeIn)
		}
		if err != nil {
			return nil, err
		}
		if op == "&&" || op == "||" {
			left = &ast.LogicalExpression{Operator: op, Left: left, Right: right}
		} else {
			left = &ast.BinaryExpression{Operator: op, Left: left, Right: right}
		}
	}
	return left, nil
}

func binaryOperatorOf(tt lexer.TokenType) string {
	switch tt {
	case lexer.PLUS:
		return "+"
	case lexer.MINUS:
		return "-"
	case lexer.STAR:
		return "*"
	case lexer.SLASH:
		return "/"
	case lexer.PERCENT:
		return "%"
	case lexer.STARSTAR:
		return "**"
	case lexer.LT:
		return "<"
	case lexer.GT:
		return ">"
	case lexer.LE:
		return "<="
	case lexer.GE:
		return ">="
	case lexer.EQ:
		return "=="
	case lexer.NE:
		return "!="
	case lexer.EQEQ:
		return "==="
	case lexer.NENE:
		return "!=="
	case lexer.AND:
		return "&&"
	case lexer.OR:
		return "||"
	case lexer.AMPERSAND:
		return "&"
	case lexer.PIPE:
		return "|"
	case lexer.CARET:
		return "^"
	case lexer.LSHIFT:
		return "<<"
	case lexer.RSHIFT:
		return ">>"
	case lexer.URSHIFT:
		return ">>>"
	case lexer.IN:
		return "in"
	case lexer.INSTANCEOF:
		return "instanceof"
	}
	return ""
}

func (p *Parser) parseUnaryExpression() (ast.Node, error) {
	if p.check(lexer.MINUS, lexer.PLUS, lexer.NOT, lexer.TILDE, lexer.TYPEOF, lexer.VOID, lexer.DELETE) {
		opTok, err := p.advance()
		if err != nil {
			return nil, err
		}
		arg, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{Operator: opTok.Str, Argument: arg, Prefix: true}, nil
	}
	if p.check(lexer.PLUSPLUS, lexer.MINUSMINUS) {
		opTok, err := p.advance()
		if err != nil {
			return nil, err
		}
		arg, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &ast.UpdateExpression{Operator: opTok.Str, Argument: arg, Prefix: true}, nil
	}
	return p.parsePostfixExpression()
}

func (p *Parser) parsePostfixExpression() (ast.Node, error) {
	expr, err := p.parseNewExpression()
	if err != nil {
		return nil, err
	}
	for {
		if ok, err := p.match(lexer.DOT); err != nil {
			return nil, err
		} else if ok {
			propTok, err := p.expect(lexer.IDENTIFIER, "expected property name")
			if err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Object: expr, Property: &ast.Identifier{Name: propTok.Str}, Computed: false}
			continue
		}
		if ok, err := p.match(lexer.LBRACKET); err != nil {
			return nil, err
		} else if ok {
			propExpr, err := p.parseExpression(false)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACKET, "expected ']' after index"); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Object: expr, Property: propExpr, Computed: true}
			continue
		}
		if ok, err := p.match(lexer.LPAREN); err != nil {
			return nil, err
		} else if ok {
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RPAREN, "expected ')' after arguments"); err != nil {
				return nil, err
			}
			expr = &ast.CallExpression{Callee: expr, Arguments: args}
			continue
		}
		if p.check(lexer.PLUSPLUS, lexer.MINUSMINUS) {
			opTok, err := p.advance()
			if err != nil {
				return nil, err
			}
			expr = &ast.UpdateExpression{Operator: opTok.Str, Argument: expr, Prefix: false}
			continue
		}
		break
	}
	return expr, nil
}

func (p *Parser) parseNewExpression() (ast.Node, error) {
	if ok, err := p.match(lexer.NEW); err != nil {
		return nil, err
	} else if ok {
		callee, err := p.parseNewExpression()
		if err != nil {
			return nil, err
		}
		var args []ast.Node
		if ok, err := p.match(lexer.LPAREN); err != nil {
			return nil, err
		} else if ok {
			args, err = p.parseArguments()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RPAREN, "expected ')' after arguments"); err != nil {
				return nil, err
			}
		}
		return &ast.NewExpression{Callee: callee, Arguments: args}, nil
	}
	return p.parsePrimaryExpression()
}

func (p *Parser) parseArguments() ([]ast.Node, error) {
	var args []ast.Node
	if !p.check(lexer.RPAREN) {
		for {
			arg, err := p.parseAssignmentExpression(false)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if ok, err := p.match(lexer.COMMA); err != nil {
				return nil, err
			} else if !ok {
				break
			}
		}
	}
	return args, nil
}

func (p *Parser) parsePrimaryExpression() (ast.Node, error) {
	if ok, err := p.match(lexer.NUMBER); err != nil {
		return nil, err
	} else if ok {
		return &ast.NumericLiteral{Value: p.previous.Num}, nil
	}
	if ok, err := p.match(lexer.STRING); err != nil {
		return nil, err
	} else if ok {
		return &ast.StringLiteral{Value: p.previous.Str}, nil
	}
	if ok, err := p.match(lexer.TRUE); err != nil {
		return nil, err
	} else if ok {
		return &ast.BooleanLiteral{Value: true}, nil
	}
	if ok, err := p.match(lexer.FALSE); err != nil {
		return nil, err
	} else if ok {
		return &ast.BooleanLiteral{Value: false}, nil
	}
	if ok, err := p.match(lexer.NULL); err != nil {
		return nil, err
	} else if ok {
		return &ast.NullLiteral{}, nil
	}
	if ok, err := p.match(lexer.THIS); err != nil {
		return nil, err
	} else if ok {
		return &ast.ThisExpression{}, nil
	}
	if ok, err := p.match(lexer.IDENTIFIER); err != nil {
		return nil, err
	} else if ok {
		return &ast.Identifier{Name: p.previous.Str}, nil
	}
	if ok, err := p.match(lexer.LPAREN); err != nil {
		return nil, err
	} else if ok {
		expr, err := p.parseExpression(false)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN, "expected ')' after expression"); err != nil {
			return nil, err
		}
		return expr, nil
	}
	if ok, err := p.match(lexer.LBRACKET); err != nil {
		return nil, err
	} else if ok {
		return p.parseArrayLiteral()
	}
	if ok, err := p.match(lexer.LBRACE); err != nil {
		return nil, err
	} else if ok {
		return p.parseObjectLiteral()
	}
	if ok, err := p.match(lexer.FUNCTION); err != nil {
		return nil, err
	} else if ok {
		return p.parseFunctionExpression()
	}
	if p.check(lexer.SLASH) {
		tok, err := p.lex.ReadRegexLiteral()
		if err != nil {
			return nil, err
		}
		next, err := p.lex.Next()
		if err != nil {
			return nil, err
		}
		p.previous = p.current
		p.current = next
		return &ast.RegExpLiteral{Pattern: tok.Regex.Pattern, Flags: tok.Regex.Flags}, nil
	}

	e := p.err("unexpected token: %s", p.current.Type)
	e.Suggestions = suggestKeyword(p.current.Str)
	return nil, e
}

func (p *Parser) parseArrayLiteral() (*ast.ArrayExpression, error) {
	var elements []ast.Node
	for !p.check(lexer.RBRACKET) {
		el, err := p.parseAssignmentExpression(false)
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
		if ok, err := p.match(lexer.COMMA); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if _, err := p.expect(lexer.RBRACKET, "expected ']' after array elements"); err != nil {
		return nil, err
	}
	return &ast.ArrayExpression{Elements: elements}, nil
}

func (p *Parser) parseObjectLiteral() (*ast.ObjectExpression, error) {
	var props []*ast.Property
	for !p.check(lexer.RBRACE) {
		prop, err := p.parseProperty()
		if err != nil {
			return nil, err
		}
		props = append(props, prop)
		if ok, err := p.match(lexer.COMMA); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if _, err := p.expect(lexer.RBRACE, "expected '}' after object properties"); err != nil {
		return nil, err
	}
	return &ast.ObjectExpression{Properties: props}, nil
}

func (p *Parser) parseProperty() (*ast.Property, error) {
	kind := "init"
	if p.check(lexer.IDENTIFIER) && (p.current.Str == "get" || p.current.Str == "set") {
		accessor := p.current.Str
		save := p.snapshot()
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		if p.check(lexer.IDENTIFIER, lexer.STRING, lexer.NUMBER) {
			kind = accessor
		} else {
			p.restore(save)
		}
	}

	if kind == "get" || kind == "set" {
		key, err := p.parsePropertyKey()
		if err != nil {
			return nil, err
		}
		params, err := p.parseFunctionParams()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlockStatement()
		if err != nil {
			return nil, err
		}
		return &ast.Property{Key: key, Value: &ast.FunctionExpression{Params: params, Body: body}, Kind: kind}, nil
	}

	computed := false
	var key ast.Node
	if ok, err := p.match(lexer.LBRACKET); err != nil {
		return nil, err
	} else if ok {
		key, err = p.parseAssignmentExpression(false)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBRACKET, "expected ']' after computed property name"); err != nil {
			return nil, err
		}
		computed = true
	} else if ok, err := p.match(lexer.STRING); err != nil {
		return nil, err
	} else if ok {
		key = &ast.StringLiteral{Value: p.previous.Str}
	} else if ok, err := p.match(lexer.NUMBER); err != nil {
		return nil, err
	} else if ok {
		key = &ast.NumericLiteral{Value: p.previous.Num}
	} else if ok, err := p.match(lexer.IDENTIFIER); err != nil {
		return nil, err
	} else if ok {
		key = &ast.Identifier{Name: p.previous.Str}
	} else {
		return nil, p.err("expected property name")
	}

	if ok, err := p.match(lexer.LPAREN); err != nil {
		return nil, err
	} else if ok {
		params, err := p.parseMethodParams()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlockStatement()
		if err != nil {
			return nil, err
		}
		return &ast.Property{Key: key, Value: &ast.FunctionExpression{Params: params, Body: body}, Kind: "init", Computed: computed}, nil
	}
	if ok, err := p.match(lexer.COLON); err != nil {
		return nil, err
	} else if ok {
		val, err := p.parseAssignmentExpression(false)
		if err != nil {
			return nil, err
		}
		return &ast.Property{Key: key, Value: val, Kind: "init", Computed: computed}, nil
	}
	if ident, ok := key.(*ast.Identifier); ok {
		return &ast.Property{Key: key, Value: ident, Kind: "init", Shorthand: true}, nil
	}
	return nil, p.err("expected ':' after property name")
}

func (p *Parser) parsePropertyKey() (ast.Node, error) {
	if ok, err := p.match(lexer.STRING); err != nil {
		return nil, err
	} else if ok {
		return &ast.StringLiteral{Value: p.previous.Str}, nil
	}
	if ok, err := p.match(lexer.NUMBER); err != nil {
		return nil, err
	} else if ok {
		return &ast.NumericLiteral{Value: p.previous.Num}, nil
	}
	tok, err := p.expect(lexer.IDENTIFIER, "expected property name")
	if err != nil {
		return nil, err
	}
	return &ast.Identifier{Name: tok.Str}, nil
}

func (p *Parser) parseMethodParams() ([]*ast.Identifier, error) {
	var params []*ast.Identifier
	if !p.check(lexer.RPAREN) {
		for {
			param, err := p.expect(lexer.IDENTIFIER, "expected parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, &ast.Identifier{Name: param.Str})
			if ok, err := p.match(lexer.COMMA); err != nil {
				return nil, err
			} else if !ok {
				break
			}
		}
	}
	if _, err := p.expect(lexer.RPAREN, "expected ')' after parameters"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseFunctionExpression() (*ast.FunctionExpression, error) {
	var name *ast.Identifier
	if p.check(lexer.IDENTIFIER) {
		tok, err := p.advance()
		if err != nil {
			return nil, err
		}
		name = &ast.Identifier{Name: tok.Str}
	}
	params, err := p.parseFunctionParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlockStatement()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionExpression{ID: name, Params: params, Body: body}, nil
}

// tryParseArrowFunction speculatively parses the `(params) =>` or `ident =>`
// forms, grounded on,
// paren-parameter, or forms; body is block or expression" disambiguation
// rule. It rewinds cleanly on mismatch since arrow-vs-grouped-expression
// cannot be told apart without looking past the closing paren.
func (p *Parser) tryParseArrowFunction() (ast.Node, bool, error) {
	if p.check(lexer.IDENTIFIER) {
		save := p.snapshot()
		nameTok, err := p.advance()
		if err != nil {
			return nil, false, err
		}
		if p.check(lexer.ARROW) {
			p.advance()
			return p.finishArrowBody([]*ast.Identifier{{Name: nameTok.Str}})
		}
		p.restore(save)
		return nil, false, nil
	}

	if !p.check(lexer.LPAREN) {
		return nil, false, nil
	}
	save := p.snapshot()
	if _, err := p.advance(); err != nil {
		return nil, false, err
	}
	var params []*ast.Identifier
	ok := true
	if !p.check(lexer.RPAREN) {
		for {
			if !p.check(lexer.IDENTIFIER) {
				ok = false
				break
			}
			tok, err := p.advance()
			if err != nil {
				return nil, false, err
			}
			params = append(params, &ast.Identifier{Name: tok.Str})
			if p.check(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	if ok && p.check(lexer.RPAREN) {
		p.advance()
		if p.check(lexer.ARROW) {
			p.advance()
			return p.finishArrowBody(params)
		}
	}
	p.restore(save)
	return nil, false, nil
}

func (p *Parser) finishArrowBody(params []*ast.Identifier) (ast.Node, bool, error) {
	if p.check(lexer.LBRACE) {
		body, err := p.parseBlockStatement()
		if err != nil {
			return nil, false, err
		}
		return &ast.ArrowFunctionExpression{Params: params, Body: body}, true, nil
	}
	expr, err := p.parseAssignmentExpression(false)
	if err != nil {
		return nil, false, err
	}
	return &ast.ArrowFunctionExpression{Params: params, ExpressionBody: expr}, true, nil
}

// snapshot/restore support the speculative arrow-function and getter/setter
// lookahead: the lexer's rune-index state is small enough to copy wholesale.
type parserSnapshot struct {
	lexState any
	current  lexer.Token
	previous lexer.Token
}

func (p *Parser) snapshot() parserSnapshot {
	return parserSnapshot{lexState: p.lex.Snapshot(), current: p.current, previous: p.previous}
}

func (p *Parser) restore(s parserSnapshot) {
	p.lex.Restore(s.lexState)
	p.current = s.current
	p.previous = s.previous
}
