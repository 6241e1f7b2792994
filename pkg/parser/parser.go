package parser

import (
	"fmt"
	"log"

	"github.com/zen-lang/zenc/pkg/ast"
	"github.com/zen-lang/zenc/pkg/token"
)

type Parser struct {
	current int

	Module *ast.Module
}

var primitives = map[string]ast.PrimitiveKind{
	"i32":    ast.I32,
	"f64":    ast.F64,
	"string": ast.Str,
	"bool":   ast.Bool,
	"void":   ast.Void,
}

func (p *Parser) parseError(token token.Token, message string) {
	log.Fatalf(
		"%s\nparse-error: %d:%d: %s",
		p.Module.TokenSourceContext(&token),
		token.Pos.Line, token.Pos.Column, message,
	)
}

func (p *Parser) peek(distance int) token.Token {
	return p.Module.Tokens[p.current+distance]
}

func (p *Parser) expect(typ token.TokenType, message string) token.Token {
	if p.peek(0).Type != typ {
		p.parseError(p.peek(0), message)
	}

	p.current++
	return p.peek(-1)
}

func (p *Parser) skipTerminators() {
	for p.peek(0).Type == token.SEMICOLON {
		p.current++
	}
}

func (p *Parser) parseStatement() ast.Statement {
	t := p.peek(0)

	if t.Type == token.FUNC {
		// FunctionDeclaration
		p.current++
		name := p.expect(token.IDENTIFIER, "Expect function name.")
		p.expect(token.LEFT_PAREN, "Expect `(` after function name.")

		parameters := []ast.Parameter{}
		if p.peek(0).Type != token.RIGHT_PAREN {
			for {
				paramName := p.expect(token.IDENTIFIER, "Expect name for function parameter.")
				p.expect(token.COLON, "Expect `:` after parameter name.")
				paramType := p.parseType()
				parameters = append(parameters, ast.Parameter{
					Identifier: paramName,
					Type:       paramType,
				})

				if p.peek(0).Type != token.COMMA {
					break
				} else {
					p.current++ // skip the comma
				}
			}
		}
		p.expect(token.RIGHT_PAREN, "Missing closing `)` after parameter list.")

		var returnType ast.Type

		if p.peek(0).Type == token.ARROW {
			p.current++
			returnType = p.parseType()
		}

		p.expect(token.LEFT_BRACE, "Expect block after function signature.")
		p.current-- // since expect consumes the `{`
		block := p.parseBlock()

		return &ast.FunctionDeclaration{
			Identifier: name,
			Parameters: parameters,
			ReturnType: returnType,
			Block:      *block,
		}
	} else if t.Type == token.LET || t.Type == token.CONST {
		// VariableDeclaration
		p.current++
		name := p.expect(token.IDENTIFIER, fmt.Sprintf("Expect identifier after `%s`.", t.Lexeme))

		var typ ast.Type
		if p.peek(0).Type == token.COLON {
			p.current++
			typ = p.parseType()
		}

		var expr ast.Expression = nil

		if p.peek(0).Type == token.EQUAL {
			p.current++
			expr = p.parseExpression()
		}

		if typ == nil && expr == nil {
			p.parseError(name, "Variable declaration needs a type annotation or an initializer.")
		}

		p.expect(token.SEMICOLON, "Expect `;` after variable declaration.")
		return &ast.VariableDeclaration{
			Identifier: name,
			Type:       typ,
			IsConst:    t.Type == token.CONST,
			Value:      expr,
		}
	} else if t.Type == token.IF {
		// IfStatement
		p.current++
		p.expect(token.LEFT_PAREN, "Expect `(` after `if`.")
		condition := p.parseExpression()
		p.expect(token.RIGHT_PAREN, "Expect `)` after if condition.")
		p.expect(token.LEFT_BRACE, "Expect block after if condition.")
		p.current--
		ifBlock := p.parseBlock()

		elifStmts := []ast.ElseIfStatement{}
		hasElseBlock := false
		var elseBlock *ast.BlockStatement

		for p.peek(0).Type == token.ELSE {
			p.current++
			if p.peek(0).Type == token.IF {
				elifToken := p.peek(0)
				p.current++
				p.expect(token.LEFT_PAREN, "Expect `(` after `else if`.")
				elifCond := p.parseExpression()
				p.expect(token.RIGHT_PAREN, "Expect `)` after else-if condition.")
				p.expect(token.LEFT_BRACE, "Expect block after else-if condition.")
				p.current--
				elifBlock := p.parseBlock()
				elifStmts = append(elifStmts, ast.ElseIfStatement{
					IfToken:   elifToken,
					Condition: elifCond,
					Block:     *elifBlock,
				})
			} else {
				hasElseBlock = true
				break
			}
		}

		if hasElseBlock {
			p.expect(token.LEFT_BRACE, "Expect block after else.")
			p.current--
			elseBlock = p.parseBlock()
		}

		return &ast.IfStatement{
			IfToken:          t,
			Condition:        condition,
			IfBlock:          *ifBlock,
			ElseIfStatements: elifStmts,
			ElseBlock:        elseBlock,
		}
	} else if t.Type == token.WHILE {
		// WhileStatement
		p.current++
		p.expect(token.LEFT_PAREN, "Expect `(` after `while`.")
		condition := p.parseExpression()
		p.expect(token.RIGHT_PAREN, "Expect `)` after while condition.")
		p.expect(token.LEFT_BRACE, "Expect block after while condition.")
		p.current--
		block := p.parseBlock()
		return &ast.WhileStatement{
			WhileToken: t,
			Condition:  condition,
			Block:      *block,
		}
	} else if t.Type == token.RETURN {
		// ReturnStatement
		p.current++
		var expr ast.Expression
		if p.peek(0).Type != token.SEMICOLON {
			expr = p.parseExpression()
		}
		p.expect(token.SEMICOLON, "Expect semicolon after return statement.")
		return &ast.ReturnStatement{
			Expression:  expr,
			ReturnToken: t,
		}
	} else if t.Type == token.LEFT_BRACE {
		// BlockStatement
		return p.parseBlock()
	}

	expr := p.parseExpression()
	p.expect(token.SEMICOLON, "Expect semicolon after expression statement.")
	// ExpressionStatement
	return &ast.ExpressionStatement{
		Expression: expr,
	}
}

func (p *Parser) parseBlock() *ast.BlockStatement {
	p.current++ // skip the `{`
	statements := []ast.Statement{}
	p.skipTerminators()
	for p.peek(0).Type != token.RIGHT_BRACE {
		if p.peek(0).Type == token.EOF {
			p.parseError(p.peek(0), "Unclosed block.")
		}
		statements = append(statements, p.parseStatement())
		p.skipTerminators()
	}
	p.current++ // skip the `}`
	if p.peek(0).Type == token.SEMICOLON {
		p.current++ // optional trailing semicolon is allowed
	}
	return &ast.BlockStatement{
		Statements: statements,
	}
}

func (p *Parser) parseExpression() ast.Expression {
	return p.parsePrecedenceExpression(p.parsePrimary(), 0)
}

type associativity int

const (
	ltr associativity = iota
	rtl
)

type opInfo struct {
	precedence    int
	associativity associativity
}

var operatorPrecedenceMap = map[token.TokenType]opInfo{
	token.PERCENT: {precedence: 6, associativity: ltr},
	token.STAR:    {precedence: 6, associativity: ltr},
	token.SLASH:   {precedence: 6, associativity: ltr},

	token.PLUS:  {precedence: 5, associativity: ltr},
	token.MINUS: {precedence: 5, associativity: ltr},

	token.LESSER:        {precedence: 4, associativity: ltr},
	token.LESSER_EQUAL:  {precedence: 4, associativity: ltr},
	token.GREATER:       {precedence: 4, associativity: ltr},
	token.GREATER_EQUAL: {precedence: 4, associativity: ltr},

	token.EQUAL_EQUAL: {precedence: 3, associativity: ltr},
	token.BANG_EQUAL:  {precedence: 3, associativity: ltr},

	token.AND_AND: {precedence: 2, associativity: ltr},
	token.OR_OR:   {precedence: 2, associativity: ltr},

	token.EQUAL: {precedence: 1, associativity: rtl},
}

func (p *Parser) parsePrecedenceExpression(lhs ast.Expression, minPrecedence int) ast.Expression {
	lookahead := p.peek(0)
	for lookahead.Type.IsBinaryOperator() &&
		operatorPrecedenceMap[lookahead.Type].precedence >= minPrecedence {

		op := lookahead
		p.current++
		rhs := p.parsePrimary()
		lookahead = p.peek(0)

		for lookahead.Type.IsBinaryOperator() &&
			(operatorPrecedenceMap[lookahead.Type].associativity == ltr &&
				operatorPrecedenceMap[lookahead.Type].precedence >
					operatorPrecedenceMap[op.Type].precedence) ||
			(operatorPrecedenceMap[lookahead.Type].associativity == rtl &&
				operatorPrecedenceMap[lookahead.Type].precedence ==
					operatorPrecedenceMap[op.Type].precedence) {

			rhs = p.parsePrecedenceExpression(rhs, minPrecedence+1)
			lookahead = p.peek(0)
		}

		lhs = &ast.BinaryExpression{Left: lhs, Operator: op, Right: rhs}
	}

	return lhs
}

func (p *Parser) parsePrimary() ast.Expression {
	var expr ast.Expression

	if p.peek(0).Type == token.INT ||
		p.peek(0).Type == token.FLOAT ||
		p.peek(0).Type == token.STRING ||
		p.peek(0).Type == token.TRUE ||
		p.peek(0).Type == token.FALSE ||
		p.peek(0).Type == token.NULL {
		p.current++
		expr = &ast.Literal{
			Token:        p.peek(-1),
			LiteralValue: p.peek(-1).Lexeme,
		}
	} else if p.peek(0).Type == token.LEFT_PAREN {
		p.current++
		expr = p.parseExpression()
		p.expect(token.RIGHT_PAREN, "Expect `)` after grouping expression.")
	} else if p.peek(0).Type == token.IDENTIFIER {
		p.current++
		expr = &ast.VariableExpression{
			Identifier: p.peek(-1),
		}
	} else if p.peek(0).Type == token.MINUS || p.peek(0).Type == token.BANG {
		p.current++
		expr = &ast.UnaryExpression{
			Operator: p.peek(-1),
			Value:    p.parsePrimary(),
		}
	}

	for p.peek(0).Type == token.LEFT_PAREN {
		leftParenToken := p.peek(0)

		p.current++
		arguments := []ast.Expression{}

		if p.peek(0).Type != token.RIGHT_PAREN {
			for {
				arguments = append(arguments, p.parseExpression())

				if p.peek(0).Type != token.COMMA {
					break
				} else {
					p.current++ // skip the comma
				}
			}
		}

		p.expect(token.RIGHT_PAREN, "Missing closing parenthesis in function call.")
		expr = &ast.CallExpression{
			Callee:         expr,
			Arguments:      arguments,
			LeftParenToken: leftParenToken,
		}
	}

	if expr == nil {
		p.parseError(p.peek(0), "Expected expression.")
	}

	return expr
}

func (p *Parser) parseType() ast.Type {
	ident := p.expect(token.IDENTIFIER, "Expected type name.")

	kind, ok := primitives[ident.Lexeme]
	if !ok {
		p.parseError(ident, fmt.Sprintf("Unknown type: '%s'.", ident.Lexeme))
	}

	return &ast.Primitive{Kind: kind}
}

func Parse(m *ast.Module) {
	p := Parser{Module: m}

	result := []ast.Statement{}

	p.skipTerminators()
	for p.peek(0).Type != token.EOF {
		result = append(result, p.parseStatement())
		p.skipTerminators()
	}

	m.Statements = result
}
