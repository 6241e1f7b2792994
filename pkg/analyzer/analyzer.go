package analyzer

import (
	"errors"
	"fmt"
	"log"

	"github.com/zen-lang/zenc/pkg/ast"
	"github.com/zen-lang/zenc/pkg/token"
)

type symbol struct {
	typ     ast.Type
	isConst bool
}

type SymbolTable struct {
	values    map[string]symbol
	enclosing *SymbolTable
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		values:    make(map[string]symbol),
		enclosing: nil,
	}
}

func NewSymbolTableFromEnclosing(enclosing *SymbolTable) *SymbolTable {
	return &SymbolTable{
		values:    make(map[string]symbol),
		enclosing: enclosing,
	}
}

func (s *SymbolTable) Get(name string) (symbol, error) {
	if value, ok := s.values[name]; ok {
		return value, nil
	} else if s.enclosing == nil {
		return symbol{}, errors.New("Value with that name is not declared.")
	}

	return s.enclosing.Get(name)
}

func (s *SymbolTable) Declare(name string, typ ast.Type, isConst bool) error {
	if _, ok := s.values[name]; ok {
		return errors.New("Redeclaration of variable.")
	}

	s.values[name] = symbol{typ: typ, isConst: isConst}
	return nil
}

type Analyzer struct {
	Module *ast.Module

	namespace       *SymbolTable
	currentFunction *ast.FunctionDeclaration
}

// Walks the module's statements, filling in the `Typ` fields on every
// expression and reporting semantic errors. The AST comes out of here fully
// typed, which is what the backends rely on.
func Analyze(m *ast.Module) {
	a := Analyzer{
		Module:    m,
		namespace: NewSymbolTable(),
	}

	// Functions are hoisted so that declaration order does not restrict
	// call order.
	for _, statement := range m.Statements {
		if f, ok := statement.(*ast.FunctionDeclaration); ok {
			if f.Identifier.Lexeme == "print" {
				a.analysisError(f.Identifier, "`print` is a builtin and cannot be redeclared.")
			}

			funcType := f.ToType()
			if err := a.namespace.Declare(f.Identifier.Lexeme, &funcType, true); err != nil {
				a.analysisError(f.Identifier, "Redeclaration of function.")
			}
		}
	}

	for _, statement := range m.Statements {
		if _, ok := statement.(*ast.FunctionDeclaration); !ok {
			a.analysisError(token.Token{Pos: token.Pos{Line: 1, Column: 1}},
				"Only function declarations are allowed at the top level.")
		}

		a.analyzeStatement(statement)
	}
}

func (a *Analyzer) analysisError(token token.Token, message string) {
	log.Fatalf(
		"%s\nanalysis-error: %d:%d: %s",
		a.Module.TokenSourceContext(&token),
		token.Pos.Line, token.Pos.Column, message,
	)
}

func isAssignable(valueType ast.Type, targetType ast.Type) bool {
	if p, ok := valueType.(*ast.Primitive); ok && p.Kind == ast.Unknown {
		// `null` adapts to whatever it is assigned to.
		return true
	}

	return valueType.Equals(targetType)
}

func (a *Analyzer) analyzeStatement(statement ast.Statement) {
	switch s := statement.(type) {
	case *ast.FunctionDeclaration:
		enclosing := a.namespace
		a.namespace = NewSymbolTableFromEnclosing(enclosing)
		a.currentFunction = s

		for _, param := range s.Parameters {
			if err := a.namespace.Declare(param.Identifier.Lexeme, param.Type, false); err != nil {
				a.analysisError(param.Identifier, "Duplicate parameter name.")
			}
		}

		for _, stmt := range s.Block.Statements {
			a.analyzeStatement(stmt)
		}

		a.currentFunction = nil
		a.namespace = enclosing
	case *ast.VariableDeclaration:
		var declaredType ast.Type = s.Type

		if s.Value != nil {
			a.analyzeExpression(s.Value)

			if declaredType == nil {
				declaredType = s.Value.Type()

				if p, ok := declaredType.(*ast.Primitive); ok && p.Kind == ast.Unknown {
					a.analysisError(s.Identifier, "Cannot infer variable type from `null`.")
				}
			} else if !isAssignable(s.Value.Type(), declaredType) {
				a.analysisError(s.Identifier, fmt.Sprintf(
					"Initializer type '%s' does not match declared type '%s'.",
					s.Value.Type().String(), declaredType.String(),
				))
			}
		} else if s.IsConst {
			a.analysisError(s.Identifier, "Constant declaration requires an initializer.")
		}

		if v, ok := declaredType.(*ast.Primitive); ok && v.Kind == ast.Void {
			a.analysisError(s.Identifier, "Cannot declare a variable of type 'void'.")
		}

		s.Type = declaredType

		if err := a.namespace.Declare(s.Identifier.Lexeme, declaredType, s.IsConst); err != nil {
			a.analysisError(s.Identifier, "Redeclaration of variable.")
		}
	case *ast.IfStatement:
		a.analyzeExpression(s.Condition)
		if !s.Condition.Type().Equals(&ast.Primitive{Kind: ast.Bool}) {
			a.analysisError(s.IfToken, "If condition must be a boolean.")
		}

		a.analyzeStatement(&s.IfBlock)

		for i := range s.ElseIfStatements {
			elif := &s.ElseIfStatements[i]
			a.analyzeExpression(elif.Condition)
			if !elif.Condition.Type().Equals(&ast.Primitive{Kind: ast.Bool}) {
				a.analysisError(elif.IfToken, "If condition must be a boolean.")
			}
			a.analyzeStatement(&elif.Block)
		}

		if s.ElseBlock != nil {
			a.analyzeStatement(s.ElseBlock)
		}
	case *ast.WhileStatement:
		a.analyzeExpression(s.Condition)
		if !s.Condition.Type().Equals(&ast.Primitive{Kind: ast.Bool}) {
			a.analysisError(s.WhileToken, "While condition must be a boolean.")
		}

		a.analyzeStatement(&s.Block)
	case *ast.ReturnStatement:
		if a.currentFunction == nil {
			a.analysisError(s.ReturnToken, "Return statement outside of a function.")
		}

		returnType := a.currentFunction.ReturnType

		if s.Expression == nil {
			if returnType != nil && !returnType.Equals(&ast.Primitive{Kind: ast.Void}) {
				a.analysisError(s.ReturnToken, fmt.Sprintf(
					"Function must return a value of type '%s'.", returnType.String(),
				))
			}
		} else {
			a.analyzeExpression(s.Expression)

			if returnType == nil {
				a.analysisError(s.ReturnToken, "Cannot return a value from a void function.")
			} else if !isAssignable(s.Expression.Type(), returnType) {
				a.analysisError(s.ReturnToken, fmt.Sprintf(
					"Return value type '%s' does not match function return type '%s'.",
					s.Expression.Type().String(), returnType.String(),
				))
			}
		}
	case *ast.ExpressionStatement:
		a.analyzeExpression(s.Expression)
	case *ast.BlockStatement:
		enclosing := a.namespace
		a.namespace = NewSymbolTableFromEnclosing(enclosing)

		for _, stmt := range s.Statements {
			a.analyzeStatement(stmt)
		}

		a.namespace = enclosing
	}
}

func (a *Analyzer) analyzeExpression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.Literal:
		switch e.Token.Type {
		case token.INT:
			e.Typ = &ast.Primitive{Kind: ast.I32}
		case token.FLOAT:
			e.Typ = &ast.Primitive{Kind: ast.F64}
		case token.STRING:
			e.Typ = &ast.Primitive{Kind: ast.Str}
		case token.TRUE, token.FALSE:
			e.Typ = &ast.Primitive{Kind: ast.Bool}
		case token.NULL:
			e.Typ = &ast.Primitive{Kind: ast.Unknown}
		}
	case *ast.VariableExpression:
		sym, err := a.namespace.Get(e.Identifier.Lexeme)
		if err != nil {
			a.analysisError(e.Identifier, fmt.Sprintf(
				"Undefined identifier: '%s'.", e.Identifier.Lexeme,
			))
		}

		e.Typ = sym.typ
	case *ast.UnaryExpression:
		a.analyzeExpression(e.Value)

		if e.Operator.Type == token.MINUS {
			if p, ok := e.Value.Type().(*ast.Primitive); !ok || !p.IsNumeric() {
				a.analysisError(e.Operator, "Unary `-` needs a numeric operand.")
			}
		} else if e.Operator.Type == token.BANG {
			if !e.Value.Type().Equals(&ast.Primitive{Kind: ast.Bool}) {
				a.analysisError(e.Operator, "Unary `!` needs a boolean operand.")
			}
		}

		e.Typ = e.Value.Type()
	case *ast.BinaryExpression:
		a.analyzeExpression(e.Left)
		a.analyzeExpression(e.Right)

		if e.Operator.Type == token.EQUAL {
			target, ok := e.Left.(*ast.VariableExpression)
			if !ok {
				a.analysisError(e.Operator, "Can only assign to a variable.")
			}

			sym, err := a.namespace.Get(target.Identifier.Lexeme)
			if err != nil {
				a.analysisError(target.Identifier, fmt.Sprintf(
					"Undefined identifier: '%s'.", target.Identifier.Lexeme,
				))
			}

			if sym.isConst {
				a.analysisError(target.Identifier, fmt.Sprintf(
					"Cannot assign to constant '%s'.", target.Identifier.Lexeme,
				))
			}

			if !isAssignable(e.Right.Type(), sym.typ) {
				a.analysisError(e.Operator, fmt.Sprintf(
					"Cannot assign value of type '%s' to variable of type '%s'.",
					e.Right.Type().String(), sym.typ.String(),
				))
			}

			e.Typ = sym.typ
		} else if e.Operator.Type == token.AND_AND || e.Operator.Type == token.OR_OR {
			boolType := &ast.Primitive{Kind: ast.Bool}
			if !e.Left.Type().Equals(boolType) || !e.Right.Type().Equals(boolType) {
				a.analysisError(e.Operator, "Logical operators need boolean operands.")
			}

			e.Typ = boolType
		} else if e.Operator.Type.IsComparativeOperator() {
			if !e.Left.Type().Equals(e.Right.Type()) {
				a.analysisError(e.Operator, fmt.Sprintf(
					"Cannot compare values of types '%s' and '%s'.",
					e.Left.Type().String(), e.Right.Type().String(),
				))
			}

			if e.Operator.Type != token.EQUAL_EQUAL && e.Operator.Type != token.BANG_EQUAL {
				if p, ok := e.Left.Type().(*ast.Primitive); !ok || !p.IsNumeric() {
					a.analysisError(e.Operator, "Ordering comparisons need numeric operands.")
				}
			}

			e.Typ = &ast.Primitive{Kind: ast.Bool}
		} else {
			// Arithmetic.
			p, ok := e.Left.Type().(*ast.Primitive)
			if !ok || !p.IsNumeric() {
				a.analysisError(e.Operator, fmt.Sprintf(
					"Operator '%s' needs numeric operands.", e.Operator.Lexeme,
				))
			}

			if !e.Left.Type().Equals(e.Right.Type()) {
				a.analysisError(e.Operator, fmt.Sprintf(
					"Mismatched operand types '%s' and '%s'.",
					e.Left.Type().String(), e.Right.Type().String(),
				))
			}

			e.Typ = e.Left.Type()
		}
	case *ast.CallExpression:
		callee, ok := e.Callee.(*ast.VariableExpression)
		if !ok {
			a.analysisError(e.LeftParenToken, "Can only call named functions.")
		}

		for _, arg := range e.Arguments {
			a.analyzeExpression(arg)
		}

		if callee.Identifier.Lexeme == "print" {
			if len(e.Arguments) != 1 {
				a.analysisError(e.LeftParenToken, "`print` takes exactly one argument.")
			}

			e.Typ = &ast.Primitive{Kind: ast.Void}
			return
		}

		sym, err := a.namespace.Get(callee.Identifier.Lexeme)
		if err != nil {
			a.analysisError(callee.Identifier, fmt.Sprintf(
				"Undefined function: '%s'.", callee.Identifier.Lexeme,
			))
		}

		funcType, ok := sym.typ.(*ast.FunctionType)
		if !ok {
			a.analysisError(callee.Identifier, fmt.Sprintf(
				"'%s' is not a function.", callee.Identifier.Lexeme,
			))
		}

		callee.Typ = funcType

		if len(e.Arguments) != len(funcType.Parameters) {
			a.analysisError(e.LeftParenToken, fmt.Sprintf(
				"Function '%s' takes %d argument(s) but got %d.",
				callee.Identifier.Lexeme, len(funcType.Parameters), len(e.Arguments),
			))
		}

		for i, arg := range e.Arguments {
			if !isAssignable(arg.Type(), funcType.Parameters[i]) {
				a.analysisError(arg.ErrorToken(), fmt.Sprintf(
					"Argument %d has type '%s', expected '%s'.",
					i+1, arg.Type().String(), funcType.Parameters[i].String(),
				))
			}
		}

		e.Typ = funcType.ReturnType
	}
}
