package ast

import (
	"fmt"
	"strings"

	"github.com/zen-lang/zenc/pkg/token"
)

type Type interface {
	isType()
	Equals(Type) bool
	String() string
}

type PrimitiveKind int

const (
	I32 PrimitiveKind = iota
	F64
	Str
	Bool
	Void
	Unknown
)

type Primitive struct {
	Kind PrimitiveKind
}

type FunctionType struct {
	Name       string
	Parameters []Type
	ReturnType Type
}

type Module struct {
	Path       string
	Source     string
	Tokens     []token.Token
	Statements []Statement
}

func (*Primitive) isType()    {}
func (*FunctionType) isType() {}

func (p *Primitive) Equals(t Type) bool {
	if primType, ok := t.(*Primitive); ok {
		return p.Kind == primType.Kind
	}

	return false
}

func (p *Primitive) String() string {
	switch p.Kind {
	case I32:
		return "i32"
	case F64:
		return "f64"
	case Str:
		return "string"
	case Bool:
		return "bool"
	case Void:
		return "void"
	}
	return "unknown"
}

func (p *Primitive) IsNumeric() bool {
	return p.Kind == I32 || p.Kind == F64
}

func (f *FunctionType) Equals(t Type) bool {
	if funcType, ok := t.(*FunctionType); ok {
		if len(f.Parameters) != len(funcType.Parameters) {
			return false
		}

		for i, param := range f.Parameters {
			if !param.Equals(funcType.Parameters[i]) {
				return false
			}
		}

		return f.ReturnType.Equals(funcType.ReturnType)
	}

	return false
}

func (f *FunctionType) String() string {
	params := ""
	for i, param := range f.Parameters {
		params += param.String()
		if i != len(f.Parameters)-1 {
			params += ", "
		}
	}
	return fmt.Sprintf("(func (%s) %s)", params, f.ReturnType.String())
}

// Returns a few source lines around the token, with a caret pointing at its
// column. Used by the frontend for diagnostics.
func (m *Module) TokenSourceContext(t *token.Token) string {
	source := strings.ReplaceAll(m.Source, "\r\n", "\n")
	sourceLines := strings.Split(source, "\n")
	numLines := len(sourceLines)

	sourceLine := sourceLines[t.Pos.Line-1]

	// Inserted tokens (EOF, end-of-line semicolons) can carry a zero or
	// past-the-end column; point the caret just after the visible text.
	column := t.Pos.Column
	if column < 1 || column > len(sourceLine)+1 {
		column = len(sourceLine) + 1
	}

	offsetHighlight := make([]byte, column)

	for i := 0; i < column-1; i++ {
		if sourceLine[i] == '\t' {
			offsetHighlight[i] = '\t'
		} else {
			offsetHighlight[i] = ' '
		}
	}

	offsetHighlight[column-1] = '^'

	if t.Pos.Line == 1 {
		return fmt.Sprintf(`
%4d | %s
     | %s`,
			1,
			sourceLines[t.Pos.Line-1],
			string(offsetHighlight),
		)
	} else if t.Pos.Line >= numLines-1 {
		return fmt.Sprintf(`
%4d | %s
%4d | %s
     | %s`,
			t.Pos.Line-1, sourceLines[t.Pos.Line-2],
			t.Pos.Line, sourceLines[t.Pos.Line-1],
			string(offsetHighlight),
		)
	} else {
		return fmt.Sprintf(`
%4d | %s
%4d | %s
     | %s
%4d | %s`,
			t.Pos.Line-1, sourceLines[t.Pos.Line-2],
			t.Pos.Line, sourceLines[t.Pos.Line-1],
			string(offsetHighlight),
			t.Pos.Line+1, sourceLines[t.Pos.Line],
		)
	}
}

type Statement interface {
	isStatement()
}

type Parameter struct {
	Identifier token.Token
	Type       Type
}

type FunctionDeclaration struct {
	Identifier token.Token
	Parameters []Parameter
	ReturnType Type
	Block      BlockStatement
}

func (f *FunctionDeclaration) ToType() FunctionType {
	paramTypes := []Type{}
	for _, p := range f.Parameters {
		paramTypes = append(paramTypes, p.Type)
	}

	retType := f.ReturnType
	if retType == nil {
		retType = &Primitive{Kind: Void}
	}

	return FunctionType{
		Name:       f.Identifier.Lexeme,
		Parameters: paramTypes,
		ReturnType: retType,
	}
}

type VariableDeclaration struct {
	Identifier token.Token
	Type       Type
	IsConst    bool
	Value      Expression
}

type IfStatement struct {
	Condition        Expression
	IfBlock          BlockStatement
	ElseIfStatements []ElseIfStatement
	ElseBlock        *BlockStatement

	IfToken token.Token
}

type ElseIfStatement struct {
	Condition Expression
	Block     BlockStatement

	IfToken token.Token
}

type WhileStatement struct {
	Condition Expression
	Block     BlockStatement

	WhileToken token.Token
}

type ReturnStatement struct {
	Expression Expression

	ReturnToken token.Token
}

type ExpressionStatement struct {
	Expression Expression
}

type BlockStatement struct {
	Statements []Statement
}

func (*FunctionDeclaration) isStatement() {}
func (*VariableDeclaration) isStatement() {}
func (*IfStatement) isStatement()         {}
func (*WhileStatement) isStatement()      {}
func (*ReturnStatement) isStatement()     {}
func (*ExpressionStatement) isStatement() {}
func (*BlockStatement) isStatement()      {}

type Expression interface {
	isExpression()
	Type() Type
	ErrorToken() token.Token
}

type UnaryExpression struct {
	Operator token.Token
	Value    Expression

	Typ Type
}

type BinaryExpression struct {
	Left     Expression
	Operator token.Token
	Right    Expression

	Typ Type
}

type VariableExpression struct {
	Identifier token.Token

	Typ Type
}

type CallExpression struct {
	Callee    Expression
	Arguments []Expression

	Typ            Type
	LeftParenToken token.Token
}

type Literal struct {
	Token        token.Token
	LiteralValue string

	Typ Type
}

func (*UnaryExpression) isExpression()    {}
func (*BinaryExpression) isExpression()   {}
func (*VariableExpression) isExpression() {}
func (*CallExpression) isExpression()     {}
func (*Literal) isExpression()            {}

func (u *UnaryExpression) Type() Type {
	return u.Typ
}

func (u *UnaryExpression) ErrorToken() token.Token {
	return u.Operator
}

func (b *BinaryExpression) Type() Type {
	return b.Typ
}

func (b *BinaryExpression) ErrorToken() token.Token {
	return b.Operator
}

func (v *VariableExpression) Type() Type {
	return v.Typ
}

func (v *VariableExpression) ErrorToken() token.Token {
	return v.Identifier
}

func (c *CallExpression) Type() Type {
	return c.Typ
}

func (c *CallExpression) ErrorToken() token.Token {
	return c.LeftParenToken
}

func (l *Literal) Type() Type {
	return l.Typ
}

func (l *Literal) ErrorToken() token.Token {
	return l.Token
}
