package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-lang/zenc/pkg/ast"
	"github.com/zen-lang/zenc/pkg/lexer"
	"github.com/zen-lang/zenc/pkg/token"
)

func parse(t *testing.T, source string) *ast.Module {
	t.Helper()

	m := &ast.Module{Path: "test.zen", Source: source}
	lexer.Lex(m)
	Parse(m)
	return m
}

func TestFunctionDeclaration(t *testing.T) {
	m := parse(t, `
func add(a: i32, b: i32) -> i32 {
	return a + b
}
`)

	require.Len(t, m.Statements, 1)
	f, ok := m.Statements[0].(*ast.FunctionDeclaration)
	require.True(t, ok)

	assert.Equal(t, "add", f.Identifier.Lexeme)
	require.Len(t, f.Parameters, 2)
	assert.Equal(t, "a", f.Parameters[0].Identifier.Lexeme)
	assert.True(t, f.Parameters[0].Type.Equals(&ast.Primitive{Kind: ast.I32}))
	assert.True(t, f.ReturnType.Equals(&ast.Primitive{Kind: ast.I32}))
	require.Len(t, f.Block.Statements, 1)
}

func TestVoidFunctionHasNilReturnType(t *testing.T) {
	m := parse(t, "func side_effect() { }")

	f := m.Statements[0].(*ast.FunctionDeclaration)
	assert.Nil(t, f.ReturnType)
	assert.True(t, f.ToType().ReturnType.Equals(&ast.Primitive{Kind: ast.Void}))
}

func TestVariableDeclarations(t *testing.T) {
	m := parse(t, `
func main() {
	let a: i32 = 1
	let b = 2
	let c: i32
	const d = 4
}
`)

	f := m.Statements[0].(*ast.FunctionDeclaration)
	require.Len(t, f.Block.Statements, 4)

	a := f.Block.Statements[0].(*ast.VariableDeclaration)
	assert.True(t, a.Type.Equals(&ast.Primitive{Kind: ast.I32}))
	assert.NotNil(t, a.Value)
	assert.False(t, a.IsConst)

	b := f.Block.Statements[1].(*ast.VariableDeclaration)
	assert.Nil(t, b.Type)
	assert.NotNil(t, b.Value)

	c := f.Block.Statements[2].(*ast.VariableDeclaration)
	assert.NotNil(t, c.Type)
	assert.Nil(t, c.Value)

	d := f.Block.Statements[3].(*ast.VariableDeclaration)
	assert.True(t, d.IsConst)
}

func TestPrecedence(t *testing.T) {
	m := parse(t, "func main() { let x = 1 + 2 * 3; }")

	f := m.Statements[0].(*ast.FunctionDeclaration)
	decl := f.Block.Statements[0].(*ast.VariableDeclaration)

	sum, ok := decl.Value.(*ast.BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, sum.Operator.Type)

	product, ok := sum.Right.(*ast.BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, token.STAR, product.Operator.Type)
}

func TestGrouping(t *testing.T) {
	m := parse(t, "func main() { let x = (1 + 2) * 3; }")

	f := m.Statements[0].(*ast.FunctionDeclaration)
	decl := f.Block.Statements[0].(*ast.VariableDeclaration)

	product, ok := decl.Value.(*ast.BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, token.STAR, product.Operator.Type)

	sum, ok := product.Left.(*ast.BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, sum.Operator.Type)
}

func TestIfElseChain(t *testing.T) {
	m := parse(t, `
func main() {
	if (a) {
		b()
	} else if (c) {
		d()
	} else {
		e()
	}
}
`)

	f := m.Statements[0].(*ast.FunctionDeclaration)
	stmt, ok := f.Block.Statements[0].(*ast.IfStatement)
	require.True(t, ok)

	assert.Len(t, stmt.ElseIfStatements, 1)
	require.NotNil(t, stmt.ElseBlock)
	assert.Len(t, stmt.ElseBlock.Statements, 1)
}

func TestWhile(t *testing.T) {
	m := parse(t, `
func main() {
	while (x < 10) {
		x = x + 1
	}
}
`)

	f := m.Statements[0].(*ast.FunctionDeclaration)
	stmt, ok := f.Block.Statements[0].(*ast.WhileStatement)
	require.True(t, ok)

	condition, ok := stmt.Condition.(*ast.BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, token.LESSER, condition.Operator.Type)
	require.Len(t, stmt.Block.Statements, 1)

	assignment := stmt.Block.Statements[0].(*ast.ExpressionStatement).Expression.(*ast.BinaryExpression)
	assert.Equal(t, token.EQUAL, assignment.Operator.Type)
}

func TestCallExpression(t *testing.T) {
	m := parse(t, "func main() { print(add(1, 2)); }")

	f := m.Statements[0].(*ast.FunctionDeclaration)
	outer := f.Block.Statements[0].(*ast.ExpressionStatement).Expression.(*ast.CallExpression)

	callee := outer.Callee.(*ast.VariableExpression)
	assert.Equal(t, "print", callee.Identifier.Lexeme)
	require.Len(t, outer.Arguments, 1)

	inner := outer.Arguments[0].(*ast.CallExpression)
	assert.Len(t, inner.Arguments, 2)
}

func TestUnary(t *testing.T) {
	m := parse(t, "func main() { let x = -1\nlet y = !true; }")

	f := m.Statements[0].(*ast.FunctionDeclaration)

	neg := f.Block.Statements[0].(*ast.VariableDeclaration).Value.(*ast.UnaryExpression)
	assert.Equal(t, token.MINUS, neg.Operator.Type)

	not := f.Block.Statements[1].(*ast.VariableDeclaration).Value.(*ast.UnaryExpression)
	assert.Equal(t, token.BANG, not.Operator.Type)
}

func TestReturnWithoutValue(t *testing.T) {
	m := parse(t, "func main() { return; }")

	f := m.Statements[0].(*ast.FunctionDeclaration)
	ret, ok := f.Block.Statements[0].(*ast.ReturnStatement)
	require.True(t, ok)
	assert.Nil(t, ret.Expression)
}
