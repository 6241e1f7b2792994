package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-lang/zenc/pkg/ast"
	"github.com/zen-lang/zenc/pkg/lexer"
	"github.com/zen-lang/zenc/pkg/parser"
)

func analyze(t *testing.T, source string) *ast.Module {
	t.Helper()

	m := &ast.Module{Path: "test.zen", Source: source}
	lexer.Lex(m)
	parser.Parse(m)
	Analyze(m)
	return m
}

func TestLiteralTypes(t *testing.T) {
	m := analyze(t, `
func main() {
	let a = 1
	let b = 2.5
	let c = "hi"
	let d = true
}
`)

	f := m.Statements[0].(*ast.FunctionDeclaration)
	kinds := []ast.PrimitiveKind{ast.I32, ast.F64, ast.Str, ast.Bool}

	for i, kind := range kinds {
		decl := f.Block.Statements[i].(*ast.VariableDeclaration)
		assert.True(t, decl.Type.Equals(&ast.Primitive{Kind: kind}), "declaration %d", i)
		assert.True(t, decl.Value.Type().Equals(&ast.Primitive{Kind: kind}), "initializer %d", i)
	}
}

func TestArithmeticType(t *testing.T) {
	m := analyze(t, `
func main() {
	let x = 1 + 2 * 3
}
`)

	f := m.Statements[0].(*ast.FunctionDeclaration)
	decl := f.Block.Statements[0].(*ast.VariableDeclaration)
	assert.True(t, decl.Value.Type().Equals(&ast.Primitive{Kind: ast.I32}))
}

func TestComparisonYieldsBool(t *testing.T) {
	m := analyze(t, `
func main() {
	let x = 1 < 2
	let y = 1.5 == 1.5
}
`)

	f := m.Statements[0].(*ast.FunctionDeclaration)
	for i := 0; i < 2; i++ {
		decl := f.Block.Statements[i].(*ast.VariableDeclaration)
		assert.True(t, decl.Value.Type().Equals(&ast.Primitive{Kind: ast.Bool}))
	}
}

func TestCallTypes(t *testing.T) {
	m := analyze(t, `
func double(x: i32) -> i32 {
	return x * 2
}

func main() -> i32 {
	return double(21)
}
`)

	main := m.Statements[1].(*ast.FunctionDeclaration)
	ret := main.Block.Statements[0].(*ast.ReturnStatement)

	call, ok := ret.Expression.(*ast.CallExpression)
	require.True(t, ok)
	assert.True(t, call.Type().Equals(&ast.Primitive{Kind: ast.I32}))
}

func TestForwardCall(t *testing.T) {
	// Declaration order must not matter for calls.
	m := analyze(t, `
func main() -> i32 {
	return helper()
}

func helper() -> i32 {
	return 1
}
`)

	main := m.Statements[0].(*ast.FunctionDeclaration)
	ret := main.Block.Statements[0].(*ast.ReturnStatement)
	assert.True(t, ret.Expression.Type().Equals(&ast.Primitive{Kind: ast.I32}))
}

func TestPrintIsBuiltin(t *testing.T) {
	m := analyze(t, `
func main() {
	print("hello")
	print(42)
}
`)

	f := m.Statements[0].(*ast.FunctionDeclaration)
	call := f.Block.Statements[0].(*ast.ExpressionStatement).Expression.(*ast.CallExpression)
	assert.True(t, call.Type().Equals(&ast.Primitive{Kind: ast.Void}))
}

func TestShadowingInNestedBlock(t *testing.T) {
	m := analyze(t, `
func main() {
	let x = 1
	{
		let x = "inner"
		print(x)
	}
	let y = x + 1
}
`)

	f := m.Statements[0].(*ast.FunctionDeclaration)
	outer := f.Block.Statements[2].(*ast.VariableDeclaration)
	assert.True(t, outer.Type.Equals(&ast.Primitive{Kind: ast.I32}))
}

func TestAssignmentType(t *testing.T) {
	m := analyze(t, `
func main() {
	let x = 1
	x = x + 1
}
`)

	f := m.Statements[0].(*ast.FunctionDeclaration)
	assignment := f.Block.Statements[1].(*ast.ExpressionStatement).Expression.(*ast.BinaryExpression)
	assert.True(t, assignment.Type().Equals(&ast.Primitive{Kind: ast.I32}))
}

func TestSymbolTableScoping(t *testing.T) {
	global := NewSymbolTable()
	require.NoError(t, global.Declare("x", &ast.Primitive{Kind: ast.I32}, false))
	require.Error(t, global.Declare("x", &ast.Primitive{Kind: ast.I32}, false))

	inner := NewSymbolTableFromEnclosing(global)
	require.NoError(t, inner.Declare("x", &ast.Primitive{Kind: ast.Str}, true))

	sym, err := inner.Get("x")
	require.NoError(t, err)
	assert.True(t, sym.typ.Equals(&ast.Primitive{Kind: ast.Str}))

	_, err = inner.Get("missing")
	assert.Error(t, err)
}
