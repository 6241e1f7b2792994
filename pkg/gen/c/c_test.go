package cgen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zen-lang/zenc/pkg/analyzer"
	"github.com/zen-lang/zenc/pkg/ast"
	"github.com/zen-lang/zenc/pkg/lexer"
	"github.com/zen-lang/zenc/pkg/parser"
)

func gen(t *testing.T, source string) string {
	t.Helper()

	m := &ast.Module{Path: "test.zen", Source: source}
	lexer.Lex(m)
	parser.Parse(m)
	analyzer.Analyze(m)
	return Gen(m)
}

func TestFunctionSignatures(t *testing.T) {
	out := gen(t, `
func add(a: i32, b: i32) -> i32 {
	return a + b
}

func side_effect() {
}
`)

	assert.Contains(t, out, "int32_t add(int32_t a, int32_t b)")
	assert.Contains(t, out, "void side_effect()")
	assert.Contains(t, out, "return (a + b);")
}

func TestPrelude(t *testing.T) {
	out := gen(t, "func main() { }")

	assert.Contains(t, out, "#include <stdio.h>")
	assert.Contains(t, out, "#include <stdint.h>")
	assert.Contains(t, out, "#include <stdbool.h>")
}

func TestVariableDeclarations(t *testing.T) {
	out := gen(t, `
func main() {
	let a = 1
	let b: f64 = 2.5
	const c = "hi"
	let d = true
}
`)

	assert.Contains(t, out, "int32_t a = 1;")
	assert.Contains(t, out, "double b = 2.5;")
	assert.Contains(t, out, `const const char* c = "hi";`)
	assert.Contains(t, out, "bool d = true;")
}

func TestControlFlow(t *testing.T) {
	out := gen(t, `
func main() {
	let x = 0
	if (x == 1) {
		x = 2
	} else if (x == 2) {
		x = 3
	} else {
		x = 4
	}
	while (x < 10) {
		x = x + 1
	}
}
`)

	assert.Contains(t, out, "if ((x == 1))")
	assert.Contains(t, out, "else if ((x == 2))")
	assert.Contains(t, out, "else {")
	assert.Contains(t, out, "while ((x < 10))")
}

func TestPrintBecomesPrintf(t *testing.T) {
	out := gen(t, `
func main() {
	print("hello")
	print(42)
	print(1.5)
}
`)

	assert.Contains(t, out, `printf("%s\n", "hello")`)
	assert.Contains(t, out, `printf("%d\n", 42)`)
	assert.Contains(t, out, `printf("%f\n", 1.5)`)
}

func TestCalls(t *testing.T) {
	out := gen(t, `
func add(a: i32, b: i32) -> i32 {
	return a + b
}

func main() {
	print(add(1, 2))
}
`)

	assert.Contains(t, out, `printf("%d\n", add(1, 2))`)
}
