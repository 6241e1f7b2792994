package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zen-lang/zenc/pkg/token"
)

func TestTokenSourceContextCaret(t *testing.T) {
	m := &Module{Source: "let x = 1\nlet y = 2\n"}
	tok := token.Token{Lexeme: "y", Pos: token.Pos{Line: 2, Column: 5}}

	out := m.TokenSourceContext(&tok)
	assert.Contains(t, out, "let y = 2")
	assert.Contains(t, out, "^")
}

func TestTokenSourceContextZeroColumn(t *testing.T) {
	// Inserted tokens (EOF, trailing semicolons) carry column 0; the
	// snippet must still render instead of panicking.
	m := &Module{Source: "func main() {\n"}
	tok := token.Token{Lexeme: "\x00", Pos: token.Pos{Line: 2, Column: 0}}

	out := m.TokenSourceContext(&tok)
	assert.Contains(t, out, "^")
}

func TestTokenSourceContextColumnPastLineEnd(t *testing.T) {
	m := &Module{Source: "let x = 1"}
	tok := token.Token{Lexeme: ";", Pos: token.Pos{Line: 1, Column: 40}}

	out := m.TokenSourceContext(&tok)
	assert.Contains(t, out, "let x = 1")
	assert.Contains(t, out, "^")
}
