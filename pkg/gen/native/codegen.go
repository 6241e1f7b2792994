package native

import (
	"fmt"
	"strconv"

	"github.com/zen-lang/zenc/pkg/ast"
	"github.com/zen-lang/zenc/pkg/token"
)

type codegen struct {
	module *ast.Module

	instructions []Instruction
	pending      []string

	strings []string

	// Source function name to compiler-generated label. Generated labels
	// keep source names from colliding with reserved ones like _start.
	functionLabels map[string]string

	// Per-function state. Scopes map variable names to stack slot offsets
	// (positive, subtracted from rbp). Slots are 8 bytes and never reused,
	// so within a function the offsets are 8, 16, 24, and so on.
	scopes    []map[string]int
	frameSize int

	labelCount int
}

// Lower turns an analyzed module into a linear instruction program. The
// lowering is destination passing: every expression is told which register
// its value must end up in, and binary expressions bracket their left operand
// with push/pop so that rax and rbx are the only scratch registers needed.
func Lower(m *ast.Module) (*Program, error) {
	g := &codegen{
		module:         m,
		functionLabels: make(map[string]string),
	}

	for i, statement := range m.Statements {
		if f, ok := statement.(*ast.FunctionDeclaration); ok {
			g.functionLabels[f.Identifier.Lexeme] = g.declareFunction(i, f.Identifier.Lexeme)
		}
	}

	mainLabel, ok := g.functionLabels["main"]
	if !ok {
		return nil, ErrMissingEntryPoint
	}

	for _, statement := range m.Statements {
		f, ok := statement.(*ast.FunctionDeclaration)
		if !ok {
			return nil, fmt.Errorf("%w: only functions may appear at the top level", ErrUnsupportedNode)
		}

		if err := g.genFunction(f); err != nil {
			return nil, err
		}
	}

	// The process entry point goes after every function body. It calls main
	// and hands the result to the exit syscall as the process status, so the
	// ELF entry address has to come from the resolved label, not offset 0.
	g.bind("_start")
	g.emit(Instruction{Op: Call, Dst: labelOp(mainLabel)})
	g.emit(Instruction{Op: Mov, Dst: regOp(Rdi), Src: regOp(Rax)})
	g.emit(Instruction{Op: Mov, Dst: regOp(Rax), Src: immOp(60)})
	g.emit(Instruction{Op: Syscall})

	return &Program{
		Instructions: g.instructions,
		Strings:      g.strings,
	}, nil
}

func (g *codegen) emit(in Instruction) {
	if len(g.pending) > 0 {
		in.Labels = g.pending
		g.pending = nil
	}

	g.instructions = append(g.instructions, in)
}

// bind attaches a label to the next emitted instruction.
func (g *codegen) bind(label string) {
	g.pending = append(g.pending, label)
}

func (g *codegen) newLabel() string {
	g.labelCount++
	return fmt.Sprintf(".L%d", g.labelCount)
}

func (g *codegen) pushScope() {
	g.scopes = append(g.scopes, make(map[string]int))
}

func (g *codegen) popScope() {
	g.scopes = g.scopes[:len(g.scopes)-1]
}

func (g *codegen) declareVariable(name string) int {
	g.frameSize += 8
	g.scopes[len(g.scopes)-1][name] = g.frameSize
	return g.frameSize
}

func (g *codegen) lookupVariable(name string) (int, error) {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if offset, ok := g.scopes[i][name]; ok {
			return offset, nil
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrUndefinedSymbol, name)
}

// internString records a literal and returns its index. Literals are not
// deduplicated; each occurrence gets its own entry.
func (g *codegen) internString(s string) int {
	g.strings = append(g.strings, s)
	return len(g.strings) - 1
}

func (g *codegen) declareFunction(index int, name string) string {
	return fmt.Sprintf("fn%d_%s", index, name)
}

func countLocals(block *ast.BlockStatement) int {
	count := 0
	for _, statement := range block.Statements {
		switch s := statement.(type) {
		case *ast.VariableDeclaration:
			count++
		case *ast.IfStatement:
			count += countLocals(&s.IfBlock)
			for i := range s.ElseIfStatements {
				count += countLocals(&s.ElseIfStatements[i].Block)
			}
			if s.ElseBlock != nil {
				count += countLocals(s.ElseBlock)
			}
		case *ast.WhileStatement:
			count += countLocals(&s.Block)
		case *ast.BlockStatement:
			count += countLocals(s)
		}
	}
	return count
}

func (g *codegen) genFunction(f *ast.FunctionDeclaration) error {
	g.scopes = nil
	g.frameSize = 0
	g.pushScope()

	g.bind(g.functionLabels[f.Identifier.Lexeme])
	g.emit(Instruction{Op: Push, Dst: regOp(Rbp)})
	g.emit(Instruction{Op: Mov, Dst: regOp(Rbp), Src: regOp(Rsp)})

	frame := (len(f.Parameters) + countLocals(&f.Block)) * 8
	if frame > 0 {
		g.emit(Instruction{Op: Sub, Dst: regOp(Rsp), Src: immOp(int64(frame))})
	}

	for _, param := range f.Parameters {
		// Calls with arguments are rejected below, so parameter slots
		// exist but are never written. Zero them so reads are at least
		// deterministic.
		offset := g.declareVariable(param.Identifier.Lexeme)
		g.emit(Instruction{Op: Xor, Dst: regOp(Rax), Src: regOp(Rax)})
		g.emit(Instruction{Op: Mov, Dst: memOp(Rbp, -int32(offset)), Src: regOp(Rax)})
	}

	for _, statement := range f.Block.Statements {
		if err := g.genStatement(statement); err != nil {
			return err
		}
	}

	// Fall-through return. The result register defaults to zero so a
	// function that never returns explicitly still exits cleanly.
	g.emit(Instruction{Op: Xor, Dst: regOp(Rax), Src: regOp(Rax)})
	g.genEpilogue()
	g.popScope()
	return nil
}

func (g *codegen) genEpilogue() {
	g.emit(Instruction{Op: Mov, Dst: regOp(Rsp), Src: regOp(Rbp)})
	g.emit(Instruction{Op: Pop, Dst: regOp(Rbp)})
	g.emit(Instruction{Op: Ret})
}

func (g *codegen) genStatement(statement ast.Statement) error {
	switch s := statement.(type) {
	case *ast.VariableDeclaration:
		offset := g.declareVariable(s.Identifier.Lexeme)

		if s.Value != nil {
			if err := g.genExpression(s.Value, Rax); err != nil {
				return err
			}
		} else {
			g.emit(Instruction{Op: Xor, Dst: regOp(Rax), Src: regOp(Rax)})
		}

		g.emit(Instruction{Op: Mov, Dst: memOp(Rbp, -int32(offset)), Src: regOp(Rax)})
		return nil
	case *ast.IfStatement:
		end := g.newLabel()

		next := g.newLabel()
		if err := g.genCondBranch(s.Condition, next); err != nil {
			return err
		}
		if err := g.genStatement(&s.IfBlock); err != nil {
			return err
		}
		g.emit(Instruction{Op: Jmp, Dst: labelOp(end)})
		g.bind(next)

		for i := range s.ElseIfStatements {
			elif := &s.ElseIfStatements[i]
			next = g.newLabel()
			if err := g.genCondBranch(elif.Condition, next); err != nil {
				return err
			}
			if err := g.genStatement(&elif.Block); err != nil {
				return err
			}
			g.emit(Instruction{Op: Jmp, Dst: labelOp(end)})
			g.bind(next)
		}

		if s.ElseBlock != nil {
			if err := g.genStatement(s.ElseBlock); err != nil {
				return err
			}
		}

		g.bind(end)
		return nil
	case *ast.WhileStatement:
		start := g.newLabel()
		end := g.newLabel()

		g.bind(start)
		if err := g.genCondBranch(s.Condition, end); err != nil {
			return err
		}
		if err := g.genStatement(&s.Block); err != nil {
			return err
		}
		g.emit(Instruction{Op: Jmp, Dst: labelOp(start)})
		g.bind(end)
		return nil
	case *ast.ReturnStatement:
		if s.Expression != nil {
			if err := g.genExpression(s.Expression, Rax); err != nil {
				return err
			}
		} else {
			g.emit(Instruction{Op: Xor, Dst: regOp(Rax), Src: regOp(Rax)})
		}

		g.genEpilogue()
		return nil
	case *ast.ExpressionStatement:
		return g.genExpression(s.Expression, Rax)
	case *ast.BlockStatement:
		g.pushScope()
		for _, statement := range s.Statements {
			if err := g.genStatement(statement); err != nil {
				return err
			}
		}
		g.popScope()
		return nil
	}

	return fmt.Errorf("%w: statement", ErrUnsupportedNode)
}

// genCondBranch evaluates a boolean condition and jumps to target when it is
// false, falling through when it is true.
func (g *codegen) genCondBranch(condition ast.Expression, target string) error {
	if err := g.genExpression(condition, Rax); err != nil {
		return err
	}

	g.emit(Instruction{Op: Cmp, Dst: regOp(Rax), Src: immOp(0)})
	g.emit(Instruction{Op: Je, Dst: labelOp(target)})
	return nil
}

func (g *codegen) genExpression(expr ast.Expression, dst Register) error {
	switch e := expr.(type) {
	case *ast.Literal:
		switch e.Token.Type {
		case token.INT:
			value, err := strconv.ParseInt(e.LiteralValue, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: integer literal %q", ErrUnsupportedNode, e.LiteralValue)
			}
			g.emit(Instruction{Op: Mov, Dst: regOp(dst), Src: immOp(value)})
		case token.FLOAT:
			// There is no float ABI here; float literals truncate and
			// flow through the integer path.
			value, err := strconv.ParseFloat(e.LiteralValue, 64)
			if err != nil {
				return fmt.Errorf("%w: float literal %q", ErrUnsupportedNode, e.LiteralValue)
			}
			g.emit(Instruction{Op: Mov, Dst: regOp(dst), Src: immOp(int64(value))})
		case token.STRING:
			index := g.internString(e.LiteralValue)
			g.emit(Instruction{Op: Mov, Dst: regOp(dst), Src: strOp(index)})
		case token.TRUE:
			g.emit(Instruction{Op: Mov, Dst: regOp(dst), Src: immOp(1)})
		case token.FALSE:
			g.emit(Instruction{Op: Mov, Dst: regOp(dst), Src: immOp(0)})
		case token.NULL:
			g.emit(Instruction{Op: Xor, Dst: regOp(dst), Src: regOp(dst)})
		default:
			return fmt.Errorf("%w: %s literals", ErrUnsupportedNode, e.Type().String())
		}
		return nil
	case *ast.VariableExpression:
		offset, err := g.lookupVariable(e.Identifier.Lexeme)
		if err != nil {
			return err
		}

		g.emit(Instruction{Op: Mov, Dst: regOp(dst), Src: memOp(Rbp, -int32(offset))})
		return nil
	case *ast.UnaryExpression:
		if err := g.genExpression(e.Value, dst); err != nil {
			return err
		}

		switch e.Operator.Type {
		case token.MINUS:
			g.emit(Instruction{Op: Neg, Dst: regOp(dst)})
		case token.BANG:
			g.emit(Instruction{Op: Cmp, Dst: regOp(dst), Src: immOp(0)})
			g.emit(Instruction{Op: Sete})
			g.emit(Instruction{Op: Movzx, Dst: regOp(dst)})
		default:
			return fmt.Errorf("%w: unary %s", ErrUnsupportedOperator, e.Operator.Lexeme)
		}
		return nil
	case *ast.BinaryExpression:
		return g.genBinaryExpression(e, dst)
	case *ast.CallExpression:
		return g.genCallExpression(e, dst)
	}

	return fmt.Errorf("%w: expression", ErrUnsupportedNode)
}

func (g *codegen) genBinaryExpression(e *ast.BinaryExpression, dst Register) error {
	if e.Operator.Type == token.EQUAL {
		target, ok := e.Left.(*ast.VariableExpression)
		if !ok {
			return fmt.Errorf("%w: assignment target", ErrUnsupportedNode)
		}

		offset, err := g.lookupVariable(target.Identifier.Lexeme)
		if err != nil {
			return err
		}

		if err := g.genExpression(e.Right, dst); err != nil {
			return err
		}

		g.emit(Instruction{Op: Mov, Dst: memOp(Rbp, -int32(offset)), Src: regOp(dst)})
		return nil
	}

	// The left value survives the right-hand evaluation on the machine
	// stack, so arbitrarily deep expressions need only rax and rbx.
	if err := g.genExpression(e.Left, Rax); err != nil {
		return err
	}
	g.emit(Instruction{Op: Push, Dst: regOp(Rax)})
	if err := g.genExpression(e.Right, Rbx); err != nil {
		return err
	}
	g.emit(Instruction{Op: Pop, Dst: regOp(Rax)})

	switch e.Operator.Type {
	case token.PLUS:
		g.emit(Instruction{Op: Add, Dst: regOp(Rax), Src: regOp(Rbx)})
	case token.MINUS:
		g.emit(Instruction{Op: Sub, Dst: regOp(Rax), Src: regOp(Rbx)})
	case token.STAR:
		g.emit(Instruction{Op: Imul, Dst: regOp(Rax), Src: regOp(Rbx)})
	case token.SLASH:
		g.emit(Instruction{Op: Cqo})
		g.emit(Instruction{Op: Idiv, Dst: regOp(Rbx)})
	case token.PERCENT:
		g.emit(Instruction{Op: Cqo})
		g.emit(Instruction{Op: Idiv, Dst: regOp(Rbx)})
		g.emit(Instruction{Op: Mov, Dst: regOp(Rax), Src: regOp(Rdx)})
	case token.AND_AND:
		g.emit(Instruction{Op: And, Dst: regOp(Rax), Src: regOp(Rbx)})
	case token.OR_OR:
		g.emit(Instruction{Op: Or, Dst: regOp(Rax), Src: regOp(Rbx)})
	case token.LESSER, token.GREATER, token.LESSER_EQUAL,
		token.GREATER_EQUAL, token.EQUAL_EQUAL, token.BANG_EQUAL:
		g.emit(Instruction{Op: Cmp, Dst: regOp(Rax), Src: regOp(Rbx)})
		g.emit(Instruction{Op: setccFor(e.Operator.Type)})
		g.emit(Instruction{Op: Movzx, Dst: regOp(Rax)})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedOperator, e.Operator.Lexeme)
	}

	if dst != Rax {
		g.emit(Instruction{Op: Mov, Dst: regOp(dst), Src: regOp(Rax)})
	}
	return nil
}

func setccFor(t token.TokenType) Opcode {
	switch t {
	case token.LESSER:
		return Setl
	case token.GREATER:
		return Setg
	case token.LESSER_EQUAL:
		return Setle
	case token.GREATER_EQUAL:
		return Setge
	case token.BANG_EQUAL:
		return Setne
	}
	return Sete
}

func (g *codegen) genCallExpression(e *ast.CallExpression, dst Register) error {
	callee, ok := e.Callee.(*ast.VariableExpression)
	if !ok {
		return fmt.Errorf("%w: indirect call", ErrUnsupportedCallTarget)
	}
	name := callee.Identifier.Lexeme

	if name == "print" {
		return g.genPrint(e)
	}

	label, ok := g.functionLabels[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUndefinedSymbol, name)
	}

	if len(e.Arguments) > 0 {
		return fmt.Errorf("%w: %s takes arguments", ErrUnsupportedCallTarget, name)
	}

	g.emit(Instruction{Op: Call, Dst: labelOp(label)})
	if dst != Rax {
		g.emit(Instruction{Op: Mov, Dst: regOp(dst), Src: regOp(Rax)})
	}
	return nil
}

// print lowers to a write(2) syscall on stdout. The string's address and
// length must be known at compile time, so only literal arguments work.
func (g *codegen) genPrint(e *ast.CallExpression) error {
	literal, ok := e.Arguments[0].(*ast.Literal)
	if !ok || literal.Token.Type != token.STRING {
		return fmt.Errorf("%w: print needs a string literal", ErrUnsupportedNode)
	}

	index := g.internString(literal.LiteralValue)

	g.emit(Instruction{Op: Mov, Dst: regOp(Rax), Src: immOp(1)})
	g.emit(Instruction{Op: Mov, Dst: regOp(Rdi), Src: immOp(1)})
	g.emit(Instruction{Op: Mov, Dst: regOp(Rsi), Src: strOp(index)})
	g.emit(Instruction{Op: Mov, Dst: regOp(Rdx), Src: immOp(int64(len(literal.LiteralValue)))})
	g.emit(Instruction{Op: Syscall})
	return nil
}
