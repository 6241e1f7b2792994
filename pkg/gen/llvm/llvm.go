package llvmgen

import (
	"strconv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/zen-lang/zenc/pkg/ast"
	"github.com/zen-lang/zenc/pkg/token"
)

var module *ir.Module
var printfDeclaration *ir.Func
var functions map[string]*ir.Func
var namespace []map[string]value.Value

func pushScope() {
	namespace = append(namespace, make(map[string]value.Value))
}

func popScope() {
	namespace = namespace[:len(namespace)-1]
}

func declare(name string, v value.Value) {
	namespace[len(namespace)-1][name] = v
}

func resolve(name string) value.Value {
	for i := len(namespace) - 1; i >= 0; i-- {
		if v, ok := namespace[i][name]; ok {
			return v
		}
	}

	panic("Analyzer should have caught undefined variable: " + name)
}

func genType(t ast.Type) types.Type {
	switch t.(type) {
	case *ast.Primitive:
		return genPrimitive(t.(*ast.Primitive))
	}

	panic("Type node has invalid static type.")
}

func genPrimitive(primitive *ast.Primitive) types.Type {
	switch primitive.Kind {
	case ast.I32:
		return types.I32
	case ast.F64:
		return types.Double
	case ast.Bool:
		return types.I1
	case ast.Str:
		return types.I8Ptr
	case ast.Void:
		return types.Void
	}

	panic("Invalid primitive type.")
}

func zeroValue(t types.Type) constant.Constant {
	switch t {
	case types.I32:
		return constant.NewInt(types.I32, 0)
	case types.Double:
		return constant.NewFloat(types.Double, 0)
	case types.I1:
		return constant.False
	}

	return constant.NewNull(types.I8Ptr)
}

func getFormatStringForType(t ast.Type) string {
	if primitive, ok := t.(*ast.Primitive); ok {
		switch primitive.Kind {
		case ast.I32, ast.Bool:
			return "%d"
		case ast.F64:
			return "%f"
		case ast.Str:
			return "%s"
		}
	}

	panic("Invalid type passed to `getFormatStringForType`.")
}

func genStringPointer(s string) value.Value {
	def := module.NewGlobalDef("", constant.NewCharArrayFromString(s+"\x00"))
	return constant.NewGetElementPtr(
		types.NewArray(uint64(len(s)+1), types.I8),
		def,
		constant.NewInt(types.I32, 0),
		constant.NewInt(types.I32, 0),
	)
}

func isFloat(t ast.Type) bool {
	p, ok := t.(*ast.Primitive)
	return ok && p.Kind == ast.F64
}

// genStatement emits stmt into block and returns the block that subsequent
// statements should continue in. Control flow statements end the current
// block and hand back a fresh continuation block.
func genStatement(stmt ast.Statement, fun *ir.Func, block *ir.Block) *ir.Block {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		variable := block.NewAlloca(genType(s.Type))
		if s.Value != nil {
			block.NewStore(genExpression(s.Value, block), variable)
		} else {
			block.NewStore(zeroValue(genType(s.Type)), variable)
		}
		declare(s.Identifier.Lexeme, variable)
		return block
	case *ast.IfStatement:
		exit := fun.NewBlock("")
		current := block

		branch := func(condition ast.Expression, body *ast.BlockStatement) {
			thenBlock := fun.NewBlock("")
			elseBlock := fun.NewBlock("")
			current.NewCondBr(genExpression(condition, current), thenBlock, elseBlock)

			after := genStatement(body, fun, thenBlock)
			if after.Term == nil {
				after.NewBr(exit)
			}
			current = elseBlock
		}

		branch(s.Condition, &s.IfBlock)
		for i := range s.ElseIfStatements {
			branch(s.ElseIfStatements[i].Condition, &s.ElseIfStatements[i].Block)
		}

		if s.ElseBlock != nil {
			after := genStatement(s.ElseBlock, fun, current)
			if after.Term == nil {
				after.NewBr(exit)
			}
		} else {
			current.NewBr(exit)
		}

		return exit
	case *ast.WhileStatement:
		condBlock := fun.NewBlock("")
		bodyBlock := fun.NewBlock("")
		exit := fun.NewBlock("")

		block.NewBr(condBlock)
		condBlock.NewCondBr(genExpression(s.Condition, condBlock), bodyBlock, exit)

		after := genStatement(&s.Block, fun, bodyBlock)
		if after.Term == nil {
			after.NewBr(condBlock)
		}

		return exit
	case *ast.ReturnStatement:
		if s.Expression == nil {
			block.NewRet(nil)
		} else {
			block.NewRet(genExpression(s.Expression, block))
		}
		return block
	case *ast.ExpressionStatement:
		genExpression(s.Expression, block)
		return block
	case *ast.BlockStatement:
		pushScope()
		current := block
		for _, stmt := range s.Statements {
			if current.Term != nil {
				break // unreachable code after a return
			}
			current = genStatement(stmt, fun, current)
		}
		popScope()
		return current
	}

	panic("Statement node has invalid static type.")
}

func genExpression(expr ast.Expression, block *ir.Block) value.Value {
	switch e := expr.(type) {
	case *ast.UnaryExpression:
		switch e.Operator.Type {
		case token.MINUS:
			if isFloat(e.Value.Type()) {
				return block.NewFSub(constant.NewFloat(types.Double, 0), genExpression(e.Value, block))
			}
			return block.NewSub(constant.NewInt(types.I32, 0), genExpression(e.Value, block))
		case token.BANG:
			return block.NewXor(genExpression(e.Value, block), constant.True)
		}
	case *ast.BinaryExpression:
		return genBinaryExpression(e, block)
	case *ast.CallExpression:
		return genCallExpression(e, block)
	case *ast.VariableExpression:
		resolved := resolve(e.Identifier.Lexeme)
		return block.NewLoad(resolved.Type().(*types.PointerType).ElemType, resolved)
	case *ast.Literal:
		switch e.Token.Type {
		case token.INT:
			parsedInt, _ := strconv.ParseInt(e.LiteralValue, 10, 32)
			return constant.NewInt(types.I32, parsedInt)
		case token.FLOAT:
			parsedFloat, _ := strconv.ParseFloat(e.LiteralValue, 64)
			return constant.NewFloat(types.Double, parsedFloat)
		case token.STRING:
			return genStringPointer(e.LiteralValue)
		case token.TRUE:
			return constant.True
		case token.FALSE:
			return constant.False
		case token.NULL:
			return constant.NewNull(types.I8Ptr)
		}
	}

	panic("Expression node has invalid static type.")
}

var intPredicates = map[token.TokenType]enum.IPred{
	token.LESSER:        enum.IPredSLT,
	token.GREATER:       enum.IPredSGT,
	token.LESSER_EQUAL:  enum.IPredSLE,
	token.GREATER_EQUAL: enum.IPredSGE,
	token.EQUAL_EQUAL:   enum.IPredEQ,
	token.BANG_EQUAL:    enum.IPredNE,
}

var floatPredicates = map[token.TokenType]enum.FPred{
	token.LESSER:        enum.FPredOLT,
	token.GREATER:       enum.FPredOGT,
	token.LESSER_EQUAL:  enum.FPredOLE,
	token.GREATER_EQUAL: enum.FPredOGE,
	token.EQUAL_EQUAL:   enum.FPredOEQ,
	token.BANG_EQUAL:    enum.FPredONE,
}

func genBinaryExpression(e *ast.BinaryExpression, block *ir.Block) value.Value {
	if e.Operator.Type == token.EQUAL {
		target := e.Left.(*ast.VariableExpression)
		pointer := resolve(target.Identifier.Lexeme)
		v := genExpression(e.Right, block)
		block.NewStore(v, pointer)
		return v
	}

	float := isFloat(e.Left.Type())

	switch e.Operator.Type {
	case token.PLUS:
		if float {
			return block.NewFAdd(genExpression(e.Left, block), genExpression(e.Right, block))
		}
		return block.NewAdd(genExpression(e.Left, block), genExpression(e.Right, block))
	case token.MINUS:
		if float {
			return block.NewFSub(genExpression(e.Left, block), genExpression(e.Right, block))
		}
		return block.NewSub(genExpression(e.Left, block), genExpression(e.Right, block))
	case token.STAR:
		if float {
			return block.NewFMul(genExpression(e.Left, block), genExpression(e.Right, block))
		}
		return block.NewMul(genExpression(e.Left, block), genExpression(e.Right, block))
	case token.SLASH:
		if float {
			return block.NewFDiv(genExpression(e.Left, block), genExpression(e.Right, block))
		}
		return block.NewSDiv(genExpression(e.Left, block), genExpression(e.Right, block))
	case token.PERCENT:
		if float {
			return block.NewFRem(genExpression(e.Left, block), genExpression(e.Right, block))
		}
		return block.NewSRem(genExpression(e.Left, block), genExpression(e.Right, block))
	case token.AND_AND:
		return block.NewAnd(genExpression(e.Left, block), genExpression(e.Right, block))
	case token.OR_OR:
		return block.NewOr(genExpression(e.Left, block), genExpression(e.Right, block))
	case token.LESSER, token.GREATER, token.LESSER_EQUAL,
		token.GREATER_EQUAL, token.EQUAL_EQUAL, token.BANG_EQUAL:
		if float {
			return block.NewFCmp(floatPredicates[e.Operator.Type],
				genExpression(e.Left, block), genExpression(e.Right, block))
		}
		return block.NewICmp(intPredicates[e.Operator.Type],
			genExpression(e.Left, block), genExpression(e.Right, block))
	}

	panic("Invalid binary operator: " + e.Operator.Lexeme)
}

func genCallExpression(e *ast.CallExpression, block *ir.Block) value.Value {
	callee := e.Callee.(*ast.VariableExpression)

	if callee.Identifier.Lexeme == "print" {
		argument := e.Arguments[0]
		formatString := getFormatStringForType(argument.Type()) + "\x0A"

		v := genExpression(argument, block)
		if t, ok := v.Type().(*types.IntType); ok && t.BitSize == 1 {
			// varargs promotion, i1 has to widen before printf sees it.
			v = block.NewZExt(v, types.I32)
		}

		return block.NewCall(printfDeclaration, genStringPointer(formatString), v)
	}

	args := []value.Value{}
	for _, arg := range e.Arguments {
		args = append(args, genExpression(arg, block))
	}

	return block.NewCall(functions[callee.Identifier.Lexeme], args...)
}

func genFunctionBody(f *ast.FunctionDeclaration) {
	fun := functions[f.Identifier.Lexeme]
	entry := fun.NewBlock("")

	pushScope()
	for i, param := range f.Parameters {
		variable := entry.NewAlloca(genType(param.Type))
		entry.NewStore(fun.Params[i], variable)
		declare(param.Identifier.Lexeme, variable)
	}

	current := entry
	for _, stmt := range f.Block.Statements {
		if current.Term != nil {
			break
		}
		current = genStatement(stmt, fun, current)
	}
	popScope()

	if current.Term == nil {
		if f.ReturnType == nil || f.ReturnType.Equals(&ast.Primitive{Kind: ast.Void}) {
			current.NewRet(nil)
		} else {
			current.NewRet(zeroValue(genType(f.ReturnType)))
		}
	}
}

func Gen(m *ast.Module) string {
	module = ir.NewModule()
	functions = make(map[string]*ir.Func)
	namespace = nil
	pushScope()

	printfDeclaration = module.NewFunc("printf", types.I32, ir.NewParam("format", types.I8Ptr))
	printfDeclaration.Sig.Variadic = true

	// Declare every signature up front so call order is unrestricted.
	for _, statement := range m.Statements {
		f := statement.(*ast.FunctionDeclaration)

		irParams := []*ir.Param{}
		for _, param := range f.Parameters {
			irParams = append(irParams, ir.NewParam(param.Identifier.Lexeme, genType(param.Type)))
		}

		var retTyp types.Type
		if f.ReturnType == nil {
			retTyp = types.Void
		} else {
			retTyp = genType(f.ReturnType)
		}

		functions[f.Identifier.Lexeme] = module.NewFunc(f.Identifier.Lexeme, retTyp, irParams...)
	}

	for _, statement := range m.Statements {
		genFunctionBody(statement.(*ast.FunctionDeclaration))
	}

	return module.String()
}
