package cgen

import (
	"fmt"

	"github.com/zen-lang/zenc/pkg/ast"
	"github.com/zen-lang/zenc/pkg/token"
)

const prelude = `#include <stdbool.h>
#include <stdint.h>
#include <stdio.h>
`

func genType(t ast.Type) string {
	switch t.(type) {
	case *ast.Primitive:
		{
			return genPrimitive(t.(*ast.Primitive))
		}
	}

	panic("Type node has invalid static type.")
}

func genPrimitive(primitive *ast.Primitive) string {
	switch primitive.Kind {
	case ast.I32:
		return "int32_t"
	case ast.F64:
		return "double"
	case ast.Str:
		return "const char*"
	case ast.Bool:
		return "bool"
	case ast.Void:
		return "void"
	}

	panic("Invalid primitive type.")
}

func genStatement(stmt ast.Statement) string {
	switch stmt.(type) {
	case *ast.FunctionDeclaration:
		{
			return genFunctionDeclaration(stmt.(*ast.FunctionDeclaration))
		}
	case *ast.VariableDeclaration:
		{
			return genVariableDeclaration(stmt.(*ast.VariableDeclaration))
		}
	case *ast.IfStatement:
		{
			return genIfStatement(stmt.(*ast.IfStatement))
		}
	case *ast.WhileStatement:
		{
			return genWhileStatement(stmt.(*ast.WhileStatement))
		}
	case *ast.ReturnStatement:
		{
			return genReturnStatement(stmt.(*ast.ReturnStatement))
		}
	case *ast.ExpressionStatement:
		{
			return genExpressionStatement(stmt.(*ast.ExpressionStatement))
		}
	case *ast.BlockStatement:
		{
			return genBlockStatement(stmt.(*ast.BlockStatement))
		}
	}

	panic("Statement node has invalid static type.")
}

func genFunctionDeclaration(decl *ast.FunctionDeclaration) string {
	returnType := "void"
	if decl.ReturnType != nil {
		returnType = genType(decl.ReturnType)
	}

	parameters := ""
	for i, param := range decl.Parameters {
		parameters += fmt.Sprintf("%s %s", genType(param.Type), param.Identifier.Lexeme)
		if i != len(decl.Parameters)-1 {
			parameters += ", "
		}
	}

	return fmt.Sprintf(
		"%s %s(%s)%s",
		returnType,
		decl.Identifier.Lexeme,
		parameters,
		genBlockStatement(&decl.Block),
	)
}

func genVariableDeclaration(decl *ast.VariableDeclaration) string {
	qualifier := ""
	if decl.IsConst {
		qualifier = "const "
	}

	if decl.Value == nil {
		return fmt.Sprintf("%s%s %s;", qualifier, genType(decl.Type), decl.Identifier.Lexeme)
	}

	return fmt.Sprintf(
		"%s%s %s = %s;",
		qualifier,
		genType(decl.Type),
		decl.Identifier.Lexeme,
		genExpression(decl.Value),
	)
}

func genIfStatement(stmt *ast.IfStatement) string {
	result := fmt.Sprintf(
		"if (%s) %s",
		genExpression(stmt.Condition),
		genBlockStatement(&stmt.IfBlock),
	)

	for i := range stmt.ElseIfStatements {
		elif := &stmt.ElseIfStatements[i]
		result += fmt.Sprintf(
			" else if (%s) %s",
			genExpression(elif.Condition),
			genBlockStatement(&elif.Block),
		)
	}

	if stmt.ElseBlock != nil {
		result += fmt.Sprintf(" else %s", genBlockStatement(stmt.ElseBlock))
	}

	return result
}

func genWhileStatement(stmt *ast.WhileStatement) string {
	return fmt.Sprintf(
		"while (%s) %s",
		genExpression(stmt.Condition),
		genBlockStatement(&stmt.Block),
	)
}

func genReturnStatement(stmt *ast.ReturnStatement) string {
	if stmt.Expression == nil {
		return "return;"
	}

	return fmt.Sprintf("return %s;", genExpression(stmt.Expression))
}

func getFormatStringForType(t ast.Type) string {
	if primitive, ok := t.(*ast.Primitive); ok {
		switch primitive.Kind {
		case ast.I32:
			{
				return "%d"
			}
		case ast.F64:
			{
				return "%f"
			}
		case ast.Str:
			{
				return "%s"
			}
		case ast.Bool:
			{
				return "%d"
			}
		}
	}

	panic("Invalid type passed to `getFormatStringForType`.")
}

func genPrintCall(call *ast.CallExpression) string {
	argument := call.Arguments[0]
	return fmt.Sprintf(
		"printf(\"%s\\n\", %s)",
		getFormatStringForType(argument.Type()),
		genExpression(argument),
	)
}

func genExpressionStatement(exprStmt *ast.ExpressionStatement) string {
	return fmt.Sprintf("%s;", genExpression(exprStmt.Expression))
}

func genBlockStatement(blockStmt *ast.BlockStatement) string {
	gennedStatements := ""
	for _, statement := range blockStmt.Statements {
		gennedStatements += genStatement(statement)
	}
	return fmt.Sprintf("{%s}", gennedStatements)
}

func genExpression(expr ast.Expression) string {
	switch expr.(type) {
	case *ast.UnaryExpression:
		{
			return genUnaryExpression(expr.(*ast.UnaryExpression))
		}
	case *ast.BinaryExpression:
		{
			return genBinaryExpression(expr.(*ast.BinaryExpression))
		}
	case *ast.VariableExpression:
		{
			return genVariableExpression(expr.(*ast.VariableExpression))
		}
	case *ast.CallExpression:
		{
			return genCallExpression(expr.(*ast.CallExpression))
		}
	case *ast.Literal:
		{
			return genLiteral(expr.(*ast.Literal))
		}
	}

	panic("Expression node has invalid static type.")
}

func genUnaryExpression(unaryExpr *ast.UnaryExpression) string {
	return fmt.Sprintf("(%s%s)", unaryExpr.Operator.Lexeme, genExpression(unaryExpr.Value))
}

func genBinaryExpression(binaryExpr *ast.BinaryExpression) string {
	return fmt.Sprintf(
		"(%s %s %s)",
		genExpression(binaryExpr.Left),
		binaryExpr.Operator.Lexeme,
		genExpression(binaryExpr.Right),
	)
}

func genVariableExpression(varExpr *ast.VariableExpression) string {
	return varExpr.Identifier.Lexeme
}

func genCallExpression(call *ast.CallExpression) string {
	callee, ok := call.Callee.(*ast.VariableExpression)
	if !ok {
		panic("Can only generate variables as callee.")
	}

	if callee.Identifier.Lexeme == "print" {
		return genPrintCall(call)
	}

	arguments := ""
	for i, argument := range call.Arguments {
		arguments += genExpression(argument)
		if i != len(call.Arguments)-1 {
			arguments += ", "
		}
	}

	return fmt.Sprintf("%s(%s)", callee.Identifier.Lexeme, arguments)
}

func genLiteral(literal *ast.Literal) string {
	if literal.Token.Type == token.STRING {
		return fmt.Sprintf("%q", literal.LiteralValue)
	}

	return literal.LiteralValue
}

func Gen(m *ast.Module) string {
	result := prelude
	for _, statement := range m.Statements {
		result += genStatement(statement)
	}
	return result
}
