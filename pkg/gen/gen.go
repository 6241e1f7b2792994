package gen

import (
	"github.com/zen-lang/zenc/pkg/ast"
	cgen "github.com/zen-lang/zenc/pkg/gen/c"
	llvmgen "github.com/zen-lang/zenc/pkg/gen/llvm"
	"github.com/zen-lang/zenc/pkg/gen/native"
)

func C(m *ast.Module) string {
	return cgen.Gen(m)
}

func LLVM(m *ast.Module) string {
	return llvmgen.Gen(m)
}

// Native compiles the module straight to a Linux x86-64 executable at path,
// with no external toolchain involved. Nothing is written if any stage fails.
func Native(m *ast.Module, path string) error {
	program, err := native.Lower(m)
	if err != nil {
		return err
	}

	image, err := native.Encode(program)
	if err != nil {
		return err
	}

	return native.WriteExecutable(path, image)
}
