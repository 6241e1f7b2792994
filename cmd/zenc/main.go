package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/alecthomas/repr"
	"github.com/urfave/cli/v2"
	"github.com/xyproto/env/v2"

	"github.com/zen-lang/zenc/pkg/analyzer"
	"github.com/zen-lang/zenc/pkg/ast"
	"github.com/zen-lang/zenc/pkg/gen"
	"github.com/zen-lang/zenc/pkg/lexer"
	"github.com/zen-lang/zenc/pkg/parser"
)

func loadModule(filename string, dumpTokens bool, dumpAST bool) *ast.Module {
	code, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("Failed while attempting to read source file.\n%s", err.Error())
	}

	m := &ast.Module{
		Path:   filename,
		Source: string(code),
	}

	lexer.Lex(m)
	if dumpTokens {
		repr.Println(m.Tokens)
	}

	parser.Parse(m)
	analyzer.Analyze(m)
	if dumpAST {
		repr.Println(m.Statements)
	}

	return m
}

func compileWithCC(source string, extension string, output string, compiler string, extraArgs ...string) error {
	tmpDir, err := os.MkdirTemp("", "zenc-tmp-*")
	if err != nil {
		log.Fatalf("Failed while creating temp directory.\n%s", err.Error())
	}
	defer os.RemoveAll(tmpDir)

	sourcePath := filepath.Join(tmpDir, "zenc-out"+extension)
	if err := os.WriteFile(sourcePath, []byte(source), 0o644); err != nil {
		log.Fatalf("Failed while writing generated source.\n%s", err.Error())
	}

	args := append(extraArgs, "-o", output, sourcePath)
	compileCommand := exec.Command(compiler, args...)
	compileCommand.Stdout = os.Stdout
	compileCommand.Stderr = os.Stderr

	if err := compileCommand.Run(); err != nil {
		return fmt.Errorf("%s failed: %s", compiler, err.Error())
	}
	return nil
}

func build(m *ast.Module, backend string, output string) error {
	switch backend {
	case "native":
		return gen.Native(m, output)
	case "c":
		return compileWithCC(gen.C(m), ".c", output, env.Str("ZENC_CC", "cc"))
	case "llvm":
		return compileWithCC(gen.LLVM(m), ".ll", output, env.Str("ZENC_CLANG", "clang"), "-Wno-override-module")
	}

	return fmt.Errorf("Unknown backend: '%s'. Available backends are native, c, and llvm.", backend)
}

func main() {
	var backend string
	var executableOutputFile string
	var dumpTokens bool
	var dumpAST bool

	backendFlag := &cli.StringFlag{
		Name:        "backend",
		Aliases:     []string{"b"},
		Value:       "native",
		Usage:       "Code generation backend (native, c, or llvm).",
		Destination: &backend,
	}
	tokensFlag := &cli.BoolFlag{
		Name:        "tokens",
		Usage:       "Dump the token stream before parsing.",
		Destination: &dumpTokens,
	}
	astFlag := &cli.BoolFlag{
		Name:        "ast",
		Usage:       "Dump the typed syntax tree after analysis.",
		Destination: &dumpAST,
	}

	app := &cli.App{
		Name:  "zenc",
		Usage: "Compiler for the zen programming language.",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Builds and immediately runs the provided source file.",
				Flags: []cli.Flag{backendFlag, tokensFlag, astFlag},
				Action: func(c *cli.Context) error {
					if c.Args().Len() > 1 {
						return errors.New("\n\nToo many arguments provided.\nRun takes only a single source file.")
					}
					filename := c.Args().First()
					if filename == "" {
						return errors.New("Source file not provided.")
					}

					m := loadModule(filename, dumpTokens, dumpAST)

					tmpDir, err := os.MkdirTemp("", "zenc-tmp-*")
					if err != nil {
						return err
					}
					defer os.RemoveAll(tmpDir)

					exePath := filepath.Join(tmpDir, "zenc-exe.out")
					if err := build(m, backend, exePath); err != nil {
						return err
					}

					runCmd := exec.Command(exePath)
					runCmd.Stdout = os.Stdout
					runCmd.Stderr = os.Stderr

					if err := runCmd.Run(); err != nil {
						var exitErr *exec.ExitError
						if errors.As(err, &exitErr) {
							os.Exit(exitErr.ExitCode())
						}
						return err
					}
					return nil
				},
			},
			{
				Name:  "build",
				Usage: "Builds the provided source file to an executable.",
				Flags: []cli.Flag{
					backendFlag,
					tokensFlag,
					astFlag,
					&cli.StringFlag{
						Name:        "output",
						Aliases:     []string{"o"},
						Value:       "a.out",
						Usage:       "Name of the executable.",
						Destination: &executableOutputFile,
					},
				},
				Action: func(c *cli.Context) error {
					if c.Args().Len() > 1 {
						return errors.New(`

Too many arguments provided.

If you've provided flags make sure they go before the arguments.
    Wrong: $ zenc build file.zen -o foo
    Right: $ zenc build -o foo file.zen
`)
					}

					filename := c.Args().First()
					if filename == "" {
						return errors.New("Source file not provided.")
					}

					m := loadModule(filename, dumpTokens, dumpAST)
					return build(m, backend, executableOutputFile)
				},
			},
			{
				Name:  "emit",
				Usage: "Prints the generated C or LLVM IR for the provided source file.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "backend",
						Aliases:     []string{"b"},
						Value:       "c",
						Usage:       "Textual backend to emit (c or llvm).",
						Destination: &backend,
					},
				},
				Action: func(c *cli.Context) error {
					filename := c.Args().First()
					if filename == "" {
						return errors.New("Source file not provided.")
					}

					m := loadModule(filename, false, false)

					switch backend {
					case "c":
						fmt.Println(gen.C(m))
					case "llvm":
						fmt.Println(gen.LLVM(m))
					default:
						return fmt.Errorf("The emit command supports only the c and llvm backends, not '%s'.", backend)
					}
					return nil
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
