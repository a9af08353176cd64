package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goforj/godump"
	"github.com/xplshn/gmini/pkg/ast"
	"github.com/xplshn/gmini/pkg/cli"
	"github.com/xplshn/gmini/pkg/codegen"
	"github.com/xplshn/gmini/pkg/config"
	"github.com/xplshn/gmini/pkg/lexer"
	"github.com/xplshn/gmini/pkg/parser"
	"github.com/xplshn/gmini/pkg/token"
	"github.com/xplshn/gmini/pkg/typeChecker"
	"github.com/xplshn/gmini/pkg/util"
	"github.com/xplshn/gmini/pkg/watch"
)

// errDiagnosed means the failure has already been printed.
var errDiagnosed = errors.New("compilation failed")

type options struct {
	outFile    string
	asmOnly    bool
	verbose    bool
	dumpAST    bool
	printAST   bool
	linkerArgs []string
}

func main() {
	app := cli.NewApp("gmini")
	app.Synopsis = "[options] <input.mini> ..."
	app.Description = "A compiler for Mini, a small imperative language with by-reference parameters, emitting x86 assembly."
	app.Authors = []string{"xplshn"}
	app.Repository = "https://github.com/xplshn/gmini"

	var (
		opts      options
		target    string
		watchMode bool
		wall      bool
		noColor   bool
	)

	fs := app.FlagSet
	fs.String(&opts.outFile, "output", "o", "", "Place the output into <file> ('-' for stdout).", "file")
	fs.String(&target, "target", "t", "i386", "Set the target machine ("+strings.Join(config.TargetNames(), ", ")+").", "target")
	fs.Bool(&opts.asmOnly, "asm", "S", false, "Emit assembly only; do not assemble or link.")
	fs.Bool(&watchMode, "watch", "w", false, "Recompile whenever an input file changes.")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Report each compilation stage.")
	fs.Bool(&opts.dumpAST, "dump-ast", "d", false, "Dump the parsed syntax tree to stdout.")
	fs.Bool(&opts.printAST, "print-ast", "P", false, "Print the parsed program back as Mini source.")
	fs.Bool(&noColor, "no-color", "", false, "Disable colored diagnostics.")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings except pedantic.")
	fs.List(&opts.linkerArgs, "linker-arg", "L", []string{}, "Pass an argument to the linker.", "arg")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		if len(inputFiles) == 0 {
			util.Error(token.Token{FileIndex: -1}, "no input files specified.")
		}
		if noColor {
			util.SetColor(false)
		}
		if wall {
			cfg.ProcessDirectiveFlags("-Wall")
		}
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target); err != nil {
			util.Error(token.Token{FileIndex: -1}, "%v", err)
		}

		if opts.outFile == "" {
			opts.outFile = "a.out"
			if opts.asmOnly {
				opts.outFile = strings.TrimSuffix(filepath.Base(inputFiles[0]), filepath.Ext(inputFiles[0])) + ".s"
			}
		}

		if watchMode {
			return watchAndBuild(inputFiles, cfg, &opts)
		}
		if err := build(inputFiles, cfg, &opts); err != nil {
			if !errors.Is(err, errDiagnosed) {
				fmt.Fprintf(os.Stderr, "gmini: %v\n", err)
			}
			return err
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func logf(opts *options, format string, args ...interface{}) {
	if opts.verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// compile runs every stage up to code generation. Diagnostics are
// returned rather than printed; err is errDiagnosed when one of them is an
// error.
func compile(inputFiles []string, cfg *config.Config, opts *options) (*codegen.Context, []*util.Failure, error) {
	logf(opts, "Tokenizing %d source file(s) for %s...", len(inputFiles), cfg.Target.Name)
	records, tokens, err := readAndTokenizeFiles(inputFiles, cfg)
	if err != nil {
		return nil, nil, err
	}
	util.SetSourceFiles(records)

	logf(opts, "Parsing tokens into AST...")
	prog, err := parser.NewParser(tokens, cfg).Parse()
	if err != nil {
		var f *util.Failure
		if errors.As(err, &f) {
			return nil, []*util.Failure{f}, errDiagnosed
		}
		return nil, nil, err
	}
	if opts.dumpAST {
		godump.Dump(prog)
	}
	if opts.printAST {
		for _, fn := range prog.Functions {
			fmt.Println(ast.FormatFunction(fn))
		}
	}

	logf(opts, "Type checking %d function(s)...", len(prog.Functions))
	tc := typeChecker.NewContext(cfg)
	if !tc.Check(prog) {
		return nil, tc.Failures(), errDiagnosed
	}

	logf(opts, "Generating %s assembly...", cfg.Target.Name)
	gen := codegen.NewContext(cfg)
	gen.Generate(prog)
	return gen, tc.Failures(), nil
}

func build(inputFiles []string, cfg *config.Config, opts *options) error {
	gen, failures, err := compile(inputFiles, cfg, opts)
	errorCount := 0
	for _, f := range failures {
		util.Print(os.Stderr, f)
		if f.Severity == util.SevError {
			errorCount++
		}
	}
	if err != nil {
		if errorCount > 0 {
			fmt.Fprintf(os.Stderr, "%d error(s) generated.\n", errorCount)
		}
		return err
	}

	switch {
	case opts.outFile == "-":
		_, err := gen.WriteTo(os.Stdout)
		return err
	case opts.asmOnly || strings.HasSuffix(opts.outFile, ".s"):
		n, err := writeAsm(opts.outFile, gen)
		if err != nil {
			return fmt.Errorf("writing '%s': %w", opts.outFile, err)
		}
		logf(opts, "Wrote '%s' (%s)", opts.outFile, humanize.Bytes(uint64(n)))
		return nil
	}

	logf(opts, "Linking to create '%s'...", opts.outFile)
	ccArgs := append(append([]string{}, cfg.Target.CCFlags...), opts.linkerArgs...)
	if err := assembleAndLink(opts.outFile, gen, ccArgs); err != nil {
		return fmt.Errorf("assembler/linker failed: %w", err)
	}
	if info, err := os.Stat(opts.outFile); err == nil {
		logf(opts, "Wrote '%s' (%s)", opts.outFile, humanize.Bytes(uint64(info.Size())))
	}
	return nil
}

func writeAsm(path string, gen *codegen.Context) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := gen.WriteTo(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// watchAndBuild builds once and again after every edit until interrupted.
// Compile errors are reported and do not stop the loop.
func watchAndBuild(inputFiles []string, cfg *config.Config, opts *options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w, err := watch.New(inputFiles)
	if err != nil {
		return err
	}
	defer w.Close()

	rebuild := func() {
		if err := build(inputFiles, cfg, opts); err != nil {
			if !errors.Is(err, errDiagnosed) {
				fmt.Fprintf(os.Stderr, "gmini: %v\n", err)
			}
			return
		}
		fmt.Fprintf(os.Stderr, "gmini: built '%s'\n", opts.outFile)
	}

	rebuild()
	fmt.Fprintf(os.Stderr, "gmini: watching %d file(s), press Ctrl-C to stop\n", len(inputFiles))
	return w.Run(ctx, func(changed []string) {
		logf(opts, "Changed: %s", strings.Join(changed, ", "))
		rebuild()
	})
}

func assembleAndLink(outFile string, gen *codegen.Context, ccArgs []string) error {
	asmFile, err := os.CreateTemp("", "gmini-*.s")
	if err != nil {
		return fmt.Errorf("failed to create temp file for asm: %w", err)
	}
	defer os.Remove(asmFile.Name())
	if _, err := gen.WriteTo(asmFile); err != nil {
		asmFile.Close()
		return fmt.Errorf("failed to write temp file for asm: %w", err)
	}
	asmFile.Close()

	args := append([]string{"-no-pie", "-o", outFile, asmFile.Name()}, ccArgs...)
	cmd := exec.Command("cc", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cc command failed: %w\nOutput:\n%s", err, string(output))
	}
	return nil
}

// readAndTokenizeFiles lexes every file into one token stream. An illegal
// token ends the stream so the parser reports it.
func readAndTokenizeFiles(paths []string, cfg *config.Config) ([]util.SourceFileRecord, []token.Token, error) {
	var records []util.SourceFileRecord
	var allTokens []token.Token

	for i, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("could not read file '%s': %w", path, err)
		}
		runes := []rune(string(content))
		records = append(records, util.SourceFileRecord{Name: path, Content: runes})

		toks := lexer.NewLexer(runes, i, cfg).All()
		last := toks[len(toks)-1]
		if last.Type == token.Illegal {
			return records, append(allTokens, toks...), nil
		}
		allTokens = append(allTokens, toks[:len(toks)-1]...)
	}
	allTokens = append(allTokens, token.Token{Type: token.EOF, FileIndex: max(0, len(paths)-1)})
	return records, allTokens, nil
}
