package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/xplshn/gmini/pkg/token"
)

// Severity classifies a diagnostic.
type Severity int

const (
	SevError Severity = iota
	SevWarning
)

// Failure is a positioned diagnostic. It doubles as the error value that
// propagates out of expression typing until a statement check reports it.
type Failure struct {
	Tok      token.Token
	Msg      string
	Severity Severity
	Flag     string // warning flag name, without the -W prefix
}

func (f *Failure) Error() string {
	filename, line, col := findFileAndLine(f.Tok)
	return fmt.Sprintf("%s:%d:%d: %s", filename, line, col, f.Msg)
}

// NewFailure builds an error-severity diagnostic at tok.
func NewFailure(tok token.Token, format string, args ...interface{}) *Failure {
	return &Failure{Tok: tok, Msg: fmt.Sprintf(format, args...), Severity: SevError}
}

// NewWarning builds a warning-severity diagnostic tagged with its -W flag.
func NewWarning(flag string, tok token.Token, format string, args ...interface{}) *Failure {
	return &Failure{Tok: tok, Msg: fmt.Sprintf(format, args...), Severity: SevWarning, Flag: flag}
}

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var (
	sourceFiles []SourceFileRecord
	useColor    = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
)

// SetSourceFiles stores the source code for all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) { sourceFiles = files }

// SetColor forces colored diagnostics on or off.
func SetColor(enabled bool) { useColor = enabled }

func paint(code, s string) string {
	if !useColor {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// findFileAndLine converts a global token to a file-specific location
func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "unknown", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(w io.Writer, tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 || tok.Column == 0 {
		return
	}

	content := sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(w, "  %s\n", string(content[lineStart:lineEnd]))

	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", tok.Column-1), paint("32", caret))
}

// Print renders a diagnostic the way a C compiler would.
func Print(w io.Writer, f *Failure) {
	filename, line, col := findFileAndLine(f.Tok)
	label := paint("31", "error:")
	if f.Severity == SevWarning {
		label = paint("33", "warning:")
	}
	fmt.Fprintf(w, "%s:%d:%d: %s %s", filename, line, col, label, f.Msg)
	if f.Flag != "" {
		fmt.Fprintf(w, " [-W%s]", f.Flag)
	}
	fmt.Fprintln(w)
	printErrorLine(w, f.Tok)
}

// Error prints a formatted error message and exits the program
func Error(tok token.Token, format string, args ...interface{}) {
	Print(os.Stderr, NewFailure(tok, format, args...))
	os.Exit(1)
}

// AlignUp rounds n up to the next multiple of align.
func AlignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
