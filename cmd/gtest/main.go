// gtest compiles every test program with gmini and compares the emitted
// assembly, diagnostics and exit status with a golden JSON file stored
// next to the source. With --run the program is also linked and executed
// and its output is compared too.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// Golden is the recorded behaviour of one test program.
type Golden struct {
	SourceHash string     `json:"source_hash"`
	Compile    Execution  `json:"compile"`
	Run        *Execution `json:"run,omitempty"`
}

type FileTestResult struct {
	File    string `json:"file"`
	Status  string `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string `json:"message,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	compiler       = flag.String("compiler", "./gmini", "Path to the gmini binary under test.")
	compilerArgs   = flag.String("compiler-args", "", "Extra arguments for the compiler (space-separated).")
	generateGolden = flag.String("generate-golden", "", "Generate golden .json files for the given source files (space-separated globs).")
	testFiles      = flag.String("test-files", "tests/*.mini", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each command execution.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	run            = flag.Bool("run", false, "Also link and execute each program that compiles.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	tempDir, err := os.MkdirTemp("", "gtest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	if *generateGolden != "" {
		handleGenerateGolden(*generateGolden, tempDir)
		return
	}
	if !handleRunTestSuite(tempDir) {
		os.RemoveAll(tempDir)
		os.Exit(1)
	}
}

func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func handleGenerateGolden(patterns, tempDir string) {
	files, err := expandGlobPatterns(patterns)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0o755); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to create directory %s: %v\n", cRed, cNone, *jsonDir, err)
		}
	}
	for _, file := range files {
		golden, err := record(file, tempDir)
		if err != nil {
			log.Fatalf("%s[ERROR]%s Could not generate golden file for %s: %v\n", cRed, cNone, file, err)
		}
		jsonData, err := json.MarshalIndent(golden, "", "  ")
		if err != nil {
			log.Fatalf("%s[ERROR]%s Failed to marshal golden data to JSON: %v\n", cRed, cNone, err)
		}
		goldenFile := getJSONPath(file)
		if err := os.WriteFile(goldenFile, jsonData, 0o644); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to write golden file %s: %v\n", cRed, cNone, goldenFile, err)
		}
		log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenFile)
	}
}

// handleRunTestSuite reports whether every test passed.
func handleRunTestSuite(tempDir string) bool {
	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return true
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		if abs, err := filepath.Abs(f); err == nil {
			skipList[abs] = true
		}
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < max(1, *jobs); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file, tempDir)
			}
		}()
	}

	// Programs with identical content only need testing once.
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- file
	}
	close(tasks)
	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool { return allResults[i].File < allResults[j].File })

	printSummary(allResults)
	return !hasFailures(writeJSONReport(allResults))
}

func testFile(file, tempDir string) *FileTestResult {
	goldenFile := getJSONPath(file)
	data, err := os.ReadFile(goldenFile)
	if errors.Is(err, os.ErrNotExist) {
		return &FileTestResult{File: file, Status: "SKIP", Message: "No golden file; use --generate-golden"}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}
	var want Golden
	if err := json.Unmarshal(data, &want); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Corrupt golden file %s: %v", goldenFile, err)}
	}

	got, err := record(file, tempDir)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}
	if *verbose {
		log.Printf("%s[RUN]%s %s compiled in %s\n", cCyan, cNone, file, formatDuration(got.Compile.Duration))
	}

	var diffs strings.Builder
	if want.SourceHash != got.SourceHash {
		diffs.WriteString("Source changed since the golden file was recorded.\n")
	}
	compareExecution(&diffs, "compile", &want.Compile, &got.Compile)
	if *run && want.Run != nil {
		if got.Run == nil {
			diffs.WriteString("run: program was not executed\n")
		} else {
			compareExecution(&diffs, "run", want.Run, got.Run)
		}
	}
	if diffs.Len() > 0 {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output does not match the golden file", Diff: diffs.String()}
	}
	return &FileTestResult{File: file, Status: "PASS"}
}

func compareExecution(diffs *strings.Builder, stage string, want, got *Execution) {
	if want.ExitCode != got.ExitCode {
		fmt.Fprintf(diffs, "%s: exit code %d, want %d\n", stage, got.ExitCode, want.ExitCode)
	}
	if got.TimedOut {
		fmt.Fprintf(diffs, "%s: timed out\n", stage)
	}
	if d := cmp.Diff(want.Stdout, got.Stdout); d != "" {
		fmt.Fprintf(diffs, "%s STDOUT mismatch (-want +got):\n%s", stage, d)
	}
	if d := cmp.Diff(want.Stderr, got.Stderr); d != "" {
		fmt.Fprintf(diffs, "%s STDERR mismatch (-want +got):\n%s", stage, d)
	}
}

// record compiles file to assembly on stdout and, with --run, links and
// executes it. The compiler runs from the file's directory so that
// diagnostics carry a relative path.
func record(file, tempDir string) (*Golden, error) {
	hash, err := hashFile(file)
	if err != nil {
		return nil, err
	}
	compilerPath, err := filepath.Abs(*compiler)
	if err != nil {
		return nil, err
	}
	dir, base := filepath.Dir(file), filepath.Base(file)

	g := &Golden{SourceHash: hash}
	args := append(strings.Fields(*compilerArgs), "--no-color", "-S", "-o", "-", base)
	g.Compile = executeCommand(dir, "", compilerPath, args...)
	if !*run || g.Compile.ExitCode != 0 {
		return g, nil
	}

	binary := filepath.Join(tempDir, hash)
	link := append(strings.Fields(*compilerArgs), "--no-color", "-o", binary, base)
	if res := executeCommand(dir, "", compilerPath, link...); res.ExitCode != 0 {
		return nil, fmt.Errorf("linking failed: %s", res.Stderr)
	}
	runResult := executeCommand(dir, "", binary)
	g.Run = &runResult
	return g, nil
}

func executeCommand(dir, stdinData, command string, args ...string) Execution {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdinData != "" {
		cmd.Stdin = strings.NewReader(stdinData)
	}

	err := cmd.Run()
	res := Execution{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(startTime)}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		res.TimedOut = true
		res.ExitCode = -1
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		res.ExitCode = -2
		res.Stderr += "\nExecution error: " + err.Error()
	}
	return res
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
}

func printSummary(results []*FileTestResult) {
	counts := make(map[string]int)
	fmt.Printf("\n%s--- Test Summary ---%s\n", cBold, cNone)
	for _, r := range results {
		counts[r.Status]++
		color := cGreen
		switch r.Status {
		case "FAIL", "ERROR":
			color = cRed
		case "SKIP":
			color = cYellow
		}
		if r.Status == "PASS" && !*verbose {
			continue
		}
		fmt.Printf("%s[%s]%s %s", color, r.Status, cNone, r.File)
		if r.Message != "" {
			fmt.Printf(": %s", r.Message)
		}
		fmt.Println()
		fmt.Print(formatDiff(r.Diff))
	}
	fmt.Printf("\n%s%d passed%s, %s%d failed%s, %s%d errors%s, %s%d skipped%s\n",
		cGreen, counts["PASS"], cNone, cRed, counts["FAIL"], cNone,
		cRed, counts["ERROR"], cNone, cYellow, counts["SKIP"], cNone)
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line + cNone + "\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}
	outputFile := *outputJSON
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0o755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}
	if err := os.WriteFile(outputFile, jsonData, 0o644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", outputFile)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil || seen[absFile] {
				continue
			}
			if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
				allFiles = append(allFiles, absFile)
				seen[absFile] = true
			}
		}
	}
	return allFiles, nil
}
