// Command nexus is the NEXUS language CLI entry point.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
	"github.com/MatN23/Nexus-Lang/pkg/runtime"
	"github.com/MatN23/Nexus-Lang/pkg/value"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: nexus <command> [options]")
		fmt.Fprintln(os.Stderr, "commands: run, repl, check, version")
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "version", "--version", "-v":
		fmt.Printf("nexus %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printHelp()
		os.Exit(0)
	default:
		// `nexus file.nx` runs the script directly
		if !strings.HasPrefix(cmd, "-") && fileExists(cmd) {
			os.Exit(cmdRun(os.Args[1:]))
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`nexus - the NEXUS language interpreter

usage: nexus <command> [options]

commands:
  run <file>     execute a script (use - for stdin)
  repl           start an interactive session
  check <file>   lex and report diagnostics without executing
  version        print the version

run options:
  --pretty         human readable diagnostics
  --profile        print execution time on exit
  --seed <n>       fix the random seed
`)
}

func cmdRun(args []string) int {
	var file string
	pretty := false
	profile := false
	var seed *int64

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		case "--profile":
			profile = true
		case "--seed":
			if i+1 < len(args) {
				i++
				n, err := strconv.ParseInt(args[i], 10, 64)
				if err != nil {
					fmt.Fprintf(os.Stderr, "invalid seed: %s\n", args[i])
					return 1
				}
				seed = &n
			}
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: nexus run <file> [--pretty] [--profile] [--seed <n>]")
		return 1
	}

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	var opts []runtime.Option
	if seed != nil {
		opts = append(opts, runtime.WithRandSeed(*seed))
	}
	rt := runtime.New(opts...)

	start := time.Now()
	execErr := rt.Run(source, filename)
	elapsed := time.Since(start)

	if execErr != nil {
		diag := runtime.Diagnose(execErr)
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
		return exitCodeForDiag(diag.Code)
	}
	if profile {
		fmt.Fprintf(os.Stderr, "executed in %s\n", elapsed.Round(time.Microsecond))
	}
	return 0
}

func cmdCheck(args []string) int {
	var file string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: nexus check <file> [--pretty]")
		return 1
	}

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New()
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, pretty))
		return 2
	}

	if pretty {
		fmt.Println("No errors found.")
	} else {
		fmt.Println("[]")
	}
	return 0
}

func readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading stdin: %s\n", err)
			return "", "", 1
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
		return "", "", 1
	}
	return string(source), file, 0
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func exitCodeForDiag(code string) int {
	switch code {
	case diagnostics.ELex, diagnostics.ESyntax:
		return 2
	case diagnostics.EThrow:
		return 3
	case diagnostics.EIO:
		return 1
	default:
		return 4
	}
}

func formatResult(v value.Value) string {
	if _, isNil := v.(value.Nil); isNil {
		return ""
	}
	if s, isStr := v.(value.String); isStr {
		return strconv.Quote(s.Value)
	}
	return value.Stringify(v)
}
