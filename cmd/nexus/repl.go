package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/pterm/pterm"
	"golang.org/x/term"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
	"github.com/MatN23/Nexus-Lang/pkg/runtime"
	"github.com/MatN23/Nexus-Lang/pkg/value"
)

var replCommands = []string{":help", ":quit", ":vars", ":models", ":clear", ":load"}

func cmdRepl(args []string) int {
	var seed *int64
	for i := 0; i < len(args); i++ {
		switch args[i] {
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
		}
	}

	var opts []runtime.Option
	if seed != nil {
		opts = append(opts, runtime.WithRandSeed(*seed))
	}
	rt := runtime.New(opts...)

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if !interactive {
		return replBatch(rt)
	}

	pterm.DefaultBasicText.Printf("NEXUS %s (type :help for commands, :quit to exit)\n", version)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		var out []string
		for _, c := range replCommands {
			if strings.HasPrefix(c, prefix) {
				out = append(out, c)
			}
		}
		for _, name := range rt.Vars() {
			if strings.HasPrefix(name, prefix) {
				out = append(out, name)
			}
		}
		return out
	})

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	var pending strings.Builder
	for {
		prompt := "nexus> "
		if pending.Len() > 0 {
			prompt = "  ...> "
		}
		input, err := line.Prompt(prompt)
		if err == liner.ErrPromptAborted {
			pending.Reset()
			continue
		}
		if err == io.EOF {
			fmt.Println()
			return 0
		}
		if err != nil {
			pterm.Error.Println(err)
			return 1
		}

		if pending.Len() == 0 {
			trimmed := strings.TrimSpace(input)
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, ":") {
				line.AppendHistory(input)
				if quit := replCommand(rt, trimmed); quit {
					return 0
				}
				continue
			}
		}

		pending.WriteString(input)
		pending.WriteString("\n")
		source := pending.String()
		if openBrackets(source) > 0 {
			continue
		}
		pending.Reset()
		line.AppendHistory(strings.TrimSpace(source))
		replEval(rt, source)
	}
}

// replBatch consumes piped stdin line by line with no prompt or colors.
func replBatch(rt *runtime.Runtime) int {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading stdin: %s\n", err)
		return 1
	}
	if execErr := rt.Run(string(data), "<stdin>"); execErr != nil {
		diag := runtime.Diagnose(execErr)
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, false))
		return exitCodeForDiag(diag.Code)
	}
	return 0
}

func replEval(rt *runtime.Runtime, source string) {
	result, err := rt.Eval(source)
	if err != nil {
		diag := runtime.Diagnose(err)
		pterm.Error.Println(diagnostics.FormatDiagnostic(diag, true))
		return
	}
	if out := formatResult(result); out != "" {
		fmt.Println(out)
	}
}

// replCommand handles a leading-colon REPL command and reports whether
// the session should end.
func replCommand(rt *runtime.Runtime, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true

	case ":help":
		pterm.DefaultBasicText.Print(`:help            show this help
:vars            list global variables
:models          list registered models
:clear           reset all variables and models
:load <file>     execute a script in this session
:quit            exit
`)

	case ":vars":
		names := rt.Vars()
		if len(names) == 0 {
			pterm.Info.Println("no variables defined")
			break
		}
		for _, name := range names {
			v, err := rt.Lookup(name)
			if err != nil {
				continue
			}
			if _, isFn := v.(value.Function); isFn {
				continue // builtins and function bindings clutter the list
			}
			fmt.Printf("  %s = %s\n", name, formatResult(v))
		}

	case ":models":
		names := rt.Models()
		if len(names) == 0 {
			pterm.Info.Println("no models registered")
			break
		}
		for _, name := range names {
			summary, err := rt.ModelSummary(name)
			if err != nil {
				continue
			}
			fmt.Printf("  %s: %s\n", name, summary)
		}

	case ":clear":
		rt.Reset()
		pterm.Info.Println("session cleared")

	case ":load":
		if len(fields) < 2 {
			pterm.Error.Println("usage: :load <file>")
			break
		}
		if err := rt.RunFile(fields[1]); err != nil {
			diag := runtime.Diagnose(err)
			pterm.Error.Println(diagnostics.FormatDiagnostic(diag, true))
		}

	default:
		pterm.Error.Printf("unknown command %s (try :help)\n", fields[0])
	}
	return false
}

// openBrackets counts unclosed brackets outside strings and comments,
// for multi-line input.
func openBrackets(source string) int {
	depth := 0
	inString := false
	inLineComment := false
	inBlockComment := false
	for i := 0; i < len(source); i++ {
		ch := source[i]
		switch {
		case inLineComment:
			if ch == '\n' {
				inLineComment = false
			}
		case inBlockComment:
			if ch == '*' && i+1 < len(source) && source[i+1] == '/' {
				inBlockComment = false
				i++
			}
		case inString:
			if ch == '\\' {
				i++
			} else if ch == '"' {
				inString = false
			}
		default:
			switch ch {
			case '"':
				inString = true
			case '/':
				if i+1 < len(source) {
					if source[i+1] == '/' {
						inLineComment = true
					} else if source[i+1] == '*' {
						inBlockComment = true
					}
				}
			case '{', '(', '[':
				depth++
			case '}', ')', ']':
				depth--
			}
		}
	}
	return depth
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nexus_history"
	}
	return filepath.Join(home, ".nexus_history")
}
