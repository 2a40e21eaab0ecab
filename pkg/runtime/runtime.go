// Package runtime is the embedding facade for NEXUS: it wires the
// lexer, interpreter and model registry behind a small API used by the
// CLI and by host programs.
package runtime

import (
	"io"
	"math/rand"
	"os"
	"sort"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
	"github.com/MatN23/Nexus-Lang/pkg/interp"
	"github.com/MatN23/Nexus-Lang/pkg/lexer"
	"github.com/MatN23/Nexus-Lang/pkg/nn"
	"github.com/MatN23/Nexus-Lang/pkg/value"
)

// Runtime owns one interpreter instance and its model registry. It is
// not safe for concurrent use; create one Runtime per goroutine.
type Runtime struct {
	opts   options
	interp *interp.Interpreter
	models *nn.Registry
}

type options struct {
	stdout   io.Writer
	seed     *int64
	models   *nn.Registry
	importer func(path string) (string, error)
}

// Option configures a Runtime.
type Option func(*options)

// WithStdout redirects script output.
func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithRandSeed fixes the random seed, for reproducible runs.
func WithRandSeed(seed int64) Option {
	return func(o *options) { o.seed = &seed }
}

// WithModels supplies a shared model registry.
func WithModels(reg *nn.Registry) Option {
	return func(o *options) { o.models = reg }
}

// WithImporter overrides how import statements resolve module paths.
func WithImporter(fn func(path string) (string, error)) Option {
	return func(o *options) { o.importer = fn }
}

// New creates a runtime with a fresh global environment.
func New(opts ...Option) *Runtime {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.stdout == nil {
		o.stdout = os.Stdout
	}
	r := &Runtime{opts: o}
	r.reset()
	return r
}

func (r *Runtime) reset() {
	models := r.opts.models
	if models == nil {
		if r.opts.seed != nil {
			models = nn.NewRegistrySeeded(*r.opts.seed)
		} else {
			models = nn.NewRegistry()
		}
	}
	var rng *rand.Rand
	if r.opts.seed != nil {
		rng = rand.New(rand.NewSource(*r.opts.seed))
	}
	r.models = models
	r.interp = interp.New(interp.Options{
		Stdout:     r.opts.stdout,
		Models:     models,
		Rand:       rng,
		ImportFile: r.opts.importer,
	})
}

// Run executes a whole source text as a statement list.
func (r *Runtime) Run(source, filename string) error {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		return err
	}
	return r.interp.Execute(tokens)
}

// RunFile reads and executes a script file.
func (r *Runtime) RunFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return r.Run(string(data), path)
}

// Eval executes one REPL line. A line that parses as a single
// expression yields its value; anything else runs as statements and
// yields nil.
func (r *Runtime) Eval(source string) (value.Value, error) {
	tokens, err := lexer.Tokenize(source, "<repl>")
	if err != nil {
		return nil, err
	}
	if isExprLine(tokens) {
		return r.interp.EvalExpression(tokens)
	}
	if err := r.interp.Execute(tokens); err != nil {
		return nil, err
	}
	return value.NewNil(), nil
}

// isExprLine reports whether a REPL line should evaluate as a single
// expression. Lines that start with a statement keyword or hold more
// than one statement run through the statement path.
func isExprLine(tokens []lexer.Token) bool {
	if len(tokens) == 0 || tokens[0].Kind == lexer.TokEOF {
		return false
	}
	switch tokens[0].Kind {
	case lexer.TokVar, lexer.TokConst, lexer.TokFunction, lexer.TokTensor,
		lexer.TokModel, lexer.TokIf, lexer.TokWhile, lexer.TokFor,
		lexer.TokReturn, lexer.TokBreak, lexer.TokContinue, lexer.TokThrow,
		lexer.TokTry, lexer.TokImport, lexer.TokLBrace:
		return false
	}
	// a semicolon anywhere but directly before EOF means multiple statements
	for i, tok := range tokens {
		if tok.Kind == lexer.TokSemicolon && i < len(tokens)-2 {
			return false
		}
	}
	return true
}

// Check lexes the source and reports diagnostics without executing
// anything.
func (r *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		return []diagnostics.Diagnostic{toDiag(err)}
	}
	var diags []diagnostics.Diagnostic
	if err := checkBalance(tokens); err != nil {
		diags = append(diags, toDiag(err))
	}
	return diags
}

// checkBalance verifies bracket pairing across the whole token stream.
func checkBalance(tokens []lexer.Token) error {
	type open struct {
		kind lexer.Kind
		tok  lexer.Token
	}
	closing := map[lexer.Kind]lexer.Kind{
		lexer.TokRParen:   lexer.TokLParen,
		lexer.TokRBrace:   lexer.TokLBrace,
		lexer.TokRBracket: lexer.TokLBracket,
	}
	var stack []open
	for _, tok := range tokens {
		switch tok.Kind {
		case lexer.TokLParen, lexer.TokLBrace, lexer.TokLBracket:
			stack = append(stack, open{kind: tok.Kind, tok: tok})
		case lexer.TokRParen, lexer.TokRBrace, lexer.TokRBracket:
			want := closing[tok.Kind]
			if len(stack) == 0 || stack[len(stack)-1].kind != want {
				p := tok.Pos
				return &interp.RuntimeError{
					Code:    diagnostics.ESyntax,
					Message: "unmatched '" + tok.Lexeme + "'",
					Pos:     &p,
				}
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		last := stack[len(stack)-1]
		p := last.tok.Pos
		return &interp.RuntimeError{
			Code:    diagnostics.ESyntax,
			Message: "unclosed '" + last.tok.Lexeme + "'",
			Pos:     &p,
		}
	}
	return nil
}

func toDiag(err error) diagnostics.Diagnostic {
	switch e := err.(type) {
	case *lexer.LexError:
		return e.Diag
	case *interp.RuntimeError:
		return e.Diag()
	}
	return diagnostics.MakeDiag(diagnostics.ESyntax, err.Error(), nil, "")
}

// Diagnose converts any error from Run or Eval into a diagnostic.
func Diagnose(err error) diagnostics.Diagnostic {
	return toDiag(err)
}

// Vars returns the global bindings, sorted by name.
func (r *Runtime) Vars() []string {
	names := r.interp.Globals().Names()
	sort.Strings(names)
	return names
}

// Lookup returns a global binding by name.
func (r *Runtime) Lookup(name string) (value.Value, error) {
	return r.interp.Globals().Get(name)
}

// Models returns the registered model names.
func (r *Runtime) Models() []string {
	return r.models.Names()
}

// ModelSummary describes one registered model.
func (r *Runtime) ModelSummary(name string) (string, error) {
	return r.models.Summary(name)
}

// Reset discards all user state: globals, constants and models.
func (r *Runtime) Reset() {
	if r.opts.models != nil {
		r.opts.models.Clear()
	}
	r.reset()
}
