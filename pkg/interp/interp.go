// Package interp implements the NEXUS token-stream interpreter.
//
// There is no AST: statement execution and expression evaluation walk
// the token slice directly, advancing an explicit cursor. Blocks are
// bounded by brace tokens located with a depth-counting scan, and
// non-local transfers (return/break/continue) propagate as control
// signals rather than cursor arithmetic.
package interp

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
	"github.com/MatN23/Nexus-Lang/pkg/lexer"
	"github.com/MatN23/Nexus-Lang/pkg/nn"
	"github.com/MatN23/Nexus-Lang/pkg/value"
)

// RuntimeError represents a runtime error during NEXUS execution.
// Thrown carries the language-level value for `throw`; it is nil for
// errors raised by the interpreter itself.
type RuntimeError struct {
	Code    string
	Message string
	Pos     *diagnostics.Position
	Thrown  value.Value
}

func (e *RuntimeError) Error() string {
	if e.Pos != nil {
		return fmt.Sprintf("%s: %s", e.Pos, e.Message)
	}
	return e.Message
}

// Diag converts the error to a diagnostic.
func (e *RuntimeError) Diag() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Pos, "")
}

// control is a non-local transfer signal unwinding through block
// boundaries to the nearest loop or call frame.
type control struct {
	kind controlKind
	val  value.Value // return value
}

type controlKind int

const (
	ctlReturn controlKind = iota
	ctlBreak
	ctlContinue
)

// Options configures an interpreter instance.
type Options struct {
	Stdout     io.Writer
	Models     *nn.Registry
	Rand       *rand.Rand
	ImportFile func(path string) (string, error)
}

// Interpreter executes a token sequence against an environment chain.
// Each instance owns its global environment and model registry; there
// are no process-wide singletons.
type Interpreter struct {
	tokens  []lexer.Token
	globals *Env
	env     *Env
	models  *nn.Registry
	stdout  io.Writer
	rng     *rand.Rand
	imports func(path string) (string, error)

	// skip suppresses evaluation side effects while the cursor
	// traverses a span that must not execute (short-circuited operands,
	// untaken ternary branches).
	skip bool
}

// New creates an interpreter with builtins installed in its global scope.
func New(opts Options) *Interpreter {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Models == nil {
		opts.Models = nn.NewRegistry()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.ImportFile == nil {
		opts.ImportFile = func(path string) (string, error) {
			data, err := os.ReadFile(path)
			return string(data), err
		}
	}
	globals := NewEnv(nil, "global")
	in := &Interpreter{
		globals: globals,
		env:     globals,
		models:  opts.Models,
		stdout:  opts.Stdout,
		rng:     opts.Rand,
		imports: opts.ImportFile,
	}
	in.installBuiltins()
	return in
}

// Globals returns the global environment.
func (in *Interpreter) Globals() *Env { return in.globals }

// Models returns the model registry.
func (in *Interpreter) Models() *nn.Registry { return in.models }

// --- token cursor helpers ---

func (in *Interpreter) at(pos int) lexer.Token {
	if pos >= len(in.tokens) {
		if n := len(in.tokens); n > 0 {
			return in.tokens[n-1] // EOF
		}
		return lexer.Token{Kind: lexer.TokEOF}
	}
	return in.tokens[pos]
}

func (in *Interpreter) atEnd(pos int) bool {
	return in.at(pos).Kind == lexer.TokEOF
}

func (in *Interpreter) check(pos int, kind lexer.Kind) bool {
	return in.at(pos).Kind == kind
}

func (in *Interpreter) errAt(pos int, code, format string, args ...any) error {
	tok := in.at(pos)
	p := tok.Pos
	return &RuntimeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Pos:     &p,
	}
}

func (in *Interpreter) syntaxErr(pos int, format string, args ...any) error {
	return in.errAt(pos, diagnostics.ESyntax, format, args...)
}

// expect consumes a token of the given kind or fails with a syntax error.
func (in *Interpreter) expect(pos int, kind lexer.Kind, what string) (int, error) {
	if !in.check(pos, kind) {
		return pos, in.syntaxErr(pos, "expected %s, got '%s'", what, in.at(pos))
	}
	return pos + 1, nil
}

// located attaches the position of the token at pos to value-op errors
// that carry none.
func (in *Interpreter) located(err error, pos int) error {
	if err == nil {
		return nil
	}
	tok := in.at(pos)
	p := tok.Pos
	switch e := err.(type) {
	case *value.OpError:
		return &RuntimeError{Code: e.Code, Message: e.Message, Pos: &p}
	case *nn.ModelError:
		return &RuntimeError{Code: e.Code, Message: e.Message, Pos: &p}
	}
	return err
}

// findBlockEnd returns the index just past the '}' matching the '{' at
// open. The scan inspects token kinds only; string and comment contents
// were already consumed by the lexer.
func (in *Interpreter) findBlockEnd(open int) (int, error) {
	return in.findMatching(open, lexer.TokLBrace, lexer.TokRBrace)
}

func (in *Interpreter) findMatching(open int, openKind, closeKind lexer.Kind) (int, error) {
	if !in.check(open, openKind) {
		return open, in.syntaxErr(open, "expected '%s'", lexer.KindString(openKind))
	}
	depth := 0
	for pos := open; !in.atEnd(pos); pos++ {
		switch in.at(pos).Kind {
		case openKind:
			depth++
		case closeKind:
			depth--
			if depth == 0 {
				return pos + 1, nil
			}
		}
	}
	return open, in.syntaxErr(open, "unterminated '%s'", lexer.KindString(openKind))
}

// --- execution ---

// Execute runs a full token sequence as a statement list.
func (in *Interpreter) Execute(tokens []lexer.Token) error {
	saved := in.tokens
	in.tokens = tokens
	defer func() { in.tokens = saved }()

	pos := 0
	for !in.atEnd(pos) {
		next, ctl, err := in.execStatement(pos)
		if err != nil {
			return err
		}
		if ctl != nil {
			return in.syntaxErr(pos, "'%s' outside of its enclosing construct", ctlName(ctl.kind))
		}
		pos = next
	}
	return nil
}

// EvalExpression evaluates a single expression token sequence, for REPL use.
func (in *Interpreter) EvalExpression(tokens []lexer.Token) (value.Value, error) {
	saved := in.tokens
	in.tokens = tokens
	defer func() { in.tokens = saved }()

	v, pos, err := in.evalExpr(0)
	if err != nil {
		return nil, err
	}
	if in.check(pos, lexer.TokSemicolon) {
		pos++
	}
	if !in.atEnd(pos) {
		return nil, in.syntaxErr(pos, "unexpected '%s' after expression", in.at(pos))
	}
	return v, nil
}

func ctlName(k controlKind) string {
	switch k {
	case ctlBreak:
		return "break"
	case ctlContinue:
		return "continue"
	}
	return "return"
}

// execStatement executes the statement at pos and returns the cursor
// just past it, plus any non-local transfer in flight.
func (in *Interpreter) execStatement(pos int) (int, *control, error) {
	switch in.at(pos).Kind {
	case lexer.TokSemicolon:
		return pos + 1, nil, nil
	case lexer.TokVar:
		next, err := in.execVarDecl(pos, false)
		return next, nil, err
	case lexer.TokConst:
		next, err := in.execVarDecl(pos, true)
		return next, nil, err
	case lexer.TokTensor:
		next, err := in.execTensorDecl(pos)
		return next, nil, err
	case lexer.TokModel:
		next, err := in.execModelDecl(pos)
		return next, nil, err
	case lexer.TokFunction:
		next, err := in.execFunctionDecl(pos)
		return next, nil, err
	case lexer.TokIf:
		return in.execIf(pos)
	case lexer.TokWhile:
		return in.execWhile(pos)
	case lexer.TokFor:
		return in.execFor(pos)
	case lexer.TokLBrace:
		return in.execBlock(pos, in.env.Child("block"))
	case lexer.TokReturn:
		return in.execReturn(pos)
	case lexer.TokBreak:
		next, err := in.expect(pos+1, lexer.TokSemicolon, "';' after 'break'")
		if err != nil {
			return pos, nil, err
		}
		return next, &control{kind: ctlBreak}, nil
	case lexer.TokContinue:
		next, err := in.expect(pos+1, lexer.TokSemicolon, "';' after 'continue'")
		if err != nil {
			return pos, nil, err
		}
		return next, &control{kind: ctlContinue}, nil
	case lexer.TokThrow:
		next, err := in.execThrow(pos)
		return next, nil, err
	case lexer.TokTry:
		return in.execTry(pos)
	case lexer.TokImport:
		next, err := in.execImport(pos)
		return next, nil, err
	case lexer.TokSwitch:
		return pos, nil, in.syntaxErr(pos, "switch statements are not supported")
	default:
		next, err := in.execExprStatement(pos)
		return next, nil, err
	}
}

// execBlock runs `{ statements }` in the given environment. The current
// environment is restored on exit regardless of signals.
func (in *Interpreter) execBlock(open int, env *Env) (int, *control, error) {
	end, err := in.findBlockEnd(open)
	if err != nil {
		return open, nil, err
	}

	saved := in.env
	in.env = env
	defer func() { in.env = saved }()

	pos := open + 1
	for pos < end-1 {
		next, ctl, err := in.execStatement(pos)
		if err != nil {
			return end, nil, err
		}
		if ctl != nil {
			return end, ctl, nil
		}
		pos = next
	}
	return end, nil, nil
}

func (in *Interpreter) execVarDecl(pos int, isConst bool) (int, error) {
	kw := in.at(pos)
	pos++
	if !in.check(pos, lexer.TokIdent) {
		return pos, in.syntaxErr(pos, "expected identifier after '%s'", kw.Lexeme)
	}
	name := in.at(pos).Lexeme
	namePos := pos
	pos++

	var val value.Value = value.NewNil()
	if in.check(pos, lexer.TokAssign) {
		var err error
		val, pos, err = in.evalExpr(pos + 1)
		if err != nil {
			return pos, err
		}
	} else if isConst {
		return pos, in.syntaxErr(pos, "constant '%s' requires an initializer", name)
	}

	pos, err := in.expect(pos, lexer.TokSemicolon, "';' after declaration")
	if err != nil {
		return pos, err
	}
	if err := in.env.Define(name, value.Copy(val), isConst); err != nil {
		return pos, in.withPos(err, namePos)
	}
	return pos, nil
}

// execTensorDecl handles `tensor name = expr;` where the initializer is
// a tensor value or a (nested) numeric array literal.
func (in *Interpreter) execTensorDecl(pos int) (int, error) {
	pos++
	if !in.check(pos, lexer.TokIdent) {
		return pos, in.syntaxErr(pos, "expected identifier after 'tensor'")
	}
	name := in.at(pos).Lexeme
	namePos := pos
	pos++

	pos, err := in.expect(pos, lexer.TokAssign, "'=' in tensor declaration")
	if err != nil {
		return pos, err
	}
	exprPos := pos
	val, pos, err := in.evalExpr(pos)
	if err != nil {
		return pos, err
	}
	pos, err = in.expect(pos, lexer.TokSemicolon, "';' after declaration")
	if err != nil {
		return pos, err
	}

	t, convErr := tensorFromValue(val)
	if convErr != nil {
		return pos, in.located(convErr, exprPos)
	}
	if err := in.env.Define(name, value.NewTensorVal(t), false); err != nil {
		return pos, in.withPos(err, namePos)
	}
	return pos, nil
}

// execModelDecl handles `model name = [d0, d1, ...];` and forwards the
// layer sizes to the ML registry. Only syntax and token shape are
// validated here; model semantics live behind the registry.
func (in *Interpreter) execModelDecl(pos int) (int, error) {
	pos++
	if !in.check(pos, lexer.TokIdent) {
		return pos, in.syntaxErr(pos, "expected model name after 'model'")
	}
	name := in.at(pos).Lexeme
	namePos := pos
	pos++

	pos, err := in.expect(pos, lexer.TokAssign, "'=' in model declaration")
	if err != nil {
		return pos, err
	}
	exprPos := pos
	val, pos, err := in.evalExpr(pos)
	if err != nil {
		return pos, err
	}
	pos, err = in.expect(pos, lexer.TokSemicolon, "';' after declaration")
	if err != nil {
		return pos, err
	}

	arr, ok := val.(value.Array)
	if !ok {
		return pos, in.errAt(exprPos, diagnostics.EModel, "model architecture must be an array of layer sizes, got %s", value.TypeName(val))
	}
	sizes := make([]int, len(arr.Items))
	for i, it := range arr.Items {
		n, ok := it.(value.Number)
		if !ok || n.Value <= 0 || n.Value != float64(int(n.Value)) {
			return pos, in.errAt(exprPos, diagnostics.EModel, "layer sizes must be positive integers")
		}
		sizes[i] = int(n.Value)
	}
	if err := in.models.Create(name, sizes); err != nil {
		return pos, in.located(err, namePos)
	}
	// The model name also binds as a constant string so scripts can
	// write train(xor, ...) instead of train("xor", ...).
	if err := in.env.Define(name, value.NewString(name), true); err != nil {
		return pos, in.withPos(err, namePos)
	}
	return pos, nil
}

// execFunctionDecl handles `function name(params) { body }`. The body
// is not executed; the declaration captures the current environment and
// the body's token span for later calls.
func (in *Interpreter) execFunctionDecl(pos int) (int, error) {
	pos++
	if !in.check(pos, lexer.TokIdent) {
		return pos, in.syntaxErr(pos, "expected function name")
	}
	name := in.at(pos).Lexeme
	namePos := pos
	pos++

	params, pos, err := in.parseParams(pos)
	if err != nil {
		return pos, err
	}
	if !in.check(pos, lexer.TokLBrace) {
		return pos, in.syntaxErr(pos, "expected '{' to begin function body")
	}
	bodyStart := pos
	end, err := in.findBlockEnd(pos)
	if err != nil {
		return pos, err
	}

	fn := &userFunction{
		name:      name,
		params:    params,
		tokens:    in.tokens,
		bodyStart: bodyStart,
		closure:   in.env,
	}
	if err := in.env.Define(name, value.NewFunction(fn), false); err != nil {
		return end, in.withPos(err, namePos)
	}
	return end, nil
}

func (in *Interpreter) parseParams(pos int) ([]string, int, error) {
	pos, err := in.expect(pos, lexer.TokLParen, "'(' after function name")
	if err != nil {
		return nil, pos, err
	}
	var params []string
	if !in.check(pos, lexer.TokRParen) {
		for {
			if !in.check(pos, lexer.TokIdent) {
				return nil, pos, in.syntaxErr(pos, "expected parameter name")
			}
			params = append(params, in.at(pos).Lexeme)
			pos++
			if !in.check(pos, lexer.TokComma) {
				break
			}
			pos++
		}
	}
	pos, err = in.expect(pos, lexer.TokRParen, "')' after parameters")
	if err != nil {
		return nil, pos, err
	}
	return params, pos, nil
}

func (in *Interpreter) execIf(pos int) (int, *control, error) {
	pos++
	pos, err := in.expect(pos, lexer.TokLParen, "'(' after 'if'")
	if err != nil {
		return pos, nil, err
	}
	cond, pos, err := in.evalExpr(pos)
	if err != nil {
		return pos, nil, err
	}
	pos, err = in.expect(pos, lexer.TokRParen, "')' after condition")
	if err != nil {
		return pos, nil, err
	}
	if !in.check(pos, lexer.TokLBrace) {
		return pos, nil, in.syntaxErr(pos, "expected '{' after if condition")
	}

	var ctl *control
	end, err := in.findBlockEnd(pos)
	if err != nil {
		return pos, nil, err
	}
	if value.Truthy(cond) {
		end, ctl, err = in.execBlock(pos, in.env.Child("if"))
		if err != nil {
			return end, nil, err
		}
	}
	pos = end

	// else / else-if chain
	if in.check(pos, lexer.TokElse) {
		pos++
		if in.check(pos, lexer.TokIf) {
			if value.Truthy(cond) {
				// Taken branch already ran; skip the entire else-if chain.
				next, err := in.skipIfChain(pos)
				return next, ctl, err
			}
			return in.execIf(pos)
		}
		if !in.check(pos, lexer.TokLBrace) {
			return pos, nil, in.syntaxErr(pos, "expected '{' after 'else'")
		}
		elseEnd, err := in.findBlockEnd(pos)
		if err != nil {
			return pos, nil, err
		}
		if !value.Truthy(cond) {
			elseEnd, ctl, err = in.execBlock(pos, in.env.Child("else"))
			if err != nil {
				return elseEnd, nil, err
			}
		}
		pos = elseEnd
	}
	return pos, ctl, nil
}

// skipIfChain advances the cursor past an if/else-if/else chain without
// executing it. The condition span is traversed in skip mode so the
// cursor lands exactly where evaluation would.
func (in *Interpreter) skipIfChain(pos int) (int, error) {
	pos++ // 'if'
	pos, err := in.expect(pos, lexer.TokLParen, "'(' after 'if'")
	if err != nil {
		return pos, err
	}
	pos, err = in.skipExpr(pos)
	if err != nil {
		return pos, err
	}
	pos, err = in.expect(pos, lexer.TokRParen, "')' after condition")
	if err != nil {
		return pos, err
	}
	pos, err = in.findBlockEnd(pos)
	if err != nil {
		return pos, err
	}
	if in.check(pos, lexer.TokElse) {
		pos++
		if in.check(pos, lexer.TokIf) {
			return in.skipIfChain(pos)
		}
		return in.findBlockEnd(pos)
	}
	return pos, nil
}

func (in *Interpreter) execWhile(pos int) (int, *control, error) {
	pos++ // 'while'
	condOpen := pos
	pos, err := in.expect(pos, lexer.TokLParen, "'(' after 'while'")
	if err != nil {
		return pos, nil, err
	}
	condStart := pos

	// Locate the loop body once; each iteration resets the cursor to
	// condStart and re-enters the body span.
	condEnd, err := in.findMatching(condOpen, lexer.TokLParen, lexer.TokRParen)
	if err != nil {
		return pos, nil, err
	}
	if !in.check(condEnd, lexer.TokLBrace) {
		return condEnd, nil, in.syntaxErr(condEnd, "expected '{' after while condition")
	}
	bodyEnd, err := in.findBlockEnd(condEnd)
	if err != nil {
		return condEnd, nil, err
	}

	for {
		cond, _, err := in.evalExpr(condStart)
		if err != nil {
			return bodyEnd, nil, err
		}
		if !value.Truthy(cond) {
			break
		}
		_, ctl, err := in.execBlock(condEnd, in.env.Child("while"))
		if err != nil {
			return bodyEnd, nil, err
		}
		if ctl != nil {
			if ctl.kind == ctlBreak {
				break
			}
			if ctl.kind == ctlReturn {
				return bodyEnd, ctl, nil
			}
			// continue falls through to the next iteration
		}
	}
	return bodyEnd, nil, nil
}

func (in *Interpreter) execFor(pos int) (int, *control, error) {
	pos++ // 'for'
	pos, err := in.expect(pos, lexer.TokLParen, "'(' after 'for'")
	if err != nil {
		return pos, nil, err
	}

	loopEnv := in.env.Child("for")
	savedEnv := in.env
	in.env = loopEnv
	defer func() { in.env = savedEnv }()

	// init: declaration, expression statement, or empty
	switch in.at(pos).Kind {
	case lexer.TokSemicolon:
		pos++
	case lexer.TokVar:
		pos, err = in.execVarDecl(pos, false)
	default:
		pos, err = in.execExprStatement(pos)
	}
	if err != nil {
		return pos, nil, err
	}

	condStart := pos
	if !in.check(pos, lexer.TokSemicolon) {
		pos, err = in.skipExpr(pos)
		if err != nil {
			return pos, nil, err
		}
	}
	pos, err = in.expect(pos, lexer.TokSemicolon, "';' after for condition")
	if err != nil {
		return pos, nil, err
	}

	postStart := pos
	if !in.check(pos, lexer.TokRParen) {
		pos, err = in.skipExpr(pos)
		if err != nil {
			return pos, nil, err
		}
	}
	pos, err = in.expect(pos, lexer.TokRParen, "')' after for clauses")
	if err != nil {
		return pos, nil, err
	}
	if !in.check(pos, lexer.TokLBrace) {
		return pos, nil, in.syntaxErr(pos, "expected '{' after for clauses")
	}
	bodyStart := pos
	bodyEnd, err := in.findBlockEnd(bodyStart)
	if err != nil {
		return pos, nil, err
	}

	for {
		if !in.check(condStart, lexer.TokSemicolon) {
			cond, _, err := in.evalExpr(condStart)
			if err != nil {
				return bodyEnd, nil, err
			}
			if !value.Truthy(cond) {
				break
			}
		}
		_, ctl, err := in.execBlock(bodyStart, loopEnv.Child("for-body"))
		if err != nil {
			return bodyEnd, nil, err
		}
		if ctl != nil {
			if ctl.kind == ctlBreak {
				break
			}
			if ctl.kind == ctlReturn {
				return bodyEnd, ctl, nil
			}
		}
		if !in.check(postStart, lexer.TokRParen) {
			if _, _, err := in.evalExpr(postStart); err != nil {
				return bodyEnd, nil, err
			}
		}
	}
	return bodyEnd, nil, nil
}

func (in *Interpreter) execReturn(pos int) (int, *control, error) {
	pos++ // 'return'
	var val value.Value = value.NewNil()
	if !in.check(pos, lexer.TokSemicolon) {
		var err error
		val, pos, err = in.evalExpr(pos)
		if err != nil {
			return pos, nil, err
		}
	}
	pos, err := in.expect(pos, lexer.TokSemicolon, "';' after return value")
	if err != nil {
		return pos, nil, err
	}
	return pos, &control{kind: ctlReturn, val: val}, nil
}

func (in *Interpreter) execThrow(pos int) (int, error) {
	throwPos := pos
	pos++ // 'throw'
	val, pos, err := in.evalExpr(pos)
	if err != nil {
		return pos, err
	}
	pos, err = in.expect(pos, lexer.TokSemicolon, "';' after throw value")
	if err != nil {
		return pos, err
	}
	tok := in.at(throwPos)
	p := tok.Pos
	return pos, &RuntimeError{
		Code:    diagnostics.EThrow,
		Message: value.Stringify(val),
		Pos:     &p,
		Thrown:  val,
	}
}

// execTry handles try/catch/finally. Runtime errors raised in the try
// block transfer control to catch with the error value bound to its
// parameter; finally always runs and re-raises any in-flight signal
// unless it raises one of its own.
func (in *Interpreter) execTry(pos int) (int, *control, error) {
	pos++ // 'try'
	if !in.check(pos, lexer.TokLBrace) {
		return pos, nil, in.syntaxErr(pos, "expected '{' after 'try'")
	}
	tryStart := pos
	pos, err := in.findBlockEnd(pos)
	if err != nil {
		return pos, nil, err
	}

	// Locate catch and finally spans before running anything, so the
	// statement's full extent is known even when the try body fails.
	catchStart, catchParam := -1, ""
	if in.check(pos, lexer.TokCatch) {
		pos++
		pos, err = in.expect(pos, lexer.TokLParen, "'(' after 'catch'")
		if err != nil {
			return pos, nil, err
		}
		if !in.check(pos, lexer.TokIdent) {
			return pos, nil, in.syntaxErr(pos, "expected catch parameter name")
		}
		catchParam = in.at(pos).Lexeme
		pos++
		pos, err = in.expect(pos, lexer.TokRParen, "')' after catch parameter")
		if err != nil {
			return pos, nil, err
		}
		if !in.check(pos, lexer.TokLBrace) {
			return pos, nil, in.syntaxErr(pos, "expected '{' after catch clause")
		}
		catchStart = pos
		pos, err = in.findBlockEnd(pos)
		if err != nil {
			return pos, nil, err
		}
	}

	finallyStart := -1
	if in.check(pos, lexer.TokFinally) {
		pos++
		if !in.check(pos, lexer.TokLBrace) {
			return pos, nil, in.syntaxErr(pos, "expected '{' after 'finally'")
		}
		finallyStart = pos
		pos, err = in.findBlockEnd(pos)
		if err != nil {
			return pos, nil, err
		}
	}
	if catchStart == -1 && finallyStart == -1 {
		return pos, nil, in.syntaxErr(tryStart, "'try' requires a 'catch' or 'finally' clause")
	}
	stmtEnd := pos

	_, ctl, tryErr := in.execBlock(tryStart, in.env.Child("try"))

	if tryErr != nil && catchStart != -1 {
		rtErr, catchable := tryErr.(*RuntimeError)
		if catchable {
			catchEnv := in.env.Child("catch")
			errVal := rtErr.Thrown
			if errVal == nil {
				errVal = value.NewString(rtErr.Message)
			}
			if defErr := catchEnv.Define(catchParam, errVal, false); defErr != nil {
				return stmtEnd, nil, defErr
			}
			_, ctl, tryErr = in.execBlock(catchStart, catchEnv)
		}
	}

	if finallyStart != -1 {
		_, finCtl, finErr := in.execBlock(finallyStart, in.env.Child("finally"))
		// A signal raised by finally replaces whatever was in flight.
		if finErr != nil {
			return stmtEnd, nil, finErr
		}
		if finCtl != nil {
			return stmtEnd, finCtl, nil
		}
	}

	return stmtEnd, ctl, tryErr
}

func (in *Interpreter) execImport(pos int) (int, error) {
	importPos := pos
	pos++ // 'import'
	if !in.check(pos, lexer.TokString) {
		return pos, in.syntaxErr(pos, "expected module path string after 'import'")
	}
	path := in.at(pos).Lexeme
	pos++
	pos, err := in.expect(pos, lexer.TokSemicolon, "';' after import path")
	if err != nil {
		return pos, err
	}

	source, err := in.imports(path)
	if err != nil {
		return pos, in.errAt(importPos, diagnostics.EIO, "cannot import '%s': %v", path, err)
	}
	tokens, err := lexer.Tokenize(source, path)
	if err != nil {
		return pos, err
	}
	if err := in.Execute(tokens); err != nil {
		return pos, err
	}
	return pos, nil
}

func (in *Interpreter) execExprStatement(pos int) (int, error) {
	_, pos, err := in.evalExpr(pos)
	if err != nil {
		return pos, err
	}
	return in.expect(pos, lexer.TokSemicolon, "';' after expression")
}

// withPos attaches a token position to a RuntimeError that carries none.
func (in *Interpreter) withPos(err error, pos int) error {
	if rtErr, ok := err.(*RuntimeError); ok && rtErr.Pos == nil {
		tok := in.at(pos)
		p := tok.Pos
		rtErr.Pos = &p
	}
	return in.located(err, pos)
}

// --- user functions ---

// userFunction is a user-defined closure: a parameter list, the token
// span of its body, and the environment it was declared in.
type userFunction struct {
	name      string
	params    []string
	tokens    []lexer.Token
	bodyStart int
	closure   *Env
}

func (f *userFunction) Name() string { return f.name }
func (f *userFunction) Arity() int   { return len(f.params) }

// callFunction invokes a callable value. Native functions execute
// directly; user functions run their body span in a fresh child of the
// closure environment, with lexical rather than dynamic scoping.
func (in *Interpreter) callFunction(fn value.Function, args []value.Value, callPos int) (value.Value, error) {
	switch impl := fn.Impl.(type) {
	case *value.Native:
		if impl.NArgs >= 0 && len(args) != impl.NArgs {
			return nil, in.errAt(callPos, diagnostics.EArity,
				"%s() expects %d argument(s), got %d", impl.FnName, impl.NArgs, len(args))
		}
		out, err := impl.Fn(args)
		if err != nil {
			return nil, in.located(err, callPos)
		}
		return out, nil

	case *userFunction:
		if len(args) != len(impl.params) {
			return nil, in.errAt(callPos, diagnostics.EArity,
				"%s() expects %d argument(s), got %d", impl.name, len(impl.params), len(args))
		}
		frame := impl.closure.Child(impl.name)
		for i, param := range impl.params {
			if err := frame.Define(param, value.Copy(args[i]), false); err != nil {
				return nil, err
			}
		}

		savedTokens := in.tokens
		in.tokens = impl.tokens
		_, ctl, err := in.execBlock(impl.bodyStart, frame)
		in.tokens = savedTokens

		if err != nil {
			return nil, err
		}
		if ctl != nil {
			if ctl.kind == ctlReturn {
				return ctl.val, nil
			}
			return nil, in.errAt(callPos, diagnostics.ESyntax,
				"'%s' outside of a loop", ctlName(ctl.kind))
		}
		return value.NewNil(), nil

	default:
		return nil, in.errAt(callPos, diagnostics.EType, "value is not callable")
	}
}

// tensorFromValue converts a tensor value or nested numeric array into
// a Tensor.
func tensorFromValue(v value.Value) (*value.Tensor, error) {
	if tv, ok := v.(value.TensorVal); ok {
		return tv.T, nil
	}
	arr, ok := v.(value.Array)
	if !ok {
		return nil, &value.OpError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("expected tensor or numeric array, got %s", value.TypeName(v)),
		}
	}

	// 1-D vector of numbers
	if len(arr.Items) > 0 {
		if _, isNum := arr.Items[0].(value.Number); isNum {
			data := make([]float64, len(arr.Items))
			for i, it := range arr.Items {
				n, ok := it.(value.Number)
				if !ok {
					return nil, &value.OpError{Code: diagnostics.EType, Message: "tensor elements must be numbers"}
				}
				data[i] = n.Value
			}
			return value.NewTensorData([]int{len(data)}, data)
		}
	}

	// 2-D matrix of number rows
	rows := make([][]float64, len(arr.Items))
	for i, it := range arr.Items {
		rowArr, ok := it.(value.Array)
		if !ok {
			return nil, &value.OpError{Code: diagnostics.EType, Message: "tensor rows must be arrays of numbers"}
		}
		row := make([]float64, len(rowArr.Items))
		for j, el := range rowArr.Items {
			n, ok := el.(value.Number)
			if !ok {
				return nil, &value.OpError{Code: diagnostics.EType, Message: "tensor elements must be numbers"}
			}
			row[j] = n.Value
		}
		rows[i] = row
	}
	return value.TensorFromRows(rows)
}
