package lexer

import (
	"strings"
	"testing"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
)

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizeKinds(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []Kind
	}{
		{"declaration", "var x = 1;", []Kind{TokVar, TokIdent, TokAssign, TokNumber, TokSemicolon, TokEOF}},
		{"const", "const pi = 3.14;", []Kind{TokConst, TokIdent, TokAssign, TokNumber, TokSemicolon, TokEOF}},
		{"arithmetic", "a + b * c", []Kind{TokIdent, TokPlus, TokIdent, TokStar, TokIdent, TokEOF}},
		{"power not star", "a ** b * c", []Kind{TokIdent, TokPower, TokIdent, TokStar, TokIdent, TokEOF}},
		{"matmul", "a @ b", []Kind{TokIdent, TokMatMul, TokIdent, TokEOF}},
		{"compound assign", "x += 1; y **= 2;", []Kind{TokIdent, TokPlusAssign, TokNumber, TokSemicolon, TokIdent, TokPowerAssign, TokNumber, TokSemicolon, TokEOF}},
		{"comparisons", "a <= b >= c != d == e", []Kind{TokIdent, TokLtEq, TokIdent, TokGtEq, TokIdent, TokBangEq, TokIdent, TokEqEq, TokIdent, TokEOF}},
		{"shift vs less", "a << b < c", []Kind{TokIdent, TokShl, TokIdent, TokLt, TokIdent, TokEOF}},
		{"logical", "a && b || !c", []Kind{TokIdent, TokAndAnd, TokIdent, TokOrOr, TokBang, TokIdent, TokEOF}},
		{"increment", "i++ + ++j", []Kind{TokIdent, TokPlusPlus, TokPlus, TokPlusPlus, TokIdent, TokEOF}},
		{"grouping", "([{}])", []Kind{TokLParen, TokLBracket, TokLBrace, TokRBrace, TokRBracket, TokRParen, TokEOF}},
		{"ternary", "a ? b : c", []Kind{TokIdent, TokQuestion, TokIdent, TokColon, TokIdent, TokEOF}},
		{"arrow and scope", "a -> b :: c", []Kind{TokIdent, TokArrow, TokIdent, TokColonColon, TokIdent, TokEOF}},
		{"ml keywords", "model m tensor t train predict", []Kind{TokModel, TokIdent, TokTensor, TokIdent, TokTrain, TokPredict, TokEOF}},
		{"control keywords", "if else while for return break continue", []Kind{TokIf, TokElse, TokWhile, TokFor, TokReturn, TokBreak, TokContinue, TokEOF}},
		{"try keywords", "try catch finally throw", []Kind{TokTry, TokCatch, TokFinally, TokThrow, TokEOF}},
		{"literal keywords", "true false nil", []Kind{TokTrue, TokFalse, TokNil, TokEOF}},
		{"empty", "", []Kind{TokEOF}},
		{"only comments", "// line\n/* block */", []Kind{TokEOF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.source, "test.nx")
			if err != nil {
				t.Fatalf("Tokenize(%q) failed: %v", tt.source, err)
			}
			got := kinds(tokens)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d tokens %v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d: got %s, want %s", i, KindString(got[i]), KindString(tt.want[i]))
				}
			}
		})
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		source string
		want   float64
	}{
		{"0", 0},
		{"42", 42},
		{"3.14", 3.14},
		{"1e3", 1000},
		{"2.5e-2", 0.025},
		{"1E+2", 100},
		{"0xff", 255},
		{"0xFF", 255},
		{"0b1010", 10},
		{"0o17", 15},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			tokens, err := Tokenize(tt.source, "test.nx")
			if err != nil {
				t.Fatalf("Tokenize failed: %v", err)
			}
			if tokens[0].Kind != TokNumber {
				t.Fatalf("got %s, want number", tokens[0])
			}
			got, err := ParseNumber(tokens[0])
			if err != nil {
				t.Fatalf("ParseNumber failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}
}

func TestNumberEdgeCases(t *testing.T) {
	// a dot not followed by a digit is a member access, not a fraction
	tokens, err := Tokenize("1.foo", "test.nx")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	want := []Kind{TokNumber, TokDot, TokIdent, TokEOF}
	got := kinds(tokens)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s, want %s", i, KindString(got[i]), KindString(want[i]))
		}
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`"hello"`, "hello"},
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"quote\"inside"`, `quote"inside`},
		{`"back\\slash"`, `back\slash`},
		{`"A"`, "A"},
		{`"unicode: héllo"`, "unicode: héllo"},
		{`""`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			tokens, err := Tokenize(tt.source, "test.nx")
			if err != nil {
				t.Fatalf("Tokenize failed: %v", err)
			}
			if tokens[0].Kind != TokString {
				t.Fatalf("got %s, want string", tokens[0])
			}
			if tokens[0].Lexeme != tt.want {
				t.Errorf("got %q, want %q", tokens[0].Lexeme, tt.want)
			}
		})
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unterminated string", `var s = "abc`},
		{"unterminated block comment", "/* never closed"},
		{"bad escape", `"\q"`},
		{"stray character", "var x = $;"},
		{"hex without digits", "0x"},
		{"trailing alpha", "12abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.source, "test.nx")
			if err == nil {
				t.Fatalf("Tokenize(%q) should have failed", tt.source)
			}
			lexErr, ok := err.(*LexError)
			if !ok {
				t.Fatalf("got %T, want *LexError", err)
			}
			if lexErr.Diag.Code != diagnostics.ELex {
				t.Errorf("got code %s, want %s", lexErr.Diag.Code, diagnostics.ELex)
			}
		})
	}
}

func TestUnterminatedStringPosition(t *testing.T) {
	// the error points at the opening quote, not at EOF
	_, err := Tokenize("var x = 1;\nvar s = \"oops", "test.nx")
	if err == nil {
		t.Fatal("expected a lex error")
	}
	lexErr, ok := err.(*LexError)
	if !ok {
		t.Fatalf("got %T, want *LexError", err)
	}
	pos := lexErr.Diag.Pos
	if pos == nil {
		t.Fatal("diagnostic has no position")
	}
	if pos.Line != 2 || pos.Col != 9 {
		t.Errorf("got %d:%d, want 2:9", pos.Line, pos.Col)
	}
}

func TestPositions(t *testing.T) {
	tokens, err := Tokenize("var x\n  = 42;", "test.nx")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	wantPos := []struct{ line, col int }{
		{1, 1}, // var
		{1, 5}, // x
		{2, 3}, // =
		{2, 5}, // 42
		{2, 7}, // ;
	}
	for i, want := range wantPos {
		if tokens[i].Pos.Line != want.line || tokens[i].Pos.Col != want.col {
			t.Errorf("token %d (%s): got %d:%d, want %d:%d",
				i, tokens[i], tokens[i].Pos.Line, tokens[i].Pos.Col, want.line, want.col)
		}
	}
	if tokens[0].Pos.File != "test.nx" {
		t.Errorf("got file %q, want test.nx", tokens[0].Pos.File)
	}
}

func TestCommentsDoNotBreakPositions(t *testing.T) {
	tokens, err := Tokenize("// comment\n/* multi\nline */ var", "test.nx")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if tokens[0].Kind != TokVar {
		t.Fatalf("got %s, want var", tokens[0])
	}
	if tokens[0].Pos.Line != 3 || tokens[0].Pos.Col != 9 {
		t.Errorf("got %d:%d, want 3:9", tokens[0].Pos.Line, tokens[0].Pos.Col)
	}
}

func TestKeywordsAreComplete(t *testing.T) {
	for word, kind := range keywords {
		tokens, err := Tokenize(word, "test.nx")
		if err != nil {
			t.Fatalf("Tokenize(%q) failed: %v", word, err)
		}
		if tokens[0].Kind != kind {
			t.Errorf("%q: got %s, want %s", word, KindString(tokens[0].Kind), KindString(kind))
		}
	}
	// and identifiers that merely contain keywords stay identifiers
	for _, word := range []string{"variable", "iffy", "modeling", "trainer"} {
		tokens, err := Tokenize(word, "test.nx")
		if err != nil {
			t.Fatalf("Tokenize(%q) failed: %v", word, err)
		}
		if tokens[0].Kind != TokIdent {
			t.Errorf("%q: got %s, want identifier", word, KindString(tokens[0].Kind))
		}
	}
}

func TestLongInput(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 1000; i++ {
		b.WriteString("var x = 1 + 2;\n")
	}
	tokens, err := Tokenize(b.String(), "big.nx")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if want := 1000*7 + 1; len(tokens) != want {
		t.Errorf("got %d tokens, want %d", len(tokens), want)
	}
}
