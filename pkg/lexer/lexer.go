// Package lexer implements the NEXUS language tokenizer.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
)

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) position() diagnostics.Position {
	return diagnostics.Position{File: s.filename, Line: s.line, Col: s.col, Offset: s.pos}
}

func (s *scanner) makeToken(kind Kind, lexeme string, pos diagnostics.Position) Token {
	return Token{Kind: kind, Lexeme: lexeme, Pos: pos}
}

func (s *scanner) lexError(pos diagnostics.Position, msg string) error {
	diag := diagnostics.MakeDiag(diagnostics.ELex, msg, &pos, "")
	return &LexError{Diag: diag}
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isBinaryDigit(ch byte) bool {
	return ch == '0' || ch == '1'
}

func isOctalDigit(ch byte) bool {
	return ch >= '0' && ch <= '7'
}

// skipWhitespaceAndComments discards whitespace, // line comments and
// /* */ block comments. An unterminated block comment is a lex error
// reported at the comment's opening position.
func (s *scanner) skipWhitespaceAndComments() error {
	for !s.atEnd() {
		ch := s.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			s.advance()
		case ch == '/' && s.peekAt(1) == '/':
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		case ch == '/' && s.peekAt(1) == '*':
			start := s.position()
			s.advance()
			s.advance()
			closed := false
			for !s.atEnd() {
				if s.peek() == '*' && s.peekAt(1) == '/' {
					s.advance()
					s.advance()
					closed = true
					break
				}
				s.advance()
			}
			if !closed {
				return s.lexError(start, "unterminated block comment")
			}
		default:
			return nil
		}
	}
	return nil
}

func (s *scanner) scanString() (Token, error) {
	start := s.position()
	s.advance() // consume opening "

	var buf strings.Builder
	for !s.atEnd() {
		ch := s.peek()
		if ch == '"' {
			s.advance() // consume closing "
			return s.makeToken(TokString, buf.String(), start), nil
		}
		if ch == '\\' {
			s.advance() // consume backslash
			if s.atEnd() {
				return Token{}, s.lexError(start, "unterminated string escape")
			}
			esc := s.advance()
			switch esc {
			case '"':
				buf.WriteByte('"')
			case '\\':
				buf.WriteByte('\\')
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case '/':
				buf.WriteByte('/')
			case '0':
				buf.WriteByte(0)
			case 'u':
				// \uXXXX
				if s.pos+4 > len(s.source) {
					return Token{}, s.lexError(start, "incomplete unicode escape")
				}
				hexStr := s.source[s.pos : s.pos+4]
				codepoint, err := strconv.ParseUint(hexStr, 16, 32)
				if err != nil {
					return Token{}, s.lexError(start, fmt.Sprintf("invalid unicode escape: \\u%s", hexStr))
				}
				buf.WriteRune(rune(codepoint))
				for i := 0; i < 4; i++ {
					s.advance()
				}
			default:
				return Token{}, s.lexError(start, fmt.Sprintf("invalid escape character: \\%c", esc))
			}
		} else {
			// Handle multi-byte UTF-8 characters
			r, size := utf8.DecodeRuneInString(s.source[s.pos:])
			if r == utf8.RuneError && size == 1 {
				return Token{}, s.lexError(start, "invalid UTF-8 character in string")
			}
			buf.WriteRune(r)
			for i := 0; i < size; i++ {
				s.advance()
			}
		}
	}
	return Token{}, s.lexError(start, "unterminated string literal")
}

// scanNumber handles decimal literals with optional fraction and exponent,
// plus prefixed hex (0x), binary (0b) and octal (0o) integer forms.
func (s *scanner) scanNumber() (Token, error) {
	start := s.position()
	startPos := s.pos

	if s.peek() == '0' && (s.peekAt(1) == 'x' || s.peekAt(1) == 'X') {
		return s.scanPrefixed(start, startPos, "hexadecimal", isHexDigit)
	}
	if s.peek() == '0' && (s.peekAt(1) == 'b' || s.peekAt(1) == 'B') {
		return s.scanPrefixed(start, startPos, "binary", isBinaryDigit)
	}
	if s.peek() == '0' && (s.peekAt(1) == 'o' || s.peekAt(1) == 'O') {
		return s.scanPrefixed(start, startPos, "octal", isOctalDigit)
	}

	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}

	// Optional fractional part: only when a digit follows the dot, so that
	// `t.transpose()` is not misread as a float.
	if !s.atEnd() && s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance() // consume '.'
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	// Optional exponent
	if !s.atEnd() && (s.peek() == 'e' || s.peek() == 'E') {
		next := s.peekAt(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(s.peekAt(2))) {
			s.advance() // consume e/E
			if s.peek() == '+' || s.peek() == '-' {
				s.advance()
			}
			for !s.atEnd() && isDigit(s.peek()) {
				s.advance()
			}
		}
	}

	if !s.atEnd() && isAlpha(s.peek()) {
		return Token{}, s.lexError(start, fmt.Sprintf("invalid character '%c' in numeric literal", s.peek()))
	}

	return s.makeToken(TokNumber, s.source[startPos:s.pos], start), nil
}

func (s *scanner) scanPrefixed(start diagnostics.Position, startPos int, base string, valid func(byte) bool) (Token, error) {
	s.advance() // consume '0'
	s.advance() // consume base marker
	digits := 0
	for !s.atEnd() && valid(s.peek()) {
		s.advance()
		digits++
	}
	if digits == 0 {
		return Token{}, s.lexError(start, fmt.Sprintf("%s literal has no digits", base))
	}
	if !s.atEnd() && isAlphaNumeric(s.peek()) {
		return Token{}, s.lexError(start, fmt.Sprintf("invalid digit '%c' in %s literal", s.peek(), base))
	}
	return s.makeToken(TokNumber, s.source[startPos:s.pos], start), nil
}

func (s *scanner) scanIdentOrKeyword() Token {
	start := s.position()
	startPos := s.pos

	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := s.source[startPos:s.pos]
	if kind, ok := keywords[text]; ok {
		return s.makeToken(kind, text, start)
	}
	return s.makeToken(TokIdent, text, start)
}

// operator spellings in longest-first match order
var operators = []struct {
	text string
	kind Kind
}{
	{"**=", TokPowerAssign},
	{"**", TokPower},
	{"==", TokEqEq},
	{"!=", TokBangEq},
	{"<=", TokLtEq},
	{">=", TokGtEq},
	{"<<", TokShl},
	{">>", TokShr},
	{"&&", TokAndAnd},
	{"||", TokOrOr},
	{"++", TokPlusPlus},
	{"--", TokMinusMinus},
	{"+=", TokPlusAssign},
	{"-=", TokMinusAssign},
	{"*=", TokStarAssign},
	{"/=", TokSlashAssign},
	{"%=", TokPercentAssign},
	{"->", TokArrow},
	{"::", TokColonColon},
	{"+", TokPlus},
	{"-", TokMinus},
	{"*", TokStar},
	{"/", TokSlash},
	{"%", TokPercent},
	{"=", TokAssign},
	{"<", TokLt},
	{">", TokGt},
	{"!", TokBang},
	{"&", TokAmp},
	{"|", TokPipe},
	{"^", TokCaret},
	{"~", TokTilde},
	{"@", TokMatMul},
	{"?", TokQuestion},
	{":", TokColon},
	{";", TokSemicolon},
	{",", TokComma},
	{".", TokDot},
	{"(", TokLParen},
	{")", TokRParen},
	{"{", TokLBrace},
	{"}", TokRBrace},
	{"[", TokLBracket},
	{"]", TokRBracket},
}

func (s *scanner) scanOperator() (Token, bool) {
	start := s.position()
	rest := s.source[s.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			for i := 0; i < len(op.text); i++ {
				s.advance()
			}
			return s.makeToken(op.kind, op.text, start), true
		}
	}
	return Token{}, false
}

func (s *scanner) nextToken() (Token, error) {
	if err := s.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}

	if s.atEnd() {
		return s.makeToken(TokEOF, "", s.position()), nil
	}

	ch := s.peek()

	if isDigit(ch) {
		return s.scanNumber()
	}
	if ch == '"' {
		return s.scanString()
	}
	if isAlpha(ch) {
		return s.scanIdentOrKeyword(), nil
	}
	if tok, ok := s.scanOperator(); ok {
		return tok, nil
	}

	pos := s.position()
	s.advance()
	return Token{}, s.lexError(pos, fmt.Sprintf("unexpected character '%c'", ch))
}

// Tokenize breaks source code into a slice of tokens terminated by EOF.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			break
		}
	}

	return tokens, nil
}

// ParseNumber converts a TokNumber lexeme to its float64 value.
func ParseNumber(tok Token) (float64, error) {
	text := tok.Lexeme
	if len(text) > 2 && text[0] == '0' {
		switch text[1] {
		case 'x', 'X':
			n, err := strconv.ParseUint(text[2:], 16, 64)
			return float64(n), err
		case 'b', 'B':
			n, err := strconv.ParseUint(text[2:], 2, 64)
			return float64(n), err
		case 'o', 'O':
			n, err := strconv.ParseUint(text[2:], 8, 64)
			return float64(n), err
		}
	}
	return strconv.ParseFloat(text, 64)
}
