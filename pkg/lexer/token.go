package lexer

import "github.com/MatN23/Nexus-Lang/pkg/diagnostics"

// Kind identifies the type of a lexer token.
type Kind int

const (
	// Literals
	TokNumber Kind = iota
	TokString
	TokIdent

	// Keywords - control flow
	TokVar
	TokConst
	TokFunction
	TokClass
	TokIf
	TokElse
	TokWhile
	TokFor
	TokReturn
	TokBreak
	TokContinue
	TokSwitch
	TokCase
	TokDefault
	TokTry
	TokCatch
	TokFinally
	TokThrow
	TokTrue
	TokFalse
	TokNil

	// Keywords - modules
	TokImport
	TokExport
	TokFrom
	TokAs

	// Keywords - ML domain
	TokTensor
	TokModel
	TokTrain
	TokPredict
	TokLayer
	TokOptimizer
	TokLoss
	TokDataset
	TokBatch
	TokEpoch

	// Arithmetic operators
	TokPlus    // +
	TokMinus   // -
	TokStar    // *
	TokSlash   // /
	TokPercent // %
	TokPower   // **
	TokMatMul  // @

	// Assignment operators
	TokAssign        // =
	TokPlusAssign    // +=
	TokMinusAssign   // -=
	TokStarAssign    // *=
	TokSlashAssign   // /=
	TokPercentAssign // %=
	TokPowerAssign   // **=

	// Comparison operators
	TokEqEq   // ==
	TokBangEq // !=
	TokLt     // <
	TokGt     // >
	TokLtEq   // <=
	TokGtEq   // >=

	// Logical operators
	TokAndAnd // &&
	TokOrOr   // ||
	TokBang   // !

	// Bitwise operators
	TokAmp   // &
	TokPipe  // |
	TokCaret // ^
	TokTilde // ~
	TokShl   // <<
	TokShr   // >>

	// Increment/decrement
	TokPlusPlus   // ++
	TokMinusMinus // --

	// Ternary
	TokQuestion // ?
	TokColon    // :

	// Delimiters
	TokSemicolon  // ;
	TokComma      // ,
	TokDot        // .
	TokArrow      // ->
	TokColonColon // ::
	TokLParen     // (
	TokRParen     // )
	TokLBrace     // {
	TokRBrace     // }
	TokLBracket   // [
	TokRBracket   // ]

	// Special
	TokEOF
)

// Token represents a single lexer token.
type Token struct {
	Kind   Kind
	Lexeme string
	Pos    diagnostics.Position
}

var keywords = map[string]Kind{
	"var":       TokVar,
	"const":     TokConst,
	"function":  TokFunction,
	"class":     TokClass,
	"if":        TokIf,
	"else":      TokElse,
	"while":     TokWhile,
	"for":       TokFor,
	"return":    TokReturn,
	"break":     TokBreak,
	"continue":  TokContinue,
	"switch":    TokSwitch,
	"case":      TokCase,
	"default":   TokDefault,
	"try":       TokTry,
	"catch":     TokCatch,
	"finally":   TokFinally,
	"throw":     TokThrow,
	"true":      TokTrue,
	"false":     TokFalse,
	"nil":       TokNil,
	"import":    TokImport,
	"export":    TokExport,
	"from":      TokFrom,
	"as":        TokAs,
	"tensor":    TokTensor,
	"model":     TokModel,
	"train":     TokTrain,
	"predict":   TokPredict,
	"layer":     TokLayer,
	"optimizer": TokOptimizer,
	"loss":      TokLoss,
	"dataset":   TokDataset,
	"batch":     TokBatch,
	"epoch":     TokEpoch,
}

var kindNames = map[Kind]string{
	TokNumber: "number", TokString: "string", TokIdent: "identifier",
	TokVar: "var", TokConst: "const", TokFunction: "function", TokClass: "class",
	TokIf: "if", TokElse: "else", TokWhile: "while", TokFor: "for",
	TokReturn: "return", TokBreak: "break", TokContinue: "continue",
	TokSwitch: "switch", TokCase: "case", TokDefault: "default",
	TokTry: "try", TokCatch: "catch", TokFinally: "finally", TokThrow: "throw",
	TokTrue: "true", TokFalse: "false", TokNil: "nil",
	TokImport: "import", TokExport: "export", TokFrom: "from", TokAs: "as",
	TokTensor: "tensor", TokModel: "model", TokTrain: "train", TokPredict: "predict",
	TokLayer: "layer", TokOptimizer: "optimizer", TokLoss: "loss",
	TokDataset: "dataset", TokBatch: "batch", TokEpoch: "epoch",
	TokPlus: "+", TokMinus: "-", TokStar: "*", TokSlash: "/", TokPercent: "%",
	TokPower: "**", TokMatMul: "@",
	TokAssign: "=", TokPlusAssign: "+=", TokMinusAssign: "-=",
	TokStarAssign: "*=", TokSlashAssign: "/=", TokPercentAssign: "%=",
	TokPowerAssign: "**=",
	TokEqEq: "==", TokBangEq: "!=", TokLt: "<", TokGt: ">", TokLtEq: "<=", TokGtEq: ">=",
	TokAndAnd: "&&", TokOrOr: "||", TokBang: "!",
	TokAmp: "&", TokPipe: "|", TokCaret: "^", TokTilde: "~", TokShl: "<<", TokShr: ">>",
	TokPlusPlus: "++", TokMinusMinus: "--",
	TokQuestion: "?", TokColon: ":",
	TokSemicolon: ";", TokComma: ",", TokDot: ".", TokArrow: "->", TokColonColon: "::",
	TokLParen: "(", TokRParen: ")", TokLBrace: "{", TokRBrace: "}",
	TokLBracket: "[", TokRBracket: "]",
	TokEOF: "end of input",
}

// KindString returns a printable name for a token kind, for error messages.
func KindString(k Kind) string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

func (t Token) String() string {
	return KindString(t.Kind)
}

// IsKeyword reports whether the token kind is a reserved word.
func (t Token) IsKeyword() bool {
	return t.Kind >= TokVar && t.Kind <= TokEpoch
}

// IsLiteral reports whether the token is a literal or literal keyword.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case TokNumber, TokString, TokTrue, TokFalse, TokNil:
		return true
	}
	return false
}

// IsAssignmentOp reports whether k is `=` or a compound assignment operator.
func IsAssignmentOp(k Kind) bool {
	switch k {
	case TokAssign, TokPlusAssign, TokMinusAssign, TokStarAssign,
		TokSlashAssign, TokPercentAssign, TokPowerAssign:
		return true
	}
	return false
}

// IsComparisonOp reports whether k is an ordering comparison operator.
func IsComparisonOp(k Kind) bool {
	switch k {
	case TokLt, TokGt, TokLtEq, TokGtEq:
		return true
	}
	return false
}

// IsEqualityOp reports whether k is `==` or `!=`.
func IsEqualityOp(k Kind) bool {
	return k == TokEqEq || k == TokBangEq
}

// IsArithmeticOp reports whether k is a binary arithmetic operator.
func IsArithmeticOp(k Kind) bool {
	switch k {
	case TokPlus, TokMinus, TokStar, TokSlash, TokPercent, TokPower, TokMatMul:
		return true
	}
	return false
}

// IsLogicalOp reports whether k is `&&`, `||` or `!`.
func IsLogicalOp(k Kind) bool {
	return k == TokAndAnd || k == TokOrOr || k == TokBang
}

// IsUnaryOp reports whether k may start a unary expression.
func IsUnaryOp(k Kind) bool {
	switch k {
	case TokMinus, TokBang, TokTilde, TokPlusPlus, TokMinusMinus:
		return true
	}
	return false
}

// Operator precedence tiers, low to high. Zero means "not a binary operator".
const (
	PrecAssign = iota + 1
	PrecTernary
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecAdditive
	PrecMultiplicative
	PrecPower
	PrecUnary
	PrecCall
)

// Precedence returns the binding strength of an operator kind.
func Precedence(k Kind) int {
	switch {
	case IsAssignmentOp(k):
		return PrecAssign
	case k == TokQuestion:
		return PrecTernary
	case k == TokOrOr:
		return PrecOr
	case k == TokAndAnd:
		return PrecAnd
	case IsEqualityOp(k):
		return PrecEquality
	case IsComparisonOp(k):
		return PrecComparison
	case k == TokPlus || k == TokMinus:
		return PrecAdditive
	case k == TokStar || k == TokSlash || k == TokPercent || k == TokMatMul:
		return PrecMultiplicative
	case k == TokPower:
		return PrecPower
	}
	return 0
}

// RightAssociative reports whether the operator groups right-to-left.
func RightAssociative(k Kind) bool {
	return k == TokPower || IsAssignmentOp(k)
}
