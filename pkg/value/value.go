// Package value implements the NEXUS dynamic value model.
package value

import (
	"fmt"
	"hash"
	"hash/fnv"
	"math"
	"strconv"
	"strings"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
)

// Value is the interface for all NEXUS runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	nxvalue() // sealed marker
}

// Nil represents the nil value.
type Nil struct{}

func (Nil) nxvalue() {}

// Bool represents a boolean value.
type Bool struct {
	Value bool
}

func (Bool) nxvalue() {}

// Number represents a numeric value (IEEE-754 double).
type Number struct {
	Value float64
}

func (Number) nxvalue() {}

// String represents a string value.
type String struct {
	Value string
}

func (String) nxvalue() {}

// Array represents an ordered list of values. Arrays have by-value
// semantics: assignment deep-copies (see Copy).
type Array struct {
	Items []Value
}

func (Array) nxvalue() {}

// Pair is a key-value pair in an ordered object.
type Pair struct {
	Key   string
	Value Value
}

// Object represents a map of string keys to values. Iteration order is
// insertion order, kept stable via the Pairs slice.
type Object struct {
	Pairs []Pair
	index map[string]int // lazy index for lookups
}

func (Object) nxvalue() {}

// Callable is the capability shared by native builtins and user-defined
// functions. Implementations must be pointer types so Function values
// compare by identity.
type Callable interface {
	Name() string
	Arity() int // -1 means variadic
}

// Function represents a callable value. Functions have reference
// semantics: assignment shares the underlying Callable.
type Function struct {
	Impl Callable
}

func (Function) nxvalue() {}

// TensorVal wraps a shared Tensor. Tensors have reference semantics:
// assignment shares the underlying allocation.
type TensorVal struct {
	T *Tensor
}

func (TensorVal) nxvalue() {}

// Native is a built-in function implemented in Go.
type Native struct {
	FnName string
	NArgs  int // -1 means variadic
	Fn     func(args []Value) (Value, error)
}

func (n *Native) Name() string { return n.FnName }
func (n *Native) Arity() int   { return n.NArgs }

// OpError is a typed failure from a value operation. The interpreter
// attaches the source position of the offending token.
type OpError struct {
	Code    string
	Message string
}

func (e *OpError) Error() string {
	return e.Message
}

func typeErr(format string, args ...any) error {
	return &OpError{Code: diagnostics.EType, Message: fmt.Sprintf(format, args...)}
}

func arithErr(msg string) error {
	return &OpError{Code: diagnostics.EArith, Message: msg}
}

// Factories.

func NewNil() Value                { return Nil{} }
func NewBool(b bool) Value         { return Bool{Value: b} }
func NewNumber(n float64) Value    { return Number{Value: n} }
func NewString(s string) Value     { return String{Value: s} }
func NewArray(items []Value) Value { return Array{Items: items} }
func NewFunction(c Callable) Value { return Function{Impl: c} }
func NewTensorVal(t *Tensor) Value { return TensorVal{T: t} }

// NewObject creates an object value from key-value pairs.
func NewObject(pairs []Pair) Value {
	idx := make(map[string]int, len(pairs))
	for i, p := range pairs {
		idx[p.Key] = i
	}
	return Object{Pairs: pairs, index: idx}
}

// Get retrieves a value by key from the object.
func (o *Object) Get(key string) (Value, bool) {
	if o.index == nil {
		o.index = make(map[string]int, len(o.Pairs))
		for i, p := range o.Pairs {
			o.index[p.Key] = i
		}
	}
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.Pairs[i].Value, true
}

// Set sets a value by key in the object, preserving insertion order.
func (o *Object) Set(key string, val Value) {
	if o.index == nil {
		o.index = make(map[string]int, len(o.Pairs))
		for i, p := range o.Pairs {
			o.index[p.Key] = i
		}
	}
	if i, ok := o.index[key]; ok {
		o.Pairs[i].Value = val
		return
	}
	o.index[key] = len(o.Pairs)
	o.Pairs = append(o.Pairs, Pair{Key: key, Value: val})
}

// Keys returns all keys in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.Pairs))
	for i, p := range o.Pairs {
		keys[i] = p.Key
	}
	return keys
}

// TypeName returns the variant name of a value, for error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case Nil:
		return "nil"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	case Function:
		return "function"
	case TensorVal:
		return "tensor"
	}
	return "unknown"
}

// Truthy returns the boolean interpretation of a value. Nil, false, 0,
// and empty string/array/object are falsy; everything else is truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case Nil:
		return false
	case Bool:
		return val.Value
	case Number:
		return val.Value != 0
	case String:
		return val.Value != ""
	case Array:
		return len(val.Items) > 0
	case Object:
		return len(val.Pairs) > 0
	default:
		return true
	}
}

// Copy applies the assignment copy policy: arrays and objects are
// deep-copied, functions and tensors share the underlying allocation,
// scalars are immutable.
func Copy(v Value) Value {
	switch val := v.(type) {
	case Array:
		items := make([]Value, len(val.Items))
		for i, it := range val.Items {
			items[i] = Copy(it)
		}
		return Array{Items: items}
	case Object:
		pairs := make([]Pair, len(val.Pairs))
		for i, p := range val.Pairs {
			pairs[i] = Pair{Key: p.Key, Value: Copy(p.Value)}
		}
		return NewObject(pairs)
	default:
		return v
	}
}

// Equal reports structural equality: nil equals only nil; booleans,
// numbers and strings compare by value; arrays and objects recursively;
// functions and tensors by identity of the shared allocation.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av.Value == bv.Value
	case Number:
		bv, ok := b.(Number)
		return ok && av.Value == bv.Value
	case String:
		bv, ok := b.(String)
		return ok && av.Value == bv.Value
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av.Pairs) != len(bv.Pairs) {
			return false
		}
		for _, p := range av.Pairs {
			other, found := (&bv).Get(p.Key)
			if !found || !Equal(p.Value, other) {
				return false
			}
		}
		return true
	case Function:
		bv, ok := b.(Function)
		return ok && av.Impl == bv.Impl
	case TensorVal:
		bv, ok := b.(TensorVal)
		return ok && av.T == bv.T
	}
	return false
}

// Compare orders two values. It returns -1, 0 or 1 and ok=true for
// comparable operands; ok=false means a NaN was involved, in which case
// every ordering comparison is false. Non-number, non-string operands
// are a type error.
func Compare(a, b Value) (cmp int, ok bool, err error) {
	if an, aok := a.(Number); aok {
		bn, bok := b.(Number)
		if !bok {
			return 0, false, typeErr("cannot compare number with %s", TypeName(b))
		}
		if math.IsNaN(an.Value) || math.IsNaN(bn.Value) {
			return 0, false, nil
		}
		switch {
		case an.Value < bn.Value:
			return -1, true, nil
		case an.Value > bn.Value:
			return 1, true, nil
		}
		return 0, true, nil
	}
	if as, aok := a.(String); aok {
		bs, bok := b.(String)
		if !bok {
			return 0, false, typeErr("cannot compare string with %s", TypeName(b))
		}
		return strings.Compare(as.Value, bs.Value), true, nil
	}
	return 0, false, typeErr("ordering is not defined for %s", TypeName(a))
}

// Add implements `+`: numeric addition, string concatenation (with
// coercion of the other operand when either side is a string), and
// element-wise tensor addition.
func Add(a, b Value) (Value, error) {
	if an, ok := a.(Number); ok {
		if bn, ok := b.(Number); ok {
			return NewNumber(an.Value + bn.Value), nil
		}
	}
	if as, ok := a.(String); ok {
		return NewString(as.Value + Stringify(b)), nil
	}
	if bs, ok := b.(String); ok {
		return NewString(Stringify(a) + bs.Value), nil
	}
	if at, ok := a.(TensorVal); ok {
		if bt, ok := b.(TensorVal); ok {
			t, err := at.T.Add(bt.T)
			if err != nil {
				return nil, err
			}
			return NewTensorVal(t), nil
		}
	}
	return nil, typeErr("operator '+' is not defined for %s and %s", TypeName(a), TypeName(b))
}

// Sub implements `-` for numbers and tensors.
func Sub(a, b Value) (Value, error) {
	if an, ok := a.(Number); ok {
		if bn, ok := b.(Number); ok {
			return NewNumber(an.Value - bn.Value), nil
		}
	}
	if at, ok := a.(TensorVal); ok {
		if bt, ok := b.(TensorVal); ok {
			t, err := at.T.Sub(bt.T)
			if err != nil {
				return nil, err
			}
			return NewTensorVal(t), nil
		}
	}
	return nil, typeErr("operator '-' is not defined for %s and %s", TypeName(a), TypeName(b))
}

// Mul implements `*` for numbers, tensor-by-scalar, and element-wise
// tensor multiplication.
func Mul(a, b Value) (Value, error) {
	if an, ok := a.(Number); ok {
		if bn, ok := b.(Number); ok {
			return NewNumber(an.Value * bn.Value), nil
		}
		if bt, ok := b.(TensorVal); ok {
			return NewTensorVal(bt.T.Scale(an.Value)), nil
		}
	}
	if at, ok := a.(TensorVal); ok {
		if bn, ok := b.(Number); ok {
			return NewTensorVal(at.T.Scale(bn.Value)), nil
		}
		if bt, ok := b.(TensorVal); ok {
			t, err := at.T.MulElem(bt.T)
			if err != nil {
				return nil, err
			}
			return NewTensorVal(t), nil
		}
	}
	return nil, typeErr("operator '*' is not defined for %s and %s", TypeName(a), TypeName(b))
}

// Div implements `/` for numbers and element-wise tensor division.
// Numeric division by zero is an arithmetic error, not infinity.
func Div(a, b Value) (Value, error) {
	if an, ok := a.(Number); ok {
		if bn, ok := b.(Number); ok {
			if bn.Value == 0 {
				return nil, arithErr("division by zero")
			}
			return NewNumber(an.Value / bn.Value), nil
		}
	}
	if at, ok := a.(TensorVal); ok {
		if bt, ok := b.(TensorVal); ok {
			t, err := at.T.DivElem(bt.T)
			if err != nil {
				return nil, err
			}
			return NewTensorVal(t), nil
		}
	}
	return nil, typeErr("operator '/' is not defined for %s and %s", TypeName(a), TypeName(b))
}

// Mod implements `%` for numbers. Modulo by zero is an arithmetic error.
func Mod(a, b Value) (Value, error) {
	an, aok := a.(Number)
	bn, bok := b.(Number)
	if !aok || !bok {
		return nil, typeErr("operator '%%' requires two numbers, got %s and %s", TypeName(a), TypeName(b))
	}
	if bn.Value == 0 {
		return nil, arithErr("modulo by zero")
	}
	return NewNumber(math.Mod(an.Value, bn.Value)), nil
}

// Pow implements `**` for numbers.
func Pow(a, b Value) (Value, error) {
	an, aok := a.(Number)
	bn, bok := b.(Number)
	if !aok || !bok {
		return nil, typeErr("operator '**' requires two numbers, got %s and %s", TypeName(a), TypeName(b))
	}
	return NewNumber(math.Pow(an.Value, bn.Value)), nil
}

// MatMul implements `@`, matrix multiplication for tensors.
func MatMul(a, b Value) (Value, error) {
	at, aok := a.(TensorVal)
	bt, bok := b.(TensorVal)
	if !aok || !bok {
		return nil, typeErr("operator '@' requires two tensors, got %s and %s", TypeName(a), TypeName(b))
	}
	t, err := at.T.MatMul(bt.T)
	if err != nil {
		return nil, err
	}
	return NewTensorVal(t), nil
}

// Neg implements unary `-` for numbers and tensors.
func Neg(v Value) (Value, error) {
	switch val := v.(type) {
	case Number:
		return NewNumber(-val.Value), nil
	case TensorVal:
		return NewTensorVal(val.T.Scale(-1)), nil
	}
	return nil, typeErr("unary '-' is not defined for %s", TypeName(v))
}

// Not implements unary `!` via truthiness.
func Not(v Value) Value {
	return NewBool(!Truthy(v))
}

// BitNot implements unary `~` for numbers, truncating to int64.
func BitNot(v Value) (Value, error) {
	n, ok := v.(Number)
	if !ok {
		return nil, typeErr("unary '~' is not defined for %s", TypeName(v))
	}
	return NewNumber(float64(^int64(n.Value))), nil
}

// BitOp implements the binary bitwise and shift operators over numbers
// truncated to int64. op is one of "&", "|", "^", "<<", ">>".
func BitOp(op string, a, b Value) (Value, error) {
	an, aok := a.(Number)
	bn, bok := b.(Number)
	if !aok || !bok {
		return nil, typeErr("operator '%s' requires two numbers, got %s and %s", op, TypeName(a), TypeName(b))
	}
	x, y := int64(an.Value), int64(bn.Value)
	switch op {
	case "&":
		return NewNumber(float64(x & y)), nil
	case "|":
		return NewNumber(float64(x | y)), nil
	case "^":
		return NewNumber(float64(x ^ y)), nil
	case "<<":
		if y < 0 || y > 63 {
			return nil, arithErr("shift amount out of range")
		}
		return NewNumber(float64(x << uint(y))), nil
	case ">>":
		if y < 0 || y > 63 {
			return nil, arithErr("shift amount out of range")
		}
		return NewNumber(float64(x >> uint(y))), nil
	}
	return nil, typeErr("unknown bitwise operator '%s'", op)
}

// FormatNumber renders a float in the language's display form: integral
// values print without a decimal point.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Stringify returns the display form of a value.
func Stringify(v Value) string {
	switch val := v.(type) {
	case Nil:
		return "nil"
	case Bool:
		if val.Value {
			return "true"
		}
		return "false"
	case Number:
		return FormatNumber(val.Value)
	case String:
		return val.Value
	case Array:
		var b strings.Builder
		b.WriteByte('[')
		for i, it := range val.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quoteIfString(it))
		}
		b.WriteByte(']')
		return b.String()
	case Object:
		var b strings.Builder
		b.WriteByte('{')
		for i, p := range val.Pairs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Key)
			b.WriteString(": ")
			b.WriteString(quoteIfString(p.Value))
		}
		b.WriteByte('}')
		return b.String()
	case Function:
		return fmt.Sprintf("<fn %s>", val.Impl.Name())
	case TensorVal:
		return val.T.String()
	}
	return "<unknown>"
}

// quoteIfString renders nested strings with quotes inside containers.
func quoteIfString(v Value) string {
	if s, ok := v.(String); ok {
		return strconv.Quote(s.Value)
	}
	return Stringify(v)
}

// Hash returns a hash consistent with Equal: structurally equal values
// hash identically; functions and tensors hash by identity.
func Hash(v Value) uint64 {
	h := fnv.New64a()
	hashInto(h, v)
	return h.Sum64()
}

func hashInto(h hash.Hash64, v Value) {
	switch val := v.(type) {
	case Nil:
		h.Write([]byte{0})
	case Bool:
		if val.Value {
			h.Write([]byte{1, 1})
		} else {
			h.Write([]byte{1, 0})
		}
	case Number:
		bits := math.Float64bits(val.Value)
		var b [9]byte
		b[0] = 2
		for i := 0; i < 8; i++ {
			b[i+1] = byte(bits >> (8 * i))
		}
		h.Write(b[:])
	case String:
		h.Write([]byte{3})
		h.Write([]byte(val.Value))
	case Array:
		h.Write([]byte{4})
		for _, it := range val.Items {
			hashInto(h, it)
		}
	case Object:
		// Key order must not affect the hash, so combine per-pair hashes
		// commutatively.
		var sum uint64
		for _, p := range val.Pairs {
			ph := fnv.New64a()
			ph.Write([]byte(p.Key))
			hashInto(ph, p.Value)
			sum += ph.Sum64()
		}
		var b [9]byte
		b[0] = 5
		for i := 0; i < 8; i++ {
			b[i+1] = byte(sum >> (8 * i))
		}
		h.Write(b[:])
	case Function:
		fmt.Fprintf(h, "fn:%p", val.Impl)
	case TensorVal:
		fmt.Fprintf(h, "tensor:%p", val.T)
	}
}
