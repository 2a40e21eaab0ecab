package interp

import (
	"fmt"
	"math"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
	"github.com/MatN23/Nexus-Lang/pkg/lexer"
	"github.com/MatN23/Nexus-Lang/pkg/value"
)

// Expression evaluation is a precedence-climbing descent over the token
// slice. Each tier returns the value and the cursor just past the span
// it consumed. In skip mode (in.skip) every tier still consumes exactly
// the same tokens but performs no lookups, calls, or operator
// applications; this is how short-circuit operands and untaken ternary
// branches are traversed without side effects.

// evalExpr evaluates a full expression starting at pos.
func (in *Interpreter) evalExpr(pos int) (value.Value, int, error) {
	return in.evalAssignment(pos)
}

// skipExpr traverses an expression span without evaluating it.
func (in *Interpreter) skipExpr(pos int) (int, error) {
	saved := in.skip
	in.skip = true
	_, next, err := in.evalExpr(pos)
	in.skip = saved
	return next, err
}

// --- assignment ---

// accessor is one step of an assignment target path: .field or [index].
type accessor struct {
	field   string
	index   value.Value
	isIndex bool
	pos     int
}

// assignAhead reports whether the tokens at pos form an assignment
// target followed by an assignment operator. The scan matches kinds
// only and never evaluates.
func (in *Interpreter) assignAhead(pos int) bool {
	if !in.check(pos, lexer.TokIdent) {
		return false
	}
	p := pos + 1
	for {
		switch in.at(p).Kind {
		case lexer.TokDot:
			if !isNameToken(in.at(p + 1)) {
				return false
			}
			p += 2
		case lexer.TokLBracket:
			end, err := in.findMatching(p, lexer.TokLBracket, lexer.TokRBracket)
			if err != nil {
				return false
			}
			p = end
		default:
			return lexer.IsAssignmentOp(in.at(p).Kind)
		}
	}
}

func isNameToken(tok lexer.Token) bool {
	return tok.Kind == lexer.TokIdent || tok.IsKeyword()
}

func (in *Interpreter) evalAssignment(pos int) (value.Value, int, error) {
	if !in.assignAhead(pos) {
		return in.evalTernary(pos)
	}

	name := in.at(pos).Lexeme
	namePos := pos
	pos++

	var path []accessor
	for {
		if in.check(pos, lexer.TokDot) {
			path = append(path, accessor{field: in.at(pos + 1).Lexeme, pos: pos + 1})
			pos += 2
			continue
		}
		if in.check(pos, lexer.TokLBracket) {
			idxPos := pos + 1
			idx, next, err := in.evalExpr(pos + 1)
			if err != nil {
				return nil, next, err
			}
			pos = next
			var expErr error
			pos, expErr = in.expect(pos, lexer.TokRBracket, "']' after index")
			if expErr != nil {
				return nil, pos, expErr
			}
			path = append(path, accessor{index: idx, isIndex: true, pos: idxPos})
			continue
		}
		break
	}

	opTok := in.at(pos)
	opPos := pos
	pos++

	// Assignment is right-associative.
	rhs, pos, err := in.evalAssignment(pos)
	if err != nil {
		return nil, pos, err
	}
	if in.skip {
		return value.NewNil(), pos, nil
	}

	if len(path) == 0 {
		var newVal value.Value
		if opTok.Kind == lexer.TokAssign {
			newVal = value.Copy(rhs)
		} else {
			cur, getErr := in.env.Get(name)
			if getErr != nil {
				return nil, pos, in.withPos(getErr, namePos)
			}
			newVal, err = applyBinary(compoundBase(opTok.Kind), cur, rhs)
			if err != nil {
				return nil, pos, in.located(err, opPos)
			}
		}
		if err := in.env.Assign(name, newVal); err != nil {
			return nil, pos, in.withPos(err, namePos)
		}
		return newVal, pos, nil
	}

	root, err := in.env.Get(name)
	if err != nil {
		return nil, pos, in.withPos(err, namePos)
	}
	updated, newVal, err := in.assignPath(root, path, 0, opTok.Kind, rhs, opPos)
	if err != nil {
		return nil, pos, err
	}
	if err := in.env.Assign(name, updated); err != nil {
		return nil, pos, in.withPos(err, namePos)
	}
	return newVal, pos, nil
}

// compoundBase maps a compound assignment operator to its base operator.
func compoundBase(k lexer.Kind) lexer.Kind {
	switch k {
	case lexer.TokPlusAssign:
		return lexer.TokPlus
	case lexer.TokMinusAssign:
		return lexer.TokMinus
	case lexer.TokStarAssign:
		return lexer.TokStar
	case lexer.TokSlashAssign:
		return lexer.TokSlash
	case lexer.TokPercentAssign:
		return lexer.TokPercent
	case lexer.TokPowerAssign:
		return lexer.TokPower
	}
	return k
}

// assignPath walks the target path, producing the updated container.
// Arrays and objects are updated functionally so the enclosing variable
// keeps by-value semantics; tensors mutate in place.
func (in *Interpreter) assignPath(container value.Value, path []accessor, i int, opKind lexer.Kind, rhs value.Value, opPos int) (value.Value, value.Value, error) {
	acc := path[i]
	last := i == len(path)-1

	if last {
		var newVal value.Value
		if opKind == lexer.TokAssign {
			newVal = value.Copy(rhs)
		} else {
			cur, err := in.getElement(container, acc)
			if err != nil {
				return nil, nil, err
			}
			var applyErr error
			newVal, applyErr = applyBinary(compoundBase(opKind), cur, rhs)
			if applyErr != nil {
				return nil, nil, in.located(applyErr, opPos)
			}
		}
		updated, err := in.setElement(container, acc, newVal)
		if err != nil {
			return nil, nil, err
		}
		return updated, newVal, nil
	}

	inner, err := in.getElement(container, acc)
	if err != nil {
		return nil, nil, err
	}
	updatedInner, newVal, err := in.assignPath(inner, path, i+1, opKind, rhs, opPos)
	if err != nil {
		return nil, nil, err
	}
	updated, err := in.setElement(container, acc, updatedInner)
	if err != nil {
		return nil, nil, err
	}
	return updated, newVal, nil
}

func (in *Interpreter) getElement(container value.Value, acc accessor) (value.Value, error) {
	if !acc.isIndex {
		obj, ok := container.(value.Object)
		if !ok {
			return nil, in.errAt(acc.pos, diagnostics.EType,
				"cannot read field '%s' of %s", acc.field, value.TypeName(container))
		}
		if v, found := obj.Get(acc.field); found {
			return v, nil
		}
		return value.NewNil(), nil
	}

	switch c := container.(type) {
	case value.Array:
		i, err := in.intIndex(acc.index, acc.pos)
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= len(c.Items) {
			return nil, in.errAt(acc.pos, diagnostics.EType,
				"array index %d out of range (length %d)", i, len(c.Items))
		}
		return c.Items[i], nil
	case value.Object:
		key, ok := acc.index.(value.String)
		if !ok {
			return nil, in.errAt(acc.pos, diagnostics.EType,
				"object index must be a string, got %s", value.TypeName(acc.index))
		}
		if v, found := c.Get(key.Value); found {
			return v, nil
		}
		return value.NewNil(), nil
	case value.String:
		i, err := in.intIndex(acc.index, acc.pos)
		if err != nil {
			return nil, err
		}
		runes := []rune(c.Value)
		if i < 0 || i >= len(runes) {
			return nil, in.errAt(acc.pos, diagnostics.EType,
				"string index %d out of range (length %d)", i, len(runes))
		}
		return value.NewString(string(runes[i])), nil
	case value.TensorVal:
		i, err := in.intIndex(acc.index, acc.pos)
		if err != nil {
			return nil, err
		}
		f, atErr := c.T.AtFlat(i)
		if atErr != nil {
			return nil, in.located(atErr, acc.pos)
		}
		return value.NewNumber(f), nil
	default:
		return nil, in.errAt(acc.pos, diagnostics.EType,
			"%s is not indexable", value.TypeName(container))
	}
}

func (in *Interpreter) setElement(container value.Value, acc accessor, newVal value.Value) (value.Value, error) {
	if !acc.isIndex {
		obj, ok := container.(value.Object)
		if !ok {
			return nil, in.errAt(acc.pos, diagnostics.EType,
				"cannot set field '%s' on %s", acc.field, value.TypeName(container))
		}
		return setObjectKey(obj, acc.field, newVal), nil
	}

	switch c := container.(type) {
	case value.Array:
		i, err := in.intIndex(acc.index, acc.pos)
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= len(c.Items) {
			return nil, in.errAt(acc.pos, diagnostics.EType,
				"array index %d out of range (length %d)", i, len(c.Items))
		}
		items := make([]value.Value, len(c.Items))
		copy(items, c.Items)
		items[i] = newVal
		return value.NewArray(items), nil
	case value.Object:
		key, ok := acc.index.(value.String)
		if !ok {
			return nil, in.errAt(acc.pos, diagnostics.EType,
				"object index must be a string, got %s", value.TypeName(acc.index))
		}
		return setObjectKey(c, key.Value, newVal), nil
	case value.TensorVal:
		i, err := in.intIndex(acc.index, acc.pos)
		if err != nil {
			return nil, err
		}
		n, ok := newVal.(value.Number)
		if !ok {
			return nil, in.errAt(acc.pos, diagnostics.EType,
				"tensor elements must be numbers, got %s", value.TypeName(newVal))
		}
		if setErr := c.T.SetFlat(i, n.Value); setErr != nil {
			return nil, in.located(setErr, acc.pos)
		}
		return c, nil
	case value.String:
		return nil, in.errAt(acc.pos, diagnostics.EType, "strings are immutable")
	default:
		return nil, in.errAt(acc.pos, diagnostics.EType,
			"%s is not indexable", value.TypeName(container))
	}
}

func setObjectKey(obj value.Object, key string, val value.Value) value.Value {
	pairs := make([]value.Pair, len(obj.Pairs))
	copy(pairs, obj.Pairs)
	for i := range pairs {
		if pairs[i].Key == key {
			pairs[i].Value = val
			return value.NewObject(pairs)
		}
	}
	return value.NewObject(append(pairs, value.Pair{Key: key, Value: val}))
}

func (in *Interpreter) intIndex(v value.Value, pos int) (int, error) {
	n, ok := v.(value.Number)
	if !ok {
		return 0, in.errAt(pos, diagnostics.EType,
			"index must be a number, got %s", value.TypeName(v))
	}
	if n.Value != math.Trunc(n.Value) {
		return 0, in.errAt(pos, diagnostics.EType, "index must be an integer")
	}
	return int(n.Value), nil
}

// --- ternary and logical tiers ---

func (in *Interpreter) evalTernary(pos int) (value.Value, int, error) {
	cond, pos, err := in.evalOr(pos)
	if err != nil {
		return nil, pos, err
	}
	if !in.check(pos, lexer.TokQuestion) {
		return cond, pos, nil
	}
	pos++

	take := !in.skip && value.Truthy(cond)
	saved := in.skip

	in.skip = saved || !take
	thenV, pos, err := in.evalAssignment(pos)
	in.skip = saved
	if err != nil {
		return nil, pos, err
	}

	pos, err = in.expect(pos, lexer.TokColon, "':' in ternary expression")
	if err != nil {
		return nil, pos, err
	}

	in.skip = saved || take
	elseV, pos, err := in.evalTernary(pos)
	in.skip = saved
	if err != nil {
		return nil, pos, err
	}

	if in.skip {
		return value.NewNil(), pos, nil
	}
	if take {
		return thenV, pos, nil
	}
	return elseV, pos, nil
}

func (in *Interpreter) evalOr(pos int) (value.Value, int, error) {
	left, pos, err := in.evalAnd(pos)
	if err != nil {
		return nil, pos, err
	}
	for in.check(pos, lexer.TokOrOr) {
		pos++
		// The right operand is traversed but not evaluated once the
		// result is decided.
		decided := !in.skip && value.Truthy(left)
		saved := in.skip
		in.skip = saved || decided
		right, next, err := in.evalAnd(pos)
		in.skip = saved
		if err != nil {
			return nil, next, err
		}
		pos = next
		if !in.skip {
			if decided {
				left = value.NewBool(true)
			} else {
				left = value.NewBool(value.Truthy(right))
			}
		}
	}
	return left, pos, nil
}

func (in *Interpreter) evalAnd(pos int) (value.Value, int, error) {
	left, pos, err := in.evalEquality(pos)
	if err != nil {
		return nil, pos, err
	}
	for in.check(pos, lexer.TokAndAnd) {
		pos++
		decided := !in.skip && !value.Truthy(left)
		saved := in.skip
		in.skip = saved || decided
		right, next, err := in.evalEquality(pos)
		in.skip = saved
		if err != nil {
			return nil, next, err
		}
		pos = next
		if !in.skip {
			if decided {
				left = value.NewBool(false)
			} else {
				left = value.NewBool(value.Truthy(right))
			}
		}
	}
	return left, pos, nil
}

// --- binary operator tiers ---

type tierFn func(int) (value.Value, int, error)

// binaryTier folds a left-associative run of the given operators.
func (in *Interpreter) binaryTier(pos int, match func(lexer.Kind) bool, next tierFn) (value.Value, int, error) {
	left, pos, err := next(pos)
	if err != nil {
		return nil, pos, err
	}
	for match(in.at(pos).Kind) {
		op := in.at(pos).Kind
		opPos := pos
		pos++
		right, nextPos, err := next(pos)
		if err != nil {
			return nil, nextPos, err
		}
		pos = nextPos
		if !in.skip {
			left, err = applyBinary(op, left, right)
			if err != nil {
				return nil, pos, in.located(err, opPos)
			}
		}
	}
	return left, pos, nil
}

func (in *Interpreter) evalEquality(pos int) (value.Value, int, error) {
	return in.binaryTier(pos, lexer.IsEqualityOp, in.evalComparison)
}

func (in *Interpreter) evalComparison(pos int) (value.Value, int, error) {
	return in.binaryTier(pos, lexer.IsComparisonOp, in.evalBitOr)
}

func (in *Interpreter) evalBitOr(pos int) (value.Value, int, error) {
	return in.binaryTier(pos, func(k lexer.Kind) bool { return k == lexer.TokPipe }, in.evalBitXor)
}

func (in *Interpreter) evalBitXor(pos int) (value.Value, int, error) {
	return in.binaryTier(pos, func(k lexer.Kind) bool { return k == lexer.TokCaret }, in.evalBitAnd)
}

func (in *Interpreter) evalBitAnd(pos int) (value.Value, int, error) {
	return in.binaryTier(pos, func(k lexer.Kind) bool { return k == lexer.TokAmp }, in.evalShift)
}

func (in *Interpreter) evalShift(pos int) (value.Value, int, error) {
	return in.binaryTier(pos, func(k lexer.Kind) bool {
		return k == lexer.TokShl || k == lexer.TokShr
	}, in.evalAdditive)
}

func (in *Interpreter) evalAdditive(pos int) (value.Value, int, error) {
	return in.binaryTier(pos, func(k lexer.Kind) bool {
		return k == lexer.TokPlus || k == lexer.TokMinus
	}, in.evalMultiplicative)
}

func (in *Interpreter) evalMultiplicative(pos int) (value.Value, int, error) {
	return in.binaryTier(pos, func(k lexer.Kind) bool {
		return k == lexer.TokStar || k == lexer.TokSlash || k == lexer.TokPercent || k == lexer.TokMatMul
	}, in.evalPower)
}

// evalPower handles '**', which binds tighter than '*' and is
// right-associative: 2 ** 3 ** 2 is 2 ** (3 ** 2).
func (in *Interpreter) evalPower(pos int) (value.Value, int, error) {
	left, pos, err := in.evalUnary(pos)
	if err != nil {
		return nil, pos, err
	}
	if !in.check(pos, lexer.TokPower) {
		return left, pos, nil
	}
	opPos := pos
	right, pos, err := in.evalPower(pos + 1)
	if err != nil {
		return nil, pos, err
	}
	if in.skip {
		return value.NewNil(), pos, nil
	}
	out, err := value.Pow(left, right)
	if err != nil {
		return nil, pos, in.located(err, opPos)
	}
	return out, pos, nil
}

func applyBinary(op lexer.Kind, a, b value.Value) (value.Value, error) {
	switch op {
	case lexer.TokPlus:
		return value.Add(a, b)
	case lexer.TokMinus:
		return value.Sub(a, b)
	case lexer.TokStar:
		return value.Mul(a, b)
	case lexer.TokSlash:
		return value.Div(a, b)
	case lexer.TokPercent:
		return value.Mod(a, b)
	case lexer.TokPower:
		return value.Pow(a, b)
	case lexer.TokMatMul:
		return value.MatMul(a, b)
	case lexer.TokAmp:
		return value.BitOp("&", a, b)
	case lexer.TokPipe:
		return value.BitOp("|", a, b)
	case lexer.TokCaret:
		return value.BitOp("^", a, b)
	case lexer.TokShl:
		return value.BitOp("<<", a, b)
	case lexer.TokShr:
		return value.BitOp(">>", a, b)
	case lexer.TokEqEq:
		return value.NewBool(value.Equal(a, b)), nil
	case lexer.TokBangEq:
		return value.NewBool(!value.Equal(a, b)), nil
	case lexer.TokLt, lexer.TokGt, lexer.TokLtEq, lexer.TokGtEq:
		cmp, ok, err := value.Compare(a, b)
		if err != nil {
			return nil, err
		}
		if !ok {
			// NaN compares false against everything.
			return value.NewBool(false), nil
		}
		switch op {
		case lexer.TokLt:
			return value.NewBool(cmp < 0), nil
		case lexer.TokGt:
			return value.NewBool(cmp > 0), nil
		case lexer.TokLtEq:
			return value.NewBool(cmp <= 0), nil
		default:
			return value.NewBool(cmp >= 0), nil
		}
	}
	return nil, &value.OpError{
		Code:    diagnostics.ESyntax,
		Message: fmt.Sprintf("unsupported operator '%s'", lexer.KindString(op)),
	}
}

// --- unary and postfix tiers ---

func (in *Interpreter) evalUnary(pos int) (value.Value, int, error) {
	switch in.at(pos).Kind {
	case lexer.TokBang:
		v, next, err := in.evalUnary(pos + 1)
		if err != nil {
			return nil, next, err
		}
		if in.skip {
			return value.NewNil(), next, nil
		}
		return value.Not(v), next, nil

	case lexer.TokMinus:
		opPos := pos
		v, next, err := in.evalUnary(pos + 1)
		if err != nil {
			return nil, next, err
		}
		if in.skip {
			return value.NewNil(), next, nil
		}
		out, negErr := value.Neg(v)
		if negErr != nil {
			return nil, next, in.located(negErr, opPos)
		}
		return out, next, nil

	case lexer.TokTilde:
		opPos := pos
		v, next, err := in.evalUnary(pos + 1)
		if err != nil {
			return nil, next, err
		}
		if in.skip {
			return value.NewNil(), next, nil
		}
		out, bnErr := value.BitNot(v)
		if bnErr != nil {
			return nil, next, in.located(bnErr, opPos)
		}
		return out, next, nil

	case lexer.TokPlusPlus, lexer.TokMinusMinus:
		return in.evalPrefixIncDec(pos)

	default:
		return in.evalPostfix(pos)
	}
}

func (in *Interpreter) evalPrefixIncDec(pos int) (value.Value, int, error) {
	op := in.at(pos).Kind
	opPos := pos
	pos++
	if !in.check(pos, lexer.TokIdent) {
		return nil, pos, in.syntaxErr(pos, "'%s' requires a variable", lexer.KindString(op))
	}
	name := in.at(pos).Lexeme
	namePos := pos
	pos++
	if in.skip {
		return value.NewNil(), pos, nil
	}
	newVal, err := in.incDecVar(name, op, namePos, opPos)
	if err != nil {
		return nil, pos, err
	}
	return newVal, pos, nil
}

func (in *Interpreter) incDecVar(name string, op lexer.Kind, namePos, opPos int) (value.Value, error) {
	cur, err := in.env.Get(name)
	if err != nil {
		return nil, in.withPos(err, namePos)
	}
	n, ok := cur.(value.Number)
	if !ok {
		return nil, in.errAt(opPos, diagnostics.EType,
			"'%s' requires a number, got %s", lexer.KindString(op), value.TypeName(cur))
	}
	delta := 1.0
	if op == lexer.TokMinusMinus {
		delta = -1
	}
	newVal := value.NewNumber(n.Value + delta)
	if err := in.env.Assign(name, newVal); err != nil {
		return nil, in.withPos(err, namePos)
	}
	return newVal, nil
}

func (in *Interpreter) evalPostfix(pos int) (value.Value, int, error) {
	// Postfix ++/-- applies to plain identifiers only and yields the
	// value before the update.
	if in.check(pos, lexer.TokIdent) {
		next := in.at(pos + 1).Kind
		if next == lexer.TokPlusPlus || next == lexer.TokMinusMinus {
			name := in.at(pos).Lexeme
			if in.skip {
				return value.NewNil(), pos + 2, nil
			}
			old, err := in.env.Get(name)
			if err != nil {
				return nil, pos + 2, in.withPos(err, pos)
			}
			if _, err := in.incDecVar(name, next, pos, pos+1); err != nil {
				return nil, pos + 2, err
			}
			return old, pos + 2, nil
		}
	}

	recv, pos, err := in.evalPrimary(pos)
	if err != nil {
		return nil, pos, err
	}

	for {
		switch in.at(pos).Kind {
		case lexer.TokLParen:
			args, next, err := in.evalArgs(pos)
			if err != nil {
				return nil, next, err
			}
			callPos := pos
			pos = next
			if in.skip {
				recv = value.NewNil()
				continue
			}
			fn, ok := recv.(value.Function)
			if !ok {
				return nil, pos, in.errAt(callPos, diagnostics.EType,
					"%s is not callable", value.TypeName(recv))
			}
			recv, err = in.callFunction(fn, args, callPos)
			if err != nil {
				return nil, pos, err
			}

		case lexer.TokLBracket:
			idxPos := pos + 1
			idx, next, err := in.evalExpr(pos + 1)
			if err != nil {
				return nil, next, err
			}
			pos = next
			pos, err = in.expect(pos, lexer.TokRBracket, "']' after index")
			if err != nil {
				return nil, pos, err
			}
			if in.skip {
				recv = value.NewNil()
				continue
			}
			recv, err = in.getElement(recv, accessor{index: idx, isIndex: true, pos: idxPos})
			if err != nil {
				return nil, pos, err
			}

		case lexer.TokDot:
			if !isNameToken(in.at(pos + 1)) {
				return nil, pos + 1, in.syntaxErr(pos+1, "expected member name after '.'")
			}
			member := in.at(pos + 1).Lexeme
			memberPos := pos + 1
			pos += 2

			if in.check(pos, lexer.TokLParen) {
				args, next, err := in.evalArgs(pos)
				if err != nil {
					return nil, next, err
				}
				pos = next
				if in.skip {
					recv = value.NewNil()
					continue
				}
				recv, err = in.callMethod(recv, member, args, memberPos)
				if err != nil {
					return nil, pos, err
				}
				continue
			}

			if in.skip {
				recv = value.NewNil()
				continue
			}
			var getErr error
			recv, getErr = in.getElement(recv, accessor{field: member, pos: memberPos})
			if getErr != nil {
				return nil, pos, getErr
			}

		default:
			return recv, pos, nil
		}
	}
}

// evalArgs parses '(' expr, ... ')' and returns the evaluated arguments.
func (in *Interpreter) evalArgs(pos int) ([]value.Value, int, error) {
	pos, err := in.expect(pos, lexer.TokLParen, "'('")
	if err != nil {
		return nil, pos, err
	}
	var args []value.Value
	if !in.check(pos, lexer.TokRParen) {
		for {
			arg, next, err := in.evalExpr(pos)
			if err != nil {
				return nil, next, err
			}
			args = append(args, arg)
			pos = next
			if !in.check(pos, lexer.TokComma) {
				break
			}
			pos++
		}
	}
	pos, err = in.expect(pos, lexer.TokRParen, "')' after arguments")
	if err != nil {
		return nil, pos, err
	}
	return args, pos, nil
}

func (in *Interpreter) evalPrimary(pos int) (value.Value, int, error) {
	tok := in.at(pos)
	switch tok.Kind {
	case lexer.TokNumber:
		if in.skip {
			return value.NewNil(), pos + 1, nil
		}
		f, err := lexer.ParseNumber(tok)
		if err != nil {
			return nil, pos + 1, in.syntaxErr(pos, "invalid number literal '%s'", tok.Lexeme)
		}
		return value.NewNumber(f), pos + 1, nil

	case lexer.TokString:
		return value.NewString(tok.Lexeme), pos + 1, nil

	case lexer.TokTrue:
		return value.NewBool(true), pos + 1, nil

	case lexer.TokFalse:
		return value.NewBool(false), pos + 1, nil

	case lexer.TokNil:
		return value.NewNil(), pos + 1, nil

	case lexer.TokIdent,
		lexer.TokTrain, lexer.TokPredict, lexer.TokLayer, lexer.TokOptimizer,
		lexer.TokLoss, lexer.TokDataset, lexer.TokBatch, lexer.TokEpoch:
		// ML keywords double as ordinary names so the builtins
		// train(...), predict(...) and the rest resolve normally.
		if in.skip {
			return value.NewNil(), pos + 1, nil
		}
		v, err := in.env.Get(tok.Lexeme)
		if err != nil {
			return nil, pos + 1, in.withPos(err, pos)
		}
		return v, pos + 1, nil

	case lexer.TokLParen:
		v, next, err := in.evalExpr(pos + 1)
		if err != nil {
			return nil, next, err
		}
		next, err = in.expect(next, lexer.TokRParen, "')' after expression")
		return v, next, err

	case lexer.TokLBracket:
		return in.evalArrayLiteral(pos)

	case lexer.TokLBrace:
		return in.evalObjectLiteral(pos)

	default:
		return nil, pos, in.syntaxErr(pos, "unexpected '%s' in expression", tok)
	}
}

func (in *Interpreter) evalArrayLiteral(pos int) (value.Value, int, error) {
	pos++ // '['
	var items []value.Value
	if !in.check(pos, lexer.TokRBracket) {
		for {
			item, next, err := in.evalExpr(pos)
			if err != nil {
				return nil, next, err
			}
			items = append(items, item)
			pos = next
			if !in.check(pos, lexer.TokComma) {
				break
			}
			pos++
			// trailing comma
			if in.check(pos, lexer.TokRBracket) {
				break
			}
		}
	}
	pos, err := in.expect(pos, lexer.TokRBracket, "']' after array elements")
	if err != nil {
		return nil, pos, err
	}
	if in.skip {
		return value.NewNil(), pos, nil
	}
	return value.NewArray(items), pos, nil
}

func (in *Interpreter) evalObjectLiteral(pos int) (value.Value, int, error) {
	pos++ // '{'
	var pairs []value.Pair
	if !in.check(pos, lexer.TokRBrace) {
		for {
			keyTok := in.at(pos)
			if keyTok.Kind != lexer.TokString && !isNameToken(keyTok) {
				return nil, pos, in.syntaxErr(pos, "expected object key")
			}
			pos++
			var err error
			pos, err = in.expect(pos, lexer.TokColon, "':' after object key")
			if err != nil {
				return nil, pos, err
			}
			val, next, err := in.evalExpr(pos)
			if err != nil {
				return nil, next, err
			}
			pairs = append(pairs, value.Pair{Key: keyTok.Lexeme, Value: val})
			pos = next
			if !in.check(pos, lexer.TokComma) {
				break
			}
			pos++
			if in.check(pos, lexer.TokRBrace) {
				break
			}
		}
	}
	pos, err := in.expect(pos, lexer.TokRBrace, "'}' after object entries")
	if err != nil {
		return nil, pos, err
	}
	if in.skip {
		return value.NewNil(), pos, nil
	}
	return value.NewObject(pairs), pos, nil
}
