package interp

import (
	"sort"
	"strings"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
	"github.com/MatN23/Nexus-Lang/pkg/value"
)

// callMethod dispatches `recv.name(args)` on built-in value methods.
// Methods that return a derived value never mutate the receiver;
// tensors additionally expose a few in-place mutators because tensor
// values share their storage.
func (in *Interpreter) callMethod(recv value.Value, name string, args []value.Value, pos int) (value.Value, error) {
	switch r := recv.(type) {
	case value.String:
		return in.stringMethod(r, name, args, pos)
	case value.Array:
		return in.arrayMethod(r, name, args, pos)
	case value.Object:
		return in.objectMethod(r, name, args, pos)
	case value.TensorVal:
		return in.tensorMethod(r, name, args, pos)
	default:
		return nil, in.errAt(pos, diagnostics.EType,
			"%s has no method '%s'", value.TypeName(recv), name)
	}
}

func (in *Interpreter) wantArgs(name string, args []value.Value, n, pos int) error {
	if len(args) != n {
		return in.errAt(pos, diagnostics.EArity,
			"%s() expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func (in *Interpreter) numberArg(name string, args []value.Value, i, pos int) (float64, error) {
	n, ok := args[i].(value.Number)
	if !ok {
		return 0, in.errAt(pos, diagnostics.EType,
			"%s() argument %d must be a number, got %s", name, i+1, value.TypeName(args[i]))
	}
	return n.Value, nil
}

func (in *Interpreter) stringArg(name string, args []value.Value, i, pos int) (string, error) {
	s, ok := args[i].(value.String)
	if !ok {
		return "", in.errAt(pos, diagnostics.EType,
			"%s() argument %d must be a string, got %s", name, i+1, value.TypeName(args[i]))
	}
	return s.Value, nil
}

func (in *Interpreter) stringMethod(r value.String, name string, args []value.Value, pos int) (value.Value, error) {
	switch name {
	case "length":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		return value.NewNumber(float64(len([]rune(r.Value)))), nil
	case "upper":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		return value.NewString(strings.ToUpper(r.Value)), nil
	case "lower":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		return value.NewString(strings.ToLower(r.Value)), nil
	case "trim":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		return value.NewString(strings.TrimSpace(r.Value)), nil
	case "contains":
		if err := in.wantArgs(name, args, 1, pos); err != nil {
			return nil, err
		}
		sub, err := in.stringArg(name, args, 0, pos)
		if err != nil {
			return nil, err
		}
		return value.NewBool(strings.Contains(r.Value, sub)), nil
	case "split":
		if err := in.wantArgs(name, args, 1, pos); err != nil {
			return nil, err
		}
		sep, err := in.stringArg(name, args, 0, pos)
		if err != nil {
			return nil, err
		}
		parts := strings.Split(r.Value, sep)
		items := make([]value.Value, len(parts))
		for i, p := range parts {
			items[i] = value.NewString(p)
		}
		return value.NewArray(items), nil
	case "substring":
		if err := in.wantArgs(name, args, 2, pos); err != nil {
			return nil, err
		}
		runes := []rune(r.Value)
		lo, err := in.numberArg(name, args, 0, pos)
		if err != nil {
			return nil, err
		}
		hi, err := in.numberArg(name, args, 1, pos)
		if err != nil {
			return nil, err
		}
		a, b := int(lo), int(hi)
		if a < 0 || b > len(runes) || a > b {
			return nil, in.errAt(pos, diagnostics.EType,
				"substring range [%d, %d) out of bounds (length %d)", a, b, len(runes))
		}
		return value.NewString(string(runes[a:b])), nil
	}
	return nil, in.errAt(pos, diagnostics.EType, "string has no method '%s'", name)
}

func (in *Interpreter) arrayMethod(r value.Array, name string, args []value.Value, pos int) (value.Value, error) {
	switch name {
	case "length":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		return value.NewNumber(float64(len(r.Items))), nil
	case "contains":
		if err := in.wantArgs(name, args, 1, pos); err != nil {
			return nil, err
		}
		for _, it := range r.Items {
			if value.Equal(it, args[0]) {
				return value.NewBool(true), nil
			}
		}
		return value.NewBool(false), nil
	case "index_of":
		if err := in.wantArgs(name, args, 1, pos); err != nil {
			return nil, err
		}
		for i, it := range r.Items {
			if value.Equal(it, args[0]) {
				return value.NewNumber(float64(i)), nil
			}
		}
		return value.NewNumber(-1), nil
	case "slice":
		if err := in.wantArgs(name, args, 2, pos); err != nil {
			return nil, err
		}
		lo, err := in.numberArg(name, args, 0, pos)
		if err != nil {
			return nil, err
		}
		hi, err := in.numberArg(name, args, 1, pos)
		if err != nil {
			return nil, err
		}
		a, b := int(lo), int(hi)
		if a < 0 || b > len(r.Items) || a > b {
			return nil, in.errAt(pos, diagnostics.EType,
				"slice range [%d, %d) out of bounds (length %d)", a, b, len(r.Items))
		}
		items := make([]value.Value, b-a)
		for i, it := range r.Items[a:b] {
			items[i] = value.Copy(it)
		}
		return value.NewArray(items), nil
	case "join":
		if err := in.wantArgs(name, args, 1, pos); err != nil {
			return nil, err
		}
		sep, err := in.stringArg(name, args, 0, pos)
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(r.Items))
		for i, it := range r.Items {
			parts[i] = value.Stringify(it)
		}
		return value.NewString(strings.Join(parts, sep)), nil
	case "sort":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		items := make([]value.Value, len(r.Items))
		for i, it := range r.Items {
			items[i] = value.Copy(it)
		}
		var sortErr error
		sort.SliceStable(items, func(i, j int) bool {
			cmp, ok, err := value.Compare(items[i], items[j])
			if err != nil && sortErr == nil {
				sortErr = err
			}
			return ok && cmp < 0
		})
		if sortErr != nil {
			return nil, in.located(sortErr, pos)
		}
		return value.NewArray(items), nil
	case "reverse":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		items := make([]value.Value, len(r.Items))
		for i, it := range r.Items {
			items[len(r.Items)-1-i] = value.Copy(it)
		}
		return value.NewArray(items), nil
	}
	return nil, in.errAt(pos, diagnostics.EType, "array has no method '%s'", name)
}

func (in *Interpreter) objectMethod(r value.Object, name string, args []value.Value, pos int) (value.Value, error) {
	switch name {
	case "keys":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		keys := r.Keys()
		items := make([]value.Value, len(keys))
		for i, k := range keys {
			items[i] = value.NewString(k)
		}
		return value.NewArray(items), nil
	case "values":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		items := make([]value.Value, len(r.Pairs))
		for i, p := range r.Pairs {
			items[i] = value.Copy(p.Value)
		}
		return value.NewArray(items), nil
	case "has":
		if err := in.wantArgs(name, args, 1, pos); err != nil {
			return nil, err
		}
		key, err := in.stringArg(name, args, 0, pos)
		if err != nil {
			return nil, err
		}
		_, found := r.Get(key)
		return value.NewBool(found), nil
	case "size":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		return value.NewNumber(float64(len(r.Pairs))), nil
	}
	return nil, in.errAt(pos, diagnostics.EType, "object has no method '%s'", name)
}

func (in *Interpreter) tensorMethod(r value.TensorVal, name string, args []value.Value, pos int) (value.Value, error) {
	t := r.T
	switch name {
	case "shape":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		dims := t.Shape()
		items := make([]value.Value, len(dims))
		for i, d := range dims {
			items[i] = value.NewNumber(float64(d))
		}
		return value.NewArray(items), nil
	case "size":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		return value.NewNumber(float64(t.Size())), nil
	case "sum":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		return value.NewNumber(t.Sum()), nil
	case "mean":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		return value.NewNumber(t.Mean()), nil
	case "norm":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		return value.NewNumber(t.Norm()), nil
	case "transpose":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		return value.NewTensorVal(t.Transpose()), nil
	case "clone":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		return value.NewTensorVal(t.Clone()), nil
	case "reshape":
		if len(args) == 0 {
			return nil, in.errAt(pos, diagnostics.EArity, "reshape() expects at least 1 dimension")
		}
		shape := make([]int, len(args))
		for i := range args {
			d, err := in.numberArg(name, args, i, pos)
			if err != nil {
				return nil, err
			}
			shape[i] = int(d)
		}
		out, err := t.Reshape(shape)
		if err != nil {
			return nil, in.located(err, pos)
		}
		return value.NewTensorVal(out), nil
	case "dot":
		if err := in.wantArgs(name, args, 1, pos); err != nil {
			return nil, err
		}
		other, ok := args[0].(value.TensorVal)
		if !ok {
			return nil, in.errAt(pos, diagnostics.EType,
				"dot() argument must be a tensor, got %s", value.TypeName(args[0]))
		}
		f, err := t.Dot(other.T)
		if err != nil {
			return nil, in.located(err, pos)
		}
		return value.NewNumber(f), nil
	case "matmul":
		if err := in.wantArgs(name, args, 1, pos); err != nil {
			return nil, err
		}
		other, ok := args[0].(value.TensorVal)
		if !ok {
			return nil, in.errAt(pos, diagnostics.EType,
				"matmul() argument must be a tensor, got %s", value.TypeName(args[0]))
		}
		out, err := t.MatMul(other.T)
		if err != nil {
			return nil, in.located(err, pos)
		}
		return value.NewTensorVal(out), nil
	case "apply":
		if err := in.wantArgs(name, args, 1, pos); err != nil {
			return nil, err
		}
		fn, ok := args[0].(value.Function)
		if !ok {
			return nil, in.errAt(pos, diagnostics.EType,
				"apply() argument must be a function, got %s", value.TypeName(args[0]))
		}
		var callErr error
		out := t.Apply(func(x float64) float64 {
			if callErr != nil {
				return x
			}
			res, err := in.callFunction(fn, []value.Value{value.NewNumber(x)}, pos)
			if err != nil {
				callErr = err
				return x
			}
			n, ok := res.(value.Number)
			if !ok {
				callErr = in.errAt(pos, diagnostics.EType,
					"apply() callback must return a number, got %s", value.TypeName(res))
				return x
			}
			return n.Value
		})
		if callErr != nil {
			return nil, callErr
		}
		return value.NewTensorVal(out), nil

	// in-place mutators
	case "fill":
		if err := in.wantArgs(name, args, 1, pos); err != nil {
			return nil, err
		}
		v, err := in.numberArg(name, args, 0, pos)
		if err != nil {
			return nil, err
		}
		t.Fill(v)
		return r, nil
	case "zero":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		t.Zero()
		return r, nil
	case "ones":
		if err := in.wantArgs(name, args, 0, pos); err != nil {
			return nil, err
		}
		t.Ones()
		return r, nil
	case "randomize":
		if err := in.wantArgs(name, args, 2, pos); err != nil {
			return nil, err
		}
		lo, err := in.numberArg(name, args, 0, pos)
		if err != nil {
			return nil, err
		}
		hi, err := in.numberArg(name, args, 1, pos)
		if err != nil {
			return nil, err
		}
		t.Randomize(in.rng, lo, hi)
		return r, nil
	}
	return nil, in.errAt(pos, diagnostics.EType, "tensor has no method '%s'", name)
}
