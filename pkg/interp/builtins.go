package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
	"github.com/MatN23/Nexus-Lang/pkg/nn"
	"github.com/MatN23/Nexus-Lang/pkg/value"
)

func opErr(code, format string, args ...any) error {
	return &value.OpError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func typeErrf(format string, args ...any) error {
	return opErr(diagnostics.EType, format, args...)
}

func wantNumber(fn string, args []value.Value, i int) (float64, error) {
	n, ok := args[i].(value.Number)
	if !ok {
		return 0, typeErrf("%s() argument %d must be a number, got %s", fn, i+1, value.TypeName(args[i]))
	}
	return n.Value, nil
}

func wantString(fn string, args []value.Value, i int) (string, error) {
	s, ok := args[i].(value.String)
	if !ok {
		return "", typeErrf("%s() argument %d must be a string, got %s", fn, i+1, value.TypeName(args[i]))
	}
	return s.Value, nil
}

// installBuiltins defines the native functions in the global scope.
// They are ordinary constant bindings; user code can shadow them in
// inner scopes but not reassign the globals.
func (in *Interpreter) installBuiltins() {
	define := func(name string, nargs int, fn func([]value.Value) (value.Value, error)) {
		native := value.NewFunction(&value.Native{FnName: name, NArgs: nargs, Fn: fn})
		// Defining into a fresh global scope cannot fail.
		_ = in.globals.Define(name, native, true)
	}

	// --- I/O ---

	define("print", -1, func(args []value.Value) (value.Value, error) {
		in.printArgs(args)
		return value.NewNil(), nil
	})
	define("println", -1, func(args []value.Value) (value.Value, error) {
		in.printArgs(args)
		fmt.Fprintln(in.stdout)
		return value.NewNil(), nil
	})

	// --- introspection and conversion ---

	define("type", 1, func(args []value.Value) (value.Value, error) {
		return value.NewString(value.TypeName(args[0])), nil
	})
	define("len", 1, func(args []value.Value) (value.Value, error) {
		switch v := args[0].(type) {
		case value.String:
			return value.NewNumber(float64(len([]rune(v.Value)))), nil
		case value.Array:
			return value.NewNumber(float64(len(v.Items))), nil
		case value.Object:
			return value.NewNumber(float64(len(v.Pairs))), nil
		case value.TensorVal:
			return value.NewNumber(float64(v.T.Size())), nil
		}
		return nil, typeErrf("len() does not apply to %s", value.TypeName(args[0]))
	})
	define("str", 1, func(args []value.Value) (value.Value, error) {
		return value.NewString(value.Stringify(args[0])), nil
	})
	define("num", 1, func(args []value.Value) (value.Value, error) {
		switch v := args[0].(type) {
		case value.Number:
			return v, nil
		case value.Bool:
			if v.Value {
				return value.NewNumber(1), nil
			}
			return value.NewNumber(0), nil
		case value.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
			if err != nil {
				return nil, typeErrf("num() cannot parse '%s'", v.Value)
			}
			return value.NewNumber(f), nil
		}
		return nil, typeErrf("num() does not apply to %s", value.TypeName(args[0]))
	})
	define("bool", 1, func(args []value.Value) (value.Value, error) {
		return value.NewBool(value.Truthy(args[0])), nil
	})

	// --- math ---

	mathFn := func(name string, f func(float64) float64) {
		define(name, 1, func(args []value.Value) (value.Value, error) {
			x, err := wantNumber(name, args, 0)
			if err != nil {
				return nil, err
			}
			return value.NewNumber(f(x)), nil
		})
	}
	mathFn("abs", math.Abs)
	mathFn("floor", math.Floor)
	mathFn("ceil", math.Ceil)
	mathFn("round", math.Round)
	mathFn("exp", math.Exp)
	mathFn("sin", math.Sin)
	mathFn("cos", math.Cos)

	define("sqrt", 1, func(args []value.Value) (value.Value, error) {
		x, err := wantNumber("sqrt", args, 0)
		if err != nil {
			return nil, err
		}
		if x < 0 {
			return nil, opErr(diagnostics.EArith, "sqrt() of negative number %g", x)
		}
		return value.NewNumber(math.Sqrt(x)), nil
	})
	define("log", 1, func(args []value.Value) (value.Value, error) {
		x, err := wantNumber("log", args, 0)
		if err != nil {
			return nil, err
		}
		if x <= 0 {
			return nil, opErr(diagnostics.EArith, "log() of non-positive number %g", x)
		}
		return value.NewNumber(math.Log(x)), nil
	})
	define("pow", 2, func(args []value.Value) (value.Value, error) {
		return value.Pow(args[0], args[1])
	})
	define("min", -1, func(args []value.Value) (value.Value, error) {
		return foldNumbers("min", args, math.Min)
	})
	define("max", -1, func(args []value.Value) (value.Value, error) {
		return foldNumbers("max", args, math.Max)
	})
	define("random", 0, func(args []value.Value) (value.Value, error) {
		return value.NewNumber(in.rng.Float64()), nil
	})
	define("clock", 0, func(args []value.Value) (value.Value, error) {
		return value.NewNumber(float64(time.Now().UnixNano()) / 1e9), nil
	})

	// --- containers ---

	define("range", -1, func(args []value.Value) (value.Value, error) {
		return buildRange(args)
	})
	define("push", 2, func(args []value.Value) (value.Value, error) {
		arr, ok := args[0].(value.Array)
		if !ok {
			return nil, typeErrf("push() argument 1 must be an array, got %s", value.TypeName(args[0]))
		}
		items := make([]value.Value, len(arr.Items)+1)
		for i, it := range arr.Items {
			items[i] = value.Copy(it)
		}
		items[len(arr.Items)] = value.Copy(args[1])
		return value.NewArray(items), nil
	})
	define("pop", 1, func(args []value.Value) (value.Value, error) {
		arr, ok := args[0].(value.Array)
		if !ok {
			return nil, typeErrf("pop() argument must be an array, got %s", value.TypeName(args[0]))
		}
		if len(arr.Items) == 0 {
			return nil, typeErrf("pop() from empty array")
		}
		items := make([]value.Value, len(arr.Items)-1)
		for i := range items {
			items[i] = value.Copy(arr.Items[i])
		}
		return value.NewArray(items), nil
	})
	define("keys", 1, func(args []value.Value) (value.Value, error) {
		obj, ok := args[0].(value.Object)
		if !ok {
			return nil, typeErrf("keys() argument must be an object, got %s", value.TypeName(args[0]))
		}
		ks := obj.Keys()
		items := make([]value.Value, len(ks))
		for i, k := range ks {
			items[i] = value.NewString(k)
		}
		return value.NewArray(items), nil
	})
	define("values", 1, func(args []value.Value) (value.Value, error) {
		obj, ok := args[0].(value.Object)
		if !ok {
			return nil, typeErrf("values() argument must be an object, got %s", value.TypeName(args[0]))
		}
		items := make([]value.Value, len(obj.Pairs))
		for i, p := range obj.Pairs {
			items[i] = value.Copy(p.Value)
		}
		return value.NewArray(items), nil
	})
	define("has", 2, func(args []value.Value) (value.Value, error) {
		obj, ok := args[0].(value.Object)
		if !ok {
			return nil, typeErrf("has() argument 1 must be an object, got %s", value.TypeName(args[0]))
		}
		key, err := wantString("has", args, 1)
		if err != nil {
			return nil, err
		}
		_, found := obj.Get(key)
		return value.NewBool(found), nil
	})

	// --- serialization ---

	define("serialize", 1, func(args []value.Value) (value.Value, error) {
		s, err := value.Serialize(args[0])
		if err != nil {
			return nil, err
		}
		return value.NewString(s), nil
	})
	define("deserialize", 1, func(args []value.Value) (value.Value, error) {
		s, err := wantString("deserialize", args, 0)
		if err != nil {
			return nil, err
		}
		return value.Deserialize(s)
	})

	// --- tensor constructors ---

	define("zeros", -1, func(args []value.Value) (value.Value, error) {
		return tensorCtor("zeros", args, func(t *value.Tensor) { t.Zero() })
	})
	define("ones", -1, func(args []value.Value) (value.Value, error) {
		return tensorCtor("ones", args, func(t *value.Tensor) { t.Ones() })
	})
	define("rand_tensor", -1, func(args []value.Value) (value.Value, error) {
		return tensorCtor("rand_tensor", args, func(t *value.Tensor) { t.Randomize(in.rng, 0, 1) })
	})
	define("tensor_of", 1, func(args []value.Value) (value.Value, error) {
		t, err := tensorFromValue(args[0])
		if err != nil {
			return nil, err
		}
		return value.NewTensorVal(t), nil
	})

	// --- models ---

	define("train", -1, func(args []value.Value) (value.Value, error) {
		return in.builtinTrain(args)
	})
	define("predict", 2, func(args []value.Value) (value.Value, error) {
		return in.builtinPredict(args)
	})
	define("save_model", 2, func(args []value.Value) (value.Value, error) {
		name, err := wantString("save_model", args, 0)
		if err != nil {
			return nil, err
		}
		path, err := wantString("save_model", args, 1)
		if err != nil {
			return nil, err
		}
		if err := in.models.Save(name, path); err != nil {
			return nil, err
		}
		return value.NewNil(), nil
	})
	define("load_model", 2, func(args []value.Value) (value.Value, error) {
		name, err := wantString("load_model", args, 0)
		if err != nil {
			return nil, err
		}
		path, err := wantString("load_model", args, 1)
		if err != nil {
			return nil, err
		}
		if err := in.models.Load(name, path); err != nil {
			return nil, err
		}
		return value.NewNil(), nil
	})
	define("models", 0, func(args []value.Value) (value.Value, error) {
		names := in.models.Names()
		items := make([]value.Value, len(names))
		for i, n := range names {
			items[i] = value.NewString(n)
		}
		return value.NewArray(items), nil
	})
	define("model_summary", 1, func(args []value.Value) (value.Value, error) {
		name, err := wantString("model_summary", args, 0)
		if err != nil {
			return nil, err
		}
		s, err := in.models.Summary(name)
		if err != nil {
			return nil, err
		}
		return value.NewString(s), nil
	})
}

func (in *Interpreter) printArgs(args []value.Value) {
	for i, a := range args {
		if i > 0 {
			fmt.Fprint(in.stdout, " ")
		}
		fmt.Fprint(in.stdout, value.Stringify(a))
	}
}

func foldNumbers(fn string, args []value.Value, f func(a, b float64) float64) (value.Value, error) {
	if len(args) == 0 {
		return nil, opErr(diagnostics.EArity, "%s() expects at least 1 argument", fn)
	}
	acc, err := wantNumber(fn, args, 0)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(args); i++ {
		x, err := wantNumber(fn, args, i)
		if err != nil {
			return nil, err
		}
		acc = f(acc, x)
	}
	return value.NewNumber(acc), nil
}

// buildRange implements range(stop), range(start, stop) and
// range(start, stop, step).
func buildRange(args []value.Value) (value.Value, error) {
	if len(args) < 1 || len(args) > 3 {
		return nil, opErr(diagnostics.EArity, "range() expects 1 to 3 arguments, got %d", len(args))
	}
	nums := make([]float64, len(args))
	for i := range args {
		x, err := wantNumber("range", args, i)
		if err != nil {
			return nil, err
		}
		nums[i] = x
	}
	start, stop, step := 0.0, nums[0], 1.0
	if len(args) >= 2 {
		start, stop = nums[0], nums[1]
	}
	if len(args) == 3 {
		step = nums[2]
	}
	if step == 0 {
		return nil, opErr(diagnostics.EArith, "range() step must not be zero")
	}
	var items []value.Value
	if step > 0 {
		for x := start; x < stop; x += step {
			items = append(items, value.NewNumber(x))
		}
	} else {
		for x := start; x > stop; x += step {
			items = append(items, value.NewNumber(x))
		}
	}
	return value.NewArray(items), nil
}

func tensorCtor(fn string, args []value.Value, init func(*value.Tensor)) (value.Value, error) {
	if len(args) == 0 {
		return nil, opErr(diagnostics.EArity, "%s() expects at least 1 dimension", fn)
	}
	shape := make([]int, len(args))
	for i := range args {
		x, err := wantNumber(fn, args, i)
		if err != nil {
			return nil, err
		}
		if x <= 0 || x != math.Trunc(x) {
			return nil, opErr(diagnostics.EShape, "%s() dimensions must be positive integers", fn)
		}
		shape[i] = int(x)
	}
	t, err := value.NewTensor(shape)
	if err != nil {
		return nil, err
	}
	init(t)
	return value.NewTensorVal(t), nil
}

// rowsFromValue converts a 2-D tensor or an array of numeric rows into
// per-sample slices for the ML subsystem.
func rowsFromValue(fn string, v value.Value) ([][]float64, error) {
	if tv, ok := v.(value.TensorVal); ok {
		if tv.T.Dims() != 2 {
			return nil, opErr(diagnostics.EShape, "%s() needs a 2-D tensor, got %d dimensions", fn, tv.T.Dims())
		}
		shape := tv.T.Shape()
		rows := make([][]float64, shape[0])
		data := tv.T.Data()
		for i := range rows {
			rows[i] = append([]float64(nil), data[i*shape[1]:(i+1)*shape[1]]...)
		}
		return rows, nil
	}
	arr, ok := v.(value.Array)
	if !ok {
		return nil, typeErrf("%s() needs a tensor or array of rows, got %s", fn, value.TypeName(v))
	}
	rows := make([][]float64, len(arr.Items))
	for i, it := range arr.Items {
		row, err := vectorFromValue(fn, it)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

func vectorFromValue(fn string, v value.Value) ([]float64, error) {
	if tv, ok := v.(value.TensorVal); ok {
		if tv.T.Dims() != 1 {
			return nil, opErr(diagnostics.EShape, "%s() needs a 1-D tensor, got %d dimensions", fn, tv.T.Dims())
		}
		return append([]float64(nil), tv.T.Data()...), nil
	}
	arr, ok := v.(value.Array)
	if !ok {
		return nil, typeErrf("%s() needs an array of numbers, got %s", fn, value.TypeName(v))
	}
	out := make([]float64, len(arr.Items))
	for i, it := range arr.Items {
		n, ok := it.(value.Number)
		if !ok {
			return nil, typeErrf("%s() values must be numbers, got %s", fn, value.TypeName(it))
		}
		out[i] = n.Value
	}
	return out, nil
}

// builtinTrain handles train(model, inputs, targets) with an optional
// fourth options object: learning_rate, epochs, batch_size, activation,
// shuffle. It returns the training history as an object.
func (in *Interpreter) builtinTrain(args []value.Value) (value.Value, error) {
	if len(args) < 3 || len(args) > 4 {
		return nil, opErr(diagnostics.EArity, "train() expects 3 or 4 arguments, got %d", len(args))
	}
	name, err := wantString("train", args, 0)
	if err != nil {
		return nil, err
	}
	inputs, err := rowsFromValue("train", args[1])
	if err != nil {
		return nil, err
	}
	targets, err := rowsFromValue("train", args[2])
	if err != nil {
		return nil, err
	}

	cfg := nn.DefaultConfig()
	if len(args) == 4 {
		opts, ok := args[3].(value.Object)
		if !ok {
			return nil, typeErrf("train() options must be an object, got %s", value.TypeName(args[3]))
		}
		if cfg, err = trainConfig(opts); err != nil {
			return nil, err
		}
	}

	hist, err := in.models.Train(name, inputs, targets, cfg)
	if err != nil {
		return nil, err
	}

	losses := make([]value.Value, len(hist.Losses))
	for i, l := range hist.Losses {
		losses[i] = value.NewNumber(l)
	}
	return value.NewObject([]value.Pair{
		{Key: "epochs", Value: value.NewNumber(float64(hist.Epochs))},
		{Key: "final_loss", Value: value.NewNumber(hist.FinalLoss)},
		{Key: "losses", Value: value.NewArray(losses)},
		{Key: "duration_ms", Value: value.NewNumber(float64(hist.Duration.Milliseconds()))},
	}), nil
}

func trainConfig(opts value.Object) (nn.Config, error) {
	cfg := nn.DefaultConfig()
	for _, p := range opts.Pairs {
		switch p.Key {
		case "learning_rate":
			n, ok := p.Value.(value.Number)
			if !ok {
				return cfg, typeErrf("train() option 'learning_rate' must be a number")
			}
			cfg.LearningRate = n.Value
		case "epochs":
			n, ok := p.Value.(value.Number)
			if !ok {
				return cfg, typeErrf("train() option 'epochs' must be a number")
			}
			cfg.Epochs = int(n.Value)
		case "batch_size":
			n, ok := p.Value.(value.Number)
			if !ok {
				return cfg, typeErrf("train() option 'batch_size' must be a number")
			}
			cfg.BatchSize = int(n.Value)
		case "activation":
			s, ok := p.Value.(value.String)
			if !ok {
				return cfg, typeErrf("train() option 'activation' must be a string")
			}
			cfg.Activation = s.Value
		case "shuffle":
			b, ok := p.Value.(value.Bool)
			if !ok {
				return cfg, typeErrf("train() option 'shuffle' must be a boolean")
			}
			cfg.Shuffle = b.Value
		default:
			return cfg, typeErrf("train() has no option '%s'", p.Key)
		}
	}
	return cfg, nil
}

func (in *Interpreter) builtinPredict(args []value.Value) (value.Value, error) {
	name, err := wantString("predict", args, 0)
	if err != nil {
		return nil, err
	}
	input, err := vectorFromValue("predict", args[1])
	if err != nil {
		return nil, err
	}
	out, err := in.models.Predict(name, input)
	if err != nil {
		return nil, err
	}
	items := make([]value.Value, len(out))
	for i, f := range out {
		items[i] = value.NewNumber(f)
	}
	return value.NewArray(items), nil
}
