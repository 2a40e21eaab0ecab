package value

import (
	"math"
	"testing"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
)

func num(f float64) Value { return NewNumber(f) }
func str(s string) Value  { return NewString(s) }

func mustTensor(t *testing.T, shape []int, data []float64) Value {
	t.Helper()
	ten, err := NewTensorData(shape, data)
	if err != nil {
		t.Fatalf("NewTensorData failed: %v", err)
	}
	return NewTensorVal(ten)
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil", NewNil(), false},
		{"false", NewBool(false), false},
		{"true", NewBool(true), true},
		{"zero", num(0), false},
		{"nonzero", num(0.5), true},
		{"negative", num(-1), true},
		{"empty string", str(""), false},
		{"string", str("x"), true},
		{"empty array", NewArray(nil), false},
		{"array", NewArray([]Value{num(1)}), true},
		{"empty object", NewObject(nil), false},
		{"object", NewObject([]Pair{{Key: "a", Value: num(1)}}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truthy(tt.v); got != tt.want {
				t.Errorf("Truthy = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	shared := NewArray([]Value{num(1), num(2)})
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nils", NewNil(), NewNil(), true},
		{"nil vs zero", NewNil(), num(0), false},
		{"numbers", num(2), num(2), true},
		{"numbers differ", num(2), num(3), false},
		{"bool vs number", NewBool(true), num(1), false},
		{"strings", str("ab"), str("ab"), true},
		{"arrays structural", NewArray([]Value{num(1), num(2)}), NewArray([]Value{num(1), num(2)}), true},
		{"arrays differ", NewArray([]Value{num(1)}), NewArray([]Value{num(2)}), false},
		{"array with itself", shared, shared, true},
		{"objects structural",
			NewObject([]Pair{{Key: "a", Value: num(1)}}),
			NewObject([]Pair{{Key: "a", Value: num(1)}}),
			true},
		{"objects key order matters for content not order",
			NewObject([]Pair{{Key: "a", Value: num(1)}, {Key: "b", Value: num(2)}}),
			NewObject([]Pair{{Key: "b", Value: num(2)}, {Key: "a", Value: num(1)}}),
			true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTensorEqualityIsIdentity(t *testing.T) {
	a := mustTensor(t, []int{2}, []float64{1, 2})
	b := mustTensor(t, []int{2}, []float64{1, 2})
	if Equal(a, b) {
		t.Error("distinct tensors with equal elements must not be Equal")
	}
	if !Equal(a, a) {
		t.Error("a tensor must equal itself")
	}
}

func TestCopySemantics(t *testing.T) {
	orig := NewArray([]Value{num(1), NewArray([]Value{num(2)})})
	copied := Copy(orig).(Array)
	copied.Items[0] = num(99)
	copied.Items[1].(Array).Items[0] = num(98)
	if orig.(Array).Items[0].(Number).Value != 1 {
		t.Error("copy shares top-level storage with original")
	}
	if orig.(Array).Items[1].(Array).Items[0].(Number).Value != 2 {
		t.Error("copy shares nested storage with original")
	}

	// tensors share on copy
	tv := mustTensor(t, []int{2}, []float64{1, 2})
	shared := Copy(tv).(TensorVal)
	if shared.T != tv.(TensorVal).T {
		t.Error("tensor copy must share the underlying allocation")
	}
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want string
	}{
		{"numbers", num(2), num(3), "5"},
		{"strings", str("ab"), str("cd"), "abcd"},
		{"string plus number", str("a"), num(1), "a1"},
		{"number plus string", num(1), str("a"), "1a"},
		{"string plus bool", str("is "), NewBool(true), "is true"},
		{"string plus nil", str("x="), NewNil(), "x=nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Add(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			if s := Stringify(got); s != tt.want {
				t.Errorf("got %q, want %q", s, tt.want)
			}
		})
	}

	if _, err := Add(num(1), NewNil()); err == nil {
		t.Error("number + nil should fail")
	}
}

func TestDivByZero(t *testing.T) {
	_, err := Div(num(1), num(0))
	if err == nil {
		t.Fatal("expected an error")
	}
	opErr, ok := err.(*OpError)
	if !ok {
		t.Fatalf("got %T, want *OpError", err)
	}
	if opErr.Code != diagnostics.EArith {
		t.Errorf("got code %s, want %s", opErr.Code, diagnostics.EArith)
	}

	if _, err := Mod(num(5), num(0)); err == nil {
		t.Error("modulo by zero should fail")
	}
}

func TestCompare(t *testing.T) {
	cmp, ok, err := Compare(num(1), num(2))
	if err != nil || !ok || cmp >= 0 {
		t.Errorf("Compare(1,2) = %d, %v, %v", cmp, ok, err)
	}
	cmp, ok, err = Compare(str("a"), str("b"))
	if err != nil || !ok || cmp >= 0 {
		t.Errorf("Compare(a,b) = %d, %v, %v", cmp, ok, err)
	}
	if _, _, err := Compare(num(1), str("a")); err == nil {
		t.Error("comparing number with string should fail")
	}
	// NaN is unordered, not an error
	if _, ok, err := Compare(num(math.NaN()), num(1)); err != nil || ok {
		t.Errorf("NaN comparison: ok=%v err=%v, want unordered without error", ok, err)
	}
}

func TestBitOps(t *testing.T) {
	tests := []struct {
		op   string
		a, b float64
		want float64
	}{
		{"&", 12, 10, 8},
		{"|", 12, 10, 14},
		{"^", 12, 10, 6},
		{"<<", 1, 4, 16},
		{">>", 16, 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			got, err := BitOp(tt.op, num(tt.a), num(tt.b))
			if err != nil {
				t.Fatalf("BitOp failed: %v", err)
			}
			if got.(Number).Value != tt.want {
				t.Errorf("got %g, want %g", got.(Number).Value, tt.want)
			}
		})
	}

	if _, err := BitOp("&", num(1.5), num(1)); err == nil {
		t.Error("bitwise op on a fractional number should fail")
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"nil", NewNil(), "nil"},
		{"integer-valued number", num(14), "14"},
		{"fractional", num(3.5), "3.5"},
		{"plain string", str("hi"), "hi"},
		{"array quotes nested strings", NewArray([]Value{num(1), str("a")}), `[1, "a"]`},
		{"object", NewObject([]Pair{{Key: "k", Value: str("v")}}), `{k: "v"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stringify(tt.v); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObjectOrderAndIndex(t *testing.T) {
	obj := NewObject([]Pair{
		{Key: "b", Value: num(1)},
		{Key: "a", Value: num(2)},
		{Key: "c", Value: num(3)},
	}).(Object)

	keys := obj.Keys()
	want := []string{"b", "a", "c"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want insertion order %v", keys, want)
		}
	}
	if v, ok := obj.Get("a"); !ok || v.(Number).Value != 2 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if _, ok := obj.Get("missing"); ok {
		t.Error("Get(missing) should report not found")
	}
}

func TestHashConsistentWithEqual(t *testing.T) {
	a := NewObject([]Pair{{Key: "x", Value: num(1)}, {Key: "y", Value: num(2)}})
	b := NewObject([]Pair{{Key: "y", Value: num(2)}, {Key: "x", Value: num(1)}})
	if !Equal(a, b) {
		t.Fatal("objects with same pairs must be Equal")
	}
	if Hash(a) != Hash(b) {
		t.Error("Equal values must hash identically")
	}
}

func TestMulScalarTensor(t *testing.T) {
	tv := mustTensor(t, []int{2}, []float64{1, 2})
	out, err := Mul(tv, num(3))
	if err != nil {
		t.Fatalf("Mul failed: %v", err)
	}
	data := out.(TensorVal).T.Data()
	if data[0] != 3 || data[1] != 6 {
		t.Errorf("got %v, want [3 6]", data)
	}
	// scalar * tensor commutes
	out2, err := Mul(num(3), tv)
	if err != nil {
		t.Fatalf("Mul failed: %v", err)
	}
	if !out.(TensorVal).T.ElementsEqual(out2.(TensorVal).T) {
		t.Error("3*t and t*3 must agree")
	}
}
