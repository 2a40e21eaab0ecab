package value

import (
	"testing"
)

func TestSerializeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"nil", NewNil(), "null"},
		{"bool", NewBool(true), "true"},
		{"number", NewNumber(3.5), "3.5"},
		{"string", NewString("hi\n"), `"hi\n"`},
		{"array", NewArray([]Value{NewNumber(1), NewString("a"), NewNil()}), `[1,"a",null]`},
		{"object",
			NewObject([]Pair{{Key: "b", Value: NewNumber(1)}, {Key: "a", Value: NewNumber(2)}}),
			`{"b":1,"a":2}`},
		{"nested",
			NewObject([]Pair{{Key: "xs", Value: NewArray([]Value{NewBool(false)})}}),
			`{"xs":[false]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Serialize(tt.v)
			if err != nil {
				t.Fatalf("Serialize failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Serialize = %q, want %q", got, tt.want)
			}
			back, err := Deserialize(got)
			if err != nil {
				t.Fatalf("Deserialize failed: %v", err)
			}
			if !Equal(tt.v, back) {
				t.Errorf("round trip changed the value: %s -> %s", Stringify(tt.v), Stringify(back))
			}
		})
	}
}

func TestSerializePreservesKeyOrder(t *testing.T) {
	obj := NewObject([]Pair{
		{Key: "z", Value: NewNumber(1)},
		{Key: "a", Value: NewNumber(2)},
		{Key: "m", Value: NewNumber(3)},
	})
	s, err := Serialize(obj)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	back, err := Deserialize(s)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	backObj := back.(Object)
	keys := backObj.Keys()
	want := []string{"z", "a", "m"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}

func TestSerializeTensor(t *testing.T) {
	ten, err := NewTensorData([]int{2, 2}, []float64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("NewTensorData failed: %v", err)
	}
	s, err := Serialize(NewTensorVal(ten))
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if s != `{"__tensor__":{"shape":[2,2],"data":[1,2,3,4]}}` {
		t.Errorf("Serialize = %q", s)
	}

	back, err := Deserialize(s)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	tv, ok := back.(TensorVal)
	if !ok {
		t.Fatalf("got %s, want tensor", TypeName(back))
	}
	if !tv.T.ElementsEqual(ten) {
		t.Error("round trip changed tensor elements")
	}
	if s := tv.T.Shape(); s[0] != 2 || s[1] != 2 {
		t.Errorf("round trip changed shape to %v", s)
	}
}

func TestSerializeFunctionFails(t *testing.T) {
	fn := NewFunction(&Native{FnName: "f", NArgs: 0, Fn: func([]Value) (Value, error) {
		return NewNil(), nil
	}})
	if _, err := Serialize(fn); err == nil {
		t.Fatal("functions must not serialize")
	}
	// and not even when nested
	if _, err := Serialize(NewArray([]Value{fn})); err == nil {
		t.Fatal("nested functions must not serialize")
	}
}

func TestDeserializeErrors(t *testing.T) {
	for _, bad := range []string{"", "{", `{"a":}`, "1 2", `[1,]`} {
		if _, err := Deserialize(bad); err == nil {
			t.Errorf("Deserialize(%q) should fail", bad)
		}
	}
}

func TestDeserializePlainJSON(t *testing.T) {
	// input produced by other tools, not by Serialize
	v, err := Deserialize(`{"n": 1.5, "list": [true, null, "s"]}`)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	obj := v.(Object)
	n, _ := obj.Get("n")
	if n.(Number).Value != 1.5 {
		t.Errorf("n = %v", n)
	}
	list, _ := obj.Get("list")
	if len(list.(Array).Items) != 3 {
		t.Errorf("list = %v", Stringify(list))
	}
}
