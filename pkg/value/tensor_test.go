package value

import (
	"math"
	"math/rand"
	"testing"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
)

func tensor(t *testing.T, shape []int, data []float64) *Tensor {
	t.Helper()
	ten, err := NewTensorData(shape, data)
	if err != nil {
		t.Fatalf("NewTensorData(%v) failed: %v", shape, err)
	}
	return ten
}

func wantShapeErr(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a shape error")
	}
	opErr, ok := err.(*OpError)
	if !ok {
		t.Fatalf("got %T, want *OpError", err)
	}
	if opErr.Code != diagnostics.EShape {
		t.Errorf("got code %s, want %s", opErr.Code, diagnostics.EShape)
	}
}

func TestNewTensorValidation(t *testing.T) {
	if _, err := NewTensor([]int{}); err == nil {
		t.Error("empty shape should fail")
	}
	if _, err := NewTensor([]int{2, 0}); err == nil {
		t.Error("zero dimension should fail")
	}
	if _, err := NewTensor([]int{2, -1}); err == nil {
		t.Error("negative dimension should fail")
	}
	if _, err := NewTensorData([]int{2, 2}, []float64{1, 2, 3}); err == nil {
		t.Error("data length must match the shape product")
	}

	ten, err := NewTensor([]int{3, 4})
	if err != nil {
		t.Fatalf("NewTensor failed: %v", err)
	}
	if ten.Size() != 12 {
		t.Errorf("Size = %d, want 12", ten.Size())
	}
}

func TestTensorFromRows(t *testing.T) {
	ten, err := TensorFromRows([][]float64{{1, 2}, {3, 4}, {5, 6}})
	if err != nil {
		t.Fatalf("TensorFromRows failed: %v", err)
	}
	if s := ten.Shape(); s[0] != 3 || s[1] != 2 {
		t.Errorf("Shape = %v, want [3 2]", s)
	}
	if _, err := TensorFromRows([][]float64{{1, 2}, {3}}); err == nil {
		t.Error("ragged rows should fail")
	}
	if _, err := TensorFromRows(nil); err == nil {
		t.Error("no rows should fail")
	}
}

func TestElementwiseOps(t *testing.T) {
	a := tensor(t, []int{2, 2}, []float64{1, 2, 3, 4})
	b := tensor(t, []int{2, 2}, []float64{5, 6, 7, 8})

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if got := sum.Data(); got[0] != 6 || got[3] != 12 {
		t.Errorf("Add = %v", got)
	}

	prod, err := a.MulElem(b)
	if err != nil {
		t.Fatalf("MulElem failed: %v", err)
	}
	if got := prod.Data(); got[0] != 5 || got[3] != 32 {
		t.Errorf("MulElem = %v", got)
	}

	// operands keep their data
	if a.Data()[0] != 1 || b.Data()[0] != 5 {
		t.Error("element-wise ops must not mutate their operands")
	}

	c := tensor(t, []int{3}, []float64{1, 2, 3})
	_, err = a.Add(c)
	wantShapeErr(t, err)
}

func TestMatMul(t *testing.T) {
	a := tensor(t, []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	b := tensor(t, []int{3, 2}, []float64{7, 8, 9, 10, 11, 12})

	out, err := a.MatMul(b)
	if err != nil {
		t.Fatalf("MatMul failed: %v", err)
	}
	if s := out.Shape(); s[0] != 2 || s[1] != 2 {
		t.Fatalf("Shape = %v, want [2 2]", s)
	}
	want := []float64{58, 64, 139, 154}
	for i, w := range want {
		if out.Data()[i] != w {
			t.Errorf("data[%d] = %g, want %g", i, out.Data()[i], w)
		}
	}

	// inner dimensions must agree
	_, err = a.MatMul(a)
	wantShapeErr(t, err)

	// 1-D operands are not matrices
	v := tensor(t, []int{3}, []float64{1, 2, 3})
	_, err = v.MatMul(b)
	wantShapeErr(t, err)
}

func TestDot(t *testing.T) {
	a := tensor(t, []int{3}, []float64{1, 2, 3})
	b := tensor(t, []int{3}, []float64{4, 5, 6})
	got, err := a.Dot(b)
	if err != nil {
		t.Fatalf("Dot failed: %v", err)
	}
	if got != 32 {
		t.Errorf("Dot = %g, want 32", got)
	}
	c := tensor(t, []int{2}, []float64{1, 2})
	_, err = a.Dot(c)
	wantShapeErr(t, err)
}

func TestTranspose2D(t *testing.T) {
	a := tensor(t, []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	tr := a.Transpose()
	if s := tr.Shape(); s[0] != 3 || s[1] != 2 {
		t.Fatalf("Shape = %v, want [3 2]", s)
	}
	want := []float64{1, 4, 2, 5, 3, 6}
	for i, w := range want {
		if tr.Data()[i] != w {
			t.Errorf("data[%d] = %g, want %g", i, tr.Data()[i], w)
		}
	}
}

func TestTransposeTwiceRestores(t *testing.T) {
	shapes := [][]int{{4}, {2, 3}, {2, 3, 4}, {2, 2, 2, 2}}
	rng := rand.New(rand.NewSource(1))
	for _, shape := range shapes {
		ten, err := NewTensor(shape)
		if err != nil {
			t.Fatalf("NewTensor(%v) failed: %v", shape, err)
		}
		ten.Randomize(rng, -1, 1)
		back := ten.Transpose().Transpose()
		if !ten.ElementsEqual(back) {
			t.Errorf("shape %v: double transpose changed the tensor", shape)
		}
		bs := back.Shape()
		for i := range shape {
			if bs[i] != shape[i] {
				t.Errorf("shape %v: double transpose changed shape to %v", shape, bs)
			}
		}
	}
}

func TestReshape(t *testing.T) {
	a := tensor(t, []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	r, err := a.Reshape([]int{3, 2})
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	// reshape preserves row-major element order
	for i, w := range []float64{1, 2, 3, 4, 5, 6} {
		if r.Data()[i] != w {
			t.Errorf("data[%d] = %g, want %g", i, r.Data()[i], w)
		}
	}
	// reshaped tensor has its own storage
	if err := r.SetFlat(0, 99); err != nil {
		t.Fatalf("SetFlat failed: %v", err)
	}
	if a.Data()[0] != 1 {
		t.Error("reshape must copy the data")
	}

	_, err = a.Reshape([]int{4, 2})
	wantShapeErr(t, err)
}

func TestIndexing(t *testing.T) {
	a := tensor(t, []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	got, err := a.At(1, 2)
	if err != nil {
		t.Fatalf("At failed: %v", err)
	}
	if got != 6 {
		t.Errorf("At(1,2) = %g, want 6", got)
	}
	if err := a.Set(42, 0, 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if a.Data()[1] != 42 {
		t.Error("Set did not write the expected slot")
	}
	if _, err := a.At(2, 0); err == nil {
		t.Error("out of range index should fail")
	}
	if _, err := a.At(0); err == nil {
		t.Error("wrong index arity should fail")
	}
}

func TestInPlaceOps(t *testing.T) {
	a := tensor(t, []int{2, 2}, []float64{1, 2, 3, 4})
	a.Fill(7)
	for _, v := range a.Data() {
		if v != 7 {
			t.Fatalf("Fill left %g", v)
		}
	}
	a.Zero()
	if a.Sum() != 0 {
		t.Error("Zero did not clear the tensor")
	}
	a.Ones()
	if a.Sum() != 4 {
		t.Error("Ones did not fill with 1")
	}

	rng := rand.New(rand.NewSource(7))
	a.Randomize(rng, -2, 2)
	for _, v := range a.Data() {
		if v < -2 || v >= 2 {
			t.Errorf("Randomize produced %g outside [-2, 2)", v)
		}
	}
}

func TestReductions(t *testing.T) {
	a := tensor(t, []int{2, 2}, []float64{1, 2, 3, 4})
	if a.Sum() != 10 {
		t.Errorf("Sum = %g, want 10", a.Sum())
	}
	if a.Mean() != 2.5 {
		t.Errorf("Mean = %g, want 2.5", a.Mean())
	}
	if got := a.Norm(); math.Abs(got-math.Sqrt(30)) > 1e-12 {
		t.Errorf("Norm = %g, want sqrt(30)", got)
	}
}

func TestScaleAndApply(t *testing.T) {
	a := tensor(t, []int{2}, []float64{1, 2})
	s := a.Scale(10)
	if s.Data()[0] != 10 || s.Data()[1] != 20 {
		t.Errorf("Scale = %v", s.Data())
	}
	sq := a.Apply(func(x float64) float64 { return x * x })
	if sq.Data()[0] != 1 || sq.Data()[1] != 4 {
		t.Errorf("Apply = %v", sq.Data())
	}
	if a.Data()[0] != 1 {
		t.Error("Scale/Apply must not mutate the receiver")
	}
}

func TestClone(t *testing.T) {
	a := tensor(t, []int{2}, []float64{1, 2})
	c := a.Clone()
	if err := c.SetFlat(0, 9); err != nil {
		t.Fatalf("SetFlat failed: %v", err)
	}
	if a.Data()[0] != 1 {
		t.Error("Clone shares storage with the original")
	}
}

func TestTensorString(t *testing.T) {
	m := tensor(t, []int{2, 2}, []float64{1, 2, 3, 4})
	if got := m.String(); got != "[[1, 2], [3, 4]]" {
		t.Errorf("String = %q", got)
	}
	v := tensor(t, []int{3}, []float64{1, 2, 3})
	if got := v.String(); got != "tensor(shape=[3], [1, 2, 3])" {
		t.Errorf("String = %q", got)
	}
}
