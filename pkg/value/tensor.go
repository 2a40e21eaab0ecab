package value

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
)

// Tensor is a shaped, flat-stored numeric array. The invariant
// len(data) == product(shape) holds for every constructed tensor.
// Arithmetic, Transpose and Reshape return new tensors; only Fill,
// Zero, Ones and Randomize mutate in place.
type Tensor struct {
	shape []int
	data  []float64
}

func shapeErr(format string, args ...any) error {
	return &OpError{Code: diagnostics.EShape, Message: fmt.Sprintf(format, args...)}
}

func shapeSize(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, shapeErr("tensor shape must not be empty")
	}
	size := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, shapeErr("tensor dimensions must be positive, got %d", d)
		}
		size *= d
	}
	return size, nil
}

// NewTensor creates a zero-filled tensor with the given shape.
func NewTensor(shape []int) (*Tensor, error) {
	size, err := shapeSize(shape)
	if err != nil {
		return nil, err
	}
	return &Tensor{
		shape: append([]int(nil), shape...),
		data:  make([]float64, size),
	}, nil
}

// NewTensorData creates a tensor from a shape and flat storage. The
// storage length must equal the product of the shape.
func NewTensorData(shape []int, data []float64) (*Tensor, error) {
	size, err := shapeSize(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, shapeErr("shape %v requires %d elements, got %d", shape, size, len(data))
	}
	return &Tensor{
		shape: append([]int(nil), shape...),
		data:  append([]float64(nil), data...),
	}, nil
}

// TensorFromRows creates a 2-D tensor from row slices, which must all
// have the same length.
func TensorFromRows(rows [][]float64) (*Tensor, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, shapeErr("matrix must have at least one row and column")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		if len(row) != cols {
			return nil, shapeErr("matrix rows have unequal lengths: %d and %d", cols, len(row))
		}
		data = append(data, row...)
	}
	return &Tensor{shape: []int{len(rows), cols}, data: data}, nil
}

// Shape returns a copy of the dimension sizes.
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Dims returns the number of dimensions.
func (t *Tensor) Dims() int { return len(t.shape) }

// Size returns the total element count.
func (t *Tensor) Size() int { return len(t.data) }

// Data returns the flat storage. Callers must not resize it.
func (t *Tensor) Data() []float64 { return t.data }

// AtFlat reads the element at a flat index.
func (t *Tensor) AtFlat(i int) (float64, error) {
	if i < 0 || i >= len(t.data) {
		return 0, shapeErr("tensor index %d out of range [0, %d)", i, len(t.data))
	}
	return t.data[i], nil
}

// SetFlat writes the element at a flat index.
func (t *Tensor) SetFlat(i int, v float64) error {
	if i < 0 || i >= len(t.data) {
		return shapeErr("tensor index %d out of range [0, %d)", i, len(t.data))
	}
	t.data[i] = v
	return nil
}

func (t *Tensor) flatIndex(indices []int) (int, error) {
	if len(indices) != len(t.shape) {
		return 0, shapeErr("expected %d indices, got %d", len(t.shape), len(indices))
	}
	idx := 0
	for i, ix := range indices {
		if ix < 0 || ix >= t.shape[i] {
			return 0, shapeErr("index %d out of range for dimension %d of size %d", ix, i, t.shape[i])
		}
		idx = idx*t.shape[i] + ix
	}
	return idx, nil
}

// At reads the element at multi-dimensional indices.
func (t *Tensor) At(indices ...int) (float64, error) {
	idx, err := t.flatIndex(indices)
	if err != nil {
		return 0, err
	}
	return t.data[idx], nil
}

// Set writes the element at multi-dimensional indices.
func (t *Tensor) Set(v float64, indices ...int) error {
	idx, err := t.flatIndex(indices)
	if err != nil {
		return err
	}
	t.data[idx] = v
	return nil
}

func (t *Tensor) sameShape(o *Tensor) bool {
	if len(t.shape) != len(o.shape) {
		return false
	}
	for i := range t.shape {
		if t.shape[i] != o.shape[i] {
			return false
		}
	}
	return true
}

func (t *Tensor) elementwise(o *Tensor, op string, f func(a, b float64) float64) (*Tensor, error) {
	if !t.sameShape(o) {
		return nil, shapeErr("shape mismatch for '%s': %v vs %v", op, t.shape, o.shape)
	}
	out := &Tensor{shape: t.Shape(), data: make([]float64, len(t.data))}
	for i := range t.data {
		out.data[i] = f(t.data[i], o.data[i])
	}
	return out, nil
}

// Add returns the element-wise sum. Shapes must match.
func (t *Tensor) Add(o *Tensor) (*Tensor, error) {
	return t.elementwise(o, "+", func(a, b float64) float64 { return a + b })
}

// Sub returns the element-wise difference. Shapes must match.
func (t *Tensor) Sub(o *Tensor) (*Tensor, error) {
	return t.elementwise(o, "-", func(a, b float64) float64 { return a - b })
}

// MulElem returns the element-wise product. Shapes must match.
func (t *Tensor) MulElem(o *Tensor) (*Tensor, error) {
	return t.elementwise(o, "*", func(a, b float64) float64 { return a * b })
}

// DivElem returns the element-wise quotient. Shapes must match.
func (t *Tensor) DivElem(o *Tensor) (*Tensor, error) {
	return t.elementwise(o, "/", func(a, b float64) float64 { return a / b })
}

// Scale returns a new tensor with every element multiplied by f.
func (t *Tensor) Scale(f float64) *Tensor {
	out := &Tensor{shape: t.Shape(), data: make([]float64, len(t.data))}
	for i, v := range t.data {
		out.data[i] = v * f
	}
	return out
}

// Apply returns a new tensor with f applied to every element.
func (t *Tensor) Apply(f func(float64) float64) *Tensor {
	out := &Tensor{shape: t.Shape(), data: make([]float64, len(t.data))}
	for i, v := range t.data {
		out.data[i] = f(v)
	}
	return out
}

// MatMul returns the matrix product of two 2-D tensors; the inner
// dimensions must agree.
func (t *Tensor) MatMul(o *Tensor) (*Tensor, error) {
	if len(t.shape) != 2 || len(o.shape) != 2 {
		return nil, shapeErr("matmul requires 2-D tensors, got %d-D and %d-D", len(t.shape), len(o.shape))
	}
	m, k := t.shape[0], t.shape[1]
	k2, n := o.shape[0], o.shape[1]
	if k != k2 {
		return nil, shapeErr("matmul inner dimensions disagree: %v vs %v", t.shape, o.shape)
	}
	out := &Tensor{shape: []int{m, n}, data: make([]float64, m*n)}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			for p := 0; p < k; p++ {
				sum += t.data[i*k+p] * o.data[p*n+j]
			}
			out.data[i*n+j] = sum
		}
	}
	return out, nil
}

// Dot returns the inner product of two 1-D tensors of equal length.
func (t *Tensor) Dot(o *Tensor) (float64, error) {
	if len(t.shape) != 1 || len(o.shape) != 1 {
		return 0, shapeErr("dot requires 1-D tensors, got %d-D and %d-D", len(t.shape), len(o.shape))
	}
	if t.shape[0] != o.shape[0] {
		return 0, shapeErr("dot requires equal lengths: %d vs %d", t.shape[0], o.shape[0])
	}
	var sum float64
	for i := range t.data {
		sum += t.data[i] * o.data[i]
	}
	return sum, nil
}

// Transpose returns a new tensor with the axis order reversed. For a
// 2-D tensor this is the ordinary matrix transpose; transposing twice
// restores the original shape and elements for any rank.
func (t *Tensor) Transpose() *Tensor {
	nd := len(t.shape)
	revShape := make([]int, nd)
	for i, d := range t.shape {
		revShape[nd-1-i] = d
	}
	out := &Tensor{shape: revShape, data: make([]float64, len(t.data))}
	if nd == 1 {
		copy(out.data, t.data)
		return out
	}

	// Row-major strides of the source and of the reversed destination.
	srcStride := make([]int, nd)
	srcStride[nd-1] = 1
	for i := nd - 2; i >= 0; i-- {
		srcStride[i] = srcStride[i+1] * t.shape[i+1]
	}
	dstStride := make([]int, nd)
	dstStride[nd-1] = 1
	for i := nd - 2; i >= 0; i-- {
		dstStride[i] = dstStride[i+1] * revShape[i+1]
	}

	idx := make([]int, nd)
	for flat := range t.data {
		dst := 0
		for i := 0; i < nd; i++ {
			// source axis i maps to destination axis nd-1-i
			dst += idx[i] * dstStride[nd-1-i]
		}
		out.data[dst] = t.data[flat]

		for i := nd - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < t.shape[i] {
				break
			}
			idx[i] = 0
		}
	}
	return out
}

// Reshape returns a new tensor with the same elements and a new shape
// of identical total size.
func (t *Tensor) Reshape(shape []int) (*Tensor, error) {
	size, err := shapeSize(shape)
	if err != nil {
		return nil, err
	}
	if size != len(t.data) {
		return nil, shapeErr("cannot reshape %v (%d elements) to %v (%d elements)", t.shape, len(t.data), shape, size)
	}
	return &Tensor{
		shape: append([]int(nil), shape...),
		data:  append([]float64(nil), t.data...),
	}, nil
}

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float64 {
	var sum float64
	for _, v := range t.data {
		sum += v
	}
	return sum
}

// Mean returns the arithmetic mean of all elements.
func (t *Tensor) Mean() float64 {
	return t.Sum() / float64(len(t.data))
}

// Norm returns the Euclidean (L2) norm.
func (t *Tensor) Norm() float64 {
	var sum float64
	for _, v := range t.data {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Fill sets every element to v in place.
func (t *Tensor) Fill(v float64) {
	for i := range t.data {
		t.data[i] = v
	}
}

// Zero sets every element to 0 in place.
func (t *Tensor) Zero() { t.Fill(0) }

// Ones sets every element to 1 in place.
func (t *Tensor) Ones() { t.Fill(1) }

// Randomize sets every element to a uniform random value in [min, max)
// in place.
func (t *Tensor) Randomize(r *rand.Rand, min, max float64) {
	for i := range t.data {
		t.data[i] = min + r.Float64()*(max-min)
	}
}

// Clone returns an independent copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{shape: t.Shape(), data: append([]float64(nil), t.data...)}
}

// ElementsEqual reports whether two tensors have identical shape and
// elements. Value equality for tensors is by identity; this is the
// structural check used by tests and the ML subsystem.
func (t *Tensor) ElementsEqual(o *Tensor) bool {
	if !t.sameShape(o) {
		return false
	}
	for i := range t.data {
		if t.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

func (t *Tensor) String() string {
	if len(t.shape) == 2 {
		rows, cols := t.shape[0], t.shape[1]
		var b strings.Builder
		b.WriteByte('[')
		for i := 0; i < rows; i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('[')
			for j := 0; j < cols; j++ {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(FormatNumber(t.data[i*cols+j]))
			}
			b.WriteByte(']')
		}
		b.WriteByte(']')
		return b.String()
	}
	parts := make([]string, len(t.data))
	for i, v := range t.data {
		parts[i] = FormatNumber(v)
	}
	return fmt.Sprintf("tensor(shape=%v, [%s])", t.shape, strings.Join(parts, ", "))
}
