package batched

import (
	"fmt"
)

// Scalar is the set of element types the batched kernels operate on.
type Scalar interface {
	~float32 | ~float64
}

// Layout is the physical memory order of a view.
type Layout int

const (
	// LayoutLeft stores the leftmost index fastest (column-major).
	LayoutLeft Layout = iota
	// LayoutRight stores the rightmost index fastest (row-major).
	LayoutRight
)

func (l Layout) String() string {
	switch l {
	case LayoutLeft:
		return "LayoutLeft"
	case LayoutRight:
		return "LayoutRight"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// BatchLayout declares which axis of a view indexes the batch.
type BatchLayout int

const (
	// BatchLeft: views are batch x rows x cols.
	BatchLeft BatchLayout = iota
	// BatchRight: views are rows x cols x batch.
	BatchRight
)

func (b BatchLayout) String() string {
	switch b {
	case BatchLeft:
		return "BatchLeft"
	case BatchRight:
		return "BatchRight"
	default:
		return fmt.Sprintf("BatchLayout(%d)", int(b))
	}
}

// Trans specifies what op does to a matrix.
type Trans int

const (
	NoTranspose Trans = iota
	Transpose
	// ConjTranspose is the identity on real element types. The tiled kernel
	// rejects it.
	ConjTranspose
)

func (t Trans) String() string {
	switch t {
	case NoTranspose:
		return "NoTranspose"
	case Transpose:
		return "Transpose"
	case ConjTranspose:
		return "ConjTranspose"
	default:
		return fmt.Sprintf("Trans(%d)", int(t))
	}
}

func (t Trans) valid() bool {
	return t == NoTranspose || t == Transpose || t == ConjTranspose
}

// transposed reports whether op swaps rows and columns.
func (t Trans) transposed() bool {
	return t == Transpose || t == ConjTranspose
}

// View is a dense three-dimensional array, optionally with a trailing
// vector-lane axis. With Lanes > 1 every element is a short vector whose
// lanes are stored contiguously, and each lane is an independent problem.
type View[T Scalar] struct {
	data   []T
	layout Layout
	ext    [3]int
	stride [3]int
	lanes  int
}

// NewView allocates a zeroed view with the given extents.
func NewView[T Scalar](layout Layout, e0, e1, e2 int) *View[T] {
	return NewVectorView[T](layout, e0, e1, e2, 1)
}

// NewVectorView allocates a zeroed view whose elements are vectors of lanes.
func NewVectorView[T Scalar](layout Layout, e0, e1, e2, lanes int) *View[T] {
	if e0 < 0 || e1 < 0 || e2 < 0 || lanes < 1 {
		panic(fmt.Sprintf("batched: invalid view extents {%d, %d, %d} lanes %d", e0, e1, e2, lanes))
	}
	v := newView[T](layout, e0, e1, e2, lanes)
	v.data = make([]T, e0*e1*e2*lanes)
	return v
}

// ViewOf wraps existing storage. len(data) must equal e0*e1*e2*lanes.
func ViewOf[T Scalar](data []T, layout Layout, e0, e1, e2, lanes int) (*View[T], error) {
	if e0 < 0 || e1 < 0 || e2 < 0 || lanes < 1 {
		return nil, NewShapeError("ViewOf",
			fmt.Sprintf("invalid extents {%d, %d, %d} with %d lanes", e0, e1, e2, lanes), nil)
	}
	if layout != LayoutLeft && layout != LayoutRight {
		return nil, NewInvalidArgError("ViewOf", fmt.Sprintf("unknown layout %v", layout))
	}
	if want := e0 * e1 * e2 * lanes; len(data) != want {
		return nil, NewShapeError("ViewOf",
			fmt.Sprintf("data length %d does not match extents {%d, %d, %d} x %d lanes = %d",
				len(data), e0, e1, e2, lanes, want), nil)
	}
	v := newView[T](layout, e0, e1, e2, lanes)
	v.data = data
	return v, nil
}

func newView[T Scalar](layout Layout, e0, e1, e2, lanes int) *View[T] {
	v := &View[T]{
		layout: layout,
		ext:    [3]int{e0, e1, e2},
		lanes:  lanes,
	}
	if layout == LayoutRight {
		v.stride = [3]int{e1 * e2 * lanes, e2 * lanes, lanes}
	} else {
		v.stride = [3]int{lanes, e0 * lanes, e0 * e1 * lanes}
	}
	return v
}

// Data returns the backing storage.
func (v *View[T]) Data() []T { return v.data }

// Layout returns the memory order.
func (v *View[T]) Layout() Layout { return v.layout }

// Extent returns the extent of axis i.
func (v *View[T]) Extent(i int) int { return v.ext[i] }

// Stride returns the distance in elements of T between neighbours on axis i.
func (v *View[T]) Stride(i int) int { return v.stride[i] }

// Lanes returns the vector width of each element.
func (v *View[T]) Lanes() int { return v.lanes }

// Rank is 3, or 4 for views with a vector-lane axis.
func (v *View[T]) Rank() int {
	if v.lanes > 1 {
		return 4
	}
	return 3
}

func (v *View[T]) offset(i0, i1, i2, lane int) int {
	return i0*v.stride[0] + i1*v.stride[1] + i2*v.stride[2] + lane
}

// At returns element (i0, i1, i2) of lane 0.
func (v *View[T]) At(i0, i1, i2 int) T {
	return v.data[v.offset(i0, i1, i2, 0)]
}

// Set stores x at element (i0, i1, i2) of lane 0.
func (v *View[T]) Set(i0, i1, i2 int, x T) {
	v.data[v.offset(i0, i1, i2, 0)] = x
}

// AtLane returns one lane of element (i0, i1, i2).
func (v *View[T]) AtLane(i0, i1, i2, lane int) T {
	return v.data[v.offset(i0, i1, i2, lane)]
}

// SetLane stores x in one lane of element (i0, i1, i2).
func (v *View[T]) SetLane(i0, i1, i2, lane int, x T) {
	v.data[v.offset(i0, i1, i2, lane)] = x
}

// Clone returns a deep copy.
func (v *View[T]) Clone() *View[T] {
	c := *v
	c.data = append([]T(nil), v.data...)
	return &c
}

// batchCount returns the extent of the batch axis.
func (v *View[T]) batchCount(bl BatchLayout) int {
	if bl == BatchLeft {
		return v.ext[0]
	}
	return v.ext[2]
}

// dims returns the physical (rows, cols) of each matrix in the batch.
func (v *View[T]) dims(bl BatchLayout) (rows, cols int) {
	if bl == BatchLeft {
		return v.ext[1], v.ext[2]
	}
	return v.ext[0], v.ext[1]
}

// matrix returns one lane of batch entry b as a strided matrix.
func (v *View[T]) matrix(bl BatchLayout, b, lane int) matrix[T] {
	if bl == BatchLeft {
		return matrix[T]{
			data: v.data,
			off:  b*v.stride[0] + lane,
			rs:   v.stride[1],
			cs:   v.stride[2],
			rows: v.ext[1],
			cols: v.ext[2],
		}
	}
	return matrix[T]{
		data: v.data,
		off:  b*v.stride[2] + lane,
		rs:   v.stride[0],
		cs:   v.stride[1],
		rows: v.ext[0],
		cols: v.ext[1],
	}
}

// matrix is a strided two-dimensional window into view storage.
type matrix[T Scalar] struct {
	data       []T
	off        int
	rs, cs     int
	rows, cols int
}

func (m matrix[T]) at(i, j int) T {
	return m.data[m.off+i*m.rs+j*m.cs]
}

func (m matrix[T]) set(i, j int, x T) {
	m.data[m.off+i*m.rs+j*m.cs] = x
}

// op applies a transpose by swapping strides; no data moves.
func (m matrix[T]) op(t Trans) matrix[T] {
	if !t.transposed() {
		return m
	}
	m.rs, m.cs = m.cs, m.rs
	m.rows, m.cols = m.cols, m.rows
	return m
}
