package batched

import (
	"fmt"
	"reflect"
)

// Problem is the shape and layout of one batched GEMM call, derived from
// the views independently of which kernel will run.
type Problem struct {
	M, N, K int
	Batch   int
	Lanes   int

	Layout      Layout
	BatchLayout BatchLayout
	TransA      Trans
	TransB      Trans

	// ElemType names the scalar type, e.g. "float64".
	ElemType string
}

// Vector reports whether elements are short vectors.
func (p Problem) Vector() bool {
	return p.Lanes > 1
}

func (p Problem) String() string {
	return fmt.Sprintf("m=%d n=%d k=%d batch=%d lanes=%d %v %v transA=%v transB=%v %s",
		p.M, p.N, p.K, p.Batch, p.Lanes, p.Layout, p.BatchLayout, p.TransA, p.TransB, p.ElemType)
}

// CheckLayout enforces the pairing between memory order and batch axis:
// column-major views keep the batch rightmost and row-major views keep it
// leftmost, so that every matrix of the batch is one contiguous block.
func CheckLayout(layout Layout, bl BatchLayout) error {
	switch {
	case bl != BatchLeft && bl != BatchRight:
		return NewInvalidArgError("CheckLayout", fmt.Sprintf("unknown batch layout %v", bl))
	case layout == LayoutLeft && bl != BatchRight:
		return NewShapeError("CheckLayout", "LayoutLeft views require BatchRight", bl)
	case layout == LayoutRight && bl != BatchLeft:
		return NewShapeError("CheckLayout", "LayoutRight views require BatchLeft", bl)
	case layout != LayoutLeft && layout != LayoutRight:
		return NewInvalidArgError("CheckLayout", fmt.Sprintf("unknown layout %v", layout))
	}
	return nil
}

// OutputDims reads (m, n) from the two non-batch extents of C.
func OutputDims[T Scalar](c *View[T], bl BatchLayout) (m, n int, err error) {
	if c == nil {
		return 0, 0, ErrNilView
	}
	if err := CheckLayout(c.Layout(), bl); err != nil {
		return 0, 0, err
	}
	m, n = c.dims(bl)
	return m, n, nil
}

// Analyze validates A, B and C against each other and derives the problem
// shape. Nothing is computed; all failures are construction errors.
func Analyze[T Scalar](bl BatchLayout, transA, transB Trans, a, b, c *View[T]) (Problem, error) {
	if a == nil || b == nil || c == nil {
		return Problem{}, ErrNilView
	}
	if !transA.valid() || !transB.valid() {
		return Problem{}, NewInvalidArgError("Analyze",
			fmt.Sprintf("transA=%v transB=%v must be NoTranspose, Transpose or ConjTranspose", transA, transB))
	}

	m, n, err := OutputDims(c, bl)
	if err != nil {
		return Problem{}, err
	}
	if err := CheckLayout(a.Layout(), bl); err != nil {
		return Problem{}, NewShapeError("Analyze", fmt.Sprintf("view A: %v", err), bl)
	}
	if err := CheckLayout(b.Layout(), bl); err != nil {
		return Problem{}, NewShapeError("Analyze", fmt.Sprintf("view B: %v", err), bl)
	}
	if a.Lanes() != c.Lanes() || b.Lanes() != c.Lanes() {
		return Problem{}, NewShapeError("Analyze",
			fmt.Sprintf("rank mismatch: A has %d lanes, B has %d lanes, C has %d lanes",
				a.Lanes(), b.Lanes(), c.Lanes()), nil)
	}

	p := Problem{
		M:           m,
		N:           n,
		Batch:       c.batchCount(bl),
		Lanes:       c.Lanes(),
		Layout:      c.Layout(),
		BatchLayout: bl,
		TransA:      transA,
		TransB:      transB,
		ElemType:    reflect.TypeFor[T]().String(),
	}

	if ab, bb := a.batchCount(bl), b.batchCount(bl); ab != p.Batch || bb != p.Batch {
		return Problem{}, NewShapeError("Analyze",
			fmt.Sprintf("batch counts differ: A=%d B=%d C=%d", ab, bb, p.Batch), p)
	}

	aRows, aCols := a.dims(bl)
	if transA.transposed() {
		aRows, aCols = aCols, aRows
	}
	bRows, bCols := b.dims(bl)
	if transB.transposed() {
		bRows, bCols = bCols, bRows
	}
	p.K = aCols

	if aRows != m || bRows != p.K || bCols != n {
		return Problem{}, NewShapeError("Analyze",
			fmt.Sprintf("op(A) is %dx%d, op(B) is %dx%d, C is %dx%d", aRows, aCols, bRows, bCols, m, n), p)
	}
	if p.Batch > 0 && (m == 0 || n == 0 || p.K == 0) {
		return Problem{}, NewShapeError("Analyze",
			fmt.Sprintf("empty matrices in a non-empty batch: m=%d n=%d k=%d", m, n, p.K), p)
	}
	return p, nil
}
