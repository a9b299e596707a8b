package batched

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/LynnColeArt/batched/internal/launch"
)

// Vendor path: each matrix of the batch is handed to gonum's BLAS.
// gonum matrices are row-major; column-major operands are passed as their
// transposes and the product computed as C^T = op(B)^T * op(A)^T.

func blasTrans(t Trans) blas.Transpose {
	switch t {
	case Transpose:
		return blas.Trans
	case ConjTranspose:
		return blas.ConjTrans
	default:
		return blas.NoTrans
	}
}

// rowMajor describes the storage of m as a row-major matrix: m itself for
// LayoutRight views, m^T for LayoutLeft views.
func rowMajor[T Scalar](m matrix[T], layout Layout) (rows, cols, stride int, data []T) {
	if layout == LayoutRight {
		return m.rows, m.cols, m.rs, m.data[m.off:]
	}
	return m.cols, m.rows, m.cs, m.data[m.off:]
}

// vendorGemm multiplies one matrix of the batch.
type vendorGemm[T Scalar] func(layout Layout, tA, tB blas.Transpose, alpha T, a, b matrix[T], beta T, c matrix[T])

func gemm64(layout Layout, tA, tB blas.Transpose, alpha float64, a, b matrix[float64], beta float64, c matrix[float64]) {
	general := func(m matrix[float64]) blas64.General {
		rows, cols, stride, data := rowMajor(m, layout)
		return blas64.General{Rows: rows, Cols: cols, Stride: stride, Data: data}
	}
	if layout == LayoutRight {
		blas64.Gemm(tA, tB, alpha, general(a), general(b), beta, general(c))
		return
	}
	blas64.Gemm(tB, tA, alpha, general(b), general(a), beta, general(c))
}

func gemm32(layout Layout, tA, tB blas.Transpose, alpha float32, a, b matrix[float32], beta float32, c matrix[float32]) {
	general := func(m matrix[float32]) blas32.General {
		rows, cols, stride, data := rowMajor(m, layout)
		return blas32.General{Rows: rows, Cols: cols, Stride: stride, Data: data}
	}
	if layout == LayoutRight {
		blas32.Gemm(tA, tB, alpha, general(a), general(b), beta, general(c))
		return
	}
	blas32.Gemm(tB, tA, alpha, general(b), general(a), beta, general(c))
}

// runVendor processes the batch in chunks of plan.Interleave matrices, one
// parallel task per chunk. A failure inside the library is returned as an
// execution error.
func runVendor[T Scalar](plan Plan, p Problem, t *Target, alpha T, a, b *View[T], beta T, c *View[T]) error {
	switch any(alpha).(type) {
	case float64:
		return vendorBatch[float64](plan, p, t, gemm64, any(alpha).(float64),
			any(a).(*View[float64]), any(b).(*View[float64]), any(beta).(float64), any(c).(*View[float64]))
	case float32:
		return vendorBatch[float32](plan, p, t, gemm32, any(alpha).(float32),
			any(a).(*View[float32]), any(b).(*View[float32]), any(beta).(float32), any(c).(*View[float32]))
	default:
		return NewUnsupportedError("Gemm",
			fmt.Sprintf("vendor library has no batched GEMM for %s", p.ElemType), p)
	}
}

func vendorBatch[T Scalar](plan Plan, p Problem, t *Target, gemm vendorGemm[T], alpha T, a, b *View[T], beta T, c *View[T]) error {
	ninter := plan.Interleave
	tA, tB := blasTrans(p.TransA), blasTrans(p.TransB)

	var (
		once     sync.Once
		firstErr error
	)
	err := launch.ParallelFor(p.Batch/ninter, t.Workers, func(chunk int) {
		batch := chunk * ninter
		defer func() {
			if r := recover(); r != nil {
				once.Do(func() {
					firstErr = NewExecutionError("Gemm", "vendor library failed",
						errors.Errorf("batch %d (%s): %v", batch, p, r))
				})
			}
		}()
		for ; batch < (chunk+1)*ninter; batch++ {
			gemm(p.Layout, tA, tB, alpha,
				a.matrix(p.BatchLayout, batch, 0),
				b.matrix(p.BatchLayout, batch, 0),
				beta,
				c.matrix(p.BatchLayout, batch, 0))
		}
	})
	if err != nil {
		return errors.Wrap(err, "vendor launch")
	}
	return firstErr
}
