package batched

import (
	"github.com/cwbudde/algo-vecmath"
)

// Gemm computes C[b] = alpha*op(A[b])*op(B[b]) + beta*C[b] for every matrix
// b of the batch, with the algorithm requested by h.
//
// Views must pair LayoutLeft with BatchRight and LayoutRight with BatchLeft.
// Every validation happens before any element of C is written, so a failed
// call leaves C untouched. Use Status to convert the result into a status
// code.
func Gemm[T Scalar](h *Handle, transA, transB Trans, bl BatchLayout, alpha T, a, b *View[T], beta T, c *View[T]) error {
	if h == nil {
		return ErrNilHandle
	}

	p, err := Analyze(bl, transA, transB, a, b, c)
	if err != nil {
		return err
	}
	t := h.target()
	plan, err := Select(h, p, t)
	if err != nil {
		return err
	}
	if p.Batch == 0 {
		return nil
	}

	if alpha == 0 {
		scaleView(c, beta)
		return nil
	}

	switch plan.Kernel {
	case KernelSerial:
		return runSerial(plan, p, t, alpha, a, b, beta, c)
	case KernelTeam:
		return runTeam(p, t, alpha, a, b, beta, c)
	case KernelDblBuf:
		return runDblBuf(plan, p, t, alpha, a, b, beta, c)
	case KernelVendor:
		return runVendor(plan, p, t, alpha, a, b, beta, c)
	default:
		return NewUnsupportedError("Gemm", "no kernel for plan "+plan.String(), plan)
	}
}

// scaleView computes C = beta*C over the whole view. beta == 1 leaves C
// untouched; beta == 0 overwrites C without reading it.
func scaleView[T Scalar](c *View[T], beta T) {
	switch beta {
	case 1:
		return
	case 0:
		clear(c.data)
		return
	}
	if d, ok := any(c.data).([]float64); ok {
		vecmath.ScaleBlock(d, d, float64(beta))
		return
	}
	for i := range c.data {
		c.data[i] *= beta
	}
}
