// Package batched reference implementations for verification
package batched

// ReferenceGemm computes C[b] = alpha*op(A[b])*op(B[b]) + beta*C[b] with a
// plain triple loop accumulated in float64. It shares no code with the
// kernels and is used to verify them.
func ReferenceGemm[T Scalar](transA, transB Trans, bl BatchLayout, alpha T, a, b *View[T], beta T, c *View[T]) error {
	p, err := Analyze(bl, transA, transB, a, b, c)
	if err != nil {
		return err
	}

	// at reads element (i, j) of op(X) for batch entry bi.
	at := func(v *View[T], t Trans, bi, i, j, lane int) float64 {
		if t != NoTranspose {
			i, j = j, i
		}
		if bl == BatchLeft {
			return float64(v.AtLane(bi, i, j, lane))
		}
		return float64(v.AtLane(i, j, bi, lane))
	}

	for bi := 0; bi < p.Batch; bi++ {
		for lane := 0; lane < p.Lanes; lane++ {
			for i := 0; i < p.M; i++ {
				for j := 0; j < p.N; j++ {
					var sum float64
					if alpha != 0 {
						for l := 0; l < p.K; l++ {
							sum += at(a, transA, bi, i, l, lane) * at(b, transB, bi, l, j, lane)
						}
					}
					res := float64(alpha) * sum
					if beta != 0 {
						res += float64(beta) * at(c, NoTranspose, bi, i, j, lane)
					}
					if bl == BatchLeft {
						c.SetLane(bi, i, j, lane, T(res))
					} else {
						c.SetLane(i, j, bi, lane, T(res))
					}
				}
			}
		}
	}
	return nil
}
