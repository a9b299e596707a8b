package batched

// Generate generates deterministic test data in [0, 1) using a linear
// congruential generator (LCG). This ensures reproducible tests across runs.
//
// Example:
//
//	data := Generate[float64](1024, 12345)
func Generate[T Scalar](size int, seed uint64) []T {
	data := make([]T, size)
	rng := seed
	for i := range data {
		rng = rng*1103515245 + 12345 // LCG parameters from Numerical Recipes
		data[i] = T(float64(uint32(rng>>16)) / (1 << 32))
	}
	return data
}

// GenerateRange generates deterministic data in [lo, hi).
func GenerateRange[T Scalar](size int, seed uint64, lo, hi T) []T {
	data := Generate[T](size, seed)
	scale := hi - lo
	for i := range data {
		data[i] = data[i]*scale + lo
	}
	return data
}

// FillView overwrites v with deterministic values in [-1, 1).
func FillView[T Scalar](v *View[T], seed uint64) {
	copy(v.Data(), GenerateRange[T](len(v.Data()), seed, -1, 1))
}

// BatchView allocates a view holding batch matrices of rows x cols in the
// layout paired with bl.
func BatchView[T Scalar](bl BatchLayout, batch, rows, cols, lanes int) *View[T] {
	if bl == BatchLeft {
		return NewVectorView[T](LayoutRight, batch, rows, cols, lanes)
	}
	return NewVectorView[T](LayoutLeft, rows, cols, batch, lanes)
}

// SetMatrix stores x at element (i, j) of every lane of batch entry b.
func SetMatrix[T Scalar](v *View[T], bl BatchLayout, b, i, j int, x T) {
	for lane := 0; lane < v.Lanes(); lane++ {
		if bl == BatchLeft {
			v.SetLane(b, i, j, lane, x)
		} else {
			v.SetLane(i, j, b, lane, x)
		}
	}
}

// IdentityBatch returns batch identity matrices of size n.
func IdentityBatch[T Scalar](bl BatchLayout, batch, n int) *View[T] {
	v := BatchView[T](bl, batch, n, n, 1)
	for b := 0; b < batch; b++ {
		for i := 0; i < n; i++ {
			SetMatrix(v, bl, b, i, i, 1)
		}
	}
	return v
}

// SequenceBatch returns batch matrices whose element (i, j) of entry b is
// b*rows*cols + i*cols + j. Every value is exactly representable in float32
// for small sizes.
func SequenceBatch[T Scalar](bl BatchLayout, batch, rows, cols int) *View[T] {
	v := BatchView[T](bl, batch, rows, cols, 1)
	for b := 0; b < batch; b++ {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				SetMatrix(v, bl, b, i, j, T(b*rows*cols+i*cols+j))
			}
		}
	}
	return v
}
