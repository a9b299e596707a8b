package batched

import (
	"testing"
)

func TestCheckLayout(t *testing.T) {
	tests := []struct {
		layout  Layout
		bl      BatchLayout
		wantErr bool
	}{
		{LayoutLeft, BatchRight, false},
		{LayoutRight, BatchLeft, false},
		{LayoutLeft, BatchLeft, true},
		{LayoutRight, BatchRight, true},
	}
	for _, tt := range tests {
		err := CheckLayout(tt.layout, tt.bl)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckLayout(%v, %v) = %v, wantErr %t", tt.layout, tt.bl, err, tt.wantErr)
		}
		if err != nil && !IsShapeError(err) {
			t.Errorf("CheckLayout(%v, %v) = %v, want shape error", tt.layout, tt.bl, err)
		}
	}
}

func TestAnalyzeShapes(t *testing.T) {
	tests := []struct {
		name           string
		transA, transB Trans
		aDims, bDims   [2]int
		wantK          int
	}{
		{"NN", NoTranspose, NoTranspose, [2]int{5, 7}, [2]int{7, 3}, 7},
		{"TN", Transpose, NoTranspose, [2]int{7, 5}, [2]int{7, 3}, 7},
		{"NT", NoTranspose, Transpose, [2]int{5, 7}, [2]int{3, 7}, 7},
		{"TT", Transpose, Transpose, [2]int{7, 5}, [2]int{3, 7}, 7},
		{"CT", ConjTranspose, NoTranspose, [2]int{7, 5}, [2]int{7, 3}, 7},
	}
	for _, bl := range []BatchLayout{BatchLeft, BatchRight} {
		for _, tt := range tests {
			t.Run(bl.String()+"/"+tt.name, func(t *testing.T) {
				a := BatchView[float64](bl, 2, tt.aDims[0], tt.aDims[1], 1)
				b := BatchView[float64](bl, 2, tt.bDims[0], tt.bDims[1], 1)
				c := BatchView[float64](bl, 2, 5, 3, 1)

				p, err := Analyze(bl, tt.transA, tt.transB, a, b, c)
				if err != nil {
					t.Fatal(err)
				}
				if p.M != 5 || p.N != 3 || p.K != tt.wantK || p.Batch != 2 || p.Lanes != 1 {
					t.Errorf("problem = %v, want m=5 n=3 k=%d batch=2 lanes=1", p, tt.wantK)
				}
				if p.ElemType != "float64" {
					t.Errorf("ElemType = %q, want float64", p.ElemType)
				}
			})
		}
	}
}

func TestAnalyzeErrors(t *testing.T) {
	bl := BatchLeft
	ok := func() (*View[float64], *View[float64], *View[float64]) {
		return BatchView[float64](bl, 2, 4, 3, 1),
			BatchView[float64](bl, 2, 3, 4, 1),
			BatchView[float64](bl, 2, 4, 4, 1)
	}

	tests := []struct {
		name  string
		build func() (a, b, c *View[float64])
		check func(error) bool
	}{
		{
			name: "NilView",
			build: func() (a, b, c *View[float64]) {
				a, b, _ = ok()
				return a, b, nil
			},
			check: IsInvalidArgError,
		},
		{
			name: "WrongPairingC",
			build: func() (a, b, c *View[float64]) {
				a, b, _ = ok()
				return a, b, NewView[float64](LayoutLeft, 2, 4, 4)
			},
			check: IsShapeError,
		},
		{
			name: "WrongPairingA",
			build: func() (a, b, c *View[float64]) {
				_, b, c = ok()
				return NewView[float64](LayoutLeft, 2, 4, 3), b, c
			},
			check: IsShapeError,
		},
		{
			name: "LaneMismatch",
			build: func() (a, b, c *View[float64]) {
				_, b, c = ok()
				return BatchView[float64](bl, 2, 4, 3, 2), b, c
			},
			check: IsShapeError,
		},
		{
			name: "BatchMismatch",
			build: func() (a, b, c *View[float64]) {
				a, _, c = ok()
				return a, BatchView[float64](bl, 3, 3, 4, 1), c
			},
			check: IsShapeError,
		},
		{
			name: "InnerMismatch",
			build: func() (a, b, c *View[float64]) {
				a, _, c = ok()
				return a, BatchView[float64](bl, 2, 2, 4, 1), c
			},
			check: IsShapeError,
		},
		{
			name: "OutputMismatch",
			build: func() (a, b, c *View[float64]) {
				a, b, _ = ok()
				return a, b, BatchView[float64](bl, 2, 4, 5, 1)
			},
			check: IsShapeError,
		},
		{
			name: "EmptyMatrices",
			build: func() (a, b, c *View[float64]) {
				return BatchView[float64](bl, 2, 4, 0, 1),
					BatchView[float64](bl, 2, 0, 4, 1),
					BatchView[float64](bl, 2, 4, 4, 1)
			},
			check: IsShapeError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b, c := tt.build()
			_, err := Analyze(bl, NoTranspose, NoTranspose, a, b, c)
			if !tt.check(err) {
				t.Errorf("Analyze error = %v", err)
			}
		})
	}

	a, b, c := ok()
	if _, err := Analyze(bl, Trans(9), NoTranspose, a, b, c); !IsInvalidArgError(err) {
		t.Errorf("invalid transpose: got %v, want invalid argument error", err)
	}
}

func TestAnalyzeEmptyBatch(t *testing.T) {
	bl := BatchRight
	a := BatchView[float64](bl, 0, 4, 3, 1)
	b := BatchView[float64](bl, 0, 3, 4, 1)
	c := BatchView[float64](bl, 0, 4, 4, 1)
	p, err := Analyze(bl, NoTranspose, NoTranspose, a, b, c)
	if err != nil {
		t.Fatal(err)
	}
	if p.Batch != 0 {
		t.Errorf("Batch = %d, want 0", p.Batch)
	}
}
