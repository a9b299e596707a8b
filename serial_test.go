package batched

import (
	"testing"
)

func TestGemmBlockedMatchesUnblocked(t *testing.T) {
	// Sizes around the 4x4 register block, including remainders.
	sizes := [][3]int{{1, 1, 1}, {3, 5, 2}, {4, 4, 4}, {7, 9, 3}, {8, 12, 17}, {13, 6, 1}}
	for _, s := range sizes {
		for _, tr := range transPairs {
			tc := gemmCase{
				target: DeviceTarget(), bl: BatchLeft, transA: tr[0], transB: tr[1],
				m: s[0], n: s[1], k: s[2], batch: 1, lanes: 1,
				alpha: 1.25, beta: -0.5,
			}
			t.Run(tc.String(), func(t *testing.T) {
				a, b, c := gemmOperands[float64](tc, 31)
				blocked := c.Clone()
				p := Problem{BatchLayout: tc.bl, TransA: tc.transA, TransB: tc.transB}

				am, bm, cm := operands(p, a, b, c, 0, 0)
				gemmUnblocked(1.25, am, bm, -0.5, cm)
				am, bm, cm = operands(p, a, b, blocked, 0, 0)
				gemmBlocked(1.25, am, bm, -0.5, cm)

				if r := Verify(c.Data(), blocked.Data(), gemmTolerance[float64](tc)); !r.OK() {
					t.Errorf("%v", r)
				}
			})
		}
	}
}

func TestRunSerialGranularities(t *testing.T) {
	tc := gemmCase{
		target: HostTarget("generic", false, false, 1), bl: BatchRight,
		transA: NoTranspose, transB: Transpose,
		m: 6, n: 5, k: 7, batch: 3, lanes: 2,
		alpha: 1, beta: 2,
	}
	a, b, c := gemmOperands[float64](tc, 41)
	want := c.Clone()
	if err := ReferenceGemm(tc.transA, tc.transB, tc.bl, 1, a, b, 2, want); err != nil {
		t.Fatal(err)
	}
	p, err := Analyze(tc.bl, tc.transA, tc.transB, a, b, c)
	if err != nil {
		t.Fatal(err)
	}

	plans := []Plan{
		{Kernel: KernelSerial, Mode: Unblocked, ResultsPerThread: Rank0},
		{Kernel: KernelSerial, Mode: Unblocked, ResultsPerThread: Rank1},
		{Kernel: KernelSerial, Mode: Unblocked, ResultsPerThread: Rank2},
		{Kernel: KernelSerial, Mode: Blocked, ResultsPerThread: Rank2},
	}
	for _, plan := range plans {
		t.Run(plan.String(), func(t *testing.T) {
			got := c.Clone()
			if err := runSerial(plan, p, tc.target, 1.0, a, b, 2.0, got); err != nil {
				t.Fatal(err)
			}
			if r := Verify(want.Data(), got.Data(), gemmTolerance[float64](tc)); !r.OK() {
				t.Errorf("%v", r)
			}
		})
	}
}

func TestTeamThreads(t *testing.T) {
	tests := []struct {
		target *Target
		rows   int
		want   int
	}{
		{DeviceTarget(), 5, 5},
		{DeviceTarget(), 500, DblBufTeamSize * DblBufVecLen},
		{HostTarget("generic", false, false, 1), 500, 1},
		{DeviceTarget(), 0, 1},
	}
	for _, tt := range tests {
		if got := teamThreads(tt.target, tt.rows); got != tt.want {
			t.Errorf("teamThreads(%s, %d) = %d, want %d", tt.target.Name, tt.rows, got, tt.want)
		}
	}
}

func TestSerialConjTransposeIsTranspose(t *testing.T) {
	tc := gemmCase{
		algo: AlgoSerial, target: DeviceTarget(), bl: BatchLeft,
		transA: ConjTranspose, transB: ConjTranspose,
		m: 4, n: 6, k: 5, batch: 2, lanes: 1,
		alpha: 1, beta: 0,
	}
	a, b, c := gemmOperands[float64](tc, 51)
	want := c.Clone()
	if err := ReferenceGemm(Transpose, Transpose, tc.bl, 1, a, b, 0, want); err != nil {
		t.Fatal(err)
	}
	if err := Gemm(NewHandle(AlgoSerial), ConjTranspose, ConjTranspose, tc.bl, 1, a, b, 0, c); err != nil {
		t.Fatal(err)
	}
	if r := Verify(want.Data(), c.Data(), gemmTolerance[float64](tc)); !r.OK() {
		t.Errorf("%v", r)
	}
}
