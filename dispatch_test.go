package batched

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func square(layout Layout, m, k, lanes int) Problem {
	bl := BatchLeft
	if layout == LayoutLeft {
		bl = BatchRight
	}
	return Problem{
		M: m, N: m, K: k,
		Batch:       4,
		Lanes:       lanes,
		Layout:      layout,
		BatchLayout: bl,
		ElemType:    "float64",
	}
}

func TestSelectSquare(t *testing.T) {
	device := DeviceTarget()
	constrained := ConstrainedDeviceTarget()
	x86, _ := TargetByName("x86_64")
	a64fx, _ := TargetByName("a64fx")
	generic, _ := TargetByName("generic")

	tests := []struct {
		name   string
		target *Target
		p      Problem
		want   Plan
	}{
		{
			name:   "DeviceRightAligned",
			target: device,
			p:      square(LayoutRight, 32, 32, 1),
			want: Plan{Algo: AlgoSquare, Kernel: KernelDblBuf, Mode: Unblocked, ResultsPerThread: Rank0,
				BoundsCheck: false, AlphaMode: AlphaInMul, Tile: TileShape{32, 32, 8}, TeamSize: 8, VecLen: 8},
		},
		{
			name:   "DeviceRightBandGap",
			target: device,
			p:      square(LayoutRight, 33, 8, 1),
			want:   Plan{Algo: AlgoSquare, Kernel: KernelSerial, Mode: Unblocked, ResultsPerThread: Rank0},
		},
		{
			name:   "DeviceRightLarge",
			target: device,
			p:      square(LayoutRight, 40, 40, 1),
			want: Plan{Algo: AlgoSquare, Kernel: KernelDblBuf,
				BoundsCheck: true, AlphaMode: AlphaInMul, Tile: TileShape{32, 32, 8}, TeamSize: 8, VecLen: 8},
		},
		{
			name:   "DeviceRightSmall",
			target: device,
			p:      square(LayoutRight, 8, 8, 1),
			want:   Plan{Algo: AlgoSquare, Kernel: KernelSerial, Mode: Unblocked, ResultsPerThread: Rank0},
		},
		{
			name:   "DeviceLeftThreshold",
			target: device,
			p:      square(LayoutLeft, 16, 16, 1),
			want: Plan{Algo: AlgoSquare, Kernel: KernelDblBuf,
				BoundsCheck: true, AlphaMode: AlphaInMul, Tile: TileShape{32, 32, 8}, TeamSize: 8, VecLen: 8},
		},
		{
			name:   "DeviceLeftBelow",
			target: device,
			p:      square(LayoutLeft, 15, 15, 1),
			want:   Plan{Algo: AlgoSquare, Kernel: KernelSerial, Mode: Unblocked, ResultsPerThread: Rank0},
		},
		{
			name:   "DeviceAlphaInFMA",
			target: device,
			p:      square(LayoutLeft, 64, 64, 1),
			want: Plan{Algo: AlgoSquare, Kernel: KernelDblBuf,
				BoundsCheck: false, AlphaMode: AlphaInFMA, Tile: TileShape{32, 32, 8}, TeamSize: 8, VecLen: 8},
		},
		{
			name:   "DeviceUnalignedK",
			target: device,
			p:      square(LayoutLeft, 64, 12, 1),
			want: Plan{Algo: AlgoSquare, Kernel: KernelDblBuf,
				BoundsCheck: true, AlphaMode: AlphaInFMA, Tile: TileShape{32, 32, 8}, TeamSize: 8, VecLen: 8},
		},
		{
			name:   "ConstrainedDevice",
			target: constrained,
			p:      square(LayoutRight, 24, 16, 1),
			want: Plan{Algo: AlgoSquare, Kernel: KernelDblBuf,
				BoundsCheck: true, AlphaMode: AlphaInFMA, Tile: TileShape{32, 32, 16}, TeamSize: 8, VecLen: 8},
		},
		{
			name:   "DeviceVectorSmall",
			target: device,
			p:      square(LayoutRight, 8, 8, 2),
			want:   Plan{Algo: AlgoSquare, Kernel: KernelSerial, Mode: Blocked, ResultsPerThread: Rank2},
		},
		{
			name:   "X86Scalar",
			target: x86,
			p:      square(LayoutRight, 64, 64, 1),
			want:   Plan{Algo: AlgoSquare, Kernel: KernelSerial, Mode: Blocked, ResultsPerThread: Rank2},
		},
		{
			name:   "X86Vector",
			target: x86,
			p:      square(LayoutRight, 64, 64, 4),
			want:   Plan{Algo: AlgoSquare, Kernel: KernelSerial, Mode: Blocked, ResultsPerThread: Rank2},
		},
		{
			name:   "A64FXScalar",
			target: a64fx,
			p:      square(LayoutLeft, 64, 64, 1),
			want:   Plan{Algo: AlgoSquare, Kernel: KernelSerial, Mode: Unblocked, ResultsPerThread: Rank2},
		},
		{
			name:   "A64FXVector",
			target: a64fx,
			p:      square(LayoutLeft, 64, 64, 8),
			want:   Plan{Algo: AlgoSquare, Kernel: KernelSerial, Mode: Unblocked, ResultsPerThread: Rank2},
		},
		{
			name:   "GenericScalar",
			target: generic,
			p:      square(LayoutRight, 16, 16, 1),
			want:   Plan{Algo: AlgoSquare, Kernel: KernelSerial, Mode: Blocked, ResultsPerThread: Rank2},
		},
		{
			name:   "GenericVector",
			target: generic,
			p:      square(LayoutRight, 16, 16, 2),
			want:   Plan{Algo: AlgoSquare, Kernel: KernelSerial, Mode: Unblocked, ResultsPerThread: Rank2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandle(AlgoSquare)
			got, err := Select(h, tt.p, tt.target)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Select(%v) =\n  %v\nwant\n  %v", tt.p, got, tt.want)
			}
			if got.Kernel == KernelDblBuf && (h.TeamSize != got.TeamSize || h.VecLen != got.VecLen) {
				t.Errorf("handle team %dx%d, plan team %dx%d", h.TeamSize, h.VecLen, got.TeamSize, got.VecLen)
			}
		})
	}
}

func TestSelectSquareShapeMismatch(t *testing.T) {
	p := square(LayoutRight, 32, 32, 1)
	p.N = 16
	_, err := Select(NewHandle(AlgoSquare), p, DeviceTarget())
	if !IsShapeError(err) {
		t.Fatalf("got %v, want shape error", err)
	}
	for _, want := range []string{"SQUARE", "m=32", "n=16"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestSelectExplicit(t *testing.T) {
	x86, _ := TargetByName("x86_64")
	p := square(LayoutRight, 16, 16, 1)

	tests := []struct {
		algo Algo
		want Plan
	}{
		{AlgoSerial, Plan{Algo: AlgoSerial, Kernel: KernelSerial, Mode: Unblocked, ResultsPerThread: Rank2}},
		{AlgoSerialRank0, Plan{Algo: AlgoSerialRank0, Kernel: KernelSerial, Mode: Unblocked, ResultsPerThread: Rank0}},
		{AlgoTeam, Plan{Algo: AlgoTeam, Kernel: KernelTeam, Mode: Unblocked, ResultsPerThread: Rank1}},
		{AlgoDblBuf, Plan{Algo: AlgoDblBuf, Kernel: KernelDblBuf, BoundsCheck: true, AlphaMode: AlphaInMul,
			Tile: TileShape{1, 1, 1}, TeamSize: 1, VecLen: 1}},
		{AlgoVendor, Plan{Algo: AlgoVendor, Kernel: KernelVendor, Interleave: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.algo.String(), func(t *testing.T) {
			got, err := Select(NewHandle(tt.algo), p, x86)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectUnsupported(t *testing.T) {
	p := square(LayoutRight, 16, 16, 1)
	for _, algo := range []Algo{AlgoTall, AlgoWide, AlgoMKL, AlgoCuBLAS, AlgoMAGMA,
		AlgoSerialShmem, AlgoTeamVector, AlgoSerialSIMD, AlgoTeamSIMD, Algo(99)} {
		t.Run(algo.String(), func(t *testing.T) {
			_, err := Select(NewHandle(algo), p, DeviceTarget())
			if !IsUnsupportedError(err) {
				t.Fatalf("got %v, want unsupported error", err)
			}
			for _, want := range []string{algo.String(), "m=16 n=16 k=16"} {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestSelectVectorViews(t *testing.T) {
	p := square(LayoutRight, 16, 16, 4)
	for _, algo := range []Algo{AlgoSerialRank0, AlgoTeam, AlgoDblBuf} {
		_, err := Select(NewHandle(algo), p, DeviceTarget())
		if !IsUnsupportedError(err) || !strings.Contains(err.Error(), "SIMD views") || !strings.Contains(err.Error(), "lanes=4") {
			t.Errorf("%v with vector views: got %v", algo, err)
		}
	}
	// Accepted by the identifier check, but the vendor library has no
	// vector element support.
	if _, err := Select(NewHandle(AlgoVendor), p, DeviceTarget()); !IsUnsupportedError(err) {
		t.Errorf("vendor with vector views: got %v, want unsupported error", err)
	}
	if _, err := Select(NewHandle(AlgoSerial), p, DeviceTarget()); err != nil {
		t.Errorf("serial with vector views: %v", err)
	}
}

func TestSelectVendor(t *testing.T) {
	p := square(LayoutLeft, 8, 8, 1)

	h := NewHandle(AlgoVendor)
	h.Vendor = &VendorParams{Interleave: 2}
	got, err := Select(h, p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kernel != KernelVendor || got.Interleave != 2 {
		t.Errorf("got %v, want vendor plan with interleave 2", got)
	}

	h.Vendor.Interleave = 3
	if _, err := Select(h, p, nil); !IsUnsupportedError(err) {
		t.Errorf("interleave 3 with batch 4: got %v, want unsupported error", err)
	}
	h.Vendor.Interleave = -1
	if _, err := Select(h, p, nil); !IsUnsupportedError(err) {
		t.Errorf("negative interleave: got %v, want unsupported error", err)
	}

	p.ElemType = "batched.myFloat"
	if _, err := Select(NewHandle(AlgoVendor), p, nil); !IsUnsupportedError(err) {
		t.Errorf("named element type: got %v, want unsupported error", err)
	}
}

func TestSelectDblBufRejects(t *testing.T) {
	t.Run("ConjTranspose", func(t *testing.T) {
		p := square(LayoutRight, 32, 32, 1)
		p.TransB = ConjTranspose
		h := NewHandle(AlgoSquare)
		if _, err := Select(h, p, DeviceTarget()); !IsUnsupportedError(err) {
			t.Errorf("got %v, want unsupported error", err)
		}
		if h.TeamSize != 0 || h.VecLen != 0 {
			t.Errorf("rejected plan left team %dx%d on the handle", h.TeamSize, h.VecLen)
		}
		// The reference kernels accept it.
		if _, err := Select(NewHandle(AlgoSerial), p, DeviceTarget()); err != nil {
			t.Errorf("serial: %v", err)
		}
	})

	t.Run("TeamTooLarge", func(t *testing.T) {
		small := DeviceTarget()
		small.MaxTeamSize = 16
		h := NewHandle(AlgoSquare)
		h.TeamSize, h.VecLen = 2, 2
		if _, err := Select(h, square(LayoutRight, 32, 32, 1), small); !IsUnsupportedError(err) {
			t.Errorf("got %v, want unsupported error", err)
		}
		if h.TeamSize != 2 || h.VecLen != 2 {
			t.Errorf("rejected plan changed the handle team to %dx%d", h.TeamSize, h.VecLen)
		}
	})

	t.Run("TileNotDivisible", func(t *testing.T) {
		odd := DeviceTarget()
		odd.Tuning.TeamSize = 3
		if _, err := Select(NewHandle(AlgoSquare), square(LayoutRight, 32, 32, 1), odd); !IsUnsupportedError(err) {
			t.Errorf("got %v, want unsupported error", err)
		}
	})

	t.Run("UncheckedMisaligned", func(t *testing.T) {
		plan := Plan{Algo: AlgoDblBuf, Kernel: KernelDblBuf, Tile: TileShape{32, 32, 8}, TeamSize: 8, VecLen: 8}
		err := checkDblBufPlan(plan, square(LayoutRight, 33, 8, 1), DeviceTarget())
		if !IsUnsupportedError(err) {
			t.Errorf("got %v, want unsupported error", err)
		}
		if err := checkDblBufPlan(plan, square(LayoutRight, 32, 8, 1), DeviceTarget()); err != nil {
			t.Errorf("aligned: %v", err)
		}
	})
}

func TestSelectDebugDoesNotChangePlan(t *testing.T) {
	p := square(LayoutRight, 40, 40, 1)
	quiet, err := Select(NewHandle(AlgoSquare), p, DeviceTarget())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	h := NewHandle(AlgoSquare)
	h.Debug = true
	h.Logger = log.New(&buf, "", 0)
	loud, err := Select(h, p, DeviceTarget())
	if err != nil {
		t.Fatal(err)
	}
	if quiet != loud {
		t.Errorf("debug plan %v differs from %v", loud, quiet)
	}
	for _, want := range []string{"view_scalar_type: float64", "on_gpu: true", "plan: SQUARE: dblbuf"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("debug output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestParseAlgo(t *testing.T) {
	for algo, name := range AlgoNames() {
		got, err := ParseAlgo(name)
		if err != nil || got != algo {
			t.Errorf("ParseAlgo(%q) = %v, %v; want %v", name, got, err, algo)
		}
	}
	if _, err := ParseAlgo("FASTEST"); !IsInvalidArgError(err) {
		t.Errorf("unknown name: got %v, want invalid argument error", err)
	}
}
