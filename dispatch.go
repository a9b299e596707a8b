package batched

import (
	"fmt"
)

// Kernel is the code path a Plan dispatches to.
type Kernel int

const (
	KernelSerial Kernel = iota
	KernelTeam
	KernelDblBuf
	KernelVendor
)

func (k Kernel) String() string {
	switch k {
	case KernelSerial:
		return "serial"
	case KernelTeam:
		return "team"
	case KernelDblBuf:
		return "dblbuf"
	case KernelVendor:
		return "vendor"
	default:
		return fmt.Sprintf("Kernel(%d)", int(k))
	}
}

// SerialMode selects register blocking in the reference kernels.
type SerialMode int

const (
	Unblocked SerialMode = iota
	Blocked
)

func (m SerialMode) String() string {
	if m == Blocked {
		return "Blocked"
	}
	return "Unblocked"
}

// ResultsPerThread is how much of C one work item produces.
type ResultsPerThread int

const (
	// Rank0: one element of C
	Rank0 ResultsPerThread = iota
	// Rank1: one row of one C
	Rank1
	// Rank2: one whole C
	Rank2
)

func (r ResultsPerThread) String() string {
	return fmt.Sprintf("Rank%d", int(r))
}

// AlphaMode selects where the tiled kernel applies alpha.
type AlphaMode int

const (
	// AlphaInMul multiplies the partial sums by alpha, then adds beta*C.
	AlphaInMul AlphaMode = iota
	// AlphaInFMA scales each A element by alpha inside the k-loop
	// multiply-add; the epilogue then adds beta*C with alpha 1.
	AlphaInFMA
)

func (a AlphaMode) String() string {
	if a == AlphaInFMA {
		return "AlphaInFMA"
	}
	return "AlphaInMul"
}

// TileShape is the tile of the double-buffered kernel.
type TileShape struct {
	M, N, K int
}

// Plan is the dispatch key: everything the chosen kernel needs, decided once
// per call.
type Plan struct {
	Algo   Algo
	Kernel Kernel

	// Reference kernels
	Mode             SerialMode
	ResultsPerThread ResultsPerThread

	// Double-buffered kernel
	BoundsCheck bool
	AlphaMode   AlphaMode
	Tile        TileShape
	TeamSize    int
	VecLen      int

	// Vendor path
	Interleave int
}

func (p Plan) String() string {
	switch p.Kernel {
	case KernelDblBuf:
		return fmt.Sprintf("%v: dblbuf tile=%dx%dx%d team=%dx%d bounds_check=%t %v",
			p.Algo, p.Tile.M, p.Tile.N, p.Tile.K, p.TeamSize, p.VecLen, p.BoundsCheck, p.AlphaMode)
	case KernelVendor:
		return fmt.Sprintf("%v: vendor interleave=%d", p.Algo, p.Interleave)
	default:
		return fmt.Sprintf("%v: %v %v %v", p.Algo, p.Kernel, p.Mode, p.ResultsPerThread)
	}
}

// Select picks the kernel and its parameters for problem p on target t.
// It has no side effects other than recording the team shape of an
// accepted tiled plan in h.
func Select(h *Handle, p Problem, t *Target) (Plan, error) {
	if h == nil {
		return Plan{}, ErrNilHandle
	}
	if t == nil {
		t = h.target()
	}

	h.debugf("view_scalar_type: %s", p.ElemType)
	h.debugf("execution_target: %s", t.Name)
	h.debugf("is_vector: %t", p.Vector())
	h.debugf("on_gpu: %t", t.GPULike)
	h.debugf("on_x86_64: %t", t.X86_64)
	h.debugf("on_a64fx: %t", t.A64FX)

	if p.Vector() {
		switch h.Algo {
		case AlgoSerial, AlgoSquare, AlgoVendor:
		default:
			return Plan{}, NewUnsupportedError("Select",
				fmt.Sprintf("algorithm %v is not supported with SIMD views (%s)", h.Algo, p), p)
		}
	}

	var (
		plan Plan
		err  error
	)
	switch h.Algo {
	case AlgoSquare:
		plan, err = selectSquare(h, p, t)
	case AlgoVendor:
		plan, err = selectVendor(h, p)
	case AlgoSerial:
		plan = Plan{Algo: h.Algo, Kernel: KernelSerial, Mode: Unblocked, ResultsPerThread: Rank2}
	case AlgoSerialRank0:
		plan = Plan{Algo: h.Algo, Kernel: KernelSerial, Mode: Unblocked, ResultsPerThread: Rank0}
	case AlgoTeam:
		plan = Plan{Algo: h.Algo, Kernel: KernelTeam, Mode: Unblocked, ResultsPerThread: Rank1}
	case AlgoDblBuf:
		// Unit tiles perform poorly but run on every target, including
		// those whose teams are a single thread.
		plan = Plan{
			Algo:        h.Algo,
			Kernel:      KernelDblBuf,
			BoundsCheck: true,
			AlphaMode:   AlphaInMul,
			Tile:        TileShape{M: 1, N: 1, K: 1},
			TeamSize:    1,
			VecLen:      1,
		}
	default:
		return Plan{}, NewUnsupportedError("Select",
			fmt.Sprintf("algorithm %v is not supported (%s)", h.Algo, p), p)
	}
	if err != nil {
		return Plan{}, err
	}

	if plan.Kernel == KernelDblBuf {
		if err := checkDblBufPlan(plan, p, t); err != nil {
			return Plan{}, err
		}
		h.TeamSize, h.VecLen = plan.TeamSize, plan.VecLen
	}

	h.debugf("plan: %v", plan)
	return plan, nil
}

// selectSquare is the heuristic for m == n problems.
func selectSquare(h *Handle, p Problem, t *Target) (Plan, error) {
	if p.M != p.N {
		return Plan{}, NewShapeError("Select",
			fmt.Sprintf("algorithm %v requires m == n (%s)", h.Algo, p), p)
	}

	rpt := Rank2
	if !p.Vector() && t.GPULike {
		rpt = Rank0
	}
	mode := squareMode(p, t)
	h.debugf("results_per_thread: %v", rpt)
	h.debugf("serial_mode: %v", mode)

	tu := t.Tuning
	if t.GPULike && tu.TiledRange(p.Layout, p.M) {
		alpha := AlphaInMul
		if p.M >= tu.AlphaInFMAThreshold {
			alpha = AlphaInFMA
		}
		return Plan{
			Algo:        h.Algo,
			Kernel:      KernelDblBuf,
			BoundsCheck: !aligned(p, tu),
			AlphaMode:   alpha,
			Tile:        TileShape{M: tu.TileM, N: tu.TileN, K: tu.TileK},
			TeamSize:    tu.TeamSize,
			VecLen:      tu.VecLen,
		}, nil
	}

	return Plan{
		Algo:             h.Algo,
		Kernel:           KernelSerial,
		Mode:             mode,
		ResultsPerThread: rpt,
	}, nil
}

// squareMode picks register blocking for the reference kernel.
func squareMode(p Problem, t *Target) SerialMode {
	if p.Vector() {
		if t.GPULike || t.X86_64 {
			return Blocked
		}
		return Unblocked
	}
	if t.GPULike || t.A64FX {
		return Unblocked
	}
	return Blocked
}

// aligned reports whether every tile is full, so the kernel may skip
// bounds checks.
func aligned(p Problem, tu Tuning) bool {
	return p.M%tu.TileM == 0 && p.N%tu.TileN == 0 && p.K%tu.TileK == 0
}

func selectVendor(h *Handle, p Problem) (Plan, error) {
	if p.Vector() {
		return Plan{}, NewUnsupportedError("Select",
			fmt.Sprintf("vendor library has no batched GEMM for %d-lane %s elements", p.Lanes, p.ElemType), p)
	}
	switch p.ElemType {
	case "float32", "float64":
	default:
		return Plan{}, NewUnsupportedError("Select",
			fmt.Sprintf("vendor library has no batched GEMM for %s", p.ElemType), p)
	}
	ninter := h.interleave()
	if ninter <= 0 {
		return Plan{}, NewUnsupportedError("Select",
			fmt.Sprintf("vendor interleave must be positive, got %d", ninter), p)
	}
	if p.Batch%ninter != 0 {
		return Plan{}, NewUnsupportedError("Select",
			fmt.Sprintf("batch size %d must be divisible by vendor interleave %d", p.Batch, ninter), p)
	}
	return Plan{Algo: h.Algo, Kernel: KernelVendor, Interleave: ninter}, nil
}

// checkDblBufPlan rejects configurations the tiled kernel does not
// implement. The kernel never falls back silently.
func checkDblBufPlan(plan Plan, p Problem, t *Target) error {
	if p.TransA == ConjTranspose || p.TransB == ConjTranspose {
		return NewUnsupportedError("Select",
			fmt.Sprintf("%v does not support conjugate transpose (%s)", plan.Algo, p), p)
	}
	tile := plan.Tile
	if tile.M <= 0 || tile.N <= 0 || tile.K <= 0 || plan.TeamSize <= 0 || plan.VecLen <= 0 {
		return NewUnsupportedError("Select",
			fmt.Sprintf("%v: invalid tile %dx%dx%d or team %dx%d",
				plan.Algo, tile.M, tile.N, tile.K, plan.TeamSize, plan.VecLen), p)
	}
	if tile.M%plan.TeamSize != 0 || tile.N%plan.VecLen != 0 {
		return NewUnsupportedError("Select",
			fmt.Sprintf("%v: tile %dx%d is not divisible by team %dx%d",
				plan.Algo, tile.M, tile.N, plan.TeamSize, plan.VecLen), p)
	}
	if size := plan.TeamSize * plan.VecLen; size > t.MaxTeamSize {
		return NewUnsupportedError("Select",
			fmt.Sprintf("%v: team of %d threads exceeds %s maximum of %d",
				plan.Algo, size, t.Name, t.MaxTeamSize), p)
	}
	if !plan.BoundsCheck && (p.M%tile.M != 0 || p.N%tile.N != 0 || p.K%tile.K != 0) {
		return NewUnsupportedError("Select",
			fmt.Sprintf("%v: unchecked tiles require aligned shapes (%s, tile %dx%dx%d)",
				plan.Algo, p, tile.M, tile.N, tile.K), p)
	}
	return nil
}
