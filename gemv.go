package batched

import (
	"fmt"

	"github.com/LynnColeArt/batched/internal/launch"
)

// GemvAlgo selects the Gemv variant.
type GemvAlgo int

const (
	GemvUnblocked GemvAlgo = iota
	GemvBlocked
)

func (a GemvAlgo) String() string {
	if a == GemvBlocked {
		return "Gemv::Blocked"
	}
	return "Gemv::Unblocked"
}

// gemvScratch holds the per-thread partial dot products of one team.
type gemvScratch[T Scalar] struct {
	partial []T
}

// Gemv computes y[b] = alpha*op(A[b])*x[b] + beta*y[b] for every matrix of
// the batch. x and y are views whose second non-batch extent is 1.
//
// One team handles one matrix: team rows split the rows of op(A) and the
// vector lanes of the team split each dot product. The Blocked variant is
// not implemented and panics.
func Gemv[T Scalar](h *Handle, trans Trans, algo GemvAlgo, bl BatchLayout, alpha T, a, x *View[T], beta T, y *View[T]) error {
	if h == nil {
		return ErrNilHandle
	}
	if a == nil || x == nil || y == nil {
		return ErrNilView
	}
	switch trans {
	case NoTranspose, Transpose:
	case ConjTranspose:
		return NewUnsupportedError("Gemv", "conjugate transpose is not implemented", trans)
	default:
		return NewInvalidArgError("Gemv", fmt.Sprintf("invalid transpose %v", trans))
	}

	for _, v := range []*View[T]{a, x, y} {
		if err := CheckLayout(v.Layout(), bl); err != nil {
			return err
		}
	}
	if x.Lanes() != a.Lanes() || y.Lanes() != a.Lanes() {
		return NewShapeError("Gemv",
			fmt.Sprintf("rank mismatch: A has %d lanes, x has %d lanes, y has %d lanes",
				a.Lanes(), x.Lanes(), y.Lanes()), nil)
	}

	rows, cols := a.dims(bl)
	if trans == Transpose {
		rows, cols = cols, rows
	}
	xn, x1 := x.dims(bl)
	yn, y1 := y.dims(bl)
	batch := a.batchCount(bl)
	if x1 != 1 || y1 != 1 || xn != cols || yn != rows {
		return NewShapeError("Gemv",
			fmt.Sprintf("op(A) is %dx%d, x is %dx%d, y is %dx%d", rows, cols, xn, x1, yn, y1), nil)
	}
	if xb, yb := x.batchCount(bl), y.batchCount(bl); xb != batch || yb != batch {
		return NewShapeError("Gemv",
			fmt.Sprintf("batch counts differ: A=%d x=%d y=%d", batch, xb, yb), nil)
	}

	if algo == GemvBlocked {
		notImplemented("Gemv", "TeamVector Gemv with "+algo.String()+" for batched matrices is not implemented")
	}
	if algo != GemvUnblocked {
		return NewUnsupportedError("Gemv", fmt.Sprintf("unknown algorithm %v", algo), algo)
	}
	if batch == 0 || rows == 0 {
		return nil
	}

	t := h.target()
	teamSize, vecLen := gemvTeam(t)
	h.debugf("gemv: %d x %d x %d, team %dx%d on %s", batch, rows, cols, teamSize, vecLen, t.Name)

	lanes := a.Lanes()
	cfg := launch.Config{
		Grid:    launch.Dim3{X: batch * lanes, Y: 1, Z: 1},
		Block:   launch.Dim3{X: vecLen, Y: teamSize, Z: 1},
		Workers: t.Workers,
	}
	newScratch := func() *gemvScratch[T] {
		return &gemvScratch[T]{partial: make([]T, teamSize*vecLen)}
	}
	return launch.Run(cfg, newScratch, func(team *launch.Team[*gemvScratch[T]]) {
		pi := team.LeagueRank()
		b, lane := pi/lanes, pi%lanes
		am := a.matrix(bl, b, lane).op(trans)
		xm := x.matrix(bl, b, lane)
		ym := y.matrix(bl, b, lane)

		ty, tx := team.ThreadIdx.Y, team.ThreadIdx.X
		partial := team.Shared.partial
		for i0 := 0; i0 < rows; i0 += teamSize {
			i := i0 + ty
			var sum T
			if i < rows {
				for j := tx; j < cols; j += vecLen {
					sum += am.at(i, j) * xm.at(j, 0)
				}
			}
			partial[team.Rank()] = sum
			team.Sync()
			if tx == 0 && i < rows {
				var dot T
				for _, s := range partial[ty*vecLen : (ty+1)*vecLen] {
					dot += s
				}
				ym.update(i, 0, alpha, dot, beta)
			}
			team.Sync()
		}
	})
}

// gemvTeam returns the team shape for the target.
func gemvTeam(t *Target) (teamSize, vecLen int) {
	tu := t.Tuning
	if tu.TeamSize > 0 && tu.VecLen > 0 && tu.TeamSize*tu.VecLen <= t.MaxTeamSize {
		return tu.TeamSize, tu.VecLen
	}
	return 1, 1
}
