package batched

import (
	"github.com/LynnColeArt/batched/internal/launch"
)

// Reference kernels. They accept every transpose (conjugation is the
// identity on real element types) and always succeed for well-formed input.

// operands returns op(A), op(B) and C for one lane of batch entry b.
func operands[T Scalar](p Problem, a, b, c *View[T], batch, lane int) (am, bm, cm matrix[T]) {
	am = a.matrix(p.BatchLayout, batch, lane).op(p.TransA)
	bm = b.matrix(p.BatchLayout, batch, lane).op(p.TransB)
	cm = c.matrix(p.BatchLayout, batch, lane)
	return am, bm, cm
}

// update stores alpha*sum + beta*C(i, j). C is not read when beta is zero.
func (m matrix[T]) update(i, j int, alpha, sum, beta T) {
	idx := m.off + i*m.rs + j*m.cs
	if beta == 0 {
		m.data[idx] = alpha * sum
		return
	}
	m.data[idx] = alpha*sum + beta*m.data[idx]
}

func dot[T Scalar](a, b matrix[T], i, j int) T {
	var sum T
	for l := 0; l < a.cols; l++ {
		sum += a.at(i, l) * b.at(l, j)
	}
	return sum
}

// gemmUnblocked is the triple loop.
func gemmUnblocked[T Scalar](alpha T, a, b matrix[T], beta T, c matrix[T]) {
	for i := 0; i < c.rows; i++ {
		for j := 0; j < c.cols; j++ {
			c.update(i, j, alpha, dot(a, b, i, j), beta)
		}
	}
}

// gemmRowUnblocked computes row i of C.
func gemmRowUnblocked[T Scalar](alpha T, a, b matrix[T], beta T, c matrix[T], i int) {
	for j := 0; j < c.cols; j++ {
		c.update(i, j, alpha, dot(a, b, i, j), beta)
	}
}

// gemmBlocked keeps a SerialBlockM x SerialBlockN block of C in registers
// and falls back to the triple loop for the remainder rows and columns.
func gemmBlocked[T Scalar](alpha T, a, b matrix[T], beta T, c matrix[T]) {
	m, n, k := c.rows, c.cols, a.cols
	mb := m - m%SerialBlockM
	nb := n - n%SerialBlockN

	for i := 0; i < mb; i += SerialBlockM {
		for j := 0; j < nb; j += SerialBlockN {
			var (
				c00, c01, c02, c03 T
				c10, c11, c12, c13 T
				c20, c21, c22, c23 T
				c30, c31, c32, c33 T
			)
			for l := 0; l < k; l++ {
				a0, a1, a2, a3 := a.at(i, l), a.at(i+1, l), a.at(i+2, l), a.at(i+3, l)
				b0, b1, b2, b3 := b.at(l, j), b.at(l, j+1), b.at(l, j+2), b.at(l, j+3)

				c00 += a0 * b0
				c01 += a0 * b1
				c02 += a0 * b2
				c03 += a0 * b3
				c10 += a1 * b0
				c11 += a1 * b1
				c12 += a1 * b2
				c13 += a1 * b3
				c20 += a2 * b0
				c21 += a2 * b1
				c22 += a2 * b2
				c23 += a2 * b3
				c30 += a3 * b0
				c31 += a3 * b1
				c32 += a3 * b2
				c33 += a3 * b3
			}
			acc := [SerialBlockM][SerialBlockN]T{
				{c00, c01, c02, c03},
				{c10, c11, c12, c13},
				{c20, c21, c22, c23},
				{c30, c31, c32, c33},
			}
			for ii := 0; ii < SerialBlockM; ii++ {
				for jj := 0; jj < SerialBlockN; jj++ {
					c.update(i+ii, j+jj, alpha, acc[ii][jj], beta)
				}
			}
		}
		// Remainder columns
		for ii := i; ii < i+SerialBlockM; ii++ {
			for j := nb; j < n; j++ {
				c.update(ii, j, alpha, dot(a, b, ii, j), beta)
			}
		}
	}
	// Remainder rows
	for i := mb; i < m; i++ {
		gemmRowUnblocked(alpha, a, b, beta, c, i)
	}
}

// runSerial runs the reference kernel with one work item per element
// (Rank0), per row (Rank1) or per matrix (Rank2) of every lane.
func runSerial[T Scalar](plan Plan, p Problem, t *Target, alpha T, a, b *View[T], beta T, c *View[T]) error {
	problems := p.Batch * p.Lanes

	switch plan.ResultsPerThread {
	case Rank0:
		perProblem := p.M * p.N
		return launch.ParallelFor(problems*perProblem, t.Workers, func(idx int) {
			pi, e := idx/perProblem, idx%perProblem
			am, bm, cm := operands(p, a, b, c, pi/p.Lanes, pi%p.Lanes)
			i, j := e/p.N, e%p.N
			cm.update(i, j, alpha, dot(am, bm, i, j), beta)
		})
	case Rank1:
		return launch.ParallelFor(problems*p.M, t.Workers, func(idx int) {
			pi, i := idx/p.M, idx%p.M
			am, bm, cm := operands(p, a, b, c, pi/p.Lanes, pi%p.Lanes)
			gemmRowUnblocked(alpha, am, bm, beta, cm, i)
		})
	default:
		return launch.ParallelFor(problems, t.Workers, func(pi int) {
			am, bm, cm := operands(p, a, b, c, pi/p.Lanes, pi%p.Lanes)
			if plan.Mode == Blocked {
				gemmBlocked(alpha, am, bm, beta, cm)
			} else {
				gemmUnblocked(alpha, am, bm, beta, cm)
			}
		})
	}
}

// teamThreads is the team size of the team reference kernels.
func teamThreads(t *Target, rows int) int {
	return max(1, min(rows, t.MaxTeamSize, DblBufTeamSize*DblBufVecLen))
}

// runTeam launches one team per matrix; threads split the rows of C.
func runTeam[T Scalar](p Problem, t *Target, alpha T, a, b *View[T], beta T, c *View[T]) error {
	cfg := launch.Config{
		Grid:    launch.Dim3{X: p.Batch * p.Lanes, Y: 1, Z: 1},
		Block:   launch.Dim3{X: teamThreads(t, p.M), Y: 1, Z: 1},
		Workers: t.Workers,
	}
	return launch.Run(cfg, func() struct{} { return struct{}{} }, func(team *launch.Team[struct{}]) {
		pi := team.LeagueRank()
		am, bm, cm := operands(p, a, b, c, pi/p.Lanes, pi%p.Lanes)
		for i := team.Rank(); i < p.M; i += team.Size() {
			gemmRowUnblocked(alpha, am, bm, beta, cm, i)
		}
	})
}
