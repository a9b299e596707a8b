package batched

import (
	"math"

	"github.com/LynnColeArt/batched/internal/launch"
)

// Double-buffered tiled kernel.
//
// One team computes one TileM x TileN tile of C for one lane of one batch
// entry. The team is TeamSize x VecLen threads; thread (ty, tx) owns the
// RegM x RegN register block of rows ty, ty+TeamSize, ... and columns tx,
// tx+VecLen, ... of the tile. A and B are staged through team scratch in
// TileK deep slices with two slots each, so that the next slice is loaded
// while the current one is multiplied:
//
//	prime:   stage slice 0 into slot 0
//	k-step:  stage slice kt+1 into the other slot, sync,
//	         multiply slot kt&1 into registers, sync
//	epilogue: C = alpha*acc + beta*C for the owned block
//
// Every team passes the same number of barriers, two per k-step.

// dblBufScratch is the team-local memory. It is allocated once per worker
// and reused by every team that worker runs.
type dblBufScratch[T Scalar] struct {
	a [2][]T // TileM x TileK, row-major
	b [2][]T // TileK x TileN, row-major

	// Register blocks of every thread, indexed by thread rank
	regs []T
}

type dblBufKernel[T Scalar] struct {
	p           Problem
	tile        TileShape
	teamSize    int
	vecLen      int
	regM, regN  int
	tilesK      int
	boundsCheck bool
	alphaMode   AlphaMode

	alpha, beta T
	a, b, c     *View[T]
}

func ceilDiv(x, y int) int {
	return (x + y - 1) / y
}

// runDblBuf runs the tiled kernel. The plan has been validated by Select.
func runDblBuf[T Scalar](plan Plan, p Problem, t *Target, alpha T, a, b *View[T], beta T, c *View[T]) error {
	k := newDblBufKernel(plan, p, alpha, a, b, beta, c)
	return launch.Run(k.config(t), k.newScratch, k.run)
}

func newDblBufKernel[T Scalar](plan Plan, p Problem, alpha T, a, b *View[T], beta T, c *View[T]) *dblBufKernel[T] {
	return &dblBufKernel[T]{
		p:           p,
		tile:        plan.Tile,
		teamSize:    plan.TeamSize,
		vecLen:      plan.VecLen,
		regM:        plan.Tile.M / plan.TeamSize,
		regN:        plan.Tile.N / plan.VecLen,
		tilesK:      ceilDiv(p.K, plan.Tile.K),
		boundsCheck: plan.BoundsCheck,
		alphaMode:   plan.AlphaMode,
		alpha:       alpha,
		beta:        beta,
		a:           a,
		b:           b,
		c:           c,
	}
}

// config is the launch shape: one team per (batch entry, lane, tile row,
// tile column).
func (k *dblBufKernel[T]) config(t *Target) launch.Config {
	return launch.Config{
		Grid: launch.Dim3{
			X: ceilDiv(k.p.N, k.tile.N),
			Y: ceilDiv(k.p.M, k.tile.M),
			Z: k.p.Batch * k.p.Lanes,
		},
		Block:   launch.Dim3{X: k.vecLen, Y: k.teamSize, Z: 1},
		Workers: t.Workers,
	}
}

func (k *dblBufKernel[T]) newScratch() *dblBufScratch[T] {
	s := &dblBufScratch[T]{
		regs: make([]T, k.teamSize*k.vecLen*k.regM*k.regN),
	}
	for slot := range s.a {
		s.a[slot] = make([]T, k.tile.M*k.tile.K)
		s.b[slot] = make([]T, k.tile.K*k.tile.N)
	}
	return s
}

func (k *dblBufKernel[T]) run(team *launch.Team[*dblBufScratch[T]]) {
	s := team.Shared
	z := team.BlockIdx.Z
	am, bm, cm := operands(k.p, k.a, k.b, k.c, z/k.p.Lanes, z%k.p.Lanes)

	row0 := team.BlockIdx.Y * k.tile.M
	col0 := team.BlockIdx.X * k.tile.N
	ty, tx := team.ThreadIdx.Y, team.ThreadIdx.X
	rank, size := team.Rank(), team.Size()

	regSize := k.regM * k.regN
	regs := s.regs[rank*regSize : (rank+1)*regSize]
	clear(regs)

	k.stage(s, 0, 0, am, bm, row0, col0, rank, size)
	for kt := 0; kt < k.tilesK; kt++ {
		cur := kt & 1
		if kt+1 < k.tilesK {
			k.stage(s, cur^1, kt+1, am, bm, row0, col0, rank, size)
		}
		team.Sync()
		k.multiply(s.a[cur], s.b[cur], regs, ty, tx)
		team.Sync()
	}

	k.epilogue(cm, regs, row0, col0, ty, tx)
}

// stage copies slice kt of the A row panel and the B column panel into
// slot. Threads stride over the slice by rank. With bounds checking,
// elements outside the matrices are staged as zero.
func (k *dblBufKernel[T]) stage(s *dblBufScratch[T], slot, kt int, am, bm matrix[T], row0, col0, rank, size int) {
	tm, tn, tk := k.tile.M, k.tile.N, k.tile.K
	k0 := kt * tk

	sa := s.a[slot]
	for idx := rank; idx < tm*tk; idx += size {
		i, l := row0+idx/tk, k0+idx%tk
		if k.boundsCheck && (i >= k.p.M || l >= k.p.K) {
			sa[idx] = 0
			continue
		}
		sa[idx] = am.at(i, l)
	}

	sb := s.b[slot]
	for idx := rank; idx < tk*tn; idx += size {
		l, j := k0+idx/tn, col0+idx%tn
		if k.boundsCheck && (l >= k.p.K || j >= k.p.N) {
			sb[idx] = 0
			continue
		}
		sb[idx] = bm.at(l, j)
	}
}

// multiply accumulates one staged slice into the thread's register block.
func (k *dblBufKernel[T]) multiply(sa, sb, regs []T, ty, tx int) {
	tn, tk := k.tile.N, k.tile.K
	for l := 0; l < tk; l++ {
		bRow := sb[l*tn:]
		for r := 0; r < k.regM; r++ {
			av := sa[(ty+r*k.teamSize)*tk+l]
			acc := regs[r*k.regN : (r+1)*k.regN]
			if k.alphaMode == AlphaInFMA {
				av *= k.alpha
				for c := range acc {
					acc[c] = fma(av, bRow[tx+c*k.vecLen], acc[c])
				}
				continue
			}
			for c := range acc {
				acc[c] += av * bRow[tx+c*k.vecLen]
			}
		}
	}
}

// epilogue writes the register block to C. C is read at most once per
// element and not at all when beta is zero.
func (k *dblBufKernel[T]) epilogue(cm matrix[T], regs []T, row0, col0, ty, tx int) {
	alpha := k.alpha
	if k.alphaMode == AlphaInFMA {
		alpha = 1
	}
	k.owned(row0, col0, ty, tx, func(reg, i, j int) {
		cm.update(i, j, alpha, regs[reg], k.beta)
	})
}

// owned calls fn for every element of C held by thread (ty, tx) of the team
// at tile origin (row0, col0), with its index into the register block.
// With bounds checking, elements outside C are skipped.
func (k *dblBufKernel[T]) owned(row0, col0, ty, tx int, fn func(reg, i, j int)) {
	for r := 0; r < k.regM; r++ {
		i := row0 + ty + r*k.teamSize
		if k.boundsCheck && i >= k.p.M {
			break
		}
		for c := 0; c < k.regN; c++ {
			j := col0 + tx + c*k.vecLen
			if k.boundsCheck && j >= k.p.N {
				break
			}
			fn(r*k.regN+c, i, j)
		}
	}
}

// fma computes x*y + z with a single rounding in float64.
func fma[T Scalar](x, y, z T) T {
	return T(math.FMA(float64(x), float64(y), float64(z)))
}
