// Package launch runs kernels over a grid of cooperating thread blocks on the
// CPU. It mirrors the CUDA execution hierarchy: a grid of blocks, each block a
// team of threads that share block-local scratch memory and synchronize with a
// full-team barrier.
//
// Blocks never communicate and are scheduled over a bounded set of workers in
// contiguous ranges so that consecutive blocks reuse the same scratch memory.
// Threads of a block run as goroutines; a block of size one runs inline.
//
// Example:
//
//	grid := launch.Dim3{X: numTiles, Y: 1, Z: 1}
//	block := launch.Dim3{X: 8, Y: 8, Z: 1}
//	err := launch.Run(launch.Config{Grid: grid, Block: block}, newScratch,
//		func(t *launch.Team[*scratch]) {
//			// stage into t.Shared, t.Sync(), compute ...
//		})
package launch

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Dim3 represents 3D dimensions for grid and block configurations.
type Dim3 struct {
	X, Y, Z int
}

// Size returns the total number of elements.
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// ThreadID identifies a thread's position within the execution hierarchy.
// It provides the same indexing semantics as CUDA's built-in variables:
// blockIdx, threadIdx, blockDim, and gridDim.
type ThreadID struct {
	BlockIdx  Dim3 // Block index within the grid
	ThreadIdx Dim3 // Thread index within the block
	BlockDim  Dim3 // Dimensions of the block
	GridDim   Dim3 // Dimensions of the grid
}

// Rank returns the linear thread index within the block.
func (tid ThreadID) Rank() int {
	return (tid.ThreadIdx.Z*tid.BlockDim.Y+tid.ThreadIdx.Y)*tid.BlockDim.X + tid.ThreadIdx.X
}

// LeagueRank returns the linear block index within the grid.
func (tid ThreadID) LeagueRank() int {
	return (tid.BlockIdx.Z*tid.GridDim.Y+tid.BlockIdx.Y)*tid.GridDim.X + tid.BlockIdx.X
}

// Global returns the global thread index along X.
func (tid ThreadID) Global() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// Team is handed to every thread of a block. Shared is the block-local
// scratch memory; it is owned by the block for the duration of the kernel
// invocation and reused by the next block on the same worker.
type Team[S any] struct {
	ThreadID
	Shared S

	barrier *Barrier
	syncs   int
}

// Size returns the number of threads in the team.
func (t *Team[S]) Size() int {
	return t.BlockDim.Size()
}

// Sync blocks until every thread of the team has reached the same point.
func (t *Team[S]) Sync() {
	t.syncs++
	t.barrier.Wait()
}

// Syncs returns how many times this thread has called Sync in the current
// block.
func (t *Team[S]) Syncs() int {
	return t.syncs
}

// Config describes a kernel launch.
type Config struct {
	Grid  Dim3
	Block Dim3

	// Workers bounds the number of blocks executing concurrently.
	// Zero means GOMAXPROCS.
	Workers int
}

// PanicError carries a panic raised by a kernel thread.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("launch: kernel panic: %v", e.Value)
}

// Run executes kernel once per thread of every block in cfg.Grid and waits
// for completion. newShared is called once per worker to allocate the scratch
// memory its blocks share.
//
// A panic in any thread breaks the team barrier so the remaining threads of
// that block unwind, and is re-raised on the calling goroutine once every
// worker has stopped.
func Run[S any](cfg Config, newShared func() S, kernel func(*Team[S])) error {
	if cfg.Grid.X < 0 || cfg.Grid.Y < 0 || cfg.Grid.Z < 0 {
		return fmt.Errorf("launch: invalid grid %+v", cfg.Grid)
	}
	if cfg.Block.Size() <= 0 {
		return fmt.Errorf("launch: invalid block %+v", cfg.Block)
	}

	gridSize := cfg.Grid.Size()
	if gridSize == 0 {
		return nil
	}

	numWorkers := cfg.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	numWorkers = min(numWorkers, gridSize)

	// Each worker processes a contiguous range of blocks to maximize
	// scratch and cache reuse.
	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers

	var g errgroup.Group
	for w := 0; w < numWorkers; w++ {
		start := w * blocksPerWorker
		end := min(start+blocksPerWorker, gridSize)
		if start >= end {
			break
		}
		g.Go(func() error {
			return runBlocks(cfg, newShared, kernel, start, end)
		})
	}

	if err := g.Wait(); err != nil {
		if pe, ok := err.(*PanicError); ok {
			panic(pe.Value)
		}
		return err
	}
	return nil
}

// ParallelFor calls fn(i) for every i in [0, n) using blocks of a single
// thread.
func ParallelFor(n, workers int, fn func(i int)) error {
	cfg := Config{
		Grid:    Dim3{X: n, Y: 1, Z: 1},
		Block:   Dim3{X: 1, Y: 1, Z: 1},
		Workers: workers,
	}
	return Run(cfg, func() struct{} { return struct{}{} }, func(t *Team[struct{}]) {
		fn(t.BlockIdx.X)
	})
}

// runBlocks executes blocks [start, end) on the calling worker.
func runBlocks[S any](cfg Config, newShared func() S, kernel func(*Team[S]), start, end int) error {
	shared := newShared()
	blockSize := cfg.Block.Size()
	bar := NewBarrier(blockSize)

	if blockSize == 1 {
		return runThread(cfg, shared, kernel, bar, 0, start, end)
	}

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	wg.Add(blockSize)
	for rank := 0; rank < blockSize; rank++ {
		go func() {
			defer wg.Done()
			if err := runThread(cfg, shared, kernel, bar, rank, start, end); err != nil {
				once.Do(func() { firstErr = err })
			}
		}()
	}
	wg.Wait()
	return firstErr
}

// runThread walks one thread through every block of the worker's range.
func runThread[S any](cfg Config, shared S, kernel func(*Team[S]), bar *Barrier, rank, start, end int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if r == errBarrierBroken {
				return
			}
			bar.Break()
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	team := &Team[S]{
		ThreadID: ThreadID{
			ThreadIdx: linearTo3D(rank, cfg.Block),
			BlockDim:  cfg.Block,
			GridDim:   cfg.Grid,
		},
		Shared:  shared,
		barrier: bar,
	}
	for blockID := start; blockID < end; blockID++ {
		team.BlockIdx = linearTo3D(blockID, cfg.Grid)
		team.syncs = 0
		kernel(team)
		// The next block reuses the scratch memory.
		bar.Wait()
	}
	return nil
}

// linearTo3D converts a linear index to 3D coordinates
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}
