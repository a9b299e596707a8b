package launch

import (
	"errors"
	"sync"
)

// errBarrierBroken is raised in threads waiting on a barrier whose team lost
// a thread to a panic.
var errBarrierBroken = errors.New("launch: team barrier broken")

// Barrier is a reusable full-team barrier.
type Barrier struct {
	mu     sync.Mutex
	cond   *sync.Cond
	n      int
	count  int
	gen    uint64
	broken bool
}

// NewBarrier returns a barrier for n participants.
func NewBarrier(n int) *Barrier {
	b := &Barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until all n participants have called Wait for the current
// generation. It panics with errBarrierBroken if the barrier is broken
// while waiting.
func (b *Barrier) Wait() {
	if b.n == 1 {
		return
	}

	b.mu.Lock()
	if b.broken {
		b.mu.Unlock()
		panic(errBarrierBroken)
	}
	gen := b.gen
	b.count++
	if b.count == b.n {
		b.count = 0
		b.gen++
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for gen == b.gen && !b.broken {
		b.cond.Wait()
	}
	broken := gen == b.gen
	b.mu.Unlock()
	if broken {
		panic(errBarrierBroken)
	}
}

// Break releases every waiter. Subsequent calls to Wait panic.
func (b *Barrier) Break() {
	b.mu.Lock()
	b.broken = true
	b.cond.Broadcast()
	b.mu.Unlock()
}
