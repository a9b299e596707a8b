// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/LynnColeArt/batched"
)

type runOptions struct {
	m, n, k    int
	batch      int
	lanes      int
	algo       string
	layout     layoutFlag
	transA     transFlag
	transB     transFlag
	dtype      string
	target     string
	alpha      float64
	beta       float64
	iters      int
	interleave int
	workers    int
	verify     bool
	debug      bool
}

// batchLayout is the batch axis paired with the memory layout.
func (o runOptions) batchLayout() batched.BatchLayout {
	if o.layout.l == batched.LayoutLeft {
		return batched.BatchRight
	}
	return batched.BatchLeft
}

// dims returns the physical extents of op(X) stored as rows x cols.
func dims(t batched.Trans, rows, cols int) (int, int) {
	if t == batched.NoTranspose {
		return rows, cols
	}
	return cols, rows
}

func run[T batched.Scalar](cmd *cobra.Command, o runOptions, logger *log.Logger) error {
	if o.m < 0 || o.n < 0 || o.k < 0 || o.batch < 0 || o.lanes < 1 || o.iters < 1 {
		return errors.Errorf("invalid sizes m=%d n=%d k=%d batch=%d lanes=%d iters=%d",
			o.m, o.n, o.k, o.batch, o.lanes, o.iters)
	}
	algo, err := batched.ParseAlgo(o.algo)
	if err != nil {
		return err
	}
	target, err := batched.TargetByName(o.target)
	if err != nil {
		return err
	}
	if o.workers > 0 {
		t := *target
		t.Workers = o.workers
		target = &t
	}

	h := batched.NewHandle(algo)
	h.Target = target
	h.Debug = o.debug
	h.Logger = logger
	if o.interleave != 0 {
		h.Vendor = &batched.VendorParams{Interleave: o.interleave}
	}

	bl := o.batchLayout()
	ar, ac := dims(o.transA.t, o.m, o.k)
	br, bc := dims(o.transB.t, o.k, o.n)
	a := batched.BatchView[T](bl, o.batch, ar, ac, o.lanes)
	b := batched.BatchView[T](bl, o.batch, br, bc, o.lanes)
	c := batched.BatchView[T](bl, o.batch, o.m, o.n, o.lanes)
	batched.FillView(a, 1)
	batched.FillView(b, 2)
	batched.FillView(c, 3)
	c0 := c.Clone()

	p, err := batched.Analyze(bl, o.transA.t, o.transB.t, a, b, c)
	if err != nil {
		return err
	}
	plan, err := batched.Select(h, p, target)
	if err != nil {
		return errors.Wrapf(err, "status %d", batched.Status(err))
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "problem: %v\n", p)
	fmt.Fprintf(out, "target:  %v\n", target)
	fmt.Fprintf(out, "plan:    %v\n", plan)

	alpha, beta := T(o.alpha), T(o.beta)

	// The first call is checked; the timed loop accumulates into C.
	if err := batched.Gemm(h, o.transA.t, o.transB.t, bl, alpha, a, b, beta, c); err != nil {
		return errors.Wrapf(err, "status %d", batched.Status(err))
	}
	if o.verify {
		want := c0.Clone()
		if err := batched.ReferenceGemm(o.transA.t, o.transB.t, bl, alpha, a, b, beta, want); err != nil {
			return err
		}
		tol := batched.GemmTolerance[T](o.k, 1) * (1 + math.Abs(o.alpha) + math.Abs(o.beta))
		r := batched.Verify(want.Data(), c.Data(), tol)
		fmt.Fprintf(out, "verify:  %v\n", r)
		if !r.OK() {
			return errors.New("verification failed")
		}
	}

	h.Debug = false
	start := time.Now()
	for i := 0; i < o.iters; i++ {
		if err := batched.Gemm(h, o.transA.t, o.transB.t, bl, alpha, a, b, beta, c); err != nil {
			return errors.Wrapf(err, "iteration %d", i)
		}
	}
	elapsed := time.Since(start)

	flops := 2 * float64(o.m) * float64(o.n) * float64(o.k) * float64(o.batch) * float64(o.lanes) * float64(o.iters)
	fmt.Fprintf(out, "time:    %v per call, %.2f GFLOPS\n",
		elapsed/time.Duration(o.iters), flops/elapsed.Seconds()/1e9)
	return nil
}
